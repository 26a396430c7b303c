package etl

import (
	"log"
	"time"

	"food-price-tracker/internal/models"
)

// DefaultDedupDays is the trailing window within which a repeat
// observation of the same natural key is suppressed.
const DefaultDedupDays = 7

// PriceStore is the persistence contract the loader writes through.
// InsertPriceDedup must perform the recent-observation check and the
// insert as ONE atomic unit relative to other writers: two overlapping
// loader runs must serialize on the natural key so the race degrades
// to a duplicate skip, never a double insert. It returns false with a
// nil error when a record with the same natural key already exists
// with an observation date at or after cutoff.
type PriceStore interface {
	InsertPriceDedup(rec *models.PriceRecord, cutoff time.Time) (inserted bool, err error)
}

// LoadResult summarizes one batch load. Duplicates and Failed are
// expected, non-fatal outcomes; only structural problems abort a batch
// before it starts.
type LoadResult struct {
	Inserted   int                  `json:"inserted"`
	Duplicates int                  `json:"duplicates"`
	Failed     int                  `json:"failed"`
	Records    []models.PriceRecord `json:"-"`
}

// Loader persists normalized price records with windowed
// deduplication. Each record is one check-then-insert unit; a failure
// on record N never rolls back records 1..N-1.
type Loader struct {
	store     PriceStore
	dedupDays int
}

func NewLoader(store PriceStore, dedupDays int) *Loader {
	if dedupDays <= 0 {
		dedupDays = DefaultDedupDays
	}
	return &Loader{store: store, dedupDays: dedupDays}
}

// Load walks the batch in order. The dedup window is anchored to each
// incoming record's own observation date, so back-filled historical
// batches dedup against their own era rather than against wall-clock
// now.
func (l *Loader) Load(records []models.PriceRecord) LoadResult {
	var result LoadResult

	for i := range records {
		rec := &records[i]

		if !rec.StorageEligible() {
			log.Printf("[Loader] Skipping ineligible record %q (missing name, price or date)", rec.ProductName)
			result.Failed++
			continue
		}

		cutoff := rec.ObservedAt.AddDate(0, 0, -l.dedupDays)
		inserted, err := l.store.InsertPriceDedup(rec, cutoff)
		if err != nil {
			log.Printf("[Loader] Failed to insert %q (%s): %v", rec.ProductName, rec.NaturalKey(), err)
			result.Failed++
			continue
		}
		if !inserted {
			log.Printf("[Loader] Skipping duplicate: %s (%s)", rec.ProductName, rec.NaturalKey())
			result.Duplicates++
			continue
		}

		result.Inserted++
		result.Records = append(result.Records, *rec)
	}

	log.Printf("[Loader] Batch done: %d inserted, %d duplicates, %d failed",
		result.Inserted, result.Duplicates, result.Failed)
	return result
}
