package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"food-price-tracker/internal/models"
)

// ErrBatchMalformed is returned when a required column is missing from
// every row of a batch, so no row could possibly be rescued.
var ErrBatchMalformed = errors.New("batch malformed: required column absent")

// RetailerRow is a raw row scraped from a retail site. Price is the
// display string as scraped (currency symbol, thousands separators).
type RetailerRow struct {
	ProductName string
	Price       string
	ProductURL  string
	Brand       string
	Source      string
	ScrapeDate  string
}

// BulkRow is a raw row from a downloaded bulk dataset (WFP food
// prices CSV shape).
type BulkRow struct {
	Commodity string
	Price     string
	Currency  string
	Date      string
	Market    string
	Country   string
}

// Rejection records a single dropped row and the reason it was
// excluded. Rejections are expected outcomes, not errors: the batch
// continues without the row.
type Rejection struct {
	Row    int
	Reason string
}

// Source-specific defaults applied when optional fields are absent.
const (
	defaultRetailerSource   = "Jumia"
	defaultRetailerCurrency = "NGN"
	defaultBulkSource       = "WFP"
	unknownSentinel         = "unknown"

	nairaSymbol = "₦"
)

// dateLayouts are tried in order when parsing observation dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
}

// Normalizer maps heterogeneous raw rows into canonical PriceRecords.
// It does no deduplication; that is entirely the loader's job because
// dedup requires querying stored state.
type Normalizer struct {
	now func() time.Time
}

func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NormalizeRetailer converts scraped retailer rows. Rows with an
// unparseable price or date are dropped into the rejection list; a
// batch where a required column is absent from every row fails whole.
func (n *Normalizer) NormalizeRetailer(rows []RetailerRow) ([]models.PriceRecord, []Rejection, error) {
	if len(rows) > 0 {
		if allEmpty(rows, func(r RetailerRow) string { return r.ProductName }) {
			return nil, nil, fmt.Errorf("%w: product_name", ErrBatchMalformed)
		}
		if allEmpty(rows, func(r RetailerRow) string { return r.Price }) {
			return nil, nil, fmt.Errorf("%w: price", ErrBatchMalformed)
		}
	}

	var records []models.PriceRecord
	var rejections []Rejection

	for i, row := range rows {
		name := strings.TrimSpace(row.ProductName)
		if name == "" {
			rejections = append(rejections, Rejection{Row: i, Reason: "empty product_name"})
			continue
		}

		price, err := parsePrice(row.Price, nairaSymbol)
		if err != nil {
			rejections = append(rejections, Rejection{Row: i, Reason: fmt.Sprintf("bad price %q: %v", row.Price, err)})
			continue
		}

		// Scrape date defaults to now when the source omits it.
		observedAt := n.now()
		if raw := strings.TrimSpace(row.ScrapeDate); raw != "" {
			observedAt, err = parseDate(raw)
			if err != nil {
				rejections = append(rejections, Rejection{Row: i, Reason: fmt.Sprintf("bad scrape_date %q", row.ScrapeDate)})
				continue
			}
		}

		source := strings.TrimSpace(row.Source)
		if source == "" {
			source = defaultRetailerSource
		}

		rec := models.PriceRecord{
			ProductName: name,
			Price:       price,
			Currency:    defaultRetailerCurrency,
			Market:      unknownSentinel,
			Country:     unknownSentinel,
			Source:      source,
			Shape:       models.ShapeRetailer,
			ObservedAt:  observedAt,
		}
		if url := strings.TrimSpace(row.ProductURL); url != "" {
			rec.ProductURL = &url
		}
		if brand := strings.TrimSpace(row.Brand); brand != "" {
			rec.Brand = &brand
		}
		records = append(records, rec)
	}

	return records, rejections, nil
}

// NormalizeBulk converts bulk-dataset rows (commodity/price/currency/
// date/market/country columns).
func (n *Normalizer) NormalizeBulk(rows []BulkRow) ([]models.PriceRecord, []Rejection, error) {
	if len(rows) > 0 {
		if allEmpty(rows, func(r BulkRow) string { return r.Commodity }) {
			return nil, nil, fmt.Errorf("%w: commodity", ErrBatchMalformed)
		}
		if allEmpty(rows, func(r BulkRow) string { return r.Price }) {
			return nil, nil, fmt.Errorf("%w: price", ErrBatchMalformed)
		}
		if allEmpty(rows, func(r BulkRow) string { return r.Date }) {
			return nil, nil, fmt.Errorf("%w: date", ErrBatchMalformed)
		}
	}

	var records []models.PriceRecord
	var rejections []Rejection

	for i, row := range rows {
		name := strings.TrimSpace(row.Commodity)
		if name == "" {
			rejections = append(rejections, Rejection{Row: i, Reason: "empty commodity"})
			continue
		}

		// Bulk prices are plain numerics; no currency symbol to strip.
		price, err := parsePrice(row.Price, "")
		if err != nil {
			rejections = append(rejections, Rejection{Row: i, Reason: fmt.Sprintf("bad price %q: %v", row.Price, err)})
			continue
		}

		observedAt, err := parseDate(strings.TrimSpace(row.Date))
		if err != nil {
			rejections = append(rejections, Rejection{Row: i, Reason: fmt.Sprintf("bad date %q", row.Date)})
			continue
		}

		rec := models.PriceRecord{
			ProductName: name,
			Price:       price,
			Currency:    strings.TrimSpace(row.Currency),
			Market:      defaultString(row.Market, unknownSentinel),
			Country:     defaultString(row.Country, unknownSentinel),
			Source:      defaultBulkSource,
			Shape:       models.ShapeBulkDataset,
			ObservedAt:  observedAt,
		}
		records = append(records, rec)
	}

	return records, rejections, nil
}

// parsePrice strips the designated currency symbol and thousands
// separators, then parses the remainder as a non-negative decimal.
func parsePrice(raw, symbol string) (float64, error) {
	s := strings.TrimSpace(raw)
	if symbol != "" {
		s = strings.ReplaceAll(s, symbol, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty after cleanup")
	}
	price, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if price < 0 {
		return 0, fmt.Errorf("negative price %v", price)
	}
	return price, nil
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", raw)
}

func defaultString(s, fallback string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	return s
}

func allEmpty[T any](rows []T, field func(T) string) bool {
	for _, r := range rows {
		if strings.TrimSpace(field(r)) != "" {
			return false
		}
	}
	return true
}
