package normalize

import (
	"errors"
	"testing"
	"time"

	"food-price-tracker/internal/models"
)

func fixedNormalizer(at time.Time) *Normalizer {
	return &Normalizer{now: func() time.Time { return at }}
}

func TestNormalizeRetailerCleansFields(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	n := fixedNormalizer(now)

	records, rejections, err := n.NormalizeRetailer([]RetailerRow{
		{ProductName: "  Rice 5kg  ", Price: "₦1,200", ProductURL: "https://example.com/p/rice", Brand: "Mama Gold"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rejections) != 0 {
		t.Fatalf("unexpected rejections: %+v", rejections)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	rec := records[0]
	if rec.ProductName != "Rice 5kg" {
		t.Errorf("product name not trimmed: %q", rec.ProductName)
	}
	if rec.Price != 1200 {
		t.Errorf("price not parsed: %v", rec.Price)
	}
	if rec.Currency != "NGN" || rec.Source != "Jumia" {
		t.Errorf("defaults not applied: currency=%q source=%q", rec.Currency, rec.Source)
	}
	if rec.Shape != models.ShapeRetailer {
		t.Errorf("wrong shape: %q", rec.Shape)
	}
	if rec.ProductURL == nil || *rec.ProductURL != "https://example.com/p/rice" {
		t.Errorf("product url lost: %v", rec.ProductURL)
	}
	if rec.Brand == nil || *rec.Brand != "Mama Gold" {
		t.Errorf("brand lost: %v", rec.Brand)
	}
	if !rec.ObservedAt.Equal(now) {
		t.Errorf("observation date should default to now, got %v", rec.ObservedAt)
	}
}

func TestNormalizeRetailerRejectsBadRowsKeepsGood(t *testing.T) {
	n := NewNormalizer()

	records, rejections, err := n.NormalizeRetailer([]RetailerRow{
		{ProductName: "Rice 5kg", Price: "N/A"},
		{ProductName: "Beans 1kg", Price: "₦950"},
		{ProductName: "Garri 2kg", Price: "₦-40"},
	})
	if err != nil {
		t.Fatalf("per-row problems must not fail the batch: %v", err)
	}
	if len(records) != 1 || records[0].ProductName != "Beans 1kg" {
		t.Fatalf("expected only the good row to survive, got %+v", records)
	}
	if len(rejections) != 2 {
		t.Fatalf("expected 2 rejections, got %+v", rejections)
	}
}

func TestNormalizeRetailerParsesScrapeDate(t *testing.T) {
	n := NewNormalizer()

	records, _, err := n.NormalizeRetailer([]RetailerRow{
		{ProductName: "Rice 5kg", Price: "₦1,200", ScrapeDate: "2026-08-15"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	if !records[0].ObservedAt.Equal(want) {
		t.Fatalf("expected %v, got %v", want, records[0].ObservedAt)
	}
}

func TestNormalizeRetailerBatchMalformed(t *testing.T) {
	n := NewNormalizer()

	_, _, err := n.NormalizeRetailer([]RetailerRow{
		{Price: "₦100"},
		{Price: "₦200"},
	})
	if !errors.Is(err, ErrBatchMalformed) {
		t.Fatalf("expected ErrBatchMalformed when product_name is absent everywhere, got %v", err)
	}

	_, _, err = n.NormalizeRetailer([]RetailerRow{
		{ProductName: "Rice"},
		{ProductName: "Beans"},
	})
	if !errors.Is(err, ErrBatchMalformed) {
		t.Fatalf("expected ErrBatchMalformed when price is absent everywhere, got %v", err)
	}
}

func TestNormalizeRetailerEmptyBatch(t *testing.T) {
	records, rejections, err := NewNormalizer().NormalizeRetailer(nil)
	if err != nil || len(records) != 0 || len(rejections) != 0 {
		t.Fatalf("empty batch must be a no-op, got (%v, %v, %v)", records, rejections, err)
	}
}

func TestNormalizeBulkMapsColumns(t *testing.T) {
	n := NewNormalizer()

	records, rejections, err := n.NormalizeBulk([]BulkRow{
		{Commodity: "Maize", Price: "230.5", Currency: "KES", Date: "2026-07-01", Market: "Nairobi", Country: "Kenya"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rejections) != 0 {
		t.Fatalf("unexpected rejections: %+v", rejections)
	}

	rec := records[0]
	if rec.ProductName != "Maize" {
		t.Errorf("commodity should map to product name, got %q", rec.ProductName)
	}
	if rec.Price != 230.5 || rec.Currency != "KES" {
		t.Errorf("price/currency wrong: %v %q", rec.Price, rec.Currency)
	}
	if rec.Market != "Nairobi" || rec.Country != "Kenya" {
		t.Errorf("market/country wrong: %q %q", rec.Market, rec.Country)
	}
	if rec.Source != "WFP" || rec.Shape != models.ShapeBulkDataset {
		t.Errorf("source/shape wrong: %q %q", rec.Source, rec.Shape)
	}
	want := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	if !rec.ObservedAt.Equal(want) {
		t.Errorf("expected %v, got %v", want, rec.ObservedAt)
	}
}

func TestNormalizeBulkDefaultsMarketAndCountry(t *testing.T) {
	records, _, err := NewNormalizer().NormalizeBulk([]BulkRow{
		{Commodity: "Maize", Price: "230.5", Date: "2026-07-01"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0].Market != "unknown" || records[0].Country != "unknown" {
		t.Fatalf("expected unknown sentinels, got %q / %q", records[0].Market, records[0].Country)
	}
}

func TestNormalizeBulkBatchMalformed(t *testing.T) {
	n := NewNormalizer()

	_, _, err := n.NormalizeBulk([]BulkRow{
		{Price: "230.5", Date: "2026-07-01"},
		{Price: "180", Date: "2026-07-02"},
	})
	if !errors.Is(err, ErrBatchMalformed) {
		t.Fatalf("expected ErrBatchMalformed when commodity is absent everywhere, got %v", err)
	}

	_, _, err = n.NormalizeBulk([]BulkRow{
		{Commodity: "Maize", Date: "2026-07-01"},
		{Commodity: "Beans", Date: "2026-07-02"},
	})
	if !errors.Is(err, ErrBatchMalformed) {
		t.Fatalf("expected ErrBatchMalformed when price is absent everywhere, got %v", err)
	}

	_, _, err = n.NormalizeBulk([]BulkRow{
		{Commodity: "Maize", Price: "230.5"},
		{Commodity: "Beans", Price: "180"},
	})
	if !errors.Is(err, ErrBatchMalformed) {
		t.Fatalf("expected ErrBatchMalformed when date is absent everywhere, got %v", err)
	}
}

func TestNormalizeBulkRejectsBadDate(t *testing.T) {
	records, rejections, err := NewNormalizer().NormalizeBulk([]BulkRow{
		{Commodity: "Maize", Price: "230.5", Date: "not-a-date"},
		{Commodity: "Beans", Price: "180", Date: "2026-07-01"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || len(rejections) != 1 {
		t.Fatalf("expected 1 record and 1 rejection, got %d/%d", len(records), len(rejections))
	}
}

func TestParsePrice(t *testing.T) {
	cases := []struct {
		raw    string
		symbol string
		want   float64
		ok     bool
	}{
		{"₦1,200", "₦", 1200, true},
		{"₦ 2,500.50", "₦", 2500.50, true},
		{"950", "", 950, true},
		{"0", "", 0, true},
		{"-40", "", 0, false},
		{"N/A", "₦", 0, false},
		{"", "₦", 0, false},
	}

	for _, tc := range cases {
		got, err := parsePrice(tc.raw, tc.symbol)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("parsePrice(%q): got (%v, %v), want %v", tc.raw, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("parsePrice(%q): expected error, got %v", tc.raw, got)
		}
	}
}

func TestParseDateLayouts(t *testing.T) {
	for _, raw := range []string{"2026-01-15", "2026-01-15 08:30:00", "15/01/2026"} {
		parsed, err := parseDate(raw)
		if err != nil {
			t.Errorf("parseDate(%q): %v", raw, err)
			continue
		}
		if parsed.Year() != 2026 || parsed.Month() != time.January || parsed.Day() != 15 {
			t.Errorf("parseDate(%q): got %v", raw, parsed)
		}
	}
}
