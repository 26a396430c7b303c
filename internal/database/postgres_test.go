package database

import (
	"testing"

	"food-price-tracker/internal/models"
)

func TestAdvisoryLockKey(t *testing.T) {
	url := "https://example.com/p/rice"
	retailer := models.PriceRecord{
		ProductName: "Rice 5kg",
		Source:      "Jumia",
		Shape:       models.ShapeRetailer,
		ProductURL:  &url,
	}
	bulk := models.PriceRecord{
		ProductName: "Rice 5kg",
		Source:      "WFP",
		Shape:       models.ShapeBulkDataset,
		Market:      "Lagos",
	}

	// Deterministic: two loads of the same entity must hash to the
	// same lock, or they would not serialize.
	if advisoryLockKey(retailer.NaturalKey()) != advisoryLockKey(retailer.NaturalKey()) {
		t.Fatalf("lock key must be deterministic for the same entity")
	}

	// Distinct entities must not contend on one lock.
	if advisoryLockKey(retailer.NaturalKey()) == advisoryLockKey(bulk.NaturalKey()) {
		t.Fatalf("distinct natural keys must yield distinct lock keys")
	}

	otherURL := "https://example.com/p/beans"
	other := retailer
	other.ProductURL = &otherURL
	if advisoryLockKey(retailer.NaturalKey()) == advisoryLockKey(other.NaturalKey()) {
		t.Fatalf("different product URLs must yield distinct lock keys")
	}
}
