package models

import (
	"fmt"
	"time"
)

// SourceShape identifies which raw feed a record came from. The two
// shapes carry different natural keys for deduplication.
type SourceShape string

const (
	ShapeRetailer    SourceShape = "retailer"
	ShapeBulkDataset SourceShape = "bulk_dataset"
)

// PriceRecord is one observed price for a product in a market.
// Rows are append-only from the pipeline's perspective: the loader
// inserts or skips, it never updates or deletes.
type PriceRecord struct {
	ID          uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductName string      `gorm:"type:varchar(255);not null;index" json:"product_name"`
	Price       float64     `gorm:"type:decimal(12,2);not null" json:"price"`
	Currency    string      `gorm:"type:varchar(10)" json:"currency"`
	Market      string      `gorm:"type:varchar(100);index" json:"market"`
	Country     string      `gorm:"type:varchar(100)" json:"country"`
	Brand       *string     `gorm:"type:varchar(255)" json:"brand,omitempty"`
	ProductURL  *string     `gorm:"type:varchar(500);index" json:"product_url,omitempty"`
	Source      string      `gorm:"type:varchar(50);not null;index" json:"source"`
	Shape       SourceShape `gorm:"type:varchar(20);not null" json:"shape"`
	ObservedAt  time.Time   `gorm:"column:scrape_date;type:datetime;not null;index" json:"scrape_date"`
	CreatedAt   time.Time   `gorm:"type:datetime;not null;autoCreateTime" json:"created_at"`
}

// TableName pins the table name used by both store implementations.
func (PriceRecord) TableName() string {
	return "food_prices"
}

// StorageEligible reports whether the record satisfies the minimum
// requirements for persistence: product name, non-negative price and a
// valid observation date. Everything else tolerates defaults.
func (r *PriceRecord) StorageEligible() bool {
	return r.ProductName != "" && r.Price >= 0 && !r.ObservedAt.IsZero()
}

// NaturalKey is the business-meaning identifier used for dedup, as
// opposed to the surrogate auto-increment id. Retailer records key on
// (source, product_url); bulk-dataset records on (source, product_name,
// market).
type NaturalKey struct {
	Source      string
	ProductURL  string
	ProductName string
	Market      string
}

// NaturalKey computes the dedup key for this record per its shape.
func (r *PriceRecord) NaturalKey() NaturalKey {
	if r.Shape == ShapeRetailer && r.ProductURL != nil && *r.ProductURL != "" {
		return NaturalKey{Source: r.Source, ProductURL: *r.ProductURL}
	}
	return NaturalKey{Source: r.Source, ProductName: r.ProductName, Market: r.Market}
}

func (k NaturalKey) String() string {
	if k.ProductURL != "" {
		return fmt.Sprintf("%s|%s", k.Source, k.ProductURL)
	}
	return fmt.Sprintf("%s|%s|%s", k.Source, k.ProductName, k.Market)
}
