package scraper

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"food-price-tracker/internal/normalize"
)

// SaveCSV writes scraped rows to a raw CSV file, the handoff format
// the ETL job reads back.
func SaveCSV(rows []normalize.RetailerRow, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"product_name", "price", "product_url", "brand"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write([]string{row.ProductName, row.Price, row.ProductURL, row.Brand}); err != nil {
			return err
		}
	}
	if err := w.Error(); err != nil {
		return err
	}

	log.Printf("[Scraper] Saved %d products to %s", len(rows), path)
	return nil
}
