// Package dataset handles the bulk-dataset raw record source: the WFP
// global food prices CSV, downloaded from HDX, plus the raw CSV
// handoff written by the retailer scraper.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"food-price-tracker/internal/normalize"
)

// DefaultBulkURL is the direct download for the Global WFP Food Prices
// dataset on HDX.
const DefaultBulkURL = "https://data.humdata.org/dataset/4fdcd4dc-5c2f-43af-a1e4-93c9b6539a27/resource/12d7c8e3-eff9-4db0-93b7-726825c4fe9a/download/wfpvam_foodprices.csv"

// DownloadFile streams a remote file to disk, creating parent
// directories as needed.
func DownloadFile(fileURL, savePath string) error {
	log.Printf("[Dataset] Downloading from: %s", fileURL)

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Get(fileURL)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", fileURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download %s: status code %d", fileURL, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(savePath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(savePath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", savePath, err)
	}
	defer f.Close()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", savePath, err)
	}

	log.Printf("[Dataset] Saved %d bytes to %s", n, savePath)
	return nil
}

// bulk dataset columns required in the CSV header
var bulkColumns = []string{"commodity", "price", "currency", "date", "market", "country"}

// ReadBulkCSV parses the bulk dataset CSV into raw rows. A header
// missing any required column fails the whole read, since no row could
// be rescued.
func ReadBulkCSV(path string) ([]normalize.BulkRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	col, err := headerIndex(header, bulkColumns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var rows []normalize.BulkRow
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Ragged line; skip it, the batch continues
			log.Printf("[Dataset] Skipping malformed CSV line in %s: %v", path, err)
			continue
		}
		rows = append(rows, normalize.BulkRow{
			Commodity: field(record, col["commodity"]),
			Price:     field(record, col["price"]),
			Currency:  field(record, col["currency"]),
			Date:      field(record, col["date"]),
			Market:    field(record, col["market"]),
			Country:   field(record, col["country"]),
		})
	}

	log.Printf("[Dataset] Read %d bulk rows from %s", len(rows), path)
	return rows, nil
}

// retailer raw-CSV columns, as written by scraper.SaveCSV
var retailerColumns = []string{"product_name", "price"}

// ReadRetailerCSV parses the scraper's raw CSV handoff. Only
// product_name and price are required; product_url and brand are
// optional columns.
func ReadRetailerCSV(path string) ([]normalize.RetailerRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	col, err := headerIndex(header, retailerColumns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	optional := optionalIndex(header, "product_url", "brand", "source", "scrape_date")

	var rows []normalize.RetailerRow
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("[Dataset] Skipping malformed CSV line in %s: %v", path, err)
			continue
		}
		rows = append(rows, normalize.RetailerRow{
			ProductName: field(record, col["product_name"]),
			Price:       field(record, col["price"]),
			ProductURL:  field(record, optional["product_url"]),
			Brand:       field(record, optional["brand"]),
			Source:      field(record, optional["source"]),
			ScrapeDate:  field(record, optional["scrape_date"]),
		})
	}

	log.Printf("[Dataset] Read %d retailer rows from %s", len(rows), path)
	return rows, nil
}

// headerIndex maps required column names to their positions, failing
// when one is absent.
func headerIndex(header, required []string) (map[string]int, error) {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("required column %q missing from CSV header", name)
		}
	}
	return col, nil
}

func optionalIndex(header []string, names ...string) map[string]int {
	col := make(map[string]int, len(names))
	for _, name := range names {
		col[name] = -1
	}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if _, ok := col[h]; ok {
			col[h] = i
		}
	}
	return col
}

// field safely indexes a CSV record; -1 or out-of-range yields "".
func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
