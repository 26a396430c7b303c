package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"food-price-tracker/internal/config"
	"food-price-tracker/internal/database"
	"food-price-tracker/internal/dataset"
	"food-price-tracker/internal/etl"
	"food-price-tracker/internal/models"
	"food-price-tracker/internal/normalize"
	"food-price-tracker/internal/search"
)

// One-shot ETL job: read a raw CSV (retailer scrape output or the bulk
// dataset), normalize it and load it into the price store with
// windowed dedup. Meant for cron or manual back-fills; the API server
// runs the same pipeline on its own schedule.
func main() {
	configPath := flag.String("config", "config/tracker.yaml", "path to YAML config")
	shape := flag.String("shape", string(models.ShapeBulkDataset), "input shape: retailer or bulk_dataset")
	csvPath := flag.String("csv", "", "path to the raw CSV (defaults per shape from config)")
	download := flag.Bool("download", false, "download the bulk dataset before loading")
	index := flag.Bool("index", false, "push inserted records to the search index")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	path := *csvPath
	if path == "" {
		switch *shape {
		case string(models.ShapeRetailer):
			path = cfg.Scraper.RawCSVPath
		default:
			path = cfg.ETL.BulkCSVPath
		}
	}

	if *download {
		url := cfg.ETL.BulkDatasetURL
		if url == "" {
			url = dataset.DefaultBulkURL
		}
		log.Printf("[ETL] Downloading bulk dataset from %s", url)
		if err := dataset.DownloadFile(url, path); err != nil {
			log.Fatalf("Failed to download dataset: %v", err)
		}
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeStore()

	normalizer := normalize.NewNormalizer()

	var records []models.PriceRecord
	var rejections []normalize.Rejection

	switch *shape {
	case string(models.ShapeRetailer):
		rows, err := dataset.ReadRetailerCSV(path)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", path, err)
		}
		records, rejections, err = normalizer.NormalizeRetailer(rows)
		if err != nil {
			log.Fatalf("Malformed batch: %v", err)
		}
	case string(models.ShapeBulkDataset):
		rows, err := dataset.ReadBulkCSV(path)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", path, err)
		}
		records, rejections, err = normalizer.NormalizeBulk(rows)
		if err != nil {
			log.Fatalf("Malformed batch: %v", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown shape %q (want retailer or bulk_dataset)\n", *shape)
		os.Exit(2)
	}

	for _, rej := range rejections {
		log.Printf("[ETL] Rejected row %d: %s", rej.Row, rej.Reason)
	}

	result := etl.NewLoader(store, cfg.ETL.DedupDays).Load(records)
	log.Printf("[ETL] Load complete: %d inserted, %d duplicates, %d failed (%d rows rejected upstream)",
		result.Inserted, result.Duplicates, result.Failed, len(rejections))

	if *index && len(result.Records) > 0 {
		host := cfg.Search.Meilisearch.Host
		if host == "" {
			log.Println("[ETL] Search indexing requested but Meilisearch is not configured")
			return
		}
		client := search.NewSearchClient(host, cfg.Search.Meilisearch.APIKey)
		if err := client.IndexPrices(result.Records); err != nil {
			log.Printf("[ETL] Failed to index records: %v", err)
		} else {
			log.Printf("[ETL] Indexed %d records", len(result.Records))
		}
	}
}

// openStore connects to whichever store the config selects and returns
// it behind the loader's interface.
func openStore(cfg *config.Config) (etl.PriceStore, func(), error) {
	if cfg.Database.Type == "postgres" {
		pg := cfg.Database.Postgres
		db, err := database.NewDB(pg.Host, fmt.Sprintf("%d", pg.Port), pg.User, pg.Password, pg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := db.InitSchema(); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	}

	my := cfg.Database.MySQL
	db, err := database.NewGormDB(my.Host, fmt.Sprintf("%d", my.Port), my.User, my.Password, my.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := db.InitSchema(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, func() { db.Close() }, nil
}
