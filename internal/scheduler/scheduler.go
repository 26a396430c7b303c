package scheduler

import (
	"fmt"
	"log"

	"food-price-tracker/internal/alerts"
	"food-price-tracker/internal/config"
	"food-price-tracker/internal/database"
	"food-price-tracker/internal/etl"
	"food-price-tracker/internal/normalize"
	"food-price-tracker/internal/scraper"
	"food-price-tracker/internal/search"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the daily scrape → normalize → load → index → alert
// pipeline.
type Scheduler struct {
	cron      *cron.Cron
	db        *database.GormDB
	search    *search.SearchClient
	checker   *alerts.Checker
	config    *config.Config
	isRunning bool
}

func NewScheduler(db *database.GormDB, searchClient *search.SearchClient, checker *alerts.Checker, cfg *config.Config) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		db:      db,
		search:  searchClient,
		checker: checker,
		config:  cfg,
	}
}

// Start registers the daily job and starts the cron loop.
func (s *Scheduler) Start() error {
	if !s.config.Scraper.DailyRunEnabled {
		log.Println("Scheduler: Daily run is disabled in configuration")
		return nil
	}

	cronSpec := s.parseDailyRunTime(s.config.Scraper.DailyRunTime)

	_, err := s.cron.AddFunc(cronSpec, func() {
		log.Println("Scheduler: Starting daily pipeline...")
		if err := s.runPipeline(); err != nil {
			log.Printf("Scheduler: Daily pipeline failed: %v", err)
		} else {
			log.Println("Scheduler: Daily pipeline completed successfully")
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.isRunning = true
	log.Printf("Scheduler: Started with daily run at %s (cron: %s)", s.config.Scraper.DailyRunTime, cronSpec)

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	if s.isRunning {
		s.cron.Stop()
		s.isRunning = false
		log.Println("Scheduler: Stopped")
	}
}

// runPipeline executes one full scrape-and-load cycle. Per-page and
// per-record failures are logged and skipped; only a totally failed
// cycle returns an error.
func (s *Scheduler) runPipeline() error {
	sc := scraper.NewScraperWithConfig(scraper.Config{
		Timeout:      s.config.Scraper.GetTimeout(),
		MaxRetries:   s.config.Scraper.MaxRetries,
		RetryDelay:   s.config.Scraper.GetRetryDelay(),
		RequestDelay: s.config.Scraper.GetRequestDelay(),
		UserAgent:    s.config.Scraper.UserAgent,
		UseHeadless:  s.config.Scraper.UseHeadlessBrowser,
	})
	normalizer := normalize.NewNormalizer()
	loader := etl.NewLoader(s.db, s.config.ETL.DedupDays)

	pagesOK := 0
	totalInserted := 0
	var allRows []normalize.RetailerRow

	for _, listURL := range s.config.Scraper.ListURLs {
		rows, err := sc.ScrapeProducts(listURL)
		if err != nil {
			log.Printf("Scheduler: Failed to scrape %s: %v", listURL, err)
			continue
		}
		pagesOK++
		allRows = append(allRows, rows...)

		records, rejections, err := normalizer.NormalizeRetailer(rows)
		if err != nil {
			log.Printf("Scheduler: Malformed batch from %s: %v", listURL, err)
			continue
		}
		for _, rej := range rejections {
			log.Printf("Scheduler: Rejected row %d from %s: %s", rej.Row, listURL, rej.Reason)
		}

		result := loader.Load(records)
		totalInserted += result.Inserted

		if s.search != nil && len(result.Records) > 0 {
			if err := s.search.IndexPrices(result.Records); err != nil {
				log.Printf("Scheduler: Failed to index %d records: %v", len(result.Records), err)
			}
		}
	}

	if pagesOK == 0 && len(s.config.Scraper.ListURLs) > 0 {
		return fmt.Errorf("all %d listing pages failed", len(s.config.Scraper.ListURLs))
	}

	// Keep the raw scrape on disk so the ETL job can re-run a load
	// without re-scraping.
	if s.config.Scraper.RawCSVPath != "" && len(allRows) > 0 {
		if err := scraper.SaveCSV(allRows, s.config.Scraper.RawCSVPath); err != nil {
			log.Printf("Scheduler: Failed to save raw CSV: %v", err)
		}
	}

	log.Printf("Scheduler: Pipeline scraped %d/%d pages, inserted %d records",
		pagesOK, len(s.config.Scraper.ListURLs), totalInserted)

	if s.checker != nil && s.config.Alerts.Enabled {
		result := s.checker.Run()
		log.Printf("Scheduler: Alert sweep checked %d entities, sent %d alerts", result.Checked, result.Sent)
	}

	return nil
}

// RunNow immediately executes the pipeline (for manual trigger)
func (s *Scheduler) RunNow() error {
	log.Println("Scheduler: Manual trigger - starting pipeline...")
	return s.runPipeline()
}

// parseDailyRunTime converts HH:MM format to cron specification
// Example: "02:00" -> "0 2 * * *" (run at 2:00 AM every day)
func (s *Scheduler) parseDailyRunTime(timeStr string) string {
	var hour, minute int
	n, _ := fmt.Sscanf(timeStr, "%d:%d", &hour, &minute)
	if n == 2 {
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}

	log.Printf("Scheduler: Failed to parse time '%s', using default 02:00", timeStr)
	return "0 2 * * *"
}
