package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"food-price-tracker/internal/alerts"
	"food-price-tracker/internal/config"
	"food-price-tracker/internal/database"
	"food-price-tracker/internal/dataset"
	"food-price-tracker/internal/etl"
	"food-price-tracker/internal/forecast"
	"food-price-tracker/internal/handlers"
	"food-price-tracker/internal/models"
	"food-price-tracker/internal/normalize"
	"food-price-tracker/internal/ratelimit"
	"food-price-tracker/internal/scheduler"
	"food-price-tracker/internal/scraper"
	"food-price-tracker/internal/search"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	appConfig    *config.Config
	gormDB       *database.GormDB
	pgDB         *database.DB
	searchClient *search.SearchClient
	registry     *forecast.Registry
	rateLimiter  *ratelimit.RateLimiter
	appScheduler *scheduler.Scheduler
	alertChecker *alerts.Checker
)

func main() {
	configPath := getEnv("CONFIG_PATH", "config/tracker.yaml")
	var err error
	appConfig, err = config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Warning: Failed to load config from %s: %v. Using defaults.", configPath, err)
		appConfig = config.DefaultConfig()
	} else {
		log.Printf("Loaded configuration from %s", configPath)
	}

	// Initialize database based on configuration
	dbType := appConfig.Database.Type
	if dbType == "" {
		dbType = getEnv("DB_TYPE", "mysql")
	}

	if dbType == "postgres" {
		log.Println("Using PostgreSQL")
		pgCfg := appConfig.Database.Postgres

		portStr := ""
		if pgCfg.Port > 0 {
			portStr = fmt.Sprintf("%d", pgCfg.Port)
		}

		pgDB, err = database.NewDB(
			getEnvOrConfig(pgCfg.Host, "DB_HOST", "db"),
			getEnvOrConfig(portStr, "DB_PORT", "5432"),
			getEnvOrConfig(pgCfg.User, "DB_USER", "foodprice_user"),
			getEnvOrConfig(pgCfg.Password, "DB_PASSWORD", "foodprice_pass"),
			getEnvOrConfig(pgCfg.Database, "DB_NAME", "food_price_db"),
		)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer pgDB.Close()

		if err := pgDB.InitSchema(); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
	} else {
		log.Println("Using MySQL with GORM")
		mysqlCfg := appConfig.Database.MySQL

		portStr := ""
		if mysqlCfg.Port > 0 {
			portStr = fmt.Sprintf("%d", mysqlCfg.Port)
		}

		gormDB, err = database.NewGormDB(
			getEnvOrConfig(mysqlCfg.Host, "DB_HOST", "mysql"),
			getEnvOrConfig(portStr, "DB_PORT", "3306"),
			getEnvOrConfig(mysqlCfg.User, "DB_USER", "foodprice_user"),
			getEnvOrConfig(mysqlCfg.Password, "DB_PASSWORD", "foodprice_pass"),
			getEnvOrConfig(mysqlCfg.Database, "DB_NAME", "food_price_db"),
		)
		if err != nil {
			log.Fatalf("Failed to connect to MySQL: %v", err)
		}
		defer gormDB.Close()

		if err := gormDB.InitSchema(); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
	}

	// Initialize Meilisearch
	meilisearchHost := appConfig.Search.Meilisearch.Host
	if meilisearchHost == "" {
		meilisearchHost = getEnv("MEILISEARCH_HOST", "")
	}
	if meilisearchHost != "" {
		meilisearchKey := appConfig.Search.Meilisearch.APIKey
		if meilisearchKey == "" {
			meilisearchKey = getEnv("MEILISEARCH_KEY", "")
		}
		searchClient = search.NewSearchClient(meilisearchHost, meilisearchKey)
		if err := searchClient.InitIndex(); err != nil {
			log.Printf("Warning: Failed to initialize search index: %v", err)
		}
	} else {
		log.Println("Meilisearch not configured, search endpoints disabled")
	}

	// Load forecast registry once at startup
	registry, err = forecast.LoadRegistry(appConfig.Forecast.ModelsDir)
	if err != nil {
		log.Printf("Warning: Failed to load forecast registry: %v. Forecast lookups disabled.", err)
	}

	// Rate limiter for scrape-trigger endpoints
	rateLimiter = ratelimit.NewRateLimiter(
		appConfig.RateLimit.RequestsPerMinute,
		appConfig.RateLimit.RequestsPerHour,
		appConfig.RateLimit.RequestsPerDay,
		appConfig.RateLimit.Enabled,
	)

	// Alert checker (MySQL store only, like the scheduler)
	if gormDB != nil {
		detector := alerts.NewSpikeDetector(appConfig.Alerts.ThresholdPercent, appConfig.Alerts.MinHistory)

		var notifier alerts.Notifier
		if appConfig.SMTP.Username != "" {
			notifier = alerts.NewEmailNotifier(
				appConfig.SMTP.Server,
				appConfig.SMTP.Port,
				appConfig.SMTP.Username,
				appConfig.SMTP.Password,
				appConfig.SMTP.From,
			)
		} else {
			log.Println("SMTP not configured, spike alerts will be logged only")
		}

		alertChecker = alerts.NewChecker(detector, gormDB, notifier,
			appConfig.Alerts.Recipient, appConfig.Alerts.LookbackDays)
	}

	// Daily pipeline scheduler (MySQL store only)
	if gormDB != nil {
		appScheduler = scheduler.NewScheduler(gormDB, searchClient, alertChecker, appConfig)
		if err := appScheduler.Start(); err != nil {
			log.Printf("Warning: Failed to start scheduler: %v", err)
		}
		defer appScheduler.Stop()
	}

	// Setup Gin router
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     appConfig.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))

	// Routes
	r.GET("/health", healthCheck)
	r.GET("/api/prices", getPrices)
	r.GET("/api/prices/:id", getPrice)
	r.GET("/api/search", searchPrices)
	r.GET("/forecast", getForecast)

	// Pipeline triggers with rate limiting
	r.POST("/api/scrape", rateLimitMiddleware(), scrapeListing)
	r.POST("/api/etl/load", rateLimitMiddleware(), loadFromCSV)
	r.POST("/api/alerts/check", checkAlerts)

	r.GET("/api/ratelimit/stats", getRateLimitStats)

	// Admin routes (MySQL store only)
	if gormDB != nil {
		adminHandler := handlers.NewAdminHandler(gormDB, appScheduler)
		admin := r.Group("/api/admin")
		{
			admin.GET("/stats", adminHandler.GetStats)
			admin.GET("/price-distribution", adminHandler.GetPriceDistribution)
			admin.GET("/prices/recent", adminHandler.GetRecentPrices)
			admin.POST("/scraping/trigger", adminHandler.TriggerScraping)
		}
	}

	port := getEnvOrConfig(appConfig.Server.Port, "PORT", "8080")
	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func getPrices(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	if gormDB == nil {
		records, err := pgDB.GetAllPrices(limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"prices": records, "count": len(records)})
		return
	}

	filters := database.PriceFilters{
		Source:  c.Query("source"),
		Market:  c.Query("market"),
		Country: c.Query("country"),
		Product: c.Query("product"),
		Limit:   limit,
	}
	records, err := gormDB.ListPrices(filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prices": records, "count": len(records)})
}

func getPrice(c *gin.Context) {
	if gormDB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "endpoint requires MySQL store"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	rec, err := gormDB.GetPriceByID(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "price record not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func searchPrices(c *gin.Context) {
	if searchClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is not configured"})
		return
	}

	query := c.Query("q")
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)

	records, err := searchClient.Search(query, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hits": records, "count": len(records)})
}

// getForecast serves a pre-computed forecast for one
// (admin area, market, commodity) group.
func getForecast(c *gin.Context) {
	if registry == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "forecasts are not loaded"})
		return
	}

	adminID, err1 := strconv.Atoi(c.Query("admin_id"))
	mktID, err2 := strconv.Atoi(c.Query("mkt_id"))
	cmID, err3 := strconv.Atoi(c.Query("cm_id"))
	if err1 != nil || err2 != nil || err3 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "admin_id, mkt_id and cm_id are required integers"})
		return
	}

	periods, err := strconv.Atoi(c.DefaultQuery("periods", "30"))
	if err != nil || periods < 1 || periods > 30 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "periods must be between 1 and 30"})
		return
	}

	series, ok := registry.Lookup(adminID, mktID, cmID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Model not found for given group"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"admin_id": adminID,
		"mkt_id":   mktID,
		"cm_id":    cmID,
		"forecast": series.Tail(periods),
	})
}

type scrapeRequest struct {
	URL string `json:"url" binding:"required"`
}

// scrapeListing scrapes one listing page and loads the results.
func scrapeListing(c *gin.Context) {
	if gormDB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "endpoint requires MySQL store"})
		return
	}

	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	sc := scraper.NewScraperWithConfig(scraper.Config{
		Timeout:      appConfig.Scraper.GetTimeout(),
		MaxRetries:   appConfig.Scraper.MaxRetries,
		RetryDelay:   appConfig.Scraper.GetRetryDelay(),
		RequestDelay: appConfig.Scraper.GetRequestDelay(),
		UserAgent:    appConfig.Scraper.UserAgent,
		UseHeadless:  appConfig.Scraper.UseHeadlessBrowser,
	})

	rows, err := sc.ScrapeProducts(req.URL)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	records, rejections, err := normalize.NewNormalizer().NormalizeRetailer(rows)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	result := etl.NewLoader(gormDB, appConfig.ETL.DedupDays).Load(records)

	if searchClient != nil && len(result.Records) > 0 {
		if err := searchClient.IndexPrices(result.Records); err != nil {
			log.Printf("Warning: Failed to index scraped records: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"scraped":    len(rows),
		"rejected":   len(rejections),
		"inserted":   result.Inserted,
		"duplicates": result.Duplicates,
		"failed":     result.Failed,
	})
}

type loadRequest struct {
	Path  string `json:"path" binding:"required"`
	Shape string `json:"shape" binding:"required"`
}

// loadFromCSV runs the ETL load for a raw CSV already on disk.
func loadFromCSV(c *gin.Context) {
	if gormDB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "endpoint requires MySQL store"})
		return
	}

	var req loadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path and shape are required"})
		return
	}

	normalizer := normalize.NewNormalizer()

	var result etl.LoadResult
	var rejected int

	switch req.Shape {
	case string(models.ShapeRetailer):
		rows, err := dataset.ReadRetailerCSV(req.Path)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		recs, rejections, err := normalizer.NormalizeRetailer(rows)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		rejected = len(rejections)
		result = etl.NewLoader(gormDB, appConfig.ETL.DedupDays).Load(recs)
	case string(models.ShapeBulkDataset):
		rows, err := dataset.ReadBulkCSV(req.Path)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		recs, rejections, err := normalizer.NormalizeBulk(rows)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		rejected = len(rejections)
		result = etl.NewLoader(gormDB, appConfig.ETL.DedupDays).Load(recs)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "shape must be retailer or bulk_dataset"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rejected":   rejected,
		"inserted":   result.Inserted,
		"duplicates": result.Duplicates,
		"failed":     result.Failed,
	})
}

func checkAlerts(c *gin.Context) {
	if alertChecker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alerts require MySQL store"})
		return
	}
	c.JSON(http.StatusOK, alertChecker.Run())
}

func getRateLimitStats(c *gin.Context) {
	c.JSON(http.StatusOK, rateLimiter.GetStats())
}

// rateLimitMiddleware rejects trigger requests over the configured
// limits.
func rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rateLimiter.AllowRequest() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvOrConfig prefers the config value, then the environment, then
// the fallback.
func getEnvOrConfig(configValue, envKey, fallback string) string {
	if configValue != "" {
		return configValue
	}
	return getEnv(envKey, fallback)
}
