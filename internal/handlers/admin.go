package handlers

import (
	"net/http"
	"strconv"

	"food-price-tracker/internal/database"
	"food-price-tracker/internal/scheduler"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves the operator dashboard endpoints.
type AdminHandler struct {
	db        *database.GormDB
	scheduler *scheduler.Scheduler
}

func NewAdminHandler(db *database.GormDB, sched *scheduler.Scheduler) *AdminHandler {
	return &AdminHandler{db: db, scheduler: sched}
}

// GetStats returns record totals and per-source breakdown.
func (h *AdminHandler) GetStats(c *gin.Context) {
	total, bySource, err := h.db.CountPrices()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	entities, err := h.db.DistinctEntities()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_records":     total,
		"records_by_source": bySource,
		"tracked_entities":  len(entities),
	})
}

// GetPriceDistribution returns histogram buckets over stored prices.
func (h *AdminHandler) GetPriceDistribution(c *gin.Context) {
	buckets, err := h.db.PriceDistribution()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"buckets": buckets})
}

// GetRecentPrices returns the newest stored observations.
func (h *AdminHandler) GetRecentPrices(c *gin.Context) {
	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := h.db.ListPrices(database.PriceFilters{Limit: limit})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prices": records, "count": len(records)})
}

// TriggerScraping kicks off the full pipeline in the background.
func (h *AdminHandler) TriggerScraping(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not available"})
		return
	}

	// Failures are logged inside the scheduler.
	go func() { _ = h.scheduler.RunNow() }()

	c.JSON(http.StatusAccepted, gin.H{"message": "pipeline started"})
}
