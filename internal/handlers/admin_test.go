package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestTriggerScrapingWithoutScheduler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/api/admin/scraping/trigger", nil)

	h := NewAdminHandler(nil, nil)
	h.TriggerScraping(c)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a scheduler, got %d", w.Code)
	}
}
