package scraper

import (
	"compress/gzip"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"food-price-tracker/internal/normalize"

	"github.com/PuerkitoBio/goquery"
)

// Shared circuit breaker: one retail site, one block state, regardless
// of how many Scraper instances the API spins up.
var breaker = NewCircuitBreaker(5, 30*time.Minute)

type Scraper struct {
	client          *http.Client
	maxRetries      int
	retryDelay      time.Duration
	requestDelay    time.Duration
	lastRequestTime time.Time
	userAgent       string
	useHeadless     bool
}

type Config struct {
	Timeout      time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
	RequestDelay time.Duration
	UserAgent    string
	UseHeadless  bool
}

func NewScraper() *Scraper {
	return NewScraperWithConfig(Config{
		Timeout:      30 * time.Second,
		MaxRetries:   3,
		RetryDelay:   2 * time.Second,
		RequestDelay: 2 * time.Second,
	})
}

func NewScraperWithConfig(cfg Config) *Scraper {
	// Cookie jar keeps the session across list pages
	jar, err := cookiejar.New(nil)
	if err != nil {
		log.Printf("Warning: Failed to create cookie jar: %v", err)
		jar = nil
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
	}

	return &Scraper{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		requestDelay: cfg.RequestDelay,
		userAgent:    userAgent,
		useHeadless:  cfg.UseHeadless,
	}
}

// rateLimit enforces minimum delay between requests
func (s *Scraper) rateLimit() {
	if s.requestDelay == 0 {
		return
	}
	elapsed := time.Since(s.lastRequestTime)
	if elapsed < s.requestDelay {
		time.Sleep(s.requestDelay - elapsed)
	}
	s.lastRequestTime = time.Now()
}

// applyBrowserHeaders sets browser-like headers to avoid bot blocks
func (s *Scraper) applyBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

// doRequestWithRetry performs an HTTP request with exponential backoff.
// 4xx responses (other than 429) are permanent and not retried.
func (s *Scraper) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	if !breaker.CanProceed() {
		open, failures, total := breaker.Status()
		return nil, fmt.Errorf("circuit breaker open: suspected block (%d/%d failures, open=%v)", failures, total, open)
	}

	var resp *http.Response
	var err error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * s.retryDelay
			if backoff > 60*time.Second {
				backoff = 60 * time.Second
			}
			log.Printf("[Scraper] Retry attempt %d/%d after %v", attempt, s.maxRetries, backoff)
			time.Sleep(backoff)
		}

		s.rateLimit()
		resp, err = s.client.Do(req)

		if err == nil && resp.StatusCode == http.StatusOK {
			breaker.RecordSuccess()
			return resp, nil
		}

		if err != nil {
			log.Printf("[Scraper] Request failed (attempt %d): %v", attempt+1, err)
			breaker.RecordFailure(0)
			continue
		}

		log.Printf("[Scraper] Request failed (attempt %d): status %d", attempt+1, resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == 429 || resp.StatusCode == 403 {
			breaker.RecordFailure(resp.StatusCode)
		}
		if resp.Body != nil {
			resp.Body.Close()
		}

		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != 429 {
			break
		}
	}

	if err != nil {
		return nil, fmt.Errorf("request failed after %d retries: %w", s.maxRetries, err)
	}
	return nil, fmt.Errorf("request failed after %d retries: status code %d", s.maxRetries, resp.StatusCode)
}

// fetchDocument retrieves and parses a page, via headless browser when
// configured (JS-rendered listings), plain HTTP otherwise.
func (s *Scraper) fetchDocument(pageURL string) (*goquery.Document, error) {
	if s.useHeadless {
		html, err := s.fetchWithHeadlessBrowser(pageURL)
		if err != nil {
			return nil, err
		}
		return goquery.NewDocumentFromReader(strings.NewReader(html))
	}

	req, err := http.NewRequest("GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	s.applyBrowserHeaders(req)

	resp, err := s.doRequestWithRetry(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	return goquery.NewDocumentFromReader(reader)
}

// ScrapeProducts scrapes a grocery listing page and returns raw
// retailer rows. Cards missing a price keep the sentinel "N/A"; the
// normalizer decides what to drop.
func (s *Scraper) ScrapeProducts(listURL string) ([]normalize.RetailerRow, error) {
	log.Printf("[Scraper] Starting scrape of listing page: %s", listURL)

	doc, err := s.fetchDocument(listURL)
	if err != nil {
		log.Printf("[Scraper] Error fetching %s: %v", listURL, err)
		return nil, err
	}

	rows := parseProducts(doc, listURL)
	log.Printf("[Scraper] Found %d product cards on %s", len(rows), listURL)
	return rows, nil
}

// parseProducts extracts product cards from a parsed listing page.
// Split out from ScrapeProducts so the selector logic is testable
// without a network.
func parseProducts(doc *goquery.Document, pageURL string) []normalize.RetailerRow {
	base, _ := url.Parse(pageURL)
	var rows []normalize.RetailerRow
	seen := make(map[string]bool)

	doc.Find("article.c-prd").Each(func(_ int, card *goquery.Selection) {
		name := strings.TrimSpace(card.Find("h3.name").First().Text())
		price := strings.TrimSpace(card.Find("div.prc").First().Text())
		if price == "" {
			price = "N/A"
		}

		productURL := ""
		if href, ok := card.Find("a").First().Attr("href"); ok {
			productURL = resolveURL(base, href)
		}

		// Skip repeated cards for the same product URL on one page
		if productURL != "" && seen[productURL] {
			return
		}
		if productURL != "" {
			seen[productURL] = true
		}

		brand := strings.TrimSpace(card.Find("div.brand").First().Text())

		rows = append(rows, normalize.RetailerRow{
			ProductName: name,
			Price:       price,
			ProductURL:  productURL,
			Brand:       brand,
		})
	})

	return rows
}

// resolveURL makes card hrefs absolute against the listing page URL.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String()
}
