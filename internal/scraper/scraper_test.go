package scraper

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const listingHTML = `
<html><body>
<article class="c-prd">
  <a href="/rice-5kg-123.html"><h3 class="name">Rice 5kg</h3></a>
  <div class="prc">₦ 1,200</div>
  <div class="brand">Mama Gold</div>
</article>
<article class="c-prd">
  <a href="/beans-1kg-456.html"><h3 class="name">Beans 1kg</h3></a>
  <div class="brand">Oloyin</div>
</article>
<article class="c-prd">
  <a href="/rice-5kg-123.html"><h3 class="name">Rice 5kg</h3></a>
  <div class="prc">₦ 1,200</div>
</article>
<article class="c-prd">
  <a href="https://www.jumia.com.ng/garri-2kg-789.html"><h3 class="name">Garri 2kg</h3></a>
  <div class="prc">₦ 850</div>
</article>
</body></html>`

func parseFixture(t *testing.T, html, pageURL string) []string {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	rows := parseProducts(doc, pageURL)
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.ProductName
	}
	return names
}

func TestParseProducts(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listingHTML))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}

	rows := parseProducts(doc, "https://www.jumia.com.ng/groceries/")
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows (duplicate card collapsed), got %d", len(rows))
	}

	rice := rows[0]
	if rice.ProductName != "Rice 5kg" {
		t.Errorf("name: got %q", rice.ProductName)
	}
	if rice.Price != "₦ 1,200" {
		t.Errorf("price must stay raw for the normalizer, got %q", rice.Price)
	}
	if rice.ProductURL != "https://www.jumia.com.ng/rice-5kg-123.html" {
		t.Errorf("relative href not resolved: %q", rice.ProductURL)
	}
	if rice.Brand != "Mama Gold" {
		t.Errorf("brand: got %q", rice.Brand)
	}

	if rows[1].Price != "N/A" {
		t.Errorf("missing price should read N/A, got %q", rows[1].Price)
	}

	if rows[2].ProductURL != "https://www.jumia.com.ng/garri-2kg-789.html" {
		t.Errorf("absolute href mangled: %q", rows[2].ProductURL)
	}
}

func TestParseProductsEmptyPage(t *testing.T) {
	names := parseFixture(t, "<html><body><p>no products</p></body></html>", "https://www.jumia.com.ng/groceries/")
	if len(names) != 0 {
		t.Fatalf("expected no rows, got %v", names)
	}
}

func TestResolveURL(t *testing.T) {
	base, _ := url.Parse("https://www.jumia.com.ng/groceries/")

	if got := resolveURL(base, "/rice-5kg-123.html"); got != "https://www.jumia.com.ng/rice-5kg-123.html" {
		t.Errorf("relative: got %q", got)
	}
	if got := resolveURL(base, "https://other.example.com/x.html"); got != "https://other.example.com/x.html" {
		t.Errorf("absolute: got %q", got)
	}
	if got := resolveURL(base, "/p.html#reviews"); got != "https://www.jumia.com.ng/p.html" {
		t.Errorf("fragment should be stripped: got %q", got)
	}
}
