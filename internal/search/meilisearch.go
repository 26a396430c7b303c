package search

import (
	"food-price-tracker/internal/models"

	"github.com/meilisearch/meilisearch-go"
)

// SearchClient indexes stored price records into Meilisearch so the
// dashboard can search products by name, brand or market.
type SearchClient struct {
	client *meilisearch.Client
	index  string
}

func NewSearchClient(host, apiKey string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})

	return &SearchClient{
		client: client,
		index:  "food_prices",
	}
}

// InitIndex creates the index and configures its attributes.
func (s *SearchClient) InitIndex() error {
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && err.Error() != "index already exists" {
		return err
	}

	_, err = s.client.Index(s.index).UpdateSearchableAttributes(&[]string{
		"product_name",
		"brand",
		"market",
		"country",
	})
	if err != nil {
		return err
	}

	_, err = s.client.Index(s.index).UpdateFilterableAttributes(&[]string{
		"source",
		"market",
		"country",
		"currency",
	})
	if err != nil {
		return err
	}

	_, err = s.client.Index(s.index).UpdateSortableAttributes(&[]string{
		"price",
		"scrape_date",
	})
	return err
}

// IndexPrices indexes a batch of stored records.
func (s *SearchClient) IndexPrices(records []models.PriceRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := s.client.Index(s.index).AddDocuments(records)
	return err
}

// Search finds indexed records matching a free-text query.
func (s *SearchClient) Search(query string, limit int64) ([]models.PriceRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	result, err := s.client.Index(s.index).Search(query, &meilisearch.SearchRequest{
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}

	records := make([]models.PriceRecord, 0, len(result.Hits))
	for _, hit := range result.Hits {
		doc, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		records = append(records, recordFromDocument(doc))
	}
	return records, nil
}

// recordFromDocument maps a Meilisearch hit back onto the model. Only
// the fields the dashboard displays are recovered.
func recordFromDocument(doc map[string]interface{}) models.PriceRecord {
	rec := models.PriceRecord{
		ProductName: stringField(doc, "product_name"),
		Currency:    stringField(doc, "currency"),
		Market:      stringField(doc, "market"),
		Country:     stringField(doc, "country"),
		Source:      stringField(doc, "source"),
	}
	if id, ok := doc["id"].(float64); ok {
		rec.ID = uint(id)
	}
	if price, ok := doc["price"].(float64); ok {
		rec.Price = price
	}
	if url := stringField(doc, "product_url"); url != "" {
		rec.ProductURL = &url
	}
	if brand := stringField(doc, "brand"); brand != "" {
		rec.Brand = &brand
	}
	return rec
}

func stringField(doc map[string]interface{}, key string) string {
	s, _ := doc[key].(string)
	return s
}
