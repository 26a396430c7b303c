package database

import (
	"fmt"
	"time"

	"food-price-tracker/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormDB is the primary Price Store (MySQL via GORM).
type GormDB struct {
	db *gorm.DB
}

func NewGormDB(host, port, user, password, dbname string) (*GormDB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, dbname)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	})
	if err != nil {
		return nil, err
	}

	// Test connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	return &GormDB{db: db}, nil
}

// NewGormDBFromDB wraps an existing gorm.DB instance.
func NewGormDBFromDB(db *gorm.DB) *GormDB {
	return &GormDB{db: db}
}

// DB returns the underlying gorm.DB instance.
func (gdb *GormDB) DB() *gorm.DB {
	return gdb.db
}

func (gdb *GormDB) Close() error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema creates the food_prices table using GORM AutoMigrate.
func (gdb *GormDB) InitSchema() error {
	return gdb.db.AutoMigrate(&models.PriceRecord{})
}

// naturalKeyScope narrows a query to the rows sharing rec's natural
// key: (source, product_url) for retailer records, (source,
// product_name, market) for bulk-dataset records.
func naturalKeyScope(q *gorm.DB, key models.NaturalKey) *gorm.DB {
	if key.ProductURL != "" {
		return q.Where("source = ? AND product_url = ?", key.Source, key.ProductURL)
	}
	return q.Where("source = ? AND product_name = ? AND market = ?",
		key.Source, key.ProductName, key.Market)
}

// InsertPriceDedup performs the windowed dedup check and the insert in
// a single transaction. The existence check takes a FOR UPDATE lock on
// the natural-key rows, so concurrent loaders serialize per key and
// the check-then-insert race cannot double-insert.
func (gdb *GormDB) InsertPriceDedup(rec *models.PriceRecord, cutoff time.Time) (bool, error) {
	inserted := false
	err := gdb.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		q := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Model(&models.PriceRecord{})
		q = naturalKeyScope(q, rec.NaturalKey()).Where("scrape_date >= ?", cutoff)
		if err := q.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil // duplicate within window, skip
		}
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		inserted = true
		return nil
	})
	return inserted, err
}

// HasRecentObservation reports whether a record with the given natural
// key exists with an observation date at or after since.
func (gdb *GormDB) HasRecentObservation(key models.NaturalKey, since time.Time) (bool, error) {
	var count int64
	q := naturalKeyScope(gdb.db.Model(&models.PriceRecord{}), key)
	err := q.Where("scrape_date >= ?", since).Count(&count).Error
	return count > 0, err
}

// PriceFilters narrows ListPrices.
type PriceFilters struct {
	Source  string
	Market  string
	Country string
	Product string
	Limit   int
}

// ListPrices retrieves stored records, newest observation first.
func (gdb *GormDB) ListPrices(filters PriceFilters) ([]models.PriceRecord, error) {
	q := gdb.db.Model(&models.PriceRecord{})
	if filters.Source != "" {
		q = q.Where("source = ?", filters.Source)
	}
	if filters.Market != "" {
		q = q.Where("market = ?", filters.Market)
	}
	if filters.Country != "" {
		q = q.Where("country = ?", filters.Country)
	}
	if filters.Product != "" {
		q = q.Where("product_name LIKE ?", "%"+filters.Product+"%")
	}
	limit := filters.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var records []models.PriceRecord
	err := q.Order("scrape_date DESC").Limit(limit).Find(&records).Error
	return records, err
}

// GetPriceByID retrieves one record by surrogate id.
func (gdb *GormDB) GetPriceByID(id uint) (*models.PriceRecord, error) {
	var rec models.PriceRecord
	if err := gdb.db.First(&rec, id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// CountPrices returns total rows and rows per source.
func (gdb *GormDB) CountPrices() (int64, map[string]int64, error) {
	var total int64
	if err := gdb.db.Model(&models.PriceRecord{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	type sourceCount struct {
		Source string
		N      int64
	}
	var rows []sourceCount
	err := gdb.db.Model(&models.PriceRecord{}).
		Select("source, COUNT(*) AS n").
		Group("source").
		Scan(&rows).Error
	if err != nil {
		return 0, nil, err
	}

	bySource := make(map[string]int64, len(rows))
	for _, row := range rows {
		bySource[row.Source] = row.N
	}
	return total, bySource, nil
}

// DistinctEntities lists the natural keys currently present in the
// store, for alert sweeps.
func (gdb *GormDB) DistinctEntities() ([]models.NaturalKey, error) {
	type entity struct {
		Source      string
		ProductURL  *string
		ProductName string
		Market      string
		Shape       models.SourceShape
	}
	var rows []entity
	err := gdb.db.Model(&models.PriceRecord{}).
		Select("source, product_url, product_name, market, shape").
		Group("source, product_url, product_name, market, shape").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	keys := make([]models.NaturalKey, 0, len(rows))
	for _, row := range rows {
		if row.Shape == models.ShapeRetailer && row.ProductURL != nil && *row.ProductURL != "" {
			keys = append(keys, models.NaturalKey{Source: row.Source, ProductURL: *row.ProductURL})
		} else {
			keys = append(keys, models.NaturalKey{Source: row.Source, ProductName: row.ProductName, Market: row.Market})
		}
	}
	return keys, nil
}

// LatestPrice returns the newest observation for an entity.
func (gdb *GormDB) LatestPrice(key models.NaturalKey) (*models.PriceRecord, error) {
	var rec models.PriceRecord
	q := naturalKeyScope(gdb.db.Model(&models.PriceRecord{}), key)
	if err := q.Order("scrape_date DESC").First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// RecentPrices returns the prices observed for an entity in
// [since, before), oldest first. Used as the spike detector's
// historical window.
func (gdb *GormDB) RecentPrices(key models.NaturalKey, since, before time.Time) ([]float64, error) {
	var prices []float64
	q := naturalKeyScope(gdb.db.Model(&models.PriceRecord{}), key)
	err := q.Where("scrape_date >= ? AND scrape_date < ?", since, before).
		Order("scrape_date ASC").
		Pluck("price", &prices).Error
	return prices, err
}

// PriceBucket is one bar of the price distribution histogram.
type PriceBucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// PriceDistribution buckets stored prices for the admin dashboard.
func (gdb *GormDB) PriceDistribution() ([]PriceBucket, error) {
	bounds := []struct {
		label    string
		min, max float64
	}{
		{"0-500", 0, 500},
		{"500-1000", 500, 1000},
		{"1000-2500", 1000, 2500},
		{"2500-5000", 2500, 5000},
		{"5000+", 5000, -1},
	}

	buckets := make([]PriceBucket, 0, len(bounds))
	for _, b := range bounds {
		var count int64
		q := gdb.db.Model(&models.PriceRecord{}).Where("price >= ?", b.min)
		if b.max > 0 {
			q = q.Where("price < ?", b.max)
		}
		if err := q.Count(&count).Error; err != nil {
			return nil, err
		}
		buckets = append(buckets, PriceBucket{Label: b.label, Count: count})
	}
	return buckets, nil
}
