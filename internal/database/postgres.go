package database

import (
	"database/sql"
	"fmt"
	"time"

	"food-price-tracker/internal/models"

	_ "github.com/lib/pq"
)

// DB is the alternative raw-SQL Price Store (PostgreSQL).
type DB struct {
	conn *sql.DB
}

func NewDB(host, port, user, password, dbname string) (*DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		return nil, err
	}

	return &DB{conn: conn}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// InitSchema creates the food_prices table if it doesn't exist.
func (db *DB) InitSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS food_prices (
		id SERIAL PRIMARY KEY,
		product_name VARCHAR(255) NOT NULL,
		price NUMERIC(12, 2) NOT NULL,
		currency VARCHAR(10),
		market VARCHAR(100),
		country VARCHAR(100),
		brand VARCHAR(255),
		product_url VARCHAR(500),
		source VARCHAR(50) NOT NULL,
		shape VARCHAR(20) NOT NULL,
		scrape_date TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_food_prices_source_url ON food_prices(source, product_url);
	CREATE INDEX IF NOT EXISTS idx_food_prices_source_name_market ON food_prices(source, product_name, market);
	CREATE INDEX IF NOT EXISTS idx_food_prices_scrape_date ON food_prices(scrape_date DESC);
	`
	_, err := db.conn.Exec(query)
	return err
}

// advisoryLockKey is the string hashed into the per-entity advisory
// lock. Must be deterministic and distinct per natural key so
// overlapping loads serialize exactly when they target the same
// entity.
func advisoryLockKey(key models.NaturalKey) string {
	return key.String()
}

// InsertPriceDedup runs the windowed existence check and the insert in
// one transaction. A row-level SELECT lock is useless for the first
// observation of a key (no row exists to lock, and Postgres takes no
// gap locks), so the transaction first takes an advisory lock on the
// natural key; overlapping loads of the same entity then serialize and
// the loser sees the winner's row as a duplicate.
func (db *DB) InsertPriceDedup(rec *models.PriceRecord, cutoff time.Time) (bool, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	key := rec.NaturalKey()
	if _, err := tx.Exec(`SELECT pg_advisory_xact_lock(hashtext($1))`, advisoryLockKey(key)); err != nil {
		return false, err
	}

	var existingID int64
	if key.ProductURL != "" {
		err = tx.QueryRow(`
			SELECT id FROM food_prices
			WHERE source = $1 AND product_url = $2 AND scrape_date >= $3
			LIMIT 1`,
			key.Source, key.ProductURL, cutoff).Scan(&existingID)
	} else {
		err = tx.QueryRow(`
			SELECT id FROM food_prices
			WHERE source = $1 AND product_name = $2 AND market = $3 AND scrape_date >= $4
			LIMIT 1`,
			key.Source, key.ProductName, key.Market, cutoff).Scan(&existingID)
	}

	if err == nil {
		// Recent observation exists: duplicate, skip.
		return false, tx.Commit()
	}
	if err != sql.ErrNoRows {
		return false, err
	}

	_, err = tx.Exec(`
		INSERT INTO food_prices
			(product_name, price, currency, market, country, brand, product_url, source, shape, scrape_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ProductName, rec.Price, rec.Currency, rec.Market, rec.Country,
		rec.Brand, rec.ProductURL, rec.Source, rec.Shape, rec.ObservedAt)
	if err != nil {
		return false, err
	}

	return true, tx.Commit()
}

// GetAllPrices retrieves stored records, newest observation first.
func (db *DB) GetAllPrices(limit int) ([]models.PriceRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := db.conn.Query(`
		SELECT id, product_name, price, currency, market, country, brand, product_url,
		       source, shape, scrape_date, created_at
		FROM food_prices
		ORDER BY scrape_date DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.PriceRecord
	for rows.Next() {
		var rec models.PriceRecord
		err := rows.Scan(
			&rec.ID, &rec.ProductName, &rec.Price, &rec.Currency, &rec.Market, &rec.Country,
			&rec.Brand, &rec.ProductURL, &rec.Source, &rec.Shape, &rec.ObservedAt, &rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RecentPrices returns prices for an entity in [since, before), oldest
// first.
func (db *DB) RecentPrices(key models.NaturalKey, since, before time.Time) ([]float64, error) {
	var rows *sql.Rows
	var err error
	if key.ProductURL != "" {
		rows, err = db.conn.Query(`
			SELECT price FROM food_prices
			WHERE source = $1 AND product_url = $2 AND scrape_date >= $3 AND scrape_date < $4
			ORDER BY scrape_date ASC`,
			key.Source, key.ProductURL, since, before)
	} else {
		rows, err = db.conn.Query(`
			SELECT price FROM food_prices
			WHERE source = $1 AND product_name = $2 AND market = $3 AND scrape_date >= $4 AND scrape_date < $5
			ORDER BY scrape_date ASC`,
			key.Source, key.ProductName, key.Market, since, before)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prices []float64
	for rows.Next() {
		var p float64
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}
