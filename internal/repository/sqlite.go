package repository

import (
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// OpenSQLite opens the SQLite store and creates the schema.
// dbPath is the path to the database file (e.g. "./data/storecopy.db").
func OpenSQLite(dbPath string) (*sql.DB, error) {
	// WAL mode for concurrent reads while the single writer works.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createSQLiteTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteStore] Initialized with database: %s", dbPath)
	return db, nil
}

func createSQLiteTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		shop_domain TEXT NOT NULL UNIQUE,
		credits_balance INTEGER NOT NULL DEFAULT 0,
		current_plan TEXT NOT NULL DEFAULT 'FREE',
		subscription_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		CHECK (credits_balance >= 0)
	);
	CREATE TABLE IF NOT EXISTS bulk_jobs (
		id TEXT PRIMARY KEY,
		shop_domain TEXT NOT NULL,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		config TEXT NOT NULL,
		total_items INTEGER NOT NULL,
		processed_items INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_status_created ON bulk_jobs(status, created_at);
	CREATE INDEX IF NOT EXISTS idx_jobs_shop_created ON bulk_jobs(shop_domain, created_at);
	CREATE TABLE IF NOT EXISTS credit_purchases (
		charge_id TEXT PRIMARY KEY,
		shop_domain TEXT NOT NULL,
		credits_added INTEGER NOT NULL,
		price_usd REAL,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_purchases_shop_status ON credit_purchases(shop_domain, status);
	`
	_, err := db.Exec(query)
	return err
}
