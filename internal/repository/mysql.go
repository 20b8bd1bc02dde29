package repository

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// OpenMySQL opens the MySQL store and creates the schema.
func OpenMySQL(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if err := createMySQLTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Println("[MySQLStore] Initialized")
	return db, nil
}

func createMySQLTables(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id BIGINT PRIMARY KEY AUTO_INCREMENT,
			shop_domain VARCHAR(255) NOT NULL UNIQUE,
			credits_balance BIGINT NOT NULL DEFAULT 0,
			current_plan VARCHAR(32) NOT NULL DEFAULT 'FREE',
			subscription_id VARCHAR(255) NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bulk_jobs (
			id VARCHAR(36) PRIMARY KEY,
			shop_domain VARCHAR(255) NOT NULL,
			type VARCHAR(32) NOT NULL,
			status VARCHAR(32) NOT NULL,
			config JSON NOT NULL,
			total_items INT NOT NULL,
			processed_items INT NOT NULL DEFAULT 0,
			error_message TEXT,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			INDEX idx_jobs_status_created (status, created_at),
			INDEX idx_jobs_shop_created (shop_domain, created_at)
		)`,
		`CREATE TABLE IF NOT EXISTS credit_purchases (
			charge_id VARCHAR(255) PRIMARY KEY,
			shop_domain VARCHAR(255) NOT NULL,
			credits_added BIGINT NOT NULL,
			price_usd DOUBLE,
			type VARCHAR(32) NOT NULL,
			status VARCHAR(32) NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			INDEX idx_purchases_shop_status (shop_domain, status)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
