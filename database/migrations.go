package database

import "fmt"

// Миграции выполняются идемпотентно при каждом открытии базы,
// по образцу CREATE TABLE IF NOT EXISTS
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS brands (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name_canonical TEXT NOT NULL UNIQUE,
		key TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS brand_aliases (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		brand_id INTEGER NOT NULL REFERENCES brands(id),
		alias_text TEXT NOT NULL UNIQUE,
		alias_key TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS listings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		article TEXT NOT NULL UNIQUE,
		raw_name TEXT,
		product_name TEXT,
		brand TEXT,
		category TEXT,
		volume_value INTEGER,
		volume_unit TEXT,
		gender TEXT,
		price TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		is_in_stock INTEGER NOT NULL DEFAULT 1,
		is_in_current_pricelist INTEGER NOT NULL DEFAULT 1,
		last_price_change_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS catalog_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		group_key TEXT NOT NULL UNIQUE,
		brand TEXT,
		name TEXT,
		display_name TEXT,
		visible INTEGER NOT NULL DEFAULT 1,
		in_stock INTEGER NOT NULL DEFAULT 0,
		tags TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS catalog_variants (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		catalog_item_id INTEGER NOT NULL REFERENCES catalog_items(id),
		listing_id INTEGER NOT NULL UNIQUE REFERENCES listings(id),
		variant_key TEXT NOT NULL,
		format TEXT NOT NULL DEFAULT 'full',
		gender TEXT,
		volume_value INTEGER,
		volume_unit TEXT,
		volumes_ml TEXT,
		total_ml INTEGER,
		color TEXT,
		size_cm TEXT,
		pack TEXT,
		density_raw TEXT,
		features TEXT,
		is_tester INTEGER NOT NULL DEFAULT 0,
		in_stock INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS ix_catalog_variants_variant_key ON catalog_variants(variant_key)`,

	`CREATE TABLE IF NOT EXISTS price_uploads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		filename TEXT,
		source_date DATE,
		status TEXT NOT NULL DEFAULT 'in_progress',
		total_rows INTEGER NOT NULL DEFAULT 0,
		added_count INTEGER NOT NULL DEFAULT 0,
		up_count INTEGER NOT NULL DEFAULT 0,
		down_count INTEGER NOT NULL DEFAULT 0,
		unchanged_count INTEGER NOT NULL DEFAULT 0,
		removed_count INTEGER NOT NULL DEFAULT 0,
		duplicate_count INTEGER NOT NULL DEFAULT 0,
		error_count INTEGER NOT NULL DEFAULT 0,
		apply_error_count INTEGER NOT NULL DEFAULT 0,
		uploaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		finished_at TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS price_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		listing_id INTEGER NOT NULL REFERENCES listings(id),
		price_upload_id INTEGER REFERENCES price_uploads(id),
		old_price TEXT,
		new_price TEXT,
		currency TEXT DEFAULT 'RUB',
		source_date DATE,
		source_filename TEXT,
		change_type TEXT,
		changed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS ix_price_history_listing ON price_history(listing_id)`,
	`CREATE INDEX IF NOT EXISTS ix_price_history_upload ON price_history(price_upload_id)`,

	`CREATE TABLE IF NOT EXISTS lookup_usage_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		endpoint TEXT NOT NULL,
		success INTEGER NOT NULL DEFAULT 1,
		error_message TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS ix_lookup_usage_created ON lookup_usage_log(created_at)`,
}

// runMigrations применяет все миграции схемы
func (db *DB) runMigrations() error {
	for i, stmt := range migrations {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
