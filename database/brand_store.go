package database

import (
	"context"
	"fmt"
	"strings"

	"pricelist/brands"
	"pricelist/normalization"
)

// ListBrands возвращает все бренды справочника в порядке создания
func (db *DB) ListBrands(ctx context.Context) ([]brands.Brand, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name_canonical, key FROM brands ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query brands: %w", err)
	}
	defer rows.Close()

	var result []brands.Brand
	for rows.Next() {
		var b brands.Brand
		if err := rows.Scan(&b.ID, &b.CanonicalName, &b.Key); err != nil {
			return nil, fmt.Errorf("failed to scan brand: %w", err)
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

// ListAliases возвращает все алиасы брендов в порядке создания
func (db *DB) ListAliases(ctx context.Context) ([]brands.Alias, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, brand_id, alias_text, alias_key FROM brand_aliases ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query brand aliases: %w", err)
	}
	defer rows.Close()

	var result []brands.Alias
	for rows.Next() {
		var a brands.Alias
		if err := rows.Scan(&a.ID, &a.BrandID, &a.Text, &a.Key); err != nil {
			return nil, fmt.Errorf("failed to scan brand alias: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// GetOrCreateBrand находит бренд по нормализованному ключу или создаёт его.
// Конкурентная вставка того же ключа не является ошибкой: нарушение
// уникальности деградирует до повторного чтения.
func (db *DB) GetOrCreateBrand(ctx context.Context, canonicalName string) (brands.Brand, error) {
	canonicalName = strings.TrimSpace(canonicalName)
	if canonicalName == "" {
		return brands.Brand{}, fmt.Errorf("empty brand name")
	}

	key := normalization.NormalizeKey(canonicalName)
	if key == "" {
		return brands.Brand{}, fmt.Errorf("brand name %q normalizes to empty key", canonicalName)
	}

	if b, err := db.getBrandByKey(ctx, key); err == nil {
		return b, nil
	}

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO brands (name_canonical, key) VALUES (?, ?)`, canonicalName, key)
	if err != nil {
		if IsUniqueViolation(err) {
			return db.getBrandByKey(ctx, key)
		}
		return brands.Brand{}, fmt.Errorf("failed to insert brand: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return brands.Brand{}, fmt.Errorf("failed to get brand id: %w", err)
	}
	return brands.Brand{ID: id, CanonicalName: canonicalName, Key: key}, nil
}

func (db *DB) getBrandByKey(ctx context.Context, key string) (brands.Brand, error) {
	var b brands.Brand
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name_canonical, key FROM brands WHERE key = ?`, key).
		Scan(&b.ID, &b.CanonicalName, &b.Key)
	if err != nil {
		return brands.Brand{}, fmt.Errorf("brand with key %q not found: %w", key, err)
	}
	return b, nil
}

// RegisterBrand регистрирует бренд, найденный внешним сервисом.
// Реализует brands.Registrar; уже известный бренд не дублируется.
func (db *DB) RegisterBrand(ctx context.Context, canonicalName string) error {
	_, err := db.GetOrCreateBrand(ctx, canonicalName)
	return err
}

// AddAlias добавляет алиас к бренду. Дубликат по ключу не является ошибкой.
func (db *DB) AddAlias(ctx context.Context, brandID int64, aliasText string) (brands.Alias, error) {
	aliasText = strings.TrimSpace(aliasText)
	key := normalization.NormalizeKey(aliasText)
	if key == "" {
		return brands.Alias{}, fmt.Errorf("alias %q normalizes to empty key", aliasText)
	}

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO brand_aliases (brand_id, alias_text, alias_key) VALUES (?, ?, ?)`,
		brandID, aliasText, key)
	if err != nil {
		if IsUniqueViolation(err) {
			var a brands.Alias
			scanErr := db.conn.QueryRowContext(ctx,
				`SELECT id, brand_id, alias_text, alias_key FROM brand_aliases WHERE alias_key = ?`, key).
				Scan(&a.ID, &a.BrandID, &a.Text, &a.Key)
			if scanErr != nil {
				return brands.Alias{}, fmt.Errorf("failed to refetch alias: %w", scanErr)
			}
			return a, nil
		}
		return brands.Alias{}, fmt.Errorf("failed to insert alias: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return brands.Alias{}, fmt.Errorf("failed to get alias id: %w", err)
	}
	return brands.Alias{ID: id, BrandID: brandID, Text: aliasText, Key: key}, nil
}
