package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound запись отсутствует в хранилище
var ErrNotFound = errors.New("record not found")

const listingColumns = `id, article, raw_name, product_name, brand, category,
	volume_value, volume_unit, gender, price, is_active, is_in_stock,
	is_in_current_pricelist, last_price_change_at, created_at, updated_at`

func scanListing(row interface{ Scan(...any) error }) (*Listing, error) {
	var l Listing
	var rawName, productName, brand, category, volumeUnit, gender, price sql.NullString
	var volumeValue sql.NullInt64
	var lastChange, createdAt, updatedAt sql.NullTime

	err := row.Scan(&l.ID, &l.Article, &rawName, &productName, &brand, &category,
		&volumeValue, &volumeUnit, &gender, &price, &l.IsActive, &l.IsInStock,
		&l.InCurrentPricelist, &lastChange, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	l.RawName = nullString(rawName)
	l.ProductName = nullString(productName)
	l.Brand = nullString(brand)
	l.Category = nullString(category)
	l.VolumeUnit = nullString(volumeUnit)
	l.Gender = nullString(gender)
	l.VolumeValue = int(volumeValue.Int64)
	if price.Valid && price.String != "" {
		if d, err := decimal.NewFromString(price.String); err == nil {
			l.Price = decimal.NullDecimal{Decimal: d, Valid: true}
		}
	}
	if lastChange.Valid {
		t := lastChange.Time
		l.LastPriceChangeAt = &t
	}
	l.CreatedAt = createdAt.Time
	l.UpdatedAt = updatedAt.Time
	return &l, nil
}

// GetListingByArticle находит позицию поставщика по артикулу
func (db *DB) GetListingByArticle(ctx context.Context, article string) (*Listing, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE article = ?`, article)
	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing %q: %w", article, err)
	}
	return l, nil
}

// CreateListing создаёт позицию поставщика
func (db *DB) CreateListing(ctx context.Context, l *Listing) error {
	now := time.Now().UTC()
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO listings (article, raw_name, product_name, brand, category,
			volume_value, volume_unit, gender, price, is_active, is_in_stock,
			is_in_current_pricelist, last_price_change_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.Article, toNullString(l.RawName), toNullString(l.ProductName),
		toNullString(l.Brand), toNullString(l.Category),
		nullInt(l.VolumeValue), toNullString(l.VolumeUnit), toNullString(l.Gender),
		priceString(l.Price), l.IsActive, l.IsInStock, l.InCurrentPricelist,
		l.LastPriceChangeAt, now, now)
	if err != nil {
		return fmt.Errorf("failed to create listing %q: %w", l.Article, err)
	}
	l.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get listing id: %w", err)
	}
	l.CreatedAt = now
	l.UpdatedAt = now
	return nil
}

// UpdateListing обновляет позицию поставщика целиком
func (db *DB) UpdateListing(ctx context.Context, l *Listing) error {
	now := time.Now().UTC()
	_, err := db.conn.ExecContext(ctx,
		`UPDATE listings SET raw_name = ?, product_name = ?, brand = ?, category = ?,
			volume_value = ?, volume_unit = ?, gender = ?, price = ?,
			is_active = ?, is_in_stock = ?, is_in_current_pricelist = ?,
			last_price_change_at = ?, updated_at = ?
		WHERE id = ?`,
		toNullString(l.RawName), toNullString(l.ProductName), toNullString(l.Brand),
		toNullString(l.Category), nullInt(l.VolumeValue), toNullString(l.VolumeUnit),
		toNullString(l.Gender), priceString(l.Price),
		l.IsActive, l.IsInStock, l.InCurrentPricelist, l.LastPriceChangeAt, now, l.ID)
	if err != nil {
		return fmt.Errorf("failed to update listing %d: %w", l.ID, err)
	}
	l.UpdatedAt = now
	return nil
}

// CurrentPrices возвращает предыдущий снимок прайса: артикул → последняя
// цена для всех позиций текущего прайс-листа. Если таких нет (первая
// загрузка после миграции), в снимок попадают все активные позиции.
func (db *DB) CurrentPrices(ctx context.Context) (map[string]decimal.Decimal, error) {
	snapshot, err := db.queryPrices(ctx,
		`SELECT article, price FROM listings WHERE is_in_current_pricelist = 1`)
	if err != nil {
		return nil, err
	}
	if len(snapshot) == 0 {
		return db.queryPrices(ctx,
			`SELECT article, price FROM listings WHERE is_active = 1`)
	}
	return snapshot, nil
}

func (db *DB) queryPrices(ctx context.Context, query string) (map[string]decimal.Decimal, error) {
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query price snapshot: %w", err)
	}
	defer rows.Close()

	snapshot := make(map[string]decimal.Decimal)
	for rows.Next() {
		var article string
		var price sql.NullString
		if err := rows.Scan(&article, &price); err != nil {
			return nil, fmt.Errorf("failed to scan price snapshot row: %w", err)
		}
		if !price.Valid || price.String == "" {
			continue
		}
		d, err := decimal.NewFromString(price.String)
		if err != nil {
			continue
		}
		snapshot[article] = d
	}
	return snapshot, rows.Err()
}

// MarkListingRemoved помечает позицию выбывшей из прайса:
// неактивна, нет в наличии, не участвует в текущем прайс-листе
func (db *DB) MarkListingRemoved(ctx context.Context, article string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE listings SET is_active = 0, is_in_stock = 0,
			is_in_current_pricelist = 0, updated_at = ?
		WHERE article = ?`, time.Now().UTC(), article)
	if err != nil {
		return fmt.Errorf("failed to mark listing %q removed: %w", article, err)
	}
	return nil
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}

func priceString(p decimal.NullDecimal) sql.NullString {
	if !p.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: p.Decimal.String(), Valid: true}
}
