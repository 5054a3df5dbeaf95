package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const catalogItemColumns = `id, group_key, brand, name, display_name, visible,
	in_stock, tags, created_at, updated_at`

func scanCatalogItem(row interface{ Scan(...any) error }) (*CatalogItem, error) {
	var item CatalogItem
	var brand, name, displayName, tags sql.NullString
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(&item.ID, &item.GroupKey, &brand, &name, &displayName,
		&item.Visible, &item.InStock, &tags, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	item.Brand = nullString(brand)
	item.Name = nullString(name)
	item.DisplayName = nullString(displayName)
	item.Tags = nullString(tags)
	item.CreatedAt = createdAt.Time
	item.UpdatedAt = updatedAt.Time
	return &item, nil
}

// GetItemByGroupKey находит карточку каталога по ключу группы
func (db *DB) GetItemByGroupKey(ctx context.Context, groupKey string) (*CatalogItem, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+catalogItemColumns+` FROM catalog_items WHERE group_key = ?`, groupKey)
	item, err := scanCatalogItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog item %q: %w", groupKey, err)
	}
	return item, nil
}

// CreateItem создаёт карточку каталога. Нарушение уникальности group_key
// возвращается как есть: вызывающий распознает его через IsUniqueViolation
// и перечитывает карточку.
func (db *DB) CreateItem(ctx context.Context, item *CatalogItem) error {
	now := time.Now().UTC()
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO catalog_items (group_key, brand, name, display_name,
			visible, in_stock, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.GroupKey, toNullString(item.Brand), toNullString(item.Name),
		toNullString(item.DisplayName), item.Visible, item.InStock,
		toNullString(item.Tags), now, now)
	if err != nil {
		return err
	}
	item.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get catalog item id: %w", err)
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

// UpdateItem обновляет карточку каталога
func (db *DB) UpdateItem(ctx context.Context, item *CatalogItem) error {
	now := time.Now().UTC()
	_, err := db.conn.ExecContext(ctx,
		`UPDATE catalog_items SET brand = ?, name = ?, display_name = ?,
			visible = ?, in_stock = ?, tags = ?, updated_at = ?
		WHERE id = ?`,
		toNullString(item.Brand), toNullString(item.Name), toNullString(item.DisplayName),
		item.Visible, item.InStock, toNullString(item.Tags), now, item.ID)
	if err != nil {
		return fmt.Errorf("failed to update catalog item %d: %w", item.ID, err)
	}
	item.UpdatedAt = now
	return nil
}

const catalogVariantColumns = `id, catalog_item_id, listing_id, variant_key,
	format, gender, volume_value, volume_unit, volumes_ml, total_ml, color,
	size_cm, pack, density_raw, features, is_tester, in_stock, created_at, updated_at`

func scanCatalogVariant(row interface{ Scan(...any) error }) (*CatalogVariant, error) {
	var v CatalogVariant
	var gender, volumeUnit, volumesML, color, sizeCM, pack, densityRaw, features sql.NullString
	var volumeValue, totalML sql.NullInt64
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(&v.ID, &v.CatalogItemID, &v.ListingID, &v.VariantKey,
		&v.Format, &gender, &volumeValue, &volumeUnit, &volumesML, &totalML,
		&color, &sizeCM, &pack, &densityRaw, &features, &v.IsTester, &v.InStock,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	v.Gender = nullString(gender)
	v.VolumeUnit = nullString(volumeUnit)
	v.VolumesML = nullString(volumesML)
	v.Color = nullString(color)
	v.SizeCM = nullString(sizeCM)
	v.Pack = nullString(pack)
	v.DensityRaw = nullString(densityRaw)
	v.Features = nullString(features)
	v.VolumeValue = int(volumeValue.Int64)
	v.TotalML = int(totalML.Int64)
	v.CreatedAt = createdAt.Time
	v.UpdatedAt = updatedAt.Time
	return &v, nil
}

// GetVariantByListingID находит вариант по позиции поставщика.
// Это авторитетный путь поиска: listing_id уникален.
func (db *DB) GetVariantByListingID(ctx context.Context, listingID int64) (*CatalogVariant, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+catalogVariantColumns+` FROM catalog_variants WHERE listing_id = ?`, listingID)
	v, err := scanCatalogVariant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get variant for listing %d: %w", listingID, err)
	}
	return v, nil
}

// GetVariantByKey находит вариант по ключу конфигурации
func (db *DB) GetVariantByKey(ctx context.Context, variantKey string) (*CatalogVariant, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+catalogVariantColumns+` FROM catalog_variants WHERE variant_key = ? ORDER BY id LIMIT 1`, variantKey)
	v, err := scanCatalogVariant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get variant %q: %w", variantKey, err)
	}
	return v, nil
}

// CreateVariant создаёт вариант. Нарушение уникальности listing_id
// возвращается как есть для деградации в повторное чтение.
func (db *DB) CreateVariant(ctx context.Context, v *CatalogVariant) error {
	now := time.Now().UTC()
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO catalog_variants (catalog_item_id, listing_id, variant_key,
			format, gender, volume_value, volume_unit, volumes_ml, total_ml,
			color, size_cm, pack, density_raw, features, is_tester, in_stock,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.CatalogItemID, v.ListingID, v.VariantKey, v.Format,
		toNullString(v.Gender), nullInt(v.VolumeValue), toNullString(v.VolumeUnit),
		toNullString(v.VolumesML), nullInt(v.TotalML), toNullString(v.Color),
		toNullString(v.SizeCM), toNullString(v.Pack), toNullString(v.DensityRaw),
		toNullString(v.Features), v.IsTester, v.InStock, now, now)
	if err != nil {
		return err
	}
	v.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get variant id: %w", err)
	}
	v.CreatedAt = now
	v.UpdatedAt = now
	return nil
}

// UpdateVariant обновляет вариант целиком, включая возможное перепривязывание
// к другой карточке и новый variant_key после повторной нормализации
func (db *DB) UpdateVariant(ctx context.Context, v *CatalogVariant) error {
	now := time.Now().UTC()
	_, err := db.conn.ExecContext(ctx,
		`UPDATE catalog_variants SET catalog_item_id = ?, listing_id = ?,
			variant_key = ?, format = ?, gender = ?, volume_value = ?,
			volume_unit = ?, volumes_ml = ?, total_ml = ?, color = ?,
			size_cm = ?, pack = ?, density_raw = ?, features = ?,
			is_tester = ?, in_stock = ?, updated_at = ?
		WHERE id = ?`,
		v.CatalogItemID, v.ListingID, v.VariantKey, v.Format,
		toNullString(v.Gender), nullInt(v.VolumeValue), toNullString(v.VolumeUnit),
		toNullString(v.VolumesML), nullInt(v.TotalML), toNullString(v.Color),
		toNullString(v.SizeCM), toNullString(v.Pack), toNullString(v.DensityRaw),
		toNullString(v.Features), v.IsTester, v.InStock, now, v.ID)
	if err != nil {
		return fmt.Errorf("failed to update variant %d: %w", v.ID, err)
	}
	v.UpdatedAt = now
	return nil
}
