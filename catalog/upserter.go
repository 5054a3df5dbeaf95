package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"pricelist/database"
	"pricelist/normalization"
)

// ErrUnnormalizable строка не дала ключа группы (нет ни бренда, ни модели);
// для такой строки карточку каталога построить нельзя
var ErrUnnormalizable = errors.New("normalized result has empty group key")

// Store контракт хранилища каталога, от которого зависит Upserter.
// Create-методы обязаны возвращать ошибку нарушения уникальности как есть,
// чтобы её можно было распознать через database.IsUniqueViolation.
type Store interface {
	GetItemByGroupKey(ctx context.Context, groupKey string) (*database.CatalogItem, error)
	CreateItem(ctx context.Context, item *database.CatalogItem) error
	UpdateItem(ctx context.Context, item *database.CatalogItem) error
	GetVariantByListingID(ctx context.Context, listingID int64) (*database.CatalogVariant, error)
	GetVariantByKey(ctx context.Context, variantKey string) (*database.CatalogVariant, error)
	CreateVariant(ctx context.Context, v *database.CatalogVariant) error
	UpdateVariant(ctx context.Context, v *database.CatalogVariant) error
}

// Upserter сливает результат нормализации в карточки и варианты каталога.
// Ручные правки карточек сохраняются: непустые поля существующей карточки
// не перезаписываются, автоматически обновляются только наличие и updated_at.
type Upserter struct {
	store  Store
	logger *slog.Logger
}

// NewUpserter создает новый Upserter поверх хранилища каталога
func NewUpserter(store Store) *Upserter {
	return &Upserter{
		store:  store,
		logger: slog.Default().With("component", "catalog_upserter"),
	}
}

// Upsert создаёт или обновляет карточку и вариант каталога для позиции
// поставщика. Гонка создания (нарушение уникальности group_key или
// listing_id) означает "другой проход успел раньше" и деградирует до
// повторного чтения с обновлением, а не до ошибки.
func (u *Upserter) Upsert(ctx context.Context, listing *database.Listing, normalized *normalization.NormalizedProduct) (*database.CatalogVariant, error) {
	if normalized == nil || normalized.GroupKey == "" {
		return nil, ErrUnnormalizable
	}
	if listing == nil || listing.ID == 0 {
		return nil, fmt.Errorf("listing is not persisted")
	}

	item, err := u.ensureItem(ctx, listing, normalized)
	if err != nil {
		return nil, err
	}

	variant, err := u.ensureVariant(ctx, listing, normalized, item)
	if err != nil {
		return nil, err
	}
	return variant, nil
}

// ensureItem находит или создаёт карточку по group_key
func (u *Upserter) ensureItem(ctx context.Context, listing *database.Listing, normalized *normalization.NormalizedProduct) (*database.CatalogItem, error) {
	item, err := u.store.GetItemByGroupKey(ctx, normalized.GroupKey)
	if err == nil {
		// Существующая карточка: заполняем только пустые поля,
		// наличие и updated_at обновляем всегда
		if normalized.Brand != "" && item.Brand == "" {
			item.Brand = normalized.Brand
		}
		if normalized.ModelName != "" && item.Name == "" {
			item.Name = normalized.ModelName
		}
		if item.DisplayName == "" {
			item.DisplayName = displayName(normalized)
		}
		item.InStock = item.InStock || listing.IsInStock
		if err := u.store.UpdateItem(ctx, item); err != nil {
			return nil, fmt.Errorf("failed to update catalog item: %w", err)
		}
		return item, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up catalog item: %w", err)
	}

	item = &database.CatalogItem{
		GroupKey:    normalized.GroupKey,
		Brand:       normalized.Brand,
		Name:        normalized.ModelName,
		DisplayName: displayName(normalized),
		Visible:     true,
		InStock:     listing.IsInStock,
		Tags:        seriesTags(normalized.Series),
	}

	if err := u.store.CreateItem(ctx, item); err != nil {
		if database.IsUniqueViolation(err) {
			// Карточку успел создать параллельный проход
			existing, refetchErr := u.store.GetItemByGroupKey(ctx, normalized.GroupKey)
			if refetchErr != nil {
				return nil, fmt.Errorf("failed to refetch catalog item after conflict: %w", refetchErr)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create catalog item: %w", err)
	}
	return item, nil
}

// ensureVariant находит или создаёт вариант. Поиск по listing_id
// авторитетен (1:1 с позицией поставщика); variant_key вторичен.
func (u *Upserter) ensureVariant(ctx context.Context, listing *database.Listing, normalized *normalization.NormalizedProduct, item *database.CatalogItem) (*database.CatalogVariant, error) {
	variant, err := u.store.GetVariantByListingID(ctx, listing.ID)
	if errors.Is(err, database.ErrNotFound) && normalized.VariantKey != "" {
		variant, err = u.store.GetVariantByKey(ctx, normalized.VariantKey)
	}
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up catalog variant: %w", err)
	}

	if variant == nil {
		variant = &database.CatalogVariant{
			CatalogItemID: item.ID,
			ListingID:     listing.ID,
		}
		applyAttributes(variant, normalized, listing)

		if err := u.store.CreateVariant(ctx, variant); err != nil {
			if !database.IsUniqueViolation(err) {
				return nil, fmt.Errorf("failed to create catalog variant: %w", err)
			}
			// Вариант для этой позиции уже существует — перечитываем
			existing, refetchErr := u.store.GetVariantByListingID(ctx, listing.ID)
			if refetchErr != nil {
				return nil, fmt.Errorf("failed to refetch variant after conflict: %w", refetchErr)
			}
			variant = existing
		} else {
			return variant, nil
		}
	}

	// Обновляем существующий вариант: атрибуты, наличие и привязки,
	// если они разъехались после повторной нормализации
	variant.CatalogItemID = item.ID
	variant.ListingID = listing.ID
	applyAttributes(variant, normalized, listing)

	if err := u.store.UpdateVariant(ctx, variant); err != nil {
		return nil, fmt.Errorf("failed to update catalog variant: %w", err)
	}
	return variant, nil
}

// applyAttributes переносит извлечённые атрибуты в поля варианта
func applyAttributes(v *database.CatalogVariant, normalized *normalization.NormalizedProduct, listing *database.Listing) {
	attrs := normalized.Attrs

	v.VariantKey = normalized.VariantKey
	v.Format = string(attrs.Format)
	if v.Format == "" {
		v.Format = string(normalization.FormatFull)
	}
	v.IsTester = attrs.Format == normalization.FormatTester
	v.Gender = string(attrs.Gender)
	v.InStock = listing.IsInStock

	if attrs.Volume != nil {
		v.VolumeValue = attrs.Volume.Value
		v.VolumeUnit = attrs.Volume.Unit
	}
	if attrs.Volumes != nil {
		v.VolumesML = marshalJSON(attrs.Volumes.Parts)
		v.TotalML = attrs.Volumes.TotalML
	}
	v.Color = attrs.Color
	if attrs.Size != nil {
		v.SizeCM = marshalJSON(attrs.Size)
	}
	if attrs.Pack != nil {
		v.Pack = marshalJSON(attrs.Pack)
	}
	v.DensityRaw = attrs.DensityRaw
	if len(attrs.Features) > 0 {
		v.Features = marshalJSON(attrs.Features)
	}
}

// displayName строит отображаемое имя карточки "Бренд Модель"
func displayName(normalized *normalization.NormalizedProduct) string {
	name := strings.TrimSpace(normalized.Brand + " " + normalized.ModelName)
	if name == "" {
		return "Unknown"
	}
	return name
}

// seriesTags упаковывает серию в JSON-теги карточки
func seriesTags(series string) string {
	if series == "" {
		return ""
	}
	return marshalJSON(map[string]string{"series": series})
}

func marshalJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
