package normalization

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// BrandResolver интерфейс для поиска бренда в тексте.
// Возвращает каноническое имя бренда и уверенность в диапазоне [0,1];
// отсутствие совпадения кодируется пустым именем и нулевой уверенностью.
type BrandResolver interface {
	Resolve(ctx context.Context, text string) (brand string, confidence float64)
}

// ModelRefiner уточняет название модели через внешний сервис по паре
// (бренд, текущая модель). Ошибка или пустой ответ означают "уточнения
// нет" — нормализация продолжается с извлечённым названием.
type ModelRefiner interface {
	RefineModel(ctx context.Context, brand, model string) (string, error)
}

// Normalizer пайплайн нормализации строк прайса: извлекает структурированные
// атрибуты из raw_name, находит бренд через резолвер и строит
// детерминированные ключи group_key/variant_key
type Normalizer struct {
	resolver BrandResolver
	refiner  ModelRefiner
	logger   *slog.Logger
}

// NormalizerOption настройка нормализатора
type NormalizerOption func(*Normalizer)

// WithModelRefiner подключает уточнение названия модели через внешний
// сервис для строк с уверенно найденным брендом
func WithModelRefiner(refiner ModelRefiner) NormalizerOption {
	return func(n *Normalizer) { n.refiner = refiner }
}

// NewNormalizer создает новый нормализатор. Резолвер бренда опционален:
// без него строки нормализуются с пустым брендом и уходят на проверку.
func NewNormalizer(resolver BrandResolver, opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		resolver: resolver,
		logger:   slog.Default().With("component", "price_normalizer"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize нормализует одну строку прайса. Вызов чистый по отношению к
// каталогу: одинаковый raw_name при одинаковом снапшоте брендов всегда даёт
// одинаковые ключи независимо от порядка извлечения и перезапусков.
func (n *Normalizer) Normalize(ctx context.Context, rawName string) *NormalizedProduct {
	if strings.TrimSpace(rawName) == "" {
		return &NormalizedProduct{
			NeedsReview: true,
			Notes:       NoteEmptyRow,
		}
	}

	result := &NormalizedProduct{}

	result.CategoryPath = ExtractCategoryPath(rawName)

	if n.resolver != nil {
		result.Brand, result.BrandConfidence = n.resolver.Resolve(ctx, rawName)
	}

	result.Attrs.Format = ExtractFormat(rawName)
	result.Attrs.Gender = ExtractGender(rawName)
	result.Attrs.Volume, result.Attrs.Volumes = ExtractVolumes(rawName)
	result.Attrs.Color = ExtractColor(rawName)
	result.Attrs.Size = ExtractSize(rawName)
	result.Attrs.Pack = ExtractPack(rawName)
	result.Attrs.DensityRaw = ExtractDensity(rawName)
	result.Attrs.Features = ExtractFeatures(rawName)
	result.Attrs.ProductType, result.Attrs.ProductSubtype = ClassifyProductType(rawName)

	result.ModelName = ExtractModelName(rawName, result.Brand, result.CategoryPath)
	n.refineModel(ctx, result)

	result.GroupKey = GroupKey(result.Brand, result.ModelName, result.Series)
	result.VariantKey = VariantKey(result.GroupKey, result.Attrs)
	result.SearchText = buildSearchText(rawName, result)

	classifyReview(rawName, result)

	if result.NeedsReview {
		n.logger.Debug("normalization needs review",
			"raw_name", rawName,
			"brand", result.Brand,
			"confidence", result.BrandConfidence,
			"notes", result.Notes)
	}

	return result
}

// refineModel уточняет название модели через внешний сервис, когда бренд
// найден уверенно. Уточнение принимается, только если оно длиннее
// извлечённого названия; выполняется до построения ключей, чтобы
// group_key строился по уточнённой модели.
func (n *Normalizer) refineModel(ctx context.Context, result *NormalizedProduct) {
	if n.refiner == nil || result.Brand == "" || result.BrandConfidence < minBrandConfidence {
		return
	}

	improved, err := n.refiner.RefineModel(ctx, result.Brand, result.ModelName)
	if err != nil {
		n.logger.Debug("model refinement failed",
			"brand", result.Brand, "model", result.ModelName, "error", err)
		return
	}
	if utf8.RuneCountInString(improved) > utf8.RuneCountInString(result.ModelName) {
		result.ModelName = improved
	}
}

// buildSearchText собирает текст для полнотекстового поиска из исходной
// строки, бренда, модели и извлечённых атрибутов
func buildSearchText(rawName string, result *NormalizedProduct) string {
	parts := []string{rawName}

	if result.Brand != "" {
		parts = append(parts, result.Brand)
	}
	if result.ModelName != "" {
		parts = append(parts, result.ModelName)
	}
	if result.Series != "" {
		parts = append(parts, result.Series)
	}
	if result.Attrs.Format != "" {
		parts = append(parts, string(result.Attrs.Format))
	}
	if result.Attrs.Volume != nil {
		parts = append(parts, fmt.Sprintf("%d мл", result.Attrs.Volume.Value))
	}
	if result.Attrs.Volumes != nil {
		var volumes []string
		for _, v := range result.Attrs.Volumes.Parts {
			volumes = append(volumes, fmt.Sprintf("%d мл", v))
		}
		parts = append(parts, strings.Join(volumes, "+"))
	}
	if result.Attrs.Color != "" {
		parts = append(parts, result.Attrs.Color)
	}
	parts = append(parts, result.Attrs.Features...)

	return strings.Join(parts, " ")
}
