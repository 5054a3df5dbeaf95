package normalization

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	slugStripRe     = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	slugSeparatorRe = regexp.MustCompile(`[-\s]+`)
)

// Slugify приводит текст к слагу: нижний регистр, только буквы/цифры,
// повторяющиеся дефисы и пробелы схлопываются в один дефис
func Slugify(text string) string {
	if text == "" {
		return ""
	}
	s := strings.ToLower(text)
	s = slugStripRe.ReplaceAllString(s, "")
	s = slugSeparatorRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// GroupKey строит детерминированный ключ карточки каталога из
// (brand, model_name, series); пустые части опускаются. Пустой результат
// означает ненормализуемую строку (нет ни бренда, ни названия модели).
func GroupKey(brand, modelName, series string) string {
	var parts []string
	for _, p := range []string{brand, modelName, series} {
		if slug := Slugify(p); slug != "" {
			parts = append(parts, slug)
		}
	}
	return strings.Join(parts, "|")
}

// VariantKey строит ключ конкретной конфигурации товара. Части атрибутов
// добавляются в фиксированном порядке (формат, объём, цвет, размер,
// упаковка) независимо от порядка извлечения, чтобы одинаковые атрибуты
// всегда давали байт-в-байт одинаковый ключ.
func VariantKey(groupKey string, attrs Attributes) string {
	if groupKey == "" {
		return ""
	}

	parts := []string{groupKey}

	format := attrs.Format
	if format == "" {
		format = FormatFull
	}
	parts = append(parts, string(format))

	// В ключе участвуют только миллилитровые объёмы; вес ("250 г")
	// остаётся на атрибутах и в ключ не попадает
	switch {
	case attrs.Volume != nil && attrs.Volume.Unit == "мл":
		parts = append(parts, fmt.Sprintf("%dml", attrs.Volume.Value))
	case attrs.Volumes != nil:
		parts = append(parts, fmt.Sprintf("%dml", attrs.Volumes.TotalML))
	}

	if attrs.Color != "" {
		parts = append(parts, attrs.Color)
	}

	if attrs.Size != nil {
		parts = append(parts, fmt.Sprintf("%dx%dcm", attrs.Size.Width, attrs.Size.Height))
	}

	if attrs.Pack != nil {
		parts = append(parts, fmt.Sprintf("%d%s", attrs.Pack.Qty, attrs.Pack.Unit))
	}

	return strings.Join(parts, "|")
}
