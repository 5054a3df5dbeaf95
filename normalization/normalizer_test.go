package normalization

import (
	"context"
	"strings"
	"testing"
)

// resolverMock детерминированный резолвер брендов для тестов
type resolverMock struct {
	brands map[string]float64 // бренд → уверенность
}

func (m *resolverMock) Resolve(_ context.Context, text string) (string, float64) {
	upper := strings.ToUpper(text)
	for brand, confidence := range m.brands {
		if strings.Contains(upper, strings.ToUpper(brand)) {
			return brand, confidence
		}
	}
	return "", 0.0
}

func newTestNormalizer(brands map[string]float64) *Normalizer {
	return NewNormalizer(&resolverMock{brands: brands})
}

// TestNormalize_PerfumeWithVolume полный цикл нормализации строки парфюма
func TestNormalize_PerfumeWithVolume(t *testing.T) {
	n := newTestNormalizer(map[string]float64{"Chanel": 1.0})

	result := n.Normalize(context.Background(), "Chanel Coco Mademoiselle Парфюмерная вода 50 мл")

	if result.Brand != "Chanel" {
		t.Errorf("бренд %q, ожидался Chanel", result.Brand)
	}
	if result.BrandConfidence != 1.0 {
		t.Errorf("уверенность %v, ожидалась 1.0", result.BrandConfidence)
	}
	if result.Attrs.Volume == nil || result.Attrs.Volume.Value != 50 {
		t.Errorf("объём %+v, ожидалось 50 мл", result.Attrs.Volume)
	}
	if result.Attrs.Format != FormatFull {
		t.Errorf("формат %q, ожидался full", result.Attrs.Format)
	}
	if result.GroupKey == "" || !strings.HasPrefix(result.GroupKey, "chanel|") {
		t.Errorf("ключ группы %q, ожидался префикс chanel|", result.GroupKey)
	}
	if !strings.HasSuffix(result.VariantKey, "|full|50ml") {
		t.Errorf("ключ варианта %q, ожидался суффикс |full|50ml", result.VariantKey)
	}
	if result.NeedsReview {
		t.Errorf("строка не должна требовать проверки: %s", result.Notes)
	}
	if result.Notes != NoteSuccess {
		t.Errorf("пометка %q, ожидалась %q", result.Notes, NoteSuccess)
	}
}

// TestNormalize_EmptyRow пустая строка уходит на проверку без ключей
func TestNormalize_EmptyRow(t *testing.T) {
	n := newTestNormalizer(nil)

	for _, raw := range []string{"", "   "} {
		result := n.Normalize(context.Background(), raw)
		if !result.NeedsReview {
			t.Errorf("пустая строка %q должна требовать проверки", raw)
		}
		if result.Notes != NoteEmptyRow {
			t.Errorf("пометка %q, ожидалась %q", result.Notes, NoteEmptyRow)
		}
		if result.GroupKey != "" || result.VariantKey != "" {
			t.Errorf("у пустой строки не должно быть ключей: %q %q", result.GroupKey, result.VariantKey)
		}
	}
}

// TestNormalize_UnknownBrand неизвестный бренд помечается на проверку
func TestNormalize_UnknownBrand(t *testing.T) {
	n := newTestNormalizer(nil)

	result := n.Normalize(context.Background(), "Noname Parfum Деревянный 50 мл")
	if !result.NeedsReview {
		t.Error("строка без бренда должна требовать проверки")
	}
	if !strings.Contains(result.Notes, NoteLowBrandConfidence) {
		t.Errorf("пометка %q, ожидалась %q", result.Notes, NoteLowBrandConfidence)
	}
	// Ключ группы строится из названия модели даже без бренда
	if result.GroupKey == "" {
		t.Error("ключ группы должен строиться из названия модели")
	}
}

// TestNormalize_LowConfidence уверенность ниже порога отправляет на проверку
func TestNormalize_LowConfidence(t *testing.T) {
	n := newTestNormalizer(map[string]float64{"Chanel": 0.8})

	result := n.Normalize(context.Background(), "Chanel Chance Парфюмерная вода 50 мл")
	if !result.NeedsReview {
		t.Error("низкая уверенность должна отправлять на проверку")
	}
	if !strings.Contains(result.Notes, NoteLowBrandConfidence) {
		t.Errorf("пометка %q, ожидалась %q", result.Notes, NoteLowBrandConfidence)
	}
}

// TestNormalize_ConflictingFormats конфликт тестер+отливант помечается
func TestNormalize_ConflictingFormats(t *testing.T) {
	n := newTestNormalizer(map[string]float64{"Tom Ford": 1.0})

	result := n.Normalize(context.Background(), "Отливант из тестера Tom Ford Tobacco Vanille 10 мл")
	if !result.NeedsReview {
		t.Error("конфликт форматов должен отправлять на проверку")
	}
	if !strings.Contains(result.Notes, NoteConflictingFormats) {
		t.Errorf("пометка %q, ожидалась %q", result.Notes, NoteConflictingFormats)
	}
}

// refinerMock записывает обращения за уточнением модели
type refinerMock struct {
	result string
	err    error
	calls  int
}

func (m *refinerMock) RefineModel(_ context.Context, _, _ string) (string, error) {
	m.calls++
	return m.result, m.err
}

// TestNormalize_ModelRefinement для уверенно найденного бренда название
// модели уточняется через внешний сервис и попадает в ключ группы
func TestNormalize_ModelRefinement(t *testing.T) {
	refiner := &refinerMock{result: "Coco Mademoiselle Eau de Parfum Intense"}
	n := NewNormalizer(
		&resolverMock{brands: map[string]float64{"Chanel": 1.0}},
		WithModelRefiner(refiner),
	)

	result := n.Normalize(context.Background(), "Chanel Coco 50 мл")

	if refiner.calls != 1 {
		t.Fatalf("обращений к уточнению %d, ожидалось 1", refiner.calls)
	}
	if result.ModelName != "Coco Mademoiselle Eau de Parfum Intense" {
		t.Errorf("модель %q, ожидалась уточнённая", result.ModelName)
	}
	if result.GroupKey != "chanel|coco-mademoiselle-eau-de-parfum-intense" {
		t.Errorf("ключ группы строится по уточнённой модели: %q", result.GroupKey)
	}
}

// TestNormalize_ModelRefinement_ShorterIgnored уточнение короче извлечённого
// названия отбрасывается
func TestNormalize_ModelRefinement_ShorterIgnored(t *testing.T) {
	refiner := &refinerMock{result: "X"}
	n := NewNormalizer(
		&resolverMock{brands: map[string]float64{"Chanel": 1.0}},
		WithModelRefiner(refiner),
	)

	result := n.Normalize(context.Background(), "Chanel Coco Mademoiselle 50 мл")
	if result.ModelName != "Coco Mademoiselle" {
		t.Errorf("короткое уточнение не должно заменять модель: %q", result.ModelName)
	}
}

// TestNormalize_ModelRefinement_SkippedOnLowConfidence без уверенного бренда
// внешний сервис не вызывается
func TestNormalize_ModelRefinement_SkippedOnLowConfidence(t *testing.T) {
	refiner := &refinerMock{result: "Coco Mademoiselle Eau de Parfum"}
	n := NewNormalizer(
		&resolverMock{brands: map[string]float64{"Chanel": 0.8}},
		WithModelRefiner(refiner),
	)

	n.Normalize(context.Background(), "Chanel Coco 50 мл")
	if refiner.calls != 0 {
		t.Errorf("обращений к уточнению %d, ожидалось 0", refiner.calls)
	}
}

// TestNormalize_ModelRefinement_ErrorIgnored ошибка внешнего сервиса
// не мешает нормализации
func TestNormalize_ModelRefinement_ErrorIgnored(t *testing.T) {
	refiner := &refinerMock{err: context.DeadlineExceeded}
	n := NewNormalizer(
		&resolverMock{brands: map[string]float64{"Chanel": 1.0}},
		WithModelRefiner(refiner),
	)

	result := n.Normalize(context.Background(), "Chanel Coco Mademoiselle 50 мл")
	if result.ModelName != "Coco Mademoiselle" {
		t.Errorf("при ошибке уточнения модель остаётся извлечённой: %q", result.ModelName)
	}
}

// TestNormalize_Deterministic одинаковый вход даёт одинаковые ключи
func TestNormalize_Deterministic(t *testing.T) {
	n := newTestNormalizer(map[string]float64{"Chanel": 1.0})
	raw := "Chanel Chance Eau Tendre Туалетная вода 100 мл"

	first := n.Normalize(context.Background(), raw)
	for i := 0; i < 5; i++ {
		next := n.Normalize(context.Background(), raw)
		if next.GroupKey != first.GroupKey || next.VariantKey != first.VariantKey {
			t.Fatalf("ключи недетерминированы: (%q, %q) != (%q, %q)",
				next.GroupKey, next.VariantKey, first.GroupKey, first.VariantKey)
		}
	}
}

// TestNormalize_SearchText поисковый текст содержит исходную строку и атрибуты
func TestNormalize_SearchText(t *testing.T) {
	n := newTestNormalizer(map[string]float64{"Chanel": 1.0})

	result := n.Normalize(context.Background(), "Chanel Coco Mademoiselle 50 мл")
	for _, part := range []string{"Chanel Coco Mademoiselle 50 мл", "50 мл", "full"} {
		if !strings.Contains(result.SearchText, part) {
			t.Errorf("поисковый текст %q не содержит %q", result.SearchText, part)
		}
	}
}

// TestNormalize_NoResolver без резолвера бренд пуст, строка уходит на проверку
func TestNormalize_NoResolver(t *testing.T) {
	n := NewNormalizer(nil)

	result := n.Normalize(context.Background(), "Chanel Chance Парфюмерная вода 50 мл")
	if result.Brand != "" {
		t.Errorf("без резолвера бренд должен быть пуст, получен %q", result.Brand)
	}
	if !result.NeedsReview {
		t.Error("строка без бренда должна требовать проверки")
	}
}
