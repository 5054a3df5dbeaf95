package brands

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func newTestSnapshot() *Snapshot {
	return NewSnapshot(
		[]Brand{
			{ID: 1, CanonicalName: "Chanel"},
			{ID: 2, CanonicalName: "Tom Ford"},
			{ID: 3, CanonicalName: "Dolce & Gabbana"},
		},
		[]Alias{
			{ID: 1, BrandID: 3, Text: "D&G"},
			{ID: 2, BrandID: 1, Text: "Шанель"},
		},
	)
}

// lookupMock мок внешнего сервиса поиска брендов
type lookupMock struct {
	mu      sync.Mutex
	answers map[string]string // запрос → бренд
	err     error
	calls   []string
}

func (m *lookupMock) FindBrand(_ context.Context, query string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, query)
	if m.err != nil {
		return "", m.err
	}
	return m.answers[query], nil
}

// registrarMock мок регистрации брендов
type registrarMock struct {
	mu         sync.Mutex
	registered []string
}

func (m *registrarMock) RegisterBrand(_ context.Context, canonicalName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered = append(m.registered, canonicalName)
	return nil
}

// TestResolver_Tiers проверяет ярусы каскада и их уверенности
func TestResolver_Tiers(t *testing.T) {
	r := NewResolver(newTestSnapshot())
	ctx := context.Background()

	tests := []struct {
		name       string
		input      string
		brand      string
		confidence float64
	}{
		{"точный ключ алиаса", "D&G", "Dolce & Gabbana", ConfidenceAliasKey},
		{"точный ключ алиаса, кириллица", "Шанель", "Chanel", ConfidenceAliasKey},
		{"точный ключ бренда", "Tom Ford", "Tom Ford", ConfidenceBrandKey},
		{"ключ бренда, другое написание", "tom_ford", "Tom Ford", ConfidenceBrandKey},
		{"алиас как подстрока", "Духи D&G The One 50 мл", "Dolce & Gabbana", ConfidenceAliasSubstr},
		{"бренд как подстрока", "Tom Ford Tobacco Vanille 100 мл", "Tom Ford", ConfidenceBrandSubstr},
		{"бренд в скобках", "Аромат древесный (Ford) 10 мл", "Tom Ford", ConfidenceBracket},
		{"сегмент пути категорий по ключу", "Автопарфюм > Tom_Ford > Chance", "Tom Ford", ConfidenceCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			brand, confidence := r.Resolve(ctx, tt.input)
			if brand != tt.brand {
				t.Errorf("бренд %q, ожидался %q", brand, tt.brand)
			}
			if confidence != tt.confidence {
				t.Errorf("уверенность %v, ожидалась %v", confidence, tt.confidence)
			}
		})
	}
}

// TestResolver_NoMatch отсутствие совпадения кодируется пустым именем
func TestResolver_NoMatch(t *testing.T) {
	r := NewResolver(newTestSnapshot())

	for _, input := range []string{"Полотенце махровое 30х50 см", "", "   "} {
		brand, confidence := r.Resolve(context.Background(), input)
		if brand != "" || confidence != 0.0 {
			t.Errorf("Resolve(%q) = (%q, %v), ожидалось пустое совпадение", input, brand, confidence)
		}
	}
}

// TestResolver_Lookup внешний поиск пробует первые 1-3 слова
func TestResolver_Lookup(t *testing.T) {
	lookup := &lookupMock{answers: map[string]string{"Kilian Good": "Kilian"}}
	r := NewResolver(newTestSnapshot(), WithLookup(lookup))

	brand, confidence := r.Resolve(context.Background(), "Kilian Good Girl Gone Bad 50 мл")
	if brand != "Kilian" {
		t.Errorf("бренд %q, ожидался Kilian", brand)
	}
	if confidence != ConfidenceLookup {
		t.Errorf("уверенность %v, ожидалась %v", confidence, ConfidenceLookup)
	}
	// Первое слово не дало ответа, второй запрос из двух слов — дал
	if len(lookup.calls) != 2 {
		t.Errorf("запросов к сервису %d, ожидалось 2: %v", len(lookup.calls), lookup.calls)
	}
}

// TestResolver_LookupErrorDegrades ошибка внешнего сервиса деградирует
// до "не найдено"
func TestResolver_LookupErrorDegrades(t *testing.T) {
	lookup := &lookupMock{err: errors.New("budget exhausted")}
	r := NewResolver(newTestSnapshot(), WithLookup(lookup))

	brand, confidence := r.Resolve(context.Background(), "Kilian Good Girl Gone Bad")
	if brand != "" || confidence != 0.0 {
		t.Errorf("ожидалось пустое совпадение, получено (%q, %v)", brand, confidence)
	}
}

// TestResolver_AutoRegister найденный внешним сервисом бренд регистрируется
func TestResolver_AutoRegister(t *testing.T) {
	lookup := &lookupMock{answers: map[string]string{"Kilian": "Kilian"}}
	registrar := &registrarMock{}
	r := NewResolver(newTestSnapshot(), WithLookup(lookup), WithAutoRegister(registrar))

	brand, _ := r.Resolve(context.Background(), "Kilian Good Girl Gone Bad")
	if brand != "Kilian" {
		t.Fatalf("бренд %q, ожидался Kilian", brand)
	}
	if len(registrar.registered) != 1 || registrar.registered[0] != "Kilian" {
		t.Errorf("зарегистрировано %v, ожидался [Kilian]", registrar.registered)
	}
}

// TestResolver_LookupNotCalledOnDictionaryHit словарное совпадение не
// тратит бюджет внешнего сервиса
func TestResolver_LookupNotCalledOnDictionaryHit(t *testing.T) {
	lookup := &lookupMock{}
	r := NewResolver(newTestSnapshot(), WithLookup(lookup))

	r.Resolve(context.Background(), "Chanel Chance 50 мл")
	if len(lookup.calls) != 0 {
		t.Errorf("внешний сервис не должен вызываться при словарном совпадении: %v", lookup.calls)
	}
}
