package brands

import (
	"context"
	"fmt"
	"strings"

	"pricelist/normalization"
)

// Brand канонический бренд из справочника
type Brand struct {
	ID            int64  `json:"id"`
	CanonicalName string `json:"canonical_name"`
	Key           string `json:"key"` // normalization.NormalizeKey(CanonicalName)
}

// Alias альтернативное написание бренда
type Alias struct {
	ID      int64  `json:"id"`
	BrandID int64  `json:"brand_id"`
	Text    string `json:"text"`
	Key     string `json:"key"` // normalization.NormalizeKey(Text)
}

// Store интерфейс чтения справочника брендов
type Store interface {
	ListBrands(ctx context.Context) ([]Brand, error)
	ListAliases(ctx context.Context) ([]Alias, error)
}

// Snapshot неизменяемый снимок справочника брендов и алиасов.
// Загружается один раз на прогон нормализации; изменения справочника,
// сделанные оператором во время прогона, видны только после явной
// перезагрузки через LoadSnapshot — неявного глобального кэша нет.
type Snapshot struct {
	brands  []Brand // в порядке загрузки, для детерминированного перебора
	aliases []Alias

	brandByID  map[int64]Brand
	brandByKey map[string]Brand
	aliasByKey map[string]int64 // ключ алиаса → id бренда

	brandUppers []string // верхний регистр канонических имён, индексы совпадают с brands
	aliasUppers []string
}

// NewSnapshot строит снимок из уже загруженных брендов и алиасов
func NewSnapshot(brandList []Brand, aliasList []Alias) *Snapshot {
	s := &Snapshot{
		brands:     brandList,
		aliases:    aliasList,
		brandByID:  make(map[int64]Brand, len(brandList)),
		brandByKey: make(map[string]Brand, len(brandList)),
		aliasByKey: make(map[string]int64, len(aliasList)),
	}

	for i := range brandList {
		b := brandList[i]
		if b.Key == "" {
			b.Key = normalization.NormalizeKey(b.CanonicalName)
		}
		s.brands[i] = b
		s.brandByID[b.ID] = b
		if b.Key != "" {
			s.brandByKey[b.Key] = b
		}
		s.brandUppers = append(s.brandUppers, strings.ToUpper(b.CanonicalName))
	}

	for i := range aliasList {
		a := aliasList[i]
		if a.Key == "" {
			a.Key = normalization.NormalizeKey(a.Text)
		}
		s.aliases[i] = a
		if a.Key != "" {
			s.aliasByKey[a.Key] = a.BrandID
		}
		s.aliasUppers = append(s.aliasUppers, strings.ToUpper(a.Text))
	}

	return s
}

// LoadSnapshot загружает снимок справочника из хранилища.
// Это единственная точка перезагрузки словаря брендов.
func LoadSnapshot(ctx context.Context, store Store) (*Snapshot, error) {
	brandList, err := store.ListBrands(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load brands: %w", err)
	}
	aliasList, err := store.ListAliases(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load brand aliases: %w", err)
	}
	return NewSnapshot(brandList, aliasList), nil
}

// BrandCount количество брендов в снимке
func (s *Snapshot) BrandCount() int { return len(s.brands) }

// AliasCount количество алиасов в снимке
func (s *Snapshot) AliasCount() int { return len(s.aliases) }

// HasBrandKey проверяет наличие бренда по нормализованному ключу
func (s *Snapshot) HasBrandKey(key string) bool {
	_, ok := s.brandByKey[key]
	return ok
}

// HasAliasKey проверяет наличие алиаса по нормализованному ключу
func (s *Snapshot) HasAliasKey(key string) bool {
	_, ok := s.aliasByKey[key]
	return ok
}

func (s *Snapshot) brandName(id int64) (string, bool) {
	b, ok := s.brandByID[id]
	if !ok {
		return "", false
	}
	return b.CanonicalName, true
}
