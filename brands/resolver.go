package brands

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"pricelist/normalization"
)

// Уверенность по ярусам каскада; каждый следующий ярус слабее предыдущего
const (
	ConfidenceAliasKey    = 1.0
	ConfidenceBrandKey    = 0.95
	ConfidenceAliasSubstr = 0.95
	ConfidenceBrandSubstr = 0.9
	ConfidenceBracket     = 0.85
	ConfidenceCategory    = 0.8
	ConfidenceLookup      = 0.85
)

// Lookup внешний сервис поиска бренда (ограниченный таймаутом и дневным
// бюджетом запросов). Любая ошибка трактуется резолвером как "не найдено".
type Lookup interface {
	FindBrand(ctx context.Context, query string) (string, error)
}

// Registrar регистрация бренда, найденного внешним сервисом.
// Снимок при этом не мутируется — новый бренд виден после перезагрузки.
type Registrar interface {
	RegisterBrand(ctx context.Context, canonicalName string) error
}

var bracketContentRe = regexp.MustCompile(`\(([^)]+)\)`)

// Resolver ярусный резолвер брендов: точные совпадения по нормализованному
// ключу, затем подстрочные, затем скобки и путь категорий, и в последнюю
// очередь внешний поиск. Первый сработавший ярус определяет уверенность.
type Resolver struct {
	snapshot     *Snapshot
	lookup       Lookup
	registrar    Registrar
	autoRegister bool
	logger       *slog.Logger
}

// ResolverOption настройка резолвера
type ResolverOption func(*Resolver)

// WithLookup подключает внешний поиск бренда (ярус 7)
func WithLookup(lookup Lookup) ResolverOption {
	return func(r *Resolver) { r.lookup = lookup }
}

// WithAutoRegister включает регистрацию брендов, найденных внешним
// сервисом, в справочник через registrar
func WithAutoRegister(registrar Registrar) ResolverOption {
	return func(r *Resolver) {
		r.registrar = registrar
		r.autoRegister = registrar != nil
	}
}

// NewResolver создает резолвер поверх неизменяемого снимка справочника
func NewResolver(snapshot *Snapshot, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		snapshot: snapshot,
		logger:   slog.Default().With("component", "brand_resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve находит бренд в тексте. Возвращает каноническое имя и
// уверенность; (пустая строка, 0.0) если ни один ярус не сработал.
func (r *Resolver) Resolve(ctx context.Context, text string) (string, float64) {
	if strings.TrimSpace(text) == "" {
		return "", 0.0
	}

	textUpper := strings.ToUpper(text)
	textKey := normalization.NormalizeKey(text)

	// 1. Точное совпадение ключа с алиасом
	if textKey != "" {
		if brandID, ok := r.snapshot.aliasByKey[textKey]; ok {
			if name, ok := r.snapshot.brandName(brandID); ok {
				return name, ConfidenceAliasKey
			}
		}
	}

	// 2. Точное совпадение ключа с брендом
	if textKey != "" {
		if brand, ok := r.snapshot.brandByKey[textKey]; ok {
			return brand.CanonicalName, ConfidenceBrandKey
		}
	}

	// 3. Алиас как подстрока текста
	for i, aliasUpper := range r.snapshot.aliasUppers {
		if aliasUpper != "" && strings.Contains(textUpper, aliasUpper) {
			if name, ok := r.snapshot.brandName(r.snapshot.aliases[i].BrandID); ok {
				return name, ConfidenceAliasSubstr
			}
		}
	}

	// 4. Каноническое имя бренда как подстрока текста
	for i, brandUpper := range r.snapshot.brandUppers {
		if brandUpper != "" && strings.Contains(textUpper, brandUpper) {
			return r.snapshot.brands[i].CanonicalName, ConfidenceBrandSubstr
		}
	}

	// 5. Содержимое первых скобок (подстрока в обе стороны)
	if m := bracketContentRe.FindStringSubmatch(text); m != nil {
		bracketUpper := strings.ToUpper(strings.TrimSpace(m[1]))
		if bracketUpper != "" {
			for i, brandUpper := range r.snapshot.brandUppers {
				if strings.Contains(bracketUpper, brandUpper) || strings.Contains(brandUpper, bracketUpper) {
					return r.snapshot.brands[i].CanonicalName, ConfidenceBracket
				}
			}
		}
	}

	// 6. Сегменты пути категорий (A > B > C) по нормализованному ключу:
	// ловит написания, которые подстрочный ярус не видит ("CHA-NEL")
	if strings.Contains(text, ">") {
		for _, segment := range strings.Split(text, ">") {
			segmentKey := normalization.NormalizeKey(segment)
			if segmentKey == "" {
				continue
			}
			if brandID, ok := r.snapshot.aliasByKey[segmentKey]; ok {
				if name, ok := r.snapshot.brandName(brandID); ok {
					return name, ConfidenceCategory
				}
			}
			if brand, ok := r.snapshot.brandByKey[segmentKey]; ok {
				return brand.CanonicalName, ConfidenceCategory
			}
		}
	}

	// 7. Внешний поиск по первым 1-3 словам
	if brand, ok := r.resolveViaLookup(ctx, text); ok {
		return brand, ConfidenceLookup
	}

	return "", 0.0
}

// resolveViaLookup пробует внешний поиск бренда. Ошибки и исчерпание
// бюджета деградируют до "не найдено" и не прерывают пайплайн.
func (r *Resolver) resolveViaLookup(ctx context.Context, text string) (string, bool) {
	if r.lookup == nil {
		return "", false
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return "", false
	}

	for wordCount := 1; wordCount <= 3 && wordCount <= len(words); wordCount++ {
		candidate := strings.Join(words[:wordCount], " ")

		brand, err := r.lookup.FindBrand(ctx, candidate)
		if err != nil {
			r.logger.Debug("external brand lookup failed", "query", candidate, "error", err)
			continue
		}
		if brand == "" {
			continue
		}

		if r.autoRegister {
			if err := r.registrar.RegisterBrand(ctx, brand); err != nil {
				r.logger.Warn("failed to register discovered brand", "brand", brand, "error", err)
			}
		}
		return brand, true
	}

	return "", false
}
