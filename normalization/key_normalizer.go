package normalization

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	ampersandRe   = regexp.MustCompile(`\s*&\s*`)
	punctuationRe = regexp.MustCompile(`[.,;:!?()\[\]{}"']`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// NormalizeKey нормализует текст для создания устойчивого ключа сравнения.
// Убирает различия в &/and, дефисах, точках, двойных пробелах и регистре,
// чтобы канонические имена брендов и алиасы схлопывались в один ключ:
//
//	"Abercrombie & Fitch"   → "abercrombieandfitch"
//	"Abercrombie and Fitch" → "abercrombieandfitch"
//	"Tom-Ford"              → "tomford"
//	"Tom  Ford"             → "tomford"
//
// Для пустого или пробельного входа возвращает пустую строку.
func NormalizeKey(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	key := norm.NFC.String(text)
	key = strings.ToLower(strings.TrimSpace(key))

	// & → and
	key = ampersandRe.ReplaceAllString(key, "and")

	// Дефисы и подчеркивания → пробелы
	key = strings.NewReplacer("-", " ", "_", " ").Replace(key)

	// Убираем знаки препинания
	key = punctuationRe.ReplaceAllString(key, "")

	// Нормализуем пробелы и склеиваем в один токен
	key = whitespaceRe.ReplaceAllString(key, " ")
	key = strings.TrimSpace(key)
	key = strings.ReplaceAll(key, " ", "")

	return key
}
