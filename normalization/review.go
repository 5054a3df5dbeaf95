package normalization

import (
	"strings"
	"unicode/utf8"
)

// Текстовые пометки для результатов, требующих ручной проверки
const (
	NoteEmptyRow           = "Пустая строка"
	NoteLowBrandConfidence = "Бренд не найден или низкая уверенность."
	NoteShortModelName     = "Название модели слишком короткое или пустое."
	NoteConflictingFormats = "Обнаружены конфликтующие форматы."
	NoteSuccess            = "Нормализация выполнена успешно"
)

// minBrandConfidence порог уверенности, ниже которого результат уходит на проверку
const minBrandConfidence = 0.85

// classifyReview вычисляет флаг needs_review и пометки для результата.
// Флаг выводим из тех же входов, что и ключи, поэтому повторная
// классификация одинаковых данных всегда даёт одинаковый ответ.
func classifyReview(rawName string, result *NormalizedProduct) {
	var notes []string

	if result.Brand == "" || result.BrandConfidence < minBrandConfidence {
		notes = append(notes, NoteLowBrandConfidence)
	}

	if utf8.RuneCountInString(result.ModelName) < 3 {
		notes = append(notes, NoteShortModelName)
	}

	if hasConflictingFormats(rawName) {
		notes = append(notes, NoteConflictingFormats)
	}

	if len(notes) > 0 {
		result.NeedsReview = true
		result.Notes = strings.Join(notes, " ")
		return
	}

	result.Notes = NoteSuccess
}

// hasConflictingFormats проверяет, что текст одновременно содержит ключевые
// слова двух взаимоисключающих форматов (например, "тестер" и "отливант")
func hasConflictingFormats(text string) bool {
	lower := strings.ToLower(text)
	seen := make(map[Format]bool)
	for _, fk := range formatKeywords {
		if strings.Contains(lower, fk.keyword) {
			seen[fk.format] = true
		}
	}
	return len(seen) > 1
}
