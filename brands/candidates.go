package brands

import (
	"regexp"
	"sort"
	"strings"

	"pricelist/normalization"
)

// Стоп-слова, обозначающие конец названия бренда в начале строки прайса
var candidateStopWords = map[string]bool{
	"унисекс": true, "женск": true, "женский": true, "мужск": true, "мужской": true,
	"парф": true, "парфюмерная": true, "туалет": true, "туалетная": true, "вода": true,
	"мл": true, "ml": true, "г": true, "гр": true, "g": true, "gr": true,
	"тестер": true, "(тестер)": true, "отливант": true, "пробник": true, "sample": true,
	"духи": true, "edp": true, "edt": true, "eau": true, "de": true, "parfum": true, "toilette": true,
	"миниатюра": true, "mini": true, "decant": true,
}

var candidateEdgeRe = regexp.MustCompile(`^[^\p{L}\p{N}&\-.]+|[^\p{L}\p{N}&\-.]+$`)

// Candidate кандидат бренда, извлечённый из строк прайса, с частотой
// и признаками присутствия в справочнике
type Candidate struct {
	Text           string `json:"candidate"`
	Count          int    `json:"count"`
	ExampleRawName string `json:"example_raw_name"`
	ExistsAsBrand  bool   `json:"exists_as_brand"`
	ExistsAsAlias  bool   `json:"exists_as_alias"`
}

// ExtractCandidate извлекает кандидата бренда из raw_name:
// всё до первого ">" если он есть, иначе первые 1-4 слова до стоп-слова.
// Возвращает пустую строку, если кандидата выделить не удалось.
func ExtractCandidate(rawName string) string {
	rawName = strings.TrimSpace(rawName)
	if rawName == "" {
		return ""
	}

	if idx := strings.Index(rawName, ">"); idx >= 0 {
		candidate := cleanCandidate(rawName[:idx])
		if len([]rune(candidate)) >= 2 {
			return candidate
		}
	}

	words := strings.Fields(rawName)
	if len(words) == 0 {
		return ""
	}

	stopPos := -1
	for i, word := range words {
		wordLower := strings.ToLower(strings.Trim(word, ".,;:()[]{}"))
		if candidateStopWords[wordLower] {
			stopPos = i
			break
		}
	}

	maxWords := len(words)
	if stopPos >= 0 {
		maxWords = stopPos
	}
	if maxWords > 4 {
		maxWords = 4
	}
	if maxWords == 0 {
		return ""
	}

	candidate := cleanCandidate(strings.Join(words[:maxWords], " "))
	if len([]rune(candidate)) < 2 {
		return ""
	}
	return candidate
}

func cleanCandidate(text string) string {
	return candidateEdgeRe.ReplaceAllString(strings.TrimSpace(text), "")
}

// CollectCandidates группирует кандидатов брендов по всем raw_name,
// считает частоты и отмечает уже известные справочнику. Результат
// отсортирован по убыванию частоты — материал для экрана оператора.
func CollectCandidates(rawNames []string, snapshot *Snapshot) []Candidate {
	counts := make(map[string]*Candidate)
	var order []string

	for _, rawName := range rawNames {
		text := ExtractCandidate(rawName)
		if text == "" {
			continue
		}
		c, ok := counts[text]
		if !ok {
			c = &Candidate{Text: text, ExampleRawName: rawName}
			counts[text] = c
			order = append(order, text)
		}
		c.Count++
	}

	result := make([]Candidate, 0, len(order))
	for _, text := range order {
		c := counts[text]
		key := normalization.NormalizeKey(c.Text)
		if key != "" {
			c.ExistsAsBrand = snapshot.HasBrandKey(key)
			c.ExistsAsAlias = snapshot.HasAliasKey(key)
		}
		result = append(result, *c)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	return result
}
