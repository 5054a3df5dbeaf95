package normalization

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kljensen/snowball"
)

// formatKeyword пара "ключевое слово → формат"; таблица упорядочена,
// первый найденный в тексте ключ выигрывает.
type formatKeyword struct {
	keyword string
	format  Format
}

var formatKeywords = []formatKeyword{
	{"отливант", FormatDecant},
	{"decant", FormatDecant},
	{"тестер", FormatTester},
	{"tester", FormatTester},
	{"пробник", FormatSample},
	{"sample", FormatSample},
	{"миниатюра", FormatMini},
	{"mini", FormatMini},
}

type genderKeyword struct {
	keyword string
	gender  Gender
}

var genderKeywords = []genderKeyword{
	{"мужской", GenderMale},
	{"муж", GenderMale},
	{"male", GenderMale},
	{"женский", GenderFemale},
	{"жен", GenderFemale},
	{"female", GenderFemale},
	{"унисекс", GenderUnisex},
	{"unisex", GenderUnisex},
}

// colorCanonical контролируемый словарь цветов в канонической форме;
// словоформы сводятся к нему стеммером
var colorCanonical = []string{
	"белый", "черный", "красный", "синий", "зеленый", "желтый",
	"коричневый", "розовый", "серый", "оранжевый",
}

// colorStems стем → каноническая форма цвета
var colorStems = func() map[string]string {
	m := make(map[string]string, len(colorCanonical))
	for _, color := range colorCanonical {
		if stem, err := snowball.Stem(color, "russian", true); err == nil {
			m[stem] = color
		}
	}
	return m
}()

// Окончания прилагательных: у "серый" и "серия" один стем, поэтому
// совпадение по стему засчитывается только для прилагательных
var colorAdjEndings = []string{"ый", "ий", "ой", "ая", "яя", "ое", "ее", "ые", "ие"}

var featureKeywords = []string{"рулон", "кератин"}

var (
	multiVolumeRe  = regexp.MustCompile(`(?i)(\d+)\+(\d+)(?:\+(\d+))?(?:\+(\d+))?\s*мл`)
	singleVolumeRe = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(мл|ml|гр|г|g)(?:[^а-яёa-z]|$)`)
	sizeRe         = regexp.MustCompile(`(?i)(\d+)\s*[хx×]\s*(\d+)\s*см`)
	packRe         = regexp.MustCompile(`(?i)(\d+)\s*(шт/упк|шт\.|упк\.|шт|упк)`)
	densityRe      = regexp.MustCompile(`\((\d+\s*гр?)\)`)
	bracketsRe     = regexp.MustCompile(`\([^)]*\)`)
	volumeStripRe  = regexp.MustCompile(`(?i)\d+(?:\+\d+)*\s*мл|\d+[.,]?\d*\s*(?:мл|ml)`)
	edgePunctRe    = regexp.MustCompile(`^[^\p{L}\p{N}]+|[^\p{L}\p{N}]+$`)
)

// ExtractCategoryPath извлекает путь категорий вида "A > B > C".
// Если разделителя нет, возвращает пустой список.
func ExtractCategoryPath(text string) []string {
	if !strings.Contains(text, ">") {
		return nil
	}
	var path []string
	for _, part := range strings.Split(text, ">") {
		part = strings.TrimSpace(part)
		if part != "" {
			path = append(path, part)
		}
	}
	return path
}

// ExtractFormat извлекает формат товара; по умолчанию полный флакон
func ExtractFormat(text string) Format {
	lower := strings.ToLower(text)
	for _, fk := range formatKeywords {
		if strings.Contains(lower, fk.keyword) {
			return fk.format
		}
	}
	return FormatFull
}

// ExtractGender извлекает пол; пустое значение означает "не определён"
func ExtractGender(text string) Gender {
	lower := strings.ToLower(text)
	for _, gk := range genderKeywords {
		if strings.Contains(lower, gk.keyword) {
			return gk.gender
		}
	}
	return ""
}

// ExtractVolumes извлекает объёмы. Мультиобъём ("50+50+50 мл") имеет
// приоритет над одиночным; для него возвращается упорядоченный список
// частей и суммарный объём.
func ExtractVolumes(text string) (*SingleVolume, *MultiVolume) {
	if m := multiVolumeRe.FindStringSubmatch(text); m != nil {
		var parts []int
		total := 0
		for _, g := range m[1:] {
			if g == "" {
				continue
			}
			v, err := strconv.Atoi(g)
			if err != nil {
				continue
			}
			parts = append(parts, v)
			total += v
		}
		if len(parts) > 1 {
			return nil, &MultiVolume{Parts: parts, TotalML: total}
		}
	}

	if m := singleVolumeRe.FindStringSubmatch(text); m != nil {
		raw := strings.ReplaceAll(m[1], ",", ".")
		f, err := strconv.ParseFloat(raw, 64)
		if err == nil {
			return &SingleVolume{Value: int(f), Unit: normalizeVolumeUnit(m[2])}, nil
		}
	}

	return nil, nil
}

func normalizeVolumeUnit(unit string) string {
	switch strings.ToLower(unit) {
	case "ml", "мл":
		return "мл"
	case "g", "г", "гр":
		return "г"
	default:
		return strings.ToLower(unit)
	}
}

// ExtractColor извлекает цвет по контролируемому словарю: словоформы
// ("белая", "красное") сводятся стеммингом к канонической форме
func ExtractColor(text string) string {
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:()[]\"")
		if !hasAdjEnding(word) {
			continue
		}
		stem, err := snowball.Stem(word, "russian", true)
		if err != nil {
			continue
		}
		if canonical, ok := colorStems[stem]; ok {
			return canonical
		}
	}
	return ""
}

func hasAdjEnding(word string) bool {
	for _, ending := range colorAdjEndings {
		if strings.HasSuffix(word, ending) {
			return true
		}
	}
	return false
}

// ExtractSize извлекает размер вида "20х30 см"
func ExtractSize(text string) *Size {
	m := sizeRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	w, errW := strconv.Atoi(m[1])
	h, errH := strconv.Atoi(m[2])
	if errW != nil || errH != nil {
		return nil
	}
	return &Size{Width: w, Height: h}
}

// ExtractPack извлекает упаковку вида "150 шт/упк"
func ExtractPack(text string) *Pack {
	m := packRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	qty, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &Pack{Qty: qty, Unit: m[2]}
}

// ExtractDensity извлекает плотность/вес в скобках: "(250 гр)"
func ExtractDensity(text string) string {
	m := densityRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// ExtractFeatures собирает признаки из фиксированного набора ключевых слов
func ExtractFeatures(text string) []string {
	lower := strings.ToLower(text)
	var features []string
	for _, kw := range featureKeywords {
		if strings.Contains(lower, kw) {
			features = append(features, kw)
		}
	}
	return features
}

// ExtractModelName извлекает кандидата названия модели: из исходного текста
// удаляются бренд, сегменты пути категорий, ключевые слова формата и пола,
// объёмы и скобки с содержимым. Результат критичен для объединения карточек,
// поэтому при полном вырождении возвращается исходный текст.
func ExtractModelName(text, brand string, categoryPath []string) string {
	work := text

	if brand != "" {
		work = removeSubstringFold(work, brand)
	}

	for _, cat := range categoryPath {
		work = removeSubstringFold(work, cat)
	}
	work = strings.ReplaceAll(work, ">", "")

	for _, fk := range formatKeywords {
		work = removeWordFold(work, fk.keyword)
	}
	for _, gk := range genderKeywords {
		work = removeWordFold(work, gk.keyword)
	}

	work = volumeStripRe.ReplaceAllString(work, "")
	work = bracketsRe.ReplaceAllString(work, "")

	work = strings.Join(strings.Fields(work), " ")
	work = edgePunctRe.ReplaceAllString(work, "")

	if work == "" {
		return text
	}
	return work
}

// removeSubstringFold удаляет все вхождения substr без учёта регистра
func removeSubstringFold(text, substr string) string {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(substr))
	if err != nil {
		return text
	}
	return re.ReplaceAllString(text, "")
}

// removeWordFold удаляет слово целиком: вхождение должно быть ограничено
// не-буквенными символами с обеих сторон (\b в regexp Go не знает кириллицу)
func removeWordFold(text, word string) string {
	re, err := regexp.Compile(`(?i)(^|[^\p{L}])` + regexp.QuoteMeta(word) + `($|[^\p{L}])`)
	if err != nil {
		return text
	}
	return re.ReplaceAllString(text, "${1}${2}")
}
