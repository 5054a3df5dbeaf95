package normalization

import "strings"

// Словарь типов товара; порядок проверок имеет значение:
// наборы и атомайзеры распознаются раньше косметики и парфюмерии.
var (
	setKeywords      = []string{"набор", "gift set", "set", "комплект", "комплектация"}
	atomizerKeywords = []string{"атомайзер", "atomizer", "sprayer", "распылитель", "спрей"}
	autoKeywords     = []string{"автопарфюм", "car perfume", "car", "авто", "для авто", "автомобиль"}

	cosmeticsGeneral = []string{
		"крем", "лосьон", "маска", "сыворотка", "тон", "помада", "пудра", "шампунь",
		"скраб", "гель", "бальзам", "cream", "lotion", "mask", "serum", "shampoo", "scrub", "gel",
	}
	cosmeticsSubtypes = []struct {
		subtype  string
		keywords []string
	}{
		{"decor", []string{"помада", "тушь", "пудра", "тон", "румяна", "тени", "консилер", "бронзер", "хайлайтер", "lipstick", "mascara", "powder", "foundation", "blush", "eyeshadow"}},
		{"face", []string{"для лица", "face", "сыворотка", "крем для лица", "тонер", "эссенция", "face cream", "serum", "toner"}},
		{"body", []string{"для тела", "body", "скраб", "гель для душа", "лосьон для тела", "body lotion", "body cream", "scrub", "shower gel"}},
		{"hands_feet", []string{"крем для рук", "hand", "foot", "для ног", "для рук", "hand cream", "foot cream"}},
		{"hair", []string{"шампунь", "маска для волос", "кондиционер", "hair", "shampoo", "hair mask", "conditioner", "для волос"}},
	}

	perfumeKeywords = []string{
		"edp", "edt", "edc", "духи", "парфюм", "туалетная вода", "парфюмерная вода",
		"perfume", "eau de parfum", "eau de toilette", "eau de cologne",
	}
	homeKeywords        = []string{"свеча", "диффузор", "ароматизатор", "candle", "diffuser", "для дома", "home", "ароматическая свеча"}
	accessoriesKeywords = []string{"сумка", "чехол", "футляр", "bag", "case", "cover"}
)

// ClassifyProductType классифицирует товар по типу и подтипу на основе
// raw_name. Возвращает ("", "") если тип определить не удалось.
func ClassifyProductType(rawName string) (productType, productSubtype string) {
	if rawName == "" {
		return "", ""
	}
	lower := strings.ToLower(rawName)

	if containsAny(lower, setKeywords) {
		return "sets", ""
	}
	if containsAny(lower, atomizerKeywords) {
		return "atomizers", ""
	}
	if containsAny(lower, autoKeywords) {
		return "auto", ""
	}

	if containsAny(lower, cosmeticsGeneral) {
		for _, st := range cosmeticsSubtypes {
			if containsAny(lower, st.keywords) {
				return "cosmetics", st.subtype
			}
		}
		return "cosmetics", ""
	}

	if containsAny(lower, perfumeKeywords) {
		return "perfume", ""
	}
	if containsAny(lower, homeKeywords) {
		return "home", ""
	}
	if containsAny(lower, accessoriesKeywords) {
		return "accessories", ""
	}

	return "", ""
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
