package normalization

// Format формат товара (полный флакон, тестер, отливант, пробник, миниатюра)
type Format string

const (
	FormatFull   Format = "full"
	FormatTester Format = "tester"
	FormatDecant Format = "decant"
	FormatSample Format = "sample"
	FormatMini   Format = "mini"
)

// Gender пол целевой аудитории товара
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderUnisex Gender = "U"
)

// SingleVolume одиночный объём ("50 мл", "100ml")
type SingleVolume struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

// MultiVolume мультиобъём для наборов ("50+50+50 мл")
type MultiVolume struct {
	Parts   []int `json:"parts"`
	TotalML int   `json:"total_ml"`
}

// Size размер в сантиметрах ("20х30 см")
type Size struct {
	Width  int `json:"w"`
	Height int `json:"h"`
}

// Pack упаковка ("150 шт/упк")
type Pack struct {
	Qty  int    `json:"qty"`
	Unit string `json:"unit"`
}

// Attributes структурированные атрибуты, извлечённые из raw_name.
// Каждое поле заполняется независимым экстрактором; отсутствие
// значения кодируется нулевым значением или nil.
type Attributes struct {
	Format         Format       `json:"format"`
	Gender         Gender       `json:"gender,omitempty"`
	Volume         *SingleVolume `json:"volume,omitempty"`
	Volumes        *MultiVolume  `json:"volumes,omitempty"`
	Color          string       `json:"color,omitempty"`
	Size           *Size        `json:"size_cm,omitempty"`
	Pack           *Pack        `json:"pack,omitempty"`
	DensityRaw     string       `json:"density_raw,omitempty"`
	Features       []string     `json:"features,omitempty"`
	ProductType    string       `json:"product_type,omitempty"`
	ProductSubtype string       `json:"product_subtype,omitempty"`
}

// NormalizedProduct результат нормализации одной строки прайса.
// Создаётся заново на каждый вызов Normalize и никогда не хранится напрямую —
// его потребляет только catalog.Upserter.
type NormalizedProduct struct {
	Brand           string     `json:"brand,omitempty"`
	BrandConfidence float64    `json:"brand_confidence"`
	ModelName       string     `json:"model_name"`
	Series          string     `json:"series,omitempty"`
	CategoryPath    []string   `json:"category_path,omitempty"`
	Attrs           Attributes `json:"attrs"`
	GroupKey        string     `json:"group_key"`
	VariantKey      string     `json:"variant_key"`
	SearchText      string     `json:"search_text"`
	NeedsReview     bool       `json:"needs_review"`
	Notes           string     `json:"notes"`
}
