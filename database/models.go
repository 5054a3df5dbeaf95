package database

import (
	"time"

	"github.com/shopspring/decimal"
)

// Listing позиция поставщика, идентифицируемая артикулом.
// Это персистентная проекция строки прайса: текущая цена, признаки
// наличия и участие в последней загрузке.
type Listing struct {
	ID                 int64
	Article            string
	RawName            string
	ProductName        string
	Brand              string
	Category           string
	VolumeValue        int
	VolumeUnit         string
	Gender             string
	Price              decimal.NullDecimal
	IsActive           bool
	IsInStock          bool
	InCurrentPricelist bool
	LastPriceChangeAt  *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CatalogItem карточка каталога, уникальная по group_key.
// Создаётся при первом появлении ключа; после этого автоматически
// обновляются только in_stock и updated_at, остальные поля заполняются
// лишь когда пусты — ручные правки оператора сохраняются.
type CatalogItem struct {
	ID          int64
	GroupKey    string
	Brand       string
	Name        string
	DisplayName string
	Visible     bool
	InStock     bool
	Tags        string // JSON, например {"series": "..."}
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CatalogVariant конкретная конфигурация товара внутри карточки.
// ListingID уникален: ровно один вариант на позицию поставщика.
type CatalogVariant struct {
	ID            int64
	CatalogItemID int64
	ListingID     int64
	VariantKey    string
	Format        string
	Gender        string
	VolumeValue   int
	VolumeUnit    string
	VolumesML     string // JSON-список частей мультиобъёма
	TotalML       int
	Color         string
	SizeCM        string // JSON {"w": ..., "h": ...}
	Pack          string // JSON {"qty": ..., "unit": ...}
	DensityRaw    string
	Features      string // JSON-список
	IsTester      bool
	InStock       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PriceHistoryEntry запись истории цен; таблица только дописывается.
// Для REMOVED-строк new_price пуст.
type PriceHistoryEntry struct {
	ID             int64
	ListingID      int64
	UploadID       int64
	OldPrice       decimal.NullDecimal
	NewPrice       decimal.NullDecimal
	Currency       string
	SourceDate     time.Time
	SourceFilename string
	ChangeType     string
	ChangedAt      time.Time
}

// Статусы загрузки прайса; done/failed/cancelled терминальны
const (
	UploadStatusInProgress = "in_progress"
	UploadStatusDone       = "done"
	UploadStatusFailed     = "failed"
	UploadStatusCancelled  = "cancelled"
)

// Upload одна загрузка прайса со счётчиками по типам изменений
type Upload struct {
	ID             int64
	RunID          string
	Filename       string
	SourceDate     time.Time
	Status         string
	TotalRows      int
	AddedCount     int
	UpCount        int
	DownCount      int
	UnchangedCount int
	RemovedCount   int
	DuplicateCount int
	ErrorCount     int
	// ApplyErrorCount строки, классифицированные при сравнении, но не
	// применённые к хранилищу из-за ошибки
	ApplyErrorCount int
	UploadedAt      time.Time
	FinishedAt      *time.Time
}
