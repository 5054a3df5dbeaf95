package pricehistory

import (
	"context"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"
)

// ChangeType классификация строки прайса относительно предыдущего снимка
type ChangeType string

const (
	ChangeNew              ChangeType = "NEW"
	ChangeUp               ChangeType = "UP"
	ChangeDown             ChangeType = "DOWN"
	ChangeUnchanged        ChangeType = "UNCHANGED"
	ChangeRemoved          ChangeType = "REMOVED"
	ChangeSkippedDuplicate ChangeType = "SKIPPED_DUPLICATE"
	ChangeError            ChangeType = "ERROR"
)

// Row входная строка загрузки: артикул, исходное описание и сырая цена.
// Цена передаётся строкой, чтобы неразборная цена классифицировалась
// как ERROR, а не терялась на этапе чтения файла.
type Row struct {
	Article  string
	RawName  string
	PriceRaw string
}

// Classification результат классификации одной строки (или синтетическая
// REMOVED-запись для артикула, выбывшего из прайса)
type Classification struct {
	Article  string
	RawName  string
	OldPrice decimal.NullDecimal
	NewPrice decimal.NullDecimal
	Change   ChangeType
	Note     string
}

// Counts счётчики по корзинам классификации.
// Каждая поданная строка попадает ровно в одну корзину;
// REMOVED-записи синтетические и в сумму поданных строк не входят.
type Counts struct {
	Total      int `json:"total_rows"`
	New        int `json:"new"`
	Up         int `json:"up"`
	Down       int `json:"down"`
	Unchanged  int `json:"unchanged"`
	Removed    int `json:"removed"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
}

// SubmittedSum сумма корзин, в которые попадают поданные строки;
// инвариант: равна Total
func (c Counts) SubmittedSum() int {
	return c.New + c.Up + c.Down + c.Unchanged + c.Duplicates + c.Errors
}

// Result результат сравнения загрузки с предыдущим снимком
type Result struct {
	Entries   []Classification
	Counts    Counts
	Cancelled bool
}

// DifferOption настройка Differ
type DifferOption func(*Differ)

// WithBatchSize задаёт размер пакета между контрольными точками отмены
func WithBatchSize(size int) DifferOption {
	return func(d *Differ) {
		if size > 0 {
			d.batchSize = size
		}
	}
}

// WithProgress подключает колбэк прогресса, вызываемый на контрольных точках
func WithProgress(fn func(processed int)) DifferOption {
	return func(d *Differ) { d.progress = fn }
}

// Differ сравнивает загрузку прайса с предыдущим снимком цен и
// раскладывает строки по корзинам NEW/UP/DOWN/UNCHANGED/REMOVED/
// SKIPPED_DUPLICATE/ERROR. Работает одним синхронным проходом;
// единственные точки приостановки — контрольные точки на границах
// пакетов, где проверяется отмена и отдаётся прогресс.
type Differ struct {
	batchSize int
	progress  func(processed int)
	logger    *slog.Logger
}

// NewDiffer создает новый Differ
func NewDiffer(opts ...DifferOption) *Differ {
	d := &Differ{
		batchSize: 200,
		logger:    slog.Default().With("component", "price_differ"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DiffUpload классифицирует строки загрузки относительно предыдущего
// снимка (артикул → последняя цена). Дубликаты артикулов внутри одной
// загрузки пропускаются: значения первого вхождения остаются в силе.
// После всех строк для артикулов снимка, не встретившихся в загрузке,
// синтезируются REMOVED-записи с пустой новой ценой.
//
// Отмена контекста наблюдается на границах пакетов: оставшиеся строки
// не обрабатываются, REMOVED не синтезируются, счётчики отражают только
// обработанные строки.
func (d *Differ) DiffUpload(ctx context.Context, rows []Row, prev map[string]decimal.Decimal) *Result {
	result := &Result{}
	seen := make(map[string]bool, len(rows))

	for i, row := range rows {
		if i > 0 && i%d.batchSize == 0 {
			if d.progress != nil {
				d.progress(i)
			}
			if ctx.Err() != nil {
				result.Cancelled = true
				d.logger.Info("diff cancelled at checkpoint",
					"processed", i, "total", len(rows))
				return result
			}
		}

		entry := d.classifyRow(row, prev, seen)
		result.Entries = append(result.Entries, entry)
		result.Counts.Total++

		switch entry.Change {
		case ChangeNew:
			result.Counts.New++
		case ChangeUp:
			result.Counts.Up++
		case ChangeDown:
			result.Counts.Down++
		case ChangeUnchanged:
			result.Counts.Unchanged++
		case ChangeSkippedDuplicate:
			result.Counts.Duplicates++
		case ChangeError:
			result.Counts.Errors++
		}
	}

	if ctx.Err() != nil {
		result.Cancelled = true
		return result
	}

	d.appendRemoved(result, prev, seen)
	return result
}

// classifyRow классифицирует одну строку относительно снимка
func (d *Differ) classifyRow(row Row, prev map[string]decimal.Decimal, seen map[string]bool) Classification {
	entry := Classification{Article: row.Article, RawName: row.RawName}

	newPrice, err := ParsePrice(row.PriceRaw)
	if err != nil {
		entry.Change = ChangeError
		entry.Note = "невалидная цена: " + row.PriceRaw
		return entry
	}
	entry.NewPrice = decimal.NullDecimal{Decimal: newPrice, Valid: true}

	if seen[row.Article] {
		// Значения первого вхождения остаются в силе
		entry.Change = ChangeSkippedDuplicate
		entry.Note = "дубликат артикула в файле"
		return entry
	}
	seen[row.Article] = true

	oldPrice, known := prev[row.Article]
	if !known {
		entry.Change = ChangeNew
		return entry
	}
	entry.OldPrice = decimal.NullDecimal{Decimal: oldPrice, Valid: true}

	switch newPrice.Cmp(oldPrice) {
	case 1:
		entry.Change = ChangeUp
	case -1:
		entry.Change = ChangeDown
	default:
		entry.Change = ChangeUnchanged
	}
	return entry
}

// appendRemoved синтезирует REMOVED-записи для артикулов предыдущего
// снимка, не встретившихся в загрузке; порядок детерминированный
func (d *Differ) appendRemoved(result *Result, prev map[string]decimal.Decimal, seen map[string]bool) {
	var removed []string
	for article := range prev {
		if !seen[article] {
			removed = append(removed, article)
		}
	}
	sort.Strings(removed)

	for _, article := range removed {
		oldPrice := prev[article]
		result.Entries = append(result.Entries, Classification{
			Article:  article,
			OldPrice: decimal.NullDecimal{Decimal: oldPrice, Valid: true},
			Change:   ChangeRemoved,
			Note:     "артикул отсутствует в новой загрузке",
		})
		result.Counts.Removed++
	}
}
