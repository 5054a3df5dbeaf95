package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pricelist/brands"
	"pricelist/catalog"
	"pricelist/database"
	"pricelist/importer"
	"pricelist/normalization"
	"pricelist/pricehistory"
)

// Store контракт хранилища, от которого зависит процессор загрузки:
// справочник брендов, позиции поставщика, история цен и каталог.
// *database.DB реализует его целиком.
type Store interface {
	brands.Store
	brands.Registrar
	catalog.Store

	CreateUpload(ctx context.Context, u *database.Upload) error
	FinishUpload(ctx context.Context, u *database.Upload) error
	CurrentPrices(ctx context.Context) (map[string]decimal.Decimal, error)
	GetListingByArticle(ctx context.Context, article string) (*database.Listing, error)
	CreateListing(ctx context.Context, l *database.Listing) error
	UpdateListing(ctx context.Context, l *database.Listing) error
	MarkListingRemoved(ctx context.Context, article string) error
	InsertHistory(ctx context.Context, e *database.PriceHistoryEntry) error
}

// Processor оркестрирует загрузку прайса: чтение строк, сравнение с
// предыдущим снимком цен, обновление позиций, запись истории и слияние
// в каталог. Ошибки отдельных строк изолируются: строка логируется,
// учитывается в счётчике apply_error_count и пропускается, загрузка
// продолжается.
type Processor struct {
	store        Store
	lookup       brands.Lookup
	refiner      normalization.ModelRefiner
	autoRegister bool
	batchSize    int
	progress     func(processed int)
	logger       *slog.Logger
}

// Option настройка процессора загрузки
type Option func(*Processor)

// WithLookup подключает внешний сервис поиска брендов к резолверу
func WithLookup(lookup brands.Lookup) Option {
	return func(p *Processor) { p.lookup = lookup }
}

// WithModelRefiner подключает уточнение названий моделей через внешний
// сервис для строк с уверенно найденным брендом
func WithModelRefiner(refiner normalization.ModelRefiner) Option {
	return func(p *Processor) { p.refiner = refiner }
}

// WithAutoRegister включает регистрацию брендов, найденных внешним
// сервисом, в справочнике
func WithAutoRegister(enabled bool) Option {
	return func(p *Processor) { p.autoRegister = enabled }
}

// WithBatchSize задаёт размер пакета между контрольными точками отмены
func WithBatchSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.batchSize = size
		}
	}
}

// WithProgress подключает колбэк прогресса сравнения, вызываемый на
// контрольных точках
func WithProgress(fn func(processed int)) Option {
	return func(p *Processor) { p.progress = fn }
}

// NewProcessor создает процессор загрузки прайса
func NewProcessor(store Store, opts ...Option) *Processor {
	p := &Processor{
		store:     store,
		batchSize: 200,
		logger:    slog.Default().With("component", "upload_processor"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessFile читает прайс-лист из файла и проводит загрузку
func (p *Processor) ProcessFile(ctx context.Context, path string, sourceDate time.Time) (*database.Upload, *pricehistory.Result, error) {
	parsed, err := importer.ParseFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse price list: %w", err)
	}

	rows := make([]pricehistory.Row, len(parsed))
	for i, r := range parsed {
		rows[i] = pricehistory.Row{Article: r.Article, RawName: r.RawName, PriceRaw: r.PriceRaw}
	}
	return p.ProcessRows(ctx, filepath.Base(path), sourceDate, rows)
}

// ProcessRows проводит загрузку прайса по уже прочитанным строкам.
// Снимок справочника брендов загружается один раз на всю загрузку:
// все строки нормализуются против одного и того же состояния.
func (p *Processor) ProcessRows(ctx context.Context, filename string, sourceDate time.Time, rows []pricehistory.Row) (*database.Upload, *pricehistory.Result, error) {
	upload := &database.Upload{
		RunID:      uuid.NewString(),
		Filename:   filename,
		SourceDate: sourceDate,
	}
	if err := p.store.CreateUpload(ctx, upload); err != nil {
		return nil, nil, err
	}
	p.logger.Info("price upload started",
		"run_id", upload.RunID, "filename", filename, "rows", len(rows))

	normalizer, err := p.buildNormalizer(ctx)
	if err != nil {
		p.failUpload(upload)
		return upload, nil, err
	}

	prev, err := p.store.CurrentPrices(ctx)
	if err != nil {
		p.failUpload(upload)
		return upload, nil, err
	}

	differOpts := []pricehistory.DifferOption{pricehistory.WithBatchSize(p.batchSize)}
	if p.progress != nil {
		differOpts = append(differOpts, pricehistory.WithProgress(p.progress))
	}
	result := pricehistory.NewDiffer(differOpts...).DiffUpload(ctx, rows, prev)

	// Классифицированные строки применяются без учёта отмены: объём работы
	// уже ограничен контрольной точкой, и каждая строка из счётчиков
	// должна быть отражена в хранилище
	applyCtx := context.WithoutCancel(ctx)
	upserter := catalog.NewUpserter(p.store)
	applyErrors := 0
	for _, entry := range result.Entries {
		if err := p.applyEntry(applyCtx, upload, entry, normalizer, upserter); err != nil {
			applyErrors++
			p.logger.Warn("failed to apply price row",
				"run_id", upload.RunID, "article", entry.Article, "error", err)
		}
	}

	p.fillCounts(upload, result)
	upload.ApplyErrorCount = applyErrors
	upload.Status = database.UploadStatusDone
	if result.Cancelled {
		upload.Status = database.UploadStatusCancelled
	}
	if err := p.store.FinishUpload(applyCtx, upload); err != nil {
		return upload, result, err
	}

	p.logger.Info("price upload finished",
		"run_id", upload.RunID, "status", upload.Status,
		"total", upload.TotalRows, "new", upload.AddedCount,
		"removed", upload.RemovedCount, "errors", upload.ErrorCount,
		"apply_errors", upload.ApplyErrorCount)
	return upload, result, nil
}

// buildNormalizer загружает снимок справочника и собирает нормализатор
func (p *Processor) buildNormalizer(ctx context.Context) (*normalization.Normalizer, error) {
	snapshot, err := brands.LoadSnapshot(ctx, p.store)
	if err != nil {
		return nil, fmt.Errorf("failed to load brand snapshot: %w", err)
	}

	var resolverOpts []brands.ResolverOption
	if p.lookup != nil {
		resolverOpts = append(resolverOpts, brands.WithLookup(p.lookup))
		if p.autoRegister {
			resolverOpts = append(resolverOpts, brands.WithAutoRegister(p.store))
		}
	}

	var normOpts []normalization.NormalizerOption
	if p.refiner != nil {
		normOpts = append(normOpts, normalization.WithModelRefiner(p.refiner))
	}
	return normalization.NewNormalizer(brands.NewResolver(snapshot, resolverOpts...), normOpts...), nil
}

// applyEntry применяет одну классифицированную строку: обновляет позицию,
// дописывает историю и сливает результат нормализации в каталог
func (p *Processor) applyEntry(ctx context.Context, upload *database.Upload, entry pricehistory.Classification, normalizer *normalization.Normalizer, upserter *catalog.Upserter) error {
	switch entry.Change {
	case pricehistory.ChangeError, pricehistory.ChangeSkippedDuplicate:
		// Строка классифицирована, но в хранилище не отражается
		return nil
	case pricehistory.ChangeRemoved:
		return p.applyRemoved(ctx, upload, entry)
	default:
		return p.applyRow(ctx, upload, entry, normalizer, upserter)
	}
}

// applyRemoved помечает выбывшую позицию и дописывает REMOVED-историю
func (p *Processor) applyRemoved(ctx context.Context, upload *database.Upload, entry pricehistory.Classification) error {
	listing, err := p.store.GetListingByArticle(ctx, entry.Article)
	if errors.Is(err, database.ErrNotFound) {
		// Снимок знал цену, но позиции уже нет; историю писать не к чему
		return nil
	}
	if err != nil {
		return err
	}

	if err := p.store.MarkListingRemoved(ctx, entry.Article); err != nil {
		return err
	}
	return p.store.InsertHistory(ctx, &database.PriceHistoryEntry{
		ListingID:      listing.ID,
		UploadID:       upload.ID,
		OldPrice:       entry.OldPrice,
		SourceDate:     upload.SourceDate,
		SourceFilename: upload.Filename,
		ChangeType:     string(entry.Change),
	})
}

// applyRow применяет строку NEW/UP/DOWN/UNCHANGED: создаёт или обновляет
// позицию, пишет историю и обновляет каталог. Ошибка каталога не
// откатывает позицию и историю.
func (p *Processor) applyRow(ctx context.Context, upload *database.Upload, entry pricehistory.Classification, normalizer *normalization.Normalizer, upserter *catalog.Upserter) error {
	normalized := normalizer.Normalize(ctx, entry.RawName)

	listing, err := p.store.GetListingByArticle(ctx, entry.Article)
	switch {
	case errors.Is(err, database.ErrNotFound):
		listing = &database.Listing{Article: entry.Article}
		p.fillListing(listing, entry, normalized)
		if createErr := p.store.CreateListing(ctx, listing); createErr != nil {
			return createErr
		}
	case err != nil:
		return err
	default:
		p.fillListing(listing, entry, normalized)
		if updateErr := p.store.UpdateListing(ctx, listing); updateErr != nil {
			return updateErr
		}
	}

	if err := p.store.InsertHistory(ctx, &database.PriceHistoryEntry{
		ListingID:      listing.ID,
		UploadID:       upload.ID,
		OldPrice:       entry.OldPrice,
		NewPrice:       entry.NewPrice,
		SourceDate:     upload.SourceDate,
		SourceFilename: upload.Filename,
		ChangeType:     string(entry.Change),
	}); err != nil {
		return err
	}

	if _, err := upserter.Upsert(ctx, listing, normalized); err != nil {
		if errors.Is(err, catalog.ErrUnnormalizable) {
			p.logger.Debug("row skipped by catalog",
				"article", entry.Article, "raw_name", entry.RawName)
			return nil
		}
		return fmt.Errorf("catalog upsert failed: %w", err)
	}
	return nil
}

// fillListing переносит цену и извлечённые атрибуты в позицию поставщика
func (p *Processor) fillListing(listing *database.Listing, entry pricehistory.Classification, normalized *normalization.NormalizedProduct) {
	listing.RawName = entry.RawName
	listing.Price = entry.NewPrice
	listing.IsActive = true
	listing.IsInStock = true
	listing.InCurrentPricelist = true

	if entry.Change == pricehistory.ChangeUp || entry.Change == pricehistory.ChangeDown {
		now := time.Now().UTC()
		listing.LastPriceChangeAt = &now
	}

	if normalized == nil {
		return
	}
	listing.ProductName = normalized.ModelName
	listing.Brand = normalized.Brand
	listing.Category = strings.Join(normalized.CategoryPath, " > ")
	listing.Gender = string(normalized.Attrs.Gender)
	if normalized.Attrs.Volume != nil {
		listing.VolumeValue = normalized.Attrs.Volume.Value
		listing.VolumeUnit = normalized.Attrs.Volume.Unit
	}
}

// fillCounts переносит счётчики сравнения в запись загрузки.
// NEW учитывается и в счётчике роста, REMOVED — в счётчике снижения:
// это трендовые счётчики для сводки по загрузке.
func (p *Processor) fillCounts(upload *database.Upload, result *pricehistory.Result) {
	c := result.Counts
	upload.TotalRows = c.Total
	upload.AddedCount = c.New
	upload.UpCount = c.Up + c.New
	upload.DownCount = c.Down + c.Removed
	upload.UnchangedCount = c.Unchanged
	upload.RemovedCount = c.Removed
	upload.DuplicateCount = c.Duplicates
	upload.ErrorCount = c.Errors
}

// failUpload переводит загрузку в статус failed, не маскируя исходную ошибку
func (p *Processor) failUpload(upload *database.Upload) {
	upload.Status = database.UploadStatusFailed
	if err := p.store.FinishUpload(context.Background(), upload); err != nil {
		p.logger.Error("failed to mark upload as failed",
			"run_id", upload.RunID, "error", err)
	}
}
