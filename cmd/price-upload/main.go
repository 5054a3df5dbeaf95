package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pricelist/database"
	"pricelist/internal/config"
	"pricelist/pipeline"
	"pricelist/websearch"
)

func main() {
	var (
		filePath   = flag.String("file", "", "путь к файлу прайс-листа (.xlsx или .csv)")
		configPath = flag.String("config", "", "путь к JSON-файлу конфигурации")
		dateStr    = flag.String("date", "", "дата прайса в формате YYYY-MM-DD (по умолчанию сегодня)")
	)
	flag.Parse()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "Использование: price-upload -file прайс.xlsx [-config config.json] [-date 2026-08-28]")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}
	setupLogger(cfg.LogLevel)

	sourceDate := time.Now().UTC()
	if *dateStr != "" {
		sourceDate, err = time.Parse("2006-01-02", *dateStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Неверная дата %q: %v\n", *dateStr, err)
			os.Exit(2)
		}
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка открытия базы данных: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	opts := []pipeline.Option{pipeline.WithBatchSize(cfg.BatchSize)}
	if cfg.Lookup != nil && cfg.Lookup.Enabled {
		client := websearch.NewClient(websearch.ClientConfig{
			Enabled:           true,
			BaseURL:           cfg.Lookup.BaseURL,
			APIKey:            cfg.Lookup.APIKey,
			Timeout:           cfg.Lookup.Timeout,
			MaxRequestsPerDay: cfg.Lookup.MaxRequestsPerDay,
			MinInterval:       cfg.Lookup.MinInterval,
			CacheTTL:          cfg.Lookup.CacheTTL,
		}, db.LookupUsage())
		opts = append(opts, pipeline.WithLookup(client))
		opts = append(opts, pipeline.WithModelRefiner(client))
		opts = append(opts, pipeline.WithAutoRegister(cfg.AutoRegisterBrands))
	}

	// Ctrl+C останавливает загрузку на ближайшей контрольной точке;
	// загрузка завершается в статусе cancelled с частичными счётчиками
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	processor := pipeline.NewProcessor(db, opts...)
	upload, result, err := processor.ProcessFile(ctx, *filePath, sourceDate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки прайса: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Загрузка %s завершена со статусом %s\n", upload.RunID, upload.Status)
	fmt.Printf("  Строк обработано: %d\n", upload.TotalRows)
	fmt.Printf("  Новых позиций:    %d\n", upload.AddedCount)
	fmt.Printf("  Подорожало:       %d\n", result.Counts.Up)
	fmt.Printf("  Подешевело:       %d\n", result.Counts.Down)
	fmt.Printf("  Без изменений:    %d\n", upload.UnchangedCount)
	fmt.Printf("  Выбыло из прайса: %d\n", upload.RemovedCount)
	fmt.Printf("  Дубликатов:       %d\n", upload.DuplicateCount)
	fmt.Printf("  Ошибок:           %d\n", upload.ErrorCount)

	if upload.Status != database.UploadStatusDone {
		os.Exit(1)
	}
}

// setupLogger настраивает slog по уровню из конфигурации
func setupLogger(level string) {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
