package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"pricelist/brands"
	"pricelist/database"
	"pricelist/importer"
	"pricelist/internal/config"
)

// Инструмент первичного наполнения справочника: извлекает кандидатов
// брендов из прайс-листа и печатает их с частотами. Кандидаты, уже
// известные справочнику, помечаются. Флаг -register добавляет
// неизвестных кандидатов с частотой не ниже -min-count в справочник.
func main() {
	var (
		filePath   = flag.String("file", "", "путь к файлу прайс-листа (.xlsx или .csv)")
		configPath = flag.String("config", "", "путь к JSON-файлу конфигурации")
		register   = flag.Bool("register", false, "добавить неизвестных кандидатов в справочник")
		minCount   = flag.Int("min-count", 3, "минимальная частота кандидата для регистрации")
	)
	flag.Parse()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "Использование: brand-bootstrap -file прайс.xlsx [-register] [-min-count 3]")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка открытия базы данных: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	rows, err := importer.ParseFile(*filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка чтения прайс-листа: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	snapshot, err := brands.LoadSnapshot(ctx, db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки справочника брендов: %v\n", err)
		os.Exit(1)
	}

	rawNames := make([]string, 0, len(rows))
	for _, row := range rows {
		rawNames = append(rawNames, row.RawName)
	}
	candidates := brands.CollectCandidates(rawNames, snapshot)

	fmt.Printf("Кандидатов брендов: %d (строк в прайсе: %d)\n\n", len(candidates), len(rows))
	registered := 0
	for _, c := range candidates {
		mark := " "
		switch {
		case c.ExistsAsBrand:
			mark = "B"
		case c.ExistsAsAlias:
			mark = "A"
		}
		fmt.Printf("  [%s] %-40s %5d  например: %s\n", mark, c.Text, c.Count, c.ExampleRawName)

		if *register && !c.ExistsAsBrand && !c.ExistsAsAlias && c.Count >= *minCount {
			if err := db.RegisterBrand(ctx, c.Text); err != nil {
				fmt.Fprintf(os.Stderr, "Не удалось зарегистрировать %q: %v\n", c.Text, err)
				continue
			}
			registered++
		}
	}

	if *register {
		fmt.Printf("\nЗарегистрировано новых брендов: %d\n", registered)
	}
}
