package pricehistory

import (
	"context"
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

func prevSnapshot(prices map[string]string) map[string]decimal.Decimal {
	snapshot := make(map[string]decimal.Decimal, len(prices))
	for article, price := range prices {
		snapshot[article] = decimal.RequireFromString(price)
	}
	return snapshot
}

func entriesByArticle(result *Result) map[string]Classification {
	byArticle := make(map[string]Classification, len(result.Entries))
	for _, e := range result.Entries {
		// Дубликаты перекрыли бы первое вхождение, фиксируем только его
		if _, ok := byArticle[e.Article]; !ok {
			byArticle[e.Article] = e
		}
	}
	return byArticle
}

// TestDiffUpload_Classification базовые корзины классификации
func TestDiffUpload_Classification(t *testing.T) {
	d := NewDiffer()
	prev := prevSnapshot(map[string]string{
		"A100": "100",
		"A200": "200",
		"A300": "300",
		"B200": "500",
	})
	rows := []Row{
		{Article: "A100", RawName: "Позиция 1", PriceRaw: "150"}, // 100 → 150
		{Article: "A200", RawName: "Позиция 2", PriceRaw: "180"}, // 200 → 180
		{Article: "A300", RawName: "Позиция 3", PriceRaw: "300"}, // без изменений
		{Article: "C400", RawName: "Новинка", PriceRaw: "999"},   // новый артикул
		{Article: "D500", RawName: "Битая цена", PriceRaw: "нет"},
	}

	result := d.DiffUpload(context.Background(), rows, prev)

	if result.Cancelled {
		t.Fatal("загрузка не должна быть отменена")
	}

	byArticle := entriesByArticle(result)
	expectations := map[string]ChangeType{
		"A100": ChangeUp,
		"A200": ChangeDown,
		"A300": ChangeUnchanged,
		"C400": ChangeNew,
		"D500": ChangeError,
		"B200": ChangeRemoved, // отсутствует в новой загрузке
	}
	for article, expected := range expectations {
		entry, ok := byArticle[article]
		if !ok {
			t.Errorf("нет записи для артикула %s", article)
			continue
		}
		if entry.Change != expected {
			t.Errorf("артикул %s: %s, ожидалось %s", article, entry.Change, expected)
		}
	}

	up := byArticle["A100"]
	if !up.OldPrice.Valid || !up.OldPrice.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Errorf("старая цена A100 = %v, ожидалась 100", up.OldPrice)
	}
	if !up.NewPrice.Valid || !up.NewPrice.Decimal.Equal(decimal.NewFromInt(150)) {
		t.Errorf("новая цена A100 = %v, ожидалась 150", up.NewPrice)
	}

	removed := byArticle["B200"]
	if removed.NewPrice.Valid {
		t.Errorf("у REMOVED-записи не должно быть новой цены: %v", removed.NewPrice)
	}
	if !removed.OldPrice.Valid || !removed.OldPrice.Decimal.Equal(decimal.NewFromInt(500)) {
		t.Errorf("старая цена B200 = %v, ожидалась 500", removed.OldPrice)
	}

	c := result.Counts
	if c.Total != 5 || c.Up != 1 || c.Down != 1 || c.Unchanged != 1 ||
		c.New != 1 || c.Errors != 1 || c.Removed != 1 {
		t.Errorf("счётчики %+v", c)
	}
}

// TestDiffUpload_Duplicates значения первого вхождения остаются в силе
func TestDiffUpload_Duplicates(t *testing.T) {
	d := NewDiffer()
	prev := prevSnapshot(map[string]string{"A100": "100"})
	rows := []Row{
		{Article: "A100", RawName: "Первое вхождение", PriceRaw: "150"},
		{Article: "A100", RawName: "Дубликат", PriceRaw: "175"},
		{Article: "A100", RawName: "Ещё дубликат", PriceRaw: "200"},
	}

	result := d.DiffUpload(context.Background(), rows, prev)

	if result.Counts.Duplicates != 2 {
		t.Errorf("дубликатов %d, ожидалось 2", result.Counts.Duplicates)
	}
	if result.Counts.Up != 1 {
		t.Errorf("UP %d, ожидалось 1 (первое вхождение)", result.Counts.Up)
	}
	if result.Entries[0].Change != ChangeUp {
		t.Errorf("первое вхождение классифицировано как %s", result.Entries[0].Change)
	}
	for _, e := range result.Entries[1:] {
		if e.Change != ChangeSkippedDuplicate {
			t.Errorf("повторное вхождение классифицировано как %s", e.Change)
		}
	}
	// REMOVED не синтезируется: артикул встретился в загрузке
	if result.Counts.Removed != 0 {
		t.Errorf("REMOVED %d, ожидалось 0", result.Counts.Removed)
	}
}

// TestDiffUpload_RemovedDeterministicOrder REMOVED-записи идут в
// детерминированном порядке артикулов
func TestDiffUpload_RemovedDeterministicOrder(t *testing.T) {
	d := NewDiffer()
	prev := prevSnapshot(map[string]string{"C3": "3", "A1": "1", "B2": "2"})

	result := d.DiffUpload(context.Background(), nil, prev)

	if len(result.Entries) != 3 {
		t.Fatalf("записей %d, ожидалось 3", len(result.Entries))
	}
	for i, expected := range []string{"A1", "B2", "C3"} {
		if result.Entries[i].Article != expected {
			t.Errorf("запись %d: %s, ожидался %s", i, result.Entries[i].Article, expected)
		}
	}
}

// TestDiffUpload_PartitionInvariant каждая поданная строка попадает ровно
// в одну корзину, сумма корзин равна числу строк
func TestDiffUpload_PartitionInvariant(t *testing.T) {
	gofakeit.Seed(42)
	d := NewDiffer(WithBatchSize(50))

	prev := make(map[string]decimal.Decimal)
	for i := 0; i < 300; i++ {
		prev[fmt.Sprintf("OLD-%03d", i)] = decimal.NewFromInt(int64(gofakeit.Number(100, 10000)))
	}

	var rows []Row
	for i := 0; i < 1000; i++ {
		var article string
		if gofakeit.Bool() {
			article = fmt.Sprintf("OLD-%03d", gofakeit.Number(0, 299))
		} else {
			article = fmt.Sprintf("NEW-%04d", gofakeit.Number(0, 500))
		}
		price := fmt.Sprintf("%d", gofakeit.Number(100, 10000))
		if gofakeit.Number(0, 19) == 0 {
			price = gofakeit.Word() // иногда битая цена
		}
		rows = append(rows, Row{
			Article:  article,
			RawName:  gofakeit.ProductName(),
			PriceRaw: price,
		})
	}

	result := d.DiffUpload(context.Background(), rows, prev)

	if result.Counts.Total != len(rows) {
		t.Errorf("Total = %d, ожидалось %d", result.Counts.Total, len(rows))
	}
	if got := result.Counts.SubmittedSum(); got != result.Counts.Total {
		t.Errorf("сумма корзин %d не равна числу строк %d: %+v",
			got, result.Counts.Total, result.Counts)
	}
	// Записей всего: поданные строки + синтетические REMOVED
	if len(result.Entries) != result.Counts.Total+result.Counts.Removed {
		t.Errorf("записей %d, ожидалось %d", len(result.Entries),
			result.Counts.Total+result.Counts.Removed)
	}
}

// TestDiffUpload_Cancellation отмена на контрольной точке останавливает
// обработку и подавляет синтез REMOVED
func TestDiffUpload_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	d := NewDiffer(
		WithBatchSize(10),
		WithProgress(func(processed int) {
			if processed >= 20 {
				cancel()
			}
		}),
	)

	prev := prevSnapshot(map[string]string{"GONE": "100"})
	var rows []Row
	for i := 0; i < 100; i++ {
		rows = append(rows, Row{
			Article:  fmt.Sprintf("A%03d", i),
			PriceRaw: "100",
		})
	}

	result := d.DiffUpload(ctx, rows, prev)

	if !result.Cancelled {
		t.Fatal("результат должен быть помечен отменённым")
	}
	if result.Counts.Total >= len(rows) {
		t.Errorf("обработано %d строк, ожидалась остановка до конца", result.Counts.Total)
	}
	if got := result.Counts.SubmittedSum(); got != result.Counts.Total {
		t.Errorf("инвариант корзин нарушен после отмены: %d != %d", got, result.Counts.Total)
	}
	if result.Counts.Removed != 0 {
		t.Errorf("REMOVED не синтезируются при отмене, получено %d", result.Counts.Removed)
	}
}

// TestDiffUpload_EmptyInputs пустая загрузка против пустого снимка
func TestDiffUpload_EmptyInputs(t *testing.T) {
	d := NewDiffer()
	result := d.DiffUpload(context.Background(), nil, nil)
	if len(result.Entries) != 0 || result.Counts.Total != 0 {
		t.Errorf("ожидался пустой результат: %+v", result)
	}
}
