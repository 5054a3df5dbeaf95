package importer

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// PriceRow одна строка прайс-листа поставщика. Цена не разбирается на
// этапе чтения: неразборные значения классифицирует differ.
type PriceRow struct {
	Article  string
	RawName  string
	PriceRaw string
}

// Предпочитаемые листы книги; если ни одного нет, берётся первый лист
var preferredSheets = []string{"Позиции", "Флаконы"}

// Заголовки колонок прайса и их позиции по умолчанию
const (
	headerArticle = "Артикул"
	headerName    = "Наименование"
	headerPrice   = "Цена"
)

// ParseFile читает прайс-лист, выбирая парсер по расширению файла
func ParseFile(path string) ([]PriceRow, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ParseXLSXFile(path)
	case ".csv":
		return ParseCSVFile(path)
	default:
		return nil, fmt.Errorf("unsupported price list format: %s", filepath.Ext(path))
	}
}

// ParseXLSXFile читает прайс-лист из файла Excel
func ParseXLSXFile(path string) ([]PriceRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()
	return parseXLSX(f)
}

// ParseXLSX читает прайс-лист из потока Excel
func ParseXLSX(r io.Reader) ([]PriceRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel stream: %w", err)
	}
	defer f.Close()
	return parseXLSX(f)
}

func parseXLSX(f *excelize.File) ([]PriceRow, error) {
	sheetName := pickSheet(f)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows from sheet %q: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheetName)
	}

	idxArticle, idxName, idxPrice := detectColumns(rows[0])
	return collectRows(rows[1:], idxArticle, idxName, idxPrice), nil
}

// pickSheet выбирает предпочитаемый лист книги
func pickSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}
	for _, preferred := range preferredSheets {
		for _, name := range sheets {
			if name == preferred {
				return name
			}
		}
	}
	return sheets[0]
}

// detectColumns находит позиции колонок по строке заголовка;
// при отсутствии заголовков используются позиции 0/1/2
func detectColumns(header []string) (idxArticle, idxName, idxPrice int) {
	idxArticle, idxName, idxPrice = 0, 1, 2
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case headerArticle:
			idxArticle = i
		case headerName:
			idxName = i
		case headerPrice:
			idxPrice = i
		}
	}
	return idxArticle, idxName, idxPrice
}

// collectRows собирает строки прайса, отфильтровывая пустые артикулы
// и повторные строки заголовков внутри данных
func collectRows(rows [][]string, idxArticle, idxName, idxPrice int) []PriceRow {
	var result []PriceRow
	for _, row := range rows {
		if len(row) <= idxArticle {
			continue
		}

		article := strings.TrimSpace(row[idxArticle])
		if article == "" || article == "None" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(article), "артикул") {
			continue
		}

		rawName := ""
		if len(row) > idxName {
			rawName = strings.TrimSpace(row[idxName])
		}
		if strings.HasPrefix(strings.ToLower(rawName), "наименован") {
			continue
		}

		priceRaw := ""
		if len(row) > idxPrice {
			priceRaw = strings.TrimSpace(row[idxPrice])
		}

		result = append(result, PriceRow{
			Article:  article,
			RawName:  rawName,
			PriceRaw: priceRaw,
		})
	}
	return result
}
