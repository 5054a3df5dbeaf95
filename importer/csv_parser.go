package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ParseCSVFile читает прайс-лист из CSV-файла. Кодировка определяется
// автоматически: UTF-8 (с BOM или без) либо windows-1251, типичная для
// выгрузок из 1С.
func ParseCSVFile(path string) ([]PriceRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()
	return ParseCSV(f)
}

// ParseCSV читает прайс-лист из CSV-потока
func ParseCSV(r io.Reader) ([]PriceRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV stream: %w", err)
	}
	data = decodeToUTF8(data)

	reader := csv.NewReader(bufio.NewReader(bytes.NewReader(data)))
	reader.Comma = detectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	idxArticle, idxName, idxPrice := detectColumns(records[0])
	return collectRows(records[1:], idxArticle, idxName, idxPrice), nil
}

// decodeToUTF8 снимает BOM и перекодирует windows-1251 в UTF-8
func decodeToUTF8(data []byte) []byte {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(data) {
		return data
	}
	decoded, _, err := transform.Bytes(charmap.Windows1251.NewDecoder(), data)
	if err != nil {
		return data
	}
	return decoded
}

// detectDelimiter выбирает разделитель по первой строке файла:
// точка с запятой встречается в выгрузках чаще запятой
func detectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte{';'}) >= bytes.Count(line, []byte{','}) &&
		bytes.ContainsRune(line, ';') {
		return ';'
	}
	if bytes.ContainsRune(line, '\t') && !bytes.ContainsRune(line, ',') {
		return '\t'
	}
	return ','
}
