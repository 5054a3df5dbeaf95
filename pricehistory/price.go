package pricehistory

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidPrice цена не разбирается ни в одном из поддерживаемых форматов
var ErrInvalidPrice = errors.New("invalid price value")

// priceCleaner убирает валютные обозначения и разделители тысяч
var priceCleaner = strings.NewReplacer(
	"₽", "", "руб.", "", "руб", "", "р.", "",
	" ", "", // неразрывный пробел из Excel
	" ", "",
)

// ParsePrice разбирает цену поставщика: "1234.56", "1 234,56", "1200 руб".
// Запятая трактуется как десятичный разделитель, если точки нет.
func ParsePrice(raw string) (decimal.Decimal, error) {
	cleaned := priceCleaner.Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return decimal.Decimal{}, ErrInvalidPrice
	}

	if !strings.Contains(cleaned, ".") {
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidPrice
	}
	if d.IsNegative() {
		return decimal.Decimal{}, ErrInvalidPrice
	}
	return d, nil
}
