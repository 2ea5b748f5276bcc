package checkout

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const DefaultLocale = "en-IN"

// MoneyFormatter renders amounts with the locale's digit grouping and at
// most three fraction digits, never padding to a fixed number of decimals.
type MoneyFormatter struct {
	printer *message.Printer
}

// NewMoneyFormatter returns a formatter for locale. An unknown locale yields a
// formatter that prints plain numbers.
func NewMoneyFormatter(locale string) *MoneyFormatter {
	tag, err := language.Parse(locale)
	if err != nil {
		return &MoneyFormatter{}
	}
	return &MoneyFormatter{printer: message.NewPrinter(tag)}
}

func (f *MoneyFormatter) Format(amount decimal.Decimal) string {
	if f == nil || f.printer == nil {
		return amount.String()
	}
	return f.printer.Sprintf("%v", number.Decimal(amount.InexactFloat64(), number.MaxFractionDigits(3)))
}
