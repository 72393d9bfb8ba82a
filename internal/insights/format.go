package insights

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const DefaultLocale = "fr-MA"

// moneyFormatter renders amounts with two decimals and locale grouping.
type moneyFormatter struct {
	printer *message.Printer
}

func newMoneyFormatter(locale string) moneyFormatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse(DefaultLocale)
	}
	return moneyFormatter{printer: message.NewPrinter(tag)}
}

func (f moneyFormatter) format(d decimal.Decimal) string {
	return f.printer.Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2)))
}
