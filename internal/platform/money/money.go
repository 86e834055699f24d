// Package money formats peso amounts for customer-facing views.
package money

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.MustParse("es-CO"))

// FormatCOP renders an amount as Colombian pesos with local digit
// grouping, e.g. "$ 1.250.000".
func FormatCOP(amount float64) string {
	return printer.Sprintf("$ %v", number.Decimal(amount, number.MaxFractionDigits(0)))
}
