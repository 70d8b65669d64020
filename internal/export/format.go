// Package export renders estimates for people: Danish currency text and
// Excel workbooks.
package export

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var danish = message.NewPrinter(language.Danish)

// Kroner formats amount with Danish thousands separators, e.g. "1.234.567 kr.".
func Kroner(amount int64) string {
	return danish.Sprintf("%d kr.", amount)
}

// Factor formats a multiplier with a decimal comma and at least two
// decimals, e.g. "1,06".
func Factor(f float64) string {
	return danish.Sprint(number.Decimal(f, number.MinFractionDigits(2), number.MaxFractionDigits(6)))
}
