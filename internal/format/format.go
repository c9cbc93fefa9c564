// Package format renders domain values for display.
package format

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// nairaSign is the Nigerian Naira currency symbol.
const nairaSign = "₦"

var printer = message.NewPrinter(language.English)

// Currency renders an amount as Naira with grouped thousands and exactly two
// fraction digits, e.g. "₦1,234.50".
func Currency(amount decimal.Decimal) string {
	value, _ := amount.Float64()
	return nairaSign + printer.Sprint(number.Decimal(value,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	))
}

// Date renders a timestamp as a medium date, e.g. "Mar 5, 2024".
func Date(t time.Time) string {
	return t.Format("Jan 2, 2006")
}
