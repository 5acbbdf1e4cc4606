package order

import (
	"strings"

	"github.com/shopspring/decimal"
)

var numberCleaner = strings.NewReplacer(" ", "", "\u00a0", "", ",", ".")

// ParseAmount reads a money value, falling back to zero.
func ParseAmount(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(numberCleaner.Replace(strings.TrimSpace(raw)))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseQuantity accepts any positive number such as "2", "1.5" or "0,5".
func ParseQuantity(raw string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(numberCleaner.Replace(strings.TrimSpace(raw)))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}
