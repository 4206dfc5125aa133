// Package refdata holds the static reference tables used during normalization:
// currency exchange rates against the reference currency and the ISO 3166-1
// alpha-2 to alpha-3 country code mapping. The tables are read-only after init.
package refdata

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ReferenceCurrency is the unit every amount is normalized into.
const ReferenceCurrency = "EUR"

// eurRates holds units of each currency per 1 EUR.
var eurRates = map[string]decimal.Decimal{
	"USD": decimal.RequireFromString("1.0917"),
	"JPY": decimal.RequireFromString("160.33"),
	"GBP": decimal.RequireFromString("0.85708"),
	"DKK": decimal.RequireFromString("7.4602"),
	"SEK": decimal.RequireFromString("11.4955"),
	"MXN": decimal.RequireFromString("20.5652"),
	"HUF": decimal.RequireFromString("395.20"),
	"PLN": decimal.RequireFromString("4.3253"),
	"CZK": decimal.RequireFromString("25.234"),
	"CHF": decimal.RequireFromString("0.9435"),
	"RON": decimal.RequireFromString("4.9769"),
	"NOK": decimal.RequireFromString("11.8295"),
	"BGN": decimal.RequireFromString("1.9558"),
	"RSD": decimal.RequireFromString("117.02"),
	"ALL": decimal.RequireFromString("100.13"),
	"MKD": decimal.RequireFromString("61.514"),
	"UAH": decimal.RequireFromString("44.950"),
	"BAM": decimal.RequireFromString("1.9574"),
	"EUR": decimal.NewFromInt(1),
}

// Rate returns the number of currency units per reference unit.
func Rate(currency string) (decimal.Decimal, bool) {
	r, ok := eurRates[currency]
	return r, ok
}

// ToReference converts amount in currency into the reference currency.
// The second result is false when the currency is not in the rate table.
func ToReference(amount decimal.Decimal, currency string) (decimal.Decimal, bool) {
	r, ok := eurRates[currency]
	if !ok {
		return decimal.Decimal{}, false
	}
	if r.Equal(decimal.NewFromInt(1)) {
		return amount, true
	}
	return amount.Div(r), true
}

// Currencies returns the supported currency codes sorted alphabetically.
func Currencies() []string {
	out := make([]string, 0, len(eurRates))
	for c := range eurRates {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
