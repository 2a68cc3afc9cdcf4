// Package money holds the supported display currencies and amount formatting.
package money

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrUnsupportedCurrency indicates a currency code outside the supported set.
var ErrUnsupportedCurrency = errors.New("money: unsupported currency")

// Default is the currency used when none was chosen.
const Default = "NGN"

// Currency describes a supported display currency.
type Currency struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	unit   currency.Unit
}

var supported = map[string]string{
	"NGN": "₦",
	"GBP": "£",
	"USD": "$",
	"EUR": "€",
}

// Codes lists the supported currency codes in display order.
func Codes() []string {
	return []string{"NGN", "GBP", "USD", "EUR"}
}

// Parse resolves a currency code. Blank input yields the default currency.
func Parse(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = Default
	}
	symbol, ok := supported[code]
	if !ok {
		return Currency{}, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return Currency{}, fmt.Errorf("%w: %v", ErrUnsupportedCurrency, err)
	}
	return Currency{Code: code, Symbol: symbol, unit: unit}, nil
}

// MustParse is Parse for compile-time constants.
func MustParse(code string) Currency {
	c, err := Parse(code)
	if err != nil {
		panic(err)
	}
	return c
}

// Format renders amount with the currency symbol, digit grouping and the
// currency's standard number of decimals.
func (c Currency) Format(amount float64) string {
	sign, digits := c.number(amount)
	return sign + c.Symbol + digits
}

// FormatCode renders amount prefixed by the ISO code, for outputs whose fonts
// lack the currency symbol.
func (c Currency) FormatCode(amount float64) string {
	sign, digits := c.number(amount)
	return sign + c.Code + " " + digits
}

func (c Currency) number(amount float64) (string, string) {
	scale, _ := currency.Standard.Rounding(c.unit)
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	p := message.NewPrinter(language.English)
	return sign, p.Sprintf(fmt.Sprintf("%%.%df", scale), amount)
}

// Format renders amount in the currency identified by code, falling back to the default.
func Format(amount float64, code string) string {
	c, err := Parse(code)
	if err != nil {
		c = MustParse(Default)
	}
	return c.Format(amount)
}
