package plans

import "strings"

// DefaultCurrency is used when a payload carries no recognizable currency.
const DefaultCurrency = "INR"

var defaultSymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"AUD": "A$",
	"CAD": "C$",
	"SGD": "S$",
	"AED": "د.إ",
	"IDR": "Rp",
}

// CurrencyTable maps ISO currency codes to display symbols and always resolves
// unknown codes to its fallback entry.
type CurrencyTable struct {
	symbols  map[string]string
	fallback string
}

// NewCurrencyTable builds a table from symbols. The fallback code is added
// when missing so lookups never miss.
func NewCurrencyTable(symbols map[string]string, fallback string) CurrencyTable {
	fallback = strings.ToUpper(strings.TrimSpace(fallback))
	if fallback == "" {
		fallback = DefaultCurrency
	}
	table := make(map[string]string, len(symbols)+1)
	for code, sym := range symbols {
		code = strings.ToUpper(strings.TrimSpace(code))
		if len(code) != 3 {
			continue
		}
		table[code] = sym
	}
	if _, ok := table[fallback]; !ok {
		if sym, known := defaultSymbols[fallback]; known {
			table[fallback] = sym
		} else {
			table[fallback] = fallback
		}
	}
	return CurrencyTable{symbols: table, fallback: fallback}
}

// DefaultCurrencyTable returns the built-in table with the given fallback.
func DefaultCurrencyTable(fallback string) CurrencyTable {
	return NewCurrencyTable(defaultSymbols, fallback)
}

// Fallback returns the code used for absent or unknown currencies.
func (t CurrencyTable) Fallback() string {
	if t.fallback == "" {
		return DefaultCurrency
	}
	return t.fallback
}

// Normalize upper-cases code and returns it when known, the fallback otherwise.
func (t CurrencyTable) Normalize(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if _, ok := t.symbols[code]; ok {
		return code
	}
	return t.Fallback()
}

// Symbol returns the display symbol for code.
func (t CurrencyTable) Symbol(code string) string {
	if sym, ok := t.symbols[t.Normalize(code)]; ok {
		return sym
	}
	return t.Fallback()
}
