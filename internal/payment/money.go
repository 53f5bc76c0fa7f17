package payment

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var minorExponent = map[string]int32{
	"BIF": 0, "CLP": 0, "JPY": 0, "KRW": 0, "VND": 0, "XAF": 0, "XOF": 0,
	"BHD": 3, "JOD": 3, "KWD": 3, "OMR": 3, "TND": 3,
}

func exponent(currency string) int32 {
	if e, ok := minorExponent[strings.ToUpper(strings.TrimSpace(currency))]; ok {
		return e
	}
	return 2
}

// ToMinorUnits converts a major-unit amount to the gateway's smallest unit
// (paise for INR, cents for USD), rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal, currency string) (int64, error) {
	if amount.Sign() < 0 {
		return 0, fmt.Errorf("payment: negative amount %s", amount)
	}
	minor := amount.Shift(exponent(currency)).Round(0)
	if !minor.IsInteger() || minor.GreaterThan(decimal.NewFromInt(1<<53)) {
		return 0, fmt.Errorf("payment: amount %s out of range", amount)
	}
	return minor.IntPart(), nil
}

// FromMinorUnits converts a gateway amount back to major units.
func FromMinorUnits(minor int64, currency string) decimal.Decimal {
	return decimal.New(minor, -exponent(currency))
}
