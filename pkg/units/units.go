// Package units converts between DUSK, the display unit, and LUX, the base
// unit notes are denominated in.
package units

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// LuxPerDusk is the number of LUX in one DUSK.
const LuxPerDusk = 1_000_000_000

// Decimals is the number of fractional digits of a DUSK amount.
const Decimals = 9

var (
	ErrNegativeAmount = errors.New("units: negative amount")
	ErrAmountOverflow = errors.New("units: amount exceeds the LUX range")
	ErrPrecision      = errors.New("units: amount has more than 9 decimals")
)

var (
	luxPerDusk = decimal.NewFromInt(LuxPerDusk)
	maxLux     = decimal.NewFromBigInt(new(big.Int).SetUint64(^uint64(0)), 0)
)

// LuxToDusk converts a LUX amount to DUSK.
func LuxToDusk(lux uint64) decimal.Decimal {
	return decimal.NewFromUint64(lux).Div(luxPerDusk)
}

// SignedLuxToDusk converts a possibly negative LUX amount to DUSK.
func SignedLuxToDusk(lux decimal.Decimal) decimal.Decimal {
	return lux.Div(luxPerDusk)
}

// DuskToLux converts a DUSK amount to LUX. The amount must be
// non-negative, fit a uint64 and have at most Decimals fractional digits.
func DuskToLux(dusk decimal.Decimal) (uint64, error) {
	if dusk.IsNegative() {
		return 0, ErrNegativeAmount
	}
	lux := dusk.Mul(luxPerDusk)
	if !lux.IsInteger() {
		return 0, ErrPrecision
	}
	if lux.GreaterThan(maxLux) {
		return 0, ErrAmountOverflow
	}
	return lux.BigInt().Uint64(), nil
}

// ParseDusk parses a decimal DUSK string into LUX.
func ParseDusk(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("units: invalid amount %q: %w", s, err)
	}
	return DuskToLux(d)
}

// FormatDusk renders a LUX amount as a DUSK string without trailing zeros.
func FormatDusk(lux uint64) string {
	return LuxToDusk(lux).String()
}
