// Package currency converts catalog prices (USD) into the gateway currency (VND).
package currency

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultUSDToVNDRate is used whenever no positive rate is configured.
var DefaultUSDToVNDRate = decimal.NewFromInt(25000)

// Converter holds the configured exchange rate.
type Converter struct {
	rate decimal.Decimal
}

// NewConverter returns a converter for rate, falling back to the default when
// the rate is zero or negative.
func NewConverter(rate decimal.Decimal) Converter {
	if !rate.IsPositive() {
		rate = DefaultUSDToVNDRate
	}
	return Converter{rate: rate}
}

// Rate reports the effective exchange rate.
func (c Converter) Rate() decimal.Decimal {
	if !c.rate.IsPositive() {
		return DefaultUSDToVNDRate
	}
	return c.rate
}

// ToVND converts a USD amount to whole dong, rounding half away from zero.
func (c Converter) ToVND(usd decimal.Decimal) (int64, error) {
	if usd.IsNegative() {
		return 0, fmt.Errorf("amount must not be negative: %s", usd)
	}
	vnd := usd.Mul(c.Rate()).Round(0)
	if !vnd.IsInteger() || vnd.GreaterThan(decimal.NewFromInt(maxVND)) {
		return 0, fmt.Errorf("converted amount out of range: %s", vnd)
	}
	return vnd.IntPart(), nil
}

// Gateway amounts are carried as VND*100 in an int64.
const maxVND = int64(1<<63-1) / 100

// GatewayAmount scales whole dong into the gateway's minor-unit representation.
func GatewayAmount(vnd int64) int64 {
	return vnd * 100
}
