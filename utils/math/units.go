package math

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseUnits converts a decimal string (e.g. "1.5") into an integer amount
// in the token's smallest unit.
func ParseUnits(value string, decimals uint8) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("empty amount")
	}

	r, ok := new(big.Rat).SetString(value)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if r.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", value)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))
	if !r.IsInt() {
		return nil, fmt.Errorf("amount %q has more than %d decimal places", value, decimals)
	}

	return new(big.Int).Set(r.Num()), nil
}

// FormatUnits converts an integer amount in the smallest unit into a float
// in whole-token units. Precision loss beyond float64 is acceptable here;
// formatted values are only used for rates and display.
func FormatUnits(amount *big.Int, decimals uint8) float64 {
	if amount == nil {
		return 0
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	f := new(big.Float).SetInt(amount)
	f.Quo(f, new(big.Float).SetInt(scale))

	out, _ := f.Float64()
	return out
}
