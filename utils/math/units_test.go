package math

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnits(t *testing.T) {
	amount, err := ParseUnits("1.5", 18)
	require.NoError(t, err)
	expected, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, 0, amount.Cmp(expected))

	amount, err = ParseUnits("2500", 6)
	require.NoError(t, err)
	assert.Equal(t, int64(2500000000), amount.Int64())

	amount, err = ParseUnits("0.000001", 6)
	require.NoError(t, err)
	assert.Equal(t, int64(1), amount.Int64())
}

func TestParseUnitsRejectsInvalid(t *testing.T) {
	_, err := ParseUnits("", 18)
	assert.Error(t, err)

	_, err = ParseUnits("abc", 18)
	assert.Error(t, err)

	_, err = ParseUnits("-1", 18)
	assert.Error(t, err)

	// More precision than the token can represent.
	_, err = ParseUnits("0.0000001", 6)
	assert.Error(t, err)
}

func TestFormatUnits(t *testing.T) {
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.InDelta(t, 1.5, FormatUnits(wei, 18), 1e-12)

	assert.InDelta(t, 2500, FormatUnits(big.NewInt(2500000000), 6), 1e-9)
	assert.Equal(t, 0.0, FormatUnits(nil, 18))
	assert.Equal(t, 0.0, FormatUnits(big.NewInt(0), 18))
}

func TestParseFormatRoundTrip(t *testing.T) {
	amount, err := ParseUnits("123.456", 8)
	require.NoError(t, err)
	assert.InDelta(t, 123.456, FormatUnits(amount, 8), 1e-9)
}
