package dex

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// erc20Caller answers decimals() and symbol() per configured token, counting
// calls so memoization can be asserted.
type erc20Caller struct {
	t         *testing.T
	abi       abi.ABI
	decimals  uint8
	symbol    string
	name      string
	symbolErr error
	calls     int
}

func newERC20Caller(t *testing.T, decimals uint8, symbol, name string, symbolErr error) *erc20Caller {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJson))
	require.NoError(t, err)
	return &erc20Caller{t: t, abi: parsed, decimals: decimals, symbol: symbol, name: name, symbolErr: symbolErr}
}

func (c *erc20Caller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	c.calls++
	switch {
	case bytes.Equal(msg.Data, c.abi.Methods["decimals"].ID):
		out, err := c.abi.Methods["decimals"].Outputs.Pack(c.decimals)
		require.NoError(c.t, err)
		return out, nil
	case bytes.Equal(msg.Data, c.abi.Methods["symbol"].ID):
		if c.symbolErr != nil {
			return nil, c.symbolErr
		}
		out, err := c.abi.Methods["symbol"].Outputs.Pack(c.symbol)
		require.NoError(c.t, err)
		return out, nil
	case bytes.Equal(msg.Data, c.abi.Methods["name"].ID):
		out, err := c.abi.Methods["name"].Outputs.Pack(c.name)
		require.NoError(c.t, err)
		return out, nil
	}
	return nil, errors.New("unexpected call")
}

func TestTokenCacheResolvesMetadata(t *testing.T) {
	caller := newERC20Caller(t, 6, "USDC", "USD Coin", nil)
	cache, err := NewTokenCache(caller, 16, nil)
	require.NoError(t, err)

	ref := cache.Resolve(context.Background(), usdc.Address)
	assert.Equal(t, usdc.Address, ref.Address)
	assert.Equal(t, uint8(6), ref.Decimals)
	assert.Equal(t, "USDC", ref.Symbol)
	assert.Equal(t, "USD Coin", ref.Name)
}

func TestTokenCacheMemoizes(t *testing.T) {
	caller := newERC20Caller(t, 18, "WETH", "Wrapped Ether", nil)
	cache, err := NewTokenCache(caller, 16, nil)
	require.NoError(t, err)

	first := cache.Resolve(context.Background(), weth.Address)
	callsAfterFirst := caller.calls
	second := cache.Resolve(context.Background(), weth.Address)

	assert.Equal(t, first, second)
	assert.Equal(t, callsAfterFirst, caller.calls)
}

func TestTokenCacheFieldsDefaultIndependently(t *testing.T) {
	// symbol() reverts but decimals() and name() work: the real values
	// survive alongside the defaulted symbol.
	caller := newERC20Caller(t, 8, "", "Wrapped Bitcoin", errors.New("execution reverted"))
	cache, err := NewTokenCache(caller, 16, nil)
	require.NoError(t, err)

	ref := cache.Resolve(context.Background(), weth.Address)
	assert.Equal(t, uint8(8), ref.Decimals)
	assert.Equal(t, DefaultSymbol, ref.Symbol)
	assert.Equal(t, "Wrapped Bitcoin", ref.Name)
}

func TestTokenCacheDefaultsOnTotalFailure(t *testing.T) {
	caller := &fakeCaller{fn: func(msg ethereum.CallMsg) ([]byte, error) {
		return nil, errors.New("connection refused")
	}}
	cache, err := NewTokenCache(caller, 16, nil)
	require.NoError(t, err)

	ref := cache.Resolve(context.Background(), weth.Address)
	assert.Equal(t, DefaultDecimals, ref.Decimals)
	assert.Equal(t, DefaultSymbol, ref.Symbol)
	assert.Equal(t, DefaultName, ref.Name)
}
