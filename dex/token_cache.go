package dex

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

const erc20ABIJson = `[{
	"constant": true,
	"inputs": [],
	"name": "decimals",
	"outputs": [{"name": "", "type": "uint8"}],
	"payable": false,
	"stateMutability": "view",
	"type": "function"
}, {
	"constant": true,
	"inputs": [],
	"name": "symbol",
	"outputs": [{"name": "", "type": "string"}],
	"payable": false,
	"stateMutability": "view",
	"type": "function"
}, {
	"constant": true,
	"inputs": [],
	"name": "name",
	"outputs": [{"name": "", "type": "string"}],
	"payable": false,
	"stateMutability": "view",
	"type": "function"
}]`

// Defaults used when metadata resolution fails.
const (
	DefaultDecimals = uint8(18)
	DefaultSymbol   = "UNKNOWN"
	DefaultName     = "Unknown Token"
)

// TokenCache resolves and memoizes token metadata for the lifetime of one
// scan process. Safe for concurrent use; the only mutable state shared
// across quote fetches within a run.
type TokenCache struct {
	caller   Caller
	erc20ABI abi.ABI
	cache    *lru.Cache
	logger   *zap.Logger
}

// NewTokenCache creates a metadata cache holding up to size tokens.
func NewTokenCache(caller Caller, size int, logger *zap.Logger) (*TokenCache, error) {
	parsedABI, err := abi.JSON(strings.NewReader(erc20ABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}

	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create token cache: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TokenCache{
		caller:   caller,
		erc20ABI: parsedABI,
		cache:    cache,
		logger:   logger,
	}, nil
}

// Resolve returns the token metadata for an address, fetching and memoizing
// it on first use. Each field resolves independently and defaults
// independently: a token whose symbol() reverts still yields real decimals.
func (c *TokenCache) Resolve(ctx context.Context, address common.Address) TokenRef {
	if cached, ok := c.cache.Get(address); ok {
		return cached.(TokenRef)
	}

	ref := TokenRef{
		Address:  address,
		Decimals: DefaultDecimals,
		Symbol:   DefaultSymbol,
		Name:     DefaultName,
	}

	if decimals, err := c.callUint8(ctx, address, "decimals"); err == nil {
		ref.Decimals = decimals
	} else {
		c.logger.Debug("decimals resolution failed, using default",
			zap.String("token", address.Hex()),
			zap.Error(err),
		)
	}

	if symbol, err := c.callString(ctx, address, "symbol"); err == nil && symbol != "" {
		ref.Symbol = symbol
	} else if err != nil {
		c.logger.Debug("symbol resolution failed, using default",
			zap.String("token", address.Hex()),
			zap.Error(err),
		)
	}

	if name, err := c.callString(ctx, address, "name"); err == nil && name != "" {
		ref.Name = name
	} else if err != nil {
		c.logger.Debug("name resolution failed, using default",
			zap.String("token", address.Hex()),
			zap.Error(err),
		)
	}

	c.cache.Add(address, ref)
	return ref
}

func (c *TokenCache) callUint8(ctx context.Context, address common.Address, method string) (uint8, error) {
	out, err := c.call(ctx, address, method)
	if err != nil {
		return 0, err
	}

	decoded, err := c.erc20ABI.Unpack(method, out)
	if err != nil {
		return 0, fmt.Errorf("failed to decode %s: %w", method, err)
	}

	value, ok := decoded[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected %s type", method)
	}
	return value, nil
}

func (c *TokenCache) callString(ctx context.Context, address common.Address, method string) (string, error) {
	out, err := c.call(ctx, address, method)
	if err != nil {
		return "", err
	}

	decoded, err := c.erc20ABI.Unpack(method, out)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", method, err)
	}

	value, ok := decoded[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected %s type", method)
	}
	return value, nil
}

func (c *TokenCache) call(ctx context.Context, address common.Address, method string) ([]byte, error) {
	data, err := c.erc20ABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	return c.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &address,
		Data: data,
	}, nil)
}
