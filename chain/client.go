package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"
)

// Options bound the RPC load a single run can generate.
type Options struct {
	Timeout           time.Duration // per-call timeout
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultOptions returns conservative client settings.
func DefaultOptions() Options {
	return Options{
		Timeout:           10 * time.Second,
		RequestsPerSecond: 20,
		BurstSize:         40,
	}
}

// Client wraps an ethclient with a per-call timeout and a rate limiter so a
// hung call never stalls a whole batch and fan-out cannot overrun the node.
type Client struct {
	eth     *ethclient.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// Dial connects to an RPC endpoint.
func Dial(endpoint string, opts Options) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("rpc endpoint not configured")
	}

	eth, err := ethclient.Dial(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}

	return NewClient(eth, opts), nil
}

// NewClient wraps an existing ethclient.
func NewClient(eth *ethclient.Client, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = DefaultOptions().RequestsPerSecond
	}
	if opts.BurstSize <= 0 {
		opts.BurstSize = DefaultOptions().BurstSize
	}

	return &Client{
		eth:     eth,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.BurstSize),
		timeout: opts.Timeout,
	}
}

// CallContract executes a view call with rate limiting and a bounded timeout.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.eth.CallContract(ctx, msg, blockNumber)
}

// HeaderByNumber returns a block header (nil for latest).
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.eth.HeaderByNumber(ctx, number)
}

// SuggestGasTipCap returns the node's suggested priority fee.
func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.eth.SuggestGasTipCap(ctx)
}

// ChainID returns the connected chain's ID.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.eth.ChainID(ctx)
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.eth.Close()
}
