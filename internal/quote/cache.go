package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Cache keeps the last successful quote per network in Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

type cachedQuote struct {
	BlockHeight uint64    `json:"block_height"`
	GasPriceWei string    `json:"gas_price_wei"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// NewCache constructs a quote cache. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached quote, or nil on a miss.
func (c *Cache) Get(ctx context.Context, network Network) (*Quote, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, cacheKey(network)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached quote: %w", err)
	}

	var cached cachedQuote
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("decode cached quote: %w", err)
	}

	gas, ok := new(big.Int).SetString(cached.GasPriceWei, 10)
	if !ok {
		return nil, fmt.Errorf("decode cached gas price %q", cached.GasPriceWei)
	}

	return &Quote{
		Network:     network,
		BlockHeight: cached.BlockHeight,
		GasPrice:    gas,
		FetchedAt:   cached.FetchedAt,
	}, nil
}

// Set stores q for the cache TTL. Failed quotes are never cached.
func (c *Cache) Set(ctx context.Context, q Quote) error {
	if c == nil || c.client == nil || !q.OK() {
		return nil
	}

	payload, err := json.Marshal(cachedQuote{
		BlockHeight: q.BlockHeight,
		GasPriceWei: q.GasPrice.String(),
		FetchedAt:   q.FetchedAt,
	})
	if err != nil {
		return fmt.Errorf("encode quote for cache: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(q.Network), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached quote: %w", err)
	}

	return nil
}

// Invalidate drops the cached quote.
func (c *Cache) Invalidate(ctx context.Context, network Network) error {
	if c == nil || c.client == nil {
		return nil
	}

	if err := c.client.Del(ctx, cacheKey(network)).Err(); err != nil {
		return fmt.Errorf("delete cached quote: %w", err)
	}

	return nil
}

func cacheKey(network Network) string {
	return fmt.Sprintf("koi:quote:%d", network.ChainID)
}
