// Package catalog knows which markets exist upstream. The listing is cached for an hour and
// shared by every surface that validates a market code.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/leonid6372/upbit-paper/internal/common/domain"
	"github.com/leonid6372/upbit-paper/internal/traderrs"
	"github.com/patrickmn/go-cache"
)

const (
	TTL      = time.Hour
	cacheKey = "markets"
)

type listing struct {
	markets []*domain.Market
	codes   map[string]struct{}
}

type Catalog struct {
	client domain.MarketsClient
	cache  *cache.Cache
}

func New(client domain.MarketsClient) *Catalog {
	return &Catalog{
		client: client,
		cache:  cache.New(TTL, 2*TTL),
	}
}

// List returns the upstream markets in upstream order.
func (c *Catalog) List(ctx context.Context) ([]*domain.Market, error) {
	l, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	return l.markets, nil
}

// Check returns ErrUnknownMarket when code is not listed upstream.
func (c *Catalog) Check(ctx context.Context, code string) error {
	l, err := c.load(ctx)
	if err != nil {
		return err
	}

	if _, ok := l.codes[code]; !ok {
		return fmt.Errorf("%w: %s", traderrs.ErrUnknownMarket, code)
	}

	return nil
}

// Split partitions codes into listed and unlisted ones, keeping their order.
func (c *Catalog) Split(ctx context.Context, codes []string) (known, unknown []string, err error) {
	l, err := c.load(ctx)
	if err != nil {
		return nil, nil, err
	}

	for _, code := range codes {
		if _, ok := l.codes[code]; ok {
			known = append(known, code)
		} else {
			unknown = append(unknown, code)
		}
	}

	return known, unknown, nil
}

func (c *Catalog) load(ctx context.Context) (*listing, error) {
	if l, ok := c.cache.Get(cacheKey); ok {
		return l.(*listing), nil
	}

	markets, err := c.client.GetMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", traderrs.ErrMarketsUnavailable, err)
	}

	l := &listing{
		markets: markets,
		codes:   make(map[string]struct{}, len(markets)),
	}

	for _, m := range markets {
		l.codes[m.Code] = struct{}{}
	}

	c.cache.SetDefault(cacheKey, l)

	return l, nil
}
