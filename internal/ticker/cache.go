package ticker

import (
	"sort"
	"sync"
	"time"

	"github.com/leonid6372/upbit-paper/internal/common/domain"
)

type Status int

const (
	// StatusIdle means there are no subscribers and no timer running.
	StatusIdle Status = iota
	// StatusConnecting means subscribers are present and the first fetch has not completed.
	StatusConnecting
	// StatusConnected means the most recent fetch succeeded.
	StatusConnected
	// StatusDegraded means the most recent fetch failed and stale snapshots are served.
	StatusDegraded
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Cache holds the latest snapshot per market and the connectivity status. Only the
// scheduler writes to it; readers never block on a fetch.
type Cache struct {
	mu sync.RWMutex

	tickers   map[string]*domain.Ticker
	status    Status
	updatedAt time.Time

	changed chan struct{}
}

func NewCache() *Cache {
	return &Cache{
		tickers: make(map[string]*domain.Ticker),
		status:  StatusIdle,
		changed: make(chan struct{}),
	}
}

// Latest returns the most recent snapshot of code. The snapshot must be treated as read-only.
func (c *Cache) Latest(code string) (*domain.Ticker, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.tickers[code]
	return t, ok
}

// Select returns the known snapshots of codes. Codes without a snapshot are left out.
func (c *Cache) Select(codes []string) map[string]*domain.Ticker {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := make(map[string]*domain.Ticker, len(codes))
	for _, code := range codes {
		if t, ok := c.tickers[code]; ok {
			res[code] = t
		}
	}

	return res
}

// All returns every snapshot ordered by code.
func (c *Cache) All() []*domain.Ticker {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := make([]*domain.Ticker, 0, len(c.tickers))
	for _, t := range c.tickers {
		res = append(res, t)
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].Code < res[j].Code
	})

	return res
}

func (c *Cache) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.status
}

// UpdatedAt is the time of the last successful batch, zero if none since the last reset.
func (c *Cache) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.updatedAt
}

// Changed returns a channel closed on the next batch or status change.
func (c *Cache) Changed() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.changed
}

// replace swaps the whole snapshot batch and marks the cache connected.
func (c *Cache) replace(tickers []*domain.Ticker, at time.Time) {
	batch := make(map[string]*domain.Ticker, len(tickers))
	for _, t := range tickers {
		batch[t.Code] = t
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.tickers = batch
	c.status = StatusConnected
	c.updatedAt = at
	c.notifyLocked()
}

func (c *Cache) setStatus(status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == status {
		return
	}

	c.status = status
	c.notifyLocked()
}

// connecting moves an idle cache to StatusConnecting and leaves any other status alone.
func (c *Cache) connecting() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusIdle {
		return
	}

	c.status = StatusConnecting
	c.notifyLocked()
}

// reset drops every snapshot and goes idle.
func (c *Cache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tickers = make(map[string]*domain.Ticker)
	c.status = StatusIdle
	c.updatedAt = time.Time{}
	c.notifyLocked()
}

func (c *Cache) notifyLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}
