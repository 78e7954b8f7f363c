// Package ticker multiplexes the market interests of independent consumers onto a single
// Upbit polling loop and fans the results out through a shared cache.
package ticker

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Handle identifies a consumer of the registry.
type Handle string

// NewHandle mints a unique handle for consumers without an identity of their own.
func NewHandle(prefix string) Handle {
	return Handle(prefix + "-" + uuid.NewString())
}

type Option func(*options)

type options struct {
	clock Clock
}

func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// Registry keeps the interest set of every consumer and drives the scheduler with their union.
type Registry struct {
	mu          sync.Mutex
	subscribers map[Handle]map[string]struct{}

	scheduler *Scheduler
	cache     *Cache
}

func NewRegistry(ctx context.Context, client Client, opts ...Option) *Registry {
	o := &options{clock: realClock{}}
	for _, opt := range opts {
		opt(o)
	}

	cache := NewCache()

	return &Registry{
		subscribers: make(map[Handle]map[string]struct{}),
		scheduler:   NewScheduler(ctx, client, cache, o.clock),
		cache:       cache,
	}
}

// Subscribe replaces the interest set of h with codes. An empty set is allowed.
func (r *Registry) Subscribe(h Handle, codes []string) {
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if code != "" {
			set[code] = struct{}{}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.subscribers[h] = set
	r.scheduler.Update(r.effectiveSetLocked())
}

// Unsubscribe forgets h. Unknown handles are ignored.
func (r *Registry) Unsubscribe(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subscribers[h]; !ok {
		return
	}

	delete(r.subscribers, h)
	r.scheduler.Update(r.effectiveSetLocked())
}

// EffectiveSet returns the sorted union of every consumer's interest set.
func (r *Registry) EffectiveSet() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.effectiveSetLocked()
}

func (r *Registry) effectiveSetLocked() []string {
	union := make(map[string]struct{})
	for _, set := range r.subscribers {
		for code := range set {
			union[code] = struct{}{}
		}
	}

	codes := make([]string, 0, len(union))
	for code := range union {
		codes = append(codes, code)
	}

	sort.Strings(codes)

	return codes
}

func (r *Registry) Subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.subscribers)
}

func (r *Registry) Cache() *Cache {
	return r.cache
}

func (r *Registry) Running() bool {
	return r.scheduler.Running()
}

// Close stops polling for good. The registry must not be used afterwards.
func (r *Registry) Close() {
	r.scheduler.Close()
}
