package ticker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/leonid6372/upbit-paper/internal/common/domain"
	"github.com/shopspring/decimal"
)

const waitTimeout = 2 * time.Second

type fakeClock struct {
	mu        sync.Mutex
	now       time.Time
	intervals []*fakeInterval
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) NewInterval(time.Duration) Interval {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := &fakeInterval{c: make(chan time.Time)}
	c.intervals = append(c.intervals, i)

	return i
}

func (c *fakeClock) last(t *testing.T) *fakeInterval {
	t.Helper()

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.intervals) == 0 {
		t.Fatal("no interval created")
	}

	return c.intervals[len(c.intervals)-1]
}

type fakeInterval struct {
	c chan time.Time

	mu      sync.Mutex
	resets  int
	stopped bool
}

func (i *fakeInterval) C() <-chan time.Time { return i.c }

func (i *fakeInterval) Reset(time.Duration) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.resets++
}

func (i *fakeInterval) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.stopped = true
}

func (i *fakeInterval) Resets() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.resets
}

func (i *fakeInterval) Stopped() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.stopped
}

// fire delivers a tick and blocks until the polling loop has taken it.
func (i *fakeInterval) fire(t *testing.T) {
	t.Helper()

	select {
	case i.c <- time.Now():
	case <-time.After(waitTimeout):
		t.Fatal("tick was not consumed")
	}
}

type fetchResult struct {
	tickers []*domain.Ticker
	err     error
}

type fetchCall struct {
	codes []string
	reply chan fetchResult
}

// fakeClient hands every fetch to the test and blocks until the test replies.
type fakeClient struct {
	calls chan fetchCall
}

func newFakeClient() *fakeClient {
	return &fakeClient{calls: make(chan fetchCall)}
}

func (f *fakeClient) GetTickers(ctx context.Context, codes []string) ([]*domain.Ticker, error) {
	call := fetchCall{codes: codes, reply: make(chan fetchResult, 1)}

	select {
	case f.calls <- call:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-call.reply:
		return r.tickers, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeClient) next(t *testing.T) fetchCall {
	t.Helper()

	select {
	case call := <-f.calls:
		return call
	case <-time.After(waitTimeout):
		t.Fatal("expected a fetch")
	}

	return fetchCall{}
}

func (f *fakeClient) none(t *testing.T) {
	t.Helper()

	select {
	case call := <-f.calls:
		t.Fatalf("unexpected fetch of %v", call.codes)
	case <-time.After(50 * time.Millisecond):
	}
}

func tickers(prices map[string]string) []*domain.Ticker {
	res := make([]*domain.Ticker, 0, len(prices))
	for code, price := range prices {
		res = append(res, &domain.Ticker{
			Code:       code,
			TradePrice: decimal.RequireFromString(price),
		})
	}

	return res
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}

		time.Sleep(time.Millisecond)
	}
}

func newTestRegistry(t *testing.T) (*Registry, *fakeClient, *fakeClock) {
	t.Helper()

	client := newFakeClient()
	clock := newFakeClock()
	r := NewRegistry(context.Background(), client, WithClock(clock))

	t.Cleanup(r.Close)

	return r, client, clock
}
