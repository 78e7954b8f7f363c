package ticker

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/leonid6372/upbit-paper/internal/common/domain"
	"github.com/leonid6372/upbit-paper/pkg/log"
	"go.uber.org/zap"
)

// PollInterval is the polling cadence allowed by the Upbit rate limit. Do not lower it.
const PollInterval = 10 * time.Second

// Client fetches the latest tickers of codes in a single round trip.
type Client interface {
	GetTickers(ctx context.Context, codes []string) ([]*domain.Ticker, error)
}

// Scheduler polls Client for the effective set it was last handed. It is either stopped
// or running; while running at most one fetch is in flight. Ticks that fire during a fetch
// are dropped, a set change during a fetch is remembered in pending and fetched as soon as
// the outstanding one lands.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc

	client Client
	cache  *Cache
	clock  Clock

	mu       sync.Mutex
	codes    []string
	running  bool
	inFlight bool
	pending  bool
	interval Interval
	stop     chan struct{}

	wg sync.WaitGroup
}

func NewScheduler(ctx context.Context, client Client, cache *Cache, clock Clock) *Scheduler {
	ctx, cancel := context.WithCancel(ctx)

	return &Scheduler{
		ctx:    ctx,
		cancel: cancel,
		client: client,
		cache:  cache,
		clock:  clock,
	}
}

// Update hands the scheduler a recomputed effective set. codes must be sorted and free of
// duplicates; the scheduler keeps the slice, so callers must not modify it afterwards.
// While running every call fetches at once, even when the set is unchanged, and restarts
// the interval. Update never waits for the network.
func (s *Scheduler) Update(codes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := !slices.Equal(codes, s.codes)
	s.codes = codes

	if len(codes) == 0 {
		if s.running {
			s.stopLocked()
			s.cache.reset()
			log.Info("ticker polling stopped")
		}

		return
	}

	if !s.running {
		s.running = true
		s.interval = s.clock.NewInterval(PollInterval)
		s.stop = make(chan struct{})

		s.wg.Add(1)
		go s.loop(s.interval, s.stop)

		log.Info("ticker polling started", zap.Strings("codes", codes))
	} else {
		s.interval.Reset(PollInterval)

		if changed {
			log.Debug("ticker effective set changed", zap.Strings("codes", codes))
		}
	}

	s.fetchLocked()
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

func (s *Scheduler) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inFlight
}

// Close stops polling, cancels an outstanding fetch and waits for the goroutines to exit.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.running {
		s.stopLocked()
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) stopLocked() {
	s.running = false
	s.pending = false
	s.interval.Stop()
	close(s.stop)
}

func (s *Scheduler) loop(interval Interval, stop <-chan struct{}) {
	defer s.wg.Done()

	for {
		select {
		case <-stop:
			return
		case <-s.ctx.Done():
			return
		case <-interval.C():
			s.tick(stop)
		}
	}
}

func (s *Scheduler) tick(stop <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// the tick may belong to a run that has been stopped in the meantime
	if !s.running || s.stop != stop {
		return
	}

	if s.inFlight {
		log.Debug("tick coalesced into in-flight fetch")
		return
	}

	s.fetchLocked()
}

func (s *Scheduler) fetchLocked() {
	s.cache.connecting()

	if s.inFlight {
		s.pending = true
		return
	}

	s.inFlight = true

	s.wg.Add(1)
	go s.fetch(s.codes)
}

func (s *Scheduler) fetch(codes []string) {
	defer s.wg.Done()

	log.Debug("fetching tickers", zap.Strings("codes", codes))

	tickers, err := s.client.GetTickers(s.ctx, codes)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.inFlight = false

	if !s.running {
		log.Debug("fetch result discarded: polling stopped", zap.Strings("codes", codes))
		return
	}

	switch batch := s.current(tickers); {
	case err != nil:
		log.Warn("tickers fetch failed", zap.Strings("codes", codes), zap.Error(err))
		s.cache.setStatus(StatusDegraded)
	case len(batch) == 0 && !slices.Equal(codes, s.codes):
		// nothing of the current set yet, the pending fetch will bring it
		log.Debug("stale fetch result discarded", zap.Strings("codes", codes))
	default:
		s.cache.replace(batch, s.clock.Now())
	}

	if s.pending {
		s.pending = false
		s.fetchLocked()
	}
}

// current drops snapshots of codes that left the effective set while the fetch was out.
func (s *Scheduler) current(tickers []*domain.Ticker) []*domain.Ticker {
	res := make([]*domain.Ticker, 0, len(tickers))
	for _, t := range tickers {
		if t == nil {
			continue
		}

		if _, ok := slices.BinarySearch(s.codes, t.Code); ok {
			res = append(res, t)
		}
	}

	return res
}
