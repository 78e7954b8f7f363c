package ticker

import "time"

// Clock is the time source of the scheduler.
type Clock interface {
	Now() time.Time
	NewInterval(d time.Duration) Interval
}

// Interval is a repeating timer.
type Interval interface {
	C() <-chan time.Time
	Reset(d time.Duration)
	Stop()
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewInterval(d time.Duration) Interval {
	return &realInterval{t: time.NewTicker(d)}
}

type realInterval struct {
	t *time.Ticker
}

func (i *realInterval) C() <-chan time.Time   { return i.t.C }
func (i *realInterval) Reset(d time.Duration) { i.t.Reset(d) }
func (i *realInterval) Stop()                 { i.t.Stop() }
