package poller

import "time"

// Clock creates tickers. Tests substitute a manual clock to drive ticks.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// Ticker is the subset of *time.Ticker the poller needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// SystemClock is the wall clock.
type SystemClock struct{}

// NewTicker wraps time.NewTicker.
func (SystemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{ticker: time.NewTicker(d)}
}

type systemTicker struct {
	ticker *time.Ticker
}

func (t *systemTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t *systemTicker) Stop() {
	t.ticker.Stop()
}
