package clock

import (
	"sync"
	"time"

	"go.uber.org/fx"
)

// Clock supplies the current instant for every expiry comparison.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

// Now returns UTC truncated to microseconds so values round-trip through
// postgres timestamps unchanged.
func (realClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func New() Clock { return realClock{} }

// Fixed is a settable clock for tests.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now.UTC().Truncate(time.Microsecond)}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fixed) Set(now time.Time) {
	f.mu.Lock()
	f.now = now.UTC().Truncate(time.Microsecond)
	f.mu.Unlock()
}

func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

var Module = fx.Options(
	fx.Provide(New),
)
