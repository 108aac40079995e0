package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock provides time operations that can be mocked for testing
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// New returns a Clock backed by the system clock
func New() Clock {
	return clockwork.NewRealClock()
}
