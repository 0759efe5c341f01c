package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts wall-clock access so services can be pinned to a
// fixed instant in tests and during dataset generation.
type Clock interface {
	Now() time.Time
}

// Module provides the system clock.
var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)

type systemClock struct{}

// NewSystemClock returns a Clock backed by time.Now.
func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
