package observe

import "github.com/itsmrshow/foreman/internal/world"

// Clock supplies the current world time.
type Clock interface {
	Now() world.Tick
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() world.Tick

func (f ClockFunc) Now() world.Tick { return f() }

// ManualClock is a Clock advanced explicitly by the orchestration layer.
type ManualClock struct {
	tick world.Tick
}

// NewManualClock returns a clock positioned at tick.
func NewManualClock(tick world.Tick) *ManualClock {
	return &ManualClock{tick: tick}
}

func (c *ManualClock) Now() world.Tick { return c.tick }

// Set moves the clock to tick.
func (c *ManualClock) Set(tick world.Tick) { c.tick = tick }

// Advance moves the clock forward by n ticks.
func (c *ManualClock) Advance(n world.Tick) { c.tick += n }
