package sim

import (
	"math"

	"github.com/pthm-cable/photovore/config"
)

// Clock tracks simulated time: completed ticks, solar hour of day and
// the generation counter. Monotonic; a run never rewinds it.
type Clock struct {
	tick       int64
	generation uint32

	tickSeconds        float64
	secondsPerHour     float64
	startHour          float64
	ticksPerGeneration int64
}

// NewClock builds a clock from the scenario's timing parameters.
func NewClock(sc config.SimulationConfig, ticksPerGeneration int) *Clock {
	if ticksPerGeneration < 1 {
		ticksPerGeneration = 1
	}
	return &Clock{
		tickSeconds:        sc.TickSeconds,
		secondsPerHour:     sc.SecondsPerHour,
		startHour:          sc.StartHour,
		ticksPerGeneration: int64(ticksPerGeneration),
	}
}

// Tick returns the number of completed ticks.
func (c *Clock) Tick() int64 { return c.tick }

// Generation returns the current generation number.
func (c *Clock) Generation() uint32 { return c.generation }

// TickSeconds returns the simulated duration of one tick.
func (c *Clock) TickSeconds() float64 { return c.tickSeconds }

// SimSeconds returns the simulated seconds elapsed since the start.
func (c *Clock) SimSeconds() float64 {
	return float64(c.tick) * c.tickSeconds
}

// HourOfDay returns the solar time in [0,24).
func (c *Clock) HourOfDay() float64 {
	hour := math.Mod(c.startHour+c.SimSeconds()/c.secondsPerHour, 24)
	if hour < 0 {
		hour += 24
	}
	return hour
}

// Advance moves the clock one tick and reports whether the completed
// tick closes a generation.
func (c *Clock) Advance() bool {
	c.tick++
	return c.tick%c.ticksPerGeneration == 0
}

// NextGeneration bumps the generation counter once a boundary has
// been processed.
func (c *Clock) NextGeneration() {
	c.generation++
}
