package sim

import (
	"math"
	"testing"

	"github.com/pthm-cable/photovore/config"
)

func testClock(tickSeconds, secondsPerHour, startHour float64, tpg int) *Clock {
	return NewClock(config.SimulationConfig{
		TickSeconds:    tickSeconds,
		SecondsPerHour: secondsPerHour,
		StartHour:      startHour,
	}, tpg)
}

func TestClock_HourOfDayAdvances(t *testing.T) {
	// 60 sim seconds per solar hour, 1 s ticks, dawn start.
	c := testClock(1, 60, 6, 1000)

	if got := c.HourOfDay(); got != 6 {
		t.Fatalf("hour at tick 0 = %v, want 6", got)
	}
	for i := 0; i < 90; i++ {
		c.Advance()
	}
	if got := c.HourOfDay(); math.Abs(got-7.5) > 1e-9 {
		t.Errorf("hour after 90 s = %v, want 7.5", got)
	}
}

func TestClock_HourOfDayWraps(t *testing.T) {
	c := testClock(1, 60, 23, 10000)

	// 2 solar hours past a 23:00 start crosses midnight.
	for i := 0; i < 120; i++ {
		c.Advance()
	}
	if got := c.HourOfDay(); math.Abs(got-1) > 1e-9 {
		t.Errorf("hour = %v, want 1", got)
	}

	// A full day later it reads the same.
	for i := 0; i < 24*60; i++ {
		c.Advance()
	}
	if got := c.HourOfDay(); math.Abs(got-1) > 1e-9 {
		t.Errorf("hour after full day = %v, want 1", got)
	}
}

func TestClock_BoundaryCadence(t *testing.T) {
	c := testClock(1, 60, 0, 30)

	var boundaries []int64
	for i := 0; i < 95; i++ {
		if c.Advance() {
			boundaries = append(boundaries, c.Tick())
		}
	}

	want := []int64{30, 60, 90}
	if len(boundaries) != len(want) {
		t.Fatalf("boundaries = %v, want %v", boundaries, want)
	}
	for i := range want {
		if boundaries[i] != want[i] {
			t.Fatalf("boundaries = %v, want %v", boundaries, want)
		}
	}
}

func TestClock_GenerationAdvancesOnlyExplicitly(t *testing.T) {
	c := testClock(1, 60, 0, 5)

	for i := 0; i < 17; i++ {
		c.Advance()
	}
	if c.Generation() != 0 {
		t.Fatalf("Advance changed generation to %d", c.Generation())
	}

	c.NextGeneration()
	c.NextGeneration()
	if c.Generation() != 2 {
		t.Errorf("generation = %d, want 2", c.Generation())
	}
	if c.Tick() != 17 {
		t.Errorf("tick = %d, want 17", c.Tick())
	}
}

func TestClock_MinimumGenerationLength(t *testing.T) {
	// A degenerate generation length clamps to one tick per boundary.
	c := testClock(1, 60, 0, 0)
	for i := 1; i <= 3; i++ {
		if !c.Advance() {
			t.Fatalf("tick %d: expected a boundary every tick", i)
		}
	}
}

func TestClock_SimSeconds(t *testing.T) {
	c := testClock(2.5, 60, 0, 100)
	for i := 0; i < 4; i++ {
		c.Advance()
	}
	if got := c.SimSeconds(); got != 10 {
		t.Errorf("sim seconds = %v, want 10", got)
	}
	if got := c.TickSeconds(); got != 2.5 {
		t.Errorf("tick seconds = %v, want 2.5", got)
	}
}
