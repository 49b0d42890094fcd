package telemetry

// Collector accumulates per-tick activity into flush windows.
type Collector struct {
	windowTicks int64

	// Current window tracking
	windowStartTick int64

	// Counters for the current window
	births      int
	deaths      int
	harvestedWh float64
	consumedWh  float64
	inferences  float64
	usefulWork  float64

	// Population at the last recorded tick
	alive int
}

// TickSample is one tick's aggregate activity across every node.
type TickSample struct {
	Alive       int
	HarvestedWh float64
	ConsumedWh  float64
	Inferences  float64
	UsefulWork  float64
}

// NewCollector creates a stats collector flushing every windowTicks.
func NewCollector(windowTicks int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: int64(windowTicks)}
}

// RecordTick adds one tick's aggregate to the current window.
func (c *Collector) RecordTick(s TickSample) {
	c.alive = s.Alive
	c.harvestedWh += s.HarvestedWh
	c.consumedWh += s.ConsumedWh
	c.inferences += s.Inferences
	c.usefulWork += s.UsefulWork
}

// RecordBirth records a node spawn.
func (c *Collector) RecordBirth() {
	c.births++
}

// RecordDeath records a battery-depletion death.
func (c *Collector) RecordDeath() {
	c.deaths++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int64) bool {
	return currentTick-c.windowStartTick >= c.windowTicks
}

// Flush produces a WindowStats and resets counters for the next window.
// chargeRatios and fitnesses are the live population's distributions at
// flush time; both are sorted in place.
func (c *Collector) Flush(
	currentTick int64,
	simTimeSec float64,
	generation uint32,
	chargeRatios, fitnesses []float64,
) WindowStats {
	charge := Summarize(chargeRatios)
	fitness := Summarize(fitnesses)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      simTimeSec,
		Generation:      generation,

		Alive:  c.alive,
		Births: c.births,
		Deaths: c.deaths,

		HarvestedWh: c.harvestedWh,
		ConsumedWh:  c.consumedWh,
		Inferences:  c.inferences,
		UsefulWork:  c.usefulWork,

		ChargeMean: charge.Mean,
		ChargeStd:  charge.Std,
		ChargeP10:  charge.P10,
		ChargeP50:  charge.P50,
		ChargeP90:  charge.P90,

		FitnessMean: fitness.Mean,
		FitnessStd:  fitness.Std,
		FitnessP10:  fitness.P10,
		FitnessP50:  fitness.P50,
		FitnessP90:  fitness.P90,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.births = 0
	c.deaths = 0
	c.harvestedWh = 0
	c.consumedWh = 0
	c.inferences = 0
	c.usefulWork = 0

	return stats
}

// WindowTicks returns the number of ticks per window.
func (c *Collector) WindowTicks() int64 {
	return c.windowTicks
}
