package components

// Activity accumulates what a node has done while alive. Feeds fitness
// and telemetry; reset to zero on every spawn.
type Activity struct {
	AgeSeconds  float64 // survival duration
	Inferences  float64 // fractional inference count
	UsefulWork  float64 // inferences weighted by model accuracy
	HarvestedWh float64 // lifetime solar intake
	ConsumedWh  float64 // lifetime drain
}
