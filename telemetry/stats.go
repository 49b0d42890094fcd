package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for one flush window.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`
	Generation      uint32  `csv:"generation"`

	// Population at window end
	Alive int `csv:"alive"`

	// Events during window
	Births int `csv:"births"`
	Deaths int `csv:"deaths"`

	// Energy flow during window
	HarvestedWh float64 `csv:"harvested_wh"`
	ConsumedWh  float64 `csv:"consumed_wh"`
	Inferences  float64 `csv:"inferences"`
	UsefulWork  float64 `csv:"useful_work"`

	// Charge-ratio distribution (sampled at window end)
	ChargeMean float64 `csv:"charge_mean"`
	ChargeStd  float64 `csv:"charge_std"`
	ChargeP10  float64 `csv:"charge_p10"`
	ChargeP50  float64 `csv:"charge_p50"`
	ChargeP90  float64 `csv:"charge_p90"`

	// Fitness distribution (sampled at window end)
	FitnessMean float64 `csv:"fitness_mean"`
	FitnessStd  float64 `csv:"fitness_std"`
	FitnessP10  float64 `csv:"fitness_p10"`
	FitnessP50  float64 `csv:"fitness_p50"`
	FitnessP90  float64 `csv:"fitness_p90"`
}

// GenerationStats is one generation-boundary row.
type GenerationStats struct {
	RunID         string  `csv:"run_id"`
	Generation    uint32  `csv:"generation"`
	EndTick       int64   `csv:"end_tick"`
	Population    int     `csv:"population"`
	Survivors     int     `csv:"survivors"`
	Deaths        int     `csv:"deaths"`
	BestFitness   float64 `csv:"best_fitness"`
	MeanFitness   float64 `csv:"mean_fitness"`
	DominantModel string  `csv:"dominant_model"`
	Extinct       bool    `csv:"extinct"`
}

// Distribution summarizes one sample set. Zero-valued for empty input.
type Distribution struct {
	Mean float64
	Std  float64
	P10  float64
	P50  float64
	P90  float64
}

// Summarize reduces samples to mean, standard deviation and
// percentiles. The input is sorted in place.
func Summarize(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sort.Float64s(values)
	d := Distribution{
		Mean: stat.Mean(values, nil),
		P10:  stat.Quantile(0.10, stat.Empirical, values, nil),
		P50:  stat.Quantile(0.50, stat.Empirical, values, nil),
		P90:  stat.Quantile(0.90, stat.Empirical, values, nil),
	}
	// StdDev needs two samples; a single observation has no spread.
	if len(values) > 1 {
		d.Std = stat.StdDev(values, nil)
	}
	return d
}

// DominantModel returns the most common model id among the survivors.
// Ties resolve to the lexically smallest id; empty input returns "".
func DominantModel(models []string) string {
	counts := make(map[string]int, len(models))
	for _, m := range models {
		counts[m]++
	}
	best, bestCount := "", 0
	for m, n := range counts {
		if n > bestCount || (n == bestCount && m < best) {
			best, bestCount = m, n
		}
	}
	return best
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartTick),
		slog.Int64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("generation", int(s.Generation)),
		slog.Int("alive", s.Alive),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths),
		slog.Float64("harvested_wh", s.HarvestedWh),
		slog.Float64("consumed_wh", s.ConsumedWh),
		slog.Float64("inferences", s.Inferences),
		slog.Float64("useful_work", s.UsefulWork),
		slog.Float64("charge_mean", s.ChargeMean),
		slog.Float64("charge_std", s.ChargeStd),
		slog.Float64("charge_p10", s.ChargeP10),
		slog.Float64("charge_p50", s.ChargeP50),
		slog.Float64("charge_p90", s.ChargeP90),
		slog.Float64("fitness_mean", s.FitnessMean),
		slog.Float64("fitness_std", s.FitnessStd),
		slog.Float64("fitness_p10", s.FitnessP10),
		slog.Float64("fitness_p50", s.FitnessP50),
		slog.Float64("fitness_p90", s.FitnessP90),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"generation", s.Generation,
		"alive", s.Alive,
		"births", s.Births,
		"deaths", s.Deaths,
		"harvested_wh", s.HarvestedWh,
		"consumed_wh", s.ConsumedWh,
		"inferences", s.Inferences,
		"useful_work", s.UsefulWork,
		"charge_mean", s.ChargeMean,
		"charge_p50", s.ChargeP50,
		"fitness_mean", s.FitnessMean,
		"fitness_p90", s.FitnessP90,
	)
}

// LogValue implements slog.LogValuer for structured logging.
func (g GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("run_id", g.RunID),
		slog.Int("generation", int(g.Generation)),
		slog.Int64("end_tick", g.EndTick),
		slog.Int("population", g.Population),
		slog.Int("survivors", g.Survivors),
		slog.Int("deaths", g.Deaths),
		slog.Float64("best_fitness", g.BestFitness),
		slog.Float64("mean_fitness", g.MeanFitness),
		slog.String("dominant_model", g.DominantModel),
		slog.Bool("extinct", g.Extinct),
	)
}

// LogStats logs the generation stats using slog.
func (g GenerationStats) LogStats() {
	slog.Info("generation",
		"generation", g.Generation,
		"end_tick", g.EndTick,
		"population", g.Population,
		"survivors", g.Survivors,
		"deaths", g.Deaths,
		"best_fitness", g.BestFitness,
		"mean_fitness", g.MeanFitness,
		"dominant_model", g.DominantModel,
		"extinct", g.Extinct,
	)
}
