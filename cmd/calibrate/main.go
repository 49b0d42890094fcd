package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/gonum/optimize"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/photovore/config"
)

// calibratedParams is the YAML shape printed for the winning vector.
type calibratedParams struct {
	BatteryCapacityWh float64 `yaml:"battery_capacity_wh"`
	CloudFactor       float64 `yaml:"cloud_factor"`
	MutationDutyStep  float64 `yaml:"mutation_duty_step"`
}

// formatDuration formats a duration as h/m/s for progress lines.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base scenario YAML (empty = embedded defaults)")
	generations := flag.Int("generations", 8, "Generations per calibration run")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 60, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Directory for the eval log and artifacts (empty = print only)")
	flag.Parse()

	// The runs inside each evaluation log windows and generations at
	// Info level; only failures matter here.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))

	if *outputDir != "" {
		if err := os.MkdirAll(*outputDir, 0o755); err != nil {
			log.Fatalf("failed to create output directory: %v", err)
		}
	}

	// Load base scenario
	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()

	params := NewParamVector()

	// Generate seeds for evaluation
	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	evaluator := NewFitnessEvaluator(params, *generations, evalSeeds, baseCfg)

	dim := params.Dim()
	initX := params.Normalize(params.DefaultVector())

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			// Denormalize to get raw parameter values
			raw := params.Denormalize(x)
			return evaluator.Evaluate(raw)
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // Sequential evaluation
	}

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}

	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	// Optional eval log
	var logWriter *csv.Writer
	if *outputDir != "" {
		logPath := filepath.Join(*outputDir, "calibrate_log.csv")
		logFile, err := os.Create(logPath)
		if err != nil {
			log.Fatalf("failed to create log file: %v", err)
		}
		defer logFile.Close()

		logWriter = csv.NewWriter(logFile)
		defer logWriter.Flush()

		header := []string{"eval", "objective", "extinct_seeds"}
		for _, spec := range params.Specs {
			header = append(header, spec.Name)
		}
		logWriter.Write(header)
	}

	// Track evaluations and timing
	evalCount := 0
	bestObjective := 1e18
	var bestParams []float64
	startTime := time.Now()

	// Wrap the function to log evaluations
	originalFunc := problem.Func
	problem.Func = func(x []float64) float64 {
		objective := originalFunc(x)
		evalCount++

		// Clamped values are the ones the runs actually used
		raw := params.Denormalize(x)
		clamped := params.Clamp(raw)
		if objective < bestObjective {
			bestObjective = objective
			bestParams = make([]float64, len(clamped))
			copy(bestParams, clamped)
		}

		extinct := evaluator.LastExtinct()
		if logWriter != nil {
			row := []string{strconv.Itoa(evalCount), fmt.Sprintf("%.6f", objective), strconv.Itoa(extinct)}
			for _, v := range clamped {
				row = append(row, fmt.Sprintf("%.6f", v))
			}
			logWriter.Write(row)
			logWriter.Flush()
		}

		elapsed := time.Since(startTime)
		avgPerEval := elapsed / time.Duration(evalCount)
		remaining := time.Duration(*maxEvals-evalCount) * avgPerEval

		// Objective is negated mean best-fitness, so flip it back for display.
		fmt.Printf("Eval %d/%d: mean_best=%.1f extinct=%d/%d (best=%.1f) | elapsed: %s, ETA: %s\n",
			evalCount, *maxEvals, -objective, extinct, len(evalSeeds), -bestObjective,
			formatDuration(elapsed), formatDuration(remaining))

		return objective
	}

	fmt.Printf("Starting CMA-ES calibration with %d parameters, population=%d, max_evals=%d\n",
		dim, popSize, *maxEvals)
	fmt.Printf("Seeds per evaluation: %d, generations per run: %d\n", *seeds, *generations)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("calibration ended: %v", err)
	}

	// Best params may come from any evaluation, not just the final one
	if bestParams == nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}

	totalTime := time.Since(startTime)
	fmt.Printf("\nCalibration complete after %d evaluations in %s\n", evalCount, formatDuration(totalTime))
	fmt.Printf("Best objective: %.2f (mean best-fitness %.2f)\n", bestObjective, -bestObjective)

	best := calibratedParams{
		BatteryCapacityWh: bestParams[0],
		CloudFactor:       bestParams[1],
		MutationDutyStep:  bestParams[2],
	}
	out, err := yaml.Marshal(best)
	if err != nil {
		log.Fatalf("failed to marshal best parameters: %v", err)
	}
	fmt.Printf("\nBest parameters:\n%s", out)

	if *outputDir == "" {
		return
	}

	// The config fields go into a scenario YAML; the cloud factor is
	// catalog data and ships as a solar override CSV instead.
	bestCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to reload config: %v", err)
	}
	bestCfg.Battery.CapacityWh = best.BatteryCapacityWh
	bestCfg.Evolution.Mutation.DutyStep = best.MutationDutyStep

	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}

	solarOutPath := filepath.Join(*outputDir, "solar_overrides.csv")
	if err := writeSolarOverrides(solarOutPath, best.CloudFactor); err != nil {
		log.Printf("failed to write solar overrides: %v", err)
	} else {
		fmt.Printf("Solar overrides saved to: %s\n", solarOutPath)
		fmt.Printf("\nRun with: photovore -config %s -solar %s\n", configOutPath, solarOutPath)
	}
}

// writeSolarOverrides emits a solar override CSV that sets the cloud
// factor for every hour and leaves the other columns on catalog
// defaults.
func writeSolarOverrides(path string, cloud float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"hour", "avg_irradiance_w_m2", "panel_efficiency", "cloud_factor"}); err != nil {
		return err
	}
	for hour := 0; hour < 24; hour++ {
		row := []string{strconv.Itoa(hour), "", "", strconv.FormatFloat(cloud, 'f', 6, 64)}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
