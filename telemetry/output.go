package telemetry

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
)

// Output writes window and generation rows as CSV. A nil *Output is a
// valid disabled sink; every method is a no-op on it.
type Output struct {
	statsFile      *os.File
	generationFile *os.File

	// Track if headers have been written
	statsHeaderWritten      bool
	generationHeaderWritten bool
}

// NewOutput opens the configured CSV sinks. An empty path disables
// that sink; both empty returns nil (output disabled entirely).
func NewOutput(statsPath, generationPath string) (*Output, error) {
	if statsPath == "" && generationPath == "" {
		return nil, nil
	}

	o := &Output{}

	if statsPath != "" {
		f, err := os.Create(statsPath)
		if err != nil {
			return nil, fmt.Errorf("creating stats csv: %w", err)
		}
		o.statsFile = f
	}

	if generationPath != "" {
		f, err := os.Create(generationPath)
		if err != nil {
			if o.statsFile != nil {
				o.statsFile.Close()
			}
			return nil, fmt.Errorf("creating generation csv: %w", err)
		}
		o.generationFile = f
	}

	return o, nil
}

// WriteStats writes a window stats record to the stats CSV.
func (o *Output) WriteStats(stats WindowStats) error {
	if o == nil || o.statsFile == nil {
		return nil
	}

	records := []WindowStats{stats}

	if !o.statsHeaderWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, o.statsFile); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
		o.statsHeaderWritten = true
	} else {
		// Subsequent writes skip headers
		if err := gocsv.MarshalWithoutHeaders(records, o.statsFile); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
	}

	return nil
}

// WriteGeneration writes a generation record to the generation CSV.
func (o *Output) WriteGeneration(stats GenerationStats) error {
	if o == nil || o.generationFile == nil {
		return nil
	}

	records := []GenerationStats{stats}

	if !o.generationHeaderWritten {
		if err := gocsv.Marshal(records, o.generationFile); err != nil {
			return fmt.Errorf("writing generation: %w", err)
		}
		o.generationHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, o.generationFile); err != nil {
			return fmt.Errorf("writing generation: %w", err)
		}
	}

	return nil
}

// Close flushes and closes all output files.
func (o *Output) Close() error {
	if o == nil {
		return nil
	}

	var firstErr error

	if o.statsFile != nil {
		if err := o.statsFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if o.generationFile != nil {
		if err := o.generationFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
