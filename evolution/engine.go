package evolution

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/pthm-cable/photovore/components"
	"github.com/pthm-cable/photovore/config"
)

// ErrExtinction reports an empty breeding pool: every node died before
// the generation boundary. The engine never fabricates a population;
// the caller decides whether to halt, reseed, or keep recording.
var ErrExtinction = errors.New("population extinct")

// Phase names the stage the engine last completed. Observable for
// telemetry; the turnover itself runs synchronously.
type Phase uint8

const (
	PhaseEvaluating Phase = iota
	PhaseSelecting
	PhaseBreeding
	PhaseRepopulated
)

// String returns the display name for a Phase.
func (p Phase) String() string {
	switch p {
	case PhaseEvaluating:
		return "evaluating"
	case PhaseSelecting:
		return "selecting"
	case PhaseBreeding:
		return "breeding"
	case PhaseRepopulated:
		return "repopulated"
	}
	return "unknown"
}

// NodeResult is one node's end-of-generation record, read from the
// world after the last tick of the generation.
type NodeResult struct {
	ID       uint32
	Gene     components.Gene
	Dead     bool
	Activity components.Activity
}

// Offspring is one bred child awaiting spawn.
type Offspring struct {
	Gene     components.Gene
	ParentID uint32
}

// Engine runs the generation turnover: Evaluating -> Selecting ->
// Breeding -> Repopulated. It owns no world state; callers hand in
// results and spawn the offspring themselves.
type Engine struct {
	selector Selector
	mutator  *Mutator

	eliteFraction  float64
	survivalWeight float64
	workWeight     float64

	phase Phase
}

// NewEngine builds an engine from the evolution config and the
// resolved catalog's model ids.
func NewEngine(cfg config.EvolutionConfig, models []string) (*Engine, error) {
	sel, err := NewSelector(cfg.Selector, cfg.TournamentK)
	if err != nil {
		return nil, fmt.Errorf("building selector: %w", err)
	}
	return &Engine{
		selector:       sel,
		mutator:        NewMutator(cfg.Mutation, models),
		eliteFraction:  cfg.EliteFraction,
		survivalWeight: cfg.Fitness.SurvivalWeight,
		workWeight:     cfg.Fitness.WorkWeight,
	}, nil
}

// Phase returns the stage the engine last completed.
func (e *Engine) Phase() Phase { return e.phase }

// Selector returns the configured parent selector.
func (e *Engine) Selector() Selector { return e.selector }

// Mutator returns the configured gene mutator.
func (e *Engine) Mutator() *Mutator { return e.mutator }

// NextGeneration scores the results, ranks the survivors, and breeds n
// children. Dead nodes are excluded from the pool outright; a dead
// node contributes no offspring regardless of its score. When nothing
// survived it returns ErrExtinction and no children.
//
// The returned pool is ranked best first and reflects the generation
// that just ended; callers use it for reporting.
func (e *Engine) NextGeneration(rng *rand.Rand, results []NodeResult, n int) ([]Offspring, []ScoredNode, error) {
	e.phase = PhaseEvaluating
	pool := make([]ScoredNode, 0, len(results))
	for _, r := range results {
		if r.Dead {
			continue
		}
		pool = append(pool, ScoredNode{
			ID:      r.ID,
			Gene:    r.Gene,
			Fitness: Score(&r.Activity, e.survivalWeight, e.workWeight),
		})
	}

	e.phase = PhaseSelecting
	if len(pool) == 0 {
		return nil, nil, ErrExtinction
	}
	Rank(pool)
	elite := EliteCount(len(pool), e.eliteFraction)

	e.phase = PhaseBreeding
	children := make([]Offspring, n)
	for i := range children {
		parent, err := e.selector.PickParent(rng, pool, elite)
		if err != nil {
			return nil, pool, fmt.Errorf("picking parent for slot %d: %w", i, err)
		}
		children[i] = Offspring{
			Gene:     e.mutator.Child(rng, parent.Gene),
			ParentID: parent.ID,
		}
	}

	e.phase = PhaseRepopulated
	return children, pool, nil
}
