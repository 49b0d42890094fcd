package evolution

import (
	"fmt"
	"math/rand"

	"github.com/pthm-cable/photovore/config"
)

// Selector chooses parents from the ranked breeding pool.
type Selector interface {
	Name() string
	PickParent(rng *rand.Rand, ranked []ScoredNode, eliteCount int) (ScoredNode, error)
}

// NewSelector builds the selector named in the config.
func NewSelector(name string, tournamentK int) (Selector, error) {
	switch name {
	case config.SelectorElite:
		return EliteSelector{}, nil
	case config.SelectorTournament:
		return TournamentSelector{K: tournamentK}, nil
	default:
		return nil, fmt.Errorf("unknown selector %q", name)
	}
}

// EliteSelector picks uniformly from the top elite set.
type EliteSelector struct{}

func (EliteSelector) Name() string { return config.SelectorElite }

func (EliteSelector) PickParent(rng *rand.Rand, ranked []ScoredNode, eliteCount int) (ScoredNode, error) {
	if rng == nil {
		return ScoredNode{}, fmt.Errorf("random source is required")
	}
	if eliteCount <= 0 || eliteCount > len(ranked) {
		return ScoredNode{}, fmt.Errorf("invalid elite count: %d", eliteCount)
	}
	return ranked[rng.Intn(eliteCount)], nil
}

// TournamentSelector samples K candidates from the whole pool and
// keeps the fittest. Ties keep the earlier draw.
type TournamentSelector struct {
	K int
}

func (TournamentSelector) Name() string { return config.SelectorTournament }

func (s TournamentSelector) PickParent(rng *rand.Rand, ranked []ScoredNode, eliteCount int) (ScoredNode, error) {
	if rng == nil {
		return ScoredNode{}, fmt.Errorf("random source is required")
	}
	if len(ranked) == 0 {
		return ScoredNode{}, fmt.Errorf("empty breeding pool")
	}

	k := s.K
	if k <= 0 {
		k = 3
	}
	if k > len(ranked) {
		k = len(ranked)
	}

	best := ranked[rng.Intn(len(ranked))]
	for i := 1; i < k; i++ {
		candidate := ranked[rng.Intn(len(ranked))]
		if candidate.Fitness > best.Fitness {
			best = candidate
		}
	}
	return best, nil
}
