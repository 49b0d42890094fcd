// Package evolution turns one generation's survivors into the next
// generation's genes. It runs strictly between ticks, never during one.
package evolution

import (
	"math"
	"sort"

	"github.com/pthm-cable/photovore/components"
)

// ScoredNode is one survivor in the breeding pool: its identity, its
// gene, and the fitness it earned.
type ScoredNode struct {
	ID      uint32
	Gene    components.Gene
	Fitness float64
}

// Score computes fitness from lifetime activity: weighted survival
// time plus weighted useful work. Battery level is deliberately not an
// input; a node that merely avoids dying earns only the survival term.
func Score(act *components.Activity, survivalWeight, workWeight float64) float64 {
	return survivalWeight*act.AgeSeconds + workWeight*act.UsefulWork
}

// Rank orders the pool best first. Equal fitness falls back to node id
// so a fixed seed always breeds from the same ordering.
func Rank(pool []ScoredNode) {
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].Fitness != pool[j].Fitness {
			return pool[i].Fitness > pool[j].Fitness
		}
		return pool[i].ID < pool[j].ID
	})
}

// EliteCount returns the size of the elite set for a pool: the top
// fraction rounded up, never below one, never above the pool.
func EliteCount(poolSize int, fraction float64) int {
	if poolSize <= 0 {
		return 0
	}
	n := int(math.Ceil(float64(poolSize) * fraction))
	if n < 1 {
		n = 1
	}
	if n > poolSize {
		n = poolSize
	}
	return n
}
