// Package ga implements the evolutionary engine for the multi-vehicle routing
// problem: permutation-encoded individuals, (distance, variance) fitness,
// partially matched crossover, shuffle-index mutation, tournament selection,
// and the generational loop with hall-of-fame and logbook.
package ga

import "math"

// Location is a point in the plane. Travel cost between two locations is the
// straight-line distance.
type Location struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func euclidean(a, b Location) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Fitness holds the two minimized objectives of one candidate solution.
type Fitness struct {
	TotalDistance float64
	Variance      float64
}

// Less orders fitnesses lexicographically: total distance first, variance only
// to break ties. Both components are minimized.
func (f Fitness) Less(o Fitness) bool {
	if f.TotalDistance != o.TotalDistance {
		return f.TotalDistance < o.TotalDistance
	}
	return f.Variance < o.Variance
}

// Individual is a permutation of the location indices [0,N). Position i in the
// permutation is served by vehicle i mod K; operators only ever see the flat
// permutation, the evaluator interprets the round-robin split.
//
// Fit is nil while the individual is unevaluated. Every operator that touches
// Genes resets Fit to nil; the engine re-evaluates lazily.
type Individual struct {
	Genes []int
	Fit   *Fitness
}

// Clone returns a deep copy so selected survivors do not alias each other.
func (ind *Individual) Clone() *Individual {
	out := &Individual{Genes: append([]int(nil), ind.Genes...)}
	if ind.Fit != nil {
		f := *ind.Fit
		out.Fit = &f
	}
	return out
}
