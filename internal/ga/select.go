package ga

import "math/rand"

// tournament draws tournsize individuals uniformly at random (with
// replacement) and returns the lexicographically best one. Every individual
// must already be evaluated.
func tournament(rng *rand.Rand, pop []*Individual, tournsize int) *Individual {
	best := pop[rng.Intn(len(pop))]
	for i := 1; i < tournsize; i++ {
		c := pop[rng.Intn(len(pop))]
		if c.Fit.Less(*best.Fit) {
			best = c
		}
	}
	return best
}

// selectTournament produces len(pop) survivors by repeated tournaments.
// Larger tournsize means stronger selection pressure.
func selectTournament(rng *rand.Rand, pop []*Individual, tournsize int) []*Individual {
	out := make([]*Individual, len(pop))
	for i := range out {
		out[i] = tournament(rng, pop, tournsize)
	}
	return out
}
