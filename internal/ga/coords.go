package ga

import "math/rand"

// GenerateLocations draws n independent locations uniformly at random from the
// rectangle [xMin,xMax] x [yMin,yMax]. Reproducible when rng is seeded.
func GenerateLocations(rng *rand.Rand, n int, xMin, xMax, yMin, yMax float64) []Location {
	out := make([]Location, n)
	for i := range out {
		out[i] = Location{
			X: xMin + rng.Float64()*(xMax-xMin),
			Y: yMin + rng.Float64()*(yMax-yMin),
		}
	}
	return out
}

// SplitRoutes partitions a permutation into the per-vehicle visit orders
// implied by the round-robin encoding: position i belongs to vehicle i mod k.
// Routes do not include the depot legs.
func SplitRoutes(genes []int, k int) [][]int {
	routes := make([][]int, k)
	for i, locIdx := range genes {
		v := i % k
		routes[v] = append(routes[v], locIdx)
	}
	return routes
}
