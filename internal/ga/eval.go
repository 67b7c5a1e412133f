package ga

import "fmt"

// Evaluate scores a candidate solution. The permutation is split round-robin
// over numVehicles; each vehicle walks its stops in permutation order, starting
// and ending at the depot. Returns the summed tour distance and the population
// variance of the per-vehicle distances. A vehicle with no stops contributes 0,
// and with a single vehicle the variance is exactly 0.
//
// A permutation that is not a bijection on [0,N) is an invariant violation:
// the operators never produce one, so an error here indicates a bug upstream.
func Evaluate(genes []int, locations []Location, depot Location, numVehicles int) (Fitness, error) {
	if numVehicles < 1 {
		return Fitness{}, fmt.Errorf("numVehicles must be >= 1, got %d", numVehicles)
	}
	n := len(locations)
	if n == 0 {
		return Fitness{}, fmt.Errorf("at least one location is required")
	}
	if len(genes) != n {
		return Fitness{}, fmt.Errorf("individual has length %d, want %d", len(genes), n)
	}
	seen := make([]bool, n)
	for _, g := range genes {
		if g < 0 || g >= n {
			return Fitness{}, fmt.Errorf("gene %d out of range [0,%d)", g, n)
		}
		if seen[g] {
			return Fitness{}, fmt.Errorf("duplicate gene %d", g)
		}
		seen[g] = true
	}

	perVehicle := make([]float64, numVehicles)
	last := make([]Location, numVehicles)
	for v := range last {
		last[v] = depot
	}
	for pos, locIdx := range genes {
		v := pos % numVehicles
		cur := locations[locIdx]
		perVehicle[v] += euclidean(last[v], cur)
		last[v] = cur
	}
	// return leg to the depot
	for v := range perVehicle {
		perVehicle[v] += euclidean(last[v], depot)
	}

	total := 0.0
	for _, d := range perVehicle {
		total += d
	}
	mean := total / float64(numVehicles)
	variance := 0.0
	for _, d := range perVehicle {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(numVehicles)

	return Fitness{TotalDistance: total, Variance: variance}, nil
}

// RouteDistance is the length of one vehicle's tour: depot, the stops in
// order, back to the depot. An empty stop list is a zero-length tour.
func RouteDistance(stops []int, locations []Location, depot Location) float64 {
	if len(stops) == 0 {
		return 0
	}
	d := 0.0
	last := depot
	for _, idx := range stops {
		d += euclidean(last, locations[idx])
		last = locations[idx]
	}
	return d + euclidean(last, depot)
}
