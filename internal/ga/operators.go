package ga

import "math/rand"

// Per-gene swap probability for shuffle mutation.
const mutIndPb = 0.05

// pmxCrossover recombines two parents in place with partially matched
// crossover. A shared segment between two distinct cut points is copied
// verbatim into each child; the remaining positions are filled from the other
// parent in order, following the segment's value mapping whenever the donor
// value is already taken. Both children stay valid permutations and both
// fitnesses are invalidated.
func pmxCrossover(rng *rand.Rand, a, b *Individual) {
	size := len(a.Genes)
	if size < 2 {
		return
	}
	c1 := rng.Intn(size)
	c2 := rng.Intn(size - 1)
	if c2 >= c1 {
		c2++
	} else {
		c1, c2 = c2, c1
	}

	p1 := append([]int(nil), a.Genes...)
	p2 := append([]int(nil), b.Genes...)
	copy(a.Genes, pmxChild(p1, p2, c1, c2))
	copy(b.Genes, pmxChild(p2, p1, c1, c2))
	a.Fit = nil
	b.Fit = nil
}

// pmxChild builds one PMX offspring: seg keeps the segment of seg's parent,
// the rest comes from donor with mapping-chain repair.
func pmxChild(seg, donor []int, c1, c2 int) []int {
	size := len(seg)
	child := make([]int, size)
	used := make([]bool, size)
	pos := make([]int, size) // value -> position in seg parent
	for i, v := range seg {
		pos[v] = i
	}
	for i := c1; i < c2; i++ {
		child[i] = seg[i]
		used[seg[i]] = true
	}
	for i := 0; i < size; i++ {
		if i >= c1 && i < c2 {
			continue
		}
		v := donor[i]
		for used[v] {
			// v occupies position pos[v] inside the copied segment; its
			// matched partner in the donor takes its place.
			v = donor[pos[v]]
		}
		child[i] = v
		used[v] = true
	}
	return child
}

// shuffleMutate swaps each gene, independently with probability mutIndPb, with
// a uniformly chosen distinct other position. Pairwise swaps keep the
// permutation valid unconditionally. Reports whether any gene moved and
// invalidates the fitness if so.
func shuffleMutate(rng *rand.Rand, ind *Individual) bool {
	size := len(ind.Genes)
	if size < 2 {
		return false
	}
	changed := false
	for i := 0; i < size; i++ {
		if rng.Float64() >= mutIndPb {
			continue
		}
		j := rng.Intn(size - 1)
		if j >= i {
			j++
		}
		ind.Genes[i], ind.Genes[j] = ind.Genes[j], ind.Genes[i]
		changed = true
	}
	if changed {
		ind.Fit = nil
	}
	return changed
}
