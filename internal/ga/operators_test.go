package ga

import (
	"math/rand"
	"testing"
)

func checkPermutation(t *testing.T, genes []int, n int) {
	t.Helper()
	if len(genes) != n {
		t.Fatalf("length %d, want %d", len(genes), n)
	}
	seen := make([]bool, n)
	for _, g := range genes {
		if g < 0 || g >= n {
			t.Fatalf("gene %d out of range [0,%d)", g, n)
		}
		if seen[g] {
			t.Fatalf("duplicate gene %d in %v", g, genes)
		}
		seen[g] = true
	}
}

func TestPMXYieldsValidPermutations(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{2, 3, 5, 12, 40} {
		for trial := 0; trial < 200; trial++ {
			a := &Individual{Genes: rng.Perm(n), Fit: &Fitness{}}
			b := &Individual{Genes: rng.Perm(n), Fit: &Fitness{}}
			pmxCrossover(rng, a, b)
			checkPermutation(t, a.Genes, n)
			checkPermutation(t, b.Genes, n)
			if a.Fit != nil || b.Fit != nil {
				t.Fatal("crossover must invalidate both fitnesses")
			}
		}
	}
}

func TestPMXChildCutPoints(t *testing.T) {
	p1 := []int{0, 1, 2, 3, 4, 5, 6, 7}
	p2 := []int{7, 6, 5, 4, 3, 2, 1, 0}
	n := len(p1)
	for c1 := 0; c1 <= n; c1++ {
		for c2 := c1; c2 <= n; c2++ {
			child := pmxChild(p1, p2, c1, c2)
			checkPermutation(t, child, n)
			// segment is copied verbatim from the first parent
			for i := c1; i < c2; i++ {
				if child[i] != p1[i] {
					t.Fatalf("cut [%d,%d): segment position %d = %d, want %d", c1, c2, i, child[i], p1[i])
				}
			}
		}
	}
}

func TestPMXEmptySegmentCopiesDonor(t *testing.T) {
	p1 := []int{3, 0, 1, 2}
	p2 := []int{2, 3, 0, 1}
	child := pmxChild(p1, p2, 2, 2)
	for i := range child {
		if child[i] != p2[i] {
			t.Fatalf("empty segment: got %v, want %v", child, p2)
		}
	}
}

func TestShuffleMutateKeepsPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, n := range []int{2, 5, 30} {
		for trial := 0; trial < 300; trial++ {
			ind := &Individual{Genes: rng.Perm(n), Fit: &Fitness{}}
			changed := shuffleMutate(rng, ind)
			checkPermutation(t, ind.Genes, n)
			if changed && ind.Fit != nil {
				t.Fatal("mutation that changed genes must invalidate fitness")
			}
			if !changed && ind.Fit == nil {
				t.Fatal("no-op mutation must not invalidate fitness")
			}
		}
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	ind := &Individual{Genes: []int{2, 0, 1}, Fit: &Fitness{TotalDistance: 5}}
	c := ind.Clone()
	c.Genes[0] = 99
	c.Fit.TotalDistance = 1
	if ind.Genes[0] != 2 || ind.Fit.TotalDistance != 5 {
		t.Fatal("clone shares state with original")
	}
}
