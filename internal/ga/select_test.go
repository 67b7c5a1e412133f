package ga

import (
	"math/rand"
	"testing"
)

func TestSelectTournamentSizeAndMembership(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	pop := make([]*Individual, 8)
	for i := range pop {
		pop[i] = &Individual{Genes: []int{0}, Fit: &Fitness{TotalDistance: float64(i)}}
	}
	sel := selectTournament(rng, pop, 3)
	if len(sel) != len(pop) {
		t.Fatalf("selected %d, want %d", len(sel), len(pop))
	}
	members := map[*Individual]bool{}
	for _, ind := range pop {
		members[ind] = true
	}
	for _, ind := range sel {
		if !members[ind] {
			t.Fatal("selection returned an individual not in the population")
		}
	}
}

func TestTournamentPressure(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	good := &Individual{Genes: []int{0}, Fit: &Fitness{TotalDistance: 1}}
	bad := &Individual{Genes: []int{0}, Fit: &Fitness{TotalDistance: 100}}
	pop := []*Individual{good, bad}
	goodWins := 0
	const rounds = 400
	for i := 0; i < rounds; i++ {
		if tournament(rng, pop, 4) == good {
			goodWins++
		}
	}
	// bad only wins when all four draws hit it (p = 1/16)
	if goodWins <= rounds/2 {
		t.Fatalf("good individual won only %d/%d tournaments", goodWins, rounds)
	}
}

func TestFitnessLexicographicOrder(t *testing.T) {
	a := Fitness{TotalDistance: 10, Variance: 9}
	b := Fitness{TotalDistance: 11, Variance: 0}
	if !a.Less(b) || b.Less(a) {
		t.Fatal("lower total distance must win regardless of variance")
	}
	balanced := Fitness{TotalDistance: 10, Variance: 1}
	skewed := Fitness{TotalDistance: 10, Variance: 9}
	if !balanced.Less(skewed) || skewed.Less(balanced) {
		t.Fatal("equal distances must be ordered by variance")
	}
	if balanced.Less(balanced) {
		t.Fatal("Less must be irreflexive")
	}
}
