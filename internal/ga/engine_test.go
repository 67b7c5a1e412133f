package ga

import (
	"context"
	"math/rand"
	"reflect"
	"strings"
	"testing"
)

func testProblem(n int) ([]Location, Location) {
	rng := rand.New(rand.NewSource(99))
	return GenerateLocations(rng, n, 100, 1000, 100, 1000), Location{100, 100}
}

func testParams() Params {
	return Params{NumVehicles: 3, PopSize: 30, CxPb: 0.7, MutPb: 0.2, TournSize: 3, NGen: 10, Seed: 42}
}

func TestRunDeterminism(t *testing.T) {
	locs, depot := testProblem(12)
	best1, log1, err := New(locs, depot, testParams()).Run(context.Background())
	if err != nil {
		t.Fatalf("run 1: %v", err)
	}
	best2, log2, err := New(locs, depot, testParams()).Run(context.Background())
	if err != nil {
		t.Fatalf("run 2: %v", err)
	}
	if !reflect.DeepEqual(best1.Genes, best2.Genes) {
		t.Fatalf("best individuals differ:\n%v\n%v", best1.Genes, best2.Genes)
	}
	if !reflect.DeepEqual(log1, log2) {
		t.Fatal("logbooks differ between identical runs")
	}
}

func TestRunLogbookShape(t *testing.T) {
	locs, depot := testProblem(10)
	p := testParams()
	_, logbook, err := New(locs, depot, p).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(logbook) != p.NGen+1 {
		t.Fatalf("logbook has %d records, want %d", len(logbook), p.NGen+1)
	}
	if logbook[0].Evals != p.PopSize {
		t.Fatalf("generation 0 evals = %d, want %d", logbook[0].Evals, p.PopSize)
	}
	for i, rec := range logbook {
		if rec.Gen != i {
			t.Fatalf("record %d has gen %d", i, rec.Gen)
		}
		if rec.Evals < 0 || rec.Evals > p.PopSize {
			t.Fatalf("gen %d: evals %d outside [0,%d]", i, rec.Evals, p.PopSize)
		}
		if rec.MinDistance > rec.AvgDistance {
			t.Fatalf("gen %d: min %v exceeds avg %v", i, rec.MinDistance, rec.AvgDistance)
		}
	}
}

func TestRunBestIsValidAndBoundsLogbook(t *testing.T) {
	locs, depot := testProblem(14)
	p := testParams()
	best, logbook, err := New(locs, depot, p).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	checkPermutation(t, best.Genes, len(locs))
	if best.Fit == nil {
		t.Fatal("best individual must carry a fitness")
	}
	for _, rec := range logbook {
		if best.Fit.TotalDistance > rec.MinDistance+1e-9 {
			t.Fatalf("hall-of-fame distance %v worse than gen %d minimum %v",
				best.Fit.TotalDistance, rec.Gen, rec.MinDistance)
		}
	}
}

func TestHallOfFameMonotoneOverGenerations(t *testing.T) {
	// Runs with the same seed share a prefix, so the elite after g generations
	// must never get worse as g grows.
	locs, depot := testProblem(12)
	var prev *Fitness
	for _, ngen := range []int{1, 2, 5, 10, 20} {
		p := testParams()
		p.NGen = ngen
		best, _, err := New(locs, depot, p).Run(context.Background())
		if err != nil {
			t.Fatalf("ngen=%d: %v", ngen, err)
		}
		if prev != nil && prev.Less(*best.Fit) {
			t.Fatalf("elite regressed between ngen=%d runs: %+v -> %+v", ngen, prev, best.Fit)
		}
		prev = best.Fit
	}
}

func TestRunProgressCallback(t *testing.T) {
	locs, depot := testProblem(8)
	p := testParams()
	e := New(locs, depot, p)
	var gens []int
	e.OnProgress = func(gen, ngen int) {
		if ngen != p.NGen {
			t.Fatalf("callback ngen = %d, want %d", ngen, p.NGen)
		}
		gens = append(gens, gen)
	}
	if _, _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(gens) != p.NGen {
		t.Fatalf("callback fired %d times, want %d", len(gens), p.NGen)
	}
	for i, g := range gens {
		if g != i+1 {
			t.Fatalf("callback order: got %v", gens)
		}
	}
}

func TestRunCancellation(t *testing.T) {
	locs, depot := testProblem(10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	best, logbook, err := New(locs, depot, testParams()).Run(ctx)
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	// generation 0 completes before the first cancellation check
	if len(logbook) != 1 {
		t.Fatalf("logbook has %d records, want 1", len(logbook))
	}
	checkPermutation(t, best.Genes, len(locs))
}

func TestRunValidation(t *testing.T) {
	locs, depot := testProblem(6)
	cases := []struct {
		name   string
		mutate func(*Params)
		want   string
	}{
		{"vehicles", func(p *Params) { p.NumVehicles = 0 }, "numVehicles"},
		{"popsize", func(p *Params) { p.PopSize = 1 }, "popSize"},
		{"cxpb", func(p *Params) { p.CxPb = 1.5 }, "cxPb"},
		{"mutpb", func(p *Params) { p.MutPb = -0.1 }, "mutPb"},
		{"tournsize low", func(p *Params) { p.TournSize = 1 }, "tournSize"},
		{"tournsize high", func(p *Params) { p.TournSize = 31 }, "tournSize"},
		{"ngen", func(p *Params) { p.NGen = 0 }, "nGen"},
	}
	for _, tc := range cases {
		p := testParams()
		tc.mutate(&p)
		_, _, err := New(locs, depot, p).Run(context.Background())
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: error %q does not name %q", tc.name, err, tc.want)
		}
	}
	if _, _, err := New(nil, depot, testParams()).Run(context.Background()); err == nil {
		t.Error("empty location set: expected error")
	}
}

func TestGenerateLocationsRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	locs := GenerateLocations(rng, 200, 100, 1000, 200, 900)
	if len(locs) != 200 {
		t.Fatalf("got %d locations", len(locs))
	}
	for _, l := range locs {
		if l.X < 100 || l.X > 1000 || l.Y < 200 || l.Y > 900 {
			t.Fatalf("location %v outside rectangle", l)
		}
	}
}
