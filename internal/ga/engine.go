package ga

import (
	"context"
	"fmt"
	"math/rand"
)

// Params are the hyperparameters of one optimization run.
type Params struct {
	NumVehicles int     `json:"numVehicles"`
	PopSize     int     `json:"popSize"`
	CxPb        float64 `json:"cxPb"`
	MutPb       float64 `json:"mutPb"`
	TournSize   int     `json:"tournSize"`
	NGen        int     `json:"nGen"`
	Seed        int64   `json:"seed"`
}

// Record is one logbook entry. AvgDistance and MinDistance are computed over
// the population's total-distance values (the scalar primary objective).
type Record struct {
	Gen         int     `json:"gen"`
	Evals       int     `json:"evals"`
	AvgDistance float64 `json:"avgDistance"`
	MinDistance float64 `json:"minDistance"`
}

// Logbook is the append-only per-generation statistics trail, one record per
// generation including generation 0.
type Logbook []Record

// Progress is invoked synchronously once per completed generation, after its
// statistics are recorded. It must return promptly and must not mutate engine
// state.
type Progress func(gen, ngen int)

// Engine runs the generational loop over a fixed location set and depot.
type Engine struct {
	Locations  []Location
	Depot      Location
	Params     Params
	OnProgress Progress
}

func New(locations []Location, depot Location, p Params) *Engine {
	return &Engine{Locations: locations, Depot: depot, Params: p}
}

func (e *Engine) validate() error {
	p := e.Params
	if len(e.Locations) < 1 {
		return fmt.Errorf("at least one location is required")
	}
	if p.NumVehicles < 1 {
		return fmt.Errorf("numVehicles must be >= 1, got %d", p.NumVehicles)
	}
	if p.PopSize < 2 {
		return fmt.Errorf("popSize must be >= 2, got %d", p.PopSize)
	}
	if p.CxPb < 0 || p.CxPb > 1 {
		return fmt.Errorf("cxPb must be in [0,1], got %g", p.CxPb)
	}
	if p.MutPb < 0 || p.MutPb > 1 {
		return fmt.Errorf("mutPb must be in [0,1], got %g", p.MutPb)
	}
	if p.TournSize < 2 {
		return fmt.Errorf("tournSize must be >= 2, got %d", p.TournSize)
	}
	if p.TournSize > p.PopSize {
		return fmt.Errorf("tournSize (%d) must not exceed popSize (%d)", p.TournSize, p.PopSize)
	}
	if p.NGen < 1 {
		return fmt.Errorf("nGen must be >= 1, got %d", p.NGen)
	}
	return nil
}

// Run executes the full generational loop and returns the best individual
// observed across all generations plus the logbook. All randomness comes from
// a single stream seeded with Params.Seed, so identical inputs reproduce the
// result bit for bit. Termination is strictly by generation count.
//
// Cancellation is an extension over the plain loop: ctx is consulted once at
// the top of each generation, before selection; on cancellation Run returns
// the best individual and logbook so far together with ctx.Err().
func (e *Engine) Run(ctx context.Context) (Individual, Logbook, error) {
	if err := e.validate(); err != nil {
		return Individual{}, nil, err
	}
	rng := rand.New(rand.NewSource(e.Params.Seed))
	n := len(e.Locations)

	pop := make([]*Individual, e.Params.PopSize)
	for i := range pop {
		pop[i] = &Individual{Genes: rng.Perm(n)}
	}
	evals, err := e.evaluateInvalid(pop)
	if err != nil {
		return Individual{}, nil, err
	}
	logbook := Logbook{statsRecord(0, evals, pop)}
	hof := bestOf(pop).Clone()

	for gen := 1; gen <= e.Params.NGen; gen++ {
		select {
		case <-ctx.Done():
			return *hof, logbook, ctx.Err()
		default:
		}

		offspring := selectTournament(rng, pop, e.Params.TournSize)
		for i := range offspring {
			offspring[i] = offspring[i].Clone()
		}
		for i := 0; i+1 < len(offspring); i += 2 {
			if rng.Float64() < e.Params.CxPb {
				pmxCrossover(rng, offspring[i], offspring[i+1])
			}
		}
		for _, ind := range offspring {
			if rng.Float64() < e.Params.MutPb {
				shuffleMutate(rng, ind)
			}
		}
		evals, err = e.evaluateInvalid(offspring)
		if err != nil {
			return *hof, logbook, err
		}
		pop = offspring

		if best := bestOf(pop); best.Fit.Less(*hof.Fit) {
			hof = best.Clone()
		}
		logbook = append(logbook, statsRecord(gen, evals, pop))
		if e.OnProgress != nil {
			e.OnProgress(gen, e.Params.NGen)
		}
	}
	return *hof, logbook, nil
}

// evaluateInvalid scores every individual whose fitness was invalidated by an
// operator and reports how many were evaluated.
func (e *Engine) evaluateInvalid(pop []*Individual) (int, error) {
	count := 0
	for _, ind := range pop {
		if ind.Fit != nil {
			continue
		}
		f, err := Evaluate(ind.Genes, e.Locations, e.Depot, e.Params.NumVehicles)
		if err != nil {
			return count, err
		}
		ind.Fit = &f
		count++
	}
	return count, nil
}

func bestOf(pop []*Individual) *Individual {
	best := pop[0]
	for _, ind := range pop[1:] {
		if ind.Fit.Less(*best.Fit) {
			best = ind
		}
	}
	return best
}

func statsRecord(gen, evals int, pop []*Individual) Record {
	sum := 0.0
	min := pop[0].Fit.TotalDistance
	for _, ind := range pop {
		d := ind.Fit.TotalDistance
		sum += d
		if d < min {
			min = d
		}
	}
	return Record{Gen: gen, Evals: evals, AvgDistance: sum / float64(len(pop)), MinDistance: min}
}
