package qsim

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/theapemachine/errnie"
	"golang.org/x/sync/errgroup"
)

// reinforceRate scales how strongly an iteration's scores pull weight
// toward high-scoring candidates during interference.
const reinforceRate = 0.8

// Objective scores a candidate. It must be pure: the engine calls it
// from multiple goroutines in the same iteration.
type Objective func(value any) float64

// Expander derives a new candidate from a parent using the engine's
// random source.
type Expander func(parent any, r *rand.Rand) any

/*
Candidate is one conceptual candidate in a search run. Its weight is
the amplitude-like share of attention it holds in the population; its
score is the objective value once evaluated.
*/
type Candidate struct {
	Value any     `json:"candidate"`
	Score float64 `json:"score"`

	weight float64
	order  int // insertion order, the tie-breaker for equal scores
}

// SearchStats describes how a run terminated.
type SearchStats struct {
	Iterations  int
	Evaluations int
	Tunneled    int
}

/*
SearchProblem is a caller-defined objective over an implicitly bounded
candidate space. Problems live in the registry for the process
lifetime; each run's ranked result replaces the previous one, and no
state persists across runs beyond that result.
*/
type SearchProblem struct {
	ID        string
	Seeds     []any
	Objective Objective
	Expand    Expander

	mu     sync.Mutex
	ranked []Candidate
	stats  SearchStats
}

func (p *SearchProblem) validate() error {
	if p.Objective == nil {
		return newError(InvalidProblemError, "problem %q has no objective", p.ID)
	}
	if p.Expand == nil {
		return newError(InvalidProblemError, "problem %q has no expander", p.ID)
	}
	if len(p.Seeds) == 0 {
		return newError(InvalidProblemError, "problem %q has no seed candidates", p.ID)
	}
	return nil
}

func (p *SearchProblem) store(ranked []Candidate, stats SearchStats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ranked = ranked
	p.stats = stats
}

// Ranked returns the most recent run's ranking, empty before any run.
func (p *SearchProblem) Ranked() []Candidate {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Candidate, len(p.ranked))
	copy(out, p.ranked)
	return out
}

// Stats returns the most recent run's termination statistics.
func (p *SearchProblem) Stats() SearchStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

/*
CognitionEngine is the classical quantum-inspired heuristic search.
It holds a weighted population of candidates and iterates three phases:

 1. Explore: sample parents proportional to weight and expand new
    candidates, walking multiple paths at once instead of one.
 2. Interfere: evaluate all pending candidates in parallel, then, only
    once every score is known, reinforce candidates whose scores sit
    above the population mean and dampen the rest, renormalizing the
    weights to sum to one.
 3. Tunnel: with configured probability, hand a lower-scoring candidate
    the population's maximum weight to escape a local optimum.

Termination is by iteration budget or a no-improvement plateau over the
configured window. The result is a ranked list, not a single answer:
the multiplicity of near-optimal candidates is the point, and callers
pick their own collapse criterion.

The engine's advantage over sequential greedy search has been measured
on structured, correlated spaces (multimodal combinatorial scoring),
where it surfaces many distinct high scorers per budget. No speedup is
claimed on unstructured or adversarial spaces.
*/
type CognitionEngine struct {
	cfg     *Config
	metrics *Metrics
}

func NewCognitionEngine(cfg *Config, metrics *Metrics) *CognitionEngine {
	if cfg == nil {
		cfg = NewConfig()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &CognitionEngine{cfg: cfg, metrics: metrics}
}

/*
Run executes up to iterations search rounds and returns the ranked
candidates. Reproducible for a fixed seed and seed-candidate order:
equal scores rank by insertion order. Cancellation is honored at
iteration boundaries only, so partial effects are iteration-clean; on
cancellation the ranking accumulated so far is returned alongside a
CanceledError.
*/
func (e *CognitionEngine) Run(ctx context.Context, p *SearchProblem, iterations int) ([]Candidate, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if iterations < 1 {
		return nil, newError(InvalidProblemError,
			"iteration budget must be positive, got %d", iterations)
	}

	r := rand.New(rand.NewPCG(e.cfg.Seed, e.cfg.Seed))
	stats := SearchStats{}

	pop := make([]Candidate, 0, len(p.Seeds)+e.cfg.BeamWidth)
	next := 0
	for _, s := range p.Seeds {
		pop = append(pop, Candidate{Value: s, weight: 1, order: next})
		next++
	}
	stats.Evaluations += e.evaluate(p, pop)
	normalizeWeights(pop)

	best := maxScore(pop)
	sinceImprove := 0

	for it := 0; it < iterations; it++ {
		select {
		case <-ctx.Done():
			ranked := rank(pop)
			p.store(ranked, stats)
			return ranked, newError(CanceledError,
				"search %q canceled after %d iterations", p.ID, stats.Iterations)
		default:
		}
		stats.Iterations++

		// Explore: weight-proportional parent sampling.
		children := make([]Candidate, 0, e.cfg.ExploreBreadth)
		for k := 0; k < e.cfg.ExploreBreadth; k++ {
			parent := pop[weightedPick(pop, r)]
			children = append(children, Candidate{
				Value:  p.Expand(parent.Value, r),
				weight: parent.weight,
				order:  next,
			})
			next++
		}

		// Interfere: the Wait below is the synchronization barrier;
		// reweighting must not start until every score is in.
		stats.Evaluations += e.evaluate(p, children)
		pop = append(pop, children...)
		reinforce(pop)
		pop = trim(pop, e.cfg.BeamWidth)

		// Tunnel.
		if len(pop) > 1 && r.Float64() < e.cfg.TunnelingProbability {
			idx := lowScorePick(pop, r)
			pop[idx].weight = maxWeight(pop)
			normalizeWeights(pop)
			stats.Tunneled++
		}

		if b := maxScore(pop); b > best+1e-12 {
			best = b
			sinceImprove = 0
		} else {
			sinceImprove++
			if e.cfg.PlateauWindow > 0 && sinceImprove >= e.cfg.PlateauWindow {
				break
			}
		}
	}

	ranked := rank(pop)
	p.store(ranked, stats)
	e.metrics.addSearchRun()
	errnie.Info(
		"search %s finished: %d iterations, %d evaluations, best %f",
		p.ID, stats.Iterations, stats.Evaluations, best,
	)
	return ranked, nil
}

// evaluate scores candidates in parallel and returns how many it
// scored. Scores land in fixed slots, so the result is deterministic
// regardless of goroutine interleaving. A panicking objective re-raises
// on the caller's goroutine once the barrier is passed.
func (e *CognitionEngine) evaluate(p *SearchProblem, cands []Candidate) int {
	var (
		panicMu  sync.Mutex
		panicked any
	)
	// SetLimit(0) would block Go forever, so a non-positive evaluator
	// count falls back to the default parallelism.
	limit := e.cfg.Evaluators
	if limit < 1 {
		limit = NewConfig().Evaluators
	}
	g := new(errgroup.Group)
	g.SetLimit(limit)
	for i := range cands {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					panicMu.Lock()
					if panicked == nil {
						panicked = r
					}
					panicMu.Unlock()
				}
			}()
			cands[i].Score = p.Objective(cands[i].Value)
			return nil
		})
	}
	g.Wait()
	if panicked != nil {
		panic(panicked)
	}
	return len(cands)
}

/*
GreedySearch is the sequential single-path baseline: one candidate,
one expansion per iteration, keep the better of the two. Exported so
hosts can reproduce the documented engine-versus-greedy comparison on
their own problems.
*/
func GreedySearch(p *SearchProblem, iterations int, seed uint64) (Candidate, error) {
	if err := p.validate(); err != nil {
		return Candidate{}, err
	}
	r := rand.New(rand.NewPCG(seed, seed))
	cur := Candidate{Value: p.Seeds[0], Score: p.Objective(p.Seeds[0])}
	for it := 0; it < iterations; it++ {
		value := p.Expand(cur.Value, r)
		if score := p.Objective(value); score > cur.Score {
			cur = Candidate{Value: value, Score: score}
		}
	}
	return cur, nil
}

func normalizeWeights(pop []Candidate) {
	var total float64
	for i := range pop {
		total += pop[i].weight
	}
	if total <= 0 {
		uniform := 1 / float64(len(pop))
		for i := range pop {
			pop[i].weight = uniform
		}
		return
	}
	for i := range pop {
		pop[i].weight /= total
	}
}

// reinforce shifts weight toward candidates scoring above the mean and
// away from those below it, then renormalizes. Weights never go
// negative.
func reinforce(pop []Candidate) {
	if len(pop) == 0 {
		return
	}
	var mean, lo, hi float64
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := range pop {
		mean += pop[i].Score
		lo = math.Min(lo, pop[i].Score)
		hi = math.Max(hi, pop[i].Score)
	}
	mean /= float64(len(pop))
	spread := hi - lo
	if spread == 0 {
		normalizeWeights(pop)
		return
	}
	for i := range pop {
		w := pop[i].weight * (1 + reinforceRate*(pop[i].Score-mean)/spread)
		if w < 0 {
			w = 0
		}
		pop[i].weight = w
	}
	normalizeWeights(pop)
}

// trim keeps the width heaviest candidates, preserving insertion order
// among the kept so tie-breaking stays stable.
func trim(pop []Candidate, width int) []Candidate {
	if width <= 0 || len(pop) <= width {
		return pop
	}
	byWeight := make([]int, len(pop))
	for i := range byWeight {
		byWeight[i] = i
	}
	sort.SliceStable(byWeight, func(a, b int) bool {
		return pop[byWeight[a]].weight > pop[byWeight[b]].weight
	})
	keep := make(map[int]bool, width)
	for _, idx := range byWeight[:width] {
		keep[idx] = true
	}
	out := pop[:0]
	for i := range pop {
		if keep[i] {
			out = append(out, pop[i])
		}
	}
	return out
}

// weightedPick samples an index proportional to weight.
func weightedPick(pop []Candidate, r *rand.Rand) int {
	var total float64
	for i := range pop {
		total += pop[i].weight
	}
	if total <= 0 {
		return r.IntN(len(pop))
	}
	u := r.Float64() * total
	var cum float64
	for i := range pop {
		cum += pop[i].weight
		if u <= cum {
			return i
		}
	}
	return len(pop) - 1
}

// lowScorePick samples uniformly among the lower-scoring half of the
// population, the tunneling destination pool.
func lowScorePick(pop []Candidate, r *rand.Rand) int {
	byScore := make([]int, len(pop))
	for i := range byScore {
		byScore[i] = i
	}
	sort.SliceStable(byScore, func(a, b int) bool {
		return pop[byScore[a]].Score < pop[byScore[b]].Score
	})
	half := len(byScore) / 2
	if half == 0 {
		half = 1
	}
	return byScore[r.IntN(half)]
}

func maxScore(pop []Candidate) float64 {
	best := math.Inf(-1)
	for i := range pop {
		best = math.Max(best, pop[i].Score)
	}
	return best
}

func maxWeight(pop []Candidate) float64 {
	var best float64
	for i := range pop {
		best = math.Max(best, pop[i].weight)
	}
	return best
}

// rank orders by score descending; equal scores keep insertion order.
func rank(pop []Candidate) []Candidate {
	out := make([]Candidate, len(pop))
	copy(out, pop)
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].order < out[b].order
	})
	return out
}
