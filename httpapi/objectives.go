package httpapi

import (
	"math"
	"math/rand/v2"

	"github.com/theapemachine/qsim"
)

// Search objectives cannot cross the wire as code, so the transport
// exposes a named catalog. In-process callers register arbitrary
// objectives through qsim.API directly.

var multimodalPeaks = []struct {
	center, height float64
}{
	{100, 1.00},
	{300, 0.99},
	{500, 0.98},
	{700, 0.97},
	{900, 0.96},
}

// multimodalScore is a structured, correlated scoring surface over
// [0, 1000): five Gaussian peaks of near-equal height. The kind of
// space the cognition engine is scoped to do well on.
func multimodalScore(x float64) float64 {
	var best float64
	for _, p := range multimodalPeaks {
		d := x - p.center
		best = math.Max(best, p.height*math.Exp(-d*d/(2*30*30)))
	}
	return best
}

func multimodalExpand(parent any, r *rand.Rand) any {
	x := parent.(float64) + r.NormFloat64()*25
	if x < 0 {
		x = 0
	}
	if x > 1000 {
		x = 1000
	}
	return x
}

var defaultMultimodalSeeds = []any{50.0, 250.0, 450.0, 650.0, 850.0}

// buildProblem resolves a catalog name into a concrete problem.
func buildProblem(objective, problemID string, seeds []float64) (*qsim.SearchProblem, bool) {
	switch objective {
	case "multimodal":
		seeded := defaultMultimodalSeeds
		if len(seeds) > 0 {
			seeded = make([]any, len(seeds))
			for i, s := range seeds {
				seeded[i] = s
			}
		}
		return &qsim.SearchProblem{
			ID:        problemID,
			Seeds:     seeded,
			Objective: func(v any) float64 { return multimodalScore(v.(float64)) },
			Expand:    multimodalExpand,
		}, true
	}
	return nil, false
}
