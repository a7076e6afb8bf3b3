package qsim

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// A structured multimodal surface over [0, 1000): five near-equal
// Gaussian peaks with correlated neighborhoods and many near-optimal
// answers, the benchmark class the engine is scoped to.
var testPeaks = []float64{100, 300, 500, 700, 900}

func multimodal(v any) float64 {
	x := v.(float64)
	heights := []float64{1.00, 0.99, 0.98, 0.97, 0.96}
	var best float64
	for i, c := range testPeaks {
		d := x - c
		best = math.Max(best, heights[i]*math.Exp(-d*d/(2*30*30)))
	}
	return best
}

func driftStep(parent any, r *rand.Rand) any {
	x := parent.(float64) + r.NormFloat64()*25
	if x < 0 {
		x = 0
	}
	if x > 1000 {
		x = 1000
	}
	return x
}

func multimodalProblem(id string) *SearchProblem {
	return &SearchProblem{
		ID:        id,
		Seeds:     []any{50.0, 250.0, 450.0, 650.0, 850.0},
		Objective: multimodal,
		Expand:    driftStep,
	}
}

func searchConfig() *Config {
	cfg := NewConfig()
	cfg.Seed = 7
	cfg.PlateauWindow = 0 // fixed budget, no early exit
	return cfg
}

func TestRunRankedOutput(t *testing.T) {
	Convey("Given a multimodal search problem", t, func() {
		e := NewCognitionEngine(searchConfig(), nil)
		p := multimodalProblem("ranked")

		ranked, err := e.Run(context.Background(), p, 100)
		So(err, ShouldBeNil)
		So(len(ranked), ShouldBeGreaterThan, 1)

		Convey("Candidates come back ranked by score", func() {
			for i := 1; i < len(ranked); i++ {
				So(ranked[i].Score, ShouldBeLessThanOrEqualTo, ranked[i-1].Score)
			}
		})

		Convey("The ranking is retrievable from the problem", func() {
			So(p.Ranked(), ShouldResemble, ranked)
		})

		Convey("The run tracked its own effort", func() {
			stats := p.Stats()
			So(stats.Iterations, ShouldEqual, 100)
			So(stats.Evaluations, ShouldBeGreaterThan, 100)
		})
	})
}

func TestRunDeterminism(t *testing.T) {
	Convey("Given a fixed seed and input order", t, func() {
		run := func() []Candidate {
			e := NewCognitionEngine(searchConfig(), nil)
			ranked, err := e.Run(context.Background(), multimodalProblem("det"), 50)
			So(err, ShouldBeNil)
			return ranked
		}

		Convey("Two runs produce identical rankings", func() {
			So(run(), ShouldResemble, run())
		})
	})
}

func TestTieBreakByInsertionOrder(t *testing.T) {
	Convey("Given a constant objective", t, func() {
		cfg := searchConfig()
		cfg.PlateauWindow = 5
		e := NewCognitionEngine(cfg, nil)
		p := &SearchProblem{
			ID:        "flat",
			Seeds:     []any{1.0, 2.0, 3.0},
			Objective: func(any) float64 { return 0.5 },
			Expand:    driftStep,
		}

		ranked, err := e.Run(context.Background(), p, 100)
		So(err, ShouldBeNil)

		Convey("Equal scores rank by insertion order", func() {
			for i := 1; i < len(ranked); i++ {
				So(ranked[i].order, ShouldBeGreaterThan, ranked[i-1].order)
			}
		})

		Convey("And the plateau window stops the run early", func() {
			So(p.Stats().Iterations, ShouldEqual, 5)
		})
	})
}

func TestRunCancellation(t *testing.T) {
	Convey("Given an already-canceled context", t, func() {
		e := NewCognitionEngine(searchConfig(), nil)
		p := multimodalProblem("cancel")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		ranked, err := e.Run(ctx, p, 1000)

		Convey("The run stops at the iteration boundary", func() {
			So(KindOf(err), ShouldEqual, CanceledError)
			So(p.Stats().Iterations, ShouldEqual, 0)

			Convey("With the partial ranking still usable", func() {
				So(len(ranked), ShouldEqual, 5)
			})
		})
	})
}

func TestZeroEvaluatorFallback(t *testing.T) {
	Convey("Given a config with no evaluator parallelism", t, func() {
		cfg := searchConfig()
		cfg.Evaluators = 0
		e := NewCognitionEngine(cfg, nil)
		p := multimodalProblem("zero-eval")

		Convey("The run still completes its full budget", func() {
			ranked, err := e.Run(context.Background(), p, 5)
			So(err, ShouldBeNil)
			So(len(ranked), ShouldBeGreaterThan, 1)
			So(p.Stats().Iterations, ShouldEqual, 5)
		})
	})
}

func TestProblemValidation(t *testing.T) {
	Convey("Given malformed problems", t, func() {
		e := NewCognitionEngine(searchConfig(), nil)

		Convey("A missing objective is rejected", func() {
			_, err := e.Run(context.Background(), &SearchProblem{
				ID: "p", Seeds: []any{1.0}, Expand: driftStep,
			}, 10)
			So(KindOf(err), ShouldEqual, InvalidProblemError)
		})

		Convey("An empty seed set is rejected", func() {
			_, err := e.Run(context.Background(), &SearchProblem{
				ID: "p", Objective: multimodal, Expand: driftStep,
			}, 10)
			So(KindOf(err), ShouldEqual, InvalidProblemError)
		})

		Convey("A non-positive budget is rejected", func() {
			_, err := e.Run(context.Background(), multimodalProblem("p"), 0)
			So(KindOf(err), ShouldEqual, InvalidProblemError)
		})
	})
}

func TestWeightInvariants(t *testing.T) {
	Convey("Given a population after reinforcement", t, func() {
		pop := []Candidate{
			{Value: 1.0, Score: 0.1, weight: 0.25, order: 0},
			{Value: 2.0, Score: 0.9, weight: 0.25, order: 1},
			{Value: 3.0, Score: 0.5, weight: 0.25, order: 2},
			{Value: 4.0, Score: 0.9, weight: 0.25, order: 3},
		}
		reinforce(pop)

		Convey("Weights are non-negative and renormalized", func() {
			var total float64
			for _, c := range pop {
				So(c.weight, ShouldBeGreaterThanOrEqualTo, 0)
				total += c.weight
			}
			So(total, ShouldAlmostEqual, 1, 1e-12)
		})

		Convey("High scorers gained weight over low scorers", func() {
			So(pop[1].weight, ShouldBeGreaterThan, pop[0].weight)
		})
	})
}

func TestEngineVersusGreedy(t *testing.T) {
	Convey("Given the fixed multimodal benchmark", t, func() {
		const budget = 100
		const highScore = 0.8

		e := NewCognitionEngine(searchConfig(), nil)
		ranked, err := e.Run(context.Background(), multimodalProblem("bench"), budget)
		So(err, ShouldBeNil)

		best, err := GreedySearch(multimodalProblem("bench-greedy"), budget, 7)
		So(err, ShouldBeNil)

		Convey("The engine surfaces more distinct high scorers", func() {
			distinct := map[float64]bool{}
			peaks := map[int]bool{}
			for _, c := range ranked {
				if c.Score >= highScore {
					x := c.Value.(float64)
					distinct[x] = true
					peaks[int(math.Round(x/200))] = true
				}
			}
			greedyDistinct := 0
			if best.Score >= highScore {
				greedyDistinct = 1
			}

			So(len(distinct), ShouldBeGreaterThan, greedyDistinct)
			So(len(distinct), ShouldBeGreaterThan, 1)

			Convey("Across more than one peak of the surface", func() {
				So(len(peaks), ShouldBeGreaterThanOrEqualTo, 2)
			})
		})
	})
}

func BenchmarkCognitionEngine(b *testing.B) {
	cfg := searchConfig()
	e := NewCognitionEngine(cfg, nil)
	for i := 0; i < b.N; i++ {
		if _, err := e.Run(context.Background(), multimodalProblem("bench"), 100); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGreedyBaseline(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := GreedySearch(multimodalProblem("bench"), 100, 7); err != nil {
			b.Fatal(err)
		}
	}
}
