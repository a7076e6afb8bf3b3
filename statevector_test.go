package qsim

import (
	"math"
	"math/rand/v2"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func mustGate(kind GateKind, qubits []int, params ...float64) Gate {
	g, err := NewGate(kind, qubits, params...)
	if err != nil {
		panic(err)
	}
	return g
}

func TestStateVector(t *testing.T) {
	Convey("Given a fresh statevector", t, func() {
		sv := newStateVector(3)

		Convey("It starts in the all-zero basis state", func() {
			So(real(sv.amps[0]), ShouldAlmostEqual, 1, NormTolerance)
			So(sv.norm(), ShouldAlmostEqual, 1, NormTolerance)
		})

		Convey("X flips the addressed qubit", func() {
			sv.apply(mustGate(GateX, []int{1}))
			So(real(sv.amps[0]), ShouldAlmostEqual, 0, NormTolerance)
			So(real(sv.amps[2]), ShouldAlmostEqual, 1, NormTolerance)
		})

		Convey("H twice is the identity", func() {
			sv.apply(mustGate(GateH, []int{0}))
			sv.apply(mustGate(GateH, []int{0}))
			So(real(sv.amps[0]), ShouldAlmostEqual, 1, NormTolerance)
		})

		Convey("Norm survives a long random gate sequence", func() {
			r := rand.New(rand.NewPCG(7, 7))
			kinds := []GateKind{GateH, GateX, GateY, GateZ, GateS, GateT}
			for i := 0; i < 200; i++ {
				sv.apply(mustGate(kinds[r.IntN(len(kinds))], []int{r.IntN(3)}))
				sv.apply(mustGate(GateRY, []int{r.IntN(3)}, r.Float64()*2*math.Pi))
			}
			So(sv.norm(), ShouldAlmostEqual, 1, NormTolerance)
		})
	})
}

func TestSampleAndCollapse(t *testing.T) {
	Convey("Given a superposed statevector", t, func() {
		sv := newStateVector(1)
		sv.apply(mustGate(GateH, []int{0}))

		Convey("Sampling is deterministic for a fixed seed", func() {
			r1 := rand.New(rand.NewPCG(42, 42))
			r2 := rand.New(rand.NewPCG(42, 42))
			So(sv.sample(r1), ShouldEqual, sv.sample(r2))
		})

		Convey("Collapse fixes a single basis state", func() {
			sv.collapse(1)
			So(real(sv.amps[1]), ShouldAlmostEqual, 1, NormTolerance)
			So(real(sv.amps[0]), ShouldAlmostEqual, 0, NormTolerance)
			So(sv.norm(), ShouldAlmostEqual, 1, NormTolerance)
		})
	})
}

func TestTopStates(t *testing.T) {
	Convey("Given a statevector with distinct probabilities", t, func() {
		sv := newStateVector(2)
		sv.apply(mustGate(GateRY, []int{0}, math.Pi/3))

		Convey("States rank by probability, descending", func() {
			states := sv.topStates(4)
			So(len(states), ShouldEqual, 2)
			So(states[0].Probability, ShouldBeGreaterThan, states[1].Probability)
			So(states[0].Bitstring, ShouldEqual, "00")
			So(states[1].Bitstring, ShouldEqual, "10")
		})

		Convey("topN truncates the ranking", func() {
			So(len(sv.topStates(1)), ShouldEqual, 1)
		})

		Convey("Equal probabilities break ties by basis index", func() {
			sv2 := newStateVector(2)
			sv2.apply(mustGate(GateH, []int{0}))
			sv2.apply(mustGate(GateH, []int{1}))
			states := sv2.topStates(4)
			So(len(states), ShouldEqual, 4)
			So(states[0].Bitstring, ShouldEqual, "00")
			So(states[3].Bitstring, ShouldEqual, "11")
		})
	})
}

func TestBitstringOrder(t *testing.T) {
	Convey("Given basis index rendering", t, func() {
		sv := newStateVector(3)

		Convey("Qubit 0 is the leftmost character", func() {
			So(sv.bitstring(0b001), ShouldEqual, "100")
			So(sv.bitstring(0b100), ShouldEqual, "001")
			So(sv.bits(0b101), ShouldResemble, []int{1, 0, 1})
		})
	})
}
