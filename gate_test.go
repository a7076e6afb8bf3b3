package qsim

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParseGateKind(t *testing.T) {
	Convey("Given the closed gate vocabulary", t, func() {
		Convey("Known names resolve", func() {
			for name, want := range map[string]GateKind{
				"H": GateH, "X": GateX, "CNOT": GateCNOT, "CX": GateCNOT,
				"CZ": GateCZ, "RX": GateRX, "RZ": GateRZ,
			} {
				k, err := ParseGateKind(name)
				So(err, ShouldBeNil)
				So(k, ShouldEqual, want)
			}
		})

		Convey("Unknown names are rejected, never treated as no-ops", func() {
			_, err := ParseGateKind("TOFFOLI")
			So(err, ShouldNotBeNil)
			So(KindOf(err), ShouldEqual, InvalidGateError)
		})
	})
}

func TestNewGate(t *testing.T) {
	Convey("Given gate construction", t, func() {
		Convey("Every fixed gate builds a unitary matrix", func() {
			for _, kind := range []GateKind{
				GateH, GateX, GateY, GateZ, GateS, GateSdg, GateT, GateTdg,
			} {
				g, err := NewGate(kind, []int{0})
				So(err, ShouldBeNil)
				So(isUnitary(g.matrix), ShouldBeTrue)
			}
			for _, kind := range []GateKind{GateCNOT, GateCZ} {
				g, err := NewGate(kind, []int{0, 1})
				So(err, ShouldBeNil)
				So(isUnitary(g.matrix), ShouldBeTrue)
			}
		})

		Convey("Rotations stay unitary across angles", func() {
			for _, theta := range []float64{0, 0.1, math.Pi / 2, math.Pi, 7.3} {
				for _, kind := range []GateKind{GateRX, GateRY, GateRZ} {
					g, err := NewGate(kind, []int{0}, theta)
					So(err, ShouldBeNil)
					So(isUnitary(g.matrix), ShouldBeTrue)
				}
			}
		})

		Convey("Arity violations fail", func() {
			_, err := NewGate(GateH, []int{0, 1})
			So(KindOf(err), ShouldEqual, InvalidGateError)

			_, err = NewGate(GateCNOT, []int{0})
			So(KindOf(err), ShouldEqual, InvalidGateError)
		})

		Convey("A two-qubit gate needs distinct qubits", func() {
			_, err := NewGate(GateCNOT, []int{1, 1})
			So(KindOf(err), ShouldEqual, InvalidGateError)
		})

		Convey("Non-finite parameters fail", func() {
			_, err := NewGate(GateRX, []int{0}, math.NaN())
			So(KindOf(err), ShouldEqual, InvalidGateError)

			_, err = NewGate(GateRZ, []int{0}, math.Inf(1))
			So(KindOf(err), ShouldEqual, InvalidGateError)
		})

		Convey("Parameters on a fixed gate fail", func() {
			_, err := NewGate(GateX, []int{0}, 0.5)
			So(KindOf(err), ShouldEqual, InvalidGateError)
		})

		Convey("A missing rotation parameter fails", func() {
			_, err := NewGate(GateRY, []int{0})
			So(KindOf(err), ShouldEqual, InvalidGateError)
		})

		Convey("Negative qubit indices fail", func() {
			_, err := NewGate(GateH, []int{-1})
			So(KindOf(err), ShouldEqual, InvalidQubitIndexError)
		})
	})
}
