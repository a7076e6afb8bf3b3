package qsim

import (
	"math"
	"math/cmplx"
)

/*
GateKind enumerates the supported gate set. The set is closed: parsing
rejects anything outside it, so an unknown gate can never silently pass
through as a no-op.
*/
type GateKind int

const (
	GateH GateKind = iota
	GateX
	GateY
	GateZ
	GateS
	GateSdg
	GateT
	GateTdg
	GateRX
	GateRY
	GateRZ
	GateCNOT
	GateCZ
)

var gateNames = map[GateKind]string{
	GateH:    "H",
	GateX:    "X",
	GateY:    "Y",
	GateZ:    "Z",
	GateS:    "S",
	GateSdg:  "SDG",
	GateT:    "T",
	GateTdg:  "TDG",
	GateRX:   "RX",
	GateRY:   "RY",
	GateRZ:   "RZ",
	GateCNOT: "CNOT",
	GateCZ:   "CZ",
}

var gateKinds = map[string]GateKind{
	"H":    GateH,
	"X":    GateX,
	"Y":    GateY,
	"Z":    GateZ,
	"S":    GateS,
	"SDG":  GateSdg,
	"T":    GateT,
	"TDG":  GateTdg,
	"RX":   GateRX,
	"RY":   GateRY,
	"RZ":   GateRZ,
	"CNOT": GateCNOT,
	"CX":   GateCNOT,
	"CZ":   GateCZ,
}

func (k GateKind) String() string {
	return gateNames[k]
}

// Arity returns how many qubits the gate addresses.
func (k GateKind) Arity() int {
	switch k {
	case GateCNOT, GateCZ:
		return 2
	default:
		return 1
	}
}

// Parametric reports whether the gate takes a rotation angle.
func (k GateKind) Parametric() bool {
	switch k {
	case GateRX, GateRY, GateRZ:
		return true
	default:
		return false
	}
}

// ParseGateKind resolves a wire-format gate name. Unknown names fail
// with InvalidGateError.
func ParseGateKind(name string) (GateKind, error) {
	if k, ok := gateKinds[name]; ok {
		return k, nil
	}
	return 0, newError(InvalidGateError, "unknown gate kind %q", name)
}

/*
Gate is an immutable value object: a kind, the addressed qubits, an
optional rotation angle, and the small row-major unitary built at
construction time. A Gate that exists has already passed validation;
only qubit range remains to be checked against a concrete circuit.
*/
type Gate struct {
	Kind   GateKind
	Qubits []int
	Theta  float64

	matrix []complex128 // row-major, 2x2 or 4x4
}

/*
NewGate validates and constructs a gate.

Parameters:
  - kind: one of the closed GateKind set
  - qubits: target qubit indices, length must match the kind's arity
  - params: rotation angle for RX/RY/RZ, empty otherwise

Returns:
  - Gate: the constructed value object
  - error: InvalidGateError on arity/parameter/unitarity violations
*/
func NewGate(kind GateKind, qubits []int, params ...float64) (Gate, error) {
	if _, ok := gateNames[kind]; !ok {
		return Gate{}, newError(InvalidGateError, "unknown gate kind %d", int(kind))
	}
	if len(qubits) != kind.Arity() {
		return Gate{}, newError(InvalidGateError,
			"%s expects %d qubit(s), got %d", kind, kind.Arity(), len(qubits))
	}
	for _, q := range qubits {
		if q < 0 {
			return Gate{}, newError(InvalidQubitIndexError, "negative qubit index %d", q)
		}
	}
	if kind.Arity() == 2 && qubits[0] == qubits[1] {
		return Gate{}, newError(InvalidGateError,
			"%s control and target must differ, both %d", kind, qubits[0])
	}

	theta := 0.0
	if kind.Parametric() {
		if len(params) != 1 {
			return Gate{}, newError(InvalidGateError,
				"%s expects exactly one parameter, got %d", kind, len(params))
		}
		theta = params[0]
		if math.IsNaN(theta) || math.IsInf(theta, 0) {
			return Gate{}, newError(InvalidGateError, "%s parameter is not finite", kind)
		}
	} else if len(params) != 0 {
		return Gate{}, newError(InvalidGateError,
			"%s takes no parameters, got %d", kind, len(params))
	}

	g := Gate{
		Kind:   kind,
		Qubits: append([]int(nil), qubits...),
		Theta:  theta,
		matrix: buildMatrix(kind, theta),
	}
	if !isUnitary(g.matrix) {
		return Gate{}, newError(InvalidGateError, "%s matrix is not unitary", kind)
	}
	return g, nil
}

func buildMatrix(kind GateKind, theta float64) []complex128 {
	switch kind {
	case GateH:
		// H = 1/√2 * [1  1]
		//            [1 -1]
		h := complex(1/math.Sqrt2, 0)
		return []complex128{h, h, h, -h}
	case GateX:
		return []complex128{0, 1, 1, 0}
	case GateY:
		return []complex128{0, -1i, 1i, 0}
	case GateZ:
		return []complex128{1, 0, 0, -1}
	case GateS:
		return []complex128{1, 0, 0, 1i}
	case GateSdg:
		return []complex128{1, 0, 0, -1i}
	case GateT:
		return []complex128{1, 0, 0, cmplx.Exp(complex(0, math.Pi/4))}
	case GateTdg:
		return []complex128{1, 0, 0, cmplx.Exp(complex(0, -math.Pi/4))}
	case GateRX:
		c := complex(math.Cos(theta/2), 0)
		s := complex(0, -math.Sin(theta/2))
		return []complex128{c, s, s, c}
	case GateRY:
		c := complex(math.Cos(theta/2), 0)
		s := complex(math.Sin(theta/2), 0)
		return []complex128{c, -s, s, c}
	case GateRZ:
		return []complex128{
			cmplx.Exp(complex(0, -theta/2)), 0,
			0, cmplx.Exp(complex(0, theta/2)),
		}
	case GateCNOT:
		// Basis order |control target⟩: 00, 01, 10, 11.
		return []complex128{
			1, 0, 0, 0,
			0, 1, 0, 0,
			0, 0, 0, 1,
			0, 0, 1, 0,
		}
	case GateCZ:
		return []complex128{
			1, 0, 0, 0,
			0, 1, 0, 0,
			0, 0, 1, 0,
			0, 0, 0, -1,
		}
	}
	return nil
}

// isUnitary checks U·U† = I within NormTolerance.
func isUnitary(m []complex128) bool {
	var dim int
	switch len(m) {
	case 4:
		dim = 2
	case 16:
		dim = 4
	default:
		return false
	}
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			var sum complex128
			for k := 0; k < dim; k++ {
				sum += m[i*dim+k] * cmplx.Conj(m[j*dim+k])
			}
			want := complex128(0)
			if i == j {
				want = 1
			}
			if cmplx.Abs(sum-want) > NormTolerance {
				return false
			}
		}
	}
	return true
}
