package qsim

import (
	"math"
	"math/rand/v2"
	"sort"
)

// NormTolerance is the contract bound on Σ|amplitude|² drift from 1.
const NormTolerance = 1e-9

// BasisState is one basis state of a circuit with its probability,
// as returned by non-destructive state queries.
type BasisState struct {
	Bitstring   string  `json:"bitstring"`
	Probability float64 `json:"probability"`
}

/*
stateVector is the dense amplitude buffer for an n-qubit circuit:
2^n complex128 values, basis index bit q holding qubit q's bit. Gates
are applied in place by enumerating the index pairs (or quadruples)
that differ only in the addressed qubit bit(s), keeping every gate at
O(2^n) instead of materializing a 2^n x 2^n operator.
*/
type stateVector struct {
	numQubits int
	amps      []complex128
}

func newStateVector(numQubits int) *stateVector {
	sv := &stateVector{
		numQubits: numQubits,
		amps:      make([]complex128, 1<<numQubits),
	}
	sv.amps[0] = 1
	return sv
}

// apply assumes the gate's qubits are already range-checked.
func (sv *stateVector) apply(g Gate) {
	if g.Kind.Arity() == 1 {
		sv.applySingle(g.matrix, g.Qubits[0])
		return
	}
	sv.applyPair(g.matrix, g.Qubits[0], g.Qubits[1])
}

func (sv *stateVector) applySingle(m []complex128, q int) {
	bit := 1 << q
	for i := range sv.amps {
		if i&bit == 0 {
			j := i | bit
			a0, a1 := sv.amps[i], sv.amps[j]
			sv.amps[i] = m[0]*a0 + m[1]*a1
			sv.amps[j] = m[2]*a0 + m[3]*a1
		}
	}
}

func (sv *stateVector) applyPair(m []complex128, control, target int) {
	cb, tb := 1<<control, 1<<target
	for i := range sv.amps {
		if i&cb == 0 && i&tb == 0 {
			i00, i01 := i, i|tb
			i10, i11 := i|cb, i|cb|tb
			a00, a01 := sv.amps[i00], sv.amps[i01]
			a10, a11 := sv.amps[i10], sv.amps[i11]
			sv.amps[i00] = m[0]*a00 + m[1]*a01 + m[2]*a10 + m[3]*a11
			sv.amps[i01] = m[4]*a00 + m[5]*a01 + m[6]*a10 + m[7]*a11
			sv.amps[i10] = m[8]*a00 + m[9]*a01 + m[10]*a10 + m[11]*a11
			sv.amps[i11] = m[12]*a00 + m[13]*a01 + m[14]*a10 + m[15]*a11
		}
	}
}

// norm returns Σ|amplitude|².
func (sv *stateVector) norm() float64 {
	var total float64
	for _, a := range sv.amps {
		total += real(a)*real(a) + imag(a)*imag(a)
	}
	return total
}

func (sv *stateVector) renormalize(total float64) {
	if total == 0 {
		return
	}
	scale := complex(1/math.Sqrt(total), 0)
	for i := range sv.amps {
		sv.amps[i] *= scale
	}
}

// sample draws one basis index from the amplitude-squared distribution.
func (sv *stateVector) sample(r *rand.Rand) int {
	u := r.Float64() * sv.norm()
	var cum float64
	for i, a := range sv.amps {
		cum += real(a)*real(a) + imag(a)*imag(a)
		if u <= cum {
			return i
		}
	}
	return len(sv.amps) - 1
}

// collapse fixes the buffer to a single basis state.
func (sv *stateVector) collapse(idx int) {
	for i := range sv.amps {
		sv.amps[i] = 0
	}
	sv.amps[idx] = 1
}

/*
topStates returns up to topN basis states ranked by probability,
descending, with equal probabilities ordered by ascending basis index.
States with zero probability are omitted.
*/
func (sv *stateVector) topStates(topN int) []BasisState {
	type ranked struct {
		idx  int
		prob float64
	}
	all := make([]ranked, 0, len(sv.amps))
	for i, a := range sv.amps {
		if p := real(a)*real(a) + imag(a)*imag(a); p > 0 {
			all = append(all, ranked{idx: i, prob: p})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].prob != all[j].prob {
			return all[i].prob > all[j].prob
		}
		return all[i].idx < all[j].idx
	})
	if topN < len(all) {
		all = all[:topN]
	}
	states := make([]BasisState, len(all))
	for i, r := range all {
		states[i] = BasisState{
			Bitstring:   sv.bitstring(r.idx),
			Probability: r.prob,
		}
	}
	return states
}

// bitstring renders a basis index with qubit 0 leftmost.
func (sv *stateVector) bitstring(idx int) string {
	b := make([]byte, sv.numQubits)
	for q := 0; q < sv.numQubits; q++ {
		if idx&(1<<q) != 0 {
			b[q] = '1'
		} else {
			b[q] = '0'
		}
	}
	return string(b)
}

// bits renders a basis index as per-qubit classical bits.
func (sv *stateVector) bits(idx int) []int {
	out := make([]int, sv.numQubits)
	for q := 0; q < sv.numQubits; q++ {
		out[q] = (idx >> q) & 1
	}
	return out
}
