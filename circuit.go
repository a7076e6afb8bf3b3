package qsim

import (
	"math/rand/v2"
	"sync"

	"github.com/theapemachine/errnie"
)

/*
Circuit is a single-owner simulated quantum circuit: an identifier, a
dense statevector buffer, and a seeded random source for measurement.
The registry owns exactly one Circuit per id; the buffer is never
shared. All mutation is serialized through the per-circuit mutex, so
concurrent calls against the same circuit are safe and calls against
different circuits run independently.
*/
type Circuit struct {
	mu sync.Mutex

	id        string
	numQubits int
	sv        *stateVector
	rng       *rand.Rand

	renormEpsilon float64
	gatesApplied  uint64
}

func newCircuit(id string, numQubits int, seed uint64, renormEpsilon float64) *Circuit {
	return &Circuit{
		id:            id,
		numQubits:     numQubits,
		sv:            newStateVector(numQubits),
		rng:           rand.New(rand.NewPCG(seed, seed)),
		renormEpsilon: renormEpsilon,
	}
}

func (c *Circuit) ID() string     { return c.id }
func (c *Circuit) NumQubits() int { return c.numQubits }

// validate checks a gate's qubit indices against this circuit. The
// gate itself was already validated at construction.
func (c *Circuit) validate(g Gate) error {
	for _, q := range g.Qubits {
		if q < 0 || q >= c.numQubits {
			return newError(InvalidQubitIndexError,
				"qubit %d out of range for %d-qubit circuit %q", q, c.numQubits, c.id)
		}
	}
	return nil
}

/*
ApplyGate applies one gate in place. On any validation failure the
statevector is untouched. Norm drift beyond the configured epsilon is
corrected silently and logged as a warning; it is internal bookkeeping,
not a caller error.
*/
func (c *Circuit) ApplyGate(g Gate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyLocked(g)
}

/*
ApplyGates applies a batch all-or-nothing: every gate is validated
against the circuit before any is applied. On rejection it returns the
index of the first invalid gate and the statevector is untouched.

Returns:
  - int: gates applied (len(gates) on success, 0 on rejection)
  - int: index of the first invalid gate, -1 on success
  - error: nil, or the first gate's validation error
*/
func (c *Circuit) ApplyGates(gates []Gate) (int, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, g := range gates {
		if err := c.validate(g); err != nil {
			return 0, i, err
		}
	}
	for _, g := range gates {
		// Valid gates cannot fail mid-batch; applyLocked only errors
		// on the validation we already ran.
		if err := c.applyLocked(g); err != nil {
			return 0, 0, err
		}
	}
	return len(gates), -1, nil
}

func (c *Circuit) applyLocked(g Gate) error {
	if err := c.validate(g); err != nil {
		return err
	}
	c.sv.apply(g)
	c.gatesApplied++

	if total := c.sv.norm(); total > 0 {
		if drift := total - 1; drift > c.renormEpsilon || drift < -c.renormEpsilon {
			c.sv.renormalize(total)
			errnie.Info(
				"circuit %s renormalized after %d gates, drift %e",
				c.id, c.gatesApplied, drift,
			)
		}
	}
	return nil
}

/*
Measure destructively samples one basis state from the amplitude-squared
distribution, collapses the statevector to it, and returns the classical
bits in qubit order. Deterministic for a fixed seed.
*/
func (c *Circuit) Measure() []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.sv.sample(c.rng)
	c.sv.collapse(idx)
	return c.sv.bits(idx)
}

// TopStates returns up to topN basis states by probability without
// mutating the circuit.
func (c *Circuit) TopStates(topN int) []BasisState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sv.topStates(topN)
}

// amplitudes returns a snapshot copy of the buffer, for tests that
// assert the statevector was left byte-identical.
func (c *Circuit) amplitudes() []complex128 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]complex128, len(c.sv.amps))
	copy(out, c.sv.amps)
	return out
}
