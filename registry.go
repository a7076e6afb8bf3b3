package qsim

import (
	"sync"

	"github.com/theapemachine/errnie"
)

// amplitudeBytes is the footprint of one complex128 amplitude.
const amplitudeBytes = 16

/*
Registry is the process-lifetime map from identifiers to owned circuit
buffers and search problems, the single shared mutable resource in the
system. It is an explicitly owned object with a scoped lifetime, passed
by handle to every operation; there is no ambient global instance.

Memory accounting is aggregate: a new circuit is refused when the sum
of all live buffers would exceed the ceiling, even if the circuit fits
on its own. Reservation precedes allocation, so a refusal commits no
partial state.
*/
type Registry struct {
	mu sync.RWMutex

	cfg      *Config
	governor *MemoryGovernor
	metrics  *Metrics
	circuits map[string]*Circuit
	problems map[string]*SearchProblem
}

func NewRegistry(cfg *Config, metrics *Metrics) *Registry {
	if cfg == nil {
		cfg = NewConfig()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Registry{
		cfg:      cfg,
		governor: NewMemoryGovernor(cfg.ceilingBytes()),
		metrics:  metrics,
		circuits: make(map[string]*Circuit),
		problems: make(map[string]*SearchProblem),
	}
}

// Governor exposes the memory regulator for observation.
func (r *Registry) Governor() *MemoryGovernor { return r.governor }

// circuitBytes returns the buffer footprint for a qubit count, or -1
// when 2^n alone overflows any representable ceiling.
func circuitBytes(numQubits int) int64 {
	if numQubits >= 58 {
		return -1
	}
	return amplitudeBytes << numQubits
}

/*
CreateCircuit allocates a circuit in the all-zero basis state.

Fails with DuplicateIdError when the id is live, with CapacityError
when the buffer would push aggregate memory past the ceiling, and with
InvalidQubitIndexError on a non-positive qubit count. On failure
nothing is allocated.
*/
func (r *Registry) CreateCircuit(id string, numQubits int) (*Circuit, error) {
	if numQubits < 1 {
		return nil, newError(InvalidQubitIndexError,
			"qubit count must be positive, got %d", numQubits)
	}

	need := circuitBytes(numQubits)
	if need < 0 {
		return nil, newError(CapacityError,
			"%d qubits cannot fit any configured ceiling", numQubits)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.circuits[id]; ok {
		return nil, newError(DuplicateIdError, "circuit %q already registered", id)
	}
	// Reserve before allocating: a refusal must leave zero footprint.
	if err := r.governor.Reserve(need); err != nil {
		return nil, err
	}

	c := newCircuit(id, numQubits, r.cfg.Seed, r.cfg.RenormEpsilon)
	r.circuits[id] = c
	r.metrics.setCircuitsLive(len(r.circuits))
	r.governor.Observe(r.metrics)
	errnie.Info("circuit %s created: %d qubits, %d bytes", id, numQubits, need)
	return c, nil
}

// Circuit looks up a live circuit.
func (r *Registry) Circuit(id string) (*Circuit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.circuits[id]
	if !ok {
		return nil, newError(UnknownCircuitError, "no circuit registered as %q", id)
	}
	return c, nil
}

// ReleaseCircuit frees a circuit's buffer and accounting. Idempotent:
// releasing an unknown or already-released id is a no-op.
func (r *Registry) ReleaseCircuit(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.circuits[id]
	if !ok {
		return
	}
	delete(r.circuits, id)
	r.governor.Release(circuitBytes(c.numQubits))
	r.metrics.setCircuitsLive(len(r.circuits))
	r.governor.Observe(r.metrics)
}

// AddProblem registers a search problem under its id.
func (r *Registry) AddProblem(p *SearchProblem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.problems[p.ID]; ok {
		return newError(DuplicateIdError, "search problem %q already registered", p.ID)
	}
	r.problems[p.ID] = p
	return nil
}

// Problem looks up a registered search problem.
func (r *Registry) Problem(id string) (*SearchProblem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.problems[id]
	if !ok {
		return nil, newError(UnknownProblemError, "no search problem registered as %q", id)
	}
	return p, nil
}

// ReleaseProblem discards a search problem. Idempotent.
func (r *Registry) ReleaseProblem(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.problems, id)
}

// CircuitCount returns the number of live circuits.
func (r *Registry) CircuitCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.circuits)
}

// BytesInUse returns aggregate live statevector memory.
func (r *Registry) BytesInUse() int64 {
	return r.governor.InUse()
}

// Close releases every live circuit and problem. Further use of the
// registry is refused by the API layer's availability gate.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, c := range r.circuits {
		r.governor.Release(circuitBytes(c.numQubits))
		delete(r.circuits, id)
	}
	for id := range r.problems {
		delete(r.problems, id)
	}
	r.metrics.setCircuitsLive(0)
	r.governor.Observe(r.metrics)
}
