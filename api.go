package qsim

import (
	"context"
	"time"

	"github.com/theapemachine/errnie"
)

// Status is the envelope every operation returns: an explicit success
// flag and, on failure, a typed classification. No operation ever
// raises an opaque fault across this boundary.
type Status struct {
	Success   bool      `json:"success"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Message   string    `json:"message,omitempty"`
}

func okStatus() Status {
	return Status{Success: true}
}

func failStatus(err error) Status {
	return Status{Success: false, ErrorKind: KindOf(err), Message: err.Error()}
}

func unavailableStatus() Status {
	return Status{
		Success:   false,
		ErrorKind: UnavailableError,
		Message:   "simulation subsystem is unavailable",
	}
}

// GateSpec is the wire form of one gate in a batch.
type GateSpec struct {
	Gate   string    `json:"gate"`
	Qubits []int     `json:"qubits"`
	Params []float64 `json:"params,omitempty"`
}

type CreateCircuitResult struct {
	Status
	CircuitID string `json:"circuit_id,omitempty"`
	NumQubits int    `json:"num_qubits,omitempty"`
}

type ApplyGatesResult struct {
	Status
	GatesApplied int `json:"gates_applied"`
	// FailedAtIndex is the index of the first invalid gate, -1 when the
	// whole batch applied.
	FailedAtIndex int `json:"failed_at_index"`
}

type MeasureResult struct {
	Status
	Results []int `json:"results,omitempty"`
}

type GetStateResult struct {
	Status
	States []BasisState `json:"states,omitempty"`
}

type ReleaseCircuitResult struct {
	Status
}

type CreateSearchProblemResult struct {
	Status
	ProblemID string `json:"problem_id,omitempty"`
}

type RunSearchResult struct {
	Status
	RankedCandidates []Candidate `json:"ranked_candidates,omitempty"`
}

/*
API is the stateful surface exposing the statevector simulator and the
cognition engine. The registry is its only persistent resource; every
operation is otherwise stateless given the registry.

Degradation contract: when the subsystem is uninitialized or the
availability breaker is open, every call returns success:false with
UnavailableError, never a default, cached, or fabricated payload.
Recovered panics from caller-supplied objectives count as internal
faults and feed the breaker.
*/
type API struct {
	cfg      *Config
	metrics  *Metrics
	registry *Registry
	engine   *CognitionEngine
	breaker  *AvailabilityBreaker
}

func NewAPI(cfg *Config) *API {
	if cfg == nil {
		cfg = NewConfig()
	}
	metrics := NewMetrics()
	a := &API{
		cfg:      cfg,
		metrics:  metrics,
		registry: NewRegistry(cfg, metrics),
		engine:   NewCognitionEngine(cfg, metrics),
		breaker: NewAvailabilityBreaker(
			cfg.BreakerMaxFaults,
			cfg.BreakerResetTimeout,
			cfg.BreakerProbeMax,
		),
	}
	errnie.Info(
		"qsim api initialized: ceiling %d bytes, seed %d",
		cfg.ceilingBytes(), cfg.Seed,
	)
	return a
}

// Metrics exposes the in-process counters.
func (a *API) Metrics() *Metrics { return a.metrics }

// Breaker exposes the availability gate so a host can trip or reset
// the subsystem explicitly.
func (a *API) Breaker() *AvailabilityBreaker { return a.breaker }

// Shutdown releases every registry entry and takes the subsystem
// offline; subsequent calls degrade to UnavailableError.
func (a *API) Shutdown() {
	a.breaker.Trip()
	a.registry.Close()
	errnie.Info("qsim api shut down")
}

func (a *API) available() bool {
	return a != nil && a.registry != nil && a.breaker.Allow()
}

// guard converts a panic escaping a delegate into an internal fault:
// the breaker records it and the caller sees a structured unavailable
// result instead of an unwound stack. Completed operations feed the
// breaker as successes, which is what closes it again after probing.
func (a *API) guard(status *Status) {
	if r := recover(); r != nil {
		a.breaker.RecordFault()
		errnie.Info("qsim api recovered internal fault: %v", r)
		*status = unavailableStatus()
		return
	}
	if status.Success {
		a.breaker.RecordSuccess()
	}
}

// CreateCircuit allocates a circuit or fails fast with zero footprint.
func (a *API) CreateCircuit(circuitID string, numQubits int) (res CreateCircuitResult) {
	start := time.Now()
	defer a.guard(&res.Status)

	if !a.available() {
		res.Status = unavailableStatus()
		return res
	}
	c, err := a.registry.CreateCircuit(circuitID, numQubits)
	a.metrics.recordOp(start, err)
	if err != nil {
		res.Status = failStatus(err)
		return res
	}
	res.Status = okStatus()
	res.CircuitID = c.ID()
	res.NumQubits = c.NumQubits()
	return res
}

/*
ApplyGates validates and applies a gate batch all-or-nothing. Gate
construction problems (unknown kind, wrong arity, bad parameter) and
out-of-range qubits both reject the whole batch with the index of the
first offender; the circuit's statevector is untouched on rejection.
*/
func (a *API) ApplyGates(circuitID string, gates []GateSpec) (res ApplyGatesResult) {
	start := time.Now()
	res.FailedAtIndex = -1
	defer a.guard(&res.Status)

	if !a.available() {
		res.Status = unavailableStatus()
		return res
	}

	c, err := a.registry.Circuit(circuitID)
	if err != nil {
		a.metrics.recordOp(start, err)
		res.Status = failStatus(err)
		return res
	}

	built := make([]Gate, 0, len(gates))
	for i, spec := range gates {
		kind, err := ParseGateKind(spec.Gate)
		if err != nil {
			a.metrics.recordOp(start, err)
			res.Status = failStatus(err)
			res.FailedAtIndex = i
			return res
		}
		g, err := NewGate(kind, spec.Qubits, spec.Params...)
		if err != nil {
			a.metrics.recordOp(start, err)
			res.Status = failStatus(err)
			res.FailedAtIndex = i
			return res
		}
		built = append(built, g)
	}

	applied, failedAt, err := c.ApplyGates(built)
	a.metrics.recordOp(start, err)
	if err != nil {
		res.Status = failStatus(err)
		res.FailedAtIndex = failedAt
		return res
	}
	a.metrics.addGates(applied)
	res.Status = okStatus()
	res.GatesApplied = applied
	return res
}

// Measure destructively samples the circuit's basis distribution.
func (a *API) Measure(circuitID string) (res MeasureResult) {
	start := time.Now()
	defer a.guard(&res.Status)

	if !a.available() {
		res.Status = unavailableStatus()
		return res
	}
	c, err := a.registry.Circuit(circuitID)
	a.metrics.recordOp(start, err)
	if err != nil {
		res.Status = failStatus(err)
		return res
	}
	res.Status = okStatus()
	res.Results = c.Measure()
	a.metrics.addMeasurement()
	return res
}

// GetState returns up to topN basis states by probability without
// perturbing the circuit.
func (a *API) GetState(circuitID string, topN int) (res GetStateResult) {
	start := time.Now()
	defer a.guard(&res.Status)

	if !a.available() {
		res.Status = unavailableStatus()
		return res
	}
	c, err := a.registry.Circuit(circuitID)
	a.metrics.recordOp(start, err)
	if err != nil {
		res.Status = failStatus(err)
		return res
	}
	if topN < 1 {
		topN = 1
	}
	res.Status = okStatus()
	res.States = c.TopStates(topN)
	return res
}

// ReleaseCircuit frees a circuit; idempotent on unknown ids.
func (a *API) ReleaseCircuit(circuitID string) (res ReleaseCircuitResult) {
	start := time.Now()
	defer a.guard(&res.Status)

	if !a.available() {
		res.Status = unavailableStatus()
		return res
	}
	a.registry.ReleaseCircuit(circuitID)
	a.metrics.recordOp(start, nil)
	res.Status = okStatus()
	return res
}

// CreateSearchProblem registers a problem for later runs. The objective
// and expander are opaque caller code.
func (a *API) CreateSearchProblem(p *SearchProblem) (res CreateSearchProblemResult) {
	start := time.Now()
	defer a.guard(&res.Status)

	if !a.available() {
		res.Status = unavailableStatus()
		return res
	}
	if p == nil {
		err := newError(InvalidProblemError, "nil search problem")
		a.metrics.recordOp(start, err)
		res.Status = failStatus(err)
		return res
	}
	if err := p.validate(); err != nil {
		a.metrics.recordOp(start, err)
		res.Status = failStatus(err)
		return res
	}
	err := a.registry.AddProblem(p)
	a.metrics.recordOp(start, err)
	if err != nil {
		res.Status = failStatus(err)
		return res
	}
	res.Status = okStatus()
	res.ProblemID = p.ID
	return res
}

// RunSearch executes the cognition engine against a registered problem.
// Cancellation lands at an iteration boundary and still carries the
// partial ranking.
func (a *API) RunSearch(ctx context.Context, problemID string, iterations int) (res RunSearchResult) {
	start := time.Now()
	defer a.guard(&res.Status)

	if !a.available() {
		res.Status = unavailableStatus()
		return res
	}
	p, err := a.registry.Problem(problemID)
	if err != nil {
		a.metrics.recordOp(start, err)
		res.Status = failStatus(err)
		return res
	}
	ranked, err := a.engine.Run(ctx, p, iterations)
	a.metrics.recordOp(start, err)
	if err != nil {
		res.Status = failStatus(err)
		res.RankedCandidates = ranked
		return res
	}
	res.Status = okStatus()
	res.RankedCandidates = ranked
	return res
}

// GetRankedCandidates returns the most recent run's ranking; empty but
// successful on a problem that never ran.
func (a *API) GetRankedCandidates(problemID string) (res RunSearchResult) {
	start := time.Now()
	defer a.guard(&res.Status)

	if !a.available() {
		res.Status = unavailableStatus()
		return res
	}
	p, err := a.registry.Problem(problemID)
	a.metrics.recordOp(start, err)
	if err != nil {
		res.Status = failStatus(err)
		return res
	}
	res.Status = okStatus()
	res.RankedCandidates = p.Ranked()
	return res
}
