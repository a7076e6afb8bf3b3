package qsim

import (
	"sync"
	"time"
)

// AvailabilityState represents the operational mode of the subsystem
// gate as it transitions based on internal health.
type AvailabilityState int

const (
	SubsystemAvailable AvailabilityState = iota // Normal operation
	SubsystemDown                               // Degraded, refusing all calls
	SubsystemProbing                            // Probationary, allowing limited calls
)

/*
AvailabilityBreaker is the degrade-to-unavailable gate in front of the
simulation subsystem. After repeated internal faults it opens and every
API call reports UnavailableError instead of a fabricated payload; the
callers on the other side are autonomous agents, and a misleading
success signal is strictly worse than an explicit failure.

The breaker operates in three states:
  - Available: normal operation, all calls pass
  - Down: fault threshold exceeded, or the host took the subsystem
    offline explicitly; all calls refused
  - Probing: after the reset timeout, a limited number of calls pass to
    test whether the subsystem has recovered

Domain errors caused by caller input (capacity, bad gates, unknown ids)
are not faults and never open the breaker.
*/
type AvailabilityBreaker struct {
	mu            sync.RWMutex
	maxFaults     int           // Faults before going down
	resetTimeout  time.Duration // Time before probing for recovery
	probeMax      int           // Calls allowed while probing
	faultCount    int
	state         AvailabilityState
	downTime      time.Time
	probeAttempts int
	tripped       bool // Held down by the host, no self-recovery
}

func NewAvailabilityBreaker(maxFaults int, resetTimeout time.Duration, probeMax int) *AvailabilityBreaker {
	return &AvailabilityBreaker{
		maxFaults:    maxFaults,
		resetTimeout: resetTimeout,
		probeMax:     probeMax,
		state:        SubsystemAvailable,
	}
}

// Allow reports whether a call may proceed, advancing the state machine
// on timeout expiry.
func (ab *AvailabilityBreaker) Allow() bool {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	switch ab.state {
	case SubsystemAvailable:
		return true
	case SubsystemDown:
		if ab.tripped {
			return false
		}
		if time.Since(ab.downTime) >= ab.resetTimeout {
			ab.state = SubsystemProbing
			ab.probeAttempts = 1
			return true
		}
		return false
	case SubsystemProbing:
		if ab.probeAttempts < ab.probeMax {
			ab.probeAttempts++
			return true
		}
		return false
	}
	return false
}

// RecordFault records an internal fault and opens the breaker once the
// threshold is reached. A fault while probing reopens immediately.
func (ab *AvailabilityBreaker) RecordFault() {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	ab.faultCount++
	if ab.state == SubsystemProbing || ab.faultCount >= ab.maxFaults {
		ab.state = SubsystemDown
		ab.downTime = time.Now()
		ab.probeAttempts = 0
	}
}

// RecordSuccess closes the breaker after enough successful probes.
// While available it decays the fault count, so isolated faults spread
// across a healthy run never accumulate to the threshold.
func (ab *AvailabilityBreaker) RecordSuccess() {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	switch ab.state {
	case SubsystemAvailable:
		ab.faultCount = 0
	case SubsystemProbing:
		if ab.probeAttempts >= ab.probeMax {
			ab.state = SubsystemAvailable
			ab.faultCount = 0
			ab.probeAttempts = 0
		}
	}
}

// Trip takes the subsystem offline until Reset; there is no self
// recovery from a host-initiated trip.
func (ab *AvailabilityBreaker) Trip() {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	ab.tripped = true
	ab.state = SubsystemDown
	ab.downTime = time.Now()
}

// Reset returns a tripped breaker to normal operation.
func (ab *AvailabilityBreaker) Reset() {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	ab.tripped = false
	ab.state = SubsystemAvailable
	ab.faultCount = 0
	ab.probeAttempts = 0
}

// State returns the current availability state.
func (ab *AvailabilityBreaker) State() AvailabilityState {
	ab.mu.RLock()
	defer ab.mu.RUnlock()
	return ab.state
}

// Observe implements Regulator.
func (ab *AvailabilityBreaker) Observe(metrics *Metrics) {
	if metrics == nil {
		return
	}
	metrics.setAvailability(ab.State())
}

// Limit implements Regulator without advancing the state machine.
func (ab *AvailabilityBreaker) Limit() bool {
	return ab.State() == SubsystemDown
}

// Renormalize implements Regulator: a non-tripped breaker whose reset
// timeout has elapsed moves to probing, and a probing breaker whose
// probe quota is spent gets a fresh probe round.
func (ab *AvailabilityBreaker) Renormalize() {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	switch {
	case ab.state == SubsystemDown && !ab.tripped &&
		time.Since(ab.downTime) >= ab.resetTimeout:
		ab.state = SubsystemProbing
		ab.probeAttempts = 0
	case ab.state == SubsystemProbing && ab.probeAttempts >= ab.probeMax:
		ab.probeAttempts = 0
	}
}
