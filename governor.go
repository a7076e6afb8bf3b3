package qsim

import (
	"bufio"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

/*
Regulator defines an interface for types that regulate the simulation
subsystem. Each regulator monitors metrics and decides whether an
operation should be restricted, keeping the system inside its resource
and availability envelope.

Implementations:
  - MemoryGovernor: enforces the aggregate statevector memory ceiling
  - AvailabilityBreaker: degrades the whole subsystem to unavailable
    after repeated internal faults
*/
type Regulator interface {
	// Observe lets the regulator read current system metrics.
	Observe(metrics *Metrics)

	// Limit reports whether the regulated action should be restricted.
	Limit() bool

	// Renormalize attempts to return the regulator to a normal
	// operating state.
	Renormalize()
}

/*
MemoryGovernor enforces the capacity ceiling: the total bytes of all
live statevector buffers never exceeds the configured maximum. Each
circuit may individually fit, yet the sum must still be refused.

Reservation happens before allocation, so a refused create commits
nothing and needs no rollback.
*/
type MemoryGovernor struct {
	mu      sync.Mutex
	ceiling int64
	inUse   int64
}

func NewMemoryGovernor(ceiling int64) *MemoryGovernor {
	return &MemoryGovernor{ceiling: ceiling}
}

// Reserve accounts for an allocation about to happen. Fails with
// CapacityError when the ceiling would be exceeded.
func (mg *MemoryGovernor) Reserve(bytes int64) error {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	if bytes > mg.ceiling-mg.inUse {
		return newError(CapacityError,
			"%d bytes requested, %d of %d in use", bytes, mg.inUse, mg.ceiling)
	}
	mg.inUse += bytes
	return nil
}

// Release returns reserved bytes to the pool.
func (mg *MemoryGovernor) Release(bytes int64) {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	mg.inUse -= bytes
	if mg.inUse < 0 {
		mg.inUse = 0
	}
}

func (mg *MemoryGovernor) InUse() int64 {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	return mg.inUse
}

func (mg *MemoryGovernor) Ceiling() int64 {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	return mg.ceiling
}

// Observe implements Regulator.
func (mg *MemoryGovernor) Observe(metrics *Metrics) {
	if metrics == nil {
		return
	}
	metrics.setBytesInUse(mg.InUse())
}

// Limit implements Regulator: true once the ceiling is fully consumed.
func (mg *MemoryGovernor) Limit() bool {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	return mg.inUse >= mg.ceiling
}

// Renormalize implements Regulator. Accounting is exact, so there is
// nothing to restore.
func (mg *MemoryGovernor) Renormalize() {}

/*
systemMemoryBytes detects total system RAM for fraction-based ceilings.
On Linux it parses MemTotal from /proc/meminfo; elsewhere it falls back
to the Go runtime's view of memory obtained from the OS.
*/
func systemMemoryBytes() int64 {
	if total := linuxMemTotal(); total > 0 {
		return total
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return int64(ms.Sys)
}

func linuxMemTotal() int64 {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return 0
		}
		return kb * 1024
	}
	return 0
}
