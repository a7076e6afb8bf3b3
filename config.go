package qsim

import "time"

type Config struct {
	// MemoryCeilingBytes caps the total statevector memory across all
	// live circuits. When zero, MemoryFraction of system RAM is used.
	MemoryCeilingBytes int64
	MemoryFraction     float64

	// Seed drives every random source in the subsystem: measurement
	// sampling and the cognition engine's exploration.
	Seed uint64

	// Cognition engine tunables.
	TunnelingProbability float64
	PlateauWindow        int
	Evaluators           int
	ExploreBreadth       int
	BeamWidth            int

	// RenormEpsilon is the norm drift beyond which a statevector is
	// silently renormalized.
	RenormEpsilon float64

	// Availability breaker tunables.
	BreakerMaxFaults    int
	BreakerResetTimeout time.Duration
	BreakerProbeMax     int
}

func NewConfig() *Config {
	return &Config{
		MemoryCeilingBytes:   1 << 30,
		Seed:                 1,
		TunnelingProbability: 0.15,
		PlateauWindow:        10,
		Evaluators:           4,
		ExploreBreadth:       8,
		BeamWidth:            64,
		RenormEpsilon:        1e-12,
		BreakerMaxFaults:     3,
		BreakerResetTimeout:  5 * time.Second,
		BreakerProbeMax:      2,
	}
}

// ceilingBytes resolves the effective memory ceiling, preferring the
// absolute override over the fraction of detected system RAM.
func (c *Config) ceilingBytes() int64 {
	if c.MemoryCeilingBytes > 0 {
		return c.MemoryCeilingBytes
	}
	if c.MemoryFraction > 0 {
		return int64(c.MemoryFraction * float64(systemMemoryBytes()))
	}
	return NewConfig().MemoryCeilingBytes
}
