package radix

import (
	"github.com/gfmartins/hashjoins/internal/joinerrors"
	"github.com/gfmartins/hashjoins/radix/partition"
)

// DefaultLoadFactor matches npj.DefaultLoadFactor; kept as an
// independent constant so radix has no import-time dependency on npj.
const DefaultLoadFactor = 1.5

// Config holds PRJ's tunables: how many bits select a partition per
// pass, how many passes to run, the per-partition hash-table load
// factor, and the worker pool size.
type Config struct {
	BitsPerPass int
	Passes      int
	LoadFactor  float64
	WorkerCount int
}

// DefaultConfig returns a single-pass, 8-bit, load-factor-1.5 config
// with workerCount workers, a reasonable starting point for a
// single-pass multithreaded radix join.
func DefaultConfig(workerCount int) Config {
	return Config{
		BitsPerPass: 8,
		Passes:      1,
		LoadFactor:  DefaultLoadFactor,
		WorkerCount: workerCount,
	}
}

func (c Config) partitionConfig() partition.Config {
	return partition.Config{
		BitsPerPass: c.BitsPerPass,
		Passes:      c.Passes,
		WorkerCount: c.WorkerCount,
	}
}

// validate checks PRJ's configuration preconditions in full:
// partition.Config.Validate covers bits/passes/worker count, and this
// adds the load-factor check that's specific to the build/probe phase.
func (c Config) validate() error {
	const op = "radix.Config.validate"
	if c.LoadFactor <= 0 {
		return joinerrors.NewPrecondition(op, "load factor must be positive, got %v", c.LoadFactor)
	}
	return c.partitionConfig().Validate()
}
