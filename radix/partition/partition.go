// Package partition implements the parallel, contention-free scatter of
// an input buffer into partition-aligned regions of an output buffer,
// plus the multi-pass recursive refinement that re-partitions each
// leaf by the next window of bits when more than one pass is
// configured.
package partition

import (
	"github.com/gfmartins/hashjoins/internal/joinerrors"
	"github.com/gfmartins/hashjoins/radix/histogram"
	"github.com/gfmartins/hashjoins/tuple"
	"github.com/grailbio/base/traverse"
	"github.com/pkg/errors"
)

// Config controls how many bits select a partition per pass and how
// many passes are applied.
type Config struct {
	BitsPerPass int
	Passes      int
	WorkerCount int
}

// PartitionCount returns the effective partition count after all
// passes: 1 << (bits_per_pass * passes).
func (c Config) PartitionCount() int { return 1 << uint(c.BitsPerPass*c.Passes) }

// Validate rejects configurations that cannot produce a sane partition
// count: non-positive worker count, bits-per-pass, or passes, and a
// combined bit width that would overflow a uint64 partition index.
func (c Config) Validate() error {
	const op = "partition.Validate"
	if c.WorkerCount <= 0 {
		return joinerrors.NewPrecondition(op, "worker count must be positive, got %d", c.WorkerCount)
	}
	if c.BitsPerPass <= 0 {
		return joinerrors.NewPrecondition(op, "bits per pass must be positive, got %d", c.BitsPerPass)
	}
	if c.Passes <= 0 {
		return joinerrors.NewPrecondition(op, "passes must be at least 1, got %d", c.Passes)
	}
	if c.BitsPerPass*c.Passes > 63 {
		return joinerrors.NewPrecondition(op, "bits_per_pass*passes = %d exceeds 63", c.BitsPerPass*c.Passes)
	}
	return nil
}

// Partitioned is the recursive partitioning result: Tuples holds every
// input tuple rearranged so each leaf partition occupies a contiguous
// slice, and Bounds[p] gives that slice's [start, end) within Tuples.
type Partitioned struct {
	Tuples []tuple.Tuple
	Bounds []Bound
}

// Bound is a partition's contiguous region within a Partitioned buffer.
type Bound struct {
	Start, End int
}

func (b Bound) Len() int { return b.End - b.Start }

// leaf tracks one in-progress partition through the pass loop: its
// current contiguous region in cur, and the partition index it has
// accumulated from the passes applied so far. Pass k contributes its
// local sub-partition number at bit offset k*BitsPerPass, so index
// always equals the low (k+1)*BitsPerPass bits of every key in the
// region once pass k completes — the same bits Window{Lo, Bits}
// extracted to produce that sub-partition number.
type leaf struct {
	bound Bound
	index int
}

// Run executes Config.Passes rounds of histogram-then-scatter over
// input, each round consuming the next BitsPerPass bits starting where
// the previous round left off. The returned Bounds is indexed by the
// combined partition number across all passes, i.e. Bounds[p] holds
// exactly the tuples whose low (bits_per_pass*passes) bits equal p.
// Each pass writes into a freshly allocated buffer sized |input|.
func Run(input tuple.Relation, cfg Config) (Partitioned, error) {
	if err := cfg.Validate(); err != nil {
		return Partitioned{}, err
	}

	cur := append([]tuple.Tuple(nil), input...)
	leaves := []leaf{{bound: Bound{Start: 0, End: len(cur)}, index: 0}}
	bitsSoFar := uint(0)

	for pass := 0; pass < cfg.Passes; pass++ {
		win := histogram.Window{Lo: bitsSoFar, Bits: uint(cfg.BitsPerPass)}

		next := make([]tuple.Tuple, len(cur))
		nextLeaves := make([]leaf, 0, len(leaves)*win.Partitions())

		for _, lf := range leaves {
			sub := cur[lf.bound.Start:lf.bound.End]
			hist, err := histogram.Build(sub, win, workersFor(cfg.WorkerCount, len(sub)))
			if err != nil {
				return Partitioned{}, errors.Wrapf(err, "partition pass %d: histogram over [%d,%d)", pass, lf.bound.Start, lf.bound.End)
			}
			scattered, subBounds, err := scatterOne(sub, win, hist)
			if err != nil {
				return Partitioned{}, errors.Wrapf(err, "partition pass %d: scatter over [%d,%d)", pass, lf.bound.Start, lf.bound.End)
			}
			copy(next[lf.bound.Start:lf.bound.End], scattered)
			for sp, sb := range subBounds {
				nextLeaves = append(nextLeaves, leaf{
					bound: Bound{Start: lf.bound.Start + sb.Start, End: lf.bound.Start + sb.End},
					index: lf.index + sp<<bitsSoFar,
				})
			}
		}

		cur = next
		leaves = nextLeaves
		bitsSoFar += uint(cfg.BitsPerPass)
	}

	bounds := make([]Bound, cfg.PartitionCount())
	for _, lf := range leaves {
		bounds[lf.index] = lf.bound
	}

	return Partitioned{Tuples: cur, Bounds: bounds}, nil
}

// workersFor clamps the configured worker count to the size of the
// region being partitioned, so a small trailing partition in a
// multi-pass run does not over-subscribe single-digit tuple counts
// across dozens of workers.
func workersFor(configured, n int) int {
	if n == 0 {
		return 1
	}
	if configured > n {
		return n
	}
	return configured
}

// scatterOne performs one histogram-driven scatter of sub into
// partition-aligned order, fanning the write-out across workers via
// traverse.Each. hist.Offsets guarantees worker-disjoint write regions,
// so no locking is needed inside the scatter.
func scatterOne(sub []tuple.Tuple, win histogram.Window, hist histogram.Result) ([]tuple.Tuple, []Bound, error) {
	out := make([]tuple.Tuple, len(sub))

	err := traverse.Each(hist.Workers, func(t int) error {
		start, end := histogram.WorkerRange(t, hist.Workers, len(sub))
		cursor := append([]int(nil), hist.Offsets[t]...)
		for _, tup := range sub[start:end] {
			p := int((tup.Value >> win.Lo) & uint64(win.Partitions()-1))
			out[cursor[p]] = tup
			cursor[p]++
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	bounds := make([]Bound, hist.Partitions)
	running := 0
	for p := 0; p < hist.Partitions; p++ {
		bounds[p] = Bound{Start: running, End: running + hist.PartitionTotal[p]}
		running += hist.PartitionTotal[p]
	}
	return out, bounds, nil
}
