// Package histogram builds per-worker radix histograms over a bit
// window and merges them into column-major prefix-sum write offsets,
// the scatter destinations a partitioning pass needs to place every
// tuple without any worker-to-worker contention.
package histogram

import (
	"github.com/gfmartins/hashjoins/tuple"
	"github.com/grailbio/base/traverse"
)

// Window is a contiguous bit range [Lo, Lo+Bits) of the join key used
// to select a partition.
type Window struct {
	Lo   uint
	Bits uint
}

// Partitions returns 1<<Bits, the number of partitions this window
// selects among.
func (w Window) Partitions() int { return 1 << w.Bits }

// partitionOf returns the partition index for value under w.
func (w Window) partitionOf(value uint64) int {
	mask := uint64(w.Partitions() - 1)
	return int((value >> w.Lo) & mask)
}

// Result is the output of Build: per-worker histograms H[t][p] and
// their column-major exclusive prefix-sum offsets O[t][p], plus the
// total tuple count assigned to each partition.
type Result struct {
	Workers    int
	Partitions int
	// Counts[t][p] is the number of tuples worker t assigned to
	// partition p in this pass.
	Counts [][]int
	// Offsets[t][p] is the scatter write-offset for worker t,
	// partition p: the exclusive column-major prefix sum over Counts.
	Offsets [][]int
	// PartitionTotal[p] is sum_t Counts[t][p], the size of partition p.
	PartitionTotal []int
}

// WorkerRange returns the contiguous [start, end) input range owned by
// worker w of workerCount over an input of length n, splitting as
// evenly as integer division allows. The partitioner reuses this so
// its scatter range for worker t always matches the range Build used
// to compute worker t's histogram row.
func WorkerRange(w, workerCount, n int) (start, end int) {
	start = (w * n) / workerCount
	end = ((w + 1) * n) / workerCount
	return
}

// Build computes histograms and prefix-sum offsets for input under
// window w, fanning the per-worker scan out across workerCount workers
// via traverse.Each. traverse.Each is itself a barrier: it blocks until
// every worker's histogram write has completed before Build computes
// the single-threaded prefix sum, so no bespoke barrier type is needed
// between the two phases.
func Build(input tuple.Relation, w Window, workerCount int) (Result, error) {
	partitions := w.Partitions()
	counts := make([][]int, workerCount)
	for t := range counts {
		counts[t] = make([]int, partitions)
	}

	// Phase: per-worker histogram scan. Each worker writes only its
	// own row of counts; no cross-thread writes occur here.
	err := traverse.Each(workerCount, func(t int) error {
		start, end := WorkerRange(t, workerCount, len(input))
		row := counts[t]
		for _, tup := range input[start:end] {
			row[w.partitionOf(tup.Value)]++
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	// Phase: prefix sum, column-major (all of partition 0 across every
	// worker, then partition 1, ...), computed by a single coordinator;
	// the scan itself is cheap enough that parallelizing it isn't worth
	// the added coordination.
	offsets := make([][]int, workerCount)
	for t := range offsets {
		offsets[t] = make([]int, partitions)
	}
	partitionTotal := make([]int, partitions)
	running := 0
	for p := 0; p < partitions; p++ {
		partitionStart := running
		for t := 0; t < workerCount; t++ {
			offsets[t][p] = running
			running += counts[t][p]
		}
		partitionTotal[p] = running - partitionStart
	}

	return Result{
		Workers:        workerCount,
		Partitions:     partitions,
		Counts:         counts,
		Offsets:        offsets,
		PartitionTotal: partitionTotal,
	}, nil
}
