package histogram_test

import (
	"testing"

	"github.com/gfmartins/hashjoins/internal/fixtures"
	"github.com/gfmartins/hashjoins/radix/histogram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConservation checks that no tuple is gained or dropped by
// histogramming: sum_{t,p} H[t][p] == |input|.
func TestConservation(t *testing.T) {
	input := fixtures.Uniform(1, 0, 1<<16, 5000)
	win := histogram.Window{Lo: 0, Bits: 6}

	for _, workers := range []int{1, 2, 7, 16} {
		t.Run("", func(t *testing.T) {
			res, err := histogram.Build(input, win, workers)
			require.NoError(t, err)

			total := 0
			for _, row := range res.Counts {
				for _, c := range row {
					total += c
				}
			}
			assert.Equal(t, len(input), total)

			partSum := 0
			for _, pt := range res.PartitionTotal {
				partSum += pt
			}
			assert.Equal(t, len(input), partSum)
		})
	}
}

// TestOffsetsAreColumnMajorAndDisjoint checks the two offset invariants
// a contention-free scatter depends on: O[t+1][p] == O[t][p] + H[t][p],
// and no two non-empty (worker, partition) write regions overlap.
func TestOffsetsAreColumnMajorAndDisjoint(t *testing.T) {
	input := fixtures.Uniform(2, 0, 1000, 3000)
	win := histogram.Window{Lo: 0, Bits: 4}
	workers := 5

	res, err := histogram.Build(input, win, workers)
	require.NoError(t, err)

	for p := 0; p < res.Partitions; p++ {
		for tIdx := 0; tIdx < workers-1; tIdx++ {
			assert.Equal(t, res.Offsets[tIdx][p]+res.Counts[tIdx][p], res.Offsets[tIdx+1][p])
		}
	}

	// Collect every (start,end) write range across all (t,p) and check
	// disjointness by sorting and verifying no overlaps.
	type span struct{ start, end int }
	var spans []span
	for tIdx := 0; tIdx < workers; tIdx++ {
		for p := 0; p < res.Partitions; p++ {
			if res.Counts[tIdx][p] == 0 {
				continue
			}
			spans = append(spans, span{res.Offsets[tIdx][p], res.Offsets[tIdx][p] + res.Counts[tIdx][p]})
		}
	}
	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			overlap := spans[i].start < spans[j].end && spans[j].start < spans[i].end
			assert.False(t, overlap, "spans %v and %v overlap", spans[i], spans[j])
		}
	}
}

func TestWorkerRangeCoversInputExactlyOnce(t *testing.T) {
	n := 97
	workers := 8
	covered := make([]bool, n)
	for w := 0; w < workers; w++ {
		start, end := histogram.WorkerRange(w, workers, n)
		for i := start; i < end; i++ {
			require.False(t, covered[i], "index %d covered twice", i)
			covered[i] = true
		}
	}
	for i, c := range covered {
		assert.True(t, c, "index %d never covered", i)
	}
}
