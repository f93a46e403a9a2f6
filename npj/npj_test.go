package npj_test

import (
	"testing"

	"github.com/gfmartins/hashjoins/internal/fixtures"
	"github.com/gfmartins/hashjoins/internal/joinerrors"
	"github.com/gfmartins/hashjoins/npj"
	"github.com/gfmartins/hashjoins/tuple"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGetBeforeExecute checks that calling Get before Execute reports a
// precondition violation.
func TestGetBeforeExecute(t *testing.T) {
	left := fixtures.Uniform(1, 0, 10000, 1000)
	right := fixtures.Uniform(2, 0, 10000, 1000)
	j := npj.NewDefault(left, right)
	_, err := j.Get()
	require.Error(t, err)
	assert.True(t, joinerrors.IsPrecondition(err))
}

// TestExecuteTwice checks that calling Execute a second time also
// reports a precondition violation.
func TestExecuteTwice(t *testing.T) {
	left := fixtures.Uniform(1, 0, 100, 10)
	right := fixtures.Uniform(2, 0, 100, 10)
	j := npj.NewDefault(left, right)
	require.NoError(t, j.Execute())
	err := j.Execute()
	require.Error(t, err)
	assert.True(t, joinerrors.IsPrecondition(err))
}

// TestDisjointDomains checks that no overlap between key ranges means
// an empty result.
func TestDisjointDomains(t *testing.T) {
	left := fixtures.Uniform(1, 0, 10000, 1000)
	right := fixtures.Uniform(2, 20000, 30000, 1000)
	j := npj.NewDefault(left, right)
	require.NoError(t, j.Execute())
	result, err := j.Get()
	require.NoError(t, err)
	assert.Empty(t, result)
}

// TestSingletonCross checks that 1000 tuples with key=1 on the left,
// against a single key=1 tuple on the right, yield 1000 matches.
func TestSingletonCross(t *testing.T) {
	count := 1000
	left := fixtures.Uniform(1, 1, 1, count)
	right := fixtures.Uniform(2, 1, 1, 1)
	j := npj.NewDefault(left, right)
	require.NoError(t, j.Execute())
	result, err := j.Get()
	require.NoError(t, err)
	assert.Len(t, result, count)
	for _, tr := range result {
		assert.Equal(t, uint64(1), tr.Value)
	}
}

// TestFullCross checks that 1000x1000 tuples all sharing key=1 yield
// the full 1,000,000-pair Cartesian product.
func TestFullCross(t *testing.T) {
	count := 1000
	left := fixtures.Uniform(1, 1, 1, count)
	right := fixtures.Uniform(2, 1, 1, count)
	j := npj.NewDefault(left, right)
	require.NoError(t, j.Execute())
	result, err := j.Get()
	require.NoError(t, err)
	assert.Len(t, result, count*count)
}

// TestEmptyBuildSide checks that an empty build side always yields an
// empty result, regardless of probe-side size.
func TestEmptyBuildSide(t *testing.T) {
	j := npj.NewDefault(tuple.Relation{}, fixtures.Uniform(1, 0, 10, 50))
	require.NoError(t, j.Execute())
	result, err := j.Get()
	require.NoError(t, err)
	assert.Empty(t, result)
}

// TestNonPositiveLoadFactor checks that load_factor <= 0 is a
// precondition violation.
func TestNonPositiveLoadFactor(t *testing.T) {
	j := npj.New(fixtures.Uniform(1, 0, 10, 5), fixtures.Uniform(2, 0, 10, 5), 0)
	err := j.Execute()
	require.Error(t, err)
	assert.True(t, joinerrors.IsPrecondition(err))
}

// TestStatistical checks that, with uniform keys in [1, 2^12] and 2^17
// tuples on each side, the result size lands within 5% of its
// statistically expected value (2^12 * (2^17/2^12)^2 = 2^22).
func TestStatistical(t *testing.T) {
	count := 1 << 17
	domainMax := uint64(1 << 12)
	left := fixtures.Uniform(11, 1, domainMax, count)
	right := fixtures.Uniform(22, 1, domainMax, count)
	j := npj.NewDefault(left, right)
	require.NoError(t, j.Execute())
	result, err := j.Get()
	require.NoError(t, err)

	expected := float64(domainMax) * (float64(count) / float64(domainMax)) * (float64(count) / float64(domainMax))
	assert.InEpsilon(t, expected, float64(len(result)), 0.05)
}

// TestSoundness checks that every emitted triple is backed by an
// actual matching pair in the inputs.
func TestSoundness(t *testing.T) {
	left := fixtures.Uniform(3, 0, 50, 300)
	right := fixtures.Uniform(4, 0, 50, 300)

	leftByRID := map[uint64]uint64{}
	for _, l := range left {
		leftByRID[l.RID] = l.Value
	}
	rightByRID := map[uint64]uint64{}
	for _, r := range right {
		rightByRID[r.RID] = r.Value
	}

	j := npj.NewDefault(left, right)
	require.NoError(t, j.Execute())
	result, err := j.Get()
	require.NoError(t, err)

	for _, tr := range result {
		lv, ok := leftByRID[tr.LRID]
		require.True(t, ok)
		rv, ok := rightByRID[tr.RRID]
		require.True(t, ok)
		assert.Equal(t, tr.Value, lv)
		assert.Equal(t, tr.Value, rv)
	}
}

// TestCompleteness checks that no match is missed, by counting
// per-key multiplicities directly rather than trusting the join.
func TestCompleteness(t *testing.T) {
	left := fixtures.Uniform(5, 0, 20, 500)
	right := fixtures.Uniform(6, 0, 20, 500)

	leftCounts := map[uint64]int{}
	for _, l := range left {
		leftCounts[l.Value]++
	}
	rightCounts := map[uint64]int{}
	for _, r := range right {
		rightCounts[r.Value]++
	}
	expected := 0
	for k, lc := range leftCounts {
		expected += lc * rightCounts[k]
	}

	j := npj.NewDefault(left, right)
	require.NoError(t, j.Execute())
	result, err := j.Get()
	require.NoError(t, err)
	assert.Len(t, result, expected)
}
