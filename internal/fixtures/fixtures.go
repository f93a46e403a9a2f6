// Package fixtures provides deterministic, seedable tuple generators
// used only by this module's own test suite. It is not part of the
// public API: generating synthetic relations is a test concern, not
// something the join engines themselves need to do.
package fixtures

import (
	"encoding/binary"
	"math"
	"sort"

	farm "github.com/dgryski/go-farm"

	"github.com/gfmartins/hashjoins/tuple"
)

// stream is a deterministic pseudo-random uint64 stream derived from a
// seed via repeated FarmHash fingerprinting, replacing math/rand so
// that a given seed always reproduces the same tuples across runs and
// across machines.
type stream struct {
	seed    uint64
	counter uint64
}

func newStream(seed uint64) *stream { return &stream{seed: seed} }

func (s *stream) next() uint64 {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[0:8], s.seed)
	binary.LittleEndian.PutUint64(b[8:16], s.counter)
	s.counter++
	return farm.Fingerprint64(b[:])
}

// nextInRange returns a value uniformly distributed in [min, max]
// (inclusive).
func (s *stream) nextInRange(min, max uint64) uint64 {
	if max < min {
		min, max = max, min
	}
	width := max - min + 1
	if width == 0 {
		// min==0, max==maxUint64: the whole domain, any value works.
		return s.next()
	}
	return min + s.next()%width
}

// Uniform builds count tuples with keys uniform in [min, max] and
// sequential row-ids.
func Uniform(seed, min, max uint64, count int) tuple.Relation {
	s := newStream(seed)
	rel := make(tuple.Relation, count)
	for i := 0; i < count; i++ {
		rel[i] = tuple.Tuple{Value: s.nextInRange(min, max), RID: uint64(i)}
	}
	return rel
}

// Zipf builds count tuples with keys in [1, domain] drawn from a
// Zipfian distribution with the given skew (larger skew concentrates
// more mass on small keys). Row-ids are sequential.
//
// The distribution is produced with the inverse-CDF method over the
// deterministic stream above rather than math/rand.Zipf, so that the
// same seed reproduces the same relation regardless of Go version.
func Zipf(seed uint64, domain uint64, skew float64, count int) tuple.Relation {
	s := newStream(seed)
	cdf := zipfCDF(domain, skew)
	rel := make(tuple.Relation, count)
	for i := 0; i < count; i++ {
		u := float64(s.next()%1_000_000_000) / 1_000_000_000.0
		rel[i] = tuple.Tuple{Value: zipfInverseCDF(cdf, u), RID: uint64(i)}
	}
	return rel
}

// zipfCDF precomputes the cumulative distribution over [1, domain] so
// each sample only needs a binary search, not an O(domain) scan.
func zipfCDF(domain uint64, skew float64) []float64 {
	cdf := make([]float64, domain)
	sum := 0.0
	for k := uint64(1); k <= domain; k++ {
		sum += 1.0 / math.Pow(float64(k), skew)
		cdf[k-1] = sum
	}
	for i := range cdf {
		cdf[i] /= sum
	}
	return cdf
}

func zipfInverseCDF(cdf []float64, u float64) uint64 {
	idx := sort.SearchFloat64s(cdf, u)
	if idx >= len(cdf) {
		idx = len(cdf) - 1
	}
	return uint64(idx) + 1
}
