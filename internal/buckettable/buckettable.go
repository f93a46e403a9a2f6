// Package buckettable implements the cache-conscious bucket-chained
// hash table shared by the NPJ baseline and PRJ's per-partition
// build/probe phase. Each bucket holds two tuples inline plus a link to
// an overflow chain; overflow nodes live in a single arena per table and
// are referenced by index rather than pointer, so there is no per-node
// allocation on the probe hot path and no recursive destructor chain to
// unwind when the table is dropped.
package buckettable

import (
	"github.com/gfmartins/hashjoins/tuple"
)

const noNext = -1

// bucket is the inline, cache-line-sized hash table slot: a count, two
// inline tuples, and a head index into the table's overflow arena.
type bucket struct {
	count uint32
	head  int32
	t1    tuple.Tuple
	t2    tuple.Tuple
}

type overflowNode struct {
	t    tuple.Tuple
	next int32
}

// MixFunc computes a bucket-selection hash over a join key. It need not
// be cryptographically strong; it only needs to be a deterministic
// function of value so that repeated Insert/Probe calls with the same
// key always land in the same bucket.
type MixFunc func(value uint64) uint64

// Table is a bucket-chained hash table over N buckets, sized by the
// caller as ceil(load_factor * |build side|).
type Table struct {
	buckets  []bucket
	overflow []overflowNode
	mix      MixFunc
}

// New allocates a table with n buckets. mix selects the bucket for a
// given key; pass nil to use the identity function (plain value mod n).
func New(n uint64, mix MixFunc) *Table {
	if mix == nil {
		mix = identity
	}
	buckets := make([]bucket, n)
	for i := range buckets {
		buckets[i].head = noNext
	}
	return &Table{
		buckets: buckets,
		mix:     mix,
	}
}

func identity(value uint64) uint64 { return value }

func (t *Table) index(value uint64) uint64 {
	return t.mix(value) % uint64(len(t.buckets))
}

// Insert adds tup to the table: the first two tuples hashing to a
// bucket are stored inline, every tuple after that is appended to the
// bucket's overflow chain.
func (t *Table) Insert(tup tuple.Tuple) {
	b := &t.buckets[t.index(tup.Value)]
	switch b.count {
	case 0:
		b.t1 = tup
	case 1:
		b.t2 = tup
	default:
		idx := int32(len(t.overflow))
		t.overflow = append(t.overflow, overflowNode{t: tup, next: b.head})
		b.head = idx
	}
	b.count++
}

// Probe calls emit for every tuple stored in the table whose Value
// equals probeValue: both inline slots, then the overflow chain.
func (t *Table) Probe(probeValue uint64, emit func(tuple.Tuple)) {
	b := &t.buckets[t.index(probeValue)]
	if b.count > 0 && b.t1.Value == probeValue {
		emit(b.t1)
	}
	if b.count > 1 && b.t2.Value == probeValue {
		emit(b.t2)
	}
	for idx := b.head; idx != noNext; {
		node := &t.overflow[idx]
		if node.t.Value == probeValue {
			emit(node.t)
		}
		idx = node.next
	}
}

