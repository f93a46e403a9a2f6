// Package npj implements the no-partitioning hash join: a single
// bucket-chained hash table built over the smaller of the two input
// relations, probed by the other. It serves as the correctness
// baseline that package radix's parallel partitioned join is checked
// against.
package npj

import (
	"math"

	"github.com/gfmartins/hashjoins/internal/buckettable"
	"github.com/gfmartins/hashjoins/internal/joinerrors"
	"github.com/gfmartins/hashjoins/tuple"
	"github.com/grailbio/base/log"
)

// DefaultLoadFactor is the table-size multiplier used when none is
// supplied: N = ceil(load_factor * |build side|).
const DefaultLoadFactor = 1.5

// Engine runs a single no-partitioning hash join. It must be
// constructed with New, executed exactly once with Execute, and its
// results retrieved with Get.
type Engine struct {
	left, right tuple.Relation
	loadFactor  float64

	executed bool
	result   []tuple.Triple
}

// New constructs an NPJ engine over left and right with the given
// load factor. A non-positive loadFactor is a precondition violation,
// reported when Execute is called.
func New(left, right tuple.Relation, loadFactor float64) *Engine {
	return &Engine{left: left, right: right, loadFactor: loadFactor}
}

// NewDefault constructs an NPJ engine with DefaultLoadFactor.
func NewDefault(left, right tuple.Relation) *Engine {
	return New(left, right, DefaultLoadFactor)
}

// Execute runs the join. It may be called exactly once; a second call
// is a precondition violation. The smaller relation is always chosen
// as the build side (ties build on left).
func (e *Engine) Execute() error {
	const op = "npj.Execute"
	if e.executed {
		return joinerrors.NewPrecondition(op, "execute called twice")
	}
	if e.loadFactor <= 0 {
		return joinerrors.NewPrecondition(op, "load factor must be positive, got %v", e.loadFactor)
	}
	e.executed = true

	build, probe, buildIsLeft := e.left, e.right, true
	if len(build) > len(probe) {
		build, probe, buildIsLeft = probe, build, false
	}

	if len(build) == 0 {
		log.Debug.Printf("npj: build side empty, result is empty")
		e.result = nil
		return nil
	}

	n := uint64(math.Ceil(e.loadFactor * float64(len(build))))
	log.Debug.Printf("npj: building %d-bucket table over %d tuples", n, len(build))
	table := buckettable.New(n, buckettable.NPJMix)
	for _, b := range build {
		table.Insert(b)
	}

	result := make([]tuple.Triple, 0, len(probe))
	for _, p := range probe {
		table.Probe(p.Value, func(matched tuple.Tuple) {
			// build is whichever original relation is smaller; reorient
			// so the triple's LRID/RRID always match the caller's
			// original left/right relations, not the build/probe roles.
			if buildIsLeft {
				result = append(result, tuple.Triple{Value: matched.Value, LRID: matched.RID, RRID: p.RID})
			} else {
				result = append(result, tuple.Triple{Value: matched.Value, LRID: p.RID, RRID: matched.RID})
			}
		})
	}
	e.result = result
	return nil
}

// Get returns the result triples. It fails with a Precondition error
// if Execute has not completed.
func (e *Engine) Get() ([]tuple.Triple, error) {
	if !e.executed {
		return nil, joinerrors.NewPrecondition("npj.Get", "get called before execute")
	}
	return e.result, nil
}
