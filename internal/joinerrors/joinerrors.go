// Package joinerrors defines the error taxonomy shared by every join
// engine in this module: precondition violations, resource exhaustion,
// and addressable-range overflow.
package joinerrors

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// Kind distinguishes the three failure categories a join engine can
// raise, mirroring the *errors.Error Kind field callers check with
// e.g. `e.Kind == errors.NotExist`.
type Kind = errors.Kind

const (
	// Precondition marks a logic error: get() before execute(),
	// execute() called twice, or an invalid configuration.
	Precondition Kind = errors.Precondition
	// Resource marks an allocation failure building a table or
	// partition buffer.
	Resource Kind = errors.Fatal
	// Overflow marks a partition count or buffer size that would
	// exceed the addressable range.
	Overflow Kind = errors.Invalid
)

// NewPrecondition builds a Precondition-kind error for op with the
// given, printf-style formatted context.
func NewPrecondition(op, format string, args ...interface{}) error {
	return errors.E(Precondition, op, fmt.Sprintf(format, args...))
}

// NewResource builds a Resource-kind error for op, wrapping the
// underlying allocation failure. Go's make/append panic on allocation
// failure rather than returning an error, so no production code path
// raises this yet; it exists to complete the taxonomy for callers that
// wrap their own resource checks (e.g. a size cap before a large make).
func NewResource(op string, err error) error {
	return errors.E(Resource, op, err)
}

// NewOverflow builds an Overflow-kind error for op with the given,
// printf-style formatted context.
func NewOverflow(op, format string, args ...interface{}) error {
	return errors.E(Overflow, op, fmt.Sprintf(format, args...))
}

// IsPrecondition reports whether err is a Precondition-kind error.
func IsPrecondition(err error) bool { return errors.Is(Precondition, err) }

// IsResource reports whether err is a Resource-kind error.
func IsResource(err error) bool { return errors.Is(Resource, err) }

// IsOverflow reports whether err is an Overflow-kind error.
func IsOverflow(err error) bool { return errors.Is(Overflow, err) }
