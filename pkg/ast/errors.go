package ast

import (
	"errors"
	"fmt"
)

// ModelInvariantError reports a structural problem with a model: a
// malformed inheritance refinement, a reference relaxing uniqueness, an
// ill-typed expression, and so on. It is fatal; the model has to be fixed
// before it can be analyzed or compiled.
type ModelInvariantError struct {
	Entity string // offending entity, empty for model-wide problems
	Reason string
}

func (e *ModelInvariantError) Error() string {
	if e.Entity == "" {
		return "model invariant: " + e.Reason
	}
	return fmt.Sprintf("model invariant (%s): %s", e.Entity, e.Reason)
}

// Invariant builds a ModelInvariantError for e.
func Invariant(e *Entity, format string, args ...any) *ModelInvariantError {
	err := &ModelInvariantError{Reason: fmt.Sprintf(format, args...)}
	if e != nil {
		err.Entity = e.Name()
	}
	return err
}

// IsModelInvariant reports whether err is (or wraps) a ModelInvariantError.
func IsModelInvariant(err error) bool {
	var mie *ModelInvariantError
	return errors.As(err, &mie)
}
