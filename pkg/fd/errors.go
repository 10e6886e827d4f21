package fd

import (
	"errors"
	"fmt"
	"time"
)

// ContradictionError reports that a mutation would empty a domain or break
// the kernel ⊆ envelope / cardinality invariant. It is recoverable: the
// search driver rolls back to the last decision and tries the next branch.
// It never escapes Solver.Find.
type ContradictionError struct {
	Var    Var    // offending variable, nil for propagator-level failures
	Reason string // short description of the failed mutation
}

func (e *ContradictionError) Error() string {
	if e.Var == nil {
		return "contradiction: " + e.Reason
	}
	return fmt.Sprintf("contradiction on %s: %s", e.Var.Name(), e.Reason)
}

// IsContradiction reports whether err is (or wraps) a ContradictionError.
func IsContradiction(err error) bool {
	var ce *ContradictionError
	return errors.As(err, &ce)
}

func contradiction(v Var, format string, args ...any) *ContradictionError {
	return &ContradictionError{Var: v, Reason: fmt.Sprintf(format, args...)}
}

// fail is used by propagators that detect an inconsistency between several
// variables rather than on a single mutation.
func fail(format string, args ...any) error {
	return &ContradictionError{Reason: fmt.Sprintf(format, args...)}
}

// LimitKind names the resource bound that stopped a search.
type LimitKind string

const (
	LimitNodes        LimitKind = "nodes"
	LimitPropagations LimitKind = "propagations"
	LimitTime         LimitKind = "time"
	LimitCancelled    LimitKind = "cancelled"
)

// LimitReachedError reports that a configured node, propagation or time
// bound stopped the search before it was exhausted. Once returned, the
// search is frozen and every later Find returns the same error.
type LimitReachedError struct {
	Kind    LimitKind
	Nodes   int
	Elapsed time.Duration
	Cause   error // context error for LimitCancelled
}

func (e *LimitReachedError) Error() string {
	return fmt.Sprintf("search limit reached (%s) after %d nodes in %v", e.Kind, e.Nodes, e.Elapsed)
}

func (e *LimitReachedError) Unwrap() error { return e.Cause }

// ErrSearchLimitReached is matched by every LimitReachedError via errors.Is.
var ErrSearchLimitReached = errors.New("search limit reached")

// Is lets errors.Is(err, ErrSearchLimitReached) succeed.
func (e *LimitReachedError) Is(target error) bool { return target == ErrSearchLimitReached }

// ProtocolMisuseError reports a contract violation by the caller, such as
// asking for an instance before a successful Find.
type ProtocolMisuseError struct {
	Op     string
	Reason string
}

func (e *ProtocolMisuseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}
