// Package fd: arithmetic - Linear (bounds propagation)
//
// Linear enforces Σ a[i]*x[i] = t with bounds consistency.
//
// Design
//   - Variables: x[0..n-1] over arbitrary integers (negatives included)
//   - Coefficients: arbitrary integers a[i]
//   - Total: t
//
// Propagation (bounds consistency):
//   - Prune t to [SumMin..SumMax], where
//     SumMin = Σ (a[i]>0 ? a[i]*min(x[i]) : a[i]*max(x[i]))
//     SumMax = Σ (a[i]>0 ? a[i]*max(x[i]) : a[i]*min(x[i]))
//   - For each x[k], derive admissible interval:
//     a[k]*x[k] ∈ [t.min - OtherMax, t.max - OtherMin]
//     and convert to bounds on x[k] with sign-aware floor/ceil division.
//
// The compiler uses Linear for integer addition, subtraction, negation and
// for the total of a set of cardinalities.
package fd

import "fmt"

// Linear is a bounds-consistent weighted sum Σ a[i]*x[i] = t.
type Linear struct {
	vars   []*IntVar
	coeffs []int
	total  *IntVar
}

// NewLinear constructs Σ coeffs[i]*vars[i] = total.
//
// Contract:
//   - len(vars) == len(coeffs)
//   - total != nil
func NewLinear(vars []*IntVar, coeffs []int, total *IntVar) (Propagator, error) {
	if len(vars) != len(coeffs) {
		return nil, fmt.Errorf("NewLinear: len(vars)=%d != len(coeffs)=%d", len(vars), len(coeffs))
	}
	if total == nil {
		return nil, fmt.Errorf("NewLinear: total cannot be nil")
	}
	for i, v := range vars {
		if v == nil {
			return nil, fmt.Errorf("NewLinear: vars[%d] is nil", i)
		}
	}
	vc := make([]*IntVar, len(vars))
	copy(vc, vars)
	cc := make([]int, len(coeffs))
	copy(cc, coeffs)
	return &Linear{vars: vc, coeffs: cc, total: total}, nil
}

// NewSum constructs Σ vars[i] = total.
func NewSum(vars []*IntVar, total *IntVar) (Propagator, error) {
	coeffs := make([]int, len(vars))
	for i := range coeffs {
		coeffs[i] = 1
	}
	return NewLinear(vars, coeffs, total)
}

func (p *Linear) Watches() []Watch {
	return append(watchInts(EventBound, p.vars...), Watch{Var: p.total, Mask: EventBound})
}
func (p *Linear) Priority() Priority { return PriorityLinear }

func (p *Linear) String() string {
	return fmt.Sprintf("Linear(%v*[%s]) = %s", p.coeffs, joinNames(p.vars), p.total)
}

func contribution(st *Store, x *IntVar, c int) (lo, hi int) {
	if c >= 0 {
		return c * st.Min(x), c * st.Max(x)
	}
	return c * st.Max(x), c * st.Min(x)
}

// Propagate implements Propagator.
func (p *Linear) Propagate(st *Store) error {
	sumMin, sumMax := 0, 0
	for i, x := range p.vars {
		lo, hi := contribution(st, x, p.coeffs[i])
		sumMin += lo
		sumMax += hi
	}
	if _, err := st.UpdateLowerBound(p.total, sumMin); err != nil {
		return err
	}
	if _, err := st.UpdateUpperBound(p.total, sumMax); err != nil {
		return err
	}
	tMin, tMax := st.Min(p.total), st.Max(p.total)
	for i, x := range p.vars {
		c := p.coeffs[i]
		if c == 0 {
			continue
		}
		myLo, myHi := contribution(st, x, c)
		contribMin := tMin - (sumMax - myHi)
		contribMax := tMax - (sumMin - myLo)
		var xlo, xhi int
		if c > 0 {
			xlo, xhi = ceilDiv(contribMin, c), floorDiv(contribMax, c)
		} else {
			xlo, xhi = ceilDiv(contribMax, c), floorDiv(contribMin, c)
		}
		if _, err := st.UpdateLowerBound(x, xlo); err != nil {
			return err
		}
		if _, err := st.UpdateUpperBound(x, xhi); err != nil {
			return err
		}
		// keep the running sums in step with the tightened bounds
		nlo, nhi := contribution(st, x, c)
		sumMin += nlo - myLo
		sumMax += nhi - myHi
	}
	return nil
}

// floorDiv returns ⌊a/b⌋ for b ≠ 0.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// ceilDiv returns ⌈a/b⌉ for b ≠ 0.
func ceilDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) == (b < 0) {
		q++
	}
	return q
}
