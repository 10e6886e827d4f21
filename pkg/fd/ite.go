// Package fd: conditional - IfThenElse
//
// IfThenElse enforces r = (c ? t : e) over booleans with a direct case
// split on the three operands, without creating auxiliary reified
// variables. The hard form "c ⇒ t ∧ ¬c ⇒ e" is the same propagator with
// r bound to true.
package fd

import "fmt"

// IfThenElse enforces r = c ? t : e.
type IfThenElse struct {
	r, c, t, e *IntVar
}

// NewIfThenElse creates r = c ? t : e. Pass the model's True() as r for the
// hard constraint (c ⇒ t) ∧ (¬c ⇒ e).
func NewIfThenElse(r, c, t, e *IntVar) (Propagator, error) {
	if r == nil || c == nil || t == nil || e == nil {
		return nil, fmt.Errorf("NewIfThenElse: operands cannot be nil")
	}
	return &IfThenElse{r: r, c: c, t: t, e: e}, nil
}

func (p *IfThenElse) Watches() []Watch   { return watchInts(EventInstantiate, p.r, p.c, p.t, p.e) }
func (p *IfThenElse) Priority() Priority { return PriorityTernary }
func (p *IfThenElse) String() string {
	return fmt.Sprintf("%s = if %s then %s else %s", p.r, p.c, p.t, p.e)
}

// Propagate implements Propagator.
func (p *IfThenElse) Propagate(st *Store) error {
	if st.Instantiated(p.c) {
		branch := p.e
		if st.IsTrue(p.c) {
			branch = p.t
		}
		return equateBools(st, p.r, branch)
	}
	if st.Instantiated(p.t) && st.Instantiated(p.e) && st.Value(p.t) == st.Value(p.e) {
		_, err := st.Instantiate(p.r, st.Value(p.t))
		return err
	}
	if !st.Instantiated(p.r) {
		return nil
	}
	r := st.Value(p.r)
	if st.Instantiated(p.t) && st.Value(p.t) != r {
		_, err := st.Instantiate(p.c, 0)
		return err
	}
	if st.Instantiated(p.e) && st.Value(p.e) != r {
		_, err := st.Instantiate(p.c, 1)
		return err
	}
	return nil
}

func equateBools(st *Store, a, b *IntVar) error {
	if st.Instantiated(a) {
		_, err := st.Instantiate(b, st.Value(a))
		return err
	}
	if st.Instantiated(b) {
		_, err := st.Instantiate(a, st.Value(b))
		return err
	}
	return nil
}
