package fd

// policy.go: decision policies for the search driver

// DecisionPolicy picks the next branching literal. Next returns false when
// every variable it cares about is instantiated; the solver then falls back
// to input order over the whole store, so a reported solution is always
// fully instantiated. The returned literal is the left branch, its
// negation the right one.
type DecisionPolicy interface {
	Next(st *Store) (Literal, bool)
}

// ValueOrder selects which value of the chosen variable the left branch
// commits to.
type ValueOrder int

const (
	// ValueMin branches on the smallest value (x = min, or min ∈ S for the
	// smallest undecided envelope value).
	ValueMin ValueOrder = iota
	// ValueMax branches on the largest value.
	ValueMax
	// ValueExcludeFirst branches on removal first for sets (v ∉ S). Integer
	// variables behave as ValueMin.
	ValueExcludeFirst
)

// InputOrderPolicy branches on the first uninstantiated variable in the
// given order.
type InputOrderPolicy struct {
	Vars  []Var
	Value ValueOrder
}

// Next implements DecisionPolicy.
func (p InputOrderPolicy) Next(st *Store) (Literal, bool) {
	for _, v := range p.Vars {
		if !st.VarInstantiated(v) {
			return branchOn(st, v, p.Value), true
		}
	}
	return Literal{}, false
}

// MinDomainPolicy branches on the uninstantiated variable with the fewest
// remaining choices (integer domain size, or undecided envelope values for
// sets). Ties keep input order.
type MinDomainPolicy struct {
	Vars  []Var
	Value ValueOrder
}

// Next implements DecisionPolicy.
func (p MinDomainPolicy) Next(st *Store) (Literal, bool) {
	var best Var
	bestSize := 0
	for _, v := range p.Vars {
		size := choices(st, v)
		if size == 0 {
			continue
		}
		if best == nil || size < bestSize {
			best, bestSize = v, size
		}
	}
	if best == nil {
		return Literal{}, false
	}
	return branchOn(st, best, p.Value), true
}

// choices returns 0 for an instantiated variable, otherwise the number of
// undecided values.
func choices(st *Store, v Var) int {
	switch x := v.(type) {
	case *IntVar:
		if n := st.Dom(x).Count(); n > 1 {
			return n
		}
	case *SetVar:
		return st.Env(x).Count() - st.Ker(x).Count()
	}
	return 0
}

func branchOn(st *Store, v Var, order ValueOrder) Literal {
	switch x := v.(type) {
	case *SetVar:
		undecided := st.Env(x).Minus(st.Ker(x))
		switch order {
		case ValueMax:
			return Literal{Var: x, Value: undecided.Max()}
		case ValueExcludeFirst:
			return Literal{Var: x, Value: undecided.Min(), Neg: true}
		}
		return Literal{Var: x, Value: undecided.Min()}
	case *IntVar:
		if order == ValueMax {
			return Literal{Var: x, Value: st.Max(x)}
		}
		return Literal{Var: x, Value: st.Min(x)}
	}
	return Literal{Var: v}
}

// fallbackPolicy is input order over every variable of the store.
type fallbackPolicy struct{}

func (fallbackPolicy) Next(st *Store) (Literal, bool) {
	for _, x := range st.IntVars() {
		if !st.Instantiated(x) {
			return branchOn(st, x, ValueMin), true
		}
	}
	for _, s := range st.SetVars() {
		if !st.SetInstantiated(s) {
			return branchOn(st, s, ValueMin), true
		}
	}
	return Literal{}, false
}
