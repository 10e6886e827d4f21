// Package fd: string ranking - LexChainChannel
//
// LexChainChannel channels an array of strings (each a fixed-length vector
// of character variables) to an array of integers so that for every pair
// i, j:
//
//	strings[i] <  strings[j]  ⇔  ints[i] <  ints[j]
//	strings[i] =  strings[j]  ⇔  ints[i] =  ints[j]
//
// with < the lexicographic order. The compiler gives every string value an
// integer id this way, then compares ids instead of character vectors.
//
// Propagation (pairwise, O(n² · L)):
//   - the possible relations {<, =, >} between two strings are derived from
//     per-position bounds: < is possible at position k when every earlier
//     position can be equal and min(x_k) < max(y_k), and = needs every
//     position to intersect
//   - the possible relations between the two ints are read from bounds and
//     domain intersection
//   - the intersection of both sets must be non-empty; a single remaining
//     relation is enforced on both sides (bounds on the ints, lexicographic
//     bounds or per-position equality on the strings)
package fd

import "fmt"

// relation set bits.
const (
	relLt = 1 << iota
	relEq
	relGt
)

// LexChainChannel ranks strings by integers.
type LexChainChannel struct {
	strings [][]*IntVar
	ints    []*IntVar
}

// NewLexChainChannel constructs the channel. All strings have the same
// length.
func NewLexChainChannel(strings [][]*IntVar, ints []*IntVar) (Propagator, error) {
	if len(strings) != len(ints) {
		return nil, fmt.Errorf("NewLexChainChannel: %d strings but %d ints", len(strings), len(ints))
	}
	cp := make([][]*IntVar, len(strings))
	for i, s := range strings {
		if len(s) != len(strings[0]) {
			return nil, fmt.Errorf("NewLexChainChannel: length mismatch at string %d", i)
		}
		for k, c := range s {
			if c == nil {
				return nil, fmt.Errorf("NewLexChainChannel: strings[%d][%d] is nil", i, k)
			}
		}
		cp[i] = append([]*IntVar(nil), s...)
	}
	for i, v := range ints {
		if v == nil {
			return nil, fmt.Errorf("NewLexChainChannel: ints[%d] is nil", i)
		}
	}
	return &LexChainChannel{strings: cp, ints: append([]*IntVar(nil), ints...)}, nil
}

func (p *LexChainChannel) Watches() []Watch {
	ws := watchInts(EventRemove, p.ints...)
	for _, s := range p.strings {
		ws = append(ws, watchInts(EventRemove, s...)...)
	}
	return ws
}
func (p *LexChainChannel) Priority() Priority { return PriorityCubic }
func (p *LexChainChannel) String() string {
	return fmt.Sprintf("LexChainChannel(%d strings, [%s])", len(p.strings), joinNames(p.ints))
}

// Propagate implements Propagator.
func (p *LexChainChannel) Propagate(st *Store) error {
	for i := range p.ints {
		for j := i + 1; j < len(p.ints); j++ {
			if err := p.pair(st, i, j); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *LexChainChannel) pair(st *Store, i, j int) error {
	xs, ys := p.strings[i], p.strings[j]
	a, b := p.ints[i], p.ints[j]
	rel := lexRelations(st, xs, ys) & intRelations(st, a, b)
	switch rel {
	case 0:
		return fail("%s: strings %d and %d admit no consistent order", p, i, j)
	case relLt:
		if err := enforceCompare(st, a, OpLt, b); err != nil {
			return err
		}
		return enforceLexLess(st, xs, ys)
	case relGt:
		if err := enforceCompare(st, b, OpLt, a); err != nil {
			return err
		}
		return enforceLexLess(st, ys, xs)
	case relEq:
		if err := enforceCompare(st, a, OpEq, b); err != nil {
			return err
		}
		for k := range xs {
			if err := enforceCompare(st, xs[k], OpEq, ys[k]); err != nil {
				return err
			}
		}
	case relLt | relGt:
		return enforceCompare(st, a, OpNe, b)
	}
	return nil
}

func intRelations(st *Store, a, b *IntVar) int {
	rel := 0
	if st.Min(a) < st.Max(b) {
		rel |= relLt
	}
	if !st.Dom(a).Intersect(st.Dom(b)).IsEmpty() {
		rel |= relEq
	}
	if st.Max(a) > st.Min(b) {
		rel |= relGt
	}
	return rel
}

func lexRelations(st *Store, xs, ys []*IntVar) int {
	rel := 0
	for k := range xs {
		x, y := xs[k], ys[k]
		if st.Min(x) < st.Max(y) {
			rel |= relLt
		}
		if st.Max(x) > st.Min(y) {
			rel |= relGt
		}
		if st.Dom(x).Intersect(st.Dom(y)).IsEmpty() {
			return rel
		}
	}
	return rel | relEq
}

// enforceLexLess prunes xs <lex ys along the prefix that is already fixed
// equal.
func enforceLexLess(st *Store, xs, ys []*IntVar) error {
	for k := range xs {
		x, y := xs[k], ys[k]
		if st.Instantiated(x) && st.Instantiated(y) && st.Value(x) == st.Value(y) {
			continue
		}
		if _, err := st.UpdateUpperBound(x, st.Max(y)); err != nil {
			return err
		}
		if _, err := st.UpdateLowerBound(y, st.Min(x)); err != nil {
			return err
		}
		if k == len(xs)-1 {
			// last position: equality would make the strings equal
			if _, err := st.UpdateUpperBound(x, st.Max(y)-1); err != nil {
				return err
			}
			_, err := st.UpdateLowerBound(y, st.Min(x)+1)
			return err
		}
		return nil
	}
	return fail("lex: strings are equal")
}
