package fd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every propagator is also a checker: enumerating all solutions of a small
// network must agree with a direct evaluation of the relation.
func TestPropagatorsAgreeWithBruteForce(t *testing.T) {
	bools := func(m *Model, n int) []*IntVar {
		out := make([]*IntVar, n)
		for i := range out {
			out[i] = m.BoolVar("b")
		}
		return out
	}
	b01 := rng(0, 1)
	tests := []struct {
		name    string
		build   func(t *testing.T, m *Model)
		domains [][]int
		pred    func(v []int) bool
	}{
		{
			name: "linear",
			build: func(t *testing.T, m *Model) {
				x, y, z := m.IntVar("x", -2, 2), m.IntVar("y", 0, 2), m.IntVar("z", -3, 3)
				post(t, m)(NewLinear([]*IntVar{x, y}, []int{1, 2}, z))
			},
			domains: [][]int{rng(-2, 2), rng(0, 2), rng(-3, 3)},
			pred:    func(v []int) bool { return v[0]+2*v[1] == v[2] },
		},
		{
			name: "linear-negative",
			build: func(t *testing.T, m *Model) {
				x, y, z := m.IntVar("x", -3, 3), m.IntVar("y", -3, 3), m.IntVar("z", -2, 2)
				post(t, m)(NewLinear([]*IntVar{x, y}, []int{3, -2}, z))
			},
			domains: [][]int{rng(-3, 3), rng(-3, 3), rng(-2, 2)},
			pred:    func(v []int) bool { return 3*v[0]-2*v[1] == v[2] },
		},
		{
			name: "if-then-else",
			build: func(t *testing.T, m *Model) {
				b := bools(m, 4)
				post(t, m)(NewIfThenElse(b[0], b[1], b[2], b[3]))
			},
			domains: [][]int{b01, b01, b01, b01},
			pred: func(v []int) bool {
				if v[1] == 1 {
					return v[0] == v[2]
				}
				return v[0] == v[3]
			},
		},
		{
			name: "element",
			build: func(t *testing.T, m *Model) {
				idx := m.IntVar("i", -1, 3)
				arr := []*IntVar{m.IntVar("a0", 0, 1), m.IntVar("a1", 0, 1), m.IntVar("a2", 0, 1)}
				val := m.IntVar("v", 0, 2)
				post(t, m)(NewElement(idx, arr, val))
			},
			domains: [][]int{rng(-1, 3), b01, b01, b01, rng(0, 2)},
			pred: func(v []int) bool {
				return v[0] >= 0 && v[0] < 3 && v[4] == v[1+v[0]]
			},
		},
		{
			name: "count",
			build: func(t *testing.T, m *Model) {
				b := bools(m, 3)
				post(t, m)(NewCount(b, m.IntVar("n", 0, 3)))
			},
			domains: [][]int{b01, b01, b01, rng(0, 3)},
			pred:    func(v []int) bool { return v[0]+v[1]+v[2] == v[3] },
		},
		{
			name: "and-reif",
			build: func(t *testing.T, m *Model) {
				b := bools(m, 3)
				post(t, m)(NewAndReif(b[0], b[1], b[2]))
			},
			domains: [][]int{b01, b01, b01},
			pred:    func(v []int) bool { return v[0] == v[1]*v[2] },
		},
		{
			name: "or-reif",
			build: func(t *testing.T, m *Model) {
				b := bools(m, 3)
				post(t, m)(NewOrReif(b[0], b[1], b[2]))
			},
			domains: [][]int{b01, b01, b01},
			pred:    func(v []int) bool { return v[0] == b2i(v[1]+v[2] > 0) },
		},
		{
			name:    "one",
			build:   func(t *testing.T, m *Model) { post(t, m)(NewOne(bools(m, 3)...)) },
			domains: [][]int{b01, b01, b01},
			pred:    func(v []int) bool { return v[0]+v[1]+v[2] == 1 },
		},
		{
			name:    "lone",
			build:   func(t *testing.T, m *Model) { post(t, m)(NewLone(bools(m, 3)...)) },
			domains: [][]int{b01, b01, b01},
			pred:    func(v []int) bool { return v[0]+v[1]+v[2] <= 1 },
		},
		{
			name:    "or",
			build:   func(t *testing.T, m *Model) { post(t, m)(NewOr(bools(m, 3)...)) },
			domains: [][]int{b01, b01, b01},
			pred:    func(v []int) bool { return v[0]+v[1]+v[2] >= 1 },
		},
		{
			name:    "and",
			build:   func(t *testing.T, m *Model) { post(t, m)(NewAnd(bools(m, 2)...)) },
			domains: [][]int{b01, b01},
			pred:    func(v []int) bool { return v[0] == 1 && v[1] == 1 },
		},
		{
			name: "not-implies",
			build: func(t *testing.T, m *Model) {
				b := bools(m, 3)
				post(t, m)(NewNot(b[0], b[1]))
				post(t, m)(NewImplies(b[1], b[2]))
			},
			domains: [][]int{b01, b01, b01},
			pred:    func(v []int) bool { return v[1] == 1-v[0] && (v[1] == 0 || v[2] == 1) },
		},
		{
			name: "select-n",
			build: func(t *testing.T, m *Model) {
				b := bools(m, 3)
				post(t, m)(NewSelectN(b, m.IntVar("n", 0, 3)))
			},
			domains: [][]int{b01, b01, b01, rng(0, 3)},
			pred: func(v []int) bool {
				for i := 0; i < 3; i++ {
					if (v[i] == 1) != (i < v[3]) {
						return false
					}
				}
				return true
			},
		},
		{
			name: "guarded-card",
			build: func(t *testing.T, m *Model) {
				post(t, m)(NewGuardedCard(m.BoolVar("m"), m.IntVar("c", 0, 3), 1, 2))
			},
			domains: [][]int{b01, rng(0, 3)},
			pred: func(v []int) bool {
				if v[0] == 1 {
					return v[1] >= 1 && v[1] <= 2
				}
				return v[1] == 0
			},
		},
		{
			name: "sibling-distinct",
			build: func(t *testing.T, m *Model) {
				ps := []*IntVar{m.IntVar("p0", 0, 2), m.IntVar("p1", 0, 2)}
				rs := []*IntVar{m.IntVar("r0", 0, 1), m.IntVar("r1", 0, 1)}
				post(t, m)(NewSiblingDistinct(ps, rs, 2))
			},
			domains: [][]int{rng(0, 2), rng(0, 2), b01, b01},
			pred: func(v []int) bool {
				return !(v[0] == v[1] && v[0] != 2 && v[2] == v[3])
			},
		},
		{
			name: "unreachable",
			build: func(t *testing.T, m *Model) {
				es := []*IntVar{m.IntVar("e0", 0, 3), m.IntVar("e1", 0, 3), m.IntVar("e2", 0, 3)}
				post(t, m)(NewUnreachable(es, 0, 2))
			},
			domains: [][]int{rng(0, 3), rng(0, 3), rng(0, 3)},
			pred: func(v []int) bool {
				cur := 0
				for step := 0; step <= 3; step++ {
					if cur == 2 {
						return false
					}
					if cur == 3 {
						return true
					}
					cur = v[cur]
				}
				return true
			},
		},
		{
			name: "nogood",
			build: func(t *testing.T, m *Model) {
				x, y := m.IntVar("x", 0, 1), m.IntVar("y", 0, 1)
				post(t, m)(NewNogood([]Literal{{Var: x, Value: 1}, {Var: y, Value: 0, Neg: true}}))
			},
			domains: [][]int{b01, b01},
			pred:    func(v []int) bool { return !(v[0] == 1 && v[1] != 0) },
		},
	}
	for _, op := range []Op{OpEq, OpNe, OpLt, OpLe, OpGt, OpGe} {
		op := op
		tests = append(tests, struct {
			name    string
			build   func(t *testing.T, m *Model)
			domains [][]int
			pred    func(v []int) bool
		}{
			name: "compare-reif " + op.String(),
			build: func(t *testing.T, m *Model) {
				post(t, m)(NewCompareReif(m.BoolVar("b"), m.IntVar("x", 0, 2), op, m.IntVar("y", 1, 3)))
			},
			domains: [][]int{b01, rng(0, 2), rng(1, 3)},
			pred: func(v []int) bool {
				x, y := v[1], v[2]
				holds := map[Op]bool{OpEq: x == y, OpNe: x != y, OpLt: x < y, OpLe: x <= y, OpGt: x > y, OpGe: x >= y}[op]
				return v[0] == b2i(holds)
			},
		})
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := NewModel()
			tc.build(t, m)
			assert.Equal(t, bruteForce(tc.domains, tc.pred), countSolutions(t, m))
		})
	}
}

// Set propagators: the set variables make direct enumeration awkward, so
// the expected counts are worked out by hand.
func TestSetPropagatorsSolutionCounts(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T, m *Model)
		want  int
	}{
		{
			name: "member-reif",
			build: func(t *testing.T, m *Model) {
				s := m.SetVar("s", RangeDomain(0, 1), EmptyDomain(), 0, 2)
				post(t, m)(NewMemberReif(m.BoolVar("b"), m.IntVar("v", 0, 2), s))
			},
			want: 4 * 3,
		},
		{
			name: "set-equal-reif",
			build: func(t *testing.T, m *Model) {
				a := m.SetVar("a", RangeDomain(0, 1), EmptyDomain(), 0, 2)
				c := m.SetVar("c", RangeDomain(0, 1), EmptyDomain(), 0, 2)
				post(t, m)(NewSetEqualReif(m.BoolVar("b"), a, c))
			},
			want: 16,
		},
		{
			name: "union",
			build: func(t *testing.T, m *Model) {
				a := m.SetVar("a", RangeDomain(0, 1), EmptyDomain(), 0, 2)
				c := m.SetVar("c", RangeDomain(1, 2), EmptyDomain(), 0, 2)
				r := m.SetVar("r", RangeDomain(0, 3), EmptyDomain(), 0, 4)
				post(t, m)(NewUnion([]*SetVar{a, c}, r))
			},
			want: 16,
		},
		{
			name: "array-to-set",
			build: func(t *testing.T, m *Model) {
				xs := []*IntVar{m.IntVar("x0", 0, 2), m.IntVar("x1", 0, 2)}
				post(t, m)(NewArrayToSet(xs, m.SetVar("s", RangeDomain(0, 2), EmptyDomain(), 0, 3), 0))
			},
			want: 9,
		},
		{
			name: "array-to-set-injective",
			build: func(t *testing.T, m *Model) {
				xs := []*IntVar{m.IntVar("x0", 0, 2), m.IntVar("x1", 0, 2)}
				post(t, m)(NewArrayToSet(xs, m.SetVar("s", RangeDomain(0, 2), EmptyDomain(), 0, 3), 1))
			},
			want: 6,
		},
		{
			name: "set-sum",
			build: func(t *testing.T, m *Model) {
				s := m.SetVar("s", DomainOf(-1, 1, 2), EmptyDomain(), 0, 3)
				post(t, m)(NewSetSum(s, m.IntVar("sum", -5, 5)))
			},
			want: 8,
		},
		{
			name: "join-relation",
			build: func(t *testing.T, m *Model) {
				take := m.SetVar("take", RangeDomain(0, 1), EmptyDomain(), 0, 2)
				children := []*SetVar{m.ConstSet(0), m.ConstSet(1, 2)}
				to := m.SetVar("to", RangeDomain(0, 2), EmptyDomain(), 0, 3)
				post(t, m)(NewJoinRelation(take, children, to, true))
			},
			want: 4,
		},
		{
			name: "join-function",
			build: func(t *testing.T, m *Model) {
				take := m.SetVar("take", RangeDomain(0, 1), EmptyDomain(), 0, 2)
				refs := []*IntVar{m.IntVar("r0", 0, 1), m.IntVar("r1", 0, 1)}
				to := m.SetVar("to", RangeDomain(0, 1), EmptyDomain(), 0, 2)
				post(t, m)(NewJoinFunction(take, refs, to, 0))
			},
			want: 16,
		},
		{
			name: "join-function-injective",
			build: func(t *testing.T, m *Model) {
				take := m.SetVar("take", RangeDomain(0, 1), EmptyDomain(), 0, 2)
				refs := []*IntVar{m.IntVar("r0", 0, 1), m.IntVar("r1", 0, 1)}
				to := m.SetVar("to", RangeDomain(0, 1), EmptyDomain(), 0, 2)
				post(t, m)(NewJoinFunction(take, refs, to, 1))
			},
			want: 14,
		},
		{
			name: "mask",
			build: func(t *testing.T, m *Model) {
				s := m.SetVar("s", RangeDomain(0, 3), EmptyDomain(), 0, 4)
				masked := m.SetVar("m", RangeDomain(0, 3), EmptyDomain(), 0, 4)
				post(t, m)(NewMask(s, masked, 1, 3))
			},
			want: 16,
		},
		{
			name: "int-channel",
			build: func(t *testing.T, m *Model) {
				sets := []*SetVar{
					m.SetVar("s0", RangeDomain(0, 1), EmptyDomain(), 0, 2),
					m.SetVar("s1", RangeDomain(0, 1), EmptyDomain(), 0, 2),
				}
				ints := []*IntVar{m.IntVar("x0", 0, 2), m.IntVar("x1", 0, 2)}
				post(t, m)(NewIntChannel(sets, ints))
			},
			want: 9,
		},
		{
			name: "bool-channel",
			build: func(t *testing.T, m *Model) {
				bs := []*IntVar{m.BoolVar("b0"), m.BoolVar("b1")}
				post(t, m)(NewBoolChannel(bs, m.SetVar("s", RangeDomain(0, 1), EmptyDomain(), 0, 2)))
			},
			want: 4,
		},
		{
			name: "continuous",
			build: func(t *testing.T, m *Model) {
				post(t, m)(NewContinuous(m.SetVar("s", RangeDomain(0, 3), EmptyDomain(), 0, 4)))
			},
			want: 1 + 4 + 3 + 2 + 1,
		},
		{
			name: "sorted-sets",
			build: func(t *testing.T, m *Model) {
				sets := []*SetVar{
					m.SetVar("s0", RangeDomain(0, 2), EmptyDomain(), 0, 2),
					m.SetVar("s1", RangeDomain(0, 2), EmptyDomain(), 0, 2),
				}
				post(t, m)(NewSortedSets(sets))
			},
			want: 8,
		},
		{
			name: "acyclic",
			build: func(t *testing.T, m *Model) {
				es := []*IntVar{m.IntVar("e0", 0, 3), m.IntVar("e1", 0, 3), m.IntVar("e2", 0, 3)}
				post(t, m)(NewAcyclic(es))
			},
			// rooted forests on 3 labelled nodes: (n+1)^(n-1)
			want: 16,
		},
		{
			name: "filter-string",
			build: func(t *testing.T, m *Model) {
				s := m.SetVar("s", RangeDomain(0, 2), EmptyDomain(), 0, 3)
				str := []*IntVar{m.Const(10), m.Const(11), m.Const(12)}
				res := []*IntVar{m.IntVarOf("r0", DomainOf(-1, 10, 11, 12)), m.IntVarOf("r1", DomainOf(-1, 10, 11, 12))}
				post(t, m)(NewFilterString(s, 0, str, res))
			},
			// subsets of size at most 2
			want: 1 + 3 + 3,
		},
		{
			name: "lex-chain-channel",
			build: func(t *testing.T, m *Model) {
				strs := [][]*IntVar{{m.IntVar("c0", 0, 1)}, {m.IntVar("c1", 0, 1)}}
				ints := []*IntVar{m.IntVar("i0", 0, 1), m.IntVar("i1", 0, 1)}
				post(t, m)(NewLexChainChannel(strs, ints))
			},
			want: 6,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := NewModel()
			tc.build(t, m)
			assert.Equal(t, tc.want, countSolutions(t, m))
		})
	}
}

func TestAcyclicAcceptsChainRejectsCycle(t *testing.T) {
	m := NewModel()
	e0 := m.IntVarOf("e0", DomainOf(1))
	e1 := m.IntVarOf("e1", DomainOf(2))
	e2 := m.IntVar("e2", 0, 3)
	post(t, m)(NewAcyclic([]*IntVar{e0, e1, e2}))
	require.NoError(t, propagate(m))
	assert.Equal(t, []int{3}, m.Store().Dom(e2).Values(), "every edge out of 2 would close a cycle")

	m = NewModel()
	e0 = m.IntVarOf("e0", DomainOf(1))
	e1 = m.IntVarOf("e1", DomainOf(2))
	e2 = m.IntVarOf("e2", DomainOf(0))
	post(t, m)(NewAcyclic([]*IntVar{e0, e1, e2}))
	err := propagate(m)
	require.Error(t, err)
	assert.True(t, IsContradiction(err))
}

func TestContinuousKernelInsideEnvelope(t *testing.T) {
	m := NewModel()
	st := m.Store()
	s := m.SetVar("s", RangeDomain(1, 6), DomainOf(3, 4), 0, 6)
	post(t, m)(NewContinuous(s))
	require.NoError(t, propagate(m))
	assert.Equal(t, []int{3, 4}, st.Ker(s).Values())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, st.Env(s).Values(), "nothing is forced without a cardinality bound")

	_, err := st.UpdateUpperBound(s.Card(), 3)
	require.NoError(t, err)
	require.NoError(t, propagate(m))
	assert.Equal(t, []int{2, 3, 4, 5}, st.Env(s).Values())
}

func TestContinuousEmptyKernelBoundsCard(t *testing.T) {
	m := NewModel()
	st := m.Store()
	s := m.SetVar("s", DomainOf(1, 2, 3, 4, 6, 7), EmptyDomain(), 0, 6)
	post(t, m)(NewContinuous(s))
	require.NoError(t, propagate(m))
	assert.Equal(t, 4, st.Max(s.Card()))

	_, err := st.UpdateLowerBound(s.Card(), 3)
	require.NoError(t, err)
	require.NoError(t, propagate(m))
	assert.Equal(t, []int{1, 2, 3, 4}, st.Env(s).Values(), "runs shorter than card.min are dropped")
}

func TestContinuousFillsKernelGaps(t *testing.T) {
	m := NewModel()
	s := m.SetVar("s", RangeDomain(0, 6), DomainOf(2, 5), 0, 7)
	post(t, m)(NewContinuous(s))
	require.NoError(t, propagate(m))
	assert.Equal(t, []int{2, 3, 4, 5}, m.Store().Ker(s).Values())
}

func TestSelectNPrefix(t *testing.T) {
	m := NewModel()
	st := m.Store()
	b := []*IntVar{m.BoolVar("b0"), m.BoolVar("b1"), m.BoolVar("b2"), m.BoolVar("b3")}
	n := m.IntVar("n", 2, 4)
	post(t, m)(NewSelectN(b, n))
	require.NoError(t, propagate(m))
	assert.True(t, st.IsTrue(b[0]))
	assert.True(t, st.IsTrue(b[1]))
	assert.False(t, st.Instantiated(b[2]))

	_, err := st.Instantiate(b[2], 0)
	require.NoError(t, err)
	require.NoError(t, propagate(m))
	assert.Equal(t, 2, st.Value(n))
	assert.True(t, st.IsFalse(b[3]))
}

func TestJoinRelationSupport(t *testing.T) {
	m := NewModel()
	st := m.Store()
	take := m.SetVar("take", RangeDomain(0, 1), EmptyDomain(), 0, 2)
	c0 := m.SetVar("c0", RangeDomain(0, 1), EmptyDomain(), 0, 2)
	c1 := m.SetVar("c1", RangeDomain(2, 3), EmptyDomain(), 0, 2)
	to := m.SetVar("to", RangeDomain(0, 3), DomainOf(3), 0, 4)
	post(t, m)(NewJoinRelation(take, []*SetVar{c0, c1}, to, true))
	require.NoError(t, propagate(m))
	assert.True(t, st.Ker(take).Has(1), "3 is only reachable through child 1")
	assert.True(t, st.Ker(c1).Has(3))
}

func TestJoinFunctionInjective(t *testing.T) {
	m := NewModel()
	st := m.Store()
	take := m.SetVar("take", RangeDomain(0, 1), RangeDomain(0, 1), 0, 2)
	r0 := m.IntVarOf("r0", DomainOf(5))
	r1 := m.IntVarOf("r1", DomainOf(5, 6))
	to := m.SetVar("to", RangeDomain(5, 7), EmptyDomain(), 0, 3)
	post(t, m)(NewJoinFunction(take, []*IntVar{r0, r1}, to, 1))
	require.NoError(t, propagate(m))
	assert.Equal(t, 6, st.Value(r1))
	assert.True(t, st.SetInstantiated(to))
	assert.Equal(t, []int{5, 6}, st.Ker(to).Values())
}

func TestSortedSetsFixedCards(t *testing.T) {
	m := NewModel()
	st := m.Store()
	s0 := m.SetVar("s0", RangeDomain(0, 3), EmptyDomain(), 2, 2)
	s1 := m.SetVar("s1", RangeDomain(0, 3), EmptyDomain(), 1, 1)
	post(t, m)(NewSortedSets([]*SetVar{s0, s1}))
	require.NoError(t, propagate(m))
	assert.Equal(t, []int{0, 1}, st.Ker(s0).Values())
	assert.True(t, st.SetInstantiated(s0))
	assert.Equal(t, []int{2}, st.Ker(s1).Values())
	assert.True(t, st.SetInstantiated(s1))
}

func TestSetSumPrunesValues(t *testing.T) {
	m := NewModel()
	st := m.Store()
	s := m.SetVar("s", RangeDomain(1, 4), EmptyDomain(), 2, 2)
	sum := m.IntVar("sum", 0, 100)
	post(t, m)(NewSetSum(s, sum))
	require.NoError(t, propagate(m))
	assert.Equal(t, 3, st.Min(sum))
	assert.Equal(t, 7, st.Max(sum))

	_, err := st.Instantiate(sum, 7)
	require.NoError(t, err)
	require.NoError(t, propagate(m))
	assert.True(t, st.SetInstantiated(s))
	assert.Equal(t, []int{3, 4}, st.Ker(s).Values())
}

func TestMaskWindow(t *testing.T) {
	m := NewModel()
	st := m.Store()
	s := m.SetVar("s", RangeDomain(0, 9).Remove(7), DomainOf(6), 0, 10)
	masked := m.SetVar("m", RangeDomain(0, 4), EmptyDomain(), 0, 5)
	post(t, m)(NewMask(s, masked, 5, 8))
	require.NoError(t, propagate(m))
	assert.Equal(t, []int{0, 1}, st.Env(masked).Values())
	assert.Equal(t, []int{1}, st.Ker(masked).Values())
}

func TestFilterStringInstantiatedSet(t *testing.T) {
	m := NewModel()
	st := m.Store()
	s := m.SetVar("s", DomainOf(0, 2), DomainOf(0, 2), 0, 3)
	str := []*IntVar{m.Const(10), m.Const(11), m.Const(12)}
	res := []*IntVar{m.IntVar("r0", -1, 20), m.IntVar("r1", -1, 20), m.IntVar("r2", -1, 20)}
	post(t, m)(NewFilterString(s, 0, str, res))
	require.NoError(t, propagate(m))
	assert.Equal(t, 10, st.Value(res[0]))
	assert.Equal(t, 12, st.Value(res[1]))
	assert.Equal(t, -1, st.Value(res[2]))
}

func TestLexChainChannelOrdersIds(t *testing.T) {
	m := NewModel()
	st := m.Store()
	ab := []*IntVar{m.Const(1), m.Const(2)}
	b := []*IntVar{m.Const(2), m.Const(0)}
	i0, i1 := m.IntVar("i0", 0, 1), m.IntVar("i1", 0, 1)
	post(t, m)(NewLexChainChannel([][]*IntVar{ab, b}, []*IntVar{i0, i1}))
	require.NoError(t, propagate(m))
	assert.Equal(t, 0, st.Value(i0))
	assert.Equal(t, 1, st.Value(i1))
}

func TestIntChannelReachesOwnFixpoint(t *testing.T) {
	m := NewModel()
	st := m.Store()
	s0 := m.SetVar("s0", DomainOf(0), EmptyDomain(), 0, 1)
	s1 := m.SetVar("s1", DomainOf(0), DomainOf(0), 1, 1)
	p0 := m.IntVar("p0", 0, 2)
	p, err := NewIntChannel([]*SetVar{s0, s1}, []*IntVar{p0})
	require.NoError(t, err)

	// s1's kernel fixes p0 = 1 after s0 was already visited, so s0 only
	// loses 0 if a single call keeps going.
	require.NoError(t, p.Propagate(st))
	assert.Equal(t, 1, st.Value(p0))
	assert.True(t, st.Env(s0).IsEmpty())

	m.Post(p)
	require.NoError(t, propagate(m))
	assert.True(t, st.Env(s0).IsEmpty())
}

func TestIntChannelBothDirections(t *testing.T) {
	m := NewModel()
	st := m.Store()
	s0 := m.SetVar("s0", RangeDomain(0, 2), EmptyDomain(), 0, 3)
	s1 := m.SetVar("s1", RangeDomain(0, 2), EmptyDomain(), 0, 3)
	xs := []*IntVar{m.IntVar("x0", 0, 2), m.IntVar("x1", 0, 2), m.IntVar("x2", 0, 2)}
	post(t, m)(NewIntChannel([]*SetVar{s0, s1}, xs))
	require.NoError(t, propagate(m))

	_, err := st.Instantiate(xs[0], 1)
	require.NoError(t, err)
	_, err = st.AddToKernel(s0, 2)
	require.NoError(t, err)
	require.NoError(t, propagate(m))
	assert.True(t, st.Ker(s1).Has(0))
	assert.False(t, st.Env(s0).Has(0))
	assert.Equal(t, 0, st.Value(xs[2]))
}
