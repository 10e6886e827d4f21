package fd

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// snapshot is every domain of a store at one point in time.
type snapshot struct {
	ints, envs, kers []Domain
}

func snap(st *Store) snapshot {
	var s snapshot
	for _, x := range st.IntVars() {
		s.ints = append(s.ints, st.Dom(x))
	}
	for _, v := range st.SetVars() {
		s.envs = append(s.envs, st.Env(v))
		s.kers = append(s.kers, st.Ker(v))
	}
	return s
}

// narrowerThan checks that no int domain or envelope grew and no kernel
// shrank between old and s.
func (s snapshot) narrowerThan(old snapshot) error {
	for i, d := range s.ints {
		if !d.SubsetOf(old.ints[i]) {
			return fmt.Errorf("int %d widened from %v to %v", i, old.ints[i], d)
		}
	}
	for i := range s.envs {
		if !s.envs[i].SubsetOf(old.envs[i]) {
			return fmt.Errorf("envelope %d grew from %v to %v", i, old.envs[i], s.envs[i])
		}
		if !old.kers[i].SubsetOf(s.kers[i]) {
			return fmt.Errorf("kernel %d shrank from %v to %v", i, old.kers[i], s.kers[i])
		}
	}
	return nil
}

func (s snapshot) equal(o snapshot) bool {
	eq := func(a, b []Domain) bool {
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
		return true
	}
	return eq(s.ints, o.ints) && eq(s.envs, o.envs) && eq(s.kers, o.kers)
}

// randDomain keeps each of lo..hi with probability 0.6 and never returns
// an empty domain.
func randDomain(r *rand.Rand, lo, hi int) Domain {
	d := EmptyDomain()
	for v := lo; v <= hi; v++ {
		if r.Float64() < 0.6 {
			d = d.Add(v)
		}
	}
	if d.IsEmpty() {
		d = DomainOf(lo + r.Intn(hi-lo+1))
	}
	return d
}

func randBools(m *Model, r *rand.Rand, n int) []*IntVar {
	bs := make([]*IntVar, n)
	for i := range bs {
		bs[i] = m.IntVarOf(fmt.Sprintf("b%d", i), randDomain(r, 0, 1))
	}
	return bs
}

func randSet(m *Model, r *rand.Rand, name string, hi int) *SetVar {
	env := randDomain(r, 0, hi)
	ker := EmptyDomain()
	env.Each(func(v int) {
		if r.Float64() < 0.25 {
			ker = ker.Add(v)
		}
	})
	return m.SetVar(name, env, ker, 0, hi+1)
}

type fixpointCase struct {
	name  string
	build func(m *Model, r *rand.Rand) (Propagator, error)
}

var fixpointCases = []fixpointCase{
	{"Linear", func(m *Model, r *rand.Rand) (Propagator, error) {
		vars := []*IntVar{
			m.IntVarOf("x", randDomain(r, -2, 3)),
			m.IntVarOf("y", randDomain(r, -2, 3)),
			m.IntVarOf("z", randDomain(r, -2, 3)),
		}
		coeffs := make([]int, len(vars))
		for i := range coeffs {
			coeffs[i] = []int{-2, -1, 1, 2}[r.Intn(4)]
		}
		return NewLinear(vars, coeffs, m.IntVarOf("t", randDomain(r, -8, 8)))
	}},
	{"Compare", func(m *Model, r *rand.Rand) (Propagator, error) {
		x, y := m.IntVarOf("x", randDomain(r, 0, 4)), m.IntVarOf("y", randDomain(r, 0, 4))
		return NewCompare(x, Op(r.Intn(6)), y)
	}},
	{"CompareReif", func(m *Model, r *rand.Rand) (Propagator, error) {
		x, y := m.IntVarOf("x", randDomain(r, 0, 4)), m.IntVarOf("y", randDomain(r, 0, 4))
		return NewCompareReif(randBools(m, r, 1)[0], x, Op(r.Intn(6)), y)
	}},
	{"Count", func(m *Model, r *rand.Rand) (Propagator, error) {
		return NewCount(randBools(m, r, 4), m.IntVarOf("n", randDomain(r, 0, 4)))
	}},
	{"SelectN", func(m *Model, r *rand.Rand) (Propagator, error) {
		return NewSelectN(randBools(m, r, 4), m.IntVarOf("n", randDomain(r, 0, 5)))
	}},
	{"BoolAggregate", func(m *Model, r *rand.Rand) (Propagator, error) {
		ctor := []func(...*IntVar) (Propagator, error){NewAnd, NewOr, NewOne, NewLone}[r.Intn(4)]
		return ctor(randBools(m, r, 3)...)
	}},
	{"Not", func(m *Model, r *rand.Rand) (Propagator, error) {
		bs := randBools(m, r, 2)
		return NewNot(bs[0], bs[1])
	}},
	{"Implies", func(m *Model, r *rand.Rand) (Propagator, error) {
		bs := randBools(m, r, 2)
		return NewImplies(bs[0], bs[1])
	}},
	{"IntChannel", func(m *Model, r *rand.Rand) (Propagator, error) {
		sets := []*SetVar{randSet(m, r, "s0", 2), randSet(m, r, "s1", 2)}
		// 2 is the no-parent sentinel.
		ints := []*IntVar{
			m.IntVarOf("p0", randDomain(r, 0, 2)),
			m.IntVarOf("p1", randDomain(r, 0, 2)),
			m.IntVarOf("p2", randDomain(r, 0, 2)),
		}
		return NewIntChannel(sets, ints)
	}},
	{"BoolChannel", func(m *Model, r *rand.Rand) (Propagator, error) {
		return NewBoolChannel(randBools(m, r, 4), randSet(m, r, "s", 4))
	}},
}

// narrow makes one random decision-like change: an int value removed, a
// kernel value added or an envelope value removed.
func narrow(st *Store, r *rand.Rand) error {
	ints, sets := st.IntVars(), st.SetVars()
	if len(sets) == 0 || r.Intn(2) == 0 {
		x := ints[r.Intn(len(ints))]
		vals := st.Dom(x).Values()
		_, err := st.RemoveValue(x, vals[r.Intn(len(vals))])
		return err
	}
	s := sets[r.Intn(len(sets))]
	open := st.Env(s).Minus(st.Ker(s)).Values()
	if len(open) == 0 {
		return nil
	}
	v := open[r.Intn(len(open))]
	if r.Intn(2) == 0 {
		_, err := st.AddToKernel(s, v)
		return err
	}
	_, err := st.RemoveFromEnvelope(s, v)
	return err
}

// contradicted fails the test on any error other than a contradiction and
// reports whether err was one.
func contradicted(t *testing.T, err error) bool {
	t.Helper()
	if err == nil {
		return false
	}
	var ce *ContradictionError
	require.ErrorAs(t, err, &ce)
	return true
}

func TestPropagatorsNarrowToStableFixpoint(t *testing.T) {
	trials := 150
	if heavy() {
		trials = 3000
	}
	for _, tc := range fixpointCases {
		t.Run(tc.name, func(t *testing.T) {
			r := rand.New(rand.NewSource(1))
			for trial := 0; trial < trials; trial++ {
				m := NewModel()
				st := m.Store()
				post(t, m)(tc.build(m, r))
				if contradicted(t, propagate(m)) {
					continue
				}
				for round := 0; round < 4; round++ {
					before := snap(st)
					if contradicted(t, narrow(st, r)) || contradicted(t, propagate(m)) {
						break
					}
					after := snap(st)
					require.NoError(t, after.narrowerThan(before), "trial %d round %d", trial, round)
					require.NoError(t, st.CheckInvariants(), "trial %d round %d", trial, round)

					// At a fixpoint no propagator may prune anything.
					for _, p := range m.Scheduler().Propagators() {
						require.NoError(t, p.Propagate(st), "%s at trial %d round %d", p, trial, round)
						require.True(t, snap(st).equal(after), "%s pruned at a fixpoint (trial %d round %d)", p, trial, round)
					}
				}
			}
		})
	}
}

func TestNarrowerThanDetectsWidening(t *testing.T) {
	old := snapshot{ints: []Domain{RangeDomain(0, 2)}, envs: []Domain{DomainOf(1, 2)}, kers: []Domain{DomainOf(1)}}
	require.NoError(t, old.narrowerThan(old))

	wide := snapshot{ints: []Domain{RangeDomain(0, 3)}, envs: old.envs, kers: old.kers}
	require.Error(t, wide.narrowerThan(old))

	lostKer := snapshot{ints: old.ints, envs: old.envs, kers: []Domain{EmptyDomain()}}
	require.Error(t, lostKer.narrowerThan(old))
}
