// Package fd: graph constraints - Acyclic and Unreachable
//
// Both propagators read a successor array: edges[i] = j is the edge i → j
// and edges[i] = len(edges) is the sentinel "no outgoing edge". Each node
// has at most one successor, so the graph is a forest of chains when it is
// acyclic (the parent pointers of a recursive containment hierarchy).
//
// Acyclic propagation:
//   - edges[i] ⊆ [0, n]
//   - follow instantiated edges from every node; revisiting a node on the
//     same walk is a cycle and fails
//   - end(j) is the first node on the walk from j whose edge is not yet
//     instantiated. For an uninstantiated node i, every j with end(j) = i
//     is removed from dom(edges[i]): the edge i → j would close the cycle
//     i → j → ... → i. This includes j = i (self-loops).
//
// Unreachable enforces that no path leads from node `from` to node `to`.
// Walks from `from` follow instantiated edges; reaching `to` fails, and at
// the first open node every successor whose instantiated walk reaches
// `to` is removed.
package fd

import "fmt"

// Acyclic forbids cycles in a successor array.
type Acyclic struct {
	edges []*IntVar
}

// NewAcyclic constructs the acyclicity constraint; len(edges) is the
// "no edge" sentinel.
func NewAcyclic(edges []*IntVar) (Propagator, error) {
	if len(edges) == 0 {
		return nil, fmt.Errorf("NewAcyclic: edges cannot be empty")
	}
	for i, e := range edges {
		if e == nil {
			return nil, fmt.Errorf("NewAcyclic: edges[%d] is nil", i)
		}
	}
	cp := make([]*IntVar, len(edges))
	copy(cp, edges)
	return &Acyclic{edges: cp}, nil
}

func (p *Acyclic) Watches() []Watch   { return watchInts(EventInstantiate, p.edges...) }
func (p *Acyclic) Priority() Priority { return PriorityQuadratic }
func (p *Acyclic) String() string     { return fmt.Sprintf("Acyclic([%s])", joinNames(p.edges)) }

// Propagate implements Propagator.
func (p *Acyclic) Propagate(st *Store) error {
	n := len(p.edges)
	for _, e := range p.edges {
		if _, err := st.Restrict(e, RangeDomain(0, n)); err != nil {
			return err
		}
	}
	end, err := chainEnds(st, p.edges)
	if err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}
	for i, e := range p.edges {
		if st.Instantiated(e) {
			continue
		}
		for j := 0; j < n; j++ {
			if end[j] != i {
				continue
			}
			if _, err := st.RemoveValue(e, j); err != nil {
				return err
			}
		}
	}
	return nil
}

// chainEnds returns, for each node, the first node reached along
// instantiated edges whose own edge is open, or n when the walk ends on the
// sentinel. It fails when an instantiated cycle exists.
func chainEnds(st *Store, edges []*IntVar) ([]int, error) {
	n := len(edges)
	const unknown, visiting = -2, -3
	end := make([]int, n)
	for i := range end {
		end[i] = unknown
	}
	var path []int
	for start := 0; start < n; start++ {
		if end[start] != unknown {
			continue
		}
		path = path[:0]
		cur := start
		result := n
		for {
			if cur == n {
				result = n
				break
			}
			if end[cur] == visiting {
				return nil, fail("cycle through node %d", cur)
			}
			if end[cur] != unknown {
				result = end[cur]
				break
			}
			if !st.Instantiated(edges[cur]) {
				result = cur
				end[cur] = cur
				break
			}
			end[cur] = visiting
			path = append(path, cur)
			cur = st.Value(edges[cur])
		}
		for _, v := range path {
			end[v] = result
		}
	}
	return end, nil
}

// Unreachable forbids any path from one node to another.
type Unreachable struct {
	edges    []*IntVar
	from, to int
}

// NewUnreachable constructs "no path from → to" over a successor array.
func NewUnreachable(edges []*IntVar, from, to int) (Propagator, error) {
	n := len(edges)
	if from < 0 || from >= n || to < 0 || to >= n {
		return nil, fmt.Errorf("NewUnreachable: nodes %d, %d out of range [0, %d)", from, to, n)
	}
	for i, e := range edges {
		if e == nil {
			return nil, fmt.Errorf("NewUnreachable: edges[%d] is nil", i)
		}
	}
	cp := make([]*IntVar, n)
	copy(cp, edges)
	return &Unreachable{edges: cp, from: from, to: to}, nil
}

func (p *Unreachable) Watches() []Watch   { return watchInts(EventInstantiate, p.edges...) }
func (p *Unreachable) Priority() Priority { return PriorityLinear }
func (p *Unreachable) String() string {
	return fmt.Sprintf("Unreachable(%d -> %d, [%s])", p.from, p.to, joinNames(p.edges))
}

// reaches walks instantiated edges from start and reports whether the walk
// visits `to`, and the open node it stops at (n for the sentinel or a
// cycle).
func (p *Unreachable) reaches(st *Store, start int) (bool, int) {
	n := len(p.edges)
	cur := start
	for steps := 0; steps <= n; steps++ {
		if cur == n {
			return false, n
		}
		if cur == p.to {
			return true, cur
		}
		if !st.Instantiated(p.edges[cur]) {
			return false, cur
		}
		cur = st.Value(p.edges[cur])
	}
	return false, n
}

// Propagate implements Propagator.
func (p *Unreachable) Propagate(st *Store) error {
	hit, open := p.reaches(st, p.from)
	if hit {
		return fail("%s: path exists", p)
	}
	if open == len(p.edges) {
		return nil
	}
	e := p.edges[open]
	for _, j := range st.Dom(e).Values() {
		if j >= len(p.edges) {
			continue
		}
		if r, _ := p.reaches(st, j); r {
			if _, err := st.RemoveValue(e, j); err != nil {
				return err
			}
		}
	}
	return nil
}
