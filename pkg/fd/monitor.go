package fd

// monitor.go: monitoring and statistics for the search driver

import (
	"fmt"
	"sync"
	"time"
)

// SolverStats holds statistics about one search.
type SolverStats struct {
	// Search statistics
	NodesExplored  int           // Number of decisions taken
	Backtracks     int           // Number of refuted branches
	SolutionsFound int           // Number of solutions reported
	Restarts       int           // Number of restarts (restart mode only)
	SearchTime     time.Duration // Wall time since the monitor was created
	MaxDepth       int           // Deepest decision stack

	// Propagation statistics
	PropagationCount int           // Number of propagator executions
	PropagationTime  time.Duration // Time spent in fixpoint runs
	Contradictions   int           // Number of failed fixpoint runs
	Propagators      int           // Number of posted propagators
	Nogoods          int           // Number of learnt nogoods

	// Memory statistics
	PeakTrailSize int // Peak size of the undo trail
	PeakQueueSize int // Peak number of queued propagators
}

// SolverMonitor collects SolverStats. It is safe to read from another
// goroutine (for metrics) while the search runs.
type SolverMonitor struct {
	mu        sync.Mutex
	stats     SolverStats
	startTime time.Time
	propStart time.Time
}

// NewSolverMonitor creates a new solver monitor.
func NewSolverMonitor() *SolverMonitor {
	return &SolverMonitor{startTime: time.Now()}
}

// GetStats returns a copy of the current statistics.
func (m *SolverMonitor) GetStats() SolverStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.SearchTime = time.Since(m.startTime)
	return s
}

// StartPropagation marks the beginning of a fixpoint run.
func (m *SolverMonitor) StartPropagation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.propStart = time.Now()
}

// EndPropagation marks the end of a fixpoint run that executed steps
// propagators.
func (m *SolverMonitor) EndPropagation(steps int, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.propStart.IsZero() {
		m.stats.PropagationTime += time.Since(m.propStart)
		m.propStart = time.Time{}
	}
	m.stats.PropagationCount += steps
	if failed {
		m.stats.Contradictions++
	}
}

// RecordBacktrack records a refuted branch.
func (m *SolverMonitor) RecordBacktrack() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Backtracks++
}

// RecordNode records a decision.
func (m *SolverMonitor) RecordNode(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.NodesExplored++
	if depth > m.stats.MaxDepth {
		m.stats.MaxDepth = depth
	}
}

// RecordSolution records finding a solution.
func (m *SolverMonitor) RecordSolution() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.SolutionsFound++
}

// RecordRestart records a restart and the nogood learnt before it.
func (m *SolverMonitor) RecordRestart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Restarts++
	m.stats.Nogoods++
}

// RecordPropagators records the size of the network.
func (m *SolverMonitor) RecordPropagators(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Propagators = n
}

// RecordTrailSize records the current trail size.
func (m *SolverMonitor) RecordTrailSize(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if size > m.stats.PeakTrailSize {
		m.stats.PeakTrailSize = size
	}
}

// RecordQueueSize records the current queue size.
func (m *SolverMonitor) RecordQueueSize(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if size > m.stats.PeakQueueSize {
		m.stats.PeakQueueSize = size
	}
}

// String returns a formatted string representation of the statistics.
func (s SolverStats) String() string {
	return fmt.Sprintf(
		"Solver Statistics:\n"+
			"  Search: %d nodes, %d backtracks, %d solutions, %d restarts, %v time, max depth %d\n"+
			"  Propagation: %d runs, %v time, %d contradictions, %d propagators, %d nogoods\n"+
			"  Memory: peak trail %d, peak queue %d",
		s.NodesExplored, s.Backtracks, s.SolutionsFound, s.Restarts, s.SearchTime, s.MaxDepth,
		s.PropagationCount, s.PropagationTime, s.Contradictions, s.Propagators, s.Nogoods,
		s.PeakTrailSize, s.PeakQueueSize,
	)
}
