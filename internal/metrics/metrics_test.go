package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/goclafer/pkg/fd"
)

func TestObserve(t *testing.T) {
	r := NewRecorder()
	stats := fd.SolverStats{
		NodesExplored:    10,
		Backtracks:       4,
		SolutionsFound:   3,
		PropagationCount: 120,
		Propagators:      17,
		MaxDepth:         5,
		SearchTime:       20 * time.Millisecond,
	}
	require.NoError(t, r.Observe("cars", fd.StateExhausted, stats))
	require.NoError(t, r.Observe("cars", fd.StateExhausted, stats))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.runs.WithLabelValues("cars", "exhausted")))
	assert.Equal(t, 6.0, testutil.ToFloat64(r.instances.WithLabelValues("cars")))
	assert.Equal(t, 20.0, testutil.ToFloat64(r.nodes.WithLabelValues("cars")))
	assert.Equal(t, 17.0, testutil.ToFloat64(r.propagators.WithLabelValues("cars")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.searchTime))
}

func TestObserveNeedsModelName(t *testing.T) {
	assert.ErrorIs(t, NewRecorder().Observe("", fd.StateSolved, fd.SolverStats{}), ErrEmptyModelName)
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.Observe("cars", fd.StateLimitReached, fd.SolverStats{NodesExplored: 7}))

	path := filepath.Join(t.TempDir(), "claferfd.prom")
	require.NoError(t, r.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `claferfd_nodes_total{model="cars"} 7`), text)
	assert.True(t, strings.Contains(text, `claferfd_runs_total{model="cars",state="limit-reached"} 1`), text)
}
