package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gitrdm/goclafer/internal/metrics"
	"github.com/gitrdm/goclafer/internal/modelfile"
	"github.com/gitrdm/goclafer/internal/parallel"
	"github.com/gitrdm/goclafer/pkg/analysis"
	"github.com/gitrdm/goclafer/pkg/compiler"
	"github.com/gitrdm/goclafer/pkg/fd"
)

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <model.yaml>...",
		Short: "Count the instances of several models concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runBatch,
	}
	f := cmd.Flags()
	f.Int("workers", 0, "models solved at once (0 for one per CPU)")
	f.Int("limit", 0, "stop each model after this many instances (0 for all)")
	f.Int("node-limit", 0, "stop each model after this many search nodes")
	f.Int("propagation-limit", 0, "stop each model after this many propagator runs")
	f.Duration("time-limit", 0, "stop each model after this much search time")
	f.Bool("restarts", false, "restart from the root after every instance")
	f.String("policy", "input", "branching policy: input or min-domain")
	f.String("metrics-file", "", "write Prometheus metrics to this textfile")
	return cmd
}

// outcome is the result of counting one model.
type outcome struct {
	name  string
	count int
	state fd.State
	stats fd.SolverStats
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Optimize {
		return fmt.Errorf("batch does not optimize")
	}
	log, err := newLogger(cmd, cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	workers, _ := cmd.Flags().GetInt("workers")

	results := make([]outcome, len(args))
	jobs := make([]int, len(args))
	for i := range jobs {
		jobs[i] = i
	}
	errs := parallel.Each(cmd.Context(), workers, jobs, func(ctx context.Context, i int) error {
		res, err := countModel(ctx, args[i], cfg, log)
		results[i] = res
		return err
	})

	var rec *metrics.Recorder
	if cfg.MetricsFile != "" {
		rec = metrics.NewRecorder()
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tINSTANCES\tSTATE\tNODES")
	var failed int
	for i, path := range args {
		if errs[i] != nil {
			failed++
			log.Error("model failed", "path", path, "err", errs[i])
			fmt.Fprintf(tw, "%s\t-\terror\t-\n", path)
			continue
		}
		res := results[i]
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\n", res.name, res.count, res.state, res.stats.NodesExplored)
		if rec != nil {
			if err := rec.Observe(res.name, res.state, res.stats); err != nil {
				return err
			}
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if rec != nil {
		if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d models failed", failed, len(args))
	}
	return nil
}

func countModel(ctx context.Context, path string, cfg solveConfig, log *slog.Logger) (outcome, error) {
	spec, err := modelfile.Load(path)
	if err != nil {
		return outcome{}, err
	}
	log = log.With("model", spec.Name)
	r, err := analysis.Analyze(spec.Model, spec.Scope)
	if err != nil {
		return outcome{}, fmt.Errorf("analyze: %w", err)
	}
	sm, err := compiler.Compile(r, compiler.WithLogger(log))
	if err != nil {
		return outcome{}, fmt.Errorf("compile: %w", err)
	}
	s, err := compiler.NewSolver(sm, append(cfg.searchOptions(sm), fd.WithLogger(log))...)
	if err != nil {
		return outcome{}, err
	}
	if err := enumerate(ctx, io.Discard, s, cfg.Limit); err != nil && !compiler.IsLimit(err) {
		return outcome{}, err
	}
	return outcome{name: spec.Name, count: s.InstanceCount(), state: s.State(), stats: s.Stats()}, nil
}
