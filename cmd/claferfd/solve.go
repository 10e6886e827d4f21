package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gitrdm/goclafer/internal/metrics"
	"github.com/gitrdm/goclafer/internal/modelfile"
	"github.com/gitrdm/goclafer/pkg/analysis"
	"github.com/gitrdm/goclafer/pkg/compiler"
	"github.com/gitrdm/goclafer/pkg/fd"
)

func newSolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve <model.yaml>",
		Short: "Enumerate or optimize the instances of a model",
		Long: `Solve compiles the model and prints its instances. With --optimize it
prints the optimal instance for the model's objective instead.`,
		Args: cobra.ExactArgs(1),
		RunE: runSolve,
	}
	f := cmd.Flags()
	f.Int("limit", 0, "stop after this many instances (0 for all)")
	f.Int("node-limit", 0, "stop after this many search nodes")
	f.Int("propagation-limit", 0, "stop after this many propagator runs")
	f.Duration("time-limit", 0, "stop after this much search time")
	f.Bool("restarts", false, "restart from the root after every instance")
	f.String("policy", "input", "branching policy: input or min-domain")
	f.Bool("optimize", false, "search for the optimal instance of the objective")
	f.String("metrics-file", "", "write Prometheus metrics to this textfile")
	return cmd
}

// stream is the part of the solver a run reports on.
type stream interface {
	State() fd.State
	Stats() fd.SolverStats
}

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cmd, cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	spec, err := modelfile.Load(args[0])
	if err != nil {
		return err
	}
	log = log.With("model", spec.Name)

	r, err := analysis.Analyze(spec.Model, spec.Scope)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	sm, err := compiler.Compile(r, compiler.WithLogger(log))
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	if rep := sm.Skeleton(); rep != nil {
		for _, e := range rep.Dead {
			log.Info("entity can never exist", "entity", e.Name())
		}
	}
	opts := append(cfg.searchOptions(sm), fd.WithLogger(log))

	out := cmd.OutOrStdout()
	var s stream
	var count int
	if cfg.Optimize {
		o, err := compiler.NewOptimizer(sm, opts...)
		if err != nil {
			return err
		}
		if err := optimize(cmd.Context(), out, o); err != nil && !compiler.IsLimit(err) {
			return err
		} else if err != nil {
			log.Warn("search stopped early", "err", err)
		}
		s, count = o, o.InstanceCount()
	} else {
		solver, err := compiler.NewSolver(sm, opts...)
		if err != nil {
			return err
		}
		if err := enumerate(cmd.Context(), out, solver, cfg.Limit); err != nil && !compiler.IsLimit(err) {
			return err
		} else if err != nil {
			log.Warn("search stopped early", "err", err)
		}
		s, count = solver, solver.InstanceCount()
	}

	stats := s.Stats()
	log.Info("search finished",
		"state", s.State(),
		"instances", count,
		"nodes", stats.NodesExplored,
		"backtracks", stats.Backtracks,
		"propagations", stats.PropagationCount,
		"elapsed", stats.SearchTime)
	fmt.Fprintf(out, "%d instances (%s)\n", count, s.State())

	if cfg.MetricsFile != "" {
		rec := metrics.NewRecorder()
		if err := rec.Observe(spec.Name, s.State(), stats); err != nil {
			return err
		}
		if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}
	return nil
}

func enumerate(ctx context.Context, w io.Writer, s *compiler.Solver, limit int) error {
	for limit <= 0 || s.InstanceCount() < limit {
		ok, err := s.Find(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		sol, _ := s.Instance()
		fmt.Fprintf(w, "=== Instance %d ===\n", s.InstanceCount())
		printSolution(w, sol)
	}
	return nil
}

func optimize(ctx context.Context, w io.Writer, o *compiler.Optimizer) error {
	best, err := o.Optimal(ctx)
	if best == nil {
		return err
	}
	v, _ := o.Best()
	if err != nil {
		fmt.Fprintf(w, "=== Best so far (objective %d) ===\n", v)
	} else {
		fmt.Fprintf(w, "=== Optimal (objective %d) ===\n", v)
	}
	printSolution(w, best)
	return err
}

func printSolution(w io.Writer, sol *compiler.Solution) {
	fmt.Fprint(w, sol.String())
	if sol.SoftSum > 0 {
		fmt.Fprintf(w, "soft constraints held: %d\n", sol.SoftSum)
	}
	for i, ok := range sol.Assertions {
		if !ok {
			fmt.Fprintf(w, "assertion %d failed\n", i+1)
		}
	}
}
