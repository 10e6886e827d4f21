package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gitrdm/goclafer/internal/modelfile"
	"github.com/gitrdm/goclafer/internal/skeleton"
	"github.com/gitrdm/goclafer/pkg/analysis"
	"github.com/gitrdm/goclafer/pkg/ast"
)

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <model.yaml>",
		Short: "Print the scopes, cardinalities and storage formats of a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := modelfile.Load(args[0])
			if err != nil {
				return err
			}
			r, err := analysis.Analyze(spec.Model, spec.Scope)
			if err != nil {
				return fmt.Errorf("analyze: %w", err)
			}
			return printAnalysis(cmd.OutOrStdout(), spec.Name, r)
		},
	}
}

func printAnalysis(w io.Writer, name string, r *analysis.Result) error {
	rep := skeleton.Check(r)
	fmt.Fprintf(w, "model %s\n", name)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tKIND\tCARD\tGLOBAL\tSCOPE\tFORMAT\tGROUP\tREF")
	for _, e := range r.Model().Entities() {
		card, format := "-", "-"
		if e.IsConcrete() {
			card = e.Card().String()
			format = r.FormatOf(e).String()
		}
		group := "-"
		if gc, ok := r.GroupCard(e); ok {
			group = gc.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			e.Name(), e.Kind(), card, r.GlobalCard(e), r.ScopeOf(e), format, group, refOf(e))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !rep.Satisfiable {
		fmt.Fprintln(w, "unsatisfiable:")
		for _, f := range rep.Conflicts {
			fmt.Fprintf(w, "  %s\n", f)
		}
		return nil
	}
	for _, e := range rep.Dead {
		fmt.Fprintf(w, "dead: %s\n", e.Name())
	}
	return nil
}

func refOf(e *ast.Entity) string {
	ref := e.Ref()
	if ref == nil {
		return "-"
	}
	if ref.Unique() {
		return "unique " + ref.Target().Name()
	}
	return ref.Target().Name()
}
