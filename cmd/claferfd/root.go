package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gitrdm/goclafer/internal/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "claferfd",
		Short: "claferfd solves structural models with a finite-domain solver",
		Long: `claferfd reads a model of nested entities, references and constraints,
bounds it by a scope and searches for its instances.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all commands)
	root.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn or error")
	root.PersistentFlags().Bool("log-json", false, "log as JSON")
	root.PersistentFlags().String("config", "", "YAML solver configuration file")

	root.AddCommand(newSolveCmd(), newBatchCmd(), newAnalyzeCmd(), newVersionCmd())
	return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newLogger builds the command logger. Every record carries the run id so
// the logs of concurrent runs can be told apart.
func newLogger(cmd *cobra.Command, level string, w io.Writer) (*slog.Logger, error) {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	json, _ := cmd.Flags().GetBool("log-json")
	return logging.NewWriter(w, lvl, json).With("run", uuid.NewString()), nil
}
