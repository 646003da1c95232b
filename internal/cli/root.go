// Package cli implements the vivarium command line: it loads a plan, sets it
// up and reports the resulting orders, graphs and configuration.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/RobertClay/vivarium"
	"github.com/RobertClay/vivarium/internal/plan"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
}

// NewRootCommand creates the root command for the vivarium CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "vivarium",
		Short:         "Inspect simulation plans",
		Long:          "Set up the components of a simulation plan and report setup and resource order.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewOrderCommand(opts))
	cmd.AddCommand(NewGraphCommand(opts))
	cmd.AddCommand(NewDisplayCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

func newLogger(opts *RootOptions, cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// setupPlan loads the plan at path and runs its setup stage.
func setupPlan(opts *RootOptions, cmd *cobra.Command, path string) (*vivarium.Simulation, error) {
	f, err := plan.Load(path)
	if err != nil {
		return nil, err
	}
	sim, err := f.Build(vivarium.WithLogger(newLogger(opts, cmd)))
	if err != nil {
		return nil, fmt.Errorf("build plan: %w", err)
	}
	if err := sim.Setup(); err != nil {
		return nil, err
	}
	return sim, nil
}
