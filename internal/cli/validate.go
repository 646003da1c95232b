package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <plan>",
		Short: "Set up a plan and resolve every phase",
		Long: `Set up every manager and component of a plan and resolve the
dependency order of every phase. Fails on duplicate names, configuration
collisions, invalid registrations and dependency cycles. Dependencies no
component provides are reported but do not fail validation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd, args[0])
		},
	}
}

func runValidate(opts *RootOptions, cmd *cobra.Command, path string) error {
	sim, err := setupPlan(opts, cmd, path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var errs []error
	for _, phase := range sim.ResourceManager().Phases() {
		group, err := sim.ResourceManager().GetResourceGroup(phase)
		if err != nil {
			return err
		}
		graph, err := group.Graph()
		if err != nil {
			errs = append(errs, err)
			fmt.Fprintf(out, "phase %s: FAIL\n", phase)
			continue
		}
		fmt.Fprintf(out, "phase %s: ok (%d producers, %d edges)\n", phase, len(graph.Nodes), len(graph.Edges))
		for _, m := range graph.Missing {
			fmt.Fprintf(out, "  missing %s needed by %s\n", m.Key, m.NeededBy)
		}
	}
	return errors.Join(errs...)
}
