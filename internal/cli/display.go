package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RobertClay/vivarium"
)

// NewDisplayCommand creates the display command.
func NewDisplayCommand(rootOpts *RootOptions) *cobra.Command {
	var phase string
	cmd := &cobra.Command{
		Use:   "display <plan>",
		Short: "List the registrations of a phase with their dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := setupPlan(rootOpts, cmd, args[0])
			if err != nil {
				return err
			}
			text, err := sim.ResourceManager().Display(phase)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringVar(&phase, "phase", vivarium.PhaseInitialization, "phase to display")
	return cmd
}
