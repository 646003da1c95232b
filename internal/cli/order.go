package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RobertClay/vivarium"
)

// OrderOptions holds flags for the order command.
type OrderOptions struct {
	Phase string
	All   bool
}

// NewOrderCommand creates the order command.
func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrderOptions{}
	cmd := &cobra.Command{
		Use:   "order <plan>",
		Short: "Print the setup order and the resource order of a phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrder(rootOpts, opts, cmd, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.Phase, "phase", vivarium.PhaseInitialization, "phase to resolve")
	cmd.Flags().BoolVar(&opts.All, "all", false, "include producers of every resource type, not only columns")
	return cmd
}

func runOrder(rootOpts *RootOptions, opts *OrderOptions, cmd *cobra.Command, path string) error {
	sim, err := setupPlan(rootOpts, cmd, path)
	if err != nil {
		return err
	}
	group, err := sim.ResourceManager().GetResourceGroup(opts.Phase)
	if err != nil {
		return err
	}
	sorted, err := group.Sorted()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "setup:")
	for _, c := range sim.ComponentManager().Managers() {
		fmt.Fprintf(out, "  manager %s\n", c.Name())
	}
	for _, c := range sim.ComponentManager().Components() {
		fmt.Fprintf(out, "  component %s\n", c.Name())
	}

	fmt.Fprintf(out, "phase %s:\n", opts.Phase)
	i := 0
	for _, rp := range sorted {
		if !opts.All && rp.Type != vivarium.ResourceColumn {
			continue
		}
		i++
		fmt.Fprintf(out, "  %d. %s (%s)\n", i, strings.Join(rp.Keys(), ", "), rp.Producer.Owner())
	}
	return nil
}
