package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RobertClay/vivarium"
)

// ValidGraphFormats defines the allowed graph output formats.
var ValidGraphFormats = []string{"dot", "mermaid"}

// GraphOptions holds flags for the graph command.
type GraphOptions struct {
	Phase  string
	Format string
}

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GraphOptions{}
	cmd := &cobra.Command{
		Use:   "graph <plan>",
		Short: "Export the dependency graph of a phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(rootOpts, opts, cmd, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.Phase, "phase", vivarium.PhaseInitialization, "phase to export")
	cmd.Flags().StringVar(&opts.Format, "format", "dot", "output format (dot|mermaid)")
	return cmd
}

func runGraph(rootOpts *RootOptions, opts *GraphOptions, cmd *cobra.Command, path string) error {
	var render func(vivarium.Graph) string
	switch opts.Format {
	case "dot":
		render = vivarium.Graph.DOT
	case "mermaid":
		render = vivarium.Graph.Mermaid
	default:
		return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidGraphFormats)
	}

	sim, err := setupPlan(rootOpts, cmd, path)
	if err != nil {
		return err
	}
	group, err := sim.ResourceManager().GetResourceGroup(opts.Phase)
	if err != nil {
		return err
	}
	// A cyclic graph is still exported; the cycle is reported after it.
	graph, resolveErr := group.Graph()
	fmt.Fprint(cmd.OutOrStdout(), render(graph))
	return resolveErr
}
