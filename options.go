package vivarium

import (
	"log/slog"

	"github.com/RobertClay/vivarium/config"
)

type options struct {
	logger  *slog.Logger
	metrics *Metrics

	configuration *config.Tree
	phases        []phaseSpec
}

type phaseSpec struct {
	phase string
	opts  []GroupOption
}

// Option configures a ResourceManager, ComponentManager or Simulation.
type Option func(*options)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the collectors the kernel records into.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithConfiguration sets the configuration tree of a Simulation.
func WithConfiguration(tree *config.Tree) Option {
	return func(o *options) {
		o.configuration = tree
	}
}

// WithPhase adds a resource group to a Simulation. When no phase is given
// the Simulation creates the initialization phase with a single producer
// per component.
func WithPhase(phase string, opts ...GroupOption) Option {
	return func(o *options) {
		o.phases = append(o.phases, phaseSpec{phase: phase, opts: opts})
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}
