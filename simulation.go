package vivarium

import (
	"fmt"
	"log/slog"

	"github.com/RobertClay/vivarium/config"
)

// PhaseInitialization is the phase whose column producers initialize the
// population table.
const PhaseInitialization = "initialization"

// Simulation wires the kernel together: a configuration tree, a
// ResourceManager registered as the first manager, a ComponentManager and the
// Builder handed to every Setup.
type Simulation struct {
	logger        *slog.Logger
	configuration *config.Tree
	resources     *ResourceManager
	components    *ComponentManager
	builder       *Builder
}

// NewSimulation creates a simulation holding components. Nothing is set up
// until Setup is called.
func NewSimulation(components []Component, opts ...Option) (*Simulation, error) {
	o := buildOptions(opts)

	cfg := o.configuration
	if cfg == nil {
		var err error
		if cfg, err = config.New(); err != nil {
			return nil, fmt.Errorf("new simulation: %w", err)
		}
	}

	resources := NewResourceManager(opts...)
	phases := o.phases
	if len(phases) == 0 {
		phases = []phaseSpec{{phase: PhaseInitialization, opts: []GroupOption{WithSingleProducer()}}}
	}
	for _, p := range phases {
		if _, err := resources.AddGroup(p.phase, p.opts...); err != nil {
			return nil, fmt.Errorf("new simulation: %w", err)
		}
	}

	manager := NewComponentManager(opts...)
	s := &Simulation{
		logger:        o.logger.With("component", "simulation"),
		configuration: cfg,
		resources:     resources,
		components:    manager,
		builder: &Builder{
			Configuration: cfg,
			Components:    NewComponentInterface(manager),
			Resources:     NewResourceInterface(resources),
			Logger:        o.logger,
		},
	}

	if err := manager.AddManagers([]Component{resources}, cfg); err != nil {
		return nil, fmt.Errorf("new simulation: %w", err)
	}
	if err := manager.AddComponents(components, cfg); err != nil {
		return nil, fmt.Errorf("new simulation: %w", err)
	}
	return s, nil
}

// AddManagers registers further managers. They must be added before Setup.
func (s *Simulation) AddManagers(managers ...Component) error {
	return s.components.AddManagers(managers, s.configuration)
}

// AddComponents registers further components.
func (s *Simulation) AddComponents(components ...Component) error {
	return s.components.AddComponents(components, s.configuration)
}

// Setup runs the setup stage of every manager and then every component.
func (s *Simulation) Setup() error {
	if err := s.components.SetupComponents(s.builder); err != nil {
		return fmt.Errorf("setup simulation: %w", err)
	}
	s.logger.Info("simulation set up",
		"managers", len(s.components.Managers()),
		"components", len(s.components.Components()))
	return nil
}

// InitializationOrder returns the column producers of the initialization
// phase in dependency order.
func (s *Simulation) InitializationOrder() ([]Producer, error) {
	return s.PhaseOrder(PhaseInitialization)
}

// PhaseOrder returns the column producers of phase in dependency order.
func (s *Simulation) PhaseOrder(phase string) ([]Producer, error) {
	group, err := s.resources.GetResourceGroup(phase)
	if err != nil {
		return nil, err
	}
	return group.Producers()
}

func (s *Simulation) Configuration() *config.Tree {
	return s.configuration
}

func (s *Simulation) ResourceManager() *ResourceManager {
	return s.resources
}

func (s *Simulation) ComponentManager() *ComponentManager {
	return s.components
}

func (s *Simulation) Builder() *Builder {
	return s.builder
}
