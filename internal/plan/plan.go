// Package plan loads declarative simulation plans from YAML.
//
// A plan lists managers and components together with their sub-components,
// configuration defaults and the resources they produce. Each declared
// component registers its resources during setup, which is enough to check a
// plan's ordering without any simulation code.
package plan

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/RobertClay/vivarium"
	"github.com/RobertClay/vivarium/config"
)

// File is the top-level plan document.
type File struct {
	Configuration map[string]any  `yaml:"configuration"`
	Phases        []PhaseSpec     `yaml:"phases"`
	Managers      []ComponentSpec `yaml:"managers"`
	Components    []ComponentSpec `yaml:"components"`

	source string
}

type PhaseSpec struct {
	Name           string `yaml:"name"`
	SingleProducer bool   `yaml:"single_producer"`
}

// ComponentSpec declares one component. Spawns are returned from Setup,
// the way components create further components while being set up.
type ComponentSpec struct {
	Name                  string          `yaml:"name"`
	ConfigurationDefaults map[string]any  `yaml:"configuration_defaults"`
	SubComponents         []ComponentSpec `yaml:"sub_components"`
	Resources             []ResourceSpec  `yaml:"resources"`
	Spawns                []ComponentSpec `yaml:"spawns"`
}

// ResourceSpec declares one resource registration. An empty phase means the
// initialization phase.
type ResourceSpec struct {
	Phase   string   `yaml:"phase"`
	Type    string   `yaml:"type"`
	Names   []string `yaml:"names"`
	Depends []string `yaml:"depends"`
}

// Load reads and parses the plan at path.
func Load(path string) (*File, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(payload)
	if err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", path, err)
	}
	f.source = path
	return f, nil
}

// Parse decodes a plan document.
func Parse(payload []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(payload, &f); err != nil {
		return nil, err
	}
	for _, p := range f.Phases {
		if p.Name == "" {
			return nil, fmt.Errorf("phase without a name")
		}
	}
	f.source = "plan"
	return &f, nil
}

// Source names where the plan came from.
func (f *File) Source() string {
	return f.source
}

// Build creates a simulation from the plan. Plan configuration goes to the
// base layer; component defaults are merged as components register.
func (f *File) Build(opts ...vivarium.Option) (*vivarium.Simulation, error) {
	tree, err := config.New()
	if err != nil {
		return nil, err
	}
	if len(f.Configuration) > 0 {
		if err := tree.Merge(f.Configuration, config.LayerBase, f.source); err != nil {
			return nil, fmt.Errorf("apply plan configuration: %w", err)
		}
	}

	simOpts := append([]vivarium.Option{vivarium.WithConfiguration(tree)}, opts...)
	for _, p := range f.phases() {
		var groupOpts []vivarium.GroupOption
		if p.SingleProducer {
			groupOpts = append(groupOpts, vivarium.WithSingleProducer())
		}
		simOpts = append(simOpts, vivarium.WithPhase(p.Name, groupOpts...))
	}

	sim, err := vivarium.NewSimulation(NewComponents(f.Components), simOpts...)
	if err != nil {
		return nil, err
	}
	if len(f.Managers) > 0 {
		if err := sim.AddManagers(NewComponents(f.Managers)...); err != nil {
			return nil, err
		}
	}
	return sim, nil
}

// phases returns the declared phases. Resources without a phase belong to
// initialization, so a plan that declares phases but not that one gets it
// first, with one column producer per component as in a default simulation.
func (f *File) phases() []PhaseSpec {
	if len(f.Phases) == 0 {
		return nil
	}
	declared := slices.ContainsFunc(f.Phases, func(p PhaseSpec) bool {
		return p.Name == vivarium.PhaseInitialization
	})
	if declared {
		return f.Phases
	}
	return append([]PhaseSpec{{Name: vivarium.PhaseInitialization, SingleProducer: true}}, f.Phases...)
}

// Component is a component declared in a plan.
type Component struct {
	spec     ComponentSpec
	children []vivarium.Component
}

// NewComponents turns specs into components, recursively.
func NewComponents(specs []ComponentSpec) []vivarium.Component {
	out := make([]vivarium.Component, len(specs))
	for i, spec := range specs {
		out[i] = NewComponent(spec)
	}
	return out
}

func NewComponent(spec ComponentSpec) *Component {
	return &Component{spec: spec, children: NewComponents(spec.SubComponents)}
}

func (c *Component) Name() string {
	return c.spec.Name
}

func (c *Component) SubComponents() []vivarium.Component {
	return c.children
}

func (c *Component) ConfigurationDefaults() map[string]any {
	return c.spec.ConfigurationDefaults
}

// Setup registers the declared resources and returns the spawned components.
func (c *Component) Setup(b *vivarium.Builder) ([]vivarium.Component, error) {
	for _, r := range c.spec.Resources {
		phase := r.Phase
		if phase == "" {
			phase = vivarium.PhaseInitialization
		}
		group, err := b.Resources.GetResourceGroup(phase)
		if err != nil {
			return nil, err
		}
		producer := vivarium.Bind(c, r)
		if err := group.AddResources(vivarium.ResourceType(r.Type), r.Names, producer, r.Depends); err != nil {
			return nil, err
		}
	}
	return NewComponents(c.spec.Spawns), nil
}
