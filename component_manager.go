package vivarium

import (
	"log/slog"
	"reflect"
	"slices"

	"github.com/RobertClay/vivarium/config"
)

// ComponentConfigsLayer is the configuration layer component defaults go to.
const ComponentConfigsLayer = config.LayerComponentConfigs

// ConfigurationStore receives component configuration defaults. Merge must
// fail when a key is already set in layer by another source.
type ConfigurationStore interface {
	Merge(doc map[string]any, layer, source string) error
}

type stage int

const (
	stageIdle stage = iota
	stageManagers
	stageComponents
)

func (s stage) String() string {
	switch s {
	case stageManagers:
		return "managers"
	case stageComponents:
		return "components"
	default:
		return "idle"
	}
}

// ComponentManager holds the managers and components of a simulation,
// applies their configuration defaults and runs their setup stage: managers
// first, then components.
//
// Managers and components share one namespace: a name registered in either
// set cannot be registered again in the other.
type ComponentManager struct {
	logger  *slog.Logger
	metrics *Metrics

	managers      *OrderedComponentSet
	components    *OrderedComponentSet
	configuration ConfigurationStore

	stage stage
	queue []Component
	setUp map[string]struct{}
}

func NewComponentManager(opts ...Option) *ComponentManager {
	o := buildOptions(opts)
	return &ComponentManager{
		logger:     o.logger.With("component", "component_manager"),
		metrics:    o.metrics,
		managers:   &OrderedComponentSet{},
		components: &OrderedComponentSet{},
		setUp:      make(map[string]struct{}),
	}
}

func (m *ComponentManager) Name() string {
	return "component_manager"
}

// AddManagers flattens managers and registers each one. Managers are set up
// before components.
func (m *ComponentManager) AddManagers(managers []Component, configuration ConfigurationStore) error {
	return m.add(stageManagers, managers, configuration)
}

// AddComponents flattens components and registers each one. A nil
// configuration means the store given to an earlier call.
func (m *ComponentManager) AddComponents(components []Component, configuration ConfigurationStore) error {
	return m.add(stageComponents, components, configuration)
}

func (m *ComponentManager) add(target stage, components []Component, configuration ConfigurationStore) error {
	if configuration != nil {
		m.configuration = configuration
	} else {
		configuration = m.configuration
	}
	set, other := m.components, m.managers
	if target == stageManagers {
		set, other = m.managers, m.components
	}

	for _, c := range Flatten(components) {
		exists, err := set.Contains(c)
		if err != nil {
			return err
		}
		if exists || other.Has(c.Name()) {
			return DuplicateNameError{Name: c.Name()}
		}
		if err := applyConfigurationDefaults(configuration, c); err != nil {
			return err
		}
		if err := set.Add(c); err != nil {
			return err
		}
		m.metrics.componentRegistered(target.String())
		m.logger.Debug("registered component", "name", c.Name(), "set", target.String())

		// Anything added while setup runs is set up before the stage ends.
		if m.stage == target || m.stage == stageComponents {
			m.queue = append(m.queue, c)
		}
	}
	return nil
}

func applyConfigurationDefaults(configuration ConfigurationStore, c Component) error {
	d, ok := c.(ConfigurationDefaulter)
	if !ok || configuration == nil {
		return nil
	}
	defaults := d.ConfigurationDefaults()
	if len(defaults) == 0 {
		return nil
	}
	if err := configuration.Merge(defaults, ComponentConfigsLayer, c.Name()); err != nil {
		return ConfigCollisionError{Component: c.Name(), Err: err}
	}
	return nil
}

// Flatten expands lists and owned sub-components into one ordered sequence.
// The walk is depth-first pre-order, so an owner precedes all of its
// descendants and Lists are spliced in place.
func Flatten(components []Component) []Component {
	out := make([]Component, 0, len(components))
	stack := make([]Component, 0, len(components))
	pushReversed := func(cs []Component) {
		for i := len(cs) - 1; i >= 0; i-- {
			stack = append(stack, cs[i])
		}
	}

	pushReversed(components)
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if list, ok := current.(List); ok {
			pushReversed(list)
			continue
		}
		out = append(out, current)
		if owner, ok := current.(SubComponentOwner); ok {
			pushReversed(owner.SubComponents())
		}
	}
	return out
}

// SetupComponents runs Setup on every manager, then on every component, in
// registration order. Each stage is a FIFO work queue: components added
// while it runs, whether returned from Setup or added through the builder,
// are set up before the stage completes. The first error aborts setup.
func (m *ComponentManager) SetupComponents(builder *Builder) error {
	if err := m.runStage(stageManagers, m.managers, builder); err != nil {
		return err
	}
	return m.runStage(stageComponents, m.components, builder)
}

func (m *ComponentManager) runStage(st stage, set *OrderedComponentSet, builder *Builder) error {
	m.stage = st
	m.queue = set.All()
	defer func() {
		m.stage = stageIdle
		m.queue = nil
	}()

	for len(m.queue) > 0 {
		c := m.queue[0]
		m.queue = m.queue[1:]
		if _, done := m.setUp[c.Name()]; done {
			continue
		}
		m.setUp[c.Name()] = struct{}{}

		s, ok := c.(Setupper)
		if !ok {
			continue
		}
		m.logger.Debug("setting up component", "name", c.Name(), "stage", st.String())
		added, err := s.Setup(builder)
		if err != nil {
			return SetupError{Component: c.Name(), Err: err}
		}
		m.metrics.componentSetup(st.String())
		if len(added) > 0 {
			if err := m.AddComponents(added, m.configuration); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsSetUp reports whether the setup stage of the named component has run.
func (m *ComponentManager) IsSetUp(name string) bool {
	_, ok := m.setUp[name]
	return ok
}

// GetComponent returns the component named name.
func (m *ComponentManager) GetComponent(name string) (Component, error) {
	c, ok := m.components.Get(name)
	if !ok {
		return nil, ComponentNotFoundError{Name: name}
	}
	return c, nil
}

// GetComponentsByType returns the components matching any of types, in
// registration order. An interface type matches every component that
// implements it; any other type matches components assignable to it.
func (m *ComponentManager) GetComponentsByType(types ...reflect.Type) []Component {
	var out []Component
	for _, c := range m.components.All() {
		if matchesAny(c, types) {
			out = append(out, c)
		}
	}
	return out
}

func matchesAny(c Component, types []reflect.Type) bool {
	ct := reflect.TypeOf(c)
	return slices.ContainsFunc(types, func(t reflect.Type) bool {
		if t == nil {
			return false
		}
		if t.Kind() == reflect.Interface {
			return ct.Implements(t)
		}
		return ct.AssignableTo(t)
	})
}

// ComponentsOfType returns the components that are a T, in registration order.
func ComponentsOfType[T any](m *ComponentManager) []T {
	var out []T
	for _, c := range m.components.All() {
		if typed, ok := c.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

// ListComponents maps component names to components.
func (m *ComponentManager) ListComponents() map[string]Component {
	out := make(map[string]Component, m.components.Len())
	for _, c := range m.components.All() {
		out[c.Name()] = c
	}
	return out
}

// Managers returns the registered managers in setup order.
func (m *ComponentManager) Managers() []Component {
	return m.managers.All()
}

// Components returns the registered components in setup order.
func (m *ComponentManager) Components() []Component {
	return m.components.All()
}

// ComponentInterface is the view of the ComponentManager components get from
// the builder during setup.
type ComponentInterface struct {
	manager *ComponentManager
}

func NewComponentInterface(manager *ComponentManager) *ComponentInterface {
	return &ComponentInterface{manager: manager}
}

func (i *ComponentInterface) GetComponent(name string) (Component, error) {
	return i.manager.GetComponent(name)
}

func (i *ComponentInterface) GetComponentsByType(types ...reflect.Type) []Component {
	return i.manager.GetComponentsByType(types...)
}

func (i *ComponentInterface) ListComponents() map[string]Component {
	return i.manager.ListComponents()
}

// AddComponents registers components from inside a Setup call. They are set
// up before the running setup stage completes.
func (i *ComponentInterface) AddComponents(components ...Component) error {
	return i.manager.AddComponents(components, i.manager.configuration)
}
