package vivarium

import (
	"slices"
	"strings"
)

// Component is a named plug-in unit managed by the ComponentManager.
// Names are unique across everything one manager holds.
type Component interface {
	Name() string
}

// SubComponentOwner is a component that owns further components. Owned
// components are registered right after their owner.
type SubComponentOwner interface {
	SubComponents() []Component
}

// ConfigurationDefaulter is a component that declares configuration defaults.
// They are merged into the component_configs layer under the component name.
type ConfigurationDefaulter interface {
	ConfigurationDefaults() map[string]any
}

// Setupper is a component with a setup stage. Components returned from Setup
// are registered and set up before the current stage completes.
type Setupper interface {
	Setup(builder *Builder) ([]Component, error)
}

// List groups components without being one. Flatten splices a List in place.
type List []Component

// Name is always empty: a List is never registered itself.
func (List) Name() string { return "" }

// ResourceType identifies the kind of a resource.
type ResourceType string

const (
	ResourceValue         ResourceType = "value"
	ResourceValueSource   ResourceType = "value_source"
	ResourceValueModifier ResourceType = "value_modifier"
	ResourceColumn        ResourceType = "column"
	ResourceStream        ResourceType = "stream"
)

var resourceTypes = []ResourceType{
	ResourceValue,
	ResourceValueSource,
	ResourceValueModifier,
	ResourceColumn,
	ResourceStream,
}

// Valid reports whether t is one of the known resource types.
func (t ResourceType) Valid() bool {
	return slices.Contains(resourceTypes, t)
}

// SingleProducer reports whether a component may register at most one
// producer of this type in a single-producer group.
func (t ResourceType) SingleProducer() bool {
	return t == ResourceColumn
}

// Key returns the fully-qualified "{type}.{name}" resource key.
func (t ResourceType) Key(name string) string {
	return string(t) + "." + name
}

func resourceTypeNames() []string {
	names := make([]string, len(resourceTypes))
	for i, t := range resourceTypes {
		names[i] = string(t)
	}
	return names
}

// Producer is the opaque handle of the callable that creates resources.
// The kernel never invokes it; it only needs the owning component's name.
type Producer interface {
	Owner() string
}

// BoundProducer binds a callable to the component that owns it.
type BoundProducer[F any] struct {
	owner string
	Fn    F
}

// Bind returns a Producer handle for fn owned by component.
func Bind[F any](component Component, fn F) *BoundProducer[F] {
	owner := ""
	if component != nil {
		owner = component.Name()
	}
	return &BoundProducer[F]{owner: owner, Fn: fn}
}

func (p *BoundProducer[F]) Owner() string { return p.owner }

// ResourceProducer is one registration: the resources a producer creates and
// the resource keys it reads first. Identity is by pointer.
type ResourceProducer struct {
	Type         ResourceType
	Names        []string
	Producer     Producer
	Dependencies []string

	seq int
}

// Keys returns the fully-qualified keys this registration produces.
func (p *ResourceProducer) Keys() []string {
	keys := make([]string, len(p.Names))
	for i, name := range p.Names {
		keys[i] = p.Type.Key(name)
	}
	return keys
}

// Label joins Keys with commas.
func (p *ResourceProducer) Label() string {
	return strings.Join(p.Keys(), ",")
}

func (p *ResourceProducer) String() string {
	return "ResourceProducer(" + p.Label() + ")"
}
