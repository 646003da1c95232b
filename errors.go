package vivarium

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Every typed error below reports its class through Is, so
// callers can match either the class or the concrete cause.
var (
	// ErrComponentConfig covers component registration failures.
	ErrComponentConfig = errors.New("component config error")
	// ErrResource covers resource registration and resolution failures.
	ErrResource = errors.New("resource error")
	// ErrNotFound covers lookups of unknown components or phases.
	ErrNotFound = errors.New("not found")
)

// DuplicateNameError means a component name is already registered.
type DuplicateNameError struct {
	Name string
}

func (e DuplicateNameError) Error() string {
	return fmt.Sprintf("attempting to add a component with duplicate name: %q", e.Name)
}

func (e DuplicateNameError) Is(target error) bool { return target == ErrComponentConfig }

// MissingNameError means a component has no usable name.
type MissingNameError struct {
	Component any
}

func (e MissingNameError) Error() string {
	return fmt.Sprintf("component %T has no name", e.Component)
}

func (e MissingNameError) Is(target error) bool { return target == ErrComponentConfig }

// ConfigCollisionError means a component's configuration defaults could not
// be merged into the configuration store.
type ConfigCollisionError struct {
	Component string
	Err       error
}

func (e ConfigCollisionError) Error() string {
	return fmt.Sprintf("apply configuration defaults of %q: %v", e.Component, e.Err)
}

func (e ConfigCollisionError) Unwrap() error { return e.Err }

func (e ConfigCollisionError) Is(target error) bool { return target == ErrComponentConfig }

// SetupError wraps a failure returned by a component's Setup.
type SetupError struct {
	Component string
	Err       error
}

func (e SetupError) Error() string {
	return fmt.Sprintf("setup component %q: %v", e.Component, e.Err)
}

func (e SetupError) Unwrap() error { return e.Err }

// UnknownResourceTypeError means a resource type outside the enumeration.
type UnknownResourceTypeError struct {
	Type ResourceType
}

func (e UnknownResourceTypeError) Error() string {
	return fmt.Sprintf("unknown resource type %q, permitted types are %s",
		string(e.Type), strings.Join(resourceTypeNames(), ", "))
}

func (e UnknownResourceTypeError) Is(target error) bool { return target == ErrResource }

// InvalidResourceError means a registration request is malformed.
type InvalidResourceError struct {
	Phase  string
	Reason string
}

func (e InvalidResourceError) Error() string {
	return fmt.Sprintf("invalid resource registration in phase %q: %s", e.Phase, e.Reason)
}

func (e InvalidResourceError) Is(target error) bool { return target == ErrResource }

// DuplicateResourceError means a resource key already has a producer.
type DuplicateResourceError struct {
	Phase string
	Key   string
}

func (e DuplicateResourceError) Error() string {
	return fmt.Sprintf("more than one producer for resource %s in phase %q", e.Key, e.Phase)
}

func (e DuplicateResourceError) Is(target error) bool { return target == ErrResource }

// DuplicateProducerError means a component registered a second producer of a
// single-producer resource type in a single-producer group.
type DuplicateProducerError struct {
	Phase     string
	Component string
	Type      ResourceType
}

func (e DuplicateProducerError) Error() string {
	return fmt.Sprintf("component %q has more than one producer for resource type %s in phase %q",
		e.Component, string(e.Type), e.Phase)
}

func (e DuplicateProducerError) Is(target error) bool { return target == ErrResource }

// DuplicatePhaseError means a resource group already exists for the phase.
type DuplicatePhaseError struct {
	Phase string
}

func (e DuplicatePhaseError) Error() string {
	return fmt.Sprintf("resource group for phase %q already exists", e.Phase)
}

func (e DuplicatePhaseError) Is(target error) bool { return target == ErrResource }

// CycleDetectedError means the dependency graph of a phase has a cycle.
type CycleDetectedError struct {
	Phase string
	Path  []string
}

func (e CycleDetectedError) Error() string {
	msg := fmt.Sprintf("the resource group %s contains at least one cycle", e.Phase)
	if len(e.Path) == 0 {
		return msg
	}
	return msg + ": " + strings.Join(e.Path, " -> ")
}

func (e CycleDetectedError) Is(target error) bool { return target == ErrResource }

// ComponentNotFoundError means no component is registered under Name.
type ComponentNotFoundError struct {
	Name string
}

func (e ComponentNotFoundError) Error() string {
	return fmt.Sprintf("no component found with name %q", e.Name)
}

func (e ComponentNotFoundError) Is(target error) bool { return target == ErrNotFound }

// PhaseNotFoundError means no resource group exists for Phase.
type PhaseNotFoundError struct {
	Phase string
}

func (e PhaseNotFoundError) Error() string {
	return fmt.Sprintf("no resource group for phase %q", e.Phase)
}

func (e PhaseNotFoundError) Is(target error) bool { return target == ErrNotFound }
