package config

import "fmt"

// DuplicatedConfigurationError means a value was already set in a layer by
// another source.
type DuplicatedConfigurationError struct {
	Path           string
	Layer          string
	Source         string
	ExistingSource string
	Value          any
	ExistingValue  any
}

func (e DuplicatedConfigurationError) Error() string {
	return fmt.Sprintf("duplicated configuration for %s in layer %q: %q sets %v, already set to %v by %q",
		e.Path, e.Layer, e.Source, e.Value, e.ExistingValue, e.ExistingSource)
}

// ConfigurationError means a merge or read does not fit the tree's shape.
type ConfigurationError struct {
	Path   string
	Reason string
}

func (e ConfigurationError) Error() string {
	if e.Path == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error at %s: %s", e.Path, e.Reason)
}

// KeyNotFoundError means no value or subtree exists at Path.
type KeyNotFoundError struct {
	Path string
}

func (e KeyNotFoundError) Error() string {
	return fmt.Sprintf("configuration key not found: %s", e.Path)
}
