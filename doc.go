// Package vivarium provides the component and resource kernel of a
// simulation engine.
//
// It offers:
// - an insertion-ordered, name-unique component set
// - a component manager that flattens owned sub-components, applies
//   configuration defaults and sets up managers before components
// - per-phase resource groups that validate resource registrations
//   (unknown types, duplicate keys, one column producer per component)
// - dependency resolution into a stable topological order, with cycle
//   detection and warnings for dependencies nobody provides
// - graph export to Graphviz DOT and Mermaid
//
// Registration and resolution are sequential: all AddResources calls of a
// phase complete before the phase's order is read. The kernel documents this
// but does not enforce it.
package vivarium
