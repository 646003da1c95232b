// Package config provides the layered configuration tree components merge
// their defaults into.
//
// Layers are ordered from lowest to highest priority. A leaf holds one value
// per layer and remembers which source set it, so two components that try to
// default the same key in the same layer collide instead of silently
// overwriting each other.
package config
