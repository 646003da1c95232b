package config

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Standard layers, lowest priority first.
const (
	LayerBase             = "base"
	LayerUserConfigs      = "user_configs"
	LayerComponentConfigs = "component_configs"
	LayerModelOverride    = "model_override"
	LayerOverride         = "override"
)

// DefaultLayers is the layer stack used by New when none is given.
var DefaultLayers = []string{
	LayerBase,
	LayerUserConfigs,
	LayerComponentConfigs,
	LayerModelOverride,
	LayerOverride,
}

// Tree is a layered configuration tree. Each leaf holds at most one value
// per layer together with the source that set it; reads return the value of
// the highest layer that has one.
type Tree struct {
	mu     sync.RWMutex
	layers []string
	index  map[string]int
	root   *node
}

type node struct {
	children map[string]*node
	values   []*entry
}

type entry struct {
	value  any
	source string
}

func (n *node) leaf() bool {
	return n.values != nil
}

// New returns an empty tree with the given layers, lowest priority first.
func New(layers ...string) (*Tree, error) {
	if len(layers) == 0 {
		layers = DefaultLayers
	}
	index := make(map[string]int, len(layers))
	for i, layer := range layers {
		if layer == "" {
			return nil, fmt.Errorf("new config tree: empty layer name")
		}
		if _, exists := index[layer]; exists {
			return nil, fmt.Errorf("new config tree: duplicate layer %q", layer)
		}
		index[layer] = i
	}
	return &Tree{
		layers: slices.Clone(layers),
		index:  index,
		root:   &node{children: make(map[string]*node)},
	}, nil
}

// Layers returns the layer names, lowest priority first.
func (t *Tree) Layers() []string {
	return slices.Clone(t.layers)
}

type write struct {
	path  []string
	value any
	tree  bool
}

// Merge writes every leaf of doc into layer, recording source. Nested maps
// become subtrees. A leaf already set in the same layer by another source is
// a DuplicatedConfigurationError. Nothing is written when Merge fails.
func (t *Tree) Merge(doc map[string]any, layer, source string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	li, ok := t.index[layer]
	if !ok {
		return ConfigurationError{Reason: fmt.Sprintf("unknown layer %q", layer)}
	}

	var writes []write
	if err := flatten(nil, doc, &writes); err != nil {
		return err
	}
	for _, w := range writes {
		if err := t.check(w, li, source); err != nil {
			return err
		}
	}
	for _, w := range writes {
		n := t.ensure(w.path)
		if w.tree {
			continue
		}
		if n.values == nil {
			n.values = make([]*entry, len(t.layers))
		}
		n.values[li] = &entry{value: w.value, source: source}
	}
	return nil
}

// MergeYAML decodes a YAML mapping and merges it like Merge.
func (t *Tree) MergeYAML(data []byte, layer, source string) error {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode yaml from %s: %w", source, err)
	}
	if doc == nil {
		return nil
	}
	return t.Merge(doc, layer, source)
}

func flatten(prefix []string, doc map[string]any, out *[]write) error {
	for _, key := range slices.Sorted(maps.Keys(doc)) {
		if key == "" {
			return ConfigurationError{Path: strings.Join(prefix, "."), Reason: "empty key"}
		}
		path := append(slices.Clone(prefix), key)
		switch v := doc[key].(type) {
		case map[string]any:
			*out = append(*out, write{path: path, tree: true})
			if err := flatten(path, v, out); err != nil {
				return err
			}
		default:
			*out = append(*out, write{path: path, value: v})
		}
	}
	return nil
}

func (t *Tree) check(w write, layer int, source string) error {
	n := t.root
	for i, key := range w.path {
		child, ok := n.children[key]
		if !ok {
			return nil
		}
		last := i == len(w.path)-1
		if !last && child.leaf() {
			return ConfigurationError{
				Path:   strings.Join(w.path[:i+1], "."),
				Reason: "value is set here, cannot add keys below it",
			}
		}
		n = child
	}
	if w.tree {
		if n.leaf() {
			return ConfigurationError{Path: strings.Join(w.path, "."), Reason: "value is set here, cannot replace it with a mapping"}
		}
		return nil
	}
	if !n.leaf() {
		return ConfigurationError{Path: strings.Join(w.path, "."), Reason: "mapping is set here, cannot replace it with a value"}
	}
	if existing := n.values[layer]; existing != nil && existing.source != source {
		return DuplicatedConfigurationError{
			Path:           strings.Join(w.path, "."),
			Layer:          t.layers[layer],
			Source:         source,
			ExistingSource: existing.source,
			Value:          w.value,
			ExistingValue:  existing.value,
		}
	}
	return nil
}

func (t *Tree) ensure(path []string) *node {
	n := t.root
	for _, key := range path {
		child, ok := n.children[key]
		if !ok {
			child = &node{}
			if n.children == nil {
				n.children = make(map[string]*node)
			}
			n.children[key] = child
		}
		n = child
	}
	return n
}

func (t *Tree) find(path []string) (*node, error) {
	n := t.root
	for _, key := range path {
		child, ok := n.children[key]
		if !ok || n.leaf() {
			return nil, KeyNotFoundError{Path: strings.Join(path, ".")}
		}
		n = child
	}
	return n, nil
}

func (n *node) top() *entry {
	for i := len(n.values) - 1; i >= 0; i-- {
		if n.values[i] != nil {
			return n.values[i]
		}
	}
	return nil
}

// Get returns the effective value at path. A subtree is returned as a map.
func (t *Tree) Get(path ...string) (any, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, err := t.find(path)
	if err != nil {
		return nil, err
	}
	if n.leaf() {
		return n.top().value, nil
	}
	return n.toMap(), nil
}

// Has reports whether path exists.
func (t *Tree) Has(path ...string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, err := t.find(path)
	return err == nil
}

// Source returns the layer and source of the effective value at path.
func (t *Tree) Source(path ...string) (layer, source string, err error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, err := t.find(path)
	if err != nil {
		return "", "", err
	}
	if !n.leaf() {
		return "", "", ConfigurationError{Path: strings.Join(path, "."), Reason: "not a value"}
	}
	for i := len(n.values) - 1; i >= 0; i-- {
		if e := n.values[i]; e != nil {
			return t.layers[i], e.source, nil
		}
	}
	return "", "", KeyNotFoundError{Path: strings.Join(path, ".")}
}

// GetString returns the value at path as a string.
func (t *Tree) GetString(path ...string) (string, error) {
	v, err := t.Get(path...)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", ConfigurationError{Path: strings.Join(path, "."), Reason: fmt.Sprintf("value %v is %T, not a string", v, v)}
	}
	return s, nil
}

// GetInt returns the value at path as an int. Integral floats are accepted.
func (t *Tree) GetInt(path ...string) (int, error) {
	v, err := t.Get(path...)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == math.Trunc(n) {
			return int(n), nil
		}
	}
	return 0, ConfigurationError{Path: strings.Join(path, "."), Reason: fmt.Sprintf("value %v is %T, not an int", v, v)}
}

// ToMap returns the effective configuration as nested maps.
func (t *Tree) ToMap() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root.toMap()
}

// YAML renders the effective configuration as YAML.
func (t *Tree) YAML() ([]byte, error) {
	return yaml.Marshal(t.ToMap())
}

func (n *node) toMap() map[string]any {
	out := make(map[string]any, len(n.children))
	for key, child := range n.children {
		if child.leaf() {
			out[key] = child.top().value
			continue
		}
		out[key] = child.toMap()
	}
	return out
}
