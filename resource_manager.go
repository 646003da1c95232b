package vivarium

import (
	"log/slog"
	"slices"
	"sync"
)

// GroupOption configures a resource group created by AddGroup.
type GroupOption func(*groupConfig)

type groupConfig struct {
	singleProducer bool
}

// WithSingleProducer limits every component to one producer of each
// single-producer resource type (columns) in the group.
func WithSingleProducer() GroupOption {
	return func(c *groupConfig) {
		c.singleProducer = true
	}
}

// ResourceManager owns one ResourceGroup per phase.
type ResourceManager struct {
	opts   options
	logger *slog.Logger

	mu     sync.RWMutex
	groups map[string]*ResourceGroup
	phases []string
}

func NewResourceManager(opts ...Option) *ResourceManager {
	o := buildOptions(opts)
	return &ResourceManager{
		opts:   o,
		logger: o.logger.With("component", "resource_manager"),
		groups: make(map[string]*ResourceGroup),
	}
}

func (m *ResourceManager) Name() string {
	return "resource_manager"
}

// AddGroup creates the resource group of phase. A phase may be added once.
func (m *ResourceManager) AddGroup(phase string, opts ...GroupOption) (*ResourceGroup, error) {
	if phase == "" {
		return nil, InvalidResourceError{Reason: "phase is empty"}
	}
	var cfg groupConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.groups[phase]; exists {
		return nil, DuplicatePhaseError{Phase: phase}
	}
	group := newResourceGroup(phase, cfg.singleProducer, m.opts)
	m.groups[phase] = group
	m.phases = append(m.phases, phase)
	m.logger.Debug("added resource group", "phase", phase, "single_producer", cfg.singleProducer)
	return group, nil
}

// GetResourceGroup returns the group of phase.
func (m *ResourceManager) GetResourceGroup(phase string) (*ResourceGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	group, ok := m.groups[phase]
	if !ok {
		return nil, PhaseNotFoundError{Phase: phase}
	}
	return group, nil
}

// Phases returns the phases in the order they were added.
func (m *ResourceManager) Phases() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.phases)
}

// Display describes the registrations of phase, one per line.
func (m *ResourceManager) Display(phase string) (string, error) {
	group, err := m.GetResourceGroup(phase)
	if err != nil {
		return "", err
	}
	return group.String(), nil
}

// ResourceInterface is the view of the ResourceManager components get from
// the builder during setup.
type ResourceInterface struct {
	manager *ResourceManager
}

func NewResourceInterface(manager *ResourceManager) *ResourceInterface {
	return &ResourceInterface{manager: manager}
}

// GetResourceGroup returns the group of phase.
func (i *ResourceInterface) GetResourceGroup(phase string) (*ResourceGroup, error) {
	return i.manager.GetResourceGroup(phase)
}
