package vivarium

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "vivarium"

// Metrics holds the kernel's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	componentsRegistered *prometheus.CounterVec
	componentsSetup      *prometheus.CounterVec
	resourcesRegistered  *prometheus.CounterVec
	missingDependencies  *prometheus.CounterVec
	resolutionFailures   *prometheus.CounterVec
}

// NewMetrics creates the kernel collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		componentsRegistered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "components_registered_total",
			Help:      "Components added to the component manager, by set.",
		}, []string{"set"}),
		componentsSetup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "components_setup_total",
			Help:      "Components whose setup stage ran, by set.",
		}, []string{"set"}),
		resourcesRegistered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "resources_registered_total",
			Help:      "Resource keys registered, by phase and resource type.",
		}, []string{"phase", "type"}),
		missingDependencies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "missing_dependencies_total",
			Help:      "Dependencies without a registered producer found while resolving a phase.",
		}, []string{"phase"}),
		resolutionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "resolution_failures_total",
			Help:      "Failed dependency resolutions, by phase.",
		}, []string{"phase"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.componentsRegistered,
		m.componentsSetup,
		m.resourcesRegistered,
		m.missingDependencies,
		m.resolutionFailures,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register kernel metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) componentRegistered(set string) {
	if m == nil {
		return
	}
	m.componentsRegistered.WithLabelValues(set).Inc()
}

func (m *Metrics) componentSetup(set string) {
	if m == nil {
		return
	}
	m.componentsSetup.WithLabelValues(set).Inc()
}

func (m *Metrics) resourcesAdded(phase string, t ResourceType, n int) {
	if m == nil {
		return
	}
	m.resourcesRegistered.WithLabelValues(phase, string(t)).Add(float64(n))
}

func (m *Metrics) missingDependency(phase string) {
	if m == nil {
		return
	}
	m.missingDependencies.WithLabelValues(phase).Inc()
}

func (m *Metrics) resolutionFailed(phase string) {
	if m == nil {
		return
	}
	m.resolutionFailures.WithLabelValues(phase).Inc()
}
