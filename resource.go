package vivarium

import (
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ResourceGroup holds the resource producers of one phase and orders them so
// every producer comes after the producers of the resources it depends on.
//
// Registration and resolution must not overlap: the surrounding engine
// finishes all AddResources calls of a phase before it asks for an order.
// A registration after a resolution invalidates the cached graph.
type ResourceGroup struct {
	phase          string
	singleProducer bool
	logger         *slog.Logger
	metrics        *Metrics

	mu        sync.RWMutex
	producers []*ResourceProducer
	resources map[string]*ResourceProducer
	// Owners that registered a single-producer resource type.
	owners     map[string]struct{}
	generation int
	resolved   *resolution

	sf singleflight.Group
}

type resolution struct {
	graph  Graph
	sorted []*ResourceProducer
	err    error
}

func newResourceGroup(phase string, singleProducer bool, o options) *ResourceGroup {
	return &ResourceGroup{
		phase:          phase,
		singleProducer: singleProducer,
		logger:         o.logger.With("phase", phase),
		metrics:        o.metrics,
		resources:      make(map[string]*ResourceProducer),
		owners:         make(map[string]struct{}),
	}
}

// Phase returns the name of the phase this group orders.
func (g *ResourceGroup) Phase() string {
	return g.phase
}

// SingleProducer reports whether each component may register at most one
// producer of a single-producer resource type.
func (g *ResourceGroup) SingleProducer() bool {
	return g.singleProducer
}

// AddResources records one producer covering every name in names. Either all
// names are registered or, on error, none are.
func (g *ResourceGroup) AddResources(resourceType ResourceType, names []string, producer Producer, dependencies []string) error {
	if !resourceType.Valid() {
		return UnknownResourceTypeError{Type: resourceType}
	}
	if producer == nil {
		return InvalidResourceError{Phase: g.phase, Reason: "producer is nil"}
	}
	if len(names) == 0 {
		return InvalidResourceError{Phase: g.phase, Reason: "no resource names given"}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	checkOwner := g.singleProducer && resourceType.SingleProducer()
	owner := producer.Owner()
	if checkOwner {
		if owner == "" {
			return InvalidResourceError{Phase: g.phase, Reason: "producer has no owning component"}
		}
		if _, exists := g.owners[owner]; exists {
			return DuplicateProducerError{Phase: g.phase, Component: owner, Type: resourceType}
		}
	}

	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == "" {
			return InvalidResourceError{Phase: g.phase, Reason: "empty resource name"}
		}
		key := resourceType.Key(name)
		if _, exists := g.resources[key]; exists {
			return DuplicateResourceError{Phase: g.phase, Key: key}
		}
		if _, exists := seen[key]; exists {
			return DuplicateResourceError{Phase: g.phase, Key: key}
		}
		seen[key] = struct{}{}
	}

	rp := &ResourceProducer{
		Type:         resourceType,
		Names:        slices.Clone(names),
		Producer:     producer,
		Dependencies: slices.Clone(dependencies),
		seq:          len(g.producers),
	}
	for _, key := range rp.Keys() {
		g.resources[key] = rp
	}
	if checkOwner {
		g.owners[owner] = struct{}{}
	}
	g.producers = append(g.producers, rp)
	g.generation++
	g.resolved = nil

	g.metrics.resourcesAdded(g.phase, resourceType, len(names))
	return nil
}

// Producers returns the column producers in dependency order. This is the
// order in which table columns are initialized.
func (g *ResourceGroup) Producers() ([]Producer, error) {
	sorted, err := g.Sorted()
	if err != nil {
		return nil, err
	}
	out := make([]Producer, 0, len(sorted))
	for _, rp := range sorted {
		if rp.Type == ResourceColumn {
			out = append(out, rp.Producer)
		}
	}
	return out, nil
}

// Sorted returns every registration in dependency order. Registrations
// without an ordering constraint between them keep registration order.
func (g *ResourceGroup) Sorted() ([]*ResourceProducer, error) {
	r := g.resolve()
	if r.err != nil {
		return nil, r.err
	}
	return slices.Clone(r.sorted), nil
}

// Graph returns a snapshot of the dependency graph. On a cycle the nodes and
// edges are still returned together with the error; TopoOrder is empty.
func (g *ResourceGroup) Graph() (Graph, error) {
	r := g.resolve()
	return r.graph.clone(), r.err
}

// Lookup returns the registration producing key ("{type}.{name}").
func (g *ResourceGroup) Lookup(key string) (*ResourceProducer, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rp, ok := g.resources[key]
	return rp, ok
}

// Keys returns every registered resource key, sorted.
func (g *ResourceGroup) Keys() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Sorted(maps.Keys(g.resources))
}

// Len returns the number of registrations.
func (g *ResourceGroup) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.producers)
}

// String lists one registration per line as "produced : dependencies".
func (g *ResourceGroup) String() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	lines := make([]string, len(g.producers))
	for i, rp := range g.producers {
		lines[i] = strings.Join(rp.Keys(), ", ") + " : " + strings.Join(rp.Dependencies, ", ")
	}
	return strings.Join(lines, "\n")
}

func (g *ResourceGroup) resolve() *resolution {
	g.mu.RLock()
	cached := g.resolved
	g.mu.RUnlock()
	if cached != nil {
		return cached
	}

	v, _, _ := g.sf.Do("resolve", func() (any, error) {
		g.mu.RLock()
		if g.resolved != nil {
			defer g.mu.RUnlock()
			return g.resolved, nil
		}
		generation := g.generation
		producers := slices.Clone(g.producers)
		resources := maps.Clone(g.resources)
		g.mu.RUnlock()

		r := g.build(producers, resources)

		g.mu.Lock()
		if g.generation == generation {
			g.resolved = r
		}
		g.mu.Unlock()
		return r, nil
	})
	return v.(*resolution)
}

// build derives the graph and runs a stable topological sort: the ready node
// registered first is always emitted first.
func (g *ResourceGroup) build(producers []*ResourceProducer, resources map[string]*ResourceProducer) *resolution {
	n := len(producers)
	succ := make([][]int, n)
	pred := make([][]int, n)
	indegree := make([]int, n)
	var edges []GraphEdge
	var missing []MissingDependency

	for i, rp := range producers {
		linked := make(map[int]struct{})
		seen := make(map[string]struct{}, len(rp.Dependencies))
		for _, key := range rp.Dependencies {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			dep, ok := resources[key]
			if !ok {
				g.logger.Warn("resource is not provided by any component",
					"resource", key, "needed_by", rp.Label())
				g.metrics.missingDependency(g.phase)
				missing = append(missing, MissingDependency{Key: key, NeededBy: rp.Label()})
				continue
			}
			if _, dup := linked[dep.seq]; dup {
				continue
			}
			linked[dep.seq] = struct{}{}
			succ[dep.seq] = append(succ[dep.seq], i)
			pred[i] = append(pred[i], dep.seq)
			indegree[i]++
			edges = append(edges, GraphEdge{From: dep.Label(), To: rp.Label()})
		}
	}

	nodes := make([]GraphNode, n)
	for i, rp := range producers {
		nodes[i] = GraphNode{ID: rp.Label(), Type: rp.Type, Owner: rp.Producer.Owner()}
	}
	graph := Graph{Phase: g.phase, Nodes: nodes, Edges: edges, Missing: missing}

	var ready []int
	for i := range producers {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}
	sorted := make([]*ResourceProducer, 0, n)
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		sorted = append(sorted, producers[next])
		for _, s := range succ[next] {
			indegree[s]--
			if indegree[s] == 0 {
				pos, _ := slices.BinarySearch(ready, s)
				ready = slices.Insert(ready, pos, s)
			}
		}
	}

	if len(sorted) < n {
		g.metrics.resolutionFailed(g.phase)
		return &resolution{
			graph: graph,
			err:   CycleDetectedError{Phase: g.phase, Path: cyclePath(producers, pred, indegree)},
		}
	}

	graph.TopoOrder = make([]string, len(sorted))
	for i, rp := range sorted {
		graph.TopoOrder[i] = rp.Label()
	}
	return &resolution{graph: graph, sorted: sorted}
}

// cyclePath walks dependencies among the nodes a topological sort could not
// emit. Each of them still has an unresolved dependency, so the walk must
// revisit a node; the revisited stretch is a cycle.
func cyclePath(producers []*ResourceProducer, pred [][]int, indegree []int) []string {
	start := -1
	for i := range indegree {
		if indegree[i] > 0 {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	pos := make(map[int]int)
	var walk []int
	for cur := start; ; {
		if at, seen := pos[cur]; seen {
			cycle := walk[at:]
			path := make([]string, 0, len(cycle)+1)
			for j := len(cycle) - 1; j >= 0; j-- {
				path = append(path, producers[cycle[j]].Label())
			}
			return append(path, path[0])
		}
		pos[cur] = len(walk)
		walk = append(walk, cur)
		next := -1
		for _, p := range pred[cur] {
			if indegree[p] > 0 {
				next = p
				break
			}
		}
		if next < 0 {
			return nil
		}
		cur = next
	}
}
