package vivarium

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labels(rps []*ResourceProducer) []string {
	out := make([]string, len(rps))
	for i, rp := range rps {
		out[i] = rp.Label()
	}
	return out
}

func newTestGroup(t *testing.T, singleProducer bool, opts ...Option) *ResourceGroup {
	t.Helper()
	var groupOpts []GroupOption
	if singleProducer {
		groupOpts = append(groupOpts, WithSingleProducer())
	}
	g, err := NewResourceManager(opts...).AddGroup(PhaseInitialization, groupOpts...)
	require.NoError(t, err)
	return g
}

func TestResourceGroupDependencyOrder(t *testing.T) {
	a := &plainComponent{name: "a"}
	b := &plainComponent{name: "b"}

	t.Run("dependent registered first", func(t *testing.T) {
		g := newTestGroup(t, true)
		require.NoError(t, g.AddResources(ResourceColumn, []string{"y"}, Bind(b, "init-y"), []string{"column.x"}))
		require.NoError(t, g.AddResources(ResourceColumn, []string{"x"}, Bind(a, "init-x"), nil))

		sorted, err := g.Sorted()
		require.NoError(t, err)
		assert.Equal(t, []string{"column.x", "column.y"}, labels(sorted))
	})

	t.Run("dependency registered first", func(t *testing.T) {
		g := newTestGroup(t, true)
		require.NoError(t, g.AddResources(ResourceColumn, []string{"x"}, Bind(a, "init-x"), nil))
		require.NoError(t, g.AddResources(ResourceColumn, []string{"y"}, Bind(b, "init-y"), []string{"column.x"}))

		sorted, err := g.Sorted()
		require.NoError(t, err)
		assert.Equal(t, []string{"column.x", "column.y"}, labels(sorted))
	})
}

func TestResourceGroupStableOrder(t *testing.T) {
	g := newTestGroup(t, false)
	c := &plainComponent{name: "c"}
	require.NoError(t, g.AddResources(ResourceColumn, []string{"a"}, Bind(c, "a"), []string{"column.c"}))
	require.NoError(t, g.AddResources(ResourceColumn, []string{"b"}, Bind(c, "b"), nil))
	require.NoError(t, g.AddResources(ResourceColumn, []string{"c"}, Bind(c, "c"), nil))
	require.NoError(t, g.AddResources(ResourceColumn, []string{"d"}, Bind(c, "d"), nil))

	sorted, err := g.Sorted()
	require.NoError(t, err)
	assert.Equal(t, []string{"column.b", "column.c", "column.a", "column.d"}, labels(sorted))

	for range 3 {
		again, err := g.Sorted()
		require.NoError(t, err)
		assert.Equal(t, labels(sorted), labels(again))
	}
}

func TestResourceGroupDiamond(t *testing.T) {
	g := newTestGroup(t, false)
	c := &plainComponent{name: "c"}
	require.NoError(t, g.AddResources(ResourceValue, []string{"top"}, Bind(c, "top"), []string{"value.left", "value.right"}))
	require.NoError(t, g.AddResources(ResourceValue, []string{"left"}, Bind(c, "left"), []string{"column.base"}))
	require.NoError(t, g.AddResources(ResourceValue, []string{"right"}, Bind(c, "right"), []string{"column.base"}))
	require.NoError(t, g.AddResources(ResourceColumn, []string{"base"}, Bind(c, "base"), nil))

	sorted, err := g.Sorted()
	require.NoError(t, err)
	assert.Equal(t, []string{"column.base", "value.left", "value.right", "value.top"}, labels(sorted))
}

func TestResourceGroupMultiNameProducer(t *testing.T) {
	g := newTestGroup(t, true)
	pop := &plainComponent{name: "population"}
	mort := &plainComponent{name: "mortality"}
	require.NoError(t, g.AddResources(ResourceColumn, []string{"alive"}, Bind(mort, "mort"), []string{"column.age", "column.sex"}))
	require.NoError(t, g.AddResources(ResourceColumn, []string{"age", "sex"}, Bind(pop, "pop"), nil))

	sorted, err := g.Sorted()
	require.NoError(t, err)
	assert.Equal(t, []string{"column.age,column.sex", "column.alive"}, labels(sorted))

	graph, err := g.Graph()
	require.NoError(t, err)
	assert.Len(t, graph.Edges, 1, "one edge per producer pair")

	rp, ok := g.Lookup("column.sex")
	require.True(t, ok)
	assert.Equal(t, "population", rp.Producer.Owner())
	assert.Equal(t, []string{"column.age", "column.alive", "column.sex"}, g.Keys())
	assert.Equal(t, 2, g.Len())
}

func TestResourceGroupProducersOnlyColumns(t *testing.T) {
	g := newTestGroup(t, true)
	c := &plainComponent{name: "c"}
	d := &plainComponent{name: "d"}
	colC := Bind(c, "col-c")
	colD := Bind(d, "col-d")
	require.NoError(t, g.AddResources(ResourceValue, []string{"rate"}, Bind(c, "rate"), []string{"column.age"}))
	require.NoError(t, g.AddResources(ResourceColumn, []string{"alive"}, colD, []string{"value.rate"}))
	require.NoError(t, g.AddResources(ResourceColumn, []string{"age"}, colC, nil))
	require.NoError(t, g.AddResources(ResourceStream, []string{"rng"}, Bind(c, "rng"), nil))

	sorted, err := g.Sorted()
	require.NoError(t, err)
	assert.Len(t, sorted, 4)

	producers, err := g.Producers()
	require.NoError(t, err)
	require.Len(t, producers, 2)
	assert.Same(t, colC, producers[0])
	assert.Same(t, colD, producers[1])
}

func TestResourceGroupCycles(t *testing.T) {
	c := &plainComponent{name: "c"}

	t.Run("direct", func(t *testing.T) {
		g := newTestGroup(t, false)
		require.NoError(t, g.AddResources(ResourceColumn, []string{"a"}, Bind(c, "a"), []string{"column.b"}))
		require.NoError(t, g.AddResources(ResourceColumn, []string{"b"}, Bind(c, "b"), []string{"column.a"}))

		_, err := g.Sorted()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrResource))
		var cycleErr CycleDetectedError
		require.True(t, errors.As(err, &cycleErr))
		assert.Equal(t, PhaseInitialization, cycleErr.Phase)
		require.Len(t, cycleErr.Path, 3)
		assert.Equal(t, cycleErr.Path[0], cycleErr.Path[2])
		assert.ElementsMatch(t, []string{"column.a", "column.b"}, cycleErr.Path[:2])
		assert.Contains(t, err.Error(), "contains at least one cycle")

		_, err = g.Producers()
		assert.True(t, errors.As(err, &cycleErr))
	})

	t.Run("transitive", func(t *testing.T) {
		g := newTestGroup(t, false)
		require.NoError(t, g.AddResources(ResourceColumn, []string{"free"}, Bind(c, "free"), nil))
		require.NoError(t, g.AddResources(ResourceValue, []string{"a"}, Bind(c, "a"), []string{"value.c", "column.free"}))
		require.NoError(t, g.AddResources(ResourceValue, []string{"b"}, Bind(c, "b"), []string{"value.a"}))
		require.NoError(t, g.AddResources(ResourceValue, []string{"c"}, Bind(c, "c"), []string{"value.b"}))

		_, err := g.Sorted()
		var cycleErr CycleDetectedError
		require.True(t, errors.As(err, &cycleErr))
		require.Len(t, cycleErr.Path, 4)
		assert.ElementsMatch(t, []string{"value.a", "value.b", "value.c"}, cycleErr.Path[:3])
		assert.NotContains(t, cycleErr.Path, "column.free")

		graph, err := g.Graph()
		require.Error(t, err)
		assert.Len(t, graph.Nodes, 4)
		assert.Empty(t, graph.TopoOrder)
	})

	t.Run("self", func(t *testing.T) {
		g := newTestGroup(t, false)
		require.NoError(t, g.AddResources(ResourceColumn, []string{"a"}, Bind(c, "a"), []string{"column.a"}))

		_, err := g.Sorted()
		var cycleErr CycleDetectedError
		require.True(t, errors.As(err, &cycleErr))
		assert.Equal(t, []string{"column.a", "column.a"}, cycleErr.Path)
	})
}

func TestResourceGroupSingleProducer(t *testing.T) {
	c := &plainComponent{name: "c"}

	g := newTestGroup(t, true)
	require.NoError(t, g.AddResources(ResourceColumn, []string{"a"}, Bind(c, "a"), nil))
	err := g.AddResources(ResourceColumn, []string{"b"}, Bind(c, "b"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrResource))
	var dupErr DuplicateProducerError
	require.True(t, errors.As(err, &dupErr))
	assert.Equal(t, "c", dupErr.Component)
	assert.Equal(t, ResourceColumn, dupErr.Type)
	_, ok := g.Lookup("column.b")
	assert.False(t, ok)

	require.NoError(t, g.AddResources(ResourceValue, []string{"x"}, Bind(c, "x"), nil))
	require.NoError(t, g.AddResources(ResourceValue, []string{"y"}, Bind(c, "y"), nil))

	err = g.AddResources(ResourceColumn, []string{"orphan"}, Bind(nil, "orphan"), nil)
	var invalidErr InvalidResourceError
	assert.True(t, errors.As(err, &invalidErr))

	open := newTestGroup(t, false)
	require.NoError(t, open.AddResources(ResourceColumn, []string{"a"}, Bind(c, "a"), nil))
	require.NoError(t, open.AddResources(ResourceColumn, []string{"b"}, Bind(c, "b"), nil))
	assert.False(t, open.SingleProducer())
	assert.True(t, g.SingleProducer())
}

func TestResourceGroupAddResourcesValidation(t *testing.T) {
	c := &plainComponent{name: "c"}
	g := newTestGroup(t, false)
	require.NoError(t, g.AddResources(ResourceValue, []string{"a"}, Bind(c, "a"), nil))

	tests := []struct {
		name         string
		resourceType ResourceType
		names        []string
		producer     Producer
		check        func(t *testing.T, err error)
	}{
		{
			name:         "unknown type",
			resourceType: "table",
			names:        []string{"t"},
			producer:     Bind(c, "t"),
			check: func(t *testing.T, err error) {
				var typeErr UnknownResourceTypeError
				require.True(t, errors.As(err, &typeErr))
				assert.Equal(t, ResourceType("table"), typeErr.Type)
				assert.Contains(t, err.Error(), "value, value_source, value_modifier, column, stream")
			},
		},
		{
			name:         "nil producer",
			resourceType: ResourceValue,
			names:        []string{"n"},
			check: func(t *testing.T, err error) {
				var invalidErr InvalidResourceError
				assert.True(t, errors.As(err, &invalidErr))
			},
		},
		{
			name:         "no names",
			resourceType: ResourceValue,
			producer:     Bind(c, "n"),
			check: func(t *testing.T, err error) {
				var invalidErr InvalidResourceError
				assert.True(t, errors.As(err, &invalidErr))
			},
		},
		{
			name:         "empty name",
			resourceType: ResourceValue,
			names:        []string{"ok", ""},
			producer:     Bind(c, "n"),
			check: func(t *testing.T, err error) {
				var invalidErr InvalidResourceError
				assert.True(t, errors.As(err, &invalidErr))
			},
		},
		{
			name:         "already registered",
			resourceType: ResourceValue,
			names:        []string{"b", "a"},
			producer:     Bind(c, "n"),
			check: func(t *testing.T, err error) {
				var dupErr DuplicateResourceError
				require.True(t, errors.As(err, &dupErr))
				assert.Equal(t, "value.a", dupErr.Key)
			},
		},
		{
			name:         "repeated within one call",
			resourceType: ResourceValue,
			names:        []string{"b", "b"},
			producer:     Bind(c, "n"),
			check: func(t *testing.T, err error) {
				var dupErr DuplicateResourceError
				require.True(t, errors.As(err, &dupErr))
				assert.Equal(t, "value.b", dupErr.Key)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.AddResources(tt.resourceType, tt.names, tt.producer, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrResource))
			tt.check(t, err)
		})
	}

	assert.Equal(t, []string{"value.a"}, g.Keys(), "failed registrations leave no trace")
	assert.Equal(t, 1, g.Len())
}

func TestResourceGroupSameNameDifferentTypes(t *testing.T) {
	c := &plainComponent{name: "c"}
	g := newTestGroup(t, true)
	require.NoError(t, g.AddResources(ResourceColumn, []string{"age"}, Bind(c, "col"), nil))
	require.NoError(t, g.AddResources(ResourceValue, []string{"age"}, Bind(c, "val"), nil))
	assert.Equal(t, []string{"column.age", "value.age"}, g.Keys())
}

func TestResourceGroupMissingDependencyWarnsOnce(t *testing.T) {
	h := newRecordHandler()
	g := newTestGroup(t, false, WithLogger(slog.New(h)))
	c := &plainComponent{name: "c"}
	require.NoError(t, g.AddResources(ResourceColumn, []string{"a"}, Bind(c, "a"), []string{"value.nowhere"}))

	for range 3 {
		sorted, err := g.Sorted()
		require.NoError(t, err, "a missing dependency is not an error")
		assert.Equal(t, []string{"column.a"}, labels(sorted))
	}
	graph, err := g.Graph()
	require.NoError(t, err)
	assert.Equal(t, []MissingDependency{{Key: "value.nowhere", NeededBy: "column.a"}}, graph.Missing)
	assert.Equal(t, 1, h.count(slog.LevelWarn))

	require.NoError(t, g.AddResources(ResourceColumn, []string{"b"}, Bind(c, "b"), nil))
	_, err = g.Sorted()
	require.NoError(t, err)
	assert.Equal(t, 2, h.count(slog.LevelWarn), "a new registration resolves again")
}

func TestResourceGroupRepeatedDependencyCountsOnce(t *testing.T) {
	h := newRecordHandler()
	g := newTestGroup(t, false, WithLogger(slog.New(h)))
	c := &plainComponent{name: "c"}
	require.NoError(t, g.AddResources(ResourceColumn, []string{"b"}, Bind(c, "b"), nil))
	require.NoError(t, g.AddResources(ResourceColumn, []string{"a"}, Bind(c, "a"),
		[]string{"column.missing", "column.b", "column.missing", "column.b"}))

	graph, err := g.Graph()
	require.NoError(t, err)
	assert.Equal(t, []MissingDependency{{Key: "column.missing", NeededBy: "column.a"}}, graph.Missing)
	assert.Equal(t, []GraphEdge{{From: "column.b", To: "column.a"}}, graph.Edges)
	assert.Equal(t, 1, h.count(slog.LevelWarn))
}

func TestResourceGroupRegistrationInvalidatesCache(t *testing.T) {
	c := &plainComponent{name: "c"}
	g := newTestGroup(t, false)
	require.NoError(t, g.AddResources(ResourceColumn, []string{"b"}, Bind(c, "b"), []string{"column.a"}))

	sorted, err := g.Sorted()
	require.NoError(t, err)
	assert.Equal(t, []string{"column.b"}, labels(sorted))

	require.NoError(t, g.AddResources(ResourceColumn, []string{"a"}, Bind(c, "a"), nil))
	sorted, err = g.Sorted()
	require.NoError(t, err)
	assert.Equal(t, []string{"column.a", "column.b"}, labels(sorted))

	graph, err := g.Graph()
	require.NoError(t, err)
	assert.Equal(t, []string{"column.a", "column.b"}, graph.TopoOrder)
	assert.Equal(t, []GraphEdge{{From: "column.a", To: "column.b"}}, graph.Edges)
}

func TestResourceGroupString(t *testing.T) {
	c := &plainComponent{name: "c"}
	d := &plainComponent{name: "d"}
	g := newTestGroup(t, true)
	require.NoError(t, g.AddResources(ResourceColumn, []string{"age", "sex"}, Bind(c, "pop"), nil))
	require.NoError(t, g.AddResources(ResourceColumn, []string{"alive"}, Bind(d, "mort"), []string{"column.age", "value.rate"}))

	assert.Equal(t, "column.age, column.sex : \ncolumn.alive : column.age, value.rate", g.String())
}

func TestResourceManagerGroups(t *testing.T) {
	m := NewResourceManager()
	assert.Equal(t, "resource_manager", m.Name())

	_, err := m.AddGroup(PhaseInitialization, WithSingleProducer())
	require.NoError(t, err)
	timeStep, err := m.AddGroup("time_step")
	require.NoError(t, err)
	assert.Equal(t, "time_step", timeStep.Phase())

	_, err = m.AddGroup("time_step")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrResource))
	var dupErr DuplicatePhaseError
	require.True(t, errors.As(err, &dupErr))
	assert.Equal(t, "time_step", dupErr.Phase)

	_, err = m.AddGroup("")
	assert.True(t, errors.Is(err, ErrResource))

	assert.Equal(t, []string{PhaseInitialization, "time_step"}, m.Phases())

	got, err := NewResourceInterface(m).GetResourceGroup("time_step")
	require.NoError(t, err)
	assert.Same(t, timeStep, got)

	_, err = m.GetResourceGroup("collect_metrics")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	var notFound PhaseNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "collect_metrics", notFound.Phase)
}

func TestResourceManagerDisplay(t *testing.T) {
	m := NewResourceManager()
	g, err := m.AddGroup(PhaseInitialization)
	require.NoError(t, err)
	require.NoError(t, g.AddResources(ResourceValue, []string{"rate"}, Bind(&plainComponent{name: "c"}, "rate"), []string{"column.age"}))

	out, err := m.Display(PhaseInitialization)
	require.NoError(t, err)
	assert.Equal(t, "value.rate : column.age", out)

	_, err = m.Display("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}
