package vivarium

import (
	"context"
	"log/slog"
	"sync"
)

// testComponent is a component with every optional capability.
type testComponent struct {
	name     string
	subs     []Component
	defaults map[string]any
	setup    func(b *Builder) ([]Component, error)
	log      *[]string
}

func (c *testComponent) Name() string { return c.name }

func (c *testComponent) SubComponents() []Component { return c.subs }

func (c *testComponent) ConfigurationDefaults() map[string]any { return c.defaults }

func (c *testComponent) Setup(b *Builder) ([]Component, error) {
	if c.log != nil {
		*c.log = append(*c.log, c.name)
	}
	if c.setup == nil {
		return nil, nil
	}
	return c.setup(b)
}

// plainComponent has a name and nothing else.
type plainComponent struct {
	name string
}

func (c *plainComponent) Name() string { return c.name }

func names(cs []Component) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name()
	}
	return out
}

// recordHandler keeps every log record it receives.
type recordHandler struct {
	mu      *sync.Mutex
	records *[]slog.Record
}

func newRecordHandler() recordHandler {
	return recordHandler{mu: &sync.Mutex{}, records: &[]slog.Record{}}
}

func (h recordHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h recordHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.records = append(*h.records, r.Clone())
	return nil
}

func (h recordHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h recordHandler) WithGroup(string) slog.Handler { return h }

func (h recordHandler) count(level slog.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range *h.records {
		if r.Level == level {
			n++
		}
	}
	return n
}
