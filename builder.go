package vivarium

import (
	"log/slog"

	"github.com/RobertClay/vivarium/config"
)

// Builder is handed to every Setup call. It is the only way components reach
// the rest of the simulation during setup.
type Builder struct {
	Configuration *config.Tree
	Components    *ComponentInterface
	Resources     *ResourceInterface
	Logger        *slog.Logger
}

// LoggerFor returns the builder's logger scoped to one component.
func (b *Builder) LoggerFor(c Component) *slog.Logger {
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		return logger
	}
	return logger.With("component", c.Name())
}
