package tool

import (
	"context"
	"time"

	"github.com/hupe1980/colloquy/internal/schema"
	"github.com/hupe1980/colloquy/logging"
)

// Handler executes one capability with structured arguments.
type Handler func(ctx context.Context, args map[string]any) (*Output, error)

// Registry is an in-process Connector over locally registered handlers. The
// capability set is fixed after construction time registration; invocations
// never mutate registry state, so one registry can serve many runs.
type Registry struct {
	defs     []Definition
	handlers map[string]Handler
	logger   logging.Logger
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Logger logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		handlers: make(map[string]Handler),
		logger:   opts.Logger,
	}
}

// Register adds a capability. Re-registering a name replaces its handler.
// Returns the registry for chaining.
func (r *Registry) Register(def Definition, handler Handler) *Registry {
	if _, exists := r.handlers[def.Name]; !exists {
		r.defs = append(r.defs, def)
	} else {
		for i := range r.defs {
			if r.defs[i].Name == def.Name {
				r.defs[i] = def
				break
			}
		}
	}
	r.handlers[def.Name] = handler
	return r
}

// Definitions implements Connector preserving registration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Has implements Connector.
func (r *Registry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

func (r *Registry) definition(name string) Definition {
	for _, d := range r.defs {
		if d.Name == name {
			return d
		}
	}
	return Definition{}
}

// Invoke implements Connector. Arguments are checked against the capability's
// parameter schema before the handler runs; mismatches are rejections, not
// transport failures. Handler errors pass through untouched when already
// typed; untyped errors are classified as unreachable.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (*Output, error) {
	handler, ok := r.handlers[name]
	if !ok {
		return nil, NewUnknownCapability(name)
	}

	if def := r.definition(name); def.Parameters != nil {
		if err := schema.Validate(args, def.Parameters); err != nil {
			return nil, NewRejected(name, err.Error())
		}
	}

	start := time.Now()
	out, err := handler(ctx, args)
	r.logger.Info("tool.invoked",
		"capability", name,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	if err != nil {
		if KindOf(err) != "" {
			return nil, err
		}
		return nil, NewUnreachable(name, err)
	}
	return out, nil
}
