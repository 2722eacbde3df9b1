package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/michaelbrown/ibrl/internal/llm"
)

// CatalogVersion identifies the function catalog advertised to the model.
const CatalogVersion = "2024-12.1"

// ErrUnknownFunction is returned when the model names a function that is not registered.
var ErrUnknownFunction = errors.New("unknown function")

// Registry maps function names to their descriptor and handler.
// It is built once per session and not modified while turns run.
type Registry struct {
	functions map[string]Function
	version   string
}

// NewRegistry creates an empty function registry.
func NewRegistry() *Registry {
	return &Registry{
		functions: make(map[string]Function),
		version:   CatalogVersion,
	}
}

// Register adds a function. Names must be non-empty and unique.
func (r *Registry) Register(fn Function) error {
	name := fn.Def.Name
	if name == "" {
		return fmt.Errorf("function name is empty")
	}
	if fn.Handler == nil {
		return fmt.Errorf("function %s has no handler", name)
	}
	if _, exists := r.functions[name]; exists {
		return fmt.Errorf("function %s already registered", name)
	}
	r.functions[name] = fn
	return nil
}

// MustRegister is Register for static catalogs; it panics on a programming error.
func (r *Registry) MustRegister(fns ...Function) {
	for _, fn := range fns {
		if err := r.Register(fn); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (Function, bool) {
	fn, ok := r.functions[name]
	return fn, ok
}

// AllTools returns every descriptor, sorted by name.
func (r *Registry) AllTools() []llm.ToolDef {
	defs := make([]llm.ToolDef, 0, len(r.functions))
	for _, fn := range r.functions {
		defs = append(defs, fn.Def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Filter returns a registry restricted to the given names. An empty list keeps everything.
func (r *Registry) Filter(names []string) *Registry {
	if len(names) == 0 {
		return r
	}
	out := &Registry{functions: make(map[string]Function, len(names)), version: r.version}
	for _, n := range names {
		if fn, ok := r.functions[n]; ok {
			out.functions[n] = fn
		}
	}
	return out
}

// Validate checks args against the schema of the named function.
func (r *Registry) Validate(name string, args map[string]any) error {
	fn, ok := r.functions[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}
	return validateArgs(args, fn.Def.Parameters)
}

// CallTool validates args and runs the named handler.
func (r *Registry) CallTool(ctx context.Context, name string, args map[string]any, emit Emit) error {
	if err := r.Validate(name, args); err != nil {
		return err
	}
	return r.functions[name].Handler(ctx, args, emit)
}

// HasTools returns true if any functions are registered.
func (r *Registry) HasTools() bool {
	return len(r.functions) > 0
}

// Version returns the catalog version.
func (r *Registry) Version() string {
	return r.version
}
