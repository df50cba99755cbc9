package dispatch

import (
	"fmt"
	"maps"
	"strings"

	"github.com/papercomputeco/tomes/pkg/llm"
)

// ToolSpec describes a capability the model may select. Parameters is a
// JSON schema object.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

func (t ToolSpec) definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  t.Parameters,
	}
}

// Registry is an immutable, ordered set of tools.
type Registry struct {
	specs  []ToolSpec
	byName map[string]int
}

// NewRegistry validates and copies specs. Names must be non-empty and unique.
func NewRegistry(specs ...ToolSpec) (*Registry, error) {
	r := &Registry{
		specs:  make([]ToolSpec, 0, len(specs)),
		byName: make(map[string]int, len(specs)),
	}
	for n, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: tool %d has no name", ErrInvalidRegistry, n)
		}
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("%w: duplicate tool %q", ErrInvalidRegistry, name)
		}
		spec.Name = name
		spec.Parameters = maps.Clone(spec.Parameters)
		r.byName[name] = len(r.specs)
		r.specs = append(r.specs, spec)
	}
	return r, nil
}

// MustRegistry is NewRegistry for static tool sets.
func MustRegistry(specs ...ToolSpec) *Registry {
	r, err := NewRegistry(specs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Specs returns a copy of the tools in registration order.
func (r *Registry) Specs() []ToolSpec {
	out := make([]ToolSpec, len(r.specs))
	for n, spec := range r.specs {
		spec.Parameters = maps.Clone(spec.Parameters)
		out[n] = spec
	}
	return out
}

// Lookup returns the tool named name.
func (r *Registry) Lookup(name string) (ToolSpec, bool) {
	n, ok := r.byName[name]
	if !ok {
		return ToolSpec{}, false
	}
	spec := r.specs[n]
	spec.Parameters = maps.Clone(spec.Parameters)
	return spec, true
}

// Len returns the number of tools.
func (r *Registry) Len() int { return len(r.specs) }

func (r *Registry) definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, len(r.specs))
	for n, spec := range r.specs {
		defs[n] = spec.definition()
	}
	return defs
}
