package postprocessors

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/researchbot/researchbot/internal/core/domain"
	"github.com/researchbot/researchbot/internal/core/ports/driven"
)

// BuilderFunc creates a stage from its section of the pipeline config.
// cfg may be nil.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Registry maps stage names used in configuration to their builders.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry returns a registry with no stages. See RegisterDefaults.
func NewRegistry() *Registry {
	return &Registry{builders: map[string]BuilderFunc{}}
}

// Register binds name to builder. A later call for the same name wins.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	if build, ok := r.builders[name]; ok {
		return build(cfg)
	}
	return nil, fmt.Errorf("%w: unknown pipeline stage %q, expected one of %s",
		domain.ErrInvalidConfiguration, name, strings.Join(r.Names(), ", "))
}

func (r *Registry) Has(name string) bool {
	return r.builders[name] != nil
}

// Names lists the registered stages in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.builders))
}
