package agents

import (
	"errors"
	"fmt"

	"github.com/biodoia/contentfactory/internal/capabilities"
	"github.com/biodoia/contentfactory/internal/stats"
	"github.com/rs/zerolog/log"
)

var ErrUnknownPersona = errors.New("unknown persona")

// Builder costruisce pipeline a partire dai cataloghi di persone e task
type Builder struct {
	backend      ModelBackend
	constructors map[string]capabilities.Constructor
	metrics      *stats.Metrics
}

// NewBuilder crea un builder. Le capability senza costruttore vengono risolte
// con uno stub.
func NewBuilder(backend ModelBackend, constructors map[string]capabilities.Constructor, metrics *stats.Metrics) *Builder {
	ctors := make(map[string]capabilities.Constructor, len(constructors))
	for name, c := range constructors {
		ctors[name] = c
	}
	return &Builder{
		backend:      backend,
		constructors: ctors,
		metrics:      metrics,
	}
}

// BuildPreset costruisce la pipeline del preset viral
func (b *Builder) BuildPreset(opts Options) (*Pipeline, error) {
	tasks, err := opts.Tasks()
	if err != nil {
		return nil, err
	}
	return b.Build(ViralPersonas(), tasks)
}

// Build valida i task, risolve ogni capability una sola volta e crea la pipeline.
// Le persone referenziate da più task sono condivise.
func (b *Builder) Build(personas []PersonaTemplate, tasks []TaskTemplate) (*Pipeline, error) {
	if len(tasks) == 0 {
		return nil, &PipelineValidationError{Err: ErrEmptyPipeline}
	}
	if b.backend == nil {
		return nil, &PipelineValidationError{Err: ErrMissingBackend}
	}

	catalog := make(map[string]PersonaTemplate, len(personas))
	for _, p := range personas {
		catalog[p.Key] = p
	}
	for i, t := range tasks {
		if _, ok := catalog[t.Persona]; !ok {
			return nil, &PipelineValidationError{TaskID: i + 1, Err: fmt.Errorf("%w: %q", ErrUnknownPersona, t.Persona)}
		}
	}

	resolver := capabilities.NewResolver(b.metrics)
	built := make(map[string]*Persona)

	specs := make([]TaskSpec, len(tasks))
	for i, t := range tasks {
		persona, ok := built[t.Persona]
		if !ok {
			persona = b.persona(catalog[t.Persona], resolver)
			built[t.Persona] = persona
		}

		specs[i] = TaskSpec{
			Name:                t.Name,
			DescriptionTemplate: t.Description,
			ExpectedOutputHint:  t.ExpectedOutput,
			CapabilityQuery:     t.CapabilityQuery,
			Persona:             persona,
		}
	}

	reasons := make(map[string]string)
	for _, binding := range resolver.Bindings() {
		if binding.IsFallback {
			reasons[binding.Name] = binding.Reason
		}
	}

	pipeline := NewPipeline(specs,
		WithFallbacks(resolver.Fallbacks()),
		WithFallbackReasons(reasons),
		WithMetrics(b.metrics),
	)

	log.Info().
		Int("stages", len(specs)).
		Int("personas", len(built)).
		Strs("fallbacks", pipeline.Fallbacks()).
		Msg("Pipeline built")

	return pipeline, nil
}

func (b *Builder) persona(tmpl PersonaTemplate, resolver *capabilities.Resolver) *Persona {
	caps := make([]capabilities.Capability, 0, len(tmpl.Capabilities))
	for _, name := range tmpl.Capabilities {
		binding := resolver.Resolve(name, b.constructors[name])
		caps = append(caps, binding.Capability)
	}

	return &Persona{
		Role:         tmpl.Role,
		Goal:         tmpl.Goal,
		Backstory:    tmpl.Backstory,
		Capabilities: caps,
		Backend:      b.backend,
		Metrics:      b.metrics,
	}
}
