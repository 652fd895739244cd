package agents

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/biodoia/contentfactory/internal/stats"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Pipeline esegue una sequenza ordinata di task in modo strettamente sequenziale.
// È immutabile dopo la costruzione: run concorrenti su topic diversi sono
// sicure perché ogni run possiede il proprio ExecutionContext.
type Pipeline struct {
	tasks     []TaskSpec
	fallbacks []string
	reasons   map[string]string
	metrics   *stats.Metrics
}

// PipelineOption configura una Pipeline
type PipelineOption func(*Pipeline)

// WithFallbacks registra le capability sostituite da stub durante la build
func WithFallbacks(names []string) PipelineOption {
	return func(p *Pipeline) {
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			set[n] = struct{}{}
		}
		p.fallbacks = make([]string, 0, len(set))
		for n := range set {
			p.fallbacks = append(p.fallbacks, n)
		}
		sort.Strings(p.fallbacks)
	}
}

// WithFallbackReasons registra il motivo di ogni fallback, per capability
func WithFallbackReasons(reasons map[string]string) PipelineOption {
	return func(p *Pipeline) {
		p.reasons = make(map[string]string, len(reasons))
		for name, reason := range reasons {
			p.reasons[name] = reason
		}
	}
}

// WithMetrics abilita le metriche Prometheus
func WithMetrics(m *stats.Metrics) PipelineOption {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// FallbackReason restituisce il motivo per cui la capability è in fallback;
// stringa vuota se non è in fallback o il motivo è ignoto
func (p *Pipeline) FallbackReason(name string) string {
	return p.reasons[name]
}

// NewPipeline crea una pipeline copiando i task e assegnando gli ID per posizione.
// La validazione avviene in Validate e all'inizio di ogni Run.
func NewPipeline(tasks []TaskSpec, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		tasks: make([]TaskSpec, len(tasks)),
	}
	copy(p.tasks, tasks)
	for i := range p.tasks {
		p.tasks[i].ID = i + 1
		if p.tasks[i].Name == "" {
			p.tasks[i].Name = fmt.Sprintf("stage-%d", i+1)
		}
	}

	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Tasks restituisce una copia dei task
func (p *Pipeline) Tasks() []TaskSpec {
	out := make([]TaskSpec, len(p.tasks))
	copy(out, p.tasks)
	return out
}

// Fallbacks restituisce i nomi delle capability in fallback, ordinati
func (p *Pipeline) Fallbacks() []string {
	out := make([]string, len(p.fallbacks))
	copy(out, p.fallbacks)
	return out
}

// Validate verifica la struttura della pipeline senza toccare persone o capability
func (p *Pipeline) Validate() error {
	if len(p.tasks) == 0 {
		return &PipelineValidationError{Err: ErrEmptyPipeline}
	}
	for i := range p.tasks {
		task := &p.tasks[i]
		if task.Persona == nil {
			return &PipelineValidationError{TaskID: task.ID, Err: ErrMissingPersona}
		}
		if task.Persona.Backend == nil {
			return &PipelineValidationError{TaskID: task.ID, Err: ErrMissingBackend}
		}
	}
	return nil
}

// Run esegue tutti i task in ordine. Il primo errore interrompe la run e
// nessun risultato parziale viene restituito.
func (p *Pipeline) Run(ctx context.Context, topic string) (*PipelineResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	start := time.Now()
	logger := log.With().Str("run_id", runID).Logger()

	logger.Info().
		Int("stages", len(p.tasks)).
		Strs("fallbacks", p.fallbacks).
		Msg("Pipeline run started")

	execCtx := NewExecutionContext()

	for i := range p.tasks {
		task := &p.tasks[i]

		if err := ctx.Err(); err != nil {
			return nil, p.abort(logger, task, err, start)
		}

		stageStart := time.Now()
		output, err := task.Persona.Produce(ctx, task, topic, execCtx)
		p.metrics.RecordStage(task.Name, err == nil, time.Since(stageStart))
		if err != nil {
			return nil, p.abort(logger, task, err, start)
		}

		execCtx.Append(task.ID, task.Name, output)

		logger.Debug().
			Int("stage", task.ID).
			Str("name", task.Name).
			Str("persona", task.Persona.Role).
			Dur("duration", time.Since(stageStart)).
			Msg("Stage completed")
	}

	entries := execCtx.Entries()
	result := &PipelineResult{
		RunID:          runID,
		Topic:          topic,
		FinalText:      entries[len(entries)-1].Output,
		PerTaskOutputs: entries,
		FallbacksUsed:  p.Fallbacks(),
		Duration:       time.Since(start),
	}

	p.metrics.RecordRun(true, result.Duration)

	logger.Info().
		Dur("duration", result.Duration).
		Msg("Pipeline run completed")

	return result, nil
}

// abort registra il fallimento di uno stage e costruisce l'errore di esecuzione
func (p *Pipeline) abort(logger zerolog.Logger, task *TaskSpec, err error, start time.Time) error {
	p.metrics.RecordRun(false, time.Since(start))

	logger.Error().
		Err(err).
		Int("stage", task.ID).
		Str("name", task.Name).
		Msg("Pipeline run aborted")

	return &PipelineExecutionError{StageID: task.ID, StageName: task.Name, Err: err}
}
