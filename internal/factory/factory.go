// Package factory assembla backend, capability, pipeline e post-processing
// a partire dalla configurazione; è il punto d'ingresso comune a CLI e server.
package factory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/biodoia/contentfactory/internal/agents"
	"github.com/biodoia/contentfactory/internal/postprocess"
	"github.com/biodoia/contentfactory/internal/stats"
	"github.com/biodoia/contentfactory/pkg/cache"
	"github.com/biodoia/contentfactory/pkg/config"
	"github.com/rs/zerolog/log"
)

// Request è una richiesta di generazione
type Request struct {
	Topic string

	// Options sostituisce la selezione di default della configurazione
	Options *agents.Options
}

// Output contiene il risultato della pipeline e del post-processing
type Output struct {
	Result *agents.PipelineResult

	// Text è il testo finale post-processato; se il post-processing fallisce
	// coincide con Result.FinalText
	Text string

	// PostProcessErr è valorizzato se il post-processing è fallito
	PostProcessErr *postprocess.PostProcessError

	// FallbackReasons riporta, per ogni capability in fallback, l'errore di costruzione
	FallbackReasons map[string]string
}

// Document rende il documento markdown usando il testo post-processato
func (o *Output) Document() string {
	r := *o.Result
	r.FinalText = o.Text
	return r.Document()
}

// Service genera content pack con la configurazione caricata all'avvio
type Service struct {
	builder *agents.Builder
	options agents.Options
	post    *postprocess.Chain
	store   *cache.MultiLayerCache
	metrics *stats.Metrics

	mu        sync.Mutex
	pipelines map[string]*agents.Pipeline
}

// Option configura il Service
type Option func(*serviceOptions)

type serviceOptions struct {
	backend agents.ModelBackend
	metrics *stats.Metrics
}

// WithBackend sostituisce il backend costruito dalla configurazione
func WithBackend(b agents.ModelBackend) Option {
	return func(o *serviceOptions) { o.backend = b }
}

// WithMetrics imposta le metriche; di default stats.Default()
func WithMetrics(m *stats.Metrics) Option {
	return func(o *serviceOptions) { o.metrics = m }
}

// New costruisce il Service e la pipeline di default
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	so := &serviceOptions{}
	for _, opt := range opts {
		opt(so)
	}
	if so.metrics == nil {
		so.metrics = stats.Default()
	}

	backend := so.backend
	if backend == nil {
		var err error
		backend, err = NewBackend(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	options, err := PipelineOptions(cfg.Pipeline)
	if err != nil {
		return nil, err
	}

	post, err := postprocess.Lookup(cfg.Pipeline.PostProcess)
	if err != nil {
		return nil, fmt.Errorf("invalid post-processing: %w", err)
	}

	store := NewCache(cfg)
	var layer cache.Cache
	if store != nil {
		layer = store
	}

	s := &Service{
		builder:   agents.NewBuilder(backend, Constructors(cfg, layer), so.metrics),
		options:   options,
		post:      post,
		store:     store,
		metrics:   so.metrics,
		pipelines: make(map[string]*agents.Pipeline),
	}

	// la pipeline di default viene costruita subito: errori di configurazione
	// emergono all'avvio
	if _, err := s.Pipeline(options); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// DefaultOptions restituisce la selezione di task della configurazione
func (s *Service) DefaultOptions() agents.Options {
	return s.options
}

// Pipeline restituisce la pipeline per le opzioni indicate, costruendola
// alla prima richiesta
func (s *Service) Pipeline(opts agents.Options) (*agents.Pipeline, error) {
	key := optionsKey(opts)

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pipelines[key]; ok {
		return p, nil
	}

	p, err := s.builder.BuildPreset(opts)
	if err != nil {
		return nil, err
	}
	s.pipelines[key] = p
	return p, nil
}

// Generate esegue la pipeline e poi il post-processing. Un errore di
// post-processing non invalida il risultato: viene riportato in Output.
func (s *Service) Generate(ctx context.Context, req Request) (*Output, error) {
	opts := s.options
	if req.Options != nil {
		opts = *req.Options
	}

	pipeline, err := s.Pipeline(opts)
	if err != nil {
		return nil, err
	}

	result, err := pipeline.Run(ctx, req.Topic)
	if err != nil {
		return nil, err
	}

	out := &Output{Result: result, Text: result.FinalText}
	if len(result.FallbacksUsed) > 0 {
		out.FallbackReasons = make(map[string]string, len(result.FallbacksUsed))
		for _, name := range result.FallbacksUsed {
			out.FallbackReasons[name] = pipeline.FallbackReason(name)
		}
	}
	if s.post.Len() == 0 {
		return out, nil
	}

	text, err := s.post.Apply(result.FinalText)
	if err != nil {
		var pe *postprocess.PostProcessError
		if !errors.As(err, &pe) {
			pe = &postprocess.PostProcessError{Processor: s.post.Name(), Err: err}
		}
		out.PostProcessErr = pe
		s.metrics.RecordPostProcessFailure(pe.Processor)

		log.Warn().
			Err(pe).
			Str("run_id", result.RunID).
			Msg("Post-processing failed, returning unprocessed text")
		return out, nil
	}

	out.Text = text
	return out, nil
}

// CacheStats restituisce le statistiche del cache delle capability;
// false se il cache è disabilitato
func (s *Service) CacheStats() (cache.CacheStats, bool) {
	if s.store == nil {
		return cache.CacheStats{}, false
	}
	return s.store.Stats(), true
}

// Close rilascia il cache
func (s *Service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// PipelineOptions converte la sezione pipeline della configurazione
func PipelineOptions(cfg config.PipelineConfig) (agents.Options, error) {
	opts := agents.Options{Review: cfg.Review}

	for _, name := range cfg.Platforms {
		p, err := agents.ParsePlatform(name)
		if err != nil {
			return agents.Options{}, &agents.PipelineValidationError{Err: err}
		}
		opts.Platforms = append(opts.Platforms, p)
	}
	if len(opts.Platforms) == 0 {
		return agents.Options{}, &agents.PipelineValidationError{Err: agents.ErrNoPlatforms}
	}

	tone, err := agents.ParseTone(cfg.Tone)
	if err != nil {
		return agents.Options{}, &agents.PipelineValidationError{Err: err}
	}
	opts.Tone = tone

	return opts, nil
}

// optionsKey normalizza le opzioni in una chiave stabile
func optionsKey(o agents.Options) string {
	platforms := make([]string, 0, len(o.Platforms))
	seen := make(map[agents.Platform]bool, len(o.Platforms))
	for _, p := range o.Platforms {
		if !seen[p] {
			seen[p] = true
			platforms = append(platforms, string(p))
		}
	}
	sort.Strings(platforms)
	return fmt.Sprintf("%s|%s|%t", strings.Join(platforms, ","), o.Tone, o.Review)
}
