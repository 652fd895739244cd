package factory

import (
	"context"
	"fmt"
	"sync"

	"github.com/biodoia/contentfactory/internal/agents"
	"github.com/biodoia/contentfactory/internal/capabilities"
	"github.com/biodoia/contentfactory/internal/providers"
	"github.com/biodoia/contentfactory/internal/providers/gemini"
	"github.com/biodoia/contentfactory/internal/providers/openai"
	"github.com/biodoia/contentfactory/pkg/cache"
	"github.com/biodoia/contentfactory/pkg/config"
	"github.com/rs/zerolog/log"
)

// NewBackend registra i provider configurati e restituisce quello di default
func NewBackend(ctx context.Context, cfg *config.Config) (agents.ModelBackend, error) {
	registry := providers.NewRegistry()

	oc := cfg.Backends.OpenAI
	if oc.APIKey == "" && cfg.Backends.Default == config.BackendOpenAI {
		log.Warn().Str("provider", oc.Name).Msg("No API key configured, requests will likely be rejected")
	}
	client := openai.NewClient(oc.Name, oc.BaseURL, oc.APIKey,
		openai.WithTimeout(oc.Timeout),
		openai.WithMaxRetries(oc.MaxRetries),
	)
	if err := registry.Register(config.BackendOpenAI, client); err != nil {
		return nil, err
	}

	gc := cfg.Backends.Gemini
	if gc.APIKey != "" {
		g, err := gemini.NewClient(ctx, config.BackendGemini, gc.APIKey)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(config.BackendGemini, g); err != nil {
			return nil, err
		}
	}

	provider, err := registry.Get(cfg.Backends.Default)
	if err != nil {
		return nil, fmt.Errorf("default backend %q not available: %w", cfg.Backends.Default, err)
	}

	var backend *providers.Backend
	switch cfg.Backends.Default {
	case config.BackendGemini:
		backend = providers.NewBackend(provider, gc.Model, gc.Temperature, gc.MaxTokens)
	default:
		backend = providers.NewBackend(provider, oc.Model, oc.Temperature, oc.MaxTokens)
	}

	log.Info().
		Str("backend", backend.Name()).
		Strs("registered", registry.List()).
		Msg("Model backend ready")

	return backend, nil
}

// NewCache crea il cache dei risultati delle capability; nil se disabilitato
func NewCache(cfg *config.Config) *cache.MultiLayerCache {
	if !cfg.Cache.Enabled && !cfg.Redis.Enabled {
		return nil
	}
	return cache.NewMultiLayerCache(&cache.Config{
		MemoryEnabled:    cfg.Cache.Enabled,
		MemoryMaxEntries: cfg.Cache.MaxEntries,
		MemoryTTL:        cfg.Cache.TTL,
		RedisEnabled:     cfg.Redis.Enabled,
		RedisHost:        cfg.Redis.Host,
		RedisPassword:    cfg.Redis.Password,
		RedisDB:          cfg.Redis.DB,
		RedisTTL:         cfg.Capabilities.Search.CacheTTL,
		RedisPrefix:      cfg.Redis.Prefix,
	})
}

// Constructors restituisce i costruttori delle capability. Ogni capability viene
// costruita una sola volta per processo e condivisa tra le pipeline, così rate
// limit e cache valgono per tutte le run.
func Constructors(cfg *config.Config, store cache.Cache) map[string]capabilities.Constructor {
	sc := cfg.Capabilities.Search
	gc := cfg.Capabilities.Grammar

	search := func() (capabilities.Capability, error) {
		tool, err := capabilities.NewSearchTool(capabilities.SearchConfig{
			Enabled:    sc.Enabled,
			BaseURL:    sc.BaseURL,
			Timeout:    sc.Timeout,
			MaxResults: sc.MaxResults,
		})
		if err != nil {
			return nil, err
		}

		var c capabilities.Capability = tool
		if sc.RatePerSecond > 0 {
			c = capabilities.WithRateLimit(c, sc.RatePerSecond, sc.Burst)
		}
		if store != nil && sc.CacheTTL > 0 {
			c = capabilities.WithCache(c, store, sc.CacheTTL)
		}
		return c, nil
	}

	grammar := func() (capabilities.Capability, error) {
		tool, err := capabilities.NewGrammarTool(capabilities.GrammarConfig{
			Enabled:  gc.Enabled,
			BaseURL:  gc.BaseURL,
			Language: gc.Language,
			Timeout:  gc.Timeout,
		})
		if err != nil {
			return nil, err
		}

		var c capabilities.Capability = tool
		if gc.RatePerSecond > 0 {
			c = capabilities.WithRateLimit(c, gc.RatePerSecond, gc.Burst)
		}
		return c, nil
	}

	return map[string]capabilities.Constructor{
		capabilities.SearchName:  once(search),
		capabilities.GrammarName: once(grammar),
	}
}

// once memorizza il risultato del primo tentativo di costruzione
func once(ctor capabilities.Constructor) capabilities.Constructor {
	var (
		o   sync.Once
		c   capabilities.Capability
		err error
	)
	return func() (capabilities.Capability, error) {
		o.Do(func() {
			c, err = ctor()
		})
		return c, err
	}
}
