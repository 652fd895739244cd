package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix è il prefisso delle variabili d'ambiente (es. FACTORY_SERVER_PORT)
const EnvPrefix = "FACTORY"

// Backend supportati
const (
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
)

// Config rappresenta la configurazione completa dell'applicazione
type Config struct {
	Server       ServerConfig       `mapstructure:"server" yaml:"server"`
	Backends     BackendsConfig     `mapstructure:"backends" yaml:"backends"`
	Capabilities CapabilitiesConfig `mapstructure:"capabilities" yaml:"capabilities"`
	Cache        CacheConfig        `mapstructure:"cache" yaml:"cache"`
	Redis        RedisConfig        `mapstructure:"redis" yaml:"redis"`
	Pipeline     PipelineConfig     `mapstructure:"pipeline" yaml:"pipeline"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring" yaml:"monitoring"`
}

// ServerConfig configurazione del server HTTP
type ServerConfig struct {
	Port           int           `mapstructure:"port" yaml:"port"`
	Host           string        `mapstructure:"host" yaml:"host"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	MaxTopicLength int           `mapstructure:"max_topic_length" yaml:"max_topic_length"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// Addr restituisce l'indirizzo di ascolto
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BackendsConfig configurazione dei model backend
type BackendsConfig struct {
	Default string       `mapstructure:"default" yaml:"default"` // "openai" o "gemini"
	OpenAI  OpenAIConfig `mapstructure:"openai" yaml:"openai"`
	Gemini  GeminiConfig `mapstructure:"gemini" yaml:"gemini"`
}

// OpenAIConfig configurazione di un endpoint OpenAI-compatible (Groq di default)
type OpenAIConfig struct {
	Name        string        `mapstructure:"name" yaml:"name"`
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Model       string        `mapstructure:"model" yaml:"model"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries" yaml:"max_retries"`
}

// GeminiConfig configurazione del backend Gemini
type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key" yaml:"api_key"`
	Model       string  `mapstructure:"model" yaml:"model"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// CapabilitiesConfig configurazione delle capability
type CapabilitiesConfig struct {
	Search  SearchConfig  `mapstructure:"search" yaml:"search"`
	Grammar GrammarConfig `mapstructure:"grammar" yaml:"grammar"`
}

// SearchConfig configurazione della web search
type SearchConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled"`
	BaseURL       string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxResults    int           `mapstructure:"max_results" yaml:"max_results"`
	RatePerSecond float64       `mapstructure:"rate_per_second" yaml:"rate_per_second"`
	Burst         int           `mapstructure:"burst" yaml:"burst"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// GrammarConfig configurazione del correttore grammaticale
type GrammarConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled"`
	BaseURL       string        `mapstructure:"base_url" yaml:"base_url"`
	Language      string        `mapstructure:"language" yaml:"language"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second" yaml:"rate_per_second"`
	Burst         int           `mapstructure:"burst" yaml:"burst"`
}

// CacheConfig configurazione del cache in memoria dei risultati delle capability
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled" yaml:"enabled"`
	MaxEntries int           `mapstructure:"max_entries" yaml:"max_entries"`
	TTL        time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// RedisConfig configurazione Redis (secondo livello del cache)
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Host     string `mapstructure:"host" yaml:"host"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

// PipelineConfig selezione dichiarativa dei task
type PipelineConfig struct {
	Platforms   []string `mapstructure:"platforms" yaml:"platforms"`
	Tone        string   `mapstructure:"tone" yaml:"tone"`
	Review      bool     `mapstructure:"review" yaml:"review"`
	PostProcess []string `mapstructure:"post_process" yaml:"post_process"`
}

// MonitoringConfig configurazione monitoring
type MonitoringConfig struct {
	Prometheus struct {
		Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	} `mapstructure:"prometheus" yaml:"prometheus"`
	Logging struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"` // "json" o "console"
	} `mapstructure:"logging" yaml:"logging"`
}

// Load carica la configurazione da file; senza file valgono i default
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Default restituisce la configurazione di default
func Default() *Config {
	var cfg Config
	// i default sono tipizzati staticamente: l'unmarshal non può fallire
	_ = newViper().Unmarshal(&cfg)
	return &cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// chiavi comuni senza prefisso
	_ = v.BindEnv("backends.openai.api_key", EnvPrefix+"_BACKENDS_OPENAI_API_KEY", "GROQ_API_KEY")
	_ = v.BindEnv("backends.gemini.api_key", EnvPrefix+"_BACKENDS_GEMINI_API_KEY", "GEMINI_API_KEY")

	return v
}

// setDefaults imposta i valori di default
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.request_timeout", "3m")
	v.SetDefault("server.max_topic_length", 500)
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Backend defaults
	v.SetDefault("backends.default", BackendOpenAI)
	v.SetDefault("backends.openai.name", "groq")
	v.SetDefault("backends.openai.base_url", "https://api.groq.com/openai")
	v.SetDefault("backends.openai.api_key", "")
	v.SetDefault("backends.openai.model", "llama3-70b-8192")
	v.SetDefault("backends.openai.temperature", 0.7)
	v.SetDefault("backends.openai.max_tokens", 0)
	v.SetDefault("backends.openai.timeout", "60s")
	v.SetDefault("backends.openai.max_retries", 0)
	v.SetDefault("backends.gemini.api_key", "")
	v.SetDefault("backends.gemini.model", "gemini-2.0-flash")
	v.SetDefault("backends.gemini.temperature", 0.7)
	v.SetDefault("backends.gemini.max_tokens", 0)

	// Capabilities defaults
	v.SetDefault("capabilities.search.enabled", true)
	v.SetDefault("capabilities.search.base_url", "https://api.duckduckgo.com")
	v.SetDefault("capabilities.search.timeout", "10s")
	v.SetDefault("capabilities.search.max_results", 5)
	v.SetDefault("capabilities.search.rate_per_second", 1.0)
	v.SetDefault("capabilities.search.burst", 2)
	v.SetDefault("capabilities.search.cache_ttl", "1h")
	v.SetDefault("capabilities.grammar.enabled", false)
	v.SetDefault("capabilities.grammar.base_url", "https://api.languagetool.org")
	v.SetDefault("capabilities.grammar.language", "en-US")
	v.SetDefault("capabilities.grammar.timeout", "15s")
	v.SetDefault("capabilities.grammar.rate_per_second", 0.5)
	v.SetDefault("capabilities.grammar.burst", 1)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("cache.ttl", "10m")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "contentfactory:")

	// Pipeline defaults
	v.SetDefault("pipeline.platforms", []string{"linkedin", "twitter", "blog"})
	v.SetDefault("pipeline.tone", "")
	v.SetDefault("pipeline.review", false)
	v.SetDefault("pipeline.post_process", []string{"unicode_nfc", "normalize_newlines", "trim_trailing_space", "collapse_blank_lines", "ensure_trailing_newline"})

	// Monitoring defaults
	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.logging.level", "info")
	v.SetDefault("monitoring.logging.format", "json")
}

// Validate valida la configurazione
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Backends.Default {
	case BackendOpenAI:
		if c.Backends.OpenAI.BaseURL == "" {
			return fmt.Errorf("backends.openai.base_url is required")
		}
		if c.Backends.OpenAI.Model == "" {
			return fmt.Errorf("backends.openai.model is required")
		}
		if err := validateTemperature(c.Backends.OpenAI.Temperature); err != nil {
			return err
		}
	case BackendGemini:
		if c.Backends.Gemini.Model == "" {
			return fmt.Errorf("backends.gemini.model is required")
		}
		if err := validateTemperature(c.Backends.Gemini.Temperature); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid default backend: %q (expected %q or %q)", c.Backends.Default, BackendOpenAI, BackendGemini)
	}

	if len(c.Pipeline.Platforms) == 0 {
		return fmt.Errorf("pipeline.platforms: at least one platform must be selected")
	}

	if c.Capabilities.Search.Enabled && c.Capabilities.Search.RatePerSecond < 0 {
		return fmt.Errorf("invalid search rate: %v", c.Capabilities.Search.RatePerSecond)
	}

	if c.Redis.Enabled && c.Redis.Host == "" {
		return fmt.Errorf("redis.host is required when redis is enabled")
	}

	if _, err := zerolog.ParseLevel(c.Monitoring.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	return nil
}

// APIKey restituisce la chiave del backend di default
func (c *Config) APIKey() string {
	if c.Backends.Default == BackendGemini {
		return c.Backends.Gemini.APIKey
	}
	return c.Backends.OpenAI.APIKey
}

func validateTemperature(t float64) error {
	if t < 0 || t > 2 {
		return fmt.Errorf("invalid temperature: %v (expected 0-2)", t)
	}
	return nil
}
