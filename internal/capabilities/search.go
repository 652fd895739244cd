package capabilities

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// SearchName è il nome della capability di ricerca web
const SearchName = "search"

// SearchConfig configura la capability di ricerca
type SearchConfig struct {
	Enabled    bool
	BaseURL    string
	Timeout    time.Duration
	MaxResults int
}

// DefaultSearchConfig restituisce la configurazione di default (DuckDuckGo Instant Answer API)
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Enabled:    true,
		BaseURL:    "https://api.duckduckgo.com",
		Timeout:    10 * time.Second,
		MaxResults: 5,
	}
}

// SearchTool interroga un endpoint compatibile con l'Instant Answer API di DuckDuckGo
type SearchTool struct {
	config     SearchConfig
	httpClient *resty.Client
}

// instantAnswer è la parte della risposta DuckDuckGo usata dal tool
type instantAnswer struct {
	Heading       string         `json:"Heading"`
	AbstractText  string         `json:"AbstractText"`
	AbstractURL   string         `json:"AbstractURL"`
	Answer        string         `json:"Answer"`
	RelatedTopics []relatedTopic `json:"RelatedTopics"`
}

type relatedTopic struct {
	Text     string         `json:"Text"`
	FirstURL string         `json:"FirstURL"`
	Name     string         `json:"Name"`
	Topics   []relatedTopic `json:"Topics"`
}

// NewSearchTool crea il tool di ricerca; fallisce se disabilitato o mal configurato
func NewSearchTool(cfg SearchConfig) (*SearchTool, error) {
	if !cfg.Enabled {
		return nil, errors.New("search disabled by configuration")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("search base URL is empty")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid search base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSearchConfig().Timeout
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultSearchConfig().MaxResults
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	httpClient.OnAfterResponse(func(client *resty.Client, resp *resty.Response) error {
		log.Debug().
			Str("capability", SearchName).
			Int("status", resp.StatusCode()).
			Dur("duration", resp.Time()).
			Msg("Search API response")
		return nil
	})

	return &SearchTool{config: cfg, httpClient: httpClient}, nil
}

// SearchConstructor restituisce un Constructor per il Resolver
func SearchConstructor(cfg SearchConfig) Constructor {
	return func() (Capability, error) {
		return NewSearchTool(cfg)
	}
}

// Name restituisce il nome della capability
func (s *SearchTool) Name() string {
	return SearchName
}

// Invoke esegue la ricerca e restituisce un riassunto testuale dei risultati
func (s *SearchTool) Invoke(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", invocationErr(SearchName, query, errors.New("empty query"))
	}

	var answer instantAnswer
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":             query,
			"format":        "json",
			"no_html":       "1",
			"skip_disambig": "1",
		}).
		SetResult(&answer).
		Get("/")
	if err != nil {
		return "", invocationErr(SearchName, query, fmt.Errorf("request failed: %w", err))
	}
	if resp.IsError() {
		return "", invocationErr(SearchName, query, fmt.Errorf("search API error: status %d", resp.StatusCode()))
	}

	return s.format(query, &answer), nil
}

// format riduce la risposta a un testo compatto da inserire nel prompt
func (s *SearchTool) format(query string, answer *instantAnswer) string {
	var b strings.Builder

	if answer.Heading != "" {
		b.WriteString(answer.Heading)
		b.WriteString("\n")
	}
	if answer.Answer != "" {
		b.WriteString(answer.Answer)
		b.WriteString("\n")
	}
	if answer.AbstractText != "" {
		b.WriteString(answer.AbstractText)
		if answer.AbstractURL != "" {
			fmt.Fprintf(&b, " (%s)", answer.AbstractURL)
		}
		b.WriteString("\n")
	}

	count := 0
	for _, topic := range flattenTopics(answer.RelatedTopics) {
		if count >= s.config.MaxResults {
			break
		}
		fmt.Fprintf(&b, "- %s", topic.Text)
		if topic.FirstURL != "" {
			fmt.Fprintf(&b, " (%s)", topic.FirstURL)
		}
		b.WriteString("\n")
		count++
	}

	if b.Len() == 0 {
		return fmt.Sprintf("No search results found for %q.", query)
	}
	return strings.TrimRight(b.String(), "\n")
}

// flattenTopics appiattisce i gruppi di topic annidati
func flattenTopics(topics []relatedTopic) []relatedTopic {
	var out []relatedTopic
	for _, t := range topics {
		if len(t.Topics) > 0 {
			out = append(out, flattenTopics(t.Topics)...)
			continue
		}
		if t.Text != "" {
			out = append(out, t)
		}
	}
	return out
}
