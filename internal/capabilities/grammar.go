package capabilities

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// GrammarName è il nome della capability di correzione grammaticale
const GrammarName = "grammar"

// GrammarConfig configura la capability di correzione grammaticale
type GrammarConfig struct {
	Enabled  bool
	BaseURL  string
	Language string
	Timeout  time.Duration
}

// DefaultGrammarConfig restituisce la configurazione di default (LanguageTool pubblico)
func DefaultGrammarConfig() GrammarConfig {
	return GrammarConfig{
		Enabled:  false,
		BaseURL:  "https://api.languagetool.org",
		Language: "en-US",
		Timeout:  15 * time.Second,
	}
}

// GrammarTool corregge un testo tramite un server LanguageTool (/v2/check)
type GrammarTool struct {
	config     GrammarConfig
	httpClient *resty.Client
}

type checkResponse struct {
	Matches []grammarMatch `json:"matches"`
}

type grammarMatch struct {
	Message      string `json:"message"`
	Offset       int    `json:"offset"`
	Length       int    `json:"length"`
	Replacements []struct {
		Value string `json:"value"`
	} `json:"replacements"`
}

// NewGrammarTool crea il tool; fallisce se disabilitato o mal configurato
func NewGrammarTool(cfg GrammarConfig) (*GrammarTool, error) {
	if !cfg.Enabled {
		return nil, errors.New("grammar checking disabled by configuration")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid grammar base URL: %w", err)
	}
	if cfg.Language == "" {
		cfg.Language = DefaultGrammarConfig().Language
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultGrammarConfig().Timeout
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &GrammarTool{config: cfg, httpClient: httpClient}, nil
}

// GrammarConstructor restituisce un Constructor per il Resolver
func GrammarConstructor(cfg GrammarConfig) Constructor {
	return func() (Capability, error) {
		return NewGrammarTool(cfg)
	}
}

// Name restituisce il nome della capability
func (g *GrammarTool) Name() string {
	return GrammarName
}

// Invoke restituisce il testo corretto applicando il primo suggerimento di ogni errore
func (g *GrammarTool) Invoke(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	var result checkResponse
	resp, err := g.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"text":     text,
			"language": g.config.Language,
		}).
		SetResult(&result).
		Post("/v2/check")
	if err != nil {
		return "", invocationErr(GrammarName, text, fmt.Errorf("request failed: %w", err))
	}
	if resp.IsError() {
		return "", invocationErr(GrammarName, text, fmt.Errorf("grammar API error: status %d", resp.StatusCode()))
	}

	return applyCorrections(text, result.Matches), nil
}

// applyCorrections applica le sostituzioni partendo dalla fine del testo,
// così gli offset dei match precedenti restano validi. Gli offset di
// LanguageTool sono espressi in rune.
func applyCorrections(text string, matches []grammarMatch) string {
	runes := []rune(text)

	sorted := make([]grammarMatch, 0, len(matches))
	for _, m := range matches {
		if len(m.Replacements) == 0 || m.Offset < 0 || m.Length < 0 || m.Offset+m.Length > len(runes) {
			continue
		}
		sorted = append(sorted, m)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Offset > sorted[j].Offset })

	limit := len(runes)
	for _, m := range sorted {
		// match sovrapposti: vince quello più a destra già applicato
		if m.Offset+m.Length > limit {
			continue
		}
		replacement := []rune(m.Replacements[0].Value)
		runes = append(runes[:m.Offset], append(replacement, runes[m.Offset+m.Length:]...)...)
		limit = m.Offset
	}

	return string(runes)
}
