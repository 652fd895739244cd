package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrEmptyCompletion viene restituito quando il provider non produce alcun testo
	ErrEmptyCompletion = errors.New("empty completion")
)

// Provider è l'interfaccia base per tutti i provider LLM
type Provider interface {
	// ChatCompletion esegue una richiesta di chat completion
	ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Name restituisce il nome del provider
	Name() string
}

// ChatRequest rappresenta una richiesta generica di chat completion
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
	User        string    `json:"user,omitempty"`
}

// ChatResponse rappresenta una risposta generica di chat completion
type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Message rappresenta un messaggio nella conversazione
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Choice rappresenta una scelta nella risposta
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage rappresenta le statistiche di utilizzo
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Text restituisce il contenuto della prima scelta
func (r *ChatResponse) Text() (string, error) {
	if r == nil || len(r.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := r.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// BaseProvider fornisce funzionalità comuni per i provider
type BaseProvider struct {
	name       string
	baseURL    string
	apiKey     string
	timeout    time.Duration
	maxRetries int
}

// NewBaseProvider crea un nuovo BaseProvider
func NewBaseProvider(name, baseURL, apiKey string) *BaseProvider {
	return &BaseProvider{
		name:       name,
		baseURL:    baseURL,
		apiKey:     apiKey,
		timeout:    60 * time.Second,
		maxRetries: 0,
	}
}

// Name restituisce il nome del provider
func (b *BaseProvider) Name() string {
	return b.name
}

// SetTimeout imposta il timeout delle richieste
func (b *BaseProvider) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		b.timeout = timeout
	}
}

// SetMaxRetries imposta il numero massimo di retry sul trasporto
func (b *BaseProvider) SetMaxRetries(retries int) {
	b.maxRetries = retries
}

// GetBaseURL restituisce la base URL
func (b *BaseProvider) GetBaseURL() string {
	return b.baseURL
}

// GetAPIKey restituisce la API key
func (b *BaseProvider) GetAPIKey() string {
	return b.apiKey
}

// GetTimeout restituisce il timeout
func (b *BaseProvider) GetTimeout() time.Duration {
	return b.timeout
}

// GetMaxRetries restituisce il numero massimo di retry
func (b *BaseProvider) GetMaxRetries() int {
	return b.maxRetries
}

// Backend adatta un Provider al contratto "prompt in, testo out" usato dalle persone
type Backend struct {
	provider    Provider
	model       string
	temperature *float64
	maxTokens   *int
}

// NewBackend crea un backend per il modello indicato
func NewBackend(provider Provider, model string, temperature float64, maxTokens int) *Backend {
	b := &Backend{
		provider:    provider,
		model:       model,
		temperature: &temperature,
	}
	if maxTokens > 0 {
		b.maxTokens = &maxTokens
	}
	return b
}

// Name restituisce "provider/modello"
func (b *Backend) Name() string {
	return b.provider.Name() + "/" + b.model
}

// Generate invia il prompt come singolo messaggio utente e restituisce il testo generato
func (b *Backend) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := b.provider.ChatCompletion(ctx, &ChatRequest{
		Model:       b.model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: b.temperature,
		MaxTokens:   b.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", b.Name(), err)
	}

	text, err := resp.Text()
	if err != nil {
		return "", fmt.Errorf("%s: %w", b.Name(), err)
	}
	return text, nil
}
