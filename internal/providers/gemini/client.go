package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/biodoia/contentfactory/internal/providers"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

var ErrMissingAPIKey = errors.New("gemini API key is required")

// contentGenerator è il sottoinsieme di *genai.Models usato dal client
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implementa providers.Provider sopra l'SDK Google GenAI
type Client struct {
	name   string
	models contentGenerator
}

// NewClient crea un client Gemini autenticato con apiKey
func NewClient(ctx context.Context, name, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Client{name: name, models: client.Models}, nil
}

// Name restituisce il nome del provider
func (c *Client) Name() string {
	return c.name
}

// ChatCompletion traduce la richiesta in GenerateContent; i messaggi system
// diventano SystemInstruction
func (c *Client) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	var (
		system   []string
		contents []*genai.Content
	)
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	config := &genai.GenerateContentConfig{StopSequences: req.Stop}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.TopP != nil {
		config.TopP = genai.Ptr(float32(*req.TopP))
	}
	if req.MaxTokens != nil {
		config.MaxOutputTokens = int32(*req.MaxTokens)
	}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	resp, err := c.models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generate content failed: %w", err)
	}

	log.Debug().
		Str("provider", c.name).
		Str("model", req.Model).
		Int("candidates", len(resp.Candidates)).
		Msg("Gemini response")

	out := &providers.ChatResponse{
		ID:    resp.ResponseID,
		Model: req.Model,
		Choices: []providers.Choice{{
			Message: providers.Message{Role: "assistant", Content: resp.Text()},
		}},
	}
	if len(resp.Candidates) > 0 {
		out.Choices[0].FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = providers.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}
