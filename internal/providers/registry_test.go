package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockProvider implementa Provider per i test
type MockProvider struct {
	name          string
	completionErr error
	lastRequest   *ChatRequest
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

func (m *MockProvider) Name() string { return m.name }

func (m *MockProvider) ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	m.lastRequest = req
	if m.completionErr != nil {
		return nil, m.completionErr
	}
	return &ChatResponse{
		ID:      "test-id",
		Model:   req.Model,
		Choices: []Choice{{Index: 0, Message: Message{Role: "assistant", Content: "test response"}}},
	}, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register("groq", NewMockProvider("groq")))
	require.NoError(t, registry.Register("gemini", NewMockProvider("gemini")))

	err := registry.Register("groq", NewMockProvider("groq"))
	assert.ErrorIs(t, err, ErrProviderAlreadyExists)

	p, err := registry.Get("groq")
	require.NoError(t, err)
	assert.Equal(t, "groq", p.Name())

	_, err = registry.Get("missing")
	assert.ErrorIs(t, err, ErrProviderNotFound)

	assert.Equal(t, []string{"gemini", "groq"}, registry.List())
}

func TestBackend_Generate(t *testing.T) {
	mock := NewMockProvider("groq")
	backend := NewBackend(mock, "llama3-70b-8192", 0.7, 512)

	out, err := backend.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "test response", out)

	require.NotNil(t, mock.lastRequest)
	assert.Equal(t, "llama3-70b-8192", mock.lastRequest.Model)
	assert.Equal(t, []Message{{Role: "user", Content: "hello"}}, mock.lastRequest.Messages)
	require.NotNil(t, mock.lastRequest.MaxTokens)
	assert.Equal(t, 512, *mock.lastRequest.MaxTokens)
}

func TestBackend_GenerateError(t *testing.T) {
	mock := NewMockProvider("groq")
	mock.completionErr = errors.New("upstream down")

	_, err := NewBackend(mock, "m", 0.7, 0).Generate(context.Background(), "hello")
	assert.ErrorContains(t, err, "groq/m")
	assert.ErrorContains(t, err, "upstream down")
}
