package factory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/biodoia/contentfactory/internal/agents"
	"github.com/biodoia/contentfactory/internal/capabilities"
	"github.com/biodoia/contentfactory/internal/stats"
	"github.com/biodoia/contentfactory/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	var searches int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&searches, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Heading":"Trends","AbstractText":"Short video is up."}`))
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Capabilities.Search.BaseURL = server.URL
	cfg.Capabilities.Search.RatePerSecond = 0
	cfg.Cache.Enabled = false
	return cfg
}

func newTestService(t *testing.T, cfg *config.Config, backend agents.ModelBackend) *Service {
	t.Helper()

	svc, err := New(context.Background(), cfg,
		WithBackend(backend),
		WithMetrics(stats.NewMetrics(prometheus.NewRegistry(), "test")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestService_Generate(t *testing.T) {
	var prompts []string
	backend := agents.BackendFunc(func(ctx context.Context, prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return "Stage output with trailing space   \n\n\n\nend", nil
	})

	svc := newTestService(t, testConfig(t), backend)

	out, err := svc.Generate(context.Background(), Request{Topic: "AI"})
	require.NoError(t, err)
	require.Nil(t, out.PostProcessErr)

	assert.Equal(t, "Stage output with trailing space\n\nend\n", out.Text)
	assert.Equal(t, "Stage output with trailing space   \n\n\n\nend", out.Result.FinalText)
	assert.Len(t, out.Result.PerTaskOutputs, 2)
	assert.Empty(t, out.Result.FallbacksUsed)

	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[0], "Research notes:\n[search]\nTrends")
	assert.Contains(t, prompts[1], "Write LinkedIn Post, Twitter Thread & Blog for: AI")

	doc := out.Document()
	assert.Contains(t, doc, "# Content pack: AI")
	assert.Contains(t, doc, "Stage output with trailing space\n\nend\n")
}

func TestService_GenerateWithOptions(t *testing.T) {
	var prompts []string
	backend := agents.BackendFunc(func(ctx context.Context, prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return "ok", nil
	})

	svc := newTestService(t, testConfig(t), backend)

	opts := agents.Options{Platforms: []agents.Platform{agents.PlatformBlog}, Tone: agents.ToneBold, Review: true}
	out, err := svc.Generate(context.Background(), Request{Topic: "Go", Options: &opts})
	require.NoError(t, err)

	// grammar è disabilitato di default: l'editor lavora in fallback
	assert.Equal(t, []string{"grammar"}, out.Result.FallbacksUsed)
	require.Contains(t, out.FallbackReasons, "grammar")
	assert.NotEmpty(t, out.FallbackReasons["grammar"])
	assert.Len(t, out.Result.PerTaskOutputs, 3)
	assert.Contains(t, prompts[1], "Write Blog for: Go Use a bold, provocative tone.")

	// la stessa selezione riusa la pipeline
	p1, err := svc.Pipeline(opts)
	require.NoError(t, err)
	p2, err := svc.Pipeline(agents.Options{Platforms: []agents.Platform{agents.PlatformBlog, agents.PlatformBlog}, Tone: agents.ToneBold, Review: true})
	require.NoError(t, err)
	assert.Same(t, p1, p2)
}

func TestService_PostProcessFailureKeepsResult(t *testing.T) {
	backend := agents.BackendFunc(func(ctx context.Context, prompt string) (string, error) {
		return "broken \xff bytes", nil
	})

	svc := newTestService(t, testConfig(t), backend)

	out, err := svc.Generate(context.Background(), Request{Topic: "AI"})
	require.NoError(t, err)
	require.NotNil(t, out.PostProcessErr)
	assert.Equal(t, "unicode_nfc", out.PostProcessErr.Processor)
	assert.Equal(t, out.Result.FinalText, out.Text)
	assert.Len(t, out.Result.PerTaskOutputs, 2)
}

func TestService_BackendFailure(t *testing.T) {
	denied := errors.New("401 unauthorized")
	backend := agents.BackendFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", denied
	})

	svc := newTestService(t, testConfig(t), backend)

	out, err := svc.Generate(context.Background(), Request{Topic: "AI"})
	assert.Nil(t, out)

	var ee *agents.PipelineExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 1, ee.StageID)
	assert.ErrorIs(t, err, denied)
}

func TestNew_InvalidConfig(t *testing.T) {
	backend := agents.BackendFunc(func(ctx context.Context, prompt string) (string, error) { return "x", nil })

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown platform", func(c *config.Config) { c.Pipeline.Platforms = []string{"myspace"} }},
		{"no platforms", func(c *config.Config) { c.Pipeline.Platforms = nil }},
		{"unknown tone", func(c *config.Config) { c.Pipeline.Tone = "grumpy" }},
		{"unknown post-processor", func(c *config.Config) { c.Pipeline.PostProcess = []string{"spellcheck"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			_, err := New(context.Background(), cfg, WithBackend(backend), WithMetrics(stats.NewMetrics(prometheus.NewRegistry(), "test")))
			assert.Error(t, err)
		})
	}
}

func TestNewBackend(t *testing.T) {
	cfg := config.Default()
	b, err := NewBackend(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "groq/llama3-70b-8192", b.(interface{ Name() string }).Name())

	cfg.Backends.Default = config.BackendGemini
	cfg.Backends.Gemini.APIKey = ""
	_, err = NewBackend(context.Background(), cfg)
	assert.Error(t, err)
}

func TestConstructors_BuildOnce(t *testing.T) {
	cfg := testConfig(t)
	ctors := Constructors(cfg, nil)

	first, err := ctors[capabilities.SearchName]()
	require.NoError(t, err)
	second, err := ctors[capabilities.SearchName]()
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = ctors[capabilities.GrammarName]()
	assert.Error(t, err)
}

func TestOptionsKey(t *testing.T) {
	a := optionsKey(agents.Options{Platforms: []agents.Platform{"blog", "linkedin"}})
	b := optionsKey(agents.Options{Platforms: []agents.Platform{"linkedin", "blog", "blog"}})
	c := optionsKey(agents.Options{Platforms: []agents.Platform{"linkedin", "blog"}, Review: true})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "blog,linkedin|"))
}

func TestService_CacheStats(t *testing.T) {
	backend := agents.BackendFunc(func(ctx context.Context, prompt string) (string, error) { return "ok", nil })

	svc := newTestService(t, testConfig(t), backend)
	_, ok := svc.CacheStats()
	assert.False(t, ok)

	cfg := testConfig(t)
	cfg.Cache.Enabled = true
	cached := newTestService(t, cfg, backend)

	_, err := cached.Generate(context.Background(), Request{Topic: "AI"})
	require.NoError(t, err)
	_, err = cached.Generate(context.Background(), Request{Topic: "AI"})
	require.NoError(t, err)

	st, ok := cached.CacheStats()
	require.True(t, ok)
	assert.Positive(t, st.Hits)
	assert.Positive(t, st.Misses)
	assert.Greater(t, st.HitRate(), 0.0)
	assert.Less(t, st.HitRate(), 1.0)
}
