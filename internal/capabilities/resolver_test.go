package capabilities

import (
	"context"
	"errors"
	"testing"

	"github.com/biodoia/contentfactory/internal/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echo(name string) *Func {
	return NewFunc(name, func(ctx context.Context, query string) (string, error) {
		return name + ":" + query, nil
	})
}

func TestResolve_Success(t *testing.T) {
	b := Resolve("search", func() (Capability, error) { return echo("search"), nil })

	assert.False(t, b.IsFallback)
	assert.Empty(t, b.Reason)
	assert.Equal(t, "search", b.Name)

	out, err := b.Capability.Invoke(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "search:go", out)
}

func TestResolve_Fallback(t *testing.T) {
	tests := []struct {
		name        string
		constructor Constructor
	}{
		{
			name:        "constructor error",
			constructor: func() (Capability, error) { return nil, errors.New("module not installed") },
		},
		{
			name:        "constructor panic",
			constructor: func() (Capability, error) { panic("boom") },
		},
		{
			name:        "nil capability",
			constructor: func() (Capability, error) { return nil, nil },
		},
		{
			name:        "nil constructor",
			constructor: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b Binding
			require.NotPanics(t, func() { b = Resolve("search", tt.constructor) })

			assert.True(t, b.IsFallback)
			assert.NotEmpty(t, b.Reason)
			assert.Equal(t, "search", b.Capability.Name())

			out, err := b.Capability.Invoke(context.Background(), "anything")
			require.NoError(t, err)
			assert.Equal(t, "Search data unavailable. Use internal knowledge.", out)
		})
	}
}

func TestResolver_ResolvesOncePerName(t *testing.T) {
	r := NewResolver(stats.NewMetrics(prometheus.NewRegistry(), "test"))

	calls := 0
	ctor := func() (Capability, error) {
		calls++
		return nil, errors.New("unreachable")
	}

	first := r.Resolve("search", ctor)
	second := r.Resolve("search", ctor)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	r.Resolve("grammar", func() (Capability, error) { return echo("grammar"), nil })
	r.Resolve("calendar", func() (Capability, error) { return nil, errors.New("no creds") })

	assert.Equal(t, []string{"calendar", "search"}, r.Fallbacks())

	bindings := r.Bindings()
	require.Len(t, bindings, 3)
	assert.Equal(t, "search", bindings[0].Name)
	assert.Equal(t, "grammar", bindings[1].Name)
	assert.Equal(t, "calendar", bindings[2].Name)
}

func TestFallbackMessage(t *testing.T) {
	assert.Equal(t, "Grammar data unavailable. Use internal knowledge.", FallbackMessage("grammar"))
}

func TestInvocationError(t *testing.T) {
	err := invocationErr("search", "q", errors.New("timeout"))

	assert.ErrorIs(t, err, ErrCapabilityInvocation)

	var ie *InvocationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "search", ie.Capability)

	// non viene incapsulato due volte
	assert.Same(t, ie, invocationErr("search", "q", err).(*InvocationError))
}
