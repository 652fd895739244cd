package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/biodoia/contentfactory/internal/capabilities"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingBackend registra i prompt ricevuti e risponde "out-N"
type recordingBackend struct {
	mu      sync.Mutex
	prompts []string
	failOn  int // 1-based, 0 = mai
	err     error
}

func (b *recordingBackend) Generate(ctx context.Context, prompt string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.prompts = append(b.prompts, prompt)
	n := len(b.prompts)
	if n == b.failOn {
		return "", b.err
	}
	return fmt.Sprintf("out-%d", n), nil
}

func (b *recordingBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.prompts)
}

func newTasks(n int, persona *Persona) []TaskSpec {
	tasks := make([]TaskSpec, n)
	for i := range tasks {
		tasks[i] = TaskSpec{
			Name:                fmt.Sprintf("step%d", i+1),
			DescriptionTemplate: fmt.Sprintf("Do step %d for {topic}", i+1),
			ExpectedOutputHint:  "text",
			Persona:             persona,
		}
	}
	return tasks
}

func TestPipeline_RunProducesOutputsInOrder(t *testing.T) {
	backend := &recordingBackend{}
	persona := &Persona{Role: "Writer", Goal: "Write about {topic}", Backend: backend}

	p := NewPipeline(newTasks(3, persona))
	result, err := p.Run(context.Background(), "Go")
	require.NoError(t, err)

	want := []StageOutput{
		{TaskID: 1, Name: "step1", Output: "out-1"},
		{TaskID: 2, Name: "step2", Output: "out-2"},
		{TaskID: 3, Name: "step3", Output: "out-3"},
	}
	if diff := cmp.Diff(want, result.PerTaskOutputs); diff != "" {
		t.Errorf("PerTaskOutputs mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "out-3", result.FinalText)
	assert.Equal(t, "Go", result.Topic)
	assert.NotEmpty(t, result.RunID)
	assert.Empty(t, result.FallbacksUsed)
}

func TestPipeline_ContextIsChronological(t *testing.T) {
	backend := &recordingBackend{}
	persona := &Persona{Role: "Writer", Backend: backend}

	_, err := NewPipeline(newTasks(3, persona)).Run(context.Background(), "Go")
	require.NoError(t, err)
	require.Len(t, backend.prompts, 3)

	assert.NotContains(t, backend.prompts[0], "Context from previous stages")

	second := backend.prompts[1]
	assert.Contains(t, second, "--- Stage 1: step1 ---\nout-1")
	assert.NotContains(t, second, "out-2")

	third := backend.prompts[2]
	first := strings.Index(third, "out-1")
	next := strings.Index(third, "out-2")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, next)
	assert.Less(t, first, next)
}

func TestPipeline_PromptComposition(t *testing.T) {
	backend := &recordingBackend{}
	persona := &Persona{
		Role:      "Viral Researcher",
		Goal:      "Find angles for {topic}",
		Backstory: "You are a trend hunter.",
		Backend:   backend,
	}

	p := NewPipeline([]TaskSpec{{
		Name:                "Research",
		DescriptionTemplate: "Find 3 viral hooks for: {topic}",
		ExpectedOutputHint:  "List of hooks",
		Persona:             persona,
	}})

	_, err := p.Run(context.Background(), "AI")
	require.NoError(t, err)

	prompt := backend.prompts[0]
	assert.Contains(t, prompt, "You are Viral Researcher.")
	assert.Contains(t, prompt, "Goal: Find angles for AI")
	assert.Contains(t, prompt, "Backstory: You are a trend hunter.")
	assert.Contains(t, prompt, "Task: Find 3 viral hooks for: AI")
	assert.Contains(t, prompt, "Expected output: List of hooks")
}

func TestPipeline_TopicIsNotExpanded(t *testing.T) {
	backend := &recordingBackend{}
	persona := &Persona{Role: "Writer", Backend: backend}

	p := NewPipeline([]TaskSpec{{DescriptionTemplate: "Write about {topic}", Persona: persona}})
	_, err := p.Run(context.Background(), "{topic} and {previous}")
	require.NoError(t, err)

	assert.Contains(t, backend.prompts[0], "Task: Write about {topic} and {previous}\n")
}

func TestPipeline_EmptyIsValidationError(t *testing.T) {
	result, err := NewPipeline(nil).Run(context.Background(), "AI")
	assert.Nil(t, result)

	var ve *PipelineValidationError
	require.ErrorAs(t, err, &ve)
	assert.ErrorIs(t, err, ErrEmptyPipeline)
	assert.Zero(t, ve.TaskID)
}

func TestPipeline_ValidationHasNoSideEffects(t *testing.T) {
	backend := &recordingBackend{}
	invoked := 0
	search := capabilities.NewFunc("search", func(ctx context.Context, q string) (string, error) {
		invoked++
		return "results", nil
	})

	good := &Persona{Role: "A", Backend: backend, Capabilities: []capabilities.Capability{search}}
	noBackend := &Persona{Role: "B"}

	tests := []struct {
		name   string
		tasks  []TaskSpec
		taskID int
		want   error
	}{
		{
			name:   "missing persona",
			tasks:  []TaskSpec{{Persona: good}, {Persona: nil}},
			taskID: 2,
			want:   ErrMissingPersona,
		},
		{
			name:   "missing backend",
			tasks:  []TaskSpec{{Persona: good}, {Persona: noBackend}},
			taskID: 2,
			want:   ErrMissingBackend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPipeline(tt.tasks).Run(context.Background(), "AI")

			var ve *PipelineValidationError
			require.ErrorAs(t, err, &ve)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.taskID, ve.TaskID)
		})
	}

	assert.Zero(t, backend.calls())
	assert.Zero(t, invoked)
}

func TestPipeline_StageFailureAbortsRun(t *testing.T) {
	quota := errors.New("quota exceeded")
	backend := &recordingBackend{failOn: 2, err: quota}
	persona := &Persona{Role: "Writer", Backend: backend}

	result, err := NewPipeline(newTasks(3, persona)).Run(context.Background(), "AI")
	assert.Nil(t, result)

	var ee *PipelineExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 2, ee.StageID)
	assert.Equal(t, "step2", ee.StageName)

	var pe *PersonaInvocationError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Writer", pe.Role)
	assert.ErrorIs(t, err, quota)

	// lo stage 3 non viene eseguito e non ci sono retry
	assert.Equal(t, 2, backend.calls())
}

func TestPipeline_EmptyOutputIsPersonaError(t *testing.T) {
	persona := &Persona{Role: "Writer", Backend: BackendFunc(func(ctx context.Context, prompt string) (string, error) {
		return "   ", nil
	})}

	_, err := NewPipeline(newTasks(1, persona)).Run(context.Background(), "AI")
	assert.ErrorIs(t, err, ErrEmptyOutput)

	var pe *PersonaInvocationError
	assert.ErrorAs(t, err, &pe)
}

func TestPipeline_Cancellation(t *testing.T) {
	t.Run("before first stage", func(t *testing.T) {
		backend := &recordingBackend{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := NewPipeline(newTasks(2, &Persona{Role: "W", Backend: backend})).Run(ctx, "AI")
		assert.Nil(t, result)

		var ee *PipelineExecutionError
		require.ErrorAs(t, err, &ee)
		assert.Equal(t, 1, ee.StageID)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, backend.calls())
	})

	t.Run("between stages", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		calls := 0
		persona := &Persona{Role: "W", Backend: BackendFunc(func(ctx context.Context, prompt string) (string, error) {
			calls++
			cancel()
			return "draft", nil
		})}

		result, err := NewPipeline(newTasks(3, persona)).Run(ctx, "AI")
		assert.Nil(t, result)

		var ee *PipelineExecutionError
		require.ErrorAs(t, err, &ee)
		assert.Equal(t, 2, ee.StageID)
		assert.Equal(t, 1, calls)
	})
}

func TestPipeline_CapabilityFailureDoesNotAbort(t *testing.T) {
	backend := &recordingBackend{}
	broken := capabilities.NewFunc("search", func(ctx context.Context, q string) (string, error) {
		return "", errors.New("connection reset")
	})
	persona := &Persona{Role: "Researcher", Backend: backend, Capabilities: []capabilities.Capability{broken}}

	result, err := NewPipeline(newTasks(1, persona)).Run(context.Background(), "AI")
	require.NoError(t, err)
	assert.Equal(t, "out-1", result.FinalText)
	assert.NotContains(t, backend.prompts[0], "Research notes")
}

func TestPipeline_CapabilityQuery(t *testing.T) {
	var queries []string
	grammar := capabilities.NewFunc("grammar", func(ctx context.Context, q string) (string, error) {
		queries = append(queries, q)
		return "corrected: " + q, nil
	})

	backend := &recordingBackend{}
	writer := &Persona{Role: "Writer", Backend: backend}
	editor := &Persona{Role: "Editor", Backend: backend, Capabilities: []capabilities.Capability{grammar}}

	p := NewPipeline([]TaskSpec{
		{Name: "Write", DescriptionTemplate: "Write about {topic}", Persona: writer},
		{Name: "Review", DescriptionTemplate: "Review {topic}", CapabilityQuery: "{previous}", Persona: editor},
		{Name: "Again", DescriptionTemplate: "Check {topic}", Persona: editor},
	})

	_, err := p.Run(context.Background(), "Go")
	require.NoError(t, err)

	assert.Equal(t, []string{"out-1", "Check Go"}, queries)
	assert.Contains(t, backend.prompts[1], "Research notes:\n[grammar]\ncorrected: out-1\n")
}

func TestPipeline_ConcurrentRuns(t *testing.T) {
	persona := &Persona{Role: "Writer", Backend: BackendFunc(func(ctx context.Context, prompt string) (string, error) {
		// restituisce la riga del task, che contiene il topic della run
		for _, line := range strings.Split(prompt, "\n") {
			if strings.HasPrefix(line, "Task: ") {
				return line, nil
			}
		}
		return "", errors.New("no task line")
	})}
	p := NewPipeline(newTasks(2, persona))

	topics := []string{"Go", "Rust", "Zig", "Odin", "Nim"}
	results := make([]*PipelineResult, len(topics))

	var wg sync.WaitGroup
	for i, topic := range topics {
		wg.Add(1)
		go func(i int, topic string) {
			defer wg.Done()
			r, err := p.Run(context.Background(), topic)
			assert.NoError(t, err)
			results[i] = r
		}(i, topic)
	}
	wg.Wait()

	for i, topic := range topics {
		require.NotNil(t, results[i])
		assert.Equal(t, topic, results[i].Topic)
		assert.Equal(t, "Task: Do step 2 for "+topic, results[i].FinalText)
		assert.Len(t, results[i].PerTaskOutputs, 2)
	}
}

func TestNewPipeline_CopiesTasks(t *testing.T) {
	persona := &Persona{Role: "W", Backend: &recordingBackend{}}
	tasks := []TaskSpec{{Persona: persona}, {Name: "custom", Persona: persona}}

	p := NewPipeline(tasks)
	tasks[0].Name = "mutated"

	got := p.Tasks()
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, "stage-1", got[0].Name)
	assert.Equal(t, 2, got[1].ID)
	assert.Equal(t, "custom", got[1].Name)
}
