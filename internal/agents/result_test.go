package agents

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineResult_Document(t *testing.T) {
	r := &PipelineResult{
		Topic:     "AI in marketing",
		FinalText: "## LinkedIn Post\nHello\n\n",
		PerTaskOutputs: []StageOutput{
			{TaskID: 1, Name: "Research", Output: "1. hook\n"},
			{TaskID: 2, Name: "Write", Output: "## LinkedIn Post\nHello\n\n"},
		},
		FallbacksUsed: []string{"search"},
	}

	doc := r.Document()

	assert.True(t, strings.HasPrefix(doc, "# Content pack: AI in marketing\n\n"))
	assert.Contains(t, doc, "> Generated without: search")
	assert.Contains(t, doc, "## Appendix: stage outputs")
	assert.Contains(t, doc, "### Stage 1: Research\n\n1. hook\n")
	assert.NotContains(t, doc, "### Stage 2")
	assert.Less(t, strings.Index(doc, "Hello"), strings.Index(doc, "Appendix"))
}

func TestPipelineResult_DocumentSingleStage(t *testing.T) {
	r := &PipelineResult{
		Topic:          "Go",
		FinalText:      "text",
		PerTaskOutputs: []StageOutput{{TaskID: 1, Name: "Write", Output: "text"}},
	}

	assert.Equal(t, "# Content pack: Go\n\ntext\n", r.Document())
}

func TestPipelineResult_Stage(t *testing.T) {
	r := &PipelineResult{PerTaskOutputs: []StageOutput{{TaskID: 1, Output: "a"}, {TaskID: 2, Output: "b"}}}

	s, ok := r.Stage(2)
	assert.True(t, ok)
	assert.Equal(t, "b", s.Output)

	_, ok = r.Stage(3)
	assert.False(t, ok)
}

func TestPipelineResult_Filename(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"AI in Marketing!", "ai-in-marketing.md"},
		{"  Go 1.25 --- release  ", "go-1-25-release.md"},
		{"", "content.md"},
		{"???", "content.md"},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, (&PipelineResult{Topic: tt.topic}).Filename())
		})
	}
}
