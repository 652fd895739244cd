package agents

import (
	"fmt"
	"strings"
	"time"
)

// PipelineResult è l'artefatto immutabile di una run completata
type PipelineResult struct {
	RunID          string        `json:"run_id"`
	Topic          string        `json:"topic"`
	FinalText      string        `json:"final_text"`
	PerTaskOutputs []StageOutput `json:"per_task_outputs"`
	FallbacksUsed  []string      `json:"fallbacks_used"`
	Duration       time.Duration `json:"duration"`
}

// Stage restituisce l'output dello stage con l'ID indicato
func (r *PipelineResult) Stage(id int) (StageOutput, bool) {
	for _, s := range r.PerTaskOutputs {
		if s.TaskID == id {
			return s, true
		}
	}
	return StageOutput{}, false
}

// Filename restituisce un nome file markdown derivato dal topic
func (r *PipelineResult) Filename() string {
	var b strings.Builder
	dash := false
	for _, ch := range strings.ToLower(r.Topic) {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
			b.WriteRune(ch)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		slug = "content"
	}
	if len(slug) > 60 {
		slug = strings.TrimSuffix(slug[:60], "-")
	}
	return slug + ".md"
}

// Document rende il risultato come documento markdown autosufficiente:
// prima il deliverable finale, poi l'appendice con gli output di ogni stage
func (r *PipelineResult) Document() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Content pack: %s\n\n", r.Topic)
	if len(r.FallbacksUsed) > 0 {
		fmt.Fprintf(&b, "> Generated without: %s (fallback to internal knowledge)\n\n", strings.Join(r.FallbacksUsed, ", "))
	}

	b.WriteString(strings.TrimSpace(r.FinalText))
	b.WriteString("\n")

	if len(r.PerTaskOutputs) > 1 {
		b.WriteString("\n---\n\n## Appendix: stage outputs\n")
		for _, s := range r.PerTaskOutputs[:len(r.PerTaskOutputs)-1] {
			fmt.Fprintf(&b, "\n### Stage %d: %s\n\n%s\n", s.TaskID, s.Name, strings.TrimSpace(s.Output))
		}
	}

	return b.String()
}
