package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/biodoia/contentfactory/internal/capabilities"
	"github.com/biodoia/contentfactory/internal/stats"
	"github.com/rs/zerolog/log"
)

// ModelBackend è la chiamata di inferenza: prompt in, testo out
type ModelBackend interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// BackendFunc adatta una funzione al contratto ModelBackend
type BackendFunc func(ctx context.Context, prompt string) (string, error)

// Generate chiama f
func (f BackendFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Persona è un ruolo legato a un model backend, con capability opzionali.
// Non ha stato tra un'invocazione e l'altra e può servire più task.
type Persona struct {
	Role      string
	Goal      string // può contenere {topic}
	Backstory string

	Capabilities []capabilities.Capability
	Backend      ModelBackend

	// Metrics è opzionale
	Metrics *stats.Metrics
}

// Produce esegue il task e restituisce il testo generato.
// Gli errori delle capability vengono registrati e ignorati; un errore del
// backend viene restituito come *PersonaInvocationError senza retry.
func (p *Persona) Produce(ctx context.Context, task *TaskSpec, topic string, execCtx *ExecutionContext) (string, error) {
	if p.Backend == nil {
		return "", &PersonaInvocationError{Role: p.Role, TaskID: task.ID, Err: ErrMissingBackend}
	}

	notes := p.research(ctx, task, topic, execCtx)
	prompt := p.buildPrompt(task, topic, notes, execCtx)

	output, err := p.Backend.Generate(ctx, prompt)
	if err != nil {
		return "", &PersonaInvocationError{Role: p.Role, TaskID: task.ID, Err: err}
	}
	if strings.TrimSpace(output) == "" {
		return "", &PersonaInvocationError{Role: p.Role, TaskID: task.ID, Err: ErrEmptyOutput}
	}

	return output, nil
}

// researchNote è il risultato di una capability incluso nel prompt
type researchNote struct {
	capability string
	text       string
}

// research invoca ogni capability una volta; le chiamate fallite vengono omesse
func (p *Persona) research(ctx context.Context, task *TaskSpec, topic string, execCtx *ExecutionContext) []researchNote {
	if len(p.Capabilities) == 0 {
		return nil
	}

	previous := ""
	if last, ok := execCtx.Last(); ok {
		previous = last.Output
	}
	query := task.Query(topic, previous)

	notes := make([]researchNote, 0, len(p.Capabilities))
	for _, c := range p.Capabilities {
		result, err := c.Invoke(ctx, query)
		if err != nil {
			var ie *capabilities.InvocationError
			if !errors.As(err, &ie) {
				ie = &capabilities.InvocationError{Capability: c.Name(), Query: query, Err: err}
			}
			p.Metrics.RecordInvocation(c.Name(), false)

			log.Warn().
				Err(ie).
				Str("capability", c.Name()).
				Str("persona", p.Role).
				Int("task_id", task.ID).
				Msg("Capability invocation failed, continuing without it")
			continue
		}

		p.Metrics.RecordInvocation(c.Name(), true)
		if strings.TrimSpace(result) == "" {
			continue
		}
		notes = append(notes, researchNote{capability: c.Name(), text: strings.TrimSpace(result)})
	}

	return notes
}

// buildPrompt compone il prompt: ruolo, goal, backstory, task, hint,
// note delle capability e output degli stage precedenti in ordine cronologico
func (p *Persona) buildPrompt(task *TaskSpec, topic string, notes []researchNote, execCtx *ExecutionContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s.\n", p.Role)
	if p.Goal != "" {
		fmt.Fprintf(&b, "Goal: %s\n", substituteTopic(p.Goal, topic))
	}
	if p.Backstory != "" {
		fmt.Fprintf(&b, "Backstory: %s\n", p.Backstory)
	}

	fmt.Fprintf(&b, "\nTask: %s\n", task.Description(topic))
	if task.ExpectedOutputHint != "" {
		fmt.Fprintf(&b, "Expected output: %s\n", task.ExpectedOutputHint)
	}

	if len(notes) > 0 {
		b.WriteString("\nResearch notes:\n")
		for _, n := range notes {
			fmt.Fprintf(&b, "[%s]\n%s\n", n.capability, n.text)
		}
	}

	if entries := execCtx.Entries(); len(entries) > 0 {
		b.WriteString("\nContext from previous stages:\n")
		for _, e := range entries {
			fmt.Fprintf(&b, "--- Stage %d: %s ---\n%s\n", e.TaskID, e.Name, e.Output)
		}
	}

	return b.String()
}
