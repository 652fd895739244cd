package agents

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPipeline viene restituito quando la pipeline non ha task
	ErrEmptyPipeline = errors.New("pipeline has no tasks")

	// ErrMissingPersona viene restituito quando un task non ha una persona assegnata
	ErrMissingPersona = errors.New("task has no persona assigned")

	// ErrMissingBackend viene restituito quando una persona non ha un model backend
	ErrMissingBackend = errors.New("persona has no model backend")

	// ErrEmptyOutput viene restituito quando il backend produce testo vuoto
	ErrEmptyOutput = errors.New("model backend returned empty output")
)

// PipelineValidationError indica una configurazione strutturale non valida,
// rilevata prima di qualsiasi esecuzione
type PipelineValidationError struct {
	TaskID int // 0 quando l'errore riguarda l'intera pipeline
	Err    error
}

func (e *PipelineValidationError) Error() string {
	if e.TaskID > 0 {
		return fmt.Sprintf("invalid pipeline: task %d: %v", e.TaskID, e.Err)
	}
	return fmt.Sprintf("invalid pipeline: %v", e.Err)
}

func (e *PipelineValidationError) Unwrap() error {
	return e.Err
}

// PersonaInvocationError indica il fallimento della chiamata al model backend
type PersonaInvocationError struct {
	Role   string
	TaskID int
	Err    error
}

func (e *PersonaInvocationError) Error() string {
	return fmt.Sprintf("persona %q failed on task %d: %v", e.Role, e.TaskID, e.Err)
}

func (e *PersonaInvocationError) Unwrap() error {
	return e.Err
}

// PipelineExecutionError incapsula il primo errore che ha interrotto una run
type PipelineExecutionError struct {
	StageID   int
	StageName string
	Err       error
}

func (e *PipelineExecutionError) Error() string {
	return fmt.Sprintf("pipeline aborted at stage %d (%s): %v", e.StageID, e.StageName, e.Err)
}

func (e *PipelineExecutionError) Unwrap() error {
	return e.Err
}
