package agents

// StageOutput è l'output di uno stage completato
type StageOutput struct {
	TaskID int    `json:"task_id"`
	Name   string `json:"name"`
	Output string `json:"output"`
}

// ExecutionContext è la sequenza append-only degli output prodotti durante una run.
// Appartiene a una sola run e non è condiviso tra goroutine.
type ExecutionContext struct {
	entries []StageOutput
}

// NewExecutionContext crea un contesto vuoto
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{}
}

// Append aggiunge l'output di uno stage in coda
func (c *ExecutionContext) Append(taskID int, name, output string) {
	c.entries = append(c.entries, StageOutput{TaskID: taskID, Name: name, Output: output})
}

// Entries restituisce una copia degli output in ordine cronologico
func (c *ExecutionContext) Entries() []StageOutput {
	if c == nil {
		return nil
	}
	out := make([]StageOutput, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len restituisce il numero di stage completati
func (c *ExecutionContext) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Last restituisce l'output dell'ultimo stage, se presente
func (c *ExecutionContext) Last() (StageOutput, bool) {
	if c.Len() == 0 {
		return StageOutput{}, false
	}
	return c.entries[len(c.entries)-1], true
}
