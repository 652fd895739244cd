package capabilities

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCapabilityUnavailable viene restituito quando una capability non può essere costruita
	ErrCapabilityUnavailable = errors.New("capability unavailable")

	// ErrCapabilityInvocation viene restituito quando una capability attiva fallisce durante una chiamata
	ErrCapabilityInvocation = errors.New("capability invocation failed")
)

// Capability è un'operazione esterna con side effect (es. web search) usabile da una persona.
// Le implementazioni devono essere sicure per l'uso concorrente: la stessa istanza
// è condivisa in sola lettura tra persone e run diverse.
type Capability interface {
	// Name restituisce il nome che identifica la capability
	Name() string

	// Invoke esegue la capability con la query fornita
	Invoke(ctx context.Context, query string) (string, error)
}

// Constructor costruisce una capability; un errore attiva il fallback
type Constructor func() (Capability, error)

// Func adatta una funzione al contratto Capability
type Func struct {
	name string
	fn   func(ctx context.Context, query string) (string, error)
}

// NewFunc crea una capability a partire da una funzione
func NewFunc(name string, fn func(ctx context.Context, query string) (string, error)) *Func {
	return &Func{name: name, fn: fn}
}

// Name restituisce il nome della capability
func (f *Func) Name() string {
	return f.name
}

// Invoke chiama la funzione sottostante
func (f *Func) Invoke(ctx context.Context, query string) (string, error) {
	return f.fn(ctx, query)
}

// InvocationError descrive il fallimento di una chiamata a una capability attiva
type InvocationError struct {
	Capability string
	Query      string
	Err        error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrCapabilityInvocation, e.Capability, e.Err)
}

// Is permette errors.Is(err, ErrCapabilityInvocation)
func (e *InvocationError) Is(target error) bool {
	return target == ErrCapabilityInvocation
}

func (e *InvocationError) Unwrap() error { return e.Err }

// invocationErr incapsula err in un InvocationError, se non lo è già
func invocationErr(name, query string, err error) error {
	var ie *InvocationError
	if errors.As(err, &ie) {
		return err
	}
	return &InvocationError{Capability: name, Query: query, Err: err}
}
