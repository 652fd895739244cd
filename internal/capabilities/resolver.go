package capabilities

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/biodoia/contentfactory/internal/stats"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Binding è il risultato della risoluzione di una capability: il provider
// richiesto oppure uno stub. Immutabile dopo la creazione.
type Binding struct {
	Capability Capability
	Name       string
	IsFallback bool
	Reason     string
}

// FallbackMessage restituisce il testo fisso restituito dallo stub di una capability
func FallbackMessage(name string) string {
	return fmt.Sprintf("%s data unavailable. Use internal knowledge.", cases.Title(language.English).String(name))
}

// stub sostituisce una capability che non è stato possibile costruire
type stub struct {
	name    string
	message string
}

func (s *stub) Name() string { return s.name }

// Invoke restituisce sempre il messaggio di degrado, senza errori
func (s *stub) Invoke(ctx context.Context, query string) (string, error) {
	return s.message, nil
}

// Resolve costruisce la capability chiamando constructor una sola volta.
// Non fallisce mai: in caso di errore (o panic) restituisce uno stub con IsFallback=true.
func Resolve(name string, constructor Constructor) Binding {
	return resolve(name, constructor, nil)
}

func resolve(name string, constructor Constructor, metrics *stats.Metrics) Binding {
	capability, err := construct(name, constructor)
	if err != nil {
		log.Warn().
			Str("capability", name).
			Err(err).
			Msg("Capability failed to load, using fallback")
		metrics.RecordResolution(name, true)

		return Binding{
			Capability: &stub{name: name, message: FallbackMessage(name)},
			Name:       name,
			IsFallback: true,
			Reason:     err.Error(),
		}
	}

	log.Info().
		Str("capability", name).
		Msg("Capability loaded")
	metrics.RecordResolution(name, false)

	return Binding{
		Capability: capability,
		Name:       name,
	}
}

// construct chiama il costruttore proteggendosi da panic e risultati nil
func construct(name string, constructor Constructor) (c Capability, err error) {
	if constructor == nil {
		return nil, fmt.Errorf("%w: %s: no constructor", ErrCapabilityUnavailable, name)
	}

	defer func() {
		if r := recover(); r != nil {
			c = nil
			err = fmt.Errorf("%w: %s: constructor panic: %v", ErrCapabilityUnavailable, name, r)
		}
	}()

	c, err = constructor()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCapabilityUnavailable, name, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %s: constructor returned nil", ErrCapabilityUnavailable, name)
	}

	return c, nil
}

// Resolver risolve le capability di una build di pipeline, al massimo una volta per nome,
// e tiene traccia dei fallback usati.
type Resolver struct {
	metrics  *stats.Metrics
	bindings map[string]Binding
	order    []string
	mu       sync.Mutex
}

// NewResolver crea un nuovo Resolver; metrics può essere nil
func NewResolver(metrics *stats.Metrics) *Resolver {
	return &Resolver{
		metrics:  metrics,
		bindings: make(map[string]Binding),
	}
}

// Resolve restituisce il binding per name, costruendolo alla prima richiesta
func (r *Resolver) Resolve(name string, constructor Constructor) Binding {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, exists := r.bindings[name]; exists {
		return b
	}

	b := resolve(name, constructor, r.metrics)
	r.bindings[name] = b
	r.order = append(r.order, name)
	return b
}

// Bindings restituisce i binding in ordine di risoluzione
func (r *Resolver) Bindings() []Binding {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Binding, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.bindings[name])
	}
	return out
}

// Fallbacks restituisce i nomi (ordinati) delle capability sostituite da uno stub
func (r *Resolver) Fallbacks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var names []string
	for name, b := range r.bindings {
		if b.IsFallback {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
