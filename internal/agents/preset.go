package agents

import (
	"errors"
	"fmt"
	"strings"

	"github.com/biodoia/contentfactory/internal/capabilities"
)

var (
	ErrNoPlatforms     = errors.New("at least one platform must be selected")
	ErrUnknownPlatform = errors.New("unknown platform")
	ErrUnknownTone     = errors.New("unknown tone")
)

// Platform rappresenta una piattaforma di pubblicazione
type Platform string

const (
	PlatformLinkedIn Platform = "linkedin"
	PlatformTwitter  Platform = "twitter"
	PlatformBlog     Platform = "blog"
)

// AllPlatforms elenca le piattaforme nell'ordine canonico del content pack
var AllPlatforms = []Platform{PlatformLinkedIn, PlatformTwitter, PlatformBlog}

var deliverables = map[Platform]string{
	PlatformLinkedIn: "LinkedIn Post",
	PlatformTwitter:  "Twitter Thread",
	PlatformBlog:     "Blog",
}

// Deliverable restituisce il nome del contenuto prodotto per la piattaforma
func (p Platform) Deliverable() string {
	return deliverables[p]
}

// ParsePlatform converte una stringa in Platform
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := deliverables[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
	}
	return p, nil
}

// Tone rappresenta il tono di scrittura; il valore vuoto lascia il tono al modello
type Tone string

const (
	ToneDefault      Tone = ""
	ToneProfessional Tone = "professional"
	ToneCasual       Tone = "casual"
	ToneWitty        Tone = "witty"
	ToneBold         Tone = "bold"
)

var toneInstructions = map[Tone]string{
	ToneProfessional: "Use a professional, authoritative tone.",
	ToneCasual:       "Use a casual, conversational tone.",
	ToneWitty:        "Use a witty, playful tone.",
	ToneBold:         "Use a bold, provocative tone.",
}

// ParseTone converte una stringa in Tone
func ParseTone(s string) (Tone, error) {
	t := Tone(strings.ToLower(strings.TrimSpace(s)))
	if t == ToneDefault {
		return t, nil
	}
	if _, ok := toneInstructions[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTone, s)
	}
	return t, nil
}

// PersonaTemplate descrive una persona del catalogo; le capability sono
// indicate per nome e risolte alla build
type PersonaTemplate struct {
	Key          string   `json:"key"`
	Role         string   `json:"role"`
	Goal         string   `json:"goal"`
	Backstory    string   `json:"backstory"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// TaskTemplate descrive uno stage del catalogo
type TaskTemplate struct {
	Name            string
	Persona         string
	Description     string
	ExpectedOutput  string
	CapabilityQuery string
}

// Chiavi delle persone del preset viral
const (
	PersonaResearcher = "researcher"
	PersonaWriter     = "writer"
	PersonaEditor     = "editor"
)

// ViralPersonas restituisce le persone del preset viral
func ViralPersonas() []PersonaTemplate {
	return []PersonaTemplate{
		{
			Key:          PersonaResearcher,
			Role:         "Viral Researcher",
			Goal:         "Find angles for {topic}",
			Backstory:    "You are a trend hunter.",
			Capabilities: []string{capabilities.SearchName},
		},
		{
			Key:       PersonaWriter,
			Role:      "Viral Writer",
			Goal:      "Create Blog, LinkedIn & Twitter content.",
			Backstory: "You write viral hooks.",
		},
		{
			Key:          PersonaEditor,
			Role:         "Content Editor",
			Goal:         "Polish the content pack for {topic} without changing its structure.",
			Backstory:    "You are a meticulous editor who keeps every section heading intact.",
			Capabilities: []string{capabilities.GrammarName},
		},
	}
}

// Options seleziona i task del preset viral
type Options struct {
	Platforms []Platform `json:"platforms"`
	Tone      Tone       `json:"tone,omitempty"`
	Review    bool       `json:"review"`
}

// DefaultOptions seleziona tutte le piattaforme senza revisione
func DefaultOptions() Options {
	return Options{Platforms: append([]Platform(nil), AllPlatforms...)}
}

// Tasks filtra il catalogo in una lista concreta e ordinata di task
func (o Options) Tasks() ([]TaskTemplate, error) {
	selected := make(map[Platform]bool, len(o.Platforms))
	for _, p := range o.Platforms {
		if _, ok := deliverables[p]; !ok {
			return nil, &PipelineValidationError{Err: fmt.Errorf("%w: %q", ErrUnknownPlatform, p)}
		}
		selected[p] = true
	}
	if len(selected) == 0 {
		return nil, &PipelineValidationError{Err: ErrNoPlatforms}
	}
	if _, err := ParseTone(string(o.Tone)); err != nil {
		return nil, &PipelineValidationError{Err: err}
	}

	var names []string
	for _, p := range AllPlatforms {
		if selected[p] {
			names = append(names, p.Deliverable())
		}
	}

	writeDesc := fmt.Sprintf("Write %s for: {topic}", joinDeliverables(names))
	if instr, ok := toneInstructions[o.Tone]; ok {
		writeDesc += " " + instr
	}

	sections := make([]string, len(names))
	for i, n := range names {
		sections[i] = "## " + n
	}
	packHint := fmt.Sprintf("Content Pack with one section per deliverable: %s", strings.Join(sections, ", "))

	tasks := []TaskTemplate{
		{
			Name:           "Research",
			Persona:        PersonaResearcher,
			Description:    "Find 3 viral hooks for: {topic}",
			ExpectedOutput: "List of hooks",
		},
		{
			Name:           "Write",
			Persona:        PersonaWriter,
			Description:    writeDesc,
			ExpectedOutput: packHint,
		},
	}

	if o.Review {
		tasks = append(tasks, TaskTemplate{
			Name:            "Review",
			Persona:         PersonaEditor,
			Description:     "Review and polish the content pack for: {topic}. Return the full revised pack.",
			ExpectedOutput:  packHint,
			CapabilityQuery: PreviousPlaceholder,
		})
	}

	return tasks, nil
}

// joinDeliverables unisce i nomi come "A, B & C"
func joinDeliverables(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " & " + names[len(names)-1]
	}
}
