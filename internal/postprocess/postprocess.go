// Package postprocess contiene trasformazioni deterministiche applicate una
// sola volta al testo finale della pipeline.
package postprocess

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	ErrUnknownProcessor = errors.New("unknown post-processor")
	ErrInvalidUTF8      = errors.New("text is not valid UTF-8")
)

// Processor è una trasformazione pura e idempotente del testo
type Processor interface {
	Name() string
	Apply(text string) (string, error)
}

// PostProcessError indica il fallimento di un post-processor; il risultato
// della pipeline resta valido
type PostProcessError struct {
	Processor string
	Err       error
}

func (e *PostProcessError) Error() string {
	return fmt.Sprintf("post-processor %q failed: %v", e.Processor, e.Err)
}

func (e *PostProcessError) Unwrap() error {
	return e.Err
}

// Func adatta una funzione al contratto Processor
type Func struct {
	name string
	fn   func(string) (string, error)
}

// NewFunc crea un processor da una funzione
func NewFunc(name string, fn func(string) (string, error)) *Func {
	return &Func{name: name, fn: fn}
}

func (f *Func) Name() string { return f.name }

func (f *Func) Apply(text string) (string, error) {
	out, err := f.fn(text)
	if err != nil {
		var pe *PostProcessError
		if errors.As(err, &pe) {
			return "", err
		}
		return "", &PostProcessError{Processor: f.name, Err: err}
	}
	return out, nil
}

// pure adatta una trasformazione che non può fallire su UTF-8 valido
func pure(name string, fn func(string) string) *Func {
	return NewFunc(name, func(text string) (string, error) {
		if !utf8.ValidString(text) {
			return "", ErrInvalidUTF8
		}
		return fn(text), nil
	})
}

var (
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
	blankLines    = regexp.MustCompile(`\n{3,}`)
	lineEndings   = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// NormalizeNewlines converte i fine riga CRLF e CR isolati in LF
func NormalizeNewlines() Processor {
	return pure("normalize_newlines", lineEndings.Replace)
}

// TrimTrailingSpace rimuove spazi e tab a fine riga. I fine riga vengono
// prima normalizzati in LF.
func TrimTrailingSpace() Processor {
	return pure("trim_trailing_space", func(s string) string {
		s = trailingSpace.ReplaceAllString(lineEndings.Replace(s), "\n")
		return strings.TrimRight(s, " \t")
	})
}

// CollapseBlankLines riduce le sequenze di righe vuote a una sola
func CollapseBlankLines() Processor {
	return pure("collapse_blank_lines", func(s string) string {
		return blankLines.ReplaceAllString(lineEndings.Replace(s), "\n\n")
	})
}

var quotes = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'", "‛", "'",
	"“", `"`, "”", `"`, "„", `"`, "‟", `"`,
	"′", "'", "″", `"`,
)

// NormalizeQuotes sostituisce le virgolette tipografiche con quelle ASCII
func NormalizeQuotes() Processor {
	return pure("normalize_quotes", quotes.Replace)
}

// UnicodeNFC normalizza il testo in forma NFC
func UnicodeNFC() Processor {
	return pure("unicode_nfc", norm.NFC.String)
}

// EnsureTrailingNewline garantisce esattamente un newline finale
func EnsureTrailingNewline() Processor {
	return pure("ensure_trailing_newline", func(s string) string {
		return strings.TrimRight(s, " \t\r\n") + "\n"
	})
}

// Chain applica i processor in ordine
type Chain struct {
	processors []Processor
}

// NewChain crea una chain
func NewChain(processors ...Processor) *Chain {
	return &Chain{processors: processors}
}

// Name restituisce i nomi dei processor uniti da "+"
func (c *Chain) Name() string {
	names := make([]string, len(c.processors))
	for i, p := range c.processors {
		names[i] = p.Name()
	}
	return strings.Join(names, "+")
}

// Len restituisce il numero di processor
func (c *Chain) Len() int {
	return len(c.processors)
}

// Apply applica tutti i processor; il primo errore interrompe la chain
func (c *Chain) Apply(text string) (string, error) {
	out := text
	for _, p := range c.processors {
		var err error
		out, err = p.Apply(out)
		if err != nil {
			var pe *PostProcessError
			if !errors.As(err, &pe) {
				err = &PostProcessError{Processor: p.Name(), Err: err}
			}
			return "", err
		}
	}
	return out, nil
}

var registry = map[string]func() Processor{
	"normalize_newlines":      NormalizeNewlines,
	"trim_trailing_space":     TrimTrailingSpace,
	"collapse_blank_lines":    CollapseBlankLines,
	"normalize_quotes":        NormalizeQuotes,
	"unicode_nfc":             UnicodeNFC,
	"ensure_trailing_newline": EnsureTrailingNewline,
}

// Names restituisce i nomi dei processor disponibili
func Names() []string {
	return []string{
		"unicode_nfc",
		"normalize_newlines",
		"normalize_quotes",
		"trim_trailing_space",
		"collapse_blank_lines",
		"ensure_trailing_newline",
	}
}

// Lookup costruisce una chain dai nomi configurati
func Lookup(names []string) (*Chain, error) {
	processors := make([]Processor, 0, len(names))
	for _, name := range names {
		ctor, ok := registry[strings.TrimSpace(name)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProcessor, name)
		}
		processors = append(processors, ctor())
	}
	return NewChain(processors...), nil
}
