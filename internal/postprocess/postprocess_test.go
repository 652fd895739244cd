package postprocess

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessors(t *testing.T) {
	tests := []struct {
		name string
		p    Processor
		in   string
		want string
	}{
		{"trim trailing space", TrimTrailingSpace(), "a  \nb\t\r\nc \t", "a\nb\nc"},
		{"trim trailing space before lone cr", TrimTrailingSpace(), "a \rb", "a\nb"},
		{"normalize newlines", NormalizeNewlines(), "a\r\nb\rc\r\r\nd", "a\nb\nc\n\nd"},
		{"collapse blank lines with lone cr", CollapseBlankLines(), "a\r\r\nb", "a\n\nb"},
		{"collapse blank lines", CollapseBlankLines(), "a\r\n\r\n\r\n\r\nb\n\n\nc\n\nd", "a\n\nb\n\nc\n\nd"},
		{"normalize quotes", NormalizeQuotes(), "“Hi” it’s ‘ok’", `"Hi" it's 'ok'`},
		{"unicode nfc", UnicodeNFC(), "Cafe\u0301", "Caf\u00e9"},
		{"ensure trailing newline", EnsureTrailingNewline(), "text\n\n\n", "text\n"},
		{"ensure trailing newline adds", EnsureTrailingNewline(), "text", "text\n"},
		{"ensure trailing newline trims spaces", EnsureTrailingNewline(), "text \r", "text\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.p.Apply(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProcessors_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"already clean\n",
		"  “Quoted”  \n\n\n\nCafé line \t\r\n\r\n\r\nend   ",
		"## LinkedIn Post\n\nHello   \n\n\n\n## Blog\nIt’s done",
		"a\r\r\nb",
		"a \r",
		"a \r\r\nb",
		"mac\rline endings \r\r\r\rend\t\r",
	}

	chain, err := Lookup(Names())
	require.NoError(t, err)

	processors := []Processor{
		NormalizeNewlines(), TrimTrailingSpace(), CollapseBlankLines(), NormalizeQuotes(),
		UnicodeNFC(), EnsureTrailingNewline(), chain,
	}

	for _, p := range processors {
		for _, in := range inputs {
			once, err := p.Apply(in)
			require.NoError(t, err, p.Name())

			twice, err := p.Apply(once)
			require.NoError(t, err, p.Name())
			assert.Equal(t, once, twice, "%s is not idempotent on %q", p.Name(), in)
		}
	}
}

func TestDefaultChain_CarriageReturns(t *testing.T) {
	chain, err := Lookup(Names())
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{"a \r", "a\n"},
		{"a \r\r\nb", "a\n\nb\n"},
		{"a\r\r\r\r\rb", "a\n\nb\n"},
	}

	for _, tt := range tests {
		got, err := chain.Apply(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestChain_FixedPointUnchanged(t *testing.T) {
	chain, err := Lookup(Names())
	require.NoError(t, err)

	clean := "# Title\n\nParagraph with \"quotes\".\n"
	out, err := chain.Apply(clean)
	require.NoError(t, err)
	assert.Equal(t, clean, out)
}

func TestChain_Error(t *testing.T) {
	boom := errors.New("boom")
	chain := NewChain(
		NormalizeQuotes(),
		NewFunc("failing", func(s string) (string, error) { return "", boom }),
		EnsureTrailingNewline(),
	)

	assert.Equal(t, "normalize_quotes+failing+ensure_trailing_newline", chain.Name())
	assert.Equal(t, 3, chain.Len())

	_, err := chain.Apply("text")

	var pe *PostProcessError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "failing", pe.Processor)
	assert.ErrorIs(t, err, boom)
}

func TestInvalidUTF8(t *testing.T) {
	_, err := UnicodeNFC().Apply("bad \xff byte")

	var pe *PostProcessError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "unicode_nfc", pe.Processor)
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestLookup(t *testing.T) {
	chain, err := Lookup([]string{" normalize_quotes", "ensure_trailing_newline"})
	require.NoError(t, err)
	assert.Equal(t, 2, chain.Len())

	_, err = Lookup([]string{"spellcheck"})
	assert.ErrorIs(t, err, ErrUnknownProcessor)

	empty, err := Lookup(nil)
	require.NoError(t, err)
	out, err := empty.Apply("unchanged  ")
	require.NoError(t, err)
	assert.Equal(t, "unchanged  ", out)
}
