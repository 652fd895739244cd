package postprocess

import (
	"fmt"
	"strings"
	"testing"
)

// BenchmarkDefaultChain misura la chain di default su documenti di varie dimensioni
func BenchmarkDefaultChain(b *testing.B) {
	chain, err := Lookup(Names())
	if err != nil {
		b.Fatal(err)
	}

	section := "## LinkedIn Post  \n\n\n\n“Hooks” that work…   \r\n"
	for _, n := range []int{1, 10, 100} {
		text := strings.Repeat(section, n)
		b.Run(fmt.Sprintf("Sections_%d", n), func(b *testing.B) {
			b.SetBytes(int64(len(text)))
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := chain.Apply(text); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
