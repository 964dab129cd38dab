package lexer

import (
	"strings"
	"testing"
)

// Realistic ARL samples of varying size
var (
	simpleCode = `puts "hello, world"`

	mediumCode = `
puts "starting"
greet name
puts "name:" name
nil
`

	largeCode = strings.Repeat(mediumCode, 200)
)

func benchmarkLex(b *testing.B, code string) {
	src := []byte(code)
	b.SetBytes(int64(len(src)))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		stream, err := Lex(src)
		if err != nil {
			b.Fatal(err)
		}
		stream.Free()
	}
}

func BenchmarkLexer_Simple(b *testing.B) { benchmarkLex(b, simpleCode) }

func BenchmarkLexer_Medium(b *testing.B) { benchmarkLex(b, mediumCode) }

func BenchmarkLexer_Large(b *testing.B) { benchmarkLex(b, largeCode) }
