package lexer

import (
	"fmt"

	"github.com/sambeau/arl/pkg/arl/sv"
)

// Kind distinguishes the three sorts of lexical unit
type Kind uint8

const (
	KindKnown  Kind = iota // symbol matching a keyword: puts
	KindSymbol             // any other bare symbol: foo, x->y
	KindString             // "text between quotes"
)

// String returns a string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindKnown:
		return "KNOWN"
	case KindSymbol:
		return "SYMBOL"
	case KindString:
		return "STRING"
	default:
		return "UNKNOWN"
	}
}

// Known enumerates the symbols later stages care about
type Known uint8

const (
	KnownPuts Known = iota // "puts"
	KnownNil               // "nil"

	numKnowns
)

// knownNames is scanned linearly; the set is tiny.
var knownNames = [numKnowns]string{
	KnownPuts: "puts",
	KnownNil:  "nil",
}

// String returns the source spelling of the keyword
func (k Known) String() string {
	if k < numKnowns {
		return knownNames[k]
	}
	return fmt.Sprintf("Known(%d)", uint8(k))
}

// Knowns returns every keyword in declaration order
func Knowns() []Known {
	out := make([]Known, numKnowns)
	for i := range out {
		out[i] = Known(i)
	}
	return out
}

// LookupKnown matches text against the keyword table: exact length and bytes,
// case-sensitive.
func LookupKnown(text sv.View) (Known, bool) {
	for i, name := range knownNames {
		if text.Len() == len(name) && text.Equal(name) {
			return Known(i), true
		}
	}
	return 0, false
}

// Token is a single classified lexical unit.
//
// Text borrows from the scanned source. For strings it spans the bytes
// between the quotes; for symbols and keywords it spans the symbol itself.
// Offset is the byte position of the token's first byte, which for strings
// is the opening quote.
type Token struct {
	Offset int
	Kind   Kind
	Known  Known
	Text   sv.View
}

// NewKnown creates a keyword token
func NewKnown(offset int, known Known, text sv.View) Token {
	return Token{Offset: offset, Kind: KindKnown, Known: known, Text: text}
}

// NewSymbol creates a symbol token
func NewSymbol(offset int, text sv.View) Token {
	return Token{Offset: offset, Kind: KindSymbol, Text: text}
}

// NewString creates a string literal token; offset is the opening quote
func NewString(offset int, text sv.View) Token {
	return Token{Offset: offset, Kind: KindString, Text: text}
}

// Span returns the half-open byte range [start, end) the token covers in the
// source, quotes included.
func (t Token) Span() (start, end int) {
	if t.Kind == KindString {
		return t.Offset, t.Offset + t.Text.Len() + 2
	}
	return t.Offset, t.Offset + t.Text.Len()
}

// String renders the token the way the token dump prints it
func (t Token) String() string {
	switch t.Kind {
	case KindKnown:
		return fmt.Sprintf("KNOWN(%s)", t.Known)
	case KindSymbol:
		return fmt.Sprintf("SYMBOL(%s)", t.Text)
	case KindString:
		return fmt.Sprintf("STRING(%s)", t.Text)
	default:
		return fmt.Sprintf("%s@%d", t.Kind, t.Offset)
	}
}
