package lexer

import (
	"bytes"
	"encoding/binary"
	"iter"

	"github.com/sambeau/arl/pkg/arl/sv"
	"github.com/sambeau/arl/pkg/arl/vec"
)

// recordSize is the encoded size of one token:
// offset (8) | text length (8) | kind (1) | known (1)
const recordSize = 18

// Stream is an ordered sequence of tokens scanned from one source buffer.
//
// Tokens are kept as fixed-size records in a single vec.Vec; their text is
// recovered by re-slicing the source on access, so a Stream never copies
// source bytes. The source must stay unchanged while the Stream is in use.
type Stream struct {
	source  sv.View
	records vec.Vec
}

// NewStream creates an empty stream over source
func NewStream(source sv.View) *Stream {
	return &Stream{source: source}
}

// Source returns the view the stream's tokens borrow from
func (s *Stream) Source() sv.View {
	return s.source
}

// Len returns the number of tokens
func (s *Stream) Len() int {
	return s.records.Len() / recordSize
}

// Append adds a token at the end of the stream
func (s *Stream) Append(tok Token) {
	var rec [recordSize]byte
	binary.LittleEndian.PutUint64(rec[0:8], uint64(tok.Offset))
	binary.LittleEndian.PutUint64(rec[8:16], uint64(tok.Text.Len()))
	rec[16] = byte(tok.Kind)
	rec[17] = byte(tok.Known)
	s.records.Append(rec[:])
}

// At returns the i-th token. It panics if i is out of range.
func (s *Stream) At(i int) Token {
	if i < 0 || i >= s.Len() {
		panic("lexer: token index out of range")
	}
	rec := s.records.Data()[i*recordSize : (i+1)*recordSize]
	offset := int(binary.LittleEndian.Uint64(rec[0:8]))
	length := int(binary.LittleEndian.Uint64(rec[8:16]))
	tok := Token{
		Offset: offset,
		Kind:   Kind(rec[16]),
		Known:  Known(rec[17]),
	}
	start := offset
	if tok.Kind == KindString {
		start++
	}
	tok.Text = s.source.Slice(start, start+length)
	return tok
}

// All iterates over the tokens in source order
func (s *Stream) All() iter.Seq2[int, Token] {
	return func(yield func(int, Token) bool) {
		for i := 0; i < s.Len(); i++ {
			if !yield(i, s.At(i)) {
				return
			}
		}
	}
}

// Tokens returns a slice holding every token
func (s *Stream) Tokens() []Token {
	out := make([]Token, 0, s.Len())
	for _, tok := range s.All() {
		out = append(out, tok)
	}
	return out
}

// Equal reports whether two streams hold bit-identical token records
func (s *Stream) Equal(o *Stream) bool {
	return bytes.Equal(s.records.Data(), o.records.Data())
}

// Inlined reports whether the stream still fits in its inline storage
func (s *Stream) Inlined() bool {
	return s.records.Inlined()
}

// Free releases the stream's storage; the stream must not be used afterwards
func (s *Stream) Free() {
	s.records.Free()
}
