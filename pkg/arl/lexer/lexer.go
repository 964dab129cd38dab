// Package lexer turns ARL source bytes into a flat stream of tokens.
//
// The scan is a single forward pass: whitespace is skipped, double-quoted
// text becomes a string token, and runs of symbol characters become either
// a keyword or a plain symbol. The first error stops the scan and no partial
// stream is returned.
package lexer

import (
	"fmt"

	"github.com/sambeau/arl/pkg/arl/sv"
)

// SymbolChars lists every byte allowed in a symbol
const SymbolChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz!#$%&'()*+,-./" +
	":;<=>?@\\^_`{|}~0123456789"

var (
	symbolChars = sv.NewCharset(SymbolChars)
	symbolStart = symbolChars.Without("0123456789")
	whitespace  = sv.NewCharset(" \t\n\v\f\r")
	quote       = sv.NewCharset(`"`)
)

// IsSymbolStart reports whether b may begin a symbol. Digits may appear in
// a symbol but not first.
func IsSymbolStart(b byte) bool { return symbolStart.Contains(b) }

// IsSymbolChar reports whether b may appear in a symbol
func IsSymbolChar(b byte) bool { return symbolChars.Contains(b) }

// IsWhitespace reports whether b is skipped between tokens
func IsWhitespace(b byte) bool { return whitespace.Contains(b) }

// ErrorCode identifies why a scan failed
type ErrorCode int

const (
	UnknownCharacter     ErrorCode = iota + 1 // byte cannot start any token
	ExpectedClosingQuote                      // string literal runs to end of input
)

// String maps an error code to its stable name
func (c ErrorCode) String() string {
	switch c {
	case UnknownCharacter:
		return "UNKNOWN_CHARACTER"
	case ExpectedClosingQuote:
		return "EXPECTED_CLOSING_QUOTE"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// ScanError reports the first failure of a scan and where the cursor stopped
type ScanError struct {
	Code   ErrorCode
	Offset int
}

// Sentinels for errors.Is; only the code is compared.
var (
	ErrUnknownCharacter     = &ScanError{Code: UnknownCharacter}
	ErrExpectedClosingQuote = &ScanError{Code: ExpectedClosingQuote}
)

func (e *ScanError) Error() string {
	return fmt.Sprintf("%s at byte %d", e.Code, e.Offset)
}

// Is matches any ScanError with the same code
func (e *ScanError) Is(target error) bool {
	t, ok := target.(*ScanError)
	return ok && t.Code == e.Code
}

// Position derives the line and column of the error within src
func (e *ScanError) Position(src sv.View) (line, column int) {
	return LineCol(src, e.Offset)
}

// Lexer drives a Cursor across one source buffer
type Lexer struct {
	filename string
	source   sv.View
	cursor   *Cursor
}

// New creates a lexer over src. src is borrowed, not copied.
func New(src []byte) *Lexer {
	return NewWithFilename(src, "<input>")
}

// NewWithFilename creates a lexer that reports positions against filename
func NewWithFilename(src []byte, filename string) *Lexer {
	source := sv.Of(src)
	return &Lexer{filename: filename, source: source, cursor: NewCursor(source)}
}

// Filename returns the name used in diagnostics
func (l *Lexer) Filename() string { return l.filename }

// Source returns the bytes being scanned
func (l *Lexer) Source() []byte { return l.source.Bytes() }

// Lex scans src in one call
func Lex(src []byte) (*Stream, error) {
	return New(src).Lex()
}

// Offset returns the cursor's byte offset
func (l *Lexer) Offset() int { return l.cursor.Offset() }

// Position derives the cursor's line and column
func (l *Lexer) Position() (line, column int) { return l.cursor.Position() }

// Lex scans until end of input. On failure it returns a *ScanError and no
// stream.
func (l *Lexer) Lex() (*Stream, error) {
	out := NewStream(l.source)
	for !l.cursor.EOS() {
		c := l.cursor.Peek()
		switch {
		case IsWhitespace(c):
			l.cursor.Advance(l.cursor.Rest().ScanWhile(whitespace))
		case c == '"':
			tok, err := l.lexString()
			if err != nil {
				out.Free()
				return nil, err
			}
			out.Append(tok)
		case IsSymbolStart(c):
			out.Append(l.lexSymbol())
		default:
			out.Free()
			return nil, &ScanError{Code: UnknownCharacter, Offset: l.cursor.Offset()}
		}
	}
	return out, nil
}

// lexString captures the text between a pair of double quotes. The cursor
// is on the opening quote.
func (l *Lexer) lexString() (Token, error) {
	open := l.cursor.Offset()
	l.cursor.Advance(1)
	rest := l.cursor.Rest()
	n := rest.ScanUntil(quote)
	if n == rest.Len() {
		l.cursor.Advance(n)
		return Token{}, &ScanError{Code: ExpectedClosingQuote, Offset: l.cursor.Offset()}
	}
	tok := NewString(open, rest.Prefix(n))
	l.cursor.Advance(n + 1)
	return tok, nil
}

// lexSymbol captures the run of symbol characters at the cursor
func (l *Lexer) lexSymbol() Token {
	start := l.cursor.Offset()
	rest := l.cursor.Rest()
	text := rest.Prefix(rest.ScanWhile(symbolChars))
	l.cursor.Advance(text.Len())
	if known, ok := LookupKnown(text); ok {
		return NewKnown(start, known, text)
	}
	return NewSymbol(start, text)
}
