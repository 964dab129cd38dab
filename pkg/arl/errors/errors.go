// Package errors provides structured error types for the ARL toolchain.
//
// The lexer itself only reports a bare error code and a byte offset. This
// package turns those, and the failures of the surrounding tools, into
// ArlError values carrying a message, hints and a resolved position for
// display or JSON export.
package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/sambeau/arl/pkg/arl/lexer"
	"github.com/sambeau/arl/pkg/arl/sv"
)

// ErrorClass categorizes errors for filtering and templating.
type ErrorClass string

const (
	ClassLex    ErrorClass = "lex"    // Scanner errors
	ClassIO     ErrorClass = "io"     // Reading source
	ClassConfig ErrorClass = "config" // Configuration
	ClassIndex  ErrorClass = "index"  // Symbol index
	ClassUsage  ErrorClass = "usage"  // Command line
)

// ArlError represents any error reported to a user of the toolchain.
type ArlError struct {
	Class   ErrorClass     `json:"class"`            // Error category
	Code    string         `json:"code"`             // Error code (e.g., "LEX-0001")
	Message string         `json:"message"`          // Human-readable message
	Hints   []string       `json:"hints,omitempty"`  // Suggestions for fixing
	Line    int            `json:"line"`             // 1-based line (0 if unknown)
	Column  int            `json:"column"`           // 0-based column within the line
	Offset  int            `json:"offset,omitempty"` // Byte offset into the source
	File    string         `json:"file,omitempty"`   // File path (if known)
	Data    map[string]any `json:"data,omitempty"`   // Template variables
}

// Error implements the error interface.
func (e *ArlError) Error() string {
	return e.String()
}

// String returns the compact FILE:LINE:COL: message form.
func (e *ArlError) String() string {
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(":")
		if e.Line > 0 {
			fmt.Fprintf(&sb, "%d:%d:", e.Line, e.Column)
		}
		sb.WriteString(" ")
	} else if e.Line > 0 {
		fmt.Fprintf(&sb, "%d:%d: ", e.Line, e.Column)
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// PrettyString returns a multi-line formatted string for display.
func (e *ArlError) PrettyString() string {
	var sb strings.Builder

	switch e.Class {
	case ClassLex:
		sb.WriteString("Lexer error")
	case ClassConfig:
		sb.WriteString("Config error")
	default:
		sb.WriteString("Error")
	}

	if e.File != "" {
		sb.WriteString(":\n  in: ")
		sb.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&sb, "\n  at: line %d, column %d", e.Line, e.Column)
		}
		sb.WriteString("\n  ")
	} else if e.Line > 0 {
		fmt.Fprintf(&sb, ": line %d, column %d\n  ", e.Line, e.Column)
	} else {
		sb.WriteString(":\n  ")
	}

	sb.WriteString(e.Message)

	for i, hint := range e.Hints {
		sb.WriteString("\n  ")
		if i == 0 {
			sb.WriteString("hint: ")
		} else {
			sb.WriteString("  or: ")
		}
		sb.WriteString(hint)
	}

	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *ArlError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithFile returns a copy of the error with the file path set.
func (e *ArlError) WithFile(file string) *ArlError {
	copy := *e
	copy.File = file
	return &copy
}

// WithPosition returns a copy of the error with line and column set.
func (e *ArlError) WithPosition(line, column int) *ArlError {
	copy := *e
	copy.Line = line
	copy.Column = column
	return &copy
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass // Error category
	Template string     // Message template with {{.placeholders}}
	Hints    []string   // Hint templates (may use {{.placeholders}})
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	"LEX-0001": {
		Class:    ClassLex,
		Template: "UNKNOWN_CHARACTER: unexpected {{.Char}}",
		Hints:    []string{"symbols may not start with a digit, and numbers are not supported yet"},
	},
	"LEX-0002": {
		Class:    ClassLex,
		Template: "EXPECTED_CLOSING_QUOTE: string literal is never closed",
		Hints:    []string{`add a closing " to the string opened at line {{.OpenLine}}`},
	},
	"IO-0001": {
		Class:    ClassIO,
		Template: "cannot read {{.Path}}: {{.Reason}}",
	},
	"CONFIG-0001": {
		Class:    ClassConfig,
		Template: "invalid config: {{.Reason}}",
	},
	"INDEX-0001": {
		Class:    ClassIndex,
		Template: "symbol index: {{.Reason}}",
	},
	"INDEX-0002": {
		Class:    ClassIndex,
		Template: "no occurrences of `{{.Name}}`",
	},
	"USAGE-0001": {
		Class:    ClassUsage,
		Template: "arl {{.Command}}: wrong number of arguments",
		Hints:    []string{"run arl --help for usage"},
	},
}

// New creates an ArlError from the catalog.
// If the code is not found, creates a generic error with the message.
func New(code string, data map[string]any) *ArlError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &ArlError{
			Class:   ClassUsage,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &ArlError{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// NewSimple creates a simple error without using the catalog.
func NewSimple(class ErrorClass, message string) *ArlError {
	return &ArlError{
		Class:   class,
		Message: message,
	}
}

// renderTemplate renders a Go template with the given data.
func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}

// FromScan converts a lexer failure into a positioned ArlError.
func FromScan(err *lexer.ScanError, src []byte, file string) *ArlError {
	source := sv.Of(src)
	line, col := err.Position(source)

	var out *ArlError
	switch err.Code {
	case lexer.UnknownCharacter:
		out = New("LEX-0001", map[string]any{"Char": describeByte(src, err.Offset)})
	case lexer.ExpectedClosingQuote:
		openLine, _ := lexer.LineCol(source, lastQuote(src, err.Offset))
		out = New("LEX-0002", map[string]any{"OpenLine": openLine})
	default:
		out = NewSimple(ClassLex, err.Code.String())
	}
	out.Line = line
	out.Column = col
	out.Offset = err.Offset
	out.File = file
	return out
}

// FromError converts err into an ArlError when it wraps a scan failure or
// already is one. Other errors are returned as-is with ok == false.
func FromError(err error, src []byte, file string) (*ArlError, bool) {
	var arlErr *ArlError
	if stderrors.As(err, &arlErr) {
		return arlErr, true
	}
	var scanErr *lexer.ScanError
	if stderrors.As(err, &scanErr) {
		return FromScan(scanErr, src, file), true
	}
	return nil, false
}

func describeByte(src []byte, offset int) string {
	if offset < 0 || offset >= len(src) {
		return "end of input"
	}
	b := src[offset]
	if b >= 0x20 && b < 0x7f {
		return fmt.Sprintf("character '%c'", b)
	}
	return fmt.Sprintf("byte 0x%02x", b)
}

// lastQuote finds the opening quote of an unterminated string ending at end.
func lastQuote(src []byte, end int) int {
	end = min(end, len(src))
	if i := bytes.LastIndexByte(src[:end], '"'); i >= 0 {
		return i
	}
	return 0
}

// ============================================================================
// Fuzzy Matching - "Did you mean?" suggestions
// ============================================================================

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			cur[j] = min(
				prev[j]+1,      // deletion
				cur[j-1]+1,     // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, cur = cur, prev
	}

	return prev[len(b)]
}

// FuzzyMatch represents a fuzzy match result with its distance.
type FuzzyMatch struct {
	Value    string
	Distance int
}

// threshold grows with the input: 1 edit up to 3 bytes, 2 up to 6, then 3.
func threshold(input string) int {
	switch {
	case len(input) >= 7:
		return 3
	case len(input) >= 4:
		return 2
	default:
		return 1
	}
}

// FindClosestMatch returns the candidate closest to input, or "" when none
// is within the threshold. Symbols are case-sensitive, so is the match.
func FindClosestMatch(input string, candidates []string) string {
	matches := FindTopMatches(input, candidates, 1)
	if len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// FindTopMatches returns up to n candidates within the threshold, closest first.
func FindTopMatches(input string, candidates []string, n int) []string {
	if len(input) == 0 || len(candidates) == 0 || n <= 0 {
		return nil
	}

	var matches []FuzzyMatch
	for _, candidate := range candidates {
		dist := levenshteinDistance(input, candidate)
		if dist > 0 && dist <= threshold(input) {
			matches = append(matches, FuzzyMatch{Value: candidate, Distance: dist})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	var result []string
	for i := 0; i < len(matches) && i < n; i++ {
		result = append(result, matches[i].Value)
	}
	return result
}

// NewNotFound creates an INDEX-0002 error with an optional "did you mean" hint.
func NewNotFound(name string, known []string) *ArlError {
	err := New("INDEX-0002", map[string]any{"Name": name})
	if suggestion := FindClosestMatch(name, known); suggestion != "" {
		err.Hints = append(err.Hints, "did you mean `"+suggestion+"`?")
	}
	return err
}
