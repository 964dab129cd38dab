// Package format renders token streams, syntax trees and diagnostics for
// the command line and the REPL.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sambeau/arl/pkg/arl/ast"
	arlerrors "github.com/sambeau/arl/pkg/arl/errors"
	"github.com/sambeau/arl/pkg/arl/lexer"
	"github.com/sambeau/arl/pkg/arl/sv"
)

// TabWidth is the visual width of a tab when placing the caret
const TabWidth = 8

// Tokens writes a stream as "{", one "\t[i]: TOKEN" line per token, and
// "}". An empty stream prints "{}".
func Tokens(w io.Writer, s *lexer.Stream) error {
	items := make([]fmt.Stringer, 0, s.Len())
	for _, tok := range s.All() {
		items = append(items, tok)
	}
	return writeList(w, items)
}

// AST writes a tree in the same layout as Tokens
func AST(w io.Writer, tree *ast.AST) error {
	items := make([]fmt.Stringer, 0, tree.Len())
	for _, n := range tree.All() {
		items = append(items, n)
	}
	return writeList(w, items)
}

func writeList(w io.Writer, items []fmt.Stringer) error {
	if len(items) == 0 {
		_, err := io.WriteString(w, "{}")
		return err
	}
	var sb strings.Builder
	sb.WriteString("{\n")
	for i, item := range items {
		fmt.Fprintf(&sb, "\t[%d]: %s\n", i, item)
	}
	sb.WriteString("}")
	_, err := io.WriteString(w, sb.String())
	return err
}

// TokenJSON is the exported form of one token
type TokenJSON struct {
	Index  int    `json:"index"`
	Offset int    `json:"offset"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Kind   string `json:"kind"`
	Known  string `json:"known,omitempty"`
	Text   string `json:"text"`
}

// NodeJSON is the exported form of one syntax node
type NodeJSON struct {
	Index  int    `json:"index"`
	Offset int    `json:"offset"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Kind   string `json:"kind"`
	Prim   string `json:"prim,omitempty"`
	Text   string `json:"text,omitempty"`
}

// Document is the top-level JSON output for one file
type Document struct {
	File   string              `json:"file"`
	Tokens []TokenJSON         `json:"tokens,omitempty"`
	Nodes  []NodeJSON          `json:"nodes,omitempty"`
	Error  *arlerrors.ArlError `json:"error,omitempty"`
}

// TokensDocument builds the JSON document for a stream
func TokensDocument(file string, s *lexer.Stream) Document {
	lines := lexer.NewLines(s.Source())
	doc := Document{File: file, Tokens: make([]TokenJSON, 0, s.Len())}
	for i, tok := range s.All() {
		line, col := lines.Position(tok.Offset)
		tj := TokenJSON{
			Index:  i,
			Offset: tok.Offset,
			Line:   line,
			Column: col,
			Kind:   tok.Kind.String(),
			Text:   tok.Text.String(),
		}
		if tok.Kind == lexer.KindKnown {
			tj.Known = tok.Known.String()
		}
		doc.Tokens = append(doc.Tokens, tj)
	}
	return doc
}

// ASTDocument builds the JSON document for a tree
func ASTDocument(file string, tree *ast.AST) Document {
	lines := lexer.NewLines(tree.Source())
	doc := Document{File: file, Nodes: make([]NodeJSON, 0, tree.Len())}
	for i, n := range tree.All() {
		line, col := lines.Position(n.Offset)
		nj := NodeJSON{
			Index:  i,
			Offset: n.Offset,
			Line:   line,
			Column: col,
			Kind:   n.Kind.String(),
		}
		if n.Kind == ast.NodePrimitive {
			nj.Prim = n.Prim.String()
		} else {
			nj.Text = n.Text.String()
		}
		doc.Nodes = append(doc.Nodes, nj)
	}
	return doc
}

// WriteJSON writes v as indented JSON followed by a newline
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Diagnostic writes the compact FILE:LINE:COL: CODE line followed by the
// offending source line and a caret under the error column.
func Diagnostic(w io.Writer, err *arlerrors.ArlError, src []byte) {
	fmt.Fprintln(w, err.String())
	if err.Line > 0 {
		SourceContext(w, src, err.Line, err.Column)
	}
}

// SourceContext prints line lineNum of src, left-trimmed, with a caret
// under column colNum. Columns count from 0.
func SourceContext(w io.Writer, src []byte, lineNum, colNum int) {
	lines := lexer.NewLines(sv.Of(src))
	if lineNum <= 0 || lineNum > lines.Count() {
		return
	}
	sourceLine := lines.Line(lineNum).String()

	trimCount := 0
	for i := 0; i < len(sourceLine); i++ {
		if sourceLine[i] == '\t' {
			trimCount += TabWidth
		} else if sourceLine[i] == ' ' {
			trimCount++
		} else {
			break
		}
	}

	fmt.Fprintf(w, "    %s\n", strings.TrimLeft(sourceLine, " \t"))

	visualCol := 0
	for i := 0; i < colNum && i < len(sourceLine); i++ {
		if sourceLine[i] == '\t' {
			visualCol += TabWidth
		} else {
			visualCol++
		}
	}
	if colNum > len(sourceLine) {
		visualCol += colNum - len(sourceLine)
	}

	adjustedCol := max(visualCol-trimCount, 0)
	fmt.Fprintf(w, "    %s^\n", strings.Repeat(" ", adjustedCol))
}
