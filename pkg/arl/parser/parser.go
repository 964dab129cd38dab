// Package parser builds the flat ARL syntax tree from a token stream.
package parser

import (
	"github.com/sambeau/arl/pkg/arl/ast"
	arlerrors "github.com/sambeau/arl/pkg/arl/errors"
	"github.com/sambeau/arl/pkg/arl/lexer"
)

// primitives maps keywords onto the opcodes they denote
var primitives = map[lexer.Known]ast.Prim{
	lexer.KnownPuts: ast.PrimPutStr,
	lexer.KnownNil:  ast.PrimNil,
}

// LookupPrim returns the primitive a keyword stands for
func LookupPrim(k lexer.Known) (ast.Prim, bool) {
	p, ok := primitives[k]
	return p, ok
}

// Parser represents the parser
type Parser struct {
	l *lexer.Lexer

	structuredErrors []*arlerrors.ArlError
}

// New creates a parser reading from l
func New(l *lexer.Lexer) *Parser {
	return &Parser{l: l}
}

// ParseProgram scans the whole source and converts every token into a node.
// It returns nil when scanning fails; the failure is in StructuredErrors.
func (p *Parser) ParseProgram() *ast.AST {
	stream, err := p.l.Lex()
	if err != nil {
		if arlErr, ok := arlerrors.FromError(err, p.l.Source(), p.l.Filename()); ok {
			p.structuredErrors = append(p.structuredErrors, arlErr)
		} else {
			p.structuredErrors = append(p.structuredErrors, arlerrors.NewSimple(arlerrors.ClassLex, err.Error()))
		}
		return nil
	}
	defer stream.Free()
	return Parse(stream)
}

// StructuredErrors returns the errors met while parsing
func (p *Parser) StructuredErrors() []*arlerrors.ArlError {
	return p.structuredErrors
}

// Parse converts a token stream into a tree sharing the same source
func Parse(stream *lexer.Stream) *ast.AST {
	tree := ast.New(stream.Source())
	for _, tok := range stream.All() {
		switch tok.Kind {
		case lexer.KindKnown:
			prim, ok := LookupPrim(tok.Known)
			if !ok {
				tree.Append(ast.Node{Offset: tok.Offset, Kind: ast.NodeSymbol, Text: tok.Text}, tok.Offset)
				continue
			}
			tree.Append(ast.Node{Offset: tok.Offset, Kind: ast.NodePrimitive, Prim: prim, Text: tok.Text}, tok.Offset)
		case lexer.KindSymbol:
			tree.Append(ast.Node{Offset: tok.Offset, Kind: ast.NodeSymbol, Text: tok.Text}, tok.Offset)
		case lexer.KindString:
			tree.Append(ast.Node{Offset: tok.Offset, Kind: ast.NodeString, Text: tok.Text}, tok.Offset+1)
		default:
			panic("parser: unhandled token kind " + tok.Kind.String())
		}
	}
	return tree
}

// ParseSource lexes and parses src in one call. Scan failures are returned
// unchanged as *lexer.ScanError.
func ParseSource(src []byte) (*ast.AST, error) {
	stream, err := lexer.Lex(src)
	if err != nil {
		return nil, err
	}
	defer stream.Free()
	return Parse(stream), nil
}
