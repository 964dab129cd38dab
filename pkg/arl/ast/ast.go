// Package ast holds the flat syntax tree produced by the parser.
//
// ARL has no nested grammar yet, so a program is a sequence of nodes in
// source order. Nodes are stored as fixed-size records in a vec.Vec and
// their text borrows from the source, exactly like lexer.Stream.
package ast

import (
	"encoding/binary"
	"fmt"
	"iter"
	"strings"

	"github.com/sambeau/arl/pkg/arl/sv"
	"github.com/sambeau/arl/pkg/arl/vec"
)

// NodeKind identifies what a node holds
type NodeKind uint8

const (
	NodePrimitive NodeKind = iota // a built-in value or callable
	NodeSymbol                    // a user-defined name
	NodeString                    // a string literal
)

func (k NodeKind) String() string {
	switch k {
	case NodePrimitive:
		return "PRIMITIVE"
	case NodeSymbol:
		return "SYMBOL"
	case NodeString:
		return "STRING"
	default:
		return "UNKNOWN"
	}
}

// Prim enumerates the primitives, i.e. the opcodes later stages execute
type Prim uint8

const (
	PrimNil    Prim = iota // nil
	PrimPutStr             // write a string to stdout
)

func (p Prim) String() string {
	switch p {
	case PrimNil:
		return "nil"
	case PrimPutStr:
		return "putstr"
	default:
		return fmt.Sprintf("Prim(%d)", uint8(p))
	}
}

// Node is one entry of the flat tree
type Node struct {
	Offset int
	Kind   NodeKind
	Prim   Prim
	Text   sv.View
}

func (n Node) String() string {
	switch n.Kind {
	case NodePrimitive:
		return fmt.Sprintf("PRIMITIVE(%s)", n.Prim)
	case NodeSymbol:
		return fmt.Sprintf("SYMBOL(%s)", n.Text)
	case NodeString:
		return fmt.Sprintf("STRING(%s)", n.Text)
	default:
		return fmt.Sprintf("%s@%d", n.Kind, n.Offset)
	}
}

// offset (8) | text start (8) | text length (8) | kind (1) | prim (1)
const recordSize = 26

// AST is the ordered node sequence of one program
type AST struct {
	source sv.View
	nodes  vec.Vec
}

// New creates an empty tree over source
func New(source sv.View) *AST {
	return &AST{source: source}
}

// Source returns the view node text borrows from
func (a *AST) Source() sv.View { return a.source }

// Len returns the number of nodes
func (a *AST) Len() int { return a.nodes.Len() / recordSize }

// Append adds a node. Its text must lie within the tree's source, at byte
// offset textStart.
func (a *AST) Append(n Node, textStart int) {
	var rec [recordSize]byte
	binary.LittleEndian.PutUint64(rec[0:8], uint64(n.Offset))
	binary.LittleEndian.PutUint64(rec[8:16], uint64(textStart))
	binary.LittleEndian.PutUint64(rec[16:24], uint64(n.Text.Len()))
	rec[24] = byte(n.Kind)
	rec[25] = byte(n.Prim)
	a.nodes.Append(rec[:])
}

// At returns the i-th node. It panics if i is out of range.
func (a *AST) At(i int) Node {
	if i < 0 || i >= a.Len() {
		panic("ast: node index out of range")
	}
	rec := a.nodes.Data()[i*recordSize : (i+1)*recordSize]
	start := int(binary.LittleEndian.Uint64(rec[8:16]))
	length := int(binary.LittleEndian.Uint64(rec[16:24]))
	return Node{
		Offset: int(binary.LittleEndian.Uint64(rec[0:8])),
		Kind:   NodeKind(rec[24]),
		Prim:   Prim(rec[25]),
		Text:   a.source.Slice(start, start+length),
	}
}

// All iterates over the nodes in source order
func (a *AST) All() iter.Seq2[int, Node] {
	return func(yield func(int, Node) bool) {
		for i := 0; i < a.Len(); i++ {
			if !yield(i, a.At(i)) {
				return
			}
		}
	}
}

// String renders the nodes separated by spaces
func (a *AST) String() string {
	parts := make([]string, 0, a.Len())
	for _, n := range a.All() {
		parts = append(parts, n.String())
	}
	return strings.Join(parts, " ")
}

// Free releases the tree's storage
func (a *AST) Free() {
	a.nodes.Free()
}
