package ast

import (
	"testing"

	"github.com/sambeau/arl/pkg/arl/sv"
)

func TestAppendAndAt(t *testing.T) {
	src := sv.FromString(`puts "hi" x`)
	tree := New(src)
	defer tree.Free()

	tree.Append(Node{Offset: 0, Kind: NodePrimitive, Prim: PrimPutStr, Text: src.Prefix(4)}, 0)
	tree.Append(Node{Offset: 5, Kind: NodeString, Text: src.ChopLeft(6).Prefix(2)}, 6)
	tree.Append(Node{Offset: 10, Kind: NodeSymbol, Text: src.ChopLeft(10)}, 10)

	if tree.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tree.Len())
	}

	tests := []struct {
		offset int
		kind   NodeKind
		text   string
		str    string
	}{
		{0, NodePrimitive, "puts", "PRIMITIVE(putstr)"},
		{5, NodeString, "hi", "STRING(hi)"},
		{10, NodeSymbol, "x", "SYMBOL(x)"},
	}
	for i, tt := range tests {
		n := tree.At(i)
		if n.Offset != tt.offset || n.Kind != tt.kind {
			t.Errorf("node %d = %+v", i, n)
		}
		if n.Text.String() != tt.text {
			t.Errorf("node %d text = %q, want %q", i, n.Text.String(), tt.text)
		}
		if n.String() != tt.str {
			t.Errorf("node %d String() = %q, want %q", i, n.String(), tt.str)
		}
	}

	if got := tree.String(); got != "PRIMITIVE(putstr) STRING(hi) SYMBOL(x)" {
		t.Errorf("String() = %q", got)
	}
}

func TestAllStopsEarly(t *testing.T) {
	src := sv.FromString("a b c")
	tree := New(src)
	defer tree.Free()
	for i := 0; i < 3; i++ {
		tree.Append(Node{Offset: i * 2, Kind: NodeSymbol, Text: src.ChopLeft(i * 2).Prefix(1)}, i*2)
	}

	seen := 0
	for i := range tree.All() {
		seen++
		if i == 1 {
			break
		}
	}
	if seen != 2 {
		t.Errorf("visited %d nodes, want 2", seen)
	}
}

func TestAtOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	New(sv.FromString("")).At(0)
}

func TestPrimString(t *testing.T) {
	if PrimNil.String() != "nil" || PrimPutStr.String() != "putstr" {
		t.Error("unexpected primitive names")
	}
	if Prim(9).String() != "Prim(9)" {
		t.Errorf("got %q", Prim(9).String())
	}
}
