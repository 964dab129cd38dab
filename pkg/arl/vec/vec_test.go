package vec

import (
	"bytes"
	"testing"
)

func TestZeroValueIsInline(t *testing.T) {
	var v Vec
	if !v.Inlined() {
		t.Fatal("expected zero Vec to be inline")
	}
	if v.Len() != 0 {
		t.Errorf("Len() = %d, want 0", v.Len())
	}
	if v.Cap() != InlineCapacity {
		t.Errorf("Cap() = %d, want %d", v.Cap(), InlineCapacity)
	}
}

func TestAppend(t *testing.T) {
	tests := []struct {
		name    string
		chunks  []string
		want    string
		inlined bool
	}{
		{name: "empty", chunks: nil, want: "", inlined: true},
		{name: "empty chunk is a no-op", chunks: []string{""}, want: "", inlined: true},
		{name: "small", chunks: []string{"hello", " ", "world"}, want: "hello world", inlined: true},
		{name: "exactly inline", chunks: []string{string(bytes.Repeat([]byte("a"), InlineCapacity))}, want: string(bytes.Repeat([]byte("a"), InlineCapacity)), inlined: true},
		{name: "spills to heap", chunks: []string{"0123456789abcdef", "0123456789abcdef", "!"}, want: "0123456789abcdef0123456789abcdef!", inlined: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Vec
			for _, c := range tt.chunks {
				v.Append([]byte(c))
			}
			if got := string(v.Data()); got != tt.want {
				t.Errorf("Data() = %q, want %q", got, tt.want)
			}
			if v.Inlined() != tt.inlined {
				t.Errorf("Inlined() = %v, want %v", v.Inlined(), tt.inlined)
			}
			if v.Cap() < v.Len() {
				t.Errorf("Cap() %d < Len() %d", v.Cap(), v.Len())
			}
		})
	}
}

func TestInlineToHeapTransitionOnce(t *testing.T) {
	var v Vec
	payload := make([]byte, InlineCapacity+1)
	for i := range payload {
		payload[i] = byte('A' + i%26)
	}

	for i := 0; i < InlineCapacity; i++ {
		v.AppendByte(payload[i])
		if !v.Inlined() {
			t.Fatalf("left inline storage after %d bytes", i+1)
		}
	}
	before := append([]byte(nil), v.Data()...)

	v.AppendByte(payload[InlineCapacity])
	if v.Inlined() {
		t.Fatal("expected heap storage after 33 bytes")
	}
	if !bytes.Equal(v.Data()[:InlineCapacity], before) {
		t.Errorf("contents changed across transition: %q vs %q", v.Data()[:InlineCapacity], before)
	}
	if v.Cap() != InlineCapacity*GrowthFactor {
		t.Errorf("Cap() = %d, want %d", v.Cap(), InlineCapacity*GrowthFactor)
	}
	for _, b := range v.inline {
		if b != 0 {
			t.Fatal("inline storage not cleared after transition")
		}
	}

	block := &v.Data()[0]
	v.AppendByte('!')
	if v.Inlined() {
		t.Error("heap Vec went back inline")
	}
	if &v.Data()[0] != block {
		t.Error("34th byte reallocated the heap block")
	}
	if got := string(v.Data()); got != string(payload)+"!" {
		t.Errorf("Data() = %q", got)
	}
}

func TestGrowthNeverBelowRequest(t *testing.T) {
	var v Vec
	v.EnsureCapacity(1000)
	if v.Cap() != 1000 {
		t.Errorf("Cap() = %d, want 1000", v.Cap())
	}
	v.EnsureCapacity(1001)
	if v.Cap() != 2000 {
		t.Errorf("Cap() = %d, want 2000 after doubling", v.Cap())
	}
	v.EnsureCapacity(10)
	if v.Cap() != 2000 {
		t.Errorf("shrinking request changed Cap() to %d", v.Cap())
	}
}

func TestEnsureCapacityThenAppendDoesNotReallocate(t *testing.T) {
	for _, k := range []int{InlineCapacity + 1, 100, 4096} {
		var v Vec
		v.EnsureCapacity(k)
		v.AppendByte('x')
		block := &v.Data()[0]
		capBefore := v.Cap()

		chunk := []byte("abcdefg")
		for v.Len()+len(chunk) <= k {
			v.Append(chunk)
		}
		for v.Len() < k {
			v.AppendByte('.')
		}

		if v.Cap() != capBefore {
			t.Errorf("k=%d: Cap() moved from %d to %d", k, capBefore, v.Cap())
		}
		if &v.Data()[0] != block {
			t.Errorf("k=%d: heap block reallocated", k)
		}
	}
}

func TestEnsureFree(t *testing.T) {
	var v Vec
	v.Append([]byte("0123456789"))
	v.EnsureFree(InlineCapacity - 10)
	if !v.Inlined() {
		t.Error("EnsureFree within inline room should stay inline")
	}
	v.EnsureFree(InlineCapacity)
	if v.Inlined() {
		t.Error("EnsureFree beyond inline room should move to heap")
	}
	if v.Cap()-v.Len() < InlineCapacity {
		t.Errorf("free space = %d, want >= %d", v.Cap()-v.Len(), InlineCapacity)
	}
	if string(v.Data()) != "0123456789" {
		t.Errorf("Data() = %q", v.Data())
	}
}

func TestPop(t *testing.T) {
	var v Vec
	v.Append([]byte("abcdef"))

	got, ok := v.Pop(2)
	if !ok || string(got) != "ef" {
		t.Fatalf("Pop(2) = %q, %v", got, ok)
	}
	if v.Len() != 4 {
		t.Errorf("Len() = %d, want 4", v.Len())
	}

	if got, ok := v.Pop(5); ok || got != nil {
		t.Errorf("Pop(5) on 4 bytes = %q, %v; want failure", got, ok)
	}
	if v.Len() != 4 {
		t.Errorf("failed Pop changed Len() to %d", v.Len())
	}

	got, ok = v.Pop(4)
	if !ok || string(got) != "abcd" {
		t.Errorf("Pop(4) = %q, %v", got, ok)
	}
	if _, ok := v.Pop(0); !ok {
		t.Error("Pop(0) on empty Vec should succeed")
	}
}

func TestResetKeepsCapacity(t *testing.T) {
	var v Vec
	v.Append(bytes.Repeat([]byte("z"), 100))
	capBefore := v.Cap()

	v.Reset()
	if v.Len() != 0 {
		t.Errorf("Len() = %d after Reset", v.Len())
	}
	if v.Cap() != capBefore {
		t.Errorf("Cap() = %d after Reset, want %d", v.Cap(), capBefore)
	}
	if v.Inlined() {
		t.Error("Reset moved heap Vec back inline")
	}
	for _, b := range v.heap {
		if b != 0 {
			t.Fatal("Reset left stale bytes")
		}
	}
}

func TestCloneInto(t *testing.T) {
	var src, dst Vec
	src.Append([]byte("world"))
	dst.Append([]byte("hello "))

	src.CloneInto(&dst)
	if string(dst.Data()) != "hello world" {
		t.Errorf("dst = %q", dst.Data())
	}
	src.AppendByte('!')
	if string(dst.Data()) != "hello world" {
		t.Error("clone aliases the source")
	}
}

func TestAppendOwnData(t *testing.T) {
	const base = "abcdefghijklmnopqrst"

	tests := []struct {
		name    string
		prefill string
		apply   func(v *Vec)
		want    string
		inlined bool
	}{
		{"clone into self crosses inline", base, func(v *Vec) { v.CloneInto(v) }, base + base, false},
		{"own prefix crosses inline", base, func(v *Vec) { v.Append(v.Data()[:16]) }, base + base[:16], false},
		{"own prefix stays inline", "abcd", func(v *Vec) { v.Append(v.Data()[:2]) }, "abcdab", true},
		{"clone into self on heap", base + base, func(v *Vec) { v.CloneInto(v) }, base + base + base + base, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Vec
			v.Append([]byte(tt.prefill))
			tt.apply(&v)
			if string(v.Data()) != tt.want {
				t.Errorf("Data() = %q, want %q", v.Data(), tt.want)
			}
			if v.Inlined() != tt.inlined {
				t.Errorf("Inlined() = %v, want %v", v.Inlined(), tt.inlined)
			}
		})
	}
}

func TestDetach(t *testing.T) {
	t.Run("inline", func(t *testing.T) {
		var v Vec
		v.Append([]byte("tiny"))
		out := v.Detach()
		if string(out) != "tiny" {
			t.Errorf("Detach() = %q", out)
		}
	})
	t.Run("heap", func(t *testing.T) {
		var v Vec
		want := bytes.Repeat([]byte("ab"), 40)
		v.Append(want)
		out := v.Detach()
		if !bytes.Equal(out, want) {
			t.Errorf("Detach() = %q", out)
		}
		if cap(out) != len(out) {
			t.Errorf("detached slice exposes spare capacity %d", cap(out))
		}
	})
}

func TestUseAfterFreePanics(t *testing.T) {
	var v Vec
	v.Append(bytes.Repeat([]byte("x"), 64))
	v.Free()

	defer func() {
		if recover() == nil {
			t.Error("expected panic on use after Free")
		}
	}()
	v.AppendByte('y')
}

func TestCopiedVecPanics(t *testing.T) {
	var v Vec
	v.AppendByte('a')
	cp := v

	defer func() {
		if recover() == nil {
			t.Error("expected panic on copied Vec")
		}
	}()
	cp.AppendByte('b')
}
