// Package vec provides a growable byte buffer with small-buffer optimization.
//
// A Vec keeps up to InlineCapacity bytes inside the struct itself. The first
// time more room is needed it moves its contents to a heap block, and stays
// there for the rest of its life. Token streams, AST node streams and piped
// input are all accumulated in a Vec.
package vec

import "fmt"

const (
	// InlineCapacity is the number of bytes a Vec stores before touching the heap
	InlineCapacity = 32

	// GrowthFactor is the multiplier applied to capacity when the heap block grows
	GrowthFactor = 2
)

type storageMode uint8

const (
	modeInline storageMode = iota
	modeHeap
	modeFreed
)

// Vec is a byte buffer with inline storage for small contents.
//
// The zero value is an empty, inline Vec ready to use. A Vec must not be
// copied after first use.
type Vec struct {
	addr     *Vec // self pointer, detects copies by value
	size     int
	capacity int
	mode     storageMode
	inline   [InlineCapacity]byte
	heap     []byte
}

func (v *Vec) check() {
	if v.mode == modeFreed {
		panic("vec: use of Vec after Free")
	}
	if v.addr == nil {
		v.addr = v
		if v.capacity == 0 {
			v.capacity = InlineCapacity
		}
	} else if v.addr != v {
		panic("vec: illegal use of non-zero Vec copied by value")
	}
}

// Len returns the number of bytes in use.
func (v *Vec) Len() int {
	v.check()
	return v.size
}

// Cap returns the number of bytes the active storage can hold.
func (v *Vec) Cap() int {
	v.check()
	return v.capacity
}

// Inlined reports whether the contents still live inside the struct.
func (v *Vec) Inlined() bool {
	v.check()
	return v.mode == modeInline
}

// Data returns the used portion of the active storage.
// The slice is invalidated by any call that grows the Vec.
func (v *Vec) Data() []byte {
	v.check()
	return v.storage()[:v.size]
}

func (v *Vec) storage() []byte {
	if v.mode == modeHeap {
		return v.heap
	}
	return v.inline[:]
}

// EnsureCapacity guarantees a total capacity of at least n bytes.
func (v *Vec) EnsureCapacity(n int) {
	v.check()
	if n <= v.capacity {
		return
	}
	v.grow(n, nil)
}

// grow moves the contents to a block of at least n bytes, with extra copied
// in after them. extra may alias the old storage: it is read before the
// inline array is cleared.
func (v *Vec) grow(n int, extra []byte) {
	newCap := max(v.capacity*GrowthFactor, n)
	block := make([]byte, newCap)
	copy(block, v.storage()[:v.size])
	copy(block[v.size:], extra)
	if v.mode == modeInline {
		clear(v.inline[:])
		v.mode = modeHeap
	}
	v.heap = block
	v.capacity = newCap
}

// EnsureFree guarantees at least n unused bytes after the current contents.
func (v *Vec) EnsureFree(n int) {
	v.check()
	v.EnsureCapacity(v.size + n)
}

// Append copies p onto the end of the Vec. Appending nothing is a no-op.
// p may be a slice of the Vec's own Data.
func (v *Vec) Append(p []byte) {
	v.check()
	if len(p) == 0 {
		return
	}
	if v.size+len(p) > v.capacity {
		v.grow(v.size+len(p), p)
	} else {
		copy(v.storage()[v.size:], p)
	}
	v.size += len(p)
}

// AppendByte appends a single byte.
func (v *Vec) AppendByte(b byte) {
	v.check()
	v.EnsureFree(1)
	v.storage()[v.size] = b
	v.size++
}

// Pop removes the last n bytes and returns them. The returned slice aliases
// the Vec and is only valid until the next write. It fails when fewer than n
// bytes are in use.
func (v *Vec) Pop(n int) ([]byte, bool) {
	v.check()
	if n < 0 || v.size < n {
		return nil, false
	}
	v.size -= n
	return v.storage()[v.size : v.size+n], true
}

// Reset zeroes the contents and empties the Vec, keeping its capacity.
func (v *Vec) Reset() {
	v.check()
	clear(v.storage())
	v.size = 0
}

// CloneInto appends a copy of v's contents onto dst.
func (v *Vec) CloneInto(dst *Vec) {
	v.check()
	dst.Append(v.Data())
}

// Detach hands the heap block over to the caller and frees the Vec.
// Inline contents are copied into a fresh slice, since they live inside the
// struct and cannot outlive it.
func (v *Vec) Detach() []byte {
	v.check()
	var out []byte
	if v.mode == modeHeap {
		out = v.heap[:v.size:v.size]
		v.heap = nil
	} else {
		out = make([]byte, v.size)
		copy(out, v.inline[:v.size])
	}
	v.Free()
	return out
}

// Free releases the heap block, if any. The Vec is unusable afterwards.
func (v *Vec) Free() {
	if v.mode == modeFreed {
		return
	}
	v.heap = nil
	clear(v.inline[:])
	v.size = 0
	v.capacity = 0
	v.mode = modeFreed
}

// String returns a short description for debugging.
func (v *Vec) String() string {
	switch v.mode {
	case modeFreed:
		return "Vec(freed)"
	case modeHeap:
		return fmt.Sprintf("Vec(heap, %d/%d)", v.size, v.capacity)
	default:
		return fmt.Sprintf("Vec(inline, %d/%d)", v.size, v.capacity)
	}
}
