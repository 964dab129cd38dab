// Package sv provides non-owning views over byte buffers.
//
// A View borrows its bytes from a buffer owned elsewhere (usually the whole
// source file). Views are never written through: every operation that
// "shrinks" a view returns a new View over the same memory.
package sv

import "bytes"

// View is a borrowed, read-only window onto a byte buffer.
// The buffer must outlive every View derived from it.
type View struct {
	data []byte
}

// Of returns a View over b without copying it.
func Of(b []byte) View {
	return View{data: b}
}

// FromString returns a View over a copy of s.
func FromString(s string) View {
	return View{data: []byte(s)}
}

// Len returns the number of bytes in the view.
func (v View) Len() int { return len(v.data) }

// IsEmpty reports whether the view has no bytes.
func (v View) IsEmpty() bool { return len(v.data) == 0 }

// At returns the byte at index i. It panics if i is out of range.
func (v View) At(i int) byte { return v.data[i] }

// Bytes returns the viewed bytes. Callers must not modify them.
func (v View) Bytes() []byte { return v.data }

// String returns a copy of the viewed bytes as a string.
func (v View) String() string { return string(v.data) }

// Equal reports whether the view holds exactly the bytes of s.
func (v View) Equal(s string) bool {
	return string(v.data) == s
}

// EqualView reports whether two views hold the same bytes.
func (v View) EqualView(o View) bool {
	return bytes.Equal(v.data, o.data)
}

// ChopLeft drops n bytes from the front. It returns an empty view when n
// exceeds the view's length.
func (v View) ChopLeft(n int) View {
	if n < 0 || n > len(v.data) {
		return View{}
	}
	return View{data: v.data[n:]}
}

// ChopRight drops n bytes from the back. It returns an empty view when n
// exceeds the view's length.
func (v View) ChopRight(n int) View {
	if n < 0 || n > len(v.data) {
		return View{}
	}
	return View{data: v.data[:len(v.data)-n]}
}

// Prefix returns the first n bytes, clamped to the view's length.
func (v View) Prefix(n int) View {
	if n < 0 {
		return View{}
	}
	if n > len(v.data) {
		n = len(v.data)
	}
	return View{data: v.data[:n]}
}

// Slice returns bytes [start, end), clamped to the view. An inverted range
// gives an empty view.
func (v View) Slice(start, end int) View {
	if start < 0 {
		start = 0
	}
	if end > len(v.data) {
		end = len(v.data)
	}
	if start >= end {
		return View{}
	}
	return View{data: v.data[start:end]}
}

// ScanWhile returns the length of the longest prefix made only of bytes in cs.
func (v View) ScanWhile(cs *Charset) int {
	i := 0
	for i < len(v.data) && cs.Contains(v.data[i]) {
		i++
	}
	return i
}

// ScanUntil returns the offset of the first byte in cs, or Len() when there
// is none. A delimiter that is never found and one found past the last byte
// give the same answer, so callers compare the result against Len().
func (v View) ScanUntil(cs *Charset) int {
	i := 0
	for i < len(v.data) && !cs.Contains(v.data[i]) {
		i++
	}
	return i
}

// Charset is a byte membership table.
type Charset [256]bool

// NewCharset builds a Charset holding every byte of chars.
func NewCharset(chars string) *Charset {
	var cs Charset
	for i := 0; i < len(chars); i++ {
		cs[chars[i]] = true
	}
	return &cs
}

// Contains reports whether b is in the set.
func (cs *Charset) Contains(b byte) bool {
	return cs[b]
}

// Without returns a copy of cs with the bytes of chars removed.
func (cs *Charset) Without(chars string) *Charset {
	out := *cs
	for i := 0; i < len(chars); i++ {
		out[chars[i]] = false
	}
	return &out
}
