package lexer

import (
	"sort"

	"github.com/sambeau/arl/pkg/arl/sv"
)

// Cursor tracks the scan position as a byte offset into an immutable
// source. It only moves forward.
type Cursor struct {
	offset   int
	contents sv.View
}

// NewCursor creates a cursor at the start of contents
func NewCursor(contents sv.View) *Cursor {
	return &Cursor{contents: contents}
}

// Offset returns the current byte offset
func (c *Cursor) Offset() int { return c.offset }

// Size returns the length of the whole source
func (c *Cursor) Size() int { return c.contents.Len() }

// EOS reports whether the cursor has reached the end of the source
func (c *Cursor) EOS() bool {
	return c.offset >= c.contents.Len()
}

// Peek returns the current byte, or 0 at end of source
func (c *Cursor) Peek() byte {
	if c.EOS() {
		return 0
	}
	return c.contents.At(c.offset)
}

// Advance moves forward n bytes, stopping at the end of the source
func (c *Cursor) Advance(n int) {
	if n < 0 {
		return
	}
	if c.offset+n >= c.contents.Len() {
		c.offset = c.contents.Len()
	} else {
		c.offset += n
	}
}

// Rest returns a view of everything from the cursor onwards
func (c *Cursor) Rest() sv.View {
	return c.contents.ChopLeft(c.offset)
}

// Position derives the line and column of the cursor
func (c *Cursor) Position() (line, column int) {
	return LineCol(c.contents, c.offset)
}

// LineCol derives the line and column of offset by re-scanning src from the
// start. Lines count from 1 and columns from 0; each '\n' starts a new line.
// Offsets past the end are clamped.
func LineCol(src sv.View, offset int) (line, column int) {
	line = 1
	offset = min(offset, src.Len())
	for i := 0; i < offset; i++ {
		if src.At(i) == '\n' {
			line++
			column = 0
		} else {
			column++
		}
	}
	return line, column
}

// Lines resolves many offsets against one source without re-scanning it
// for each lookup.
type Lines struct {
	src    sv.View
	starts []int
}

// NewLines records the start offset of every line in src
func NewLines(src sv.View) *Lines {
	starts := []int{0}
	for i := 0; i < src.Len(); i++ {
		if src.At(i) == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Lines{src: src, starts: starts}
}

// Count returns the number of lines
func (l *Lines) Count() int { return len(l.starts) }

// Position gives the same answer as LineCol(src, offset)
func (l *Lines) Position(offset int) (line, column int) {
	offset = max(min(offset, l.src.Len()), 0)
	i := sort.Search(len(l.starts), func(i int) bool { return l.starts[i] > offset }) - 1
	return i + 1, offset - l.starts[i]
}

// Line returns the text of line n (1-based) without its newline
func (l *Lines) Line(n int) sv.View {
	if n < 1 || n > len(l.starts) {
		return sv.View{}
	}
	start := l.starts[n-1]
	if n == len(l.starts) {
		return l.src.ChopLeft(start)
	}
	return l.src.Slice(start, l.starts[n]-1)
}
