// Package logging provides the leveled logger used by the arl command and
// its long-running tools (watch, index, repl).
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Level orders log messages by severity
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLevel accepts debug, info, warn and error in any case
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Entry is one log line in JSON form
type Entry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Options configure a Logger
type Options struct {
	Level  Level
	Format string // "text" or "json"
	Color  string // "auto", "always" or "never"
}

// Logger writes leveled messages with key/value fields
type Logger struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format string
	color  bool
	now    func() time.Time
}

// New creates a logger writing to w
func New(w io.Writer, opts Options) *Logger {
	format := opts.Format
	if format == "" {
		format = "text"
	}
	return &Logger{
		w:      w,
		level:  opts.Level,
		format: format,
		color:  useColor(w, opts.Color),
		now:    time.Now,
	}
}

// Null returns a logger that discards everything
func Null() *Logger {
	return New(io.Discard, Options{Level: LevelError + 1})
}

// useColor decides whether ANSI colors are written. "auto" colors only
// terminals and honors NO_COLOR.
func useColor(w io.Writer, mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Enabled reports whether messages at level are written
func (l *Logger) Enabled(level Level) bool {
	return level >= l.level
}

func (l *Logger) Debug(msg string, kv ...any) { l.log(LevelDebug, msg, kv) }
func (l *Logger) Info(msg string, kv ...any)  { l.log(LevelInfo, msg, kv) }
func (l *Logger) Warn(msg string, kv ...any)  { l.log(LevelWarn, msg, kv) }
func (l *Logger) Error(msg string, kv ...any) { l.log(LevelError, msg, kv) }

func (l *Logger) log(level Level, msg string, kv []any) {
	if !l.Enabled(level) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now()
	if l.format == "json" {
		l.writeJSON(ts, level, msg, kv)
	} else {
		l.writeText(level, msg, kv)
	}
}

func (l *Logger) writeJSON(ts time.Time, level Level, msg string, kv []any) {
	entry := Entry{
		Timestamp: ts.Format(time.RFC3339),
		Level:     strings.ToLower(level.String()),
		Message:   msg,
	}
	if len(kv) > 0 {
		entry.Fields = make(map[string]any, len(kv)/2)
		for i := 0; i < len(kv); i += 2 {
			key, val := pair(kv, i)
			entry.Fields[key] = val
		}
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	fmt.Fprintf(l.w, "%s\n", data)
}

var levelColors = map[Level]string{
	LevelDebug: "\033[90m",
	LevelInfo:  "\033[36m",
	LevelWarn:  "\033[33m",
	LevelError: "\033[31m",
}

const colorReset = "\033[0m"

func (l *Logger) writeText(level Level, msg string, kv []any) {
	var sb strings.Builder
	if l.color {
		sb.WriteString(levelColors[level])
		sb.WriteString(level.String())
		sb.WriteString(colorReset)
	} else {
		sb.WriteString(level.String())
	}
	sb.WriteByte(' ')
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		key, val := pair(kv, i)
		fmt.Fprintf(&sb, " %s=%v", key, val)
	}
	sb.WriteByte('\n')
	io.WriteString(l.w, sb.String())
}

// pair reads the key/value at kv[i]. A trailing key without a value gets
// "!MISSING".
func pair(kv []any, i int) (string, any) {
	key := fmt.Sprint(kv[i])
	if i+1 >= len(kv) {
		return key, "!MISSING"
	}
	return key, kv[i+1]
}

// Size renders a byte count for humans, e.g. "1.2 kB"
func Size(n int) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

var counts = message.NewPrinter(language.English)

// Count renders n with English digit grouping, e.g. "12,345"
func Count(n int) string {
	return counts.Sprintf("%d", n)
}

// Buffered captures log output for tests
type Buffered struct {
	*Logger
	buf *lockedBuffer
}

type lockedBuffer struct {
	mu sync.Mutex
	sb strings.Builder
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}

// NewBuffered creates an uncolored text logger that records every level
func NewBuffered() *Buffered {
	buf := &lockedBuffer{}
	return &Buffered{
		Logger: New(buf, Options{Level: LevelDebug, Format: "text", Color: "never"}),
		buf:    buf,
	}
}

// String returns everything logged so far
func (b *Buffered) String() string {
	return b.buf.String()
}

// Lines returns the logged lines without trailing newlines
func (b *Buffered) Lines() []string {
	s := strings.TrimSuffix(b.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
