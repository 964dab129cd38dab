// Package repl is an interactive prompt that scans each entry and shows
// its tokens or syntax tree.
package repl

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"github.com/sambeau/arl/pkg/arl/ast"
	arlerrors "github.com/sambeau/arl/pkg/arl/errors"
	"github.com/sambeau/arl/pkg/arl/format"
	"github.com/sambeau/arl/pkg/arl/lexer"
	"github.com/sambeau/arl/pkg/arl/parser"
)

const PROMPT = "arl> "
const PROMPT_AST = "ast> "
const CONTINUATION_PROMPT = "...> "

// InputName is the file name shown in diagnostics for REPL entries
const InputName = "<repl>"

// Mode selects what the REPL prints for each entry
type Mode int

const (
	ModeTokens Mode = iota
	ModeAST
	ModeJSON
)

var commands = []string{":help", ":tokens", ":ast", ":json", ":symbols", ":clear"}

// isCommand reports whether a line is a REPL command. Other lines starting
// with ':' are scanned, since ':' may begin a symbol.
func isCommand(line string) bool {
	switch line {
	case ":h", ":?":
		return true
	}
	for _, c := range commands {
		if line == c {
			return true
		}
	}
	return false
}

// Session holds the state of one REPL run independently of the terminal
type Session struct {
	mode    Mode
	symbols map[string]bool
	buf     strings.Builder
}

// NewSession creates a session printing tokens
func NewSession() *Session {
	return &Session{symbols: make(map[string]bool)}
}

// Prompt returns the prompt for the next line
func (s *Session) Prompt() string {
	if s.buf.Len() > 0 {
		return CONTINUATION_PROMPT
	}
	if s.mode == ModeAST {
		return PROMPT_AST
	}
	return PROMPT
}

// Pending reports whether an entry is waiting for more lines
func (s *Session) Pending() bool {
	return s.buf.Len() > 0
}

// Reset drops any partially entered input
func (s *Session) Reset() {
	s.buf.Reset()
}

// Feed handles one line of input. It returns the completed entry, if the
// line finished one, and whether the user asked to quit.
func (s *Session) Feed(input string, out io.Writer) (entry string, quit bool) {
	trimmed := strings.TrimSpace(input)

	if s.buf.Len() == 0 {
		if trimmed == "exit" || trimmed == "quit" {
			fmt.Fprintln(out, "Goodbye!")
			return "", true
		}
		if isCommand(trimmed) {
			s.command(trimmed, out)
			return "", false
		}
		if trimmed == "" {
			return "", false
		}
	} else {
		s.buf.WriteString("\n")
	}
	s.buf.WriteString(input)

	full := s.buf.String()
	if needsMoreInput(full) {
		return "", false
	}
	s.buf.Reset()

	s.eval(full, out)
	return full, false
}

// eval scans one complete entry and prints it in the current mode
func (s *Session) eval(input string, out io.Writer) {
	src := []byte(input)
	l := lexer.NewWithFilename(src, InputName)
	p := parser.New(l)
	program := p.ParseProgram()

	if errs := p.StructuredErrors(); len(errs) != 0 {
		printStructuredErrors(out, errs, src)
		return
	}
	defer program.Free()

	s.remember(program)

	switch s.mode {
	case ModeAST:
		format.AST(out, program)
		io.WriteString(out, "\n")
	case ModeJSON:
		format.WriteJSON(out, format.ASTDocument(InputName, program))
	default:
		stream, err := lexer.Lex(src)
		if err != nil {
			fmt.Fprintln(out, err)
			return
		}
		defer stream.Free()
		format.Tokens(out, stream)
		io.WriteString(out, "\n")
	}
}

// remember records user symbols for completion and :symbols
func (s *Session) remember(program *ast.AST) {
	for _, n := range program.All() {
		if n.Kind == ast.NodeSymbol {
			s.symbols[n.Text.String()] = true
		}
	}
}

// Symbols returns the symbols entered so far, sorted
func (s *Session) Symbols() []string {
	names := make([]string, 0, len(s.symbols))
	for name := range s.symbols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// command handles the REPL meta-commands accepted by isCommand
func (s *Session) command(cmd string, out io.Writer) {
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(out, "REPL Commands:")
		fmt.Fprintln(out, "  :help, :h, :?   Show this help")
		fmt.Fprintln(out, "  :tokens         Print the token stream (default)")
		fmt.Fprintln(out, "  :ast            Print the syntax tree")
		fmt.Fprintln(out, "  :json           Print the syntax tree as JSON")
		fmt.Fprintln(out, "  :symbols        List symbols entered so far")
		fmt.Fprintln(out, "  :clear          Forget entered symbols")
		fmt.Fprintln(out, "  exit, quit      Exit the REPL")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "An open string continues onto the next line until it is closed.")
		fmt.Fprintln(out, "Any other line starting with ':' is scanned as ARL, e.g. :foo is a symbol.")

	case ":tokens":
		s.mode = ModeTokens
		fmt.Fprintln(out, "Printing tokens")

	case ":ast":
		s.mode = ModeAST
		fmt.Fprintln(out, "Printing syntax tree")

	case ":json":
		s.mode = ModeJSON
		fmt.Fprintln(out, "Printing JSON")

	case ":symbols":
		names := s.Symbols()
		if len(names) == 0 {
			fmt.Fprintln(out, "(no symbols)")
			return
		}
		for _, name := range names {
			fmt.Fprintf(out, "  %s\n", name)
		}

	case ":clear":
		s.symbols = make(map[string]bool)
		fmt.Fprintln(out, "Symbols cleared")
	}
}

// Complete returns completion suggestions for the word at the end of line
func (s *Session) Complete(line string) []string {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	if line[len(line)-1] == ' ' || line[len(line)-1] == '\t' {
		return nil
	}

	words := strings.Fields(line)
	lastWord := words[len(words)-1]
	prefix := line[:len(line)-len(lastWord)]

	var candidates []string
	if len(words) == 1 && strings.HasPrefix(lastWord, ":") {
		candidates = commands
	} else {
		for _, k := range lexer.Knowns() {
			candidates = append(candidates, k.String())
		}
		candidates = append(candidates, s.Symbols()...)
	}

	var matches []string
	for _, word := range candidates {
		if strings.HasPrefix(word, lastWord) && word != lastWord {
			matches = append(matches, prefix+word)
		}
	}
	sort.Strings(matches)
	return matches
}

// needsMoreInput reports whether input ends inside an open string
func needsMoreInput(input string) bool {
	return strings.Count(input, `"`)%2 == 1
}

func printStructuredErrors(out io.Writer, errs []*arlerrors.ArlError, src []byte) {
	for _, err := range errs {
		format.Diagnostic(out, err, src)
	}
}

// Options configure Start
type Options struct {
	History string // history file, "" disables history
}

// Start runs the REPL on the terminal with line editing, history and tab
// completion until the user quits.
func Start(out io.Writer, version string, opts Options) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)

	session := NewSession()
	line.SetCompleter(session.Complete)

	if opts.History != "" {
		if f, err := os.Open(opts.History); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if f, err := os.Create(opts.History); err == nil {
				line.WriteHistory(f)
				f.Close()
			}
		}()
	}

	fmt.Fprintln(out, "arl", version)
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit, ':help' for commands")
	fmt.Fprintln(out, "")

	for {
		input, err := line.Prompt(session.Prompt())
		if err != nil {
			if err == liner.ErrPromptAborted {
				if session.Pending() {
					fmt.Fprintln(out, "^C (cleared)")
				} else {
					fmt.Fprintln(out, "^C")
				}
				session.Reset()
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		entry, quit := session.Feed(input, out)
		if quit {
			return
		}
		if entry != "" {
			line.AppendHistory(entry)
		}
	}
}
