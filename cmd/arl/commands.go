package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sambeau/arl/config"
	arlerrors "github.com/sambeau/arl/pkg/arl/errors"
	"github.com/sambeau/arl/pkg/arl/format"
	"github.com/sambeau/arl/pkg/arl/index"
	"github.com/sambeau/arl/pkg/arl/lexer"
	"github.com/sambeau/arl/pkg/arl/logging"
	"github.com/sambeau/arl/pkg/arl/parser"
	"github.com/sambeau/arl/pkg/arl/repl"
	"github.com/sambeau/arl/pkg/arl/source"
	"github.com/sambeau/arl/pkg/arl/watch"
)

// read loads name and reports IO failures as IO-0001
func (e *env) read(name string) (string, []byte, error) {
	display, src, err := source.Read(name, e.stdin)
	if err != nil {
		reason := err.Error()
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			reason = pathErr.Err.Error()
		}
		e.report(arlerrors.New("IO-0001", map[string]any{"Path": name, "Reason": reason}), nil)
		return display, nil, errFailed
	}
	e.log.Debug("read", "file", display, "size", logging.Size(len(src)))
	return display, src, nil
}

// report prints a diagnostic, as JSON on stdout when JSON output is on
func (e *env) report(err *arlerrors.ArlError, src []byte) {
	if e.json {
		format.WriteJSON(e.stdout, format.Document{File: err.File, Error: err})
		return
	}
	format.Diagnostic(e.stderr, err, src)
}

// scan lexes src and prints a diagnostic on failure
func (e *env) scan(display string, src []byte) (*lexer.Stream, error) {
	stream, err := lexer.Lex(src)
	if err != nil {
		arlErr, ok := arlerrors.FromError(err, src, display)
		if !ok {
			return nil, err
		}
		e.report(arlErr, src)
		return nil, errFailed
	}
	return stream, nil
}

// tokens prints the token stream of one file
func (e *env) tokens(name string) error {
	display, src, err := e.read(name)
	if err != nil {
		return err
	}
	stream, err := e.scan(display, src)
	if err != nil {
		return err
	}
	defer stream.Free()

	e.log.Debug("lexed", "file", display, "tokens", logging.Count(stream.Len()))
	if e.json {
		return format.WriteJSON(e.stdout, format.TokensDocument(display, stream))
	}
	if err := format.Tokens(e.stdout, stream); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout)
	return nil
}

// check scans every file and fails if any of them fails
func (e *env) check(names []string) error {
	if len(names) == 0 {
		return usageError("check")
	}
	failed := 0
	tokens := 0
	for _, name := range names {
		display, src, err := e.read(name)
		if err != nil {
			failed++
			continue
		}
		stream, err := e.scan(display, src)
		if err != nil {
			failed++
			continue
		}
		tokens += stream.Len()
		stream.Free()
	}
	e.log.Info("checked", "files", logging.Count(len(names)), "failed", failed, "tokens", logging.Count(tokens))
	if failed > 0 {
		return errFailed
	}
	return nil
}

// ast prints the syntax tree of one file
func (e *env) ast(names []string) error {
	if len(names) != 1 {
		return usageError("ast")
	}
	display, src, err := e.read(names[0])
	if err != nil {
		return err
	}

	p := parser.New(lexer.NewWithFilename(src, display))
	program := p.ParseProgram()
	if errs := p.StructuredErrors(); len(errs) != 0 {
		for _, err := range errs {
			e.report(err, src)
		}
		return errFailed
	}
	defer program.Free()

	if e.json {
		return format.WriteJSON(e.stdout, format.ASTDocument(display, program))
	}
	if err := format.AST(e.stdout, program); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout)
	return nil
}

// openIndex opens the configured symbol index
func (e *env) openIndex(ctx context.Context) (*index.Index, error) {
	maxSize, err := config.ParseSize(e.cfg.Index.MaxFileSize)
	if err != nil {
		return nil, err
	}
	idx, err := index.Open(ctx, index.Config{
		Driver:      e.cfg.Index.Driver,
		DSN:         e.cfg.Index.DSN,
		MaxFileSize: maxSize,
	}, e.log)
	if err != nil {
		e.report(arlerrors.New("INDEX-0001", map[string]any{"Reason": err.Error()}), nil)
		return nil, errFailed
	}
	return idx, nil
}

// expand replaces directories with the ARL sources beneath them
func expand(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if watch.HasSourceExt(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// indexOne reads and indexes one file, printing any diagnostic. Files are
// recorded under their absolute path so index and watch agree.
func (e *env) indexOne(ctx context.Context, idx *index.Index, name string) (index.Result, error) {
	display, src, err := e.read(name)
	if err != nil {
		return index.Result{}, err
	}
	key := display
	if name != "--" {
		if abs, err := filepath.Abs(name); err == nil {
			key = abs
		}
	}
	res, err := idx.IndexFile(ctx, key, src)
	if err != nil {
		if arlErr, ok := arlerrors.FromError(err, src, display); ok {
			e.report(arlErr, src)
			return res, errFailed
		}
		e.log.Error("index failed", "file", display, "err", err)
		return res, errFailed
	}
	return res, nil
}

// index records the symbols of every named file
func (e *env) index(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return usageError("index")
	}
	files, err := expand(paths)
	if err != nil {
		return err
	}

	idx, err := e.openIndex(ctx)
	if err != nil {
		return err
	}
	defer idx.Close()

	var indexed, skipped, failed, symbols int
	for _, name := range files {
		res, err := e.indexOne(ctx, idx, name)
		switch {
		case err != nil:
			failed++
		case res.Skipped:
			skipped++
		default:
			indexed++
			symbols += res.Symbols
		}
	}

	e.log.Info("index updated",
		"indexed", logging.Count(indexed),
		"unchanged", logging.Count(skipped),
		"failed", failed,
		"symbols", logging.Count(symbols),
		"run", idx.RunID(),
	)
	if failed > 0 {
		return errFailed
	}
	return nil
}

// lookup lists indexed occurrences of a name
func (e *env) lookup(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("lookup")
	}
	idx, err := e.openIndex(ctx)
	if err != nil {
		return err
	}
	defer idx.Close()

	occ, err := idx.Lookup(ctx, args[0])
	if err != nil {
		var arlErr *arlerrors.ArlError
		if errors.As(err, &arlErr) {
			e.report(arlErr, nil)
			return errFailed
		}
		return err
	}

	if e.json {
		return format.WriteJSON(e.stdout, occ)
	}
	for _, o := range occ {
		fmt.Fprintf(e.stdout, "%s:%d:%d: %s %s\n", o.Path, o.Line, o.Column, o.Kind, o.Name)
	}
	return nil
}

// watch re-scans files as they change, and keeps the index current when
// asked to
func (e *env) watch(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("watch", flag.ContinueOnError)
	flags.SetOutput(e.stderr)
	withIndex := flags.Bool("index", false, "Update the symbol index on change")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		return usageError("watch")
	}

	var idx *index.Index
	if *withIndex {
		var err error
		if idx, err = e.openIndex(ctx); err != nil {
			return err
		}
		defer idx.Close()
	}

	rescan := func(ctx context.Context, ev watch.Event) {
		if ev.Removed {
			e.log.Info("removed", "file", ev.Path)
			if idx != nil {
				if err := idx.Remove(ctx, ev.Path); err != nil {
					e.log.Error("index remove failed", "file", ev.Path, "err", err)
				}
			}
			return
		}
		if idx != nil {
			if res, err := e.indexOne(ctx, idx, ev.Path); err == nil {
				e.log.Info("ok", "file", ev.Path, "tokens", logging.Count(res.Tokens), "unchanged", res.Skipped)
			}
			return
		}
		display, src, err := e.read(ev.Path)
		if err != nil {
			return
		}
		if stream, err := e.scan(display, src); err == nil {
			e.log.Info("ok", "file", display, "tokens", logging.Count(stream.Len()))
			stream.Free()
		}
	}

	w, err := watch.New(e.cfg.Watch.Debounce, rescan, e.log)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	for _, p := range flags.Args() {
		if err := w.Add(p); err != nil {
			w.Close()
			return err
		}
	}

	files, err := expand(flags.Args())
	if err != nil {
		w.Close()
		return err
	}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			abs = f
		}
		rescan(ctx, watch.Event{Path: abs})
	}

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// repl starts the interactive scanner
func (e *env) repl() error {
	repl.Start(e.stdout, Version, repl.Options{History: e.cfg.REPL.History})
	return nil
}

func usageError(command string) error {
	return arlerrors.New("USAGE-0001", map[string]any{"Command": command})
}
