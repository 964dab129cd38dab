// Package index records where symbols and keywords occur across ARL
// sources, in a SQL database, so they can be looked up by name.
//
// The default backend is a local SQLite file. PostgreSQL and MySQL are
// supported for shared indexes. Files whose content hash is unchanged
// since the last run are not re-scanned.
package index

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	arlerrors "github.com/sambeau/arl/pkg/arl/errors"
	"github.com/sambeau/arl/pkg/arl/lexer"
	"github.com/sambeau/arl/pkg/arl/logging"

	// SQL drivers registered with database/sql
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ErrTooLarge is returned for sources over the configured size limit
var ErrTooLarge = errors.New("source exceeds max file size")

// Config selects the database and limits for an Index
type Config struct {
	Driver      string // sqlite, postgres, mysql
	DSN         string
	MaxFileSize int64 // 0 means no limit
}

// Index is a symbol index backed by database/sql.
type Index struct {
	mu          sync.RWMutex
	db          *sql.DB
	driver      string
	runID       string
	maxFileSize int64
	log         *logging.Logger
}

// Occurrence is one place a name appears
type Occurrence struct {
	Path   string `json:"path"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Offset int    `json:"offset"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// FileInfo describes one indexed file
type FileInfo struct {
	Path      string    `json:"path"`
	Hash      string    `json:"hash"`
	Size      int64     `json:"size"`
	Tokens    int       `json:"tokens"`
	RunID     string    `json:"run_id"`
	IndexedAt time.Time `json:"indexed_at"`
}

// Result reports what IndexFile did
type Result struct {
	Path    string
	Hash    string
	Tokens  int
	Symbols int
	Skipped bool // content unchanged since it was last indexed
}

// driverNames maps config driver names to database/sql driver names
var driverNames = map[string]string{
	"sqlite":   "sqlite",
	"postgres": "postgres",
	"mysql":    "mysql",
}

// Open connects to the database and creates the schema if needed.
func Open(ctx context.Context, cfg Config, log *logging.Logger) (*Index, error) {
	name, ok := driverNames[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unknown index driver %q", cfg.Driver)
	}
	if log == nil {
		log = logging.Null()
	}

	dsn := cfg.DSN
	if cfg.Driver == "sqlite" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
		// WAL mode lets lookups run while a watcher re-indexes
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to index database: %w", err)
	}

	if cfg.Driver == "sqlite" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	idx := &Index{
		db:          db,
		driver:      cfg.Driver,
		runID:       uuid.NewString(),
		maxFileSize: cfg.MaxFileSize,
		log:         log,
	}

	if err := idx.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating index schema: %w", err)
	}

	log.Debug("index opened", "driver", cfg.Driver, "run", idx.runID)
	return idx, nil
}

// createSchema creates the tables if they don't exist.
func (idx *Index) createSchema(ctx context.Context) error {
	for _, stmt := range schemaFor(idx.driver) {
		if _, err := idx.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func schemaFor(driver string) []string {
	files := `
		CREATE TABLE IF NOT EXISTS files (
			path VARCHAR(512) PRIMARY KEY,
			hash VARCHAR(64) NOT NULL,
			size BIGINT NOT NULL,
			tokens INTEGER NOT NULL,
			run_id VARCHAR(36) NOT NULL,
			indexed_at BIGINT NOT NULL
		)`

	if driver == "mysql" {
		// MySQL has no CREATE INDEX IF NOT EXISTS
		return []string{files, `
		CREATE TABLE IF NOT EXISTS symbols (
			path VARCHAR(512) NOT NULL,
			name VARCHAR(255) NOT NULL,
			kind VARCHAR(16) NOT NULL,
			byte_offset INTEGER NOT NULL,
			line INTEGER NOT NULL,
			col INTEGER NOT NULL,
			INDEX idx_symbols_name (name),
			INDEX idx_symbols_path (path)
		)`}
	}

	return []string{files, `
		CREATE TABLE IF NOT EXISTS symbols (
			path VARCHAR(512) NOT NULL,
			name VARCHAR(255) NOT NULL,
			kind VARCHAR(16) NOT NULL,
			byte_offset INTEGER NOT NULL,
			line INTEGER NOT NULL,
			col INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name)`,
		`CREATE INDEX IF NOT EXISTS idx_symbols_path ON symbols(path)`,
	}
}

// rebind rewrites ? placeholders as $1, $2... for PostgreSQL
func rebind(driver, query string) string {
	if driver != "postgres" {
		return query
	}
	var sb strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

func (idx *Index) q(query string) string {
	return rebind(idx.driver, query)
}

// RunID identifies this Index session; every file it indexes records it
func (idx *Index) RunID() string {
	return idx.runID
}

// Hash returns the hex BLAKE2b-256 digest used to detect changed sources
func Hash(src []byte) string {
	sum := blake2b.Sum256(src)
	return hex.EncodeToString(sum[:])
}

// IndexFile scans src and replaces every recorded occurrence for path.
// Sources whose hash matches the stored one are skipped.
func (idx *Index) IndexFile(ctx context.Context, path string, src []byte) (Result, error) {
	res := Result{Path: path, Hash: Hash(src)}

	if idx.maxFileSize > 0 && int64(len(src)) > idx.maxFileSize {
		return res, fmt.Errorf("indexing %s (%s): %w", path, logging.Size(len(src)), ErrTooLarge)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	var stored string
	err := idx.db.QueryRowContext(ctx, idx.q(`SELECT hash FROM files WHERE path = ?`), path).Scan(&stored)
	switch {
	case err == nil && stored == res.Hash:
		res.Skipped = true
		idx.log.Debug("index unchanged", "path", path)
		return res, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return res, fmt.Errorf("indexing %s: %w", path, err)
	}

	stream, err := lexer.Lex(src)
	if err != nil {
		// occurrences from an earlier, valid version no longer exist
		if rmErr := idx.remove(ctx, path); rmErr != nil {
			idx.log.Warn("cannot drop stale rows", "path", path, "err", rmErr)
		}
		return res, fmt.Errorf("indexing %s: %w", path, err)
	}
	defer stream.Free()
	res.Tokens = stream.Len()

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("indexing %s: %w", path, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, idx.q(`DELETE FROM symbols WHERE path = ?`), path); err != nil {
		return res, fmt.Errorf("indexing %s: %w", path, err)
	}
	if _, err := tx.ExecContext(ctx, idx.q(`DELETE FROM files WHERE path = ?`), path); err != nil {
		return res, fmt.Errorf("indexing %s: %w", path, err)
	}
	if _, err := tx.ExecContext(ctx,
		idx.q(`INSERT INTO files (path, hash, size, tokens, run_id, indexed_at) VALUES (?, ?, ?, ?, ?, ?)`),
		path, res.Hash, int64(len(src)), res.Tokens, idx.runID, time.Now().Unix(),
	); err != nil {
		return res, fmt.Errorf("indexing %s: %w", path, err)
	}

	insert, err := tx.PrepareContext(ctx,
		idx.q(`INSERT INTO symbols (path, name, kind, byte_offset, line, col) VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return res, fmt.Errorf("indexing %s: %w", path, err)
	}
	defer insert.Close()

	lines := lexer.NewLines(stream.Source())
	for _, tok := range stream.All() {
		if tok.Kind == lexer.KindString {
			continue
		}
		line, col := lines.Position(tok.Offset)
		if _, err := insert.ExecContext(ctx, path, tok.Text.String(), tok.Kind.String(), tok.Offset, line, col); err != nil {
			return res, fmt.Errorf("indexing %s: %w", path, err)
		}
		res.Symbols++
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("indexing %s: %w", path, err)
	}

	idx.log.Debug("indexed", "path", path, "size", logging.Size(len(src)), "symbols", res.Symbols)
	return res, nil
}

// Remove forgets everything recorded for path
func (idx *Index) Remove(ctx context.Context, path string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.remove(ctx, path)
}

func (idx *Index) remove(ctx context.Context, path string) error {
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, idx.q(`DELETE FROM symbols WHERE path = ?`), path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	if _, err := tx.ExecContext(ctx, idx.q(`DELETE FROM files WHERE path = ?`), path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return tx.Commit()
}

// Lookup returns every occurrence of name, ordered by path and offset.
// When there are none the error is an *errors.ArlError that suggests a
// close name if one is indexed.
func (idx *Index) Lookup(ctx context.Context, name string) ([]Occurrence, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rows, err := idx.db.QueryContext(ctx, idx.q(`
		SELECT path, name, kind, byte_offset, line, col
		FROM symbols
		WHERE name = ?
		ORDER BY path, byte_offset
	`), name)
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", name, err)
	}
	defer rows.Close()

	var out []Occurrence
	for rows.Next() {
		var o Occurrence
		if err := rows.Scan(&o.Path, &o.Name, &o.Kind, &o.Offset, &o.Line, &o.Column); err != nil {
			return nil, fmt.Errorf("looking up %s: %w", name, err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("looking up %s: %w", name, err)
	}

	if len(out) == 0 {
		names, err := idx.names(ctx)
		if err != nil {
			return nil, err
		}
		return nil, arlerrors.NewNotFound(name, names)
	}
	return out, nil
}

// Names returns every distinct indexed name in sorted order
func (idx *Index) Names(ctx context.Context) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.names(ctx)
}

func (idx *Index) names(ctx context.Context) ([]string, error) {
	rows, err := idx.db.QueryContext(ctx, `SELECT DISTINCT name FROM symbols ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Files lists the indexed files in path order
func (idx *Index) Files(ctx context.Context) ([]FileInfo, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rows, err := idx.db.QueryContext(ctx,
		`SELECT path, hash, size, tokens, run_id, indexed_at FROM files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	defer rows.Close()

	var files []FileInfo
	for rows.Next() {
		var f FileInfo
		var indexedAt int64
		if err := rows.Scan(&f.Path, &f.Hash, &f.Size, &f.Tokens, &f.RunID, &indexedAt); err != nil {
			return nil, err
		}
		f.IndexedAt = time.Unix(indexedAt, 0)
		files = append(files, f)
	}
	return files, rows.Err()
}

// Close closes the database connection.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.db.Close()
}
