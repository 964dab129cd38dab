// Package source reads ARL programs from files and pipes.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/sambeau/arl/pkg/arl/vec"
)

// ChunkSize is how many bytes ReadPipe asks for per read
const ChunkSize = 1024

// StdinName is the display name used for piped input
const StdinName = "stdin"

// Compression identifies how a source file is encoded
type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
)

func (c Compression) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	default:
		return "none"
	}
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Detect picks the compression for path from its extension, falling back
// to the leading magic bytes of head.
func Detect(path string, head []byte) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return Gzip
	case ".zst":
		return Zstd
	}
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return Gzip
	case bytes.HasPrefix(head, zstdMagic):
		return Zstd
	}
	return None
}

// ReadFile reads the whole of path, decompressing gzip and zstd input
func ReadFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(raw, Detect(path, raw))
}

// Decode undoes compression c on raw
func Decode(raw []byte, c Compression) ([]byte, error) {
	switch c {
	case Gzip:
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return out, nil
	case Zstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(raw, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return out, nil
	default:
		return raw, nil
	}
}

// ReadPipe reads r to the end in ChunkSize reads, collecting the bytes in a
// vec.Vec. The returned slice is owned by the caller.
func ReadPipe(r io.Reader) ([]byte, error) {
	var contents vec.Vec
	var buf [ChunkSize]byte
	for {
		n, err := r.Read(buf[:])
		contents.Append(buf[:n])
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			contents.Free()
			return nil, err
		}
	}
	return contents.Detach(), nil
}

// Read loads name, treating "--" as a request to read stdin. It returns the
// name to show in diagnostics alongside the contents.
func Read(name string, stdin io.Reader) (string, []byte, error) {
	if name == "--" {
		data, err := ReadPipe(stdin)
		return StdinName, data, err
	}
	data, err := ReadFile(name)
	return name, data, err
}

// Encode compresses data with c, for writing test fixtures and archives
func Encode(data []byte, c Compression) ([]byte, error) {
	switch c {
	case Gzip:
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case Zstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	default:
		return data, nil
	}
}
