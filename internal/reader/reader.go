// Package reader streams line-delimited JSON records from a file,
// transparently decompressing gzip input by file extension. It backs the
// corpus, queries, and gold-standard inputs named as external
// collaborators in SPEC_FULL.md §1.
package reader

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/irindex/irindex/internal/errors"
)

// Reader streams records of type T from a newline-delimited JSON file.
type Reader[T any] struct {
	file    *os.File
	gz      *gzip.Reader
	scanner *bufio.Scanner
	path    string
	line    int
}

// Open opens path for streaming. Files ending in .gz are transparently
// decompressed.
func Open[T any](path string) (*Reader[T], error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from trusted CLI/config input
	if err != nil {
		return nil, errors.NewIOError(path, err)
	}

	r := &Reader[T]{file: f, path: path}
	var src io.Reader = f

	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.NewIOError(path, err)
		}
		r.gz = gz
		src = gz
	}

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	r.scanner = scanner
	return r, nil
}

// Next decodes the next non-blank line into a T. It returns (zero, false,
// nil) at end of file.
func (r *Reader[T]) Next() (T, bool, error) {
	var record T
	for r.scanner.Scan() {
		r.line++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return record, false, errors.NewDataError(r.path, r.line, "", err.Error())
		}
		return record, true, nil
	}
	if err := r.scanner.Err(); err != nil {
		return record, false, errors.NewIOError(r.path, err)
	}
	return record, false, nil
}

// All drains the reader into a slice, convenient for small inputs such as
// the queries or gold file.
func (r *Reader[T]) All() ([]T, error) {
	var out []T
	for {
		record, ok, err := r.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, record)
	}
}

// Close releases the underlying file (and gzip reader, if any).
func (r *Reader[T]) Close() error {
	if r.gz != nil {
		r.gz.Close()
	}
	return r.file.Close()
}
