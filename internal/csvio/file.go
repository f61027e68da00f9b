// Package csvio persists datasets as delimited text. Paths ending in .sz are
// wrapped in the Snappy framing format.
package csvio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
)

// SnappyExt marks Snappy-framed files.
const SnappyExt = ".sz"

type writeCloser struct {
	io.Writer
	closers []io.Closer
	flush   func() error
}

func (w *writeCloser) Close() error {
	var first error
	if w.flush != nil {
		first = w.flush()
	}
	for _, c := range w.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type readCloser struct {
	io.Reader
	io.Closer
}

// Create opens path for writing, creating parent directories.
func Create(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csvio: create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csvio: create %s: %w", path, err)
	}

	if strings.HasSuffix(path, SnappyExt) {
		sw := snappy.NewBufferedWriter(f)
		return &writeCloser{Writer: sw, closers: []io.Closer{sw, f}}, nil
	}
	bw := bufio.NewWriterSize(f, 1<<20)
	return &writeCloser{Writer: bw, closers: []io.Closer{f}, flush: bw.Flush}, nil
}

// Open opens path for reading, decoding Snappy framing when needed.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvio: open %s: %w", path, err)
	}
	if strings.HasSuffix(path, SnappyExt) {
		return &readCloser{Reader: snappy.NewReader(f), Closer: f}, nil
	}
	return &readCloser{Reader: bufio.NewReaderSize(f, 1<<20), Closer: f}, nil
}
