// Package pkg provides utilities for tcoracle.
package pkg

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// FileSpill is an append-only, JSON-lines backed list of items of type T.
// Reopening an existing spill resumes after its last complete item.
type FileSpill[T any] interface {
	Len() uint64
	Path() string
	Append(item T) error
	Range(f func(index uint64, item T) error) error
	Close() error
}

type fileSpillImpl[T any] struct {
	path   string
	file   *os.File
	mu     sync.Mutex
	length uint64
}

// Append implements FileSpill.
func (f *fileSpillImpl[T]) Append(item T) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return errClosed
	}

	line, err := json.Marshal(item)
	if err != nil {
		slog.Error("failed to encode item", "path", f.path, "index", f.length, "error", err)
		return fmt.Errorf("failed to encode item: %w", err)
	}

	if _, err := f.file.Write(append(line, '\n')); err != nil {
		slog.Error("failed to write item", "path", f.path, "index", f.length, "error", err)
		return fmt.Errorf("failed to write item: %w", err)
	}

	f.length++
	slog.Debug("appended item", "path", f.path, "index", f.length-1)

	return nil
}

// Path implements FileSpill.
func (f *fileSpillImpl[T]) Path() string {
	return f.path
}

// Close implements FileSpill.
func (f *fileSpillImpl[T]) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}

	if err := f.file.Close(); err != nil {
		slog.Error("failed to close file", "path", f.path, "error", err)
		return err
	}

	f.file = nil
	slog.Debug("closed filespill", "path", f.path, "length", f.length)

	return nil
}

var errClosed = errors.New("filespill is closed")

// Len implements FileSpill.
func (f *fileSpillImpl[T]) Len() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.length
}

// Range implements FileSpill.
func (f *fileSpillImpl[T]) Range(fn func(index uint64, item T) error) error {
	f.mu.Lock()
	length := f.length
	f.mu.Unlock()

	file, err := os.Open(f.path)
	if err != nil {
		slog.Error("failed to open file for range", "path", f.path, "error", err)
		return fmt.Errorf("failed to open file: %w", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("failed to close file", "path", f.path, "error", err)
		}
	}()

	reader := bufio.NewReader(file)

	for i := range length {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			slog.Error("failed to read item during range", "path", f.path, "index", i, "error", err)
			return fmt.Errorf("failed to read item at index %d: %w", i, err)
		}

		var item T
		if err := json.Unmarshal(line, &item); err != nil {
			slog.Error("failed to decode item during range", "path", f.path, "index", i, "error", err)
			return fmt.Errorf("failed to decode item at index %d: %w", i, err)
		}

		if err := fn(i, item); err != nil {
			return err
		}
	}

	slog.Debug("range completed", "path", f.path, "count", length)

	return nil
}

// OpenFileSpill opens the spill at path, creating the file if needed. Its
// directory must exist. A trailing partial line left by an interrupted
// writer is dropped.
func OpenFileSpill[T any](path string) (FileSpill[T], error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		slog.Error("failed to open filespill", "path", path, "error", err)
		return nil, fmt.Errorf("failed to open filespill: %w", err)
	}

	length, complete, err := countLines(file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	if err := file.Truncate(complete); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to truncate filespill: %w", err)
	}

	if _, err := file.Seek(complete, io.SeekStart); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to seek filespill: %w", err)
	}

	slog.Debug("opened filespill", "path", path, "length", length)

	return &fileSpillImpl[T]{path: path, file: file, length: length}, nil
}

// countLines returns the number of newline-terminated lines and the byte
// offset just past the last one.
func countLines(r io.Reader) (uint64, int64, error) {
	var (
		lines  uint64
		offset int64
		pos    int64
	)

	buf := make([]byte, 32*1024)

	for {
		n, err := r.Read(buf)

		chunk := buf[:n]
		for {
			i := bytes.IndexByte(chunk, '\n')
			if i < 0 {
				break
			}

			lines++
			offset = pos + int64(i) + 1
			pos += int64(i) + 1
			chunk = chunk[i+1:]
		}

		pos += int64(len(chunk))

		if errors.Is(err, io.EOF) {
			return lines, offset, nil
		}

		if err != nil {
			return 0, 0, fmt.Errorf("failed to scan filespill: %w", err)
		}
	}
}
