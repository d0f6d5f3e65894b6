package recorder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONLRecorder appends one JSON object per sample to a file. This is the
// default sink for bring-up runs that have no database at hand.
type JSONLRecorder struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	closed bool
}

// NewJSONLRecorder opens (or creates) the sample file in append mode.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open sample file %s: %w", path, err)
	}
	return &JSONLRecorder{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// Record implements Recorder.
func (r *JSONLRecorder) Record(ctx context.Context, s Sample) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	line, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("recorder already closed")
	}
	if _, err := r.writer.Write(line); err != nil {
		return fmt.Errorf("failed to write sample: %w", err)
	}
	if err := r.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write sample: %w", err)
	}
	return nil
}

// Close flushes and closes the sample file.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.writer.Flush(); err != nil {
		_ = r.file.Close()
		return fmt.Errorf("failed to flush sample file: %w", err)
	}
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("failed to close sample file: %w", err)
	}
	return nil
}

var _ Recorder = (*JSONLRecorder)(nil)
