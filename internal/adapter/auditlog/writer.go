// Package auditlog appends decoded inbound documents to a local
// newline-delimited JSON file, used as a raw-input replay buffer independent
// of the relational store.
package auditlog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/satlomas/station-ingest/internal/domain"
)

// Writer appends one JSON document per line to an append-only file. A single
// Writer is shared by all concurrently processed messages; the mutex keeps
// appends sequential so lines never interleave.
type Writer struct {
	mu   sync.Mutex
	file *os.File
}

// Open creates or opens the audit log at path in append mode.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log %s: %w", path, err)
	}
	return &Writer{file: f}, nil
}

// Append serializes doc as one compact JSON line. Failures are reported to
// the caller but are non-fatal to the pipeline.
func (w *Writer) Append(doc domain.Document) error {
	line, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal audit line: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.file.Write(line); err != nil {
		return fmt.Errorf("append audit line: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
