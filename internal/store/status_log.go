package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ahrav/go-judicatura/internal/domain"
)

// JSONLStatusLog appends one JSON line per scored candidate. Lines from
// earlier runs are kept and told apart by run id.
type JSONLStatusLog struct {
	mu   sync.Mutex
	file *os.File
}

// OpenStatusLog opens path for appending, creating it if needed.
func OpenStatusLog(path string) (*JSONLStatusLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open status log: %w", err)
	}
	return &JSONLStatusLog{file: f}, nil
}

// Append writes rec as a single line.
func (l *JSONLStatusLog) Append(rec domain.StatusRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode status record: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.Write(line); err != nil {
		return fmt.Errorf("failed to append status record: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (l *JSONLStatusLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
