// Package obslog writes retrieval-cycle observation records as JSONL.
// Records are an offline analysis aid; failures to write never fail a query.
package obslog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CycleRecord captures one retrieval cycle end to end.
type CycleRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	Query          string    `json:"query"`
	RestaurantID   string    `json:"restaurant_id"`
	Intents        []string  `json:"intents"`
	PositiveTerms  []string  `json:"positive_terms"`
	NegativeTerms  []string  `json:"negative_terms"`
	PositiveDishes []string  `json:"positive_dishes"`
	NegativeDishes []string  `json:"negative_dishes"`
	UniqueDishes   []string  `json:"unique_dishes"`
	RerankedDishes []string  `json:"reranked_dishes"`
	FilteredCount  int       `json:"filtered_count"`
}

// Recorder persists cycle records.
type Recorder interface {
	Record(rec CycleRecord)
}

// FileRecorder appends JSONL records to a single file.
type FileRecorder struct {
	mu     sync.Mutex
	f      *os.File
	logger *zap.Logger
}

// NewFileRecorder opens (creating if needed) the JSONL file at path.
func NewFileRecorder(path string, logger *zap.Logger) (*FileRecorder, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create obslog dir: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open obslog file: %w", err)
	}

	return &FileRecorder{f: f, logger: logger}, nil
}

// Record appends one record. Write errors are logged and swallowed.
func (r *FileRecorder) Record(rec CycleRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	line, err := json.Marshal(rec)
	if err != nil {
		r.logger.Warn("obslog marshal failed", zap.Error(err))
		return
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.f.Write(line); err != nil {
		r.logger.Warn("obslog write failed", zap.Error(err))
	}
}

// Close closes the underlying file.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.f.Close(); err != nil {
		return fmt.Errorf("close obslog file: %w", err)
	}
	return nil
}

// Nop discards all records. Used when observation logging is disabled.
type Nop struct{}

func (Nop) Record(CycleRecord) {}
