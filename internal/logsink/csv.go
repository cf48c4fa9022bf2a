package logsink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// CSVSink appends rows to a local CSV file, writing the header row once when
// the file is new.
type CSVSink struct {
	mu   sync.Mutex
	path string
}

// NewCSVSink builds a CSV sink under dataDir.
func NewCSVSink(dataDir string) (*CSVSink, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("csv sink: create data directory: %w", err)
	}
	return &CSVSink{path: filepath.Join(dataDir, "zodiai_data.csv")}, nil
}

// Name implements Sink.
func (s *CSVSink) Name() string { return "csv" }

// Path returns the CSV file location.
func (s *CSVSink) Path() string { return s.path }

// Append implements Sink.
func (s *CSVSink) Append(_ context.Context, row Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("csv sink: open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("csv sink: stat file: %w", err)
	}

	writer := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := writer.Write(headerColumns); err != nil {
			return fmt.Errorf("csv sink: write header: %w", err)
		}
	}
	if err := writer.Write(row.values()); err != nil {
		return fmt.Errorf("csv sink: write row: %w", err)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("csv sink: flush: %w", err)
	}
	return nil
}
