package services

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"github.com/codyseavey/tcg-signals/internal/models"
)

// RowSink receives dataset rows one at a time. Each WriteRow must leave the
// row durable so an interrupted run keeps everything written so far.
type RowSink interface {
	WriteRow(row models.DatasetRow) error
	Close() error
}

// CSVSink writes the fixed dataset columns, flushing after every row.
type CSVSink struct {
	w      *csv.Writer
	closer io.Closer
}

// NewCSVSink writes the header to w. If w is an io.Closer, Close closes it.
func NewCSVSink(w io.Writer) (*CSVSink, error) {
	s := &CSVSink{w: csv.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	if err := s.w.Write(models.DatasetColumns); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	return s, nil
}

func (s *CSVSink) WriteRow(row models.DatasetRow) error {
	if err := s.w.Write(row.CSVRecord()); err != nil {
		return fmt.Errorf("failed to write csv row: %w", err)
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *CSVSink) Close() error {
	s.w.Flush()
	err := s.w.Error()
	if s.closer != nil {
		err = errors.Join(err, s.closer.Close())
	}
	return err
}

// JSONLSink writes one JSON object per row, including reason and summary.
type JSONLSink struct {
	enc    *json.Encoder
	closer io.Closer
}

func NewJSONLSink(w io.Writer) *JSONLSink {
	s := &JSONLSink{enc: json.NewEncoder(w)}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

func (s *JSONLSink) WriteRow(row models.DatasetRow) error {
	if err := s.enc.Encode(row); err != nil {
		return fmt.Errorf("failed to write json row: %w", err)
	}
	return nil
}

func (s *JSONLSink) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// OpenFileSink truncates path and picks the format from its extension:
// .jsonl/.ndjson for JSON Lines, anything else for CSV.
func OpenFileSink(path string) (RowSink, error) {
	if path == "" {
		return nil, errors.New("output path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	if IsJSONLPath(path) {
		return NewJSONLSink(f), nil
	}
	sink, err := NewCSVSink(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return sink, nil
}

// IsJSONLPath reports whether OpenFileSink writes JSON Lines to path. Only
// JSON Lines output carries summaries.
func IsJSONLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return true
	}
	return false
}

// DBSink stores rows in dataset_rows under one run id.
type DBSink struct {
	db    *gorm.DB
	runID string
}

func NewDBSink(db *gorm.DB, runID string) *DBSink {
	return &DBSink{db: db, runID: runID}
}

func (s *DBSink) WriteRow(row models.DatasetRow) error {
	row.ID = 0
	row.RunID = s.runID
	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save dataset row for %q: %w", row.CardName, err)
	}
	return nil
}

func (s *DBSink) Close() error { return nil }

// MultiSink fans each row out to several sinks, in order.
type MultiSink []RowSink

func (m MultiSink) WriteRow(row models.DatasetRow) error {
	var errs []error
	for _, s := range m {
		if err := s.WriteRow(row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MemorySink collects rows in memory.
type MemorySink struct {
	Rows []models.DatasetRow
}

func (m *MemorySink) WriteRow(row models.DatasetRow) error {
	m.Rows = append(m.Rows, row)
	return nil
}

func (m *MemorySink) Close() error { return nil }
