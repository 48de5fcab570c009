package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Sink persists a report.
type Sink interface {
	Write(ctx context.Context, r *Report) error
}

// FileSink writes the report as JSON to Path.
type FileSink struct {
	Path string
}

// Write implements Sink.
func (s FileSink) Write(_ context.Context, r *Report) error {
	data, err := r.JSON()
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(s.Path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", s.Path, err)
	}
	return nil
}

// MultiSink writes to every sink and joins their errors.
type MultiSink []Sink

// Write implements Sink.
func (m MultiSink) Write(ctx context.Context, r *Report) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
