// Package storage persists cleaned ticks.
package storage

import (
	"context"
	"fmt"

	"quoteflow/internal/errors"
	"quoteflow/internal/model"
	"quoteflow/pkg/exception"
)

// Sink persists one batch at a time. Save propagates failures and an empty
// batch is a no-op.
type Sink interface {
	Name() string
	Save(ctx context.Context, ticks []model.Tick) error
	Close() error
}

// MultiSink fans a batch out to every sink in order. Every sink is tried
// even when an earlier one fails.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *MultiSink) Name() string { return "multi" }

func (m *MultiSink) Len() int { return len(m.sinks) }

func (m *MultiSink) Save(ctx context.Context, ticks []model.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Save(ctx, ticks); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{exception.ErrStorage}, errs...)...)
}

func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func storageErr(err error, format string, args ...any) error {
	return errors.Wrapf(errors.Join(exception.ErrStorage, err), format, args...)
}
