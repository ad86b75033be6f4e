// Package cleaner drops duplicate and priceless ticks before they reach
// storage.
package cleaner

import (
	"math"

	"quoteflow/internal/errors"
	"quoteflow/internal/model"
	"quoteflow/pkg/exception"
)

var errMissing = errors.Join(exception.ErrClean, exception.ErrMissingField)

// DefaultThreshold bounds the seen-set between calls.
const DefaultThreshold = 10_000

type Stats struct {
	Seen       int
	Accepted   uint64
	Duplicates uint64
	Invalid    uint64
}

// Cleaner is not safe for concurrent use. The dispatcher loop is its only caller.
type Cleaner struct {
	threshold int
	seen      map[model.DedupKey]struct{}
	stats     Stats
}

func New(threshold int) *Cleaner {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Cleaner{
		threshold: threshold,
		seen:      make(map[model.DedupKey]struct{}, threshold),
	}
}

// Clean returns the ticks not seen before with a usable last price, in
// input order. A tick missing its symbol or datetime fails the whole
// batch and leaves the seen-set untouched.
func (c *Cleaner) Clean(ticks []model.Tick) ([]model.Tick, error) {
	for i := range ticks {
		if ticks[i].Symbol == "" {
			return nil, errors.Wrapf(errMissing, "tick %d symbol", i)
		}
		if ticks[i].Datetime.IsZero() {
			return nil, errors.Wrapf(errMissing, "tick %d (%s) datetime", i, ticks[i].Symbol)
		}
	}

	out := make([]model.Tick, 0, len(ticks))
	for _, t := range ticks {
		key := t.Key()
		if _, ok := c.seen[key]; ok {
			c.stats.Duplicates++
			continue
		}
		if t.LastPrice == 0 || math.IsNaN(t.LastPrice) {
			c.stats.Invalid++
			continue
		}
		c.seen[key] = struct{}{}
		out = append(out, t)
	}
	c.stats.Accepted += uint64(len(out))

	if len(c.seen) > c.threshold {
		clear(c.seen)
	}
	return out, nil
}

func (c *Cleaner) Stats() Stats {
	s := c.stats
	s.Seen = len(c.seen)
	return s
}
