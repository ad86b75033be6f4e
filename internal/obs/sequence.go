package obs

import (
	"sync/atomic"

	"quoteflow/internal/model/enum"
)

// Sequencer hands out per-source monotonically increasing sequence numbers.
type Sequencer struct {
	next [maxSourceTag + 1]uint64
}

func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Next returns the next sequence for tag, starting at 1.
func (s *Sequencer) Next(tag enum.SourceTag) uint64 {
	if s == nil || !tag.IsAvailable() {
		return 0
	}
	return atomic.AddUint64(&s.next[tag], 1)
}
