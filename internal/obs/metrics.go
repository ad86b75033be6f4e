package obs

import (
	"sync/atomic"
	"time"

	"quoteflow/internal/model/enum"
)

const maxSourceTag = int(enum.SourceGFEXL2)

// Metrics collects lightweight pipeline counters and latency stats.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	received    [maxSourceTag + 1]uint64
	parsed      [maxSourceTag + 1]uint64
	parseErrors [maxSourceTag + 1]uint64

	queueDrops    uint64
	queueClosed   uint64
	framesSkipped uint64

	batches       uint64
	ticksCleaned  uint64
	duplicates    uint64
	invalid       uint64
	cleanErrors   uint64
	ticksSaved    uint64
	storageErrors uint64

	batchLatency LatencyStats
	feedLatency  LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Received      map[enum.SourceTag]uint64
	Parsed        map[enum.SourceTag]uint64
	ParseErrors   map[enum.SourceTag]uint64
	QueueDrops    uint64
	QueueClosed   uint64
	FramesSkipped uint64
	Batches       uint64
	TicksCleaned  uint64
	Duplicates    uint64
	Invalid       uint64
	CleanErrors   uint64
	TicksSaved    uint64
	StorageErrors uint64
	BatchLatency  LatencySnapshot
	FeedLatency   LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) ObserveReceived(tag enum.SourceTag) {
	if m == nil || !tag.IsAvailable() {
		return
	}
	atomic.AddUint64(&m.received[tag], 1)
}

// ObserveParsed counts a normalized tick and how far its exchange
// timestamp trails the local receive time.
func (m *Metrics) ObserveParsed(tag enum.SourceTag, exchangeTime, recvTime time.Time) {
	if m == nil || !tag.IsAvailable() {
		return
	}
	atomic.AddUint64(&m.parsed[tag], 1)
	if !exchangeTime.IsZero() && !recvTime.IsZero() {
		m.feedLatency.Observe(recvTime.Sub(exchangeTime))
	}
}

func (m *Metrics) IncParseError(tag enum.SourceTag) {
	if m == nil || !tag.IsAvailable() {
		return
	}
	atomic.AddUint64(&m.parseErrors[tag], 1)
}

// IncQueueDrop records a message evicted or rejected by a full queue.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncQueueClosed records a push attempt after the collector closed.
func (m *Metrics) IncQueueClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueClosed, 1)
}

// IncFrameSkipped records a vendor frame that carries no level-1 tick.
func (m *Metrics) IncFrameSkipped() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.framesSkipped, 1)
}

// ObserveClean records one cleaner pass.
func (m *Metrics) ObserveClean(kept, duplicates, invalid int) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ticksCleaned, uint64(kept))
	atomic.AddUint64(&m.duplicates, uint64(duplicates))
	atomic.AddUint64(&m.invalid, uint64(invalid))
}

func (m *Metrics) IncCleanError() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.cleanErrors, 1)
}

// ObserveBatch records a dispatched batch and its end-to-end handling time.
func (m *Metrics) ObserveBatch(d time.Duration) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.batches, 1)
	m.batchLatency.Observe(d)
}

func (m *Metrics) AddSaved(n int) {
	if m == nil || n <= 0 {
		return
	}
	atomic.AddUint64(&m.ticksSaved, uint64(n))
}

func (m *Metrics) IncStorageError() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.storageErrors, 1)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		Received:      loadPerSource(&m.received),
		Parsed:        loadPerSource(&m.parsed),
		ParseErrors:   loadPerSource(&m.parseErrors),
		QueueDrops:    atomic.LoadUint64(&m.queueDrops),
		QueueClosed:   atomic.LoadUint64(&m.queueClosed),
		FramesSkipped: atomic.LoadUint64(&m.framesSkipped),
		Batches:       atomic.LoadUint64(&m.batches),
		TicksCleaned:  atomic.LoadUint64(&m.ticksCleaned),
		Duplicates:    atomic.LoadUint64(&m.duplicates),
		Invalid:       atomic.LoadUint64(&m.invalid),
		CleanErrors:   atomic.LoadUint64(&m.cleanErrors),
		TicksSaved:    atomic.LoadUint64(&m.ticksSaved),
		StorageErrors: atomic.LoadUint64(&m.storageErrors),
		BatchLatency:  m.batchLatency.Snapshot(),
		FeedLatency:   m.feedLatency.Snapshot(),
	}
}

func loadPerSource(counters *[maxSourceTag + 1]uint64) map[enum.SourceTag]uint64 {
	out := make(map[enum.SourceTag]uint64)
	for i := range counters {
		if v := atomic.LoadUint64(&counters[i]); v > 0 {
			out[enum.SourceTag(i)] = v
		}
	}
	return out
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(atomic.LoadUint64(&l.min)),
		Max:   time.Duration(atomic.LoadUint64(&l.max)),
		Avg:   time.Duration(sum / count),
	}
}
