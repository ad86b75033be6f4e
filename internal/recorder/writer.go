package recorder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"quoteflow/internal/errors"

	yerrors "github.com/yanun0323/errors"
)

var (
	ErrQueueFull       = yerrors.New("recorder queue full")
	ErrClosed          = yerrors.New("recorder writer closed")
	ErrNotStarted      = yerrors.New("recorder writer not started")
	ErrAlreadyStarted  = yerrors.New("recorder writer already started")
	ErrPayloadTooLarge = yerrors.New("recorder payload too large")
)

const (
	maxPayloadLen = uint64(^uint32(0))
	segmentExt    = ".rec"
)

const (
	writerIdle int32 = iota
	writerRunning
	writerClosed
)

// WriterStats counts what a Writer has persisted or refused.
type WriterStats struct {
	Records  uint64
	Bytes    uint64
	Segments uint64
	Dropped  uint64
}

// Writer persists raw messages into rotating segment files. Appends are
// queued and never block the caller; a single goroutine owns the files.
type Writer struct {
	cfg   Config
	queue chan pending

	mu    sync.RWMutex
	state atomic.Int32
	wg    sync.WaitGroup
	err   atomic.Pointer[error]

	records  atomic.Uint64
	bytes    atomic.Uint64
	segments atomic.Uint64
	dropped  atomic.Uint64
}

type pending struct {
	header  Header
	payload []byte
}

// NewWriter validates cfg and creates the target directory.
func NewWriter(cfg Config) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create recorder dir %s", cfg.Dir)
	}
	return &Writer{
		cfg:   cfg,
		queue: make(chan pending, cfg.QueueSize),
	}, nil
}

func (w *Writer) Start(ctx context.Context) error {
	if !w.state.CompareAndSwap(writerIdle, writerRunning) {
		if w.state.Load() == writerClosed {
			return ErrClosed
		}
		return ErrAlreadyStarted
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
	return nil
}

// Close drains the queue, closes the open segment and returns the first
// write error, if any.
func (w *Writer) Close() error {
	w.mu.Lock()
	prev := w.state.Swap(writerClosed)
	if prev == writerRunning {
		close(w.queue)
	}
	w.mu.Unlock()

	w.wg.Wait()
	return w.Err()
}

func (w *Writer) Err() error {
	if p := w.err.Load(); p != nil {
		return *p
	}
	return nil
}

func (w *Writer) Stats() WriterStats {
	return WriterStats{
		Records:  w.records.Load(),
		Bytes:    w.bytes.Load(),
		Segments: w.segments.Load(),
		Dropped:  w.dropped.Load(),
	}
}

// TryAppend queues a record. payload is retained and must not be reused.
func (w *Writer) TryAppend(h Header, payload []byte) error {
	if uint64(len(payload)) > maxPayloadLen {
		return ErrPayloadTooLarge
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	switch w.state.Load() {
	case writerIdle:
		return ErrNotStarted
	case writerClosed:
		return ErrClosed
	}
	if err := w.Err(); err != nil {
		return err
	}

	select {
	case w.queue <- pending{header: h, payload: payload}:
		return nil
	default:
		w.dropped.Add(1)
		return ErrQueueFull
	}
}

func (w *Writer) loop(ctx context.Context) {
	var (
		cur     *segment
		nextID  uint64
		frame   []byte
		flushC  <-chan time.Time
		syncC   <-chan time.Time
		failure error
	)

	if w.cfg.FlushInterval > 0 {
		t := time.NewTicker(w.cfg.FlushInterval)
		defer t.Stop()
		flushC = t.C
	}
	if w.cfg.SyncInterval > 0 {
		t := time.NewTicker(w.cfg.SyncInterval)
		defer t.Stop()
		syncC = t.C
	}

	write := func(p pending) error {
		frame = appendRecord(frame[:0], p.header, p.payload)
		now := time.Now().UTC()
		if cur == nil || w.due(cur, now, len(frame)) {
			if err := cur.close(); err != nil {
				return err
			}
			next, err := w.open(&nextID, now)
			if err != nil {
				return err
			}
			cur = next
		}
		if err := cur.write(frame); err != nil {
			return err
		}
		w.records.Add(1)
		w.bytes.Add(uint64(len(frame)))
		return nil
	}

	defer func() {
		if err := cur.close(); err != nil && failure == nil {
			w.fail(err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case p, ok := <-w.queue:
					if !ok {
						return
					}
					if failure = write(p); failure != nil {
						w.fail(failure)
						return
					}
				default:
					return
				}
			}
		case p, ok := <-w.queue:
			if !ok {
				return
			}
			failure = write(p)
		case <-flushC:
			failure = cur.flush()
		case <-syncC:
			failure = cur.sync()
		}
		if failure != nil {
			w.fail(failure)
			return
		}
	}
}

// due reports whether appending size bytes to s must start a new segment.
func (w *Writer) due(s *segment, now time.Time, size int) bool {
	if s.size > 0 && s.size+int64(size) > w.cfg.SegmentMaxBytes {
		return true
	}
	return w.cfg.SegmentMaxDuration > 0 && now.Sub(s.openedAt) >= w.cfg.SegmentMaxDuration
}

func (w *Writer) open(nextID *uint64, now time.Time) (*segment, error) {
	stamp := now.Format("20060102-150405")
	for {
		*nextID++
		name := fmt.Sprintf("%s-%s-%06d%s", w.cfg.FilePrefix, stamp, *nextID, segmentExt)
		f, err := os.OpenFile(filepath.Join(w.cfg.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "open segment %s", name)
		}
		w.segments.Add(1)
		return &segment{
			file:     f,
			buf:      bufio.NewWriterSize(f, w.cfg.BufferSize),
			openedAt: now,
		}, nil
	}
}

func (w *Writer) fail(err error) {
	w.err.CompareAndSwap(nil, &err)
}

// segment is one open recording file. A nil segment is a no-op.
type segment struct {
	file     *os.File
	buf      *bufio.Writer
	size     int64
	openedAt time.Time
}

func (s *segment) write(frame []byte) error {
	n, err := s.buf.Write(frame)
	s.size += int64(n)
	return err
}

func (s *segment) flush() error {
	if s == nil {
		return nil
	}
	return s.buf.Flush()
}

func (s *segment) sync() error {
	if s == nil {
		return nil
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	return s.file.Sync()
}

func (s *segment) close() error {
	if s == nil {
		return nil
	}
	err := s.sync()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}
