// Package replay feeds raw messages recorded by internal/recorder back
// through a collector, as if they came from the live feeds.
package replay

import (
	"context"
	"sync"
	"sync/atomic"

	"quoteflow/internal/errors"
	"quoteflow/internal/model"
	"quoteflow/internal/recorder"
	"quoteflow/pkg/exception"

	"github.com/yanun0323/logs"
)

// Vendor plays every recorded segment once per Pump call.
type Vendor struct {
	playback *recorder.Playback

	mu      sync.Mutex
	onData  func(model.RawMessage)

	played  atomic.Uint64
	skipped atomic.Uint64
	done    chan struct{}
	once    sync.Once
	closed  atomic.Bool
}

func New(cfg recorder.PlaybackConfig) (*Vendor, error) {
	p, err := recorder.NewPlayback(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithPlayback(p), nil
}

func NewWithPlayback(p *recorder.Playback) *Vendor {
	return &Vendor{playback: p, done: make(chan struct{})}
}

func (v *Vendor) Connect(onData func(model.RawMessage)) error {
	if onData == nil {
		return errors.Wrap(exception.ErrNilInstance, "replay data callback")
	}
	if v.closed.Load() {
		return exception.ErrConnectionClose
	}
	v.mu.Lock()
	v.onData = onData
	v.mu.Unlock()
	return nil
}

// Subscribe has no effect. Every recorded message is replayed.
func (v *Vendor) Subscribe([]string) error {
	return nil
}

// Pump replays the recording then returns. Done is closed afterwards.
func (v *Vendor) Pump(ctx context.Context) error {
	v.mu.Lock()
	onData := v.onData
	v.mu.Unlock()
	if onData == nil {
		return exception.ErrNotConnected
	}
	defer v.once.Do(func() { close(v.done) })

	err := v.playback.Run(ctx, func(h recorder.Header, payload []byte) error {
		if v.closed.Load() {
			return exception.ErrConnectionClose
		}
		msg, err := recorder.DecodeMessage(h, payload)
		if err != nil {
			v.skipped.Add(1)
			logs.Warnf("replay skip record %s/%d, err: %+v", h.Tag, h.Seq, err)
			return nil
		}
		onData(msg)
		v.played.Add(1)
		return nil
	})
	logs.Infof("replay finished, played: %d, skipped: %d", v.played.Load(), v.skipped.Load())
	if errors.Is(err, exception.ErrConnectionClose) {
		return nil
	}
	return err
}

// Done is closed once a Pump call has returned.
func (v *Vendor) Done() <-chan struct{} {
	return v.done
}

func (v *Vendor) Played() uint64 {
	return v.played.Load()
}

func (v *Vendor) Close() error {
	v.closed.Store(true)
	return nil
}
