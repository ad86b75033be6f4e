package collector

import (
	"context"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"quoteflow/internal/bus"
	"quoteflow/internal/errors"
	"quoteflow/internal/model"
	"quoteflow/internal/model/enum"
	"quoteflow/internal/normalizer"
	"quoteflow/internal/obs"
	"quoteflow/pkg/exception"

	"github.com/yanun0323/logs"
)

var _ Collector = (*Base)(nil)

// Base implements Collector on top of any Vendor.
type Base struct {
	name       string
	vendor     Vendor
	symbols    []string
	platforms  []string
	queue      *bus.Queue[model.RawMessage]
	normalizer *normalizer.Normalizer
	metrics    *obs.Metrics
	tap        func(model.RawMessage)
	maxDrain   int
	now        func() time.Time

	state     atomic.Uint32
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Option configures a Base collector.
type Option func(*Base)

func WithSymbols(symbols ...string) Option {
	return func(b *Base) {
		b.symbols = append(b.symbols[:0], symbols...)
	}
}

// WithQueue bounds the collector queue. The default is unbounded.
func WithQueue(capacity int, policy bus.OverflowPolicy) Option {
	return func(b *Base) {
		b.queue = bus.NewQueue[model.RawMessage](capacity, policy)
	}
}

func WithNormalizer(n *normalizer.Normalizer) Option {
	return func(b *Base) {
		if n != nil {
			b.normalizer = n
		}
	}
}

func WithMetrics(m *obs.Metrics) Option {
	return func(b *Base) {
		b.metrics = m
	}
}

// WithTap observes every raw message before it is queued.
// The tap runs on the vendor goroutine and must not block.
func WithTap(tap func(model.RawMessage)) Option {
	return func(b *Base) {
		b.tap = tap
	}
}

// WithMaxDrain caps how many messages one CollectData call normalizes.
func WithMaxDrain(n int) Option {
	return func(b *Base) {
		b.maxDrain = n
	}
}

// WithPlatforms restricts the collector to the given GOOS values.
func WithPlatforms(goos ...string) Option {
	return func(b *Base) {
		b.platforms = goos
	}
}

// New builds a collector named name around v.
func New(name string, v Vendor, opts ...Option) *Base {
	b := &Base{
		name:       name,
		vendor:     v,
		queue:      bus.NewQueue[model.RawMessage](0, bus.OverflowDropOldest),
		normalizer: normalizer.New(),
		now:        time.Now,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Base) Name() string {
	return b.name
}

func (b *Base) State() enum.CollectorState {
	return enum.CollectorState(b.state.Load())
}

func (b *Base) Symbols() []string {
	return slices.Clone(b.symbols)
}

// QueueStats exposes the underlying queue counters.
func (b *Base) QueueStats() bus.Stats {
	return b.queue.Stats()
}

func (b *Base) setState(s enum.CollectorState) {
	b.state.Store(uint32(s))
}

func (b *Base) InitConnections(ctx context.Context) error {
	if b.vendor == nil {
		return errors.Wrapf(exception.ErrNilInstance, "collector %s: vendor", b.name)
	}
	if b.State() == enum.StateClosed {
		return errors.Wrapf(exception.ErrConnectionClose, "collector %s", b.name)
	}
	if len(b.platforms) != 0 && !slices.Contains(b.platforms, runtime.GOOS) {
		return errors.Wrapf(exception.ErrPlatformUnsupported, "collector %s requires %v, running on %s", b.name, b.platforms, runtime.GOOS)
	}

	b.setState(enum.StateConnecting)

	errc := make(chan error, 1)
	go func() {
		err := b.vendor.Connect(b.onDataReceived)
		if err == nil && ctx.Err() != nil {
			// caller gave up before the vendor answered
			_ = b.vendor.Close()
		}
		errc <- err
	}()

	select {
	case err := <-errc:
		if err != nil {
			b.setState(enum.StateDisconnected)
			return errors.Wrapf(errors.Join(exception.ErrConnection, err), "collector %s", b.name)
		}
	case <-ctx.Done():
		b.setState(enum.StateDisconnected)
		return errors.Wrapf(errors.Join(exception.ErrConnection, ctx.Err()), "collector %s", b.name)
	}

	b.state.CompareAndSwap(uint32(enum.StateConnecting), uint32(enum.StateConnected))
	logs.Infof("collector %s connected", b.name)
	b.watchLink()
	return nil
}

// watchLink moves the collector back to Disconnected when the vendor
// reports a dropped link. InitConnections may then be called again.
func (b *Base) watchLink() {
	w, ok := b.vendor.(LinkWatcher)
	if !ok {
		return
	}
	lost := w.Lost()
	if lost == nil {
		return
	}
	go func() {
		select {
		case <-lost:
		case <-b.done:
			return
		}
		for {
			cur := b.state.Load()
			if s := enum.CollectorState(cur); s == enum.StateClosed || s == enum.StateDisconnected {
				return
			}
			if b.state.CompareAndSwap(cur, uint32(enum.StateDisconnected)) {
				break
			}
		}
		logs.Errorf("%+v", errors.Wrapf(exception.ErrConnection, "collector %s lost its link", b.name))
	}()
}

func (b *Base) SubscribeMarket(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch b.State() {
	case enum.StateDisconnected, enum.StateConnecting:
		return errors.Wrapf(exception.ErrNotConnected, "collector %s", b.name)
	case enum.StateClosed:
		return errors.Wrapf(exception.ErrConnectionClose, "collector %s", b.name)
	}

	if err := b.vendor.Subscribe(b.Symbols()); err != nil {
		return errors.Wrapf(err, "collector %s subscribe", b.name)
	}

	next := enum.StateSubscribed
	if gate, ok := b.vendor.(LoginGate); ok && !gate.LoggedIn() {
		next = enum.StateAutoSubscribing
		logs.Infof("collector %s not logged in yet, subscribe after login", b.name)
	}
	b.advance(next)
	return nil
}

// advance moves the state forward without leaving Running or Closed.
func (b *Base) advance(next enum.CollectorState) {
	for {
		cur := b.state.Load()
		if enum.CollectorState(cur) == enum.StateRunning || enum.CollectorState(cur) == enum.StateClosed {
			return
		}
		if b.state.CompareAndSwap(cur, uint32(next)) {
			return
		}
	}
}

// onDataReceived is the vendor callback. It only enqueues.
func (b *Base) onDataReceived(msg model.RawMessage) {
	if msg.RecvTime.IsZero() {
		msg.RecvTime = b.now()
	}
	b.metrics.ObserveReceived(msg.Tag)
	if b.tap != nil {
		b.tap(msg)
	}

	if err := b.queue.Push(msg); err != nil {
		if errors.Is(err, bus.ErrQueueClosed) {
			b.metrics.IncQueueClosed()
			return
		}
		b.metrics.IncQueueDrop()
		return
	}

	switch b.State() {
	case enum.StateConnected, enum.StateAutoSubscribing, enum.StateSubscribed:
		b.advance(enum.StateRunning)
	}
}

// Deliver feeds msg through the vendor callback path. Vendors that are
// driven in-process (tests, injection) use it directly.
func (b *Base) Deliver(msg model.RawMessage) {
	b.onDataReceived(msg)
}

// CollectData drains the messages queued at call time and normalizes
// them. Messages that fail to parse are logged and skipped.
func (b *Base) CollectData() []model.Tick {
	msgs := b.queue.Drain(b.maxDrain)
	if len(msgs) == 0 {
		return nil
	}

	ticks := make([]model.Tick, 0, len(msgs))
	for _, msg := range msgs {
		tick, err := b.normalizer.Normalize(msg)
		if err != nil {
			b.metrics.IncParseError(msg.Tag)
			logs.Warnf("collector %s drop message, err: %+v", b.name, err)
			continue
		}
		b.metrics.ObserveParsed(msg.Tag, tick.Datetime, msg.RecvTime)
		ticks = append(ticks, tick)
	}
	return ticks
}

func (b *Base) CloseConnections() error {
	b.closeOnce.Do(func() {
		b.setState(enum.StateClosed)
		close(b.done)
		b.queue.Close()
		if b.vendor != nil {
			b.closeErr = b.vendor.Close()
		}
		logs.Infof("collector %s closed", b.name)
	})
	return b.closeErr
}
