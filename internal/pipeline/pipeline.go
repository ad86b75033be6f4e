// Package pipeline wires collectors, the dispatcher, the cleaner and the
// sinks into one running ingestion process.
package pipeline

import (
	"context"
	"time"

	"quoteflow/internal/cleaner"
	"quoteflow/internal/dispatcher"
	"quoteflow/internal/errors"
	"quoteflow/internal/model"
	"quoteflow/internal/obs"
	"quoteflow/internal/storage"
	"quoteflow/pkg/exception"

	"github.com/yanun0323/logs"
)

const defaultSaveTimeout = 10 * time.Second

type Pipeline struct {
	dispatcher  *dispatcher.Dispatcher
	cleaner     *cleaner.Cleaner
	sink        storage.Sink
	metrics     *obs.Metrics
	grace       time.Duration
	saveTimeout time.Duration
	debug       bool
	closers     []func() error
	replayDone  <-chan struct{}
}

type Option func(*Pipeline)

// WithStartupGrace retries subscriptions that failed on the first attempt
// after d.
func WithStartupGrace(d time.Duration) Option {
	return func(p *Pipeline) {
		p.grace = d
	}
}

func WithSaveTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.saveTimeout = d
		}
	}
}

func WithDebug(debug bool) Option {
	return func(p *Pipeline) {
		p.debug = debug
	}
}

// WithCloser runs fn after the dispatcher stopped and the sink closed.
func WithCloser(fn func() error) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.closers = append(p.closers, fn)
		}
	}
}

func New(d *dispatcher.Dispatcher, c *cleaner.Cleaner, sink storage.Sink, m *obs.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		dispatcher:  d,
		cleaner:     c,
		sink:        sink,
		metrics:     m,
		saveTimeout: defaultSaveTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Dispatcher() *dispatcher.Dispatcher { return p.dispatcher }

func (p *Pipeline) Metrics() *obs.Metrics { return p.metrics }

// ReplayDone is closed when a configured replay source has played its
// recording. It is nil without one.
func (p *Pipeline) ReplayDone() <-chan struct{} { return p.replayDone }

// HandleBatch cleans one polled batch and saves what survives.
func (p *Pipeline) HandleBatch(ticks []model.Tick) error {
	before := p.cleaner.Stats()
	cleaned, err := p.cleaner.Clean(ticks)
	if err != nil {
		p.metrics.IncCleanError()
		return err
	}
	after := p.cleaner.Stats()
	p.metrics.ObserveClean(len(cleaned), int(after.Duplicates-before.Duplicates), int(after.Invalid-before.Invalid))
	if p.debug {
		logs.Debugf("batch %d ticks, kept %d", len(ticks), len(cleaned))
	}
	if len(cleaned) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.saveTimeout)
	defer cancel()
	if err := p.sink.Save(ctx, cleaned); err != nil {
		p.metrics.IncStorageError()
		return err
	}
	p.metrics.AddSaved(len(cleaned))
	return nil
}

// Start connects and subscribes every collector. It fails only when no
// collector could connect.
func (p *Pipeline) Start(ctx context.Context) error {
	if err := p.dispatcher.InitConnections(ctx); err != nil {
		if errors.Is(err, exception.ErrAllCollectorsFailed) || errors.Is(err, exception.ErrNoCollector) {
			return err
		}
		logs.Warnf("running degraded with %v, err: %+v", p.dispatcher.Connected(), err)
	}
	if err := p.dispatcher.SubscribeMarket(ctx); err != nil {
		logs.Warnf("subscribe incomplete, subscribed: %v, err: %+v", p.dispatcher.Subscribed(), err)
	}
	return nil
}

// Run starts the pipeline and blocks until ctx is done or Stop is called.
// Collectors, the sink and every registered closer are closed on return.
func (p *Pipeline) Run(ctx context.Context) error {
	defer p.close()
	if err := p.Start(ctx); err != nil {
		_ = p.dispatcher.CloseConnections()
		return err
	}

	if p.grace > 0 {
		go p.retrySubscribe(ctx)
	}

	err := p.dispatcher.RunForever(ctx, p.HandleBatch)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (p *Pipeline) retrySubscribe(ctx context.Context) {
	t := time.NewTimer(p.grace)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return
	case <-t.C:
	}
	if len(p.dispatcher.Subscribed()) >= len(p.dispatcher.Connected()) {
		return
	}
	logs.Infof("retry subscribe after %s", p.grace)
	if err := p.dispatcher.SubscribeMarket(ctx); err != nil {
		logs.Warnf("retry subscribe, err: %+v", err)
	}
}

func (p *Pipeline) Stop() {
	p.dispatcher.Stop()
}

func (p *Pipeline) close() {
	if err := p.sink.Close(); err != nil {
		logs.Errorf("close sink, err: %+v", err)
	}
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			logs.Errorf("close pipeline resource, err: %+v", err)
		}
	}
	snap := p.metrics.Snapshot()
	logs.Infof("pipeline closed, batches: %d, saved: %d, duplicates: %d, storage errors: %d",
		snap.Batches, snap.TicksSaved, snap.Duplicates, snap.StorageErrors)
}
