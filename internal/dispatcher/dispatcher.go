// Package dispatcher connects a set of collectors and polls them on a
// fixed interval, handing every non-empty batch to a single consumer.
package dispatcher

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"quoteflow/internal/collector"
	"quoteflow/internal/errors"
	"quoteflow/internal/model"
	"quoteflow/internal/model/enum"
	"quoteflow/internal/obs"
	"quoteflow/pkg/exception"

	"github.com/yanun0323/logs"
)

const (
	DefaultPollInterval = 100 * time.Millisecond
	maxFlushRounds      = 64
	// flushIntervals bounds the exit flush to this many poll intervals.
	flushIntervals = 10
)

// BatchFunc consumes one polled batch. It runs on the polling goroutine.
type BatchFunc func(ticks []model.Tick) error

type Option func(*Dispatcher)

func WithPollInterval(d time.Duration) Option {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.interval = d
		}
	}
}

func WithMetrics(m *obs.Metrics) Option {
	return func(dp *Dispatcher) {
		dp.metrics = m
	}
}

type Dispatcher struct {
	collectors []collector.Collector
	interval   time.Duration
	metrics    *obs.Metrics

	mu         sync.Mutex
	connected  []string
	subscribed []string

	running   atomic.Bool
	stopped   atomic.Bool
	wake      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func New(collectors []collector.Collector, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		collectors: slices.DeleteFunc(slices.Clone(collectors), func(c collector.Collector) bool { return c == nil }),
		interval:   DefaultPollInterval,
		wake:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Collectors() []collector.Collector {
	return slices.Clone(d.collectors)
}

func (d *Dispatcher) Interval() time.Duration {
	return d.interval
}

// InitConnections connects every collector concurrently. It returns nil
// only when all of them connect.
func (d *Dispatcher) InitConnections(ctx context.Context) error {
	if len(d.collectors) == 0 {
		return exception.ErrNoCollector
	}
	ok, err := d.each(ctx, d.collectors, "connect", collector.Collector.InitConnections)
	d.mu.Lock()
	d.connected = ok
	d.mu.Unlock()
	return err
}

// SubscribeMarket subscribes the collectors that connected. The others
// are skipped with a warning.
func (d *Dispatcher) SubscribeMarket(ctx context.Context) error {
	d.mu.Lock()
	names := slices.Clone(d.connected)
	d.mu.Unlock()

	targets := make([]collector.Collector, 0, len(names))
	for _, c := range d.collectors {
		if slices.Contains(names, c.Name()) {
			targets = append(targets, c)
			continue
		}
		logs.Warnf("collector %s not connected, skip subscribe", c.Name())
	}
	if len(targets) == 0 {
		return errors.Wrap(exception.ErrAllCollectorsFailed, "no connected collector to subscribe")
	}

	ok, err := d.each(ctx, targets, "subscribe", collector.Collector.SubscribeMarket)
	d.mu.Lock()
	d.subscribed = ok
	d.mu.Unlock()
	return err
}

// Connected names the collectors whose last InitConnections succeeded.
func (d *Dispatcher) Connected() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.connected)
}

func (d *Dispatcher) Subscribed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.subscribed)
}

func (d *Dispatcher) each(ctx context.Context, cs []collector.Collector, op string, fn func(collector.Collector, context.Context) error) ([]string, error) {
	errs := make([]error, len(cs))
	var wg sync.WaitGroup
	for i, c := range cs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = errors.Wrapf(exception.ErrInternal, "panic: %v", r)
				}
			}()
			errs[i] = fn(c, ctx)
		}()
	}
	wg.Wait()

	var (
		ok     []string
		failed []error
	)
	for i, c := range cs {
		if errs[i] != nil {
			logs.Errorf("collector %s %s failed, err: %+v", c.Name(), op, errs[i])
			failed = append(failed, fmt.Errorf("%s: %w", c.Name(), errs[i]))
			continue
		}
		ok = append(ok, c.Name())
	}

	switch {
	case len(failed) == 0:
		return ok, nil
	case len(ok) == 0:
		return ok, errors.Wrapf(errors.Join(append([]error{exception.ErrAllCollectorsFailed}, failed...)...), "%s", op)
	default:
		return ok, errors.Wrapf(errors.Join(failed...), "%s %d/%d", op, len(failed), len(cs))
	}
}

// CollectData drains every collector once, preserving each collector's order.
func (d *Dispatcher) CollectData() []model.Tick {
	var out []model.Tick
	for _, c := range d.collectors {
		out = append(out, d.collect(c)...)
	}
	return out
}

func (d *Dispatcher) collect(c collector.Collector) (ticks []model.Tick) {
	defer func() {
		if r := recover(); r != nil {
			logs.Errorf("%+v", errors.Wrapf(exception.ErrCollect, "collector %s panic while draining: %v", c.Name(), r))
			ticks = nil
		}
	}()
	return c.CollectData()
}

// RunForever polls until Stop is called or ctx is done, then closes every
// collector and flushes what was still queued. It returns ctx.Err() when
// ctx ended the loop and nil after Stop.
func (d *Dispatcher) RunForever(ctx context.Context, onBatch BatchFunc) error {
	if onBatch == nil {
		return errors.Wrap(exception.ErrNilInstance, "batch func")
	}
	if !d.running.CompareAndSwap(false, true) {
		return errors.Wrap(exception.ErrInvalidArgument, "dispatcher already running")
	}
	defer d.running.Store(false)

	recvCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	for _, c := range d.collectors {
		r, ok := c.(collector.Receiver)
		if !ok {
			continue
		}
		switch r.State() {
		case enum.StateDisconnected, enum.StateConnecting, enum.StateClosed:
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.receive(recvCtx, r)
		}()
	}

	defer func() {
		cancel()
		wg.Wait()
		if err := d.CloseConnections(); err != nil {
			logs.Errorf("close connections, err: %+v", err)
		}
		d.flush(onBatch)
	}()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	logs.Infof("dispatcher running %d collectors every %s", len(d.collectors), d.interval)
	for !d.stopped.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.wake:
		case <-ticker.C:
			d.poll(onBatch)
		}
	}
	return nil
}

func (d *Dispatcher) receive(ctx context.Context, r collector.Receiver) {
	defer func() {
		if rec := recover(); rec != nil {
			logs.Errorf("collector %s receive panic: %v", r.Name(), rec)
		}
	}()
	if err := r.Receive(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logs.Errorf("%+v", errors.Wrapf(errors.Join(exception.ErrCollect, err), "collector %s receive stopped", r.Name()))
	}
}

// poll reports whether a non-empty batch was handed to onBatch.
func (d *Dispatcher) poll(onBatch BatchFunc) bool {
	ticks := d.CollectData()
	if len(ticks) == 0 {
		return false
	}

	start := time.Now()
	defer func() {
		d.metrics.ObserveBatch(time.Since(start))
		if r := recover(); r != nil {
			logs.Errorf("batch handler panic with %d ticks: %v", len(ticks), r)
		}
	}()
	if err := onBatch(ticks); err != nil {
		logs.Errorf("batch handler failed with %d ticks, err: %+v", len(ticks), err)
	}
	return true
}

// flush drains what the collectors still hold. It stops after
// maxFlushRounds batches or flushIntervals poll intervals, whichever
// comes first, so a slow sink cannot hold shutdown.
func (d *Dispatcher) flush(onBatch BatchFunc) {
	deadline := time.Now().Add(flushIntervals * d.interval)
	for round := range maxFlushRounds {
		if !d.poll(onBatch) {
			return
		}
		if time.Now().After(deadline) {
			logs.Warnf("flush stopped after %d batches, deadline %s passed", round+1, flushIntervals*d.interval)
			return
		}
	}
}

// Stop asks RunForever to return. It is safe from any goroutine.
func (d *Dispatcher) Stop() {
	d.stopped.Store(true)
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// CloseConnections closes every collector once. Later calls return the
// first result.
func (d *Dispatcher) CloseConnections() error {
	d.closeOnce.Do(func() {
		var errs []error
		for _, c := range d.collectors {
			if err := c.CloseConnections(); err != nil {
				logs.Errorf("collector %s close, err: %+v", c.Name(), err)
				errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
			}
		}
		d.closeErr = errors.Join(errs...)
	})
	return d.closeErr
}
