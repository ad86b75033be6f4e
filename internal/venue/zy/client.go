// Package zy subscribes to the ZY market data bridge, which republishes
// DCE and CZCE exchange structs over ZeroMQ PUB sockets.
package zy

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"quoteflow/internal/codec"
	"quoteflow/internal/errors"
	"quoteflow/internal/model"
	"quoteflow/internal/model/enum"
	"quoteflow/internal/obs"
	"quoteflow/pkg/exception"

	"github.com/go-zeromq/zmq4"
	"github.com/yanun0323/logs"
)

const (
	errorPause  = time.Second
	dialRetry   = 250 * time.Millisecond
	dialRetries = 4
)

type Config struct {
	DCEAddress  string
	CZCEAddress string
}

type feed struct {
	exchange enum.Exchange
	addr     string
	sock     zmq4.Socket
}

// Client owns one SUB socket per configured exchange.
type Client struct {
	cfg     Config
	metrics *obs.Metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	onData  func(model.RawMessage)
	feeds   []*feed
	symbols []string

	pumping atomic.Bool
	wg      sync.WaitGroup
	closed  atomic.Bool
}

func NewClient(cfg Config, metrics *obs.Metrics) *Client {
	return &Client{cfg: cfg, metrics: metrics}
}

// Connect dials every configured address, retrying a few times. A
// publisher that is still absent after that fails Connect. Calling
// Connect again before Close returns ErrAlreadyConnected.
func (c *Client) Connect(onData func(model.RawMessage)) error {
	if onData == nil {
		return errors.Wrap(exception.ErrNilInstance, "zy data callback")
	}
	if c.cfg.DCEAddress == "" && c.cfg.CZCEAddress == "" {
		return errors.Wrap(exception.ErrInvalidArgument, "zy: no address configured")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return exception.ErrConnectionClose
	}
	if len(c.feeds) != 0 {
		return errors.Wrap(exception.ErrAlreadyConnected, "zy")
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.onData = onData

	for _, f := range []*feed{
		{exchange: enum.ExchangeDCE, addr: c.cfg.DCEAddress},
		{exchange: enum.ExchangeCZCE, addr: c.cfg.CZCEAddress},
	} {
		if f.addr == "" {
			continue
		}
		f.sock = zmq4.NewSub(c.ctx, zmq4.WithDialerRetry(dialRetry), zmq4.WithDialerMaxRetries(dialRetries))
		if err := f.sock.Dial(f.addr); err != nil {
			_ = f.sock.Close()
			c.closeFeedsLocked()
			return errors.Wrapf(err, "zy dial %s %s", f.exchange, f.addr)
		}
		if err := f.sock.SetOption(zmq4.OptionSubscribe, ""); err != nil {
			_ = f.sock.Close()
			c.closeFeedsLocked()
			return errors.Wrapf(err, "zy subscribe %s", f.addr)
		}
		c.feeds = append(c.feeds, f)
		logs.Infof("zy %s feed dialed %s", f.exchange, f.addr)
	}
	return nil
}

// Subscribe records symbols for logging only: the bridge publishes the
// whole market and frames are not filtered.
func (c *Client) Subscribe(symbols []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.symbols = slices.Clone(symbols)
	return nil
}

// Pump starts one receive goroutine per socket and blocks until ctx is
// done. The goroutines end when the client is closed.
func (c *Client) Pump(ctx context.Context) error {
	c.mu.Lock()
	feeds := slices.Clone(c.feeds)
	onData := c.onData
	c.mu.Unlock()

	if len(feeds) == 0 {
		return exception.ErrNotConnected
	}

	if c.pumping.CompareAndSwap(false, true) {
		for _, f := range feeds {
			c.wg.Add(1)
			go c.receive(f, onData)
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return exception.ErrConnectionClose
	}
}

func (c *Client) receive(f *feed, onData func(model.RawMessage)) {
	defer c.wg.Done()
	for {
		msg, err := f.sock.Recv()
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			logs.Errorf("zy %s recv, err: %+v", f.exchange, err)
			select {
			case <-c.ctx.Done():
				return
			case <-time.After(errorPause):
			}
			continue
		}

		now := time.Now()
		for _, frame := range msg.Frames {
			raw, ok := Classify(f.exchange, frame)
			if !ok {
				c.metrics.IncFrameSkipped()
				continue
			}
			raw.RecvTime = now
			onData(raw)
		}
	}
}

func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.mu.Lock()
	c.closeFeedsLocked()
	c.mu.Unlock()
	c.wg.Wait()
	return nil
}

func (c *Client) closeFeedsLocked() {
	if c.cancel != nil {
		c.cancel()
	}
	for _, f := range c.feeds {
		if f.sock != nil {
			_ = f.sock.Close()
		}
	}
	c.feeds = nil
}

// Classify maps a bridge frame to a raw message by exchange and struct
// size. Level-2 order book frames and unknown sizes are rejected.
func Classify(exchange enum.Exchange, frame []byte) (model.RawMessage, bool) {
	switch exchange {
	case enum.ExchangeDCE:
		if len(frame) == codec.DCEL1Size {
			return model.RawMessage{Tag: enum.SourceDCEL1, Payload: model.DCEL1Frame(frame)}, true
		}
	case enum.ExchangeCZCE:
		if len(frame) == codec.CZCEL1Size {
			return model.RawMessage{Tag: enum.SourceCZCEL1, Payload: model.CZCEL1Frame(frame)}, true
		}
	}
	return model.RawMessage{}, false
}
