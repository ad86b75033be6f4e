// Package bridge speaks the JSON-over-websocket protocol of the local
// gateway processes that host native market data SDKs (CTP, NSQ).
package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"quoteflow/internal/errors"
	"quoteflow/pkg/backoff"
	"quoteflow/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
)

// Envelope is one gateway frame: {"type": "...", "data": {...}}.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the envelope data into v.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return errors.Wrapf(exception.ErrMissingField, "envelope %s without data", e.Type)
	}
	return sonic.ConfigFastest.Unmarshal(e.Data, v)
}

type Config struct {
	URL          string
	Header       http.Header
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// PingInterval keeps a quiet gateway inside ReadTimeout. It defaults to
	// half of ReadTimeout; without a ReadTimeout no pings are sent.
	PingInterval time.Duration
	DialAttempts int
	Backoff      backoff.Backoff
}

func (c Config) withDefaults() Config {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 3 * time.Second
	}
	if c.PingInterval <= 0 && c.ReadTimeout > 0 {
		c.PingInterval = c.ReadTimeout / 2
	}
	if c.DialAttempts <= 0 {
		c.DialAttempts = 3
	}
	if c.Backoff == (backoff.Backoff{}) {
		c.Backoff = backoff.Default()
	}
	return c
}

// Client is a single gateway connection. Frames are handed to the handler
// from the client's read goroutine in arrival order.
type Client struct {
	cfg     Config
	conn    *websocket.Conn
	handler func(Envelope)

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
	closing   atomic.Bool
	err       atomic.Value
	wg        sync.WaitGroup
}

// Dial connects to the gateway, retrying with backoff, and starts reading.
func Dial(ctx context.Context, cfg Config, handler func(Envelope)) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.URL == "" {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "bridge url is empty")
	}
	if handler == nil {
		return nil, errors.Wrap(exception.ErrNilInstance, "bridge handler")
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.DialTimeout}
	var conn *websocket.Conn
	err := cfg.Backoff.Retry(ctx, cfg.DialAttempts, func(attempt int) error {
		c, _, err := dialer.DialContext(ctx, cfg.URL, cfg.Header)
		if err != nil {
			logs.Warnf("bridge dial %s attempt %d, err: %+v", cfg.URL, attempt, err)
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(errors.Join(exception.ErrConnection, err), "dial %s", cfg.URL)
	}

	c := &Client{
		cfg:     cfg,
		conn:    conn,
		handler: handler,
		done:    make(chan struct{}),
	}
	conn.SetPongHandler(func(string) error {
		return c.extendDeadline()
	})

	c.wg.Add(2)
	go c.readLoop()
	go c.watchShutdown()
	if cfg.PingInterval > 0 {
		c.wg.Add(1)
		go c.pingLoop()
	}
	return c, nil
}

// Send writes one envelope of the given type.
func (c *Client) Send(typ string, data any) error {
	payload, err := sonic.ConfigFastest.Marshal(data)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", typ)
	}
	frame, err := sonic.ConfigFastest.Marshal(Envelope{Type: typ, Data: payload})
	if err != nil {
		return errors.Wrapf(err, "marshal envelope %s", typ)
	}

	select {
	case <-c.done:
		return exception.ErrConnectionClose
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return errors.Wrapf(err, "write %s", typ)
	}
	return nil
}

// Done is closed once the read loop has exited. Err tells a dropped link
// from a Close.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the read loop, if any.
func (c *Client) Err() error {
	if v := c.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// Close sends a close frame, tears down the socket and waits for the
// read goroutine. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	c.wg.Wait()
	return err
}

func (c *Client) readLoop() {
	defer c.wg.Done()
	defer close(c.done)

	for {
		_ = c.extendDeadline()
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closing.Load() {
				c.err.Store(err)
				logs.Errorf("bridge %s read, err: %+v", c.cfg.URL, err)
			}
			return
		}

		var env Envelope
		if err := sonic.ConfigFastest.Unmarshal(data, &env); err != nil {
			logs.Warnf("bridge %s drop malformed frame, err: %+v", c.cfg.URL, err)
			continue
		}
		c.handler(env)
	}
}

func (c *Client) extendDeadline() error {
	if c.cfg.ReadTimeout <= 0 {
		return nil
	}
	return c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
}

// pingLoop stops on the first failed ping; the read deadline then ends
// the read loop.
func (c *Client) pingLoop() {
	defer c.wg.Done()
	t := time.NewTicker(c.cfg.PingInterval)
	defer t.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-t.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				if !c.closing.Load() {
					logs.Warnf("bridge %s ping, err: %+v", c.cfg.URL, err)
				}
				return
			}
		}
	}
}

func (c *Client) watchShutdown() {
	defer c.wg.Done()
	select {
	case <-sys.Shutdown():
		go func() { _ = c.Close() }()
	case <-c.done:
	}
}
