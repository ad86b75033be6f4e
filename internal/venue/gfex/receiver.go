// Package gfex receives GFEX level-2 frames from the exchange multicast.
// When the ExaNIC RX buffer is unavailable the kernel socket is used.
package gfex

import (
	"net"
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

	"github.com/yanun0323/logs"
)

const (
	defaultReadTimeout = 100 * time.Millisecond
	maxDatagram        = 2048
)

type Config struct {
	// Address is host:port. A multicast host joins the group.
	Address string
	// Interface names the NIC for multicast, empty selects the default.
	Interface   string
	ReadTimeout time.Duration
	ReadBuffer  int
}

// Receiver owns one UDP socket and its read goroutine.
type Receiver struct {
	cfg     Config
	metrics *obs.Metrics

	mu      sync.Mutex
	conn    *net.UDPConn
	symbols []string

	done   chan struct{}
	wg     sync.WaitGroup
	closed atomic.Bool
}

func NewReceiver(cfg Config, metrics *obs.Metrics) *Receiver {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	return &Receiver{cfg: cfg, metrics: metrics, done: make(chan struct{})}
}

func (r *Receiver) Connect(onData func(model.RawMessage)) error {
	if onData == nil {
		return errors.Wrap(exception.ErrNilInstance, "gfex data callback")
	}
	if r.closed.Load() {
		return exception.ErrConnectionClose
	}

	conn, err := listen(r.cfg)
	if err != nil {
		return errors.Wrapf(errors.Join(exception.ErrConnection, err), "listen gfex %s", r.cfg.Address)
	}
	if r.cfg.ReadBuffer > 0 {
		if err := conn.SetReadBuffer(r.cfg.ReadBuffer); err != nil {
			logs.Warnf("gfex set read buffer %d, err: %+v", r.cfg.ReadBuffer, err)
		}
	}

	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()

	r.wg.Add(1)
	go r.readLoop(conn, onData)
	logs.Infof("gfex receiving on %s", conn.LocalAddr())
	return nil
}

func listen(cfg Config) (*net.UDPConn, error) {
	addr, err := net.ResolveUDPAddr("udp4", cfg.Address)
	if err != nil {
		return nil, err
	}
	if addr.IP == nil || !addr.IP.IsMulticast() {
		return net.ListenUDP("udp4", addr)
	}

	var ifi *net.Interface
	if cfg.Interface != "" {
		if ifi, err = net.InterfaceByName(cfg.Interface); err != nil {
			return nil, err
		}
	}
	return net.ListenMulticastUDP("udp4", ifi, addr)
}

// Subscribe records symbols only. The multicast carries every contract.
func (r *Receiver) Subscribe(symbols []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range symbols {
		if !slices.Contains(r.symbols, s) {
			r.symbols = append(r.symbols, s)
		}
	}
	return nil
}

// LocalAddr reports the bound address, nil before Connect.
func (r *Receiver) LocalAddr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

func (r *Receiver) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(r.done)
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	r.wg.Wait()
	return err
}

func (r *Receiver) readLoop(conn *net.UDPConn, onData func(model.RawMessage)) {
	defer r.wg.Done()

	buf := make([]byte, maxDatagram)
	for {
		select {
		case <-r.done:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(r.cfg.ReadTimeout))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if r.closed.Load() {
				return
			}
			logs.Errorf("gfex read, err: %+v", err)
			time.Sleep(r.cfg.ReadTimeout)
			continue
		}
		if n < codec.GFEXL2Size {
			r.metrics.IncFrameSkipped()
			continue
		}

		frame := make([]byte, n)
		copy(frame, buf[:n])
		onData(model.RawMessage{Tag: enum.SourceGFEXL2, Payload: model.GFEXL2Frame(frame), RecvTime: time.Now()})
	}
}
