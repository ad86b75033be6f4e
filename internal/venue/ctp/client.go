package ctp

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"quoteflow/internal/errors"
	"quoteflow/internal/model"
	"quoteflow/internal/model/enum"
	"quoteflow/pkg/exception"

	"github.com/yanun0323/logs"
)

var _ MdSpi = (*MdClient)(nil)

type Config struct {
	FrontAddr string
	BrokerID  string
	UserID    string
	Password  string
}

// MdClient adapts an MdAPI to the collector vendor contract. Symbols
// requested before login are subscribed as soon as the login succeeds.
type MdClient struct {
	api MdAPI
	cfg Config

	mu      sync.Mutex
	onData  func(model.RawMessage)
	symbols []string

	loggedIn atomic.Bool
	closed   atomic.Bool
	reqID    atomic.Int64
}

func NewMdClient(api MdAPI, cfg Config) *MdClient {
	return &MdClient{api: api, cfg: cfg}
}

func (c *MdClient) Connect(onData func(model.RawMessage)) error {
	if c.api == nil {
		return errors.Wrap(exception.ErrNilInstance, "ctp md api")
	}
	if onData == nil {
		return errors.Wrap(exception.ErrNilInstance, "ctp data callback")
	}
	c.mu.Lock()
	c.onData = onData
	c.mu.Unlock()

	c.api.RegisterSpi(c)
	c.api.RegisterFront(c.cfg.FrontAddr)
	if err := c.api.Init(); err != nil {
		return errors.Wrapf(err, "ctp init front %s", c.cfg.FrontAddr)
	}
	return nil
}

// Subscribe records symbols and subscribes right away when logged in.
func (c *MdClient) Subscribe(symbols []string) error {
	c.mu.Lock()
	for _, s := range symbols {
		if !slices.Contains(c.symbols, s) {
			c.symbols = append(c.symbols, s)
		}
	}
	c.mu.Unlock()

	if !c.loggedIn.Load() || len(symbols) == 0 {
		return nil
	}
	return c.api.SubscribeMarketData(symbols)
}

func (c *MdClient) LoggedIn() bool {
	return c.loggedIn.Load()
}

// Lost forwards the link loss signal of APIs that have one.
func (c *MdClient) Lost() <-chan struct{} {
	if w, ok := c.api.(interface{ Lost() <-chan struct{} }); ok {
		return w.Lost()
	}
	return nil
}

func (c *MdClient) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.loggedIn.Store(false)
	if c.api == nil {
		return nil
	}
	return c.api.Release()
}

func (c *MdClient) OnFrontConnected() {
	if c.closed.Load() {
		return
	}
	logs.Infof("ctp front %s connected, login as %s", c.cfg.FrontAddr, c.cfg.UserID)
	req := LoginRequest{BrokerID: c.cfg.BrokerID, UserID: c.cfg.UserID, Password: c.cfg.Password}
	if err := c.api.ReqUserLogin(req, int(c.reqID.Add(1))); err != nil {
		logs.Errorf("ctp req user login, err: %+v", err)
	}
}

func (c *MdClient) OnFrontDisconnected(reason int) {
	c.loggedIn.Store(false)
	logs.Warnf("ctp front %s disconnected, reason: %#x", c.cfg.FrontAddr, reason)
}

func (c *MdClient) OnRspUserLogin(rsp LoginResponse, info RspInfo, _ int, _ bool) {
	if !info.OK() {
		logs.Errorf("ctp login failed, err: %+v", errors.Wrapf(exception.ErrLoginFailed, "id: %d, msg: %s", info.ErrorID, info.ErrorMsg))
		return
	}
	c.loggedIn.Store(true)
	logs.Infof("ctp logged in, trading day %s", rsp.TradingDay)

	c.mu.Lock()
	symbols := slices.Clone(c.symbols)
	c.mu.Unlock()
	if len(symbols) == 0 {
		return
	}
	if err := c.api.SubscribeMarketData(symbols); err != nil {
		logs.Errorf("ctp auto subscribe %v, err: %+v", symbols, err)
	}
}

func (c *MdClient) OnRspSubMarketData(symbol string, info RspInfo) {
	if !info.OK() {
		logs.Errorf("ctp subscribe %s failed, id: %d, msg: %s", symbol, info.ErrorID, info.ErrorMsg)
	}
}

func (c *MdClient) OnRtnDepthMarketData(depth *model.CTPDepth) {
	if depth == nil || c.closed.Load() {
		return
	}
	c.mu.Lock()
	onData := c.onData
	c.mu.Unlock()
	if onData == nil {
		return
	}
	onData(model.RawMessage{Tag: enum.SourceCTPTick, Payload: depth, RecvTime: time.Now()})
}
