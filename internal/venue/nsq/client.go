// Package nsq receives NSQ depth market data, either from a gateway over
// the bridge protocol or by direct injection from an in-process SDK binding.
package nsq

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"quoteflow/internal/errors"
	"quoteflow/internal/model"
	"quoteflow/internal/model/enum"
	"quoteflow/internal/venue/bridge"
	"quoteflow/pkg/exception"

	"github.com/yanun0323/logs"
)

const (
	TypeReqUserLogin        = "req_user_login"
	TypeRspUserLogin        = "rsp_user_login"
	TypeSubscribeMarketData = "subscribe_market_data"
	TypeRtnDepthMarketData  = "rtn_depth_market_data"
)

// Depth is the typed NSQ depth record delivered by native bindings.
type Depth struct {
	TradingDay         string
	InstrumentID       string
	ExchangeID         string
	LastPrice          float64
	PreSettlementPrice float64
	PreClosePrice      float64
	OpenPrice          float64
	HighestPrice       float64
	LowestPrice        float64
	TradeVolume        int64
	OpenInterest       float64
	UpdateTime         string
	UpdateMillisec     int32
	ActionDay          string
	BidPrice           [5]float64
	BidVolume          [5]int64
	AskPrice           [5]float64
	AskVolume          [5]int64
}

type Config struct {
	// Bridge is optional. Without a URL the client only accepts Emit.
	Bridge   bridge.Config
	UserID   string
	Password string
}

type Client struct {
	cfg Config

	mu      sync.Mutex
	onData  func(model.RawMessage)
	symbols []string
	bridge  *bridge.Client
	lost    chan struct{}

	loggedIn atomic.Bool
	closed   atomic.Bool
}

func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg}
}

func (c *Client) Connect(onData func(model.RawMessage)) error {
	if onData == nil {
		return errors.Wrap(exception.ErrNilInstance, "nsq data callback")
	}
	if c.closed.Load() {
		return exception.ErrConnectionClose
	}
	c.mu.Lock()
	c.onData = onData
	c.mu.Unlock()

	if c.cfg.Bridge.URL == "" {
		c.loggedIn.Store(true)
		logs.Infof("nsq running in injection mode")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	client, err := bridge.Dial(ctx, c.cfg.Bridge, c.handle)
	if err != nil {
		return err
	}
	lost := make(chan struct{})
	c.mu.Lock()
	c.bridge = client
	c.lost = lost
	c.mu.Unlock()
	go c.watch(client, lost)

	return client.Send(TypeReqUserLogin, map[string]string{"UserID": c.cfg.UserID, "Password": c.cfg.Password})
}

// Subscribe records symbols, sending them at once when logged in.
func (c *Client) Subscribe(symbols []string) error {
	c.mu.Lock()
	for _, s := range symbols {
		if !slices.Contains(c.symbols, s) {
			c.symbols = append(c.symbols, s)
		}
	}
	client := c.bridge
	c.mu.Unlock()

	if client == nil || !c.loggedIn.Load() || len(symbols) == 0 {
		return nil
	}
	return client.Send(TypeSubscribeMarketData, map[string][]string{"instruments": symbols})
}

func (c *Client) LoggedIn() bool {
	return c.loggedIn.Load()
}

// Lost is closed when the gateway connection drops without Close. It is
// nil in injection mode.
func (c *Client) Lost() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lost
}

func (c *Client) watch(client *bridge.Client, lost chan struct{}) {
	<-client.Done()
	if client.Err() == nil {
		return
	}
	c.loggedIn.Store(false)
	logs.Errorf("nsq gateway %s lost, err: %+v", c.cfg.Bridge.URL, client.Err())
	close(lost)
}

// Emit injects one depth record. record may be a map, a model.FieldGetter
// or any struct carrying the NSQ field names.
func (c *Client) Emit(record any) error {
	if record == nil {
		return errors.Wrap(exception.ErrNilInstance, "nsq record")
	}
	if c.closed.Load() {
		return exception.ErrConnectionClose
	}
	c.mu.Lock()
	onData := c.onData
	c.mu.Unlock()
	if onData == nil {
		return exception.ErrNotConnected
	}

	var fields model.FieldGetter
	switch r := record.(type) {
	case model.FieldGetter:
		fields = r
	case map[string]any:
		fields = model.MapFields(r)
	default:
		fields = model.StructFields{V: record}
	}
	onData(model.RawMessage{Tag: enum.SourceNSQDepth, Payload: model.NSQDepth{Fields: fields}, RecvTime: time.Now()})
	return nil
}

func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.loggedIn.Store(false)
	c.mu.Lock()
	client := c.bridge
	c.bridge = nil
	c.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Close()
}

type loginEnvelope struct {
	ErrorID  int    `json:"ErrorID"`
	ErrorMsg string `json:"ErrorMsg"`
}

func (c *Client) handle(env bridge.Envelope) {
	switch env.Type {
	case TypeRspUserLogin:
		var l loginEnvelope
		if err := env.Decode(&l); err != nil || l.ErrorID != 0 {
			logs.Errorf("nsq login failed, id: %d, msg: %s, err: %+v", l.ErrorID, l.ErrorMsg, err)
			return
		}
		c.loggedIn.Store(true)
		c.mu.Lock()
		symbols := slices.Clone(c.symbols)
		client := c.bridge
		c.mu.Unlock()
		if client != nil && len(symbols) != 0 {
			if err := client.Send(TypeSubscribeMarketData, map[string][]string{"instruments": symbols}); err != nil {
				logs.Errorf("nsq auto subscribe %v, err: %+v", symbols, err)
			}
		}
	case TypeRtnDepthMarketData:
		record := map[string]any{}
		if err := env.Decode(&record); err != nil {
			logs.Warnf("nsq decode depth, err: %+v", err)
			return
		}
		if err := c.Emit(record); err != nil {
			logs.Warnf("nsq emit depth, err: %+v", err)
		}
	default:
		logs.Debugf("nsq ignore envelope %s", env.Type)
	}
}
