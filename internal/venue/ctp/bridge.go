package ctp

import (
	"context"
	"sync"
	"time"

	"quoteflow/internal/errors"
	"quoteflow/internal/model"
	"quoteflow/internal/venue/bridge"
	"quoteflow/pkg/exception"

	"github.com/yanun0323/logs"
)

// Gateway envelope types.
const (
	TypeFrontConnected      = "front_connected"
	TypeFrontDisconnected   = "front_disconnected"
	TypeRspUserLogin        = "rsp_user_login"
	TypeRspSubMarketData    = "rsp_sub_market_data"
	TypeRtnDepthMarketData  = "rtn_depth_market_data"
	TypeRegisterFront       = "register_front"
	TypeReqUserLogin        = "req_user_login"
	TypeSubscribeMarketData = "subscribe_market_data"
)

// ReasonNetworkReadFailed is the CTP disconnect reason reported when the
// gateway connection itself drops.
const ReasonNetworkReadFailed = 0x1001

var _ MdAPI = (*BridgeAPI)(nil)

// BridgeAPI implements MdAPI against a gateway process hosting the native
// CTP library.
type BridgeAPI struct {
	cfg bridge.Config

	mu     sync.Mutex
	spi    MdSpi
	front  string
	client *bridge.Client
	lost   chan struct{}
}

func NewBridgeAPI(cfg bridge.Config) *BridgeAPI {
	return &BridgeAPI{cfg: cfg}
}

func (a *BridgeAPI) RegisterSpi(spi MdSpi) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.spi = spi
}

func (a *BridgeAPI) RegisterFront(addr string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.front = addr
}

func (a *BridgeAPI) Init() error {
	timeout := a.cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*timeout)
	defer cancel()

	client, err := bridge.Dial(ctx, a.cfg, a.dispatch)
	if err != nil {
		return err
	}

	lost := make(chan struct{})
	a.mu.Lock()
	a.client = client
	a.lost = lost
	front := a.front
	a.mu.Unlock()
	go a.watch(client, lost)

	return client.Send(TypeRegisterFront, map[string]string{"front": front})
}

func (a *BridgeAPI) ReqUserLogin(req LoginRequest, requestID int) error {
	return a.send(TypeReqUserLogin, struct {
		LoginRequest
		RequestID int `json:"RequestID"`
	}{req, requestID})
}

func (a *BridgeAPI) SubscribeMarketData(symbols []string) error {
	return a.send(TypeSubscribeMarketData, map[string][]string{"instruments": symbols})
}

func (a *BridgeAPI) Release() error {
	a.mu.Lock()
	client := a.client
	a.client = nil
	a.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Close()
}

// Lost is closed when the gateway connection of the last Init drops
// without Release.
func (a *BridgeAPI) Lost() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lost
}

func (a *BridgeAPI) watch(client *bridge.Client, lost chan struct{}) {
	<-client.Done()
	if client.Err() == nil {
		return
	}
	close(lost)
	a.mu.Lock()
	spi := a.spi
	a.mu.Unlock()
	if spi != nil {
		spi.OnFrontDisconnected(ReasonNetworkReadFailed)
	}
}

func (a *BridgeAPI) send(typ string, data any) error {
	a.mu.Lock()
	client := a.client
	a.mu.Unlock()
	if client == nil {
		return errors.Wrapf(exception.ErrNotConnected, "ctp bridge %s", typ)
	}
	return client.Send(typ, data)
}

type loginEnvelope struct {
	RspUserLogin LoginResponse `json:"RspUserLogin"`
	RspInfo      RspInfo       `json:"RspInfo"`
	RequestID    int           `json:"RequestID"`
	IsLast       bool          `json:"IsLast"`
}

type subEnvelope struct {
	InstrumentID string  `json:"InstrumentID"`
	RspInfo      RspInfo `json:"RspInfo"`
}

type disconnectEnvelope struct {
	Reason int `json:"Reason"`
}

func (a *BridgeAPI) dispatch(env bridge.Envelope) {
	a.mu.Lock()
	spi := a.spi
	a.mu.Unlock()
	if spi == nil {
		return
	}

	switch env.Type {
	case TypeFrontConnected:
		spi.OnFrontConnected()
	case TypeFrontDisconnected:
		var d disconnectEnvelope
		_ = env.Decode(&d)
		spi.OnFrontDisconnected(d.Reason)
	case TypeRspUserLogin:
		var l loginEnvelope
		if err := env.Decode(&l); err != nil {
			logs.Warnf("ctp bridge decode %s, err: %+v", env.Type, err)
			return
		}
		spi.OnRspUserLogin(l.RspUserLogin, l.RspInfo, l.RequestID, l.IsLast)
	case TypeRspSubMarketData:
		var s subEnvelope
		if err := env.Decode(&s); err != nil {
			logs.Warnf("ctp bridge decode %s, err: %+v", env.Type, err)
			return
		}
		spi.OnRspSubMarketData(s.InstrumentID, s.RspInfo)
	case TypeRtnDepthMarketData:
		depth := &model.CTPDepth{}
		if err := env.Decode(depth); err != nil {
			logs.Warnf("ctp bridge decode %s, err: %+v", env.Type, err)
			return
		}
		spi.OnRtnDepthMarketData(depth)
	default:
		logs.Debugf("ctp bridge ignore envelope %s", env.Type)
	}
}
