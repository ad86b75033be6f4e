// Package ctp drives a CTP market data front: front connect, user login,
// then subscription, with depth market data delivered through callbacks.
package ctp

import "quoteflow/internal/model"

// MdAPI is the request side of the CTP market data API.
type MdAPI interface {
	RegisterSpi(spi MdSpi)
	RegisterFront(addr string)
	Init() error
	ReqUserLogin(req LoginRequest, requestID int) error
	SubscribeMarketData(symbols []string) error
	Release() error
}

// MdSpi is the callback side of the CTP market data API.
type MdSpi interface {
	OnFrontConnected()
	OnFrontDisconnected(reason int)
	OnRspUserLogin(rsp LoginResponse, info RspInfo, requestID int, isLast bool)
	OnRspSubMarketData(symbol string, info RspInfo)
	OnRtnDepthMarketData(depth *model.CTPDepth)
}

type LoginRequest struct {
	BrokerID string `json:"BrokerID"`
	UserID   string `json:"UserID"`
	Password string `json:"Password"`
}

type LoginResponse struct {
	TradingDay string `json:"TradingDay"`
	LoginTime  string `json:"LoginTime"`
	BrokerID   string `json:"BrokerID"`
	UserID     string `json:"UserID"`
	FrontID    int    `json:"FrontID"`
	SessionID  int    `json:"SessionID"`
}

type RspInfo struct {
	ErrorID  int    `json:"ErrorID"`
	ErrorMsg string `json:"ErrorMsg"`
}

func (r RspInfo) OK() bool {
	return r.ErrorID == 0
}
