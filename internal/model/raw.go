package model

import (
	"time"

	"quoteflow/internal/model/enum"
)

// RawMessage is the envelope a vendor callback hands to its collector.
type RawMessage struct {
	Tag      enum.SourceTag
	Payload  Payload
	RecvTime time.Time
}

// Payload is the closed set of vendor payload shapes.
// Only types declared in this package satisfy it.
type Payload interface {
	Source() enum.SourceTag
	payload()
}

var (
	_ Payload = (*CTPDepth)(nil)
	_ Payload = DCEL1Frame(nil)
	_ Payload = CZCEL1Frame(nil)
	_ Payload = NSQDepth{}
	_ Payload = GFEXL2Frame(nil)
)

// CTPDepth mirrors the CTP depth market data callback struct.
type CTPDepth struct {
	TradingDay         string  `json:"TradingDay"`
	InstrumentID       string  `json:"InstrumentID"`
	ExchangeID         string  `json:"ExchangeID"`
	LastPrice          float64 `json:"LastPrice"`
	PreSettlementPrice float64 `json:"PreSettlementPrice"`
	PreClosePrice      float64 `json:"PreClosePrice"`
	PreOpenInterest    float64 `json:"PreOpenInterest"`
	OpenPrice          float64 `json:"OpenPrice"`
	HighestPrice       float64 `json:"HighestPrice"`
	LowestPrice        float64 `json:"LowestPrice"`
	Volume             int64   `json:"Volume"`
	Turnover           float64 `json:"Turnover"`
	OpenInterest       float64 `json:"OpenInterest"`
	UpperLimitPrice    float64 `json:"UpperLimitPrice"`
	LowerLimitPrice    float64 `json:"LowerLimitPrice"`
	UpdateTime         string  `json:"UpdateTime"`
	UpdateMillisec     int32   `json:"UpdateMillisec"`
	BidPrice1          float64 `json:"BidPrice1"`
	BidVolume1         int64   `json:"BidVolume1"`
	AskPrice1          float64 `json:"AskPrice1"`
	AskVolume1         int64   `json:"AskVolume1"`
	ActionDay          string  `json:"ActionDay"`
}

func (*CTPDepth) Source() enum.SourceTag { return enum.SourceCTPTick }
func (*CTPDepth) payload()               {}

// DCEL1Frame is a raw DCE level-1 quotation struct as received from the ZY bridge.
type DCEL1Frame []byte

func (DCEL1Frame) Source() enum.SourceTag { return enum.SourceDCEL1 }
func (DCEL1Frame) payload()               {}

// CZCEL1Frame is a raw CZCE level-1 quotation struct as received from the ZY bridge.
type CZCEL1Frame []byte

func (CZCEL1Frame) Source() enum.SourceTag { return enum.SourceCZCEL1 }
func (CZCEL1Frame) payload()               {}

// GFEXL2Frame is a raw GFEX level-2 frame copied out of the receive buffer.
type GFEXL2Frame []byte

func (GFEXL2Frame) Source() enum.SourceTag { return enum.SourceGFEXL2 }
func (GFEXL2Frame) payload()               {}

// NSQDepth carries an NSQ depth record behind a named-field accessor.
type NSQDepth struct {
	Fields FieldGetter
}

func (NSQDepth) Source() enum.SourceTag { return enum.SourceNSQDepth }
func (NSQDepth) payload()               {}
