package model

import (
	"time"

	"quoteflow/internal/model/enum"
)

// Tick is the canonical quote record every feed is normalized into.
type Tick struct {
	Symbol        string         `json:"symbol"`
	Exchange      enum.Exchange  `json:"exchange"`
	LastPrice     float64        `json:"last_price"`
	Volume        int64          `json:"volume"`
	OpenInterest  float64        `json:"open_interest"`
	Datetime      time.Time      `json:"datetime"`
	BidPrice1     float64        `json:"bid_price1"`
	BidVolume1    int64          `json:"bid_volume1"`
	AskPrice1     float64        `json:"ask_price1"`
	AskVolume1    int64          `json:"ask_volume1"`
	OpenPrice     float64        `json:"open_price"`
	HighPrice     float64        `json:"high_price"`
	LowPrice      float64        `json:"low_price"`
	PreClose      float64        `json:"pre_close"`
	PreSettlement float64        `json:"pre_settlement"`
	Source        enum.SourceTag `json:"source"`
}

// DedupKey identifies a tick for duplicate suppression.
type DedupKey struct {
	Symbol   string
	UnixMsec int64
}

func (t Tick) Key() DedupKey {
	return DedupKey{Symbol: t.Symbol, UnixMsec: t.Datetime.UnixMilli()}
}
