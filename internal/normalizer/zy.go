package normalizer

import (
	"quoteflow/internal/codec"
	"quoteflow/internal/errors"
	"quoteflow/internal/model"
	"quoteflow/internal/model/enum"
	"quoteflow/pkg/exception"

	"github.com/shopspring/decimal"
)

func (n *Normalizer) fromDCE(frame model.DCEL1Frame) (model.Tick, error) {
	q, ok := codec.DecodeDCEL1(frame)
	if !ok {
		return model.Tick{}, errors.Wrapf(exception.ErrFrameTooShort, "dce l1 size: %d", len(frame))
	}
	if q.Symbol == "" {
		return model.Tick{}, exception.ErrMissingField
	}

	ts, err := compactDateTime(int64(q.TradeDate), int64(q.Time), n.loc)
	if err != nil {
		return model.Tick{}, errors.Wrapf(err, "symbol: %s", q.Symbol)
	}

	return model.Tick{
		Symbol:        q.Symbol,
		Exchange:      enum.ExchangeDCE,
		LastPrice:     price(q.LastPrice),
		Volume:        q.TotalVolume,
		OpenInterest:  float64(q.TotalPosition),
		Datetime:      ts,
		BidPrice1:     price(q.BuyPrice01),
		BidVolume1:    q.BuyVolume01,
		AskPrice1:     price(q.SellPrice01),
		AskVolume1:    q.SellVolume01,
		OpenPrice:     price(q.OpenPrice),
		HighPrice:     price(q.HighPrice),
		LowPrice:      price(q.LowPrice),
		PreClose:      price(q.PreClosePrice),
		PreSettlement: price(q.PreSettlePrice),
	}, nil
}

func (n *Normalizer) fromCZCE(frame model.CZCEL1Frame) (model.Tick, error) {
	q, ok := codec.DecodeCZCEL1(frame)
	if !ok {
		return model.Tick{}, errors.Wrapf(exception.ErrFrameTooShort, "czce l1 size: %d", len(frame))
	}
	if q.Symbol == "" {
		return model.Tick{}, exception.ErrMissingField
	}
	if q.PriceSize < 0 || q.PriceSize > 18 {
		return model.Tick{}, errors.Wrapf(exception.ErrInvalidArgument, "symbol: %s, price size: %d", q.Symbol, q.PriceSize)
	}

	// Time carries microseconds, HHMMSSmmmuuu.
	ts, err := compactDateTime(int64(q.TradeDate), q.Time/1000, n.loc)
	if err != nil {
		return model.Tick{}, errors.Wrapf(err, "symbol: %s", q.Symbol)
	}

	scale := func(v int32) float64 {
		return scaled(v, q.PriceSize)
	}

	return model.Tick{
		Symbol:        q.Symbol,
		Exchange:      enum.ExchangeCZCE,
		LastPrice:     scale(q.LastPrice),
		Volume:        int64(q.TotalVolume),
		OpenInterest:  float64(q.TotalPosition),
		Datetime:      ts,
		BidPrice1:     scale(q.DeriveBidPrice),
		BidVolume1:    int64(q.DeriveBidLot),
		AskPrice1:     scale(q.DeriveAskPrice),
		AskVolume1:    int64(q.DeriveAskLot),
		OpenPrice:     scale(q.OpenPrice),
		HighPrice:     scale(q.HighPrice),
		LowPrice:      scale(q.LowPrice),
		PreClose:      0,
		PreSettlement: scale(q.SettlePrice),
	}, nil
}

// scaled returns v / 10^size, exact to the nearest float64.
func scaled(v int32, size int32) float64 {
	if v == 0 {
		return 0
	}
	f, _ := decimal.New(int64(v), -size).Float64()
	return f
}
