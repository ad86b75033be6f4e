package normalizer

import (
	"quoteflow/internal/codec"
	"quoteflow/internal/errors"
	"quoteflow/internal/model"
	"quoteflow/internal/model/enum"
	"quoteflow/pkg/exception"

	"github.com/yanun0323/logs"
)

func (n *Normalizer) fromGFEX(frame model.GFEXL2Frame) (model.Tick, error) {
	f, ok := codec.DecodeGFEXL2(frame)
	if !ok {
		return model.Tick{}, errors.Wrapf(exception.ErrFrameTooShort, "gfex l2 size: %d", len(frame))
	}
	if f.ContractName == "" {
		return model.Tick{}, exception.ErrMissingField
	}

	// gen_time carries the clock only.
	ts, err := clockOnDay(n.today(), f.GenTime)
	if err != nil {
		logs.Warnf("gfex frame %s gen_time %q, fallback to now, err: %+v", f.ContractName, f.GenTime, err)
		ts = n.now().In(n.loc)
	}

	return model.Tick{
		Symbol:       f.ContractName,
		Exchange:     enum.ExchangeGFEX,
		LastPrice:    price(f.LastPrice),
		Volume:       int64(f.MatchTotalQty),
		OpenInterest: float64(f.OpenInterest),
		Datetime:     ts,
		BidPrice1:    price(f.Bids[0].Price),
		BidVolume1:   int64(f.Bids[0].Volume),
		AskPrice1:    price(f.Asks[0].Price),
		AskVolume1:   int64(f.Asks[0].Volume),
	}, nil
}

