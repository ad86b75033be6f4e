package normalizer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"quoteflow/internal/model"
	"quoteflow/internal/model/enum"
	"quoteflow/pkg/exception"

	"github.com/yanun0323/logs"
)

// price maps CTP's "no value" markers (DBL_MAX, NaN, Inf) to 0.
func price(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) >= math.MaxFloat64/2 {
		return 0
	}
	return v
}

func (n *Normalizer) fromCTP(d *model.CTPDepth) (model.Tick, error) {
	symbol := strings.TrimSpace(d.InstrumentID)
	if symbol == "" {
		return model.Tick{}, exception.ErrMissingField
	}

	exchange := enum.Exchange(strings.ToUpper(strings.TrimSpace(d.ExchangeID)))
	if exchange == enum.ExchangeUnknown {
		exchange = InferExchange(symbol)
	}

	return model.Tick{
		Symbol:        symbol,
		Exchange:      exchange,
		LastPrice:     price(d.LastPrice),
		Volume:        d.Volume,
		OpenInterest:  price(d.OpenInterest),
		Datetime:      n.ctpTime(d),
		BidPrice1:     price(d.BidPrice1),
		BidVolume1:    d.BidVolume1,
		AskPrice1:     price(d.AskPrice1),
		AskVolume1:    d.AskVolume1,
		OpenPrice:     price(d.OpenPrice),
		HighPrice:     price(d.HighestPrice),
		LowPrice:      price(d.LowestPrice),
		PreClose:      price(d.PreClosePrice),
		PreSettlement: price(d.PreSettlementPrice),
	}, nil
}

func (n *Normalizer) ctpTime(d *model.CTPDepth) time.Time {
	// TradingDay is the next business day during night sessions, so it
	// never stands in for ActionDay.
	day := strings.TrimSpace(d.ActionDay)
	if day == "" {
		day = n.today().Format("20060102")
	}
	clock := strings.TrimSpace(d.UpdateTime)
	if clock == "" {
		logs.Warnf("ctp tick %s without timestamp, fallback to now", d.InstrumentID)
		return n.now().In(n.loc)
	}

	t, err := time.ParseInLocation("20060102 15:04:05.000", fmt.Sprintf("%s %s.%03d", day, clock, d.UpdateMillisec), n.loc)
	if err != nil {
		logs.Warnf("ctp tick %s timestamp %s %s, err: %+v", d.InstrumentID, day, clock, err)
		return n.now().In(n.loc)
	}
	return t
}
