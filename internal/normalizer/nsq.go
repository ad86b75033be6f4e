package normalizer

import (
	"time"

	"quoteflow/internal/model"
	"quoteflow/pkg/exception"

	"github.com/yanun0323/logs"
)

func (n *Normalizer) fromNSQ(f model.FieldGetter) (model.Tick, error) {
	r := fieldReader{f: f}
	symbol := r.str("InstrumentID")
	if symbol == "" {
		return model.Tick{}, exception.ErrMissingField
	}

	return model.Tick{
		Symbol:        symbol,
		Exchange:      resolveExchange(r.str("ExchangeID"), symbol),
		LastPrice:     r.float("LastPrice"),
		Volume:        r.int("TradeVolume"),
		OpenInterest:  r.float("OpenInterest"),
		Datetime:      n.nsqTime(r, symbol),
		BidPrice1:     r.level1("BidPrice"),
		BidVolume1:    int64(r.level1("BidVolume")),
		AskPrice1:     r.level1("AskPrice"),
		AskVolume1:    int64(r.level1("AskVolume")),
		OpenPrice:     r.float("OpenPrice"),
		HighPrice:     r.float("HighestPrice"),
		LowPrice:      r.float("LowestPrice"),
		PreClose:      r.float("PreClosePrice"),
		PreSettlement: r.float("PreSettlementPrice"),
	}, nil
}

func (n *Normalizer) nsqTime(r fieldReader, symbol string) time.Time {
	day, ok := parseDay(r.str("ActionDay"), n.loc)
	if !ok {
		day = n.today()
	}

	t, err := clockOnDay(day, r.str("UpdateTime"))
	if err != nil {
		logs.Warnf("nsq depth %s without valid UpdateTime, fallback to now, err: %+v", symbol, err)
		return n.now().In(n.loc)
	}
	if ms := r.int("UpdateMillisec"); ms > 0 && ms < 1000 && t.Nanosecond() == 0 {
		t = t.Add(time.Duration(ms) * time.Millisecond)
	}
	return t
}

