package normalizer

import (
	"math"
	"testing"
	"time"

	"quoteflow/internal/codec"
	"quoteflow/internal/model"
	"quoteflow/internal/model/enum"
	"quoteflow/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	cst     = time.FixedZone("CST", 8*3600)
	fixedAt = time.Date(2025, 1, 29, 10, 0, 0, 0, cst)
)

func newTestNormalizer() *Normalizer {
	return New(WithLocation(cst), WithClock(func() time.Time { return fixedAt }))
}

func TestNormalizeCTP(t *testing.T) {
	n := newTestNormalizer()

	tick, err := n.Normalize(model.RawMessage{
		Tag: enum.SourceCTPTick,
		Payload: &model.CTPDepth{
			InstrumentID:   "rb2505",
			LastPrice:      3500.0,
			Volume:         100,
			OpenInterest:   2000,
			UpdateTime:     "09:30:00",
			UpdateMillisec: 500,
			ActionDay:      "20250129",
			BidPrice1:      3499,
			AskPrice1:      math.MaxFloat64,
			OpenPrice:      math.NaN(),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "rb2505", tick.Symbol)
	assert.Equal(t, enum.ExchangeSHFE, tick.Exchange)
	assert.Equal(t, 3500.0, tick.LastPrice)
	assert.Equal(t, int64(100), tick.Volume)
	assert.Equal(t, 3499.0, tick.BidPrice1)
	assert.Zero(t, tick.AskPrice1)
	assert.Zero(t, tick.OpenPrice)
	assert.Equal(t, enum.SourceCTPTick, tick.Source)
	assert.True(t, time.Date(2025, 1, 29, 9, 30, 0, 500_000_000, cst).Equal(tick.Datetime))
}

func TestNormalizeCTPTimestampFallback(t *testing.T) {
	n := newTestNormalizer()

	testCases := map[string]*model.CTPDepth{
		"missing clock": {InstrumentID: "cu2505", ExchangeID: "SHFE", LastPrice: 1, ActionDay: "20250129"},
		"bad clock":     {InstrumentID: "cu2505", ExchangeID: "SHFE", LastPrice: 1, ActionDay: "20250129", UpdateTime: "9h30"},
	}
	for name, depth := range testCases {
		t.Run(name, func(t *testing.T) {
			tick, err := n.Normalize(model.RawMessage{Tag: enum.SourceCTPTick, Payload: depth})
			require.NoError(t, err)
			assert.True(t, fixedAt.Equal(tick.Datetime))
		})
	}
}

func TestNormalizeNightSessionUsesActionDay(t *testing.T) {
	// Friday night session: TradingDay already points at Monday.
	friday := time.Date(2025, 1, 31, 21, 30, 0, 0, cst)
	n := New(WithLocation(cst), WithClock(func() time.Time { return friday }))

	testCases := map[string]model.RawMessage{
		"ctp without action day": {Tag: enum.SourceCTPTick, Payload: &model.CTPDepth{
			InstrumentID: "rb2505", LastPrice: 3500, TradingDay: "20250203", UpdateTime: "21:30:00", UpdateMillisec: 250,
		}},
		"ctp with action day": {Tag: enum.SourceCTPTick, Payload: &model.CTPDepth{
			InstrumentID: "rb2505", LastPrice: 3500, TradingDay: "20250203", ActionDay: "20250131", UpdateTime: "21:30:00", UpdateMillisec: 250,
		}},
		"nsq without action day": {Tag: enum.SourceNSQDepth, Payload: model.NSQDepth{Fields: model.MapFields{
			"InstrumentID": "cu2505", "ExchangeID": "F3", "LastPrice": 1.0, "TradingDay": "20250203", "UpdateTime": "21:30:00.250",
		}}},
		"nsq with action day": {Tag: enum.SourceNSQDepth, Payload: model.NSQDepth{Fields: model.MapFields{
			"InstrumentID": "cu2505", "ExchangeID": "F3", "LastPrice": 1.0, "TradingDay": "20250203", "ActionDay": "20250131", "UpdateTime": "21:30:00.250",
		}}},
	}
	want := time.Date(2025, 1, 31, 21, 30, 0, 250_000_000, cst)
	for name, msg := range testCases {
		t.Run(name, func(t *testing.T) {
			tick, err := n.Normalize(msg)
			require.NoError(t, err)
			assert.True(t, want.Equal(tick.Datetime), "got %s", tick.Datetime)
		})
	}
}

func TestNormalizeCTPMissingActionDayUsesToday(t *testing.T) {
	n := newTestNormalizer()
	tick, err := n.Normalize(model.RawMessage{Tag: enum.SourceCTPTick, Payload: &model.CTPDepth{
		InstrumentID: "cu2505", ExchangeID: "SHFE", LastPrice: 1, UpdateTime: "09:30:00",
	}})
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 1, 29, 9, 30, 0, 0, cst).Equal(tick.Datetime))
}

func TestNormalizeDCE(t *testing.T) {
	n := newTestNormalizer()
	frame := codec.EncodeDCEL1(nil, codec.DCEL1Quotation{
		TradeDate:      20250129,
		Time:           93000500,
		Symbol:         "m2505",
		LastPrice:      2890,
		TotalVolume:    321,
		TotalPosition:  65432,
		BuyPrice01:     2889,
		BuyVolume01:    4,
		SellPrice01:    2891,
		SellVolume01:   5,
		OpenPrice:      2880,
		HighPrice:      2895,
		LowPrice:       2875,
		PreClosePrice:  2870,
		PreSettlePrice: 2872,
	})

	tick, err := n.Normalize(model.RawMessage{Tag: enum.SourceDCEL1, Payload: model.DCEL1Frame(frame)})
	require.NoError(t, err)
	assert.Equal(t, model.Tick{
		Symbol:        "m2505",
		Exchange:      enum.ExchangeDCE,
		LastPrice:     2890,
		Volume:        321,
		OpenInterest:  65432,
		Datetime:      time.Date(2025, 1, 29, 9, 30, 0, 500_000_000, cst),
		BidPrice1:     2889,
		BidVolume1:    4,
		AskPrice1:     2891,
		AskVolume1:    5,
		OpenPrice:     2880,
		HighPrice:     2895,
		LowPrice:      2875,
		PreClose:      2870,
		PreSettlement: 2872,
		Source:        enum.SourceDCEL1,
	}, tick)

	bad := codec.EncodeDCEL1(nil, codec.DCEL1Quotation{TradeDate: 20250129, Time: 256000000, Symbol: "m2505", LastPrice: 1})
	_, err = n.Normalize(model.RawMessage{Tag: enum.SourceDCEL1, Payload: model.DCEL1Frame(bad)})
	assert.ErrorIs(t, err, exception.ErrParse)
}

func TestNormalizeCZCEScaling(t *testing.T) {
	n := newTestNormalizer()

	testCases := []struct {
		last int32
		size int32
	}{
		{612345, 2},
		{5432, 0},
		{123456789, 4},
		{7, 3},
		{0, 2},
	}
	for _, tc := range testCases {
		frame := codec.EncodeCZCEL1(nil, codec.CZCEL1Quotation{
			TradeDate:      20250129,
			Symbol:         "SR505",
			Time:           93000500123,
			PriceSize:      tc.size,
			LastPrice:      tc.last,
			SettlePrice:    tc.last,
			DeriveBidPrice: 0,
			DeriveAskPrice: tc.last,
			TotalVolume:    10,
			TotalPosition:  20,
		})
		tick, err := n.Normalize(model.RawMessage{Tag: enum.SourceCZCEL1, Payload: model.CZCEL1Frame(frame)})
		require.NoError(t, err)

		want := float64(tc.last) / math.Pow10(int(tc.size))
		assert.Equal(t, want, tick.LastPrice, "last=%d size=%d", tc.last, tc.size)
		assert.Equal(t, want, tick.PreSettlement)
		assert.Equal(t, want, tick.AskPrice1)
		assert.Zero(t, tick.BidPrice1)
		assert.Zero(t, tick.PreClose)
		assert.Equal(t, enum.ExchangeCZCE, tick.Exchange)
		assert.True(t, time.Date(2025, 1, 29, 9, 30, 0, 500_000_000, cst).Equal(tick.Datetime))
	}
}

type nsqDepth struct {
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
	ActionDay          string
	BidPrice           [5]float64
	BidVolume          [5]int64
	AskPrice           [5]float64
	AskVolume          [5]int64
}

func TestNormalizeNSQAdapters(t *testing.T) {
	n := newTestNormalizer()

	typed := &nsqDepth{
		TradingDay:   "20250129",
		InstrumentID: "m2505",
		ExchangeID:   "F2",
		LastPrice:    2890,
		TradeVolume:  15,
		OpenInterest: 300,
		UpdateTime:   "09:30:00.250",
		BidPrice:     [5]float64{2889, 2888},
		BidVolume:    [5]int64{3, 4},
		AskPrice:     [5]float64{2891},
		AskVolume:    [5]int64{6},
	}
	mapped := model.MapFields{
		"TradingDay":   20250129.0,
		"InstrumentID": "m2505",
		"ExchangeID":   "F2",
		"LastPrice":    2890.0,
		"TradeVolume":  15.0,
		"OpenInterest": 300.0,
		"UpdateTime":   "09:30:00.250",
		"BidPrice":     []any{2889.0, 2888.0},
		"BidVolume":    []any{3.0, 4.0},
		"AskPrice1":    2891.0,
		"AskVolume1":   6.0,
	}

	fromStruct, err := n.Normalize(model.RawMessage{Tag: enum.SourceNSQDepth, Payload: model.NSQDepth{Fields: model.StructFields{V: typed}}})
	require.NoError(t, err)
	fromMap, err := n.Normalize(model.RawMessage{Tag: enum.SourceNSQDepth, Payload: model.NSQDepth{Fields: mapped}})
	require.NoError(t, err)

	assert.Equal(t, fromStruct, fromMap)
	assert.Equal(t, enum.ExchangeDCE, fromMap.Exchange)
	assert.Equal(t, 2889.0, fromMap.BidPrice1)
	assert.Equal(t, int64(3), fromMap.BidVolume1)
	assert.Equal(t, 2891.0, fromMap.AskPrice1)
	assert.Equal(t, int64(6), fromMap.AskVolume1)
	assert.True(t, time.Date(2025, 1, 29, 9, 30, 0, 250_000_000, cst).Equal(fromMap.Datetime))
}

func TestNormalizeNSQExchangeAndTime(t *testing.T) {
	n := newTestNormalizer()

	testCases := []struct {
		name     string
		fields   model.MapFields
		exchange enum.Exchange
		at       time.Time
	}{
		{
			name:     "shfe code with compact clock",
			fields:   model.MapFields{"InstrumentID": "cu2505", "ExchangeID": "F3", "LastPrice": 1.0, "ActionDay": "20250128", "UpdateTime": 213000500.0},
			exchange: enum.ExchangeSHFE,
			at:       time.Date(2025, 1, 28, 21, 30, 0, 500_000_000, cst),
		},
		{
			name:     "ine code without date",
			fields:   model.MapFields{"InstrumentID": "sc2505", "ExchangeID": "F5", "LastPrice": 1.0, "UpdateTime": "09:01:02"},
			exchange: enum.ExchangeINE,
			at:       time.Date(2025, 1, 29, 9, 1, 2, 0, cst),
		},
		{
			name:     "inferred exchange and malformed clock",
			fields:   model.MapFields{"InstrumentID": "zn2603", "LastPrice": 1.0, "UpdateTime": "morning"},
			exchange: enum.ExchangeSHFE,
			at:       fixedAt,
		},
		{
			name:     "exchange name passes through",
			fields:   model.MapFields{"InstrumentID": "lc2507", "ExchangeID": "gfex", "LastPrice": 1.0, "UpdateTime": "10:00:00"},
			exchange: enum.ExchangeGFEX,
			at:       fixedAt,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tick, err := n.Normalize(model.RawMessage{Tag: enum.SourceNSQDepth, Payload: model.NSQDepth{Fields: tc.fields}})
			require.NoError(t, err)
			assert.Equal(t, tc.exchange, tick.Exchange)
			assert.True(t, tc.at.Equal(tick.Datetime), "got %s", tick.Datetime)
		})
	}

	_, err := n.Normalize(model.RawMessage{Tag: enum.SourceNSQDepth, Payload: model.NSQDepth{Fields: model.MapFields{"LastPrice": 1.0}}})
	assert.ErrorIs(t, err, exception.ErrParse)
	assert.ErrorIs(t, err, exception.ErrMissingField)
}

func TestNormalizeGFEX(t *testing.T) {
	n := newTestNormalizer()

	f := codec.GFEXL2Frame{
		ContractName:  "lc2507",
		LastPrice:     75400,
		MatchTotalQty: 88,
		OpenInterest:  1200,
		GenTime:       "09:30:00.500",
	}
	f.Bids[0] = codec.GFEXLevel{Price: 75350, Volume: 3}
	f.Asks[0] = codec.GFEXLevel{Price: 75450, Volume: 4}

	tick, err := n.Normalize(model.RawMessage{Tag: enum.SourceGFEXL2, Payload: model.GFEXL2Frame(codec.EncodeGFEXL2(nil, f))})
	require.NoError(t, err)
	assert.Equal(t, "lc2507", tick.Symbol)
	assert.Equal(t, enum.ExchangeGFEX, tick.Exchange)
	assert.Equal(t, 75400.0, tick.LastPrice)
	assert.Equal(t, int64(88), tick.Volume)
	assert.Equal(t, 1200.0, tick.OpenInterest)
	assert.Equal(t, 75350.0, tick.BidPrice1)
	assert.Equal(t, int64(4), tick.AskVolume1)
	assert.True(t, time.Date(2025, 1, 29, 9, 30, 0, 500_000_000, cst).Equal(tick.Datetime))

	f.GenTime = "101500250"
	tick, err = n.Normalize(model.RawMessage{Tag: enum.SourceGFEXL2, Payload: model.GFEXL2Frame(codec.EncodeGFEXL2(nil, f))})
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 1, 29, 10, 15, 0, 250_000_000, cst).Equal(tick.Datetime))

	f.GenTime = "??"
	tick, err = n.Normalize(model.RawMessage{Tag: enum.SourceGFEXL2, Payload: model.GFEXL2Frame(codec.EncodeGFEXL2(nil, f))})
	require.NoError(t, err)
	assert.True(t, fixedAt.Equal(tick.Datetime))
}

func TestNormalizeRejects(t *testing.T) {
	n := newTestNormalizer()

	testCases := []struct {
		name string
		msg  model.RawMessage
		want error
	}{
		{"unknown tag", model.RawMessage{Tag: enum.SourceTag(42), Payload: model.DCEL1Frame{}}, exception.ErrUnknownSourceTag},
		{"zero tag", model.RawMessage{}, exception.ErrUnknownSourceTag},
		{"nil payload", model.RawMessage{Tag: enum.SourceCTPTick}, exception.ErrNilPayload},
		{"typed nil ctp", model.RawMessage{Tag: enum.SourceCTPTick, Payload: (*model.CTPDepth)(nil)}, exception.ErrNilPayload},
		{"nil nsq fields", model.RawMessage{Tag: enum.SourceNSQDepth, Payload: model.NSQDepth{}}, exception.ErrNilPayload},
		{"tag mismatch", model.RawMessage{Tag: enum.SourceDCEL1, Payload: model.CZCEL1Frame(make([]byte, codec.CZCEL1Size))}, exception.ErrSourceTagMismatch},
		{"short dce", model.RawMessage{Tag: enum.SourceDCEL1, Payload: model.DCEL1Frame(make([]byte, 10))}, exception.ErrFrameTooShort},
		{"short gfex", model.RawMessage{Tag: enum.SourceGFEXL2, Payload: model.GFEXL2Frame(nil)}, exception.ErrFrameTooShort},
		{"empty symbol", model.RawMessage{Tag: enum.SourceCTPTick, Payload: &model.CTPDepth{LastPrice: 1}}, exception.ErrMissingField},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var (
				tick model.Tick
				err  error
			)
			require.NotPanics(t, func() { tick, err = n.Normalize(tc.msg) })
			assert.ErrorIs(t, err, exception.ErrParse)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, model.Tick{}, tick)
		})
	}
}

func TestInferExchange(t *testing.T) {
	testCases := map[string]enum.Exchange{
		"zn2603": enum.ExchangeSHFE,
		"rb2505": enum.ExchangeSHFE,
		"sc2505": enum.ExchangeINE,
		"m2505":  enum.ExchangeDCE,
		"SR505":  enum.ExchangeCZCE,
		"sr505":  enum.ExchangeCZCE,
		"IF2503": enum.ExchangeCFFEX,
		"T2506":  enum.ExchangeCFFEX,
		"lc2507": enum.ExchangeGFEX,
		"CU2505": enum.ExchangeSHFE,
		"xx2505": enum.ExchangeUnknown,
		"":       enum.ExchangeUnknown,
	}
	for symbol, want := range testCases {
		assert.Equal(t, want, InferExchange(symbol), symbol)
	}
}
