package model

import (
	"testing"
	"time"

	"quoteflow/internal/model/enum"
	"quoteflow/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContractCode(t *testing.T) {
	c, err := ParseContractCode("rb2505")
	require.NoError(t, err)
	assert.Equal(t, Contract{Product: "rb", Year: 2025, Month: 5, Code: "rb2505"}, c)

	for _, code := range []string{"rb205", "rb25051", "2505", "rb2513"} {
		_, err := ParseContractCode(code)
		assert.ErrorIs(t, err, exception.ErrInvalidContractCode, code)
	}
}

func TestProductCode(t *testing.T) {
	testCases := map[string]string{
		"zn2603": "zn",
		"SR505":  "SR",
		"IF2503": "IF",
		"lc":     "lc",
		"2503":   "",
		"":       "",
	}
	for symbol, want := range testCases {
		assert.Equal(t, want, ProductCode(symbol), symbol)
	}
}

func TestTickKey(t *testing.T) {
	ts := time.Date(2025, 1, 29, 9, 30, 0, 500_400_000, time.Local)
	a := Tick{Symbol: "rb2505", Datetime: ts}
	b := Tick{Symbol: "rb2505", Datetime: ts.Add(100 * time.Microsecond)}
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), Tick{Symbol: "rb2510", Datetime: ts}.Key())
}

type nsqRecord struct {
	InstrumentID string
	LastPrice    float64
	BidPrice     []float64
	hidden       int
}

func TestFieldGetters(t *testing.T) {
	rec := &nsqRecord{InstrumentID: "m2505", LastPrice: 2890, BidPrice: []float64{2889}, hidden: 1}

	sf := StructFields{V: rec}
	v, ok := sf.Field("InstrumentID")
	require.True(t, ok)
	assert.Equal(t, "m2505", v)

	_, ok = sf.Field("hidden")
	assert.False(t, ok)
	_, ok = sf.Field("Missing")
	assert.False(t, ok)

	m := sf.ToMap()
	assert.Len(t, m, 3)
	assert.Equal(t, 2890.0, m["LastPrice"])

	mf := MapFields{"InstrumentID": "m2505", "Nil": nil}
	v, ok = mf.Field("InstrumentID")
	require.True(t, ok)
	assert.Equal(t, "m2505", v)
	_, ok = mf.Field("Nil")
	assert.False(t, ok)

	_, ok = StructFields{V: (*nsqRecord)(nil)}.Field("InstrumentID")
	assert.False(t, ok)
	_, ok = StructFields{V: 42}.Field("InstrumentID")
	assert.False(t, ok)
}

func TestPayloadSourceTags(t *testing.T) {
	testCases := []struct {
		payload Payload
		want    enum.SourceTag
	}{
		{&CTPDepth{}, enum.SourceCTPTick},
		{DCEL1Frame{}, enum.SourceDCEL1},
		{CZCEL1Frame{}, enum.SourceCZCEL1},
		{NSQDepth{}, enum.SourceNSQDepth},
		{GFEXL2Frame{}, enum.SourceGFEXL2},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, tc.payload.Source())
	}
}
