package codec

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCString(t *testing.T) {
	assert.Equal(t, "rb2505", CString([]byte("rb2505\x00\x00garbage")))
	assert.Equal(t, "lc2507", CString([]byte("lc2507   \x00")))
	assert.Equal(t, "", CString(make([]byte, 8)))
	assert.Equal(t, "abc", CString([]byte("abc")))
}

func TestDecodeDCEL1Layout(t *testing.T) {
	buf := make([]byte, DCEL1Size)
	binary.LittleEndian.PutUint32(buf[8:], 20250129)
	binary.LittleEndian.PutUint32(buf[12:], 93000500)
	copy(buf[16:], "m2505")
	binary.LittleEndian.PutUint64(buf[392:], math.Float64bits(2890.5))
	binary.LittleEndian.PutUint64(buf[448:], 12345)
	binary.LittleEndian.PutUint64(buf[464:], 67890)
	binary.LittleEndian.PutUint64(buf[480:], math.Float64bits(2890))
	binary.LittleEndian.PutUint64(buf[488:], 7)
	binary.LittleEndian.PutUint64(buf[504:], math.Float64bits(2891))
	binary.LittleEndian.PutUint64(buf[512:], 9)

	q, ok := DecodeDCEL1(buf)
	require.True(t, ok)
	assert.Equal(t, int32(20250129), q.TradeDate)
	assert.Equal(t, int32(93000500), q.Time)
	assert.Equal(t, "m2505", q.Symbol)
	assert.Equal(t, 2890.5, q.LastPrice)
	assert.Equal(t, int64(12345), q.TotalVolume)
	assert.Equal(t, int64(67890), q.TotalPosition)
	assert.Equal(t, 2890.0, q.BuyPrice01)
	assert.Equal(t, int64(7), q.BuyVolume01)
	assert.Equal(t, 2891.0, q.SellPrice01)
	assert.Equal(t, int64(9), q.SellVolume01)

	_, ok = DecodeDCEL1(buf[:DCEL1Size-1])
	assert.False(t, ok)
}

func TestDCEL1RoundTrip(t *testing.T) {
	q := DCEL1Quotation{
		TradeDate:      20250129,
		Time:           145959999,
		Symbol:         "i2505",
		SecurityName:   "iron ore",
		PreClosePrice:  800,
		PreSettlePrice: 801,
		OpenPrice:      802,
		LastPrice:      803.5,
		HighPrice:      810,
		LowPrice:       799,
		TotalVolume:    100,
		TotalPosition:  2000,
		BuyPrice01:     803,
		BuyVolume01:    5,
		SellPrice01:    804,
		SellVolume01:   6,
		SettlePrice:    802.5,
		BatchNo:        3,
	}
	got, ok := DecodeDCEL1(EncodeDCEL1(nil, q))
	require.True(t, ok)
	assert.Equal(t, q, got)
}

func TestDecodeCZCEL1Layout(t *testing.T) {
	buf := make([]byte, CZCEL1Size)
	binary.LittleEndian.PutUint32(buf[8:], 20250129)
	copy(buf[12:], "SR505")
	binary.LittleEndian.PutUint64(buf[56:], 93000500000)
	binary.LittleEndian.PutUint32(buf[64:], 2)
	binary.LittleEndian.PutUint32(buf[72:], 612345)
	binary.LittleEndian.PutUint32(buf[116:], 611000)
	binary.LittleEndian.PutUint32(buf[136:], 612300)
	binary.LittleEndian.PutUint32(buf[148:], 11)

	q, ok := DecodeCZCEL1(buf)
	require.True(t, ok)
	assert.Equal(t, uint32(20250129), q.TradeDate)
	assert.Equal(t, "SR505", q.Symbol)
	assert.Equal(t, int64(93000500000), q.Time)
	assert.Equal(t, int32(2), q.PriceSize)
	assert.Equal(t, int32(612345), q.LastPrice)
	assert.Equal(t, int32(611000), q.SettlePrice)
	assert.Equal(t, int32(612300), q.DeriveBidPrice)
	assert.Equal(t, int32(11), q.DeriveAskLot)

	_, ok = DecodeCZCEL1(buf[:100])
	assert.False(t, ok)
}

func TestDecodeGFEXL2Layout(t *testing.T) {
	f := GFEXL2Frame{
		Flag:          1,
		ContractName:  "lc2507",
		LastPrice:     75400,
		MatchTotalQty: 321,
		OpenInterest:  4567,
		GenTime:       "09:30:00.500",
	}
	f.Bids[0] = GFEXLevel{Price: 75350, Volume: 3}
	f.Asks[0] = GFEXLevel{Price: 75450, Volume: 4}
	f.Asks[4] = GFEXLevel{Price: 75650, Volume: 8}
	f.SellImplyQty[4] = -1

	buf := EncodeGFEXL2(nil, f)
	require.Len(t, buf, GFEXL2Size)
	assert.Equal(t, 75350.0, math.Float64frombits(binary.LittleEndian.Uint64(buf[72:])))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(buf[80:]))
	assert.Equal(t, 75450.0, math.Float64frombits(binary.LittleEndian.Uint64(buf[132:])))

	got, ok := DecodeGFEXL2(append(buf, 0xff, 0xff))
	require.True(t, ok)
	assert.Equal(t, f, got)

	_, ok = DecodeGFEXL2(buf[:GFEXL2Size-1])
	assert.False(t, ok)
}
