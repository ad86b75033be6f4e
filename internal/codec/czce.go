package codec

// CZCE level-1 quotation from the ZY bridge. Prices are integers scaled by
// 10^PriceSize.
const (
	CZCEL1Size      = 152
	CZCEL2LevelSize = 192
)

const (
	czceLocalTimeStamp       = 0
	czceFlag                 = 4
	czceTradeDate            = 8
	czceSymbol               = 12
	czceSymbolLen            = 40
	czceTime                 = 56
	czcePriceSize            = 64
	czceOpenPrice            = 68
	czceLastPrice            = 72
	czceAveragePrice         = 76
	czceHighPrice            = 80
	czceLowPrice             = 84
	czceLifeHigh             = 88
	czceLifeLow              = 92
	czceTotalVolume          = 96
	czceTotalAmount          = 104
	czceTotalPosition        = 112
	czceSettlePrice          = 116
	czceTotalBuyOrderVolume  = 120
	czceWtAvgBuyPrice        = 124
	czceTotalSellOrderVolume = 128
	czceWtAvgSellPrice       = 132
	czceDeriveBidPrice       = 136
	czceDeriveAskPrice       = 140
	czceDeriveBidLot         = 144
	czceDeriveAskLot         = 148
)

// CZCEL1Quotation is the decoded CZCE level-1 struct with raw integer prices.
type CZCEL1Quotation struct {
	LocalTimeStamp       int32
	Flag                 string
	TradeDate            uint32
	Symbol               string
	Time                 int64 // HHMMSSmmmuuu
	PriceSize            int32
	OpenPrice            int32
	LastPrice            int32
	AveragePrice         int32
	HighPrice            int32
	LowPrice             int32
	LifeHigh             int32
	LifeLow              int32
	TotalVolume          int32
	TotalAmount          int64
	TotalPosition        int32
	SettlePrice          int32
	TotalBuyOrderVolume  int32
	WtAvgBuyPrice        int32
	TotalSellOrderVolume int32
	WtAvgSellPrice       int32
	DeriveBidPrice       int32
	DeriveAskPrice       int32
	DeriveBidLot         int32
	DeriveAskLot         int32
}

// DecodeCZCEL1 parses a CZCE level-1 frame.
func DecodeCZCEL1(src []byte) (CZCEL1Quotation, bool) {
	if len(src) < CZCEL1Size {
		return CZCEL1Quotation{}, false
	}
	return CZCEL1Quotation{
		LocalTimeStamp:       getI32(src, czceLocalTimeStamp),
		Flag:                 CString(src[czceFlag : czceFlag+4]),
		TradeDate:            le.Uint32(src[czceTradeDate : czceTradeDate+4]),
		Symbol:               CString(src[czceSymbol : czceSymbol+czceSymbolLen]),
		Time:                 getI64(src, czceTime),
		PriceSize:            getI32(src, czcePriceSize),
		OpenPrice:            getI32(src, czceOpenPrice),
		LastPrice:            getI32(src, czceLastPrice),
		AveragePrice:         getI32(src, czceAveragePrice),
		HighPrice:            getI32(src, czceHighPrice),
		LowPrice:             getI32(src, czceLowPrice),
		LifeHigh:             getI32(src, czceLifeHigh),
		LifeLow:              getI32(src, czceLifeLow),
		TotalVolume:          getI32(src, czceTotalVolume),
		TotalAmount:          getI64(src, czceTotalAmount),
		TotalPosition:        getI32(src, czceTotalPosition),
		SettlePrice:          getI32(src, czceSettlePrice),
		TotalBuyOrderVolume:  getI32(src, czceTotalBuyOrderVolume),
		WtAvgBuyPrice:        getI32(src, czceWtAvgBuyPrice),
		TotalSellOrderVolume: getI32(src, czceTotalSellOrderVolume),
		WtAvgSellPrice:       getI32(src, czceWtAvgSellPrice),
		DeriveBidPrice:       getI32(src, czceDeriveBidPrice),
		DeriveAskPrice:       getI32(src, czceDeriveAskPrice),
		DeriveBidLot:         getI32(src, czceDeriveBidLot),
		DeriveAskLot:         getI32(src, czceDeriveAskLot),
	}, true
}

// EncodeCZCEL1 serializes q into the CZCE level-1 layout.
func EncodeCZCEL1(dst []byte, q CZCEL1Quotation) []byte {
	dst = alloc(dst, CZCEL1Size)
	putI32(dst, czceLocalTimeStamp, q.LocalTimeStamp)
	putCString(dst[czceFlag:czceFlag+4], q.Flag)
	le.PutUint32(dst[czceTradeDate:czceTradeDate+4], q.TradeDate)
	putCString(dst[czceSymbol:czceSymbol+czceSymbolLen], q.Symbol)
	putI64(dst, czceTime, q.Time)
	putI32(dst, czcePriceSize, q.PriceSize)
	putI32(dst, czceOpenPrice, q.OpenPrice)
	putI32(dst, czceLastPrice, q.LastPrice)
	putI32(dst, czceAveragePrice, q.AveragePrice)
	putI32(dst, czceHighPrice, q.HighPrice)
	putI32(dst, czceLowPrice, q.LowPrice)
	putI32(dst, czceLifeHigh, q.LifeHigh)
	putI32(dst, czceLifeLow, q.LifeLow)
	putI32(dst, czceTotalVolume, q.TotalVolume)
	putI64(dst, czceTotalAmount, q.TotalAmount)
	putI32(dst, czceTotalPosition, q.TotalPosition)
	putI32(dst, czceSettlePrice, q.SettlePrice)
	putI32(dst, czceTotalBuyOrderVolume, q.TotalBuyOrderVolume)
	putI32(dst, czceWtAvgBuyPrice, q.WtAvgBuyPrice)
	putI32(dst, czceTotalSellOrderVolume, q.TotalSellOrderVolume)
	putI32(dst, czceWtAvgSellPrice, q.WtAvgSellPrice)
	putI32(dst, czceDeriveBidPrice, q.DeriveBidPrice)
	putI32(dst, czceDeriveAskPrice, q.DeriveAskPrice)
	putI32(dst, czceDeriveBidLot, q.DeriveBidLot)
	putI32(dst, czceDeriveAskLot, q.DeriveAskLot)
	return dst
}
