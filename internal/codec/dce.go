package codec

// DCE level-1 quotation as published by the ZY bridge, a naturally aligned
// little-endian C struct.
const (
	DCEL1Size      = 552
	DCEL2LevelSize = 424
)

const (
	dceLocalTimeStamp = 0
	dceQuotationFlag  = 4
	dceTradeDate      = 8
	dceTime           = 12
	dceSymbol         = 16
	dceSymbolLen      = 130
	dceRoutineNo      = 152
	dceSecurityName   = 160
	dceSecurityLen    = 180
	dcePreClosePrice  = 344
	dcePreSettlePrice = 352
	dcePreTotalPos    = 360
	dceOpenPrice      = 368
	dcePriceUpLimit   = 376
	dcePriceDownLimit = 384
	dceLastPrice      = 392
	dceAveragePrice   = 400
	dceHighPrice      = 408
	dceLowPrice       = 416
	dceLifeHigh       = 424
	dceLifeLow        = 432
	dceLastMatchQty   = 440
	dceTotalVolume    = 448
	dceTotalAmount    = 456
	dceTotalPosition  = 464
	dceInterestChg    = 472
	dceBuyPrice01     = 480
	dceBuyVolume01    = 488
	dceBidImplyQty01  = 496
	dceSellPrice01    = 504
	dceSellVolume01   = 512
	dceAskImplyQty01  = 520
	dceClosePrice     = 528
	dceSettlePrice    = 536
	dceBatchNo        = 544
)

// DCEL1Quotation is the decoded DCE level-1 struct.
type DCEL1Quotation struct {
	LocalTimeStamp int32
	QuotationFlag  string
	TradeDate      int32
	Time           int32 // HHMMSSmmm
	Symbol         string
	RoutineNo      int64
	SecurityName   string
	PreClosePrice  float64
	PreSettlePrice float64
	PreTotalPos    int64
	OpenPrice      float64
	PriceUpLimit   float64
	PriceDownLimit float64
	LastPrice      float64
	AveragePrice   float64
	HighPrice      float64
	LowPrice       float64
	LifeHigh       float64
	LifeLow        float64
	LastMatchQty   int64
	TotalVolume    int64
	TotalAmount    float64
	TotalPosition  int64
	InterestChg    int64
	BuyPrice01     float64
	BuyVolume01    int64
	BidImplyQty01  int64
	SellPrice01    float64
	SellVolume01   int64
	AskImplyQty01  int64
	ClosePrice     float64
	SettlePrice    float64
	BatchNo        int64
}

// DecodeDCEL1 parses a DCE level-1 frame.
func DecodeDCEL1(src []byte) (DCEL1Quotation, bool) {
	if len(src) < DCEL1Size {
		return DCEL1Quotation{}, false
	}
	return DCEL1Quotation{
		LocalTimeStamp: getI32(src, dceLocalTimeStamp),
		QuotationFlag:  CString(src[dceQuotationFlag : dceQuotationFlag+4]),
		TradeDate:      getI32(src, dceTradeDate),
		Time:           getI32(src, dceTime),
		Symbol:         CString(src[dceSymbol : dceSymbol+dceSymbolLen]),
		RoutineNo:      getI64(src, dceRoutineNo),
		SecurityName:   CString(src[dceSecurityName : dceSecurityName+dceSecurityLen]),
		PreClosePrice:  getF64(src, dcePreClosePrice),
		PreSettlePrice: getF64(src, dcePreSettlePrice),
		PreTotalPos:    getI64(src, dcePreTotalPos),
		OpenPrice:      getF64(src, dceOpenPrice),
		PriceUpLimit:   getF64(src, dcePriceUpLimit),
		PriceDownLimit: getF64(src, dcePriceDownLimit),
		LastPrice:      getF64(src, dceLastPrice),
		AveragePrice:   getF64(src, dceAveragePrice),
		HighPrice:      getF64(src, dceHighPrice),
		LowPrice:       getF64(src, dceLowPrice),
		LifeHigh:       getF64(src, dceLifeHigh),
		LifeLow:        getF64(src, dceLifeLow),
		LastMatchQty:   getI64(src, dceLastMatchQty),
		TotalVolume:    getI64(src, dceTotalVolume),
		TotalAmount:    getF64(src, dceTotalAmount),
		TotalPosition:  getI64(src, dceTotalPosition),
		InterestChg:    getI64(src, dceInterestChg),
		BuyPrice01:     getF64(src, dceBuyPrice01),
		BuyVolume01:    getI64(src, dceBuyVolume01),
		BidImplyQty01:  getI64(src, dceBidImplyQty01),
		SellPrice01:    getF64(src, dceSellPrice01),
		SellVolume01:   getI64(src, dceSellVolume01),
		AskImplyQty01:  getI64(src, dceAskImplyQty01),
		ClosePrice:     getF64(src, dceClosePrice),
		SettlePrice:    getF64(src, dceSettlePrice),
		BatchNo:        getI64(src, dceBatchNo),
	}, true
}

// EncodeDCEL1 serializes q into the DCE level-1 layout.
func EncodeDCEL1(dst []byte, q DCEL1Quotation) []byte {
	dst = alloc(dst, DCEL1Size)
	putI32(dst, dceLocalTimeStamp, q.LocalTimeStamp)
	putCString(dst[dceQuotationFlag:dceQuotationFlag+4], q.QuotationFlag)
	putI32(dst, dceTradeDate, q.TradeDate)
	putI32(dst, dceTime, q.Time)
	putCString(dst[dceSymbol:dceSymbol+dceSymbolLen], q.Symbol)
	putI64(dst, dceRoutineNo, q.RoutineNo)
	putCString(dst[dceSecurityName:dceSecurityName+dceSecurityLen], q.SecurityName)
	putF64(dst, dcePreClosePrice, q.PreClosePrice)
	putF64(dst, dcePreSettlePrice, q.PreSettlePrice)
	putI64(dst, dcePreTotalPos, q.PreTotalPos)
	putF64(dst, dceOpenPrice, q.OpenPrice)
	putF64(dst, dcePriceUpLimit, q.PriceUpLimit)
	putF64(dst, dcePriceDownLimit, q.PriceDownLimit)
	putF64(dst, dceLastPrice, q.LastPrice)
	putF64(dst, dceAveragePrice, q.AveragePrice)
	putF64(dst, dceHighPrice, q.HighPrice)
	putF64(dst, dceLowPrice, q.LowPrice)
	putF64(dst, dceLifeHigh, q.LifeHigh)
	putF64(dst, dceLifeLow, q.LifeLow)
	putI64(dst, dceLastMatchQty, q.LastMatchQty)
	putI64(dst, dceTotalVolume, q.TotalVolume)
	putF64(dst, dceTotalAmount, q.TotalAmount)
	putI64(dst, dceTotalPosition, q.TotalPosition)
	putI64(dst, dceInterestChg, q.InterestChg)
	putF64(dst, dceBuyPrice01, q.BuyPrice01)
	putI64(dst, dceBuyVolume01, q.BuyVolume01)
	putI64(dst, dceBidImplyQty01, q.BidImplyQty01)
	putF64(dst, dceSellPrice01, q.SellPrice01)
	putI64(dst, dceSellVolume01, q.SellVolume01)
	putI64(dst, dceAskImplyQty01, q.AskImplyQty01)
	putF64(dst, dceClosePrice, q.ClosePrice)
	putF64(dst, dceSettlePrice, q.SettlePrice)
	putI64(dst, dceBatchNo, q.BatchNo)
	return dst
}
