package codec

// GFEX level-2 frame as delivered by the exchange multicast, packed with
// 1-byte alignment.
const (
	GFEXL2Size  = 232
	GFEXLevels  = 5
	gfexLevelSz = 12
)

const (
	gfexFlag               = 0
	gfexContractName       = 4
	gfexContractNameLen    = 20
	gfexLastPrice          = 24
	gfexLastMatchQty       = 32
	gfexMatchTotalQty      = 36
	gfexTurnover           = 40
	gfexOpenInterest       = 48
	gfexOpenInterestChange = 52
	gfexGenTime            = 56
	gfexGenTimeLen         = 16
	gfexBids               = 72
	gfexAsks               = gfexBids + GFEXLevels*gfexLevelSz
	gfexBuyImply           = gfexAsks + GFEXLevels*gfexLevelSz
	gfexSellImply          = gfexBuyImply + GFEXLevels*4
)

// GFEXLevel is one price level of the book.
type GFEXLevel struct {
	Price  float64
	Volume uint32
}

// GFEXL2Frame is the decoded GFEX level-2 frame.
type GFEXL2Frame struct {
	Flag               uint32
	ContractName       string
	LastPrice          float64
	LastMatchQty       uint32
	MatchTotalQty      uint32
	Turnover           float64
	OpenInterest       uint32
	OpenInterestChange int32
	GenTime            string
	Bids               [GFEXLevels]GFEXLevel
	Asks               [GFEXLevels]GFEXLevel
	BuyImplyQty        [GFEXLevels]int32
	SellImplyQty       [GFEXLevels]int32
}

// DecodeGFEXL2 parses a GFEX level-2 frame. Trailing bytes are ignored.
func DecodeGFEXL2(src []byte) (GFEXL2Frame, bool) {
	if len(src) < GFEXL2Size {
		return GFEXL2Frame{}, false
	}
	f := GFEXL2Frame{
		Flag:               le.Uint32(src[gfexFlag:]),
		ContractName:       CString(src[gfexContractName : gfexContractName+gfexContractNameLen]),
		LastPrice:          getF64(src, gfexLastPrice),
		LastMatchQty:       le.Uint32(src[gfexLastMatchQty:]),
		MatchTotalQty:      le.Uint32(src[gfexMatchTotalQty:]),
		Turnover:           getF64(src, gfexTurnover),
		OpenInterest:       le.Uint32(src[gfexOpenInterest:]),
		OpenInterestChange: getI32(src, gfexOpenInterestChange),
		GenTime:            CString(src[gfexGenTime : gfexGenTime+gfexGenTimeLen]),
	}
	for i := 0; i < GFEXLevels; i++ {
		bid := gfexBids + i*gfexLevelSz
		ask := gfexAsks + i*gfexLevelSz
		f.Bids[i] = GFEXLevel{Price: getF64(src, bid), Volume: le.Uint32(src[bid+8:])}
		f.Asks[i] = GFEXLevel{Price: getF64(src, ask), Volume: le.Uint32(src[ask+8:])}
		f.BuyImplyQty[i] = getI32(src, gfexBuyImply+i*4)
		f.SellImplyQty[i] = getI32(src, gfexSellImply+i*4)
	}
	return f, true
}

// EncodeGFEXL2 serializes f into the packed GFEX level-2 layout.
func EncodeGFEXL2(dst []byte, f GFEXL2Frame) []byte {
	dst = alloc(dst, GFEXL2Size)
	le.PutUint32(dst[gfexFlag:], f.Flag)
	putCString(dst[gfexContractName:gfexContractName+gfexContractNameLen], f.ContractName)
	putF64(dst, gfexLastPrice, f.LastPrice)
	le.PutUint32(dst[gfexLastMatchQty:], f.LastMatchQty)
	le.PutUint32(dst[gfexMatchTotalQty:], f.MatchTotalQty)
	putF64(dst, gfexTurnover, f.Turnover)
	le.PutUint32(dst[gfexOpenInterest:], f.OpenInterest)
	putI32(dst, gfexOpenInterestChange, f.OpenInterestChange)
	putCString(dst[gfexGenTime:gfexGenTime+gfexGenTimeLen], f.GenTime)
	for i := 0; i < GFEXLevels; i++ {
		bid := gfexBids + i*gfexLevelSz
		ask := gfexAsks + i*gfexLevelSz
		putF64(dst, bid, f.Bids[i].Price)
		le.PutUint32(dst[bid+8:], f.Bids[i].Volume)
		putF64(dst, ask, f.Asks[i].Price)
		le.PutUint32(dst[ask+8:], f.Asks[i].Volume)
		putI32(dst, gfexBuyImply+i*4, f.BuyImplyQty[i])
		putI32(dst, gfexSellImply+i*4, f.SellImplyQty[i])
	}
	return dst
}
