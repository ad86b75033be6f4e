package enum

// Exchange is the listing venue of a futures contract.
type Exchange string

const (
	ExchangeUnknown Exchange = ""
	ExchangeSHFE    Exchange = "SHFE"
	ExchangeINE     Exchange = "INE"
	ExchangeDCE     Exchange = "DCE"
	ExchangeCZCE    Exchange = "CZCE"
	ExchangeCFFEX   Exchange = "CFFEX"
	ExchangeGFEX    Exchange = "GFEX"
)

func (e Exchange) IsAvailable() bool {
	switch e {
	case ExchangeSHFE, ExchangeINE, ExchangeDCE, ExchangeCZCE, ExchangeCFFEX, ExchangeGFEX:
		return true
	default:
		return false
	}
}

func (e Exchange) String() string {
	return string(e)
}
