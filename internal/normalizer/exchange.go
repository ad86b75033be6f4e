package normalizer

import (
	"strings"

	"quoteflow/internal/model"
	"quoteflow/internal/model/enum"
)

var productExchange = func() map[string]enum.Exchange {
	table := map[enum.Exchange][]string{
		enum.ExchangeSHFE:  {"cu", "al", "zn", "pb", "ni", "sn", "au", "ag", "rb", "wr", "hc", "ss", "bu", "ru", "fu", "sp", "br", "ao"},
		enum.ExchangeINE:   {"sc", "lu", "nr", "bc", "ec"},
		enum.ExchangeDCE:   {"a", "b", "m", "y", "p", "c", "cs", "jd", "l", "v", "pp", "j", "jm", "i", "eg", "eb", "pg", "rr", "fb", "bb", "lh"},
		enum.ExchangeCZCE:  {"SR", "CF", "CY", "TA", "MA", "FG", "RM", "OI", "ZC", "SF", "SM", "AP", "CJ", "UR", "SA", "PF", "PK", "SH", "PX", "WH", "PM", "RI", "JR", "LR", "RS"},
		enum.ExchangeCFFEX: {"IF", "IC", "IH", "IM", "T", "TF", "TS", "TL"},
		enum.ExchangeGFEX:  {"si", "lc", "ps"},
	}
	m := make(map[string]enum.Exchange, 80)
	for ex, products := range table {
		for _, p := range products {
			m[p] = ex
		}
	}
	return m
}()

// InferExchange maps a contract symbol to its exchange by product code,
// e.g. zn2603 to SHFE. Unknown products yield enum.ExchangeUnknown.
func InferExchange(symbol string) enum.Exchange {
	product := model.ProductCode(strings.TrimSpace(symbol))
	if product == "" {
		return enum.ExchangeUnknown
	}
	for _, p := range []string{product, strings.ToLower(product), strings.ToUpper(product)} {
		if ex, ok := productExchange[p]; ok {
			return ex
		}
	}
	return enum.ExchangeUnknown
}

var nsqExchangeIDs = map[string]enum.Exchange{
	"F2": enum.ExchangeDCE,
	"F3": enum.ExchangeSHFE,
	"F5": enum.ExchangeINE,
}

// resolveExchange prefers the vendor supplied id and falls back to the symbol.
func resolveExchange(id, symbol string) enum.Exchange {
	id = strings.ToUpper(strings.TrimSpace(id))
	if ex, ok := nsqExchangeIDs[id]; ok {
		return ex
	}
	if id != "" {
		return enum.Exchange(id)
	}
	return InferExchange(symbol)
}
