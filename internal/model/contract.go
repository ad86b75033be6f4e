package model

import (
	"strconv"
	"unicode"

	"quoteflow/internal/errors"
	"quoteflow/pkg/exception"
)

// Contract is a futures code split into product and delivery month.
type Contract struct {
	Product string
	Year    int
	Month   int
	Code    string
}

// ParseContractCode splits codes like rb2405 into product rb, year 2024, month 5.
// Only the four digit YYMM form is accepted.
func ParseContractCode(code string) (Contract, error) {
	var product, digits []rune
	for _, r := range code {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		} else {
			product = append(product, r)
		}
	}
	if len(digits) != 4 || len(product) == 0 {
		return Contract{}, errors.Wrapf(exception.ErrInvalidContractCode, "code: %s", code)
	}

	yy, _ := strconv.Atoi(string(digits[:2]))
	mm, _ := strconv.Atoi(string(digits[2:]))
	if mm < 1 || mm > 12 {
		return Contract{}, errors.Wrapf(exception.ErrInvalidContractCode, "code: %s, month: %d", code, mm)
	}

	return Contract{
		Product: string(product),
		Year:    2000 + yy,
		Month:   mm,
		Code:    code,
	}, nil
}

// ProductCode returns the leading letters of a symbol, e.g. zn for zn2603.
func ProductCode(symbol string) string {
	for i, r := range symbol {
		if !unicode.IsLetter(r) || r > unicode.MaxASCII {
			return symbol[:i]
		}
	}
	return symbol
}
