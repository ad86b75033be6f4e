package exception

import "github.com/yanun0323/errors"

var (
	ErrParse               = errors.New("market data: parse failed")
	ErrNilPayload          = errors.New("market data: nil payload")
	ErrUnknownSourceTag    = errors.New("market data: unknown source tag")
	ErrSourceTagMismatch   = errors.New("market data: source tag mismatch")
	ErrFrameTooShort       = errors.New("market data: frame too short")
	ErrMissingField        = errors.New("market data: missing field")
	ErrInvalidContractCode = errors.New("market data: invalid contract code")
)
