package exception

import "github.com/yanun0323/errors"

var (
	ErrConnection          = errors.New("connection: failed")
	ErrConnectionClose     = errors.New("connection: closed")
	ErrPlatformUnsupported = errors.New("connection: platform unsupported")
	ErrNotConnected        = errors.New("connection: not connected")
	ErrAlreadyConnected    = errors.New("connection: already connected")
	ErrLoginFailed         = errors.New("connection: login failed")
)
