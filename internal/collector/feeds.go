package collector

import (
	"context"
)

const (
	NameCTP    = "ctp"
	NameZY     = "zy"
	NameNSQ    = "nsq"
	NameGFEX   = "gfex"
	NameReplay = "replay"
)

// NewCTP collects CTP depth market data. The vendor is login gated and
// delivers from its own goroutine.
func NewCTP(v Vendor, opts ...Option) *Base {
	return New(NameCTP, v, opts...)
}

// NewNSQ collects NSQ depth market data. Linux only.
func NewNSQ(v Vendor, opts ...Option) *Base {
	return New(NameNSQ, v, append([]Option{WithPlatforms("linux")}, opts...)...)
}

// NewGFEX collects GFEX level-2 frames. Linux only.
func NewGFEX(v Vendor, opts ...Option) *Base {
	return New(NameGFEX, v, append([]Option{WithPlatforms("linux")}, opts...)...)
}

// NewZY collects DCE and CZCE level-1 frames from the ZY bridge. The
// vendor is pumped by the dispatcher.
func NewZY(v PumpVendor, opts ...Option) *Pumped {
	return NewPumped(NameZY, v, opts...)
}

// NewReplay feeds recorded raw messages back through the pipeline.
func NewReplay(v PumpVendor, opts ...Option) *Pumped {
	return NewPumped(NameReplay, v, opts...)
}

var _ Receiver = (*Pumped)(nil)

// Pumped is a collector whose receive loop is scheduled by the dispatcher.
type Pumped struct {
	*Base
	pump Pump
}

func NewPumped(name string, v PumpVendor, opts ...Option) *Pumped {
	return &Pumped{
		Base: New(name, v, opts...),
		pump: v,
	}
}

// Receive runs the vendor receive loop until ctx is done.
func (p *Pumped) Receive(ctx context.Context) error {
	return p.pump.Pump(ctx)
}
