package collector

import (
	"context"

	"quoteflow/internal/model"
	"quoteflow/internal/model/enum"
)

// Collector owns one vendor connection and buffers its messages until the
// dispatcher drains them.
type Collector interface {
	Name() string
	State() enum.CollectorState
	InitConnections(ctx context.Context) error
	SubscribeMarket(ctx context.Context) error
	CollectData() []model.Tick
	CloseConnections() error
}

// Receiver is a Collector whose vendor has no delivery goroutine of its
// own. The dispatcher runs Receive until ctx is cancelled.
type Receiver interface {
	Collector
	Receive(ctx context.Context) error
}

// Vendor is the minimal surface of a market data SDK binding.
// Connect registers the callback every message is delivered through.
type Vendor interface {
	Connect(onData func(model.RawMessage)) error
	Subscribe(symbols []string) error
	Close() error
}

// LoginGate is implemented by vendors that subscribe only after a login
// round trip. Subscribe on such a vendor before login records the symbols
// and the vendor subscribes once the login is acknowledged.
type LoginGate interface {
	LoggedIn() bool
}

// LinkWatcher is implemented by vendors whose transport can drop on its
// own. Lost is closed when that happens; a nil channel means never.
type LinkWatcher interface {
	Lost() <-chan struct{}
}

// Pump is implemented by vendors that need a caller-driven receive loop.
type Pump interface {
	Pump(ctx context.Context) error
}

// PumpVendor is a Vendor driven by the dispatcher.
type PumpVendor interface {
	Vendor
	Pump
}

// Open connects and subscribes c, closing it again if either step fails.
func Open(ctx context.Context, c Collector) error {
	if err := c.InitConnections(ctx); err != nil {
		_ = c.CloseConnections()
		return err
	}
	if err := c.SubscribeMarket(ctx); err != nil {
		_ = c.CloseConnections()
		return err
	}
	return nil
}
