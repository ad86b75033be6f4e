package normalizer

import (
	"fmt"
	"time"

	"quoteflow/internal/errors"
	"quoteflow/internal/model"
	"quoteflow/internal/model/enum"
	"quoteflow/pkg/exception"
)

// Normalizer decodes vendor payloads into model.Tick.
// It holds no per-message state and is safe for concurrent use.
type Normalizer struct {
	now func() time.Time
	loc *time.Location
}

type Option func(*Normalizer)

// WithClock overrides the clock used for missing or malformed timestamps.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// WithLocation sets the zone exchange-local timestamps are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(n *Normalizer) {
		if loc != nil {
			n.loc = loc
		}
	}
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		now: time.Now,
		loc: time.Local,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize converts one raw message. A message that cannot be decoded
// never yields a tick; the returned error matches exception.ErrParse.
func (n *Normalizer) Normalize(msg model.RawMessage) (tick model.Tick, err error) {
	defer func() {
		if r := recover(); r != nil {
			tick = model.Tick{}
			err = &ParseError{Tag: msg.Tag, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	tick, err = n.normalize(msg)
	if err != nil {
		return model.Tick{}, &ParseError{Tag: msg.Tag, Err: err}
	}
	tick.Source = msg.Tag
	tick.Datetime = tick.Datetime.Truncate(time.Millisecond)
	return tick, nil
}

func (n *Normalizer) normalize(msg model.RawMessage) (model.Tick, error) {
	if !msg.Tag.IsAvailable() {
		return model.Tick{}, exception.ErrUnknownSourceTag
	}
	if msg.Payload == nil {
		return model.Tick{}, exception.ErrNilPayload
	}
	if src := msg.Payload.Source(); src != msg.Tag {
		return model.Tick{}, errors.Wrapf(exception.ErrSourceTagMismatch, "payload: %s", src)
	}

	switch p := msg.Payload.(type) {
	case *model.CTPDepth:
		if p == nil {
			return model.Tick{}, exception.ErrNilPayload
		}
		return n.fromCTP(p)
	case model.DCEL1Frame:
		return n.fromDCE(p)
	case model.CZCEL1Frame:
		return n.fromCZCE(p)
	case model.NSQDepth:
		if p.Fields == nil {
			return model.Tick{}, exception.ErrNilPayload
		}
		return n.fromNSQ(p.Fields)
	case model.GFEXL2Frame:
		return n.fromGFEX(p)
	default:
		return model.Tick{}, exception.ErrUnknownSourceTag
	}
}

func (n *Normalizer) today() time.Time {
	y, m, d := n.now().In(n.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, n.loc)
}

// ParseError reports a message that could not be normalized.
type ParseError struct {
	Tag enum.SourceTag
	Err error
}

func (e *ParseError) Error() string {
	return "parse " + e.Tag.String() + ", err: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == exception.ErrParse
}
