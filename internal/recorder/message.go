package recorder

import (
	"time"

	"quoteflow/internal/errors"
	"quoteflow/internal/model"
	"quoteflow/internal/model/enum"
	"quoteflow/internal/obs"
	"quoteflow/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/logs"
)

// EncodeMessage serializes msg into a record payload. Exchange frames are
// kept byte for byte, struct and map payloads are stored as JSON.
func EncodeMessage(msg model.RawMessage) (Encoding, []byte, error) {
	switch p := msg.Payload.(type) {
	case nil:
		return 0, nil, exception.ErrNilPayload
	case *model.CTPDepth:
		if p == nil {
			return 0, nil, exception.ErrNilPayload
		}
		data, err := sonic.ConfigFastest.Marshal(p)
		return EncodingJSON, data, err
	case model.NSQDepth:
		if p.Fields == nil {
			return 0, nil, exception.ErrNilPayload
		}
		data, err := sonic.ConfigFastest.Marshal(p.Fields.ToMap())
		return EncodingJSON, data, err
	case model.DCEL1Frame:
		return EncodingRaw, clone(p), nil
	case model.CZCEL1Frame:
		return EncodingRaw, clone(p), nil
	case model.GFEXL2Frame:
		return EncodingRaw, clone(p), nil
	default:
		return 0, nil, errors.Wrapf(exception.ErrUnknownSourceTag, "payload %T", msg.Payload)
	}
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// DecodeMessage rebuilds the raw message a record was written from.
// payload is copied.
func DecodeMessage(h Header, payload []byte) (model.RawMessage, error) {
	msg := model.RawMessage{Tag: h.Tag}
	if h.RecvTime > 0 {
		msg.RecvTime = time.Unix(0, h.RecvTime)
	}

	switch h.Tag {
	case enum.SourceCTPTick:
		depth := &model.CTPDepth{}
		if err := sonic.ConfigFastest.Unmarshal(payload, depth); err != nil {
			return msg, errors.Wrapf(err, "decode ctp record %d", h.Seq)
		}
		msg.Payload = depth
	case enum.SourceNSQDepth:
		fields := map[string]any{}
		if err := sonic.ConfigFastest.Unmarshal(payload, &fields); err != nil {
			return msg, errors.Wrapf(err, "decode nsq record %d", h.Seq)
		}
		msg.Payload = model.NSQDepth{Fields: model.MapFields(fields)}
	case enum.SourceDCEL1:
		msg.Payload = model.DCEL1Frame(clone(payload))
	case enum.SourceCZCEL1:
		msg.Payload = model.CZCEL1Frame(clone(payload))
	case enum.SourceGFEXL2:
		msg.Payload = model.GFEXL2Frame(clone(payload))
	default:
		return msg, errors.Wrapf(exception.ErrUnknownSourceTag, "record %d tag %d", h.Seq, h.Tag)
	}
	return msg, nil
}

// Recorder numbers raw messages per source and appends them to a Writer.
type Recorder struct {
	w   *Writer
	seq *obs.Sequencer
}

func NewRecorder(w *Writer) *Recorder {
	return &Recorder{w: w, seq: obs.NewSequencer()}
}

// Record never blocks. It fails when the writer queue is full.
func (r *Recorder) Record(msg model.RawMessage) error {
	enc, payload, err := EncodeMessage(msg)
	if err != nil {
		return err
	}
	recv := msg.RecvTime
	if recv.IsZero() {
		recv = time.Now()
	}
	return r.w.TryAppend(Header{
		Tag:      msg.Tag,
		Encoding: enc,
		Seq:      r.seq.Next(msg.Tag),
		RecvTime: recv.UnixNano(),
	}, payload)
}

// Tap adapts Record to a collector tap, logging failures.
func (r *Recorder) Tap(msg model.RawMessage) {
	if err := r.Record(msg); err != nil {
		logs.Warnf("record %s message, err: %+v", msg.Tag, err)
	}
}
