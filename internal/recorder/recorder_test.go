package recorder

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quoteflow/internal/model"
	"quoteflow/internal/model/enum"
	"quoteflow/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(t *testing.T, dir string, msgs ...model.RawMessage) {
	t.Helper()
	w, err := NewWriter(Config{Dir: dir, QueueSize: 64})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	r := NewRecorder(w)
	for _, msg := range msgs {
		require.NoError(t, r.Record(msg))
	}
	require.NoError(t, w.Close())
}

func TestRecordThenPlayback(t *testing.T) {
	dir := t.TempDir()
	recv := time.Date(2025, 1, 29, 9, 30, 0, 500_000_000, time.UTC)
	record(t, dir,
		model.RawMessage{Tag: enum.SourceCTPTick, Payload: &model.CTPDepth{InstrumentID: "rb2505", LastPrice: 3500, UpdateMillisec: 500}, RecvTime: recv},
		model.RawMessage{Tag: enum.SourceDCEL1, Payload: model.DCEL1Frame{1, 2, 3}, RecvTime: recv.Add(time.Millisecond)},
		model.RawMessage{Tag: enum.SourceNSQDepth, Payload: model.NSQDepth{Fields: model.MapFields{"InstrumentID": "IF2503", "LastPrice": 3900.2}}, RecvTime: recv.Add(2 * time.Millisecond)},
		model.RawMessage{Tag: enum.SourceCTPTick, Payload: &model.CTPDepth{InstrumentID: "cu2505"}, RecvTime: recv.Add(3 * time.Millisecond)},
	)

	p, err := NewPlayback(PlaybackConfig{Dir: dir})
	require.NoError(t, err)

	var (
		headers []Header
		msgs    []model.RawMessage
	)
	require.NoError(t, p.Run(context.Background(), func(h Header, payload []byte) error {
		msg, err := DecodeMessage(h, payload)
		if err != nil {
			return err
		}
		headers = append(headers, h)
		msgs = append(msgs, msg)
		return nil
	}))

	require.Len(t, msgs, 4)
	assert.Equal(t, []uint64{1, 1, 1, 2}, []uint64{headers[0].Seq, headers[1].Seq, headers[2].Seq, headers[3].Seq})
	assert.Equal(t, EncodingJSON, headers[0].Encoding)
	assert.Equal(t, EncodingRaw, headers[1].Encoding)

	ctp := msgs[0].Payload.(*model.CTPDepth)
	assert.Equal(t, "rb2505", ctp.InstrumentID)
	assert.Equal(t, 3500.0, ctp.LastPrice)
	assert.Equal(t, int32(500), ctp.UpdateMillisec)
	assert.True(t, recv.Equal(msgs[0].RecvTime))

	assert.Equal(t, model.DCEL1Frame{1, 2, 3}, msgs[1].Payload)

	fields := msgs[2].Payload.(model.NSQDepth).Fields
	v, ok := fields.Field("LastPrice")
	require.True(t, ok)
	assert.Equal(t, 3900.2, v)
}

func TestEncodeRejectsNilPayload(t *testing.T) {
	_, _, err := EncodeMessage(model.RawMessage{Tag: enum.SourceCTPTick})
	assert.ErrorIs(t, err, exception.ErrNilPayload)
	_, _, err = EncodeMessage(model.RawMessage{Tag: enum.SourceCTPTick, Payload: (*model.CTPDepth)(nil)})
	assert.ErrorIs(t, err, exception.ErrNilPayload)
	_, err = DecodeMessage(Header{Tag: 0}, nil)
	assert.ErrorIs(t, err, exception.ErrUnknownSourceTag)
}

func TestReaderDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	record(t, dir, model.RawMessage{Tag: enum.SourceGFEXL2, Payload: model.GFEXL2Frame(bytes.Repeat([]byte{7}, 32))})

	files, err := filepath.Glob(filepath.Join(dir, "raw-*"+segmentExt))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	data[recordHeaderSize+1] ^= 0xff

	_, _, err = NewReader(bytes.NewReader(data), ReaderOptions{}).Next()
	assert.ErrorIs(t, err, ErrChecksumMismatch)

	h, payload, err := NewReader(bytes.NewReader(data), ReaderOptions{DisableChecksum: true}).Next()
	require.NoError(t, err)
	assert.Equal(t, enum.SourceGFEXL2, h.Tag)
	assert.Len(t, payload, 32)

	data[0] = 'X'
	_, _, err = NewReader(bytes.NewReader(data), ReaderOptions{}).Next()
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

type recordingClock struct {
	slept []time.Duration
}

func (c *recordingClock) Sleep(_ context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	return nil
}

func TestPlaybackPacesByRecvTime(t *testing.T) {
	dir := t.TempDir()
	recv := time.Unix(1_738_114_200, 0)
	record(t, dir,
		model.RawMessage{Tag: enum.SourceDCEL1, Payload: model.DCEL1Frame{1}, RecvTime: recv},
		model.RawMessage{Tag: enum.SourceDCEL1, Payload: model.DCEL1Frame{2}, RecvTime: recv.Add(100 * time.Millisecond)},
	)

	clock := &recordingClock{}
	p, err := NewPlayback(PlaybackConfig{Dir: dir, Speed: 2})
	require.NoError(t, err)
	require.NoError(t, p.WithClock(clock).Run(context.Background(), func(Header, []byte) error { return nil }))
	assert.Equal(t, []time.Duration{50 * time.Millisecond}, clock.slept)
}

func TestConfigValidate(t *testing.T) {
	assert.ErrorIs(t, Config{}.Validate(), exception.ErrInvalidConfig)
	assert.NoError(t, DefaultConfig(t.TempDir()).Validate())
	_, err := NewPlayback(PlaybackConfig{Dir: "x", Speed: -1})
	assert.ErrorIs(t, err, exception.ErrInvalidConfig)
}

func TestWriterLifecycle(t *testing.T) {
	w, err := NewWriter(Config{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.ErrorIs(t, w.TryAppend(Header{}, nil), ErrNotStarted)
	require.NoError(t, w.Start(context.Background()))
	assert.ErrorIs(t, w.Start(context.Background()), ErrAlreadyStarted)
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.TryAppend(Header{}, nil), ErrClosed)
}

func TestWriterRotatesBySize(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(Config{Dir: dir, SegmentMaxBytes: 100})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	payload := bytes.Repeat([]byte{1}, 40)
	for i := range 3 {
		require.NoError(t, w.TryAppend(Header{Tag: enum.SourceGFEXL2, Encoding: EncodingRaw, Seq: uint64(i + 1)}, payload))
	}
	require.NoError(t, w.Close())

	stats := w.Stats()
	assert.Equal(t, uint64(3), stats.Records)
	assert.Equal(t, uint64(3), stats.Segments)
	assert.Equal(t, uint64(3*(recordHeaderSize+40+recordChecksumSize)), stats.Bytes)

	files, err := filepath.Glob(filepath.Join(dir, "raw-*"+segmentExt))
	require.NoError(t, err)
	assert.Len(t, files, 3)

	p, err := NewPlayback(PlaybackConfig{Dir: dir})
	require.NoError(t, err)
	var seqs []uint64
	require.NoError(t, p.Run(context.Background(), func(h Header, _ []byte) error {
		seqs = append(seqs, h.Seq)
		return nil
	}))
	assert.Equal(t, []uint64{1, 2, 3}, seqs)
}

func TestReaderTruncatedRecord(t *testing.T) {
	buf := appendRecord(nil, Header{Tag: enum.SourceDCEL1, Seq: 1}, []byte("abcdef"))
	_, _, err := NewReader(bytes.NewReader(buf[:len(buf)-2]), ReaderOptions{}).Next()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, _, err = NewReader(bytes.NewReader(buf), ReaderOptions{MaxPayloadSize: 4}).Next()
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	r := NewReader(bytes.NewReader(buf), ReaderOptions{})
	h, payload, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), h.Seq)
	assert.Equal(t, []byte("abcdef"), payload)
	_, _, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestPlaybackFiltersSources(t *testing.T) {
	dir := t.TempDir()
	record(t, dir,
		model.RawMessage{Tag: enum.SourceDCEL1, Payload: model.DCEL1Frame{1}},
		model.RawMessage{Tag: enum.SourceGFEXL2, Payload: model.GFEXL2Frame{2}},
		model.RawMessage{Tag: enum.SourceDCEL1, Payload: model.DCEL1Frame{3}},
	)

	p, err := NewPlayback(PlaybackConfig{Dir: dir, Sources: []enum.SourceTag{enum.SourceGFEXL2}})
	require.NoError(t, err)
	var tags []enum.SourceTag
	require.NoError(t, p.Run(context.Background(), func(h Header, _ []byte) error {
		tags = append(tags, h.Tag)
		return nil
	}))
	assert.Equal(t, []enum.SourceTag{enum.SourceGFEXL2}, tags)

	_, err = NewPlayback(PlaybackConfig{Dir: dir, Sources: []enum.SourceTag{0}})
	assert.ErrorIs(t, err, exception.ErrInvalidConfig)
}
