package replay

import (
	"context"
	"testing"
	"time"

	"quoteflow/internal/collector"
	"quoteflow/internal/model"
	"quoteflow/internal/model/enum"
	"quoteflow/internal/recorder"
	"quoteflow/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordCTP(t *testing.T, dir string, depths ...*model.CTPDepth) {
	t.Helper()
	w, err := recorder.NewWriter(recorder.Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	r := recorder.NewRecorder(w)
	for _, d := range depths {
		require.NoError(t, r.Record(model.RawMessage{Tag: enum.SourceCTPTick, Payload: d, RecvTime: time.Now()}))
	}
	require.NoError(t, w.Close())
}

func TestReplayThroughCollector(t *testing.T) {
	dir := t.TempDir()
	recordCTP(t, dir,
		&model.CTPDepth{InstrumentID: "rb2505", ExchangeID: "SHFE", LastPrice: 3500, ActionDay: "20250129", UpdateTime: "09:30:00", UpdateMillisec: 500},
		&model.CTPDepth{InstrumentID: "rb2505", ExchangeID: "SHFE", LastPrice: 3501, ActionDay: "20250129", UpdateTime: "09:30:01"},
	)

	v, err := New(recorder.PlaybackConfig{Dir: dir})
	require.NoError(t, err)
	c := collector.NewReplay(v)
	require.NoError(t, collector.Open(context.Background(), c))

	require.NoError(t, c.Receive(context.Background()))
	select {
	case <-v.Done():
	default:
		t.Fatal("done not closed after replay")
	}
	assert.Equal(t, uint64(2), v.Played())

	ticks := c.CollectData()
	require.Len(t, ticks, 2)
	assert.Equal(t, "rb2505", ticks[0].Symbol)
	assert.Equal(t, enum.ExchangeSHFE, ticks[0].Exchange)
	assert.Equal(t, 3500.0, ticks[0].LastPrice)
	assert.Equal(t, 500, ticks[0].Datetime.Nanosecond()/int(time.Millisecond))
	assert.Equal(t, 3501.0, ticks[1].LastPrice)

	require.NoError(t, c.CloseConnections())
}

func TestReplayRequiresConnect(t *testing.T) {
	v, err := New(recorder.PlaybackConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.ErrorIs(t, v.Pump(context.Background()), exception.ErrNotConnected)
	assert.ErrorIs(t, v.Connect(nil), exception.ErrNilInstance)

	_, err = New(recorder.PlaybackConfig{})
	assert.ErrorIs(t, err, exception.ErrInvalidConfig)
}
