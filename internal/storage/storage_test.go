package storage

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quoteflow/internal/model"
	"quoteflow/internal/model/enum"
	"quoteflow/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var cst = time.FixedZone("CST", 8*3600)

func sample(symbol string, at time.Time, price float64) model.Tick {
	return model.Tick{
		Symbol:    symbol,
		Exchange:  enum.ExchangeSHFE,
		LastPrice: price,
		Volume:    12,
		Datetime:  at,
		Source:    enum.SourceCTPTick,
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestFileSinkPerSymbolPerDay(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "market_data")
	s, err := NewFileSink(dir)
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background(), nil))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	day := time.Date(2025, 1, 29, 9, 30, 0, 0, cst)
	require.NoError(t, s.Save(context.Background(), []model.Tick{
		sample("rb2505", day, 3500),
		sample("cu2505", day, 72000),
		sample("rb2505", day.Add(500*time.Millisecond), 3501),
	}))
	require.NoError(t, s.Save(context.Background(), []model.Tick{
		sample("rb2505", day.Add(time.Second), 3502),
		sample("rb2505", day.Add(24*time.Hour), 3510),
	}))

	rows := readCSV(t, filepath.Join(dir, "rb2505_20250129.csv"))
	require.Len(t, rows, 4)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"rb2505", "SHFE", "3500", "12"}, rows[1][:4])
	assert.Equal(t, "2025-01-29T09:30:00", rows[1][5])
	assert.Equal(t, "2025-01-29T09:30:00.500000", rows[2][5])
	assert.Equal(t, "3502", rows[3][2])
	assert.Equal(t, "CTP_TICK", rows[3][15])

	assert.Len(t, readCSV(t, filepath.Join(dir, "cu2505_20250129.csv")), 2)
	assert.Len(t, readCSV(t, filepath.Join(dir, "rb2505_20250130.csv")), 2)
}

func TestFileSinkRejectsEscapingSymbols(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "market_data")
	s, err := NewFileSink(dir)
	require.NoError(t, err)
	day := time.Date(2025, 1, 29, 9, 30, 0, 0, cst)

	for _, symbol := range []string{"../escaped", "a/b", `..\escaped`, "..", ".", ""} {
		err := s.Save(context.Background(), []model.Tick{
			sample("rb2505", day, 3500),
			sample(symbol, day, 1),
		})
		assert.ErrorIs(t, err, exception.ErrInvalidArgument, symbol)
		assert.ErrorIs(t, err, exception.ErrStorage, symbol)
	}

	_, err = os.Stat(filepath.Join(root, "escaped_20250129.csv"))
	assert.True(t, os.IsNotExist(err))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "a rejected batch writes nothing")
}

func TestPostgresSinkWithSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	ctx := context.Background()

	s, err := NewPostgresSink(ctx, db, true)
	require.NoError(t, err)

	at := time.Date(2025, 1, 29, 9, 30, 0, 500_000_000, time.UTC)
	require.NoError(t, s.Save(ctx, []model.Tick{sample("rb2505", at, 3500), sample("cu2505", at, 72000)}))
	// conflicting (symbol, datetime) rows are ignored
	require.NoError(t, s.Save(ctx, []model.Tick{sample("rb2505", at, 9999), sample("rb2505", at.Add(time.Second), 3501)}))

	var records []TickRecord
	require.NoError(t, db.Order("symbol, datetime").Find(&records).Error)
	require.Len(t, records, 3)
	assert.Equal(t, "cu2505", records[0].Symbol)
	assert.Equal(t, "rb2505", records[1].Symbol)
	assert.Equal(t, 3500.0, records[1].LastPrice)
	assert.Equal(t, "SHFE", records[1].Exchange)
	assert.Equal(t, "CTP_TICK", records[1].Source)
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaSinkKeysBySymbol(t *testing.T) {
	w := &fakeWriter{}
	s := &KafkaSink{w: w}
	at := time.Date(2025, 1, 29, 9, 30, 0, 0, cst)

	require.NoError(t, s.Save(context.Background(), []model.Tick{sample("rb2505", at, 3500), sample("cu2505", at, 72000)}))
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "rb2505", string(w.msgs[0].Key))
	assert.Equal(t, at, w.msgs[0].Time)

	var decoded model.Tick
	require.NoError(t, sonic.ConfigFastest.Unmarshal(w.msgs[1].Value, &decoded))
	assert.Equal(t, "cu2505", decoded.Symbol)
	assert.Equal(t, 72000.0, decoded.LastPrice)
	assert.Equal(t, enum.SourceCTPTick, decoded.Source)
	assert.Equal(t, enum.ExchangeSHFE, decoded.Exchange)

	w.err = os.ErrDeadlineExceeded
	err := s.Save(context.Background(), []model.Tick{sample("rb2505", at, 1)})
	assert.ErrorIs(t, err, exception.ErrStorage)
	assert.ErrorIs(t, err, os.ErrDeadlineExceeded)

	require.NoError(t, s.Close())
	assert.True(t, w.closed)
}

type stubSink struct {
	name   string
	err    error
	saved  int
	closed int
}

func (s *stubSink) Name() string { return s.name }

func (s *stubSink) Save(_ context.Context, ticks []model.Tick) error {
	if s.err != nil {
		return s.err
	}
	s.saved += len(ticks)
	return nil
}

func (s *stubSink) Close() error {
	s.closed++
	return nil
}

func TestMultiSinkTriesEverySink(t *testing.T) {
	failing := &stubSink{name: "a", err: os.ErrPermission}
	ok := &stubSink{name: "b"}
	m := NewMultiSink(failing, nil, ok)
	assert.Equal(t, 2, m.Len())

	at := time.Date(2025, 1, 29, 9, 30, 0, 0, cst)
	err := m.Save(context.Background(), []model.Tick{sample("rb2505", at, 1)})
	assert.ErrorIs(t, err, exception.ErrStorage)
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Equal(t, 1, ok.saved)

	require.NoError(t, m.Save(context.Background(), nil))
	require.NoError(t, m.Close())
	assert.Equal(t, 1, failing.closed)
	assert.Equal(t, 1, ok.closed)
}
