package storage

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"quoteflow/internal/errors"
	"quoteflow/internal/model"
	"quoteflow/pkg/exception"
)

var csvHeader = []string{
	"symbol", "exchange", "last_price", "volume", "open_interest", "datetime",
	"bid_price1", "bid_volume1", "ask_price1", "ask_volume1",
	"open_price", "high_price", "low_price", "pre_close", "pre_settlement", "source",
}

// FileSink appends ticks to one CSV file per symbol and trading date,
// named <symbol>_<YYYYMMDD>.csv. A new file starts with a header row.
type FileSink struct {
	dir string
	mu  sync.Mutex
}

func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, storageErr(err, "create %s", dir)
	}
	return &FileSink{dir: dir}, nil
}

func (s *FileSink) Name() string { return "file" }

// Path returns the file a tick is written to. Symbols that could name a
// file outside the sink directory are rejected.
func (s *FileSink) Path(t model.Tick) (string, error) {
	if t.Symbol == "" || t.Symbol == "." || strings.Contains(t.Symbol, "..") ||
		strings.ContainsAny(t.Symbol, `/\`+"\x00") || filepath.Base(t.Symbol) != t.Symbol {
		return "", errors.Wrapf(exception.ErrInvalidArgument, "file sink symbol %q", t.Symbol)
	}
	return filepath.Join(s.dir, t.Symbol+"_"+t.Datetime.Format("20060102")+".csv"), nil
}

func (s *FileSink) Save(_ context.Context, ticks []model.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	order := make([]string, 0, 4)
	groups := make(map[string][]model.Tick, 4)
	for _, t := range ticks {
		p, err := s.Path(t)
		if err != nil {
			return storageErr(err, "file sink")
		}
		if _, ok := groups[p]; !ok {
			order = append(order, p)
		}
		groups[p] = append(groups[p], t)
	}

	for _, p := range order {
		if err := appendCSV(p, groups[p]); err != nil {
			return storageErr(err, "write %s", p)
		}
	}
	return nil
}

func appendCSV(path string, ticks []model.Tick) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return err
		}
	}
	for _, t := range ticks {
		if err := w.Write(csvRow(t)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Sync()
}

func csvRow(t model.Tick) []string {
	return []string{
		t.Symbol,
		t.Exchange.String(),
		formatFloat(t.LastPrice),
		strconv.FormatInt(t.Volume, 10),
		formatFloat(t.OpenInterest),
		isoDatetime(t.Datetime),
		formatFloat(t.BidPrice1),
		strconv.FormatInt(t.BidVolume1, 10),
		formatFloat(t.AskPrice1),
		strconv.FormatInt(t.AskVolume1, 10),
		formatFloat(t.OpenPrice),
		formatFloat(t.HighPrice),
		formatFloat(t.LowPrice),
		formatFloat(t.PreClose),
		formatFloat(t.PreSettlement),
		t.Source.String(),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// isoDatetime renders wall-clock time without a zone, with microseconds
// only when they are non-zero.
func isoDatetime(t time.Time) string {
	if t.Nanosecond() == 0 {
		return t.Format("2006-01-02T15:04:05")
	}
	return t.Format("2006-01-02T15:04:05.000000")
}

func (s *FileSink) Close() error { return nil }
