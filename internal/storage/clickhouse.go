package storage

import (
	"context"
	"fmt"
	"regexp"

	"quoteflow/internal/errors"
	"quoteflow/internal/model"
	"quoteflow/pkg/exception"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const DefaultClickHouseTable = "ticks"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

const clickHouseDDL = `
CREATE TABLE IF NOT EXISTS %s (
	symbol         String,
	exchange       LowCardinality(String),
	datetime       DateTime64(3),
	last_price     Float64,
	volume         Int64,
	open_interest  Float64,
	bid_price1     Float64,
	bid_volume1    Int64,
	ask_price1     Float64,
	ask_volume1    Int64,
	open_price     Float64,
	high_price     Float64,
	low_price      Float64,
	pre_close      Float64,
	pre_settlement Float64,
	source         LowCardinality(String)
) ENGINE = ReplacingMergeTree
ORDER BY (symbol, datetime)`

const clickHouseInsert = `
INSERT INTO %s (
	symbol, exchange, datetime, last_price, volume, open_interest,
	bid_price1, bid_volume1, ask_price1, ask_volume1,
	open_price, high_price, low_price, pre_close, pre_settlement, source
)`

// ClickHouseSink appends each batch with one native batch insert.
type ClickHouseSink struct {
	conn  driver.Conn
	table string
}

func NewClickHouseSink(ctx context.Context, conn driver.Conn, table string, migrate bool) (*ClickHouseSink, error) {
	if table == "" {
		table = DefaultClickHouseTable
	}
	if !tableName.MatchString(table) {
		return nil, errors.Wrapf(exception.ErrInvalidConfig, "clickhouse table %q", table)
	}
	if migrate {
		if err := conn.Exec(ctx, fmt.Sprintf(clickHouseDDL, table)); err != nil {
			return nil, storageErr(err, "create table %s", table)
		}
	}
	return &ClickHouseSink{conn: conn, table: table}, nil
}

func (s *ClickHouseSink) Name() string { return "clickhouse" }

func (s *ClickHouseSink) Save(ctx context.Context, ticks []model.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf(clickHouseInsert, s.table))
	if err != nil {
		return storageErr(err, "prepare batch")
	}
	for _, t := range ticks {
		err := batch.Append(
			t.Symbol, t.Exchange.String(), t.Datetime, t.LastPrice, t.Volume, t.OpenInterest,
			t.BidPrice1, t.BidVolume1, t.AskPrice1, t.AskVolume1,
			t.OpenPrice, t.HighPrice, t.LowPrice, t.PreClose, t.PreSettlement, t.Source.String(),
		)
		if err != nil {
			_ = batch.Abort()
			return storageErr(err, "append %s", t.Symbol)
		}
	}
	if err := batch.Send(); err != nil {
		return storageErr(err, "send %d ticks", len(ticks))
	}
	return nil
}

// Close does not close conn, which the caller owns.
func (s *ClickHouseSink) Close() error { return nil }
