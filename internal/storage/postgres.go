package storage

import (
	"context"
	"time"

	"quoteflow/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultInsertBatch = 500

// TickRecord is the relational row of a tick. (symbol, datetime) is unique
// so replays and restarts do not double insert.
type TickRecord struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement"`
	Symbol        string    `gorm:"size:32;not null;uniqueIndex:idx_ticks_symbol_datetime,priority:1"`
	Datetime      time.Time `gorm:"not null;uniqueIndex:idx_ticks_symbol_datetime,priority:2"`
	Exchange      string    `gorm:"size:8;not null"`
	LastPrice     float64
	Volume        int64
	OpenInterest  float64
	BidPrice1     float64
	BidVolume1    int64
	AskPrice1     float64
	AskVolume1    int64
	OpenPrice     float64
	HighPrice     float64
	LowPrice      float64
	PreClose      float64
	PreSettlement float64
	Source        string `gorm:"size:16"`
	CreatedAt     time.Time
}

func (TickRecord) TableName() string { return "ticks" }

func newTickRecord(t model.Tick) TickRecord {
	return TickRecord{
		Symbol:        t.Symbol,
		Datetime:      t.Datetime,
		Exchange:      t.Exchange.String(),
		LastPrice:     t.LastPrice,
		Volume:        t.Volume,
		OpenInterest:  t.OpenInterest,
		BidPrice1:     t.BidPrice1,
		BidVolume1:    t.BidVolume1,
		AskPrice1:     t.AskPrice1,
		AskVolume1:    t.AskVolume1,
		OpenPrice:     t.OpenPrice,
		HighPrice:     t.HighPrice,
		LowPrice:      t.LowPrice,
		PreClose:      t.PreClose,
		PreSettlement: t.PreSettlement,
		Source:        t.Source.String(),
	}
}

// PostgresSink writes ticks through gorm. Any gorm dialect works.
type PostgresSink struct {
	db    *gorm.DB
	batch int
}

// NewPostgresSink migrates the ticks table when migrate is set.
func NewPostgresSink(ctx context.Context, db *gorm.DB, migrate bool) (*PostgresSink, error) {
	if migrate {
		if err := db.WithContext(ctx).AutoMigrate(&TickRecord{}); err != nil {
			return nil, storageErr(err, "migrate ticks")
		}
	}
	return &PostgresSink{db: db, batch: defaultInsertBatch}, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Save(ctx context.Context, ticks []model.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	records := make([]TickRecord, 0, len(ticks))
	for _, t := range ticks {
		records = append(records, newTickRecord(t))
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&records, s.batch).Error
	if err != nil {
		return storageErr(err, "insert %d ticks", len(records))
	}
	return nil
}

// Close does not close db, which the caller owns.
func (s *PostgresSink) Close() error { return nil }
