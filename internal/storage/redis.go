package storage

import (
	"context"
	"time"

	"quoteflow/internal/model"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "quoteflow:tick:"

// RedisSink keeps the latest tick of every symbol in a hash at
// <prefix><symbol>. Older ticks in a batch never overwrite newer ones.
type RedisSink struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisSink(client redis.Cmdable, prefix string, ttl time.Duration) *RedisSink {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisSink{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Key(symbol string) string {
	return s.prefix + symbol
}

func (s *RedisSink) Save(ctx context.Context, ticks []model.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	latest := make(map[string]model.Tick, len(ticks))
	order := make([]string, 0, len(ticks))
	for _, t := range ticks {
		cur, ok := latest[t.Symbol]
		if !ok {
			order = append(order, t.Symbol)
		}
		if !ok || !t.Datetime.Before(cur.Datetime) {
			latest[t.Symbol] = t
		}
	}

	pipe := s.client.TxPipeline()
	for _, symbol := range order {
		t := latest[symbol]
		key := s.Key(symbol)
		pipe.HSet(ctx, key, map[string]any{
			"exchange":       t.Exchange.String(),
			"last_price":     t.LastPrice,
			"volume":         t.Volume,
			"open_interest":  t.OpenInterest,
			"datetime":       t.Datetime.UnixMilli(),
			"bid_price1":     t.BidPrice1,
			"bid_volume1":    t.BidVolume1,
			"ask_price1":     t.AskPrice1,
			"ask_volume1":    t.AskVolume1,
			"open_price":     t.OpenPrice,
			"high_price":     t.HighPrice,
			"low_price":      t.LowPrice,
			"pre_close":      t.PreClose,
			"pre_settlement": t.PreSettlement,
			"source":         t.Source.String(),
		})
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return storageErr(err, "hset %d symbols", len(order))
	}
	return nil
}

// Close does not close the client, which the caller owns.
func (s *RedisSink) Close() error { return nil }
