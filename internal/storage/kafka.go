package storage

import (
	"context"
	"time"

	"quoteflow/internal/model"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

// KafkaSink publishes every tick as JSON keyed by symbol, so one contract
// always lands on the same partition.
type KafkaSink struct {
	w messageWriter
}

func NewKafkaSink(cfg KafkaConfig) *KafkaSink {
	timeout := cfg.BatchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Millisecond
	}
	return &KafkaSink{w: &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: timeout,
		RequiredAcks: kafka.RequireOne,
	}}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Save(ctx context.Context, ticks []model.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(ticks))
	for _, t := range ticks {
		value, err := sonic.ConfigFastest.Marshal(t)
		if err != nil {
			return storageErr(err, "encode %s", t.Symbol)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(t.Symbol), Value: value, Time: t.Datetime})
	}
	if err := s.w.WriteMessages(ctx, msgs...); err != nil {
		return storageErr(err, "publish %d ticks", len(msgs))
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.w.Close()
}
