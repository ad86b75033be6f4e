package pipeline

import (
	"context"

	"quoteflow/internal/bus"
	"quoteflow/internal/cleaner"
	"quoteflow/internal/collector"
	"quoteflow/internal/config"
	"quoteflow/internal/dispatcher"
	"quoteflow/internal/normalizer"
	"quoteflow/internal/obs"
	"quoteflow/internal/recorder"
	"quoteflow/internal/storage"
	"quoteflow/internal/venue/bridge"
	"quoteflow/internal/venue/ctp"
	"quoteflow/internal/venue/gfex"
	"quoteflow/internal/venue/nsq"
	"quoteflow/internal/venue/replay"
	"quoteflow/internal/venue/zy"
	"quoteflow/pkg/conn"

	"github.com/yanun0323/logs"
)

// Build assembles a pipeline from cfg. cfg must already be validated.
func Build(ctx context.Context, cfg *config.Config) (p *Pipeline, err error) {
	var closers []func() error
	defer func() {
		if err == nil {
			return
		}
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}()

	metrics := obs.NewMetrics()
	opts := []collector.Option{
		collector.WithNormalizer(normalizer.New()),
		collector.WithMetrics(metrics),
		collector.WithMaxDrain(cfg.Dispatcher.MaxDrain),
	}
	if cfg.Dispatcher.QueueCapacity > 0 {
		policy := bus.OverflowDropOldest
		if cfg.Dispatcher.QueuePolicy == "drop_newest" {
			policy = bus.OverflowDropNewest
		}
		opts = append(opts, collector.WithQueue(cfg.Dispatcher.QueueCapacity, policy))
	}

	if cfg.Recorder.Enable {
		w, err := newRecorder(ctx, cfg.Recorder)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func() error {
			err := w.Close()
			st := w.Stats()
			logs.Infof("recorder closed: records=%d bytes=%d segments=%d dropped=%d", st.Records, st.Bytes, st.Segments, st.Dropped)
			return err
		})
		opts = append(opts, collector.WithTap(recorder.NewRecorder(w).Tap))
		logs.Infof("recording raw messages to %s", cfg.Recorder.Dir)
	}

	collectors, replayDone, err := buildCollectors(cfg, metrics, opts)
	if err != nil {
		return nil, err
	}

	sink, sinkClosers, err := buildSinks(ctx, cfg.Storage)
	closers = append(closers, sinkClosers...)
	if err != nil {
		return nil, err
	}

	d := dispatcher.New(collectors,
		dispatcher.WithPollInterval(cfg.Dispatcher.PollInterval),
		dispatcher.WithMetrics(metrics),
	)

	pipelineOpts := []Option{
		WithStartupGrace(cfg.Dispatcher.StartupGrace),
		WithDebug(cfg.Logger.Debug),
	}
	for _, c := range closers {
		pipelineOpts = append(pipelineOpts, WithCloser(c))
	}
	p = New(d, cleaner.New(cfg.Cleaner.Threshold), sink, metrics, pipelineOpts...)
	p.replayDone = replayDone
	return p, nil
}

func newRecorder(ctx context.Context, cfg config.RecorderConfig) (*recorder.Writer, error) {
	rc := recorder.DefaultConfig(cfg.Dir)
	if cfg.Prefix != "" {
		rc.FilePrefix = cfg.Prefix
	}
	if cfg.SegmentMaxBytes > 0 {
		rc.SegmentMaxBytes = cfg.SegmentMaxBytes
	}
	if cfg.SegmentMaxDuration > 0 {
		rc.SegmentMaxDuration = cfg.SegmentMaxDuration
	}
	rc.FlushInterval = cfg.FlushInterval

	w, err := recorder.NewWriter(rc)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func bridgeConfig(c config.BridgeConfig) bridge.Config {
	return bridge.Config{
		URL:          c.URL,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		DialAttempts: c.DialAttempts,
	}
}

func buildCollectors(cfg *config.Config, metrics *obs.Metrics, opts []collector.Option) ([]collector.Collector, <-chan struct{}, error) {
	var (
		out        []collector.Collector
		replayDone <-chan struct{}
		src        = cfg.Sources
	)
	with := func(symbols []string) []collector.Option {
		return append(append([]collector.Option(nil), opts...), collector.WithSymbols(cfg.SymbolsFor(symbols)...))
	}

	if src.CTP.Enable {
		client := ctp.NewMdClient(ctp.NewBridgeAPI(bridgeConfig(src.CTP.Bridge)), ctp.Config{
			FrontAddr: src.CTP.FrontAddr,
			BrokerID:  src.CTP.BrokerID,
			UserID:    src.CTP.UserID,
			Password:  src.CTP.Password,
		})
		out = append(out, collector.NewCTP(client, with(src.CTP.Symbols)...))
	}
	if src.ZY.Enable {
		client := zy.NewClient(zy.Config{DCEAddress: src.ZY.DCEAddress, CZCEAddress: src.ZY.CZCEAddress}, metrics)
		out = append(out, collector.NewZY(client, with(src.ZY.Symbols)...))
	}
	if src.NSQ.Enable {
		client := nsq.NewClient(nsq.Config{
			Bridge:   bridgeConfig(src.NSQ.Bridge),
			UserID:   src.NSQ.UserID,
			Password: src.NSQ.Password,
		})
		out = append(out, collector.NewNSQ(client, with(src.NSQ.Symbols)...))
	}
	if src.GFEX.Enable {
		r := gfex.NewReceiver(gfex.Config{
			Address:     src.GFEX.Address,
			Interface:   src.GFEX.Interface,
			ReadBuffer:  src.GFEX.ReadBuffer,
			ReadTimeout: src.GFEX.ReadTimeout,
		}, metrics)
		out = append(out, collector.NewGFEX(r, with(src.GFEX.Symbols)...))
	}
	if src.Replay.Enable {
		v, err := replay.New(recorder.PlaybackConfig{
			Dir:        src.Replay.Dir,
			FilePrefix: src.Replay.Prefix,
			Speed:      src.Replay.Speed,
			Sources:    src.Replay.Sources,
		})
		if err != nil {
			return nil, nil, err
		}
		replayDone = v.Done()
		out = append(out, collector.NewReplay(v, with(nil)...))
	}
	return out, replayDone, nil
}

func buildSinks(ctx context.Context, cfg config.StorageConfig) (storage.Sink, []func() error, error) {
	var (
		sinks   []storage.Sink
		closers []func() error
	)

	if cfg.File.Enable {
		s, err := storage.NewFileSink(cfg.File.Dir)
		if err != nil {
			return nil, closers, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Postgres.Enable {
		pg, err := conn.NewPostgres(ctx, conn.PostgresOption{ConnString: cfg.Postgres.DSN})
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, pg.Close)
		s, err := storage.NewPostgresSink(ctx, pg.DB(), cfg.Postgres.Migrate)
		if err != nil {
			return nil, closers, err
		}
		sinks = append(sinks, s)
	}
	if cfg.ClickHouse.Enable {
		ch, err := conn.NewClickHouse(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, ch.Close)
		s, err := storage.NewClickHouseSink(ctx, ch, cfg.ClickHouse.Table, cfg.ClickHouse.Migrate)
		if err != nil {
			return nil, closers, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Kafka.Enable {
		sinks = append(sinks, storage.NewKafkaSink(storage.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic}))
	}
	if cfg.Redis.Enable {
		client, err := conn.NewRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, client.Close)
		sinks = append(sinks, storage.NewRedisSink(client, cfg.Redis.Prefix, cfg.Redis.TTL))
	}

	if len(sinks) == 1 {
		return sinks[0], closers, nil
	}
	return storage.NewMultiSink(sinks...), closers, nil
}
