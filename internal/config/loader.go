package config

import (
	"os"
	"time"

	"quoteflow/internal/errors"
	"quoteflow/pkg/exception"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadEnv loads .env style files into the process environment. Missing
// files are skipped and existing variables are never overridden.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return errors.Wrapf(err, "load env %s", p)
		}
	}
	return nil
}

// Parse decodes YAML after expanding ${VAR} references.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.Wrapf(errors.Join(exception.ErrInvalidConfig, err), "parse config yaml")
	}
	return &cfg, nil
}

// Load reads a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config file %s", path)
	}
	return Parse(data)
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Dispatcher.PollInterval <= 0 {
		c.Dispatcher.PollInterval = 100 * time.Millisecond
	}
	if c.Dispatcher.QueuePolicy == "" {
		c.Dispatcher.QueuePolicy = "drop_oldest"
	}
	if c.Dispatcher.StartupGrace <= 0 {
		c.Dispatcher.StartupGrace = 5 * time.Second
	}
	if c.Cleaner.Threshold <= 0 {
		c.Cleaner.Threshold = 10_000
	}

	s := &c.Storage
	if !s.File.Enable && !s.Postgres.Enable && !s.ClickHouse.Enable && !s.Kafka.Enable && !s.Redis.Enable {
		s.File.Enable = true
	}
	if s.File.Dir == "" {
		s.File.Dir = "data/market_data"
	}
	if s.Kafka.Topic == "" {
		s.Kafka.Topic = "market.ticks"
	}

	if c.Recorder.Dir == "" {
		c.Recorder.Dir = "data/raw"
	}
	if c.Recorder.FlushInterval <= 0 {
		c.Recorder.FlushInterval = time.Second
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9102"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Profiling.AppName == "" {
		c.Profiling.AppName = "quoteflow"
	}
}

// Validate checks the config is usable. At least one source must be enabled.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.Wrapf(exception.ErrInvalidConfig, format, args...)
	}

	src := c.Sources
	if len(src.Enabled()) == 0 {
		return invalid("no market source enabled")
	}
	if src.CTP.Enable && src.CTP.Bridge.URL == "" {
		return invalid("sources.ctp.bridge.url is empty")
	}
	if src.ZY.Enable && src.ZY.DCEAddress == "" && src.ZY.CZCEAddress == "" {
		return invalid("sources.zy needs dce_address or czce_address")
	}
	if src.GFEX.Enable && src.GFEX.Address == "" {
		return invalid("sources.gfex.address is empty")
	}
	if src.Replay.Enable && src.Replay.Dir == "" {
		return invalid("sources.replay.dir is empty")
	}
	if src.Replay.Speed < 0 {
		return invalid("sources.replay.speed must be >= 0")
	}
	for _, tag := range src.Replay.Sources {
		if !tag.IsAvailable() {
			return invalid("sources.replay.sources has an unknown source")
		}
	}

	switch c.Dispatcher.QueuePolicy {
	case "drop_oldest", "drop_newest":
	default:
		return invalid("dispatcher.queue_policy %q", c.Dispatcher.QueuePolicy)
	}
	if c.Dispatcher.QueueCapacity < 0 {
		return invalid("dispatcher.queue_capacity must be >= 0")
	}

	st := c.Storage
	if st.Postgres.Enable && st.Postgres.DSN == "" {
		return invalid("storage.postgres.dsn is empty")
	}
	if st.ClickHouse.Enable && st.ClickHouse.DSN == "" {
		return invalid("storage.clickhouse.dsn is empty")
	}
	if st.Kafka.Enable && len(st.Kafka.Brokers) == 0 {
		return invalid("storage.kafka.brokers is empty")
	}
	if st.Redis.Enable && st.Redis.URL == "" {
		return invalid("storage.redis.url is empty")
	}
	if c.Profiling.Enable && c.Profiling.ServerAddress == "" {
		return invalid("profiling.server_address is empty")
	}
	return nil
}

// SymbolsFor returns the per-source symbol list, falling back to the
// global one.
func (c *Config) SymbolsFor(source []string) []string {
	if len(source) != 0 {
		return source
	}
	return c.Symbols
}
