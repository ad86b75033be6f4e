// Package config loads the collector configuration from YAML.
package config

import (
	"time"

	"quoteflow/internal/model/enum"
)

type Config struct {
	Logger     LoggerConfig     `yaml:"logger"`
	Symbols    []string         `yaml:"symbols"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Cleaner    CleanerConfig    `yaml:"cleaner"`
	Sources    SourcesConfig    `yaml:"sources"`
	Storage    StorageConfig    `yaml:"storage"`
	Recorder   RecorderConfig   `yaml:"recorder"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Profiling  ProfilingConfig  `yaml:"profiling"`
}

type LoggerConfig struct {
	Debug bool `yaml:"debug"`
}

type DispatcherConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	// QueueCapacity bounds every collector queue, 0 is unbounded.
	QueueCapacity int `yaml:"queue_capacity"`
	// QueuePolicy is drop_oldest or drop_newest.
	QueuePolicy string `yaml:"queue_policy"`
	MaxDrain    int    `yaml:"max_drain"`
	// StartupGrace is how long to wait before retrying subscriptions that
	// failed on the first attempt.
	StartupGrace time.Duration `yaml:"startup_grace"`
}

type CleanerConfig struct {
	Threshold int `yaml:"threshold"`
}

type SourcesConfig struct {
	CTP    CTPConfig    `yaml:"ctp"`
	ZY     ZYConfig     `yaml:"zy"`
	NSQ    NSQConfig    `yaml:"nsq"`
	GFEX   GFEXConfig   `yaml:"gfex"`
	Replay ReplayConfig `yaml:"replay"`
}

// Enabled names the enabled sources in declaration order.
func (s SourcesConfig) Enabled() []string {
	var out []string
	if s.CTP.Enable {
		out = append(out, "ctp")
	}
	if s.ZY.Enable {
		out = append(out, "zy")
	}
	if s.NSQ.Enable {
		out = append(out, "nsq")
	}
	if s.GFEX.Enable {
		out = append(out, "gfex")
	}
	if s.Replay.Enable {
		out = append(out, "replay")
	}
	return out
}

// BridgeConfig addresses a websocket gateway in front of a native SDK.
type BridgeConfig struct {
	URL          string        `yaml:"url"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	DialAttempts int           `yaml:"dial_attempts"`
}

type CTPConfig struct {
	Enable    bool         `yaml:"enable"`
	Symbols   []string     `yaml:"symbols"`
	Bridge    BridgeConfig `yaml:"bridge"`
	FrontAddr string       `yaml:"front_addr"`
	BrokerID  string       `yaml:"broker_id"`
	UserID    string       `yaml:"user_id"`
	Password  string       `yaml:"password"`
}

type ZYConfig struct {
	Enable      bool     `yaml:"enable"`
	Symbols     []string `yaml:"symbols"`
	DCEAddress  string   `yaml:"dce_address"`
	CZCEAddress string   `yaml:"czce_address"`
}

type NSQConfig struct {
	Enable   bool         `yaml:"enable"`
	Symbols  []string     `yaml:"symbols"`
	Bridge   BridgeConfig `yaml:"bridge"`
	UserID   string       `yaml:"user_id"`
	Password string       `yaml:"password"`
}

type GFEXConfig struct {
	Enable      bool          `yaml:"enable"`
	Symbols     []string      `yaml:"symbols"`
	Address     string        `yaml:"address"`
	Interface   string        `yaml:"interface"`
	ReadBuffer  int           `yaml:"read_buffer"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

type ReplayConfig struct {
	Enable bool    `yaml:"enable"`
	Dir    string  `yaml:"dir"`
	Prefix string  `yaml:"prefix"`
	Speed  float64 `yaml:"speed"`
	// Sources limits playback to these feeds, e.g. [DCE_L1, CTP_TICK].
	Sources []enum.SourceTag `yaml:"sources"`
}

type StorageConfig struct {
	File       FileStorageConfig       `yaml:"file"`
	Postgres   PostgresStorageConfig   `yaml:"postgres"`
	ClickHouse ClickHouseStorageConfig `yaml:"clickhouse"`
	Kafka      KafkaStorageConfig      `yaml:"kafka"`
	Redis      RedisStorageConfig      `yaml:"redis"`
}

type FileStorageConfig struct {
	Enable bool   `yaml:"enable"`
	Dir    string `yaml:"dir"`
}

type PostgresStorageConfig struct {
	Enable  bool   `yaml:"enable"`
	DSN     string `yaml:"dsn"`
	Migrate bool   `yaml:"migrate"`
}

type ClickHouseStorageConfig struct {
	Enable  bool   `yaml:"enable"`
	DSN     string `yaml:"dsn"`
	Table   string `yaml:"table"`
	Migrate bool   `yaml:"migrate"`
}

type KafkaStorageConfig struct {
	Enable  bool     `yaml:"enable"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type RedisStorageConfig struct {
	Enable bool          `yaml:"enable"`
	URL    string        `yaml:"url"`
	Prefix string        `yaml:"prefix"`
	TTL    time.Duration `yaml:"ttl"`
}

type RecorderConfig struct {
	Enable             bool          `yaml:"enable"`
	Dir                string        `yaml:"dir"`
	Prefix             string        `yaml:"prefix"`
	SegmentMaxBytes    int64         `yaml:"segment_max_bytes"`
	SegmentMaxDuration time.Duration `yaml:"segment_max_duration"`
	FlushInterval      time.Duration `yaml:"flush_interval"`
}

type MetricsConfig struct {
	Enable bool   `yaml:"enable"`
	Addr   string `yaml:"addr"`
	Path   string `yaml:"path"`
}

type ProfilingConfig struct {
	Enable        bool   `yaml:"enable"`
	ServerAddress string `yaml:"server_address"`
	AppName       string `yaml:"app_name"`
}
