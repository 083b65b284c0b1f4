package ipcwire

import (
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk shape cmd/ipcserver and cmd/ipcclient load their
// endpoint and tuning knobs from. The core library itself stays
// config-free and option-driven; this exists only for the demo binaries,
// the way _examples/danmuck-edgectl loads its own TOML config.
type Config struct {
	Host  string `toml:"host"`
	Port  string `toml:"port"`
	Topic string `toml:"topic"`

	IdleTimeout time.Duration `toml:"idle_timeout"`
	MaxBlobSize int           `toml:"max_blob_size"`

	AdminAddr string `toml:"admin_addr"`
}

// DefaultConfig mirrors defaultConnOptions so a missing config file still
// produces a working demo binary.
func DefaultConfig() Config {
	return Config{
		Host:        "127.0.0.1",
		Port:        "4242",
		Topic:       "IPC TEST",
		IdleTimeout: defaultIdleTimeout,
		MaxBlobSize: defaultMaxBlobSize,
		AdminAddr:   "127.0.0.1:8080",
	}
}

// LoadConfig decodes path as TOML over DefaultConfig, so any field the file
// omits keeps its default.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ConnOptions turns a Config into the ConnOption set every Connection the
// demo binaries create should use.
func (c Config) ConnOptions() []ConnOption {
	return []ConnOption{
		WithIdleTimeout(c.IdleTimeout),
		WithMaxBlobSize(c.MaxBlobSize),
	}
}
