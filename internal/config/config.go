package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Join algorithm selection for two-table equi-joins.
const (
	JoinHash       = "hash"
	JoinNestedLoop = "nested_loop"
)

// Config carries the runtime knobs of the engine.
type Config struct {
	DataDir string `mapstructure:"data_dir"`

	Lock struct {
		Timeout       time.Duration `mapstructure:"timeout"`
		RetryInterval time.Duration `mapstructure:"retry_interval"`
		StaleAge      time.Duration `mapstructure:"stale_age"`
	} `mapstructure:"lock"`

	// JoinAlgorithm selects "hash" (default) or "nested_loop", kept
	// selectable for comparison and benchmarking.
	JoinAlgorithm string `mapstructure:"join_algorithm"`

	Logging struct {
		SeqURL string `mapstructure:"seq_url"`
	} `mapstructure:"logging"`
}

// Default returns a configuration usable with no config file at all.
func Default() *Config {
	cfg := &Config{
		DataDir:       "data",
		JoinAlgorithm: JoinHash,
	}
	cfg.Lock.Timeout = 2 * time.Second
	cfg.Lock.RetryInterval = 100 * time.Millisecond
	cfg.Lock.StaleAge = 5 * time.Minute
	return cfg
}

// Load reads a YAML config file and overlays it on the defaults. An empty
// path yields the defaults unchanged.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	switch c.JoinAlgorithm {
	case JoinHash, JoinNestedLoop:
	default:
		return fmt.Errorf("join_algorithm must be %q or %q, got %q", JoinHash, JoinNestedLoop, c.JoinAlgorithm)
	}
	return nil
}
