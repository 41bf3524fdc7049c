package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"

	"meshnode/internal/loop"
	"meshnode/internal/node"
	"meshnode/internal/service"
	"meshnode/internal/storage"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MESHNODE_"

// GossipConfig controls anti-entropy rounds.
type GossipConfig struct {
	Interval  time.Duration `toml:"interval"`
	Neighbors string        `toml:"neighbors"`
	Fanout    int           `toml:"fanout"`
}

// LogConfig controls the process logger. Output never goes to stdout.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// Config holds the node configuration.
type Config struct {
	Workload    string       `toml:"workload"`
	IDStrategy  string       `toml:"id_strategy"`
	PollWindow  int          `toml:"poll_window"`
	MetricsAddr string       `toml:"metrics_addr"`
	AdminAddr   string       `toml:"admin_addr"`
	Gossip      GossipConfig `toml:"gossip"`
	Log         LogConfig    `toml:"log"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Workload:   service.Echo,
		IDStrategy: service.IDCounter,
		PollWindow: storage.DefaultPollWindow,
		Gossip: GossipConfig{
			Interval:  loop.DefaultInterval,
			Neighbors: string(node.ModeFull),
			Fanout:    node.DefaultFanout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds a configuration from defaults, then the TOML file at path
// (skipped when path is empty), then environment overrides read through
// lookup. The result is validated.
func Load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"WORKLOAD":         &c.Workload,
		"ID_STRATEGY":      &c.IDStrategy,
		"METRICS_ADDR":     &c.MetricsAddr,
		"ADMIN_ADDR":       &c.AdminAddr,
		"GOSSIP_NEIGHBORS": &c.Gossip.Neighbors,
		"LOG_LEVEL":        &c.Log.Level,
		"LOG_FORMAT":       &c.Log.Format,
		"LOG_FILE":         &c.Log.File,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"POLL_WINDOW":   &c.PollWindow,
		"GOSSIP_FANOUT": &c.Gossip.Fanout,
	}
	for key, dst := range ints {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, key, v, err)
		}
		*dst = n
	}

	if v, ok := lookup(EnvPrefix + "GOSSIP_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sGOSSIP_INTERVAL %q: %w", EnvPrefix, v, err)
		}
		c.Gossip.Interval = d
	}
	return nil
}

// Validate rejects settings the node cannot run with.
func (c *Config) Validate() error {
	var err error

	known := false
	for _, w := range service.Workloads {
		if c.Workload == w {
			known = true
		}
	}
	if !known {
		err = multierr.Append(err, fmt.Errorf("unknown workload %q", c.Workload))
	}
	if c.IDStrategy != service.IDCounter && c.IDStrategy != service.IDUUID {
		err = multierr.Append(err, fmt.Errorf("unknown id strategy %q", c.IDStrategy))
	}
	if c.PollWindow <= 0 {
		err = multierr.Append(err, fmt.Errorf("poll_window must be positive, got %d", c.PollWindow))
	}
	if c.Gossip.Interval <= 0 {
		err = multierr.Append(err, fmt.Errorf("gossip.interval must be positive, got %s", c.Gossip.Interval))
	}
	if _, perr := node.ParseMode(c.Gossip.Neighbors); perr != nil {
		err = multierr.Append(err, perr)
	}
	if c.Gossip.Fanout <= 0 {
		err = multierr.Append(err, fmt.Errorf("gossip.fanout must be positive, got %d", c.Gossip.Fanout))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		err = multierr.Append(err, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return err
}
