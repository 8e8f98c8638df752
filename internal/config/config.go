package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration. Zero values are filled in by
// applyDefaults so a partial YAML file (or none at all) is always valid.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Browser   BrowserConfig   `yaml:"browser"`
	Detection DetectionConfig `yaml:"detection"`
	Watcher   WatcherConfig   `yaml:"watcher"`
	Queue     QueueConfig     `yaml:"queue"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type BrowserConfig struct {
	// CDPURL connects to an already-running browser when set
	// (ws://... or http://host:port). Empty launches a local instance.
	CDPURL   string `yaml:"cdp_url"`
	Headless bool   `yaml:"headless"`
}

// DetectionConfig tunes hint detection.
type DetectionConfig struct {
	// FalsePositiveLookback is how many prior hints are examined when
	// deciding whether a class="button"-style hint duplicates an ancestor.
	FalsePositiveLookback int `yaml:"false_positive_lookback"`
	// FalsePositiveAncestors is how many ancestor levels of the candidate
	// element are walked during that comparison.
	FalsePositiveAncestors int `yaml:"false_positive_ancestors"`
	// LinkTextLimit caps extracted link text length in characters.
	LinkTextLimit int `yaml:"link_text_limit"`
}

// WatcherConfig tunes the mutation watcher refresh cadence.
type WatcherConfig struct {
	DebounceMs int `yaml:"debounce_ms"`
	SettleMs   int `yaml:"settle_ms"`
	PeriodicMs int `yaml:"periodic_ms"`
}

func (w WatcherConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

func (w WatcherConfig) Settle() time.Duration {
	return time.Duration(w.SettleMs) * time.Millisecond
}

func (w WatcherConfig) Periodic() time.Duration {
	return time.Duration(w.PeriodicMs) * time.Millisecond
}

// QueueConfig tunes the per-tab task lanes.
type QueueConfig struct {
	// MaxConcurrent caps in-flight tasks across all tabs. 0 means unlimited.
	MaxConcurrent int `yaml:"max_concurrent"`
	// CallTimeoutMs bounds a single queued call, queue wait included.
	CallTimeoutMs int `yaml:"call_timeout_ms"`
}

func (q QueueConfig) CallTimeout() time.Duration {
	return time.Duration(q.CallTimeoutMs) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	c.applyDefaults()
	return c
}

// Load reads YAML from path with ${VAR} expansion. A missing file yields
// the defaults without error; a malformed file is an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses YAML config bytes with environment variable expansion.
func LoadFromBytes(data []byte) (Config, error) {
	var c Config
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &c); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8377
	}
	if c.Detection.FalsePositiveLookback == 0 {
		c.Detection.FalsePositiveLookback = 6
	}
	if c.Detection.FalsePositiveAncestors == 0 {
		c.Detection.FalsePositiveAncestors = 3
	}
	if c.Detection.LinkTextLimit == 0 {
		c.Detection.LinkTextLimit = 256
	}
	if c.Watcher.DebounceMs == 0 {
		c.Watcher.DebounceMs = 100
	}
	if c.Watcher.SettleMs == 0 {
		c.Watcher.SettleMs = 1000
	}
	if c.Watcher.PeriodicMs == 0 {
		c.Watcher.PeriodicMs = 5000
	}
	if c.Queue.MaxConcurrent == 0 {
		c.Queue.MaxConcurrent = 4
	}
	if c.Queue.CallTimeoutMs == 0 {
		c.Queue.CallTimeoutMs = 15000
	}
}
