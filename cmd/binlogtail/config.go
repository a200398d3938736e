package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// WatchConfig selects how file growth is detected.
type WatchConfig struct {
	Mode         string `yaml:"mode"` // fsnotify or poll
	PollInterval string `yaml:"poll_interval"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

type Config struct {
	Index  string      `yaml:"index"`
	Watch  WatchConfig `yaml:"watch"`
	Log    LogConfig   `yaml:"log"`
	Output string      `yaml:"output"` // json or text
}

func defaultConfig() *Config {
	return &Config{
		Watch: WatchConfig{
			Mode:         "fsnotify",
			PollInterval: "250ms",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Output: "json",
	}
}

// Load reads a YAML config. A nil reader yields the defaults.
func Load(r io.Reader) (*Config, error) {
	cfg := defaultConfig()
	if r == nil {
		return cfg, nil
	}
	if err := yaml.NewDecoder(r).Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads the config file at path. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Load(nil)
		}
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()
	return Load(file)
}

func (c *Config) validate() error {
	switch c.Watch.Mode {
	case "fsnotify", "poll":
	default:
		return fmt.Errorf("invalid watch.mode %q: want fsnotify or poll", c.Watch.Mode)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log.format %q: want text or json", c.Log.Format)
	}
	switch c.Output {
	case "text", "json":
	default:
		return fmt.Errorf("invalid output %q: want text or json", c.Output)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}
	return nil
}

// ParseDuration parses s, falling back to def when s is empty or invalid.
func ParseDuration(s string, def time.Duration, log logrus.FieldLogger) time.Duration {
	if s == "" || s == "0" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		if log != nil {
			log.WithError(err).WithFields(logrus.Fields{"input": s, "default": def.String()}).Warn("invalid duration, using default")
		}
		return def
	}
	return d
}

func (c *Config) logger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	level, _ := logrus.ParseLevel(c.Log.Level)
	l.SetLevel(level)
	if c.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return l
}
