package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DataDir         string       `yaml:"data_dir"`
	PageCacheFrames int          `yaml:"page_cache_frames"` // frames in the buffer pool, at least tree depth + 2
	DirectIO        bool         `yaml:"direct_io"`
	LogLevel        string       `yaml:"log_level"`
	Server          ServerConfig `yaml:"server"`
	Export          ExportConfig `yaml:"export"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"` // TCP listen address of the cursor server (e.g. :7070)
}

type ExportConfig struct {
	TablePrefix string `yaml:"table_prefix"`
}

func defaultConfig() *Config {

	return &Config{
		DataDir:         "index_data",
		PageCacheFrames: 64,
		DirectIO:        false,
		LogLevel:        "info",
		Server: ServerConfig{
			Addr: ":7070",
		},
	}
}

// Load reads a YAML config. An empty path tries the usual locations, and a
// missing file yields the defaults.
func Load(configPath string) (*Config, error) {

	cfg := defaultConfig()

	if configPath == "" {
		for _, p := range []string{"configs/inspector.yaml", "inspector.yaml"} {
			data, err := os.ReadFile(p)
			if err == nil {
				if err := yaml.Unmarshal(data, cfg); err != nil {
					return cfg, errors.Wrapf(err, "parsing %s", p)
				}
				applyDefaults(cfg)
				return cfg, nil
			}
		}
		applyDefaults(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("config file not found, using defaults", "path", configPath, "function", "Load", "at", "config")
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "reading %s", configPath)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing %s", configPath)
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {

	if cfg.DataDir == "" {
		cfg.DataDir = "index_data"
	}
	if cfg.PageCacheFrames <= 0 {
		cfg.PageCacheFrames = 64
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":7070"
	}
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (cfg *Config) SlogLevel() slog.Level {

	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
