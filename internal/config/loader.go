package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvAddr          = "ROBOROUTE_ADDR"
	EnvHeuristic     = "ROBOROUTE_HEURISTIC"
	EnvSearchTimeout = "ROBOROUTE_SEARCH_TIMEOUT"
	EnvStoreDriver   = "ROBOROUTE_STORE"
	EnvStorePath     = "ROBOROUTE_STORE_PATH"
	EnvLogLevel      = "ROBOROUTE_LOG_LEVEL"
	EnvLogFormat     = "ROBOROUTE_LOG_FORMAT"
	EnvMetrics       = "ROBOROUTE_METRICS"
	EnvRobotIP       = "ROBOT_IP"
	EnvRobotPort     = "ROBOT_PORT"
	EnvCredentials   = "GOOGLE_APPLICATION_CREDENTIALS"
)

// Load returns defaults overlaid with the file at path (if non-empty) and the
// process environment, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = FromFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// FromFile decodes a config file over the defaults, auto-detecting format by
// extension. Supported extensions: .yaml, .yml, .toml, .json
func FromFile(path string) (Config, error) {
	cfg := Default()
	if err := decodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse yaml: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parse toml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse json: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file extension: %s", ext)
	}
	return nil
}

// ApplyEnv overrides cfg with any variables lookup finds.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAddr); ok && v != "" {
		cfg.Server.Addr = v
	}
	if v, ok := lookup(EnvHeuristic); ok && v != "" {
		cfg.Search.Heuristic = v
	}
	if v, ok := lookup(EnvSearchTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSearchTimeout, err)
		}
		cfg.Search.Timeout = Duration{d}
	}
	if v, ok := lookup(EnvStoreDriver); ok && v != "" {
		cfg.Store.Driver = strings.ToLower(v)
	}
	if v, ok := lookup(EnvStorePath); ok && v != "" {
		cfg.Store.Path = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Log.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		cfg.Log.Format = v
	}
	if v, ok := lookup(EnvMetrics); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMetrics, err)
		}
		cfg.Metrics.Enabled = enabled
	}
	if v, ok := lookup(EnvRobotIP); ok && v != "" {
		cfg.Robot.Host = v
	}
	if v, ok := lookup(EnvRobotPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRobotPort, err)
		}
		cfg.Robot.Port = port
	}
	if v, ok := lookup(EnvCredentials); ok && v != "" {
		cfg.Speech.CredentialsFile = v
	}
	return nil
}
