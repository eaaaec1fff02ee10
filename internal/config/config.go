// Package config loads roboroute settings from defaults, an optional file and
// the environment, in that order of precedence.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/pdrpinto/roboroute"
)

// Default relay configuration.
const (
	DefaultAddr          = ":5000"
	DefaultRobotHost     = "192.168.0.1"
	DefaultRobotPort     = 5000
	DefaultSampleRate    = 16000
	DefaultLanguageCode  = "en-US"
	DefaultSQLitePath    = "roboroute.db"
	DefaultMaxGridCells  = 1 << 20
	DefaultSearchTimeout = 5 * time.Second
	DefaultRobotTimeout  = 2 * time.Second
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Duration is a time.Duration written as "250ms", "5s" and so on in config files.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the full relay configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" toml:"server" json:"server"`
	Search  SearchConfig  `yaml:"search" toml:"search" json:"search"`
	Robot   RobotConfig   `yaml:"robot" toml:"robot" json:"robot"`
	Store   StoreConfig   `yaml:"store" toml:"store" json:"store"`
	Speech  SpeechConfig  `yaml:"speech" toml:"speech" json:"speech"`
	Log     LogConfig     `yaml:"log" toml:"log" json:"log"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics" json:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr" json:"addr"`
	// MaxGridCells bounds rows*cols of a single request.
	MaxGridCells int `yaml:"max_grid_cells" toml:"max_grid_cells" json:"max_grid_cells"`
}

// SearchConfig configures the pathfinder.
type SearchConfig struct {
	Heuristic string   `yaml:"heuristic" toml:"heuristic" json:"heuristic"`
	Workers   int      `yaml:"workers" toml:"workers" json:"workers"`
	Timeout   Duration `yaml:"timeout" toml:"timeout" json:"timeout"`
}

// RobotConfig points at the EV3 command receiver.
type RobotConfig struct {
	Host    string   `yaml:"host" toml:"host" json:"host"`
	Port    int      `yaml:"port" toml:"port" json:"port"`
	Timeout Duration `yaml:"timeout" toml:"timeout" json:"timeout"`
	// ForwardPath sends every computed path to the robot's /path endpoint.
	ForwardPath bool `yaml:"forward_path" toml:"forward_path" json:"forward_path"`
}

// BaseURL returns the robot HTTP API URL.
func (r RobotConfig) BaseURL() string {
	return "http://" + net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// StoreConfig selects the last-path store.
type StoreConfig struct {
	Driver string `yaml:"driver" toml:"driver" json:"driver"`
	Path   string `yaml:"path" toml:"path" json:"path"`
}

// SpeechConfig configures the transcription relay. An empty CredentialsFile
// disables it.
type SpeechConfig struct {
	CredentialsFile string `yaml:"credentials_file" toml:"credentials_file" json:"credentials_file"`
	LanguageCode    string `yaml:"language_code" toml:"language_code" json:"language_code"`
	SampleRateHertz int    `yaml:"sample_rate_hertz" toml:"sample_rate_hertz" json:"sample_rate_hertz"`
}

// LogConfig configures internal/log.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level" json:"level"`
	Format string `yaml:"format" toml:"format" json:"format"`
}

// MetricsConfig toggles the OpenTelemetry recorder.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled" json:"enabled"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         DefaultAddr,
			MaxGridCells: DefaultMaxGridCells,
		},
		Search: SearchConfig{
			Heuristic: string(roboroute.HeuristicEuclidean),
			Timeout:   Duration{DefaultSearchTimeout},
		},
		Robot: RobotConfig{
			Host:    DefaultRobotHost,
			Port:    DefaultRobotPort,
			Timeout: Duration{DefaultRobotTimeout},
		},
		Store: StoreConfig{
			Driver: StoreMemory,
			Path:   DefaultSQLitePath,
		},
		Speech: SpeechConfig{
			LanguageCode:    DefaultLanguageCode,
			SampleRateHertz: DefaultSampleRate,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.MaxGridCells <= 0 {
		return fmt.Errorf("server.max_grid_cells must be positive, got %d", c.Server.MaxGridCells)
	}
	if _, err := roboroute.ParseHeuristic(c.Search.Heuristic); err != nil {
		return fmt.Errorf("search.heuristic: %w", err)
	}
	if c.Search.Workers < 0 {
		return fmt.Errorf("search.workers must not be negative, got %d", c.Search.Workers)
	}
	if c.Search.Timeout.Duration < 0 {
		return fmt.Errorf("search.timeout must not be negative")
	}
	if c.Robot.Host == "" {
		return fmt.Errorf("robot.host is required")
	}
	if c.Robot.Port <= 0 || c.Robot.Port > 65535 {
		return fmt.Errorf("robot.port out of range: %d", c.Robot.Port)
	}
	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", StoreMemory, StoreSQLite, c.Store.Driver)
	}
	if c.Speech.SampleRateHertz <= 0 {
		return fmt.Errorf("speech.sample_rate_hertz must be positive, got %d", c.Speech.SampleRateHertz)
	}
	return nil
}
