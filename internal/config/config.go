package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Daemon holds the process-level settings, loaded in three layers:
// built-in defaults, an optional YAML file, then STRAVAD_* environment
// variables. Immutable after Load.
type Daemon struct {
	Server  ServerConfig  `koanf:"server"`
	DataDir string        `koanf:"data_dir"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig holds the embedded HTTP server settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // console or json
}

func defaultDaemon() Daemon {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Daemon{
		Server:  ServerConfig{Host: "0.0.0.0", Port: 8089},
		DataDir: filepath.Join(home, ".stravad"),
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Load reads the daemon configuration. path may name a YAML file; a missing
// file is not an error, the defaults and environment still apply.
func Load(path string) (*Daemon, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultDaemon(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}
	err := k.Load(env.Provider("STRAVAD_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "STRAVAD_")), "_", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Daemon
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Widget is the per-dashboard configuration delivered with the
// GET_STRAVA_DATA notification. JSON keys mirror the payload wire format.
type Widget struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`

	// Legacy overrides from before the OAuth flow existed. Honored, but
	// their presence triggers a deprecation WARNING.
	AccessToken string `json:"access_token,omitempty"`
	StravaID    int64  `json:"strava_id,omitempty"`

	Units           string   `json:"units"`  // metric or imperial
	Locale          string   `json:"locale"`
	FetchIntervalMs int      `json:"fetchInterval"`
	Period          string   `json:"period"`     // recent, ytd, all
	Activities      []string `json:"activities"` // e.g. ["ride", "run", "swim"]
	Debug           bool     `json:"debug"`

	Goals    GoalsConfig    `json:"goals"`
	Records  RecordsConfig  `json:"records"`
	Rankings RankingsConfig `json:"rankings"`
}

// GoalsConfig sets annual distance goals in kilometers per activity type.
type GoalsConfig struct {
	Run  float64 `json:"run,omitempty"`
	Ride float64 `json:"ride,omitempty"`
}

// RecordsConfig controls personal-record tracking.
type RecordsConfig struct {
	Enabled bool `json:"enabled"`
}

// RankingsConfig controls the leaderboard crown scan.
type RankingsConfig struct {
	Enabled   bool `json:"enabled"`
	BatchSize int  `json:"batchSize,omitempty"`
}

// ErrMissingClientID is a configuration fault requiring user attention.
var ErrMissingClientID = errors.New("config: client_id is required")

// ApplyDefaults fills unset widget options.
func (w *Widget) ApplyDefaults() {
	if w.Units == "" {
		w.Units = "metric"
	}
	if w.Locale == "" {
		w.Locale = "en"
	}
	if w.FetchIntervalMs <= 0 {
		w.FetchIntervalMs = int((16 * time.Minute).Milliseconds())
	}
	if w.Period == "" {
		w.Period = "recent"
	}
	if len(w.Activities) == 0 {
		w.Activities = []string{"ride", "run", "swim"}
	}
	if w.Rankings.BatchSize <= 0 {
		w.Rankings.BatchSize = 50
	}
}

// Validate checks the widget config for faults that block syncing.
func (w *Widget) Validate() error {
	if w.ClientID == "" && w.AccessToken == "" {
		return ErrMissingClientID
	}
	if w.Units != "metric" && w.Units != "imperial" {
		return fmt.Errorf("config: units must be \"metric\" or \"imperial\", got %q", w.Units)
	}
	switch w.Period {
	case "recent", "ytd", "all":
	default:
		return fmt.Errorf("config: period must be \"recent\", \"ytd\" or \"all\", got %q", w.Period)
	}
	return nil
}

// FetchInterval returns the sync interval as a duration.
func (w *Widget) FetchInterval() time.Duration {
	return time.Duration(w.FetchIntervalMs) * time.Millisecond
}

// Legacy reports whether deprecated override keys are in use.
func (w *Widget) Legacy() bool {
	return w.AccessToken != "" || w.StravaID != 0
}
