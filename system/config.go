package system

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps each viper/mapstructure config key to the name of the
// cobra/pflag flag that overrides it, so LoadConfig can bind them onto
// its own local viper instance instead of leaving cmd/timetable-server's
// flag parsing and this package's config loading disconnected.
var flagKeys = map[string]string{
	"port":                "port",
	"algos_dir":           "algos-dir",
	"run_timeout_seconds": "run-timeout",
	"temp_dir":            "temp-dir",
	"log_level":           "log-level",
	"metrics_addr":        "metrics-addr",
}

// Config holds every tunable the server needs at startup (spec.md §6,
// SPEC_FULL §0/§1). Values are loaded from an optional config file,
// environment variables prefixed TIMETABLE_, and flags bound by the
// cmd/timetable-server CLI, in that ascending order of precedence —
// the same layering the teacher's own ambient stack (viper) provides
// out of the box.
type Config struct {
	// Port is the TCP port the server listens on.
	Port int `mapstructure:"port"`

	// AlgosDir is the directory the Algorithm Scanner scans for
	// algorithm subdirectories (spec.md §4.5, §6).
	AlgosDir string `mapstructure:"algos_dir"`

	// RunTimeoutSeconds is the per-run timeout handed to the Runner for
	// every "run" request (spec.md §4.6); a request cannot override it.
	// 0 means the Runner's built-in default applies.
	RunTimeoutSeconds int `mapstructure:"run_timeout_seconds"`

	// TempDir is where the Runner writes its per-run input/output/
	// config/progress files. Empty means os.TempDir().
	TempDir string `mapstructure:"temp_dir"`

	// LogLevel is one of debug/info/warn/error.
	LogLevel string `mapstructure:"log_level"`

	// MetricsAddr, if non-empty, is the address the Prometheus
	// /metrics HTTP endpoint listens on (SPEC_FULL §6). Empty
	// disables it.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// DefaultConfig returns the configuration the server runs with absent
// any file, environment, or flag override.
func DefaultConfig() Config {
	return Config{
		Port:              8080,
		AlgosDir:          "algorithms",
		RunTimeoutSeconds: 0,
		TempDir:           "",
		LogLevel:          "info",
		MetricsAddr:       "",
	}
}

// LoadConfig builds a Config from DefaultConfig, an optional config file
// at path (skipped if path is empty or the file does not exist),
// TIMETABLE_-prefixed environment variables, and flags bound via
// flagKeys, via viper — the same configuration library used elsewhere
// across the retrieval pack. flags may be nil, in which case flag
// overrides are skipped (viper's own flag/env/config/default precedence
// then applies to whatever is left). Pass cmd.Flags() from the cobra
// command's RunE, after cobra has already parsed argv into it, so
// viper.BindPFlag sees each flag's Changed state correctly.
func LoadConfig(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("TIMETABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", cfg.Port)
	v.SetDefault("algos_dir", cfg.AlgosDir)
	v.SetDefault("run_timeout_seconds", cfg.RunTimeoutSeconds)
	v.SetDefault("temp_dir", cfg.TempDir)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("metrics_addr", cfg.MetricsAddr)

	if flags != nil {
		for key, flagName := range flagKeys {
			f := flags.Lookup(flagName)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return cfg, fmt.Errorf("system: binding flag %q: %w", flagName, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("system: reading config file %q: %w", path, err)
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("system: unmarshaling config: %w", err)
	}
	return cfg, nil
}
