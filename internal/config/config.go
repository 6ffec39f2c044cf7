// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskmire Contributors

// Package config loads server configuration from a YAML file with flag and
// environment overrides layered on top.
package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/duskmire/duskmire/internal/combat"
	"github.com/duskmire/duskmire/internal/xdg"
)

// Logging configures the slog handler.
type Logging struct {
	// Format selects the handler output, json or text.
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text,default=json"`
	// Level is the minimum level emitted, debug, info, warn or error.
	Level string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`
}

// Combat tunes the engagement engine.
type Combat struct {
	RootSeed          string        `koanf:"root_seed" json:"root_seed,omitempty" jsonschema:"default=duskmire"`
	TickInterval      time.Duration `koanf:"tick_interval" json:"tick_interval,omitempty" jsonschema:"type=string,default=100ms"`
	DisengageDuration time.Duration `koanf:"disengage_duration" json:"disengage_duration,omitempty" jsonschema:"type=string,default=8s"`
	RetryDelay        time.Duration `koanf:"retry_delay" json:"retry_delay,omitempty" jsonschema:"type=string,default=500ms"`
	MinSwingDuration  time.Duration `koanf:"min_swing_duration" json:"min_swing_duration,omitempty" jsonschema:"type=string,default=600ms"`
	EvalInterval      time.Duration `koanf:"eval_interval" json:"eval_interval,omitempty" jsonschema:"type=string,default=200ms"`
	DespawnDelay      time.Duration `koanf:"despawn_delay" json:"despawn_delay,omitempty" jsonschema:"type=string,default=30s"`
}

// Journal configures combat event persistence. An empty database URL
// disables the journal.
type Journal struct {
	DatabaseURL string `koanf:"database_url" json:"database_url,omitempty"`
}

// Observability configures the metrics and health HTTP server. An empty
// address disables it.
type Observability struct {
	MetricsAddr string `koanf:"metrics_addr" json:"metrics_addr,omitempty" jsonschema:"default=127.0.0.1:9100"`
}

// Config is the full server configuration.
type Config struct {
	Logging       Logging       `koanf:"logging" json:"logging,omitempty"`
	Combat        Combat        `koanf:"combat" json:"combat,omitempty"`
	Journal       Journal       `koanf:"journal" json:"journal,omitempty"`
	Observability Observability `koanf:"observability" json:"observability,omitempty"`
}

// Default returns the configuration used when no file or flags are given.
func Default() Config {
	cc := combat.DefaultConfig()
	return Config{
		Logging: Logging{Format: "json", Level: "info"},
		Combat: Combat{
			RootSeed:          cc.RootSeed,
			TickInterval:      cc.TickInterval,
			DisengageDuration: cc.DisengageDuration,
			RetryDelay:        cc.RetryDelay,
			MinSwingDuration:  cc.MinSwingDuration,
			EvalInterval:      cc.EvalInterval,
			DespawnDelay:      cc.DespawnDelay,
		},
		Observability: Observability{MetricsAddr: "127.0.0.1:9100"},
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigDir(), "config.yaml")
}

// flagKeys maps CLI flag names onto config keys. Flags not listed here are
// ignored by the loader.
var flagKeys = map[string]string{
	"log-format":   "logging.format",
	"log-level":    "logging.level",
	"metrics-addr": "observability.metrics_addr",
	"database-url": "journal.database_url",
	"root-seed":    "combat.root_seed",
}

// Load builds the configuration in precedence order: defaults, then the YAML
// file at path, then DATABASE_URL from the environment, then explicitly set
// flags. The file is checked against the generated JSON Schema before it is
// merged, so typos and mistyped values fail with a schema error instead of
// silently falling back to defaults. A missing file at the default path is
// not an error; a missing file at an explicitly given path is.
func Load(path string, explicit bool, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
			}
		} else if raw, err := os.ReadFile(path); err == nil && len(bytes.TrimSpace(raw)) > 0 {
			if err := ValidateSchema(raw); err != nil {
				return Config{}, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
			}
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
	}

	if cfg.Journal.DatabaseURL == "" {
		cfg.Journal.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			With("field", "logging.format").
			Errorf("log format must be 'json' or 'text', got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return oops.Code("CONFIG_INVALID").
			With("field", "logging.level").
			Errorf("log level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	if c.Combat.TickInterval < 0 || c.Combat.DisengageDuration < 0 ||
		c.Combat.RetryDelay < 0 || c.Combat.MinSwingDuration < 0 ||
		c.Combat.EvalInterval < 0 || c.Combat.DespawnDelay < 0 {
		return oops.Code("CONFIG_INVALID").
			With("field", "combat").
			Errorf("combat durations must not be negative")
	}
	return nil
}

// CombatConfig converts to the engine's own config type.
func (c Config) CombatConfig() combat.Config {
	return combat.Config{
		RootSeed:          c.Combat.RootSeed,
		TickInterval:      c.Combat.TickInterval,
		DisengageDuration: c.Combat.DisengageDuration,
		RetryDelay:        c.Combat.RetryDelay,
		MinSwingDuration:  c.Combat.MinSwingDuration,
		EvalInterval:      c.Combat.EvalInterval,
		DespawnDelay:      c.Combat.DespawnDelay,
	}
}
