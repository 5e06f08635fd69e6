// Package config loads runtime settings for stratplan. Values resolve in
// layers: built-in defaults, then an optional stratplan.yml in the workspace,
// then STRATPLAN_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"stratplan/internal/rollup"
)

// FileName is the workspace config file looked up by default.
const FileName = "stratplan.yml"

// Config holds user-tunable settings. Status thresholds are an explicit
// supported customization; everything else about the roll-up math is fixed.
type Config struct {
	Thresholds struct {
		OnTrack float64 `koanf:"on_track"`
		AtRisk  float64 `koanf:"at_risk"`
	} `koanf:"thresholds"`

	Display struct {
		Decimals int `koanf:"decimals"`
	} `koanf:"display"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"thresholds.on_track": rollup.DefaultThresholds.OnTrack,
		"thresholds.at_risk":  rollup.DefaultThresholds.AtRisk,
		"display.decimals":    1,
	}
}

// Load resolves configuration from defaults, the given file (skipped when
// the path is empty or missing), and the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("STRATPLAN_", ".", func(s string) string {
		return strings.Replace(
			strings.ToLower(strings.TrimPrefix(s, "STRATPLAN_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load config env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Thresholds.OnTrack < 0 || c.Thresholds.OnTrack > 1 {
		return fmt.Errorf("thresholds.on_track must be in [0,1], got %v", c.Thresholds.OnTrack)
	}
	if c.Thresholds.AtRisk < 0 || c.Thresholds.AtRisk > 1 {
		return fmt.Errorf("thresholds.at_risk must be in [0,1], got %v", c.Thresholds.AtRisk)
	}
	if c.Thresholds.AtRisk > c.Thresholds.OnTrack {
		return fmt.Errorf("thresholds.at_risk (%v) must not exceed thresholds.on_track (%v)",
			c.Thresholds.AtRisk, c.Thresholds.OnTrack)
	}
	if c.Display.Decimals < 0 || c.Display.Decimals > 6 {
		return fmt.Errorf("display.decimals must be in [0,6], got %d", c.Display.Decimals)
	}
	return nil
}

// RollupThresholds returns the configured bands in engine form.
func (c *Config) RollupThresholds() rollup.Thresholds {
	return rollup.Thresholds{
		OnTrack: c.Thresholds.OnTrack,
		AtRisk:  c.Thresholds.AtRisk,
	}
}
