package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/charleschow/oddsentinel/internal/domain"
)

// steamOverride is the YAML shape for one (league, oddsType) override,
// generalizing the teacher's RiskLimits file (internal/config/risk_loader.go)
// from cents/throttle-ms risk budgets to velocity/window steam-detection
// tuning.
type steamOverride struct {
	VelocityThreshold float64 `yaml:"velocity_threshold"`
	TimeWindowMS      int64   `yaml:"time_window_ms"`
	VolumeWeight      float64 `yaml:"volume_weight"`
	MinRapidChanges   int     `yaml:"min_rapid_changes"`
}

// SteamConfigFile is keyed by league, then by odds type.
type SteamConfigFile map[string]map[string]steamOverride

// LoadSteamConfig reads per-league/oddsType overrides from a YAML file. An
// empty path is not an error — callers fall back to domain.DefaultSteamConfig.
func LoadSteamConfig(path string) (SteamConfigFile, error) {
	if path == "" {
		return SteamConfigFile{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read steam config: %w", err)
	}

	var file SteamConfigFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse steam config: %w", err)
	}
	return file, nil
}

// Resolve looks up the override for (league, oddsType), falling back to the
// package default when absent, per spec.md §4.7 step 2.
func (f SteamConfigFile) Resolve(league domain.League, oddsType domain.OddsType) domain.SteamConfig {
	cfg := domain.DefaultSteamConfig()

	byLeague, ok := f[string(league)]
	if !ok {
		return cfg
	}
	ov, ok := byLeague[string(oddsType)]
	if !ok {
		return cfg
	}

	if ov.VelocityThreshold > 0 {
		cfg.VelocityThreshold = ov.VelocityThreshold
	}
	if ov.TimeWindowMS > 0 {
		cfg.TimeWindow = time.Duration(ov.TimeWindowMS) * time.Millisecond
	}
	if ov.VolumeWeight > 0 {
		cfg.VolumeWeight = ov.VolumeWeight
	}
	if ov.MinRapidChanges >= 2 {
		cfg.MinRapidChanges = ov.MinRapidChanges
	}
	return cfg
}
