package config

import (
	"testing"
	"time"

	"github.com/charleschow/oddsentinel/internal/domain"
)

func TestLoadSteamConfigEmptyPathReturnsEmptyFile(t *testing.T) {
	f, err := LoadSteamConfig("")
	if err != nil {
		t.Fatalf("LoadSteamConfig: %v", err)
	}
	cfg := f.Resolve(domain.LeagueNBA, domain.OddsMoneyline)
	if cfg != domain.DefaultSteamConfig() {
		t.Errorf("expected default config for empty file, got %+v", cfg)
	}
}

func TestResolveAppliesOverrideFields(t *testing.T) {
	f := SteamConfigFile{
		string(domain.LeagueNBA): {
			string(domain.OddsMoneyline): steamOverride{
				VelocityThreshold: 0.1,
				TimeWindowMS:      2000,
				VolumeWeight:      0.9,
				MinRapidChanges:   5,
			},
		},
	}

	cfg := f.Resolve(domain.LeagueNBA, domain.OddsMoneyline)
	if cfg.VelocityThreshold != 0.1 {
		t.Errorf("VelocityThreshold = %v, want 0.1", cfg.VelocityThreshold)
	}
	if cfg.TimeWindow != 2*time.Second {
		t.Errorf("TimeWindow = %v, want 2s", cfg.TimeWindow)
	}
	if cfg.VolumeWeight != 0.9 {
		t.Errorf("VolumeWeight = %v, want 0.9", cfg.VolumeWeight)
	}
	if cfg.MinRapidChanges != 5 {
		t.Errorf("MinRapidChanges = %v, want 5", cfg.MinRapidChanges)
	}
}

func TestResolveFallsBackToDefaultForUnknownPair(t *testing.T) {
	f := SteamConfigFile{
		string(domain.LeagueNBA): {
			string(domain.OddsMoneyline): steamOverride{VelocityThreshold: 0.1},
		},
	}

	cfg := f.Resolve(domain.LeagueWNCAAB, domain.OddsSpread)
	if cfg != domain.DefaultSteamConfig() {
		t.Errorf("expected default for unconfigured (league, oddsType), got %+v", cfg)
	}
}

func TestResolveIgnoresSubThresholdMinRapidChanges(t *testing.T) {
	f := SteamConfigFile{
		string(domain.LeagueNBA): {
			string(domain.OddsMoneyline): steamOverride{MinRapidChanges: 1},
		},
	}

	cfg := f.Resolve(domain.LeagueNBA, domain.OddsMoneyline)
	if cfg.MinRapidChanges != domain.DefaultSteamConfig().MinRapidChanges {
		t.Errorf("MinRapidChanges override of 1 should be rejected, got %v", cfg.MinRapidChanges)
	}
}
