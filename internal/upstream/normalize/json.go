package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/charleschow/oddsentinel/internal/domain"
)

// FromJSON converts one decoded JSON odds-push payload into a Tick; any
// player-prop fields are ignored here (FromJSONPlayerProp keeps them).
// A league outside the normalization table is kept as-provided. Ticks whose OldValue is
// zero are dropped upstream by the caller per spec.md §4.5 — this
// function returns them unfiltered so callers can audit the drop.
func FromJSON(raw []byte) (domain.Tick, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.Tick{}, fmt.Errorf("normalize: unmarshal json envelope: %w", err)
	}
	return buildTick(
		env.GameID, env.BookmakerID, env.OddsType, env.League,
		env.HomeTeam, env.AwayTeam,
		env.OldValue.String(), env.NewValue.String(), env.Timestamp.String(),
		env.PlayerID, env.PlayerName, env.StatType,
	)
}

// FromJSONPlayerProp converts a decoded JSON payload carrying player-prop
// fields into a PlayerPropTick.
func FromJSONPlayerProp(raw []byte) (domain.PlayerPropTick, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.PlayerPropTick{}, fmt.Errorf("normalize: unmarshal json envelope: %w", err)
	}
	tick, err := buildTick(
		env.GameID, env.BookmakerID, env.OddsType, env.League,
		env.HomeTeam, env.AwayTeam,
		env.OldValue.String(), env.NewValue.String(), env.Timestamp.String(),
		env.PlayerID, env.PlayerName, env.StatType,
	)
	if err != nil {
		return domain.PlayerPropTick{}, err
	}
	return domain.PlayerPropTick{
		Tick:       tick,
		PlayerID:   env.PlayerID,
		PlayerName: env.PlayerName,
		StatType:   env.StatType,
	}, nil
}

// IsPlayerProp reports whether a decoded JSON payload carries player-prop
// fields, letting the caller dispatch to FromJSONPlayerProp instead.
func IsPlayerProp(raw []byte) bool {
	var probe struct {
		PlayerID string `json:"player_id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return probe.PlayerID != ""
}

func buildTick(gameID, bookmakerID, oddsTypeRaw, leagueRaw, home, away, oldRaw, newRaw, tsRaw, playerID, playerName, statType string) (domain.Tick, error) {
	oldValue, err := parseFloat(oldRaw)
	if err != nil {
		return domain.Tick{}, fmt.Errorf("normalize: old_value: %w", err)
	}
	newValue, err := parseFloat(newRaw)
	if err != nil {
		return domain.Tick{}, fmt.Errorf("normalize: new_value: %w", err)
	}
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return domain.Tick{}, fmt.Errorf("normalize: ts: %w", err)
	}

	oddsType, ok := ResolveOddsType(oddsTypeRaw)
	if !ok {
		return domain.Tick{}, fmt.Errorf("normalize: unrecognized odds_type %q", oddsTypeRaw)
	}
	league, ok := ResolveLeague(leagueRaw)
	if !ok {
		league = domain.League(leagueRaw)
	}

	t := domain.Tick{
		GameID:      gameID,
		BookmakerID: bookmakerID,
		OddsType:    oddsType,
		OldValue:    oldValue,
		NewValue:    newValue,
		TimestampMS: ts,
		Market: domain.Market{
			HomeTeam: home,
			AwayTeam: away,
			League:   league,
		},
	}
	_ = playerID
	_ = playerName
	_ = statType
	return t, nil
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
