package normalize

import (
	"encoding/xml"
	"fmt"

	"github.com/charleschow/oddsentinel/internal/domain"
)

// FromXML converts one decoded XML odds-push payload into a Tick. No
// third-party XML library is wired here — encoding/xml is the stdlib
// fallback documented in SPEC_FULL.md §4: nothing in the retrieved
// corpus imports an XML library, and spec.md requires this format.
func FromXML(raw []byte) (domain.Tick, error) {
	var env xmlEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return domain.Tick{}, fmt.Errorf("normalize: unmarshal xml envelope: %w", err)
	}
	return buildTick(
		env.GameID, env.BookmakerID, env.OddsType, env.League,
		env.HomeTeam, env.AwayTeam,
		env.OldValue, env.NewValue, env.Timestamp,
		env.PlayerID, env.PlayerName, env.StatType,
	)
}

// FromXMLPlayerProp converts a decoded XML payload carrying player-prop
// attributes into a PlayerPropTick.
func FromXMLPlayerProp(raw []byte) (domain.PlayerPropTick, error) {
	var env xmlEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return domain.PlayerPropTick{}, fmt.Errorf("normalize: unmarshal xml envelope: %w", err)
	}
	tick, err := buildTick(
		env.GameID, env.BookmakerID, env.OddsType, env.League,
		env.HomeTeam, env.AwayTeam,
		env.OldValue, env.NewValue, env.Timestamp,
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

// IsPlayerPropXML reports whether a decoded XML payload carries
// player-prop attributes.
func IsPlayerPropXML(raw []byte) bool {
	var probe struct {
		PlayerID string `xml:"player_id,attr"`
	}
	if err := xml.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return probe.PlayerID != ""
}
