// Package normalize implements the Normalizer (C5): turning decoded
// upstream payloads (JSON or XML, per spec.md §4.5) into domain.Tick
// values, generalizing the teacher's goalserve_ws message-shaped structs
// (internal/adapters/inbound/goalserve_ws/types.go) to a provider-agnostic
// odds envelope.
package normalize

import "encoding/json"

// jsonEnvelope is the top-level JSON odds push shape: one changed price
// per message, mirroring the teacher's UpdtMessage single-event push.
type jsonEnvelope struct {
	GameID      string          `json:"game_id"`
	BookmakerID string          `json:"bookmaker_id"`
	OddsType    string          `json:"odds_type"`
	League      string          `json:"league"`
	HomeTeam    string          `json:"home_team"`
	AwayTeam    string          `json:"away_team"`
	OldValue    json.Number     `json:"old_value"`
	NewValue    json.Number     `json:"new_value"`
	Timestamp   json.Number    `json:"ts"`
	PlayerID    string          `json:"player_id,omitempty"`
	PlayerName  string          `json:"player_name,omitempty"`
	StatType    string          `json:"stat_type,omitempty"`
}

// xmlEnvelope is the top-level XML odds push shape ("change_xml" /
// "ch_goal8_xml" channel families), the other wire format spec.md §4.4
// requires C4/C5 to support alongside JSON.
type xmlEnvelope struct {
	GameID      string `xml:"id,attr"`
	BookmakerID string `xml:"bm,attr"`
	OddsType    string `xml:"type,attr"`
	League      string `xml:"league,attr"`
	HomeTeam    string `xml:"home,attr"`
	AwayTeam    string `xml:"away,attr"`
	OldValue    string `xml:"old,attr"`
	NewValue    string `xml:"new,attr"`
	Timestamp   string `xml:"ts,attr"`
	PlayerID    string `xml:"player_id,attr"`
	PlayerName  string `xml:"player_name,attr"`
	StatType    string `xml:"stat_type,attr"`
}
