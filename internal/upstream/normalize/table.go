package normalize

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/charleschow/oddsentinel/internal/domain"
)

// fold canonicalizes a raw league/odds-type token: casefold it and strip
// punctuation/whitespace, so "Euro League", "euro-league", and
// "EUROLEAGUE" all resolve to the same table entry.
var foldCaser = cases.Fold()

func fold(s string) string {
	var b strings.Builder
	for _, r := range foldCaser.String(s) {
		if r == ' ' || r == '-' || r == '_' || r == '.' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var leagueTable = map[string]domain.League{
	fold("WNCAAB"):               domain.LeagueWNCAAB,
	fold("Women's NCAA Basketball"): domain.LeagueWNCAAB,
	fold("NBA"):                  domain.LeagueNBA,
	fold("National Basketball Association"): domain.LeagueNBA,
	fold("EuroLeague"):           domain.LeagueEuroLeague,
	fold("Euro League"):          domain.LeagueEuroLeague,
}

var oddsTypeTable = map[string]domain.OddsType{
	fold("moneyline"):  domain.OddsMoneyline,
	fold("ml"):         domain.OddsMoneyline,
	fold("spread"):     domain.OddsSpread,
	fold("handicap"):   domain.OddsSpread,
	fold("total"):      domain.OddsTotal,
	fold("overunder"):  domain.OddsTotal,
	fold("ou"):         domain.OddsTotal,
	fold("playerprop"): domain.OddsPlayerProp,
	fold("prop"):       domain.OddsPlayerProp,
}

// ResolveLeague maps a raw upstream league token to the closed domain.League
// enum via the fold table, per spec.md §4.5.
func ResolveLeague(raw string) (domain.League, bool) {
	v, ok := leagueTable[fold(raw)]
	return v, ok
}

// ResolveOddsType maps a raw upstream odds-type token to the closed
// domain.OddsType enum via the fold table.
func ResolveOddsType(raw string) (domain.OddsType, bool) {
	v, ok := oddsTypeTable[fold(raw)]
	return v, ok
}
