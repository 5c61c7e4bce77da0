package domain

import "testing"

func TestTickVelocity(t *testing.T) {
	cases := []struct {
		name     string
		old, new float64
		want     float64
	}{
		{"decrease", 1.90, 1.85, (1.90 - 1.85) / 1.90},
		{"increase", 1.85, 1.90, (1.90 - 1.85) / 1.85},
		{"unchanged", 2.0, 2.0, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tick := Tick{OldValue: c.old, NewValue: c.new}
			got := tick.Velocity()
			if diff := got - c.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Velocity() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestKeyString(t *testing.T) {
	k := Key{GameID: "g1", BookmakerID: "bm1", OddsType: OddsMoneyline}
	if got, want := k.String(), "g1|bm1|moneyline"; got != want {
		t.Errorf("Key.String() = %q, want %q", got, want)
	}
}

func TestTickKey(t *testing.T) {
	tick := Tick{GameID: "g1", BookmakerID: "bm1", OddsType: OddsSpread}
	want := Key{GameID: "g1", BookmakerID: "bm1", OddsType: OddsSpread}
	if got := tick.Key(); got != want {
		t.Errorf("Tick.Key() = %+v, want %+v", got, want)
	}
}
