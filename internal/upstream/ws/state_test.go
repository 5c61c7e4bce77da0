package ws

import "testing"

func TestStateStringKnownValues(t *testing.T) {
	cases := map[State]string{
		StateDisconnected: "DISCONNECTED",
		StateConnecting:   "CONNECTING",
		StateConnected:    "CONNECTED",
		StateReconnecting: "RECONNECTING",
		StateClosed:       "CLOSED",
		StateError:        "ERROR",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestStateStringUnknown(t *testing.T) {
	if got := State(99).String(); got != "UNKNOWN" {
		t.Errorf("State(99).String() = %q, want UNKNOWN", got)
	}
}
