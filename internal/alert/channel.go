package alert

import "github.com/charleschow/oddsentinel/internal/domain"

// Channels is the fixed, startup-closed channel table spec.md §4.8
// requires — no channel is added or removed after process start.
type Channels struct {
	bySeverityType map[domain.AlertType]domain.AlertChannel
}

func NewChannels(steam, performance, system domain.AlertChannel) *Channels {
	return &Channels{
		bySeverityType: map[domain.AlertType]domain.AlertChannel{
			domain.AlertSteam:       steam,
			domain.AlertPerformance: performance,
			domain.AlertSystem:      system,
		},
	}
}

func (c *Channels) Lookup(t domain.AlertType) (domain.AlertChannel, bool) {
	ch, ok := c.bySeverityType[t]
	return ch, ok
}
