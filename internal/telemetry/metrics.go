package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the process-wide prometheus registry. It is the sole allowed
// process-wide state beyond the audit sink handle (design note §9): every
// other component receives its collaborators by explicit injection.
var Metrics = newRegistry()

type registry struct {
	Registry *prometheus.Registry

	WSReconnects       prometheus.Counter
	WSMessagesReceived prometheus.Counter
	WSParseErrors      prometheus.Counter
	WSState            *prometheus.GaugeVec

	TicksNormalized prometheus.Counter
	TicksDropped    *prometheus.CounterVec

	SteamEventsEmitted *prometheus.CounterVec
	TickVelocity       prometheus.Histogram
	SteamIndex         prometheus.Histogram

	AlertsSent      *prometheus.CounterVec
	AlertsCooldown  *prometheus.CounterVec
	AlertsFailed    *prometheus.CounterVec
	MessagesPinned  prometheus.Counter

	AuditRecords      prometheus.Counter
	AuditWriteErrors  prometheus.Counter

	TensionScore  *prometheus.GaugeVec
	TensionSpikes prometheus.Counter
}

func newRegistry() *registry {
	reg := prometheus.NewRegistry()
	r := &registry{
		Registry: reg,
		WSReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oddsentinel_ws_reconnects_total",
			Help: "Total WebSocket reconnect attempts.",
		}),
		WSMessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oddsentinel_ws_messages_received_total",
			Help: "Total frames received from the upstream socket.",
		}),
		WSParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oddsentinel_ws_parse_errors_total",
			Help: "Frames that failed envelope classification.",
		}),
		WSState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "oddsentinel_ws_state",
			Help: "1 if the client is currently in the given state, else 0.",
		}, []string{"state"}),
		TicksNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oddsentinel_ticks_normalized_total",
			Help: "Ticks successfully normalized to the canonical shape.",
		}),
		TicksDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oddsentinel_ticks_dropped_total",
			Help: "Ticks dropped during normalization, by reason.",
		}, []string{"reason"}),
		SteamEventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oddsentinel_steam_events_total",
			Help: "Steam events emitted, by type.",
		}, []string{"type"}),
		TickVelocity: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "oddsentinel_tick_velocity",
			Help:    "Distribution of per-tick velocity.",
			Buckets: []float64{0.005, 0.01, 0.02, 0.03, 0.05, 0.07, 0.10, 0.15, 0.25},
		}),
		SteamIndex: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "oddsentinel_steam_index",
			Help:    "Distribution of computed steam index values.",
			Buckets: []float64{0.5, 1.0, 1.5, 2.0, 2.5, 3.0, 4.0},
		}),
		AlertsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oddsentinel_alerts_sent_total",
			Help: "Alerts successfully sent, by type.",
		}, []string{"type"}),
		AlertsCooldown: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oddsentinel_alerts_cooldown_total",
			Help: "Alerts dropped by cooldown, by type.",
		}, []string{"type"}),
		AlertsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oddsentinel_alerts_failed_total",
			Help: "Alerts that failed to send, by type.",
		}, []string{"type"}),
		MessagesPinned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oddsentinel_messages_pinned_total",
			Help: "Messages pinned after a qualifying steam alert.",
		}),
		AuditRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oddsentinel_audit_records_total",
			Help: "Audit records submitted.",
		}),
		AuditWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oddsentinel_audit_write_errors_total",
			Help: "Audit records that failed to persist.",
		}),
		TensionScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "oddsentinel_tension_score",
			Help: "Last computed tension score per session.",
		}, []string{"session"}),
		TensionSpikes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oddsentinel_tension_spikes_total",
			Help: "Transitions where tension score exceeded the spike threshold.",
		}),
	}

	reg.MustRegister(
		r.WSReconnects, r.WSMessagesReceived, r.WSParseErrors, r.WSState,
		r.TicksNormalized, r.TicksDropped,
		r.SteamEventsEmitted, r.TickVelocity, r.SteamIndex,
		r.AlertsSent, r.AlertsCooldown, r.AlertsFailed, r.MessagesPinned,
		r.AuditRecords, r.AuditWriteErrors,
		r.TensionScore, r.TensionSpikes,
	)
	return r
}
