package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/charleschow/oddsentinel/internal/alert"
	"github.com/charleschow/oddsentinel/internal/audit"
	"github.com/charleschow/oddsentinel/internal/clock"
	"github.com/charleschow/oddsentinel/internal/config"
	"github.com/charleschow/oddsentinel/internal/domain"
	"github.com/charleschow/oddsentinel/internal/lifecycle"
	"github.com/charleschow/oddsentinel/internal/secrets"
	"github.com/charleschow/oddsentinel/internal/steam"
	"github.com/charleschow/oddsentinel/internal/telemetry"
	"github.com/charleschow/oddsentinel/internal/upstream/auth"
	"github.com/charleschow/oddsentinel/internal/upstream/frame"
	"github.com/charleschow/oddsentinel/internal/upstream/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		println("config: " + err.Error())
		os.Exit(1)
	}
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))
	telemetry.Infof("Starting oddsentinel")

	// ── C1 Audit Sink — opened first, closed last ────────────────
	sink, err := audit.Open(audit.Config{
		LogPath:   cfg.AuditLogPath,
		DBPath:    cfg.AuditDBPath,
		Retention: cfg.AuditRetention,
		NatsURL:   cfg.NatsURL,
	})
	if err != nil {
		telemetry.Errorf("audit sink: %v", err)
		os.Exit(1)
	}
	defer sink.Close()

	// ── C2 Secret Store ───────────────────────────────────────────
	secretStore := secrets.New(sink, ".env")
	botToken := cfg.MessagingBotToken
	if botToken == "" {
		if v, err := secretStore.Get("MESSAGING_BOT_TOKEN"); err == nil {
			botToken = v
		}
	}
	chatID := cfg.MessagingChatID
	if chatID == "" {
		if v, err := secretStore.Get("MESSAGING_CHAT_ID"); err == nil {
			chatID = v
		}
	}
	if botToken == "" || chatID == "" {
		telemetry.Errorf("missing required secrets: MESSAGING_BOT_TOKEN/MESSAGING_CHAT_ID")
		os.Exit(1)
	}

	rc := clock.Real{}

	// ── C3 Token Acquirer ─────────────────────────────────────────
	acquirer := auth.New(cfg.UpstreamAuthURL, cfg.DefaultTokenTTL, rc, sink)

	// ── C4 Frame Decoder ──────────────────────────────────────────
	decoder := frame.New(sink)

	// ── Domain bus connecting C6 → C7 → C8 ───────────────────────
	bus := domain.NewTickBus()

	// ── Steam config + C7 Steam Detector ──────────────────────────
	steamFile, err := config.LoadSteamConfig(cfg.SteamConfigPath)
	if err != nil {
		telemetry.Errorf("steam config: %v", err)
		os.Exit(1)
	}
	detector := steam.New(steamFile, bus, sink, rc)
	bus.SubscribeTick(detector.OnTick)

	// ── C8 Alert Dispatcher ───────────────────────────────────────
	channels := alert.NewChannels(
		domain.AlertChannel{TopicID: cfg.TopicSteam, Name: "steam_alerts", CooldownMS: 30_000, SeverityFloor: domain.SeverityInfo},
		domain.AlertChannel{TopicID: cfg.TopicPerformance, Name: "performance", CooldownMS: 60_000, SeverityFloor: domain.SeverityWarning},
		domain.AlertChannel{TopicID: cfg.TopicSystem, Name: "system", CooldownMS: 10_000, SeverityFloor: domain.SeverityWarning},
	)
	transport := alert.NewTransport(botToken, chatID)
	dispatcher := alert.NewDispatcher(channels, transport, sink, rc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus.SubscribeSteam(func(evt domain.SteamEvent) error {
		dispatcher.Dispatch(ctx, steamAlert(evt))
		return nil
	})

	// ── C6 WebSocket Client ────────────────────────────────────────
	wsClient := ws.New(ws.Config{
		StreamURL:             cfg.UpstreamStreamURL,
		Channels:              cfg.UpstreamChannels,
		ConnectTimeout:        cfg.ConnectTimeout,
		HeartbeatInterval:     cfg.HeartbeatInterval,
		ReadTimeout:           cfg.ReadTimeout,
		TokenRefreshThreshold: cfg.TokenRefreshThreshold,
		Backoff: ws.Backoff{
			Initial:    cfg.ReconnectInitialDelay,
			Max:        cfg.ReconnectMaxDelay,
			Multiplier: cfg.ReconnectMultiplier,
		},
		ReconnectMaxAttempts: cfg.ReconnectMaxAttempts,
	}, acquirer, decoder, bus, sink, rc)

	// ── C9 Lifecycle Manager ────────────────────────────────────────
	lifecycleMgr := lifecycle.New(sink, dispatcher, rc, cfg.NatsURL)
	lifecycleMgr.AttachTo(wsClient)
	defer lifecycleMgr.Close()

	go wsClient.Run(ctx)

	cleanupTicker := time.NewTicker(time.Minute)
	defer cleanupTicker.Stop()
	tensionTicker := time.NewTicker(15 * time.Second)
	defer tensionTicker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-cleanupTicker.C:
				detector.Cleanup()
			case <-tensionTicker.C:
				lifecycleMgr.RecomputeTension(ctx)
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	telemetry.Infof("Shutting down oddsentinel...")
	cancel()
}

func steamAlert(evt domain.SteamEvent) domain.Alert {
	severity := domain.SeverityWarning
	if evt.Type == domain.SteamLargeSingle || evt.SteamIndex >= 2.0 {
		severity = domain.SeverityCritical
	}
	return domain.Alert{
		Type:     domain.AlertSteam,
		Severity: severity,
		Title:    "Steam detected",
		Message:  steamMessage(evt),
		Metadata: map[string]any{
			"game_id":       evt.Tick.GameID,
			"bookmaker":     evt.Tick.BookmakerID,
			"odds_type":     string(evt.Tick.OddsType),
			"velocity":      evt.Velocity,
			"steam_index":   evt.SteamIndex,
			"line_movement": evt.Tick.NewValue - evt.Tick.OldValue,
		},
		Timestamp: evt.DetectedAt,
	}
}

func steamMessage(evt domain.SteamEvent) string {
	if evt.Type == domain.SteamLargeSingle {
		return "Large single move on " + evt.Tick.Market.HomeTeam + " vs " + evt.Tick.Market.AwayTeam
	}
	return "Rapid cluster of odds changes on " + evt.Tick.Market.HomeTeam + " vs " + evt.Tick.Market.AwayTeam
}
