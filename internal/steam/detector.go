package steam

import (
	"sync"

	"github.com/charleschow/oddsentinel/internal/audit"
	"github.com/charleschow/oddsentinel/internal/clock"
	"github.com/charleschow/oddsentinel/internal/domain"
	"github.com/charleschow/oddsentinel/internal/telemetry"
)

// largeSingleVelocity is the fixed Rule A bar (spec.md §4.7/§8): a velocity
// of exactly 0.10 triggers LARGE_SINGLE regardless of the per-(league,
// oddsType) VelocityThreshold tuning, which only governs Rule B membership.
const largeSingleVelocity = 0.10

// rapidClusterIndexFloor is the minimum composite steam index (spec.md
// §4.7) for a qualifying cluster to actually emit MULTI_RAPID.
const rapidClusterIndexFloor = 1.5

// Auditor is the narrow capability this package needs from C1.
type Auditor interface {
	Submit(audit.Record)
}

// Resolver resolves per-(league, oddsType) tuning, backed by config.SteamConfigFile.
type Resolver interface {
	Resolve(league domain.League, oddsType domain.OddsType) domain.SteamConfig
}

// Detector maintains one sliding window per Key and emits SteamEvents on
// the bus when either detection rule fires.
type Detector struct {
	resolver Resolver
	bus      *domain.TickBus
	auditor  Auditor
	clock    clock.Clock

	mu      sync.Mutex
	windows map[domain.Key]*window
	dedup   *dedupGuard
}

func New(resolver Resolver, bus *domain.TickBus, auditor Auditor, c clock.Clock) *Detector {
	return &Detector{
		resolver: resolver,
		bus:      bus,
		auditor:  auditor,
		clock:    c,
		windows:  make(map[domain.Key]*window),
		dedup:    newDedupGuard(),
	}
}

// OnTick is registered as a domain.TickHandler with the bus the WebSocket
// client publishes to.
func (d *Detector) OnTick(t domain.Tick) error {
	key := t.Key()
	dk := dedupKey(key, t.TimestampMS)
	if d.dedup.hasSeen(dk) {
		return nil
	}
	d.dedup.record(dk)

	cfg := d.resolver.Resolve(t.Market.League, t.OddsType)
	now := d.clock.Now()
	velocity := t.Velocity()

	d.mu.Lock()
	w, ok := d.windows[key]
	if !ok {
		w = newWindow(cfg.MinRapidChanges)
		d.windows[key] = w
	}
	w.add(domain.WindowEntry{
		Timestamp:   now,
		BookmakerID: t.BookmakerID,
		Odds:        t.NewValue,
		Velocity:    velocity,
	}, cfg.TimeWindow, now)
	snapshot := append([]domain.WindowEntry(nil), w.entries...)
	d.mu.Unlock()

	if velocity >= largeSingleVelocity {
		d.emit(domain.SteamEvent{
			Key:        key,
			Type:       domain.SteamLargeSingle,
			Tick:       t,
			Velocity:   velocity,
			Window:     snapshot,
			DetectedAt: now,
		})
		return nil
	}

	idx, ok := d.rapidClusterIndex(snapshot, cfg)
	if idx > 0 {
		telemetry.Metrics.SteamIndex.Observe(idx)
	}
	if ok {
		d.emit(domain.SteamEvent{
			Key:        key,
			Type:       domain.SteamMultiRapid,
			Tick:       t,
			Velocity:   velocity,
			SteamIndex: idx,
			Window:     snapshot,
			DetectedAt: now,
		})
	}

	return nil
}

// rapidClusterIndex implements Rule B (spec.md §4.7): the window must hold
// at least MinRapidChanges entries individually clearing VelocityThreshold,
// in which case the composite steam index is
// 0.7*(avgVelocity*100) + 0.3*normalizedVolume*VolumeWeight*10, where
// normalizedVolume = min(avgVolume/10000, 1). The index is emitted only
// when it clears rapidClusterIndexFloor — a qualifying cluster count alone
// is not sufficient.
func (d *Detector) rapidClusterIndex(entries []domain.WindowEntry, cfg domain.SteamConfig) (float64, bool) {
	rapid := 0
	for _, e := range entries {
		if e.Velocity >= cfg.VelocityThreshold {
			rapid++
		}
	}
	if rapid < cfg.MinRapidChanges || len(entries) == 0 {
		return 0, false
	}

	velocitySum := 0.0
	volumeSum := 0.0
	volumeCount := 0
	for _, e := range entries {
		velocitySum += e.Velocity
		if e.Volume != nil {
			volumeSum += *e.Volume
			volumeCount++
		}
	}
	avgVelocity := velocitySum / float64(len(entries))

	avgVolume := 0.0
	if volumeCount > 0 {
		avgVolume = volumeSum / float64(volumeCount)
	}
	normalizedVolume := avgVolume / 10000
	if normalizedVolume > 1 {
		normalizedVolume = 1
	}

	index := 0.7*(avgVelocity*100) + 0.3*normalizedVolume*cfg.VolumeWeight*10
	if index < rapidClusterIndexFloor {
		return index, false
	}
	return index, true
}

func (d *Detector) emit(evt domain.SteamEvent) {
	telemetry.Metrics.SteamEventsEmitted.WithLabelValues(string(evt.Type)).Inc()
	if d.auditor != nil {
		d.auditor.Submit(audit.Record{
			Event:   "STEAM_DETECTED",
			Channel: "steam",
			Payload: map[string]any{
				"key":         evt.Key.String(),
				"type":        string(evt.Type),
				"velocity":    evt.Velocity,
				"steam_index": evt.SteamIndex,
			},
		})
	}
	d.bus.PublishSteam(evt)
}

// Cleanup prunes every window against the current time and drops any that
// end up empty, bounding detector memory growth for keys that have gone
// idle (a window only prunes itself on its own add() call, so an idle
// key's stale entries would otherwise linger forever). Intended to run on
// an interval from cmd/oddsentinel's supervisor goroutine.
func (d *Detector) Cleanup() {
	now := d.clock.Now()
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, w := range d.windows {
		if w.span > 0 {
			w.prune(w.span, now)
		}
		if w.empty() {
			delete(d.windows, k)
		}
	}
}
