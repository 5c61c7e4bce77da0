package steam

import (
	"testing"
	"time"

	"github.com/charleschow/oddsentinel/internal/clock"
	"github.com/charleschow/oddsentinel/internal/domain"
)

type fixedResolver struct{ cfg domain.SteamConfig }

func (f fixedResolver) Resolve(domain.League, domain.OddsType) domain.SteamConfig { return f.cfg }

func testConfig() domain.SteamConfig {
	return domain.SteamConfig{
		VelocityThreshold: 0.03,
		TimeWindow:        5 * time.Minute,
		VolumeWeight:      0.5,
		MinRapidChanges:   3,
	}
}

func newTestDetector(cfg domain.SteamConfig, fc *clock.Fake) (*Detector, *domain.TickBus) {
	bus := domain.NewTickBus()
	d := New(fixedResolver{cfg: cfg}, bus, nil, fc)
	return d, bus
}

func TestLargeSingleFires(t *testing.T) {
	fc := clock.NewFake(time.Now())
	d, bus := newTestDetector(testConfig(), fc)

	var got domain.SteamEvent
	bus.SubscribeSteam(func(e domain.SteamEvent) error { got = e; return nil })

	// velocity = (2.0-1.0)/2.0 = 0.5, well above the 0.10 large-single bar
	d.OnTick(domain.Tick{GameID: "g1", BookmakerID: "bm1", OddsType: domain.OddsMoneyline, OldValue: 2.0, NewValue: 1.0, TimestampMS: 1})

	if got.Type != domain.SteamLargeSingle {
		t.Fatalf("got event type %v, want %v", got.Type, domain.SteamLargeSingle)
	}
}

func TestMultiRapidRequiresMinRapidChanges(t *testing.T) {
	fc := clock.NewFake(time.Now())
	cfg := testConfig()
	d, bus := newTestDetector(cfg, fc)

	var events []domain.SteamEvent
	bus.SubscribeSteam(func(e domain.SteamEvent) error { events = append(events, e); return nil })

	// Three ticks each clearing VelocityThreshold (0.03) but below the
	// large-single bar (0.10), spaced within the time window.
	base := domain.Tick{GameID: "g1", BookmakerID: "bm1", OddsType: domain.OddsMoneyline, Market: domain.Market{League: domain.LeagueNBA}}
	vals := [][2]float64{{1.00, 1.05}, {1.05, 1.10}, {1.10, 1.15}}
	for i, v := range vals {
		tick := base
		tick.OldValue, tick.NewValue = v[0], v[1]
		tick.TimestampMS = int64(i + 1)
		d.OnTick(tick)
		fc.Advance(time.Second)
	}

	if len(events) == 0 {
		t.Fatal("expected a MULTI_RAPID event after 3 rapid changes")
	}
	last := events[len(events)-1]
	if last.Type != domain.SteamMultiRapid {
		t.Errorf("got type %v, want %v", last.Type, domain.SteamMultiRapid)
	}
	if last.SteamIndex <= 0 {
		t.Errorf("SteamIndex = %v, want > 0", last.SteamIndex)
	}
}

func TestDedupSuppressesRepeatedTimestamp(t *testing.T) {
	fc := clock.NewFake(time.Now())
	d, bus := newTestDetector(testConfig(), fc)

	count := 0
	bus.SubscribeSteam(func(domain.SteamEvent) error { count++; return nil })

	tick := domain.Tick{GameID: "g1", BookmakerID: "bm1", OddsType: domain.OddsMoneyline, OldValue: 2.0, NewValue: 1.0, TimestampMS: 42}
	d.OnTick(tick)
	d.OnTick(tick) // same (key, timestamp) — must be suppressed

	if count != 1 {
		t.Errorf("got %d steam events, want exactly 1 (dedup failed)", count)
	}
}

func TestCleanupRemovesIdleWindows(t *testing.T) {
	fc := clock.NewFake(time.Now())
	cfg := testConfig()
	cfg.TimeWindow = time.Millisecond
	d, _ := newTestDetector(cfg, fc)

	d.OnTick(domain.Tick{GameID: "g1", BookmakerID: "bm1", OddsType: domain.OddsMoneyline, OldValue: 2.0, NewValue: 1.99, TimestampMS: 1})
	fc.Advance(time.Second) // the window's one entry is now far outside its 1ms span

	d.Cleanup()

	if len(d.windows) != 0 {
		t.Errorf("expected the idle window to be cleaned up, got %d windows", len(d.windows))
	}
}
