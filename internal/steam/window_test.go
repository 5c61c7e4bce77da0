package steam

import (
	"testing"
	"time"

	"github.com/charleschow/oddsentinel/internal/domain"
)

func TestWindowPruneDropsOnlyExpiredPrefix(t *testing.T) {
	w := newWindow(3)
	base := time.Now()

	w.add(domain.WindowEntry{Timestamp: base}, time.Second, base)
	w.add(domain.WindowEntry{Timestamp: base.Add(2 * time.Second)}, time.Second, base.Add(2*time.Second))

	if len(w.entries) != 1 {
		t.Fatalf("got %d entries, want 1 (the first entry should have aged out)", len(w.entries))
	}
}

func TestWindowEmptyAfterConstruction(t *testing.T) {
	w := newWindow(3)
	if !w.empty() {
		t.Error("new window should be empty")
	}
}

func TestDedupGuardClearResetsSeenSet(t *testing.T) {
	g := newDedupGuard()
	g.record("a")
	if !g.hasSeen("a") {
		t.Fatal("expected key to be recorded")
	}
	g.clear()
	if g.hasSeen("a") {
		t.Error("expected clear() to reset the seen set")
	}
}
