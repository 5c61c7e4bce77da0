package domain

import "sync"

// TickHandler processes a Tick. The bus discards a returned error (the
// handler logs its own failures) and goes on dispatching to the other
// handlers.
type TickHandler func(Tick) error

// SteamHandler processes a SteamEvent.
type SteamHandler func(SteamEvent) error

// TickBus is a synchronous in-process publish/subscribe point between the
// WebSocket client (producer) and the steam detector (consumer), and
// between the steam detector (producer) and the alert dispatcher
// (consumer). Subscribers run on the publisher's goroutine in registration
// order; a handler wanting async processing must hand off to its own
// goroutine. This is the "well-defined queue" crossing task boundaries
// that the concurrency model requires instead of shared mutable state.
type TickBus struct {
	mu       sync.RWMutex
	ticks    []TickHandler
	steamers []SteamHandler
}

func NewTickBus() *TickBus {
	return &TickBus{}
}

func (b *TickBus) SubscribeTick(h TickHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ticks = append(b.ticks, h)
}

func (b *TickBus) SubscribeSteam(h SteamHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.steamers = append(b.steamers, h)
}

func (b *TickBus) PublishTick(t Tick) {
	b.mu.RLock()
	handlers := b.ticks
	b.mu.RUnlock()
	for _, h := range handlers {
		_ = h(t) // logged by the handler itself; one bad handler shouldn't block others
	}
}

func (b *TickBus) PublishSteam(e SteamEvent) {
	b.mu.RLock()
	handlers := b.steamers
	b.mu.RUnlock()
	for _, h := range handlers {
		_ = h(e)
	}
}
