package statefold

import (
	"context"
	"sync"
)

// GatePhase is the externally supplied lifecycle phase of a
// subscriber.
type GatePhase int

const (
	// GateInactive suspends delivery
	GateInactive GatePhase = iota
	// GateActive enables delivery
	GateActive
	// GateDestroyed permanently ends the subscription
	GateDestroyed
)

func (p GatePhase) String() string {
	switch p {
	case GateInactive:
		return "inactive"
	case GateActive:
		return "active"
	case GateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// LifecycleGate is the contract the host lifecycle system implements:
// a current phase plus a stream of phase transitions. The router
// suspends delivery while the gate is inactive, redelivers per the
// subscription's mode on reactivation, and releases everything on
// destruction.
type LifecycleGate interface {
	// Phase returns the current phase.
	Phase() GatePhase
	// Watch returns a channel of phase transitions occurring after the
	// call. The channel closes when ctx is cancelled or the gate is
	// destroyed (after GateDestroyed has been delivered).
	Watch(ctx context.Context) <-chan GatePhase
}

// ManualGate is a LifecycleGate driven by explicit calls, for hosts
// without a lifecycle framework and for tests.
type ManualGate struct {
	mu       sync.Mutex
	phase    GatePhase
	watchers map[*mailbox[GatePhase]]struct{}
}

// NewManualGate creates a gate in the given initial phase.
func NewManualGate(initial GatePhase) *ManualGate {
	return &ManualGate{
		phase:    initial,
		watchers: make(map[*mailbox[GatePhase]]struct{}),
	}
}

func (g *ManualGate) Phase() GatePhase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// Activate moves the gate to GateActive.
func (g *ManualGate) Activate() { g.transition(GateActive) }

// Deactivate moves the gate to GateInactive.
func (g *ManualGate) Deactivate() { g.transition(GateInactive) }

// Destroy permanently ends the gate. Further transitions are ignored
// and all watch channels close after delivering GateDestroyed.
func (g *ManualGate) Destroy() { g.transition(GateDestroyed) }

func (g *ManualGate) transition(next GatePhase) {
	g.mu.Lock()
	if g.phase == GateDestroyed || g.phase == next {
		g.mu.Unlock()
		return
	}
	g.phase = next
	watchers := make([]*mailbox[GatePhase], 0, len(g.watchers))
	for mb := range g.watchers {
		watchers = append(watchers, mb)
	}
	if next == GateDestroyed {
		g.watchers = make(map[*mailbox[GatePhase]]struct{})
	}
	g.mu.Unlock()

	for _, mb := range watchers {
		mb.Push(next)
	}
}

func (g *ManualGate) Watch(ctx context.Context) <-chan GatePhase {
	mb := newMailbox[GatePhase]()

	g.mu.Lock()
	if g.phase == GateDestroyed {
		g.mu.Unlock()
		mb.Push(GateDestroyed)
	} else {
		g.watchers[mb] = struct{}{}
		g.mu.Unlock()
	}

	ch := make(chan GatePhase)
	go func() {
		defer close(ch)
		for {
			phase, ok := mb.Next()
			if !ok {
				return
			}
			select {
			case ch <- phase:
			case <-ctx.Done():
				return
			}
			// The terminal phase ends the watch.
			if phase == GateDestroyed {
				return
			}
		}
	}()
	go func() {
		<-ctx.Done()
		g.mu.Lock()
		delete(g.watchers, mb)
		g.mu.Unlock()
		mb.Close()
	}()
	return ch
}
