package statefold

import (
	"context"
	"testing"
	"time"
)

func nextPhase(t *testing.T, ch <-chan GatePhase) (GatePhase, bool) {
	t.Helper()
	select {
	case p, ok := <-ch:
		return p, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for phase transition")
		return 0, false
	}
}

func TestManualGateDeliversTransitions(t *testing.T) {
	gate := NewManualGate(GateInactive)
	ch := gate.Watch(context.Background())

	gate.Activate()
	if p, _ := nextPhase(t, ch); p != GateActive {
		t.Errorf("expected active, got %v", p)
	}
	gate.Deactivate()
	if p, _ := nextPhase(t, ch); p != GateInactive {
		t.Errorf("expected inactive, got %v", p)
	}
}

func TestManualGateIgnoresRedundantTransition(t *testing.T) {
	gate := NewManualGate(GateActive)
	ch := gate.Watch(context.Background())

	gate.Activate() // already active
	gate.Deactivate()
	if p, _ := nextPhase(t, ch); p != GateInactive {
		t.Errorf("expected inactive, got %v", p)
	}
}

func TestManualGateDestroyEndsWatch(t *testing.T) {
	gate := NewManualGate(GateActive)
	ch := gate.Watch(context.Background())

	gate.Destroy()
	if p, ok := nextPhase(t, ch); !ok || p != GateDestroyed {
		t.Fatalf("expected destroyed, got %v (ok=%v)", p, ok)
	}
	if _, ok := nextPhase(t, ch); ok {
		t.Error("watch channel still open after destruction")
	}

	if gate.Phase() != GateDestroyed {
		t.Errorf("phase after destroy: %v", gate.Phase())
	}
	// Transitions after destruction are ignored.
	gate.Activate()
	if gate.Phase() != GateDestroyed {
		t.Error("gate resurrected after destroy")
	}
}

func TestManualGateWatchAfterDestroy(t *testing.T) {
	gate := NewManualGate(GateActive)
	gate.Destroy()

	ch := gate.Watch(context.Background())
	if p, ok := nextPhase(t, ch); !ok || p != GateDestroyed {
		t.Fatalf("expected immediate destroyed, got %v (ok=%v)", p, ok)
	}
}

func TestManualGateWatchStopsWithContext(t *testing.T) {
	gate := NewManualGate(GateActive)
	ctx, cancel := context.WithCancel(context.Background())
	ch := gate.Watch(ctx)

	cancel()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("watch channel not closed after context cancel")
		}
	}
}

func TestGatePhaseString(t *testing.T) {
	if GateActive.String() != "active" || GateInactive.String() != "inactive" || GateDestroyed.String() != "destroyed" {
		t.Error("unexpected phase names")
	}
}
