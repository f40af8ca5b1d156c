package statefold

import (
	"context"
	"testing"
	"time"
)

func TestNewConfigNotifiesCreationListeners(t *testing.T) {
	factory := testFactory()

	created := make(chan OwnerInfo, 2)
	remove := factory.OnCreate(func(info OwnerInfo) {
		created <- info
	})

	cfg := NewConfig(factory, counterState{})
	defer cfg.Close()

	select {
	case info := <-created:
		if info.ID != cfg.ID() {
			t.Errorf("expected id %q, got %q", cfg.ID(), info.ID)
		}
		if info.StateType != "statefold.counterState" {
			t.Errorf("unexpected state type %q", info.StateType)
		}
	default:
		t.Fatal("listener not notified before NewConfig returned")
	}

	// A removed listener hears nothing.
	remove()
	other := NewConfig(factory, counterState{})
	defer other.Close()
	select {
	case <-created:
		t.Fatal("removed listener was notified")
	default:
	}
}

func TestConfigIdentityIsUnique(t *testing.T) {
	factory := testFactory()
	a := NewConfig(factory, counterState{})
	defer a.Close()
	b := NewConfig(factory, counterState{})
	defer b.Close()

	if a.ID() == b.ID() {
		t.Errorf("expected distinct owner ids, both %q", a.ID())
	}
}

func TestConfigDebugFlagFollowsFactory(t *testing.T) {
	off := NewConfig(testFactory(), counterState{})
	defer off.Close()
	if off.Debug() {
		t.Error("expected debug off")
	}

	on := NewConfig(testFactory(WithDebug(true)), counterState{})
	defer on.Close()
	if !on.Debug() {
		t.Error("expected debug on")
	}
}

func TestConfigParentContextCancelsOwner(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	cfg := NewConfig(testFactory(), counterState{}, WithContext(parent))

	cancel()
	select {
	case <-cfg.Scope().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("owner scope did not follow parent context")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	cfg := NewConfig(testFactory(), counterState{})
	cfg.Close()
	cfg.Close()
}
