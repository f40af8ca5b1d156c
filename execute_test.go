package statefold

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fetchState struct {
	User Async[string]
}

func userKinds(t *testing.T, cfg *Config[fetchState]) (<-chan Async[string], *Subscription) {
	t.Helper()
	got := make(chan Async[string], 16)
	sub := OnEach1(cfg, "user",
		func(s fetchState) Async[string] { return s.User },
		func(_ context.Context, a Async[string]) { got <- a },
	)
	return got, sub
}

func recvAsync(t *testing.T, ch <-chan Async[string], want AsyncKind, what string) Async[string] {
	t.Helper()
	select {
	case a := <-ch:
		if a.Kind() != want {
			t.Fatalf("%s: expected %v, got %v", what, want, a)
		}
		return a
	case <-time.After(2 * time.Second):
		t.Fatalf("%s: nothing delivered", what)
		return Async[string]{}
	}
}

func TestExecuteDrivesLoadingThenSuccess(t *testing.T) {
	cfg := NewConfig(testFactory(), fetchState{})
	defer cfg.Close()

	got, sub := userKinds(t, cfg)
	defer sub.Cancel()
	recvAsync(t, got, KindUninitialized, "initial")

	release := make(chan struct{})
	Execute(cfg,
		func(ctx context.Context) (string, error) {
			<-release
			return "alice", nil
		},
		func(s fetchState, a Async[string]) fetchState {
			s.User = a
			return s
		},
	)

	recvAsync(t, got, KindLoading, "loading committed before completion")
	close(release)
	success := recvAsync(t, got, KindSuccess, "success after completion")
	if v, _ := success.Value(); v != "alice" {
		t.Errorf("expected alice, got %q", v)
	}
}

func TestExecuteDrivesLoadingThenFail(t *testing.T) {
	cfg := NewConfig(testFactory(), fetchState{})
	defer cfg.Close()

	got, sub := userKinds(t, cfg)
	defer sub.Cancel()
	recvAsync(t, got, KindUninitialized, "initial")

	boom := errors.New("boom")
	Execute(cfg,
		func(ctx context.Context) (string, error) {
			return "", boom
		},
		func(s fetchState, a Async[string]) fetchState {
			s.User = a
			return s
		},
	)

	recvAsync(t, got, KindLoading, "loading")
	failed := recvAsync(t, got, KindFail, "fail after error")
	if !errors.Is(failed.Err(), boom) {
		t.Errorf("expected boom, got %v", failed.Err())
	}
}

func TestExecuteRetainsPreviousValue(t *testing.T) {
	cfg := NewConfig(testFactory(), fetchState{})
	defer cfg.Close()

	cfg.Set(func(s fetchState) fetchState {
		s.User = Success("old")
		return s
	})
	flush(t, cfg)

	got, sub := userKinds(t, cfg)
	defer sub.Cancel()
	recvAsync(t, got, KindSuccess, "initial")

	Execute(cfg,
		func(ctx context.Context) (string, error) {
			return "", errors.New("refresh failed")
		},
		func(s fetchState, a Async[string]) fetchState {
			s.User = a
			return s
		},
		WithRetain(func(s fetchState) Async[string] { return s.User }),
	)

	loading := recvAsync(t, got, KindLoading, "loading")
	if v, ok := loading.Value(); !ok || v != "old" {
		t.Errorf("expected loading to retain old, got %v (ok=%v)", v, ok)
	}
	failed := recvAsync(t, got, KindFail, "fail")
	if v, ok := failed.Value(); !ok || v != "old" {
		t.Errorf("expected fail to retain old, got %v (ok=%v)", v, ok)
	}
}

func TestExecuteMetadata(t *testing.T) {
	cfg := NewConfig(testFactory(), fetchState{})
	defer cfg.Close()

	got, sub := userKinds(t, cfg)
	defer sub.Cancel()
	recvAsync(t, got, KindUninitialized, "initial")

	Execute(cfg,
		func(ctx context.Context) (string, error) { return "alice", nil },
		func(s fetchState, a Async[string]) fetchState {
			s.User = a
			return s
		},
		WithMetadata[fetchState](func(v string) any { return len(v) }),
	)

	recvAsync(t, got, KindLoading, "loading")
	success := recvAsync(t, got, KindSuccess, "success")
	if success.Metadata() != 5 {
		t.Errorf("expected metadata 5, got %v", success.Metadata())
	}
}

func TestExecuteCancellationLeavesStateUntouched(t *testing.T) {
	cfg := NewConfig(testFactory(), fetchState{})
	defer cfg.Close()

	got, sub := userKinds(t, cfg)
	defer sub.Cancel()
	recvAsync(t, got, KindUninitialized, "initial")

	Execute(cfg,
		func(ctx context.Context) (string, error) {
			return "", context.Canceled
		},
		func(s fetchState, a Async[string]) fetchState {
			s.User = a
			return s
		},
	)

	recvAsync(t, got, KindLoading, "loading")
	// Cancellation is not a failure; the state stays Loading.
	select {
	case a := <-got:
		t.Fatalf("unexpected state after cancellation: %v", a)
	case <-time.After(100 * time.Millisecond):
	}
	if !cfg.State().User.IsLoading() {
		t.Errorf("expected state to remain loading, got %v", cfg.State().User)
	}
}

func TestExecutePolicySkip(t *testing.T) {
	cfg := NewConfig(testFactory(WithPolicy(func() ExecutionPolicy {
		return PolicySkip
	})), fetchState{})
	defer cfg.Close()

	launched := make(chan struct{}, 1)
	Execute(cfg,
		func(ctx context.Context) (string, error) {
			launched <- struct{}{}
			return "alice", nil
		},
		func(s fetchState, a Async[string]) fetchState {
			s.User = a
			return s
		},
	)
	flush(t, cfg)

	select {
	case <-launched:
		t.Fatal("skipped execution must not launch the source")
	case <-time.After(100 * time.Millisecond):
	}
	if !cfg.State().User.IsUninitialized() {
		t.Errorf("expected untouched state, got %v", cfg.State().User)
	}
}

func TestExecutePolicyFreezeLoading(t *testing.T) {
	cfg := NewConfig(testFactory(WithPolicy(func() ExecutionPolicy {
		return PolicyFreezeLoading
	})), fetchState{})
	defer cfg.Close()

	launched := make(chan struct{}, 1)
	Execute(cfg,
		func(ctx context.Context) (string, error) {
			launched <- struct{}{}
			return "alice", nil
		},
		func(s fetchState, a Async[string]) fetchState {
			s.User = a
			return s
		},
	)
	flush(t, cfg)

	select {
	case <-launched:
		t.Fatal("frozen execution must not launch the source")
	case <-time.After(100 * time.Millisecond):
	}
	if !cfg.State().User.IsLoading() {
		t.Errorf("expected frozen loading state, got %v", cfg.State().User)
	}
}

func TestExecuteStreamEmitsSuccessPerElement(t *testing.T) {
	cfg := NewConfig(testFactory(), fetchState{})
	defer cfg.Close()

	got, sub := userKinds(t, cfg)
	defer sub.Cancel()
	recvAsync(t, got, KindUninitialized, "initial")

	ExecuteStream(cfg,
		func(ctx context.Context, emit func(string)) error {
			emit("a")
			emit("b")
			emit("c")
			return nil
		},
		func(s fetchState, a Async[string]) fetchState {
			s.User = a
			return s
		},
	)

	recvAsync(t, got, KindLoading, "loading exactly once")
	for _, want := range []string{"a", "b", "c"} {
		success := recvAsync(t, got, KindSuccess, "element "+want)
		if v, _ := success.Value(); v != want {
			t.Errorf("expected %q, got %q", want, v)
		}
	}
}

func TestExecuteStreamErrorFoldsToFail(t *testing.T) {
	cfg := NewConfig(testFactory(), fetchState{})
	defer cfg.Close()

	got, sub := userKinds(t, cfg)
	defer sub.Cancel()
	recvAsync(t, got, KindUninitialized, "initial")

	boom := errors.New("stream broke")
	ExecuteStream(cfg,
		func(ctx context.Context, emit func(string)) error {
			emit("a")
			return boom
		},
		func(s fetchState, a Async[string]) fetchState {
			s.User = a
			return s
		},
	)

	recvAsync(t, got, KindLoading, "loading")
	recvAsync(t, got, KindSuccess, "element before error")
	failed := recvAsync(t, got, KindFail, "fail after stream error")
	if !errors.Is(failed.Err(), boom) {
		t.Errorf("expected stream error, got %v", failed.Err())
	}
}

func TestExecuteInterleavesCoherentlyWithManualSets(t *testing.T) {
	type mixed struct {
		Count int
		User  Async[string]
	}
	cfg := NewConfig(testFactory(), mixed{})
	defer cfg.Close()

	release := make(chan struct{})
	Execute(cfg,
		func(ctx context.Context) (string, error) {
			<-release
			return "alice", nil
		},
		func(s mixed, a Async[string]) mixed {
			s.User = a
			return s
		},
	)
	cfg.Set(func(s mixed) mixed {
		s.Count++
		return s
	})
	close(release)

	deadline := time.After(2 * time.Second)
	for {
		s := cfg.State()
		if s.User.IsSuccess() {
			if s.Count != 1 {
				t.Errorf("manual set lost: count %d", s.Count)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("success never arrived, state %+v", s)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
