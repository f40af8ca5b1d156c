package statefold

import (
	"context"
	"errors"
)

// ExecutionPolicy is the outcome of the pre-execution hook supplied by
// the factory. It exists so tests and mocks can freeze or skip
// asynchronous work without touching call sites.
type ExecutionPolicy int

const (
	// PolicyProceed runs the execution normally
	PolicyProceed ExecutionPolicy = iota
	// PolicyFreezeLoading commits the Loading state and never launches
	// the source, freezing the execution for deterministic tests
	PolicyFreezeLoading
	// PolicySkip performs no state change and no launch
	PolicySkip
)

type executeSettings[S, T any] struct {
	retain func(S) Async[T]
	meta   func(T) any
}

// ExecuteOption configures a single Execute or ExecuteStream call
type ExecuteOption[S, T any] func(*executeSettings[S, T])

// WithRetain supplies the selector locating the previous Async value
// in state. Its current value is retained through the Loading and Fail
// states, so a refresh can keep showing stale data.
func WithRetain[S, T any](sel func(S) Async[T]) ExecuteOption[S, T] {
	return func(es *executeSettings[S, T]) { es.retain = sel }
}

// WithMetadata derives opaque metadata from the result, attached to the
// Success value.
func WithMetadata[S, T any](fn func(T) any) ExecuteOption[S, T] {
	return func(es *executeSettings[S, T]) { es.meta = fn }
}

// Execute drives a deferred computation through the store: Loading is
// committed immediately, then the source runs under the owner's scope
// and its outcome is folded back in as Success or Fail. Cancellation
// changes no state. Every transition goes through the same serialized
// Set path as manual reducers, so async results never interleave
// incoherently with them.
//
// Errors from the source never propagate to the caller; they are only
// visible as the Fail variant in state.
func Execute[S, T any](cfg *Config[S], source func(context.Context) (T, error), fold func(S, Async[T]) S, opts ...ExecuteOption[S, T]) {
	var settings executeSettings[S, T]
	for _, opt := range opts {
		opt(&settings)
	}

	switch cfg.factory.policy() {
	case PolicySkip:
		return
	case PolicyFreezeLoading:
		cfg.store.Set(loadingReducer(fold, settings.retain))
		return
	}

	cfg.store.Set(loadingReducer(fold, settings.retain))
	cfg.scope.Launch(func(ctx context.Context) {
		value, err := source(ctx)
		switch {
		case err != nil && isCancellation(ctx, err):
			// Cancellation is not a failure; leave state untouched.
		case err != nil:
			cfg.store.Set(func(s S) S {
				return fold(s, FailRetaining(err, retained(s, settings.retain)))
			})
		default:
			result := Success(value)
			if settings.meta != nil {
				result = SuccessMeta(value, settings.meta(value))
			}
			cfg.store.Set(func(s S) S { return fold(s, result) })
		}
	})
}

// ExecuteStream drives a value stream through the store: Loading is
// committed exactly once at start, then every element the source emits
// becomes an independent Success state. A non-nil return folds in as
// Fail; a nil return ends the stream quietly; cancellation changes no
// state.
func ExecuteStream[S, T any](cfg *Config[S], source func(ctx context.Context, emit func(T)) error, fold func(S, Async[T]) S, opts ...ExecuteOption[S, T]) {
	var settings executeSettings[S, T]
	for _, opt := range opts {
		opt(&settings)
	}

	switch cfg.factory.policy() {
	case PolicySkip:
		return
	case PolicyFreezeLoading:
		cfg.store.Set(loadingReducer(fold, settings.retain))
		return
	}

	cfg.store.Set(loadingReducer(fold, settings.retain))
	cfg.scope.Launch(func(ctx context.Context) {
		err := source(ctx, func(value T) {
			result := Success(value)
			if settings.meta != nil {
				result = SuccessMeta(value, settings.meta(value))
			}
			cfg.store.Set(func(s S) S { return fold(s, result) })
		})
		if err != nil && !isCancellation(ctx, err) {
			cfg.store.Set(func(s S) S {
				return fold(s, FailRetaining(err, retained(s, settings.retain)))
			})
		}
	})
}

func loadingReducer[S, T any](fold func(S, Async[T]) S, retain func(S) Async[T]) func(S) S {
	return func(s S) S {
		return fold(s, LoadingRetaining(retained(s, retain)))
	}
}

func retained[S, T any](s S, retain func(S) Async[T]) Async[T] {
	if retain == nil {
		return Uninitialized[T]()
	}
	return retain(s)
}

func isCancellation(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil
}
