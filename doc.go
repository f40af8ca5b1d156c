// Package statefold provides a serialized state-management core: one
// immutable state value per owner, mutated only through ordered pure
// reducers, observed through selective, deduplicated, lifecycle-bound
// subscriptions.
//
// # Overview
//
// statefold organizes code around four core concepts:
//
//  1. Store: serializes every mutation and read against one state value
//  2. Async: a tagged value for in-flight / succeeded / failed work
//  3. Subscriptions: projected, deduplicated delivery of state changes
//  4. Config: the per-owner bundle of store, cancellation scope and debug flag
//
// # Basic Usage
//
// Create a factory once, then one Config per owner:
//
//	type CounterState struct {
//	    Count int
//	}
//
//	factory := statefold.NewFactory()
//	cfg := statefold.NewConfig(factory, CounterState{})
//	defer cfg.Close()
//
// Mutate through reducers; they are applied later, in enqueue order,
// never on the calling goroutine:
//
//	cfg.Set(func(s CounterState) CounterState {
//	    s.Count++
//	    return s
//	})
//
// Read at a consistent queue position:
//
//	cfg.Get(func(s CounterState) {
//	    fmt.Println(s.Count)
//	})
//
// # Subscriptions
//
// Subscribers receive the current state first, then every distinct
// change:
//
//	sub := statefold.OnEach(cfg, func(ctx context.Context, s CounterState) {
//	    render(ctx, s)
//	})
//	defer sub.Cancel()
//
// Project fields to narrow what counts as a change:
//
//	statefold.OnEach1(cfg, "count", func(s CounterState) int { return s.Count },
//	    func(ctx context.Context, count int) {
//	        fmt.Println("count is now", count)
//	    })
//
// Delivery can be gated by an external lifecycle and deduplicated per
// subscription id:
//
//	gate := statefold.NewManualGate(statefold.GateActive)
//	statefold.OnEach1(cfg, "count", sel, action,
//	    statefold.WithGate(gate),
//	    statefold.WithUnique(),
//	)
//
// While an action for a value is still running and a newer value
// arrives, the older invocation's context is cancelled first: the
// action always operates on the freshest value and never queues a
// backlog.
//
// # Asynchronous Work
//
// Async work folds into state through the same serialized path as
// manual reducers, as a Loading then Success or Fail progression:
//
//	type UserState struct {
//	    User statefold.Async[User]
//	}
//
//	statefold.Execute(cfg,
//	    func(ctx context.Context) (User, error) {
//	        return client.FetchUser(ctx)
//	    },
//	    func(s UserState, a statefold.Async[User]) UserState {
//	        s.User = a
//	        return s
//	    },
//	    statefold.WithRetain(func(s UserState) statefold.Async[User] { return s.User }),
//	)
//
// Errors from the source never reach the caller; they appear only as
// the Fail variant in state. Cancellation changes no state at all.
//
// # Debug Validation
//
// With WithDebug(true) on the factory, every reducer is run twice and
// the outputs compared (impure reducers panic naming the differing
// field), the initial state is round-tripped through the configured
// codec (non-restorable state panics), and state fields are checked
// for mutable container types. None of this code runs in non-debug
// configurations.
//
// # Thread Safety
//
// All operations are safe for concurrent use:
//   - Set and Get may be called from any goroutine; the store is the
//     single serialization point
//   - Subscriptions run on their own goroutines under their owner's scope
//   - Cancelling a scope tears down everything launched under it and
//     returns only after it has exited
package statefold
