package statefold

import (
	"context"
	"fmt"
	"reflect"
)

// DeliveryMode governs whether a subscriber is redelivered the current
// value when it (re)activates.
type DeliveryMode int

const (
	// Redeliver is the default: every (re)activation immediately
	// redelivers the current value, then subsequent changes.
	Redeliver DeliveryMode = iota
	// Unique tracks the last value delivered under the subscription's
	// id; reactivation skips redelivering an unchanged value, and no
	// two simultaneously active subscriptions may share the id.
	Unique
)

type subscribeSettings struct {
	mode       DeliveryMode
	gate       LifecycleGate
	customID   string
	subscriber AnyConfig
}

// SubscribeOption configures a subscription
type SubscribeOption func(*subscribeSettings)

// WithUnique selects the Unique delivery mode.
func WithUnique() SubscribeOption {
	return func(ss *subscribeSettings) { ss.mode = Unique }
}

// WithGate binds delivery to an external lifecycle: suspended while
// the gate is inactive, resumed per the delivery mode on reactivation,
// permanently ended on destruction.
func WithGate(gate LifecycleGate) SubscribeOption {
	return func(ss *subscribeSettings) { ss.gate = gate }
}

// WithID appends a caller-supplied discriminator to the subscription
// id, letting two subscriptions over the same fields coexist in Unique
// mode.
func WithID(custom string) SubscribeOption {
	return func(ss *subscribeSettings) { ss.customID = custom }
}

// WithSubscriber makes this a cross-owner subscription: delivery runs
// under the subscriber's scope, and additionally stops if the source
// owner's scope is cancelled. Passing the source owner itself is a
// contract violation and panics.
func WithSubscriber(subscriber AnyConfig) SubscribeOption {
	return func(ss *subscribeSettings) { ss.subscriber = subscriber }
}

// Subscription is the cancellation handle of one subscription.
type Subscription struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// ID returns the subscription's stable id, derived from the source
// owner, the projected field names and the optional discriminator.
func (s *Subscription) ID() string { return s.id }

// Cancel stops future delivery, cancels any in-flight action
// invocation, and returns once the subscription has fully wound down.
// It must not be called from inside the subscription's own action.
func (s *Subscription) Cancel() {
	s.cancel()
	<-s.done
}

// Done is closed when the subscription has fully wound down.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// OnEach subscribes action to every distinct state of the owner. The
// first delivery is always the current state at activation time.
func OnEach[S any](cfg *Config[S], action func(context.Context, S), opts ...SubscribeOption) *Subscription {
	return subscribeProjected(cfg, "*", func(s S) S { return s }, action, opts)
}

// subscribeProjected is the router core shared by OnEach and the
// generated arities: projection, consecutive-duplicate suppression on
// the projected value, delivery-mode policy, lifecycle gating, and
// latest-wins action invocation.
func subscribeProjected[S, P any](cfg *Config[S], fields string, project func(S) P, action func(context.Context, P), opts []SubscribeOption) *Subscription {
	var settings subscribeSettings
	for _, opt := range opts {
		opt(&settings)
	}

	subscriber := AnyConfig(cfg)
	if settings.subscriber != nil {
		if settings.subscriber.ID() == cfg.ID() {
			panic(&SelfSubscriptionError{Owner: cfg.ownerType()})
		}
		subscriber = settings.subscriber
	}

	id := fmt.Sprintf("%s:%s", cfg.ID(), fields)
	if settings.customID != "" {
		id += ":" + settings.customID
	}

	// Start active unless a gate says otherwise. The unique-id claim
	// for an initially active subscription happens synchronously, so a
	// duplicate id is reported at the call site.
	startActive := settings.gate == nil || settings.gate.Phase() == GateActive
	if startActive && settings.mode == Unique {
		cfg.registry().acquire(id, cfg.ownerType())
	}

	ctx, cancel := context.WithCancel(subscriber.Scope().Context())
	sub := &Subscription{id: id, cancel: cancel, done: make(chan struct{})}

	d := &delivery[S, P]{
		source:      cfg,
		settings:    settings,
		id:          id,
		project:     project,
		action:      action,
		startActive: startActive,
	}
	launched := subscriber.Scope().Launch(func(context.Context) {
		defer close(sub.done)
		d.run(ctx)
	})
	if !launched {
		// The subscriber's scope is already cancelled, so no delivery
		// goroutine will ever run. Wind the handle down here: Cancel
		// must still return, and the id claim must not leak.
		if startActive && settings.mode == Unique {
			cfg.registry().release(id)
		}
		cancel()
		close(sub.done)
	}
	return sub
}

// delivery is the per-subscription state machine run on its own
// goroutine.
type delivery[S, P any] struct {
	source      *Config[S]
	settings    subscribeSettings
	id          string
	project     func(S) P
	action      func(context.Context, P)
	startActive bool

	active   bool
	fresh    bool
	mb       *mailbox[S]
	values   chan S
	stopPump chan struct{}

	last    P
	hasLast bool

	actionCancel context.CancelFunc
	actionDone   chan struct{}
}

func (d *delivery[S, P]) run(ctx context.Context) {
	defer d.windDown()

	var phases <-chan GatePhase
	if d.settings.gate == nil {
		d.activate(true)
	} else {
		phases = d.settings.gate.Watch(ctx)
		// Watch reports only transitions after the call; a flip between
		// the subscribe-time phase check and the registration above
		// never reaches the channel, so reconcile against the current
		// phase before entering the loop.
		switch d.settings.gate.Phase() {
		case GateActive:
			d.activate(d.startActive)
		case GateInactive:
			d.releaseUnlaunched()
		case GateDestroyed:
			d.releaseUnlaunched()
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.source.Scope().Done():
			// The source owner is gone; a cross-owner subscription
			// winds itself down even though its own scope lives on.
			return
		case phase, ok := <-phases:
			if !ok {
				phases = nil
				continue
			}
			switch phase {
			case GateActive:
				if !d.active {
					d.activate(false)
				}
			case GateInactive:
				if d.active {
					d.deactivate()
				}
			case GateDestroyed:
				return
			}
		case v, ok := <-d.values:
			if !ok {
				// The source store shut down.
				return
			}
			d.deliver(ctx, v)
		}
	}
}

func (d *delivery[S, P]) activate(preAcquired bool) {
	if d.settings.mode == Unique && !preAcquired {
		d.source.registry().acquire(d.id, d.source.ownerType())
	}
	d.mb = d.source.Store().subscribe()
	d.values = make(chan S)
	d.stopPump = make(chan struct{})
	go pump(d.mb, d.values, d.stopPump)
	d.active = true
	d.fresh = true
}

// releaseUnlaunched frees the id claim made synchronously at the call
// site when the subscription turns out not to activate after all (the
// gate flipped away between the phase check and watch registration).
func (d *delivery[S, P]) releaseUnlaunched() {
	if d.startActive && d.settings.mode == Unique {
		d.source.registry().release(d.id)
		d.startActive = false
	}
}

func (d *delivery[S, P]) deactivate() {
	d.source.Store().unsubscribe(d.mb)
	close(d.stopPump)
	d.mb = nil
	d.values = nil
	d.stopPump = nil
	d.active = false
	if d.settings.mode == Unique {
		d.source.registry().release(d.id)
	}
}

// deliver applies projection, deduplication and delivery-mode policy,
// then invokes the action with latest-wins semantics.
func (d *delivery[S, P]) deliver(ctx context.Context, v S) {
	p := d.project(v)

	if d.fresh {
		d.fresh = false
		if d.settings.mode == Unique {
			if prev, ok := d.source.registry().lastDelivered(d.id); ok && reflect.DeepEqual(prev, p) {
				// This id already delivered an equal value; skip the
				// redelivery but seed the dedup baseline.
				d.last = p
				d.hasLast = true
				return
			}
		}
	} else if d.hasLast && reflect.DeepEqual(d.last, p) {
		return
	}

	d.last = p
	d.hasLast = true
	if d.settings.mode == Unique {
		d.source.registry().recordDelivered(d.id, p)
	}
	d.invoke(ctx, p)
}

// invoke runs the action for p, first cancelling a still-running
// invocation so the action always operates on the freshest value and
// never queues a backlog.
func (d *delivery[S, P]) invoke(ctx context.Context, p P) {
	if d.actionCancel != nil {
		d.actionCancel()
		<-d.actionDone
	}

	actionCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	d.actionCancel = cancel
	d.actionDone = done

	go func() {
		defer close(done)
		d.action(actionCtx, p)
	}()
}

func (d *delivery[S, P]) windDown() {
	if d.active {
		d.deactivate()
	}
	if d.actionCancel != nil {
		d.actionCancel()
		<-d.actionDone
	}
}

// pump moves values from a mailbox to a channel the delivery loop can
// select on. It ends, closing out, when the mailbox closes or stop is
// closed by deactivation.
func pump[T any](mb *mailbox[T], out chan<- T, stop <-chan struct{}) {
	defer close(out)
	for {
		v, ok := mb.Next()
		if !ok {
			return
		}
		select {
		case out <- v:
		case <-stop:
			return
		}
	}
}
