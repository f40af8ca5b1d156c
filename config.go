package statefold

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Factory is the assembly point that builds one Config per owner. It
// carries process-level settings (debug flag, execution policy, codec,
// logger) and an explicit registry of creation listeners; there is no
// ambient global state.
type Factory struct {
	mu         sync.Mutex
	debug      bool
	policy     func() ExecutionPolicy
	codec      Codec
	logger     *slog.Logger
	fatal      func(error)
	listeners  map[int]func(OwnerInfo)
	listenerID int
}

// OwnerInfo describes a freshly created owner to creation listeners.
type OwnerInfo struct {
	ID        string
	StateType string
}

// FactoryOption configures a Factory
type FactoryOption func(*Factory)

// WithDebug enables the debug validator for every owner the factory
// creates. Debug checks panic on violation; with debug off none of
// that code runs.
func WithDebug(debug bool) FactoryOption {
	return func(f *Factory) { f.debug = debug }
}

// WithPolicy installs the hook consulted before every Execute call.
func WithPolicy(policy func() ExecutionPolicy) FactoryOption {
	return func(f *Factory) { f.policy = policy }
}

// WithCodec replaces the codec used by the debug restorability check.
func WithCodec(codec Codec) FactoryOption {
	return func(f *Factory) { f.codec = codec }
}

// WithLogger replaces the factory's logger.
func WithLogger(logger *slog.Logger) FactoryOption {
	return func(f *Factory) { f.logger = logger }
}

// WithFatalHandler replaces the handler invoked after a reducer panic
// has torn down the owning scope. The default logs at Error level;
// install a handler that re-panics for a process-fatal policy.
func WithFatalHandler(fn func(error)) FactoryOption {
	return func(f *Factory) { f.fatal = fn }
}

// NewFactory creates a factory with optional configuration
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		policy:    func() ExecutionPolicy { return PolicyProceed },
		codec:     JSONCodec{},
		logger:    slog.Default(),
		listeners: make(map[int]func(OwnerInfo)),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.fatal == nil {
		f.fatal = func(err error) {
			// Debug-validator violations stop the program; an ordinary
			// reducer panic tears down only the owner.
			if rp, ok := err.(*ReducerPanicError); ok {
				if pe, ok := rp.Recovered.(*PurityError); ok {
					panic(pe)
				}
			}
			f.logger.Error("owner torn down", "error", err)
		}
	}
	return f
}

// OnCreate registers a listener notified whenever the factory creates
// a new owner. The returned function removes the listener.
func (f *Factory) OnCreate(fn func(OwnerInfo)) (remove func()) {
	f.mu.Lock()
	id := f.listenerID
	f.listenerID++
	f.listeners[id] = fn
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *Factory) notifyCreate(info OwnerInfo) {
	f.mu.Lock()
	listeners := make([]func(OwnerInfo), 0, len(f.listeners))
	for _, fn := range f.listeners {
		listeners = append(listeners, fn)
	}
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(info)
	}
}

// Config is the per-owner bundle: one store, one cancellation scope,
// the debug flag. It is created once per owner and lives exactly as
// long as the owner.
type Config[S any] struct {
	id        string
	stateType string
	debug     bool
	store     *Store[S]
	scope     *Scope
	factory   *Factory
	subs      *subscriptionRegistry
}

// ConfigOption configures owner construction
type ConfigOption func(*configSettings)

type configSettings struct {
	parent context.Context
}

// WithContext roots the owner's scope at parent instead of
// context.Background.
func WithContext(parent context.Context) ConfigOption {
	return func(cs *configSettings) { cs.parent = parent }
}

// NewConfig builds a new owner around initial: its store, its
// cancellation scope, and, in debug mode, the validator wired into the
// store's set path. Registered creation listeners are notified before
// NewConfig returns.
func NewConfig[S any](f *Factory, initial S, opts ...ConfigOption) *Config[S] {
	var settings configSettings
	for _, opt := range opts {
		opt(&settings)
	}

	cfg := &Config[S]{
		id:        uuid.NewString(),
		stateType: fmt.Sprintf("%T", initial),
		debug:     f.debug,
		scope:     NewScope(settings.parent),
		factory:   f,
		subs:      newSubscriptionRegistry(),
	}

	var intercept func(func(S) S) func(S) S
	if f.debug {
		intercept = purityInterceptor[S](cfg.stateType)
		verifyRestorable(f.codec, initial, cfg.stateType)
		go verifyImmutable(initial, cfg.stateType)
	}

	cfg.store = newStore(initial, cfg.stateType, intercept, func(err *ReducerPanicError) {
		// Cancel from a fresh goroutine: the store loop itself runs
		// under the scope, and Cancel waits for it.
		go func() {
			cfg.scope.Cancel()
			f.fatal(err)
		}()
	})
	cfg.scope.Launch(cfg.store.run)

	f.notifyCreate(OwnerInfo{ID: cfg.id, StateType: cfg.stateType})
	return cfg
}

// ID returns the owner's unique id
func (c *Config[S]) ID() string { return c.id }

// Debug reports whether the debug validator is active for this owner
func (c *Config[S]) Debug() bool { return c.debug }

// Scope returns the owner's cancellation scope
func (c *Config[S]) Scope() *Scope { return c.scope }

// Store returns the owner's state store
func (c *Config[S]) Store() *Store[S] { return c.store }

// Set enqueues a reducer on the owner's store
func (c *Config[S]) Set(reducer func(S) S) { c.store.Set(reducer) }

// Get enqueues an ordered read on the owner's store
func (c *Config[S]) Get(fn func(S)) { c.store.Get(fn) }

// State returns the most recently committed state
func (c *Config[S]) State() S { return c.store.State() }

// Close tears the owner down: cancels the scope, which stops the store
// loop, all execution pipelines and all subscriptions. It returns after
// everything has exited.
func (c *Config[S]) Close() {
	c.scope.Cancel()
}

func (c *Config[S]) ownerType() string               { return c.stateType }
func (c *Config[S]) registry() *subscriptionRegistry { return c.subs }

// AnyConfig is the type-erased owner view the router needs for
// cross-owner subscriptions.
type AnyConfig interface {
	ID() string
	Scope() *Scope
	ownerType() string
	registry() *subscriptionRegistry
}

// subscriptionRegistry tracks, per owner, which unique subscription
// ids are active and the last value delivered under each id.
type subscriptionRegistry struct {
	mu     sync.Mutex
	active map[string]struct{}
	last   map[string]any
}

func newSubscriptionRegistry() *subscriptionRegistry {
	return &subscriptionRegistry{
		active: make(map[string]struct{}),
		last:   make(map[string]any),
	}
}

// acquire claims id for an activating unique subscription. Two
// simultaneously active subscriptions with one id is a contract
// violation and panics.
func (r *subscriptionRegistry) acquire(id, owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.active[id]; dup {
		panic(&DuplicateSubscriptionError{ID: id, Owner: owner})
	}
	r.active[id] = struct{}{}
}

func (r *subscriptionRegistry) release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, id)
}

func (r *subscriptionRegistry) lastDelivered(id string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.last[id]
	return v, ok
}

func (r *subscriptionRegistry) recordDelivered(id string, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last[id] = v
}
