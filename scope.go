package statefold

import (
	"context"
	"sync"
)

// Scope is the cancellation scope of one owner. Every goroutine the
// owner spawns (the store loop, execution pipelines, subscription
// delivery) runs under it; Cancel tears all of them down and returns
// only after they have exited.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	wg        sync.WaitGroup
	cancelled bool
}

// NewScope creates a scope rooted at parent. A nil parent means
// context.Background.
func NewScope(parent context.Context) *Scope {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Scope{ctx: ctx, cancel: cancel}
}

// Context returns the scope's context.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Done is closed when the scope has been cancelled.
func (s *Scope) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Launch runs fn on a new goroutine under the scope. After Cancel,
// Launch is a no-op and reports false; callers that must wind
// something down even without a goroutine check the result.
func (s *Scope) Launch(fn func(ctx context.Context)) bool {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return false
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
	return true
}

// Cancel cancels the scope and waits for every launched goroutine to
// exit. It must not be called from within a launched goroutine.
func (s *Scope) Cancel() {
	s.mu.Lock()
	already := s.cancelled
	s.cancelled = true
	s.mu.Unlock()

	s.cancel()
	if !already {
		s.wg.Wait()
	}
}
