package statefold

import (
	"context"
	"runtime/debug"
	"sync"
)

// request is one unit of work for the store loop. Exactly one of the
// fields is set.
type request[S any] struct {
	reduce func(S) S
	read   func(S)
	attach *mailbox[S]
	detach *mailbox[S]
}

// Store owns one state value and funnels every mutation and read
// through a single consumer goroutine. Requests are applied in strict
// arrival order: no two reducers ever run concurrently against the
// same state, and a read enqueued between two reducers observes
// exactly the state produced by the first of them.
type Store[S any] struct {
	mu      sync.Mutex
	queue   []request[S]
	state   S
	stopped bool

	wake chan struct{}
	subs map[*mailbox[S]]struct{}

	owner     string
	intercept func(func(S) S) func(S) S
	onPanic   func(*ReducerPanicError)
}

// newStore builds a store around initial. intercept, when non-nil,
// wraps every reducer on the consumer goroutine (the debug validator
// hooks in here). onPanic runs after a reducer panic has been
// recovered and the store stopped.
func newStore[S any](initial S, owner string, intercept func(func(S) S) func(S) S, onPanic func(*ReducerPanicError)) *Store[S] {
	return &Store[S]{
		state:     initial,
		wake:      make(chan struct{}, 1),
		subs:      make(map[*mailbox[S]]struct{}),
		owner:     owner,
		intercept: intercept,
		onPanic:   onPanic,
	}
}

// Set enqueues reducer for serialized application. It never blocks and
// never runs the reducer on the caller's goroutine; callers must not
// assume the state has changed by the time Set returns.
func (s *Store[S]) Set(reducer func(S) S) {
	s.enqueue(request[S]{reduce: reducer})
}

// Get enqueues a read. fn is invoked asynchronously, on the store's
// consumer goroutine, with the state as of this request's position in
// the queue: after every Set enqueued before it, before any enqueued
// after it. fn must not block on external work.
func (s *Store[S]) Get(fn func(S)) {
	s.enqueue(request[S]{read: fn})
}

// State returns the most recently committed state. It does not order
// against pending requests; use Get for queue-consistent reads.
func (s *Store[S]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// subscribe registers a mailbox through the queue, so its first value
// is exactly the current state at this request's queue position,
// followed by every subsequent committed state in order.
func (s *Store[S]) subscribe() *mailbox[S] {
	mb := newMailbox[S]()
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		mb.Close()
		return mb
	}
	s.enqueue(request[S]{attach: mb})
	return mb
}

func (s *Store[S]) unsubscribe(mb *mailbox[S]) {
	// Close eagerly so delivery stops immediately; the detach request
	// removes the loop's reference at its turn.
	mb.Close()
	s.enqueue(request[S]{detach: mb})
}

func (s *Store[S]) enqueue(req request[S]) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, req)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// run is the store's consumer loop. It exits when ctx is cancelled or
// a reducer panics; either way the store stops accepting requests and
// all subscriber mailboxes close.
func (s *Store[S]) run(ctx context.Context) {
	defer s.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			req := s.queue[0]
			s.queue = s.queue[1:]
			cur := s.state
			s.mu.Unlock()

			if !s.apply(req, cur) {
				return
			}
		}
	}
}

// apply processes one request against cur. It returns false when a
// reducer panicked and the store must stop.
func (s *Store[S]) apply(req request[S], cur S) (ok bool) {
	switch {
	case req.reduce != nil:
		reducer := req.reduce
		if s.intercept != nil {
			reducer = s.intercept(reducer)
		}

		var next S
		func() {
			defer func() {
				if r := recover(); r != nil {
					ok = false
					s.fail(&ReducerPanicError{
						Owner:     s.owner,
						Recovered: r,
						Stack:     debug.Stack(),
					})
				}
			}()
			next = reducer(cur)
			ok = true
		}()
		if !ok {
			return false
		}

		s.mu.Lock()
		s.state = next
		subs := make([]*mailbox[S], 0, len(s.subs))
		for mb := range s.subs {
			subs = append(subs, mb)
		}
		s.mu.Unlock()

		for _, mb := range subs {
			mb.Push(next)
		}
		return true

	case req.read != nil:
		req.read(cur)
		return true

	case req.attach != nil:
		s.mu.Lock()
		s.subs[req.attach] = struct{}{}
		s.mu.Unlock()
		req.attach.Push(cur)
		return true

	case req.detach != nil:
		s.mu.Lock()
		delete(s.subs, req.detach)
		s.mu.Unlock()
		return true
	}
	return true
}

func (s *Store[S]) fail(err *ReducerPanicError) {
	if s.onPanic != nil {
		s.onPanic(err)
	}
}

func (s *Store[S]) shutdown() {
	s.mu.Lock()
	s.stopped = true
	s.queue = nil
	subs := make([]*mailbox[S], 0, len(s.subs))
	for mb := range s.subs {
		subs = append(subs, mb)
	}
	s.subs = map[*mailbox[S]]struct{}{}
	s.mu.Unlock()

	for _, mb := range subs {
		mb.Close()
	}
}
