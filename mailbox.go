package statefold

import "sync"

// mailbox is an unbounded FIFO between the store's loop and a single
// subscriber. Push never blocks the producer; Next blocks the consumer
// until a value arrives or the mailbox closes. Delivery order is
// arrival order.
type mailbox[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []T
	closed bool
}

func newMailbox[T any]() *mailbox[T] {
	m := &mailbox[T]{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *mailbox[T]) Push(v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.queue = append(m.queue, v)
	m.cond.Signal()
}

// Next returns the next value in arrival order. It returns false once
// the mailbox has been closed; pending values are discarded at close,
// since a closed mailbox means delivery has been cancelled.
func (m *mailbox[T]) Next() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.queue) == 0 && !m.closed {
		m.cond.Wait()
	}
	if m.closed {
		var zero T
		return zero, false
	}
	v := m.queue[0]
	m.queue = m.queue[1:]
	return v, true
}

func (m *mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.queue = nil
	m.cond.Broadcast()
}
