package events

import (
	"errors"
	"sync"
)

// ///////////////////////////////////////////////
// Errors
// ///////////////////////////////////////////////

var (
	// ErrReceiverClosed is returned by [Sender.Send] once the consumer has
	// stopped receiving. Producers treat it as a normal shutdown race.
	ErrReceiverClosed = errors.New("events: receiver closed")

	// ErrSenderReleased is returned by [Sender.Send] after [Sender.Release].
	ErrSenderReleased = errors.New("events: sender released")
)

// ///////////////////////////////////////////////
// Queue
// ///////////////////////////////////////////////

// Queue is an unbounded multi-producer, single-consumer FIFO.
//
// Producers obtain a [Sender] each and never block on the consumer. The queue
// closes when the last sender is released; the consumer then drains what is
// left and [Queue.Recv] reports closure. A queue that never had a sender
// attached does not close.
type Queue struct {
	mu   sync.Mutex
	cond *sync.Cond

	// items holds pending events in arrival order; head indexes the oldest.
	items []Event
	head  int

	// senders counts live [Sender] handles.
	senders int
	// closed is set when senders drops to zero.
	closed bool
	// recvClosed is set by [Queue.CloseReceiver].
	recvClosed bool
}

// NewQueue returns an empty queue with no senders.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Sender attaches a new producer handle. Senders attached after the queue
// has closed are born released.
func (q *Queue) Sender() *Sender {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := &Sender{q: q}
	if q.closed {
		s.released = true
		return s
	}
	q.senders++
	return s
}

// Recv blocks until an event is available and returns it. The boolean is
// false once the queue is closed and drained, or the receiver was closed.
func (q *Queue) Recv() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.head == len(q.items) && !q.closed && !q.recvClosed {
		q.cond.Wait()
	}
	if q.recvClosed || q.head == len(q.items) {
		return nil, false
	}

	ev := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return ev, true
}

// CloseReceiver drops any pending events and makes further sends fail with
// [ErrReceiverClosed]. A blocked [Queue.Recv] returns immediately.
func (q *Queue) CloseReceiver() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.recvClosed = true
	q.items = nil
	q.head = 0
	q.cond.Broadcast()
}

// Len returns the number of events waiting to be received.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Closed reports whether every sender has been released.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *Queue) push(ev Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.recvClosed {
		return ErrReceiverClosed
	}
	q.items = append(q.items, ev)
	q.cond.Signal()
	return nil
}

func (q *Queue) release() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.senders--
	if q.senders == 0 {
		q.closed = true
		q.cond.Broadcast()
	}
}

// ///////////////////////////////////////////////
// Sender
// ///////////////////////////////////////////////

// Sender is one producer's handle on a [Queue]. It is safe for concurrent use.
type Sender struct {
	q *Queue

	mu       sync.Mutex
	released bool
}

// Send appends ev to the queue without blocking.
func (s *Sender) Send(ev Event) error {
	s.mu.Lock()
	released := s.released
	s.mu.Unlock()
	if released {
		return ErrSenderReleased
	}
	return s.q.push(ev)
}

// Release detaches the handle. Releasing the last sender closes the queue.
// Calling Release more than once is a no-op.
func (s *Sender) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.mu.Unlock()
	s.q.release()
}
