package video

import (
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrSendAfterShutdown is returned when an event follows the Shutdown
	// sentinel on a queue.
	ErrSendAfterShutdown = errors.New("send after shutdown")

	// ErrShutdownProtocol is returned when a stage terminates without passing
	// exactly one Shutdown downstream.
	ErrShutdownProtocol = errors.New("shutdown protocol violated")
)

// Queue is a bounded FIFO between two stages. It has a single sender and a
// single receiver, and enforces that Shutdown is the last event sent.
type Queue struct {
	name string
	c    chan Event

	l         sync.Mutex
	shutdowns int
}

func NewQueue(name string, size int) *Queue {
	return &Queue{
		name: name,
		c:    make(chan Event, size),
	}
}

// Send blocks while the queue is full.
func (q *Queue) Send(e Event) error {
	q.l.Lock()
	if q.shutdowns > 0 {
		q.l.Unlock()
		return errors.Wrapf(ErrSendAfterShutdown, "%v event on queue %v", e.Kind, q.name)
	}
	if e.Kind == KindShutdown {
		q.shutdowns++
	}
	q.l.Unlock()

	q.c <- e
	return nil
}

// Recv blocks until an event is available.
func (q *Queue) Recv() Event {
	return <-q.c
}

// Shutdowns returns how many Shutdown events were sent on the queue.
func (q *Queue) Shutdowns() int {
	q.l.Lock()
	defer q.l.Unlock()
	return q.shutdowns
}

func (q *Queue) Len() int {
	return len(q.c)
}

// verifyShutdown checks that the stage feeding q completed the protocol.
func (q *Queue) verifyShutdown() error {
	if n := q.Shutdowns(); n != 1 {
		return errors.Wrapf(ErrShutdownProtocol, "queue %v saw %d shutdown events, want 1", q.name, n)
	}
	return nil
}
