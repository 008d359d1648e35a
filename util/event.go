package util

import (
	"sync"
)

// Event is a one-shot notification that can be waited on or selected.
type Event struct {
	once sync.Once
	c    chan struct{}
}

func NewEvent() *Event {
	return &Event{
		c: make(chan struct{}),
	}
}

// Notify wakes all waiters. Subsequent calls do nothing.
func (e *Event) Notify() {
	e.once.Do(func() { close(e.c) })
}

// Done returns a channel closed once the event is notified.
func (e *Event) Done() <-chan struct{} {
	return e.c
}

func (e *Event) HasBeenNotified() bool {
	select {
	case <-e.c:
		return true
	default:
		return false
	}
}
