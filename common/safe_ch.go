package common

import (
	"errors"
	"sync"
)

// SafeCh is a channel wrapper that makes close and write safe to race with
// each other. Bounded senders can use TryWrite together with DropOldest to
// keep the freshest items instead of blocking.
type SafeCh[T any] struct {
	ch     chan T
	closed bool
	m      sync.Mutex
}

func MakeSafeCh[T any](size int) *SafeCh[T] {
	return &SafeCh[T]{
		ch:     make(chan T, size),
		closed: false,
	}
}

func (sch *SafeCh[T]) Close() error {
	sch.m.Lock()
	defer sch.m.Unlock()

	if sch.ch == nil {
		return errors.New("channel not initialized. use MakeSafeCh")
	}

	if sch.closed {
		return errors.New("channel already closed")
	}

	close(sch.ch)
	sch.closed = true

	return nil
}

func (sch *SafeCh[T]) ReadCh() <-chan T {
	if sch.ch == nil {
		sch.ch = make(chan T, 1)
	}

	return sch.ch
}

func (sch *SafeCh[T]) Write(obj T) error {
	sch.m.Lock()
	defer sch.m.Unlock()

	if sch.ch == nil {
		return errors.New("channel not initialized. use MakeSafeCh")
	}

	if sch.closed {
		return errors.New("trying to write to a closed channel")
	}

	sch.ch <- obj

	return nil
}

// TryWrite writes without blocking. It returns false when the channel is full
// or closed, and never panics even if Close races with it.
func (sch *SafeCh[T]) TryWrite(obj T) (bool, error) {
	sch.m.Lock()
	defer sch.m.Unlock()

	if sch.ch == nil {
		return false, errors.New("channel not initialized. use MakeSafeCh")
	}

	if sch.closed {
		return false, errors.New("trying to write to a closed channel")
	}

	select {
	case sch.ch <- obj:
		return true, nil
	default:
		return false, nil
	}
}

// DropOldest discards the oldest buffered item, if any. Combined with
// TryWrite it implements a bounded keep-newest queue.
func (sch *SafeCh[T]) DropOldest() bool {
	sch.m.Lock()
	defer sch.m.Unlock()

	if sch.ch == nil || sch.closed {
		return false
	}

	select {
	case <-sch.ch:
		return true
	default:
		return false
	}
}

func (sch *SafeCh[T]) Len() int {
	sch.m.Lock()
	defer sch.m.Unlock()

	if sch.ch == nil {
		return 0
	}

	return len(sch.ch)
}
