// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

// Package queue provides an unbounded multi-producer single-consumer
// FIFO queue with non-blocking sends and a selectable receive channel.
//
// The pipeline uses one queue per direction between the orchestrator
// and each worker. Unboundedness is deliberate: the render worker is a
// long-running CPU-bound producer and must never stall on a slow
// consumer, and the orchestrator must be able to issue commands without
// suspending mid-reconciliation. A bounded channel would need a
// back-pressure story the pipeline protocol does not have.
//
// Sends never block. Receivers read from [Queue.Out], which is an
// ordinary channel usable in select statements; it is closed after
// [Queue.Close] once all queued values have been delivered.
package queue

import "sync"

// Queue is an unbounded FIFO. The zero value is not usable; construct
// with [New]. Any number of goroutines may Send; exactly one consumer
// should receive from Out.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool

	// wake is a 1-buffered doorbell for the pump goroutine. Send and
	// Close ring it; coalescing is fine because the pump drains the
	// whole backlog each time it wakes.
	wake chan struct{}
	out  chan T
}

// New creates an empty queue and starts its delivery goroutine.
func New[T any]() *Queue[T] {
	q := &Queue[T]{
		wake: make(chan struct{}, 1),
		out:  make(chan T),
	}
	go q.pump()
	return q
}

// Send enqueues v. It never blocks. Returns false when the queue has
// been closed (the value is dropped), true otherwise.
func (q *Queue[T]) Send(v T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, v)
	q.mu.Unlock()
	q.ring()
	return true
}

// Out returns the receive side. Values arrive in send order. The
// channel is closed after Close once the backlog has drained, so a
// receiver observes stream end exactly as with a plain closed channel.
func (q *Queue[T]) Out() <-chan T {
	return q.out
}

// Close marks the queue closed. Queued values are still delivered;
// afterwards Out is closed. Close is idempotent. Sends after Close are
// dropped.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.ring()
}

// Len reports the number of values queued but not yet delivered.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) ring() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// pump moves values from the backlog to the out channel. It blocks on
// the out send (the consumer's pace) and on the doorbell when the
// backlog is empty. Producers never block because they only touch the
// backlog slice under the mutex.
func (q *Queue[T]) pump() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			if q.closed {
				q.mu.Unlock()
				close(q.out)
				return
			}
			q.mu.Unlock()
			<-q.wake
			continue
		}
		v := q.items[0]
		// Clear the slot so delivered values do not pin memory while
		// they wait to be reused.
		var zero T
		q.items[0] = zero
		q.items = q.items[1:]
		if len(q.items) == 0 {
			q.items = nil
		}
		q.mu.Unlock()
		q.out <- v
	}
}
