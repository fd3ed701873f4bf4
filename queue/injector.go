/**
 * Copyright (c) 2019, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package queue

import "sync"

// injectorNode is an intrusive singly-linked list node, the same footprint
// trick workerPoolTaskQueue uses, generalized with a generic wrapper since a
// TaskCell here is not required to carry its own "next" pointer.
type injectorNode[T TaskCell] struct {
	cell T
	next *injectorNode[T]
}

// Injector is the process-wide multi-producer multi-consumer FIFO every
// worker can draw from, plus a sleep registry workers park on when it is
// empty. Its lifecycle matches the pool: Close is the shutdown signal.
type Injector[T TaskCell] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	head   *injectorNode[T]
	tail   *injectorNode[T]
	size   int
	parked int
	closed bool
}

// NewInjector creates an empty, open injector.
func NewInjector[T TaskCell]() *Injector[T] {
	q := &Injector[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends cell to the tail of the queue. If the injector is closed, the
// cell is dropped and Push returns false. If at least one worker is parked
// in PopOrSleep, one is signalled.
func (q *Injector[T]) Push(cell T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}

	n := &injectorNode[T]{cell: cell}
	if q.tail == nil {
		q.head, q.tail = n, n
	} else {
		q.tail.next = n
		q.tail = n
	}
	q.size++

	shouldSignal := q.parked > 0
	q.mu.Unlock()

	if shouldSignal {
		q.cond.Signal()
	}
	return true
}

// popLocked removes and returns the head of the queue. Caller must hold mu.
func (q *Injector[T]) popLocked() (T, bool) {
	var zero T
	if q.head == nil {
		return zero, false
	}
	n := q.head
	q.head = n.next
	if q.head == nil {
		q.tail = nil
	}
	n.next = nil
	q.size--
	return n.cell, true
}

// TryPop removes and returns the head of the queue without blocking.
func (q *Injector[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// PopOrSleep removes and returns the head of the queue, blocking the caller
// if the queue is empty until either a Push signals it or Close is called.
// It returns false once the injector is closed and drained.
func (q *Injector[T]) PopOrSleep() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if cell, ok := q.popLocked(); ok {
			return cell, true
		}
		if q.closed {
			var zero T
			return zero, false
		}
		q.parked++
		q.cond.Wait()
		q.parked--
	}
}

// Close marks the injector closed and wakes every parked worker. Subsequent
// Push calls are no-ops; subsequent pops drain whatever remains and then
// return false forever after.
func (q *Injector[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Empty reports whether the queue currently holds no task cells.
func (q *Injector[T]) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.head == nil
}

// Len reports the number of task cells currently queued, for debug
// introspection (see pool.Stats).
func (q *Injector[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Closed reports whether Close has been called.
func (q *Injector[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
