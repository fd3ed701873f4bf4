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

// defaultLocalQueueCapacity bounds a worker's local deque before pushes spill
// into the injector.
const defaultLocalQueueCapacity = 256

// LocalQueue is a single-consumer, multi-producer bounded deque owned by one
// worker. The owner (the worker itself, while running a task) pops and
// pushes from the "back" end for LIFO locality; any other goroutine pushes
// to the "front" end, so that distinct remote pushes drain in the FIFO order
// they arrived once the owner's own backlog is exhausted. It is realized as
// a fixed-capacity ring buffer over a plain slice, guarded by a mutex rather
// than built lock-free, since contention is bounded by a single owner plus
// occasional remote pushes.
type LocalQueue[T TaskCell] struct {
	mu    sync.Mutex
	buf   []T
	head  int
	size  int
	spill func(T)
}

// NewLocalQueue creates a local queue with room for capacity task cells
// before overflow. Cells that would overflow the deque are instead handed to
// spill, which is expected to push them onto a shared injector (the level-
// appropriate one, for a multilevel queue).
func NewLocalQueue[T TaskCell](capacity int, spill func(T)) *LocalQueue[T] {
	if capacity <= 0 {
		capacity = defaultLocalQueueCapacity
	}
	return &LocalQueue[T]{
		buf:   make([]T, capacity),
		spill: spill,
	}
}

func (q *LocalQueue[T]) index(i int) int {
	return (q.head + i) % len(q.buf)
}

// PushOwner pushes cell onto the back of the deque, as done by the owning
// worker while executing a task (in-task local spawn). On overflow it spills
// to the injector and never blocks.
func (q *LocalQueue[T]) PushOwner(cell T) {
	q.mu.Lock()
	if q.size >= len(q.buf) {
		q.mu.Unlock()
		q.spill(cell)
		return
	}
	q.buf[q.index(q.size)] = cell
	q.size++
	q.mu.Unlock()
}

// PushRemote pushes cell onto the front of the deque, for a goroutine other
// than the owner. On overflow it spills to the injector and never blocks.
func (q *LocalQueue[T]) PushRemote(cell T) {
	q.mu.Lock()
	if q.size >= len(q.buf) {
		q.mu.Unlock()
		q.spill(cell)
		return
	}
	q.head = (q.head - 1 + len(q.buf)) % len(q.buf)
	q.buf[q.head] = cell
	q.size++
	q.mu.Unlock()
}

// Pop removes and returns the back-most task cell, i.e. the owner's own most
// recently pushed cell if any remain, otherwise the oldest remaining
// remote-pushed cell. Only the owning worker may call this.
func (q *LocalQueue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size == 0 {
		var zero T
		return zero, false
	}
	q.size--
	cell := q.buf[q.index(q.size)]
	var zero T
	q.buf[q.index(q.size)] = zero
	return cell, true
}

// Empty reports whether the deque currently holds no task cells.
func (q *LocalQueue[T]) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size == 0
}

// Len returns the number of task cells currently queued locally.
func (q *LocalQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}
