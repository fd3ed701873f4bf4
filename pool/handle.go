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

package pool

import "github.com/botobag/yatp/queue"

// Remote lets any goroutine, whether or not it owns a worker slot, spawn
// tasks into the pool: any thread may inject, independent of whether it
// owns a worker slot.
type Remote[T queue.TaskCell] struct {
	core *queueCore[T]
}

// Spawn injects cell into the shared queue. It is a no-op once the pool has
// begun shutting down.
func (r Remote[T]) Spawn(cell T) {
	r.core.spawn(cell)
}

// SpawnNew builds a task cell from w, assigning it a fresh, pool-unique
// TaskID, and injects it into the shared queue. Use this instead of Spawn
// when the caller has no reason to pick the cell's Extras itself.
func (r Remote[T]) SpawnNew(w queue.WithExtras[T]) {
	r.Spawn(w.WithExtras(func() queue.Extras {
		return queue.Extras{TaskID: r.core.allocTaskID()}
	}))
}

// WeakRemote returns a weak handle that does not, by itself, keep the pool
// from being considered shut down.
func (r Remote[T]) WeakRemote() WeakRemote[T] {
	return WeakRemote[T]{core: r.core}
}

// WeakRemote is a back-reference to a pool that must not prevent the pool
// from shutting down (for example, the reference a parked future keeps in
// its waker so it can re-spawn itself after being woken from outside any
// worker). Go has no weak pointers; this is realized as the pool's shared
// core behind the core's own shutdown flag: Upgrade reports failure once
// the pool has shut down even though the underlying allocation is not
// actually collected until nothing else references it.
type WeakRemote[T queue.TaskCell] struct {
	core *queueCore[T]
}

// Upgrade returns a usable Remote and true if the pool has not yet shut
// down, or the zero Remote and false otherwise.
func (w WeakRemote[T]) Upgrade() (Remote[T], bool) {
	if w.core == nil || w.core.isShutdown() {
		return Remote[T]{}, false
	}
	return Remote[T]{core: w.core}, true
}

// AsCorePtr returns an opaque, comparable identity for the pool this handle
// refers to, used by the future runner to tell whether a wake-up fired for
// the same pool the calling worker currently belongs to.
func (w WeakRemote[T]) AsCorePtr() *queueCore[T] {
	return w.core
}

// Local is the handle a worker goroutine owns for its entire lifetime: its
// own local queue, plus the ability to fall back to the shared queue and to
// obtain Remote/WeakRemote handles to pass along to tasks it runs.
type Local[T queue.TaskCell] struct {
	id       int
	consumer queue.Consumer[T]
	core     *queueCore[T]

	needPreemptOverride *bool
}

// NewLocal wraps a worker's id, its Consumer view over the queue, and the
// pool's shared core into a Local handle.
func NewLocal[T queue.TaskCell](id int, consumer queue.Consumer[T], core *queueCore[T]) *Local[T] {
	return &Local[T]{id: id, consumer: consumer, core: core}
}

// ID returns this worker's index, stable for its lifetime.
func (l *Local[T]) ID() int {
	return l.id
}

// Spawn pushes cell onto this worker's own local queue, for best locality
// when a running task spawns more work it expects to run soon after.
func (l *Local[T]) Spawn(cell T) {
	l.core.spawnLocal(l.id, cell)
}

// SpawnNew builds a task cell from w, assigning it a fresh, pool-unique
// TaskID, and pushes it onto this worker's own local queue.
func (l *Local[T]) SpawnNew(w queue.WithExtras[T]) {
	l.Spawn(w.WithExtras(func() queue.Extras {
		return queue.Extras{TaskID: l.core.allocTaskID()}
	}))
}

// SpawnRemote pushes cell onto the shared queue, bypassing this worker's
// local queue. Used when a task explicitly asks to be rescheduled fairly
// rather than rerun with this worker's locality bias.
func (l *Local[T]) SpawnRemote(cell T) {
	l.core.spawn(cell)
}

// Pop removes and returns a task cell from this worker's own local queue
// only. It never blocks and never consults the shared queue.
func (l *Local[T]) Pop() (queue.Pop[T], bool) {
	return l.consumer.PopLocal()
}

// PopOrSleep removes and returns a task cell, checking the local queue
// first and then the shared queue, blocking this worker if both are empty
// until work arrives or the pool shuts down.
func (l *Local[T]) PopOrSleep() (queue.Pop[T], bool) {
	return l.consumer.PopOrSleep()
}

// NeedPreempt reports whether other runnable work is waiting that the task
// currently being polled should yield for. Overridable for tests via
// SetNeedPreemptForTesting, a deterministic hook for exercising preemption
// without racing real queue contention.
func (l *Local[T]) NeedPreempt() bool {
	if l.needPreemptOverride != nil {
		return *l.needPreemptOverride
	}
	return l.consumer.NeedPreempt()
}

// SetNeedPreemptForTesting forces NeedPreempt's return value, or restores
// the real queue-backed behavior if override is nil.
func (l *Local[T]) SetNeedPreemptForTesting(override *bool) {
	l.needPreemptOverride = override
}

// WeakRemote returns a weak back-reference to this worker's pool, suitable
// for stashing in a waker that must outlive the worker's current poll.
func (l *Local[T]) WeakRemote() WeakRemote[T] {
	return WeakRemote[T]{core: l.core}
}

// CorePtr returns the same opaque pool identity WeakRemote.AsCorePtr does,
// used to test whether this Local belongs to the same pool as a given
// WeakRemote without upgrading it.
func (l *Local[T]) CorePtr() *queueCore[T] {
	return l.core
}

// IsShutdown reports whether this worker's pool has begun shutting down.
func (l *Local[T]) IsShutdown() bool {
	return l.core.isShutdown()
}
