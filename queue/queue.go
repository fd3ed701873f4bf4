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

import "time"

// RootQueue is implemented by whichever queue flavor (single-level or
// multilevel) backs a pool. It is the shared, process-wide side that any
// thread can push into.
type RootQueue[T TaskCell] interface {
	// Inject pushes cell so that any worker may eventually pick it up. It
	// returns false if the queue has already been closed, in which case
	// cell is dropped.
	Inject(cell T) bool

	// Close shuts the queue down: subsequent Inject calls are no-ops and
	// every worker parked in a Consumer's PopOrSleep is woken.
	Close()

	// Empty reports whether every sub-queue is currently empty.
	Empty() bool
}

// Consumer is the per-worker view over a RootQueue: one local queue plus
// whatever routing a particular queue flavor needs to pick among its
// sub-queues.
type Consumer[T TaskCell] interface {
	// PushLocal pushes cell onto this worker's own local queue for best
	// locality, spilling to the root queue on overflow. Used for in-task
	// spawns (Local.Spawn).
	PushLocal(cell T)

	// PopLocal drains only this worker's own local queue; it never blocks
	// and never looks at the shared root queue.
	PopLocal() (Pop[T], bool)

	// PopOrSleep first drains the local queue, then falls back to the
	// shared root queue, blocking the calling worker if both are empty
	// until work arrives or the queue is closed.
	PopOrSleep() (Pop[T], bool)

	// NeedPreempt reports whether other runnable work is waiting that
	// would benefit from this worker yielding the task it is currently
	// polling.
	NeedPreempt() bool

	// Finish is called once by the worker immediately after it stops
	// running cell, whether the task completed or was re-queued, passing
	// the wall-clock time spent running it this one episode. Flavors that
	// classify tasks by accumulated running time (the multilevel queue) use
	// this to update cell's extras and their own per-level bookkeeping; the
	// single-level queue ignores it.
	Finish(cell T, elapsed time.Duration)
}

// LevelStats is implemented by RootQueue flavors that classify tasks into
// priority levels (the multilevel queue), letting a caller snapshot the
// adaptive admission chance and per-level backlog for debug introspection
// without reaching into the flavor's internals. RootQueue implementations
// that do not classify by level (the single-level queue) do not implement
// this interface.
type LevelStats interface {
	// AdjustChance returns the current probability that a poll favors
	// Level1/Level2 over Level0.
	AdjustChance() float64

	// LevelLen returns the number of task cells currently queued at level.
	LevelLen(level Level) int
}

// QueueType selects which queue factory pool.Freeze should use.
type QueueType int

// Enumeration of QueueType.
const (
	// SingleLevel is a plain FIFO injector with per-worker local queues.
	SingleLevel QueueType = iota

	// Multilevel classifies tasks into three elapsed-time based priority
	// levels with adaptive L0 admission. See NewMultilevel.
	Multilevel
)

// Build constructs nLocals Consumers backed by a RootQueue of the requested
// flavor, mirroring the spec's queue factory contract
// `(n_locals) -> (Injector, [LocalQueue])`.
func Build[T TaskCell](qtype QueueType, nLocals int, config MultilevelConfig) (RootQueue[T], []Consumer[T]) {
	switch qtype {
	case Multilevel:
		return NewMultilevel[T](nLocals, config)
	default:
		return NewSingleLevel[T](nLocals)
	}
}
