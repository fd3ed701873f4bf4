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

// Package future adapts concurrent/future's Future/Waker/PollResult
// contract into a task cell the scheduler in pool and queue can run: the
// NOTIFIED/POLLING/IDLE/COMPLETED state machine that decides when a task is
// safe to poll again and where a wake-up should route it.
package future

import (
	"sync/atomic"

	"github.com/botobag/yatp/concurrent/future"
	"github.com/botobag/yatp/pool"
	"github.com/botobag/yatp/queue"
)

// Task statuses. A task is NOTIFIED when created or woken, meaning it is
// ready to be polled. The runner marks it POLLING while Poll is running.
// When Poll returns pending, the runner tries to move it to IDLE; if a
// wake-up raced it back to NOTIFIED first, the runner repolls instead.
const (
	notified uint32 = 1
	idle     uint32 = 2
	polling  uint32 = 3
	completed uint32 = 4
)

// task is the shared, reference-counted state behind a TaskCell. Its
// future and extras fields are mutated only by whichever goroutine
// currently holds it in the POLLING state, the same single-owner invariant
// concurrent/future's callers rely on instead of a mutex.
type task struct {
	status atomic.Uint32
	fut    future.Future
	extras queue.Extras
	remote atomic.Pointer[pool.WeakRemote[TaskCell]]
}

// TaskCell is a future-backed unit of work. It implements queue.TaskCell so
// it can be carried by an Injector, a LocalQueue, or a multilevel queue.
type TaskCell struct {
	t *task
}

// MutExtras implements queue.TaskCell.
func (c TaskCell) MutExtras() *queue.Extras {
	return &c.t.extras
}

// spawner adapts a future.Future into queue.WithExtras, so that call sites
// building a task cell for a queue can supply extras lazily at spawn time
// (the task id, in particular, is usually only known once the cell is about
// to be injected).
type spawner struct {
	fut future.Future
}

// Wrap prepares fut to be turned into a TaskCell once extras are supplied.
func Wrap(fut future.Future) queue.WithExtras[TaskCell] {
	return spawner{fut: fut}
}

// WithExtras implements queue.WithExtras.
func (s spawner) WithExtras(extrasFn queue.ExtrasFunc) TaskCell {
	return New(s.fut, extrasFn())
}

// New creates a TaskCell ready to be polled immediately.
func New(fut future.Future, extras queue.Extras) TaskCell {
	t := &task{fut: fut, extras: extras}
	t.status.Store(notified)
	return TaskCell{t: t}
}
