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

package future

import (
	"github.com/botobag/yatp/internal/glocal"
	"github.com/botobag/yatp/pool"
)

// taskWaker is the Waker every poll of a given task cell receives. It is
// cheap to keep around past the end of a single Handle call, since it only
// holds a pointer to the shared task and Go's GC makes manual refcounting
// of that pointer unnecessary.
type taskWaker struct {
	t              *task
	needReschedule *bool
}

// Wake implements future.Waker.
func (w *taskWaker) Wake() error {
	wakeImpl(w.t, false)
	return nil
}

// wakeImpl implements the NOTIFIED/IDLE/POLLING transition a wake-up
// drives: an IDLE task is marked NOTIFIED and handed to wakeTask for
// routing; a POLLING task is just marked NOTIFIED so the runner's own loop
// picks it up after the current Poll call returns; any other status means
// the task already finished or is already NOTIFIED, and the wake is
// dropped.
func wakeImpl(t *task, reschedule bool) {
	for {
		status := t.status.Load()
		switch status {
		case idle:
			if t.status.CompareAndSwap(idle, notified) {
				wakeTask(t, reschedule)
				return
			}
		case polling:
			if t.status.CompareAndSwap(polling, notified) {
				return
			}
		default:
			return
		}
	}
}

// wakeTask decides where a NOTIFIED task cell should be queued: the local
// queue of whichever worker is currently polling the same pool (best
// locality), the shared queue of that same pool if the caller explicitly
// asked to reschedule fairly, or the shared queue of the task's own pool
// reached through its WeakRemote if the wake fired from entirely outside
// any worker's poll loop (e.g. an I/O callback on its own goroutine).
func wakeTask(t *task, reschedule bool) {
	remote := t.remote.Load()
	if remote == nil {
		// wakeTask is only reached once a task has been polled at least once
		// (status can only become IDLE after a poll sets remote), so this
		// would indicate a broken invariant elsewhere.
		panic("future: wakeTask called before task was ever polled")
	}

	cell := TaskCell{t: t}

	current, ok := glocal.Current()
	local, sameGoroutine := current.(*pool.Local[TaskCell])
	outOfPolling := !ok || !sameGoroutine || local.CorePtr() != remote.AsCorePtr()

	if outOfPolling {
		if r, ok := remote.Upgrade(); ok {
			r.Spawn(cell)
		}
		return
	}
	if reschedule {
		local.SpawnRemote(cell)
		return
	}
	local.Spawn(cell)
}
