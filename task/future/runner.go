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
	"go.uber.org/zap"

	"github.com/botobag/yatp/concurrent/future"
	"github.com/botobag/yatp/internal/glocal"
	"github.com/botobag/yatp/pool"
)

// defaultRepollLimit is the number of times Runner re-polls a task in place,
// immediately after it was woken while still POLLING, before it gives up its
// slot back to the queue if NeedPreempt reports other waiting work. When
// NeedPreempt reports none, re-polling in place continues past this limit.
const defaultRepollLimit = 5

// Runner drives future.Future task cells: Poll is called repeatedly while
// the future keeps waking itself before returning. Once RepollLimit re-polls
// have run (or the future asked to reschedule) and NeedPreempt reports other
// waiting work, the task is handed back to the queue; otherwise Handle
// returns when the future finishes or genuinely needs to wait.
type Runner struct {
	// RepollLimit overrides defaultRepollLimit when non-zero.
	RepollLimit int

	// Logger receives a message when Handle recovers a panic from a task's
	// Poll method. Defaults to a no-op logger.
	Logger *zap.Logger
}

// NewRunnerBuilder returns a pool.RunnerBuilder[TaskCell] that builds a
// fresh Runner per worker, so RepollLimit/Logger are shared configuration
// but no mutable state crosses goroutines.
func NewRunnerBuilder(repollLimit int, logger *zap.Logger) pool.RunnerBuilder[TaskCell] {
	return pool.RunnerBuilderFunc[TaskCell](func() pool.Runner[TaskCell] {
		return &Runner{RepollLimit: repollLimit, Logger: logger}
	})
}

func (r *Runner) repollLimit() int {
	if r.RepollLimit > 0 {
		return r.RepollLimit
	}
	return defaultRepollLimit
}

// Start implements pool.Runner. The future flavor needs no per-worker setup.
func (r *Runner) Start(local *pool.Local[TaskCell]) {}

// Pause implements pool.Runner.
func (r *Runner) Pause(local *pool.Local[TaskCell]) bool { return true }

// Resume implements pool.Runner.
func (r *Runner) Resume(local *pool.Local[TaskCell]) {}

// End implements pool.Runner.
func (r *Runner) End(local *pool.Local[TaskCell]) {}

// Handle polls cell's future until it either completes or genuinely needs
// to wait for a later wake-up, recovering in place from any panic the
// future raises so a single misbehaving task cannot take down the worker
// goroutine.
func (r *Runner) Handle(local *pool.Local[TaskCell], cell TaskCell) (finished bool) {
	glocal.Enter(local)
	defer glocal.Leave()

	t := cell.t

	defer func() {
		if rec := recover(); rec != nil {
			t.status.Store(completed)
			if r.Logger != nil {
				r.Logger.Sugar().Errorw("future task panicked; marking completed", "panic", rec)
			}
			finished = true
		}
	}()

	var needReschedule bool
	waker := &taskWaker{t: t, needReschedule: &needReschedule}

	repollTimes := 0
	for {
		t.status.Store(polling)

		result, err := t.fut.Poll(waker)
		if err != nil || result != future.PollResultPending {
			t.status.Store(completed)
			return true
		}

		if t.remote.Load() == nil {
			wr := local.WeakRemote()
			t.remote.Store(&wr)
		}

		if t.status.CompareAndSwap(polling, idle) {
			return false
		}

		// The only other transition possible out of POLLING is to NOTIFIED,
		// set by a wake-up that raced this very poll.
		wantReschedule := needReschedule
		needReschedule = false

		if (repollTimes >= r.repollLimit() || wantReschedule) && local.NeedPreempt() {
			wakeTask(t, wantReschedule)
			return false
		}
		repollTimes++
	}
}
