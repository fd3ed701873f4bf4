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

// Package callback implements the trivial task flavor: a plain function run
// to completion, as opposed to a future polled until it is ready.
package callback

import (
	"go.uber.org/zap"

	"github.com/botobag/yatp/pool"
	"github.com/botobag/yatp/queue"
)

// Func is one step of a callback task. Returning a non-nil Func asks the
// runner to continue with that step, either immediately in place or by
// resubmitting it to the local queue, depending on MaxInplaceSpin.
// Returning nil means the task is done.
type Func func(local *pool.Local[TaskCell]) Func

// cell is the shared state behind a TaskCell, held behind a pointer so that
// copies of TaskCell (as it travels through queues) still share one Extras
// record.
type cell struct {
	f      Func
	extras queue.Extras
}

// TaskCell is a callback-backed unit of work.
type TaskCell struct {
	c *cell
}

// MutExtras implements queue.TaskCell.
func (t TaskCell) MutExtras() *queue.Extras {
	return &t.c.extras
}

// spawner adapts a Func into queue.WithExtras.
type spawner struct {
	f Func
}

// Wrap prepares f to be turned into a TaskCell once extras are supplied.
func Wrap(f Func) queue.WithExtras[TaskCell] {
	return spawner{f: f}
}

// WithExtras implements queue.WithExtras.
func (s spawner) WithExtras(extrasFn queue.ExtrasFunc) TaskCell {
	return New(s.f, extrasFn())
}

// New creates a TaskCell ready to run immediately.
func New(f Func, extras queue.Extras) TaskCell {
	return TaskCell{c: &cell{f: f, extras: extras}}
}

// defaultMaxInplaceSpin is how many times a self-resubmitting callback is
// rerun immediately rather than being pushed back through the local queue.
const defaultMaxInplaceSpin = 4

// Runner drives callback task cells.
type Runner struct {
	// MaxInplaceSpin overrides defaultMaxInplaceSpin when non-zero.
	MaxInplaceSpin int

	// Logger receives a message when Handle recovers a panic from a step.
	// Defaults to a no-op logger.
	Logger *zap.Logger
}

// NewRunnerBuilder returns a pool.RunnerBuilder[TaskCell] that builds a
// fresh Runner per worker.
func NewRunnerBuilder(maxInplaceSpin int, logger *zap.Logger) pool.RunnerBuilder[TaskCell] {
	return pool.RunnerBuilderFunc[TaskCell](func() pool.Runner[TaskCell] {
		return &Runner{MaxInplaceSpin: maxInplaceSpin, Logger: logger}
	})
}

func (r *Runner) maxInplaceSpin() int {
	if r.MaxInplaceSpin > 0 {
		return r.MaxInplaceSpin
	}
	return defaultMaxInplaceSpin
}

// Start implements pool.Runner.
func (r *Runner) Start(local *pool.Local[TaskCell]) {}

// Pause implements pool.Runner.
func (r *Runner) Pause(local *pool.Local[TaskCell]) bool { return true }

// Resume implements pool.Runner.
func (r *Runner) Resume(local *pool.Local[TaskCell]) {}

// End implements pool.Runner.
func (r *Runner) End(local *pool.Local[TaskCell]) {}

// Handle runs t.f. If it returns a follow-up step, Handle reruns it in
// place up to MaxInplaceSpin times for best locality and otherwise pushes
// it back onto the local worker's queue so other waiting work gets a turn,
// carrying over the same Extras (and so the same accumulated running time,
// for multilevel scheduling). A panicking step is recovered in place and
// the task is treated as finished, per this module's worker-survives-panic
// policy.
func (r *Runner) Handle(local *pool.Local[TaskCell], t TaskCell) (finished bool) {
	defer func() {
		if rec := recover(); rec != nil {
			if r.Logger != nil {
				r.Logger.Sugar().Errorw("callback task panicked; marking completed", "panic", rec)
			}
			finished = true
		}
	}()

	f := t.c.f
	extras := t.c.extras
	spins := 0
	for f != nil {
		next := f(local)
		if next == nil {
			return true
		}
		if spins < r.maxInplaceSpin() {
			spins++
			f = next
			continue
		}
		local.Spawn(TaskCell{c: &cell{f: next, extras: extras}})
		return false
	}
	return true
}
