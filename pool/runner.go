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

// Runner drives the task cells a worker pops off its Local handle. A worker
// goroutine calls Start once, then Handle for every task cell it pops,
// Pause/Resume around every episode of blocking in PopOrSleep, and End once
// right before the goroutine exits.
type Runner[T queue.TaskCell] interface {
	// Start is called once, before the worker pops its first task.
	Start(local *Local[T])

	// Handle runs one task cell. It returns true if the task finished (so
	// the worker should not expect to see it again) and false if it was
	// re-queued (e.g. a future that returned pending).
	Handle(local *Local[T], cell T) bool

	// Pause is called right before the worker is about to block in
	// PopOrSleep. Returning false tells the worker loop to skip blocking
	// and retry popping immediately (used by flavors that want to observe
	// or short-circuit idle episodes).
	Pause(local *Local[T]) bool

	// Resume is called right after the worker wakes up from PopOrSleep, or
	// right after a Pause that returned false.
	Resume(local *Local[T])

	// End is called once, after the worker has decided to exit and will
	// not call Handle again.
	End(local *Local[T])
}

// RunnerBuilder constructs one Runner per worker goroutine: each worker
// gets its own Runner instance so runner state (e.g. a future runner's
// repoll counter) is never shared across goroutines.
type RunnerBuilder[T queue.TaskCell] interface {
	Build() Runner[T]
}

// RunnerBuilderFunc adapts a plain function to RunnerBuilder.
type RunnerBuilderFunc[T queue.TaskCell] func() Runner[T]

// Build implements RunnerBuilder.
func (f RunnerBuilderFunc[T]) Build() Runner[T] {
	return f()
}
