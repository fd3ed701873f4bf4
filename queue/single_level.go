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

// singleLevelRoot implements RootQueue with a plain FIFO injector.
type singleLevelRoot[T TaskCell] struct {
	injector *Injector[T]
}

// NewSingleLevel creates a RootQueue backed by one FIFO injector, plus
// nLocals per-worker Consumers over it.
func NewSingleLevel[T TaskCell](nLocals int) (RootQueue[T], []Consumer[T]) {
	injector := NewInjector[T]()
	root := &singleLevelRoot[T]{injector: injector}

	spill := func(cell T) { injector.Push(cell) }

	consumers := make([]Consumer[T], nLocals)
	for i := range consumers {
		consumers[i] = &singleLevelConsumer[T]{
			injector: injector,
			local:    NewLocalQueue[T](defaultLocalQueueCapacity, spill),
		}
	}
	return root, consumers
}

func (r *singleLevelRoot[T]) Inject(cell T) bool { return r.injector.Push(cell) }
func (r *singleLevelRoot[T]) Close()             { r.injector.Close() }
func (r *singleLevelRoot[T]) Empty() bool        { return r.injector.Empty() }

// singleLevelConsumer is the per-worker view: one local queue over the
// shared injector.
type singleLevelConsumer[T TaskCell] struct {
	injector *Injector[T]
	local    *LocalQueue[T]
}

func (c *singleLevelConsumer[T]) PushLocal(cell T) {
	c.local.PushOwner(cell)
}

func (c *singleLevelConsumer[T]) PopLocal() (Pop[T], bool) {
	cell, ok := c.local.Pop()
	if !ok {
		return Pop[T]{}, false
	}
	return Pop[T]{TaskCell: cell, FromLocal: true}, true
}

func (c *singleLevelConsumer[T]) PopOrSleep() (Pop[T], bool) {
	if cell, ok := c.local.Pop(); ok {
		return Pop[T]{TaskCell: cell, FromLocal: true}, true
	}
	cell, ok := c.injector.PopOrSleep()
	if !ok {
		return Pop[T]{}, false
	}
	return Pop[T]{TaskCell: cell, FromLocal: false}, true
}

// NeedPreempt reports whether the shared injector has waiting work, a sign
// that other workers may be starving and this worker should give up the
// task it is currently polling at the next opportunity.
func (c *singleLevelConsumer[T]) NeedPreempt() bool {
	return !c.injector.Empty()
}

// Finish implements Consumer. A single-level queue does not classify tasks
// by running time, so there is nothing to record.
func (c *singleLevelConsumer[T]) Finish(cell T, elapsed time.Duration) {}
