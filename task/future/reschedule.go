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

import "github.com/botobag/yatp/concurrent/future"

// rescheduleDone is the Ready value Reschedule's future resolves to. Its
// only role is to be any value other than future.PollResultPending.
var rescheduleDone = struct{}{}

// rescheduleFuture gives up the calling task's turn on its worker exactly
// once: the first Poll marks the runner's need-reschedule flag, re-notifies
// itself, and returns Pending; once repolled it resolves immediately.
type rescheduleFuture struct {
	polled bool
}

// Poll implements future.Future.
func (f *rescheduleFuture) Poll(waker future.Waker) (future.PollResult, error) {
	if f.polled {
		return rescheduleDone, nil
	}
	f.polled = true

	if tw, ok := waker.(*taskWaker); ok && tw.needReschedule != nil {
		*tw.needReschedule = true
	}
	if err := waker.Wake(); err != nil {
		return nil, err
	}
	return future.PollResultPending, nil
}

// Reschedule returns a future that yields the calling task's turn on its
// worker goroutine exactly once, asking the runner to push it back onto the
// shared queue (rather than the local queue) the next time it would
// otherwise be repolled in place. Embed it as a step inside a larger
// hand-written Future the same way Join composes sub-futures; Go has no
// async/await to hide the state machine behind.
func Reschedule() future.Future {
	return &rescheduleFuture{}
}
