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

// Package spinwait implements a bounded spin wait primitive, the worker
// loop's first line of defense against parking (and its wakeup latency) when
// new work is likely to show up within microseconds. Every round is the same
// runtime.Gosched call; the wait does not escalate from a busy pause to a
// yield.
package spinwait

import "runtime"

// Number of spin rounds (each one call to runtime.Gosched()) before a
// Spinner reports itself exhausted. Chosen to give a short, cheap retry
// window before falling back to a blocking wait.
const defaultSpins = 32

// Spinner implements a single bounded wait: call Spin in a loop; it returns
// false once the caller should give up spinning and park instead.
type Spinner struct {
	count int
	max   int
}

// New creates a Spinner with the default spin budget.
func New() *Spinner {
	return &Spinner{max: defaultSpins}
}

// NewWithBudget creates a Spinner with an explicit spin budget, mainly for
// tests that want to exercise exhaustion quickly.
func NewWithBudget(max int) *Spinner {
	if max <= 0 {
		max = defaultSpins
	}
	return &Spinner{max: max}
}

// Spin performs one unit of waiting and reports whether the caller may spin
// again. Each round calls runtime.Gosched, yielding the processor so other
// goroutines (in particular, whatever would push new work) get a chance to
// run; once the budget is exhausted it returns false and the caller should
// transition to a blocking wait (e.g. Consumer.PopOrSleep).
func (s *Spinner) Spin() bool {
	if s.count >= s.max {
		return false
	}
	s.count++
	runtime.Gosched()
	return true
}

// Reset zeroes the spin count, for reuse across many wait episodes without
// reallocating.
func (s *Spinner) Reset() {
	s.count = 0
}

// Exhausted reports whether the spin budget has been used up.
func (s *Spinner) Exhausted() bool {
	return s.count >= s.max
}
