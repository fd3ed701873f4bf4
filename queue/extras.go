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

// Package queue implements the two-tier injector/local task queue and the
// multilevel feedback queue that the pool draws tasks from.
package queue

import (
	"sync/atomic"
	"time"
)

// Level is the priority class a task is currently scheduled under in the
// multilevel feedback queue.
type Level uint8

// Enumeration of Level.
const (
	Level0 Level = iota
	Level1
	Level2

	levelCount = 3
)

// String implements fmt.Stringer.
func (l Level) String() string {
	switch l {
	case Level0:
		return "l0"
	case Level1:
		return "l1"
	case Level2:
		return "l2"
	}
	return "unknown"
}

// ElapsedMonitor accumulates the wall-clock time a single task has spent
// running, in nanoseconds. It is shared between the task's Extras and the
// LevelManager bookkeeping so that both can observe the same running total
// without taking a lock.
type ElapsedMonitor struct {
	nanos int64
}

// Add adds d to the accumulated elapsed time.
func (m *ElapsedMonitor) Add(d time.Duration) {
	atomic.AddInt64(&m.nanos, int64(d))
}

// Elapsed returns the accumulated elapsed time so far.
func (m *ElapsedMonitor) Elapsed() time.Duration {
	return time.Duration(atomic.LoadInt64(&m.nanos))
}

// Extras is the mutable scheduler metadata carried alongside every task.
//
// It is only ever mutated by the single thread that currently owns the task
// (see the state-machine discussion on TaskCell), so it carries no locking of
// its own.
type Extras struct {
	// TaskID uniquely identifies the task within a pool. Ids are not reused.
	TaskID uint64

	// RunningTime accumulates CPU time for tasks scheduled by a multilevel
	// queue. It is nil for tasks in a single-level queue.
	RunningTime *ElapsedMonitor

	// FixedLevel overrides the multilevel queue's default classification
	// (Level0) when set by the caller at spawn time.
	FixedLevel *Level

	// CurrentLevel is the level the task is presently classified under.
	CurrentLevel Level

	// ScheduleTime is set by the consumer immediately before invoking the
	// task, so that the elapsed running time can be measured after the call
	// returns.
	ScheduleTime time.Time

	// TotalRunningDuration is the cumulative time this task has spent
	// running, used to decide promotion/demotion between levels.
	TotalRunningDuration time.Duration
}

// ExtrasFunc lazily produces an Extras record. Spawn call sites supply one of
// these so that the caller can pre-classify a task (id, fixed level) without
// the queue package needing to know how task cells are constructed.
type ExtrasFunc func() Extras

// TaskCell is the uniform envelope every queue holds: a unit of work plus its
// scheduler metadata. Concrete flavors (future tasks, callback tasks) embed
// an Extras and implement MutExtras to expose it for mutation by the queue
// implementation.
type TaskCell interface {
	// MutExtras returns a pointer to the task's Extras for in-place mutation
	// by the scheduler. Callers must only invoke this while they are the
	// sole owner of the task (i.e. while it is not reachable from any other
	// queue or waker).
	MutExtras() *Extras
}

// WithExtras is implemented by task constructors that can attach a lazily
// produced Extras record to the task cell they build.
type WithExtras[T TaskCell] interface {
	WithExtras(extras ExtrasFunc) T
}

// Pop is a task cell retrieved from a queue, plus a flag recording whether it
// was drawn from the consumer's own local queue or from an external source
// (the injector, or another level). Runners use this to decide repoll /
// preemption accounting.
type Pop[T TaskCell] struct {
	TaskCell  T
	FromLocal bool
}
