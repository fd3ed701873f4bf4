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

import (
	"sync/atomic"

	"github.com/botobag/yatp/metrics"
	"github.com/botobag/yatp/queue"
)

// queueCore is the state shared by every Remote/Local handle drawn from the
// same pool: the root queue, its per-worker consumers, the pool's name (used
// as a metrics label) and its shutdown flag. The state lives in this
// handle-shared core rather than in any single executor, since Local and
// Remote both need to reach it independently.
type queueCore[T queue.TaskCell] struct {
	name      string
	root      queue.RootQueue[T]
	consumers []queue.Consumer[T]
	config    SchedConfig

	shutdown atomic.Bool
	stopCh   chan struct{}
	metrics  *metrics.PoolMetrics

	// activeCount is the number of workers currently inside Runner.Handle, as
	// opposed to parked in PopOrSleep or spinning; sampled periodically into
	// the yatp_active_workers_count histogram and exposed via Stats.
	activeCount atomic.Int64

	// nextTaskID hands out unique, monotonically increasing ids to tasks
	// spawned through SpawnNew, so a caller that doesn't care about framing
	// its own Extras still gets a usable TaskID.
	nextTaskID atomic.Uint64
}

func (c *queueCore[T]) allocTaskID() uint64 {
	return c.nextTaskID.Add(1)
}

func newQueueCore[T queue.TaskCell](name string, root queue.RootQueue[T], consumers []queue.Consumer[T], config SchedConfig) *queueCore[T] {
	return &queueCore[T]{
		name:      name,
		root:      root,
		consumers: consumers,
		config:    config,
		stopCh:    make(chan struct{}),
		metrics:   metrics.ForPool(name),
	}
}

func (c *queueCore[T]) isShutdown() bool {
	return c.shutdown.Load()
}

func (c *queueCore[T]) setShutdown() {
	c.shutdown.Store(true)
	c.root.Close()
	close(c.stopCh)
}

// Stats is a read-only snapshot of a pool's scheduling state, for debug
// introspection without having to scrape Prometheus for a quick look.
type Stats struct {
	// WorkerCount is the number of worker goroutines the pool was built
	// with.
	WorkerCount int

	// ActiveWorkers is the number of workers currently inside Runner.Handle.
	ActiveWorkers int64

	// Multilevel is non-nil iff the pool was built with queue.Multilevel.
	Multilevel *MultilevelStats
}

// MultilevelStats snapshots the multilevel queue's adaptive admission state.
type MultilevelStats struct {
	// AdjustChance is the current probability that a poll favors
	// Level1/Level2 over Level0.
	AdjustChance float64

	// LevelLen is the number of task cells currently queued at each level,
	// indexed by queue.Level.
	LevelLen [3]int
}

func (c *queueCore[T]) stats() Stats {
	s := Stats{
		WorkerCount:   len(c.consumers),
		ActiveWorkers: c.activeCount.Load(),
	}
	if ls, ok := c.root.(queue.LevelStats); ok {
		s.Multilevel = &MultilevelStats{
			AdjustChance: ls.AdjustChance(),
			LevelLen: [3]int{
				ls.LevelLen(queue.Level0),
				ls.LevelLen(queue.Level1),
				ls.LevelLen(queue.Level2),
			},
		}
	}
	return s
}

// spawn injects cell so any worker may pick it up; used by Remote.
func (c *queueCore[T]) spawn(cell T) {
	if c.shutdown.Load() {
		return
	}
	c.root.Inject(cell)
}

// spawnLocal pushes cell onto the given worker's own local queue; used by
// Local for in-task spawns, where locality is worth preserving.
func (c *queueCore[T]) spawnLocal(workerID int, cell T) {
	if c.shutdown.Load() {
		return
	}
	c.consumers[workerID].PushLocal(cell)
}
