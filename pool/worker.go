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
	"fmt"
	"sync"
	"time"

	"github.com/botobag/yatp/internal/spinwait"
	"github.com/botobag/yatp/metrics"
	"github.com/botobag/yatp/queue"
)

// activeWorkersSampleInterval is how often a pool samples its count of
// workers currently inside Runner.Handle into the yatp_active_workers_count
// histogram.
const activeWorkersSampleInterval = 100 * time.Millisecond

// workerThread ties one goroutine to its Local handle and Runner instance
// for the goroutine's entire lifetime.
type workerThread[T queue.TaskCell] struct {
	local  *Local[T]
	runner Runner[T]
}

// pop waits for a task cell: a short bounded spin against the local queue
// only (cheap, no lock contention on the shared queue), then
// Pause/PopOrSleep/Resume around the blocking fallback that also checks the
// shared queue.
func (w *workerThread[T]) pop() (queue.Pop[T], bool) {
	spin := spinwait.New()
	for {
		if t, ok := w.local.Pop(); ok {
			return t, true
		}
		if !spin.Spin() {
			break
		}
	}

	if !w.runner.Pause(w.local) {
		w.runner.Resume(w.local)
		return queue.Pop[T]{}, false
	}
	t, ok := w.local.PopOrSleep()
	w.runner.Resume(w.local)
	return t, ok
}

func (w *workerThread[T]) run() {
	w.runner.Start(w.local)
	for !w.local.IsShutdown() {
		task, ok := w.pop()
		if !ok {
			continue
		}

		// Stamp the dequeue time so Finish can compute how long this one
		// episode ran, regardless of whether the task completes or is
		// re-queued for another round.
		extras := task.TaskCell.MutExtras()
		extras.ScheduleTime = time.Now()

		w.local.core.activeCount.Add(1)
		w.runner.Handle(w.local, task.TaskCell)
		w.local.core.activeCount.Add(-1)

		w.local.consumer.Finish(task.TaskCell, time.Since(extras.ScheduleTime))
	}
	w.runner.End(w.local)
}

// ThreadPool is a generic thread pool: a fixed set of worker goroutines,
// each running Runner.Handle over task cells drawn from a shared queue.
type ThreadPool[T queue.TaskCell] struct {
	remote  Remote[T]
	core    *queueCore[T]
	done    sync.WaitGroup
	stopped bool
	mu      sync.Mutex
}

// Spawn injects cell into the pool. A no-op once the pool is shutting down.
func (p *ThreadPool[T]) Spawn(cell T) {
	p.remote.Spawn(cell)
}

// Remote returns a Remote handle that can spawn into the pool without
// owning it, safe to share across goroutines and to clone freely.
func (p *ThreadPool[T]) Remote() Remote[T] {
	return p.remote
}

// Stats returns a snapshot of the pool's current scheduling state, for
// debug endpoints and tests; see Stats for field semantics.
func (p *ThreadPool[T]) Stats() Stats {
	return p.core.stats()
}

// Shutdown closes the queue and waits for every worker goroutine to exit.
// Calling it more than once is a safe no-op.
func (p *ThreadPool[T]) Shutdown() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.core.setShutdown()
	p.done.Wait()
}

// LazyBuilder holds a frozen queue (injector plus local queues) that has not
// yet been handed worker goroutines, letting callers obtain a Remote before
// any thread exists.
type LazyBuilder[T queue.TaskCell] struct {
	name      string
	core      *queueCore[T]
	consumers []queue.Consumer[T]
}

// Freeze constructs the queue for name without spawning any worker
// goroutines yet, returning a Remote usable immediately and a LazyBuilder
// to spawn workers later via Build. The Remote and the eventual ThreadPool
// share the same core, so tasks spawned before Build is called are not
// lost: they simply sit in the queue until a worker is started.
func Freeze[T queue.TaskCell](b *Builder) (Remote[T], *LazyBuilder[T], error) {
	config, err := b.config.defaulted()
	if err != nil {
		return Remote[T]{}, nil, err
	}

	poolMetrics := metrics.ForPool(b.namePrefix)
	mlConfig := config.Multilevel
	// The queue's chance is that of favoring Level1/Level2; the gauge
	// reports its complement, the chance of drawing from Level0.
	mlConfig.OnChanceUpdated = func(chance float64) {
		poolMetrics.SetLevel0Chance(1 - chance)
	}
	mlConfig.OnLevelElapsed = poolMetrics.AddLevelElapsed
	config.Multilevel = mlConfig

	root, consumers := queue.Build[T](config.Queue, config.MaxThreadCount, mlConfig)
	core := newQueueCore[T](b.namePrefix, root, consumers, config)

	lazy := &LazyBuilder[T]{
		name:      b.namePrefix,
		core:      core,
		consumers: consumers,
	}
	return Remote[T]{core: core}, lazy, nil
}

// Build spawns every worker goroutine the LazyBuilder was configured for,
// one per local queue, each with its own Runner built by runnerBuilder.
func (lazy *LazyBuilder[T]) Build(runnerBuilder RunnerBuilder[T]) *ThreadPool[T] {
	core := lazy.core
	pool := &ThreadPool[T]{remote: Remote[T]{core: core}, core: core}

	for i, consumer := range lazy.consumers {
		local := NewLocal[T](i, consumer, core)
		wt := &workerThread[T]{local: local, runner: runnerBuilder.Build()}

		pool.done.Add(1)
		go func(name string, idx int) {
			defer pool.done.Done()
			defer func() {
				if r := recover(); r != nil {
					core.config.Logger.Sugar().Errorw(
						"worker goroutine panicked",
						"pool", name, "worker", idx, "panic", r)
				}
			}()
			wt.run()
		}(lazy.name, i)
	}

	pool.done.Add(1)
	go func() {
		defer pool.done.Done()
		ticker := time.NewTicker(activeWorkersSampleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				core.metrics.ObserveActiveWorkers(float64(core.activeCount.Load()))
			case <-core.stopCh:
				return
			}
		}
	}()

	return pool
}

// Build freezes config and immediately spawns the pool's worker goroutines.
func Build[T queue.TaskCell](b *Builder, runnerBuilder RunnerBuilder[T]) (*ThreadPool[T], error) {
	_, lazy, err := Freeze[T](b)
	if err != nil {
		return nil, fmt.Errorf("pool: build %q: %w", b.namePrefix, err)
	}
	return lazy.Build(runnerBuilder), nil
}
