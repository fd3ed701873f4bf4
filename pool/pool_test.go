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

package pool_test

import (
	"sync/atomic"
	"time"

	"github.com/botobag/yatp/pool"
	"github.com/botobag/yatp/queue"
	"github.com/botobag/yatp/task/callback"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func newCallbackPool(b *pool.Builder) *pool.ThreadPool[callback.TaskCell] {
	p, err := pool.Build[callback.TaskCell](b, callback.NewRunnerBuilder(0, nil))
	Expect(err).ShouldNot(HaveOccurred())
	return p
}

var _ = Describe("ThreadPool", func() {
	It("runs a spawned callback task to completion", func() {
		p := newCallbackPool(pool.NewBuilder("run-to-completion").MaxThreadCount(2))
		defer p.Shutdown()

		done := make(chan struct{})
		p.Spawn(callback.New(func(local *pool.Local[callback.TaskCell]) callback.Func {
			close(done)
			return nil
		}, queue.Extras{}))

		Eventually(done).Should(BeClosed())
	})

	It("runs tasks spawned before any worker goroutine exists", func() {
		remote, lazy, err := pool.Freeze[callback.TaskCell](
			pool.NewBuilder("freeze-before-build").MaxThreadCount(1))
		Expect(err).ShouldNot(HaveOccurred())

		done := make(chan struct{})
		remote.Spawn(callback.New(func(local *pool.Local[callback.TaskCell]) callback.Func {
			close(done)
			return nil
		}, queue.Extras{}))

		p := lazy.Build(callback.NewRunnerBuilder(0, nil))
		defer p.Shutdown()

		Eventually(done).Should(BeClosed())
	})

	It("runs every worker's share of many spawned tasks", func() {
		p := newCallbackPool(pool.NewBuilder("many-tasks").MaxThreadCount(4))
		defer p.Shutdown()

		const n = 200
		var ran atomic.Int64
		for i := 0; i < n; i++ {
			p.Spawn(callback.New(func(local *pool.Local[callback.TaskCell]) callback.Func {
				ran.Add(1)
				return nil
			}, queue.Extras{}))
		}

		Eventually(func() int64 { return ran.Load() }, time.Second).Should(Equal(int64(n)))
	})

	It("lets a task continue with the follow-up steps it returns", func() {
		p := newCallbackPool(pool.NewBuilder("self-reschedule").MaxThreadCount(1))
		defer p.Shutdown()

		var steps atomic.Int64
		done := make(chan struct{})

		var step callback.Func
		step = func(local *pool.Local[callback.TaskCell]) callback.Func {
			if steps.Add(1) >= 3 {
				close(done)
				return nil
			}
			return step
		}
		p.Spawn(callback.New(step, queue.Extras{}))

		Eventually(done).Should(BeClosed())
		Expect(steps.Load()).Should(Equal(int64(3)))
	})

	It("stops running new tasks after Shutdown", func() {
		p := newCallbackPool(pool.NewBuilder("shutdown").MaxThreadCount(1))
		p.Shutdown()

		var ran atomic.Bool
		p.Spawn(callback.New(func(local *pool.Local[callback.TaskCell]) callback.Func {
			ran.Store(true)
			return nil
		}, queue.Extras{}))

		Consistently(func() bool { return ran.Load() }, 50*time.Millisecond).Should(BeFalse())
	})

	It("tolerates calling Shutdown more than once", func() {
		p := newCallbackPool(pool.NewBuilder("double-shutdown").MaxThreadCount(1))
		p.Shutdown()
		Expect(func() { p.Shutdown() }).ShouldNot(Panic())
	})

	It("recovers from a panicking task without killing the worker", func() {
		p := newCallbackPool(pool.NewBuilder("panic-recovery").MaxThreadCount(1))
		defer p.Shutdown()

		p.Spawn(callback.New(func(local *pool.Local[callback.TaskCell]) callback.Func {
			panic("boom")
		}, queue.Extras{}))

		done := make(chan struct{})
		p.Spawn(callback.New(func(local *pool.Local[callback.TaskCell]) callback.Func {
			close(done)
			return nil
		}, queue.Extras{}))

		Eventually(done).Should(BeClosed())
	})

	Describe("Stats", func() {
		It("reports WorkerCount matching MaxThreadCount for a single-level pool", func() {
			p := newCallbackPool(pool.NewBuilder("stats-single").MaxThreadCount(3))
			defer p.Shutdown()

			stats := p.Stats()
			Expect(stats.WorkerCount).Should(Equal(3))
			Expect(stats.Multilevel).Should(BeNil())
		})

		It("reports per-level backlog once built with the multilevel queue", func() {
			b := pool.NewBuilder("stats-multilevel").MaxThreadCount(1).
				Config(pool.SchedConfig{MaxThreadCount: 1, Queue: queue.Multilevel})
			p := newCallbackPool(b)
			defer p.Shutdown()

			Eventually(func() *pool.MultilevelStats { return p.Stats().Multilevel }).ShouldNot(BeNil())
		})
	})

	Describe("Remote and WeakRemote", func() {
		It("lets a Remote handle spawn independently of pool ownership", func() {
			p := newCallbackPool(pool.NewBuilder("remote-spawn").MaxThreadCount(1))
			defer p.Shutdown()

			done := make(chan struct{})
			remote := p.Remote()
			remote.Spawn(callback.New(func(local *pool.Local[callback.TaskCell]) callback.Func {
				close(done)
				return nil
			}, queue.Extras{}))

			Eventually(done).Should(BeClosed())
		})

		It("fails to Upgrade a WeakRemote once the pool has shut down", func() {
			p := newCallbackPool(pool.NewBuilder("weak-remote").MaxThreadCount(1))
			weak := p.Remote().WeakRemote()

			_, ok := weak.Upgrade()
			Expect(ok).Should(BeTrue())

			p.Shutdown()

			_, ok = weak.Upgrade()
			Expect(ok).Should(BeFalse())
		})
	})

	Describe("SpawnNew", func() {
		It("runs a task spawned through SpawnNew without a caller-supplied TaskID", func() {
			p := newCallbackPool(pool.NewBuilder("spawn-new").MaxThreadCount(1))
			defer p.Shutdown()

			done := make(chan struct{})
			p.Remote().SpawnNew(callback.Wrap(func(local *pool.Local[callback.TaskCell]) callback.Func {
				close(done)
				return nil
			}))

			Eventually(done).Should(BeClosed())
		})
	})
})
