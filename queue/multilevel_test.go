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

package queue_test

import (
	"time"

	"github.com/botobag/yatp/queue"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Multilevel queue", func() {
	var (
		root      queue.RootQueue[*cell]
		consumers []queue.Consumer[*cell]
	)

	BeforeEach(func() {
		root, consumers = queue.NewMultilevel[*cell](2, queue.MultilevelConfig{})
	})

	It("injects fresh cells at Level0 by default", func() {
		Expect(root.Inject(newCell("x"))).Should(BeTrue())

		stats := root.(queue.LevelStats)
		Expect(stats.LevelLen(queue.Level0)).Should(Equal(1))
		Expect(stats.LevelLen(queue.Level1)).Should(Equal(0))
		Expect(stats.LevelLen(queue.Level2)).Should(Equal(0))
	})

	It("implements LevelStats with an admission chance in [0, 1]", func() {
		stats := root.(queue.LevelStats)
		Expect(stats.AdjustChance()).Should(BeNumerically(">=", 0))
		Expect(stats.AdjustChance()).Should(BeNumerically("<=", 1))
	})

	It("promotes a cell's own level on its next push once it has run long enough", func() {
		Expect(root.Inject(newCell("long-runner"))).Should(BeTrue())

		c, ok := consumers[0].PopOrSleep()
		Expect(ok).Should(BeTrue())

		// Simulate a worker that ran this cell for longer than the promote
		// threshold before finishing it.
		consumers[0].Finish(c.TaskCell, 10*time.Millisecond)
		Expect(c.TaskCell.extras.CurrentLevel).Should(Equal(queue.Level0))

		Expect(root.Inject(c.TaskCell)).Should(BeTrue())

		stats := root.(queue.LevelStats)
		Expect(stats.LevelLen(queue.Level1)).Should(Equal(1))
		Expect(c.TaskCell.extras.CurrentLevel).Should(Equal(queue.Level1))
	})

	It("reports NeedPreempt once Level0 has waiting work", func() {
		Expect(consumers[0].NeedPreempt()).Should(BeFalse())
		Expect(root.Inject(newCell("urgent"))).Should(BeTrue())
		Expect(consumers[0].NeedPreempt()).Should(BeTrue())
	})

	It("drains PopOrSleep across levels without losing any cell", func() {
		Expect(root.Inject(newCell("a"))).Should(BeTrue())
		Expect(root.Inject(newCell("b"))).Should(BeTrue())
		Expect(root.Inject(newCell("c"))).Should(BeTrue())

		seen := map[string]bool{}
		for i := 0; i < 3; i++ {
			c, ok := consumers[0].PopOrSleep()
			Expect(ok).Should(BeTrue())
			seen[c.TaskCell.label] = true
		}
		Expect(seen).Should(HaveLen(3))
	})

	It("wakes a parked PopOrSleep caller once Close is called", func() {
		done := make(chan bool, 1)
		go func() {
			_, ok := consumers[0].PopOrSleep()
			done <- ok
		}()
		time.Sleep(20 * time.Millisecond)
		root.Close()
		Eventually(done).Should(Receive(BeFalse()))
	})
})
