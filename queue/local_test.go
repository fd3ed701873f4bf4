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
	"github.com/botobag/yatp/queue"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalQueue", func() {
	var (
		spilled []*cell
		local   *queue.LocalQueue[*cell]
	)

	BeforeEach(func() {
		spilled = nil
		local = queue.NewLocalQueue[*cell](2, func(c *cell) {
			spilled = append(spilled, c)
		})
	})

	It("starts empty", func() {
		Expect(local.Empty()).Should(BeTrue())
		Expect(local.Len()).Should(Equal(0))
	})

	It("pops the owner's own pushes LIFO", func() {
		local.PushOwner(newCell("first"))
		local.PushOwner(newCell("second"))

		c, ok := local.Pop()
		Expect(ok).Should(BeTrue())
		Expect(c.label).Should(Equal("second"))

		c, ok = local.Pop()
		Expect(ok).Should(BeTrue())
		Expect(c.label).Should(Equal("first"))
	})

	It("drains remote pushes FIFO once the owner's own backlog is empty", func() {
		local.PushRemote(newCell("r1"))
		local.PushRemote(newCell("r2"))

		c, ok := local.Pop()
		Expect(ok).Should(BeTrue())
		Expect(c.label).Should(Equal("r1"))

		c, ok = local.Pop()
		Expect(ok).Should(BeTrue())
		Expect(c.label).Should(Equal("r2"))
	})

	It("prefers the owner's most recent push over older remote pushes", func() {
		local.PushRemote(newCell("remote"))
		local.PushOwner(newCell("owner"))

		c, ok := local.Pop()
		Expect(ok).Should(BeTrue())
		Expect(c.label).Should(Equal("owner"))
	})

	It("spills to the overflow function once capacity is exceeded", func() {
		local.PushOwner(newCell("a"))
		local.PushOwner(newCell("b"))
		Expect(local.Len()).Should(Equal(2))

		local.PushOwner(newCell("c"))
		Expect(local.Len()).Should(Equal(2))
		Expect(labelsOf(spilled)).Should(Equal([]string{"c"}))
	})

	It("spills remote pushes past capacity the same way", func() {
		local.PushRemote(newCell("a"))
		local.PushRemote(newCell("b"))
		local.PushRemote(newCell("c"))

		Expect(local.Len()).Should(Equal(2))
		Expect(labelsOf(spilled)).Should(Equal([]string{"c"}))
	})

	It("reports Pop failure once drained", func() {
		_, ok := local.Pop()
		Expect(ok).Should(BeFalse())
	})
})
