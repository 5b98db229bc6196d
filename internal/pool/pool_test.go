/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package pool_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/guacd/internal/guacerr"
	"github.com/sabouaram/guacd/internal/pool"
)

var _ = Describe("IntPool", func() {
	It("hands out fresh integers from zero before the watermark fills", func() {
		p := pool.Alloc(128)
		for i := 0; i < 10; i++ {
			Expect(p.NextInt()).To(Equal(i))
		}
	})

	It("recycles exactly min_size released integers in FIFO order", func() {
		p := pool.Alloc(128)

		first := make([]int, 128)
		for i := range first {
			first[i] = p.NextInt()
		}
		for _, v := range first {
			Expect(p.FreeInt(v)).To(BeNil())
		}

		second := make([]int, 128)
		for i := range second {
			second[i] = p.NextInt()
		}

		Expect(second).To(Equal(first))
	})

	It("returns exactly min_size as the next fresh integer once fully reused", func() {
		p := pool.Alloc(128)

		vals := make([]int, 128)
		for i := range vals {
			vals[i] = p.NextInt()
		}
		for _, v := range vals {
			Expect(p.FreeInt(v)).To(BeNil())
		}
		for i := 0; i < 128; i++ {
			p.NextInt()
		}

		Expect(p.NextInt()).To(Equal(128))
	})

	It("rejects freeing a value that is not currently outstanding", func() {
		p := pool.Alloc(4)
		err := p.FreeInt(3)
		Expect(err).NotTo(BeNil())
		Expect(err.IsCode(guacerr.InvalidArgument)).To(BeTrue())
	})
})
