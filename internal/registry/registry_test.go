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

package registry_test

import (
	"sort"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/guacd/internal/registry"
)

var _ = Describe("ProcMap", func() {
	It("adds, retrieves and removes a single entry", func() {
		m := registry.New[int](4)

		Expect(m.Add("alpha", 1)).To(BeTrue())

		v, ok := m.Retrieve("alpha")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(1))

		removed, ok := m.Remove("alpha")
		Expect(ok).To(BeTrue())
		Expect(removed).To(Equal(1))

		_, ok = m.Retrieve("alpha")
		Expect(ok).To(BeFalse())
	})

	It("fails a second add with the same key", func() {
		m := registry.New[int](4)

		Expect(m.Add("alpha", 1)).To(BeTrue())
		Expect(m.Add("alpha", 2)).To(BeFalse())

		v, ok := m.Retrieve("alpha")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(1))
	})

	It("resolves exactly one winner out of many concurrent adds racing on the same key", func() {
		m := registry.New[int](4)

		const attempts = 64
		results := make([]bool, attempts)

		var wg sync.WaitGroup
		wg.Add(attempts)
		for i := 0; i < attempts; i++ {
			go func(i int) {
				defer wg.Done()
				results[i] = m.Add("shared", i)
			}(i)
		}
		wg.Wait()

		wins := 0
		for _, ok := range results {
			if ok {
				wins++
			}
		}
		Expect(wins).To(Equal(1))
		Expect(m.Len()).To(Equal(1))
	})

	It("makes a subsequent retrieve return none after remove", func() {
		m := registry.New[int](4)

		Expect(m.Add("beta", 7)).To(BeTrue())
		_, ok := m.Remove("beta")
		Expect(ok).To(BeTrue())

		_, ok = m.Remove("beta")
		Expect(ok).To(BeFalse())

		_, ok = m.Retrieve("beta")
		Expect(ok).To(BeFalse())
	})

	It("iterates every live entry via ForEach", func() {
		m := registry.New[int](8)

		Expect(m.Add("one", 1)).To(BeTrue())
		Expect(m.Add("two", 2)).To(BeTrue())
		Expect(m.Add("three", 3)).To(BeTrue())
		_, _ = m.Remove("two")

		var seen []string
		m.ForEach(func(key string, value int) {
			seen = append(seen, key)
		})

		sort.Strings(seen)
		Expect(seen).To(Equal([]string{"one", "three"}))
	})
})
