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

package rwlock_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/guacd/internal/guacerr"
	"github.com/sabouaram/guacd/internal/rwlock"
)

var _ = Describe("RWLock", func() {
	It("requires k releases after k nested read acquisitions", func() {
		l := rwlock.New()
		owner := rwlock.NewOwner()

		for i := 0; i < 5; i++ {
			Expect(l.AcquireRead(owner)).To(BeNil())
		}
		for i := 0; i < 4; i++ {
			Expect(l.Release(owner)).To(BeNil())
		}

		// one more release should fully unlock, not error
		Expect(l.Release(owner)).To(BeNil())

		// and the next release, from a clean state, is an error
		Expect(l.Release(owner)).NotTo(BeNil())
	})

	It("returns TooMany once the depth ceiling is exceeded, without touching the primitive", func() {
		l := rwlock.NewWithMaxDepth(4)
		owner := rwlock.NewOwner()

		for i := 0; i < 4; i++ {
			Expect(l.AcquireRead(owner)).To(BeNil())
		}

		err := l.AcquireRead(owner)
		Expect(err).NotTo(BeNil())
		Expect(err.IsCode(guacerr.TooMany)).To(BeTrue())

		// a second owner must still be able to acquire: the primitive was
		// never touched by the rejected acquisition above.
		other := rwlock.NewOwner()
		otherErr := make(chan guacerr.Error, 1)
		go func() { otherErr <- l.AcquireRead(other) }()
		Eventually(otherErr).Should(Receive(BeNil()))
	})

	It("returns InvalidArgument when a non-holder releases", func() {
		l := rwlock.New()
		owner := rwlock.NewOwner()
		err := l.Release(owner)
		Expect(err).NotTo(BeNil())
		Expect(err.IsCode(guacerr.InvalidArgument)).To(BeTrue())
	})

	It("rejects a read-to-write upgrade with NotSupported", func() {
		l := rwlock.New()
		owner := rwlock.NewOwner()

		Expect(l.AcquireRead(owner)).To(BeNil())
		err := l.AcquireWrite(owner)
		Expect(err).NotTo(BeNil())
		Expect(err.IsCode(guacerr.NotSupported)).To(BeTrue())
	})

	It("allows nested write acquisitions from the same owner", func() {
		l := rwlock.New()
		owner := rwlock.NewOwner()

		Expect(l.AcquireWrite(owner)).To(BeNil())
		Expect(l.AcquireWrite(owner)).To(BeNil())
		Expect(l.Release(owner)).To(BeNil())
		Expect(l.Release(owner)).To(BeNil())
	})
})
