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

package fdpass_test

import (
	"os"

	"golang.org/x/sys/unix"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/guacd/internal/fdpass"
	"github.com/sabouaram/guacd/internal/guacerr"
)

var _ = Describe("fdpass", func() {
	It("round-trips a descriptor to the same underlying file", func() {
		f, err := os.CreateTemp("", "fdpass-*")
		Expect(err).To(BeNil())
		defer os.Remove(f.Name())
		defer f.Close()

		var wantStat unix.Stat_t
		Expect(unix.Fstat(int(f.Fd()), &wantStat)).To(BeNil())

		fds, gerr := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
		Expect(gerr).To(BeNil())
		defer unix.Close(fds[0])
		defer unix.Close(fds[1])

		sendErr := fdpass.Send(fds[0], int(f.Fd()))
		Expect(sendErr).To(BeNil())

		received, recvErr := fdpass.Receive(fds[1])
		Expect(recvErr).To(BeNil())
		defer unix.Close(received)

		var gotStat unix.Stat_t
		Expect(unix.Fstat(received, &gotStat)).To(BeNil())
		Expect(gotStat.Dev).To(Equal(wantStat.Dev))
		Expect(gotStat.Ino).To(Equal(wantStat.Ino))
	})

	It("rejects a message not preceded by the sentinel byte", func() {
		fds, gerr := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
		Expect(gerr).To(BeNil())
		defer unix.Close(fds[0])
		defer unix.Close(fds[1])

		_, werr := unix.Write(fds[0], []byte{'X'})
		Expect(werr).To(BeNil())

		_, recvErr := fdpass.Receive(fds[1])
		Expect(recvErr).NotTo(BeNil())
		Expect(recvErr.IsCode(guacerr.ProtocolError)).To(BeTrue())
	})
})
