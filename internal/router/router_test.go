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

package router_test

import (
	"context"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/guacd/internal/fdpass"
	"github.com/sabouaram/guacd/internal/guacerr"
	"github.com/sabouaram/guacd/internal/identifier"
	"github.com/sabouaram/guacd/internal/logging"
	"github.com/sabouaram/guacd/internal/router"
	"github.com/sabouaram/guacd/internal/transport"
)

// fakeWorker stands in for a spawned backend protocol process: its
// descriptor channel is a real UNIX domain socket, so fdpass's SCM_RIGHTS
// handoff exercises actual kernel behavior, and its "process" termination
// is a channel close under the test's control rather than a real wait4.
type fakeWorker struct {
	id       string
	recvSock int
	stop     chan struct{}
}

func (w *fakeWorker) handle(sendSock int) *router.Worker {
	return &router.Worker{
		ID:       w.id,
		FDSocket: sendSock,
		Wait:     func() { <-w.stop },
	}
}

// receiveEnd blocks until the router hands off the next client's relay
// descriptor, returning it wrapped as a file.
func (w *fakeWorker) receiveEnd() *os.File {
	fd, err := fdpass.Receive(w.recvSock)
	Expect(err).To(BeNil())
	return os.NewFile(uintptr(fd), "worker-end")
}

var _ = Describe("Router", func() {
	var log logging.Logger

	BeforeEach(func() {
		log = logging.New(logging.ErrorLevel, io.Discard)
	})

	It("routes a newly spawned session and relays bytes in both directions", func() {
		fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
		Expect(err).To(BeNil())
		workerSendSock := fds[0]
		w := &fakeWorker{recvSock: fds[1], stop: make(chan struct{})}

		spawn := func(protocol string) (*router.Worker, guacerr.Error) {
			Expect(protocol).To(Equal("vnc"))
			id, genErr := identifier.Generate(identifier.PrefixWorker)
			Expect(genErr).To(BeNil())
			w.id = id
			return w.handle(workerSendSock), nil
		}

		r := router.New(4, spawn, log)

		client, peer := transport.NewPair()
		defer peer.Close()

		go func() {
			peer.InstructionBegin()
			_ = peer.WriteString("6.select,3.vnc;")
			peer.InstructionEnd()
			_ = peer.Flush()
		}()

		routeDone := make(chan guacerr.Error, 1)
		go func() {
			routeDone <- r.Route(context.Background(), client)
		}()

		workerEnd := w.receiveEnd()
		defer workerEnd.Close()

		_, werr := peer.Write([]byte("hello-worker"))
		Expect(werr).To(BeNil())
		Expect(peer.Flush()).To(BeNil())

		buf := make([]byte, len("hello-worker"))
		_, rerr := io.ReadFull(workerEnd, buf)
		Expect(rerr).To(BeNil())
		Expect(string(buf)).To(Equal("hello-worker"))

		_, fwerr := workerEnd.Write([]byte("hello-client"))
		Expect(fwerr).To(BeNil())

		buf2 := make([]byte, len("hello-client"))
		n, rerr := peer.Read(buf2)
		Expect(rerr).To(BeNil())
		Expect(string(buf2[:n])).To(Equal("hello-client"))

		close(w.stop)

		Eventually(routeDone, time.Second).Should(Receive(BeNil()))
	})

	It("emits a RESOURCE_NOT_FOUND error when joining an unknown connection", func() {
		spawn := func(protocol string) (*router.Worker, guacerr.Error) {
			Fail("spawn should not be called for a join")
			return nil, nil
		}

		r := router.New(4, spawn, log)

		unknown, genErr := identifier.Generate(identifier.PrefixWorker)
		Expect(genErr).To(BeNil())

		client, peer := transport.NewPair()
		defer client.Close()
		defer peer.Close()

		go func() {
			peer.InstructionBegin()
			_ = peer.WriteString("6.select,37." + unknown + ";")
			peer.InstructionEnd()
			_ = peer.Flush()
		}()

		routeDone := make(chan guacerr.Error, 1)
		go func() {
			routeDone <- r.Route(context.Background(), client)
		}()

		buf := make([]byte, 256)
		n, rerr := peer.Read(buf)
		Expect(rerr).To(BeNil())
		Expect(string(buf[:n])).To(ContainSubstring("5.error,"))
		Expect(string(buf[:n])).To(ContainSubstring("No such connection."))
		Expect(string(buf[:n])).To(ContainSubstring(",3.516;"))

		var err guacerr.Error
		Eventually(routeDone, time.Second).Should(Receive(&err))
		Expect(err).NotTo(BeNil())
		Expect(err.IsCode(guacerr.NotFound)).To(BeTrue())
	})

	It("rejects a select instruction with the wrong number of arguments", func() {
		spawn := func(protocol string) (*router.Worker, guacerr.Error) {
			Fail("spawn should not be called")
			return nil, nil
		}

		r := router.New(4, spawn, log)

		client, peer := transport.NewPair()
		defer client.Close()
		defer peer.Close()

		go func() {
			peer.InstructionBegin()
			_ = peer.WriteString("6.select,3.vnc,3.foo;")
			peer.InstructionEnd()
			_ = peer.Flush()
		}()

		routeDone := make(chan guacerr.Error, 1)
		go func() {
			routeDone <- r.Route(context.Background(), client)
		}()

		buf := make([]byte, 256)
		n, rerr := peer.Read(buf)
		Expect(rerr).To(BeNil())
		Expect(string(buf[:n])).To(ContainSubstring(",3.512;"))

		var err guacerr.Error
		Eventually(routeDone, time.Second).Should(Receive(&err))
		Expect(err).NotTo(BeNil())
		Expect(err.IsCode(guacerr.ProtocolError)).To(BeTrue())
	})
})
