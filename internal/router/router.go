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

// Package router implements the connection lifecycle guacd's daemon
// loop runs per accepted socket: the "select" handshake, the join-vs-spawn
// decision, descriptor handoff to the owning worker, and the pair of
// relay goroutines that pump bytes between the client and the worker once
// routing succeeds. Grounded on
// original_source/src/guacd/connection.c, with pthread_create/pthread_join
// replaced by goroutines and a channel per spec.md §9, and the
// accept-loop/shutdown idiom borrowed from the teacher's
// httpserver/server.go and cluster/async.go.
package router

import (
	"context"
	"os"
	"strconv"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sys/unix"

	"github.com/sabouaram/guacd/internal/fdpass"
	"github.com/sabouaram/guacd/internal/guacerr"
	"github.com/sabouaram/guacd/internal/identifier"
	"github.com/sabouaram/guacd/internal/logging"
	"github.com/sabouaram/guacd/internal/parser"
	"github.com/sabouaram/guacd/internal/registry"
	"github.com/sabouaram/guacd/internal/transport"
)

// HandshakeTimeout bounds how long the router waits for the "select"
// instruction, matching the original's GUACD_USEC_TIMEOUT (15 seconds).
const HandshakeTimeout = 15 * time.Second

// relayBufferSize is the chunk size used by the reader/writer relay
// goroutines, matching the original's on-stack 8192-byte buffer.
const relayBufferSize = 8192

// Wire-level status codes carried in the client-visible "error"
// instruction. These are the Guacamole protocol's own status
// enumeration (distinct from guacerr.CodeError, which is this repo's
// internal error taxonomy) and are not otherwise present in
// original_source, whose protocol-types.h was not part of the retrieval
// pack; values match the public protocol's documented constants.
const (
	protocolStatusServerError      = 0x0200
	protocolStatusResourceNotFound = 0x0204
)

// Router holds the shared state every routed connection consults: the
// worker registry, the concurrency bound, and the spawn factory.
type Router struct {
	reg              *registry.ProcMap[*Worker]
	sem              *semaphore.Weighted
	spawn            SpawnFunc
	log              logging.Logger
	handshakeTimeout time.Duration
}

// New builds a Router that allows at most maxWorkers concurrently spawned
// (not joined) connections, per spec.md §5's semaphore-gated worker
// count.
func New(maxWorkers int, spawn SpawnFunc, log logging.Logger) *Router {
	return &Router{
		reg:              registry.New[*Worker](maxWorkers),
		sem:              semaphore.NewWeighted(int64(maxWorkers)),
		spawn:            spawn,
		log:              log,
		handshakeTimeout: HandshakeTimeout,
	}
}

// Route drives one accepted connection through the full lifecycle
// described in spec.md §4.I.1: handshake, join-or-spawn, descriptor
// handoff, and relay. It blocks until routing itself is done — for a
// newly spawned worker that means waiting for the worker to terminate;
// for a join, Route returns as soon as the relay goroutines are
// launched, mirroring the original's detached io_thread.
func (r *Router) Route(ctx context.Context, client transport.Socket) guacerr.Error {
	p := parser.New()

	if err := p.Expect(client, r.handshakeTimeout, "select"); err != nil {
		r.log.WithField("stage", "handshake").Warning("error reading select: ", err)
		return err
	}

	args := p.Args()
	if len(args) != 1 {
		r.writeError(client, "Bad number of arguments to \"select\".", protocolStatusServerError)
		return guacerr.ProtocolError.Errorf("bad number of arguments to select (%d)", len(args))
	}

	target := args[0]

	var worker *Worker
	var spawned bool

	if identifier.IsWorker(target) {
		w, ok := r.reg.Retrieve(target)
		if !ok {
			r.log.WithField("id", target).Info("connection does not exist")
			r.writeError(client, "No such connection.", protocolStatusResourceNotFound)
			return guacerr.NotFound.Errorf("connection %q does not exist", target)
		}
		worker = w
		r.log.WithField("id", target).Info("joining existing connection")
	} else {
		r.log.WithField("protocol", target).Info("creating new client")

		if !r.sem.TryAcquire(1) {
			r.writeError(client, "Server busy.", protocolStatusServerError)
			return guacerr.Busy.Errorf("max concurrent workers reached")
		}

		w, err := r.spawn(target)
		if err != nil {
			r.sem.Release(1)
			r.writeError(client, "Unable to start connection.", protocolStatusServerError)
			return err
		}
		worker = w
		spawned = true
	}

	client.RequireKeepAlive()

	if err := r.addUser(client, p, worker); err != nil {
		if spawned {
			r.sem.Release(1)
		}
		r.writeError(client, "Unable to add user.", protocolStatusServerError)
		return err
	}

	if spawned {
		if !r.reg.Add(worker.ID, worker) {
			// Cryptographically improbable: a freshly minted identifier
			// collided with one already registered.
			r.log.WithField("id", worker.ID).Error("duplicate connection ID on add")
		} else {
			r.log.WithField("id", worker.ID).Info("connection ID is ", worker.ID)
		}

		worker.Wait()

		if _, ok := r.reg.Remove(worker.ID); !ok {
			r.log.WithField("id", worker.ID).Error("internal failure removing client; record will never be freed")
		} else {
			r.log.WithField("id", worker.ID).Info("connection removed")
		}

		r.sem.Release(1)
	}

	return nil
}

// addUser creates the UNIX-domain socket pair used to relay this client's
// traffic to worker, hands one end across worker's descriptor channel via
// fdpass, and launches the relay goroutines. It mirrors guacd_add_user.
func (r *Router) addUser(client transport.Socket, p *parser.Parser, worker *Worker) guacerr.Error {
	fds, errno := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if errno != nil {
		return guacerr.IoError.Errorf("allocating descriptors for I/O transfer: %v", errno)
	}
	myFD, procFD := fds[0], fds[1]

	if err := fdpass.Send(worker.FDSocket, procFD); err != nil {
		_ = unix.Close(myFD)
		_ = unix.Close(procFD)
		return err
	}
	_ = unix.Close(procFD)

	myEnd := os.NewFile(uintptr(myFD), "guacd-relay")

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		relayToWorker(client, myEnd, p)
	}()

	go func() {
		relayToClient(client, myEnd)
		<-readerDone
		_ = myEnd.Close()
		_ = client.Close()
	}()

	return nil
}

// relayToWorker first drains any bytes the parser buffered but did not
// consume during the handshake, then copies everything further read from
// client into myEnd. It matches guacd_connection_write_thread.
func relayToWorker(client transport.Socket, myEnd *os.File, p *parser.Parser) {
	buf := make([]byte, relayBufferSize)

	for {
		n := p.Shift(buf)
		if n <= 0 {
			break
		}
		if _, err := myEnd.Write(buf[:n]); err != nil {
			return
		}
	}

	for {
		n, err := client.Read(buf)
		if err != nil || n <= 0 {
			return
		}
		if _, werr := myEnd.Write(buf[:n]); werr != nil {
			return
		}
	}
}

// relayToClient copies everything read from myEnd to client, flushing
// after every chunk. It matches guacd_connection_io_thread's main loop.
func relayToClient(client transport.Socket, myEnd *os.File) {
	buf := make([]byte, relayBufferSize)

	for {
		n, err := myEnd.Read(buf)
		if err != nil || n <= 0 {
			return
		}
		if _, werr := client.Write(buf[:n]); werr != nil {
			return
		}
		if ferr := client.Flush(); ferr != nil {
			return
		}
	}
}

// writeError emits the client-visible "error" instruction spec.md §6.1
// defines, best-effort: a write failure here is never itself returned,
// since the connection is already being torn down.
func (r *Router) writeError(client transport.Socket, message string, code int) {
	client.InstructionBegin()
	defer client.InstructionEnd()

	_ = client.WriteString("5.error,")
	_ = client.WriteInt(int64(len(message)))
	_ = client.WriteString(".")
	_ = client.WriteString(message)
	_ = client.WriteString(",")
	codeStr := strconv.Itoa(code)
	_ = client.WriteInt(int64(len(codeStr)))
	_ = client.WriteString(".")
	_ = client.WriteString(codeStr)
	_ = client.WriteString(";")
	_ = client.Flush()
}
