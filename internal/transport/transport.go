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

// Package transport implements the Socket abstraction every instruction
// eventually flows through: buffered writes, the base64 sub-stream,
// readiness ("select"), and keep-alive. It is grounded on
// original_source/src/libguac/socket.c for the buffering and base64
// contract and on socket-ssl.c/socket-fd.c for the plain/TLS split,
// redesigned per spec.md §9 as a Go interface rather than a
// function-pointer table (one conn type serves both the plain and TLS
// cases, since bufio.Reader.Peek already looks through TLS decryption).
//
// The teacher's own socket package (github.com/nabbar/golib/socket)
// ships tests but no implementation in this retrieval pack — see
// DESIGN.md — so this package's buffering/base64/keep-alive bodies are
// original work grounded directly on the C source, while constant
// naming (DefaultBufferSize, error filtering for "closed" conditions)
// follows that package's test-exposed API shape.
package transport

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sabouaram/guacd/internal/guacerr"
)

// DefaultBufferSize is the size of the buffered-write staging area,
// matching the teacher socket package's exported constant of the same
// name and the original GUAC_SOCKET_OUTPUT_BUFFER_SIZE: exactly 8 KiB
// per spec.md §3 (distinct from the parser's own 32 KiB buffer).
const DefaultBufferSize = 8 * 1024

// readBufferSize sizes the underlying bufio.Reader independently of the
// output buffer above; it only affects how much is read per syscall; it
// is not constrained by spec.md §3.
const readBufferSize = 32 * 1024

const (
	base64ReadySize   = 768
	base64EncodedSize = 1024
	keepAliveInterval = 5 * time.Second
)

var base64Alphabet = [64]byte{
	'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M', 'N', 'O',
	'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z', 'a', 'b', 'c', 'd',
	'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm', 'n', 'o', 'p', 'q', 'r', 's',
	't', 'u', 'v', 'w', 'x', 'y', 'z', '0', '1', '2', '3', '4', '5', '6', '7',
	'8', '9', '+', '/',
}

// Socket is the transport every instruction reader/writer in the core
// is written against. It satisfies parser.Transport so a Socket can be
// handed directly to a Parser.
type Socket interface {
	// Select reports whether a read would return without blocking within
	// timeout: data is pending, or the peer has closed and Read will
	// report end of stream. A non-positive timeout waits indefinitely.
	Select(timeout time.Duration) (bool, guacerr.Error)

	// Read reads directly into buf, as the parser's fill loop expects.
	Read(buf []byte) (int, guacerr.Error)

	Write(p []byte) (int, guacerr.Error)
	WriteInt(i int64) guacerr.Error
	WriteString(s string) guacerr.Error
	WriteBase64(p []byte) guacerr.Error
	FlushBase64() guacerr.Error
	Flush() guacerr.Error

	InstructionBegin()
	InstructionEnd()

	RequireKeepAlive()

	Closed() bool
	Close() guacerr.Error
}

// conn is the shared implementation behind both the plain-fd and TLS
// variants; a tls.Conn and a net.Conn/os.File both satisfy the minimal
// surface below, and bufio.Reader.Peek sees through TLS decryption, so
// one readiness/read implementation covers both.
type conn struct {
	rw io.ReadWriteCloser
	r  *bufio.Reader

	bufMu  sync.Mutex
	wbuf   [DefaultBufferSize]byte
	wlen   int
	closed atomic.Bool

	instrMu sync.Mutex

	lastWriteMu sync.Mutex
	lastWrite   time.Time

	ready    [base64ReadySize]byte
	readyLen int
	encoded  [base64EncodedSize]byte

	keepAliveOnce sync.Once
	keepAliveStop chan struct{}
}

// readWriteSetDeadline is satisfied by both net.Conn and *tls.Conn.
type readWriteSetDeadline interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
}

func newConn(rw io.ReadWriteCloser) *conn {
	c := &conn{rw: rw, r: bufio.NewReaderSize(rw, readBufferSize)}
	c.lastWrite = time.Now()
	return c
}

// NewFD wraps a plain file descriptor connection (a *net.TCPConn
// accepted by the listener, or a *os.File duped from inetd/xinetd) as a
// Socket.
func NewFD(rw io.ReadWriteCloser) Socket {
	return newConn(rw)
}

// NewTLS wraps an already-handshaken TLS connection as a Socket. The
// same conn implementation serves both: bufio.Reader.Peek reads
// through tls.Conn's decryption exactly as it would a plain net.Conn,
// so Select needs no TLS-specific "pending" bookkeeping.
func NewTLS(c readWriteSetDeadline) Socket {
	return newConn(c)
}

func (c *conn) Closed() bool {
	return c.closed.Load()
}

func (c *conn) Select(timeout time.Duration) (bool, guacerr.Error) {
	if c.Closed() {
		return false, guacerr.Closed.Errorf("select on closed socket")
	}

	if c.r.Buffered() > 0 {
		return true, nil
	}

	if d, ok := c.rw.(interface {
		SetReadDeadline(t time.Time) error
	}); ok {
		if timeout > 0 {
			_ = d.SetReadDeadline(time.Now().Add(timeout))
		} else {
			_ = d.SetReadDeadline(time.Time{})
		}
		defer func() { _ = d.SetReadDeadline(time.Time{}) }()
	}

	_, err := c.r.Peek(1)
	if err == nil {
		return true, nil
	}
	if err == io.EOF {
		return true, nil
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return false, nil
	}
	return false, guacerr.IoError.Errorf("select: %v", err)
}

func (c *conn) Read(buf []byte) (int, guacerr.Error) {
	if c.Closed() {
		return 0, guacerr.Closed.Errorf("read on closed socket")
	}
	n, err := c.r.Read(buf)
	if err != nil && err != io.EOF {
		return n, guacerr.IoError.Errorf("read: %v", err)
	}
	return n, nil
}

// Write buffers p, flushing synchronously when the buffer fills, per
// the original's memcpy-then-flush-on-exhaustion contract.
func (c *conn) Write(p []byte) (int, guacerr.Error) {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()

	c.touchLastWrite()

	written := 0
	for len(p) > 0 {
		room := len(c.wbuf) - c.wlen
		n := copy(c.wbuf[c.wlen:], p[:min(room, len(p))])
		c.wlen += n
		p = p[n:]
		written += n

		if c.wlen == len(c.wbuf) {
			if err := c.flushLocked(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

func (c *conn) WriteInt(i int64) guacerr.Error {
	_, err := c.Write([]byte(strconv.FormatInt(i, 10)))
	return err
}

func (c *conn) WriteString(s string) guacerr.Error {
	_, err := c.Write([]byte(s))
	return err
}

// WriteBase64 appends to the 768-byte ready buffer, flushing a fully
// encoded 1024-byte block to the normal write path whenever it fills.
func (c *conn) WriteBase64(p []byte) guacerr.Error {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()

	for len(p) > 0 {
		room := base64ReadySize - c.readyLen
		n := copy(c.ready[c.readyLen:], p[:min(room, len(p))])
		c.readyLen += n
		p = p[n:]

		if c.readyLen == base64ReadySize {
			if err := c.flushBase64Locked(); err != nil {
				return err
			}
		}
	}
	return nil
}

// FlushBase64 encodes and emits whatever remains in the ready buffer,
// applying RFC 4648 padding to the trailing 1 or 2 byte remainder.
func (c *conn) FlushBase64() guacerr.Error {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	return c.flushBase64Locked()
}

func (c *conn) flushBase64Locked() guacerr.Error {
	src := c.ready[:c.readyLen]
	encoded := 0

	for len(src) > 2 {
		encodeBase64Triple(src[0], src[1], src[2], c.encoded[encoded:encoded+4])
		src = src[3:]
		encoded += 4
	}
	switch len(src) {
	case 2:
		encodeBase64Pair(src[0], src[1], c.encoded[encoded:encoded+4])
		encoded += 4
	case 1:
		encodeBase64Single(src[0], c.encoded[encoded:encoded+4])
		encoded += 4
	}

	c.readyLen = 0
	if encoded == 0 {
		return nil
	}

	n := copy(c.wbuf[c.wlen:], c.encoded[:encoded])
	c.wlen += n
	rest := c.encoded[n:encoded]
	if len(rest) > 0 {
		if err := c.flushLocked(); err != nil {
			return err
		}
		n = copy(c.wbuf[c.wlen:], rest)
		c.wlen += n
	}
	if c.wlen == len(c.wbuf) {
		return c.flushLocked()
	}
	return nil
}

func encodeBase64Triple(a, b, cByte byte, out []byte) {
	out[0] = base64Alphabet[(a&0xFC)>>2]
	out[1] = base64Alphabet[((a&0x03)<<4)|((b&0xF0)>>4)]
	out[2] = base64Alphabet[((b&0x0F)<<2)|((cByte&0xC0)>>6)]
	out[3] = base64Alphabet[cByte&0x3F]
}

func encodeBase64Pair(a, b byte, out []byte) {
	out[0] = base64Alphabet[(a&0xFC)>>2]
	out[1] = base64Alphabet[((a&0x03)<<4)|((b&0xF0)>>4)]
	out[2] = base64Alphabet[(b&0x0F)<<2]
	out[3] = '='
}

func encodeBase64Single(a byte, out []byte) {
	out[0] = base64Alphabet[(a&0xFC)>>2]
	out[1] = base64Alphabet[(a&0x03)<<4]
	out[2] = '='
	out[3] = '='
}

// Flush forces any buffered bytes out onto the underlying connection.
func (c *conn) Flush() guacerr.Error {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	return c.flushLocked()
}

func (c *conn) flushLocked() guacerr.Error {
	buf := c.wbuf[:c.wlen]
	for len(buf) > 0 {
		n, err := c.rw.Write(buf)
		if err != nil {
			return guacerr.IoError.Errorf("flush: %v", err)
		}
		buf = buf[n:]
	}
	c.wlen = 0
	return nil
}

// InstructionBegin acquires the instruction-scoped lock, distinct from
// the buffer mutex, so a caller's whole instruction is never
// interleaved with another caller's on the same socket even though
// individual Write calls may be small.
func (c *conn) InstructionBegin() {
	c.instrMu.Lock()
}

func (c *conn) InstructionEnd() {
	c.instrMu.Unlock()
}

func (c *conn) touchLastWrite() {
	c.lastWriteMu.Lock()
	c.lastWrite = time.Now()
	c.lastWriteMu.Unlock()
}

func (c *conn) sinceLastWrite() time.Duration {
	c.lastWriteMu.Lock()
	defer c.lastWriteMu.Unlock()
	return time.Now().Sub(c.lastWrite)
}

// RequireKeepAlive arms a background goroutine that sends a "nop;"
// instruction every keepAliveInterval once that long has passed since
// the last write, terminating cooperatively once the socket closes.
func (c *conn) RequireKeepAlive() {
	c.keepAliveOnce.Do(func() {
		c.keepAliveStop = make(chan struct{})
		go c.keepAliveLoop(c.keepAliveStop)
	})
}

func (c *conn) keepAliveLoop(stop chan struct{}) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if c.Closed() {
				return
			}
			if c.sinceLastWrite() < keepAliveInterval {
				continue
			}
			if err := c.WriteString("3.nop;"); err != nil {
				return
			}
			if err := c.Flush(); err != nil {
				return
			}
		}
	}
}

func (c *conn) Close() guacerr.Error {
	_ = c.Flush()

	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	if c.keepAliveStop != nil {
		close(c.keepAliveStop)
	}

	if err := c.rw.Close(); err != nil {
		return guacerr.IoError.Errorf("close: %v", err)
	}
	return nil
}
