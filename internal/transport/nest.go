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

package transport

import (
	"bytes"
	"strconv"
	"sync"
	"time"

	"github.com/sabouaram/guacd/internal/guacerr"
	"github.com/sabouaram/guacd/internal/utf8x"
)

// nest buffers every write locally and, on Flush, wraps the buffered
// bytes as the content of a single "nest" instruction
// (`4.nest,<len>.<index>,<len>.<bytes>;`) emitted on the outer
// transport — the literal framing in spec.md §8 scenario 4. It is
// write-only: a nested transport forwards one side's output as framed
// instructions on another, it does not read.
type nest struct {
	outer Socket
	index int

	mu  sync.Mutex
	buf bytes.Buffer

	ready    [base64ReadySize]byte
	readyLen int
}

// NewNest wraps outer so that writes through the returned Socket are
// framed as instruction index on outer once Flush is called.
func NewNest(outer Socket, index int) Socket {
	return &nest{outer: outer, index: index}
}

func (n *nest) Select(time.Duration) (bool, guacerr.Error) {
	return false, guacerr.NotSupported.Errorf("nest transport is write-only")
}

func (n *nest) Read([]byte) (int, guacerr.Error) {
	return 0, guacerr.NotSupported.Errorf("nest transport is write-only")
}

func (n *nest) Write(p []byte) (int, guacerr.Error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.buf.Write(p)
}

func (n *nest) WriteInt(i int64) guacerr.Error {
	_, err := n.Write([]byte(strconv.FormatInt(i, 10)))
	return err
}

func (n *nest) WriteString(s string) guacerr.Error {
	_, err := n.Write([]byte(s))
	return err
}

func (n *nest) WriteBase64(p []byte) guacerr.Error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for len(p) > 0 {
		room := base64ReadySize - n.readyLen
		c := min(room, len(p))
		copy(n.ready[n.readyLen:], p[:c])
		n.readyLen += c
		p = p[c:]

		if n.readyLen == base64ReadySize {
			n.flushBase64Locked()
		}
	}
	return nil
}

func (n *nest) FlushBase64() guacerr.Error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.flushBase64Locked()
	return nil
}

func (n *nest) flushBase64Locked() {
	src := n.ready[:n.readyLen]
	var encoded [base64EncodedSize]byte
	count := 0

	for len(src) > 2 {
		encodeBase64Triple(src[0], src[1], src[2], encoded[count:count+4])
		src = src[3:]
		count += 4
	}
	switch len(src) {
	case 2:
		encodeBase64Pair(src[0], src[1], encoded[count:count+4])
		count += 4
	case 1:
		encodeBase64Single(src[0], encoded[count:count+4])
		count += 4
	}

	n.readyLen = 0
	if count > 0 {
		n.buf.Write(encoded[:count])
	}
}

// Flush wraps whatever has been buffered since the last Flush as a
// single "nest" instruction and writes it through to outer, which is
// itself flushed in turn.
func (n *nest) Flush() guacerr.Error {
	n.mu.Lock()
	payload := append([]byte(nil), n.buf.Bytes()...)
	n.buf.Reset()
	n.mu.Unlock()

	if len(payload) == 0 {
		return nil
	}

	indexStr := strconv.Itoa(n.index)
	length := utf8x.StrLen(payload)

	n.outer.InstructionBegin()
	defer n.outer.InstructionEnd()

	if err := n.outer.WriteString("4.nest,"); err != nil {
		return err
	}
	if err := n.outer.WriteString(strconv.Itoa(len(indexStr)) + "." + indexStr + ","); err != nil {
		return err
	}
	if err := n.outer.WriteString(strconv.Itoa(length) + "."); err != nil {
		return err
	}
	if _, err := n.outer.Write(payload); err != nil {
		return err
	}
	if err := n.outer.WriteString(";"); err != nil {
		return err
	}

	return n.outer.Flush()
}

func (n *nest) InstructionBegin() { n.outer.InstructionBegin() }
func (n *nest) InstructionEnd()   { n.outer.InstructionEnd() }
func (n *nest) RequireKeepAlive() {}
func (n *nest) Closed() bool      { return n.outer.Closed() }

// Close flushes any remaining buffered bytes; the outer transport's
// lifecycle belongs to whoever constructed it, not to the nest.
func (n *nest) Close() guacerr.Error {
	return n.Flush()
}
