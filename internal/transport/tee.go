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
	"time"

	"github.com/sabouaram/guacd/internal/guacerr"
)

// tee delegates reads and selects to the primary socket only, but
// duplicates every write and flush to a secondary socket as well,
// discarding the secondary's errors — grounded on
// original_source/src/libguac/socket-tee.c.
type tee struct {
	primary   Socket
	secondary Socket
}

// NewTee returns a Socket that mirrors everything written through
// primary onto secondary too. Reads, selects, the instruction lock, and
// error codes all come from primary alone.
func NewTee(primary, secondary Socket) Socket {
	return &tee{primary: primary, secondary: secondary}
}

func (t *tee) Select(timeout time.Duration) (bool, guacerr.Error) {
	return t.primary.Select(timeout)
}

func (t *tee) Read(buf []byte) (int, guacerr.Error) {
	return t.primary.Read(buf)
}

func (t *tee) Write(p []byte) (int, guacerr.Error) {
	_, _ = t.secondary.Write(p)
	return t.primary.Write(p)
}

func (t *tee) WriteInt(i int64) guacerr.Error {
	_ = t.secondary.WriteInt(i)
	return t.primary.WriteInt(i)
}

func (t *tee) WriteString(s string) guacerr.Error {
	_ = t.secondary.WriteString(s)
	return t.primary.WriteString(s)
}

func (t *tee) WriteBase64(p []byte) guacerr.Error {
	_ = t.secondary.WriteBase64(p)
	return t.primary.WriteBase64(p)
}

func (t *tee) FlushBase64() guacerr.Error {
	_ = t.secondary.FlushBase64()
	return t.primary.FlushBase64()
}

func (t *tee) Flush() guacerr.Error {
	_ = t.secondary.Flush()
	return t.primary.Flush()
}

func (t *tee) InstructionBegin() { t.primary.InstructionBegin() }
func (t *tee) InstructionEnd()   { t.primary.InstructionEnd() }
func (t *tee) RequireKeepAlive() { t.primary.RequireKeepAlive() }
func (t *tee) Closed() bool      { return t.primary.Closed() }

// Close frees both the primary and secondary socket, per spec.md §4.E.6.
func (t *tee) Close() guacerr.Error {
	_ = t.secondary.Close()
	return t.primary.Close()
}
