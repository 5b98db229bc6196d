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
	"strconv"
	"sync"
	"time"

	"github.com/sabouaram/guacd/internal/guacerr"
)

// StopFunc evicts a failing subscriber from whatever owns the
// broadcast — the "external stop" callback of spec.md §4.E.6.
type StopFunc func(sub Socket)

// Broadcast is write-only: it forwards every write and flush to a set
// of subscriber sockets, evicting (via stop) any subscriber whose write
// fails rather than propagating that failure to the caller.
type Broadcast struct {
	mu   sync.Mutex
	subs map[Socket]struct{}
	stop StopFunc
}

// NewBroadcast returns an empty Broadcast. stop is invoked
// synchronously, on the goroutine that was writing or flushing, whenever
// a subscriber's write or flush fails.
func NewBroadcast(stop StopFunc) *Broadcast {
	return &Broadcast{subs: make(map[Socket]struct{}), stop: stop}
}

// Add registers sub as a broadcast subscriber.
func (b *Broadcast) Add(sub Socket) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[sub] = struct{}{}
}

// Remove unregisters sub.
func (b *Broadcast) Remove(sub Socket) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub)
}

func (b *Broadcast) snapshot() []Socket {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := make([]Socket, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	return subs
}

func (b *Broadcast) evict(sub Socket) {
	b.Remove(sub)
	if b.stop != nil {
		b.stop(sub)
	}
}

func (b *Broadcast) Select(time.Duration) (bool, guacerr.Error) {
	return false, guacerr.NotSupported.Errorf("broadcast transport is write-only")
}

func (b *Broadcast) Read([]byte) (int, guacerr.Error) {
	return 0, guacerr.NotSupported.Errorf("broadcast transport is write-only")
}

func (b *Broadcast) Write(p []byte) (int, guacerr.Error) {
	for _, s := range b.snapshot() {
		if _, err := s.Write(p); err != nil {
			b.evict(s)
		}
	}
	return len(p), nil
}

func (b *Broadcast) WriteInt(i int64) guacerr.Error {
	_, err := b.Write([]byte(strconv.FormatInt(i, 10)))
	return err
}

func (b *Broadcast) WriteString(s string) guacerr.Error {
	_, err := b.Write([]byte(s))
	return err
}

func (b *Broadcast) WriteBase64(p []byte) guacerr.Error {
	for _, s := range b.snapshot() {
		if err := s.WriteBase64(p); err != nil {
			b.evict(s)
		}
	}
	return nil
}

func (b *Broadcast) FlushBase64() guacerr.Error {
	for _, s := range b.snapshot() {
		if err := s.FlushBase64(); err != nil {
			b.evict(s)
		}
	}
	return nil
}

func (b *Broadcast) Flush() guacerr.Error {
	for _, s := range b.snapshot() {
		if err := s.Flush(); err != nil {
			b.evict(s)
		}
	}
	return nil
}

func (b *Broadcast) InstructionBegin() {}
func (b *Broadcast) InstructionEnd()   {}
func (b *Broadcast) RequireKeepAlive() {}
func (b *Broadcast) Closed() bool      { return false }

func (b *Broadcast) Close() guacerr.Error {
	for _, s := range b.snapshot() {
		_ = s.Close()
	}
	return nil
}
