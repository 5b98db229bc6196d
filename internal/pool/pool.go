/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

// Package pool hands out and recycles dense non-negative integers with a
// configurable minimum watermark, the way the original guac_pool_t does
// for stream and buffer indices. See spec.md §4.A.
package pool

import (
	"container/list"
	"sync"

	"github.com/bits-and-blooms/bitset"

	"github.com/sabouaram/guacd/internal/guacerr"
)

// IntPool hands out dense non-negative integers, recycling freed ones in
// FIFO order once the minimum watermark of outstanding-then-released
// values has been reached.
type IntPool struct {
	mu      sync.Mutex
	min     int
	nextNew int
	free    *list.List // FIFO queue of released integers
	out     *bitset.BitSet
}

// Alloc builds a new IntPool with the given minimum watermark: next_int
// only reuses a released value once at least minSize distinct values
// have been handed out.
func Alloc(minSize int) *IntPool {
	return &IntPool{
		min:  minSize,
		free: list.New(),
		out:  bitset.New(0),
	}
}

// NextInt returns a fresh integer until min distinct values have been
// handed out; after that it returns the head of the free queue, or a
// fresh integer when the queue is empty.
func (p *IntPool) NextInt() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	var v int
	if p.nextNew >= p.min && p.free.Len() > 0 {
		front := p.free.Front()
		v = p.free.Remove(front).(int)
	} else {
		v = p.nextNew
		p.nextNew++
	}

	p.out.Set(uint(v))
	return v
}

// FreeInt releases i back to the pool, to be handed out again once the
// watermark is satisfied. Freeing a value that is not currently
// outstanding is a caller error and returns InvalidArgument.
func (p *IntPool) FreeInt(i int) guacerr.Error {
	if i < 0 {
		return guacerr.InvalidArgument.Error()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.out.Test(uint(i)) {
		return guacerr.InvalidArgument.Error()
	}

	p.out.Clear(uint(i))
	p.free.PushBack(i)
	return nil
}

// Destroy releases all pool state. The pool must not be used afterward.
func (p *IntPool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.free.Init()
	p.out = bitset.New(0)
}
