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

// Package rwlock implements a reentrant reader/writer lock. Go has no
// native thread-local storage, so reentrance is tracked against an
// explicit caller-supplied Owner token instead of an implicit
// per-thread key (see SPEC_FULL.md §4.B and DESIGN.md for the
// rationale). Each owner's mode and depth are kept as separate fields
// in a map guarded by a sync.Mutex, rather than as the original's packed
// mode+depth word.
package rwlock

import (
	"sync"

	"github.com/sabouaram/guacd/internal/guacerr"
)

// Owner identifies a logical lock holder (typically one goroutine).
// Callers obtain one with NewOwner and reuse it for every
// Acquire/Release pair they perform.
type Owner uint64

var ownerSeq uint64
var ownerMu sync.Mutex

// NewOwner returns a fresh Owner token, unique for the lifetime of the
// process.
func NewOwner() Owner {
	ownerMu.Lock()
	defer ownerMu.Unlock()
	ownerSeq++
	return Owner(ownerSeq)
}

type mode uint8

const (
	modeNone mode = iota
	modeRead
	modeWrite
)

// maxDepth bounds the reentrance counter; exceeding it returns TooMany
// rather than overflowing, per spec.md §4.B.
const maxDepth = 1<<28 - 1

type state struct {
	mode  mode
	depth uint32
}

// RWLock is a reentrant reader/writer lock. The zero value is not usable;
// construct with New.
type RWLock struct {
	mu    sync.RWMutex // underlying primitive
	book  sync.Mutex   // guards owners
	owned map[Owner]*state
	max   uint32
}

// New constructs an unlocked RWLock with the default depth ceiling.
func New() *RWLock {
	return NewWithMaxDepth(maxDepth)
}

// NewWithMaxDepth constructs an unlocked RWLock with a caller-chosen
// depth ceiling, primarily so tests can exercise the TooMany boundary
// without performing 2^28 acquisitions.
func NewWithMaxDepth(max uint32) *RWLock {
	return &RWLock{owned: make(map[Owner]*state), max: max}
}

// AcquireRead acquires the lock for reading on behalf of owner. Nested
// acquisitions (read or write) from the same owner only increment the
// depth counter.
func (l *RWLock) AcquireRead(owner Owner) guacerr.Error {
	l.book.Lock()
	st, ok := l.owned[owner]
	if ok && st.mode != modeNone {
		if st.depth >= l.max {
			l.book.Unlock()
			return guacerr.TooMany.Error()
		}
		st.depth++
		l.book.Unlock()
		return nil
	}
	l.book.Unlock()

	l.mu.RLock()

	l.book.Lock()
	l.owned[owner] = &state{mode: modeRead, depth: 1}
	l.book.Unlock()
	return nil
}

// AcquireWrite acquires the lock for writing on behalf of owner.
//
// If owner currently holds no lock, the write lock is acquired directly.
// If owner already holds the write lock, the depth counter is
// incremented. If owner currently holds only the read lock, this is the
// read-to-write upgrade the original design silently allowed by dropping
// the read lock and reacquiring in write mode — a known atomicity
// hazard (spec.md §9). This rewrite resolves that open question as
// option (a): the upgrade is rejected outright with NotSupported rather
// than reproduced.
func (l *RWLock) AcquireWrite(owner Owner) guacerr.Error {
	l.book.Lock()
	st, ok := l.owned[owner]
	if ok && st.mode == modeWrite {
		if st.depth >= l.max {
			l.book.Unlock()
			return guacerr.TooMany.Error()
		}
		st.depth++
		l.book.Unlock()
		return nil
	}
	if ok && st.mode == modeRead {
		l.book.Unlock()
		return guacerr.NotSupported.Errorf("read-to-write lock upgrade is not supported")
	}
	l.book.Unlock()

	l.mu.Lock()

	l.book.Lock()
	l.owned[owner] = &state{mode: modeWrite, depth: 1}
	l.book.Unlock()
	return nil
}

// Release releases one level of nesting for owner, releasing the
// underlying primitive once depth reaches zero. Releasing from an owner
// that holds no lock returns InvalidArgument.
func (l *RWLock) Release(owner Owner) guacerr.Error {
	l.book.Lock()
	st, ok := l.owned[owner]
	if !ok || st.mode == modeNone {
		l.book.Unlock()
		return guacerr.InvalidArgument.Error()
	}

	st.depth--
	if st.depth > 0 {
		l.book.Unlock()
		return nil
	}

	m := st.mode
	delete(l.owned, owner)
	l.book.Unlock()

	if m == modeRead {
		l.mu.RUnlock()
	} else {
		l.mu.Unlock()
	}
	return nil
}

// Destroy releases all internal bookkeeping. The lock must not be used
// afterward; any goroutine still holding it must Release first.
func (l *RWLock) Destroy() {
	l.book.Lock()
	defer l.book.Unlock()
	l.owned = make(map[Owner]*state)
}
