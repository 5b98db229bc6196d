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

// Package registry implements ProcMap, the concurrent keyed map of worker
// handles guacd keeps to resolve a "join" connection to the worker that
// already owns its connection ID. Grounded on
// original_source/src/guacd/client-map.c: a fixed array of hash buckets,
// each guarded independently, plus a single ordered list used only for
// whole-map iteration. The generic entry wrapper follows the teacher's
// atomic/synmap.go idiom of a typed facade over an untyped map primitive.
package registry

import (
	"container/list"
	"sync"
)

// hash is the h*65599+c (sdbm-style) accumulator the original
// client-map.c uses over the connection ID string.
func hash(id string) uint32 {
	var h uint32
	for i := 0; i < len(id); i++ {
		h = h*65599 + uint32(id[i])
	}
	return h
}

type entry[V any] struct {
	key   string
	value V
	elem  *list.Element
}

type bucket[V any] struct {
	mu      sync.Mutex
	entries []*entry[V]
}

func (b *bucket[V]) find(key string) int {
	for i, e := range b.entries {
		if e.key == key {
			return i
		}
	}
	return -1
}

// ProcMap is a fixed-bucket concurrent map from connection ID to worker
// handle. Bucket count is fixed at construction, matching
// GUACD_CLIENT_MAP_BUCKETS's compile-time sizing in the original.
type ProcMap[V any] struct {
	buckets []*bucket[V]

	iterMu sync.Mutex
	iter   *list.List
}

// New creates a ProcMap sized for maxWorkers concurrent entries, using
// twice that many buckets as client-map.h's GUACD_CLIENT_MAX_CONNECTIONS*2
// does.
func New[V any](maxWorkers int) *ProcMap[V] {
	count := maxWorkers * 2
	if count < 1 {
		count = 1
	}

	buckets := make([]*bucket[V], count)
	for i := range buckets {
		buckets[i] = &bucket[V]{}
	}

	return &ProcMap[V]{
		buckets: buckets,
		iter:    list.New(),
	}
}

func (m *ProcMap[V]) bucketFor(key string) *bucket[V] {
	return m.buckets[hash(key)%uint32(len(m.buckets))]
}

// Add inserts value under key, returning false without modifying the map
// if key is already present. Exactly one of any number of concurrent Add
// calls racing on the same key succeeds.
func (m *ProcMap[V]) Add(key string, value V) bool {
	b := m.bucketFor(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.find(key) >= 0 {
		return false
	}

	e := &entry[V]{key: key, value: value}

	m.iterMu.Lock()
	e.elem = m.iter.PushBack(e)
	m.iterMu.Unlock()

	b.entries = append(b.entries, e)
	return true
}

// Retrieve returns the value stored under key, if any.
func (m *ProcMap[V]) Retrieve(key string) (value V, ok bool) {
	b := m.bucketFor(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	if i := b.find(key); i >= 0 {
		return b.entries[i].value, true
	}
	return value, false
}

// Remove deletes and returns the value stored under key, if any.
func (m *ProcMap[V]) Remove(key string) (value V, ok bool) {
	b := m.bucketFor(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.find(key)
	if i < 0 {
		return value, false
	}

	e := b.entries[i]
	b.entries = append(b.entries[:i], b.entries[i+1:]...)

	m.iterMu.Lock()
	m.iter.Remove(e.elem)
	m.iterMu.Unlock()

	return e.value, true
}

// ForEach calls fn once for every entry currently in the map, holding the
// iteration lock for the duration. fn must not call back into this
// ProcMap; doing so deadlocks, since the iteration lock is not
// reentrant.
func (m *ProcMap[V]) ForEach(fn func(key string, value V)) {
	m.iterMu.Lock()
	defer m.iterMu.Unlock()

	for el := m.iter.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry[V])
		fn(e.key, e.value)
	}
}

// Len returns the number of entries currently stored.
func (m *ProcMap[V]) Len() int {
	m.iterMu.Lock()
	defer m.iterMu.Unlock()
	return m.iter.Len()
}
