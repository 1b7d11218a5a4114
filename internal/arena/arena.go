// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package arena provides a bump/region allocator for the flattened
// per-serverclass property arrays that sendtable.EntityState produces once
// per session.
//
// Unlike the teacher's unsafe, pointer-free chunk allocator (which exists to
// let an entire Protobuf parser's working set be swept in one GC-visible
// block), a Sendprop carries ordinary Go strings and slices, so there is no
// safe way to back it with raw bytes. This arena keeps the same shape the
// teacher uses for growth and teardown — slabs doubling in size, handed out
// by a bump cursor, freed all at once — but does it with plain slices
// instead of unsafe.Pointer chunks.
package arena

// minSlab is the smallest slab size allocated, chosen so that a handful of
// small serverclasses don't each force a separate underlying allocation.
const minSlab = 64

// Arena is a bump allocator for slices of T. A zero Arena is empty and
// ready to use. Individual allocations cannot be freed; the whole arena is
// released at once via Release.
//
// Not safe for concurrent use — matching the single-consumer-per-session
// contract of the entity-state initializer that owns it.
type Arena[T any] struct {
	slabs [][]T
	cur   []T // Tail of the most recent slab not yet handed out.
}

// New constructs an empty Arena.
func New[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Alloc reserves a contiguous slice of n zero-valued T, carved from the
// arena's current slab. If the current slab doesn't have room, a fresh slab
// is grown, at least doubling the size of the previous one.
func (a *Arena[T]) Alloc(n int) []T {
	if n <= 0 {
		return nil
	}
	if cap(a.cur) < n {
		a.grow(n)
	}

	out := a.cur[:n:n]
	a.cur = a.cur[n:]
	return out
}

// grow allocates a fresh slab with room for at least n elements.
func (a *Arena[T]) grow(n int) {
	size := minSlab
	if len(a.slabs) > 0 {
		if last := cap(a.slabs[len(a.slabs)-1]); last*2 > size {
			size = last * 2
		}
	}
	for size < n {
		size *= 2
	}

	a.cur = make([]T, size)
	a.slabs = append(a.slabs, a.cur)
}

// Release resets the arena to empty, dropping references to every slab it
// handed out so they become eligible for garbage collection. Any slice
// previously returned by Alloc must not be used after Release.
func (a *Arena[T]) Release() {
	a.slabs = nil
	a.cur = nil
}

// Slabs reports the number of distinct backing slabs allocated so far.
// Exposed for tests and diagnostics; not part of the allocation contract.
func (a *Arena[T]) Slabs() int {
	return len(a.slabs)
}
