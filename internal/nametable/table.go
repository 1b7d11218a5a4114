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

package nametable

// entry is one slot of the table. The zero entry is the empty sentinel
// (used == false); keys are never the empty string check alone because two
// datatables can't share a name, but an empty used flag unambiguously marks
// "never written".
type entry struct {
	key   string
	value uint32
	used  bool
}

// Table is a fixed-capacity, open-addressed string->uint32 table, matching
// the spec's "Hashtable (consumed)" contract: Insert reports false (rather
// than growing) once the table is structurally full or a probe sequence
// can't find a slot, and Get reports absence rather than looking further
// than the table's capacity allows.
//
// Not safe for concurrent use.
type Table struct {
	entries []entry
	mask    int
	count   int
}

// New constructs a table with room for buckets entries, rounded up to the
// next power of two as the probing sequence requires.
func New(buckets int) *Table {
	n := nextPow2(max(buckets, 1))
	return &Table{entries: make([]entry, n), mask: n - 1}
}

// Len reports the number of entries currently stored.
func (t *Table) Len() int { return t.count }

// Cap reports the table's fixed bucket capacity.
func (t *Table) Cap() int { return len(t.entries) }

// Reset clears every entry, as if the table had just been constructed. This
// mirrors the source engine's "clear by setting item_count=0" shortcut: it
// is only valid because the table is never read mid-clear and every slot is
// actually wiped, not just hidden behind a zeroed counter.
func (t *Table) Reset() {
	clear(t.entries)
	t.count = 0
}

// Insert adds key->value. It returns false if the table is already at
// capacity, or if open addressing cannot find a free slot within one full
// pass over the bucket array (which should not happen while count < cap,
// but is checked defensively since the caller treats a false return as a
// fatal structural error, never a panic).
func (t *Table) Insert(key string, value uint32) bool {
	if t.count >= len(t.entries) {
		return false
	}

	idx, ok := t.probe(key)
	if !ok {
		return false
	}
	if t.entries[idx].used {
		// Key already present: the source treats re-insertion of the same
		// datatable name as a collision, since dt_hashtable is built once
		// from a name space that must not contain duplicates.
		return false
	}

	t.entries[idx] = entry{key: key, value: value, used: true}
	t.count++
	return true
}

// Get looks up key, reporting whether it was found.
func (t *Table) Get(key string) (value uint32, ok bool) {
	idx, found := t.find(key)
	if !found {
		return 0, false
	}
	return t.entries[idx].value, true
}

// probe returns the slot key belongs in: either an existing entry with that
// key (so Insert can detect the duplicate) or the first empty slot on the
// probe sequence. ok is false only if a full pass over the table finds
// neither, which indicates the table is corrupt or too small.
func (t *Table) probe(key string) (idx int, ok bool) {
	h := hashString(key)
	i := int(h) & t.mask
	for step := 1; step <= len(t.entries); step++ {
		e := &t.entries[i]
		if !e.used || e.key == key {
			return i, true
		}
		// Triangular-number probing, as in the teacher's swiss table:
		// f(i) = (i^2+i)/2 mod buckets, computed incrementally.
		i = (i + step) & t.mask
	}
	return 0, false
}

func (t *Table) find(key string) (idx int, ok bool) {
	h := hashString(key)
	i := int(h) & t.mask
	for step := 1; step <= len(t.entries); step++ {
		e := &t.entries[i]
		if !e.used {
			return 0, false
		}
		if e.key == key {
			return i, true
		}
		i = (i + step) & t.mask
	}
	return 0, false
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
