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

// Package nametable is the fixed-capacity name->index table used to resolve
// a serverclass's datatable_name to the index of its datatable in
// sendtables[]. It plays the role the spec calls "Hashtable (consumed)":
// fixed capacity, collision-or-full reported as failure rather than grown,
// so the caller can treat it as a session-fatal structural error the same
// way the source engine's hashtable does.
//
// The probing sequence and mixing function are adapted from the teacher's
// internal/swiss table (an FxHash-style multiply-rotate mix, and triangular
// quadratic probing), simplified to operate on Go strings instead of raw
// bytes behind an unsafe.Pointer, since a name table never needs SIMD
// control bytes or arbitrary key/value types — just string keys and a
// uint32 index.
package nametable

import "encoding/binary"

// fxhash is a simple multiply-rotate string hash, ported from the teacher's
// internal/swiss/fxhash.go without the unsafe byte-slicing it uses to avoid
// bounds checks; this version trades a little speed for using only safe Go.
type fxhash uint64

const (
	fxRotate = 5
	fxKey    = 0x517cc1b727220a95
)

func (h fxhash) mix(n uint64) fxhash {
	lo := (rotl64(uint64(h), fxRotate) ^ n) * fxKey
	hi := mulHi64(rotl64(uint64(h), fxRotate)^n, fxKey)
	return fxhash(lo ^ hi)
}

func rotl64(x uint64, k uint) uint64 {
	return x<<k | x>>(64-k)
}

// mulHi64 returns the high 64 bits of the 128-bit product of a and b.
func mulHi64(a, b uint64) uint64 {
	const mask32 = 1<<32 - 1
	aLo, aHi := a&mask32, a>>32
	bLo, bHi := b&mask32, b>>32

	lo := aLo * bLo
	mid1 := aHi * bLo
	mid2 := aLo * bHi
	hi := aHi * bHi

	carry := (lo>>32 + mid1&mask32 + mid2&mask32) >> 32
	return hi + mid1>>32 + mid2>>32 + carry
}

// hashString mixes key a word at a time, matching the teacher's
// length-then-chunks scheme.
func hashString(key string) uint64 {
	h := fxhash(0).mix(uint64(len(key)))

	b := []byte(key)
	for len(b) >= 8 {
		h = h.mix(binary.LittleEndian.Uint64(b))
		b = b[8:]
	}

	if len(b) > 0 {
		var tail [8]byte
		copy(tail[:], b)
		h = h.mix(binary.LittleEndian.Uint64(tail[:]))
	}

	return uint64(h)
}
