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

// Package bitstream implements the bit-granular reader at the heart of the
// entity-network decoder core: a cursor over a contiguous, caller-owned
// byte buffer that decodes tightly packed integers, signed integers,
// floats, and the Source-engine-specific coordinate/vector/varint codecs
// built on top of them.
//
// Every higher-level codec in this package is expressed in terms of
// ReadUint, so the wire format only needs to be gotten right in one place.
// The type carries a single-word lookahead cache (up to 64 bits) so that
// small reads — the overwhelming majority in a network update — don't pay
// for a function call per byte.
//
// Grounded on original_source/src/bitstream.c (demogobbler_bitstream_*):
// the cache invariant here is restated as "the buffered word's low bit
// always corresponds to the stream's current bit offset", which is
// semantically equivalent to the original's byte-address-distance
// recomputation (buffered_bits()) but doesn't need raw pointer arithmetic
// to express in Go.
package bitstream

import "math"

// Bitstream is a cursor over data, up to bitSize bits of which are
// readable. It does not own data and must not outlive it.
//
// Not safe for concurrent use: per spec, a Bitstream is exclusively owned
// while being read, and ForkAndAdvance hands out a logically disjoint
// sub-range rather than sharing a cursor.
type Bitstream struct {
	data      []byte
	bitSize   uint64
	bitOffset uint64
	overflow  bool

	// Lookahead cache: word's low wordBits bits are the next wordBits bits
	// of the stream starting exactly at bitOffset. Invalidated (wordBits
	// set to 0) whenever bitOffset is advanced by more than it can shift
	// off, or written to directly by SeekBits.
	word     uint64
	wordBits uint
}

// New creates a Bitstream over data, addressing the low bitSize bits of it.
// data must have at least ⌈bitSize/8⌉ bytes.
func New(data []byte, bitSize uint64) Bitstream {
	return Bitstream{data: data, bitSize: bitSize}
}

// BitSize returns the total number of addressable bits.
func (b *Bitstream) BitSize() uint64 { return b.bitSize }

// BitOffset returns the position of the next bit to be read.
func (b *Bitstream) BitOffset() uint64 { return b.bitOffset }

// Overflow reports the sticky end-of-stream flag: once true, every read
// primitive returns its zero value without advancing further, and stays
// true until the Bitstream is replaced or reseeked.
func (b *Bitstream) Overflow() bool { return b.overflow }

// BitsLeft reports the number of unread bits, 0 once overflowed.
//
// Restored from original_source's callers, which bound reads by the
// remaining size before attempting them (see SPEC_FULL.md §10).
func (b *Bitstream) BitsLeft() uint64 {
	if b.bitOffset >= b.bitSize {
		return 0
	}
	return b.bitSize - b.bitOffset
}

// BytesLeft reports ⌈BitsLeft()/8⌉.
func (b *Bitstream) BytesLeft() uint64 {
	return (b.BitsLeft() + 7) / 8
}

// Advance moves the cursor forward by n bits without returning their value.
// If n would cross the end of the stream, the cursor clamps to BitSize and
// Overflow becomes sticky.
func (b *Bitstream) Advance(n uint64) {
	if b.overflow {
		return
	}
	if n > b.bitSize-b.bitOffset {
		b.bitOffset = b.bitSize
		b.overflow = true
		b.word, b.wordBits = 0, 0
		return
	}

	if n > uint64(b.wordBits) {
		b.word, b.wordBits = 0, 0
	} else {
		b.word >>= n
		b.wordBits -= uint(n)
	}
	b.bitOffset += n
}

// SeekBits moves the cursor directly to offset, invalidating the lookahead
// cache rather than trying to preserve it across an arbitrary jump (see
// SPEC_FULL.md §9's note on cache staleness — this is the "invalidate on
// any direct bitoffset write" choice, not the "preserve the byte-address
// check" one, since Go has no cheap way to express the latter without
// unsafe pointer comparisons). If offset exceeds BitSize, it clamps and
// sets Overflow; otherwise Overflow is cleared, matching the benchmark-reset
// use case this is restored for (SPEC_FULL.md §10).
func (b *Bitstream) SeekBits(offset uint64) {
	if offset > b.bitSize {
		offset = b.bitSize
		b.overflow = true
	} else {
		b.overflow = false
	}
	b.bitOffset = offset
	b.word, b.wordBits = 0, 0
}

// ForkAndAdvance returns a new Bitstream sharing data, addressing the next
// n bits of this stream (range [bitOffset, bitOffset+n), clamped to this
// stream's BitSize), then advances this stream past them. The child inherits this stream's
// Overflow state. Safe because the underlying buffer is immutable and the
// two cursors never coordinate after this call.
func (b *Bitstream) ForkAndAdvance(n uint64) Bitstream {
	child := Bitstream{
		data:      b.data,
		bitOffset: b.bitOffset,
		bitSize:   min(b.bitOffset+n, b.bitSize),
		overflow:  b.overflow,
	}
	b.Advance(n)
	return child
}

// ReadBit reads the next bit.
func (b *Bitstream) ReadBit() bool {
	return b.ReadUint(1) != 0
}

// ReadUint reads the next n bits (0 <= n <= 64), zero-extended.
func (b *Bitstream) ReadUint(n uint) uint64 {
	if n == 0 {
		return 0
	}
	if b.overflow {
		return 0
	}
	if uint64(n) > b.bitSize-b.bitOffset {
		b.bitOffset = b.bitSize
		b.overflow = true
		b.word, b.wordBits = 0, 0
		return 0
	}

	var result uint64
	var got uint

	if b.wordBits > 0 {
		take := n
		if take > b.wordBits {
			take = b.wordBits
		}
		result = b.word & lowMask(take)
		if take < 64 {
			b.word >>= take
		} else {
			b.word = 0
		}
		b.wordBits -= take
		b.bitOffset += uint64(take)
		got = take
	}

	// One refill at an unaligned offset holds only 64-r bits, so a wide
	// read may need a second one.
	for got < n {
		b.refill()
		if b.wordBits == 0 {
			break
		}
		take := n - got
		if take > b.wordBits {
			take = b.wordBits
		}
		chunk := b.word & lowMask(take)
		result |= chunk << got
		if take < 64 {
			b.word >>= take
		} else {
			b.word = 0
		}
		b.wordBits -= take
		b.bitOffset += uint64(take)
		got += take
	}

	return result
}

// ReadSint reads the next n bits and sign-extends them from bit n-1.
func (b *Bitstream) ReadSint(n uint) int64 {
	v := b.ReadUint(n)
	if n == 0 || n == 64 {
		return int64(v)
	}
	signBit := uint64(1) << (n - 1)
	if v&signBit != 0 {
		v |= ^uint64(0) << n
	}
	return int64(v)
}

// ReadUint32 reads a 32-bit unsigned value.
func (b *Bitstream) ReadUint32() uint32 {
	return uint32(b.ReadUint(32))
}

// ReadSint32 reads a 32-bit signed value.
func (b *Bitstream) ReadSint32() int32 {
	return int32(b.ReadSint(32))
}

// ReadFloat reads 32 bits and reinterprets them as an IEEE-754 single.
func (b *Bitstream) ReadFloat() float32 {
	return math.Float32frombits(b.ReadUint32())
}

// ReadFixedString reads len(dest) bytes, one ReadUint(8) at a time, into
// dest.
func (b *Bitstream) ReadFixedString(dest []byte) {
	for i := range dest {
		dest[i] = byte(b.ReadUint(8))
	}
}

// ReadCString reads bytes into dest until either max bytes have been read
// or a zero byte is read (the zero byte is included in the count but not
// necessarily in dest, if dest is shorter than max). Returns the number of
// bytes consumed from the stream.
func (b *Bitstream) ReadCString(dest []byte, max int) int {
	n := 0
	for n < max {
		c := byte(b.ReadUint(8))
		if n < len(dest) {
			dest[n] = c
		}
		n++
		if c == 0 {
			break
		}
	}
	return n
}

// refill loads up to 8 fresh bytes starting at the byte containing the
// current bitOffset, aligning the cache so its low bit is exactly
// bitOffset.
func (b *Bitstream) refill() {
	byteIdx := b.bitOffset / 8
	r := uint(b.bitOffset % 8)

	n := 8
	if remain := len(b.data) - int(byteIdx); remain < n {
		n = remain
	}
	if n < 0 {
		n = 0
	}

	var word uint64
	for i := 0; i < n; i++ {
		word |= uint64(b.data[int(byteIdx)+i]) << (8 * i)
	}

	bits := uint(n)*8 - r
	b.word = word >> r
	b.wordBits = bits
}

func lowMask(n uint) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << n) - 1
}
