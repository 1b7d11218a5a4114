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

package bitstream

// Width of the integer and fractional parts of a BitCoord, as carried by
// the demo's network protocol. The source engine ships these as
// compile-time constants rather than per-demo header fields.
const (
	CoordIntegerBits    = 14
	CoordFractionalBits = 5
)

// BitCoord is the decoded form of a single scalar coordinate component, as
// produced by read_bitcoord in the original implementation.
type BitCoord struct {
	Exists    bool
	HasInt    bool
	HasFrac   bool
	Sign      bool
	IntValue  uint32
	FracValue uint32
}

// Value reconstructs the floating-point coordinate this BitCoord encodes.
func (c BitCoord) Value() float32 {
	v := float32(c.IntValue) + float32(c.FracValue)/(1<<CoordFractionalBits)
	if c.Sign {
		v = -v
	}
	return v
}

// ReadBitCoord decodes a BitCoord.
//
// Grounded on original_source/src/bitstream.c's
// demogobbler_bitstream_read_bitcoord: Exists is set unconditionally once
// the function is entered (the gating on whether an axis is present at all
// happens one level up, in ReadCoordVector's three up-front presence
// bits) — NOT HasInt || HasFrac as a naive reading of the wire layout might
// suggest.
func (b *Bitstream) ReadBitCoord() BitCoord {
	var c BitCoord
	c.Exists = true
	c.HasInt = b.ReadBit()
	c.HasFrac = b.ReadBit()

	if c.HasInt || c.HasFrac {
		c.Sign = b.ReadBit()
		if c.HasInt {
			c.IntValue = uint32(b.ReadUint(CoordIntegerBits))
		}
		if c.HasFrac {
			c.FracValue = uint32(b.ReadUint(CoordFractionalBits))
		}
	}

	return c
}

// BitCoordVector is three independently-present BitCoord axes.
type BitCoordVector struct {
	X, Y, Z BitCoord
}

// ReadCoordVector reads all three axis-presence bits up front, then reads a
// BitCoord for every axis that is present, matching
// demogobbler_bitstream_read_coordvector.
func (b *Bitstream) ReadCoordVector() BitCoordVector {
	hasX := b.ReadBit()
	hasY := b.ReadBit()
	hasZ := b.ReadBit()

	var v BitCoordVector
	if hasX {
		v.X = b.ReadBitCoord()
	}
	if hasY {
		v.Y = b.ReadBitCoord()
	}
	if hasZ {
		v.Z = b.ReadBitCoord()
	}
	return v
}

// BitAngleVector is a fixed-width (x, y, z) triple, each Bits wide, decoded
// as a fraction of a full turn (value = raw * 360 / 2^bits).
//
// Bits is carried on the result (not just passed in by the caller and
// discarded) because original_source/src/bitstream.c's bitangle_vector
// struct stores it alongside x/y/z; callers reconstructing the angle need
// it to scale the raw integers back to degrees.
type BitAngleVector struct {
	X, Y, Z uint32
	Bits    uint
}

// Degrees reconstructs the angle vector in degrees.
func (v BitAngleVector) Degrees() (x, y, z float32) {
	scale := float32(360.0) / float32(uint64(1)<<v.Bits)
	return float32(v.X) * scale, float32(v.Y) * scale, float32(v.Z) * scale
}

// ReadBitVector reads a BitAngleVector with each axis n bits wide.
func (b *Bitstream) ReadBitVector(n uint) BitAngleVector {
	return BitAngleVector{
		X:    uint32(b.ReadUint(n)),
		Y:    uint32(b.ReadUint(n)),
		Z:    uint32(b.ReadUint(n)),
		Bits: n,
	}
}
