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

import "github.com/lipsanen/demogoblin/internal/zigzag"

// ReadVarUint32 reads a base-128 varint: up to 5 groups of (1 continuation
// bit + 7 payload bits), little group first, matching
// original_source/src/bitstream.c's demogobbler_bitstream_read_varuint32
// bit-for-bit.
func (b *Bitstream) ReadVarUint32() uint32 {
	var result uint32
	for i := uint(0); i < 5; i++ {
		group := b.ReadUint(8)
		result |= uint32(group&0x7f) << (7 * i)
		if group&0x80 == 0 {
			break
		}
	}
	return result
}

// ReadVarSint32 reads a varuint32 and zigzag-decodes it.
func (b *Bitstream) ReadVarSint32() int32 {
	return zigzag.Decode[int32](uint64(b.ReadVarUint32()))
}
