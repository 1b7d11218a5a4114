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

// fieldIndexTerminator is the sentinel delta value read_field_index treats
// as "no more fields in this update", per spec §4.1.
const fieldIndexTerminator = 0xfff

// ReadFieldIndex decodes the next field index in a prop-delta list, given
// the previously returned index (start the list with last = -1) and
// whether the stream uses the post-protocol-change ("new way") encoding.
//
// Two forms, per spec §4.1:
//   - newWay and the stream's next bit is 1: the index is exactly last+1.
//   - otherwise a selector bit picks between a 3-bit payload and a 7-bit
//     payload (the latter extended by 2, 4, or 7 further bits depending on
//     its top two bits), which is added to last+1 to get the absolute
//     index; the reserved value 0xfff signals end-of-list, returned as -1.
func (b *Bitstream) ReadFieldIndex(last int32, newWay bool) int32 {
	if newWay && b.ReadBit() {
		return last + 1
	}

	var delta uint32
	if newWay && b.ReadBit() {
		delta = uint32(b.ReadUint(3))
	} else {
		delta = uint32(b.ReadUint(7))
		switch delta & (32 | 64) {
		case 32:
			delta = (delta &^ 96) | (uint32(b.ReadUint(2)) << 5)
		case 64:
			delta = (delta &^ 96) | (uint32(b.ReadUint(4)) << 5)
		case 96:
			delta = (delta &^ 96) | (uint32(b.ReadUint(7)) << 5)
		}
	}

	if delta == fieldIndexTerminator {
		return -1
	}

	return last + 1 + int32(delta)
}
