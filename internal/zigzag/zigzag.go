// Copyright 2025 Buf Technologies, Inc.
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

// Package zigzag decodes the zigzag-interleaved signed integers used by
// the varint codecs in package bitstream: 0, -1, 1, -2, 2 ... map to wire
// values 0, 1, 2, 3, 4, so that small magnitudes (positive or negative)
// stay cheap to encode regardless of sign.
package zigzag

// Signed is any integer width this package decodes into.
type Signed interface {
	~int32 | ~int64
}

// Decode un-interleaves a zigzag-encoded raw value back to its signed
// form: Decode[int32](1) == -1, Decode[int32](2) == 1.
func Decode[T Signed](raw uint64) T {
	return T(raw>>1) ^ -T(raw&1)
}
