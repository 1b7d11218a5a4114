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

package sendtable

import (
	"github.com/google/uuid"

	"github.com/lipsanen/demogoblin/internal/arena"
	"github.com/lipsanen/demogoblin/internal/excludeset"
	"github.com/lipsanen/demogoblin/internal/nametable"
	"github.com/lipsanen/demogoblin/internal/session"
)

// Session is the per-demo-file owner of every piece of state the
// flattener touches: the datatable name index, the reusable exclude sets,
// the output arena, and the sticky structural-error flag. Exactly one
// Session exists per demo file and it is never shared across goroutines —
// cmd/demodump's concurrency is strictly across independent Sessions, never
// inside one.
type Session struct {
	ID       uuid.UUID
	Protocol int
	Game     string

	Arena    *arena.Arena[Sendprop]
	DTIndex  *nametable.Table
	Excludes *excludeset.Set
	Error    *session.Fault
}

// NewSession constructs a Session ready to back one EntityState. dtBuckets
// bounds the datatable-name index; excludeCapacity bounds the prop-exclude
// set (both are fixed-capacity containers reused across serverclasses, per
// spec §4.2's "shared state across serverclasses").
func NewSession(protocol int, game string, dtBuckets, excludeCapacity int) *Session {
	return &Session{
		ID:       uuid.New(),
		Protocol: protocol,
		Game:     game,
		Arena:    arena.New[Sendprop](),
		DTIndex:  nametable.New(dtBuckets),
		Excludes: excludeset.New(excludeCapacity),
		Error:    &session.Fault{},
	}
}

// isL4D reports whether Game names the "l4d" variant the spec calls out
// as using the older changesoften-first sort rule alongside pre-protocol-4
// demos.
func (s *Session) isL4D() bool {
	return s.Game == "l4d" || s.Game == "left4dead" || s.Game == "left4dead2"
}

// usesPrioritySweep reports whether this session's protocol/game
// combination uses the protocol>=4, non-l4d priority-sweep sort (spec §4.2
// phase 6), as opposed to the older changesoften-first bubble.
func (s *Session) usesPrioritySweep() bool {
	return s.Protocol >= 4 && !s.isL4D()
}

// Settings configures an EntityState's construction: whether to flatten
// every serverclass eagerly up front (invoking FlattenedPropsHandler once
// done) or defer each one to its first ServerClassData call. Flattening is
// eager when EagerFlatten is set or FlattenedPropsHandler is non-nil.
type Settings struct {
	EagerFlatten          bool
	FlattenedPropsHandler func(*EntityState)
}
