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

import "sort"

// changesOftenCap is the priority ceiling spec §4.2 phase 6 imposes on
// flag_changesoften props under the protocol>=4, non-l4d sort rule.
const changesOftenCap = 64

// effectivePriority returns the priority value the sweep sort actually
// keys on: flag_changesoften coerces anything at or above
// changesOftenCap down to it.
func effectivePriority(p Sendprop) uint8 {
	if p.Flags.Has(FlagChangesOften) && p.Priority >= changesOftenCap {
		return changesOftenCap
	}
	return p.Priority
}

// sortByPriority implements spec §4.2 phase 6's two sort rules, selecting
// between them based on the owning session's protocol and game variant.
func (e *EntityState) sortByPriority(props []Sendprop) {
	if e.session.usesPrioritySweep() {
		sort.SliceStable(props, func(i, j int) bool {
			return effectivePriority(props[i]) < effectivePriority(props[j])
		})
		return
	}

	// Older protocols and the l4d variant: bubble changesoften props to
	// the front, preserving relative order on both sides of the split.
	sort.SliceStable(props, func(i, j int) bool {
		ci := props[i].Flags.Has(FlagChangesOften)
		cj := props[j].Flags.Has(FlagChangesOften)
		return ci && !cj
	})
}
