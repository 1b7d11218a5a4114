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

import "fmt"

// walkExcludes implements spec §4.2 phase 2: recursively walk the
// datatable tree rooted at table, resolving each datatable prop's
// baseclass by name (memoizing the resolution onto the prop so later
// phases don't repeat the lookup) and recording every exclude-flagged
// prop into the session's exclude set and this EntityState's
// dts_with_excludes name set.
func (e *EntityState) walkExcludes(table *Sendtable) error {
	for i := range table.Props {
		prop := &table.Props[i]

		if prop.Type == PropDataTable {
			if prop.BaseClass == nil {
				idx, ok := e.session.DTIndex.Get(prop.DTName)
				if !ok {
					err := fmt.Errorf("sendtable: no datatable found for nested prop %q (wants %q)", prop.Name, prop.DTName)
					e.session.Error.Set(err)
					return err
				}
				prop.BaseClass = e.sendTables[idx]
			}
			if err := e.walkExcludes(prop.BaseClass); err != nil {
				return err
			}
		}

		if prop.Flags.Has(FlagExclude) {
			if !e.session.Excludes.Insert(prop.ExcludeName, prop.Name) {
				err := fmt.Errorf("sendtable: exclude set exhausted while excluding %q from %q", prop.Name, prop.ExcludeName)
				e.session.Error.Set(err)
				return err
			}
			e.dtsWithExcludes.Insert(prop.ExcludeName)
		}
	}
	return nil
}

// walkSize implements spec §4.2 phase 3: walks the same tree, counting the
// leaf, non-excluded, non-inside-array props reachable from table, and
// building this EntityState's transient baseclass_chain along the way.
func (e *EntityState) walkSize(table *Sendtable) int {
	excludedHere := e.dtsWithExcludes.Has(table.Name)
	maxProps := 0

	for i := range table.Props {
		prop := &table.Props[i]

		if excludedHere && e.session.Excludes.Has(table.Name, prop.Name) {
			continue
		}

		if prop.Type == PropDataTable {
			if prop.Flags.Has(FlagCollapsible) {
				maxProps += e.walkSize(prop.BaseClass)
				continue
			}
			e.addBaseclass(e.indexOf(prop.BaseClass))
			maxProps += e.walkSize(prop.BaseClass)
			e.baseclassInsertCursor++
			continue
		}

		if !prop.Flags.Has(FlagInsideArray) && !prop.Flags.Has(FlagExclude) {
			maxProps++
		}
	}

	return maxProps
}

// indexOf resolves table's position in sendTables via the session's
// datatable index, reusing the same lookup walkExcludes already primed.
func (e *EntityState) indexOf(table *Sendtable) uint32 {
	idx, _ := e.session.DTIndex.Get(table.Name)
	return idx
}

// addBaseclass inserts idx into baseclassChain at baseclassInsertCursor,
// shifting every later entry up by one slot — the memmove pattern spec
// §4.2 describes for the source implementation's "insert at cursor"
// semantics. Panics if the chain exceeds maxBaseclassChain, matching the
// original's abort-on-overflow contract (spec §5).
func (e *EntityState) addBaseclass(idx uint32) {
	if e.baseclassCount >= maxBaseclassChain {
		panic("sendtable: baseclass chain exceeded its 1024-entry bound")
	}

	copy(e.baseclassChain[e.baseclassInsertCursor+1:e.baseclassCount+1], e.baseclassChain[e.baseclassInsertCursor:e.baseclassCount])
	e.baseclassChain[e.baseclassInsertCursor] = idx
	e.baseclassCount++
}

// iterateProps implements spec §4.2 phase 5's iterate_props helper,
// appending shallow copies of table's non-excluded, non-inside-array leaf
// props to fc.Props, recursing into collapsible datatable props only.
func (e *EntityState) iterateProps(table *Sendtable, fc *FlatClass) {
	excludedHere := e.dtsWithExcludes.Has(table.Name)

	for i := range table.Props {
		prop := &table.Props[i]

		if prop.Type == PropDataTable {
			if prop.Flags.Has(FlagCollapsible) {
				e.iterateProps(prop.BaseClass, fc)
			}
			continue
		}

		if prop.Flags.Has(FlagExclude) || prop.Flags.Has(FlagInsideArray) {
			continue
		}
		if excludedHere && e.session.Excludes.Has(table.Name, prop.Name) {
			continue
		}

		fc.Props = append(fc.Props, *prop)
	}
}
