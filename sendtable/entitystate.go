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
	"fmt"

	"github.com/lipsanen/demogoblin/internal/excludeset"
)

// maxBaseclassChain bounds the transient baseclass_chain of spec §4.2 and
// §5: a demo whose datatable tree nests deeper than this is a structural
// anomaly the source engine itself would abort on, not a case this package
// tries to grow past.
const maxBaseclassChain = 1024

// EntityState owns the reusable cross-serverclass state and the
// class_datas[] output array described in spec §4.3. It is constructed
// once per Session via NewEntityState.
type EntityState struct {
	session      *Session
	sendTables   []*Sendtable
	serverClasses []Serverclass
	settings     Settings

	dtsWithExcludes *excludeset.NameSet
	classDatas      []FlatClass

	// baseclassChain is reused across ParseServerClass calls the same way
	// session.Excludes and dtsWithExcludes are: cleared at the start of
	// each call, never reallocated.
	baseclassChain        [maxBaseclassChain]uint32
	baseclassCount        int
	baseclassInsertCursor int
}

// NewEntityState builds the datatable name index (spec §4.2 phase 1, done
// once for the whole session) and, when settings.EagerFlatten is set or
// settings.FlattenedPropsHandler is non-nil, flattens every serverclass
// immediately and then invokes the handler; otherwise it leaves them to the
// lazy ServerClassData accessor.
func NewEntityState(sess *Session, sendTables []*Sendtable, serverClasses []Serverclass, settings Settings) (*EntityState, error) {
	e := &EntityState{
		session:         sess,
		sendTables:      sendTables,
		serverClasses:   serverClasses,
		settings:        settings,
		dtsWithExcludes: excludeset.NewNames(sess.Excludes.Cap()),
		classDatas:      make([]FlatClass, len(serverClasses)),
	}

	for i, st := range sendTables {
		if !sess.DTIndex.Insert(st.Name, uint32(i)) {
			err := fmt.Errorf("sendtable: duplicate or unindexable datatable name %q", st.Name)
			sess.Error.Set(err)
			return nil, err
		}
	}

	if settings.EagerFlatten || settings.FlattenedPropsHandler != nil {
		for i := range serverClasses {
			if err := e.ParseServerClass(i); err != nil {
				return nil, err
			}
		}
		if settings.FlattenedPropsHandler != nil {
			settings.FlattenedPropsHandler(e)
		}
	}

	return e, nil
}

// ServerClassData returns class_datas[i], flattening it first if this is
// the first time it has been requested (spec §4.2's "lazy path"). Calling
// it repeatedly is idempotent: the first call computes, later calls are
// no-ops that return the same slice.
func (e *EntityState) ServerClassData(i int) (*FlatClass, error) {
	fc := &e.classDatas[i]
	if fc.Flattened() {
		return fc, nil
	}
	if err := e.ParseServerClass(i); err != nil {
		return nil, err
	}
	return fc, nil
}

// ParseServerClass runs the full six-phase flattening pipeline of spec
// §4.2 for serverclass i, writing the result into classDatas[i]. It
// short-circuits immediately if the session has already faulted, and sets
// the session fault (returning it wrapped as an error) on any structural
// failure of its own.
func (e *EntityState) ParseServerClass(i int) error {
	if e.session.Error.Failed() {
		return e.session.Error.Err()
	}

	dtIndex, ok := e.session.DTIndex.Get(e.serverClasses[i].DataTableName)
	if !ok {
		err := fmt.Errorf("sendtable: no datatable found for serverclass %q (wants %q)",
			e.serverClasses[i].ClassName, e.serverClasses[i].DataTableName)
		e.session.Error.Set(err)
		return err
	}

	e.session.Excludes.Reset()
	e.dtsWithExcludes.Reset()
	e.baseclassCount = 0
	e.baseclassInsertCursor = 0

	root := e.sendTables[dtIndex]

	if err := e.walkExcludes(root); err != nil {
		return err
	}

	maxProps := e.walkSize(root)

	fc := &e.classDatas[i]
	fc.Props = e.session.Arena.Alloc(maxProps)[:0]
	fc.PropCount = 0

	for c := 0; c < e.baseclassCount; c++ {
		e.iterateProps(e.sendTables[e.baseclassChain[c]], fc)
	}
	e.iterateProps(root, fc)
	fc.PropCount = len(fc.Props)
	fc.DTName = root.Name

	e.sortByPriority(fc.Props)

	return nil
}
