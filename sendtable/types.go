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

// Package sendtable implements the entity-state initializer: given a
// parsed tree of send tables and the serverclass list that names their
// roots, it produces one FlatClass per serverclass — a flat, priority
// sorted array of the props that actually appear on the wire for that
// class, ready for entity-delta decoding to consume.
//
// Grounded on original_source/src/parser_entity_state.c, whose
// parse_serverclass is the direct ancestor of EntityState.ParseServerClass;
// the container types it leans on (internal/nametable, internal/excludeset,
// internal/arena) are adapted from the teacher's internal/swiss and
// internal/arena packages.
package sendtable

import "github.com/tiendc/go-deepcopy"

// PropType enumerates the wire categories a Sendprop can have.
type PropType int

const (
	PropInt PropType = iota
	PropFloat
	PropVec3
	PropVec2
	PropString
	PropArray
	PropDataTable
	PropInt64
)

// PropFlags are the per-prop bits that drive flattening, matching the
// source engine's SendPropFlags.
type PropFlags uint32

const (
	FlagExclude PropFlags = 1 << iota
	FlagInsideArray
	FlagCollapsible
	FlagChangesOften
)

// Has reports whether every bit in want is set in f.
func (f PropFlags) Has(want PropFlags) bool { return f&want == want }

// Sendprop is one entry of a Sendtable, as produced by the upstream
// send-table parser (out of scope for this package — it is an input).
type Sendprop struct {
	Name        string
	ExcludeName string // Non-empty only when Flags.Has(FlagExclude).
	DTName      string // Target datatable name, for PropDataTable props.
	BaseClass   *Sendtable
	Type        PropType
	Priority    uint8
	Flags       PropFlags
	Props       []Sendprop // Only meaningful on the datatable sendtables themselves.
}

// Sendtable is a named, flat list of Sendprop — a node in the datatable
// tree.
type Sendtable struct {
	Name  string
	Props []Sendprop
}

// Serverclass names the datatable tree root a network entity class is
// flattened from.
type Serverclass struct {
	ClassName    string
	DataTableName string
}

// FlatClass is the output of flattening one Serverclass: its props in
// final network-decode order. DTName is empty until the class has been
// flattened (used by the lazy accessor to detect "not yet computed").
type FlatClass struct {
	DTName    string     `yaml:"dt_name"`
	Props     []Sendprop `yaml:"props"`
	PropCount int        `yaml:"prop_count"`
}

// Flattened reports whether this class has already been processed.
func (c *FlatClass) Flattened() bool { return c.DTName != "" }

// Clone returns a deep copy of c, independent of the arena c.Props was
// allocated from. Callers that need to retain a FlatClass past the owning
// Session's Release (e.g. to print it after the session's arena has been
// torn down) should Clone it first.
func (c *FlatClass) Clone() (FlatClass, error) {
	var out FlatClass
	if err := deepcopy.Copy(&out, c); err != nil {
		return FlatClass{}, err
	}
	return out, nil
}
