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

package sendtable_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lipsanen/demogoblin/sendtable"
)

// Collapsible datatable props splice their children inline instead of
// becoming a recorded baseclass.
func TestCollapsiblePropsAreInlined(t *testing.T) {
	t.Parallel()

	inner := &sendtable.Sendtable{
		Name:  "DT_Inner",
		Props: []sendtable.Sendprop{{Name: "inner_x", Type: sendtable.PropInt}},
	}
	root := &sendtable.Sendtable{
		Name: "DT_Root",
		Props: []sendtable.Sendprop{
			{Name: "collapsed", Type: sendtable.PropDataTable, DTName: "DT_Inner", Flags: sendtable.FlagCollapsible},
			{Name: "root_y", Type: sendtable.PropInt},
		},
	}
	serverClasses := []sendtable.Serverclass{{ClassName: "R", DataTableName: "DT_Root"}}

	sess := sendtable.NewSession(4, "", 4, 4)
	es, err := sendtable.NewEntityState(sess, []*sendtable.Sendtable{inner, root}, serverClasses, sendtable.Settings{})
	require.NoError(t, err)

	fc, err := es.ServerClassData(0)
	require.NoError(t, err)
	require.Equal(t, []string{"inner_x", "root_y"}, names(fc.Props))
}

// A non-collapsible baseclass's props precede the containing subtree's own
// siblings, in insertion order.
func TestBaseclassPropsPrecedeSiblings(t *testing.T) {
	t.Parallel()

	base := &sendtable.Sendtable{
		Name:  "DT_Base",
		Props: []sendtable.Sendprop{{Name: "base_field", Type: sendtable.PropInt}},
	}
	root := &sendtable.Sendtable{
		Name: "DT_Root",
		Props: []sendtable.Sendprop{
			{Name: "baseclass", Type: sendtable.PropDataTable, DTName: "DT_Base"},
			{Name: "own_field", Type: sendtable.PropInt},
		},
	}
	serverClasses := []sendtable.Serverclass{{ClassName: "R", DataTableName: "DT_Root"}}

	sess := sendtable.NewSession(4, "", 4, 4)
	es, err := sendtable.NewEntityState(sess, []*sendtable.Sendtable{base, root}, serverClasses, sendtable.Settings{})
	require.NoError(t, err)

	fc, err := es.ServerClassData(0)
	require.NoError(t, err)
	require.Equal(t, []string{"base_field", "own_field"}, names(fc.Props))
}

// prop_count never exceeds the max_props computed by the size pass, and
// inside-array props never reach the flattened output.
func TestPropCountRespectsMaxPropsAndInsideArrayIsExcluded(t *testing.T) {
	t.Parallel()

	root := &sendtable.Sendtable{
		Name: "DT_Array",
		Props: []sendtable.Sendprop{
			{Name: "visible", Type: sendtable.PropInt},
			{Name: "hidden_in_array", Type: sendtable.PropInt, Flags: sendtable.FlagInsideArray},
		},
	}
	serverClasses := []sendtable.Serverclass{{ClassName: "Arr", DataTableName: "DT_Array"}}

	sess := sendtable.NewSession(4, "", 4, 4)
	es, err := sendtable.NewEntityState(sess, []*sendtable.Sendtable{root}, serverClasses, sendtable.Settings{})
	require.NoError(t, err)

	fc, err := es.ServerClassData(0)
	require.NoError(t, err)
	require.LessOrEqual(t, fc.PropCount, cap(fc.Props))
	require.Equal(t, []string{"visible"}, names(fc.Props))
}

// Excludes and baseclass-chain state from one serverclass must not leak
// into the next.
func TestStateIsResetAcrossServerClasses(t *testing.T) {
	t.Parallel()

	dtU := &sendtable.Sendtable{
		Name:  "DT_U",
		Props: []sendtable.Sendprop{{Name: "m_vecOrigin", Type: sendtable.PropFloat}},
	}
	excluder := &sendtable.Sendtable{
		Name: "DT_Excluder",
		Props: []sendtable.Sendprop{
			{Name: "baseclass", Type: sendtable.PropDataTable, DTName: "DT_U"},
			{Name: "m_vecOrigin", ExcludeName: "DT_U", Flags: sendtable.FlagExclude},
		},
	}
	plain := &sendtable.Sendtable{
		Name: "DT_Plain",
		Props: []sendtable.Sendprop{
			{Name: "baseclass", Type: sendtable.PropDataTable, DTName: "DT_U"},
		},
	}
	serverClasses := []sendtable.Serverclass{
		{ClassName: "Excluder", DataTableName: "DT_Excluder"},
		{ClassName: "Plain", DataTableName: "DT_Plain"},
	}

	sess := sendtable.NewSession(4, "", 4, 4)
	es, err := sendtable.NewEntityState(sess, []*sendtable.Sendtable{dtU, excluder, plain}, serverClasses, sendtable.Settings{})
	require.NoError(t, err)

	fcExcluder, err := es.ServerClassData(0)
	require.NoError(t, err)
	require.Equal(t, []string{}, names(fcExcluder.Props))

	fcPlain, err := es.ServerClassData(1)
	require.NoError(t, err)
	require.Equal(t, []string{"m_vecOrigin"}, names(fcPlain.Props))
}
