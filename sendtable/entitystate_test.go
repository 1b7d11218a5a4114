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

func names(props []sendtable.Sendprop) []string {
	out := make([]string, len(props))
	for i, p := range props {
		out[i] = p.Name
	}
	return out
}

// Scenario 5: protocol >= 4 sweeps by effective priority, capping
// changesoften props at 64.
func TestSortScenarioPrioritySweep(t *testing.T) {
	t.Parallel()

	root := &sendtable.Sendtable{
		Name: "DT_A",
		Props: []sendtable.Sendprop{
			{Name: "p1", Type: sendtable.PropInt, Priority: 10},
			{Name: "p2", Type: sendtable.PropInt, Priority: 70, Flags: sendtable.FlagChangesOften},
		},
	}
	serverClasses := []sendtable.Serverclass{{ClassName: "A", DataTableName: "DT_A"}}

	sess := sendtable.NewSession(4, "", 4, 4)
	es, err := sendtable.NewEntityState(sess, []*sendtable.Sendtable{root}, serverClasses, sendtable.Settings{})
	require.NoError(t, err)

	fc, err := es.ServerClassData(0)
	require.NoError(t, err)
	require.Equal(t, []string{"p1", "p2"}, names(fc.Props))
}

// Scenario 5's older-protocol counterpart: changesoften bubbles to front.
func TestSortScenarioChangesOftenBubble(t *testing.T) {
	t.Parallel()

	root := &sendtable.Sendtable{
		Name: "DT_A",
		Props: []sendtable.Sendprop{
			{Name: "p1", Type: sendtable.PropInt, Priority: 10},
			{Name: "p2", Type: sendtable.PropInt, Priority: 70, Flags: sendtable.FlagChangesOften},
		},
	}
	serverClasses := []sendtable.Serverclass{{ClassName: "A", DataTableName: "DT_A"}}

	sess := sendtable.NewSession(3, "", 4, 4)
	es, err := sendtable.NewEntityState(sess, []*sendtable.Sendtable{root}, serverClasses, sendtable.Settings{})
	require.NoError(t, err)

	fc, err := es.ServerClassData(0)
	require.NoError(t, err)
	require.Equal(t, []string{"p2", "p1"}, names(fc.Props))
}

// Scenario 6: an excluded prop never appears in the flattened output, even
// though it's reachable through a non-collapsible baseclass.
func TestExclusionScenario(t *testing.T) {
	t.Parallel()

	dtU := &sendtable.Sendtable{
		Name:  "DT_U",
		Props: []sendtable.Sendprop{{Name: "m_vecOrigin", Type: sendtable.PropFloat}},
	}
	dtRoot := &sendtable.Sendtable{
		Name: "DT_Root",
		Props: []sendtable.Sendprop{
			{Name: "baseclass", Type: sendtable.PropDataTable, DTName: "DT_U"},
			{Name: "m_vecOrigin", ExcludeName: "DT_U", Flags: sendtable.FlagExclude},
			{Name: "p1", Type: sendtable.PropInt},
		},
	}
	serverClasses := []sendtable.Serverclass{{ClassName: "C", DataTableName: "DT_Root"}}

	sess := sendtable.NewSession(4, "", 4, 4)
	es, err := sendtable.NewEntityState(sess, []*sendtable.Sendtable{dtU, dtRoot}, serverClasses, sendtable.Settings{})
	require.NoError(t, err)

	fc, err := es.ServerClassData(0)
	require.NoError(t, err)
	require.Equal(t, []string{"p1"}, names(fc.Props))
	require.NotContains(t, names(fc.Props), "m_vecOrigin")
}

func TestServerClassDataIsIdempotent(t *testing.T) {
	t.Parallel()

	root := &sendtable.Sendtable{
		Name:  "DT_A",
		Props: []sendtable.Sendprop{{Name: "p1", Type: sendtable.PropInt}},
	}
	serverClasses := []sendtable.Serverclass{{ClassName: "A", DataTableName: "DT_A"}}

	sess := sendtable.NewSession(4, "", 4, 4)
	es, err := sendtable.NewEntityState(sess, []*sendtable.Sendtable{root}, serverClasses, sendtable.Settings{})
	require.NoError(t, err)

	fc1, err := es.ServerClassData(0)
	require.NoError(t, err)
	fc2, err := es.ServerClassData(0)
	require.NoError(t, err)
	require.Same(t, fc1, fc2)
	require.Equal(t, fc1.Props, fc2.Props)
}

func TestUnknownDataTableIsFatal(t *testing.T) {
	t.Parallel()

	serverClasses := []sendtable.Serverclass{{ClassName: "Ghost", DataTableName: "DT_Missing"}}

	sess := sendtable.NewSession(4, "", 4, 4)
	_, err := sendtable.NewEntityState(sess, nil, serverClasses, sendtable.Settings{EagerFlatten: true})
	require.Error(t, err)
	require.True(t, sess.Error.Failed())
}

func TestEagerFlattenInvokesHandlerOnce(t *testing.T) {
	t.Parallel()

	root := &sendtable.Sendtable{
		Name:  "DT_A",
		Props: []sendtable.Sendprop{{Name: "p1", Type: sendtable.PropInt}},
	}
	serverClasses := []sendtable.Serverclass{{ClassName: "A", DataTableName: "DT_A"}}

	calls := 0
	sess := sendtable.NewSession(4, "", 4, 4)
	_, err := sendtable.NewEntityState(sess, []*sendtable.Sendtable{root}, serverClasses, sendtable.Settings{
		EagerFlatten: true,
		FlattenedPropsHandler: func(*sendtable.EntityState) {
			calls++
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}
