package selection

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cementops/admin/internal/remote"
)

var children = []remote.SubRegion{
	{ID: 10, Name: "N1", ParentID: 1},
	{ID: 11, Name: "N2", ParentID: 1},
	{ID: 20, Name: "S1", ParentID: 2},
	{ID: 30, Name: "orphan", ParentID: 0},
}

func TestVisibleChildren_NorthScenario(t *testing.T) {
	c := NewController(State{})
	c.SetChildren([]remote.SubRegion{{ID: 10, Name: "N1", ParentID: 1}})

	c.SelectParent(1)
	assert.Equal(t, []remote.SubRegion{{ID: 10, Name: "N1", ParentID: 1}}, c.VisibleChildren())
}

func TestVisibleChildren_ExactSubsetForEveryParent(t *testing.T) {
	for _, p := range []int64{1, 2, 3} {
		s := Reduce(State{}, SelectParent{ID: p}, children)
		got := VisibleChildren(children, s)

		want := []remote.SubRegion{}
		for _, c := range children {
			if c.ParentID == p {
				want = append(want, c)
			}
		}
		assert.Equal(t, want, got, "parent %d", p)
	}
}

func TestVisibleChildren_EmptyWithoutParent(t *testing.T) {
	assert.Empty(t, VisibleChildren(children, State{}))
	assert.True(t, ChildDisabled(children, State{}))
	assert.Equal(t, NoParentSelected, State{}.Phase())
}

func TestSelectParent_AlwaysClearsChild(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	c := NewController(State{})
	c.SetChildren(children)

	for i := 0; i < 200; i++ {
		c.SelectParent(int64(rng.Intn(3) + 1))
		assert.False(t, c.State().ChildID.IsSet(), "step %d", i)
		assert.Equal(t, ParentSelected, c.State().Phase())

		if vis := c.VisibleChildren(); len(vis) > 0 {
			require.NoError(t, c.SelectChild(vis[rng.Intn(len(vis))].ID))
		}
	}
}

func TestSelectParent_SameParentStillClears(t *testing.T) {
	s := State{ParentID: Some(1), ChildID: Some(10)}
	s = Reduce(s, SelectParent{ID: 1}, children)
	assert.Equal(t, State{ParentID: Some(1)}, s)
}

func TestSelectChild_OutsideVisibleSetIsRejected(t *testing.T) {
	c := NewController(State{})
	c.SetChildren(children)

	require.ErrorIs(t, c.SelectChild(10), ErrChildUnavailable)

	c.SelectParent(2)
	require.ErrorIs(t, c.SelectChild(10), ErrChildUnavailable)
	assert.False(t, c.State().ChildID.IsSet())

	require.NoError(t, c.SelectChild(20))
	assert.Equal(t, Some(20), c.State().ChildID)
}

func TestChildrenArrivingLate(t *testing.T) {
	c := NewController(State{})
	c.SelectParent(1)
	assert.True(t, c.ChildDisabled())

	c.SetChildren(children)
	assert.False(t, c.ChildDisabled())
	assert.Len(t, c.VisibleChildren(), 2)
}

func TestChildDisabled_ParentWithoutChildren(t *testing.T) {
	s := Reduce(State{}, SelectParent{ID: 3}, children)
	assert.True(t, ChildDisabled(children, s))
}

func TestClearParent(t *testing.T) {
	c := NewController(State{ParentID: Some(1), ChildID: Some(10)})
	c.ClearParent()
	assert.Equal(t, State{}, c.State())
	assert.Equal(t, NoParentSelected, c.State().Phase())
}

func TestFromDepot(t *testing.T) {
	assert.Equal(t, State{ParentID: Some(1), ChildID: Some(11)}, FromDepot(remote.Depot{ParentID: 1, ChildID: 11}))
	assert.Equal(t, State{}, FromDepot(remote.Depot{ChildID: 11}))
	assert.Equal(t, State{ParentID: Some(2)}, FromDepot(remote.Depot{ParentID: 2}))
}

func TestStateJSON(t *testing.T) {
	raw, err := json.Marshal(State{ParentID: Some(1)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"parentId":1,"childId":null}`, string(raw))
}

func TestStateJSONDecode(t *testing.T) {
	var s State
	require.NoError(t, json.Unmarshal([]byte(`{"parentId":2,"childId":null}`), &s))
	assert.Equal(t, State{ParentID: Some(2)}, s)

	require.Error(t, json.Unmarshal([]byte(`{"parentId":"x"}`), &s))
}
