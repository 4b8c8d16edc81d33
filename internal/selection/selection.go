// Package selection keeps a region/sub-region pair consistent. Changing the
// region always invalidates the sub-region; the visible sub-regions are
// derived on every read and never cached.
package selection

import (
	"encoding/json"
	"errors"

	"cementops/admin/internal/remote"
)

// ErrChildUnavailable is returned when a sub-region outside the visible set is
// chosen. The state is left unchanged.
var ErrChildUnavailable = errors.New("sub-region not selectable for the current region")

// ID is an optional identifier.
type ID struct {
	value int64
	set   bool
}

var None ID

func Some(v int64) ID { return ID{value: v, set: true} }

// FromInt treats zero as unset, matching how the API reports missing refs.
func FromInt(v int64) ID {
	if v == 0 {
		return None
	}
	return Some(v)
}

func (i ID) Get() (int64, bool) { return i.value, i.set }
func (i ID) IsSet() bool        { return i.set }

func (i ID) MarshalJSON() ([]byte, error) {
	if !i.set {
		return []byte("null"), nil
	}
	return json.Marshal(i.value)
}

func (i *ID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*i = None
		return nil
	}
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*i = Some(v)
	return nil
}

type Phase int

const (
	NoParentSelected Phase = iota
	ParentSelected
)

func (p Phase) String() string {
	if p == ParentSelected {
		return "parent_selected"
	}
	return "no_parent_selected"
}

type State struct {
	ParentID ID `json:"parentId"`
	ChildID  ID `json:"childId"`
}

func (s State) Phase() Phase {
	if s.ParentID.IsSet() {
		return ParentSelected
	}
	return NoParentSelected
}

// FromDepot pre-populates the state of the edit and view flows.
func FromDepot(d remote.Depot) State {
	parent := FromInt(d.ParentID)
	if !parent.IsSet() {
		return State{}
	}
	return State{ParentID: parent, ChildID: FromInt(d.ChildID)}
}

type Action interface{ action() }

type SelectParent struct{ ID int64 }
type SelectChild struct{ ID int64 }
type ClearParent struct{}

func (SelectParent) action() {}
func (SelectChild) action()  {}
func (ClearParent) action()  {}

// Reduce is the single transition function. children is the collection the
// SelectChild guard is evaluated against.
func Reduce(s State, a Action, children []remote.SubRegion) State {
	switch a := a.(type) {
	case SelectParent:
		return State{ParentID: Some(a.ID)}
	case ClearParent:
		return State{}
	case SelectChild:
		if !Selectable(children, s, a.ID) {
			return s
		}
		s.ChildID = Some(a.ID)
		return s
	}
	return s
}

// VisibleChildren returns the children whose parent is the selected one.
// Nothing is visible until a parent is chosen.
func VisibleChildren(children []remote.SubRegion, s State) []remote.SubRegion {
	out := []remote.SubRegion{}
	parent, ok := s.ParentID.Get()
	if !ok {
		return out
	}
	for _, c := range children {
		if c.ParentID == parent {
			out = append(out, c)
		}
	}
	return out
}

func Selectable(children []remote.SubRegion, s State, childID int64) bool {
	for _, c := range VisibleChildren(children, s) {
		if c.ID == childID {
			return true
		}
	}
	return false
}

// ChildDisabled reports whether the sub-region control accepts no input.
func ChildDisabled(children []remote.SubRegion, s State) bool {
	return len(VisibleChildren(children, s)) == 0
}

// Controller holds the state of one form together with the latest children
// collection, which may arrive after a parent was already chosen.
type Controller struct {
	state    State
	children []remote.SubRegion
}

func NewController(initial State) *Controller {
	return &Controller{state: initial}
}

func (c *Controller) SetChildren(children []remote.SubRegion) {
	c.children = children
}

func (c *Controller) SelectParent(id int64) {
	c.state = Reduce(c.state, SelectParent{ID: id}, c.children)
}

func (c *Controller) ClearParent() {
	c.state = Reduce(c.state, ClearParent{}, c.children)
}

func (c *Controller) SelectChild(id int64) error {
	if !Selectable(c.children, c.state, id) {
		return ErrChildUnavailable
	}
	c.state = Reduce(c.state, SelectChild{ID: id}, c.children)
	return nil
}

func (c *Controller) State() State { return c.state }

func (c *Controller) VisibleChildren() []remote.SubRegion {
	return VisibleChildren(c.children, c.state)
}

func (c *Controller) ChildDisabled() bool {
	return ChildDisabled(c.children, c.state)
}

// Reset returns to the empty state.
func (c *Controller) Reset() {
	c.state = State{}
}
