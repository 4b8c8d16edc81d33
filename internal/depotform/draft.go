package depotform

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"cementops/admin/internal/remote"
	"cementops/admin/internal/selection"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Draft is the depot form as submitted. Ids stay strings until validation so
// that an unselected control ("") is distinguishable from a bad value.
type Draft struct {
	Name     string `json:"name" form:"name" validate:"required"`
	ParentID string `json:"parentId" form:"parentId" validate:"required,number"`
	ChildID  string `json:"childId" form:"childId" validate:"required,number"`
}

// EmptyDraft is the state the add form starts in and returns to after a
// successful create.
func EmptyDraft() Draft { return Draft{} }

// DraftFrom builds the draft from the form name and the current selection.
func DraftFrom(name string, s selection.State) Draft {
	d := Draft{Name: name}
	if v, ok := s.ParentID.Get(); ok {
		d.ParentID = strconv.FormatInt(v, 10)
	}
	if v, ok := s.ChildID.Get(); ok {
		d.ChildID = strconv.FormatInt(v, 10)
	}
	return d
}

func (d *Draft) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.ParentID = strings.TrimSpace(d.ParentID)
	d.ChildID = strings.TrimSpace(d.ChildID)
}

// ValidationError lists the offending fields with a message per field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "invalid depot: " + strings.Join(keys, ", ")
}

var fieldKeys = map[string]string{
	"Name":     "name",
	"ParentID": "parentId",
	"ChildID":  "childId",
}

var fieldLabels = map[string]string{
	"name":     "Name",
	"parentId": "Region",
	"childId":  "Sub-region",
}

// Validate checks required fields, that the region is one of parents and that
// the sub-region belongs to it, then returns the integer body for the API.
func (d Draft) Validate(parents []remote.Region, children []remote.SubRegion) (remote.DepotWrite, error) {
	d.Normalize()

	fields := map[string]string{}
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return remote.DepotWrite{}, err
		}
		for _, fe := range verrs {
			key := fieldKeys[fe.StructField()]
			switch fe.Tag() {
			case "required":
				fields[key] = fieldLabels[key] + " is required"
			default:
				fields[key] = fieldLabels[key] + " is invalid"
			}
		}
		return remote.DepotWrite{}, &ValidationError{Fields: fields}
	}

	parentID, err := strconv.ParseInt(d.ParentID, 10, 64)
	switch {
	case err != nil || parentID <= 0:
		fields["parentId"] = "Region is invalid"
	case !knownRegion(parents, parentID):
		fields["parentId"] = "Region is not available"
	}
	childID, err := strconv.ParseInt(d.ChildID, 10, 64)
	if err != nil {
		fields["childId"] = "Sub-region is invalid"
	}
	if len(fields) > 0 {
		return remote.DepotWrite{}, &ValidationError{Fields: fields}
	}

	s := selection.State{ParentID: selection.Some(parentID)}
	if !selection.Selectable(children, s, childID) {
		return remote.DepotWrite{}, &ValidationError{Fields: map[string]string{
			"childId": "Sub-region does not belong to the selected region",
		}}
	}

	return remote.DepotWrite{Name: d.Name, RegionID: parentID, SubRegionID: childID}, nil
}

func knownRegion(parents []remote.Region, id int64) bool {
	for _, r := range parents {
		if r.ID == id {
			return true
		}
	}
	return false
}
