package directory

import (
	"strings"

	"github.com/noah-isme/userdesk/internal/reqres"
)

// User is the transient, possibly stale copy of a remote directory entry.
type User = reqres.User

// Patch is a partial update of a user's editable fields.
type Patch = reqres.UserPatch

// Field names a searchable or sortable user attribute.
type Field string

// Supported fields. FieldAll is only meaningful for filtering.
const (
	FieldAll       Field = "all"
	FieldFirstName Field = "first_name"
	FieldLastName  Field = "last_name"
	FieldEmail     Field = "email"
)

// SortableFields lists fields accepted by a SortSpec, in display order.
var SortableFields = []Field{FieldFirstName, FieldLastName, FieldEmail}

// ParseField maps raw input to a filter field, falling back to FieldAll.
func ParseField(raw string) Field {
	switch f := Field(strings.TrimSpace(raw)); f {
	case FieldFirstName, FieldLastName, FieldEmail:
		return f
	default:
		return FieldAll
	}
}

func (f Field) sortable() bool {
	return f == FieldFirstName || f == FieldLastName || f == FieldEmail
}

// value returns the field's string representation for u.
func (f Field) value(u User) string {
	switch f {
	case FieldFirstName:
		return u.FirstName
	case FieldLastName:
		return u.LastName
	case FieldEmail:
		return u.Email
	default:
		return ""
	}
}

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortSpec orders a sequence by one field. The zero value means no sorting.
type SortSpec struct {
	Field     Field
	Direction Direction
}

// NoSort is the explicit "none" sort.
var NoSort = SortSpec{}

// None reports whether the spec leaves order untouched.
func (s SortSpec) None() bool {
	return !s.Field.sortable()
}

// String encodes the spec as "field-direction", or "none".
func (s SortSpec) String() string {
	if s.None() {
		return "none"
	}
	return string(s.Field) + "-" + string(s.Direction)
}

// ParseSort decodes "field-direction". Anything unrecognised is NoSort.
func ParseSort(raw string) SortSpec {
	field, dir, ok := strings.Cut(strings.TrimSpace(raw), "-")
	if !ok {
		return NoSort
	}
	spec := SortSpec{Field: Field(field), Direction: Direction(dir)}
	if !spec.Field.sortable() || (spec.Direction != Asc && spec.Direction != Desc) {
		return NoSort
	}
	return spec
}

// FilterSpec restricts a sequence to users matching a search term.
type FilterSpec struct {
	Term  string
	Field Field
}

// Query bundles everything the list view derives from its inputs.
type Query struct {
	Filter FilterSpec
	Sort   SortSpec
}

// Active reports whether any filter or sort is applied.
func (q Query) Active() bool {
	return q.Filter.Term != "" || (q.Filter.Field != "" && q.Filter.Field != FieldAll) || !q.Sort.None()
}

// PageState is the list view-model's snapshot.
type PageState struct {
	Items       []User
	CurrentPage int
	TotalPages  int
	Loading     bool
	Loaded      bool
}
