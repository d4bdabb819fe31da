package directory

import (
	"slices"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Engine derives the visible sequence from a loaded page. It holds no mutable
// state and is safe for concurrent use; collators are built per call.
type Engine struct {
	tag language.Tag
}

// NewEngine returns an Engine ordering strings for the given BCP 47 locale.
// Unparseable locales fall back to English.
func NewEngine(locale string) Engine {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return Engine{tag: tag}
}

// Apply filters then stable-sorts items. The input slice is never modified.
func (e Engine) Apply(items []User, filter FilterSpec, sort SortSpec) []User {
	result := e.Filter(items, filter)
	if sort.None() {
		return result
	}
	e.sortInPlace(result, sort)
	return result
}

// Filter keeps users whose selected field contains the term, case-insensitively.
func (e Engine) Filter(items []User, filter FilterSpec) []User {
	if filter.Term == "" {
		return slices.Clone(items)
	}
	folder := cases.Fold()
	term := folder.String(filter.Term)
	contains := func(v string) bool {
		return strings.Contains(folder.String(v), term)
	}
	field := filter.Field
	if field == "" {
		field = FieldAll
	}
	return lo.Filter(items, func(u User, _ int) bool {
		if field == FieldAll {
			return contains(u.FirstName) || contains(u.LastName) || contains(u.Email)
		}
		return contains(field.value(u))
	})
}

// Sort returns a stably sorted copy of items.
func (e Engine) Sort(items []User, sort SortSpec) []User {
	result := slices.Clone(items)
	if !sort.None() {
		e.sortInPlace(result, sort)
	}
	return result
}

func (e Engine) sortInPlace(items []User, sort SortSpec) {
	collator := collate.New(e.tag)
	sign := 1
	if sort.Direction == Desc {
		sign = -1
	}
	slices.SortStableFunc(items, func(a, b User) int {
		return sign * collator.CompareString(sort.Field.value(a), sort.Field.value(b))
	})
}
