package filter

import (
	"slices"
	"strings"
)

// DefaultSentinel is the multiselect entry that stands for every category.
const DefaultSentinel = "Select All Categories"

// CategorySelection is either every category or an explicit set of names.
// The zero value selects every category.
type CategorySelection struct {
	names []string
}

func AllCategories() CategorySelection {
	return CategorySelection{}
}

// SpecificCategories selects exactly the given names. An empty list selects
// every category, the same as choosing nothing in the UI. A blank name stays
// in the set; it matches no row since uncategorised rows never pass a
// category filter.
func SpecificCategories(names ...string) CategorySelection {
	set := slices.Clone(names)
	slices.Sort(set)
	set = slices.Compact(set)
	if len(set) == 0 {
		return AllCategories()
	}
	return CategorySelection{names: set}
}

// ParseSelection converts raw multiselect values, which may contain the
// sentinel, into a selection. Concrete names win over the sentinel; no
// values, or the sentinel alone, select everything.
func ParseSelection(values []string, sentinel string) CategorySelection {
	concrete := make([]string, 0, len(values))
	for _, v := range values {
		if v == sentinel {
			continue
		}
		concrete = append(concrete, v)
	}
	return SpecificCategories(concrete...)
}

func (s CategorySelection) IsAll() bool {
	return len(s.names) == 0
}

// Names returns the explicit categories, or nil for AllCategories.
func (s CategorySelection) Names() []string {
	return slices.Clone(s.names)
}

// Effective resolves the selection against the categories observable in the
// current time window.
func (s CategorySelection) Effective(universe []string) []string {
	if s.IsAll() {
		return slices.Clone(universe)
	}
	return slices.Clone(s.names)
}

func (s CategorySelection) String() string {
	if s.IsAll() {
		return "all"
	}
	return "specific(" + strings.Join(s.names, ",") + ")"
}
