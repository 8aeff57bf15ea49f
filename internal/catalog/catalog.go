// Package catalog holds the sentence titles and their two-level grouping
// (collection group, then test subgroup) used to filter the navigation list.
package catalog

import (
	"github.com/samber/lo"
)

// All is the filter value that matches every group or subgroup.
const All = "all"

// Record identifies one sentence/audio unit. Title is globally unique.
type Record struct {
	Title     string `json:"title"`
	Cambridge string `json:"cambridge"`
	Test      string `json:"test"`
}

// Index is the catalog fetched once at startup. It is read-only afterwards.
type Index struct {
	Records []Record
	Groups  []string
	Tests   map[string][]string
}

// NewIndex builds an index, dropping records with an empty or repeated title.
func NewIndex(records []Record, groups []string, tests map[string][]string) *Index {
	records = lo.UniqBy(lo.Filter(records, func(r Record, _ int) bool {
		return r.Title != ""
	}), func(r Record) string {
		return r.Title
	})
	if tests == nil {
		tests = map[string][]string{}
	}
	return &Index{Records: records, Groups: groups, Tests: tests}
}

// Len returns the number of titles.
func (ix *Index) Len() int {
	return len(ix.Records)
}

// TestsFor returns the subgroups of a collection group.
func (ix *Index) TestsFor(group string) []string {
	return ix.Tests[group]
}

// Lookup finds a record by title.
func (ix *Index) Lookup(title string) (Record, bool) {
	return lo.Find(ix.Records, func(r Record) bool {
		return r.Title == title
	})
}

// Titles returns every title in catalog order.
func (ix *Index) Titles() []string {
	return lo.Map(ix.Records, func(r Record, _ int) string {
		return r.Title
	})
}

// Filter is the current selection of the two cascading filters.
type Filter struct {
	Group string
	Test  string
}

// Matches reports whether a record passes both filters.
func (f Filter) Matches(r Record) bool {
	return (f.Group == All || r.Cambridge == f.Group) &&
		(f.Test == All || r.Test == f.Test)
}

// InitialFilter selects the first collection group and its first subgroup,
// falling back to All where a list is empty.
func (ix *Index) InitialFilter() Filter {
	group := All
	if len(ix.Groups) > 0 {
		group = ix.Groups[0]
	}
	return ix.SelectGroup(group)
}

// SelectGroup moves to a collection group and resets the subgroup to that
// group's first subgroup (or All).
func (ix *Index) SelectGroup(group string) Filter {
	test := All
	if tests := ix.Tests[group]; len(tests) > 0 {
		test = tests[0]
	}
	return Filter{Group: group, Test: test}
}

// SelectTest keeps the collection group and changes the subgroup.
func (ix *Index) SelectTest(f Filter, test string) Filter {
	return Filter{Group: f.Group, Test: test}
}

// Filtered returns the records visible under f, in catalog order.
func (ix *Index) Filtered(f Filter) []Record {
	return lo.Filter(ix.Records, func(r Record, _ int) bool {
		return f.Matches(r)
	})
}

// StepGroup returns the filter for the collection group delta positions away
// from the current one, wrapping around.
func (ix *Index) StepGroup(f Filter, delta int) Filter {
	if len(ix.Groups) == 0 {
		return f
	}
	return ix.SelectGroup(ix.Groups[step(lo.IndexOf(ix.Groups, f.Group), delta, len(ix.Groups))])
}

// StepTest returns the filter for the subgroup delta positions away from the
// current one within the current collection group, wrapping around.
func (ix *Index) StepTest(f Filter, delta int) Filter {
	tests := ix.Tests[f.Group]
	if len(tests) == 0 {
		return f
	}
	return ix.SelectTest(f, tests[step(lo.IndexOf(tests, f.Test), delta, len(tests))])
}

func step(cur, delta, n int) int {
	if cur < 0 {
		if delta < 0 {
			return n - 1
		}
		return 0
	}
	return ((cur+delta)%n + n) % n
}
