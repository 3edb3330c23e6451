/*
Copyright 2025 The Fsphinx Contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package facet implements the per-attribute facet computation engine:
// grouped sub-query preparation, batched execution, term resolution, and
// result ordering (spec §4.3-§4.5).
package facet

import "context"

// MatchMode and SortMode are opaque backend-defined codes, passed through
// untouched (spec treats ranking/sort expressions as opaque strings).
type MatchMode int

type SortMode int

// GroupFunc mirrors the reference Sphinx API's numeric group-function codes.
// GroupByAttribute (4) is "group by attribute", the default used by every
// Facet unless explicitly overridden with a custom aggregate expression.
type GroupFunc int

const GroupByAttribute GroupFunc = 4

// Match is one raw result row returned by the backend for a grouped
// sub-query: a map of attribute name -> value, always including the
// synthetic @groupby/@count/@groupfunc keys.
type Match map[string]any

// Result is one slot's outcome from RunQueries.
type Result struct {
	Time       float64
	TotalFound int
	Error      string
	Warning    string
	Matches    []Match
}

// Filter is a single attribute filter (attr IN values), used both for
// numeric-term attribute filters in filtering mode and for TermSource lookup
// queries.
type Filter struct {
	Attribute string
	Values    []any
	Exclude   bool
}

// SearchBackend is the abstract search-engine client this package drives.
// Implementations wrap a Sphinx-compatible wire client; this package only
// ever mutates state through these methods and always restores it
// afterwards (spec §5's resource policy).
type SearchBackend interface {
	SetLimits(offset, limit, maxMatches, cutoff int)
	SetSelect(columns string)
	SetGroupBy(attribute string, fn GroupFunc, groupSort string)
	SetMatchMode(mode MatchMode)
	SetSortMode(mode SortMode, sortBy string)
	SetFilter(f Filter)
	ResetGroupBy()
	ResetFilters()
	SetArrayResult(enabled bool)

	// AddQuery enqueues a sub-query against index (empty means the backend's
	// default index) and returns its slot number in the next RunQueries batch.
	AddQuery(ctx context.Context, text, index, comment string) (slot int, err error)
	RunQueries(ctx context.Context) ([]Result, error)
}

// BackendState is the explicit snapshot of every mutable SearchBackend
// setting this package touches: limits, select, group-by, sort, filters,
// array-result (spec §9's design note — "model this as an explicit
// snapshot record... and restore by value"). Since SearchBackend (spec §6)
// exposes only setters, not getters, the state a Prepare call must restore
// to is the state the *caller* wants for its own subsequent query (usually
// the main query's settings) — callers hand it in, Prepare restores it via
// defer once the sub-query is enqueued, on every exit path including errors.
type BackendState struct {
	Offset, Limit, MaxMatches, Cutoff int
	Select                            string
	GroupAttr                         string
	GroupFunc                         GroupFunc
	GroupSort                         string
	MatchMode                         MatchMode
	SortMode                          SortMode
	SortBy                            string
	Filters                           []Filter
	ArrayResult                       bool
}

// apply pushes this state onto the backend.
func (s BackendState) apply(b SearchBackend) {
	b.SetLimits(s.Offset, s.Limit, s.MaxMatches, s.Cutoff)
	b.SetSelect(s.Select)
	if s.GroupAttr == "" {
		b.ResetGroupBy()
	} else {
		b.SetGroupBy(s.GroupAttr, s.GroupFunc, s.GroupSort)
	}
	b.SetMatchMode(s.MatchMode)
	b.SetSortMode(s.SortMode, s.SortBy)
	b.ResetFilters()
	for _, f := range s.Filters {
		b.SetFilter(f)
	}
	b.SetArrayResult(s.ArrayResult)
}
