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

package facet

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fsphinx-go/fsphinx/query"
	"github.com/fsphinx-go/fsphinx/queryterm"
)

// AugmentPolicy decides what happens when a grouped sub-query returns fewer
// rows than maxNumValues+selectedCount: a selected term can end up missing
// from the returned rows entirely. Resolves the ambiguity left open by the
// reference design between synthesizing a placeholder and omitting it.
type AugmentPolicy int

const (
	// AugmentSynthesize inserts a zero-count row for a selected term that
	// the backend did not return, so a selected refinement never silently
	// disappears from the result list. Default.
	AugmentSynthesize AugmentPolicy = iota
	// AugmentOmit leaves the result list exactly as the backend returned it.
	AugmentOmit
)

// Results is a facet's computed outcome for the current query.
type Results struct {
	Time       float64
	TotalFound int
	Error      string
	Warning    string
	Matches    []Match
}

// Options configures a Facet at construction time (spec §3's Facet fields).
type Options struct {
	Name         string
	Attribute    string // default "<name>_attr"
	Func         GroupFunc
	GroupSort    string // default "<OrderKey> <asc|desc>", i.e. "@count desc" when OrderKey is unset
	Select       string // default "@groupby, @count"
	SphField     string // default Name
	DefaultIndex string
	MaxNumValues int // default 15
	MaxMatches   int // default 1000
	Cutoff       int // default 0
	Augment      *bool
	AugmentPolicy AugmentPolicy

	OrderKey  string // default "@count"
	OrderDesc bool   // forced to true when OrderKey is unset; otherwise used as given

	// GroupFuncExpr, when set, is a custom aggregate expression (e.g.
	// "sum(user_rating_attr * nb_votes_attr)") appended to Select as
	// "<expr> as @groupfunc", for facets ordered by a computed score
	// rather than plain hit count.
	GroupFuncExpr string

	Source     SourceConfig
	TermSource TermSource
}

// Facet computes one attribute's grouped refinement options: the sub-query
// it prepares, the row shaping it applies to the raw result, and the
// ordering it imposes before handing matches to a caller (spec §4.3).
type Facet struct {
	Name         string
	Attribute    string
	Func         GroupFunc
	GroupSort    string
	Select       string
	SphField     string
	DefaultIndex string
	MaxNumValues int
	MaxMatches   int
	Cutoff       int
	Augment      bool
	AugmentPolicy AugmentPolicy

	OrderKey  string
	OrderDesc bool

	Source     SourceConfig
	TermSource TermSource

	Results Results

	// lastBase is the backend state Prepare was last asked to restore to —
	// the main query's own settings. SetValues hands it to TermSource so a
	// LookupIndexSource's extra round-trip restores the same state rather
	// than a bare zero value (spec §4.4/§9).
	lastBase BackendState
}

// New builds a Facet from opts, applying spec §3's defaults. Panics on an
// empty name: construction with invalid config is a ConfigError, fatal to
// the call per spec §7.
func New(opts Options) *Facet {
	if strings.TrimSpace(opts.Name) == "" {
		panic("facet: name must not be empty")
	}
	f := &Facet{
		Name:          opts.Name,
		Attribute:     opts.Attribute,
		Func:          opts.Func,
		GroupSort:     opts.GroupSort,
		Select:        opts.Select,
		SphField:      opts.SphField,
		DefaultIndex:  opts.DefaultIndex,
		MaxNumValues:  opts.MaxNumValues,
		MaxMatches:    opts.MaxMatches,
		Cutoff:        opts.Cutoff,
		AugmentPolicy: opts.AugmentPolicy,
		OrderKey:      opts.OrderKey,
		OrderDesc:     opts.OrderDesc,
		Source:        opts.Source,
		TermSource:    opts.TermSource,
	}
	if f.Attribute == "" {
		f.Attribute = f.Name + "_attr"
	}
	if f.Func == 0 {
		f.Func = GroupByAttribute
	}
	if f.SphField == "" {
		f.SphField = f.Name
	}
	if f.MaxNumValues == 0 {
		f.MaxNumValues = 15
	}
	if f.MaxMatches == 0 {
		f.MaxMatches = 1000
	}
	if f.OrderKey == "" {
		f.OrderKey = "@count"
		f.OrderDesc = true
	}
	if f.GroupSort == "" {
		dir := "asc"
		if f.OrderDesc {
			dir = "desc"
		}
		f.GroupSort = f.OrderKey + " " + dir
	}
	if f.Select == "" {
		f.Select = "@groupby, @count"
		if opts.GroupFuncExpr != "" {
			f.Select += ", " + opts.GroupFuncExpr + " as @groupfunc"
		}
	}
	if opts.Augment == nil {
		f.Augment = true
	} else {
		f.Augment = *opts.Augment
	}
	if f.TermSource == nil && f.Source.Name != "" {
		f.Select += ", " + f.Source.Name
	}
	return f
}

// Prepare enqueues this facet's grouped sub-query against b and returns its
// batch slot. base is the backend state the caller wants restored once the
// sub-query is enqueued (usually the main query's own settings) — Prepare
// never reads state back from b, since SearchBackend exposes only setters
// (spec §9's backend-state design note).
func (f *Facet) Prepare(ctx context.Context, b SearchBackend, base BackendState, q *query.MultiFieldQuery, filtering bool) (slot int, err error) {
	f.lastBase = base
	defer base.apply(b)

	limit := f.MaxNumValues
	if f.Augment {
		limit += q.CountField(f.SphField)
	}

	b.SetLimits(0, limit, f.MaxMatches, f.Cutoff)
	b.SetSelect(f.Select)
	b.SetGroupBy(f.Attribute, f.Func, f.GroupSort)

	slot, err = b.AddQuery(ctx, q.ToSphinx(filtering), f.DefaultIndex, "facet:"+f.Name)
	if err != nil {
		return 0, fmt.Errorf("preparing facet %q: %w", f.Name, err)
	}
	return slot, nil
}

// Reset zeroes this facet's results, ready for the next Compute.
func (f *Facet) Reset() {
	f.Results = Results{}
}

// SetValues shapes a raw backend Result into this facet's Results: resolving
// display terms via TermSource, marking selected rows, and back-propagating
// resolved terms onto the owning query's matching QueryTerms so they
// re-render with names instead of raw IDs (spec §4.3).
func (f *Facet) SetValues(ctx context.Context, res Result, q *query.MultiFieldQuery) error {
	f.Results.Time = res.Time
	f.Results.TotalFound = res.TotalFound
	f.Results.Error = res.Error
	f.Results.Warning = res.Warning

	if len(res.Matches) == 0 {
		f.Results.Matches = nil
		return nil
	}

	idOf := func(m Match) string {
		return fmt.Sprint(m["@groupby"])
	}

	source := f.TermSource
	if source == nil {
		source = EmbeddedAttributeSource{}
	}
	terms, err := source.FetchTerms(ctx, res.Matches, f.Source, idOf, f.lastBase)
	if err != nil {
		return fmt.Errorf("resolving terms for facet %q: %w", f.Name, err)
	}

	selected := make(map[string]struct{})
	for _, t := range q.Terms() {
		if t.Status != queryterm.Active {
			continue
		}
		if t.UserField != f.SphField && t.SphinxField != f.SphField {
			continue
		}
		selected[strings.ToLower(t.Term)] = struct{}{}
	}

	matches := make([]Match, 0, len(res.Matches))
	for _, raw := range res.Matches {
		row := make(Match, len(raw)+4)
		for k, v := range raw {
			if strings.HasPrefix(k, "@") {
				row[k] = v
			}
		}

		id := idOf(raw)
		term, ok := terms[id]
		if !ok {
			term = id
		}
		row["@term"] = term

		if _, ok := row["@groupfunc"]; !ok {
			row["@groupfunc"] = raw["@count"]
		}

		_, isSelected := selected[strings.ToLower(term)]
		row["@selected"] = boolLabel(isSelected)

		matches = append(matches, row)

		if label, ok := terms[id]; ok {
			f.backpropagate(q, id, label)
		}
	}

	if f.Augment && f.AugmentPolicy == AugmentSynthesize {
		matches = f.synthesizeMissing(matches, selected)
	}

	f.Results.Matches = matches
	return nil
}

// backpropagate updates the display (UserTerm) of any active QueryTerm on
// this facet's field whose raw term equals id, so the user-facing rendering
// shows the resolved label instead of the opaque identifier.
func (f *Facet) backpropagate(q *query.MultiFieldQuery, id, label string) {
	for _, t := range q.Terms() {
		if t.UserField != f.SphField && t.SphinxField != f.SphField {
			continue
		}
		if t.Term == id {
			t.UserTerm = label
		}
	}
}

// synthesizeMissing appends a zero-count row for every selected term not
// already present among matches, so a selected refinement never silently
// drops out of the list (spec §9 Ambiguity 1, resolved as AugmentSynthesize).
func (f *Facet) synthesizeMissing(matches []Match, selected map[string]struct{}) []Match {
	present := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if term, ok := m["@term"].(string); ok {
			present[strings.ToLower(term)] = struct{}{}
		}
	}
	for term := range selected {
		if _, ok := present[term]; ok {
			continue
		}
		matches = append(matches, Match{
			"@groupby":   term,
			"@count":     0,
			"@groupfunc": 0,
			"@term":      term,
			"@selected":  boolLabel(true),
		})
	}
	return matches
}

func boolLabel(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// OrderValues stably sorts Results.Matches by OrderKey; ties preserve
// encounter order (spec §4.3).
func (f *Facet) OrderValues() {
	key := f.OrderKey
	desc := f.OrderDesc
	sort.SliceStable(f.Results.Matches, func(i, j int) bool {
		c := compareMatchValues(f.Results.Matches[i][key], f.Results.Matches[j][key])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareMatchValues(a, b any) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// ToArray returns this facet's results in a plain-map shape suitable for
// serialization by a front door (spec §4.5's FacetGroup.ToArray).
func (f *Facet) ToArray() map[string]any {
	return map[string]any{
		"time":        f.Results.Time,
		"total_found": f.Results.TotalFound,
		"error":       f.Results.Error,
		"warning":     f.Results.Warning,
		"matches":     f.Results.Matches,
	}
}
