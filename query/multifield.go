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

// Package query implements MultiFieldQuery: an ordered collection of
// queryterm.QueryTerm parsed from the user-facing query language
// (spec §4.2, §6), with toggle semantics and sphinx/canonical rendering.
package query

import (
	"regexp"
	"sort"
	"strings"

	"github.com/fsphinx-go/fsphinx/queryterm"
)

// fragment matches either a "@[+-]?field term" clause or a free-text span.
// This is the exact grammar required by spec §4.2/§6 for compatibility.
var fragment = regexp.MustCompile(`(?is)@(?P<status>[+-]?)(?P<field>\w+|\*)\s+(?P<term>[^@()]+)?|(?P<all>[^@()]+)`)

// FieldMap holds case-insensitive user->backend mappings used to resolve a
// parsed clause's SphinxField and Attribute. This is the "config surface"
// an application provides (spec §6).
type FieldMap struct {
	UserToSphinx    map[string]string
	UserToAttribute map[string]string
}

func (m FieldMap) sphinxField(userField string) string {
	if m.UserToSphinx != nil {
		if v, ok := m.UserToSphinx[strings.ToLower(userField)]; ok {
			return v
		}
	}
	return userField
}

func (m FieldMap) attribute(userField string) string {
	if m.UserToAttribute != nil {
		if v, ok := m.UserToAttribute[strings.ToLower(userField)]; ok {
			return v
		}
	}
	return userField + "_attr"
}

// MultiFieldQuery is an insertion-ordered collection of QueryTerms, at most
// one per hash (spec §3's MultiFieldQuery invariant).
type MultiFieldQuery struct {
	fields FieldMap
	order  []string // hashes, insertion order
	terms  map[string]*queryterm.QueryTerm
}

// New creates an empty query bound to the given field maps.
func New(fields FieldMap) *MultiFieldQuery {
	return &MultiFieldQuery{
		fields: fields,
		terms:  make(map[string]*queryterm.QueryTerm),
	}
}

// Parse parses a user-facing query string (spec §6 grammar) into a
// MultiFieldQuery. Malformed fragments are dropped silently (spec §4.1/§7:
// ParseError is a recovered, non-fatal condition) — parsing never returns
// an error.
func (q *MultiFieldQuery) Parse(s string) *MultiFieldQuery {
	for _, m := range fragment.FindAllStringSubmatch(s, -1) {
		status := m[fragment.SubexpIndex("status")]
		field := m[fragment.SubexpIndex("field")]
		term := m[fragment.SubexpIndex("term")]
		all := m[fragment.SubexpIndex("all")]

		if all != "" {
			field, term = "*", all
		}
		field = strings.ToLower(strings.TrimSpace(field))
		if field == "" {
			continue // malformed: no field, no free text — dropped
		}
		term = strings.TrimSpace(term)
		if term == "" {
			continue // "no term" — recovered, not an error
		}

		st := queryterm.Active
		if status == "-" {
			st = queryterm.Inactive
		}

		qt := queryterm.New(st, field, q.fields.sphinxField(field), q.fields.attribute(field), term)
		q.addFirstWriteWins(qt)
	}
	return q
}

// addFirstWriteWins inserts qt unless a term with the same hash already
// exists, in which case the first occurrence wins (spec §4.2).
func (q *MultiFieldQuery) addFirstWriteWins(qt *queryterm.QueryTerm) {
	h := qt.Hash()
	if _, exists := q.terms[h]; exists {
		return
	}
	q.terms[h] = qt
	q.order = append(q.order, h)
}

// HasQueryTerm reports whether an equivalent term (by hash) is present,
// regardless of active/inactive status.
func (q *MultiFieldQuery) HasQueryTerm(term any) bool {
	qt := q.resolve(term)
	if qt == nil {
		return false
	}
	_, ok := q.terms[qt.Hash()]
	return ok
}

// resolve turns a string or *queryterm.QueryTerm into a QueryTerm usable for
// hash lookup, re-parsing string arguments the same way Parse does.
func (q *MultiFieldQuery) resolve(term any) *queryterm.QueryTerm {
	switch v := term.(type) {
	case *queryterm.QueryTerm:
		return v
	case string:
		scratch := New(q.fields).Parse(v)
		if len(scratch.order) == 0 {
			return nil
		}
		return scratch.terms[scratch.order[0]]
	default:
		return nil
	}
}

// Toggle flips (state == Flip), or explicitly sets, the active/inactive
// status of the term matching the given hash. The term argument may be a
// string (re-parsed and looked up by hash) or a *queryterm.QueryTerm.
func (q *MultiFieldQuery) Toggle(term any, state queryterm.ToggleState) {
	resolved := q.resolve(term)
	if resolved == nil {
		return
	}
	existing, ok := q.terms[resolved.Hash()]
	if !ok {
		return
	}
	switch state {
	case queryterm.On:
		existing.Status = queryterm.Active
	case queryterm.Off:
		existing.Status = queryterm.Inactive
	default: // Flip
		if existing.Status == queryterm.Active {
			existing.Status = queryterm.Inactive
		} else {
			existing.Status = queryterm.Active
		}
	}
}

// ToSphinx renders active terms space-joined in insertion order, skipping
// empty emissions. If the query is empty, returns a single space so the
// backend can distinguish "match all" from "no query" (spec §4.2).
func (q *MultiFieldQuery) ToSphinx(excludeNumeric bool) string {
	var parts []string
	for _, h := range q.order {
		if s := q.terms[h].ToSphinx(excludeNumeric); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return " "
	}
	return strings.Join(parts, " ")
}

// ToCanonical renders only active terms, sorted by (UserField,
// lowercase(Term)), space-joined and trimmed — a stable cache key
// independent of insertion order (spec §3's canonicalization invariant).
func (q *MultiFieldQuery) ToCanonical() string {
	active := make([]*queryterm.QueryTerm, 0, len(q.order))
	for _, h := range q.order {
		if q.terms[h].Status == queryterm.Active {
			active = append(active, q.terms[h])
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return queryterm.Compare(active[i], active[j]) < 0
	})
	parts := make([]string, 0, len(active))
	for _, t := range active {
		parts = append(parts, t.ToCanonical())
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// ToString renders every term (active and inactive) in insertion order,
// preserving visible status markers.
func (q *MultiFieldQuery) ToString() string {
	parts := make([]string, 0, len(q.order))
	for _, h := range q.order {
		parts = append(parts, q.terms[h].ToString())
	}
	return strings.Join(parts, " ")
}

// CountField counts terms whose UserField or SphinxField equals field.
func (q *MultiFieldQuery) CountField(field string) int {
	n := 0
	for _, h := range q.order {
		t := q.terms[h]
		if t.UserField == field || t.SphinxField == field {
			n++
		}
	}
	return n
}

// Terms returns the QueryTerms in insertion order (a finite, restartable
// sequence per spec §9's iteration design note).
func (q *MultiFieldQuery) Terms() []*queryterm.QueryTerm {
	out := make([]*queryterm.QueryTerm, 0, len(q.order))
	for _, h := range q.order {
		out = append(out, q.terms[h])
	}
	return out
}
