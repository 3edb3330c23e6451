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

// Package queryterm implements a single field-qualified refinement
// clause of a faceted-search query: parsing, Sphinx rendering,
// canonicalization, and identity hashing.
package queryterm

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

// Status is whether a term is currently emitted to the backend.
type Status int

const (
	Active Status = iota
	Inactive
)

func (s Status) marker() string {
	if s == Inactive {
		return "-"
	}
	return ""
}

// ToggleState is the explicit tri-state accepted by Toggle, resolving
// the ambiguity of a nilable bool / empty-string "flip or set" signal.
type ToggleState int

const (
	Flip ToggleState = iota
	On
	Off
)

var hyphenBetweenWords = regexp.MustCompile(`(\w)-(\w)`)

// QueryTerm is one field-qualified refinement clause, e.g. "@actor harrison ford".
type QueryTerm struct {
	Status      Status
	UserField   string // lowercased, trimmed
	SphinxField string // resolved via user->backend field map
	Attribute   string // resolved via user->attribute map, default "<userField>_attr"

	Term     string // trimmed raw value
	UserTerm string // display form, mutable; initially == Term
}

// New builds a QueryTerm with field/attribute resolution already applied by the
// caller (queryterm itself knows nothing of field maps — query.MultiFieldQuery
// owns that resolution, per spec's component split).
func New(status Status, userField, sphinxField, attribute, term string) *QueryTerm {
	userField = strings.ToLower(strings.TrimSpace(userField))
	term = strings.TrimSpace(term)
	if attribute == "" {
		attribute = userField + "_attr"
	}
	return &QueryTerm{
		Status:      status,
		UserField:   userField,
		SphinxField: sphinxField,
		Attribute:   attribute,
		Term:        term,
		UserTerm:    term,
	}
}

// ToSphinx renders the backend-facing clause, or "" if inactive (or numeric
// and excludeNumeric is set, since numeric terms become attribute filters
// instead of textual clauses in that mode).
func (t *QueryTerm) ToSphinx(excludeNumeric bool) string {
	if t == nil || t.Status == Inactive {
		return ""
	}
	if excludeNumeric && t.IsNumeric() {
		return ""
	}
	value := hyphenBetweenWords.ReplaceAllString(t.Term, "$1 $2")
	value = strings.ReplaceAll(value, `"`, "")
	if strings.ContainsAny(value, " \t\n") {
		value = `"` + value + `"`
	}
	return "(@" + t.SphinxField + " " + value + ")"
}

// ToCanonical is the lowercase, trimmed form used for cache keys and
// cross-query comparison. Inactive terms contribute "".
func (t *QueryTerm) ToCanonical() string {
	if t == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(t.ToSphinx(false)))
}

// ToString renders the user-facing form, preserving the visible status marker.
func (t *QueryTerm) ToString() string {
	if t == nil {
		return ""
	}
	return "(@" + t.Status.marker() + t.UserField + " " + t.UserTerm + ")"
}

// Hash is the identity of this refinement, independent of Status and UserTerm:
// MD5(userField || lowercase(term)), hex-encoded.
func (t *QueryTerm) Hash() string {
	sum := md5.Sum([]byte(t.UserField + strings.ToLower(t.Term)))
	return hex.EncodeToString(sum[:])
}

// Compare orders by UserField ascending, then by lowercase(Term) ascending.
func Compare(a, b *QueryTerm) int {
	if c := strings.Compare(a.UserField, b.UserField); c != 0 {
		return c
	}
	return strings.Compare(strings.ToLower(a.Term), strings.ToLower(b.Term))
}

// IsNumeric reports whether Term parses as a plain number (optional leading
// "-", at most one ".", digits elsewhere) — a numeric term becomes a backend
// attribute filter instead of a textual clause in filtering mode.
func (t *QueryTerm) IsNumeric() bool {
	return isNumeric(t.Term)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	seenDigit, seenDot := false, false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
		case r == '.' && !seenDot:
			seenDot = true
		case r == '-' && i == 0:
			// leading sign, fine
		default:
			return false
		}
	}
	return seenDigit
}
