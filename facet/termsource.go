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
	"strings"
)

// SourceConfig describes how to resolve group-by IDs to human-readable
// display terms (spec §4.4).
type SourceConfig struct {
	Name      string // embedded attribute name, or lookup-index name
	IDAttr    string // lookup-index: attribute carrying the ID
	TermAttr  string // lookup-index: attribute carrying the display term
	Delim     string // embedded-attribute: delimiter between id/term pairs
	Query     string // lookup-index: optional extra query text
}

// IDGetter extracts the group-by key from a raw match row. Modeled as a
// function value rather than a generic lambda type, per spec §9's design
// note on "closures as result-row getters".
type IDGetter func(Match) string

// TermSource resolves group-by IDs to display terms for a set of matches.
// Two concrete variants below implement it — polymorphism over variants, no
// inheritance (spec §9). A Facet with no TermSource of its own resolves terms
// with EmbeddedAttributeSource; FacetedClient does not implement TermSource.
// base is the backend state active before the lookup runs — a TermSource
// that issues its own query (LookupIndexSource) must restore it afterward
// rather than resetting to a bare zero value (spec §4.4/§9).
type TermSource interface {
	FetchTerms(ctx context.Context, matches []Match, cfg SourceConfig, idOf IDGetter, base BackendState) (map[string]string, error)
}

// EmbeddedAttributeSource resolves terms from a single delimited string
// attribute already present on each match row — no extra backend call
// required (spec §4.3 "FetchTerms (as a TermSource of itself)").
type EmbeddedAttributeSource struct{}

func (EmbeddedAttributeSource) FetchTerms(_ context.Context, matches []Match, cfg SourceConfig, _ IDGetter, _ BackendState) (map[string]string, error) {
	delim := cfg.Delim
	if delim == "" {
		delim = ","
	}
	out := make(map[string]string)
	for _, m := range matches {
		raw, _ := m[cfg.Name].(string)
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, delim)
		for i := 0; i+1 < len(parts); i += 2 {
			out[parts[i]] = parts[i+1]
		}
	}
	return out, nil
}

// LookupIndexSource resolves terms by issuing one additional query against
// a separate index, filtering on IDAttr ∈ {collected IDs}, full scan, no
// group-by, array results enabled (spec §4.4).
type LookupIndexSource struct {
	Backend SearchBackend
}

func (s LookupIndexSource) FetchTerms(ctx context.Context, matches []Match, cfg SourceConfig, idOf IDGetter, base BackendState) (map[string]string, error) {
	ids := uniqueIDs(matches, idOf)
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}

	// full scan against the lookup index, then restore base — the state
	// that was active before this extra round-trip — not a zero value.
	defer base.apply(s.Backend)

	s.Backend.ResetGroupBy()
	s.Backend.ResetFilters()
	s.Backend.SetFilter(Filter{Attribute: cfg.IDAttr, Values: values})
	s.Backend.SetArrayResult(true)
	s.Backend.SetLimits(0, len(ids), len(ids), 0)
	s.Backend.SetSelect("*")

	text := cfg.Query
	if text == "" {
		text = " "
	}
	if _, err := s.Backend.AddQuery(ctx, text, cfg.Name, "term-lookup:"+cfg.Name); err != nil {
		return nil, fmt.Errorf("enqueuing term lookup against %s: %w", cfg.Name, err)
	}
	results, err := s.Backend.RunQueries(ctx)
	if err != nil {
		return nil, fmt.Errorf("running term lookup against %s: %w", cfg.Name, err)
	}
	if len(results) == 0 {
		return map[string]string{}, nil
	}
	res := results[len(results)-1]
	if res.Error != "" {
		return nil, fmt.Errorf("term lookup against %s: %s", cfg.Name, res.Error)
	}

	out := make(map[string]string, len(res.Matches))
	for _, m := range res.Matches {
		id := fmt.Sprint(m[cfg.IDAttr])
		term := fmt.Sprint(m[cfg.TermAttr])
		out[id] = term
	}
	return out, nil
}

func uniqueIDs(matches []Match, idOf IDGetter) []string {
	seen := make(map[string]struct{}, len(matches))
	var ids []string
	for _, m := range matches {
		id := idOf(m)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
