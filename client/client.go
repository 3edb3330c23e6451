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

// Package client implements FacetedClient: the front door that parses a
// user-facing query, runs the main query and any attached facets in one
// backend batch, and assembles the combined response (spec §4.7).
package client

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fsphinx-go/fsphinx/facet"
	"github.com/fsphinx-go/fsphinx/query"
	"github.com/fsphinx-go/fsphinx/queryterm"
)

// Request is one Query call's parameters. Query itself holds the string (or
// pre-parsed *query.MultiFieldQuery) form of the user's query; the rest
// configure the main sub-query's backend state.
type Request struct {
	Query any // string or *query.MultiFieldQuery

	Offset, Limit, MaxMatches, Cutoff int
	Select                            string
	MatchMode                         facet.MatchMode
	SortMode                          facet.SortMode
	SortBy                            string
}

// Response is the assembled result of a Query call.
type Response struct {
	Matches    []facet.Match
	TotalFound int
	Time       float64
	Facets     map[string]any
}

// FacetedClient is single-threaded by contract: it drives a SearchBackend
// whose mutable state (limits, select, group-by, filters) it saves and
// restores around every sub-query, so concurrent callers would interleave
// those mutations. Pool one client per goroutine for parallel use (spec §5).
type FacetedClient struct {
	Backend      facet.SearchBackend
	Fields       query.FieldMap
	Group        *facet.FacetGroup
	DefaultIndex string

	// Filtering, when true, renders active numeric QueryTerms as backend
	// attribute filters instead of textual @field clauses (spec §4.7).
	Filtering bool

	Logger *zap.Logger
}

// Option configures a FacetedClient at construction time.
type Option func(*FacetedClient)

func WithFacetGroup(g *facet.FacetGroup) Option { return func(c *FacetedClient) { c.Group = g } }
func WithDefaultIndex(index string) Option      { return func(c *FacetedClient) { c.DefaultIndex = index } }
func WithFiltering(enabled bool) Option         { return func(c *FacetedClient) { c.Filtering = enabled } }
func WithLogger(l *zap.Logger) Option           { return func(c *FacetedClient) { c.Logger = l } }

// New builds a FacetedClient over backend, bound to fields for query parsing.
func New(backend facet.SearchBackend, fields query.FieldMap, opts ...Option) *FacetedClient {
	c := &FacetedClient{Backend: backend, Fields: fields, Logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query parses req.Query (if a string), enqueues the main sub-query, and —
// if a FacetGroup is attached — prepares every facet into the same batch
// before issuing a single RunQueries call (spec §4.7, invariant §8.5).
//
// Facet computation here is always fresh: a cache-aware FacetGroup.Compute
// call issues its own round-trip on a cache miss, which can't share a batch
// with the main query's round-trip, so FacetedClient.Query does not consult
// FacetGroup.Cache. Callers wanting cache-aware facets call FacetGroup.Compute
// directly instead of going through FacetedClient.
func (c *FacetedClient) Query(ctx context.Context, req Request) (*Response, error) {
	q, err := c.resolveQuery(req.Query)
	if err != nil {
		return nil, err
	}

	base := facet.BackendState{
		Offset:      req.Offset,
		Limit:       req.Limit,
		MaxMatches:  req.MaxMatches,
		Cutoff:      req.Cutoff,
		Select:      req.Select,
		MatchMode:   req.MatchMode,
		SortMode:    req.SortMode,
		SortBy:      req.SortBy,
		ArrayResult: true,
	}
	if base.Select == "" {
		base.Select = "*"
	}
	if c.Filtering {
		base.Filters = attributeFilters(q)
	}
	c.Backend.SetLimits(base.Offset, base.Limit, base.MaxMatches, base.Cutoff)
	c.Backend.SetSelect(base.Select)
	c.Backend.ResetGroupBy()
	c.Backend.SetMatchMode(base.MatchMode)
	c.Backend.SetSortMode(base.SortMode, base.SortBy)
	c.Backend.ResetFilters()
	for _, f := range base.Filters {
		c.Backend.SetFilter(f)
	}
	c.Backend.SetArrayResult(base.ArrayResult)

	mainSlot, err := c.Backend.AddQuery(ctx, q.ToSphinx(c.Filtering), c.DefaultIndex, "main")
	if err != nil {
		return nil, fmt.Errorf("enqueuing main query: %w", err)
	}

	var facetSlots []int
	hasFacets := c.Group != nil && len(c.Group.Facets) > 0
	if hasFacets {
		facetSlots, err = c.Group.PrepareBatch(ctx, q, c.Filtering, base)
		if err != nil {
			return nil, err
		}
	}

	c.Logger.Debug("running query batch",
		zap.String("query", q.ToSphinx(c.Filtering)),
		zap.Int("slots", 1+len(facetSlots)),
	)

	results, err := c.Backend.RunQueries(ctx)
	if err != nil {
		return nil, fmt.Errorf("running query batch: %w", err)
	}
	if mainSlot < 0 || mainSlot >= len(results) {
		return nil, fmt.Errorf("main query: slot %d out of range of %d results", mainSlot, len(results))
	}
	main := results[mainSlot]
	if main.Error != "" {
		return nil, fmt.Errorf("main query: %s", main.Error)
	}

	resp := &Response{Matches: main.Matches, TotalFound: main.TotalFound, Time: main.Time}

	switch {
	case !hasFacets:
		// no FacetGroup attached: nothing to assemble.
	case main.TotalFound == 0:
		// zero-hit short circuit (spec §4.7): facets reset, not computed.
		c.Group.Reset()
	default:
		if err := c.Group.ApplyResults(ctx, q, results, facetSlots); err != nil {
			return nil, err
		}
		resp.Time += c.Group.Time
	}
	if c.Group != nil {
		resp.Facets = c.Group.ToArray()
	}

	c.Logger.Debug("query batch complete",
		zap.Int("total_found", resp.TotalFound),
		zap.Float64("time", resp.Time),
	)

	return resp, nil
}

func (c *FacetedClient) resolveQuery(q any) (*query.MultiFieldQuery, error) {
	switch v := q.(type) {
	case *query.MultiFieldQuery:
		return v, nil
	case string:
		return query.New(c.Fields).Parse(v), nil
	default:
		return nil, fmt.Errorf("client: Request.Query must be a string or *query.MultiFieldQuery, got %T", q)
	}
}

// attributeFilters builds one facet.Filter per active numeric term, for the
// filtering-mode main query (spec §4.7's "numeric QueryTerms become backend
// attribute filters" behavior — the same rule queryterm.ToSphinx applies to
// exclude those terms from the textual clause).
func attributeFilters(q *query.MultiFieldQuery) []facet.Filter {
	var filters []facet.Filter
	for _, t := range q.Terms() {
		if t.Status == queryterm.Active && t.IsNumeric() {
			filters = append(filters, facet.Filter{Attribute: t.Attribute, Values: []any{t.Term}})
		}
	}
	return filters
}
