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
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fsphinx-go/fsphinx/internal/metrics"
	"github.com/fsphinx-go/fsphinx/query"
)

// Cache is the subset of cache.FacetGroupCache a FacetGroup needs. Defined
// here (rather than importing the cache package) so facet has no dependency
// on the cache key regime or storage adapters — cache implements this
// interface against the Match type facet already exports.
type Cache interface {
	GetFacets(ctx context.Context, canonical string) ([][]Match, bool)
	SetFacets(ctx context.Context, canonical string, perFacetMatches [][]Match, overwrite, sticky bool) error
}

// FacetGroup batches N Facets into a single backend round-trip and orchestrates
// an optional result cache around that round-trip (spec §4.5). The i-th
// facet in Facets maps to the i-th slot of the batched sub-query.
type FacetGroup struct {
	Backend    SearchBackend
	Facets     []*Facet
	TermSource TermSource // applied to any Facet left without its own
	Cache      Cache

	// Preloading and Caching are the configured defaults; Compute's caching
	// argument, when non-nil, overrides Caching for that call and disables
	// Preloading (spec §4.5's "explicit arg beats configured default").
	Preloading bool
	Caching    bool

	Time float64

	Logger *zap.Logger

	sf singleflight.Group
}

// NewFacetGroup builds a FacetGroup over facets in the given order, applying
// termSource as the default resolver for any facet that has none. A facet
// configured with a lookup-index source (Source.IDAttr set, spec §4.4) and
// no explicit TermSource defaults to a LookupIndexSource against backend,
// rather than termSource, since the lookup query must run on the same
// backend the facet's own sub-query runs on.
func NewFacetGroup(backend SearchBackend, termSource TermSource, facets ...*Facet) *FacetGroup {
	g := &FacetGroup{Backend: backend, TermSource: termSource, Facets: facets, Logger: zap.NewNop()}
	for _, f := range facets {
		if f.TermSource != nil {
			continue
		}
		if f.Source.IDAttr != "" {
			f.TermSource = LookupIndexSource{Backend: backend}
			continue
		}
		f.TermSource = termSource
	}
	return g
}

// Reset zeroes every facet's results and the aggregate time.
func (g *FacetGroup) Reset() {
	for _, f := range g.Facets {
		f.Reset()
	}
	g.Time = 0
}

// ToArray returns facetName -> Facet.ToArray() for every facet in the group
// (spec §4.5).
func (g *FacetGroup) ToArray() map[string]any {
	out := make(map[string]any, len(g.Facets))
	for _, f := range g.Facets {
		out[f.Name] = f.ToArray()
	}
	return out
}

// Compute runs the batched facet round-trip for q against base (the backend
// state to restore once every facet sub-query is enqueued). caching, if
// non-nil, overrides the FacetGroup's configured Caching for this call and
// disables Preloading.
func (g *FacetGroup) Compute(ctx context.Context, q *query.MultiFieldQuery, filtering bool, base BackendState, caching *bool) error {
	effectiveCaching := g.Caching
	effectivePreloading := g.Preloading
	if caching != nil {
		effectiveCaching = *caching
		effectivePreloading = false
	}

	if g.Cache != nil && effectiveCaching {
		return g.computeCached(ctx, q, filtering, base, effectivePreloading)
	}
	return g.computeFresh(ctx, q, filtering, base)
}

// computeCached wraps the fresh computation in a singleflight group keyed
// by the query's canonical form, so concurrent identical Compute calls
// share one backend round-trip instead of issuing duplicates.
func (g *FacetGroup) computeCached(ctx context.Context, q *query.MultiFieldQuery, filtering bool, base BackendState, preloading bool) error {
	key := q.ToCanonical()

	if stored, ok := g.Cache.GetFacets(ctx, key); ok {
		g.applyStored(stored)
		g.Time = -1
		metrics.CacheHits.Inc()
		return nil
	}
	metrics.CacheMisses.Inc()

	_, err, _ := g.sf.Do(key, func() (any, error) {
		if err := g.computeFresh(ctx, q, filtering, base); err != nil {
			return nil, err
		}
		stored := make([][]Match, len(g.Facets))
		for i, f := range g.Facets {
			stored[i] = f.Results.Matches
		}
		if err := g.Cache.SetFacets(ctx, key, stored, false, preloading); err != nil {
			g.Logger.Warn("facet cache write failed", zap.String("key", key), zap.Error(err))
		}
		return nil, nil
	})
	return err
}

func (g *FacetGroup) applyStored(stored [][]Match) {
	for i, f := range g.Facets {
		f.Reset()
		if i < len(stored) {
			f.Results.Matches = stored[i]
		}
	}
}

// Preload computes this group's facets without caching, then writes the
// result to the cache under a sticky key (spec §4.5).
func (g *FacetGroup) Preload(ctx context.Context, q *query.MultiFieldQuery, filtering bool, base BackendState) error {
	if g.Cache == nil {
		return fmt.Errorf("facet: Preload requires a configured Cache")
	}
	if err := g.computeFresh(ctx, q, filtering, base); err != nil {
		return err
	}
	stored := make([][]Match, len(g.Facets))
	for i, f := range g.Facets {
		stored[i] = f.Results.Matches
	}
	key := q.ToCanonical()
	if err := g.Cache.SetFacets(ctx, key, stored, true, true); err != nil {
		g.Logger.Warn("facet cache preload write failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// computeFresh prepares every facet, runs one batch, and shapes each
// facet's slice of the results (spec §4.5's fast path, invariant §8.5: N
// facets cost exactly N round-trip slots in one RunQueries call).
func (g *FacetGroup) computeFresh(ctx context.Context, q *query.MultiFieldQuery, filtering bool, base BackendState) error {
	started := time.Now()
	defer func() { metrics.ComputeLatency.Observe(time.Since(started).Seconds()) }()

	if len(g.Facets) == 0 {
		g.Reset()
		return nil
	}

	slots, err := g.PrepareBatch(ctx, q, filtering, base)
	if err != nil {
		return err
	}
	results, err := g.Backend.RunQueries(ctx)
	if err != nil {
		return fmt.Errorf("running facet batch: %w", err)
	}
	return g.ApplyResults(ctx, q, results, slots)
}

// PrepareBatch enqueues every facet's sub-query against the group's backend,
// restoring base after each one, and returns their slot numbers in the same
// order as g.Facets. Callers driving a larger combined batch (e.g. a main
// query sharing the same RunQueries call) use this directly instead of
// computeFresh, then pass the resulting Results to ApplyResults themselves.
func (g *FacetGroup) PrepareBatch(ctx context.Context, q *query.MultiFieldQuery, filtering bool, base BackendState) ([]int, error) {
	slots := make([]int, len(g.Facets))
	for i, f := range g.Facets {
		slot, err := f.Prepare(ctx, g.Backend, base, q, filtering)
		if err != nil {
			return nil, fmt.Errorf("preparing facet %q: %w", f.Name, err)
		}
		slots[i] = slot
	}
	return slots, nil
}

// ApplyResults shapes each facet's slice of an already-executed batch:
// slots[i] is the Results index the i-th facet's sub-query landed in. It
// counts one round-trip toward metrics regardless of whether the caller
// shared that RunQueries call with other, non-facet sub-queries.
func (g *FacetGroup) ApplyResults(ctx context.Context, q *query.MultiFieldQuery, results []Result, slots []int) error {
	metrics.RoundTrips.Inc()

	g.Time = 0
	for i, f := range g.Facets {
		f.Reset()
		slot := slots[i]
		if slot < 0 || slot >= len(results) {
			return fmt.Errorf("facet %q: slot %d out of range of %d results", f.Name, slot, len(results))
		}
		res := results[slot]
		if res.Error != "" {
			f.Results.Error = res.Error
			continue
		}
		if err := f.SetValues(ctx, res, q); err != nil {
			return err
		}
		f.OrderValues()
		g.Time += res.Time
	}
	return nil
}
