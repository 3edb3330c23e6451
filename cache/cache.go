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

package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"

	"go.uber.org/zap"

	"github.com/fsphinx-go/fsphinx/facet"
	"github.com/fsphinx-go/fsphinx/internal/jsonutil"
)

const stickyMarker = "sticky:"

// normalKey is env || md5(canonical), the plain cache key for a query.
func normalKey(env, canonical string) string {
	sum := md5.Sum([]byte(canonical))
	return env + hex.EncodeToString(sum[:])
}

// stickyKey wraps normalKey with a marker exempting the entry from a
// non-sticky Clear.
func stickyKey(env, canonical string) string {
	return stickyMarker + normalKey(env, canonical)
}

// FacetGroupCache caches one FacetGroup's computed results, keyed by a
// query's canonical form, with a sticky-entry eviction policy layered on
// top of a plain KVStore (spec §4.6).
type FacetGroupCache struct {
	store  KVStore
	env    string
	logger *zap.Logger
}

// New builds a FacetGroupCache over store. env isolates entries written by
// this process/environment from unrelated ones sharing the same backing
// store (spec §9's "environment prefix in cache keys" design note) and is
// explicit configuration, never an implicit global. A nil logger, like
// NewRedisStore's, becomes a no-op logger.
func New(store KVStore, env string, logger *zap.Logger) *FacetGroupCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FacetGroupCache{store: store, env: env, logger: logger}
}

// GetFacets looks up the sticky key first, falling back to the normal key
// on a miss (spec §4.6's read order). The returned slice is ordered the
// same way the FacetGroup that wrote it was ordered.
func (c *FacetGroupCache) GetFacets(ctx context.Context, canonical string) ([][]facet.Match, bool) {
	if raw, ok := c.store.Get(ctx, stickyKey(c.env, canonical)); ok {
		matches, err := decodeMatches(raw)
		if err == nil {
			return matches, true
		}
		c.logger.Warn("facet cache decode failed, treating sticky entry as a miss",
			zap.String("key", stickyKey(c.env, canonical)), zap.Error(err))
	}
	raw, ok := c.store.Get(ctx, normalKey(c.env, canonical))
	if !ok {
		return nil, false
	}
	matches, err := decodeMatches(raw)
	if err != nil {
		c.logger.Warn("facet cache decode failed, treating entry as a miss",
			zap.String("key", normalKey(c.env, canonical)), zap.Error(err))
		return nil, false
	}
	return matches, true
}

// SetFacets serializes perFacetMatches in facet order and writes it under
// the sticky or normal key for canonical, per overwrite/sticky semantics
// (spec §4.6). Serialization errors are reported; the caller's Preload/
// Compute treats a write failure as a CacheError (logged, never fatal).
func (c *FacetGroupCache) SetFacets(ctx context.Context, canonical string, perFacetMatches [][]facet.Match, overwrite, sticky bool) error {
	raw, err := jsonutil.Marshal(perFacetMatches)
	if err != nil {
		return err
	}
	key := normalKey(c.env, canonical)
	if sticky {
		key = stickyKey(c.env, canonical)
	}
	return c.store.Set(ctx, key, raw, overwrite, sticky)
}

// Clear evicts every normal-keyed entry in the underlying store, including
// entries written under a different env; env does not scope a Clear. Sticky
// entries are preserved unless clearSticky is true (spec §4.6/§8.7).
func (c *FacetGroupCache) Clear(ctx context.Context, clearSticky bool) error {
	return c.store.Clear(ctx, clearSticky)
}

func decodeMatches(raw []byte) ([][]facet.Match, error) {
	var matches [][]facet.Match
	if err := jsonutil.Unmarshal(raw, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}
