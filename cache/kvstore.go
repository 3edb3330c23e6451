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

// Package cache implements FacetGroupCache: a sticky-key-aware result cache
// for facet.FacetGroup, plus three KVStore adapters (spec §4.6, §6).
package cache

import "context"

// KVStore is the abstract store a FacetGroupCache writes through. Three
// reference adapters are provided: MemoryStore (in-process), RedisStore,
// MemcachedStore.
type KVStore interface {
	// Get reads the raw value at key. found is false on a miss or error.
	Get(ctx context.Context, key string) (value []byte, found bool)

	// Set writes value at key. If overwrite is false, an existing value at
	// key is left untouched (add-if-absent). sticky marks this write so
	// adapters that need to distinguish sticky from normal entries for
	// their own Clear implementation can do so.
	Set(ctx context.Context, key string, value []byte, overwrite, sticky bool) error

	// Clear deletes every key this store manages. If alsoSticky is false,
	// entries written with sticky=true are preserved.
	Clear(ctx context.Context, alsoSticky bool) error
}
