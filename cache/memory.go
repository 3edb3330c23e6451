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
	"sync"
)

type memoryEntry struct {
	value  []byte
	sticky bool
}

// MemoryStore is an in-process KVStore backed by a sync.Map; the reference
// in-process adapter (spec §6), with no external dependency and no
// eviction beyond explicit Clear.
type MemoryStore struct {
	entries sync.Map // string -> memoryEntry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m.entries.Load(key)
	if !ok {
		return nil, false
	}
	return v.(memoryEntry).value, true
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, overwrite, sticky bool) error {
	entry := memoryEntry{value: value, sticky: sticky}
	if overwrite {
		m.entries.Store(key, entry)
		return nil
	}
	m.entries.LoadOrStore(key, entry)
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, alsoSticky bool) error {
	m.entries.Range(func(key, value any) bool {
		if alsoSticky || !value.(memoryEntry).sticky {
			m.entries.Delete(key)
		}
		return true
	})
	return nil
}
