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
	"fmt"
	"strconv"
	"strings"

	"github.com/bradfitz/gomemcache/memcache"
)

const memcachedNamespace = "FSPHINX_"

// Memcached cannot enumerate its keyspace, so Clear is implemented as a
// version counter baked into the physical key (spec §4.6/§6): bumping the
// counter makes every previously-written physical key unreachable without
// deleting anything. Sticky and normal entries get independent counters so
// a plain Clear can bump the normal one without invalidating sticky data.
const (
	versionKeyNormal = memcachedNamespace + "ver:normal"
	versionKeySticky = memcachedNamespace + "ver:sticky"
)

// MemcachedStore is a KVStore backed by github.com/bradfitz/gomemcache.
type MemcachedStore struct {
	client *memcache.Client
}

// NewMemcachedStore wraps an already-configured *memcache.Client.
func NewMemcachedStore(client *memcache.Client) *MemcachedStore {
	return &MemcachedStore{client: client}
}

func (m *MemcachedStore) Get(_ context.Context, key string) ([]byte, bool) {
	physical, err := m.physicalKey(key)
	if err != nil {
		return nil, false
	}
	item, err := m.client.Get(physical)
	if err != nil {
		return nil, false
	}
	return item.Value, true
}

func (m *MemcachedStore) Set(_ context.Context, key string, value []byte, overwrite, _ bool) error {
	physical, err := m.physicalKey(key)
	if err != nil {
		return err
	}
	item := &memcache.Item{Key: physical, Value: value}
	if overwrite {
		return m.client.Set(item)
	}
	if err := m.client.Add(item); err != nil && err != memcache.ErrNotStored {
		return err
	}
	return nil
}

// Clear bumps the normal-entry version counter, and the sticky-entry
// counter too when alsoSticky is set, invalidating the corresponding
// physical keys without deleting anything (Memcached has no key listing).
func (m *MemcachedStore) Clear(_ context.Context, alsoSticky bool) error {
	if err := m.bumpVersion(versionKeyNormal); err != nil {
		return err
	}
	if alsoSticky {
		return m.bumpVersion(versionKeySticky)
	}
	return nil
}

func (m *MemcachedStore) physicalKey(key string) (string, error) {
	versionKey := versionKeyNormal
	if strings.HasPrefix(key, stickyMarker) {
		versionKey = versionKeySticky
	}
	v, err := m.currentVersion(versionKey)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%sv%d:%s", memcachedNamespace, v, key), nil
}

func (m *MemcachedStore) currentVersion(versionKey string) (uint64, error) {
	item, err := m.client.Get(versionKey)
	if err == memcache.ErrCacheMiss {
		if addErr := m.client.Add(&memcache.Item{Key: versionKey, Value: []byte("1")}); addErr != nil && addErr != memcache.ErrNotStored {
			return 0, addErr
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(string(item.Value), 10, 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}

func (m *MemcachedStore) bumpVersion(versionKey string) error {
	_, err := m.client.Increment(versionKey, 1)
	if err == memcache.ErrCacheMiss {
		return m.client.Add(&memcache.Item{Key: versionKey, Value: []byte("2")})
	}
	return err
}
