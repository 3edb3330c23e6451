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

	"github.com/therealbill/libredis/client"
	"go.uber.org/zap"
)

// redisNamespace isolates this cache's keys from unrelated keys sharing the
// same Redis instance (spec §6's adapter-side namespace prefix).
const redisNamespace = "FSPHINX_"

// keyCountWarnThreshold is the number of keys a Clear's KEYS scan can match
// before RedisStore logs a Warn, per spec §9 Ambiguity 4 ("KEYS prefix* is
// O(N) on the keyspace; consider SCAN for production").
const keyCountWarnThreshold = 10000

// RedisStore is a KVStore backed by a Redis connection via
// github.com/therealbill/libredis/client. Clear uses KEYS+DEL, matching
// spec §6's literal adapter description.
type RedisStore struct {
	conn   *client.Redis
	logger *zap.Logger
}

// NewRedisStore wraps an already-dialed *client.Redis connection.
func NewRedisStore(conn *client.Redis, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{conn: conn, logger: logger}
}

func (r *RedisStore) Get(_ context.Context, key string) ([]byte, bool) {
	v, err := r.conn.Get(redisNamespace + key)
	if err != nil || v == "" {
		return nil, false
	}
	return []byte(v), true
}

func (r *RedisStore) Set(_ context.Context, key string, value []byte, overwrite, _ bool) error {
	fullKey := redisNamespace + key
	if !overwrite {
		existing, err := r.conn.Get(fullKey)
		if err == nil && existing != "" {
			return nil
		}
	}
	return r.conn.Set(fullKey, string(value))
}

// Clear enumerates keys matching the namespace (and, if alsoSticky, the
// sticky-prefixed subset too) via KEYS, then deletes them with DEL.
func (r *RedisStore) Clear(_ context.Context, alsoSticky bool) error {
	pattern := redisNamespace + "*"
	keys, err := r.conn.Keys(pattern)
	if err != nil {
		return err
	}
	if len(keys) > keyCountWarnThreshold {
		r.logger.Warn("redis cache clear matched a large keyspace scan",
			zap.Int("matched", len(keys)), zap.String("pattern", pattern))
	}

	var toDelete []string
	for _, k := range keys {
		isSticky := len(k) >= len(redisNamespace)+len(stickyMarker) &&
			k[len(redisNamespace):len(redisNamespace)+len(stickyMarker)] == stickyMarker
		if isSticky && !alsoSticky {
			continue
		}
		toDelete = append(toDelete, k)
	}
	if len(toDelete) == 0 {
		return nil
	}
	_, err = r.conn.Del(toDelete...)
	return err
}
