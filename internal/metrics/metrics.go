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

// Package metrics defines the Prometheus collectors this module reports,
// without owning an HTTP surface: the host application registers them
// against its own registerer and exposes /metrics however it sees fit
// (exposing HTTP endpoints is explicitly out of scope for this library).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// RoundTrips counts completed facet batch round-trips (one increment
	// per FacetGroup.ApplyResults call, whether the batch came from
	// FacetGroup.computeFresh or was shared with a FacetedClient main query).
	RoundTrips = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fsphinx",
		Subsystem: "facet",
		Name:      "round_trips_total",
		Help:      "Total number of facet batch round-trips issued to the search backend.",
	})

	// CacheHits counts FacetGroup.Compute calls served entirely from cache.
	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fsphinx",
		Subsystem: "facet",
		Name:      "cache_hits_total",
		Help:      "Total number of facet compute calls served from cache.",
	})

	// CacheMisses counts FacetGroup.Compute calls that found no cached entry.
	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fsphinx",
		Subsystem: "facet",
		Name:      "cache_misses_total",
		Help:      "Total number of facet compute calls that missed the cache.",
	})

	// ComputeLatency observes the wall-clock duration of a single
	// FacetGroup.computeFresh call, cache path excluded.
	ComputeLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fsphinx",
		Subsystem: "facet",
		Name:      "compute_latency_seconds",
		Help:      "Latency of a single uncached facet batch computation.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Register registers every collector in this package against reg. Callers
// own the registry and any HTTP exposition of it; this package never starts
// a server (spec's HTTP/CLI surface is an external collaborator's concern).
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{RoundTrips, CacheHits, CacheMisses, ComputeLatency} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}
