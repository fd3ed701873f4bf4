/**
 * Copyright (c) 2019, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package metrics registers and serves the pool's Prometheus collectors: one
// set of series shared process-wide, labeled per pool by name.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	namespaceMu sync.Mutex
	namespace   string

	registerOnce sync.Once

	levelElapsed  *prometheus.CounterVec
	level0Chance  *prometheus.GaugeVec
	activeWorkers *prometheus.HistogramVec
)

// SetNamespace sets the namespace prefix applied to every metric name. It
// must be called before the first pool is built; metrics registered before
// a call to SetNamespace keep their bare names.
func SetNamespace(ns string) {
	namespaceMu.Lock()
	namespace = ns
	namespaceMu.Unlock()
}

func currentNamespace() string {
	namespaceMu.Lock()
	defer namespaceMu.Unlock()
	return namespace
}

// register lazily constructs and registers the three series this module
// exposes, exactly once per process, reading whatever namespace is current
// at the time of the first pool build. Later calls to SetNamespace have no
// effect on already-registered collectors, since registration happens only
// once, via sync.Once.
func register() {
	registerOnce.Do(func() {
		ns := currentNamespace()

		levelElapsed = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "multilevel_level_elapsed",
			Help:      "elapsed time of each level in the multilevel task queue",
		}, []string{"pool_name", "level"})

		level0Chance = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "multilevel_level0_chance",
			Help:      "the chance that a level 0 task is scheduled to run",
		}, []string{"pool_name"})

		activeWorkers = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "yatp_active_workers_count",
			Help:      "the count of active workers",
			Buckets:   []float64{1, 2, 4, 6, 8, 12, 16, 24, 32, 48, 64, 96, 128},
		}, []string{"pool_name"})

		prometheus.MustRegister(levelElapsed, level0Chance, activeWorkers)
	})
}

// PoolMetrics is a single pool's view of the process-wide collectors,
// pre-bound to its "pool_name" label so call sites never pass labels by
// hand.
type PoolMetrics struct {
	name string
}

// ForPool returns the PoolMetrics for a pool named name, registering the
// process-wide collectors on first use.
func ForPool(name string) *PoolMetrics {
	register()
	return &PoolMetrics{name: name}
}

// AddLevelElapsed adds seconds of running time observed for level to the
// multilevel_level_elapsed counter.
func (m *PoolMetrics) AddLevelElapsed(level string, seconds float64) {
	levelElapsed.WithLabelValues(m.name, level).Add(seconds)
}

// SetLevel0Chance records the current Level0 admission chance.
func (m *PoolMetrics) SetLevel0Chance(chance float64) {
	level0Chance.WithLabelValues(m.name).Set(chance)
}

// ObserveActiveWorkers records a sample of the number of workers currently
// handling a task (as opposed to parked).
func (m *PoolMetrics) ObserveActiveWorkers(count float64) {
	activeWorkers.WithLabelValues(m.name).Observe(count)
}
