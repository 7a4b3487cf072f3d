// Copyright 2025 Graphmill
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@graphmill.io
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package batch

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsBatch holds Prometheus metrics for the batch engine.
type metricsBatch struct {
	once sync.Once

	itemsSucceeded prometheus.Counter
	itemsFailed    prometheus.Counter
	retries        prometheus.Counter

	shardsWritten     prometheus.Counter
	resultsFlushed    prometheus.Counter
	duplicatesRemoved prometheus.Counter

	flushDuration prometheus.Histogram
	mergeDuration prometheus.Histogram
}

var batchMetrics metricsBatch

func (m *metricsBatch) init() {
	m.once.Do(func() {
		m.itemsSucceeded = prometheus.NewCounter(prometheus.CounterOpts{Name: "harvest_batch_items_succeeded_total", Help: "Items processed successfully"})
		m.itemsFailed = prometheus.NewCounter(prometheus.CounterOpts{Name: "harvest_batch_items_failed_total", Help: "Items failed after exhausted retries"})
		m.retries = prometheus.NewCounter(prometheus.CounterOpts{Name: "harvest_batch_retries_total", Help: "Per-item retry attempts"})

		m.shardsWritten = prometheus.NewCounter(prometheus.CounterOpts{Name: "harvest_batch_shards_written_total", Help: "Checkpoint shard files written"})
		m.resultsFlushed = prometheus.NewCounter(prometheus.CounterOpts{Name: "harvest_batch_results_flushed_total", Help: "Results flushed to shard files"})
		m.duplicatesRemoved = prometheus.NewCounter(prometheus.CounterOpts{Name: "harvest_batch_merge_duplicates_removed_total", Help: "Duplicate records dropped during merge"})

		buckets := []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
		m.flushDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "harvest_batch_flush_seconds", Help: "Checkpoint flush duration", Buckets: buckets})
		m.mergeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "harvest_batch_merge_seconds", Help: "Merge stage duration", Buckets: buckets})

		prometheus.MustRegister(
			m.itemsSucceeded, m.itemsFailed, m.retries,
			m.shardsWritten, m.resultsFlushed, m.duplicatesRemoved,
			m.flushDuration, m.mergeDuration,
		)
	})
}

// record helpers - used by the engine for metrics tracking
func recordRetry() { batchMetrics.init(); batchMetrics.retries.Inc() }

func recordItemDone(ok bool) {
	batchMetrics.init()
	if ok {
		batchMetrics.itemsSucceeded.Inc()
	} else {
		batchMetrics.itemsFailed.Inc()
	}
}

func recordFlush(results int, dur time.Duration) {
	batchMetrics.init()
	batchMetrics.shardsWritten.Inc()
	batchMetrics.resultsFlushed.Add(float64(results))
	batchMetrics.flushDuration.Observe(dur.Seconds())
}

func recordMerge(duplicates int, dur time.Duration) {
	batchMetrics.init()
	batchMetrics.duplicatesRemoved.Add(float64(duplicates))
	batchMetrics.mergeDuration.Observe(dur.Seconds())
}
