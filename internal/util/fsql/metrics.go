// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fsql

import (
	"database/sql"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Parts of Prometheus metric names.
const (
	namespace = "notestore"
	subsystem = "sql"
)

// metricsCollector exposes connection metrics.
type metricsCollector struct {
	name   string
	stats  func() sql.DBStats
	nStmts *atomic.Int64
	txs    *prometheus.CounterVec
}

// newMetricsCollector creates a new metricsCollector.
func newMetricsCollector(name string, stats func() sql.DBStats, nStmts *atomic.Int64) *metricsCollector {
	return &metricsCollector{
		name:   name,
		stats:  stats,
		nStmts: nStmts,
		txs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   subsystem,
				Name:        "transactions_total",
				Help:        "The total number of ended transactions.",
				ConstLabels: prometheus.Labels{"name": name},
			},
			[]string{"kind", "result"},
		),
	}
}

// Describe implements [prometheus.Collector].
func (c *metricsCollector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

// Collect implements [prometheus.Collector].
func (c *metricsCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.stats()
	constLabels := prometheus.Labels{"name": c.name}

	ch <- prometheus.MustNewConstMetric(
		prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "open_connections"),
			"The number of established connections both in use and idle.",
			nil, constLabels,
		),
		prometheus.GaugeValue,
		float64(stats.OpenConnections),
	)

	ch <- prometheus.MustNewConstMetric(
		prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "prepared_statements"),
			"The number of cached prepared statements.",
			nil, constLabels,
		),
		prometheus.GaugeValue,
		float64(c.nStmts.Load()),
	)

	c.txs.Collect(ch)
}

// check interfaces
var (
	_ prometheus.Collector = (*metricsCollector)(nil)
)
