// Package metrics exports client and pool statistics to Prometheus.
//
//	registry := prometheus.NewRegistry()
//	registry.MustRegister(metrics.NewCollector(client, "cache"))
package metrics

import (
	"github.com/pior/redisclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

const namespace = "redisclient"

// Source is the part of *redisclient.Client read by the collector.
type Source interface {
	Stats() redisclient.ClientStats
	PoolStats() redisclient.PoolStats
	BreakerState() gobreaker.State
}

// Collector reads statistics from a Source on every scrape.
// Metrics carry a constant "client" label to tell several clients apart.
type Collector struct {
	source Source

	commands      *prometheus.Desc
	errorReplies  *prometheus.Desc
	errors        *prometheus.Desc
	operations    *prometheus.Desc
	getHits       *prometheus.Desc
	connections   *prometheus.Desc
	acquires      *prometheus.Desc
	acquireWaits  *prometheus.Desc
	acquireErrors *prometheus.Desc
	waitSeconds   *prometheus.Desc
	created       *prometheus.Desc
	destroyed     *prometheus.Desc
	breakerState  *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector for source, labelled with name.
func NewCollector(source Source, name string) *Collector {
	labels := prometheus.Labels{"client": name}
	desc := func(metric, help string, variableLabels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", metric), help, variableLabels, labels)
	}

	return &Collector{
		source: source,

		commands:     desc("commands_total", "Commands that got a reply."),
		errorReplies: desc("error_replies_total", "Replies of kind error."),
		errors:       desc("errors_total", "Commands that failed without a usable reply."),
		operations:   desc("operations_total", "Successful typed operations.", "operation"),
		getHits:      desc("get_hits_total", "GET operations that found the key."),

		connections:   desc("pool_connections", "Pool connections by state.", "state"),
		acquires:      desc("pool_acquires_total", "Connection acquire attempts."),
		acquireWaits:  desc("pool_acquire_waits_total", "Acquires that had to wait for a free connection."),
		acquireErrors: desc("pool_acquire_errors_total", "Failed connection acquires."),
		waitSeconds:   desc("pool_acquire_wait_seconds_total", "Time spent waiting for a free connection."),
		created:       desc("pool_created_connections_total", "Connections created."),
		destroyed:     desc("pool_destroyed_connections_total", "Connections destroyed."),

		breakerState: desc("circuit_breaker_state", "Circuit breaker state (0=closed, 1=half-open, 2=open)."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.commands
	ch <- c.errorReplies
	ch <- c.errors
	ch <- c.operations
	ch <- c.getHits
	ch <- c.connections
	ch <- c.acquires
	ch <- c.acquireWaits
	ch <- c.acquireErrors
	ch <- c.waitSeconds
	ch <- c.created
	ch <- c.destroyed
	ch <- c.breakerState
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()
	pool := c.source.PoolStats()

	counter := func(desc *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(desc *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v, labels...)
	}

	counter(c.commands, stats.Commands)
	counter(c.errorReplies, stats.ErrorReplies)
	counter(c.errors, stats.Errors)
	counter(c.operations, stats.Sets, "set")
	counter(c.operations, stats.Gets, "get")
	counter(c.operations, stats.Incrs, "incr")
	counter(c.getHits, stats.GetHits)

	gauge(c.connections, float64(pool.TotalConns), "total")
	gauge(c.connections, float64(pool.IdleConns), "idle")
	gauge(c.connections, float64(pool.ActiveConns), "active")
	counter(c.acquires, pool.AcquireCount)
	counter(c.acquireWaits, pool.AcquireWaitCount)
	counter(c.acquireErrors, pool.AcquireErrors)
	ch <- prometheus.MustNewConstMetric(c.waitSeconds, prometheus.CounterValue, float64(pool.AcquireWaitTimeNs)/1e9)
	counter(c.created, pool.CreatedConns)
	counter(c.destroyed, pool.DestroyedConns)

	gauge(c.breakerState, float64(c.source.BreakerState()))
}
