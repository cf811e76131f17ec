// Package metrics implements a prometheus.Collector exposing resource and
// traffic counters for an hdb Session.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/opensap/hdb-go/internal/protocol"
)

const namespace = "go_hdb"

// Statter is implemented by anything that can report an hdb traffic/resource
// snapshot — in practice *protocol.Session, kept as an interface so callers
// don't need to import the internal package themselves.
type Statter interface {
	Stats() protocol.Stats
}

type collector struct {
	s Statter

	openStatements *prometheus.Desc
	openResultsets *prometheus.Desc
	bytesRead      *prometheus.Desc
	bytesWritten   *prometheus.Desc
	requestsSent   *prometheus.Desc
}

// NewSessionCollector returns a prometheus.Collector exporting s's traffic
// and open-resource counters under the "session" subsystem, labeled with
// dbName so multiple sessions can be distinguished in aggregation.
func NewSessionCollector(s Statter, dbName string) prometheus.Collector {
	labels := prometheus.Labels{"db_name": dbName}
	fqName := func(name string) string { return strings.Join([]string{namespace, "session", name}, "_") }
	return &collector{
		s: s,
		openStatements: prometheus.NewDesc(
			fqName("open_statements"),
			"The number of open prepared statements.",
			nil, labels,
		),
		openResultsets: prometheus.NewDesc(
			fqName("open_resultsets"),
			"The number of open result sets.",
			nil, labels,
		),
		bytesRead: prometheus.NewDesc(
			fqName("bytes_read"),
			"Total bytes read from the session's connection.",
			nil, labels,
		),
		bytesWritten: prometheus.NewDesc(
			fqName("bytes_written"),
			"Total bytes written to the session's connection.",
			nil, labels,
		),
		requestsSent: prometheus.NewDesc(
			fqName("requests_sent"),
			"Total request messages sent over the session's lifetime.",
			nil, labels,
		),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.openStatements
	ch <- c.openResultsets
	ch <- c.bytesRead
	ch <- c.bytesWritten
	ch <- c.requestsSent
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.s.Stats()
	ch <- prometheus.MustNewConstMetric(c.openStatements, prometheus.GaugeValue, float64(stats.OpenStatements))
	ch <- prometheus.MustNewConstMetric(c.openResultsets, prometheus.GaugeValue, float64(stats.OpenResultsets))
	ch <- prometheus.MustNewConstMetric(c.bytesRead, prometheus.CounterValue, float64(stats.BytesRead))
	ch <- prometheus.MustNewConstMetric(c.bytesWritten, prometheus.CounterValue, float64(stats.BytesWritten))
	ch <- prometheus.MustNewConstMetric(c.requestsSent, prometheus.CounterValue, float64(stats.RequestsSent))
}
