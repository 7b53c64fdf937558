// Package metrics exposes copy statistics to Prometheus.
//
// Counters are read from a stats.Reader at scrape time, so the copy loop
// never touches Prometheus types. When no metrics address is configured the
// package is never used and costs nothing.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bamsammich/ddx/internal/stats"
)

const namespace = "ddx"

var (
	recordsInDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "records_in_total"),
		"Input records read, by full or partial.",
		[]string{"kind"}, nil,
	)
	recordsOutDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "records_out_total"),
		"Output records written, by full or partial.",
		[]string{"kind"}, nil,
	)
	truncatedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "truncated_records_total"),
		"Records truncated to cbs by conv=block.",
		nil, nil,
	)
	bytesInDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "bytes_in_total"),
		"Bytes read from the input.",
		nil, nil,
	)
	bytesOutDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "bytes_out_total"),
		"Bytes written to the output.",
		nil, nil,
	)
	extraReadsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "extra_reads_total"),
		"Additional reads issued to fill a block with iflag=fullblock.",
		nil, nil,
	)
	readErrorsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "read_errors_total"),
		"Read errors skipped with conv=noerror.",
		nil, nil,
	)
	elapsedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "elapsed_seconds"),
		"Seconds since the copy started.",
		nil, nil,
	)
	throughputDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "throughput_bytes_per_second"),
		"Average output throughput since the copy started.",
		nil, nil,
	)
	recentThroughputDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "recent_throughput_bytes_per_second"),
		"Output throughput over the last ten sampled seconds.",
		nil, nil,
	)
)

// recentWindow is the number of one-second samples behind the recent
// throughput gauge.
const recentWindow = 10

type rollingSpeeder interface {
	RollingSpeed(seconds int) float64
}

// statsCollector adapts a stats.Reader to prometheus.Collector. Each scrape
// takes one snapshot so all series are mutually consistent.
type statsCollector struct {
	src stats.Reader
}

// NewCollector returns a Prometheus collector over src.
func NewCollector(src stats.Reader) prometheus.Collector {
	return &statsCollector{src: src}
}

func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- recordsInDesc
	ch <- recordsOutDesc
	ch <- truncatedDesc
	ch <- bytesInDesc
	ch <- bytesOutDesc
	ch <- extraReadsDesc
	ch <- readErrorsDesc
	ch <- elapsedDesc
	ch <- throughputDesc
	if _, ok := c.src.(rollingSpeeder); ok {
		ch <- recentThroughputDesc
	}
}

func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Snapshot()
	counter := func(d *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	counter(recordsInDesc, s.RecordsInFull, "full")
	counter(recordsInDesc, s.RecordsInPartial, "partial")
	counter(recordsOutDesc, s.RecordsOutFull, "full")
	counter(recordsOutDesc, s.RecordsOutPartial, "partial")
	counter(truncatedDesc, s.Truncated)
	counter(bytesInDesc, s.BytesIn)
	counter(bytesOutDesc, s.BytesOut)
	counter(extraReadsDesc, s.ExtraReads)
	counter(readErrorsDesc, s.ReadErrors)
	ch <- prometheus.MustNewConstMetric(elapsedDesc, prometheus.GaugeValue, s.Elapsed.Seconds())
	ch <- prometheus.MustNewConstMetric(throughputDesc, prometheus.GaugeValue, s.Rate())
	if r, ok := c.src.(rollingSpeeder); ok {
		ch <- prometheus.MustNewConstMetric(recentThroughputDesc, prometheus.GaugeValue, r.RollingSpeed(recentWindow))
	}
}

// NewRegistry returns a registry holding the copy statistics from src plus
// the standard Go runtime and process collectors.
func NewRegistry(src stats.Reader) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		NewCollector(src),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Sample feeds the collector's throughput ring once per interval until ctx
// is done. Only one goroutine may sample a collector; the progress
// presenter does so itself.
func Sample(ctx context.Context, c interface{ Tick() }, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}
