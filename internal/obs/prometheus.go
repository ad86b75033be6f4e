package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quoteflow"

var _ prometheus.Collector = (*Exporter)(nil)

// Exporter publishes a Metrics snapshot on every scrape.
type Exporter struct {
	m *Metrics

	received      *prometheus.Desc
	parsed        *prometheus.Desc
	parseErrors   *prometheus.Desc
	queueDrops    *prometheus.Desc
	queueClosed   *prometheus.Desc
	framesSkipped *prometheus.Desc
	batches       *prometheus.Desc
	cleaned       *prometheus.Desc
	duplicates    *prometheus.Desc
	invalid       *prometheus.Desc
	cleanErrors   *prometheus.Desc
	saved         *prometheus.Desc
	storageErrors *prometheus.Desc
	batchAvg      *prometheus.Desc
	batchMax      *prometheus.Desc
	feedAvg       *prometheus.Desc
}

func NewExporter(m *Metrics) *Exporter {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &Exporter{
		m:             m,
		received:      desc("messages_received_total", "Raw messages delivered by vendors.", "source"),
		parsed:        desc("ticks_parsed_total", "Raw messages normalized into ticks.", "source"),
		parseErrors:   desc("parse_errors_total", "Raw messages that failed normalization.", "source"),
		queueDrops:    desc("queue_drops_total", "Messages dropped by a full collector queue."),
		queueClosed:   desc("queue_closed_total", "Messages delivered after a collector closed."),
		framesSkipped: desc("frames_skipped_total", "Vendor frames without a level-1 quote."),
		batches:       desc("batches_total", "Batches handed to the batch handler."),
		cleaned:       desc("ticks_cleaned_total", "Ticks accepted by the cleaner."),
		duplicates:    desc("ticks_duplicate_total", "Ticks dropped as duplicates."),
		invalid:       desc("ticks_invalid_total", "Ticks dropped for a missing last price."),
		cleanErrors:   desc("clean_errors_total", "Batches rejected by the cleaner."),
		saved:         desc("ticks_saved_total", "Ticks persisted by the sink."),
		storageErrors: desc("storage_errors_total", "Failed sink saves."),
		batchAvg:      desc("batch_latency_avg_seconds", "Average batch handling time."),
		batchMax:      desc("batch_latency_max_seconds", "Maximum batch handling time."),
		feedAvg:       desc("feed_latency_avg_seconds", "Average receive time minus exchange time."),
	}
}

func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		e.received, e.parsed, e.parseErrors, e.queueDrops, e.queueClosed, e.framesSkipped,
		e.batches, e.cleaned, e.duplicates, e.invalid, e.cleanErrors, e.saved, e.storageErrors,
		e.batchAvg, e.batchMax, e.feedAvg,
	} {
		ch <- d
	}
}

func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	s := e.m.Snapshot()

	for tag, v := range s.Received {
		ch <- prometheus.MustNewConstMetric(e.received, prometheus.CounterValue, float64(v), tag.String())
	}
	for tag, v := range s.Parsed {
		ch <- prometheus.MustNewConstMetric(e.parsed, prometheus.CounterValue, float64(v), tag.String())
	}
	for tag, v := range s.ParseErrors {
		ch <- prometheus.MustNewConstMetric(e.parseErrors, prometheus.CounterValue, float64(v), tag.String())
	}

	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	counter(e.queueDrops, s.QueueDrops)
	counter(e.queueClosed, s.QueueClosed)
	counter(e.framesSkipped, s.FramesSkipped)
	counter(e.batches, s.Batches)
	counter(e.cleaned, s.TicksCleaned)
	counter(e.duplicates, s.Duplicates)
	counter(e.invalid, s.Invalid)
	counter(e.cleanErrors, s.CleanErrors)
	counter(e.saved, s.TicksSaved)
	counter(e.storageErrors, s.StorageErrors)

	ch <- prometheus.MustNewConstMetric(e.batchAvg, prometheus.GaugeValue, s.BatchLatency.Avg.Seconds())
	ch <- prometheus.MustNewConstMetric(e.batchMax, prometheus.GaugeValue, s.BatchLatency.Max.Seconds())
	ch <- prometheus.MustNewConstMetric(e.feedAvg, prometheus.GaugeValue, s.FeedLatency.Avg.Seconds())
}
