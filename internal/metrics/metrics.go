// Package metrics holds the ambient Prometheus counters/histograms for
// the ingestion and detection pipeline (§6.3 ambient stack): throughput,
// detector duration, and store retry counts. Nothing here is on the
// critical analysis path - every record* helper is a fire-and-forget
// side effect the caller never checks.
//
// Reference: _examples/kraklabs-cie/pkg/ingestion/metrics.go - the
// sync.Once-guarded package-level metrics struct with MustRegister on
// first use is the grounding source for this file's shape.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type pipelineMetrics struct {
	once sync.Once

	filesIngested     prometheus.Counter
	filesSkipped      prometheus.Counter
	ingestionErrors   prometheus.Counter
	entitiesWritten   prometheus.Counter
	relationshipsWritten prometheus.Counter

	storeRetries prometheus.Counter

	findingsEmitted prometheus.Counter
	findingsDeduped prometheus.Counter

	ingestionDuration prometheus.Histogram
	detectorDuration  *prometheus.HistogramVec
	analysisDuration  prometheus.Histogram
}

var m pipelineMetrics

func (m *pipelineMetrics) init() {
	m.once.Do(func() {
		m.filesIngested = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codehealth_ingest_files_total", Help: "Source files successfully parsed and staged for the graph.",
		})
		m.filesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codehealth_ingest_files_skipped_total", Help: "Walked files skipped because they could not be read, exceeded the size limit, or failed to parse.",
		})
		m.ingestionErrors = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codehealth_ingest_errors_total", Help: "Parse or extraction failures during ingestion.",
		})
		m.entitiesWritten = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codehealth_graph_entities_total", Help: "Entities written to the graph store.",
		})
		m.relationshipsWritten = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codehealth_graph_relationships_total", Help: "Relationships written to the graph store.",
		})
		m.storeRetries = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codehealth_store_retries_total", Help: "Transient-failure retries issued by the graph store.",
		})
		m.findingsEmitted = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codehealth_findings_total", Help: "Findings emitted by the detector library before dedup.",
		})
		m.findingsDeduped = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codehealth_findings_deduped_total", Help: "Findings removed by the deduplicator.",
		})

		buckets := []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60}
		m.ingestionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "codehealth_ingest_seconds", Help: "Wall-clock time spent ingesting a repository.", Buckets: buckets,
		})
		m.detectorDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "codehealth_detector_seconds", Help: "Wall-clock time spent in each detector.", Buckets: buckets,
		}, []string{"detector"})
		m.analysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "codehealth_analysis_seconds", Help: "Wall-clock time for a full analyze() run.", Buckets: buckets,
		})

		prometheus.MustRegister(
			m.filesIngested, m.filesSkipped, m.ingestionErrors,
			m.entitiesWritten, m.relationshipsWritten, m.storeRetries,
			m.findingsEmitted, m.findingsDeduped,
			m.ingestionDuration, m.detectorDuration, m.analysisDuration,
		)
	})
}

func RecordFileIngested()   { m.init(); m.filesIngested.Inc() }
func RecordFileSkipped()    { m.init(); m.filesSkipped.Inc() }
func RecordIngestionError() { m.init(); m.ingestionErrors.Inc() }

func RecordEntitiesWritten(n int)      { m.init(); m.entitiesWritten.Add(float64(n)) }
func RecordRelationshipsWritten(n int) { m.init(); m.relationshipsWritten.Add(float64(n)) }
func RecordStoreRetry()                { m.init(); m.storeRetries.Inc() }

func RecordFindingsEmitted(n int) { m.init(); m.findingsEmitted.Add(float64(n)) }
func RecordFindingsDeduped(n int) { m.init(); m.findingsDeduped.Add(float64(n)) }

func ObserveIngestionSeconds(s float64)              { m.init(); m.ingestionDuration.Observe(s) }
func ObserveDetectorSeconds(detector string, s float64) {
	m.init()
	m.detectorDuration.WithLabelValues(detector).Observe(s)
}
func ObserveAnalysisSeconds(s float64) { m.init(); m.analysisDuration.Observe(s) }
