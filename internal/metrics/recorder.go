// Package metrics records per-source search outcomes on a private Prometheus
// registry and writes them in the node exporter textfile format.
package metrics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespaceConstant                   = "offboard"
	sourceLabelConstant                 = "source"
	outcomeLabelConstant                = "outcome"
	errorKindLabelConstant              = "error_kind"
	noErrorKindLabelValueConstant       = "none"
	textfilePathRequiredMessageConstant = "metrics textfile path must be provided"
	textfileWriteErrorTemplateConstant  = "unable to write metrics textfile %s: %w"
)

// Recorder collects search metrics for one process run.
type Recorder struct {
	registry         *prometheus.Registry
	sourceSearches   *prometheus.CounterVec
	sourceDuration   *prometheus.HistogramVec
	sourceMatches    *prometheus.CounterVec
	lastRunTimestamp prometheus.Gauge
}

// NewRecorder registers the search metrics on a fresh registry.
func NewRecorder() *Recorder {
	recorder := &Recorder{
		registry: prometheus.NewRegistry(),
		sourceSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceConstant,
			Name:      "source_searches_total",
			Help:      "Account source searches by outcome",
		}, []string{sourceLabelConstant, outcomeLabelConstant, errorKindLabelConstant}),
		sourceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespaceConstant,
			Name:      "source_search_duration_seconds",
			Help:      "Time spent listing identities of an account source",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{sourceLabelConstant}),
		sourceMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceConstant,
			Name:      "source_matches_total",
			Help:      "Identities matched per account source",
		}, []string{sourceLabelConstant}),
		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceConstant,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed search",
		}),
	}

	recorder.registry.MustRegister(
		recorder.sourceSearches,
		recorder.sourceDuration,
		recorder.sourceMatches,
		recorder.lastRunTimestamp,
	)
	return recorder
}

// ObserveSource records the outcome of searching one source. Successful
// searches are labelled with error_kind="none".
func (recorder *Recorder) ObserveSource(sourceName string, outcome string, errorKind string, duration time.Duration, matchCount int) {
	if recorder == nil {
		return
	}
	if len(errorKind) == 0 {
		errorKind = noErrorKindLabelValueConstant
	}
	recorder.sourceSearches.WithLabelValues(sourceName, outcome, errorKind).Inc()
	recorder.sourceDuration.WithLabelValues(sourceName).Observe(duration.Seconds())
	recorder.sourceMatches.WithLabelValues(sourceName).Add(float64(matchCount))
}

// MarkCompleted stamps the completion time of a search.
func (recorder *Recorder) MarkCompleted(completedAt time.Time) {
	if recorder == nil {
		return
	}
	recorder.lastRunTimestamp.Set(float64(completedAt.Unix()))
}

// Gatherer exposes the registry for inspection.
func (recorder *Recorder) Gatherer() prometheus.Gatherer {
	return recorder.registry
}

// WriteTextfile atomically writes the collected metrics to filePath.
func (recorder *Recorder) WriteTextfile(filePath string) error {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return errors.New(textfilePathRequiredMessageConstant)
	}
	if writeError := prometheus.WriteToTextfile(trimmedPath, recorder.registry); writeError != nil {
		return fmt.Errorf(textfileWriteErrorTemplateConstant, trimmedPath, writeError)
	}
	return nil
}
