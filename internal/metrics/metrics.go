// Package metrics defines the Prometheus instruments of the feed engine.
package metrics

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

var (
	// Remote collaborator
	RemoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_remote_requests_total",
			Help: "Remote collaborator calls by operation and outcome",
		},
		[]string{"operation", "outcome"}, // outcome: "ok" or an error code
	)

	RemoteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelfeed_remote_request_duration_seconds",
			Help:    "Duration of remote collaborator calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	RemoteRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_remote_rejected_total",
			Help: "Remote calls rejected locally by the circuit breaker or rate limiter",
		},
		[]string{"operation", "reason"}, // "breaker_open", "too_many_requests", "rate_limited"
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reelfeed_remote_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Feed
	FilterEmissions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelfeed_filter_emissions_total",
			Help: "Normalized filters emitted by the filter normalizer",
		},
	)

	PagesAppended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelfeed_feed_pages_appended_total",
			Help: "Pages appended to the page cache",
		},
	)

	FetchSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_feed_fetch_skipped_total",
			Help: "fetchNext calls that did not start a request",
		},
		[]string{"reason"}, // "fetching", "exhausted"
	)

	StaleResults = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelfeed_feed_stale_results_total",
			Help: "Page results discarded because the filter changed while in flight",
		},
	)

	FetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_feed_fetch_errors_total",
			Help: "Failed page fetches by error code",
		},
		[]string{"code"},
	)

	// Likes
	LikeToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelfeed_like_toggles_total",
			Help: "Like toggle attempts by outcome",
		},
		[]string{"outcome"}, // "confirmed", "pending", "unauthorized", "kept", "rolled_back"
	)

	LikeLoadsDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelfeed_like_loads_discarded_total",
			Help: "Like loads dropped because a toggle overlapped them",
		},
	)

	// Playback
	Playing = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reelfeed_playback_playing",
			Help: "Items currently playing",
		},
	)

	AutoplayRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelfeed_playback_autoplay_rejected_total",
			Help: "Autoplay attempts rejected by the player",
		},
	)
)

// RecordRemoteCall records the outcome and duration of a remote call.
// code is empty on success.
func RecordRemoteCall(operation, code string, duration time.Duration) {
	outcome := "ok"
	if code != "" {
		outcome = strings.ToLower(code)
	}
	RemoteRequests.WithLabelValues(operation, outcome).Inc()
	RemoteDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// WriteText writes every registered metric family in the Prometheus text format.
func WriteText(w io.Writer, prefix string) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if prefix != "" && !strings.HasPrefix(mf.GetName(), prefix) {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
