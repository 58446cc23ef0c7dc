// Package metrics exposes Prometheus instrumentation for the session engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the live session engine.
type Metrics struct {
	// Capture pipeline
	FramesSent    prometheus.Counter
	FramesDropped prometheus.Counter
	InputLevel    prometheus.Gauge

	// Playback scheduler
	ChunksScheduled prometheus.Counter
	ChunksMuted     prometheus.Counter
	ChunksSkipped   prometheus.Counter

	// Transcript reconciler
	SegmentsFinalized *prometheus.CounterVec

	// Analysis scheduler
	AnalysisRuns     *prometheus.CounterVec
	AnalysisFailures *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram

	// Session lifecycle
	SessionsStarted prometheus.Counter
	SessionErrors   *prometheus.CounterVec
}

// New creates and registers all metrics with the given registry.
// A nil registry uses the default one.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		FramesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetrans_capture_frames_sent_total",
			Help: "Encoded audio frames forwarded to the live session",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetrans_capture_frames_dropped_total",
			Help: "Audio frames dropped because the transport was not open",
		}),
		InputLevel: factory.NewGauge(prometheus.GaugeOpts{
			Name: "livetrans_capture_input_level",
			Help: "Rolling mean amplitude of the most recent captured frame",
		}),
		ChunksScheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetrans_playback_chunks_scheduled_total",
			Help: "Audio chunks scheduled for playback",
		}),
		ChunksMuted: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetrans_playback_chunks_muted_total",
			Help: "Audio chunks dropped while playback was muted",
		}),
		ChunksSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetrans_playback_chunks_skipped_total",
			Help: "Audio chunks skipped due to decode failure",
		}),
		SegmentsFinalized: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "livetrans_transcript_segments_finalized_total",
			Help: "Finalized transcript segments by speaker",
		}, []string{"speaker"}),
		AnalysisRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "livetrans_analysis_runs_total",
			Help: "Completed analysis ticks by tier",
		}, []string{"kind"}),
		AnalysisFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "livetrans_analysis_failures_total",
			Help: "Failed analysis ticks by tier",
		}, []string{"kind"}),
		AnalysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "livetrans_analysis_duration_seconds",
			Help:    "Wall time of summarizer calls",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "livetrans_sessions_started_total",
			Help: "Live sessions successfully connected",
		}),
		SessionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "livetrans_session_errors_total",
			Help: "Backend errors by code",
		}, []string{"code"}),
	}
}

// Serve starts a metrics HTTP listener. It returns the server so the caller
// can shut it down.
func Serve(address string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:         address,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		_ = server.ListenAndServe()
	}()
	return server
}
