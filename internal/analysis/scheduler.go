// Package analysis periodically snapshots the live transcript and dispatches
// it for out-of-band summarization at two cadences.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"livetrans/internal/domain"
	"livetrans/internal/metrics"
	"livetrans/internal/ports"
)

// Snapshot returns a read-only copy of the transcript log. It is called at
// tick-fire time so each tick sees the log's state strictly at that moment.
type Snapshot func() []domain.TranscriptSegment

// Summarizers holds the per-tier generation clients.
type Summarizers struct {
	Checkin   ports.Summarizer
	Milestone ports.Summarizer
}

// Config controls tick cadence and prompt shaping.
type Config struct {
	CheckinInterval   time.Duration
	MilestoneInterval time.Duration
	RecentSegments    int
	TargetLanguage    string
}

// Scheduler runs the two analysis tiers and owns the append-only record log.
// A failed tick is logged and skipped; the scheduler never aborts.
type Scheduler struct {
	summarizers Summarizers
	sink        ports.EventSink
	logger      *slog.Logger
	metrics     *metrics.Metrics
	cfg         Config
	now         func() time.Time

	mu      sync.Mutex
	records []domain.AnalysisRecord
	cancel  context.CancelFunc
	started time.Time
}

func New(summarizers Summarizers, sink ports.EventSink, logger *slog.Logger, m *metrics.Metrics, cfg Config) *Scheduler {
	if cfg.CheckinInterval <= 0 {
		cfg.CheckinInterval = 5 * time.Minute
	}
	if cfg.MilestoneInterval <= 0 {
		cfg.MilestoneInterval = 15 * time.Minute
	}
	if cfg.RecentSegments <= 0 {
		cfg.RecentSegments = 50
	}
	if cfg.TargetLanguage == "" {
		cfg.TargetLanguage = "Traditional Chinese"
	}
	return &Scheduler{
		summarizers: summarizers,
		sink:        sink,
		logger:      logger,
		metrics:     m,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Start launches both tier timers. A second Start without Stop is a no-op.
func (s *Scheduler) Start(snapshot Snapshot) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.started = s.now()
	s.mu.Unlock()

	go s.runTier(ctx, snapshot, domain.AnalysisKindCheckin, s.cfg.CheckinInterval)
	go s.runTier(ctx, snapshot, domain.AnalysisKindMilestone, s.cfg.MilestoneInterval)
}

// Stop cancels both timers. In-flight summarizer calls may still complete and
// append; after teardown that is a harmless no-op for the UI.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Reset clears the record log at the start of a new session.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()
}

// Records returns a copy of the analysis log in append order.
func (s *Scheduler) Records() []domain.AnalysisRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AnalysisRecord(nil), s.records...)
}

func (s *Scheduler) runTier(ctx context.Context, snapshot Snapshot, kind domain.AnalysisKind, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Snapshot at fire time, then summarize out of band so a slow
			// call never delays the next tick or the live pipeline.
			segments := snapshot()
			if len(segments) == 0 {
				continue
			}
			go s.analyze(ctx, kind, segments)
		}
	}
}

func (s *Scheduler) analyze(ctx context.Context, kind domain.AnalysisKind, segments []domain.TranscriptSegment) {
	now := s.now()
	minutes := int(now.Sub(s.startedAt()).Minutes())

	var (
		summarizer ports.Summarizer
		label      string
		timeRange  string
		prompt     string
	)
	if kind == domain.AnalysisKindCheckin {
		lower := minutes - int(s.cfg.CheckinInterval.Minutes())
		if lower < 0 {
			lower = 0
		}
		label = fmt.Sprintf("Minute %d - %d", lower, minutes)
		timeRange = label
		if len(segments) > s.cfg.RecentSegments {
			segments = segments[len(segments)-s.cfg.RecentSegments:]
		}
		prompt = checkinPrompt(segments, label, s.cfg.TargetLanguage)
		summarizer = s.summarizers.Checkin
	} else {
		label = fmt.Sprintf("First %d Minutes", minutes)
		timeRange = "STAGE SUMMARY: " + label
		prompt = milestonePrompt(segments, label, s.cfg.TargetLanguage)
		summarizer = s.summarizers.Milestone
	}

	callStart := s.now()
	content, err := summarizer.Summarize(ctx, prompt)
	if s.metrics != nil {
		s.metrics.AnalysisDuration.Observe(s.now().Sub(callStart).Seconds())
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("analysis tick failed",
				slog.String("kind", string(kind)),
				slog.String("range", label),
				slog.Any("error", err),
			)
			s.sink.SessionError(domain.ErrorCodeAnalysis, fmt.Sprintf("analysis failed (%s): %v", label, err))
		}
		if s.metrics != nil {
			s.metrics.AnalysisFailures.WithLabelValues(string(kind)).Inc()
		}
		return
	}

	record := domain.AnalysisRecord{
		ID:          uuid.NewString(),
		TimestampMs: s.now().UnixMilli(),
		Content:     content,
		TimeRange:   timeRange,
		Kind:        kind,
	}

	s.mu.Lock()
	s.records = append(s.records, record)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.AnalysisRuns.WithLabelValues(string(kind)).Inc()
	}
	s.sink.AnalysisAdded(record)
}

func (s *Scheduler) startedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// FinalSummary generates the end-of-session study guide from the full
// transcript using the milestone-tier summarizer.
func (s *Scheduler) FinalSummary(ctx context.Context, segments []domain.TranscriptSegment) (string, error) {
	if len(segments) == 0 {
		return "", errors.New("no transcript captured")
	}
	return s.summarizers.Milestone.Summarize(ctx, finalSummaryPrompt(segments, s.cfg.TargetLanguage))
}
