package analysis

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"livetrans/internal/domain"
)

type fakeSummarizer struct {
	mu      sync.Mutex
	calls   int
	failing bool
	result  string
}

func (f *fakeSummarizer) Summarize(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failing {
		return "", domain.ErrSummarization
	}
	if f.result != "" {
		return f.result, nil
	}
	return "analysis of " + prompt[:20], nil
}

func (f *fakeSummarizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordSink struct {
	mu      sync.Mutex
	records []domain.AnalysisRecord
	errs    []domain.ErrorCode
	added   chan domain.AnalysisRecord
}

func newRecordSink() *recordSink {
	return &recordSink{added: make(chan domain.AnalysisRecord, 16)}
}

func (s *recordSink) ConnStateChanged(domain.ConnState, string) {}

func (s *recordSink) TranscriptUpdated(domain.TranscriptSegment) {}

func (s *recordSink) InputLevel(float64) {}
func (s *recordSink) SessionError(code domain.ErrorCode, _ string) {
	s.mu.Lock()
	s.errs = append(s.errs, code)
	s.mu.Unlock()
}

func (s *recordSink) snapshotErrors() []domain.ErrorCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ErrorCode(nil), s.errs...)
}

func (s *recordSink) AnalysisAdded(record domain.AnalysisRecord) {
	s.mu.Lock()
	s.records = append(s.records, record)
	s.mu.Unlock()
	s.added <- record
}

func waitForRecord(t *testing.T, sink *recordSink) domain.AnalysisRecord {
	t.Helper()
	select {
	case record := <-sink.added:
		return record
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for analysis record")
		return domain.AnalysisRecord{}
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func segments(n int) []domain.TranscriptSegment {
	out := make([]domain.TranscriptSegment, n)
	for i := range out {
		out[i] = domain.TranscriptSegment{
			ID:          "seg",
			Speaker:     domain.SpeakerUser,
			Text:        "hello world segment",
			TimestampMs: time.Now().UnixMilli(),
		}
	}
	return out
}

func TestSchedulerEmptySnapshotProducesNoRecord(t *testing.T) {
	t.Parallel()

	sum := &fakeSummarizer{}
	sink := newRecordSink()
	s := New(Summarizers{Checkin: sum, Milestone: sum}, sink, testLogger(), nil, Config{
		CheckinInterval:   10 * time.Millisecond,
		MilestoneInterval: time.Hour,
	})

	s.Start(func() []domain.TranscriptSegment { return nil })
	defer s.Stop()

	time.Sleep(80 * time.Millisecond)
	require.Empty(t, s.Records())
	require.Zero(t, sum.callCount())
}

func TestSchedulerAppendsCheckinRecords(t *testing.T) {
	t.Parallel()

	sum := &fakeSummarizer{result: "pulse check"}
	sink := newRecordSink()
	s := New(Summarizers{Checkin: sum, Milestone: &fakeSummarizer{}}, sink, testLogger(), nil, Config{
		CheckinInterval:   20 * time.Millisecond,
		MilestoneInterval: time.Hour,
	})

	s.Start(func() []domain.TranscriptSegment { return segments(3) })
	defer s.Stop()

	first := waitForRecord(t, sink)
	second := waitForRecord(t, sink)

	require.Equal(t, domain.AnalysisKindCheckin, first.Kind)
	require.Equal(t, "pulse check", first.Content)
	require.NotEqual(t, first.ID, second.ID)
	require.GreaterOrEqual(t, second.TimestampMs, first.TimestampMs)
	require.Contains(t, first.TimeRange, "Minute ")

	records := s.Records()
	require.GreaterOrEqual(t, len(records), 2)
	for _, record := range records {
		require.Equal(t, domain.AnalysisKindCheckin, record.Kind)
	}
}

func TestSchedulerMilestoneTier(t *testing.T) {
	t.Parallel()

	milestone := &fakeSummarizer{result: "stage summary"}
	sink := newRecordSink()
	s := New(Summarizers{Checkin: &fakeSummarizer{}, Milestone: milestone}, sink, testLogger(), nil, Config{
		CheckinInterval:   time.Hour,
		MilestoneInterval: 20 * time.Millisecond,
	})

	s.Start(func() []domain.TranscriptSegment { return segments(2) })
	defer s.Stop()

	record := waitForRecord(t, sink)
	require.Equal(t, domain.AnalysisKindMilestone, record.Kind)
	require.Contains(t, record.TimeRange, "STAGE SUMMARY: First ")
}

func TestSchedulerSurvivesFailedTicks(t *testing.T) {
	t.Parallel()

	sum := &fakeSummarizer{failing: true}
	sink := newRecordSink()
	s := New(Summarizers{Checkin: sum, Milestone: &fakeSummarizer{}}, sink, testLogger(), nil, Config{
		CheckinInterval:   15 * time.Millisecond,
		MilestoneInterval: time.Hour,
	})

	s.Start(func() []domain.TranscriptSegment { return segments(1) })

	// Let several failing ticks fire, then heal the summarizer.
	time.Sleep(60 * time.Millisecond)
	require.Empty(t, s.Records())
	require.GreaterOrEqual(t, sum.callCount(), 2)
	errs := sink.snapshotErrors()
	require.NotEmpty(t, errs)
	require.Equal(t, domain.ErrorCodeAnalysis, errs[0])

	sum.mu.Lock()
	sum.failing = false
	sum.mu.Unlock()

	record := waitForRecord(t, sink)
	require.Equal(t, domain.AnalysisKindCheckin, record.Kind)
	s.Stop()
}

func TestSchedulerStopHaltsTicks(t *testing.T) {
	t.Parallel()

	sum := &fakeSummarizer{}
	sink := newRecordSink()
	s := New(Summarizers{Checkin: sum, Milestone: sum}, sink, testLogger(), nil, Config{
		CheckinInterval:   10 * time.Millisecond,
		MilestoneInterval: 10 * time.Millisecond,
	})

	s.Start(func() []domain.TranscriptSegment { return segments(1) })
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	time.Sleep(30 * time.Millisecond)
	calls := sum.callCount()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, calls, sum.callCount(), "ticks kept firing after Stop")

	// Stop twice is safe.
	s.Stop()
}

func TestSchedulerResetClearsRecords(t *testing.T) {
	t.Parallel()

	sink := newRecordSink()
	s := New(Summarizers{}, sink, testLogger(), nil, Config{})
	s.mu.Lock()
	s.records = []domain.AnalysisRecord{{ID: "old"}}
	s.mu.Unlock()

	s.Reset()
	require.Empty(t, s.Records())
}

func TestFinalSummary(t *testing.T) {
	t.Parallel()

	milestone := &fakeSummarizer{result: "study guide"}
	s := New(Summarizers{Milestone: milestone}, newRecordSink(), testLogger(), nil, Config{})

	_, err := s.FinalSummary(context.Background(), nil)
	require.Error(t, err)

	out, err := s.FinalSummary(context.Background(), segments(2))
	require.NoError(t, err)
	require.Equal(t, "study guide", out)
}

func TestCheckinUsesRecentSegmentsOnly(t *testing.T) {
	t.Parallel()

	var capturedMu sync.Mutex
	var captured string
	sum := summarizeFunc(func(_ context.Context, prompt string) (string, error) {
		capturedMu.Lock()
		captured = prompt
		capturedMu.Unlock()
		return "ok", nil
	})
	sink := newRecordSink()
	s := New(Summarizers{Checkin: sum, Milestone: sum}, sink, testLogger(), nil, Config{
		CheckinInterval:   15 * time.Millisecond,
		MilestoneInterval: time.Hour,
		RecentSegments:    2,
	})

	segs := []domain.TranscriptSegment{
		{Speaker: domain.SpeakerUser, Text: "oldest entry here"},
		{Speaker: domain.SpeakerUser, Text: "middle entry here"},
		{Speaker: domain.SpeakerUser, Text: "newest entry here"},
	}
	s.Start(func() []domain.TranscriptSegment { return segs })
	defer s.Stop()

	waitForRecord(t, sink)
	capturedMu.Lock()
	prompt := captured
	capturedMu.Unlock()
	require.NotContains(t, prompt, "oldest entry here")
	require.Contains(t, prompt, "newest entry here")
}

type summarizeFunc func(ctx context.Context, prompt string) (string, error)

func (f summarizeFunc) Summarize(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func TestPromptSkipsTinySegments(t *testing.T) {
	t.Parallel()

	out := transcriptContext([]domain.TranscriptSegment{
		{Speaker: domain.SpeakerUser, Text: "ok"},
		{Speaker: domain.SpeakerModel, Text: "a real translated sentence"},
	})
	require.NotContains(t, out, "ok")
	require.Contains(t, out, "Translator: a real translated sentence")
}

func TestFileAnalysisPromptModes(t *testing.T) {
	t.Parallel()

	require.Contains(t, FileAnalysisPrompt(FileModeTranscript, "Japanese"), "verbatim transcript")
	require.Contains(t, FileAnalysisPrompt(FileModeSummary, "Japanese"), "study guide in Japanese")
}
