package ui

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"livetrans/internal/domain"
)

func TestNewModel(t *testing.T) {
	backend := newFakeBackend()
	m := New(backend, Options{ModelName: "demo"})

	if m.state != domain.ConnStateIdle {
		t.Errorf("state = %s, want idle", m.state)
	}
	if !m.transcriptLive {
		t.Error("new model should be in live mode")
	}
	if m.focusedPanel != FocusTranscript {
		t.Error("new model should focus the transcript")
	}
}

func TestSpaceConnectsWhenIdle(t *testing.T) {
	backend := newFakeBackend()
	m := New(backend, Options{Credential: "key"})

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeySpace})
	model := updated.(Model)

	if !model.connecting {
		t.Error("space should mark the model connecting")
	}
	if cmd == nil {
		t.Fatal("space should return a connect command")
	}
	cmd()
	if backend.connectCalls() != 1 {
		t.Errorf("connect calls = %d, want 1", backend.connectCalls())
	}
}

func TestSpaceDisconnectsWhenConnected(t *testing.T) {
	backend := newFakeBackend()
	m := New(backend, Options{})
	m.state = domain.ConnStateConnected

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeySpace})
	if cmd == nil {
		t.Fatal("space should return a disconnect command")
	}
	cmd()
	if backend.disconnectCalls() != 1 {
		t.Errorf("disconnect calls = %d, want 1", backend.disconnectCalls())
	}
}

func TestMuteToggle(t *testing.T) {
	backend := newFakeBackend()
	m := New(backend, Options{})

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}})
	model := updated.(Model)
	if !model.muted {
		t.Error("expected muted after toggle")
	}
	if !backend.lastMuted() {
		t.Error("expected mute forwarded to the backend")
	}

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}})
	if updated.(Model).muted {
		t.Error("expected unmuted after second toggle")
	}
}

func TestTranscriptMsgRefreshesFromBackend(t *testing.T) {
	backend := newFakeBackend()
	backend.segments = []domain.TranscriptSegment{
		{ID: "a", Speaker: domain.SpeakerUser, Text: "hello"},
	}
	m := New(backend, Options{})

	updated, _ := m.Update(TranscriptMsg{})
	model := updated.(Model)

	if len(model.segments) != 1 || model.segments[0].Text != "hello" {
		t.Errorf("unexpected segments: %+v", model.segments)
	}
}

func TestConnStateConnectedClearsStaleSession(t *testing.T) {
	backend := newFakeBackend()
	m := New(backend, Options{})
	m.errorMessage = "old failure"
	m.summary = "old summary"
	m.connecting = true

	updated, _ := m.Update(ConnStateMsg{State: domain.ConnStateConnected})
	model := updated.(Model)

	if model.errorMessage != "" || model.summary != "" || model.connecting {
		t.Errorf("connected state should reset session leftovers: %+v", model)
	}
}

func TestReconnectClearsPriorSessionPanels(t *testing.T) {
	backend := newFakeBackend()
	m := New(backend, Options{})

	updated, _ := m.Update(AnalysisMsg{Record: domain.AnalysisRecord{ID: "old", Content: "stale"}})
	updated, _ = updated.(Model).Update(ConnStateMsg{State: domain.ConnStateIdle})
	model := updated.(Model)
	model.segments = []domain.TranscriptSegment{
		{ID: "a", Speaker: domain.SpeakerUser, Text: "left over"},
	}

	updated, _ = model.Update(ConnStateMsg{State: domain.ConnStateConnected})
	model = updated.(Model)

	if len(model.analyses) != 0 {
		t.Errorf("stale analyses survive reconnect: %+v", model.analyses)
	}
	if len(model.segments) != 0 {
		t.Errorf("stale segments survive reconnect: %+v", model.segments)
	}
}

func TestSessionErrorTransience(t *testing.T) {
	backend := newFakeBackend()
	m := New(backend, Options{})

	updated, cmd := m.Update(SessionErrorMsg{Code: domain.ErrorCodeAnalysis, Detail: "tick failed"})
	model := updated.(Model)
	if !model.errorTransient || cmd == nil {
		t.Error("analysis errors should be transient with a clear timer")
	}

	updated, _ = model.Update(SessionErrorMsg{Code: domain.ErrorCodeNetwork, Detail: "gone"})
	model = updated.(Model)
	if model.errorTransient {
		t.Error("network errors should stick")
	}

	updated, _ = model.Update(clearTransientErrorMsg{})
	if updated.(Model).errorMessage != "gone" {
		t.Error("clear timer must not wipe a sticky error")
	}
}

func TestSummaryKeyRequiresTranscript(t *testing.T) {
	backend := newFakeBackend()
	m := New(backend, Options{})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	if cmd != nil {
		t.Error("summary with no transcript should be a no-op")
	}

	m.segments = []domain.TranscriptSegment{{Text: "content"}}
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	if cmd == nil {
		t.Fatal("expected a summary command")
	}
	if !updated.(Model).summarizing {
		t.Error("expected summarizing flag")
	}

	msg := cmd()
	result, ok := msg.(summaryResultMsg)
	if !ok {
		t.Fatalf("unexpected message %T", msg)
	}
	final, _ := updated.(Model).Update(result)
	if final.(Model).summary != "the summary" {
		t.Errorf("summary = %q", final.(Model).summary)
	}
}

func TestViewRendersPanels(t *testing.T) {
	backend := newFakeBackend()
	m := New(backend, Options{ModelName: "demo"})
	m.width = 100
	m.height = 30
	m.segments = []domain.TranscriptSegment{
		{Speaker: domain.SpeakerUser, Text: "hello there", TimestampMs: 0},
	}
	m.analyses = []domain.AnalysisRecord{
		{TimeRange: "Minute 0 - 5", Content: "Topic: greetings"},
	}

	out := m.View()
	for _, want := range []string{"LIVETRANS", "TRANSCRIPT", "ANALYSES (1)", "hello there", "Minute 0 - 5"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four", 9)
	if len(lines) < 2 {
		t.Fatalf("expected wrapping, got %v", lines)
	}
	if lines[0] != "one two" {
		t.Errorf("first line = %q, want %q", lines[0], "one two")
	}
	for _, l := range lines {
		if len(l) > 9 {
			t.Errorf("line %q exceeds width", l)
		}
	}
	if got := wrapText("", 10); len(got) != 1 {
		t.Errorf("empty input should render one empty line, got %v", got)
	}
}

func TestWrapTextBreaksUnspacedWideRunes(t *testing.T) {
	// 16 double-width runes, no spaces: 32 cells total.
	text := "這是一段沒有空格的長句子需要換行"

	lines := wrapText(text, 10)
	if len(lines) < 4 {
		t.Fatalf("expected unspaced text to hard-wrap, got %v", lines)
	}
	for _, l := range lines {
		if lipgloss.Width(l) > 10 {
			t.Errorf("line %q is %d cells wide, want <= 10", l, lipgloss.Width(l))
		}
	}
	if strings.Join(lines, "") != text {
		t.Errorf("wrapping lost runes: %v", lines)
	}
}

type fakeBackend struct {
	mu          sync.Mutex
	connects    int
	disconnects int
	muted       bool
	segments    []domain.TranscriptSegment
	analyses    []domain.AnalysisRecord
}

func newFakeBackend() *fakeBackend { return &fakeBackend{} }

func (f *fakeBackend) Connect(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return nil
}

func (f *fakeBackend) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
}

func (f *fakeBackend) SetMuted(muted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = muted
}

func (f *fakeBackend) Status() domain.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.Status{State: domain.ConnStateIdle, Muted: f.muted}
}

func (f *fakeBackend) Transcript() []domain.TranscriptSegment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.TranscriptSegment(nil), f.segments...)
}

func (f *fakeBackend) Analyses() []domain.AnalysisRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.AnalysisRecord(nil), f.analyses...)
}

func (f *fakeBackend) FinalSummary(_ context.Context) (string, error) {
	return "the summary", nil
}

func (f *fakeBackend) connectCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func (f *fakeBackend) disconnectCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

func (f *fakeBackend) lastMuted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.muted
}
