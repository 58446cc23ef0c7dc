package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"livetrans/internal/domain"
)

// Sink bridges backend events into the bubbletea message loop. Events that
// arrive before Attach are dropped; the model refreshes its state from the
// backend on startup anyway.
type Sink struct {
	mu      sync.Mutex
	program *tea.Program
}

func NewSink() *Sink { return &Sink{} }

// Attach connects the sink to a running program.
func (s *Sink) Attach(p *tea.Program) {
	s.mu.Lock()
	s.program = p
	s.mu.Unlock()
}

func (s *Sink) send(msg tea.Msg) {
	s.mu.Lock()
	p := s.program
	s.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (s *Sink) ConnStateChanged(state domain.ConnState, message string) {
	s.send(ConnStateMsg{State: state, Message: message})
}

func (s *Sink) TranscriptUpdated(segment domain.TranscriptSegment) {
	s.send(TranscriptMsg{Segment: segment})
}

func (s *Sink) AnalysisAdded(record domain.AnalysisRecord) {
	s.send(AnalysisMsg{Record: record})
}

func (s *Sink) InputLevel(level float64) {
	s.send(LevelMsg{Level: level})
}

func (s *Sink) SessionError(code domain.ErrorCode, detail string) {
	s.send(SessionErrorMsg{Code: code, Detail: detail})
}
