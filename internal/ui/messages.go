package ui

import "livetrans/internal/domain"

// ConnStateMsg carries a session state change from the backend.
type ConnStateMsg struct {
	State   domain.ConnState
	Message string
}

// TranscriptMsg signals that the transcript log changed.
type TranscriptMsg struct {
	Segment domain.TranscriptSegment
}

// AnalysisMsg carries a newly appended analysis record.
type AnalysisMsg struct {
	Record domain.AnalysisRecord
}

// LevelMsg carries the live microphone input level.
type LevelMsg struct {
	Level float64
}

// SessionErrorMsg carries a backend error surfaced to the user.
type SessionErrorMsg struct {
	Code   domain.ErrorCode
	Detail string
}

// connectResultMsg reports the outcome of an asynchronous connect.
type connectResultMsg struct {
	Err error
}

// disconnectDoneMsg reports that teardown finished.
type disconnectDoneMsg struct{}

// summaryResultMsg carries the final study guide or its failure.
type summaryResultMsg struct {
	Text string
	Err  error
}

// exportResultMsg reports where the markdown export landed.
type exportResultMsg struct {
	Path string
	Err  error
}

// clearTransientErrorMsg clears a transient error after a timeout.
type clearTransientErrorMsg struct{}
