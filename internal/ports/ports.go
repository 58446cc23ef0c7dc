package ports

import (
	"context"

	"livetrans/internal/codec"
	"livetrans/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate int
	Channels   int
	FrameSize  int
	Device     string
}

// AudioSession is a live capture session producing fixed-size sample frames.
type AudioSession interface {
	// ReadFrame blocks until a full frame is available or the session ends.
	// It returns io.EOF once the device has been released.
	ReadFrame(frame []float32) (int, error)
	Close() error
}

// AudioCapture acquires the capture device and starts a session.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// AudioOutput renders decoded buffers on a monotonic timeline. Now and the
// startTime passed to Schedule are seconds on the same clock.
type AudioOutput interface {
	Now() float64
	Schedule(buf codec.Buffer, startTime float64)
	Close() error
}

// LiveConfig carries the one-time session setup payload.
type LiveConfig struct {
	Model             string
	SystemInstruction string
	InputSampleRate   int
	OutputSampleRate  int
	TranscribeInput   bool
	TranscribeOutput  bool
}

// LiveSession is an open bidirectional stream with the speech service.
type LiveSession interface {
	// SendAudio forwards one encoded PCM frame. Fire-and-forget: an error
	// means the frame was dropped, not that the session must end.
	SendAudio(pcm []byte) error
	Events() <-chan domain.ServerEvent
	Wait() error
	Close() error
}

// LiveProvider opens live sessions against the remote speech service.
type LiveProvider interface {
	Connect(ctx context.Context, credential string, cfg LiveConfig) (LiveSession, error)
}

// Summarizer runs one out-of-band text generation request.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// EventSink receives backend state changes for the presentation layer.
type EventSink interface {
	ConnStateChanged(state domain.ConnState, message string)
	TranscriptUpdated(segment domain.TranscriptSegment)
	AnalysisAdded(record domain.AnalysisRecord)
	InputLevel(level float64)
	SessionError(code domain.ErrorCode, detail string)
}
