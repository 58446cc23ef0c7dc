package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"livetrans/internal/analysis"
	"livetrans/internal/domain"
	"livetrans/internal/metrics"
	"livetrans/internal/ports"
)

var ErrSessionActive = errors.New("a live session is already active")

const sessionSettleTimeout = 4 * time.Second

// Config controls session wiring.
type Config struct {
	Audio            ports.AudioConfig
	Live             ports.LiveConfig
	OutputSampleRate int
	OutputChannels   int
	StartMuted       bool
}

// SessionController owns the live session lifecycle: it connects the
// transport, wires the capture pump, dispatcher, reconciler, playback
// scheduler, and analysis timers, and tears everything down exactly once.
type SessionController struct {
	capture  ports.AudioCapture
	provider ports.LiveProvider
	output   ports.AudioOutput
	analysis *analysis.Scheduler
	sink     ports.EventSink
	logger   *slog.Logger
	metrics  *metrics.Metrics
	cfg      Config

	mu             sync.Mutex
	current        *activeSession
	state          domain.ConnState
	lastError      string
	muted          bool
	inputLevel     float64
	lastTranscript []domain.TranscriptSegment
}

// levelTap mirrors input-level reports into the controller's status before
// forwarding them to the presentation sink.
type levelTap struct {
	ports.EventSink
	controller *SessionController
}

func (t levelTap) InputLevel(level float64) {
	t.controller.mu.Lock()
	t.controller.inputLevel = level
	t.controller.mu.Unlock()
	t.EventSink.InputLevel(level)
}

func NewSessionController(
	capture ports.AudioCapture,
	provider ports.LiveProvider,
	output ports.AudioOutput,
	analysisScheduler *analysis.Scheduler,
	sink ports.EventSink,
	logger *slog.Logger,
	m *metrics.Metrics,
	cfg Config,
) *SessionController {
	if cfg.OutputChannels <= 0 {
		cfg.OutputChannels = 1
	}
	if cfg.OutputSampleRate <= 0 {
		cfg.OutputSampleRate = 24000
	}
	return &SessionController{
		capture:  capture,
		provider: provider,
		output:   output,
		analysis: analysisScheduler,
		sink:     sink,
		logger:   logger,
		metrics:  m,
		cfg:      cfg,
		state:    domain.ConnStateIdle,
		muted:    cfg.StartMuted,
	}
}

// Connect opens a live session. Fatal failures (auth, network, device) leave
// the controller in the error state with a single surfaced message.
func (c *SessionController) Connect(ctx context.Context, credential string) error {
	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		return ErrSessionActive
	}
	c.state = domain.ConnStateConnecting
	c.lastError = ""
	c.lastTranscript = nil
	muted := c.muted
	c.mu.Unlock()

	c.sink.ConnStateChanged(domain.ConnStateConnecting, "")
	c.analysis.Reset()

	sessionCtx, cancel := context.WithCancel(ctx)

	stream, err := c.provider.Connect(sessionCtx, credential, c.cfg.Live)
	if err != nil {
		cancel()
		return c.connectFailed(err)
	}

	audioSession, err := c.capture.Start(sessionCtx, c.cfg.Audio)
	if err != nil {
		_ = stream.Close()
		cancel()
		return c.connectFailed(err)
	}

	active := &activeSession{
		cancel:     cancel,
		audio:      audioSession,
		stream:     stream,
		reconciler: newReconciler(c.sink, c.metrics, time.Now),
		playback:   newPlaybackScheduler(c.output, c.sink, c.logger, c.metrics, c.cfg.OutputSampleRate, c.cfg.OutputChannels, muted),
		eventsDone: make(chan struct{}),
		audioDone:  make(chan struct{}),
	}

	c.mu.Lock()
	c.current = active
	c.state = domain.ConnStateConnected
	c.mu.Unlock()

	go c.dispatchServerEvents(active)
	go pumpCaptureFrames(active.audio, active.stream, c.cfg.Audio.FrameSize, levelTap{c.sink, c}, c.metrics, c.logger, active.audioDone)
	c.analysis.Start(active.reconciler.Snapshot)

	if c.metrics != nil {
		c.metrics.SessionsStarted.Inc()
	}
	c.logger.Info("live session connected", slog.String("model", c.cfg.Live.Model))
	c.sink.ConnStateChanged(domain.ConnStateConnected, "")
	return nil
}

// Disconnect tears the session down. Idempotent: safe to call from any state,
// any number of times.
func (c *SessionController) Disconnect() {
	c.mu.Lock()
	active := c.current
	c.mu.Unlock()

	if active == nil || !active.beginClose() {
		return
	}

	c.analysis.Stop()
	active.cancel()
	_ = active.audio.Close()
	_ = active.stream.Close()
	_ = waitForSession(active.stream, sessionSettleTimeout)
	<-active.eventsDone
	<-active.audioDone

	c.mu.Lock()
	c.lastTranscript = active.reconciler.Snapshot()
	if c.current == active {
		c.current = nil
	}
	c.state = domain.ConnStateIdle
	c.inputLevel = 0
	c.mu.Unlock()

	c.logger.Info("live session closed")
	c.sink.ConnStateChanged(domain.ConnStateIdle, "")
}

// dispatchServerEvents is the single inbound consumer: it routes each tagged
// event to the reconciler or the playback scheduler, preserving stream order.
func (c *SessionController) dispatchServerEvents(active *activeSession) {
	defer close(active.eventsDone)

	var failure string
	for event := range active.stream.Events() {
		switch event.Kind {
		case domain.ServerEventPartialTranscript, domain.ServerEventFinalTranscript, domain.ServerEventTurnComplete:
			active.reconciler.Apply(event)
		case domain.ServerEventAudioChunk:
			active.playback.HandleChunk(event.Audio)
		case domain.ServerEventError:
			failure = event.Message
		case domain.ServerEventClosed:
			// Remote hangup; the stream ends right after.
		}
	}

	if active.beginClose() {
		go c.failSession(active, failure)
	}
}

// failSession handles an unrequested stream end: connection drop or a fatal
// service error. No automatic reconnect; the user restarts manually.
func (c *SessionController) failSession(active *activeSession, message string) {
	if message == "" {
		message = "connection to the speech service was lost"
	}

	c.analysis.Stop()
	active.cancel()
	_ = active.audio.Close()
	_ = active.stream.Close()
	<-active.eventsDone
	<-active.audioDone

	c.mu.Lock()
	c.lastTranscript = active.reconciler.Snapshot()
	if c.current == active {
		c.current = nil
	}
	c.state = domain.ConnStateError
	c.lastError = message
	c.inputLevel = 0
	c.mu.Unlock()

	c.logger.Error("live session failed", slog.String("reason", message))
	if c.metrics != nil {
		c.metrics.SessionErrors.WithLabelValues(string(domain.ErrorCodeNetwork)).Inc()
	}
	c.sink.SessionError(domain.ErrorCodeNetwork, message)
	c.sink.ConnStateChanged(domain.ConnStateError, message)
}

func (c *SessionController) connectFailed(err error) error {
	code := domain.ErrorCodeNetwork
	switch {
	case errors.Is(err, domain.ErrAuthentication):
		code = domain.ErrorCodeAuth
	case errors.Is(err, domain.ErrDeviceUnavailable):
		code = domain.ErrorCodeDevice
	}

	c.mu.Lock()
	c.state = domain.ConnStateError
	c.lastError = err.Error()
	c.mu.Unlock()

	c.logger.Error("connect failed", slog.String("code", string(code)), slog.Any("error", err))
	if c.metrics != nil {
		c.metrics.SessionErrors.WithLabelValues(string(code)).Inc()
	}
	c.sink.SessionError(code, err.Error())
	c.sink.ConnStateChanged(domain.ConnStateError, err.Error())
	return err
}

// SetMuted toggles playback of the synthesized voice mid-session.
func (c *SessionController) SetMuted(muted bool) {
	c.mu.Lock()
	c.muted = muted
	active := c.current
	c.mu.Unlock()

	if active != nil {
		active.playback.SetMuted(muted)
	}
}

// Status returns the current session status for the presentation layer.
func (c *SessionController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Status{
		State:      c.state,
		InputLevel: c.inputLevel,
		Muted:      c.muted,
		Message:    c.lastError,
	}
}

// Transcript snapshots the live log, or the final log of the last session
// once disconnected.
func (c *SessionController) Transcript() []domain.TranscriptSegment {
	c.mu.Lock()
	active := c.current
	last := c.lastTranscript
	c.mu.Unlock()

	if active != nil {
		return active.reconciler.Snapshot()
	}
	return append([]domain.TranscriptSegment(nil), last...)
}

// Analyses returns the append-only analysis log of the current session.
func (c *SessionController) Analyses() []domain.AnalysisRecord {
	return c.analysis.Records()
}

// FinalSummary generates the end-of-session study guide over the whole
// transcript.
func (c *SessionController) FinalSummary(ctx context.Context) (string, error) {
	return c.analysis.FinalSummary(ctx, c.Transcript())
}
