// Package gemini adapts the Gemini API to the engine's provider ports:
// the bidirectional live websocket and one-shot text generation.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"livetrans/internal/domain"
	"livetrans/internal/ports"
)

const liveEndpointPath = "/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

// Config controls Gemini endpoint settings.
type Config struct {
	WSBaseURL   string
	RESTBaseURL string
	HTTPClient  *http.Client
}

// Provider implements ports.LiveProvider against the Gemini Live API.
type Provider struct {
	cfg Config
}

func NewProvider(cfg Config) *Provider {
	if cfg.WSBaseURL == "" {
		cfg.WSBaseURL = "wss://generativelanguage.googleapis.com"
	}
	if cfg.RESTBaseURL == "" {
		cfg.RESTBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &Provider{cfg: cfg}
}

// Connect opens a live session: dials the websocket, sends the one-time setup
// payload, and starts the read/write loops.
func (p *Provider) Connect(ctx context.Context, credential string, cfg ports.LiveConfig) (ports.LiveSession, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, fmt.Errorf("%w: missing api key", domain.ErrAuthentication)
	}

	wsURL, err := buildLiveURL(p.cfg.WSBaseURL, credential)
	if err != nil {
		return nil, err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: service rejected the api key", domain.ErrAuthentication)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}

	if err := conn.WriteJSON(setupMessage(cfg)); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: failed to send session setup: %v", domain.ErrNetwork, err)
	}

	session := &liveSession{
		conn:       conn,
		sampleRate: cfg.InputSampleRate,
		events:     make(chan domain.ServerEvent, 64),
		audio:      make(chan []byte, 32),
		done:       make(chan struct{}),
	}

	session.wg.Add(2)
	go session.readLoop()
	go session.writeLoop()
	go func() {
		session.wg.Wait()
		close(session.events)
		close(session.done)
		_ = conn.Close()
	}()

	go func() {
		<-ctx.Done()
		_ = session.Close()
	}()

	return session, nil
}

type liveSession struct {
	conn       *websocket.Conn
	sampleRate int

	events chan domain.ServerEvent
	audio  chan []byte
	done   chan struct{}

	wg sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeSendOnce sync.Once
	closeOnce     sync.Once
	sendMu        sync.RWMutex
	sendClosed    bool
}

func (s *liveSession) SendAudio(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}

	s.sendMu.RLock()
	closed := s.sendClosed
	s.sendMu.RUnlock()
	if closed {
		return errors.New("audio stream is already closed")
	}

	copied := append([]byte(nil), pcm...)
	select {
	case s.audio <- copied:
		return nil
	case <-s.done:
		if err := s.waitErr(); err != nil {
			return err
		}
		return errors.New("session closed")
	default:
		// Outbound queue full: drop rather than block the capture cadence.
		return errors.New("outbound audio queue full")
	}
}

func (s *liveSession) Events() <-chan domain.ServerEvent {
	return s.events
}

func (s *liveSession) Wait() error {
	<-s.done
	return s.waitErr()
}

func (s *liveSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeSendOnce.Do(func() {
			s.sendMu.Lock()
			s.sendClosed = true
			close(s.audio)
			s.sendMu.Unlock()
		})
		_ = s.conn.Close()
	})
	<-s.done
	return s.waitErr()
}

func (s *liveSession) waitErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *liveSession) setErr(err error) {
	if err == nil {
		return
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *liveSession) writeLoop() {
	defer s.wg.Done()

	for chunk := range s.audio {
		msg := realtimeInputMessage{}
		msg.RealtimeInput.MediaChunks = []inlineData{{
			MimeType: fmt.Sprintf("audio/pcm;rate=%d", s.sampleRate),
			Data:     base64.StdEncoding.EncodeToString(chunk),
		}}
		if err := s.conn.WriteJSON(msg); err != nil {
			s.setErr(fmt.Errorf("failed to send audio: %w", err))
			return
		}
	}
}

func (s *liveSession) readLoop() {
	defer s.wg.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				s.emit(domain.ServerEvent{Kind: domain.ServerEventClosed})
			} else {
				s.emit(domain.ServerEvent{Kind: domain.ServerEventError, Message: err.Error()})
			}
			s.setErr(fmt.Errorf("failed to read server message: %w", err))
			return
		}

		for _, event := range parseServerMessage(payload) {
			s.emit(event)
		}
	}
}

func (s *liveSession) emit(event domain.ServerEvent) {
	select {
	case s.events <- event:
	case <-s.done:
	}
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type realtimeInputMessage struct {
	RealtimeInput struct {
		MediaChunks []inlineData `json:"mediaChunks"`
	} `json:"realtimeInput"`
}

type transcriptionPayload struct {
	Text     string `json:"text"`
	Finished bool   `json:"finished"`
}

type serverMessage struct {
	SetupComplete *struct{} `json:"setupComplete"`

	ServerContent *struct {
		TurnComplete        bool                  `json:"turnComplete"`
		Interrupted         bool                  `json:"interrupted"`
		InputTranscription  *transcriptionPayload `json:"inputTranscription"`
		OutputTranscription *transcriptionPayload `json:"outputTranscription"`
		ModelTurn           *struct {
			Parts []struct {
				InlineData *inlineData `json:"inlineData"`
			} `json:"parts"`
		} `json:"modelTurn"`
	} `json:"serverContent"`

	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// parseServerMessage flattens one wire message into zero or more events,
// preserving inbound order: transcription increments first, then audio, then
// the turn-complete marker.
func parseServerMessage(payload []byte) []domain.ServerEvent {
	var msg serverMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil
	}

	if msg.Error != nil {
		message := strings.TrimSpace(msg.Error.Message)
		if message == "" {
			message = "service returned an unknown error"
		}
		return []domain.ServerEvent{{Kind: domain.ServerEventError, Message: message}}
	}

	content := msg.ServerContent
	if content == nil {
		return nil
	}

	var events []domain.ServerEvent
	if t := content.InputTranscription; t != nil && t.Text != "" {
		events = append(events, domain.ServerEvent{
			Kind:    transcriptKind(t.Finished),
			Speaker: domain.SpeakerUser,
			Text:    t.Text,
		})
	}
	if t := content.OutputTranscription; t != nil && t.Text != "" {
		events = append(events, domain.ServerEvent{
			Kind:    transcriptKind(t.Finished),
			Speaker: domain.SpeakerModel,
			Text:    t.Text,
		})
	}
	if content.ModelTurn != nil {
		for _, part := range content.ModelTurn.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil || len(data) == 0 {
				continue
			}
			events = append(events, domain.ServerEvent{Kind: domain.ServerEventAudioChunk, Audio: data})
		}
	}
	if content.TurnComplete {
		events = append(events, domain.ServerEvent{Kind: domain.ServerEventTurnComplete})
	}
	return events
}

func transcriptKind(finished bool) domain.ServerEventKind {
	if finished {
		return domain.ServerEventFinalTranscript
	}
	return domain.ServerEventPartialTranscript
}

func setupMessage(cfg ports.LiveConfig) map[string]any {
	generation := map[string]any{}
	setup := map[string]any{
		"model":            "models/" + strings.TrimPrefix(cfg.Model, "models/"),
		"generationConfig": generation,
	}
	generation["responseModalities"] = []string{"AUDIO"}
	if cfg.SystemInstruction != "" {
		setup["systemInstruction"] = map[string]any{
			"parts": []map[string]string{{"text": cfg.SystemInstruction}},
		}
	}
	if cfg.TranscribeInput {
		setup["inputAudioTranscription"] = map[string]any{}
	}
	if cfg.TranscribeOutput {
		setup["outputAudioTranscription"] = map[string]any{}
	}
	return map[string]any{"setup": setup}
}

func buildLiveURL(base string, credential string) (string, error) {
	base = strings.TrimSpace(base)
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	liveURL, err := url.Parse(base + liveEndpointPath)
	if err != nil {
		return "", fmt.Errorf("invalid live API base URL: %w", err)
	}

	query := liveURL.Query()
	query.Set("key", credential)
	liveURL.RawQuery = query.Encode()
	return liveURL.String(), nil
}
