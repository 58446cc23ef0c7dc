// Package audio provides the capture and output device adapters: a native
// Pulse backend and an ffmpeg subprocess fallback for capture.
package audio

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"

	"livetrans/internal/codec"
	"livetrans/internal/domain"
	"livetrans/internal/ports"
)

// PulseCapture acquires a Pulse source and streams fixed-size sample frames.
type PulseCapture struct{}

func NewPulseCapture() *PulseCapture {
	return &PulseCapture{}
}

func (c *PulseCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.FrameSize < 256 {
		cfg.FrameSize = 4096
	}

	client, err := pulse.NewClient(
		pulse.ClientApplicationName("livetrans"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: connect pulse server: %v", domain.ErrDeviceUnavailable, err)
	}

	var source *pulse.Source
	if cfg.Device == "" || cfg.Device == "default" {
		source, err = client.DefaultSource()
	} else {
		source, err = client.SourceByID(cfg.Device)
	}
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: resolve source %q: %v", domain.ErrDeviceUnavailable, cfg.Device, err)
	}

	session := &pulseSession{
		client:    client,
		frameSize: cfg.FrameSize,
		frames:    make(chan []float32, 32),
		stopCh:    make(chan struct{}),
	}

	writer := pulse.NewWriter(writerFunc(session.onPCM), pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(cfg.SampleRate),
		pulse.RecordBufferFragmentSize(uint32(cfg.FrameSize*2)),
		pulse.RecordMediaName("livetrans capture"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: create pulse record stream: %v", domain.ErrDeviceUnavailable, err)
	}

	session.stream = stream
	stream.Start()

	go func() {
		<-ctx.Done()
		_ = session.Close()
	}()

	return session, nil
}

type pulseSession struct {
	client    *pulse.Client
	stream    *pulse.RecordStream
	frameSize int

	frames chan []float32
	stopCh chan struct{}

	mu      sync.Mutex
	pending []byte
	stopped bool
}

// ReadFrame blocks until a full frame arrives or the session is closed.
func (s *pulseSession) ReadFrame(frame []float32) (int, error) {
	select {
	case samples, ok := <-s.frames:
		if !ok {
			return 0, io.EOF
		}
		n := copy(frame, samples)
		return n, nil
	case <-s.stopCh:
		return 0, io.EOF
	}
}

// Close halts the stream and releases the device. Safe to call repeatedly.
func (s *pulseSession) Close() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	close(s.stopCh)
	s.mu.Unlock()

	if s.stream != nil {
		s.stream.Stop()
		s.stream.Close()
	}
	if s.client != nil {
		s.client.Close()
	}
	return nil
}

// onPCM receives raw Pulse bytes and emits whole frames, decoded to floats.
func (s *pulseSession) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return 0, io.EOF
	}
	s.pending = append(s.pending, buffer...)

	frameBytes := s.frameSize * 2
	var frames [][]float32
	for len(s.pending) >= frameBytes {
		buf, err := codec.DecodePCM16(s.pending[:frameBytes], 0, 1)
		s.pending = s.pending[frameBytes:]
		if err != nil {
			continue
		}
		frames = append(frames, buf.Samples)
	}
	s.mu.Unlock()

	for _, frame := range frames {
		select {
		case <-s.stopCh:
			return 0, io.EOF
		case s.frames <- frame:
		}
	}

	return len(buffer), nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
