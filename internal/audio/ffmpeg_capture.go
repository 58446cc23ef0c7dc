package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"livetrans/internal/codec"
	"livetrans/internal/domain"
	"livetrans/internal/ports"
)

// FFMPEGCapture streams microphone PCM audio through an ffmpeg subprocess.
// It is the fallback backend for hosts without a Pulse server.
type FFMPEGCapture struct {
	command string
	format  string
}

func NewFFMPEGCapture(command string, inputFormat string) *FFMPEGCapture {
	if command == "" {
		command = "ffmpeg"
	}
	if inputFormat == "" {
		inputFormat = "pulse"
	}
	return &FFMPEGCapture{command: command, format: inputFormat}
}

func (c *FFMPEGCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.Device == "" {
		cfg.Device = "default"
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", c.format,
		"-i", cfg.Device,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}

	cmd := exec.CommandContext(ctx, c.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create ffmpeg stdout pipe: %v", domain.ErrDeviceUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start ffmpeg: %v", domain.ErrDeviceUnavailable, err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	// A capture process that exits immediately means the device is busy,
	// denied, or misnamed. Surface that before any frames are pumped.
	select {
	case err := <-waitErr:
		detail := trimStderr(stderr.String())
		if err != nil {
			return nil, fmt.Errorf("%w: ffmpeg exited before capture started: %v: %s", domain.ErrDeviceUnavailable, err, detail)
		}
		return nil, fmt.Errorf("%w: ffmpeg exited before capture started: %s", domain.ErrDeviceUnavailable, detail)
	case <-time.After(250 * time.Millisecond):
	}

	return &ffmpegSession{
		stdout:   stdout,
		stderr:   &stderr,
		process:  cmd.Process,
		waitErr:  waitErr,
		channels: cfg.Channels,
	}, nil
}

type ffmpegSession struct {
	stdout   io.ReadCloser
	stderr   *bytes.Buffer
	channels int

	process *os.Process
	waitErr <-chan error

	stopOnce sync.Once
	stopErr  error
}

// ReadFrame fills frame with decoded samples, blocking until the frame is
// full or the stream ends.
func (s *ffmpegSession) ReadFrame(frame []float32) (int, error) {
	raw := make([]byte, len(frame)*2)
	n, err := io.ReadFull(s.stdout, raw)
	if n == 0 {
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, err
		}
		return 0, io.EOF
	}
	n -= n % (2 * s.channels)

	buf, decodeErr := codec.DecodePCM16(raw[:n], 0, s.channels)
	if decodeErr != nil {
		return 0, decodeErr
	}
	copy(frame, buf.Samples)

	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
		return len(buf.Samples), err
	}
	return len(buf.Samples), nil
}

func (s *ffmpegSession) Close() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		case <-time.After(1200 * time.Millisecond):
			if s.process != nil {
				_ = s.process.Kill()
			}
			err, ok := <-s.waitErr
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		}

		if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			if s.stopErr == nil {
				s.stopErr = closeErr
			}
		}

		if s.stopErr != nil && s.stderr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, trimStderr(s.stderr.String()))
		}
	})

	return s.stopErr
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func trimStderr(input string) string {
	if input == "" {
		return input
	}
	return string(bytes.TrimSpace([]byte(input)))
}
