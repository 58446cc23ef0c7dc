package usecase

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"time"

	"livetrans/internal/codec"
	"livetrans/internal/metrics"
	"livetrans/internal/ports"
)

// pumpCaptureFrames reads fixed-size frames from the capture session, encodes
// them, and forwards them to the live session. Send failures drop the frame:
// stale audio must never queue up behind a dead transport.
func pumpCaptureFrames(
	audio ports.AudioSession,
	stream ports.LiveSession,
	frameSize int,
	sink ports.EventSink,
	m *metrics.Metrics,
	logger *slog.Logger,
	done chan struct{},
) {
	defer close(done)

	if frameSize < 256 {
		frameSize = 4096
	}

	frame := make([]float32, frameSize)
	for {
		n, err := audio.ReadFrame(frame)
		if n > 0 {
			level := meanAmplitude(frame[:n])
			sink.InputLevel(level)
			if m != nil {
				m.InputLevel.Set(level)
			}

			if sendErr := stream.SendAudio(codec.EncodePCM16(frame[:n])); sendErr != nil {
				if m != nil {
					m.FramesDropped.Inc()
				}
			} else if m != nil {
				m.FramesSent.Inc()
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn("capture frame read failed", slog.Any("error", err))
			}
			return
		}
	}
}

// meanAmplitude is the rolling input-level metric shown by the UI meter.
func meanAmplitude(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += math.Abs(float64(s))
	}
	return sum / float64(len(samples))
}

// waitForSession waits for the live session to settle, forcing a close when
// the service does not hang up in time.
func waitForSession(session ports.LiveSession, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		_ = session.Close()
		return <-done
	}
}
