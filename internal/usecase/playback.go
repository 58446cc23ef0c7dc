package usecase

import (
	"fmt"
	"log/slog"
	"sync"

	"livetrans/internal/codec"
	"livetrans/internal/domain"
	"livetrans/internal/metrics"
	"livetrans/internal/ports"
)

// playbackScheduler renders inbound audio chunks back-to-back on the output
// clock. A single nextStart cursor guarantees chunks never overlap and leave
// no gap beyond unavoidable late arrival.
type playbackScheduler struct {
	out     ports.AudioOutput
	sink    ports.EventSink
	logger  *slog.Logger
	metrics *metrics.Metrics

	sampleRate int
	channels   int

	mu        sync.Mutex
	nextStart float64
	muted     bool
}

func newPlaybackScheduler(out ports.AudioOutput, sink ports.EventSink, logger *slog.Logger, m *metrics.Metrics, sampleRate, channels int, muted bool) *playbackScheduler {
	return &playbackScheduler{
		out:        out,
		sink:       sink,
		logger:     logger,
		metrics:    m,
		sampleRate: sampleRate,
		channels:   channels,
		nextStart:  out.Now(),
		muted:      muted,
	}
}

// HandleChunk decodes and schedules one inbound chunk. Decode failures and
// muted chunks are dropped without touching the cursor, so the next audible
// chunk still lands gap-free.
func (p *playbackScheduler) HandleChunk(data []byte) {
	buf, err := codec.DecodePCM16(data, p.sampleRate, p.channels)
	if err != nil {
		p.logger.Warn("skipping malformed audio chunk", slog.Int("bytes", len(data)), slog.Any("error", err))
		p.sink.SessionError(domain.ErrorCodePlayback, fmt.Sprintf("skipped malformed audio chunk: %v", err))
		if p.metrics != nil {
			p.metrics.ChunksSkipped.Inc()
		}
		return
	}

	p.mu.Lock()
	if p.muted {
		p.mu.Unlock()
		if p.metrics != nil {
			p.metrics.ChunksMuted.Inc()
		}
		return
	}
	start := p.nextStart
	if now := p.out.Now(); now > start {
		start = now
	}
	p.nextStart = start + buf.Duration().Seconds()
	p.mu.Unlock()

	p.out.Schedule(buf, start)
	if p.metrics != nil {
		p.metrics.ChunksScheduled.Inc()
	}
}

// SetMuted toggles playback. Unmuting resumes scheduling relative to elapsed
// time because the cursor is clamped to the clock on the next chunk.
func (p *playbackScheduler) SetMuted(muted bool) {
	p.mu.Lock()
	p.muted = muted
	p.mu.Unlock()
}

func (p *playbackScheduler) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}
