package usecase

import (
	"io"
	"log/slog"
	"testing"

	"livetrans/internal/codec"
	"livetrans/internal/domain"
)

// pcmChunk builds an encoded chunk lasting samples/sampleRate seconds.
func pcmChunk(samples int) []byte {
	buf := make([]float32, samples)
	for i := range buf {
		buf[i] = 0.25
	}
	return codec.EncodePCM16(buf)
}

func TestPlaybackSchedulesChunksBackToBack(t *testing.T) {
	t.Parallel()

	out := &fakeAudioOutput{}
	p := newPlaybackScheduler(out, &fakeEventSink{}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, 1000, 1, false)

	p.HandleChunk(pcmChunk(500))
	p.HandleChunk(pcmChunk(250))
	p.HandleChunk(pcmChunk(250))

	calls := out.snapshotCalls()
	if len(calls) != 3 {
		t.Fatalf("expected 3 scheduled chunks, got %d", len(calls))
	}
	wantStarts := []float64{0, 0.5, 0.75}
	for i, call := range calls {
		if call.start != wantStarts[i] {
			t.Fatalf("chunk %d scheduled at %v, want %v", i, call.start, wantStarts[i])
		}
	}
}

func TestPlaybackClampsCursorToOutputClock(t *testing.T) {
	t.Parallel()

	out := &fakeAudioOutput{}
	p := newPlaybackScheduler(out, &fakeEventSink{}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, 1000, 1, false)

	p.HandleChunk(pcmChunk(500))
	// The device played past the cursor before the next chunk arrived.
	out.setNow(2.0)
	p.HandleChunk(pcmChunk(500))

	calls := out.snapshotCalls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 scheduled chunks, got %d", len(calls))
	}
	if calls[1].start != 2.0 {
		t.Fatalf("late chunk scheduled at %v, want clock time 2.0", calls[1].start)
	}
}

func TestPlaybackMutedChunksAreDroppedWithoutAdvancing(t *testing.T) {
	t.Parallel()

	out := &fakeAudioOutput{}
	p := newPlaybackScheduler(out, &fakeEventSink{}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, 1000, 1, false)

	p.HandleChunk(pcmChunk(500))
	p.SetMuted(true)
	p.HandleChunk(pcmChunk(500))
	p.HandleChunk(pcmChunk(500))
	p.SetMuted(false)
	p.HandleChunk(pcmChunk(250))

	calls := out.snapshotCalls()
	if len(calls) != 2 {
		t.Fatalf("expected muted chunks to be dropped, got %d scheduled", len(calls))
	}
	// The cursor did not move while muted.
	if calls[1].start != 0.5 {
		t.Fatalf("post-mute chunk scheduled at %v, want 0.5", calls[1].start)
	}
	if p.Muted() {
		t.Fatalf("expected scheduler to be unmuted")
	}
}

func TestPlaybackSkipsMalformedChunks(t *testing.T) {
	t.Parallel()

	out := &fakeAudioOutput{}
	sink := &fakeEventSink{}
	p := newPlaybackScheduler(out, sink, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, 1000, 1, false)

	p.HandleChunk(pcmChunk(500))
	p.HandleChunk([]byte{0x01})
	p.HandleChunk(pcmChunk(500))

	calls := out.snapshotCalls()
	if len(calls) != 2 {
		t.Fatalf("expected malformed chunk to be skipped, got %d scheduled", len(calls))
	}
	if calls[1].start != 0.5 {
		t.Fatalf("cursor moved on a skipped chunk: next start %v", calls[1].start)
	}
	errs := sink.snapshotErrors()
	if len(errs) != 1 || errs[0].code != domain.ErrorCodePlayback {
		t.Fatalf("expected one playback error event, got %+v", errs)
	}
}

func TestPlaybackStartsMuted(t *testing.T) {
	t.Parallel()

	out := &fakeAudioOutput{}
	p := newPlaybackScheduler(out, &fakeEventSink{}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, 1000, 1, true)

	p.HandleChunk(pcmChunk(500))

	if calls := out.snapshotCalls(); len(calls) != 0 {
		t.Fatalf("expected no chunks scheduled while muted, got %d", len(calls))
	}
	if !p.Muted() {
		t.Fatalf("expected scheduler to report muted")
	}
}
