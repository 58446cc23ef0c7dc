package usecase

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"livetrans/internal/domain"
	"livetrans/internal/metrics"
	"livetrans/internal/ports"
)

// Per-speaker reserved ids for the in-progress partial slot. Finalized
// segments get fresh uuids instead.
func partialSlotID(speaker domain.Speaker) string {
	return string(speaker) + "-live"
}

// reconciler is the single writer of the transcript log. It merges the
// interleaved transcription increments of both speakers into one ordered,
// deduplicated log: each speaker has an accumulator and at most one partial
// slot; TurnComplete freezes non-empty accumulators into immutable segments.
type reconciler struct {
	sink    ports.EventSink
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.Mutex
	entries []domain.TranscriptSegment
	acc     map[domain.Speaker]*strings.Builder
}

func newReconciler(sink ports.EventSink, m *metrics.Metrics, now func() time.Time) *reconciler {
	if now == nil {
		now = time.Now
	}
	return &reconciler{
		sink:    sink,
		metrics: m,
		now:     now,
		acc: map[domain.Speaker]*strings.Builder{
			domain.SpeakerUser:  {},
			domain.SpeakerModel: {},
		},
	}
}

// Apply routes one inbound event into the log. Partial and final increments
// accumulate identically; only TurnComplete finalizes.
func (r *reconciler) Apply(event domain.ServerEvent) {
	switch event.Kind {
	case domain.ServerEventPartialTranscript, domain.ServerEventFinalTranscript:
		r.appendIncrement(event.Speaker, event.Text)
	case domain.ServerEventTurnComplete:
		r.finalizeTurn()
	}
}

func (r *reconciler) appendIncrement(speaker domain.Speaker, text string) {
	if text == "" {
		return
	}

	r.mu.Lock()
	builder, ok := r.acc[speaker]
	if !ok {
		r.mu.Unlock()
		return
	}
	builder.WriteString(text)

	segment := domain.TranscriptSegment{
		ID:          partialSlotID(speaker),
		Speaker:     speaker,
		Text:        builder.String(),
		TimestampMs: r.now().UnixMilli(),
		IsPartial:   true,
	}
	// The slot moves to the tail so log position tracks last-update time.
	r.removeLocked(segment.ID)
	r.entries = append(r.entries, segment)
	r.mu.Unlock()

	r.sink.TranscriptUpdated(segment)
}

func (r *reconciler) finalizeTurn() {
	var finalized []domain.TranscriptSegment

	r.mu.Lock()
	for _, speaker := range []domain.Speaker{domain.SpeakerUser, domain.SpeakerModel} {
		builder := r.acc[speaker]
		if builder.Len() == 0 {
			continue
		}
		segment := domain.TranscriptSegment{
			ID:          uuid.NewString(),
			Speaker:     speaker,
			Text:        builder.String(),
			TimestampMs: r.now().UnixMilli(),
			IsPartial:   false,
		}
		builder.Reset()
		r.removeLocked(partialSlotID(speaker))
		r.entries = append(r.entries, segment)
		finalized = append(finalized, segment)
	}
	r.mu.Unlock()

	for _, segment := range finalized {
		if r.metrics != nil {
			r.metrics.SegmentsFinalized.WithLabelValues(string(segment.Speaker)).Inc()
		}
		r.sink.TranscriptUpdated(segment)
	}
}

// Snapshot returns a copy of the log safe to hand to concurrent readers.
func (r *reconciler) Snapshot() []domain.TranscriptSegment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.TranscriptSegment(nil), r.entries...)
}

func (r *reconciler) removeLocked(id string) {
	for i, entry := range r.entries {
		if entry.ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return
		}
	}
}
