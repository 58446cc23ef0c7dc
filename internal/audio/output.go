package audio

import (
	"fmt"
	"sync"

	"github.com/jfreymuth/pulse"

	"livetrans/internal/codec"
	"livetrans/internal/domain"
)

// PulseOutput renders scheduled buffers on a Pulse playback stream. The
// monotonic clock is the number of samples the device has consumed, so
// scheduled start times line up exactly with rendered audio.
type PulseOutput struct {
	client *pulse.Client
	stream *pulse.PlaybackStream

	sampleRate int

	mu     sync.Mutex
	queue  []scheduledBuffer
	head   int64 // samples rendered so far
	closed bool
}

type scheduledBuffer struct {
	start   int64 // absolute sample position on the output timeline
	samples []float32
	offset  int
}

func NewPulseOutput(sampleRate int) (*PulseOutput, error) {
	if sampleRate <= 0 {
		sampleRate = 24000
	}

	client, err := pulse.NewClient(pulse.ClientApplicationName("livetrans"))
	if err != nil {
		return nil, fmt.Errorf("%w: connect pulse server: %v", domain.ErrDeviceUnavailable, err)
	}

	out := &PulseOutput{client: client, sampleRate: sampleRate}
	stream, err := client.NewPlayback(
		pulse.Float32Reader(out.render),
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: create pulse playback stream: %v", domain.ErrDeviceUnavailable, err)
	}

	out.stream = stream
	stream.Start()
	return out, nil
}

// Now reports the output clock in seconds.
func (o *PulseOutput) Now() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return float64(o.head) / float64(o.sampleRate)
}

// Schedule queues a buffer to begin playing at startTime. Multi-channel
// buffers are downmixed to mono.
func (o *PulseOutput) Schedule(buf codec.Buffer, startTime float64) {
	samples := downmix(buf)
	if len(samples) == 0 {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.queue = append(o.queue, scheduledBuffer{
		start:   int64(startTime * float64(o.sampleRate)),
		samples: samples,
	})
}

// Close stops rendering and releases the device.
func (o *PulseOutput) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.queue = nil
	o.mu.Unlock()

	if o.stream != nil {
		o.stream.Stop()
		o.stream.Close()
	}
	if o.client != nil {
		o.client.Close()
	}
	return nil
}

// render is the playback pull callback: it fills out with scheduled samples,
// silence where nothing is due, and advances the clock.
func (o *PulseOutput) render(out []float32) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return 0, pulse.EndOfData
	}

	for i := range out {
		out[i] = 0
	}

	window := int64(len(out))
	pos := o.head
	remaining := o.queue[:0]
	for _, buf := range o.queue {
		effective := buf.start + int64(buf.offset)
		if effective < pos {
			// Arrived late: skip what the timeline already passed.
			missed := pos - effective
			if missed >= int64(len(buf.samples)-buf.offset) {
				continue
			}
			buf.offset += int(missed)
			effective = pos
		}
		if effective >= pos+window {
			remaining = append(remaining, buf)
			continue
		}

		outIdx := int(effective - pos)
		n := copy(out[outIdx:], buf.samples[buf.offset:])
		buf.offset += n
		if buf.offset < len(buf.samples) {
			remaining = append(remaining, buf)
		}
	}
	o.queue = remaining

	o.head += window
	return len(out), nil
}

func downmix(buf codec.Buffer) []float32 {
	if buf.Channels <= 1 {
		return buf.Samples
	}
	frames := len(buf.Samples) / buf.Channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < buf.Channels; ch++ {
			sum += buf.Samples[i*buf.Channels+ch]
		}
		mono[i] = sum / float32(buf.Channels)
	}
	return mono
}
