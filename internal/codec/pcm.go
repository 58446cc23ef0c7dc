// Package codec converts between float sample buffers and the s16le wire
// format used on both legs of the live session.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMalformedAudio marks a payload whose length is not a whole number of
// samples for the declared channel count.
var ErrMalformedAudio = errors.New("malformed audio payload")

const bytesPerSample = 2

// Buffer is a decoded block of audio samples, interleaved when Channels > 1.
type Buffer struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Duration reports how long the buffer plays for.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}
	frames := len(b.Samples) / b.Channels
	return time.Duration(float64(frames) / float64(b.SampleRate) * float64(time.Second))
}

// EncodePCM16 quantizes samples in [-1, 1] to signed 16-bit little-endian.
// Out-of-range samples are clamped.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(math.Round(float64(s) * 32767))
		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(v))
	}
	return out
}

// DecodePCM16 reconstructs float samples in [-1, 1] from s16le bytes.
func DecodePCM16(data []byte, sampleRate int, channels int) (Buffer, error) {
	if channels <= 0 {
		return Buffer{}, fmt.Errorf("%w: invalid channel count %d", ErrMalformedAudio, channels)
	}
	if len(data)%(bytesPerSample*channels) != 0 {
		return Buffer{}, fmt.Errorf("%w: %d bytes is not a whole number of %d-channel frames", ErrMalformedAudio, len(data), channels)
	}

	samples := make([]float32, len(data)/bytesPerSample)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(data[i*bytesPerSample:]))
		samples[i] = float32(v) / 32767
	}
	return Buffer{Samples: samples, SampleRate: sampleRate, Channels: channels}, nil
}
