// Package audio provides PCM decoding and clip playback for the TTS client.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultSampleRate is the fixed sample rate of audio returned by the
// synthesis API: mono, 16-bit, 24 kHz.
const DefaultSampleRate = 24000

var (
	// ErrEmptyPCM is returned when a PCM buffer contains no data.
	ErrEmptyPCM = errors.New("audio: empty pcm buffer")

	// ErrOddPCMLength is returned when a PCM buffer is not aligned to
	// whole 16-bit samples.
	ErrOddPCMLength = errors.New("audio: pcm buffer not aligned to 16-bit samples")

	// ErrBadSampleRate is returned for a non-positive sample rate.
	ErrBadSampleRate = errors.New("audio: sample rate must be positive")
)

// DecodePCM16 converts raw 16-bit signed little-endian PCM into normalized
// float32 samples. Each sample is divided by 32768, so the output range is
// [-1.0, 1.0) with -32768 mapping to exactly -1.0.
func DecodePCM16(data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPCM
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrOddPCMLength, len(data))
	}

	samples := make([]float32, len(data)/2)
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float32(s) / 32768.0
	}
	return samples, nil
}

// Clip is one decoded utterance of playable mono audio.
type Clip struct {
	Samples    []float32
	SampleRate int
}

// NewClip wraps decoded samples in a Clip.
func NewClip(samples []float32, sampleRate int) (*Clip, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadSampleRate, sampleRate)
	}
	if len(samples) == 0 {
		return nil, ErrEmptyPCM
	}
	return &Clip{Samples: samples, SampleRate: sampleRate}, nil
}

// DecodeClip decodes a raw PCM buffer into a playable clip.
func DecodeClip(pcm []byte, sampleRate int) (*Clip, error) {
	samples, err := DecodePCM16(pcm)
	if err != nil {
		return nil, err
	}
	return NewClip(samples, sampleRate)
}

// Duration returns the playback length of the clip.
func (c *Clip) Duration() time.Duration {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// encode renders the samples as 32-bit little-endian floats, the layout the
// output device consumes.
func (c *Clip) encode() []byte {
	out := make([]byte, len(c.Samples)*4)
	for i, s := range c.Samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}
