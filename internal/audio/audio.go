// Package audio turns the base64 PCM payloads the speech gateway returns into
// playable clips, encodes them for external players, and owns the playback
// handle contract: one active handle, one completion signal, ever.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNoData signals an empty payload where samples were expected.
	ErrNoData = errors.New("no audio data")
	// ErrMalformedPayload signals base64 that does not decode to whole
	// 16-bit samples.
	ErrMalformedPayload = errors.New("malformed audio payload")
	// ErrChannelMismatch signals a byte length that does not divide evenly
	// across the declared channel count.
	ErrChannelMismatch = errors.New("audio length does not match channel count")
	// ErrPlayback signals a device that could not start or sustain playback.
	ErrPlayback = errors.New("audio playback failed")
)

// 16-bit signed little-endian samples.
const bytesPerSample = 2

// Decode unwraps a base64 payload into raw PCM bytes.
func Decode(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, ErrNoData
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(data) == 0 {
		return nil, ErrNoData
	}
	if len(data)%bytesPerSample != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of 16-bit samples", ErrMalformedPayload, len(data))
	}
	return data, nil
}

// Clip is decoded, de-interleaved, normalized audio ready for a Device. The
// original PCM bytes are kept so encoding for playback needs no round-trip
// through the float samples.
type Clip struct {
	SampleRate int
	Samples    [][]float32
	pcm        []byte
}

// BuildClip reinterprets data as interleaved 16-bit signed little-endian PCM,
// splits it per channel, and normalizes each sample into [-1, 1].
func BuildClip(data []byte, sampleRate, channels int) (*Clip, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: rate %d, channels %d", ErrChannelMismatch, sampleRate, channels)
	}
	if len(data) == 0 {
		return nil, ErrNoData
	}
	frameSize := channels * bytesPerSample
	if len(data)%frameSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes across %d channels", ErrChannelMismatch, len(data), channels)
	}

	frames := len(data) / frameSize
	samples := make([][]float32, channels)
	for ch := range samples {
		samples[ch] = make([]float32, frames)
	}
	for frame := 0; frame < frames; frame++ {
		base := frame * frameSize
		for ch := 0; ch < channels; ch++ {
			v := int16(binary.LittleEndian.Uint16(data[base+ch*bytesPerSample:]))
			samples[ch][frame] = float32(v) / 32768
		}
	}

	return &Clip{SampleRate: sampleRate, Samples: samples, pcm: data}, nil
}

// Channels reports the channel count.
func (c *Clip) Channels() int {
	return len(c.Samples)
}

// Frames reports the per-channel sample count.
func (c *Clip) Frames() int {
	if len(c.Samples) == 0 {
		return 0
	}
	return len(c.Samples[0])
}

// Duration reports the playback length.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.SampleRate)
}

// PCM returns the original interleaved bytes.
func (c *Clip) PCM() []byte {
	return c.pcm
}
