// Package audio turns the base64 PCM payload returned by the speech model
// into a playable WAV file.
//
// The pipeline has three pure stages:
//
//	DecodeBase64  base64 text      -> raw bytes
//	Materialize   raw 16-bit PCM   -> *Buffer (normalised float samples)
//	EncodeWAV     *Buffer          -> RIFF/WAVE bytes (PCM, 16-bit)
package audio

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultSampleRate is the rate of the audio produced by the speech model.
	DefaultSampleRate = 24000

	// DefaultChannels is the channel count of the audio produced by the speech model.
	DefaultChannels = 1

	// BitsPerSample is the only bit depth handled by this package.
	BitsPerSample = 16

	// HeaderSize is the size of the canonical WAV header written by EncodeWAV.
	HeaderSize = 44

	// ContentType is the MIME type of encoded WAV files.
	ContentType = "audio/wav"

	bytesPerSample = BitsPerSample / 8
)

var (
	// ErrDecode is returned when the payload is not valid base64.
	ErrDecode = errors.New("audio: invalid base64 payload")

	// ErrMaterialize is returned when PCM bytes cannot be interpreted with the given format.
	ErrMaterialize = errors.New("audio: invalid pcm format")

	// ErrEncode is returned when a buffer cannot be serialised as WAV.
	ErrEncode = errors.New("audio: invalid buffer")
)

// Buffer is decoded audio held as one normalised float sequence per channel.
// Every channel holds the same number of samples.
type Buffer struct {
	// SampleRate is the number of frames per second (Hz).
	SampleRate int

	// Channels is the number of channels in Data.
	Channels int

	// Data holds the samples of each channel in [-1.0, 1.0].
	Data [][]float32
}

// Frames returns the number of samples per channel.
func (b *Buffer) Frames() int {
	if b == nil || len(b.Data) == 0 {
		return 0
	}
	return len(b.Data[0])
}

// Duration returns the playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// Channel returns the samples of channel c.
func (b *Buffer) Channel(c int) []float32 {
	if b == nil || c < 0 || c >= len(b.Data) {
		return nil
	}
	return b.Data[c]
}

func (b *Buffer) validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrEncode)
	}
	if b.Channels <= 0 {
		return fmt.Errorf("%w: %d channels", ErrEncode, b.Channels)
	}
	if b.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrEncode, b.SampleRate)
	}
	if len(b.Data) != b.Channels {
		return fmt.Errorf("%w: %d channels declared, %d present", ErrEncode, b.Channels, len(b.Data))
	}
	frames := len(b.Data[0])
	for c, ch := range b.Data {
		if len(ch) != frames {
			return fmt.Errorf("%w: channel %d has %d samples, want %d", ErrEncode, c, len(ch), frames)
		}
	}
	return nil
}
