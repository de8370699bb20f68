package audio

import (
	"encoding/binary"
	"fmt"
)

// Materialize interprets raw as interleaved 16-bit signed little-endian PCM
// and returns a Buffer with each sample divided by 32768.
//
// Bytes that do not form a complete frame are dropped: an odd trailing byte
// is never read as half a sample. An empty input yields a zero-frame buffer.
func Materialize(raw []byte, sampleRate, channels int) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrMaterialize, sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrMaterialize, channels)
	}

	frameSize := channels * bytesPerSample
	frames := len(raw) / frameSize

	data := make([][]float32, channels)
	for c := range data {
		data[c] = make([]float32, frames)
	}

	for f := 0; f < frames; f++ {
		base := f * frameSize
		for c := 0; c < channels; c++ {
			off := base + c*bytesPerSample
			sample := int16(binary.LittleEndian.Uint16(raw[off : off+bytesPerSample]))
			data[c][f] = float32(sample) / 32768.0
		}
	}

	return &Buffer{
		SampleRate: sampleRate,
		Channels:   channels,
		Data:       data,
	}, nil
}
