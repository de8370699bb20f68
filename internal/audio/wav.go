package audio

import (
	"bytes"
	"encoding/binary"
)

// EncodeWAV serialises b as a canonical PCM WAV file: a 44-byte RIFF header
// followed by the channel-interleaved 16-bit samples.
func EncodeWAV(b *Buffer) ([]byte, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	frames := b.Frames()
	dataLen := frames * b.Channels * bytesPerSample
	byteRate := b.SampleRate * b.Channels * bytesPerSample
	blockAlign := b.Channels * bytesPerSample

	buf := &bytes.Buffer{}
	buf.Grow(HeaderSize + dataLen)

	// RIFF chunk descriptor
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(HeaderSize-8+dataLen))
	buf.WriteString("WAVE")

	// fmt subchunk
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(buf, binary.LittleEndian, uint16(b.Channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(b.SampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(BitsPerSample))

	// data subchunk
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataLen))

	out := buf.Bytes()
	for f := 0; f < frames; f++ {
		for c := 0; c < b.Channels; c++ {
			out = binary.LittleEndian.AppendUint16(out, uint16(quantize(b.Data[c][f])))
		}
	}
	return out, nil
}

// quantize clamps s to [-1, 1] and scales it to a signed 16-bit value,
// using 32768 for negative samples and 32767 for the rest.
func quantize(s float32) int16 {
	switch {
	case s != s: // NaN
		return 0
	case s > 1:
		s = 1
	case s < -1:
		s = -1
	}
	if s < 0 {
		return int16(s * 32768)
	}
	return int16(s * 32767)
}
