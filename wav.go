package voicerelay

import (
	"encoding/binary"
	"errors"
)

// wavHeaderSize is the fixed size of the RIFF/fmt/data preamble the relay
// writes in front of raw PCM samples.
const wavHeaderSize = 44

// DefaultSampleRate is the sample rate used by the Voice Live API (24kHz).
const DefaultSampleRate = 24000

// EncodeWAV wraps raw little-endian PCM samples in a WAV container.
// The output is always exactly 44 bytes of header followed by the PCM data
// unchanged. No compression or resampling is performed.
func EncodeWAV(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	blockAlign := uint16(channels * bitsPerSample / 8)
	byteRate := uint32(sampleRate) * uint32(blockAlign)
	dataLen := uint32(len(pcm))
	riffLen := 36 + dataLen
	out := make([]byte, wavHeaderSize+len(pcm))

	// RIFF header
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], riffLen)
	copy(out[8:], []byte("WAVE"))

	// Format chunk
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(out[20:], 1)  // audio format (PCM)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], byteRate)
	binary.LittleEndian.PutUint16(out[32:], blockAlign)
	binary.LittleEndian.PutUint16(out[34:], uint16(bitsPerSample))

	// Data chunk
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], dataLen)
	copy(out[44:], pcm)
	return out
}

// WAVInfo describes the format fields of a parsed WAV container.
type WAVInfo struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// ParseWAV reads the header written by EncodeWAV and returns the format
// fields and the raw PCM payload. It only understands the simple
// single-fmt-chunk layout the relay produces.
func ParseWAV(b []byte) (WAVInfo, []byte, error) {
	var info WAVInfo
	if len(b) < wavHeaderSize {
		return info, nil, errors.New("voicerelay: WAV data too short")
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return info, nil, errors.New("voicerelay: not a RIFF/WAVE container")
	}
	if string(b[12:16]) != "fmt " || binary.LittleEndian.Uint32(b[16:]) != 16 {
		return info, nil, errors.New("voicerelay: unexpected fmt chunk")
	}
	if binary.LittleEndian.Uint16(b[20:]) != 1 {
		return info, nil, errors.New("voicerelay: not linear PCM")
	}
	if string(b[36:40]) != "data" {
		return info, nil, errors.New("voicerelay: missing data chunk")
	}
	dataLen := binary.LittleEndian.Uint32(b[40:])
	if int(dataLen) != len(b)-wavHeaderSize {
		return info, nil, errors.New("voicerelay: data chunk length mismatch")
	}
	info.Channels = int(binary.LittleEndian.Uint16(b[22:]))
	info.SampleRate = int(binary.LittleEndian.Uint32(b[24:]))
	info.BitsPerSample = int(binary.LittleEndian.Uint16(b[34:]))
	return info, b[wavHeaderSize:], nil
}
