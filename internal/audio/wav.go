// Package audio parses and generates RIFF/WAVE containers for the 16-bit PCM
// audio exchanged with the kiosk frontend and the speech vendors.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Audio format tags understood by the decoder.
const (
	FormatPCM        = 1
	FormatIEEEFloat  = 3
	FormatExtensible = 65534
)

const maxSampleRate = 192000

// FormatError reports a malformed or unsupported WAV input.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "wav: " + e.Reason
}

func formatErrorf(format string, args ...any) error {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

// Audio is decoded 16-bit PCM plus its format metadata.
type Audio struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// Decode extracts raw PCM16 samples from a WAV byte stream.
//
// The chunk list is walked from offset 12; chunks are padded to an even
// boundary and unknown chunk ids are skipped. Scanning stops once both the
// "fmt " and "data" chunks have been seen.
func Decode(b []byte) (*Audio, error) {
	if len(b) < 12 || !bytes.Equal(b[0:4], []byte("RIFF")) || !bytes.Equal(b[8:12], []byte("WAVE")) {
		return nil, &FormatError{Reason: "not a WAV file"}
	}

	var (
		fmtFound, dataFound bool
		audioFormat         int
		channels            int
		sampleRate          int
		bitsPerSample       int
		dataOffset          int
		dataSize            int
	)

	i := 12
	for i+8 <= len(b) {
		chunkID := b[i : i+4]
		chunkSize := int(binary.LittleEndian.Uint32(b[i+4 : i+8]))
		i += 8

		if i+chunkSize > len(b) {
			if bytes.Equal(chunkID, []byte("data")) {
				return nil, &FormatError{Reason: "data chunk exceeds buffer"}
			}
			break
		}

		switch {
		case bytes.Equal(chunkID, []byte("fmt ")):
			if chunkSize < 16 {
				return nil, &FormatError{Reason: "invalid fmt chunk"}
			}
			audioFormat = int(binary.LittleEndian.Uint16(b[i : i+2]))
			channels = int(binary.LittleEndian.Uint16(b[i+2 : i+4]))
			sampleRate = int(binary.LittleEndian.Uint32(b[i+4 : i+8]))
			// skip byte rate (4) and block align (2)
			bitsPerSample = int(binary.LittleEndian.Uint16(b[i+14 : i+16]))
			fmtFound = true

		case bytes.Equal(chunkID, []byte("data")):
			dataOffset = i
			dataSize = chunkSize
			dataFound = true
		}

		// Chunks are word-aligned: an odd size is followed by a pad byte.
		i += chunkSize + (chunkSize % 2)

		if fmtFound && dataFound {
			break
		}
	}

	if !fmtFound || !dataFound {
		return nil, &FormatError{Reason: "fmt/data chunk not found"}
	}

	switch audioFormat {
	case FormatPCM, FormatExtensible:
		// 16-bit extraction supported below.
	case FormatIEEEFloat:
		return nil, formatErrorf("unsupported audio format: %d (PCM16 required)", audioFormat)
	default:
		return nil, formatErrorf("unsupported audio format: %d", audioFormat)
	}
	if sampleRate <= 0 || sampleRate > maxSampleRate {
		return nil, formatErrorf("unreasonable sample rate: %d", sampleRate)
	}
	if channels < 1 || channels > 2 {
		return nil, formatErrorf("unsupported channel count: %d", channels)
	}
	if bitsPerSample != 16 {
		return nil, formatErrorf("unsupported bits per sample: %d (expected 16)", bitsPerSample)
	}
	if dataOffset+dataSize > len(b) {
		return nil, &FormatError{Reason: "invalid data chunk bounds"}
	}

	pcm := b[dataOffset : dataOffset+dataSize]
	if len(pcm) == 0 {
		return nil, &FormatError{Reason: "empty audio data"}
	}

	return &Audio{PCM: pcm, SampleRate: sampleRate, Channels: channels}, nil
}

// Encode wraps raw PCM16 samples in a canonical 44-byte WAV header.
// Empty input produces empty output, no header.
func Encode(pcm []byte, sampleRate, channels int) []byte {
	if len(pcm) == 0 {
		return nil
	}
	if channels < 1 {
		channels = 1
	}

	const bitsPerSample = 16
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(pcm)))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(FormatPCM))
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}
