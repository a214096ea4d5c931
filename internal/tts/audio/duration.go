package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// Defaults used when the caller supplies zero-valued assumptions.
const (
	DefaultAssumedSampleRate = 22050
	DefaultAssumedBitDepth   = 16
	DefaultAssumedChannels   = 1
	DefaultAssumedMP3Kbps    = 48
)

const (
	riffHeaderSize  = 12
	chunkHeaderSize = 8
	fmtChunkMinSize = 16
	bitsPerByte     = 8
	bitsPerKilobit  = 1000
)

var (
	// ErrNotWAV is returned when data does not start with a RIFF/WAVE header.
	ErrNotWAV = errors.New("not a wav stream")
	// ErrMalformedWAV is returned when the fmt or data chunk cannot be read.
	ErrMalformedWAV = errors.New("malformed wav header")
)

var (
	chunkFmt  = []byte("fmt ")
	chunkData = []byte("data")
)

// Assumptions describe the stream when no header can be read. Engines in
// use have been seen at both 16 kHz and 22.05 kHz, so a byte-length estimate
// is only as good as these values.
type Assumptions struct {
	SampleRate int
	BitDepth   int
	Channels   int
	MP3Kbps    int
}

// WAVInfo is the metadata read from a WAV header.
type WAVInfo struct {
	SampleRate int
	BitDepth   int
	Channels   int
	DataBytes  int
}

// Seconds returns the playback length described by the header.
func (w WAVInfo) Seconds() float64 {
	bytesPerSecond := w.SampleRate * w.Channels * w.BitDepth / bitsPerByte
	if bytesPerSecond <= 0 {
		return 0
	}

	return float64(w.DataBytes) / float64(bytesPerSecond)
}

// ParseWAVHeader walks the RIFF chunks of data and returns the fmt and data
// chunk metadata. A data chunk whose declared size runs past the buffer is
// clamped to what is present, which is how streaming engines leave it.
func ParseWAVHeader(data []byte) (WAVInfo, error) {
	var info WAVInfo

	format, ok := DetectFormat(data)
	if !ok || format != FormatWAV {
		return info, ErrNotWAV
	}

	haveFmt := false
	offset := riffHeaderSize

	for offset+chunkHeaderSize <= len(data) {
		id := data[offset : offset+4]
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+chunkHeaderSize]))
		body := offset + chunkHeaderSize

		switch {
		case bytes.Equal(id, chunkFmt):
			if size < fmtChunkMinSize || body+fmtChunkMinSize > len(data) {
				return info, ErrMalformedWAV
			}

			info.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			info.BitDepth = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case bytes.Equal(id, chunkData):
			if !haveFmt {
				return info, ErrMalformedWAV
			}

			info.DataBytes = min(size, len(data)-body)

			return info, nil
		}

		// Chunks are padded to an even size.
		offset = body + size + size%2
	}

	return info, ErrMalformedWAV
}

// EstimateDuration returns the playback length of data in seconds and
// whether it was read from a header. WAV data is parsed; anything else is
// approximated from its byte length using assumptions.
func EstimateDuration(data []byte, format Format, assumptions Assumptions) (float64, bool) {
	if len(data) == 0 {
		return 0, false
	}

	assumptions = assumptions.withDefaults()

	if format == FormatWAV {
		info, err := ParseWAVHeader(data)
		if err == nil {
			return info.Seconds(), true
		}

		pcm := WAVInfo{
			SampleRate: assumptions.SampleRate,
			BitDepth:   assumptions.BitDepth,
			Channels:   assumptions.Channels,
			DataBytes:  len(data),
		}

		return pcm.Seconds(), false
	}

	if format == FormatMP3 {
		bytesPerSecond := float64(assumptions.MP3Kbps*bitsPerKilobit) / bitsPerByte

		return float64(len(data)) / bytesPerSecond, false
	}

	return 0, false
}

func (a Assumptions) withDefaults() Assumptions {
	if a.SampleRate <= 0 {
		a.SampleRate = DefaultAssumedSampleRate
	}

	if a.BitDepth <= 0 {
		a.BitDepth = DefaultAssumedBitDepth
	}

	if a.Channels <= 0 {
		a.Channels = DefaultAssumedChannels
	}

	if a.MP3Kbps <= 0 {
		a.MP3Kbps = DefaultAssumedMP3Kbps
	}

	return a
}
