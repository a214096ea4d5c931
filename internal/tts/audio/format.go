// Package audio provides audio format tags, format sniffing and duration
// estimation for synthesized speech.
//
// Encoding is always done by the external engine; this package only reads
// headers.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat is returned for output formats the handler cannot emit.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Format represents supported audio formats.
type Format string

// Known formats. Only FormatWAV and FormatMP3 may be requested as output;
// the others are recognized for reference audio.
const (
	FormatWAV  Format = "wav"
	FormatMP3  Format = "mp3"
	FormatFLAC Format = "flac"
	FormatOGG  Format = "ogg"
)

// Magic numbers used by DetectFormat.
var (
	magicRIFF = []byte("RIFF")
	magicWAVE = []byte("WAVE")
	magicID3  = []byte("ID3")
	magicFLAC = []byte("fLaC")
	magicOGG  = []byte("OggS")
)

const (
	mp3FrameSyncByte = 0xFF
	mp3FrameSyncMask = 0xE0
)

// ParseOutputFormat converts a requested format into an output Format.
func ParseOutputFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatWAV:
		return FormatWAV, nil
	case FormatMP3:
		return FormatMP3, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, value)
	}
}

// Extension returns the file extension for the format, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatWAV:
		return "audio/wav"
	case FormatMP3:
		return "audio/mpeg"
	case FormatFLAC:
		return "audio/flac"
	case FormatOGG:
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}

// DetectFormat sniffs the container of data. It returns false when the
// bytes match no known container.
func DetectFormat(data []byte) (Format, bool) {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], magicRIFF) && bytes.Equal(data[8:12], magicWAVE):
		return FormatWAV, true
	case bytes.HasPrefix(data, magicID3):
		return FormatMP3, true
	case len(data) >= 2 && data[0] == mp3FrameSyncByte && data[1]&mp3FrameSyncMask == mp3FrameSyncMask:
		return FormatMP3, true
	case bytes.HasPrefix(data, magicFLAC):
		return FormatFLAC, true
	case bytes.HasPrefix(data, magicOGG):
		return FormatOGG, true
	default:
		return "", false
	}
}
