// Package tagwrite maps a canonical tag map onto the tag formats a container
// can carry and drives the per-format encoders that write them.
package tagwrite

import (
	"strings"
)

// Format names a tag encoding.
type Format string

const (
	FormatID3v1         Format = "id3v1"
	FormatID3v22        Format = "id3v2.2"
	FormatID3v23        Format = "id3v2.3"
	FormatID3v24        Format = "id3v2.4"
	FormatAPE           Format = "ape"
	FormatLyrics3       Format = "lyrics3"
	FormatVorbisComment Format = "vorbiscomment"
	FormatMetaFLAC      Format = "metaflac"
	FormatReal          Format = "real"

	// FormatID3v2 is a removal target covering every ID3v2 version.
	FormatID3v2 Format = "id3v2"
)

var writableFormats = map[Format]bool{
	FormatID3v1:         true,
	FormatID3v22:        true,
	FormatID3v23:        true,
	FormatID3v24:        true,
	FormatAPE:           true,
	FormatLyrics3:       true,
	FormatVorbisComment: true,
	FormatMetaFLAC:      true,
	FormatReal:          true,
}

// ParseFormat validates a writable tag format name.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	if !writableFormats[f] {
		return "", &UnknownTagFormatError{Name: name}
	}
	return f, nil
}

// ParseRemovalFormat validates a tag format name for removal. Any ID3v2
// version, or "id3v2" itself, maps to FormatID3v2.
func ParseRemovalFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	if f == FormatID3v2 {
		return f, nil
	}
	if !writableFormats[f] {
		return "", &UnknownTagFormatError{Name: name}
	}
	if f.ID3v2Major() != 0 {
		return FormatID3v2, nil
	}
	return f, nil
}

// ID3v2Major returns 2, 3 or 4 for the versioned ID3v2 formats and 0
// otherwise.
func (f Format) ID3v2Major() int {
	switch f {
	case FormatID3v22:
		return 2
	case FormatID3v23:
		return 3
	case FormatID3v24:
		return 4
	}
	return 0
}
