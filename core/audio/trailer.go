package audio

import (
	"bytes"
	"encoding/binary"
	"strconv"
)

// Tags appended after the audio data, in file order: APEv2, Lyrics3, ID3v1.
// Offsets are -1 when the tag is absent.
type trailers struct {
	apeStart, apeEnd       int
	lyricsStart, lyricsEnd int
	id3v1Start             int
	audioEnd               int // first byte of the earliest trailing tag
}

const (
	id3v1Size       = 128
	apeFooterSize   = 32
	lyrics3MaxV1    = 5100
	lyrics3v1Suffix = "LYRICSEND"
	lyrics3v2Suffix = "LYRICS200"
	lyrics3Begin    = "LYRICSBEGIN"
)

func scanTrailers(data []byte) trailers {
	t := trailers{apeStart: -1, apeEnd: -1, lyricsStart: -1, lyricsEnd: -1, id3v1Start: -1}
	end := len(data)

	if end >= id3v1Size && bytes.Equal(data[end-id3v1Size:end-id3v1Size+3], []byte("TAG")) {
		t.id3v1Start = end - id3v1Size
		end = t.id3v1Start
	}

	if start := lyrics3Start(data, end); start >= 0 {
		t.lyricsStart, t.lyricsEnd = start, end
		end = start
	}

	if start := apeStart(data, end); start >= 0 {
		t.apeStart, t.apeEnd = start, end
		end = start
	}

	t.audioEnd = end
	return t
}

// lyrics3Start returns the offset of a Lyrics3 v1 or v2 block ending at end.
func lyrics3Start(data []byte, end int) int {
	if end < len(lyrics3Begin)+len(lyrics3v2Suffix) {
		return -1
	}
	suffix := string(data[end-9 : end])
	switch suffix {
	case lyrics3v2Suffix:
		if end < 15 {
			return -1
		}
		n, err := strconv.Atoi(string(data[end-15 : end-9]))
		if err != nil {
			return -1
		}
		start := end - 15 - n
		if start < 0 || !bytes.HasPrefix(data[start:], []byte(lyrics3Begin)) {
			return -1
		}
		return start
	case lyrics3v1Suffix:
		from := max(0, end-9-lyrics3MaxV1-len(lyrics3Begin))
		i := bytes.LastIndex(data[from:end], []byte(lyrics3Begin))
		if i < 0 {
			return -1
		}
		return from + i
	}
	return -1
}

// apeStart returns the offset of an APEv1/v2 tag whose footer ends at end,
// including the header when the tag has one.
func apeStart(data []byte, end int) int {
	if end < apeFooterSize {
		return -1
	}
	footer := data[end-apeFooterSize : end]
	if !bytes.HasPrefix(footer, []byte("APETAGEX")) {
		return -1
	}
	size := int(binary.LittleEndian.Uint32(footer[12:16]))
	flags := binary.LittleEndian.Uint32(footer[20:24])
	start := end - size
	if flags&apeHasHeader != 0 {
		start -= apeFooterSize
	}
	if size < apeFooterSize || start < 0 {
		return -1
	}
	return start
}

// splice returns data with [from, to) replaced by insert.
func splice(data []byte, from, to int, insert []byte) []byte {
	out := make([]byte, 0, len(data)-(to-from)+len(insert))
	out = append(out, data[:from]...)
	out = append(out, insert...)
	return append(out, data[to:]...)
}
