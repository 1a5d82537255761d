package audio

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ephod/getID3/core"
	"github.com/ephod/getID3/core/tagwrite"
)

// ID3v1Encoder writes the 128-byte ID3v1.1 trailer.
type ID3v1Encoder struct{}

func (ID3v1Encoder) Write(path string, d tagwrite.FormatData) (core.Diagnostics, error) {
	var diag core.Diagnostics
	v1, ok := d.(tagwrite.ID3v1Data)
	if !ok {
		return diag, fmt.Errorf("id3v1: unexpected data %T", d)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return diag, err
	}

	tag := renderID3v1(v1, &diag)
	t := scanTrailers(data)
	if t.id3v1Start >= 0 {
		data = splice(data, t.id3v1Start, len(data), tag)
	} else {
		data = append(data, tag...)
	}
	return diag, core.WriteFileAtomic(path, data)
}

func (ID3v1Encoder) Remove(path string) (core.Diagnostics, error) {
	var diag core.Diagnostics
	data, err := os.ReadFile(path)
	if err != nil {
		return diag, err
	}
	t := scanTrailers(data)
	if t.id3v1Start < 0 {
		return diag, nil
	}
	return diag, core.WriteFileAtomic(path, data[:t.id3v1Start])
}

func renderID3v1(v tagwrite.ID3v1Data, diag *core.Diagnostics) []byte {
	b := make([]byte, id3v1Size)
	copy(b, "TAG")
	field := func(off, n int, s, name string) {
		if len(s) > n {
			diag.Warn(string(tagwrite.FormatID3v1), "%s truncated to %d bytes", name, n)
		}
		copy(b[off:off+n], s)
	}
	field(3, 30, v.Title, "title")
	field(33, 30, v.Artist, "artist")
	field(63, 30, v.Album, "album")
	field(93, 4, v.Year, "year")
	if v.Track != "" {
		field(97, 28, v.Comment, "comment")
		n, _ := strconv.Atoi(v.Track)
		if n > 255 {
			diag.Warn(string(tagwrite.FormatID3v1), "track %d does not fit in one byte", n)
		}
		b[126] = byte(n)
	} else {
		field(97, 30, v.Comment, "comment")
	}
	b[127] = byte(v.GenreID)
	return b
}
