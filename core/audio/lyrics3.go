package audio

import (
	"os"

	"github.com/ephod/getID3/core"
	"github.com/ephod/getID3/core/tagwrite"
)

// Lyrics3Encoder removes Lyrics3 v1 and v2 blocks. Writing is not
// supported.
type Lyrics3Encoder struct{}

func (Lyrics3Encoder) Write(string, tagwrite.FormatData) (core.Diagnostics, error) {
	return core.Diagnostics{}, tagwrite.ErrLyrics3Unwritable
}

func (Lyrics3Encoder) Remove(path string) (core.Diagnostics, error) {
	var diag core.Diagnostics
	data, err := os.ReadFile(path)
	if err != nil {
		return diag, err
	}
	t := scanTrailers(data)
	if t.lyricsStart < 0 {
		return diag, nil
	}
	return diag, core.WriteFileAtomic(path, splice(data, t.lyricsStart, t.lyricsEnd, nil))
}
