package audio

import (
	"errors"
	"testing"

	"github.com/ephod/getID3/core"
	"github.com/ephod/getID3/core/tagwrite"
)

func fieldMap(m *core.Metadata) map[string]string {
	out := map[string]string{}
	for _, f := range m.Fields {
		out[f.Category+"/"+f.Key] = f.Value
	}
	return out
}

func TestWriteMPEGTags(t *testing.T) {
	path := writeTemp(t, "song.mp3", mpegAudio)
	c := tagwrite.New(Encoders())
	res, err := c.Write(tagwrite.Request{
		Path:    path,
		Formats: []tagwrite.Format{tagwrite.FormatID3v1, tagwrite.FormatID3v23, tagwrite.FormatAPE},
		Tags: tagwrite.NewTagMap(
			text("title", "Song"),
			text("artist", "Band"),
			text("genre", "Rock"),
			text("track", "3"),
		),
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if res.State != tagwrite.StateDone || len(res.Written) != 3 {
		t.Fatalf("result = %+v", res)
	}

	m, err := New(core.FmtMP3).View(path)
	if err != nil {
		t.Fatal(err)
	}
	got := fieldMap(m)
	for key, want := range map[string]string{
		"ID3v2.3/Title":   "Song",
		"ID3v2.3/Artist":  "Band",
		"APE/TITLE":       "Song",
		"APE/TRACKNUMBER": "3",
		"ID3v1/Title":     "Song",
		"ID3v1/Genre":     "Rock",
		"ID3v1/Track":     "3",
	} {
		if got[key] != want {
			t.Errorf("%s = %q, want %q", key, got[key], want)
		}
	}

	// Rewriting only ID3v2.4 with removal of the others leaves one tag.
	_, err = tagwrite.New(Encoders(), tagwrite.WithRemoveOtherTags(true)).Write(tagwrite.Request{
		Path:    path,
		Formats: []tagwrite.Format{tagwrite.FormatID3v24},
		Tags:    tagwrite.NewTagMap(text("title", "Other")),
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	data := readFile(t, path)
	tr := scanTrailers(data)
	if tr.apeStart >= 0 || tr.id3v1Start >= 0 {
		t.Errorf("trailing tags survived: %+v", tr)
	}
	if n := id3v2TagSize(data); n == 0 || len(data)-n != len(mpegAudio) {
		t.Errorf("ID3v2 tag size %d for %d bytes", n, len(data))
	}
}

func TestWriteFLACThroughController(t *testing.T) {
	path := writeTemp(t, "a.flac", flacFile())
	c := tagwrite.New(Encoders())
	if _, err := c.Write(tagwrite.Request{
		Path:    path,
		Formats: []tagwrite.Format{tagwrite.FormatMetaFLAC},
		Tags:    tagwrite.NewTagMap(text("title", "Flac"), text("comment", "one\r\ntwo")),
	}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	m, err := New(core.FmtFLAC).View(path)
	if err != nil {
		t.Fatal(err)
	}
	got := fieldMap(m)
	if got["VorbisComment/TITLE"] != "Flac" {
		t.Errorf("fields = %v", got)
	}
	if got["FLAC StreamInfo/SampleRate"] != "44100 Hz" || got["FLAC StreamInfo/Channels"] != "2" {
		t.Errorf("stream info = %v", got)
	}

	// ID3v1 is not allowed on FLAC.
	_, err = c.Write(tagwrite.Request{
		Path:    path,
		Formats: []tagwrite.Format{tagwrite.FormatID3v1},
		Tags:    tagwrite.NewTagMap(text("title", "x")),
	})
	var disallowed *tagwrite.DisallowedFormatForContainerError
	if !errors.As(err, &disallowed) {
		t.Errorf("err = %v", err)
	}
}

func TestEncodersCoverWritableFormats(t *testing.T) {
	enc := Encoders()
	for _, name := range []string{"id3v1", "id3v2.2", "id3v2.3", "id3v2.4", "ape", "lyrics3", "vorbiscomment", "metaflac", "real"} {
		f, err := tagwrite.ParseFormat(name)
		if err != nil {
			t.Fatal(err)
		}
		if enc[f] == nil {
			t.Errorf("no encoder for %s", f)
		}
	}
	if enc[tagwrite.FormatID3v2] == nil {
		t.Error("no encoder for id3v2 removal")
	}
}

func TestHandlerInfo(t *testing.T) {
	info := New(core.FmtFLAC).Info()
	if info.Name != "FLAC" || info.MediaType != "audio" {
		t.Errorf("info = %+v", info)
	}
}
