package tagwrite

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

var utf8Settings = Settings{Encoding: CharsetUTF8, Language: "eng"}

func TestID3v1Track(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", ""},
		{"7", "7"},
		{"03", "3"},
		{"3/12", "3"},
		{" 12", "12"},
		{"-2", ""},
		{"abc", ""},
		{"", ""},
	}
	for _, tt := range tests {
		m := NewTagMap(Field{Key: FieldTrackNumber, Values: []Value{Text(tt.in)}})
		got, _, err := ForID3v1(m, utf8Settings)
		if err != nil {
			t.Fatalf("ForID3v1(%q): %v", tt.in, err)
		}
		if got.Track != tt.want {
			t.Errorf("track %q -> %q, want %q", tt.in, got.Track, tt.want)
		}
	}
}

func TestID3v1Fields(t *testing.T) {
	m := NewTagMap(
		Field{Key: "TITLE", Values: []Value{Text("Café"), Text("Noir")}},
		Field{Key: "GENRE", Values: []Value{Text("Nope"), Text("rock")}},
		Field{Key: "YEAR", Values: []Value{Number(1999)}},
	)
	got, diag, err := ForID3v1(m, utf8Settings)
	if err != nil {
		t.Fatalf("ForID3v1: %v", err)
	}
	if !diag.OK() {
		t.Errorf("unexpected errors: %v", diag.Errors)
	}
	if got.Title != "Caf\xe9 Noir" {
		t.Errorf("title = %q", got.Title)
	}
	if got.GenreID != 17 {
		t.Errorf("genre = %d, want 17", got.GenreID)
	}
	if got.Year != "1999" {
		t.Errorf("year = %q", got.Year)
	}

	none, _, _ := ForID3v1(NewTagMap(), utf8Settings)
	if none.GenreID != GenreUnknown {
		t.Errorf("empty map genre = %d, want %d", none.GenreID, GenreUnknown)
	}
}

func TestAPESkipsPicturesAndStructuredValues(t *testing.T) {
	m := NewTagMap(
		Field{Key: "TITLE", Values: []Value{Text("x"), Number(2)}},
		Field{Key: FieldAttachedPicture, Values: []Value{Picture{Data: []byte{1}, MIME: "image/png"}}},
		Field{Key: "RATING", Values: []Value{Text("ok"), Popularimeter{Rating: 1}}},
	)
	got, diag, err := ForAPE(m, utf8Settings)
	if err != nil {
		t.Fatalf("ForAPE: %v", err)
	}
	want := []APEItem{{Key: "TITLE", Values: []string{"x", "2"}}}
	if !reflect.DeepEqual(got.Items, want) {
		t.Errorf("items = %+v, want %+v", got.Items, want)
	}
	if len(diag.Warnings) != 2 {
		t.Errorf("warnings = %v, want 2", diag.Warnings)
	}
}

func TestID3v2TextEncoding(t *testing.T) {
	tests := []struct {
		name     string
		major    int
		charset  string
		in       string
		wantID   byte
		wantData []byte
	}{
		{"v3 ascii utf8", 3, CharsetUTF8, "abc", 0, []byte("abc")},
		{"v3 latin1 source", 3, CharsetISO88591, "caf\xe9", 0, []byte("caf\xe9")},
		{"v3 non-ascii utf8", 3, CharsetUTF8, "é", 1, []byte{0xFF, 0xFE, 0xE9, 0x00}},
		{"v2 non-ascii utf8", 2, CharsetUTF8, "é", 1, []byte{0xFF, 0xFE, 0xE9, 0x00}},
		{"v4 utf8", 4, CharsetUTF8, "é", 3, []byte("é")},
		{"v4 utf16be", 4, CharsetUTF16BE, "\x00a", 2, []byte("\x00a")},
		{"v4 utf16le", 4, CharsetUTF16LE, "a\x00", 3, []byte("a")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Settings{Encoding: tt.charset, Language: "deu"}
			m := NewTagMap(Field{Key: "TITLE", Values: []Value{Text(tt.in)}})
			got, _, err := ForID3v2(m, tt.major, s)
			if err != nil {
				t.Fatalf("ForID3v2: %v", err)
			}
			if len(got.Frames) != 1 {
				t.Fatalf("frames = %+v", got.Frames)
			}
			text, ok := got.Frames[0].Body.(*ID3v2Text)
			if !ok {
				t.Fatalf("body = %T", got.Frames[0].Body)
			}
			if text.EncodingID != tt.wantID || !bytes.Equal(text.Data, tt.wantData) {
				t.Errorf("got (%d, % x), want (%d, % x)", text.EncodingID, text.Data, tt.wantID, tt.wantData)
			}
			if text.Language != "deu" || text.Description != "" {
				t.Errorf("language/description = %q/%q", text.Language, text.Description)
			}
		})
	}
}

func TestID3v2DecodeText(t *testing.T) {
	m := NewTagMap(Field{Key: "ARTIST", Values: []Value{Text("Ærø")}})
	got, _, err := ForID3v2(m, 3, utf8Settings)
	if err != nil {
		t.Fatalf("ForID3v2: %v", err)
	}
	s, err := got.Frames[0].Body.(*ID3v2Text).DecodeText()
	if err != nil || s != "Ærø" {
		t.Errorf("DecodeText = %q, %v", s, err)
	}
}

func TestID3v2FrameIDsPerVersion(t *testing.T) {
	m := NewTagMap(
		Field{Key: "TITLE", Values: []Value{Text("t")}},
		Field{Key: "YEAR", Values: []Value{Text("2001")}},
	)
	for major, want := range map[int][]string{2: {"TT2", "TYE"}, 3: {"TIT2", "TYER"}, 4: {"TIT2", "TDRC"}} {
		got, _, err := ForID3v2(m, major, utf8Settings)
		if err != nil {
			t.Fatalf("v%d: %v", major, err)
		}
		var ids []string
		for _, f := range got.Frames {
			ids = append(ids, f.ID)
		}
		if !reflect.DeepEqual(ids, want) {
			t.Errorf("v%d ids = %v, want %v", major, ids, want)
		}
	}
}

func TestID3v2UnmappedFieldIsSkipped(t *testing.T) {
	m := NewTagMap(
		Field{Key: "NO_SUCH_FRAME", Values: []Value{Text("x")}},
		Field{Key: "TITLE", Values: []Value{Text("t")}},
	)
	got, diag, err := ForID3v2(m, 3, utf8Settings)
	if err != nil {
		t.Fatalf("ForID3v2: %v", err)
	}
	if len(got.Frames) != 1 || got.Frames[0].ID != "TIT2" {
		t.Errorf("frames = %+v", got.Frames)
	}
	var ue *UnmappedFieldError
	if len(diag.Errors) != 1 || !errors.As(diag.Errors[0], &ue) || ue.Key != "NO_SUCH_FRAME" {
		t.Errorf("errors = %v", diag.Errors)
	}
}

func TestID3v2MalformedStructuredFrames(t *testing.T) {
	tests := []struct {
		name string
		key  string
		v    Value
	}{
		{"picture without data", FieldAttachedPicture, Picture{MIME: "image/png"}},
		{"picture without mime", FieldAttachedPicture, Picture{Data: []byte{1}}},
		{"text as picture", FieldAttachedPicture, Text("cover.jpg")},
		{"ufid too long", "UNIQUE_FILE_IDENTIFIER", UniqueFileID{OwnerID: "o", Data: make([]byte, 65)}},
		{"ufid without owner", "UNIQUE_FILE_IDENTIFIER", UniqueFileID{Data: []byte{1}}},
		{"text as popularimeter", "POPULARIMETER", Text("5")},
		{"text as user text", "USER_TEXT", Text("x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewTagMap(Field{Key: tt.key, Values: []Value{tt.v}})
			_, _, err := ForID3v2(m, 3, utf8Settings)
			var me *MalformedStructuredFrameError
			if !errors.As(err, &me) {
				t.Fatalf("err = %v, want *MalformedStructuredFrameError", err)
			}
		})
	}
}

func TestID3v2StructuredFrames(t *testing.T) {
	pic := Picture{Data: []byte{0xFF, 0xD8}, PictureType: 3, Description: "front", MIME: "image/jpeg"}
	m := NewTagMap(
		Field{Key: FieldAttachedPicture, Values: []Value{pic}},
		Field{Key: "USER_TEXT", Values: []Value{UserText{Description: "MOOD", Value: "calm"}}},
	)
	got, _, err := ForID3v2(m, 3, utf8Settings)
	if err != nil {
		t.Fatalf("ForID3v2: %v", err)
	}
	if len(got.Frames) != 2 || got.Frames[0].ID != "APIC" || got.Frames[1].ID != "TXXX" {
		t.Fatalf("frames = %+v", got.Frames)
	}
	if p := got.Frames[0].Body.(Picture); p.Description != "front" || p.PictureType != 3 {
		t.Errorf("picture = %+v", p)
	}
}

func TestVorbisSplitsLines(t *testing.T) {
	m := NewTagMap(
		Field{Key: "COMMENT", Values: []Value{Text("one\n\n two\r\nthree\n  ")}},
		Field{Key: "TITLE", Values: []Value{Text("")}},
	)
	got, _, err := ForVorbisComment(m, utf8Settings)
	if err != nil {
		t.Fatalf("ForVorbisComment: %v", err)
	}
	want := []VorbisComment{
		{"COMMENT", "one"},
		{"COMMENT", " two"},
		{"COMMENT", "three"},
		{"TITLE", ""},
	}
	if !reflect.DeepEqual(got.Comments, want) {
		t.Errorf("comments = %+v, want %+v", got.Comments, want)
	}
	if got.TagFormat() != FormatVorbisComment {
		t.Errorf("format = %s", got.TagFormat())
	}
}

func TestVorbisDropsStructuredKey(t *testing.T) {
	m := NewTagMap(
		Field{Key: "ARTIST", Values: []Value{Text("a"), Popularimeter{}}},
		Field{Key: "ALBUM", Values: []Value{Text("b")}},
	)
	got, diag, err := ForVorbisComment(m, utf8Settings)
	if err != nil {
		t.Fatalf("ForVorbisComment: %v", err)
	}
	if want := []VorbisComment{{"ALBUM", "b"}}; !reflect.DeepEqual(got.Comments, want) {
		t.Errorf("comments = %+v, want %+v", got.Comments, want)
	}
	if len(diag.Warnings) != 1 {
		t.Errorf("warnings = %v", diag.Warnings)
	}
}

func TestMetaFLACCarriesPictures(t *testing.T) {
	m := NewTagMap(
		Field{Key: "TITLE", Values: []Value{Text("caf\xe9")}},
		Field{Key: FieldAttachedPicture, Values: []Value{
			Picture{Data: []byte{1, 2}, PictureType: 3, MIME: "image/png"},
			Picture{MIME: "image/png"},
		}},
	)
	got, diag, err := ForMetaFLAC(m, Settings{Encoding: CharsetISO88591})
	if err != nil {
		t.Fatalf("ForMetaFLAC: %v", err)
	}
	if len(got.Pictures) != 1 || len(diag.Warnings) != 1 {
		t.Errorf("pictures = %d, warnings = %v", len(got.Pictures), diag.Warnings)
	}
	if got.Comments[0].Value != "café" {
		t.Errorf("title = %q", got.Comments[0].Value)
	}
	if got.TagFormat() != FormatMetaFLAC {
		t.Errorf("format = %s", got.TagFormat())
	}
}

func TestReal(t *testing.T) {
	m := NewTagMap(
		Field{Key: "TITLE", Values: []Value{Text("a"), Text("b")}},
		Field{Key: "COPYRIGHT", Values: []Value{Text("© x")}},
		Field{Key: "ALBUM", Values: []Value{Text("ignored")}},
	)
	got, _, err := ForReal(m, utf8Settings)
	if err != nil {
		t.Fatalf("ForReal: %v", err)
	}
	want := RealData{Title: "a b", Copyright: "\xa9 x"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestDeriveLyrics3(t *testing.T) {
	_, _, err := Derive(FormatLyrics3, NewTagMap(), utf8Settings)
	if !errors.Is(err, ErrLyrics3Unwritable) {
		t.Errorf("err = %v", err)
	}
	if _, _, err := Derive("wma", NewTagMap(), utf8Settings); err == nil {
		t.Error("unknown format accepted")
	}
}
