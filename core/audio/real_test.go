package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/ephod/getID3/core"
	"github.com/ephod/getID3/core/tagwrite"
)

// rmfFile returns a RealMedia file with a file header, a PROP chunk pointing
// at the DATA chunk, and the DATA chunk.
func rmfFile() []byte {
	be := binary.BigEndian
	hdr := []byte(".RMF")
	hdr = be.AppendUint32(hdr, 18)
	hdr = be.AppendUint16(hdr, 0)
	hdr = be.AppendUint32(hdr, 0)
	hdr = be.AppendUint32(hdr, 2)

	prop := []byte("PROP")
	prop = be.AppendUint32(prop, 50)
	prop = be.AppendUint16(prop, 0)
	prop = append(prop, make([]byte, 28)...)
	prop = be.AppendUint32(prop, 0)  // index offset
	prop = be.AppendUint32(prop, 68) // data offset
	prop = be.AppendUint16(prop, 1)
	prop = be.AppendUint16(prop, 0)

	data := []byte("DATA")
	data = be.AppendUint32(data, 18)
	data = be.AppendUint16(data, 0)
	data = append(data, 1, 2, 3, 4, 5, 6, 7, 8)
	return bytes.Join([][]byte{hdr, prop, data}, nil)
}

func TestRealWriteAndRemove(t *testing.T) {
	orig := rmfFile()
	path := writeTemp(t, "a.rm", orig)
	d, _, err := tagwrite.ForReal(tags(text("TITLE", "Señor"), text("ARTIST", "x")), utf8)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := (RealEncoder{}).Write(path, d); err != nil {
		t.Fatalf("Write: %v", err)
	}

	out := readFile(t, path)
	chunks, err := parseRMF(out)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, c := range chunks {
		ids = append(ids, c.id)
	}
	if got := strings.Join(ids, ","); got != ".RMF,PROP,CONT,DATA" {
		t.Fatalf("chunks = %s", got)
	}
	if n := binary.BigEndian.Uint32(out[14:18]); n != 3 {
		t.Errorf("num_headers = %d", n)
	}
	if off := binary.BigEndian.Uint32(out[18+42 : 18+46]); int(off) != chunks[3].offset {
		t.Errorf("data offset = %d, DATA at %d", off, chunks[3].offset)
	}

	m, err := New(core.FmtReal).View(path)
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]string{}
	for _, f := range m.Fields {
		got[f.Key] = f.Value
	}
	if got["Title"] != "Señor" || got["Author"] != "x" {
		t.Errorf("fields = %v", got)
	}

	// A second write replaces the chunk in place.
	d2, _, _ := tagwrite.ForReal(tags(text("TITLE", "y")), utf8)
	if _, err := (RealEncoder{}).Write(path, d2); err != nil {
		t.Fatal(err)
	}
	if chunks, _ := parseRMF(readFile(t, path)); len(chunks) != 4 {
		t.Errorf("chunks after rewrite = %d", len(chunks))
	}

	if _, err := (RealEncoder{}).Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !bytes.Equal(readFile(t, path), orig) {
		t.Error("Remove did not restore the original file")
	}
}

func TestRealRejectsRealAudio(t *testing.T) {
	path := writeTemp(t, "a.ra", append([]byte(".ra\xfd"), make([]byte, 40)...))
	d, _, _ := tagwrite.ForReal(tags(text("TITLE", "t")), utf8)
	if _, err := (RealEncoder{}).Write(path, d); !errors.Is(err, errNotRMF) {
		t.Errorf("err = %v", err)
	}
}

func TestBuildCONTTruncates(t *testing.T) {
	var diag core.Diagnostics
	long := strings.Repeat("c", 70000)
	cont := buildCONT(tagwrite.RealData{Comment: long}, &diag)
	if len(diag.Warnings) != 1 {
		t.Errorf("warnings = %v", diag.Warnings)
	}
	if want := 10 + 2*4 + 0xFFFF; len(cont) != want {
		t.Errorf("len = %d, want %d", len(cont), want)
	}
}
