package video

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/ephod/getID3/core"
)

func box(typ string, payload ...[]byte) []byte {
	body := bytes.Join(payload, nil)
	b := binary.BigEndian.AppendUint32(nil, uint32(8+len(body)))
	return append(append(b, typ...), body...)
}

// mp4File returns a movie of 5 seconds with one AVC track carrying sps.
func mp4File(sps []byte) []byte {
	be := binary.BigEndian

	mvhd := make([]byte, 100)
	be.PutUint32(mvhd[12:16], 1000) // timescale
	be.PutUint32(mvhd[16:20], 5000) // duration
	be.PutUint32(mvhd[20:24], 0x00010000)
	be.PutUint16(mvhd[24:26], 0x0100)
	be.PutUint32(mvhd[96:100], 2)

	avcC := []byte{0x01, sps[1], sps[2], sps[3], 0xFF, 0xE1}
	avcC = be.AppendUint16(avcC, uint16(len(sps)))
	avcC = append(avcC, sps...)
	avcC = append(avcC, 0x01, 0x00, 0x04, 0x68, 0xCE, 0x3C, 0x80)

	entry := make([]byte, 78)
	be.PutUint16(entry[6:8], 1)     // data reference index
	be.PutUint16(entry[24:26], 320) // width
	be.PutUint16(entry[26:28], 240) // height
	be.PutUint32(entry[28:32], 0x00480000)
	be.PutUint32(entry[32:36], 0x00480000)
	be.PutUint16(entry[40:42], 1)
	be.PutUint16(entry[74:76], 0x0018)
	be.PutUint16(entry[76:78], 0xFFFF)

	stsd := box("stsd", []byte{0, 0, 0, 0, 0, 0, 0, 1}, box("avc1", entry, box("avcC", avcC)))
	trak := box("trak", box("mdia", box("minf", box("stbl", stsd))))
	return bytes.Join([][]byte{
		box("ftyp", []byte("isom"), []byte{0, 0, 2, 0}, []byte("isomavc1")),
		box("moov", box("mvhd", mvhd), trak),
		box("mdat", []byte{0, 0, 0, 1}),
	}, nil)
}

func TestProbeMP4(t *testing.T) {
	info, diag, err := ProbeMP4(bytes.NewReader(mp4File(sps320x240)))
	if err != nil {
		t.Fatal(err)
	}
	if len(diag.Warnings) != 0 {
		t.Errorf("warnings = %v", diag.Warnings)
	}
	if info.MajorBrand != "isom" || info.Timescale != 1000 || info.Seconds() != 5 {
		t.Errorf("info = %+v", info)
	}
	if len(info.Frames) != 1 || info.Frames[0].Width != 320 || info.Frames[0].Height != 240 {
		t.Errorf("frames = %+v", info.Frames)
	}
}

func TestProbeMP4BadSPS(t *testing.T) {
	info, diag, err := ProbeMP4(bytes.NewReader(mp4File([]byte{0x67, 0x42, 0xC0, 0x0D})))
	if err != nil {
		t.Fatal(err)
	}
	if len(info.Frames) != 1 || info.Frames[0].Valid {
		t.Errorf("frames = %+v", info.Frames)
	}
	if len(diag.Warnings) != 1 || diag.Warnings[0].Stage != "sps" {
		t.Errorf("warnings = %v", diag.Warnings)
	}
}

func TestViewMP4(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movie.mp4")
	if err := os.WriteFile(path, mp4File(sps320x240), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := New(core.FmtMP4).View(path)
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]string{}
	for _, f := range m.Fields {
		got[f.Category+"/"+f.Key] = f.Value
	}
	for key, want := range map[string]string{
		"MP4 Container/Brand":    "isom",
		"MP4 Container/Duration": "0m 05.000s",
		"Video Track 1/Width":    "320",
		"Video Track 1/Height":   "240",
	} {
		if got[key] != want {
			t.Errorf("%s = %q, want %q", key, got[key], want)
		}
	}
}

func TestViewUnsupported(t *testing.T) {
	if _, err := New(core.FmtMP3).View("x.mp3"); err == nil {
		t.Error("expected an error")
	}
}
