package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dhowden/tag"
)

// FormatID enumerates every recognised container.
type FormatID string

const (
	FmtMP3  FormatID = "mp3"
	FmtMP2  FormatID = "mp2"
	FmtMP1  FormatID = "mp1"
	FmtFLAC FormatID = "flac"
	FmtOGG  FormatID = "ogg"
	FmtRIFF FormatID = "riff"
	FmtMPC  FormatID = "mpc"
	FmtReal FormatID = "real"
	FmtM4A  FormatID = "m4a"
	FmtAIFF FormatID = "aiff"

	FmtMP4 FormatID = "mp4"
	FmtMOV FormatID = "mov"
	FmtFLV FormatID = "flv"

	FmtUnknown FormatID = "unknown"
)

// FormatIDs lists every recognised container.
func FormatIDs() []FormatID {
	return []FormatID{
		FmtMP3, FmtMP2, FmtMP1, FmtFLAC, FmtOGG, FmtRIFF, FmtMPC, FmtReal, FmtM4A, FmtAIFF,
		FmtMP4, FmtMOV, FmtFLV,
	}
}

// extMap maps lowercase extensions to format IDs.
var extMap = map[string]FormatID{
	".mp3":  FmtMP3,
	".mp2":  FmtMP2,
	".mp1":  FmtMP1,
	".flac": FmtFLAC,
	".ogg":  FmtOGG,
	".oga":  FmtOGG,
	".opus": FmtOGG,
	".wav":  FmtRIFF,
	".wave": FmtRIFF,
	".avi":  FmtRIFF,
	".mpc":  FmtMPC,
	".mp+":  FmtMPC,
	".rm":   FmtReal,
	".ra":   FmtReal,
	".rmvb": FmtReal,
	".m4a":  FmtM4A,
	".aif":  FmtAIFF,
	".aiff": FmtAIFF,

	".mp4": FmtMP4,
	".m4v": FmtMP4,
	".mov": FmtMOV,
	".qt":  FmtMOV,
	".flv": FmtFLV,
}

// sniffLen is how many bytes of the container head are inspected.
const sniffLen = 64

// DetectFormat returns the FormatID for the given file, first by reading
// magic bytes and falling back to extension.
func DetectFormat(path string) (FormatID, error) {
	f, err := os.Open(path)
	if err != nil {
		return FmtUnknown, err
	}
	defer f.Close()

	head, err := readHead(f)
	if err != nil {
		return FmtUnknown, err
	}
	if id := detectMagic(head); id != FmtUnknown {
		return id, nil
	}
	return detectExt(path), nil
}

func detectExt(path string) FormatID {
	dot := strings.LastIndex(path, ".")
	if dot >= 0 {
		if id, ok := extMap[strings.ToLower(path[dot:])]; ok {
			return id
		}
	}
	return FmtUnknown
}

// readHead returns the first bytes of the container, past any leading
// ID3v2 tag so that e.g. FLAC files carrying one are still recognised.
func readHead(r io.ReadSeeker) ([]byte, error) {
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(r, buf)
	if err != nil && n == 0 && !errors.Is(err, io.EOF) {
		return nil, err
	}
	buf = buf[:n]

	if n >= 10 && bytes.HasPrefix(buf, []byte("ID3")) {
		size := int64(buf[6]&0x7f)<<21 | int64(buf[7]&0x7f)<<14 | int64(buf[8]&0x7f)<<7 | int64(buf[9]&0x7f)
		skip := 10 + size
		if buf[5]&0x10 != 0 {
			skip += 10 // footer
		}
		if _, err := r.Seek(skip, io.SeekStart); err != nil {
			return buf, nil
		}
		after := make([]byte, sniffLen)
		m, _ := io.ReadFull(r, after)
		if m >= 4 && detectMagic(after[:m]) != FmtUnknown {
			return after[:m], nil
		}
	}
	return buf, nil
}

func detectMagic(b []byte) FormatID {
	if len(b) < 4 {
		return FmtUnknown
	}
	switch {
	// MPEG audio frame sync; layer bits pick mp1/mp2/mp3
	case b[0] == 0xFF && (b[1]&0xE0 == 0xE0):
		switch (b[1] >> 1) & 0x03 {
		case 0x03:
			return FmtMP1
		case 0x02:
			return FmtMP2
		case 0x01:
			return FmtMP3
		}
		return FmtUnknown
	case bytes.HasPrefix(b, []byte("ID3")):
		return FmtMP3
	case bytes.HasPrefix(b, []byte("fLaC")):
		return FmtFLAC
	case bytes.HasPrefix(b, []byte("OggS")):
		return FmtOGG
	case len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")):
		return FmtRIFF
	case bytes.HasPrefix(b, []byte("MPCK")) || bytes.HasPrefix(b, []byte("MP+")):
		return FmtMPC
	case bytes.HasPrefix(b, []byte(".RMF")) || bytes.HasPrefix(b, []byte(".ra\xfd")):
		return FmtReal
	// AIFF: FORM????AIFF or AIFC
	case len(b) >= 12 && bytes.Equal(b[0:4], []byte("FORM")) &&
		(bytes.Equal(b[8:12], []byte("AIFF")) || bytes.Equal(b[8:12], []byte("AIFC"))):
		return FmtAIFF
	// ftyp box at offset 4
	case len(b) >= 8 && bytes.Equal(b[4:8], []byte("ftyp")):
		return detectMP4Subtype(b)
	case bytes.HasPrefix(b, []byte("FLV")):
		return FmtFLV
	}
	return FmtUnknown
}

func detectMP4Subtype(b []byte) FormatID {
	if len(b) < 12 {
		return FmtMP4
	}
	switch string(b[8:12]) {
	case "M4A ", "M4B ":
		return FmtM4A
	case "qt  ":
		return FmtMOV
	default:
		return FmtMP4
	}
}

// oggDataFormat names the codec carried by the first logical bitstream of an
// Ogg file, from the first packet of its first page.
func oggDataFormat(head []byte) string {
	if len(head) < 27 {
		return ""
	}
	segments := int(head[26])
	start := 27 + segments
	if start >= len(head) {
		return ""
	}
	packet := head[start:]
	switch {
	case bytes.HasPrefix(packet, []byte("\x01vorbis")):
		return "vorbis"
	case bytes.HasPrefix(packet, []byte("\x7fFLAC")):
		return "flac"
	case bytes.HasPrefix(packet, []byte("OpusHead")):
		return "opus"
	case bytes.HasPrefix(packet, []byte("Speex   ")):
		return "speex"
	}
	return ""
}

// MediaTypeFor returns the broad media category for a format.
func MediaTypeFor(id FormatID) string {
	switch id {
	case FmtMP3, FmtMP2, FmtMP1, FmtFLAC, FmtOGG, FmtRIFF, FmtMPC, FmtReal, FmtM4A, FmtAIFF:
		return "audio"
	case FmtMP4, FmtMOV, FmtFLV:
		return "video"
	default:
		return "unknown"
	}
}

// ─── Analysis ────────────────────────────────────────────────────────────────

// Analyze classifies the container at path and reads the tags it already
// carries. A zero-length file yields an Analysis with Size 0 and an unknown
// container.
func Analyze(path string) (*Analysis, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	a := &Analysis{Path: path, Size: st.Size(), FileFormat: FmtUnknown, Tags: map[string]map[string][]string{}}
	if a.Size == 0 {
		return a, nil
	}

	head, err := readHead(f)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	a.FileFormat = detectMagic(head)
	if a.FileFormat == FmtUnknown {
		a.FileFormat = detectExt(path)
	}
	if a.FileFormat == FmtOGG {
		a.DataFormat = oggDataFormat(head)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	t, err := tag.ReadFrom(f)
	if err != nil {
		// No tags, or tags dhowden/tag cannot parse; the classification stands.
		return a, nil
	}
	a.Tags[string(t.Format())] = rawTags(t)
	return a, nil
}

// rawTags flattens the string-valued raw fields of t with uppercased keys.
func rawTags(t tag.Metadata) map[string][]string {
	out := map[string][]string{}
	for k, v := range t.Raw() {
		key := strings.ToUpper(k)
		switch vt := v.(type) {
		case string:
			out[key] = append(out[key], vt)
		case []string:
			out[key] = append(out[key], vt...)
		case int:
			out[key] = append(out[key], fmt.Sprintf("%d", vt))
		case *tag.Comm:
			out[key] = append(out[key], vt.Text)
		}
	}
	return out
}
