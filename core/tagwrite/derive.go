package tagwrite

import (
	"errors"
	"strconv"
	"strings"

	"github.com/ephod/getID3/core"
)

// ErrLyrics3Unwritable is returned for write requests naming lyrics3; the
// format can only be removed.
var ErrLyrics3Unwritable = errors.New("lyrics3 tags can be removed but not written")

// Settings control how a tag map is turned into per-format data.
type Settings struct {
	Encoding string // character set of Text values
	Language string // ID3v2 COMM/USLT language
}

// FormatData is the normalized representation handed to an encoder.
type FormatData interface {
	TagFormat() Format
}

// ─── APE ─────────────────────────────────────────────────────────────────────

// APEItem is one APEv2 item; values are UTF-8.
type APEItem struct {
	Key    string
	Values []string
}

// APEData is the content of an APEv2 tag.
type APEData struct {
	Items []APEItem
}

func (APEData) TagFormat() Format { return FormatAPE }

// ForAPE derives APEv2 items. Pictures are left out, and a field holding
// anything but text or numbers is dropped entirely.
func ForAPE(m TagMap, s Settings) (APEData, core.Diagnostics, error) {
	var (
		out  APEData
		diag core.Diagnostics
	)
	for _, f := range m.Fields() {
		if f.Key == FieldAttachedPicture {
			diag.Warn(string(FormatAPE), "%s is assumed to be ID3v2 APIC data and is not written to the APE tag", f.Key)
			continue
		}
		item := APEItem{Key: f.Key}
		ok := true
		for i, v := range f.Values {
			str, isScalar := scalar(v)
			if !isScalar {
				diag.Warn(string(FormatAPE), "%s[%d] is not a string value (%s); %s is not written to the APE tag", f.Key, i, describe(v), f.Key)
				ok = false
				break
			}
			u, err := Transcode(str, s.Encoding, CharsetUTF8)
			if err != nil {
				return APEData{}, diag, err
			}
			item.Values = append(item.Values, u)
		}
		if ok {
			out.Items = append(out.Items, item)
		}
	}
	return out, diag, nil
}

// ─── ID3v1 ───────────────────────────────────────────────────────────────────

// ID3v1Data holds ISO-8859-1 strings for the fixed ID3v1 fields. Track is
// empty or a positive decimal number.
type ID3v1Data struct {
	Title   string
	Artist  string
	Album   string
	Year    string
	Comment string
	Track   string
	GenreID int
}

func (ID3v1Data) TagFormat() Format { return FormatID3v1 }

// ForID3v1 derives the ID3v1 fields. Multiple values are joined with a space.
func ForID3v1(m TagMap, s Settings) (ID3v1Data, core.Diagnostics, error) {
	var diag core.Diagnostics
	out := ID3v1Data{GenreID: GenreUnknown}
	for _, g := range m.Strings("GENRE") {
		if id, ok := LookupGenreID(g); ok {
			out.GenreID = id
			break
		}
	}

	latin := func(key string) (string, error) {
		return Transcode(strings.Join(m.Strings(key), " "), s.Encoding, CharsetISO88591)
	}
	var err error
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"TITLE", &out.Title},
		{"ARTIST", &out.Artist},
		{"ALBUM", &out.Album},
		{"YEAR", &out.Year},
		{"COMMENT", &out.Comment},
	} {
		if *f.dst, err = latin(f.key); err != nil {
			return ID3v1Data{}, diag, err
		}
	}

	track, err := latin(FieldTrackNumber)
	if err != nil {
		return ID3v1Data{}, diag, err
	}
	if n := leadingInt(track); n > 0 {
		out.Track = strconv.FormatInt(n, 10)
	}
	return out, diag, nil
}

// leadingInt parses the integer prefix of s the way a lenient string to
// integer cast does: leading blanks and a sign are accepted, parsing stops at
// the first non-digit, and no digits yields 0.
func leadingInt(s string) int64 {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	var n int64
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		if n > (1<<63-1)/10 {
			break
		}
		n = n*10 + int64(s[i]-'0')
	}
	if neg {
		return -n
	}
	return n
}

// ─── ID3v2 ───────────────────────────────────────────────────────────────────

// FrameBody is the content of one ID3v2 frame: *ID3v2Text or one of the
// structured values.
type FrameBody interface {
	isFrameBody()
}

// ID3v2Text is a text-like frame. Data is encoded as EncodingID says:
// 0 ISO-8859-1, 1 UTF-16 with BOM, 2 UTF-16BE, 3 UTF-8.
type ID3v2Text struct {
	EncodingID  byte
	Data        []byte
	Description string
	Language    string
}

func (ID3v2Text) isFrameBody()           {}
func (Picture) isFrameBody()             {}
func (Popularimeter) isFrameBody()       {}
func (GroupIdentification) isFrameBody() {}
func (UniqueFileID) isFrameBody()        {}
func (UserText) isFrameBody()            {}

// ID3v2Frame pairs a frame id with its body.
type ID3v2Frame struct {
	ID   string
	Body FrameBody
}

// ID3v2Data is the frame list of an ID3v2 tag of the given major version.
type ID3v2Data struct {
	Major  int
	Frames []ID3v2Frame
}

func (d ID3v2Data) TagFormat() Format {
	switch d.Major {
	case 2:
		return FormatID3v22
	case 3:
		return FormatID3v23
	default:
		return FormatID3v24
	}
}

// textEncodingIDs lists the source encodings each major version stores
// without conversion.
var textEncodingIDs = map[int]map[string]byte{
	2: {CharsetISO88591: 0, CharsetUTF16: 1},
	3: {CharsetISO88591: 0, CharsetUTF16: 1},
	4: {CharsetISO88591: 0, CharsetUTF16: 1, CharsetUTF16BE: 2, CharsetUTF8: 3},
}

// ForID3v2 derives the frames of an ID3v2.major tag. Fields without a frame
// are recorded as errors and skipped; malformed structured values fail the
// derivation.
func ForID3v2(m TagMap, major int, s Settings) (ID3v2Data, core.Diagnostics, error) {
	var diag core.Diagnostics
	out := ID3v2Data{Major: major}
	stage := string(ID3v2Data{Major: major}.TagFormat())

	for _, f := range m.Fields() {
		id := FrameID(major, f.Key)
		if id == "" {
			diag.Fail(&UnmappedFieldError{Key: f.Key, Major: major})
			continue
		}
		kind := frameKind(id)
		for _, v := range f.Values {
			body, err := frameBody(kind, f.Key, v, major, s)
			if err != nil {
				return ID3v2Data{}, diag, err
			}
			if body == nil {
				diag.Warn(stage, "%s holds a %s value that a %s frame cannot carry; skipped", f.Key, describe(v), id)
				continue
			}
			out.Frames = append(out.Frames, ID3v2Frame{ID: id, Body: body})
		}
	}
	return out, diag, nil
}

func frameBody(kind, key string, v Value, major int, s Settings) (FrameBody, error) {
	malformed := func(reason string) error {
		return &MalformedStructuredFrameError{Frame: kind, Key: key, Reason: reason}
	}
	utf := func(str string) (string, error) { return Transcode(str, s.Encoding, CharsetUTF8) }

	switch kind {
	case "APIC":
		p, ok := v.(Picture)
		if !ok {
			return nil, malformed("expected a picture, got " + describe(v))
		}
		if r := p.validate(); r != "" {
			return nil, malformed(r)
		}
		desc, err := utf(p.Description)
		if err != nil {
			return nil, err
		}
		p.Description = desc
		return p, nil
	case "POPM":
		p, ok := v.(Popularimeter)
		if !ok {
			return nil, malformed("expected a popularimeter, got " + describe(v))
		}
		return p, nil
	case "GRID":
		g, ok := v.(GroupIdentification)
		if !ok {
			return nil, malformed("expected a group identification, got " + describe(v))
		}
		if r := g.validate(); r != "" {
			return nil, malformed(r)
		}
		return g, nil
	case "UFID":
		u, ok := v.(UniqueFileID)
		if !ok {
			return nil, malformed("expected a unique file identifier, got " + describe(v))
		}
		if r := u.validate(); r != "" {
			return nil, malformed(r)
		}
		return u, nil
	case "TXXX":
		t, ok := v.(UserText)
		if !ok {
			return nil, malformed("expected a description and value, got " + describe(v))
		}
		var err error
		if t.Description, err = utf(t.Description); err != nil {
			return nil, err
		}
		if t.Value, err = utf(t.Value); err != nil {
			return nil, err
		}
		return t, nil
	}

	str, ok := scalar(v)
	if !ok {
		return nil, nil
	}
	return textFrame(str, major, s)
}

// textFrame picks the text encoding for a frame value. Source encodings the
// version supports are stored as they are. Otherwise versions before 2.4 use
// ISO-8859-1 for ASCII input and little-endian UTF-16 with a BOM for the
// rest, and 2.4 uses UTF-8.
func textFrame(str string, major int, s Settings) (*ID3v2Text, error) {
	enc := canonicalCharset(s.Encoding)
	t := &ID3v2Text{Language: s.Language}

	if id, ok := textEncodingIDs[major][enc]; ok {
		t.EncodingID = id
		t.Data = []byte(str)
		return t, nil
	}
	if major < 4 {
		if enc == CharsetUTF8 && isASCII(str) {
			t.EncodingID = 0
			t.Data = []byte(str)
			return t, nil
		}
		u16, err := Transcode(str, s.Encoding, CharsetUTF16LE)
		if err != nil {
			return nil, err
		}
		t.EncodingID = 1
		t.Data = append([]byte{0xFF, 0xFE}, u16...)
		return t, nil
	}
	u8, err := Transcode(str, s.Encoding, CharsetUTF8)
	if err != nil {
		return nil, err
	}
	t.EncodingID = 3
	t.Data = []byte(u8)
	return t, nil
}

// DecodeText returns the frame text as UTF-8.
func (t ID3v2Text) DecodeText() (string, error) {
	switch t.EncodingID {
	case 0:
		return Transcode(string(t.Data), CharsetISO88591, CharsetUTF8)
	case 1:
		return Transcode(string(t.Data), CharsetUTF16, CharsetUTF8)
	case 2:
		return Transcode(string(t.Data), CharsetUTF16BE, CharsetUTF8)
	default:
		return string(t.Data), nil
	}
}

// ─── VorbisComment / MetaFLAC ────────────────────────────────────────────────

// VorbisComment is one NAME=value entry.
type VorbisComment struct {
	Key   string
	Value string
}

// VorbisData is the content of a Vorbis comment header. Pictures are only
// written by the FLAC encoder.
type VorbisData struct {
	Format   Format // FormatVorbisComment or FormatMetaFLAC
	Comments []VorbisComment
	Pictures []Picture
}

func (d VorbisData) TagFormat() Format { return d.Format }

// ForVorbisComment derives Vorbis comments. Values spanning several lines
// become one comment per non-blank line.
func ForVorbisComment(m TagMap, s Settings) (VorbisData, core.Diagnostics, error) {
	return forVorbis(m, s, FormatVorbisComment)
}

// ForMetaFLAC derives the FLAC VORBIS_COMMENT and PICTURE content.
func ForMetaFLAC(m TagMap, s Settings) (VorbisData, core.Diagnostics, error) {
	return forVorbis(m, s, FormatMetaFLAC)
}

func forVorbis(m TagMap, s Settings, format Format) (VorbisData, core.Diagnostics, error) {
	var diag core.Diagnostics
	out := VorbisData{Format: format}

	for _, f := range m.Fields() {
		var comments []VorbisComment
		ok := true
		for i, v := range f.Values {
			if p, isPic := v.(Picture); isPic && f.Key == FieldAttachedPicture {
				if r := p.validate(); r != "" {
					diag.Warn(string(format), "%s[%d]: %s; picture skipped", f.Key, i, r)
					continue
				}
				desc, err := Transcode(p.Description, s.Encoding, CharsetUTF8)
				if err != nil {
					return VorbisData{}, diag, err
				}
				p.Description = desc
				out.Pictures = append(out.Pictures, p)
				continue
			}
			str, isScalar := scalar(v)
			if !isScalar {
				diag.Warn(string(format), "%s[%d] is not a string value (%s); %s is not written to the VorbisComment tag", f.Key, i, describe(v), f.Key)
				ok = false
				break
			}
			str = strings.ReplaceAll(str, "\r", "\n")
			if !strings.Contains(str, "\n") {
				u, err := Transcode(str, s.Encoding, CharsetUTF8)
				if err != nil {
					return VorbisData{}, diag, err
				}
				comments = append(comments, VorbisComment{Key: f.Key, Value: u})
				continue
			}
			for _, line := range strings.Split(str, "\n") {
				if strings.TrimSpace(line) == "" {
					continue
				}
				u, err := Transcode(line, s.Encoding, CharsetUTF8)
				if err != nil {
					return VorbisData{}, diag, err
				}
				comments = append(comments, VorbisComment{Key: f.Key, Value: u})
			}
		}
		if ok {
			out.Comments = append(out.Comments, comments...)
		}
	}
	return out, diag, nil
}

// ─── Real ────────────────────────────────────────────────────────────────────

// RealData holds ISO-8859-1 strings for the RealMedia CONT chunk.
type RealData struct {
	Title     string
	Artist    string
	Copyright string
	Comment   string
}

func (RealData) TagFormat() Format { return FormatReal }

// ForReal derives the RealMedia content description.
func ForReal(m TagMap, s Settings) (RealData, core.Diagnostics, error) {
	var (
		out  RealData
		diag core.Diagnostics
		err  error
	)
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"TITLE", &out.Title},
		{"ARTIST", &out.Artist},
		{"COPYRIGHT", &out.Copyright},
		{"COMMENT", &out.Comment},
	} {
		joined := strings.Join(m.Strings(f.key), " ")
		if *f.dst, err = Transcode(joined, s.Encoding, CharsetISO88591); err != nil {
			return RealData{}, diag, err
		}
	}
	return out, diag, nil
}

// Derive produces the data for one writable format.
func Derive(f Format, m TagMap, s Settings) (FormatData, core.Diagnostics, error) {
	switch f {
	case FormatAPE:
		return wrap(ForAPE(m, s))
	case FormatID3v1:
		return wrap(ForID3v1(m, s))
	case FormatID3v22, FormatID3v23, FormatID3v24:
		return wrap(ForID3v2(m, f.ID3v2Major(), s))
	case FormatVorbisComment:
		return wrap(ForVorbisComment(m, s))
	case FormatMetaFLAC:
		return wrap(ForMetaFLAC(m, s))
	case FormatReal:
		return wrap(ForReal(m, s))
	case FormatLyrics3:
		return nil, core.Diagnostics{}, ErrLyrics3Unwritable
	}
	return nil, core.Diagnostics{}, &UnknownTagFormatError{Name: string(f)}
}

func wrap[T FormatData](d T, diag core.Diagnostics, err error) (FormatData, core.Diagnostics, error) {
	if err != nil {
		return nil, diag, err
	}
	return d, diag, nil
}
