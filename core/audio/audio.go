// Package audio reads and writes the metadata of audio containers: MPEG
// audio and RIFF (ID3v1, ID3v2, APE, Lyrics3), FLAC (MetaFLAC), Ogg Vorbis
// (VorbisComment), Musepack (APE) and RealMedia (CONT).
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dhowden/tag"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/meta"

	"github.com/ephod/getID3/core"
	"github.com/ephod/getID3/core/jpg"
	"github.com/ephod/getID3/core/tagwrite"
)

// Encoders returns an encoder for every writable tag format.
func Encoders() tagwrite.Encoders {
	v2 := ID3v2Encoder{}
	return tagwrite.Encoders{
		tagwrite.FormatID3v1:         ID3v1Encoder{},
		tagwrite.FormatID3v2:         v2,
		tagwrite.FormatID3v22:        v2,
		tagwrite.FormatID3v23:        v2,
		tagwrite.FormatID3v24:        v2,
		tagwrite.FormatAPE:           APEEncoder{},
		tagwrite.FormatLyrics3:       Lyrics3Encoder{},
		tagwrite.FormatVorbisComment: VorbisCommentEncoder{},
		tagwrite.FormatMetaFLAC:      MetaFLACEncoder{},
		tagwrite.FormatReal:          RealEncoder{},
	}
}

// Handler implements core.Viewer for audio formats.
type Handler struct {
	format core.FormatID
}

// New returns an audio Handler for the given format.
func New(format core.FormatID) *Handler { return &Handler{format: format} }

func (h *Handler) Info() core.FormatInfo {
	return formatInfo[h.format]
}

var mpegTagFormats = []string{"id3v1", "id3v2.3", "id3v2.4", "ape", "lyrics3 (remove only)"}

var formatInfo = map[core.FormatID]core.FormatInfo{
	core.FmtMP3: {
		Name:       "MP3",
		Extensions: []string{".mp3"},
		MediaType:  "audio",
		MIMETypes:  []string{"audio/mpeg"},
		TagFormats: mpegTagFormats,
		Notes:      "MPEG-1/2 layer III. ID3v2 at the start, APE, Lyrics3 and ID3v1 at the end.",
	},
	core.FmtMP2: {
		Name:       "MP2",
		Extensions: []string{".mp2"},
		MediaType:  "audio",
		MIMETypes:  []string{"audio/mpeg"},
		TagFormats: mpegTagFormats,
	},
	core.FmtMP1: {
		Name:       "MP1",
		Extensions: []string{".mp1"},
		MediaType:  "audio",
		MIMETypes:  []string{"audio/mpeg"},
		TagFormats: mpegTagFormats,
	},
	core.FmtFLAC: {
		Name:       "FLAC",
		Extensions: []string{".flac"},
		MediaType:  "audio",
		MIMETypes:  []string{"audio/flac"},
		TagFormats: []string{"metaflac"},
		Notes:      "VORBIS_COMMENT and PICTURE metadata blocks.",
	},
	core.FmtOGG: {
		Name:       "OGG",
		Extensions: []string{".ogg", ".oga"},
		MediaType:  "audio",
		MIMETypes:  []string{"audio/ogg"},
		TagFormats: []string{"vorbiscomment"},
		Notes:      "Vorbis comment header. Only Ogg Vorbis can be tagged.",
	},
	core.FmtRIFF: {
		Name:       "WAV",
		Extensions: []string{".wav"},
		MediaType:  "audio",
		MIMETypes:  []string{"audio/wav"},
		TagFormats: mpegTagFormats,
		Notes:      "LIST INFO chunks are shown; tags are written like MPEG audio.",
	},
	core.FmtMPC: {
		Name:       "Musepack",
		Extensions: []string{".mpc", ".mp+"},
		MediaType:  "audio",
		MIMETypes:  []string{"audio/x-musepack"},
		TagFormats: []string{"ape"},
	},
	core.FmtReal: {
		Name:       "RealMedia",
		Extensions: []string{".rm", ".ra", ".rmvb"},
		MediaType:  "audio",
		MIMETypes:  []string{"application/vnd.rn-realmedia"},
		TagFormats: []string{"real"},
		Notes:      "CONT chunk (title, author, copyright, comment).",
	},
	core.FmtM4A: {
		Name:       "M4A/AAC",
		Extensions: []string{".m4a"},
		MediaType:  "audio",
		MIMETypes:  []string{"audio/mp4"},
		Notes:      "iTunes-style atoms. View only.",
	},
	core.FmtAIFF: {
		Name:       "AIFF",
		Extensions: []string{".aif", ".aiff"},
		MediaType:  "audio",
		MIMETypes:  []string{"audio/aiff"},
		Notes:      "FORM/AIFF chunks. View only.",
	},
}

// ──────────────────────────────────────────────────────────────────────────────
// View
// ──────────────────────────────────────────────────────────────────────────────

func (h *Handler) View(path string) (*core.Metadata, error) {
	m := &core.Metadata{FilePath: path, Format: formatInfo[h.format].Name}
	if m.Format == "" {
		m.Format = strings.ToUpper(string(h.format))
	}

	var err error
	switch h.format {
	case core.FmtFLAC:
		err = viewFLAC(path, m)
	case core.FmtOGG:
		err = viewOgg(path, m)
	case core.FmtRIFF:
		err = viewWAV(path, m)
	case core.FmtAIFF:
		err = viewAIFF(path, m)
	case core.FmtReal:
		err = viewReal(path, m)
	default:
		err = viewWithDhowden(path, m)
	}
	if err != nil {
		return m, err
	}
	if writesTrailers(h.format) {
		viewTrailers(path, m)
	}
	return m, nil
}

func writesTrailers(f core.FormatID) bool {
	switch f {
	case core.FmtMP3, core.FmtMP2, core.FmtMP1, core.FmtRIFF, core.FmtMPC:
		return true
	}
	return false
}

// viewWithDhowden uses the dhowden/tag library to read audio metadata.
func viewWithDhowden(path string, m *core.Metadata) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	t, err := tag.ReadFrom(f)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return nil
		}
		m.Warnings = append(m.Warnings, core.Warning{Stage: "tags", Message: err.Error(), Offset: -1})
		return nil
	}
	addFromTag(t, m, string(t.Format()))
	return nil
}

func addFromTag(t tag.Metadata, m *core.Metadata, cat string) {
	if cat == "" {
		cat = "Audio Tags"
	}
	editable := t.Format() != tag.MP4
	m.Add(cat, "Title", t.Title(), editable)
	m.Add(cat, "Artist", t.Artist(), editable)
	m.Add(cat, "Album", t.Album(), editable)
	m.Add(cat, "AlbumArtist", t.AlbumArtist(), editable)
	m.Add(cat, "Composer", t.Composer(), editable)
	m.Add(cat, "Genre", t.Genre(), editable)
	m.Add(cat, "Comment", t.Comment(), editable)
	if t.Year() != 0 {
		m.Add(cat, "Year", fmt.Sprintf("%d", t.Year()), editable)
	}
	if track, total := t.Track(); track != 0 {
		s := fmt.Sprintf("%d", track)
		if total != 0 {
			s = fmt.Sprintf("%d/%d", track, total)
		}
		m.Add(cat, "TrackNumber", s, editable)
	}
	if disc, total := t.Disc(); disc != 0 {
		s := fmt.Sprintf("%d", disc)
		if total != 0 {
			s = fmt.Sprintf("%d/%d", disc, total)
		}
		m.Add(cat, "DiscNumber", s, editable)
	}
	m.Add(cat, "Lyrics", t.Lyrics(), editable)
	if p := t.Picture(); p != nil {
		m.Add(cat, "Picture", fmt.Sprintf("%s, %d bytes", p.MIMEType, len(p.Data)), editable)
		addCoverEXIF(m, p.Data)
	}
}

// addCoverEXIF lists the EXIF fields of JPEG cover art.
func addCoverEXIF(m *core.Metadata, data []byte) {
	fields, err := jpg.EXIF(data)
	if err != nil {
		return
	}
	for _, f := range fields {
		m.Add("Cover EXIF", f.Name, f.Value, false)
	}
}

// viewTrailers lists APE items and the presence of Lyrics3 and ID3v1.
func viewTrailers(path string, m *core.Metadata) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	t := scanTrailers(data)
	if t.apeStart >= 0 {
		items, err := parseAPEItems(data[t.apeStart:t.apeEnd])
		if err != nil {
			m.Warnings = append(m.Warnings, core.Warning{Stage: "ape", Message: err.Error(), Offset: int64(t.apeStart)})
		}
		for _, it := range items {
			m.Add("APE", it.Key, strings.Join(it.Values, "; "), true)
		}
	}
	if t.lyricsStart >= 0 {
		m.Add("Lyrics3", "Size", fmt.Sprintf("%d bytes", t.lyricsEnd-t.lyricsStart), false)
	}
	if t.id3v1Start >= 0 {
		v1 := data[t.id3v1Start:]
		m.Add("ID3v1", "Title", strings.TrimRight(string(v1[3:33]), "\x00 "), true)
		if g, ok := tagwrite.GenreName(int(v1[127])); ok {
			m.Add("ID3v1", "Genre", g, true)
		}
		if v1[125] == 0 && v1[126] != 0 {
			m.Add("ID3v1", "Track", fmt.Sprintf("%d", v1[126]), true)
		}
	}
}

// parseAPEItems reads the items of an APE tag spanning all of b.
func parseAPEItems(b []byte) ([]tagwrite.APEItem, error) {
	le := binary.LittleEndian
	footer := b[len(b)-apeFooterSize:]
	count := int(le.Uint32(footer[16:20]))
	pos := 0
	if bytes.HasPrefix(b, []byte("APETAGEX")) {
		pos = apeFooterSize
	}
	end := len(b) - apeFooterSize

	var items []tagwrite.APEItem
	for range count {
		if pos+8 > end {
			return items, fmt.Errorf("APE item at %d truncated", pos)
		}
		size := int(le.Uint32(b[pos:]))
		pos += 8
		nul := bytes.IndexByte(b[pos:end], 0)
		if nul < 0 || pos+nul+1+size > end {
			return items, fmt.Errorf("APE item at %d truncated", pos-8)
		}
		key := string(b[pos : pos+nul])
		pos += nul + 1
		items = append(items, tagwrite.APEItem{Key: key, Values: strings.Split(string(b[pos:pos+size]), "\x00")})
		pos += size
	}
	return items, nil
}

// ─── FLAC ────────────────────────────────────────────────────────────────────

func viewFLAC(path string, m *core.Metadata) error {
	s, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("could not parse FLAC: %w", err)
	}
	defer s.Close()

	const info = "FLAC StreamInfo"
	m.Add(info, "SampleRate", fmt.Sprintf("%d Hz", s.Info.SampleRate), false)
	m.Add(info, "Channels", fmt.Sprintf("%d", s.Info.NChannels), false)
	m.Add(info, "BitsPerSample", fmt.Sprintf("%d", s.Info.BitsPerSample), false)
	if s.Info.NSamples != 0 && s.Info.SampleRate != 0 {
		m.Add(info, "Duration", fmt.Sprintf("%.3f s", float64(s.Info.NSamples)/float64(s.Info.SampleRate)), false)
	}

	for _, b := range s.Blocks {
		switch body := b.Body.(type) {
		case *meta.VorbisComment:
			m.Add("VorbisComment", "Vendor", body.Vendor, false)
			for _, kv := range body.Tags {
				m.Add("VorbisComment", strings.ToUpper(kv[0]), kv[1], true)
			}
		case *meta.Picture:
			m.Add("FLAC Picture", fmt.Sprintf("Type %d", body.Type),
				fmt.Sprintf("%s, %dx%d, %d bytes", body.MIME, body.Width, body.Height, len(body.Data)), true)
			addCoverEXIF(m, body.Data)
		}
	}
	return nil
}

// ─── Ogg ─────────────────────────────────────────────────────────────────────

func viewOgg(path string, m *core.Metadata) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := oggvorbis.NewReader(f)
	if err != nil {
		// Not Vorbis (Opus, Speex, OggFLAC): fall back to the generic reader.
		return viewWithDhowden(path, m)
	}
	m.Format = "Ogg Vorbis"
	m.Add("Vorbis", "SampleRate", fmt.Sprintf("%d Hz", r.SampleRate()), false)
	m.Add("Vorbis", "Channels", fmt.Sprintf("%d", r.Channels()), false)
	ch := r.CommentHeader()
	m.Add("VorbisComment", "Vendor", ch.Vendor, false)
	for _, c := range ch.Comments {
		k, v, ok := strings.Cut(c, "=")
		if !ok {
			continue
		}
		m.Add("VorbisComment", strings.ToUpper(k), v, true)
	}
	return nil
}

// ─── WAV ─────────────────────────────────────────────────────────────────────

// WAV INFO field IDs → human names
var infoChunkNames = map[string]string{
	"IART": "Artist",
	"ICMT": "Comment",
	"ICOP": "Copyright",
	"ICRD": "DateCreated",
	"IENG": "Engineer",
	"IGNR": "Genre",
	"IKEY": "Keywords",
	"INAM": "Title",
	"IPRD": "Product",
	"ISBJ": "Subject",
	"ISFT": "Software",
	"ISRC": "Source",
	"ITCH": "Technician",
	"ITRK": "Track",
}

func viewWAV(path string, m *core.Metadata) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) < 12 || string(data[8:12]) != "WAVE" {
		return viewWithDhowden(path, m)
	}

	le := binary.LittleEndian
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(le.Uint32(data[offset+4 : offset+8]))
		offset += 8
		if offset+chunkSize > len(data) {
			m.Warnings = append(m.Warnings, core.Warning{Stage: "riff", Message: chunkID + " chunk truncated", Offset: int64(offset - 8)})
			break
		}
		chunk := data[offset : offset+chunkSize]
		switch {
		case chunkID == "fmt " && chunkSize >= 16:
			m.Add("WAV Header", "Channels", fmt.Sprintf("%d", le.Uint16(chunk[2:4])), false)
			m.Add("WAV Header", "SampleRate", fmt.Sprintf("%d Hz", le.Uint32(chunk[4:8])), false)
			m.Add("WAV Header", "BitsPerSample", fmt.Sprintf("%d", le.Uint16(chunk[14:16])), false)
		case chunkID == "LIST" && bytes.HasPrefix(chunk, []byte("INFO")):
			viewINFO(chunk[4:], m)
		case chunkID == "id3 " || chunkID == "ID3 ":
			if t, err := tag.ReadFrom(bytes.NewReader(chunk)); err == nil {
				addFromTag(t, m, "WAV ID3")
			}
		}
		offset += chunkSize + chunkSize%2
	}
	return nil
}

func viewINFO(b []byte, m *core.Metadata) {
	pos := 0
	for pos+8 <= len(b) {
		id := string(b[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(b[pos+4 : pos+8]))
		pos += 8
		if pos+size > len(b) {
			return
		}
		name := infoChunkNames[id]
		if name == "" {
			name = id
		}
		m.Add("WAV INFO", name, strings.TrimRight(string(b[pos:pos+size]), "\x00"), false)
		pos += size + size%2
	}
}

// ─── AIFF ────────────────────────────────────────────────────────────────────

func viewAIFF(path string, m *core.Metadata) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) < 12 {
		return fmt.Errorf("AIFF too short")
	}

	be := binary.BigEndian
	text := map[string]string{"NAME": "Title", "AUTH": "Author", "(c) ": "Copyright", "ANNO": "Annotation"}
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(be.Uint32(data[offset+4 : offset+8]))
		offset += 8
		if offset+chunkSize > len(data) {
			break
		}
		chunk := data[offset : offset+chunkSize]
		switch {
		case chunkID == "COMM" && chunkSize >= 18:
			m.Add("AIFF", "Channels", fmt.Sprintf("%d", be.Uint16(chunk[0:2])), false)
			m.Add("AIFF", "BitsPerSample", fmt.Sprintf("%d", be.Uint16(chunk[6:8])), false)
		case text[chunkID] != "":
			m.Add("AIFF", text[chunkID], strings.TrimRight(string(chunk), "\x00"), false)
		case chunkID == "ID3 ":
			if t, err := tag.ReadFrom(bytes.NewReader(chunk)); err == nil {
				addFromTag(t, m, "AIFF ID3")
			}
		}
		offset += chunkSize + chunkSize%2
	}
	return nil
}

// ─── RealMedia ───────────────────────────────────────────────────────────────

func viewReal(path string, m *core.Metadata) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	chunks, err := parseRMF(data)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		if c.id != "CONT" {
			continue
		}
		body := data[c.offset+10 : c.offset+c.size]
		for _, name := range []string{"Title", "Author", "Copyright", "Comment"} {
			if len(body) < 2 {
				break
			}
			n := int(binary.BigEndian.Uint16(body))
			if 2+n > len(body) {
				m.Warnings = append(m.Warnings, core.Warning{Stage: "real", Message: name + " overruns the CONT chunk", Offset: int64(c.offset)})
				break
			}
			s, _ := tagwrite.Transcode(string(body[2:2+n]), tagwrite.CharsetISO88591, tagwrite.CharsetUTF8)
			m.Add("RealMedia CONT", name, s, true)
			body = body[2+n:]
		}
	}
	return nil
}
