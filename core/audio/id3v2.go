package audio

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/bogem/id3v2/v2"

	"github.com/ephod/getID3/core"
	"github.com/ephod/getID3/core/tagwrite"
)

// ErrID3v22Unwritable is returned for ID3v2.2 writes; only 2.3 and 2.4 tags
// can be produced.
var ErrID3v22Unwritable = errors.New("ID3v2.2 tags cannot be written, use id3v2.3 or id3v2.4")

// ID3v2Encoder writes ID3v2.3 and ID3v2.4 tags at the start of the file and
// removes ID3v2 tags of any version.
type ID3v2Encoder struct{}

func (ID3v2Encoder) Write(path string, d tagwrite.FormatData) (core.Diagnostics, error) {
	var diag core.Diagnostics
	v2, ok := d.(tagwrite.ID3v2Data)
	if !ok {
		return diag, fmt.Errorf("id3v2: unexpected data %T", d)
	}
	if v2.Major == 2 {
		return diag, ErrID3v22Unwritable
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return diag, fmt.Errorf("could not open %s: %w", path, err)
	}
	defer tag.Close()

	tag.DeleteAllFrames()
	tag.SetVersion(byte(v2.Major))
	stage := string(v2.TagFormat())

	var order []string
	texts := map[string][]*tagwrite.ID3v2Text{}

	for _, f := range v2.Frames {
		switch body := f.Body.(type) {
		case *tagwrite.ID3v2Text:
			switch {
			case f.ID == "COMM", f.ID == "USLT":
				frame := append([]byte{body.EncodingID}, language(body.Language)...)
				frame = append(frame, id3Text(body.Description, body.EncodingID)...)
				frame = append(frame, id3Terminator(body.EncodingID)...)
				tag.AddFrame(f.ID, id3v2.UnknownFrame{Body: append(frame, body.Data...)})
			case strings.HasPrefix(f.ID, "T"):
				if _, ok := texts[f.ID]; !ok {
					order = append(order, f.ID)
				}
				texts[f.ID] = append(texts[f.ID], body)
			case strings.HasPrefix(f.ID, "W"):
				url, err := body.DecodeText()
				if err != nil {
					diag.Warn(stage, "%s: %v; frame skipped", f.ID, err)
					continue
				}
				frame := latin1(url)
				if f.ID == "WXXX" {
					frame = append([]byte{0, 0}, frame...)
				}
				tag.AddFrame(f.ID, id3v2.UnknownFrame{Body: frame})
			default:
				diag.Warn(stage, "%s frames cannot be written from text; skipped", f.ID)
			}
		case tagwrite.Picture:
			enc := descEncoding(v2.Major, body.Description)
			frame := append([]byte{enc}, latin1(body.MIME)...)
			frame = append(frame, 0, body.PictureType)
			frame = append(frame, id3Text(body.Description, enc)...)
			frame = append(frame, id3Terminator(enc)...)
			tag.AddFrame("APIC", id3v2.UnknownFrame{Body: append(frame, body.Data...)})
		case tagwrite.Popularimeter:
			tag.AddFrame("POPM", id3v2.PopularimeterFrame{
				Email:   body.Email,
				Rating:  body.Rating,
				Counter: new(big.Int).SetUint64(body.Counter),
			})
		case tagwrite.UniqueFileID:
			tag.AddUFIDFrame(id3v2.UFIDFrame{OwnerIdentifier: body.OwnerID, Identifier: body.Data})
		case tagwrite.UserText:
			enc := descEncoding(v2.Major, body.Description+body.Value)
			frame := append([]byte{enc}, id3Text(body.Description, enc)...)
			frame = append(frame, id3Terminator(enc)...)
			tag.AddFrame("TXXX", id3v2.UnknownFrame{Body: append(frame, id3Text(body.Value, enc)...)})
		case tagwrite.GroupIdentification:
			grid := append(latin1(body.OwnerID), 0, body.GroupSymbol)
			tag.AddFrame("GRID", id3v2.UnknownFrame{Body: append(grid, body.Data...)})
		default:
			diag.Warn(stage, "%s: unsupported frame body %T; skipped", f.ID, f.Body)
		}
	}

	for _, id := range order {
		frame, err := textFrameBody(v2.Major, texts[id])
		if err != nil {
			return diag, fmt.Errorf("%s: %w", id, err)
		}
		tag.AddFrame(id, id3v2.UnknownFrame{Body: frame})
	}

	if err := tag.Save(); err != nil {
		return diag, fmt.Errorf("saving %s: %w", path, err)
	}
	return diag, nil
}

// Remove drops a leading ID3v2 tag of any version, including its footer.
func (ID3v2Encoder) Remove(path string) (core.Diagnostics, error) {
	var diag core.Diagnostics
	data, err := os.ReadFile(path)
	if err != nil {
		return diag, err
	}
	n := id3v2TagSize(data)
	if n == 0 {
		return diag, nil
	}
	return diag, core.WriteFileAtomic(path, data[n:])
}

// id3v2TagSize returns the length of the ID3v2 tag at the start of data, or
// 0 when there is none.
func id3v2TagSize(data []byte) int {
	if len(data) < 10 || !bytes.HasPrefix(data, []byte("ID3")) {
		return 0
	}
	for _, b := range data[6:10] {
		if b&0x80 != 0 {
			return 0
		}
	}
	size := 10 + (int(data[6])<<21 | int(data[7])<<14 | int(data[8])<<7 | int(data[9]))
	if data[5]&0x10 != 0 {
		size += 10
	}
	return min(size, len(data))
}

// textFrameBody renders the values of one text frame. A single value keeps
// its derived bytes. Several values are re-encoded with the widest encoding
// among them and joined with "/" for 2.3 or NUL for 2.4.
func textFrameBody(major int, values []*tagwrite.ID3v2Text) ([]byte, error) {
	if len(values) == 1 {
		return append([]byte{values[0].EncodingID}, values[0].Data...), nil
	}
	var enc byte
	strs := make([]string, len(values))
	for i, v := range values {
		s, err := v.DecodeText()
		if err != nil {
			return nil, err
		}
		strs[i] = s
		enc = max(enc, v.EncodingID)
	}

	frame := []byte{enc}
	if major < 4 {
		return append(frame, id3Text(strings.Join(strs, "/"), enc)...), nil
	}
	for i, s := range strs {
		if i > 0 {
			frame = append(frame, id3Terminator(enc)...)
		}
		frame = append(frame, id3Text(s, enc)...)
	}
	return frame, nil
}

// id3Text encodes s with the ID3v2 text encoding id. UTF-16 gets a
// little-endian BOM.
func id3Text(s string, id byte) []byte {
	switch id {
	case 0:
		return latin1(s)
	case 1:
		u16, _ := tagwrite.Transcode(s, tagwrite.CharsetUTF8, tagwrite.CharsetUTF16LE)
		return append([]byte{0xFF, 0xFE}, u16...)
	case 2:
		u16, _ := tagwrite.Transcode(s, tagwrite.CharsetUTF8, tagwrite.CharsetUTF16BE)
		return []byte(u16)
	default:
		return []byte(s)
	}
}

func id3Terminator(id byte) []byte {
	if id == 1 || id == 2 {
		return []byte{0, 0}
	}
	return []byte{0}
}

// descEncoding picks the encoding of structured frames, whose strings are
// UTF-8.
func descEncoding(major int, s string) byte {
	switch {
	case major == 4:
		return 3
	case isLatin1(s):
		return 0
	default:
		return 1
	}
}

// language returns a three-letter ISO 639-2 code, "XXX" when unknown.
func language(lang string) []byte {
	if len(lang) != 3 {
		return []byte("XXX")
	}
	return []byte(lang)
}

func isLatin1(s string) bool {
	for _, r := range s {
		if r > 0xff {
			return false
		}
	}
	return true
}

// latin1 encodes s as ISO-8859-1, replacing runes outside the range.
func latin1(s string) []byte {
	out, err := tagwrite.Transcode(s, tagwrite.CharsetUTF8, tagwrite.CharsetISO88591)
	if err != nil {
		return []byte(s)
	}
	return []byte(out)
}
