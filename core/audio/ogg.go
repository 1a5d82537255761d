package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/ephod/getID3/core"
	"github.com/ephod/getID3/core/tagwrite"
)

var errNotOggVorbis = errors.New("not an Ogg Vorbis stream")

// oggCRCTable is the table for the Ogg page checksum: CRC-32 with
// polynomial 0x04c11db7, no reflection, zero initial value.
var oggCRCTable = func() [256]uint32 {
	var t [256]uint32
	for i := range t {
		r := uint32(i) << 24
		for range 8 {
			if r&0x80000000 != 0 {
				r = r<<1 ^ 0x04c11db7
			} else {
				r <<= 1
			}
		}
		t[i] = r
	}
	return t
}()

func oggCRC(b []byte) uint32 {
	var crc uint32
	for _, c := range b {
		crc = crc<<8 ^ oggCRCTable[byte(crc>>24)^c]
	}
	return crc
}

type oggPage struct {
	headerType byte
	granule    uint64
	serial     uint32
	seq        uint32
	lacing     []byte
	body       []byte
	raw        []byte // the page as read
}

const (
	oggContinued = 0x01
	oggHeaderLen = 27
)

func parseOggPages(data []byte) ([]oggPage, error) {
	var pages []oggPage
	for off := 0; off < len(data); {
		if len(data)-off < oggHeaderLen || !bytes.Equal(data[off:off+4], []byte("OggS")) {
			return nil, fmt.Errorf("no Ogg page at offset %d", off)
		}
		h := data[off:]
		nseg := int(h[26])
		if len(h) < oggHeaderLen+nseg {
			return nil, fmt.Errorf("Ogg page at %d truncated", off)
		}
		lacing := h[oggHeaderLen : oggHeaderLen+nseg]
		size := 0
		for _, l := range lacing {
			size += int(l)
		}
		total := oggHeaderLen + nseg + size
		if len(h) < total {
			return nil, fmt.Errorf("Ogg page at %d truncated", off)
		}
		pages = append(pages, oggPage{
			headerType: h[5],
			granule:    binary.LittleEndian.Uint64(h[6:14]),
			serial:     binary.LittleEndian.Uint32(h[14:18]),
			seq:        binary.LittleEndian.Uint32(h[18:22]),
			lacing:     lacing,
			body:       h[oggHeaderLen+nseg : total],
			raw:        h[:total],
		})
		off += total
	}
	return pages, nil
}

func (p oggPage) render() []byte {
	b := make([]byte, 0, oggHeaderLen+len(p.lacing)+len(p.body))
	b = append(b, "OggS"...)
	b = append(b, 0, p.headerType)
	b = binary.LittleEndian.AppendUint64(b, p.granule)
	b = binary.LittleEndian.AppendUint32(b, p.serial)
	b = binary.LittleEndian.AppendUint32(b, p.seq)
	b = append(b, 0, 0, 0, 0, byte(len(p.lacing)))
	b = append(b, p.lacing...)
	b = append(b, p.body...)
	binary.LittleEndian.PutUint32(b[22:26], oggCRC(b))
	return b
}

// headerPackets collects the first three packets of the logical stream that
// starts on the first page. It returns them with the index of the page the
// third packet ends on.
func headerPackets(pages []oggPage) ([][]byte, int, error) {
	serial := pages[0].serial
	var (
		packets [][]byte
		cur     []byte
	)
	for i, p := range pages {
		if p.serial != serial {
			continue
		}
		pos := 0
		for j, l := range p.lacing {
			cur = append(cur, p.body[pos:pos+int(l)]...)
			pos += int(l)
			if l < 255 {
				packets = append(packets, cur)
				cur = nil
				if len(packets) == 3 {
					if j != len(p.lacing)-1 {
						return nil, 0, errors.New("Vorbis setup header shares its page with audio data")
					}
					return packets, i, nil
				}
			}
		}
	}
	return nil, 0, errors.New("Vorbis header packets incomplete")
}

// paginate lays packets out on pages of up to 255 segments. Pages on which
// no packet ends carry the granule position -1.
func paginate(packets [][]byte, serial, seq uint32) []oggPage {
	var pages []oggPage
	page := oggPage{serial: serial, seq: seq}
	flush := func(continued bool) {
		if !endsPacket(page.lacing) {
			page.granule = ^uint64(0)
		}
		pages = append(pages, page)
		seq++
		page = oggPage{serial: serial, seq: seq}
		if continued {
			page.headerType = oggContinued
		}
	}
	for _, pkt := range packets {
		rest := pkt
		for first := true; ; first = false {
			if len(page.lacing) == 255 {
				flush(!first)
			}
			n := min(len(rest), 255)
			page.lacing = append(page.lacing, byte(n))
			page.body = append(page.body, rest[:n]...)
			rest = rest[n:]
			if n < 255 {
				break
			}
		}
	}
	if len(page.lacing) > 0 {
		flush(false)
	}
	return pages
}

func endsPacket(lacing []byte) bool {
	for _, l := range lacing {
		if l < 255 {
			return true
		}
	}
	return false
}

// vorbisVendor returns the vendor string of a Vorbis comment body, which
// starts with a little-endian length.
func vorbisVendor(body []byte) (string, bool) {
	if len(body) < 4 {
		return "", false
	}
	n := int(binary.LittleEndian.Uint32(body))
	if 4+n > len(body) {
		return "", false
	}
	return string(body[4 : 4+n]), true
}

// buildVorbisComment renders a Vorbis comment body without framing bit.
func buildVorbisComment(vendor string, comments []tagwrite.VorbisComment) []byte {
	le := binary.LittleEndian
	b := le.AppendUint32(nil, uint32(len(vendor)))
	b = append(b, vendor...)
	b = le.AppendUint32(b, uint32(len(comments)))
	for _, c := range comments {
		entry := c.Key + "=" + c.Value
		b = le.AppendUint32(b, uint32(len(entry)))
		b = append(b, entry...)
	}
	return b
}

func buildVorbisCommentPacket(vendor string, comments []tagwrite.VorbisComment) []byte {
	b := append([]byte("\x03vorbis"), buildVorbisComment(vendor, comments)...)
	return append(b, 1)
}

// VorbisCommentEncoder rewrites the comment header of an Ogg Vorbis file and
// repaginates the header pages.
type VorbisCommentEncoder struct{}

func (VorbisCommentEncoder) Write(path string, d tagwrite.FormatData) (core.Diagnostics, error) {
	var diag core.Diagnostics
	vd, ok := d.(tagwrite.VorbisData)
	if !ok {
		return diag, fmt.Errorf("vorbiscomment: unexpected data %T", d)
	}
	if len(vd.Pictures) > 0 {
		diag.Warn(string(tagwrite.FormatVorbisComment), "%d picture(s) not written; Ogg Vorbis pictures are not supported", len(vd.Pictures))
	}
	return diag, rewriteOggVorbis(path, vd.Comments)
}

// Remove keeps the vendor string and drops every comment.
func (VorbisCommentEncoder) Remove(path string) (core.Diagnostics, error) {
	return core.Diagnostics{}, rewriteOggVorbis(path, nil)
}

func rewriteOggVorbis(path string, comments []tagwrite.VorbisComment) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	pages, err := parseOggPages(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if len(pages) == 0 {
		return fmt.Errorf("%s: %w", path, errNotOggVorbis)
	}
	packets, last, err := headerPackets(pages)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if !bytes.HasPrefix(packets[0], []byte("\x01vorbis")) || !bytes.HasPrefix(packets[1], []byte("\x03vorbis")) {
		return fmt.Errorf("%s: %w", path, errNotOggVorbis)
	}

	vendor := defaultVendor
	if v, ok := vorbisVendor(packets[1][7:]); ok {
		vendor = v
	}
	serial := pages[0].serial
	headers := paginate([][]byte{buildVorbisCommentPacket(vendor, comments), packets[2]}, serial, 1)
	delta := int64(len(headers)) - int64(pages[last].seq)

	var out bytes.Buffer
	out.Write(pages[0].raw)
	for _, p := range headers {
		out.Write(p.render())
	}
	for _, p := range pages[1 : last+1] {
		if p.serial != serial {
			out.Write(p.raw)
		}
	}
	for _, p := range pages[last+1:] {
		if p.serial != serial || delta == 0 {
			out.Write(p.raw)
			continue
		}
		p.seq = uint32(int64(p.seq) + delta)
		out.Write(p.render())
	}
	return core.WriteFileAtomic(path, out.Bytes())
}
