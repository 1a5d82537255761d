package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/meta"

	"github.com/ephod/getID3/core"
	"github.com/ephod/getID3/core/stream"
	"github.com/ephod/getID3/core/tagwrite"
)

const flacPicture = 6

// maxFLACBlock is the largest body a 24-bit block length can describe.
const maxFLACBlock = 1<<24 - 1

// defaultVendor is used when a file has no vendor string to keep.
const defaultVendor = "getID3"

var errNotFLAC = errors.New("not a FLAC file")

// MetaFLACEncoder rewrites the VORBIS_COMMENT and PICTURE blocks of a native
// FLAC file.
type MetaFLACEncoder struct{}

func (MetaFLACEncoder) Write(path string, d tagwrite.FormatData) (core.Diagnostics, error) {
	var diag core.Diagnostics
	vd, ok := d.(tagwrite.VorbisData)
	if !ok {
		return diag, fmt.Errorf("metaflac: unexpected data %T", d)
	}
	return diag, rewriteFLAC(path, vd.Comments, vd.Pictures)
}

// Remove empties the comment list and drops every picture.
func (MetaFLACEncoder) Remove(path string) (core.Diagnostics, error) {
	return core.Diagnostics{}, rewriteFLAC(path, nil, nil)
}

func rewriteFLAC(path string, comments []tagwrite.VorbisComment, pictures []tagwrite.Picture) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !bytes.HasPrefix(data, []byte("fLaC")) {
		return fmt.Errorf("%s: %w", path, errNotFLAC)
	}
	s, err := flac.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	// Signature and STREAMINFO, then every other block with its header.
	audioStart := int64(4 + 4 + 34)
	vendor := defaultVendor
	var kept []*meta.Block
	for _, b := range s.Blocks {
		audioStart += 4 + b.Length
		switch body := b.Body.(type) {
		case *meta.VorbisComment:
			vendor = body.Vendor
		case *meta.Picture:
		case nil:
			if b.Type != meta.TypePadding {
				return fmt.Errorf("%s: cannot rewrite reserved FLAC block type %d", path, b.Type)
			}
			kept = append(kept, b)
		default:
			kept = append(kept, b)
		}
	}
	if audioStart > int64(len(data)) {
		return fmt.Errorf("%s: FLAC metadata overruns the file", path)
	}

	// Comments and pictures follow STREAMINFO, then everything else in its
	// original order.
	vc, err := vorbisCommentBlock(vendor, comments)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	blocks := []*meta.Block{vc}
	for _, p := range pictures {
		pb, err := pictureBlock(p)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		blocks = append(blocks, pb)
	}
	blocks = append(blocks, kept...)

	// The encoder writes the signature and metadata up front. It is not
	// closed: the original frames are appended as they are.
	var buf bytes.Buffer
	if _, err := flac.NewEncoder(&buf, s.Info, blocks...); err != nil {
		return fmt.Errorf("%s: encoding FLAC metadata: %w", path, err)
	}
	buf.Write(data[audioStart:])
	return core.WriteFileAtomic(path, buf.Bytes())
}

func vorbisCommentBlock(vendor string, comments []tagwrite.VorbisComment) (*meta.Block, error) {
	body := &meta.VorbisComment{Vendor: vendor}
	n := 4 + len(vendor) + 4
	for _, c := range comments {
		body.Tags = append(body.Tags, [2]string{c.Key, c.Value})
		n += 4 + len(c.Key) + 1 + len(c.Value)
	}
	if n > maxFLACBlock {
		return nil, fmt.Errorf("VORBIS_COMMENT block of %d bytes exceeds the FLAC limit", n)
	}
	return &meta.Block{Header: meta.Header{Type: meta.TypeVorbisComment, Length: int64(n)}, Body: body}, nil
}

func pictureBlock(p tagwrite.Picture) (*meta.Block, error) {
	n := 8*4 + len(p.MIME) + len(p.Description) + len(p.Data)
	if n > maxFLACBlock {
		return nil, fmt.Errorf("PICTURE block of %d bytes exceeds the FLAC limit", n)
	}
	body := &meta.Picture{
		Type: uint32(p.PictureType),
		MIME: p.MIME,
		Desc: p.Description,
		Data: p.Data,
	}
	return &meta.Block{Header: meta.Header{Type: meta.TypePicture, Length: int64(n)}, Body: body}, nil
}

// ─── Picture extraction ──────────────────────────────────────────────────────

// FLACPicture locates the image data of one PICTURE block.
type FLACPicture struct {
	PictureType uint32
	MIME        string
	Description string
	Offset      int64 // of the image data
	Length      int64
}

// LocateFLACPictures walks the metadata blocks of src and returns where each
// picture's image data lies. Only the block headers and picture headers are
// read.
func LocateFLACPictures(src stream.Source) ([]FLACPicture, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	magic, err := src.Read(4)
	if err != nil {
		return nil, err
	}
	if string(magic) != "fLaC" {
		return nil, errNotFLAC
	}

	var pics []FLACPicture
	for {
		hdr, err := src.Read(4)
		if err != nil {
			return pics, err
		}
		if len(hdr) < 4 {
			return pics, &stream.TruncatedReadError{Offset: src.Tell() - int64(len(hdr)), Want: 4, Got: int64(len(hdr))}
		}
		header := binary.BigEndian.Uint32(hdr)
		start := src.Tell()
		length := int64(header & 0xFFFFFF)

		if byte(header>>24)&0x7F == flacPicture {
			p, err := readPictureHeader(src, start+length)
			if err != nil {
				return pics, err
			}
			pics = append(pics, p)
		}
		if header>>31 == 1 {
			return pics, nil
		}
		if _, err := src.Seek(start+length, io.SeekStart); err != nil {
			return pics, err
		}
	}
}

func readPictureHeader(src stream.Source, blockEnd int64) (FLACPicture, error) {
	var p FLACPicture
	u32 := func() (uint32, error) {
		b, err := src.Read(4)
		if err != nil {
			return 0, err
		}
		if len(b) < 4 {
			return 0, &stream.TruncatedReadError{Offset: src.Tell() - int64(len(b)), Want: 4, Got: int64(len(b))}
		}
		return binary.BigEndian.Uint32(b), nil
	}
	str := func() (string, error) {
		n, err := u32()
		if err != nil {
			return "", err
		}
		if src.Tell()+int64(n) > blockEnd {
			return "", fmt.Errorf("FLAC picture field at %d overruns its block", src.Tell())
		}
		b, err := src.Read(int(n))
		return string(b), err
	}

	var err error
	if p.PictureType, err = u32(); err != nil {
		return p, err
	}
	if p.MIME, err = str(); err != nil {
		return p, err
	}
	if p.Description, err = str(); err != nil {
		return p, err
	}
	if _, err := src.Seek(16, io.SeekCurrent); err != nil {
		return p, err
	}
	n, err := u32()
	if err != nil {
		return p, err
	}
	p.Offset, p.Length = src.Tell(), int64(n)
	if p.Offset+p.Length > blockEnd {
		return p, fmt.Errorf("FLAC picture data at %d overruns its block", p.Offset)
	}
	return p, nil
}

// ExtractFLACPictures extracts every picture of the FLAC file at path with
// ex. Attachments are named <base>.<index>.
func ExtractFLACPictures(path, base string, ex *stream.Extractor) ([]stream.Attachment, core.Diagnostics, error) {
	var diag core.Diagnostics
	src, err := stream.Open(path)
	if err != nil {
		return nil, diag, err
	}
	defer src.Close()

	pics, err := LocateFLACPictures(src)
	if err != nil {
		return nil, diag, fmt.Errorf("%s: %w", path, err)
	}
	out := make([]stream.Attachment, 0, len(pics))
	for i, p := range pics {
		a, d := ex.Extract(src, base+"."+strconv.Itoa(i), p.Offset, p.Length, p.MIME)
		diag.Merge(d)
		out = append(out, a)
	}
	return out, diag, nil
}
