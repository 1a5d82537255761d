package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ephod/getID3/core/tagwrite"
)

// mpegAudio is a fake MPEG layer III frame sync followed by silence.
var mpegAudio = append([]byte{0xFF, 0xFB, 0x90, 0x00}, make([]byte, 400)...)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func tags(fields ...tagwrite.Field) tagwrite.TagMap {
	m, err := tagwrite.Normalize(tagwrite.NewTagMap(fields...))
	if err != nil {
		panic(err)
	}
	return m
}

func text(key string, values ...string) tagwrite.Field {
	f := tagwrite.Field{Key: key}
	for _, v := range values {
		f.Values = append(f.Values, tagwrite.Text(v))
	}
	return f
}

var utf8 = tagwrite.Settings{Encoding: tagwrite.CharsetUTF8, Language: "eng"}

// flacFile returns a FLAC stream with a STREAMINFO block (44.1 kHz, stereo,
// 16 bit), the given extra blocks and a few bytes standing in for frames.
func flacFile(extra ...flacBlock) []byte {
	si := make([]byte, 34)
	binary.BigEndian.PutUint16(si[0:2], 4096)
	binary.BigEndian.PutUint16(si[2:4], 4096)
	binary.BigEndian.PutUint64(si[10:18], 44100<<44|1<<41|15<<36|88200)
	blocks := append([]flacBlock{{blockType: flacStreamInfo, data: si}}, extra...)
	return renderFLAC(blocks, flacFrames)
}

// flacFrames stands in for the audio frames of flacFile.
var flacFrames = []byte{0xFF, 0xF8, 0x69, 0x08}

// FLAC metadata block types used by the fixtures.
const (
	flacStreamInfo    = 0
	flacPadding       = 1
	flacVorbisComment = 4
)

// flacBlock is a raw metadata block, built and inspected without going
// through the encoder under test.
type flacBlock struct {
	blockType byte
	data      []byte
}

func renderFLAC(blocks []flacBlock, audio []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("fLaC")
	for i, b := range blocks {
		header := uint32(b.blockType)<<24 | uint32(len(b.data))
		if i == len(blocks)-1 {
			header |= 1 << 31
		}
		buf.Write(binary.BigEndian.AppendUint32(nil, header))
		buf.Write(b.data)
	}
	buf.Write(audio)
	return buf.Bytes()
}

// parseFLACBlocks splits the metadata blocks and returns the offset of the
// first audio frame.
func parseFLACBlocks(data []byte) ([]flacBlock, int, error) {
	if !bytes.HasPrefix(data, []byte("fLaC")) {
		return nil, 0, errNotFLAC
	}
	var blocks []flacBlock
	i := 4
	for i+4 <= len(data) {
		header := binary.BigEndian.Uint32(data[i : i+4])
		length := int(header & 0xFFFFFF)
		i += 4
		if i+length > len(data) {
			return nil, i, fmt.Errorf("block at %d truncated", i-4)
		}
		blocks = append(blocks, flacBlock{blockType: byte(header>>24) & 0x7F, data: data[i : i+length]})
		i += length
		if header>>31 == 1 {
			return blocks, i, nil
		}
	}
	return nil, i, errors.New("no last block")
}

func buildFLACPicture(p tagwrite.Picture) []byte {
	be := binary.BigEndian
	b := be.AppendUint32(nil, uint32(p.PictureType))
	b = be.AppendUint32(b, uint32(len(p.MIME)))
	b = append(b, p.MIME...)
	b = be.AppendUint32(b, uint32(len(p.Description)))
	b = append(b, p.Description...)
	b = append(b, make([]byte, 16)...)
	b = be.AppendUint32(b, uint32(len(p.Data)))
	return append(b, p.Data...)
}
