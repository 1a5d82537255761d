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

var errNotRMF = errors.New("not a RealMedia (.RMF) file; bare RealAudio streams cannot be tagged")

type rmChunk struct {
	id     string
	offset int
	size   int
}

// parseRMF lists the top-level chunks of a RealMedia file. The first chunk
// is the .RMF file header.
func parseRMF(data []byte) ([]rmChunk, error) {
	if !bytes.HasPrefix(data, []byte(".RMF")) {
		return nil, errNotRMF
	}
	var chunks []rmChunk
	for off := 0; off+10 <= len(data); {
		size := int(binary.BigEndian.Uint32(data[off+4 : off+8]))
		if size < 10 || off+size > len(data) {
			return nil, fmt.Errorf("RealMedia chunk at %d has invalid size %d", off, size)
		}
		chunks = append(chunks, rmChunk{id: string(data[off : off+4]), offset: off, size: size})
		off += size
	}
	if len(chunks) == 0 {
		return nil, errNotRMF
	}
	return chunks, nil
}

// buildCONT renders a content description chunk.
func buildCONT(d tagwrite.RealData, diag *core.Diagnostics) []byte {
	body := binary.BigEndian.AppendUint16(nil, 0)
	for _, f := range []struct{ name, value string }{
		{"title", d.Title}, {"artist", d.Artist}, {"copyright", d.Copyright}, {"comment", d.Comment},
	} {
		v := f.value
		if len(v) > 0xFFFF {
			diag.Warn(string(tagwrite.FormatReal), "%s truncated to 65535 bytes", f.name)
			v = v[:0xFFFF]
		}
		body = binary.BigEndian.AppendUint16(body, uint16(len(v)))
		body = append(body, v...)
	}
	b := append([]byte("CONT"), binary.BigEndian.AppendUint32(nil, uint32(8+len(body)))...)
	return append(b, body...)
}

// rewriteRMF replaces the CONT chunk (removing it when cont is nil) and
// fixes the header count and the PROP index and data offsets.
func rewriteRMF(path string, cont []byte) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	chunks, err := parseRMF(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	// The chunk replaces an existing CONT, or goes after PROP, or after the
	// file header.
	at := chunks[0].offset + chunks[0].size
	from, to := at, at
	for _, c := range chunks {
		if c.id == "PROP" {
			from, to = c.offset+c.size, c.offset+c.size
		}
	}
	for _, c := range chunks {
		if c.id == "CONT" {
			from, to = c.offset, c.offset+c.size
			break
		}
	}
	headers := 0
	if cont == nil && to == from {
		return nil
	}
	switch {
	case cont == nil:
		headers = -1
	case to == from:
		headers = 1
	}
	delta := len(cont) - (to - from)
	out := splice(data, from, to, cont)

	if len(out) >= 18 && headers != 0 {
		n := int64(binary.BigEndian.Uint32(out[14:18])) + int64(headers)
		binary.BigEndian.PutUint32(out[14:18], uint32(max(n, 0)))
	}
	if delta != 0 {
		for _, c := range chunks {
			if c.id != "PROP" || c.size < 50 {
				continue
			}
			off := c.offset
			if off >= to {
				off += delta
			}
			for _, field := range []int{off + 38, off + 42} {
				v := int(binary.BigEndian.Uint32(out[field : field+4]))
				if v >= to {
					binary.BigEndian.PutUint32(out[field:field+4], uint32(v+delta))
				}
			}
		}
	}
	return core.WriteFileAtomic(path, out)
}

// RealEncoder writes the CONT chunk of RealMedia files.
type RealEncoder struct{}

func (RealEncoder) Write(path string, d tagwrite.FormatData) (core.Diagnostics, error) {
	var diag core.Diagnostics
	rd, ok := d.(tagwrite.RealData)
	if !ok {
		return diag, fmt.Errorf("real: unexpected data %T", d)
	}
	return diag, rewriteRMF(path, buildCONT(rd, &diag))
}

func (RealEncoder) Remove(path string) (core.Diagnostics, error) {
	return core.Diagnostics{}, rewriteRMF(path, nil)
}
