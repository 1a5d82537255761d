package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/ephod/getID3/core"
	"github.com/ephod/getID3/core/tagwrite"
)

const (
	apeVersion2  = 2000
	apeHasHeader = 1 << 31
	apeIsHeader  = 1 << 29
)

// APEEncoder writes an APEv2 tag with header and footer, placed before any
// Lyrics3 or ID3v1 trailer.
type APEEncoder struct{}

func (APEEncoder) Write(path string, d tagwrite.FormatData) (core.Diagnostics, error) {
	var diag core.Diagnostics
	ape, ok := d.(tagwrite.APEData)
	if !ok {
		return diag, fmt.Errorf("ape: unexpected data %T", d)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return diag, err
	}

	tag := renderAPE(ape, &diag)
	t := scanTrailers(data)
	if t.apeStart >= 0 {
		data = splice(data, t.apeStart, t.apeEnd, tag)
	} else {
		data = splice(data, t.audioEnd, t.audioEnd, tag)
	}
	return diag, core.WriteFileAtomic(path, data)
}

func (APEEncoder) Remove(path string) (core.Diagnostics, error) {
	var diag core.Diagnostics
	data, err := os.ReadFile(path)
	if err != nil {
		return diag, err
	}
	t := scanTrailers(data)
	if t.apeStart < 0 {
		return diag, nil
	}
	return diag, core.WriteFileAtomic(path, splice(data, t.apeStart, t.apeEnd, nil))
}

// validAPEKey reports whether key is 2 to 255 printable ASCII characters and
// not one of the reserved tag identifiers.
func validAPEKey(key string) bool {
	if len(key) < 2 || len(key) > 255 {
		return false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < 0x20 || key[i] > 0x7e {
			return false
		}
	}
	switch strings.ToUpper(key) {
	case "ID3", "TAG", "OGGS", "MP+":
		return false
	}
	return true
}

func renderAPE(d tagwrite.APEData, diag *core.Diagnostics) []byte {
	le := binary.LittleEndian
	var items bytes.Buffer
	count := 0
	for _, it := range d.Items {
		if !validAPEKey(it.Key) {
			diag.Warn(string(tagwrite.FormatAPE), "invalid APE item key %q; skipped", it.Key)
			continue
		}
		value := strings.Join(it.Values, "\x00")
		items.Write(le.AppendUint32(nil, uint32(len(value))))
		items.Write(le.AppendUint32(nil, 0)) // UTF-8 text item
		items.WriteString(it.Key)
		items.WriteByte(0)
		items.WriteString(value)
		count++
	}

	header := func(flags uint32) []byte {
		b := make([]byte, 0, apeFooterSize)
		b = append(b, "APETAGEX"...)
		b = le.AppendUint32(b, apeVersion2)
		b = le.AppendUint32(b, uint32(items.Len()+apeFooterSize))
		b = le.AppendUint32(b, uint32(count))
		b = le.AppendUint32(b, flags)
		return append(b, make([]byte, 8)...)
	}

	var out bytes.Buffer
	out.Write(header(apeHasHeader | apeIsHeader))
	out.Write(items.Bytes())
	out.Write(header(apeHasHeader))
	return out.Bytes()
}
