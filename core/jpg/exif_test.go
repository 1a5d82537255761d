package jpg

import (
	"encoding/binary"
	"errors"
	"testing"
)

// jpegWithMake builds a JPEG whose APP1 segment holds a one-entry IFD0.
func jpegWithMake(maker string) []byte {
	value := append([]byte(maker), 0)

	tif := []byte{'I', 'I', 42, 0, 8, 0, 0, 0}
	tif = binary.LittleEndian.AppendUint16(tif, 1)
	tif = binary.LittleEndian.AppendUint16(tif, 0x010F)
	tif = binary.LittleEndian.AppendUint16(tif, 2)
	tif = binary.LittleEndian.AppendUint32(tif, uint32(len(value)))
	tif = binary.LittleEndian.AppendUint32(tif, 26)
	tif = binary.LittleEndian.AppendUint32(tif, 0)
	tif = append(tif, value...)

	app1 := append([]byte("Exif\x00\x00"), tif...)
	out := []byte{0xFF, 0xD8, 0xFF, 0xE1}
	out = binary.BigEndian.AppendUint16(out, uint16(len(app1)+2))
	out = append(out, app1...)
	return append(out, 0xFF, 0xD9)
}

func TestEXIF(t *testing.T) {
	fields, err := EXIF(jpegWithMake("Acme"))
	if err != nil {
		t.Fatalf("EXIF: %v", err)
	}
	var found bool
	for _, f := range fields {
		if f.Name == "Make" {
			found = true
			if f.Value != "Acme" {
				t.Errorf("Make = %q, want Acme", f.Value)
			}
		}
	}
	if !found {
		t.Errorf("Make missing from %v", fields)
	}
}

func TestEXIFNone(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"png", []byte("\x89PNG\r\n\x1a\n")},
		{"jpeg without app1", []byte{0xFF, 0xD8, 0xFF, 0xDB, 0x00, 0x02, 0xFF, 0xD9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EXIF(tt.data); !errors.Is(err, ErrNoEXIF) {
				t.Errorf("err = %v, want ErrNoEXIF", err)
			}
		})
	}
}
