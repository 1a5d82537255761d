// Package jpg reads EXIF fields from JPEG cover art.
package jpg

import (
	"bytes"
	"errors"
	"slices"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// ErrNoEXIF is returned when a picture carries no readable EXIF block.
var ErrNoEXIF = errors.New("no EXIF metadata found")

// Field is one EXIF tag rendered as text.
type Field struct {
	Name  string
	Value string
}

// IsJPEG reports whether data starts with a JPEG SOI marker.
func IsJPEG(data []byte) bool {
	return len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF
}

// EXIF decodes the EXIF block of a JPEG image held in memory. Fields are
// sorted by name.
func EXIF(data []byte) ([]Field, error) {
	if !IsJPEG(data) {
		return nil, ErrNoEXIF
	}
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil || x == nil {
		return nil, ErrNoEXIF
	}
	var w walker
	if err := x.Walk(&w); err != nil {
		return nil, err
	}
	slices.SortFunc(w.fields, func(a, b Field) int { return strings.Compare(a.Name, b.Name) })
	return w.fields, nil
}

type walker struct {
	fields []Field
}

func (w *walker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	val := tag.String()
	if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
		val = val[1 : len(val)-1]
	}
	w.fields = append(w.fields, Field{Name: string(name), Value: val})
	return nil
}
