package tagwrite

import (
	"fmt"
	"strconv"
)

// Value is one entry of a tag map field.
type Value interface {
	isValue()
}

// Text is a string in the controller's source encoding.
type Text string

// Number is a numeric value; it is written in its decimal form.
type Number float64

func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

// Picture is an attached image (ID3v2 APIC, FLAC PICTURE).
type Picture struct {
	Data        []byte
	PictureType byte // ID3v2 picture type, 3 = front cover
	Description string
	MIME        string
}

// Popularimeter is an ID3v2 POPM record.
type Popularimeter struct {
	Email   string
	Rating  uint8
	Counter uint64
}

// GroupIdentification is an ID3v2 GRID record.
type GroupIdentification struct {
	GroupSymbol byte
	OwnerID     string
	Data        []byte
}

// UniqueFileID is an ID3v2 UFID record.
type UniqueFileID struct {
	OwnerID string
	Data    []byte
}

// UserText is an ID3v2 TXXX record.
type UserText struct {
	Description string
	Value       string
}

func (Text) isValue()                {}
func (Number) isValue()              {}
func (Picture) isValue()             {}
func (Popularimeter) isValue()       {}
func (GroupIdentification) isValue() {}
func (UniqueFileID) isValue()        {}
func (UserText) isValue()            {}

// scalar returns the textual form of text and numeric values.
func scalar(v Value) (string, bool) {
	switch t := v.(type) {
	case Text:
		return string(t), true
	case Number:
		return t.String(), true
	}
	return "", false
}

func describe(v Value) string {
	switch v.(type) {
	case nil:
		return "nil"
	case Text:
		return "text"
	case Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func (p Picture) validate() string {
	switch {
	case p.Data == nil:
		return "picture data missing"
	case p.MIME == "":
		return "picture MIME type missing"
	}
	return ""
}

func (g GroupIdentification) validate() string {
	switch {
	case g.OwnerID == "":
		return "owner identifier missing"
	case g.Data == nil:
		return "group dependent data missing"
	}
	return ""
}

func (u UniqueFileID) validate() string {
	switch {
	case u.OwnerID == "":
		return "owner identifier missing"
	case u.Data == nil:
		return "identifier missing"
	case len(u.Data) > 64:
		return "identifier longer than 64 bytes"
	}
	return ""
}
