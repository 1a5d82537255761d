package amf

import (
	"errors"
	"testing"
)

func utf(s string) []byte {
	return append([]byte{byte(len(s) >> 8), byte(len(s))}, s...)
}

func TestReadValueScalars(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want Value
	}{
		{"double", []byte{0x00, 0x3F, 0xF0, 0, 0, 0, 0, 0, 0}, Number(1.0)},
		{"string", []byte{0x02, 0x00, 0x03, 'a', 'b', 'c'}, String("abc")},
		{"boolean true", []byte{0x01, 0x01}, Boolean(true)},
		{"boolean false", []byte{0x01, 0x00}, Boolean(false)},
		{"boolean two is false", []byte{0x01, 0x02}, Boolean(false)},
		{"null", []byte{0x06}, Null{}},
		{"long string", []byte{0x0D, 0, 0, 0, 2, 'h', 'i'}, String("hi")},
		{"xml", []byte{0x0F, 0, 0, 0, 3, '<', 'a', '>'}, String("<a>")},
		{"date", []byte{0x0B, 0x40, 0x59, 0, 0, 0, 0, 0, 0, 0xFF, 0xC4}, Date{Timestamp: 100}},
		{"unsupported", []byte{0x05}, Unsupported{Tag: 0x05}},
		{"truncated double", []byte{0x00, 0x3F}, Number(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder(tt.in)
			if got := d.ReadValue(); got != tt.want {
				t.Errorf("ReadValue = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestReadObject(t *testing.T) {
	in := []byte{0x03}
	in = append(in, utf("k")...)
	in = append(in, 0x00, 0x3F, 0xF0, 0, 0, 0, 0, 0, 0)
	in = append(in, 0x00, 0x00, 0x09)
	in = append(in, 0x02, 0x00, 0x01, 'z')

	d := NewDecoder(in)
	v := d.ReadValue()
	o, ok := v.(Object)
	if !ok {
		t.Fatalf("ReadValue = %#v, want Object", v)
	}
	if len(o.Props) != 1 || o.Props[0].Key != "k" || o.Props[0].Value != Number(1) {
		t.Errorf("object = %#v", o)
	}
	if d.Stream().Pos() != 16 {
		t.Errorf("cursor = %d, want 16 (terminator consumed)", d.Stream().Pos())
	}
	if next := d.ReadValue(); next != String("z") {
		t.Errorf("value after object = %#v", next)
	}
}

func TestReadMixedArray(t *testing.T) {
	in := []byte{0x08, 0, 0, 0, 3}
	in = append(in, utf("duration")...)
	in = append(in, 0x00, 0x40, 0x24, 0, 0, 0, 0, 0, 0)
	in = append(in, utf("2")...)
	in = append(in, 0x01, 0x01)
	in = append(in, utf("odd")...)
	in = append(in, 0x05)
	in = append(in, utf("duration")...)
	in = append(in, 0x02, 0x00, 0x01, 'x')
	in = append(in, 0x00, 0x00, 0x09)

	d := NewDecoder(in)
	a, ok := d.ReadValue().(MixedArray)
	if !ok {
		t.Fatal("not a MixedArray")
	}
	if len(a.Entries) != 3 {
		t.Fatalf("entries = %#v", a.Entries)
	}
	if a.Entries[0].Value != String("x") {
		t.Errorf("later duplicate did not replace earlier value: %#v", a.Entries[0])
	}
	if k := a.Entries[1].Key; !k.Numeric || k.Index != 2 {
		t.Errorf("numeric key = %#v", k)
	}
	if v, ok := a.Get("2"); !ok || v != Boolean(true) {
		t.Errorf(`Get("2") = %#v, %v`, v, ok)
	}
	if a.Entries[2].Value != (Unsupported{Tag: 0x05}) {
		t.Errorf("unsupported entry = %#v", a.Entries[2].Value)
	}
	if d.More() {
		t.Errorf("cursor = %d of %d, want end", d.Stream().Pos(), d.Stream().Len())
	}
}

func TestTypedObject(t *testing.T) {
	in := []byte{0x10}
	in = append(in, utf("Cls")...)
	in = append(in, utf("a")...)
	in = append(in, 0x06)
	in = append(in, 0x00, 0x00, 0x09)

	o, ok := NewDecoder(in).ReadValue().(Object)
	if !ok || o.Class != "Cls" {
		t.Fatalf("got %#v", o)
	}
	if v, ok := o.Get("a"); !ok || v != (Null{}) {
		t.Errorf(`Get("a") = %#v`, v)
	}
}

func TestUnsupportedKeepsSiblings(t *testing.T) {
	in := []byte{0x0A, 0, 0, 0, 3, 0x00, 0x40, 0, 0, 0, 0, 0, 0, 0, 0x07, 0x02, 0x00, 0x01, 'q'}
	d := NewDecoder(in)
	arr, ok := d.ReadValue().(Array)
	if !ok || len(arr) != 3 {
		t.Fatalf("got %#v", arr)
	}
	if arr[0] != Number(2) || arr[1] != (Unsupported{Tag: 0x07}) || arr[2] != String("q") {
		t.Errorf("array = %#v", arr)
	}
	var uvt *UnsupportedValueTypeError
	if len(d.Errors()) != 1 || !errors.As(d.Errors()[0], &uvt) || uvt.Tag != 0x07 {
		t.Errorf("errors = %v", d.Errors())
	}
}

func TestHostileArrayLengthTerminates(t *testing.T) {
	arr, ok := NewDecoder([]byte{0x0A, 0xFF, 0xFF, 0xFF, 0xFF, 0x06}).ReadValue().(Array)
	if !ok || len(arr) != 1 {
		t.Errorf("got %#v", arr)
	}
}

func TestDepthLimit(t *testing.T) {
	in := make([]byte, 0, MaxDepth*2)
	for range MaxDepth + 5 {
		in = append(in, 0x0A, 0, 0, 0, 1)
	}
	d := NewDecoder(in)
	d.ReadValue()
	var de *DepthError
	if len(d.Errors()) == 0 || !errors.As(d.Errors()[0], &de) {
		t.Errorf("errors = %v, want DepthError", d.Errors())
	}
}

func TestPeekRestoresCursor(t *testing.T) {
	s := NewStream([]byte{0x00, 0x02, 'h', 'i', 0xAB})
	if got := s.PeekUTF(); got != "hi" {
		t.Errorf("PeekUTF = %q", got)
	}
	if got := s.PeekUint16(); got != 2 {
		t.Errorf("PeekUint16 = %d", got)
	}
	if got := s.PeekUint32(); got != 0x00026869 {
		t.Errorf("PeekUint32 = %#x", got)
	}
	if s.Pos() != 0 {
		t.Errorf("Pos = %d after peeks", s.Pos())
	}
	s.Next(4)
	if got := s.PeekUint8(); got != 0xAB {
		t.Errorf("PeekUint8 = %#x", got)
	}
}

func TestDecodeAllOnMetaData(t *testing.T) {
	in := []byte{0x02}
	in = append(in, utf("onMetaData")...)
	in = append(in, 0x08, 0, 0, 0, 1)
	in = append(in, utf("width")...)
	in = append(in, 0x00, 0x40, 0x94, 0, 0, 0, 0, 0, 0)
	in = append(in, 0x00, 0x00, 0x09)

	vals, errs := DecodeAll(in)
	if len(errs) != 0 || len(vals) != 2 {
		t.Fatalf("vals=%#v errs=%v", vals, errs)
	}
	if vals[0] != String("onMetaData") {
		t.Errorf("name = %#v", vals[0])
	}
	w, _ := vals[1].(MixedArray).Get("width")
	if Format(w) != "1280" {
		t.Errorf("width = %s", Format(w))
	}
}
