package amf

import (
	"fmt"
	"strconv"
)

// MaxDepth bounds nesting of objects and arrays.
const MaxDepth = 64

// UnsupportedValueTypeError records a type marker the decoder does not
// handle. Decoding continues with an Unsupported placeholder.
type UnsupportedValueTypeError struct {
	Tag    byte
	Offset int
}

func (e *UnsupportedValueTypeError) Error() string {
	return fmt.Sprintf("unsupported AMF0 type 0x%02x at offset %d", e.Tag, e.Offset)
}

// DepthError is recorded when nesting exceeds MaxDepth. The rest of the
// buffer is abandoned.
type DepthError struct {
	Offset int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("AMF0 nesting deeper than %d at offset %d", MaxDepth, e.Offset)
}

// Decoder reads AMF0 values from a Stream.
type Decoder struct {
	s     *Stream
	depth int
	errs  []error
}

// NewDecoder returns a Decoder over b.
func NewDecoder(b []byte) *Decoder {
	return &Decoder{s: NewStream(b)}
}

// Stream exposes the underlying cursor.
func (d *Decoder) Stream() *Stream { return d.s }

// Errors returns the anomalies recorded so far.
func (d *Decoder) Errors() []error { return d.errs }

// More reports whether unread bytes remain.
func (d *Decoder) More() bool { return !d.s.Exhausted() }

// ReadValue decodes the next value.
func (d *Decoder) ReadValue() Value {
	offset := d.s.Pos()
	tag := d.s.ReadUint8()
	switch tag {
	case TypeNumber:
		return Number(d.s.ReadDouble())
	case TypeBoolean:
		return Boolean(d.s.ReadUint8() == 1)
	case TypeString:
		return String(d.s.ReadUTF())
	case TypeObject:
		return d.nested(offset, d.readObject)
	case TypeNull:
		return Null{}
	case TypeMixedArray:
		return d.nested(offset, d.readMixedArray)
	case TypeArray:
		return d.nested(offset, d.readArray)
	case TypeDate:
		ts := d.s.ReadDouble()
		d.s.ReadUint16() // timezone
		return Date{Timestamp: ts}
	case TypeLongString, TypeXML:
		return String(d.s.ReadLongUTF())
	case TypeTypedObject:
		class := d.s.ReadUTF()
		v := d.nested(offset, d.readObject)
		if o, ok := v.(Object); ok {
			o.Class = class
			return o
		}
		return v
	default:
		d.errs = append(d.errs, &UnsupportedValueTypeError{Tag: tag, Offset: offset})
		return Unsupported{Tag: tag}
	}
}

func (d *Decoder) nested(offset int, read func() Value) Value {
	if d.depth >= MaxDepth {
		d.errs = append(d.errs, &DepthError{Offset: offset})
		d.s.Next(d.s.Len())
		return Unsupported{Tag: d.s.buf[offset]}
	}
	d.depth++
	defer func() { d.depth-- }()
	return read()
}

// endObject consumes the 0x09 marker that follows the empty key closing an
// object or mixed array.
func (d *Decoder) endObject() {
	if d.s.PeekUint8() == TypeObjectEnd {
		d.s.ReadUint8()
	}
}

func (d *Decoder) readObject() Value {
	o := Object{}
	for {
		key := d.s.ReadUTF()
		if key == "" {
			break
		}
		o.set(key, d.ReadValue())
	}
	d.endObject()
	return o
}

func (d *Decoder) readMixedArray() Value {
	d.s.ReadUint32() // highest index, unused
	a := MixedArray{}
	for {
		name := d.s.ReadUTF()
		if name == "" {
			break
		}
		k := Key{Name: name}
		if i, err := strconv.Atoi(name); err == nil {
			k = Key{Index: i, Numeric: true}
		}
		a.set(k, d.ReadValue())
	}
	d.endObject()
	return a
}

func (d *Decoder) readArray() Value {
	n := d.s.ReadUint32()
	arr := make(Array, 0, min(int(n), d.s.Len()))
	for i := uint32(0); i < n; i++ {
		if d.s.Exhausted() {
			break
		}
		arr = append(arr, d.ReadValue())
	}
	return arr
}

// DecodeAll decodes values until the buffer is exhausted.
func DecodeAll(b []byte) ([]Value, []error) {
	d := NewDecoder(b)
	var out []Value
	for d.More() {
		out = append(out, d.ReadValue())
	}
	return out, d.Errors()
}
