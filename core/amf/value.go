// Package amf decodes AMF0 values as found in FLV script data tags.
package amf

import (
	"fmt"
	"strconv"
)

// Type markers.
const (
	TypeNumber      = 0x00
	TypeBoolean     = 0x01
	TypeString      = 0x02
	TypeObject      = 0x03
	TypeNull        = 0x06
	TypeMixedArray  = 0x08
	TypeObjectEnd   = 0x09
	TypeArray       = 0x0A
	TypeDate        = 0x0B
	TypeLongString  = 0x0D
	TypeXML         = 0x0F
	TypeTypedObject = 0x10
)

// Kind classifies a decoded value.
type Kind uint8

const (
	KindNumber Kind = iota
	KindBoolean
	KindString
	KindObject
	KindNull
	KindMixedArray
	KindArray
	KindDate
	KindUnsupported
)

var kindNames = [...]string{"number", "boolean", "string", "object", "null", "mixed-array", "array", "date", "unsupported"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value is any decoded AMF0 value.
type Value interface {
	Kind() Kind
}

// Number is an IEEE-754 double.
type Number float64

// Boolean is true when the encoded byte was exactly 1.
type Boolean bool

// String covers short strings, long strings and XML documents.
type String string

// Null is the null marker.
type Null struct{}

// Date carries the millisecond timestamp; the timezone field is discarded.
type Date struct {
	Timestamp float64
}

// Array is a dense array.
type Array []Value

// Property is one key/value pair of an Object.
type Property struct {
	Key   string
	Value Value
}

// Object is an ordered set of properties. Class is set for typed objects.
type Object struct {
	Class string
	Props []Property
}

// Key of a MixedArray entry. Keys spelled as integers are stored as Index
// with Numeric set.
type Key struct {
	Name    string
	Index   int
	Numeric bool
}

func (k Key) String() string {
	if k.Numeric {
		return strconv.Itoa(k.Index)
	}
	return k.Name
}

// Entry is one key/value pair of a MixedArray.
type Entry struct {
	Key   Key
	Value Value
}

// MixedArray is an ECMA array: an ordered map whose keys may be integers.
type MixedArray struct {
	Entries []Entry
}

// Unsupported stands in for a value whose type marker is not decoded.
type Unsupported struct {
	Tag byte
}

func (Number) Kind() Kind      { return KindNumber }
func (Boolean) Kind() Kind     { return KindBoolean }
func (String) Kind() Kind      { return KindString }
func (Null) Kind() Kind        { return KindNull }
func (Date) Kind() Kind        { return KindDate }
func (Array) Kind() Kind       { return KindArray }
func (Object) Kind() Kind      { return KindObject }
func (MixedArray) Kind() Kind  { return KindMixedArray }
func (Unsupported) Kind() Kind { return KindUnsupported }

// Get returns the value of the first property named key.
func (o Object) Get(key string) (Value, bool) {
	for _, p := range o.Props {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Get returns the value of the entry whose key prints as key.
func (a MixedArray) Get(key string) (Value, bool) {
	for _, e := range a.Entries {
		if e.Key.String() == key {
			return e.Value, true
		}
	}
	return nil, false
}

// set replaces an existing entry with the same key, as later duplicates
// overwrite earlier ones in the encoded map.
func (a *MixedArray) set(k Key, v Value) {
	for i := range a.Entries {
		if a.Entries[i].Key == k {
			a.Entries[i].Value = v
			return
		}
	}
	a.Entries = append(a.Entries, Entry{Key: k, Value: v})
}

func (o *Object) set(k string, v Value) {
	for i := range o.Props {
		if o.Props[i].Key == k {
			o.Props[i].Value = v
			return
		}
	}
	o.Props = append(o.Props, Property{Key: k, Value: v})
}

// Format renders v as a display string.
func Format(v Value) string {
	switch t := v.(type) {
	case Number:
		return strconv.FormatFloat(float64(t), 'g', -1, 64)
	case Boolean:
		return strconv.FormatBool(bool(t))
	case String:
		return string(t)
	case Null, nil:
		return "null"
	case Date:
		return strconv.FormatFloat(t.Timestamp, 'f', -1, 64)
	case Unsupported:
		return "(unknown or unsupported data type)"
	case Array:
		return fmt.Sprintf("[%d values]", len(t))
	case Object:
		return fmt.Sprintf("{%d properties}", len(t.Props))
	case MixedArray:
		return fmt.Sprintf("{%d entries}", len(t.Entries))
	default:
		return fmt.Sprintf("%v", v)
	}
}
