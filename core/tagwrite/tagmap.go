package tagwrite

import (
	"strings"
)

// Canonical field names with special handling.
const (
	FieldTrack           = "TRACK"
	FieldTrackNumber     = "TRACKNUMBER"
	FieldAttachedPicture = "ATTACHED_PICTURE"
)

// Field is one key of a TagMap with its ordered values.
type Field struct {
	Key    string
	Values []Value
}

// TagMap is an ordered map from field name to values.
type TagMap struct {
	fields []Field
}

// NewTagMap builds a TagMap from fields, in order.
func NewTagMap(fields ...Field) TagMap {
	var m TagMap
	for _, f := range fields {
		m.Set(f.Key, f.Values...)
	}
	return m
}

func (m *TagMap) index(key string) int {
	for i := range m.fields {
		if m.fields[i].Key == key {
			return i
		}
	}
	return -1
}

// Set replaces the values of key, keeping its position if present.
func (m *TagMap) Set(key string, vals ...Value) {
	vals = append([]Value(nil), vals...)
	if i := m.index(key); i >= 0 {
		m.fields[i].Values = vals
		return
	}
	m.fields = append(m.fields, Field{Key: key, Values: vals})
}

// Add appends values to key.
func (m *TagMap) Add(key string, vals ...Value) {
	if i := m.index(key); i >= 0 {
		m.fields[i].Values = append(m.fields[i].Values, vals...)
		return
	}
	m.Set(key, vals...)
}

// Delete removes key.
func (m *TagMap) Delete(key string) {
	if i := m.index(key); i >= 0 {
		m.fields = append(m.fields[:i:i], m.fields[i+1:]...)
	}
}

// Get returns the values of key.
func (m TagMap) Get(key string) []Value {
	if i := m.index(key); i >= 0 {
		return m.fields[i].Values
	}
	return nil
}

// Has reports whether key is present.
func (m TagMap) Has(key string) bool { return m.index(key) >= 0 }

// Fields returns the fields in order.
func (m TagMap) Fields() []Field { return m.fields }

// Len returns the number of keys.
func (m TagMap) Len() int { return len(m.fields) }

// Strings returns the textual values of key, skipping structured ones.
func (m TagMap) Strings(key string) []string {
	var out []string
	for _, v := range m.Get(key) {
		if s, ok := scalar(v); ok {
			out = append(out, s)
		}
	}
	return out
}

// Normalize returns a copy of m with uppercased keys. When two keys fold to
// the same name the later one replaces the earlier. TRACK becomes
// TRACKNUMBER unless TRACKNUMBER is present. Normalize is idempotent.
func Normalize(m TagMap) (TagMap, error) {
	var out TagMap
	for _, f := range m.fields {
		key := strings.ToUpper(strings.TrimSpace(f.Key))
		if reason := checkKey(key); reason != "" {
			return TagMap{}, &MalformedTagMapError{Key: f.Key, Reason: reason}
		}
		for _, v := range f.Values {
			if v == nil {
				return TagMap{}, &MalformedTagMapError{Key: f.Key, Reason: "nil value"}
			}
		}
		out.Set(key, f.Values...)
	}

	if out.Has(FieldTrack) && !out.Has(FieldTrackNumber) {
		i := out.index(FieldTrack)
		out.fields[i].Key = FieldTrackNumber
	}
	return out, nil
}

func checkKey(key string) string {
	if key == "" {
		return "empty key"
	}
	for _, r := range key {
		switch {
		case r == '=':
			return "key contains '='"
		case r < 0x20 || r == 0x7f:
			return "key contains a control character"
		}
	}
	return ""
}
