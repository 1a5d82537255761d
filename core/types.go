// Package core defines the shared types, diagnostics and format registry
// used by the decoders, the tag writer and the CLI.
package core

import (
	"errors"
	"fmt"
)

// MetaField represents a single metadata key-value pair.
type MetaField struct {
	Key      string // Field name as reported by the container (e.g. "TITLE", "width")
	Value    string // String representation of the value
	Category string // Category label (e.g. "ID3v2.4", "VorbisComment", "FLV Metadata")
	Editable bool   // Whether the tag writer can produce this field
}

// Metadata holds all metadata extracted from a single file.
type Metadata struct {
	FilePath string
	Format   string // Human-readable format name (e.g. "MP3", "FLAC", "FLV")
	Fields   []MetaField
	Warnings []Warning
}

// Add appends a field when val is non-empty.
func (m *Metadata) Add(category, key, val string, editable bool) {
	if val == "" {
		return
	}
	m.Fields = append(m.Fields, MetaField{Key: key, Value: val, Category: category, Editable: editable})
}

// Summary returns a short string of key fields for quick display.
func (m *Metadata) Summary() string {
	for _, f := range m.Fields {
		switch f.Key {
		case "Title", "TITLE", "width":
			return f.Key + ": " + f.Value
		}
	}
	return m.Format
}

// FormatInfo describes what a format handler supports.
type FormatInfo struct {
	Name       string   // "FLAC"
	Extensions []string // [".flac"]
	MediaType  string   // "audio" | "video"
	MIMETypes  []string
	TagFormats []string // tag formats the writer accepts for this container
	Notes      string
}

// Viewer is implemented by every media handler.
type Viewer interface {
	// View reads and returns all discoverable metadata from path.
	View(path string) (*Metadata, error)
	// Info returns format capabilities.
	Info() FormatInfo
}

// ─── Diagnostics ─────────────────────────────────────────────────────────────

// Warning is a non-fatal anomaly found while decoding or writing.
type Warning struct {
	Stage   string // "ape", "id3v2.3", "extract", "sps", ...
	Message string
	Offset  int64 // -1 when no byte position applies
}

func (w Warning) String() string {
	if w.Offset >= 0 {
		return fmt.Sprintf("[%s] %s (offset %d)", w.Stage, w.Message, w.Offset)
	}
	return fmt.Sprintf("[%s] %s", w.Stage, w.Message)
}

// Diagnostics collects the warnings and errors of a single call. It is
// always returned to the caller and never shared between calls.
type Diagnostics struct {
	Warnings []Warning
	Errors   []error
}

// Warn records a warning without a byte offset.
func (d *Diagnostics) Warn(stage, format string, args ...any) {
	d.Warnings = append(d.Warnings, Warning{Stage: stage, Message: fmt.Sprintf(format, args...), Offset: -1})
}

// WarnAt records a warning tied to a byte offset.
func (d *Diagnostics) WarnAt(stage string, offset int64, format string, args ...any) {
	d.Warnings = append(d.Warnings, Warning{Stage: stage, Message: fmt.Sprintf(format, args...), Offset: offset})
}

// Fail records an error.
func (d *Diagnostics) Fail(err error) {
	if err != nil {
		d.Errors = append(d.Errors, err)
	}
}

// Merge appends everything recorded in other.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.Warnings = append(d.Warnings, other.Warnings...)
	d.Errors = append(d.Errors, other.Errors...)
}

// OK reports whether no errors were recorded.
func (d *Diagnostics) OK() bool { return len(d.Errors) == 0 }

// Err joins the recorded errors, or returns nil.
func (d *Diagnostics) Err() error { return errors.Join(d.Errors...) }

// ─── Analysis ────────────────────────────────────────────────────────────────

// Analysis is the container classification of a file, as consumed by the
// tag writer when it decides which tag formats are allowed.
type Analysis struct {
	Path       string
	Size       int64
	FileFormat FormatID // container, e.g. FmtMP3, FmtOGG
	DataFormat string   // payload of the container, e.g. "vorbis" for Ogg
	// Tags holds the tags already present, keyed by tag format and then by
	// uppercased field name.
	Tags map[string]map[string][]string
}
