package tagwrite

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoFilename is returned when the request names no file.
	ErrNoFilename = errors.New("filename is undefined")
	// ErrNoEncoder is returned when no encoder is registered for a format.
	ErrNoEncoder = errors.New("no encoder registered")
	// ErrOverwriteUnsupported is returned for merge-mode requests.
	ErrOverwriteUnsupported = errors.New("merging with existing tag data is not supported")
)

// UnknownTagFormatError reports a tag format name that is not recognised.
type UnknownTagFormatError struct {
	Name string
}

func (e *UnknownTagFormatError) Error() string {
	return fmt.Sprintf("unknown tag format %q", e.Name)
}

// DisallowedFormatForContainerError reports a tag format that the file's
// container cannot carry.
type DisallowedFormatForContainerError struct {
	Format     Format
	FileFormat string
	DataFormat string
}

func (e *DisallowedFormatForContainerError) Error() string {
	container := e.FileFormat
	if e.DataFormat != "" {
		container += "." + e.DataFormat
	}
	return fmt.Sprintf("tag format %q is not allowed on %q files", e.Format, container)
}

// UnsupportedContainerError reports a container for which no tag format can
// be written at all.
type UnsupportedContainerError struct {
	FileFormat string
	DataFormat string
	Reason     string
}

func (e *UnsupportedContainerError) Error() string {
	return e.Reason
}

// MalformedStructuredFrameError reports a structured ID3v2 value missing a
// required part. It aborts the write before any file is touched.
type MalformedStructuredFrameError struct {
	Frame  string
	Key    string
	Reason string
}

func (e *MalformedStructuredFrameError) Error() string {
	return fmt.Sprintf("ID3v2 %s data is not properly structured (%s: %s)", e.Frame, e.Key, e.Reason)
}

// MalformedTagMapError reports a tag map that cannot be normalized.
type MalformedTagMapError struct {
	Key    string
	Reason string
}

func (e *MalformedTagMapError) Error() string {
	return fmt.Sprintf("malformed tag map at key %q: %s", e.Key, e.Reason)
}

// UnmappedFieldError is recorded when a field has no ID3v2 frame. The field
// is skipped and the write continues.
type UnmappedFieldError struct {
	Key   string
	Major int
}

func (e *UnmappedFieldError) Error() string {
	return fmt.Sprintf("ID3v2.%d: skipping %q because it cannot be matched to a known frame type", e.Major, e.Key)
}

// EncoderError wraps a failure reported by a per-format encoder.
type EncoderError struct {
	Format Format
	Op     string // "write" or "remove"
	Err    error
}

func (e *EncoderError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Op, e.Format, e.Err)
}

func (e *EncoderError) Unwrap() error { return e.Err }

// RollbackError is returned when restoring the original file after a failed
// write did not succeed either.
type RollbackError struct {
	Cause    error
	Rollback error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("%v (restoring the original file also failed: %v)", e.Cause, e.Rollback)
}

func (e *RollbackError) Unwrap() []error { return []error{e.Cause, e.Rollback} }

// JoinFormats lists format names separated by commas.
func JoinFormats(fs []Format) string {
	s := make([]string, len(fs))
	for i, f := range fs {
		s[i] = string(f)
	}
	return strings.Join(s, ", ")
}
