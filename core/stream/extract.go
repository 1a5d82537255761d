package stream

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ephod/getID3/core"
)

// ExtractMode selects what happens to embedded binary attachments.
type ExtractMode int

const (
	// ExtractNone skips attachments.
	ExtractNone ExtractMode = iota
	// ExtractInline returns attachment bytes to the caller.
	ExtractInline
	// ExtractToDir copies attachments into a directory.
	ExtractToDir
)

func (m ExtractMode) String() string {
	switch m {
	case ExtractNone:
		return "none"
	case ExtractInline:
		return "inline"
	case ExtractToDir:
		return "dir"
	default:
		return fmt.Sprintf("ExtractMode(%d)", int(m))
	}
}

const defaultCopyBuffer = 32 << 10

// ErrWriteStalled is returned when the destination accepts no bytes.
var ErrWriteStalled = errors.New("failed to write to destination file, may be not enough disk space")

// Attachment is the result of an extraction. Exactly one of Data and Path is
// set on success; both are empty when nothing was extracted.
type Attachment struct {
	Data []byte
	Path string
}

// None reports whether nothing was extracted.
func (a Attachment) None() bool { return a.Data == nil && a.Path == "" }

// Extractor copies attachments out of a Source.
type Extractor struct {
	Mode       ExtractMode
	Dir        string // destination for ExtractToDir
	BufferSize int    // copy chunk in file mode; defaults to 32 KiB

	create func(path string) (io.WriteCloser, error)
}

// NewExtractor returns an extractor for mode. dir is only used with
// ExtractToDir.
func NewExtractor(mode ExtractMode, dir string) *Extractor {
	return &Extractor{Mode: mode, Dir: dir, BufferSize: defaultCopyBuffer}
}

// Extract reads length bytes at offset from src. Failures are reported as
// warnings and yield an empty Attachment. The cursor of src is left at
// offset+length in every case.
func (e *Extractor) Extract(src Source, name string, offset, length int64, mime string) (Attachment, core.Diagnostics) {
	var diag core.Diagnostics
	att, err := e.extract(src, name, offset, length, mime)
	if err != nil {
		diag.WarnAt("extract", offset, "failed to extract attachment %s: %v", name, err)
		att = Attachment{}
	}
	if end, perr := addPosition("seek", offset, length); perr == nil {
		if _, serr := src.Seek(end, io.SeekStart); serr != nil {
			diag.WarnAt("extract", end, "cannot seek past attachment %s: %v", name, serr)
		}
	} else {
		diag.WarnAt("extract", offset, "cannot seek past attachment %s: %v", name, perr)
	}
	return att, diag
}

func (e *Extractor) extract(src Source, name string, offset, length int64, mime string) (Attachment, error) {
	switch e.Mode {
	case ExtractNone:
		return Attachment{}, nil
	case ExtractInline:
		if _, err := src.Seek(offset, io.SeekStart); err != nil {
			return Attachment{}, err
		}
		if length > int64(int(^uint(0)>>1)) {
			return Attachment{}, &OutOfRangeError{Op: "read", Base: offset, Offset: length, Overflow: true}
		}
		data, err := src.Read(int(length))
		if err != nil {
			return Attachment{}, err
		}
		if int64(len(data)) != length {
			return Attachment{}, &TruncatedReadError{Offset: offset, Want: length, Got: int64(len(data))}
		}
		return Attachment{Data: data}, nil
	case ExtractToDir:
		return e.toDir(src, name, offset, length, mime)
	default:
		return Attachment{}, fmt.Errorf("unknown extract mode %v", e.Mode)
	}
}

func (e *Extractor) toDir(src Source, name string, offset, length int64, mime string) (_ Attachment, err error) {
	dir := strings.TrimRight(filepath.FromSlash(e.Dir), string(filepath.Separator))
	if st, serr := os.Stat(dir); serr != nil || !st.IsDir() {
		return Attachment{}, fmt.Errorf("supplied path (%s) does not exist, or is not writable", dir)
	}
	dest := filepath.Join(dir, name)
	if mime != "" {
		dest += "." + ImageExtFromMime(mime)
	}

	create := e.create
	if create == nil {
		create = func(p string) (io.WriteCloser, error) { return os.Create(p) }
	}
	w, err := create(dest)
	if err != nil {
		return Attachment{}, fmt.Errorf("failed to create file %s: %w", dest, err)
	}
	closed := false
	defer func() {
		if err != nil {
			if !closed {
				_ = w.Close()
			}
			_ = os.Remove(dest)
		}
	}()

	if _, err = src.Seek(offset, io.SeekStart); err != nil {
		return Attachment{}, err
	}
	bufSize := int64(e.BufferSize)
	if bufSize <= 0 {
		bufSize = defaultCopyBuffer
	}
	if _, ok := src.(*MemorySource); ok {
		bufSize = max(length, 1)
	}

	left := length
	for left > 0 {
		chunk, rerr := src.Read(int(min(bufSize, left)))
		if rerr != nil {
			return Attachment{}, rerr
		}
		if len(chunk) == 0 {
			return Attachment{}, &TruncatedReadError{Offset: offset, Want: length, Got: length - left}
		}
		n, werr := w.Write(chunk)
		if werr != nil {
			return Attachment{}, fmt.Errorf("%w: %w", ErrWriteStalled, werr)
		}
		if n == 0 {
			return Attachment{}, ErrWriteStalled
		}
		left -= int64(n)
	}

	closed = true
	if err = w.Close(); err != nil {
		return Attachment{}, err
	}
	return Attachment{Path: dest}, nil
}

// ImageExtFromMime derives a file extension from an image MIME type:
// "image/jpeg" becomes "jpg", "image/x-png" becomes "png".
func ImageExtFromMime(mime string) string {
	r := strings.NewReplacer("image/", "", "x-", "", "jpeg", "jpg")
	return r.Replace(mime)
}
