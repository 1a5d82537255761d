// Package stream provides the byte cursor every decoder reads through. A
// Source is backed either by an open file handle or by an in-memory buffer;
// both expose the same read/seek/tell/eof behaviour.
package stream

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// Source is a seekable byte cursor with a declared data window.
type Source interface {
	// Read returns up to n bytes from the cursor. Fewer bytes are returned
	// only when the source is exhausted.
	Read(n int) ([]byte, error)
	// Seek moves the cursor. whence is io.SeekStart, io.SeekCurrent or
	// io.SeekEnd.
	Seek(offset int64, whence int) (int64, error)
	Tell() int64
	EOF() bool
	// Window returns the [start, end) range holding the media payload.
	Window() (start, end int64)
}

// ErrNegativeRead is returned when Read is asked for a negative count.
var ErrNegativeRead = errors.New("negative read length")

// OutOfRangeError reports a position that cannot be represented or lies
// outside the addressable range of the source.
type OutOfRangeError struct {
	Op       string // "seek" or "read"
	Base     int64
	Offset   int64
	Overflow bool // Base+Offset does not fit in an int64
}

func (e *OutOfRangeError) Error() string {
	if e.Overflow {
		return fmt.Sprintf("cannot %s %d bytes from %d: beyond the addressable range", e.Op, e.Offset, e.Base)
	}
	return fmt.Sprintf("cannot %s to position %d: out of range", e.Op, e.Base+e.Offset)
}

// TruncatedReadError reports that fewer bytes were available than needed.
type TruncatedReadError struct {
	Offset int64
	Want   int64
	Got    int64
}

func (e *TruncatedReadError) Error() string {
	return fmt.Sprintf("truncated read at offset %d: wanted %d bytes, got %d", e.Offset, e.Want, e.Got)
}

// addPosition returns base+offset, failing when the sum overflows int64 or is
// negative.
func addPosition(op string, base, offset int64) (int64, error) {
	if (offset > 0 && base > math.MaxInt64-offset) || (offset < 0 && base < math.MinInt64-offset) {
		return 0, &OutOfRangeError{Op: op, Base: base, Offset: offset, Overflow: true}
	}
	pos := base + offset
	if pos < 0 {
		return 0, &OutOfRangeError{Op: op, Base: base, Offset: offset}
	}
	return pos, nil
}

// ─── Memory ──────────────────────────────────────────────────────────────────

// MemorySource reads from a byte slice it never modifies.
type MemorySource struct {
	buf        []byte
	pos        int64
	start, end int64
}

// NewMemory returns a source over buf. The data window covers the whole
// buffer.
func NewMemory(buf []byte) *MemorySource {
	return &MemorySource{buf: buf, start: 0, end: int64(len(buf))}
}

// SetWindow narrows the data window.
func (m *MemorySource) SetWindow(start, end int64) { m.start, m.end = start, end }

func (m *MemorySource) Window() (int64, int64) { return m.start, m.end }

func (m *MemorySource) Len() int64 { return int64(len(m.buf)) }

func (m *MemorySource) Read(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeRead
	}
	if _, err := addPosition("read", m.pos, int64(n)); err != nil {
		return nil, err
	}
	size := int64(len(m.buf))
	end := min(m.pos+int64(n), size)
	out := m.buf[m.pos:end:end]
	m.pos = end
	return out, nil
}

func (m *MemorySource) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = m.pos
	case io.SeekEnd:
		base = int64(len(m.buf))
	default:
		return m.pos, fmt.Errorf("invalid whence %d", whence)
	}
	pos, err := addPosition("seek", base, offset)
	if err != nil {
		return m.pos, err
	}
	if pos > int64(len(m.buf)) {
		return m.pos, &OutOfRangeError{Op: "seek", Base: base, Offset: offset}
	}
	m.pos = pos
	return pos, nil
}

func (m *MemorySource) Tell() int64 { return m.pos }

func (m *MemorySource) EOF() bool { return m.pos >= int64(len(m.buf)) }

// ─── File ────────────────────────────────────────────────────────────────────

// FileSource reads through an open handle. Seeks relative to the end use the
// logical size supplied at construction, which callers may set to exclude
// trailing tags.
type FileSource struct {
	r          io.ReadSeeker
	size       int64
	pos        int64
	eof        bool
	start, end int64
	closer     io.Closer
}

// NewFile wraps r, whose logical length is size. The data window covers
// [0, size).
func NewFile(r io.ReadSeeker, size int64) *FileSource {
	pos, _ := r.Seek(0, io.SeekCurrent)
	return &FileSource{r: r, size: size, pos: pos, start: 0, end: size}
}

// Open opens path for reading. The returned source owns the handle.
func Open(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	s := NewFile(f, st.Size())
	s.closer = f
	return s, nil
}

// Close releases the handle when the source owns it.
func (f *FileSource) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// SetWindow narrows the data window.
func (f *FileSource) SetWindow(start, end int64) { f.start, f.end = start, end }

func (f *FileSource) Window() (int64, int64) { return f.start, f.end }

// Size is the logical size used for end-relative seeks.
func (f *FileSource) Size() int64 { return f.size }

func (f *FileSource) Read(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeRead
	}
	if _, err := addPosition("read", f.pos, int64(n)); err != nil {
		return nil, err
	}

	// Handles such as pipes may return short reads; keep reading until n
	// bytes arrive or a read returns nothing.
	const chunk = 64 << 10
	out := make([]byte, 0, min(n, chunk))
	remaining := n
	for remaining > 0 {
		part := make([]byte, min(remaining, chunk))
		got, err := f.r.Read(part)
		out = append(out, part[:got]...)
		remaining -= got
		f.pos += int64(got)
		if errors.Is(err, io.EOF) || (got == 0 && err == nil) {
			f.eof = true
			break
		}
		if err != nil {
			return out, fmt.Errorf("reading at offset %d: %w", f.pos, err)
		}
	}
	return out, nil
}

func (f *FileSource) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = f.pos
	case io.SeekEnd:
		base = f.size
	default:
		return f.pos, fmt.Errorf("invalid whence %d", whence)
	}
	pos, err := addPosition("seek", base, offset)
	if err != nil {
		return f.pos, err
	}
	if _, err := f.r.Seek(pos, io.SeekStart); err != nil {
		return f.pos, fmt.Errorf("seeking to %d: %w", pos, err)
	}
	f.pos = pos
	f.eof = false
	return pos, nil
}

func (f *FileSource) Tell() int64 { return f.pos }

// EOF reports whether a previous read ran into the end of the handle.
func (f *FileSource) EOF() bool { return f.eof }
