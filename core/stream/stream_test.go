package stream

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// shortReader returns at most max bytes per Read, like a pipe.
type shortReader struct {
	r   *bytes.Reader
	max int
}

func (s *shortReader) Read(p []byte) (int, error) {
	if len(p) > s.max {
		p = p[:s.max]
	}
	return s.r.Read(p)
}

func (s *shortReader) Seek(offset int64, whence int) (int64, error) {
	return s.r.Seek(offset, whence)
}

func sample(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func sources(t *testing.T, data []byte) map[string]Source {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	fs, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { fs.Close() })
	return map[string]Source{
		"memory": NewMemory(data),
		"file":   fs,
	}
}

func TestSeekTellRoundTrip(t *testing.T) {
	data := sample(300)
	for name, src := range sources(t, data) {
		t.Run(name, func(t *testing.T) {
			for _, p := range []int64{0, 1, 17, 150, 299, 300} {
				got, err := src.Seek(p, io.SeekStart)
				if err != nil {
					t.Fatalf("Seek(%d): %v", p, err)
				}
				if got != p || src.Tell() != p {
					t.Errorf("Seek(%d) = %d, Tell() = %d", p, got, src.Tell())
				}
			}

			if _, err := src.Seek(-10, io.SeekEnd); err != nil {
				t.Fatal(err)
			}
			if src.Tell() != 290 {
				t.Errorf("Tell() after SeekEnd = %d, want 290", src.Tell())
			}
			if _, err := src.Seek(5, io.SeekCurrent); err != nil {
				t.Fatal(err)
			}
			if src.Tell() != 295 {
				t.Errorf("Tell() after SeekCurrent = %d, want 295", src.Tell())
			}
		})
	}
}

func TestReadAdvancesCursor(t *testing.T) {
	data := sample(64)
	for name, src := range sources(t, data) {
		t.Run(name, func(t *testing.T) {
			got, err := src.Read(10)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, data[:10]) {
				t.Errorf("Read(10) = %v", got)
			}
			if src.Tell() != 10 {
				t.Errorf("Tell() = %d, want 10", src.Tell())
			}

			rest, err := src.Read(100)
			if err != nil {
				t.Fatal(err)
			}
			if len(rest) != 54 {
				t.Errorf("Read past end returned %d bytes, want 54", len(rest))
			}
			if !src.EOF() {
				t.Error("EOF() = false after reading to the end")
			}
		})
	}
}

func TestFileReadLoopsOverShortReads(t *testing.T) {
	data := sample(1000)
	src := NewFile(&shortReader{r: bytes.NewReader(data), max: 7}, int64(len(data)))

	got, err := src.Read(500)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data[:500]) {
		t.Fatalf("Read(500) returned %d bytes, mismatched content", len(got))
	}
	if src.EOF() {
		t.Error("EOF() = true before the end")
	}
}

func TestFileSeekEndUsesLogicalSize(t *testing.T) {
	data := sample(200)
	// Pretend the last 128 bytes are a trailing tag outside the payload.
	src := NewFile(bytes.NewReader(data), 72)
	if _, err := src.Seek(-2, io.SeekEnd); err != nil {
		t.Fatal(err)
	}
	b, err := src.Read(2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, data[70:72]) {
		t.Errorf("Read = %v, want %v", b, data[70:72])
	}
}

func TestSeekOutOfRange(t *testing.T) {
	for name, src := range sources(t, sample(10)) {
		t.Run(name, func(t *testing.T) {
			var oor *OutOfRangeError

			if _, err := src.Seek(-1, io.SeekStart); !errors.As(err, &oor) {
				t.Errorf("Seek(-1) error = %v, want OutOfRangeError", err)
			}
			if _, err := src.Seek(5, io.SeekStart); err != nil {
				t.Fatal(err)
			}
			if _, err := src.Seek(math.MaxInt64, io.SeekCurrent); !errors.As(err, &oor) {
				t.Errorf("overflowing seek error = %v, want OutOfRangeError", err)
			} else if !oor.Overflow {
				t.Error("Overflow = false for an overflowing seek")
			}
			if src.Tell() != 5 {
				t.Errorf("failed seek moved the cursor to %d", src.Tell())
			}
		})
	}
}

func TestMemorySeekPastEndRejected(t *testing.T) {
	src := NewMemory(sample(10))
	var oor *OutOfRangeError
	if _, err := src.Seek(11, io.SeekStart); !errors.As(err, &oor) {
		t.Errorf("Seek(11) error = %v, want OutOfRangeError", err)
	}
}

func TestWindow(t *testing.T) {
	m := NewMemory(sample(50))
	if s, e := m.Window(); s != 0 || e != 50 {
		t.Errorf("default window = [%d,%d)", s, e)
	}
	m.SetWindow(9, 40)
	if s, e := m.Window(); s != 9 || e != 40 {
		t.Errorf("window = [%d,%d), want [9,40)", s, e)
	}
}
