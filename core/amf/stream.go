package amf

import (
	"encoding/binary"
	"math"
)

// Stream is a big-endian cursor over an immutable byte slice. Reads past the
// end return zero values and short slices; the cursor still advances by the
// requested amount.
type Stream struct {
	buf []byte
	pos int
}

// NewStream returns a Stream at offset 0 of b.
func NewStream(b []byte) *Stream {
	return &Stream{buf: b}
}

// Pos returns the cursor offset.
func (s *Stream) Pos() int { return s.pos }

// Len returns the size of the underlying buffer.
func (s *Stream) Len() int { return len(s.buf) }

// Exhausted reports whether the cursor is at or past the end.
func (s *Stream) Exhausted() bool { return s.pos >= len(s.buf) }

// Next returns the next n bytes, fewer when the buffer runs out.
func (s *Stream) Next(n int) []byte {
	if n < 0 {
		n = 0
	}
	start := min(s.pos, len(s.buf))
	end := len(s.buf)
	if n <= end-start {
		end = start + n
	}
	if n > math.MaxInt-s.pos {
		s.pos = math.MaxInt
	} else {
		s.pos += n
	}
	return s.buf[start:end:end]
}

// ReadUint8 reads one byte.
func (s *Stream) ReadUint8() uint8 {
	b := s.Next(1)
	if len(b) < 1 {
		return 0
	}
	return b[0]
}

// ReadUint16 reads a 16-bit integer.
func (s *Stream) ReadUint16() uint16 {
	return uint16(s.ReadUint8())<<8 | uint16(s.ReadUint8())
}

// ReadUint32 reads a 32-bit integer.
func (s *Stream) ReadUint32() uint32 {
	return uint32(s.ReadUint16())<<16 | uint32(s.ReadUint16())
}

// ReadDouble reads an IEEE-754 double. A truncated value reads as 0.
func (s *Stream) ReadDouble() float64 {
	b := s.Next(8)
	if len(b) < 8 {
		return 0
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}

// ReadUTF reads a string with a 16-bit length prefix.
func (s *Stream) ReadUTF() string {
	return string(s.Next(int(s.ReadUint16())))
}

// ReadLongUTF reads a string with a 32-bit length prefix.
func (s *Stream) ReadLongUTF() string {
	n := s.ReadUint32()
	if uint64(n) > uint64(math.MaxInt) {
		s.pos = math.MaxInt
		return ""
	}
	return string(s.Next(int(n)))
}

// peek runs read and restores the cursor.
func peek[T any](s *Stream, read func() T) T {
	pos := s.pos
	v := read()
	s.pos = pos
	return v
}

func (s *Stream) PeekUint8() uint8    { return peek(s, s.ReadUint8) }
func (s *Stream) PeekUint16() uint16  { return peek(s, s.ReadUint16) }
func (s *Stream) PeekUint32() uint32  { return peek(s, s.ReadUint32) }
func (s *Stream) PeekDouble() float64 { return peek(s, s.ReadDouble) }
func (s *Stream) PeekUTF() string     { return peek(s, s.ReadUTF) }
func (s *Stream) PeekLongUTF() string { return peek(s, s.ReadLongUTF) }
