// Package bits reads MSB-first bit fields and Exp-Golomb codes from a byte
// buffer. Reads past the end of the buffer yield zero bits, so a truncated
// input decodes to zeros instead of failing.
package bits

import (
	"bytes"
	"math"

	"github.com/icza/bitio"
)

// MaxLeadingZeros is the longest run of zero bits accepted as the prefix of
// an Exp-Golomb code. Longer runs set the escape flag and decode as 0.
const MaxLeadingZeros = 31

// Reader is a forward-only bit cursor over a fixed buffer.
type Reader struct {
	br      *bitio.Reader
	size    int64 // total bits
	pos     int64 // bits consumed, may exceed size
	escaped bool
}

// NewReader returns a Reader positioned at the first bit of b.
func NewReader(b []byte) *Reader {
	return &Reader{
		br:   bitio.NewReader(bytes.NewReader(b)),
		size: int64(len(b)) * 8,
	}
}

// Pos returns the number of bits consumed so far.
func (r *Reader) Pos() int64 { return r.pos }

// Escaped reports whether an Exp-Golomb read hit an over-long zero prefix.
func (r *Reader) Escaped() bool { return r.escaped }

func (r *Reader) remaining() int64 {
	return max(r.size-r.pos, 0)
}

// ReadBit returns the next bit.
func (r *Reader) ReadBit() uint32 {
	return r.ReadBits(1)
}

// ReadBits returns the next n bits (n <= 32), most significant first.
func (r *Reader) ReadBits(n int) uint32 {
	if n <= 0 {
		return 0
	}
	if n > 32 {
		n = 32
	}
	avail := r.remaining()
	if avail >= int64(n) {
		r.pos += int64(n)
		return uint32(r.br.TryReadBits(uint8(n)))
	}

	// Straddling the end: take what is left and pad with zeros.
	var v uint64
	if avail > 0 {
		v = r.br.TryReadBits(uint8(avail))
	}
	r.pos += int64(n)
	return uint32(v << (int64(n) - avail))
}

// SkipBits advances the cursor by n bits.
func (r *Reader) SkipBits(n int) {
	if n <= 0 {
		return
	}
	todo := min(int64(n), r.remaining())
	for todo > 0 {
		step := min(todo, 64)
		r.br.TryReadBits(uint8(step))
		todo -= step
	}
	r.pos += int64(n)
}

// ReadUE decodes an unsigned Exp-Golomb code.
func (r *Reader) ReadUE() uint32 {
	zeros := 0
	bit := r.ReadBit()
	for bit == 0 {
		zeros++
		bit = r.ReadBit()
		if zeros > MaxLeadingZeros {
			r.escaped = true
			return 0
		}
	}
	return uint32((uint64(1) << zeros) + uint64(r.ReadBits(zeros)) - 1)
}

// ReadSE decodes a signed Exp-Golomb code: 0, 1, -1, 2, -2, ...
func (r *Reader) ReadSE() int32 {
	return signedCode(r.ReadUE())
}

// signedCode maps codeNum to its signed value. Results beyond int32 saturate;
// ReadUE never yields a code that needs it.
func signedCode(code uint32) int32 {
	if code&0x01 == 0 {
		return -int32(code >> 1)
	}
	return int32(min((uint64(code)+1)>>1, math.MaxInt32))
}
