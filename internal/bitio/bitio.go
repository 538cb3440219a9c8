// Package bitio reads unsigned integers of arbitrary bit width from a
// byte slice. Bits are consumed MSB-first within each byte (big-endian
// bit order), which is how every BUFR data section is packed.
package bitio

import (
	"encoding/binary"
	"fmt"

	"github.com/meteodata/gobufr/internal/bufrerr"
)

// Reader is a sequential, non-byte-aligned cursor over a byte buffer.
// No backward seeking is supported.
type Reader struct {
	buf []byte
	pos int // current bit position
}

// NewReader returns a Reader positioned at bit offset 0.
func NewReader(b []byte) *Reader { return &Reader{buf: b} }

// ReadBits reads n bits (0 <= n <= 64) and returns them as a uint64.
func (r *Reader) ReadBits(n int) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	if n < 0 || n > 64 {
		return 0, fmt.Errorf("bitio: invalid bit count %d", n)
	}
	end := r.pos + n
	if end > len(r.buf)*8 {
		return 0, fmt.Errorf("%w: read %d bits at bit %d overflows buffer (%d bytes)",
			bufrerr.ErrTruncatedStream, n, r.pos, len(r.buf))
	}
	// Fast path: byte-aligned reads of exact byte widths.
	if r.pos%8 == 0 {
		off := r.pos / 8
		switch n {
		case 8:
			r.pos = end
			return uint64(r.buf[off]), nil
		case 16:
			r.pos = end
			return uint64(binary.BigEndian.Uint16(r.buf[off:])), nil
		case 32:
			r.pos = end
			return uint64(binary.BigEndian.Uint32(r.buf[off:])), nil
		case 64:
			r.pos = end
			return binary.BigEndian.Uint64(r.buf[off:]), nil
		}
	}
	// Slow path: bit-by-bit for non-aligned or non-standard widths.
	var v uint64
	for i := 0; i < n; i++ {
		byteIdx := (r.pos + i) / 8
		bitIdx := 7 - ((r.pos + i) % 8)
		bit := (r.buf[byteIdx] >> bitIdx) & 1
		v = (v << 1) | uint64(bit)
	}
	r.pos = end
	return v, nil
}

// PeekBits reads n bits without advancing the cursor.
func (r *Reader) PeekBits(n int) (uint64, error) {
	pos := r.pos
	v, err := r.ReadBits(n)
	r.pos = pos
	return v, err
}

// ReadBytes reads n whole bytes, honouring the current bit offset.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if r.pos+n*8 > len(r.buf)*8 {
		return nil, fmt.Errorf("%w: read %d bytes at bit %d overflows buffer (%d bytes)",
			bufrerr.ErrTruncatedStream, n, r.pos, len(r.buf))
	}
	if r.pos%8 == 0 {
		off := r.pos / 8
		out := make([]byte, n)
		copy(out, r.buf[off:off+n])
		r.pos += n * 8
		return out, nil
	}
	out := make([]byte, n)
	for i := range out {
		v, err := r.ReadBits(8)
		if err != nil {
			return nil, err
		}
		out[i] = byte(v)
	}
	return out, nil
}

// Remaining reports how many bits are left before exhaustion.
func (r *Reader) Remaining() int { return len(r.buf)*8 - r.pos }

// Offset returns the current bit position.
func (r *Reader) Offset() int { return r.pos }

// Align advances the cursor to the next byte boundary. Section
// boundaries in BUFR editions < 4 pad the data section to whole bytes.
func (r *Reader) Align() {
	if r.pos%8 != 0 {
		r.pos += 8 - (r.pos % 8)
	}
}
