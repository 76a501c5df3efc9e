package elf

import (
	"encoding/binary"
	"fmt"
)

// Encoding is the EI_DATA byte of the identification block.
type Encoding uint8

const (
	LittleEndian Encoding = 1
	BigEndian    Encoding = 2
)

func (e Encoding) String() string {
	switch e {
	case LittleEndian:
		return "little-endian"
	case BigEndian:
		return "big-endian"
	}
	return fmt.Sprintf("encoding(%d)", uint8(e))
}

func (e Encoding) valid() bool { return e == LittleEndian || e == BigEndian }

// ByteOrder maps the encoding onto encoding/binary. Anything that is not
// big-endian is treated as little-endian.
func (e Encoding) ByteOrder() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Uint64 decodes an unsigned n-byte value (n <= 8) at off. Bytes that fall
// outside buf read as zero at their position; a truncated little-endian
// field therefore loses its high-order bytes.
func Uint64(buf []byte, off, n int, enc Encoding) uint64 {
	var v uint64
	for i := 0; i < n; i++ {
		var b uint64
		if idx := off + i; idx >= 0 && idx < len(buf) {
			b = uint64(buf[idx])
		}
		if enc == BigEndian {
			v = v<<8 | b
		} else {
			v |= b << (8 * uint(i))
		}
	}
	return v
}

// Uint32 is Uint64 for fields of at most four bytes.
func Uint32(buf []byte, off, n int, enc Encoding) uint32 {
	if n > 4 {
		n = 4
	}
	return Narrow(Uint64(buf, off, n, enc))
}

// Widen zero-extends v.
func Widen(v uint32) uint64 { return uint64(v) }

// Narrow keeps the low 32 bits of v.
func Narrow(v uint64) uint32 { return uint32(v & 0xFFFFFFFF) }

// PutUint stores the low n bytes of v at off. Positions outside buf are
// dropped.
func PutUint(buf []byte, off, n int, v uint64, enc Encoding) {
	for i := 0; i < n; i++ {
		var shift uint
		if enc == BigEndian {
			shift = 8 * uint(n-1-i)
		} else {
			shift = 8 * uint(i)
		}
		if idx := off + i; idx >= 0 && idx < len(buf) {
			buf[idx] = byte(v >> shift)
		}
	}
}

// field walks a fixed-layout record. Every get advances the cursor by the
// field width.
type field struct {
	buf []byte
	off int
	enc Encoding
}

func (f *field) u(n int) uint64 {
	v := Uint64(f.buf, f.off, n, f.enc)
	f.off += n
	return v
}

func (f *field) u8() uint8   { return uint8(f.u(1)) }
func (f *field) u16() uint16 { return uint16(f.u(2)) }
func (f *field) u32() uint32 { return uint32(f.u(4)) }

func (f *field) put(n int, v uint64) {
	PutUint(f.buf, f.off, n, v, f.enc)
	f.off += n
}
