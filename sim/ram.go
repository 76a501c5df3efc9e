package sim

import (
	"fmt"
	"os"
)

// RAM is byte-addressable memory starting at address 0.
type RAM struct {
	mem []byte
}

func NewRAM(size uint64) *RAM { return &RAM{mem: make([]byte, size)} }

func (r *RAM) Size() uint64 { return uint64(len(r.mem)) }

func (r *RAM) Read8(addr uint32) (uint8, bool) {
	if uint64(addr) >= uint64(len(r.mem)) {
		return 0, false
	}
	return r.mem[addr], true
}

func (r *RAM) Write8(addr uint32, v uint8) bool {
	if uint64(addr) >= uint64(len(r.mem)) {
		return false
	}
	r.mem[addr] = v
	return true
}

// WriteBytes copies p to addr, failing without writing if any byte would
// land outside RAM.
func (r *RAM) WriteBytes(addr uint32, p []byte) error {
	end := uint64(addr) + uint64(len(p))
	if end > uint64(len(r.mem)) {
		return fmt.Errorf("write [0x%08x,0x%08x) outside RAM (size 0x%x)", addr, end, len(r.mem))
	}
	copy(r.mem[addr:], p)
	return nil
}

// LoadFlat copies a raw binary image to base.
func (r *RAM) LoadFlat(path string, base uint32) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return r.WriteBytes(base, data)
}
