package elf

import (
	"fmt"
	"strings"
)

// ProgType is p_type.
type ProgType uint32

const (
	ProgNull    ProgType = 0
	ProgLoad    ProgType = 1
	ProgDynamic ProgType = 2
	ProgInterp  ProgType = 3
	ProgNote    ProgType = 4
	ProgShlib   ProgType = 5
	ProgPhdr    ProgType = 6
)

var progTypeNames = [...]string{"NULL", "LOAD", "DYNAMIC", "INTERP", "NOTE", "SHLIB", "PHDR"}

func (t ProgType) String() string {
	if int(t) < len(progTypeNames) {
		return progTypeNames[t]
	}
	return fmt.Sprintf("0x%08x", uint32(t))
}

// ProgFlag is the p_flags permission set.
type ProgFlag uint32

const (
	ProgFlagX ProgFlag = 1 << iota
	ProgFlagW
	ProgFlagR
)

func (f ProgFlag) String() string {
	var sb strings.Builder
	for _, p := range []struct {
		bit ProgFlag
		c   byte
	}{{ProgFlagR, 'R'}, {ProgFlagW, 'W'}, {ProgFlagX, 'E'}} {
		if f&p.bit != 0 {
			sb.WriteByte(p.c)
		} else {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// ProgramHeader describes one segment.
type ProgramHeader struct {
	Type     ProgType
	Flags    ProgFlag
	Offset   uint64
	VAddr    uint64
	PAddr    uint64
	FileSize uint64
	MemSize  uint64
	Align    uint64
}

func (c Class) programEntrySize() int {
	if c == Class64 {
		return 0x38
	}
	return 0x20
}

// ReadProgramHeaders skips to the header's program table offset and decodes
// PhNum entries of PhEntSize bytes each. Entries smaller than the class layout
// and tables over maxTableSize are size errors. src must be
// positioned at the start of the file.
func ReadProgramHeaders(src Source, h *Header) ([]ProgramHeader, error) {
	const op = "program headers"

	if h.PhNum == 0 {
		return []ProgramHeader{}, nil
	}
	entSize := int(h.PhEntSize)
	if want := h.Class.programEntrySize(); entSize < want {
		return nil, newError(op, KindProgramSize, fmt.Errorf("entry size %d below %d", entSize, want))
	}
	size := uint64(h.PhNum) * uint64(entSize)
	if size > maxTableSize {
		return nil, newError(op, KindProgramSize, fmt.Errorf("table size %d", size))
	}
	total := int(size)
	buf, skipErr, readErr := skipRead(src, h.PhOff, total)
	switch {
	case skipErr != nil:
		return nil, newError(op, KindProgramNotFound, skipErr)
	case readErr != nil:
		return nil, newError(op, KindProgramRead, readErr)
	case len(buf) != total:
		return nil, newError(op, KindProgramSize, fmt.Errorf("read %d of %d bytes", len(buf), total))
	}

	progs := make([]ProgramHeader, h.PhNum)
	for i := range progs {
		progs[i] = decodeProgramHeader(buf[i*entSize:(i+1)*entSize], h.Class, h.Data)
	}
	return progs, nil
}

func decodeProgramHeader(buf []byte, class Class, enc Encoding) ProgramHeader {
	var p ProgramHeader
	f := field{buf: buf, enc: enc}
	p.Type = ProgType(f.u32())
	if class == Class64 {
		p.Flags = ProgFlag(f.u32())
		p.Offset = f.u(8)
		p.VAddr = f.u(8)
		p.PAddr = f.u(8)
		p.FileSize = f.u(8)
		p.MemSize = f.u(8)
		p.Align = f.u(8)
		return p
	}
	p.Offset = f.u(4)
	p.VAddr = f.u(4)
	p.PAddr = f.u(4)
	p.FileSize = f.u(4)
	p.MemSize = f.u(4)
	p.Flags = ProgFlag(f.u32())
	p.Align = f.u(4)
	return p
}

// Encode lays the entry out in the class-specific field order.
func (p ProgramHeader) Encode(class Class, enc Encoding) []byte {
	buf := make([]byte, class.programEntrySize())
	f := field{buf: buf, enc: enc}
	f.put(4, uint64(p.Type))
	if class == Class64 {
		f.put(4, uint64(p.Flags))
		f.put(8, p.Offset)
		f.put(8, p.VAddr)
		f.put(8, p.PAddr)
		f.put(8, p.FileSize)
		f.put(8, p.MemSize)
		f.put(8, p.Align)
		return buf
	}
	f.put(4, p.Offset)
	f.put(4, p.VAddr)
	f.put(4, p.PAddr)
	f.put(4, p.FileSize)
	f.put(4, p.MemSize)
	f.put(4, uint64(p.Flags))
	f.put(4, p.Align)
	return buf
}
