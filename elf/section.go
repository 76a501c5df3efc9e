package elf

import (
	"bytes"
	"fmt"
	"strings"
)

// SectionType is sh_type.
type SectionType uint32

const (
	SectionNull     SectionType = 0
	SectionProgBits SectionType = 1
	SectionSymTab   SectionType = 2
	SectionStrTab   SectionType = 3
	SectionRela     SectionType = 4
	SectionHash     SectionType = 5
	SectionDynamic  SectionType = 6
	SectionNote     SectionType = 7
	SectionNoBits   SectionType = 8
	SectionRel      SectionType = 9
	SectionShlib    SectionType = 10
	SectionDynSym   SectionType = 11
)

var sectionTypeNames = [...]string{
	"NULL", "PROGBITS", "SYMTAB", "STRTAB", "RELA", "HASH",
	"DYNAMIC", "NOTE", "NOBITS", "REL", "SHLIB", "DYNSYM",
}

func (t SectionType) String() string {
	if int(t) < len(sectionTypeNames) {
		return sectionTypeNames[t]
	}
	return fmt.Sprintf("0x%08x", uint32(t))
}

// SectionFlag is the sh_flags bitset.
type SectionFlag uint64

const (
	SectionFlagWrite     SectionFlag = 0x1
	SectionFlagAlloc     SectionFlag = 0x2
	SectionFlagExecInstr SectionFlag = 0x4
)

func (f SectionFlag) String() string {
	var sb strings.Builder
	if f&SectionFlagWrite != 0 {
		sb.WriteByte('W')
	}
	if f&SectionFlagAlloc != 0 {
		sb.WriteByte('A')
	}
	if f&SectionFlagExecInstr != 0 {
		sb.WriteByte('X')
	}
	return sb.String()
}

// SectionIndexUndef is the "no section" index.
const SectionIndexUndef = 0

// SectionHeader describes one section. Name stays empty until
// ResolveSectionNames runs; Symbols is filled by ResolveSymbols.
type SectionHeader struct {
	Name      string
	NameOff   uint32
	Type      SectionType
	Flags     SectionFlag
	Addr      uint64
	Offset    uint64
	Size      uint64
	Link      uint32
	Info      uint32
	AddrAlign uint64
	EntSize   uint64

	Symbols []Symbol
}

func (s *SectionHeader) IsAllocated() bool  { return s.Flags&SectionFlagAlloc != 0 }
func (s *SectionHeader) IsWritable() bool   { return s.Flags&SectionFlagWrite != 0 }
func (s *SectionHeader) IsExecutable() bool { return s.Flags&SectionFlagExecInstr != 0 }

func (c Class) sectionEntrySize() int {
	if c == Class64 {
		return 0x40
	}
	return 0x28
}

// tables larger than this are rejected before allocating a buffer
const maxTableSize = 1<<31 - 1

// ReadSectionHeaders skips to the section table and decodes ShNum entries,
// with the same entry and table size limits as ReadProgramHeaders. Names are
// left unresolved. src must be positioned at the start of the
// file.
func ReadSectionHeaders(src Source, h *Header) ([]SectionHeader, error) {
	const op = "section headers"

	if h.ShNum == 0 {
		return []SectionHeader{}, nil
	}
	entSize := int(h.ShEntSize)
	if want := h.Class.sectionEntrySize(); entSize < want {
		return nil, newError(op, KindSectionSize, fmt.Errorf("entry size %d below %d", entSize, want))
	}
	size := uint64(h.ShNum) * uint64(entSize)
	if size > maxTableSize {
		return nil, newError(op, KindSectionSize, fmt.Errorf("table size %d", size))
	}
	total := int(size)
	buf, skipErr, readErr := skipRead(src, h.ShOff, total)
	switch {
	case skipErr != nil:
		return nil, newError(op, KindSectionNotFound, skipErr)
	case readErr != nil:
		return nil, newError(op, KindSectionRead, readErr)
	case len(buf) != total:
		return nil, newError(op, KindSectionSize, fmt.Errorf("read %d of %d bytes", len(buf), total))
	}

	sections := make([]SectionHeader, h.ShNum)
	for i := range sections {
		sections[i] = decodeSectionHeader(buf[i*entSize:(i+1)*entSize], h.Class, h.Data)
	}
	return sections, nil
}

func decodeSectionHeader(buf []byte, class Class, enc Encoding) SectionHeader {
	w := class.word()
	f := field{buf: buf, enc: enc}
	var s SectionHeader
	s.NameOff = f.u32()
	s.Type = SectionType(f.u32())
	s.Flags = SectionFlag(f.u(w))
	s.Addr = f.u(w)
	s.Offset = f.u(w)
	s.Size = f.u(w)
	s.Link = f.u32()
	s.Info = f.u32()
	s.AddrAlign = f.u(w)
	s.EntSize = f.u(w)
	return s
}

// Encode lays the entry out for class. Name and Symbols are not encoded.
func (s *SectionHeader) Encode(class Class, enc Encoding) []byte {
	w := class.word()
	buf := make([]byte, class.sectionEntrySize())
	f := field{buf: buf, enc: enc}
	f.put(4, uint64(s.NameOff))
	f.put(4, uint64(s.Type))
	f.put(w, uint64(s.Flags))
	f.put(w, s.Addr)
	f.put(w, s.Offset)
	f.put(w, s.Size)
	f.put(4, uint64(s.Link))
	f.put(4, uint64(s.Info))
	f.put(w, s.AddrAlign)
	f.put(w, s.EntSize)
	return buf
}

// ResolveSectionNames reads the section name string table named by
// h.ShStrNdx and sets every section's Name. A ShStrNdx of zero means the
// file has no section names and nothing is read.
func ResolveSectionNames(src Source, h *Header, sections []SectionHeader) error {
	const op = "section names"

	idx := int(h.ShStrNdx)
	if idx == SectionIndexUndef {
		return nil
	}
	if idx >= len(sections) {
		return newError(op, KindStringTableIndex, fmt.Errorf("index %d of %d sections", idx, len(sections)))
	}
	strtab := &sections[idx]
	if strtab.Type != SectionStrTab {
		return newError(op, KindStringTableType, fmt.Errorf("section %d is %s", idx, strtab.Type))
	}
	if strtab.Size > maxTableSize {
		return newError(op, KindStringTableRead, fmt.Errorf("size %d", strtab.Size))
	}

	size := int(strtab.Size)
	buf, skipErr, readErr := skipRead(src, strtab.Offset, size)
	switch {
	case skipErr != nil:
		return newError(op, KindStringTableNotFound, skipErr)
	case readErr != nil:
		return newError(op, KindStringTableRead, readErr)
	case len(buf) != size:
		return newError(op, KindStringTableRead, fmt.Errorf("read %d of %d bytes", len(buf), size))
	}

	for i := range sections {
		sections[i].Name = cstring(buf, sections[i].NameOff)
	}
	return nil
}

// cstring returns the NUL-terminated string at off, or the remainder of the
// table if it is not terminated. Offsets past the table give "".
func cstring(tab []byte, off uint32) string {
	if uint64(off) >= uint64(len(tab)) {
		return ""
	}
	s := tab[off:]
	if i := bytes.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return string(s)
}
