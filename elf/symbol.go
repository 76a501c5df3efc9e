package elf

import (
	"fmt"
)

// Symbol is one symbol table record. It is attached to the section named by
// Shndx, not to the symbol table section it came from.
type Symbol struct {
	Name    string
	NameOff uint32
	Value   uint64
	Size    uint64
	Info    uint8
	Other   uint8
	Shndx   uint16
}

// SymbolType is the low nibble of Info.
type SymbolType uint8

const (
	SymbolNoType  SymbolType = 0
	SymbolObject  SymbolType = 1
	SymbolFunc    SymbolType = 2
	SymbolSection SymbolType = 3
	SymbolFile    SymbolType = 4
)

// SymbolBind is the high nibble of Info.
type SymbolBind uint8

const (
	SymbolLocal  SymbolBind = 0
	SymbolGlobal SymbolBind = 1
	SymbolWeak   SymbolBind = 2
)

func (s Symbol) Type() SymbolType { return SymbolType(s.Info & 0xF) }
func (s Symbol) Bind() SymbolBind { return SymbolBind(s.Info >> 4) }

// SymbolSize32 is the fixed record size for 32-bit files.
const SymbolSize32 = 16

func (c Class) symbolSize() int {
	if c == Class64 {
		return 24
	}
	return SymbolSize32
}

func decodeSymbol(buf []byte, class Class, enc Encoding) Symbol {
	f := field{buf: buf, enc: enc}
	var s Symbol
	s.NameOff = f.u32()
	if class == Class64 {
		s.Info = f.u8()
		s.Other = f.u8()
		s.Shndx = f.u16()
		s.Value = f.u(8)
		s.Size = f.u(8)
		return s
	}
	s.Value = f.u(4)
	s.Size = f.u(4)
	s.Info = f.u8()
	s.Other = f.u8()
	s.Shndx = f.u16()
	return s
}

// Encode lays the record out for class. Name is not encoded.
func (s Symbol) Encode(class Class, enc Encoding) []byte {
	buf := make([]byte, class.symbolSize())
	f := field{buf: buf, enc: enc}
	f.put(4, uint64(s.NameOff))
	if class == Class64 {
		f.put(1, uint64(s.Info))
		f.put(1, uint64(s.Other))
		f.put(2, uint64(s.Shndx))
		f.put(8, s.Value)
		f.put(8, s.Size)
		return buf
	}
	f.put(4, s.Value)
	f.put(4, s.Size)
	f.put(1, uint64(s.Info))
	f.put(1, uint64(s.Other))
	f.put(2, uint64(s.Shndx))
	return buf
}

type fileRange struct {
	off  uint64
	size int
	buf  []byte
}

// ResolveSymbols finds the symbol table and its string table, decodes the
// records and attaches each one to the section it belongs to. Only one
// SYMTAB and one STRTAB section (besides the section name table) are
// supported; a file without a symbol table is fine.
//
// Both tables are read in one forward pass, lower file offset first. If the
// two ranges overlap the second one is read on a fresh pass.
func ResolveSymbols(open Opener, h *Header, sections []SectionHeader) error {
	const op = "symbols"

	symIdx, strIdx := -1, -1
	for i := range sections {
		if i == int(h.ShStrNdx) {
			continue
		}
		switch sections[i].Type {
		case SectionSymTab:
			if symIdx >= 0 {
				return newError(op, KindMultipleSymbolTables, fmt.Errorf("sections %d and %d", symIdx, i))
			}
			symIdx = i
		case SectionStrTab:
			if strIdx >= 0 {
				return newError(op, KindMultipleStringTables, fmt.Errorf("sections %d and %d", strIdx, i))
			}
			strIdx = i
		}
	}
	if symIdx < 0 {
		return nil
	}

	recSize := h.Class.symbolSize()
	symtab := &sections[symIdx]
	if symtab.Size > maxTableSize || symtab.Size%uint64(recSize) != 0 {
		return newError(op, KindSymbolTableRead, fmt.Errorf("size %d is not a multiple of %d", symtab.Size, recSize))
	}
	sym := &fileRange{off: symtab.Offset, size: int(symtab.Size)}
	ranges := []*fileRange{sym}
	var str *fileRange
	if strIdx >= 0 {
		strtab := &sections[strIdx]
		if strtab.Size > maxTableSize {
			return newError(op, KindSymbolTableRead, fmt.Errorf("string table size %d", strtab.Size))
		}
		str = &fileRange{off: strtab.Offset, size: int(strtab.Size)}
		if str.off < sym.off {
			ranges = []*fileRange{str, sym}
		} else {
			ranges = append(ranges, str)
		}
	}
	if err := readRanges(open, ranges); err != nil {
		return err
	}

	var strBuf []byte
	if str != nil {
		strBuf = str.buf
	}
	attached := make(map[int][]Symbol)
	for off := 0; off < sym.size; off += recSize {
		s := decodeSymbol(sym.buf[off:off+recSize], h.Class, h.Data)
		s.Name = cstring(strBuf, s.NameOff)
		idx := int(s.Shndx)
		if idx != SectionIndexUndef && idx < len(sections) {
			attached[idx] = append(attached[idx], s)
		}
	}
	for idx, syms := range attached {
		sections[idx].Symbols = append(sections[idx].Symbols, syms...)
	}
	return nil
}

// readRanges fills each range in order, skipping forward between them on one
// Source and opening a new one when a range starts behind the cursor.
func readRanges(open Opener, ranges []*fileRange) error {
	const op = "symbols"

	var src Source
	var pos uint64
	defer func() {
		if src != nil {
			src.Close()
		}
	}()
	for _, r := range ranges {
		if src == nil || r.off < pos {
			if src != nil {
				src.Close()
			}
			var err error
			if src, err = open.Open(); err != nil {
				src = nil
				return newError(op, KindSymbolTableNotFound, err)
			}
			pos = 0
		}
		buf, skipErr, readErr := skipRead(src, r.off-pos, r.size)
		switch {
		case skipErr != nil:
			return newError(op, KindSymbolTableNotFound, skipErr)
		case readErr != nil:
			return newError(op, KindSymbolTableRead, readErr)
		case len(buf) != r.size:
			return newError(op, KindSymbolTableRead, fmt.Errorf("read %d of %d bytes at 0x%x", len(buf), r.size, r.off))
		}
		r.buf = buf
		pos = r.off + uint64(r.size)
	}
	return nil
}

// ReadSections runs the three section passes: table, names, symbols. Each
// pass opens its own Source.
func ReadSections(open Opener, h *Header) ([]SectionHeader, error) {
	src, err := open.Open()
	if err != nil {
		return nil, newError("section headers", KindSectionNotFound, err)
	}
	sections, err := ReadSectionHeaders(src, h)
	src.Close()
	if err != nil {
		return nil, err
	}

	if src, err = open.Open(); err != nil {
		return nil, newError("section names", KindStringTableNotFound, err)
	}
	err = ResolveSectionNames(src, h, sections)
	src.Close()
	if err != nil {
		return nil, err
	}

	if err := ResolveSymbols(open, h, sections); err != nil {
		return nil, err
	}
	return sections, nil
}
