package elf

import (
	"errors"
)

type testSection struct {
	name    string
	typ     SectionType
	flags   SectionFlag
	addr    uint64
	data    []byte
	link    uint32
	entSize uint64
}

type testSegment struct {
	ph   ProgramHeader
	data []byte
}

// testImage lays out a complete file: header, program headers, segment data,
// section data, then the section header table. Section 0 is the null
// section and the name table is appended last.
type testImage struct {
	class    Class
	enc      Encoding
	typ      Type
	machine  Machine
	entry    uint64
	segments []testSegment
	sections []testSection
	noNames  bool
}

func newTestImage(class Class, enc Encoding) *testImage {
	return &testImage{class: class, enc: enc, typ: TypeExec, machine: MachineRISCV, entry: 0x1000}
}

func (ti *testImage) build() ([]byte, *Header) {
	h := NewHeader(ti.class, ti.enc, ti.typ, ti.machine)
	h.Entry = ti.entry
	h.PhOff = uint64(ti.class.HeaderSize())
	h.PhNum = uint16(len(ti.segments))

	out := make([]byte, int(h.PhOff)+len(ti.segments)*int(h.PhEntSize))
	progs := make([]ProgramHeader, len(ti.segments))
	for i, s := range ti.segments {
		progs[i] = s.ph
		if s.data != nil {
			progs[i].Offset = uint64(len(out))
			out = append(out, s.data...)
		}
	}
	for i, p := range progs {
		copy(out[int(h.PhOff)+i*int(h.PhEntSize):], p.Encode(ti.class, ti.enc))
	}

	all := append([]testSection{{}}, ti.sections...)
	if !ti.noNames {
		all = append(all, testSection{name: ".shstrtab", typ: SectionStrTab})
	}
	names := []byte{0}
	headers := make([]SectionHeader, len(all))
	for i, s := range all {
		headers[i] = SectionHeader{Type: s.typ, Flags: s.flags, Addr: s.addr, Link: s.link, EntSize: s.entSize}
		if s.name != "" {
			headers[i].NameOff = uint32(len(names))
			names = append(names, s.name...)
			names = append(names, 0)
		}
	}
	for i, s := range all {
		data := s.data
		if !ti.noNames && i == len(all)-1 {
			data = names
		}
		if s.typ == SectionNull {
			continue
		}
		headers[i].Offset = uint64(len(out))
		headers[i].Size = uint64(len(data))
		out = append(out, data...)
	}
	for len(out)%4 != 0 {
		out = append(out, 0)
	}

	h.ShOff = uint64(len(out))
	h.ShNum = uint16(len(headers))
	if !ti.noNames {
		h.ShStrNdx = uint16(len(headers) - 1)
	}
	for i := range headers {
		out = append(out, headers[i].Encode(ti.class, ti.enc)...)
	}
	copy(out, h.Encode())
	return out, h
}

// stringTable returns a table starting with the empty string and the offset
// of every name.
func stringTable(names ...string) ([]byte, []uint32) {
	tab := []byte{0}
	offs := make([]uint32, len(names))
	for i, n := range names {
		offs[i] = uint32(len(tab))
		tab = append(tab, n...)
		tab = append(tab, 0)
	}
	return tab, offs
}

func symbolTable(class Class, enc Encoding, syms ...Symbol) []byte {
	var out []byte
	for _, s := range syms {
		out = append(out, s.Encode(class, enc)...)
	}
	return out
}

// countingOpener records how many passes were opened and how many bytes
// were read through them.
type countingOpener struct {
	op    Opener
	opens int
	reads int
	bytes int
}

func (c *countingOpener) Open() (Source, error) {
	src, err := c.op.Open()
	if err != nil {
		return nil, err
	}
	c.opens++
	return &countingSource{Source: src, c: c}, nil
}

type countingSource struct {
	Source
	c *countingOpener
}

func (s *countingSource) Read(p []byte) (int, error) {
	n, err := s.Source.Read(p)
	s.c.reads++
	s.c.bytes += n
	return n, err
}

var errBroken = errors.New("broken source")

// brokenSource fails every read.
type brokenSource struct{}

func (brokenSource) Skip(uint64) error          { return nil }
func (brokenSource) Read(p []byte) (int, error) { return 0, errBroken }
func (brokenSource) Close() error               { return nil }
