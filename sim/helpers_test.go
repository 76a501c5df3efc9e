package sim

import (
	"rvsoc/elf"
)

type segment struct {
	ph   elf.ProgramHeader
	data []byte
}

type symbol struct {
	name  string
	value uint64
}

// program lays out header, program headers and segment data. When syms is
// set it appends .text, .symtab, .strtab and .shstrtab sections, with every
// symbol placed in .text.
type program struct {
	class   elf.Class
	enc     elf.Encoding
	typ     elf.Type
	machine elf.Machine
	entry   uint64
	segs    []segment
	syms    []symbol
}

func riscvProgram(segs ...segment) *program {
	return &program{
		class:   elf.Class32,
		enc:     elf.LittleEndian,
		typ:     elf.TypeExec,
		machine: elf.MachineRISCV,
		entry:   0x1000,
		segs:    segs,
	}
}

// load is a LOAD segment at paddr. FileSize defaults to len(data).
func load(paddr, memsz uint64, data ...byte) segment {
	return segment{
		ph: elf.ProgramHeader{
			Type:     elf.ProgLoad,
			Flags:    elf.ProgFlagR | elf.ProgFlagX,
			VAddr:    paddr,
			PAddr:    paddr,
			FileSize: uint64(len(data)),
			MemSize:  memsz,
		},
		data: data,
	}
}

func (p *program) build() []byte {
	h := elf.NewHeader(p.class, p.enc, p.typ, p.machine)
	h.Entry = p.entry
	h.PhOff = uint64(p.class.HeaderSize())
	h.PhNum = uint16(len(p.segs))

	out := make([]byte, int(h.PhOff)+len(p.segs)*int(h.PhEntSize))
	for i, s := range p.segs {
		ph := s.ph
		if s.data != nil {
			ph.Offset = uint64(len(out))
			out = append(out, s.data...)
		}
		copy(out[int(h.PhOff)+i*int(h.PhEntSize):], ph.Encode(p.class, p.enc))
	}

	if len(p.syms) > 0 {
		out = p.appendSections(h, out)
	}
	copy(out, h.Encode())
	return out
}

func (p *program) appendSections(h *elf.Header, out []byte) []byte {
	strtab := []byte{0}
	symtab := elf.Symbol{}.Encode(p.class, p.enc)
	for _, s := range p.syms {
		sym := elf.Symbol{
			NameOff: uint32(len(strtab)),
			Value:   s.value,
			Info:    byte(elf.SymbolGlobal)<<4 | byte(elf.SymbolFunc),
			Shndx:   1,
		}
		strtab = append(append(strtab, s.name...), 0)
		symtab = append(symtab, sym.Encode(p.class, p.enc)...)
	}
	shstrtab := []byte("\x00.text\x00.symtab\x00.strtab\x00.shstrtab\x00")

	var text elf.SectionHeader
	if len(p.segs) > 0 {
		text.Addr = p.segs[0].ph.VAddr
		text.Size = p.segs[0].ph.FileSize
	}
	sections := []elf.SectionHeader{
		{},
		{NameOff: 1, Type: elf.SectionProgBits, Flags: elf.SectionFlagAlloc | elf.SectionFlagExecInstr, Addr: text.Addr, Size: text.Size},
		{NameOff: 7, Type: elf.SectionSymTab, Link: 3},
		{NameOff: 15, Type: elf.SectionStrTab},
		{NameOff: 23, Type: elf.SectionStrTab},
	}
	for i, data := range [][]byte{symtab, strtab, shstrtab} {
		sections[i+2].Offset = uint64(len(out))
		sections[i+2].Size = uint64(len(data))
		out = append(out, data...)
	}
	for len(out)%4 != 0 {
		out = append(out, 0)
	}

	h.ShOff = uint64(len(out))
	h.ShNum = uint16(len(sections))
	h.ShStrNdx = 4
	for i := range sections {
		out = append(out, sections[i].Encode(p.class, p.enc)...)
	}
	return out
}

type write struct {
	addr uint32
	v    uint8
}

// recordBus remembers every accepted write and refuses the one at failAt.
type recordBus struct {
	writes []write
	fail   bool
	failAt uint32
}

func (b *recordBus) Write8(addr uint32, v uint8) bool {
	if b.fail && addr == b.failAt {
		return false
	}
	b.writes = append(b.writes, write{addr, v})
	return true
}

type target struct {
	calls int
	entry uint32
	img   *elf.Image
}

func (t *target) SetEntryAndReset(entry uint32, img *elf.Image) {
	t.calls++
	t.entry = entry
	t.img = img
}

type countingOpener struct {
	op    elf.Opener
	opens int
}

func (c *countingOpener) Open() (elf.Source, error) {
	c.opens++
	return c.op.Open()
}
