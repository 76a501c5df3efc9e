// Package elf decodes ELF identification blocks, file headers, program and
// section header tables and the symbol table. Every stage reads from its own
// forward-only Source, so a file is never held in memory as a whole.
package elf

import "fmt"

const (
	IdentSize    = 0x10
	HeaderSize32 = 0x34
	HeaderSize64 = 0x40
)

var magic = [4]byte{0x7F, 'E', 'L', 'F'}

// Class is the EI_CLASS byte: the address width of every later structure.
type Class uint8

const (
	Class32 Class = 1
	Class64 Class = 2
)

func (c Class) String() string {
	switch c {
	case Class32:
		return "ELF32"
	case Class64:
		return "ELF64"
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

func (c Class) valid() bool { return c == Class32 || c == Class64 }

// HeaderSize is the fixed file header size for the class.
func (c Class) HeaderSize() int {
	if c == Class64 {
		return HeaderSize64
	}
	return HeaderSize32
}

// word is the width of addresses and offsets.
func (c Class) word() int {
	if c == Class64 {
		return 8
	}
	return 4
}

// Type is e_type.
type Type uint16

const (
	TypeNone   Type = 0
	TypeRel    Type = 1
	TypeExec   Type = 2
	TypeDyn    Type = 3
	TypeCore   Type = 4
	TypeLoOS   Type = 0xFE00
	TypeHiOS   Type = 0xFEFF
	TypeLoProc Type = 0xFF00
	TypeHiProc Type = 0xFFFF
)

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "NONE"
	case TypeRel:
		return "REL"
	case TypeExec:
		return "EXEC"
	case TypeDyn:
		return "DYN"
	case TypeCore:
		return "CORE"
	}
	switch {
	case t >= TypeLoOS && t <= TypeHiOS:
		return fmt.Sprintf("OS(0x%04x)", uint16(t))
	case t >= TypeLoProc:
		return fmt.Sprintf("PROC(0x%04x)", uint16(t))
	}
	return fmt.Sprintf("type(%d)", uint16(t))
}

// Machine is e_machine.
type Machine uint16

const (
	MachineNone     Machine = 0
	MachineOpenRISC Machine = 92
	MachineNios2    Machine = 113
	MachineRISCV    Machine = 243
)

var machineNames = map[Machine]string{
	MachineOpenRISC: "Open Risc",
	MachineNios2:    "Nios II",
	MachineRISCV:    "Risc V",
}

// String names the architectures the simulator knows; everything else is
// "unknown".
func (m Machine) String() string {
	if s, ok := machineNames[m]; ok {
		return s
	}
	return "unknown"
}

// Ident is the 16-byte identification block.
type Ident struct {
	Magic      [4]byte
	Class      Class
	Data       Encoding
	Version    uint8
	OSABI      uint8
	ABIVersion uint8
	Pad        [7]byte
}

func (id *Ident) encode(buf []byte) {
	copy(buf[0:4], id.Magic[:])
	buf[4] = byte(id.Class)
	buf[5] = byte(id.Data)
	buf[6] = id.Version
	buf[7] = id.OSABI
	buf[8] = id.ABIVersion
	copy(buf[9:IdentSize], id.Pad[:])
}

func decodeIdent(buf []byte) Ident {
	var id Ident
	copy(id.Magic[:], buf[0:4])
	id.Class = Class(buf[4])
	id.Data = Encoding(buf[5])
	id.Version = buf[6]
	id.OSABI = buf[7]
	id.ABIVersion = buf[8]
	copy(id.Pad[:], buf[9:IdentSize])
	return id
}

// Header is the decoded file header. It is never modified after ReadHeader
// returns it.
type Header struct {
	Ident

	Type      Type
	Machine   Machine
	Version   uint32
	Entry     uint64
	PhOff     uint64
	ShOff     uint64
	Flags     uint32
	EhSize    uint16
	PhEntSize uint16
	PhNum     uint16
	ShEntSize uint16
	ShNum     uint16
	ShStrNdx  uint16
}

// Field names a header value for Header.Value.
type Field int

const (
	FieldClass Field = iota
	FieldData
	FieldIdentVersion
	FieldOSABI
	FieldABIVersion
	FieldType
	FieldMachine
	FieldVersion
	FieldEntry
	FieldPhOff
	FieldShOff
	FieldFlags
	FieldEhSize
	FieldPhEntSize
	FieldPhNum
	FieldShEntSize
	FieldShNum
	FieldShStrNdx
)

// Value returns a header field by identifier. Unknown identifiers give 0.
func (h *Header) Value(f Field) uint64 {
	switch f {
	case FieldClass:
		return uint64(h.Class)
	case FieldData:
		return uint64(h.Data)
	case FieldIdentVersion:
		return uint64(h.Ident.Version)
	case FieldOSABI:
		return uint64(h.OSABI)
	case FieldABIVersion:
		return uint64(h.ABIVersion)
	case FieldType:
		return uint64(h.Type)
	case FieldMachine:
		return uint64(h.Machine)
	case FieldVersion:
		return uint64(h.Version)
	case FieldEntry:
		return h.Entry
	case FieldPhOff:
		return h.PhOff
	case FieldShOff:
		return h.ShOff
	case FieldFlags:
		return uint64(h.Flags)
	case FieldEhSize:
		return uint64(h.EhSize)
	case FieldPhEntSize:
		return uint64(h.PhEntSize)
	case FieldPhNum:
		return uint64(h.PhNum)
	case FieldShEntSize:
		return uint64(h.ShEntSize)
	case FieldShNum:
		return uint64(h.ShNum)
	case FieldShStrNdx:
		return uint64(h.ShStrNdx)
	}
	return 0
}

// Is32 reports whether the file uses the 32-bit layouts.
func (h *Header) Is32() bool { return h.Class == Class32 }

// ReadHeader decodes the identification block and file header from src,
// which must be positioned at the start of the file. The identification is
// checked magic first, then class, then encoding; the first failure returns
// without reading further.
func ReadHeader(src Source) (*Header, error) {
	const op = "header"

	ident := make([]byte, IdentSize)
	n, err := src.Read(ident)
	if err != nil {
		return nil, newError(op, KindReadFile, err)
	}
	if n != IdentSize {
		return nil, newError(op, KindIdentSize, fmt.Errorf("read %d of %d bytes", n, IdentSize))
	}

	id := decodeIdent(ident)
	if id.Magic != magic {
		return nil, newError(op, KindMagic, nil)
	}
	if !id.Class.valid() {
		return nil, newError(op, KindClass, fmt.Errorf("class %d", uint8(id.Class)))
	}
	if !id.Data.valid() {
		return nil, newError(op, KindData, fmt.Errorf("encoding %d", uint8(id.Data)))
	}

	size := id.Class.HeaderSize()
	rest := make([]byte, size-IdentSize)
	n, err = src.Read(rest)
	if err != nil {
		return nil, newError(op, KindReadFile, err)
	}
	if n != len(rest) {
		return nil, newError(op, KindHeaderSize, fmt.Errorf("read %d of %d bytes", n, len(rest)))
	}

	h := &Header{Ident: id}
	w := id.Class.word()
	f := field{buf: rest, enc: id.Data}
	h.Type = Type(f.u16())
	h.Machine = Machine(f.u16())
	h.Version = f.u32()
	h.Entry = f.u(w)
	h.PhOff = f.u(w)
	h.ShOff = f.u(w)
	h.Flags = f.u32()
	h.EhSize = f.u16()
	h.PhEntSize = f.u16()
	h.PhNum = f.u16()
	h.ShEntSize = f.u16()
	h.ShNum = f.u16()
	h.ShStrNdx = f.u16()

	if int(h.EhSize) != size {
		return nil, newError(op, KindHeaderSize, fmt.Errorf("e_ehsize %d, want %d", h.EhSize, size))
	}
	return h, nil
}

// Encode writes the identification block and header fields back out in the
// header's own class and byte order.
func (h *Header) Encode() []byte {
	buf := make([]byte, h.Class.HeaderSize())
	h.Ident.encode(buf)
	w := h.Class.word()
	f := field{buf: buf, off: IdentSize, enc: h.Data}
	f.put(2, uint64(h.Type))
	f.put(2, uint64(h.Machine))
	f.put(4, uint64(h.Version))
	f.put(w, h.Entry)
	f.put(w, h.PhOff)
	f.put(w, h.ShOff)
	f.put(4, uint64(h.Flags))
	f.put(2, uint64(h.EhSize))
	f.put(2, uint64(h.PhEntSize))
	f.put(2, uint64(h.PhNum))
	f.put(2, uint64(h.ShEntSize))
	f.put(2, uint64(h.ShNum))
	f.put(2, uint64(h.ShStrNdx))
	return buf
}

// NewHeader returns a header with a valid identification block and the size
// fields filled in for class, ready for Encode.
func NewHeader(class Class, enc Encoding, typ Type, machine Machine) *Header {
	h := &Header{
		Ident: Ident{
			Magic:   magic,
			Class:   class,
			Data:    enc,
			Version: 1,
		},
		Type:    typ,
		Machine: machine,
		Version: 1,
		EhSize:  uint16(class.HeaderSize()),
	}
	h.PhEntSize = uint16(class.programEntrySize())
	h.ShEntSize = uint16(class.sectionEntrySize())
	return h
}
