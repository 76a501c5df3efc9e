package sim

import (
	"fmt"
	"io"
	"math"

	"rvsoc/elf"
)

// MemoryBus accepts single-byte write transactions.
type MemoryBus interface {
	Write8(addr uint32, v uint8) bool
}

// TxBus is a MemoryBus that can undo the writes made since Begin.
type TxBus interface {
	MemoryBus
	Begin()
	Commit()
	Rollback()
}

// Processor is told where the loaded program starts.
type Processor interface {
	SetEntryAndReset(entry uint32, img *elf.Image)
}

// LoadState tracks how far a Loader got.
type LoadState int

const (
	StateUnopened LoadState = iota
	StateHeaderValidated
	StateArchitectureChecked
	StateTypeChecked
	StateEndianChecked
	StateProgramHeadersValidated
	StateSectionHeadersValidated
	StateReady
	StateLoading
	StateLoaded
	StateFailed
)

var loadStateNames = [...]string{
	"Unopened", "HeaderValidated", "ArchitectureChecked", "TypeChecked",
	"EndianChecked", "ProgramHeadersValidated", "SectionHeadersValidated",
	"Ready", "Loading", "Loaded", "Failed",
}

func (s LoadState) String() string {
	if s >= 0 && int(s) < len(loadStateNames) {
		return loadStateNames[s]
	}
	return fmt.Sprintf("LoadState(%d)", int(s))
}

// DefaultMaxSegment bounds the bytes a single segment may occupy.
const DefaultMaxSegment = math.MaxInt32

// Loader validates an ELF file step by step and copies its LOAD segments
// onto Bus. The checks run strictly in order and the first failure ends the
// load; nothing is retried.
type Loader struct {
	Open   elf.Opener
	Arch   elf.Machine
	Order  elf.Encoding
	Bus    MemoryBus
	Target Processor

	// MaxSegment caps file and memory size per segment; 0 means
	// DefaultMaxSegment.
	MaxSegment uint64

	// Atomic wraps every segment in a Begin/Commit pair and rolls the
	// segment back on a failed write, when Bus implements TxBus. Without
	// it, bytes written before a failure stay in memory.
	Atomic bool

	// Log receives one line per step. nil disables logging.
	Log io.Writer

	state LoadState
	err   *LoadError
	image *elf.Image
}

func (l *Loader) State() LoadState { return l.state }

// Err is the failure that stopped the last Load, or nil.
func (l *Loader) Err() *LoadError { return l.err }

// Image is whatever the last Load managed to decode. It is set once the
// section headers are validated, even if loading is later refused.
func (l *Loader) Image() *elf.Image { return l.image }

func (l *Loader) logf(format string, args ...any) {
	if l.Log != nil {
		fmt.Fprintf(l.Log, "[elf] "+format+"\n", args...)
	}
}

func (l *Loader) enter(s LoadState) {
	l.state = s
	l.logf("state %s", s)
}

func (l *Loader) fail(e *LoadError) error {
	l.state = StateFailed
	l.err = e
	l.logf("failed: %s", e.Kind)
	return e
}

// Load runs the whole pipeline and, on success, resets Target at the entry
// point. It returns the decoded image.
func (l *Loader) Load() (*elf.Image, error) {
	l.state, l.err, l.image = StateUnopened, nil, nil

	h, err := l.readHeader()
	if err != nil {
		return nil, l.fail(&LoadError{Kind: HeaderError, Msg: "invalid ELF header", Err: err})
	}
	l.enter(StateHeaderValidated)

	if h.Machine != l.Arch {
		return nil, l.fail(&LoadError{
			Kind: ArchitectureError,
			Msg: fmt.Sprintf("ELF file is built for %s (%d), processor is %s (%d)",
				h.Machine, uint16(h.Machine), l.Arch, uint16(l.Arch)),
		})
	}
	l.enter(StateArchitectureChecked)

	if h.Type != elf.TypeExec {
		return nil, l.fail(&LoadError{
			Kind: NotExecutableError,
			Msg:  fmt.Sprintf("ELF file is not executable (type %s)", h.Type),
		})
	}
	l.enter(StateTypeChecked)

	if h.Data != l.Order {
		return nil, l.fail(&LoadError{
			Kind: EndianMismatchError,
			Msg:  fmt.Sprintf("ELF file is %s, processor is %s", h.Data, l.Order),
		})
	}
	l.enter(StateEndianChecked)

	progs, err := l.readProgramHeaders(h)
	if err != nil {
		return nil, l.fail(&LoadError{Kind: ProgramHeaderError, Msg: "invalid program header table", Err: err})
	}
	l.enter(StateProgramHeadersValidated)

	sections, err := elf.ReadSections(l.Open, h)
	if err != nil {
		return nil, l.fail(&LoadError{Kind: SectionHeaderError, Msg: "invalid section header table", Err: err})
	}
	l.image = &elf.Image{Header: h, Programs: progs, Sections: sections}
	l.enter(StateSectionHeadersValidated)

	if !h.Is32() {
		return nil, l.fail(&LoadError{
			Kind: NotSupportedYetError,
			Msg:  fmt.Sprintf("loading %s files is not supported yet", h.Class),
		})
	}
	l.enter(StateReady)

	for i, p := range progs {
		if p.Type != elf.ProgLoad {
			continue
		}
		l.state = StateLoading
		l.logf("segment %d: paddr=0x%08x filesz=0x%x memsz=0x%x", i, p.PAddr, p.FileSize, p.MemSize)
		if err := l.loadSegment(p); err != nil {
			return nil, l.fail(err)
		}
	}

	l.Target.SetEntryAndReset(elf.Narrow(h.Entry), l.image)
	l.enter(StateLoaded)
	return l.image, nil
}

func (l *Loader) readHeader() (*elf.Header, error) {
	src, err := l.Open.Open()
	if err != nil {
		return nil, &elf.Error{Kind: elf.KindReadFile, Op: "header", Err: err}
	}
	defer src.Close()
	return elf.ReadHeader(src)
}

func (l *Loader) readProgramHeaders(h *elf.Header) ([]elf.ProgramHeader, error) {
	src, err := l.Open.Open()
	if err != nil {
		return nil, &elf.Error{Kind: elf.KindProgramNotFound, Op: "program headers", Err: err}
	}
	defer src.Close()
	return elf.ReadProgramHeaders(src, h)
}

func (l *Loader) maxSegment() uint64 {
	if l.MaxSegment == 0 {
		return DefaultMaxSegment
	}
	return l.MaxSegment
}

// loadSegment reads the file bytes of p on a fresh pass and writes MemSize
// bytes starting at PAddr, zero past FileSize.
func (l *Loader) loadSegment(p elf.ProgramHeader) *LoadError {
	if limit := l.maxSegment(); p.FileSize > limit || p.MemSize > limit {
		return &LoadError{
			Kind: TooBigError,
			Msg:  fmt.Sprintf("segment at 0x%08x too big (filesz 0x%x, memsz 0x%x, limit 0x%x)", p.PAddr, p.FileSize, p.MemSize, limit),
		}
	}
	if p.MemSize < p.FileSize {
		return &LoadError{
			Kind: SizeError,
			Msg:  fmt.Sprintf("segment at 0x%08x: memsz 0x%x smaller than filesz 0x%x", p.PAddr, p.MemSize, p.FileSize),
		}
	}

	data, lerr := l.readSegment(p)
	if lerr != nil {
		return lerr
	}
	if p.MemSize == 0 {
		return nil
	}

	start, end := p.PAddr, p.PAddr+p.MemSize-1
	memErr := func(at uint64) *LoadError {
		return &LoadError{
			Kind:  MemoryLoadError,
			Msg:   fmt.Sprintf("memory write failed at 0x%08x while loading [0x%08x,0x%08x]", at, start, end),
			Start: start,
			End:   end,
		}
	}
	if end > math.MaxUint32 {
		return memErr(math.MaxUint32 + 1)
	}

	tx, atomic := l.Bus.(TxBus)
	atomic = atomic && l.Atomic
	if atomic {
		tx.Begin()
	}
	for j := uint64(0); j < p.MemSize; j++ {
		var v uint8
		if j < p.FileSize {
			v = data[j]
		}
		if !l.Bus.Write8(uint32(start+j), v) {
			if atomic {
				tx.Rollback()
				l.logf("rolled back [0x%08x,0x%08x)", start, start+j)
			}
			return memErr(start + j)
		}
	}
	if atomic {
		tx.Commit()
	}
	return nil
}

func (l *Loader) readSegment(p elf.ProgramHeader) ([]byte, *LoadError) {
	readErr := func(err error) *LoadError {
		return &LoadError{Kind: ReadError, Msg: fmt.Sprintf("cannot read segment at file offset 0x%x", p.Offset), Err: err}
	}
	if p.FileSize == 0 {
		return nil, nil
	}
	src, err := l.Open.Open()
	if err != nil {
		return nil, readErr(err)
	}
	defer src.Close()
	if p.Offset > 0 {
		if err := src.Skip(p.Offset); err != nil {
			return nil, readErr(err)
		}
	}
	data, err := elf.ReadN(src, int(p.FileSize))
	if err != nil {
		return nil, readErr(err)
	}
	if uint64(len(data)) != p.FileSize {
		return nil, &LoadError{
			Kind: SizeError,
			Msg:  fmt.Sprintf("segment at file offset 0x%x: read %d of %d bytes", p.Offset, len(data), p.FileSize),
		}
	}
	return data, nil
}

// LoadELF loads a little-endian RISC-V executable from path onto bus and
// starts cpu at its entry point.
func LoadELF(path string, bus MemoryBus, cpu Processor) (*elf.Image, error) {
	l := &Loader{
		Open:   elf.FileOpener(path),
		Arch:   elf.MachineRISCV,
		Order:  elf.LittleEndian,
		Bus:    bus,
		Target: cpu,
	}
	return l.Load()
}
