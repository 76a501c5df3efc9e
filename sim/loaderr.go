package sim

import (
	"fmt"

	"rvsoc/elf"
)

// LoadKind says which loader step refused the file.
type LoadKind int

const (
	HeaderError LoadKind = iota + 1
	ArchitectureError
	NotExecutableError
	EndianMismatchError
	ProgramHeaderError
	SectionHeaderError
	NotSupportedYetError
	TooBigError
	ReadError
	SizeError
	MemoryLoadError
)

var loadKindNames = map[LoadKind]string{
	HeaderError:          "HeaderError",
	ArchitectureError:    "ArchitectureError",
	NotExecutableError:   "NotExecutableError",
	EndianMismatchError:  "EndianMismatchError",
	ProgramHeaderError:   "ProgramHeaderError",
	SectionHeaderError:   "SectionHeaderError",
	NotSupportedYetError: "NotSupportedYetError",
	TooBigError:          "TooBigError",
	ReadError:            "ReadError",
	SizeError:            "SizeError",
	MemoryLoadError:      "MemoryLoadError",
}

func (k LoadKind) String() string {
	if s, ok := loadKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("LoadKind(%d)", int(k))
}

// Category classifies the kind. Header, program and section failures take
// the category of the decode error underneath.
func (k LoadKind) Category() elf.Category {
	switch k {
	case ArchitectureError, NotExecutableError, EndianMismatchError, NotSupportedYetError:
		return elf.CategoryPolicy
	case TooBigError:
		return elf.CategoryCapacity
	case ReadError, SizeError:
		return elf.CategoryIO
	case MemoryLoadError:
		return elf.CategoryTarget
	}
	return elf.CategoryStructural
}

// LoadError is the single error a failed load reports. Msg is meant to be
// shown to the user as is.
type LoadError struct {
	Kind LoadKind
	Msg  string

	// Start and End bound the segment a MemoryLoadError was writing, both
	// inclusive.
	Start, End uint64

	Err error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *LoadError) Unwrap() error { return e.Err }

// Category prefers the decode error's own category for the three decode
// stages so a truncated file reads as I/O, not structure.
func (e *LoadError) Category() elf.Category {
	switch e.Kind {
	case HeaderError, ProgramHeaderError, SectionHeaderError:
		if k := elf.KindOf(e.Err); k != elf.KindNone {
			return k.Category()
		}
	}
	return e.Kind.Category()
}
