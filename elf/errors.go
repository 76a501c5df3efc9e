package elf

import (
	"errors"
	"fmt"
)

// Kind identifies why a decode stage stopped.
type Kind uint8

const (
	KindNone Kind = iota

	// identification + header
	KindReadFile
	KindIdentSize
	KindMagic
	KindClass
	KindData
	KindHeaderSize

	// program header table
	KindProgramNotFound
	KindProgramRead
	KindProgramSize

	// section header table, names and symbols
	KindSectionNotFound
	KindSectionRead
	KindSectionSize
	KindStringTableIndex
	KindStringTableType
	KindStringTableNotFound
	KindStringTableRead
	KindMultipleSymbolTables
	KindMultipleStringTables
	KindSymbolTableNotFound
	KindSymbolTableRead
)

var kindText = map[Kind]string{
	KindNone:                 "no error",
	KindReadFile:             "error reading file",
	KindIdentSize:            "identification block too short",
	KindMagic:                "not an ELF file (bad magic)",
	KindClass:                "unsupported ELF class",
	KindData:                 "unsupported ELF data encoding",
	KindHeaderSize:           "incorrect ELF header size",
	KindProgramNotFound:      "program header table not found",
	KindProgramRead:          "error reading program header table",
	KindProgramSize:          "program header table truncated",
	KindSectionNotFound:      "section header table not found",
	KindSectionRead:          "error reading section header table",
	KindSectionSize:          "section header table truncated",
	KindStringTableIndex:     "section name string table index out of range",
	KindStringTableType:      "section name string table has wrong type",
	KindStringTableNotFound:  "section name string table not found",
	KindStringTableRead:      "error reading section name string table",
	KindMultipleSymbolTables: "multiple symbol tables are not supported",
	KindMultipleStringTables: "multiple string tables are not supported",
	KindSymbolTableNotFound:  "symbol table not found",
	KindSymbolTableRead:      "error reading symbol table",
}

func (k Kind) String() string {
	if s, ok := kindText[k]; ok {
		return s
	}
	return fmt.Sprintf("elf.Kind(%d)", uint8(k))
}

// Category groups kinds the way callers report them.
type Category uint8

const (
	CategoryNone Category = iota
	CategoryIO
	CategoryStructural
	CategoryPolicy
	CategoryCapacity
	CategoryTarget
)

func (c Category) String() string {
	switch c {
	case CategoryIO:
		return "io"
	case CategoryStructural:
		return "structural"
	case CategoryPolicy:
		return "policy"
	case CategoryCapacity:
		return "capacity"
	case CategoryTarget:
		return "target"
	}
	return "none"
}

// Category reports whether the kind came from the byte source or from the
// contents that were read. Decode stages never produce policy, capacity or
// target errors; those belong to the loader.
func (k Kind) Category() Category {
	switch k {
	case KindNone:
		return CategoryNone
	case KindReadFile, KindIdentSize,
		KindProgramNotFound, KindProgramRead,
		KindSectionNotFound, KindSectionRead,
		KindStringTableNotFound, KindStringTableRead,
		KindSymbolTableNotFound:
		return CategoryIO
	}
	return CategoryStructural
}

// Error is returned by every decode stage.
type Error struct {
	Kind Kind
	Op   string // stage that failed, e.g. "header"
	Err  error  // underlying I/O error, if any
}

func (e *Error) Error() string {
	s := e.Op + ": " + e.Kind.String()
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same Kind, so callers can write
// errors.Is(err, &elf.Error{Kind: elf.KindMagic}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind carried by err, or KindNone.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNone
}

func newError(op string, k Kind, err error) *Error {
	return &Error{Kind: k, Op: op, Err: err}
}
