package elf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readPrograms(t *testing.T, data []byte, h *Header) ([]ProgramHeader, error) {
	t.Helper()
	src, err := BytesOpener(data).Open()
	require.NoError(t, err)
	defer src.Close()
	return ReadProgramHeaders(src, h)
}

var sampleProgram = ProgramHeader{
	Type:     ProgLoad,
	Flags:    ProgFlagR | ProgFlagX,
	Offset:   0x11,
	VAddr:    0x22,
	PAddr:    0x33,
	FileSize: 0x44,
	MemSize:  0x55,
	Align:    0x66,
}

func TestProgramFieldOrder32(t *testing.T) {
	raw := sampleProgram.Encode(Class32, LittleEndian)
	require.Len(t, raw, 32)
	// type offset vaddr paddr filesz memsz flags align
	want := []uint32{1, 0x11, 0x22, 0x33, 0x44, 0x55, 5, 0x66}
	for i, w := range want {
		assert.Equal(t, w, Uint32(raw, 4*i, 4, LittleEndian), "word %d", i)
	}
}

func TestProgramFieldOrder64(t *testing.T) {
	raw := sampleProgram.Encode(Class64, BigEndian)
	require.Len(t, raw, 56)
	// type flags offset vaddr paddr filesz memsz align
	assert.Equal(t, uint32(1), Uint32(raw, 0, 4, BigEndian))
	assert.Equal(t, uint32(5), Uint32(raw, 4, 4, BigEndian))
	want := []uint64{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}
	for i, w := range want {
		assert.Equal(t, w, Uint64(raw, 8+8*i, 8, BigEndian), "dword %d", i)
	}
}

func TestReadProgramHeaders(t *testing.T) {
	for _, class := range []Class{Class32, Class64} {
		for _, enc := range []Encoding{LittleEndian, BigEndian} {
			ti := newTestImage(class, enc)
			ti.segments = []testSegment{
				{ph: ProgramHeader{Type: ProgPhdr, Flags: ProgFlagR}},
				{ph: ProgramHeader{Type: ProgLoad, Flags: ProgFlagR | ProgFlagX, VAddr: 0x1000, PAddr: 0x1000, FileSize: 4, MemSize: 8, Align: 4}, data: []byte{1, 2, 3, 4}},
				{ph: ProgramHeader{Type: ProgNote, Flags: ProgFlagR}},
			}
			raw, h := ti.build()

			progs, err := readPrograms(t, raw, h)
			require.NoError(t, err, "%s %s", class, enc)
			require.Len(t, progs, 3)
			assert.Equal(t, ProgPhdr, progs[0].Type)
			assert.Equal(t, ProgNote, progs[2].Type)

			load := progs[1]
			assert.Equal(t, ProgLoad, load.Type)
			assert.Equal(t, ProgFlagR|ProgFlagX, load.Flags)
			assert.Equal(t, uint64(0x1000), load.PAddr)
			assert.Equal(t, uint64(4), load.FileSize)
			assert.Equal(t, uint64(8), load.MemSize)
			assert.Equal(t, []byte{1, 2, 3, 4}, raw[load.Offset:load.Offset+4])
		}
	}
}

func TestReadProgramHeadersErrors(t *testing.T) {
	ti := newTestImage(Class32, LittleEndian)
	ti.segments = []testSegment{{ph: ProgramHeader{Type: ProgLoad}}, {ph: ProgramHeader{Type: ProgLoad}}}
	raw, h := ti.build()

	_, err := readPrograms(t, raw[:int(h.PhOff)+40], h)
	assert.Equal(t, KindProgramSize, KindOf(err))

	far := *h
	far.PhOff = uint64(len(raw) + 1)
	_, err = readPrograms(t, raw, &far)
	assert.Equal(t, KindProgramNotFound, KindOf(err))

	_, err = ReadProgramHeaders(brokenSource{}, h)
	assert.Equal(t, KindProgramRead, KindOf(err))
	assert.Equal(t, CategoryIO, KindOf(err).Category())
}

func TestReadProgramHeadersEmpty(t *testing.T) {
	raw, h := newTestImage(Class32, LittleEndian).build()
	progs, err := readPrograms(t, raw, h)
	require.NoError(t, err)
	assert.Empty(t, progs)
}

func TestProgFlagString(t *testing.T) {
	assert.Equal(t, "R E", (ProgFlagR | ProgFlagX).String())
	assert.Equal(t, "RW ", (ProgFlagR | ProgFlagW).String())
	assert.Equal(t, "LOAD", ProgLoad.String())
}

func TestReadProgramHeadersSizeLimits(t *testing.T) {
	h := NewHeader(Class32, LittleEndian, TypeExec, MachineRISCV)
	h.PhOff = HeaderSize32
	raw := h.Encode()

	h.PhNum = 2
	h.PhEntSize = 0
	_, err := readPrograms(t, raw, h)
	assert.Equal(t, KindProgramSize, KindOf(err))

	h.PhEntSize = 0x1F
	_, err = readPrograms(t, raw, h)
	assert.Equal(t, KindProgramSize, KindOf(err), "below the 32-bit entry size")

	h.PhNum = 0xFFFF
	h.PhEntSize = 0xFFFF
	_, err = readPrograms(t, raw, h)
	assert.Equal(t, KindProgramSize, KindOf(err))
}
