package elf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkSource(t *testing.T, op Opener) {
	t.Helper()

	src, err := op.Open()
	require.NoError(t, err)
	require.NoError(t, src.Skip(2))
	buf := make([]byte, 3)
	n, err := src.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{2, 3, 4}, buf)

	// short read at the end is not an error
	buf = make([]byte, 8)
	n, err = src.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 6, 7}, buf[:n])
	require.NoError(t, src.Close())

	_, err = src.Read(buf)
	assert.ErrorIs(t, err, errClosed)

	// every pass starts over at offset 0
	src, err = op.Open()
	require.NoError(t, err)
	err = src.Skip(9)
	assert.True(t, errors.Is(err, errSkipPastEnd), "got %v", err)
	require.NoError(t, src.Close())

	src, err = op.Open()
	require.NoError(t, err)
	require.NoError(t, src.Skip(8), "skipping to the end is fine")
	n, err = src.Read(buf)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, src.Close())
}

var sourceData = []byte{0, 1, 2, 3, 4, 5, 6, 7}

func TestBytesSource(t *testing.T) {
	checkSource(t, BytesOpener(sourceData))
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, sourceData, 0o644))
	checkSource(t, FileOpener(path))

	_, err := FileOpener(filepath.Join(t.TempDir(), "nope")).Open()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSkipRead(t *testing.T) {
	src, _ := BytesOpener(sourceData).Open()
	buf, skipErr, readErr := skipRead(src, 6, 4)
	require.NoError(t, skipErr)
	require.NoError(t, readErr)
	assert.Equal(t, []byte{6, 7}, buf)

	src, _ = BytesOpener(sourceData).Open()
	_, skipErr, _ = skipRead(src, 20, 1)
	assert.Error(t, skipErr)

	_, skipErr, readErr = skipRead(brokenSource{}, 0, 1)
	assert.NoError(t, skipErr)
	assert.ErrorIs(t, readErr, errBroken)
}

func TestReadNFollowsData(t *testing.T) {
	src, _ := BytesOpener(make([]byte, 36)).Open()
	buf, err := ReadN(src, 1<<30)
	require.NoError(t, err)
	assert.Len(t, buf, 36)
	assert.LessOrEqual(t, cap(buf), readChunk)

	data := make([]byte, 3*readChunk+5)
	for i := range data {
		data[i] = byte(i)
	}
	op := &countingOpener{op: BytesOpener(data)}
	src, _ = op.Open()
	buf, err = ReadN(src, len(data)+100)
	require.NoError(t, err)
	assert.Equal(t, data, buf)
	assert.Equal(t, 4, op.reads)

	src, _ = BytesOpener(data).Open()
	buf, err = ReadN(src, 10)
	require.NoError(t, err)
	assert.Equal(t, data[:10], buf)

	_, err = ReadN(brokenSource{}, 10)
	assert.ErrorIs(t, err, errBroken)
}
