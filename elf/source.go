package elf

import (
	"errors"
	"fmt"
	"slices"
)

// Source is a forward-only byte stream positioned at the start of the file.
// Each decode pass opens its own Source, skips to the offset it needs and
// performs one bounded read.
type Source interface {
	// Skip moves forward n bytes. Skipping past the end of the data fails.
	Skip(n uint64) error
	// Read fills p from the current position and returns how many bytes it
	// got. A count below len(p) with a nil error means the data ended.
	Read(p []byte) (int, error)
	Close() error
}

// Opener hands out fresh Sources.
type Opener interface {
	Open() (Source, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func() (Source, error)

func (f OpenerFunc) Open() (Source, error) { return f() }

var errSkipPastEnd = errors.New("skip past end of data")

// BytesOpener serves passes over an in-memory image.
func BytesOpener(data []byte) Opener {
	return OpenerFunc(func() (Source, error) {
		return &bytesSource{data: data}, nil
	})
}

type bytesSource struct {
	data   []byte
	pos    uint64
	closed bool
}

func (s *bytesSource) Skip(n uint64) error {
	if s.closed {
		return errClosed
	}
	if n > uint64(len(s.data))-s.pos {
		s.pos = uint64(len(s.data))
		return fmt.Errorf("skip %d: %w", n, errSkipPastEnd)
	}
	s.pos += n
	return nil
}

func (s *bytesSource) Read(p []byte) (int, error) {
	if s.closed {
		return 0, errClosed
	}
	n := copy(p, s.data[s.pos:])
	s.pos += uint64(n)
	return n, nil
}

func (s *bytesSource) Close() error {
	s.closed = true
	return nil
}

var errClosed = errors.New("source closed")

// readChunk bounds a single Read, so a buffer only grows as far as the data
// that actually arrives.
const readChunk = 64 << 10

// ReadN reads up to n bytes from src. The result is shorter than n when the
// data ends early; memory use follows the bytes read, not n.
func ReadN(src Source, n int) ([]byte, error) {
	var buf []byte
	for len(buf) < n {
		k := min(n-len(buf), readChunk)
		buf = slices.Grow(buf, k)
		got, err := src.Read(buf[len(buf) : len(buf)+k])
		buf = buf[:len(buf)+got]
		if err != nil {
			return nil, err
		}
		if got < k {
			break
		}
	}
	return buf, nil
}

// skipRead skips to off and reads size bytes. The returned slice is shorter
// than size when the data ends early; skipErr and readErr tell apart the two
// places a pass can fail.
func skipRead(src Source, off uint64, size int) (buf []byte, skipErr, readErr error) {
	if off > 0 {
		if err := src.Skip(off); err != nil {
			return nil, err, nil
		}
	}
	buf, err := ReadN(src, size)
	if err != nil {
		return nil, nil, err
	}
	return buf, nil, nil
}
