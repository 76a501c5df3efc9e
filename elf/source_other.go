//go:build !unix

package elf

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// FileOpener opens path read-only for every pass.
func FileOpener(path string) Opener {
	return OpenerFunc(func() (Source, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		fi, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, err
		}
		return &fileSource{f: f, size: uint64(fi.Size())}, nil
	})
}

type fileSource struct {
	f    *os.File
	pos  uint64
	size uint64
}

func (s *fileSource) Skip(n uint64) error {
	if n > s.size-s.pos {
		return fmt.Errorf("%s: skip %d at %d: %w", s.f.Name(), n, s.pos, errSkipPastEnd)
	}
	if _, err := s.f.Seek(int64(n), io.SeekCurrent); err != nil {
		return err
	}
	s.pos += n
	return nil
}

func (s *fileSource) Read(p []byte) (int, error) {
	n, err := io.ReadFull(s.f, p)
	s.pos += uint64(n)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	return n, err
}

func (s *fileSource) Close() error { return s.f.Close() }
