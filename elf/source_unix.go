//go:build unix

package elf

import (
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

// FileOpener opens path read-only for every pass.
func FileOpener(path string) Opener {
	return OpenerFunc(func() (Source, error) {
		fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		var st unix.Stat_t
		if err := unix.Fstat(fd, &st); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		return &fileSource{fd: fd, size: uint64(st.Size), path: path}, nil
	})
}

type fileSource struct {
	fd   int
	pos  uint64
	size uint64
	path string
}

func (s *fileSource) Skip(n uint64) error {
	if s.fd < 0 {
		return errClosed
	}
	if n > s.size-s.pos {
		return fmt.Errorf("%s: skip %d at %d: %w", s.path, n, s.pos, errSkipPastEnd)
	}
	if _, err := unix.Seek(s.fd, int64(n), io.SeekCurrent); err != nil {
		return fmt.Errorf("%s: seek: %w", s.path, err)
	}
	s.pos += n
	return nil
}

func (s *fileSource) Read(p []byte) (int, error) {
	if s.fd < 0 {
		return 0, errClosed
	}
	total := 0
	for total < len(p) {
		n, err := unix.Read(s.fd, p[total:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return total, fmt.Errorf("%s: read: %w", s.path, err)
		}
		if n == 0 {
			break
		}
		total += n
	}
	s.pos += uint64(total)
	return total, nil
}

func (s *fileSource) Close() error {
	if s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	return err
}
