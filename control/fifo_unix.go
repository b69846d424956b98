// control/fifo_unix.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

//go:build unix

package control

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmp/vkprof/log"

	"golang.org/x/sys/unix"
)

// FIFO reads commands from a named pipe opened read-only and
// non-blocking.
type FIFO struct {
	path string
	lg   *log.Logger

	mu sync.Mutex
	fd int

	readErrOnce sync.Once
}

// OpenFIFO creates the named pipe at path if it doesn't exist and opens it
// for non-blocking reads.
func OpenFIFO(path string, lg *log.Logger) (*FIFO, error) {
	if err := unix.Mkfifo(path, 0o666); err != nil && !errors.Is(err, unix.EEXIST) {
		return nil, fmt.Errorf("%s: mkfifo: %w", path, err)
	}

	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", path, err)
	}

	lg.Info("opened control FIFO", slog.String("path", path))
	return &FIFO{path: path, lg: lg, fd: fd}, nil
}

func (f *FIFO) Path() string { return f.path }

// Poll reads whatever is pending. It returns 0 when no writer has sent
// anything, when no writer has the pipe open, and on errors.
func (f *FIFO) Poll(buf []byte) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fd < 0 || len(buf) == 0 {
		return 0
	}

	n, err := unix.Read(f.fd, buf)
	if err != nil {
		if !errors.Is(err, unix.EAGAIN) && !errors.Is(err, unix.EINTR) {
			f.readErrOnce.Do(func() { f.lg.Warnf("%s: read: %v", f.path, err) })
		}
		return 0
	}
	return max(n, 0)
}

func (f *FIFO) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fd < 0 {
		return nil
	}
	err := unix.Close(f.fd)
	f.fd = -1
	return err
}

// Send writes command bytes to the FIFO at path for a running profiler to
// pick up. It fails if no reader has the FIFO open.
func Send(path string, cmds []byte) error {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENXIO) {
			return fmt.Errorf("%s: no profiler is listening", path)
		}
		return fmt.Errorf("%s: open: %w", path, err)
	}
	defer unix.Close(fd)

	for len(cmds) > 0 {
		n, err := unix.Write(fd, cmds)
		if err != nil {
			return fmt.Errorf("%s: write: %w", path, err)
		}
		cmds = cmds[n:]
	}
	return nil
}
