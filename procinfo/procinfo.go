// procinfo/procinfo.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package procinfo reports on the process hosting the profiler.
package procinfo

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/shirou/gopsutil/v3/process"
)

var (
	selfOnce sync.Once
	self     *process.Process
	selfErr  error
)

func current() (*process.Process, error) {
	selfOnce.Do(func() {
		self, selfErr = process.NewProcess(int32(os.Getpid()))
	})
	return self, selfErr
}

// PID returns the id of the current process.
func PID() int {
	return os.Getpid()
}

// ExecutableName returns the base name of the running executable.
func ExecutableName() string {
	if p, err := current(); err == nil {
		if exe, err := p.Exe(); err == nil && exe != "" {
			return filepath.Base(exe)
		}
		if name, err := p.Name(); err == nil && name != "" {
			return name
		}
	}
	if exe, err := os.Executable(); err == nil {
		return filepath.Base(exe)
	}
	return filepath.Base(os.Args[0])
}

// ResidentMemory returns the resident set size of the current process in
// bytes.
func ResidentMemory() (uint64, error) {
	p, err := current()
	if err != nil {
		return 0, err
	}
	mi, err := p.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return mi.RSS, nil
}

// Attrs returns the process identity as log attributes.
func Attrs() slog.Attr {
	return slog.Group("process",
		slog.String("executable", ExecutableName()),
		slog.Int("pid", PID()))
}
