// control/fifo_other.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

//go:build !unix

package control

import "github.com/mmp/vkprof/log"

type FIFO struct{}

func OpenFIFO(path string, lg *log.Logger) (*FIFO, error) {
	return nil, ErrUnsupported
}

func (f *FIFO) Path() string { return "" }
func (f *FIFO) Poll(buf []byte) int { return 0 }
func (f *FIFO) Close() error { return nil }
func Send(path string, cmds []byte) error { return ErrUnsupported }
