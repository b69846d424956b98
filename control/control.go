// control/control.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package control provides sources of single-byte live control commands.
// Every source is polled without blocking; an empty poll is the common
// case.
package control

import (
	"errors"
	"sync"
)

// DefaultFIFOPath is where the command FIFO is created.
const DefaultFIFOPath = "/tmp/VKProfileLayerCmd.fifo"

var ErrUnsupported = errors.New("control FIFO is not supported on this platform")

// Queue is an in-memory source that other goroutines push bytes into.
type Queue struct {
	mu      sync.Mutex
	pending []byte
}

func NewQueue() *Queue {
	return &Queue{}
}

// Push appends bytes to be returned by later polls.
func (q *Queue) Push(b ...byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, b...)
}

// Write implements io.Writer so that a Queue can stand in for the FIFO.
func (q *Queue) Write(b []byte) (int, error) {
	q.Push(b...)
	return len(b), nil
}

// Poll moves as many pending bytes as fit into buf.
func (q *Queue) Poll(buf []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := copy(buf, q.pending)
	q.pending = q.pending[n:]
	if len(q.pending) == 0 {
		q.pending = nil
	}
	return n
}
