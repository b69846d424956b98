// profile/frametimer.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package profile

import (
	"errors"
	"sync"

	"github.com/mmp/vkprof/clock"
)

// DefaultWindowSize is the number of frame times averaged for the FPS
// estimate.
const DefaultWindowSize = 40

var ErrZeroWindow = errors.New("frame time window must hold at least one sample")

// FrameTimer keeps the durations of the most recent frames in a circular
// buffer along with their running sum, giving a simple moving average of
// the frame time.
type FrameTimer struct {
	mu    sync.Mutex
	clock clock.Clock

	// last and current are the tick counts at the two most recent frame
	// boundaries; last == 0 means there was no earlier frame.
	last, current int64

	samples []float64 // seconds
	index   int       // next sample to overwrite
	count   int       // number of valid samples, at most len(samples)
	sum     float64
	frame   uint64
}

func NewFrameTimer(c clock.Clock, size int) (*FrameTimer, error) {
	if size <= 0 {
		return nil, ErrZeroWindow
	}
	return &FrameTimer{
		clock:   c,
		samples: make([]float64, size),
	}, nil
}

// FrameSample describes the frame that ended at a frame boundary.
type FrameSample struct {
	Frame   uint64  // zero-based index of the boundary
	Elapsed float64 // seconds since the previous boundary
	FPS     float64 // moving-average FPS including this frame
}

// RecordFrameBoundary notes that a frame was presented. ok is false for
// the very first boundary, which only establishes the reference point and
// produces no sample.
func (ft *FrameTimer) RecordFrameBoundary() (s FrameSample, ok bool) {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	ft.last = ft.current
	ft.current = ft.clock.Now()
	s.Frame = ft.frame
	ft.frame++

	if ft.last == 0 {
		return s, false
	}

	elapsed := clock.Elapsed(ft.clock, ft.last, ft.current)

	// Subtract the oldest time and add in the newest one.
	ft.sum -= ft.samples[ft.index]
	ft.sum += elapsed
	ft.samples[ft.index] = elapsed

	if ft.index++; ft.index == len(ft.samples) {
		ft.index = 0
	}
	ft.count = min(ft.count+1, len(ft.samples))

	s.Elapsed = elapsed
	s.FPS = ft.fpsLocked()
	return s, true
}

// FramesPerSecond returns the reciprocal of the average frame time over
// the samples collected so far, or 0 if there are none.
func (ft *FrameTimer) FramesPerSecond() float64 {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.fpsLocked()
}

func (ft *FrameTimer) fpsLocked() float64 {
	if ft.sum > 0 {
		return float64(ft.count) / ft.sum
	}
	return 0
}

// AverageFrameTime returns the mean frame time in seconds.
func (ft *FrameTimer) AverageFrameTime() float64 {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	if ft.count == 0 {
		return 0
	}
	return ft.sum / float64(ft.count)
}

// Frame returns the number of frame boundaries recorded.
func (ft *FrameTimer) Frame() uint64 {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.frame
}

// Samples returns the number of valid samples in the window.
func (ft *FrameTimer) Samples() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.count
}

func (ft *FrameTimer) Capacity() int {
	return len(ft.samples)
}
