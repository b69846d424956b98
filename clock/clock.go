// clock/clock.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package clock provides the monotonic tick source used for all timing.
// Ticks are opaque; only differences between two ticks divided by the
// frequency are meaningful.
package clock

import "sync/atomic"

type Clock interface {
	// Frequency returns the number of ticks per second.
	Frequency() int64
	// Now returns the current tick count. It never goes backward within
	// a process; a failed query returns 0.
	Now() int64
}

// Elapsed returns the time in seconds between ticks a and b.
func Elapsed(c Clock, a, b int64) float64 {
	f := c.Frequency()
	if f <= 0 {
		return 0
	}
	return float64(b-a) / float64(f)
}

// Monotonic returns the platform's high-resolution monotonic clock.
func Monotonic() Clock {
	return monotonic{}
}

///////////////////////////////////////////////////////////////////////////
// ManualClock

// ManualClock is a Clock whose tick count only changes when it is told to.
// Its frequency is fixed at construction.
type ManualClock struct {
	freq  int64
	ticks atomic.Int64
}

func NewManualClock(freq int64) *ManualClock {
	return &ManualClock{freq: freq}
}

func (m *ManualClock) Frequency() int64 { return m.freq }

func (m *ManualClock) Now() int64 { return m.ticks.Load() }

// Set sets the tick count.
func (m *ManualClock) Set(t int64) { m.ticks.Store(t) }

// Advance moves the clock forward by the given number of ticks.
func (m *ManualClock) Advance(d int64) { m.ticks.Add(d) }

// AdvanceSeconds moves the clock forward by s seconds, rounded to ticks.
func (m *ManualClock) AdvanceSeconds(s float64) {
	m.ticks.Add(int64(s*float64(m.freq) + 0.5))
}
