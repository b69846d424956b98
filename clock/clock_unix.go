// clock/clock_unix.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

//go:build linux || darwin || freebsd || netbsd || openbsd

package clock

import "golang.org/x/sys/unix"

const nanosecsPerSec = 1000 * 1000 * 1000

// monotonic reads CLOCK_MONOTONIC; one tick is one nanosecond.
type monotonic struct{}

func (monotonic) Frequency() int64 { return nanosecsPerSec }

func (monotonic) Now() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return ts.Nano()
}
