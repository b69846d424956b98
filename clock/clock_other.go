// clock/clock_other.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !windows

package clock

import "time"

// Ticks count nanoseconds from a base taken at startup, offset by one so
// that the first reading is never zero.
var base = time.Now()

type monotonic struct{}

func (monotonic) Frequency() int64 { return int64(time.Second) }

func (monotonic) Now() int64 { return int64(time.Since(base)) + 1 }
