// clock/clock_windows.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

//go:build windows

package clock

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32                      = windows.NewLazySystemDLL("kernel32.dll")
	queryPerformanceFrequencyProc = kernel32.NewProc("QueryPerformanceFrequency")
	queryPerformanceCounterProc   = kernel32.NewProc("QueryPerformanceCounter")

	qpcFrequency = queryPerformanceFrequency()
)

// monotonic reads the performance counter; the frequency is queried once.
type monotonic struct{}

func (monotonic) Frequency() int64 { return qpcFrequency }

func (monotonic) Now() int64 { return queryPerformanceCounter() }

func queryPerformanceCounter() int64 {
	var count int64
	if r, _, _ := queryPerformanceCounterProc.Call(uintptr(unsafe.Pointer(&count))); r == 0 {
		return 0
	}
	return count
}

func queryPerformanceFrequency() int64 {
	var freq int64
	if r, _, _ := queryPerformanceFrequencyProc.Call(uintptr(unsafe.Pointer(&freq))); r == 0 {
		return 0
	}
	return freq
}
