// profile/thread_other.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

//go:build !linux && !windows

package profile

// CurrentThread has no portable thread id to return here, so all callers
// share one slot; hosts on these platforms should pass their own ids.
func CurrentThread() ThreadID {
	return 0
}
