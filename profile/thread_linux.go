// profile/thread_linux.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package profile

import "golang.org/x/sys/unix"

// CurrentThread returns the kernel id of the calling OS thread. Goroutines
// that call into the hooks must be locked to their thread (see
// runtime.LockOSThread) for the id to be stable across a call.
func CurrentThread() ThreadID {
	return ThreadID(unix.Gettid())
}
