// profile/ledger.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package profile

import (
	"log/slog"
	"sync"

	"github.com/mmp/vkprof/util"

	"github.com/brunoga/deep"
)

// Handle identifies a device memory allocation. NullHandle denotes no
// allocation.
type Handle uint64

const NullHandle Handle = 0

// Ledger tracks live device memory allocations. The count and byte total
// always match the entries in the size map.
type Ledger struct {
	mu      sync.Mutex
	sizes   map[Handle]uint64
	objects uint64
	bytes   uint64
}

func NewLedger() *Ledger {
	return &Ledger{sizes: make(map[Handle]uint64)}
}

// Allocate records an allocation of size bytes. If h is already present,
// its earlier record is replaced rather than counted twice and replaced is
// returned as true.
func (l *Ledger) Allocate(h Handle, size uint64) (replaced bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if old, ok := l.sizes[h]; ok {
		l.bytes = util.SaturatingSub(l.bytes, old)
		replaced = true
	} else {
		l.objects++
	}
	l.bytes += size
	l.sizes[h] = size
	return
}

// Free releases the record for h. Freeing NullHandle or a handle that is
// not tracked does nothing; ok reports whether a record was removed.
func (l *Ledger) Free(h Handle) (size uint64, ok bool) {
	if h == NullHandle {
		return 0, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if size, ok = l.sizes[h]; !ok {
		return 0, false
	}
	delete(l.sizes, h)
	l.objects--
	l.bytes = util.SaturatingSub(l.bytes, size)
	return size, true
}

// Totals returns the number of live allocations and their total size.
func (l *Ledger) Totals() (objects, bytes uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.objects, l.bytes
}

// Size returns the recorded size of h.
func (l *Ledger) Size(h Handle) (uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sz, ok := l.sizes[h]
	return sz, ok
}

// Snapshot returns a copy of the handle to size map that the caller owns.
func (l *Ledger) Snapshot() map[Handle]uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return deep.MustCopy(l.sizes)
}

func (l *Ledger) LogValue() slog.Value {
	objects, bytes := l.Totals()
	return slog.GroupValue(
		slog.Uint64("objects", objects),
		slog.Uint64("bytes", bytes))
}
