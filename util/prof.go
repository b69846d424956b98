// util/prof.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/mmp/vkprof/log"
)

// Profiler collects Go CPU and heap profiles of the profiling core itself,
// which is handy when checking how much the hooks add to each call.
type Profiler struct {
	cpu, mem *os.File
	lg       *log.Logger
}

// CreateProfiler starts CPU profiling into cpu and arranges for a heap
// profile to be written to mem at Cleanup. Either path may be empty.
func CreateProfiler(cpu, mem string, lg *log.Logger) (*Profiler, error) {
	p := &Profiler{lg: lg}

	var err error
	if cpu != "" {
		if p.cpu, err = os.Create(cpu); err != nil {
			return nil, fmt.Errorf("%s: unable to create CPU profile file: %w", cpu, err)
		} else if err = pprof.StartCPUProfile(p.cpu); err != nil {
			p.cpu.Close()
			return nil, fmt.Errorf("unable to start CPU profile: %w", err)
		}
		lg.Infof("%s: writing CPU profile", cpu)
	}

	if mem != "" {
		if p.mem, err = os.Create(mem); err != nil {
			p.Cleanup()
			return nil, fmt.Errorf("%s: unable to create memory profile file: %w", mem, err)
		}
	}

	return p, nil
}

// Cleanup stops CPU profiling and writes the heap profile. It is safe to
// call more than once.
func (p *Profiler) Cleanup() {
	if p == nil {
		return
	}
	if p.cpu != nil {
		pprof.StopCPUProfile()
		p.cpu.Close()
		p.cpu = nil
	}
	if p.mem != nil {
		runtime.GC()
		if err := pprof.WriteHeapProfile(p.mem); err != nil {
			p.lg.Errorf("unable to write memory profile file: %v", err)
		}
		p.mem.Close()
		p.mem = nil
	}
}
