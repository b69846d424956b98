// profile/profiler_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package profile

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/mmp/vkprof/clock"
	"github.com/mmp/vkprof/control"
	"github.com/mmp/vkprof/log"

	"golang.org/x/sync/errgroup"
)

type recordingSink struct {
	mu      sync.Mutex
	lines   []string
	flushes int
	err     error
}

func (r *recordingSink) Printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func (r *recordingSink) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes++
	return r.err
}

func (r *recordingSink) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.lines
	r.lines = nil
	return l
}

type recordingArchive struct {
	reports []*Report
}

func (a *recordingArchive) Archive(r *Report) error {
	a.reports = append(a.reports, r)
	return nil
}

func newTestProfiler(t *testing.T, s Settings) (*Profiler, *recordingSink, *clock.ManualClock) {
	t.Helper()
	c := clock.NewManualClock(testFreq)
	c.Set(1)
	rs := &recordingSink{}
	s.Clock = c
	s.Sink = rs
	p, err := NewProfiler(s)
	if err != nil {
		t.Fatal(err)
	}
	return p, rs, c
}

func TestProfilerRejectsNegativeWindow(t *testing.T) {
	if _, err := NewProfiler(Settings{WindowSize: -1}); !errors.Is(err, ErrZeroWindow) {
		t.Errorf("expected ErrZeroWindow, got %v", err)
	}
}

func TestProfilerReportCadence(t *testing.T) {
	ar := &recordingArchive{}
	p, rs, c := newTestProfiler(t, Settings{DisplayRate: 3, Archiver: ar})

	for range 2 {
		p.OnFrameBoundary()
		c.AdvanceSeconds(0.02)
	}
	if len(ar.reports) != 0 {
		t.Fatalf("expected no report before the display rate is reached")
	}

	p.OnFrameBoundary()
	if len(ar.reports) != 1 {
		t.Fatalf("expected a report at the display rate, got %d", len(ar.reports))
	}
	if rs.flushes != 1 {
		t.Errorf("expected the sink to be flushed with the report, got %d flushes", rs.flushes)
	}

	for range 6 {
		c.AdvanceSeconds(0.02)
		p.OnFrameBoundary()
	}
	if len(ar.reports) != 3 {
		t.Errorf("expected 3 reports after 9 frames, got %d", len(ar.reports))
	}

	// Reports are emitted before the frame is sampled, so the third one
	// sees 7 samples of 20ms.
	r := ar.reports[2]
	if !r.HasFPS || r.FPS < 49.99 || r.FPS > 50.01 {
		t.Errorf("expected 50 fps in report, got %+v", r)
	}
	if r.HasCalls {
		t.Errorf("calls should not be reported by default")
	}
}

func TestProfilerReportText(t *testing.T) {
	p, rs, c := newTestProfiler(t, Settings{
		DisplayRate: 1,
		Options:     []Option{OptionFPS, OptionProfileInfo},
	})

	p.OnAllocate(1, 1024)
	p.OnAllocate(2, 2048)
	p.OnFree(1)

	// Seed the frame timer, then time three calls.
	p.OnFrameBoundary()
	rs.take()
	for _, call := range []struct {
		name string
		ms   float64
	}{{"vkQueueSubmit", 3}, {"vkCmdDraw", 1}, {"vkAllocateMemory", 2}} {
		p.OnBeforeCall(1, call.name)
		c.AdvanceSeconds(call.ms / 1000)
		p.OnAfterCall(1, call.name, Success)
	}
	c.AdvanceSeconds(0.010)
	p.OnFrameBoundary()

	lines := rs.take()
	expected := []string{
		"Memory Allocation Count: 1",
		"Total Memory Allocation Size: 2048",
		"Name,Time,Percentage,CallCount",
		"vkQueueSubmit,3.0000,50.00%,1",
		"vkAllocateMemory,2.0000,33.33%,1",
		"vkCmdDraw,1.0000,16.67%,1",
		"Avg FPS: 0.00",
	}
	if !slices.Equal(lines, expected) {
		t.Errorf("unexpected report:\n%s\nexpected:\n%s", strings.Join(lines, "\n"), strings.Join(expected, "\n"))
	}

	if p.Calls().Len() != 0 {
		t.Errorf("report should have drained the call table")
	}
}

func TestProfilerTopN(t *testing.T) {
	p, _, _ := newTestProfiler(t, Settings{TopN: 2, Options: []Option{OptionProfileInfo}})
	for i, n := range []string{"a", "b", "c", "d"} {
		p.Calls().Add(n, float64(i+1))
	}
	if r := p.EmitReport(); len(r.Calls) != 2 || r.Calls[0].Name != "d" {
		t.Errorf("expected top 2 calls, got %+v", r.Calls)
	}

	p.Options().SetProfileInfoAll(true)
	for i, n := range []string{"a", "b", "c", "d"} {
		p.Calls().Add(n, float64(i+1))
	}
	if r := p.EmitReport(); len(r.Calls) != 4 {
		t.Errorf("expected all 4 calls, got %d", len(r.Calls))
	}
}

func TestProfilerAggregatesOnlyWhenProfiling(t *testing.T) {
	p, _, c := newTestProfiler(t, Settings{})

	p.OnBeforeCall(1, "vkCmdDraw")
	c.AdvanceSeconds(0.001)
	p.OnAfterCall(1, "vkCmdDraw", Success)
	if p.Calls().Len() != 0 {
		t.Errorf("calls should not be aggregated while profiling is off")
	}

	p.Options().SetProfileInfo(true)
	p.OnBeforeCall(1, "vkCmdDraw")
	c.AdvanceSeconds(0.001)
	p.OnAfterCall(1, "vkCmdDraw", Success)
	if p.Calls().Len() != 1 {
		t.Errorf("expected the call to be aggregated")
	}
}

func TestProfilerTracingAndDebugLines(t *testing.T) {
	p, rs, c := newTestProfiler(t, Settings{Options: []Option{OptionAPIName, OptionDebugInfo}})

	p.OnBeforeCall(1, "vkCreateBuffer")
	c.AdvanceSeconds(0.0005)
	p.OnAfterCall(1, "vkCreateBuffer", -2)

	lines := rs.take()
	expected := []string{
		"Calling vkCreateBuffer",
		"vkCreateBuffer : Time = 0.500000 ms",
		"[DEBUG_INFO] - vkCreateBuffer returned -2",
	}
	if !slices.Equal(lines, expected) {
		t.Errorf("unexpected lines %q", lines)
	}

	p.OnFrameBoundary()
	c.AdvanceSeconds(0.016)
	p.OnFrameBoundary()
	lines = rs.take()
	expected = []string{"Frame Num = 1", "TotalFrame : Time = 16.0000 ms", "Avg FPS: 62.50"}
	if !slices.Equal(lines, expected) {
		t.Errorf("unexpected frame lines %q", lines)
	}
}

func TestProfilerControlCommands(t *testing.T) {
	q := control.NewQueue()
	p, _, _ := newTestProfiler(t, Settings{Control: q})

	q.Push('F', 'a', 'x')
	if !p.Options().Enabled(OptionFPS) {
		t.Fatalf("commands must not apply before the next frame boundary")
	}

	p.OnFrameBoundary()
	if !slices.Equal(p.Options().List(), []Option{OptionAPIName}) {
		t.Errorf("expected only api tracing enabled, got %v", p.Options().List())
	}

	// Nothing pending is the common case.
	p.OnFrameBoundary()
	if !slices.Equal(p.Options().List(), []Option{OptionAPIName}) {
		t.Errorf("options changed without commands: %v", p.Options().List())
	}
}

func TestProfilerAllocationReport(t *testing.T) {
	p, _, _ := newTestProfiler(t, Settings{})
	if r := p.OnAllocate(10, 1024); r != Success {
		t.Errorf("expected Success, got %d", r)
	}
	p.OnAllocate(11, 2048)
	p.OnFree(NullHandle)
	p.OnFree(12345)

	r := p.EmitReport()
	if r.MemoryObjects != 2 || r.MemoryBytes != 3072 {
		t.Errorf("expected 2 objects / 3072 bytes, got %d / %d", r.MemoryObjects, r.MemoryBytes)
	}
}

func TestProfilerProcessMemory(t *testing.T) {
	p, _, _ := newTestProfiler(t, Settings{
		ProcessMemory: func() (uint64, error) { return 4096, nil },
	})
	if r := p.EmitReport(); r.ProcessRSS != 0 {
		t.Errorf("process memory should only be reported with debug info")
	}
	p.Options().SetDebugInfo(true)
	if r := p.EmitReport(); r.ProcessRSS != 4096 {
		t.Errorf("expected 4096, got %d", r.ProcessRSS)
	}
}

func TestProfilerSinkErrorIsAbsorbed(t *testing.T) {
	p, rs, _ := newTestProfiler(t, Settings{DisplayRate: 1})
	rs.err = errors.New("disk full")
	for range 3 {
		p.OnFrameBoundary()
	}
	if rs.flushes != 3 {
		t.Errorf("expected reporting to continue after errors, got %d flushes", rs.flushes)
	}
}

type panickingSink struct{}

func (panickingSink) Printf(string, ...any) { panic("boom") }
func (panickingSink) Flush() error { return nil }

func TestProfilerHooksDoNotPanic(t *testing.T) {
	lg := log.NewWithWriter(&strings.Builder{}, "error")
	lg.LogDir = t.TempDir()
	p, err := NewProfiler(Settings{
		Clock:   clock.NewManualClock(testFreq),
		Sink:    panickingSink{},
		Logger:  lg,
		Options: []Option{OptionAPIName},
	})
	if err != nil {
		t.Fatal(err)
	}
	p.OnBeforeCall(1, "vkCmdDraw")
}

func TestProfilerConcurrentHooks(t *testing.T) {
	threads, calls := 8, 1000
	if log.RaceEnabled {
		calls = 100
	}
	names := []string{"vkCmdDraw", "vkCmdDispatch", "vkQueueSubmit", "vkCmdCopyBuffer"}

	ar := &recordingArchive{}
	p, err := NewProfiler(Settings{
		DisplayRate: 1 << 30,
		Options:     []Option{OptionProfileInfo, OptionFPS},
		Archiver:    ar,
	})
	if err != nil {
		t.Fatal(err)
	}

	var eg errgroup.Group
	for th := range threads {
		eg.Go(func() error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			tid := CurrentThread()
			for i := range calls {
				name := names[(th+i)%len(names)]
				p.OnBeforeCall(tid, name)
				h := Handle(th*calls + i + 1)
				p.OnAllocate(h, 16)
				p.OnFree(h)
				p.OnAfterCall(tid, name, Success)
				if i%50 == 0 {
					p.OnFrameBoundary()
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}

	r := p.EmitReport()
	var total uint64
	for _, c := range r.Calls {
		total += c.CallCount
	}
	if total != uint64(threads*calls) {
		t.Errorf("expected %d calls, got %d", threads*calls, total)
	}
	if len(r.Calls) != len(names) {
		t.Errorf("expected %d names, got %d", len(names), len(r.Calls))
	}
	if r.MemoryObjects != 0 || r.MemoryBytes != 0 {
		t.Errorf("expected all allocations freed, got %d / %d", r.MemoryObjects, r.MemoryBytes)
	}
}
