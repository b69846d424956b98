// profile/profiler.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package profile implements the measurement core of the profiling layer:
// frame timing, per-call latency aggregation and allocation accounting,
// driven by hooks that the API interception layer calls around each
// intercepted entry point.
package profile

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mmp/vkprof/clock"
	"github.com/mmp/vkprof/log"
)

// Result is the status code returned to the interception layer.
type Result int32

const Success Result = 0

// DefaultDisplayRate is the number of frame boundaries between reports.
const DefaultDisplayRate = 60

// DefaultTopN is the number of call names reported when not all of them
// are requested.
const DefaultTopN = 10

// Hooks is what the interception layer calls into.
type Hooks interface {
	OnBeforeCall(tid ThreadID, name string)
	OnAfterCall(tid ThreadID, name string, result Result)
	OnAllocate(h Handle, size uint64) Result
	OnFree(h Handle)
	OnFrameBoundary()
}

// Sink receives the text output of the profiler. Printf formats one line;
// a trailing newline is added if missing.
type Sink interface {
	Printf(format string, args ...any)
	Flush() error
}

// ControlSource delivers control bytes. Poll must not block; it returns the
// number of bytes placed in buf, which is zero when nothing is pending.
type ControlSource interface {
	Poll(buf []byte) int
}

// Archiver persists emitted reports.
type Archiver interface {
	Archive(r *Report) error
}

// Settings configures a Profiler. Zero values select the defaults, except
// for TopN, where zero means that every call name is reported.
type Settings struct {
	DisplayRate int
	WindowSize  int
	TopN        int
	MaxThreads  int
	Options     []Option // nil selects DefaultOptions

	Clock    clock.Clock
	Sink     Sink
	Control  ControlSource
	Archiver Archiver
	Logger   *log.Logger

	// ProcessMemory, if set, returns the host's resident memory for
	// debug reports.
	ProcessMemory func() (uint64, error)
}

// Profiler implements Hooks. All of its methods may be called
// concurrently from any number of threads.
type Profiler struct {
	displayRate int
	topN        int

	clock    clock.Clock
	frames   *FrameTimer
	calls    *CallStats
	ledger   *Ledger
	options  *Options
	sink     Sink
	archiver Archiver
	procMem  func() (uint64, error)
	lg       *log.Logger

	// mu guards presentCount and the control source.
	mu           sync.Mutex
	presentCount int
	control      ControlSource
	cmdbuf       [16]byte

	sinkErrOnce, archiveErrOnce, procMemErrOnce sync.Once
}

var _ Hooks = (*Profiler)(nil)

func NewProfiler(s Settings) (*Profiler, error) {
	if s.Clock == nil {
		s.Clock = clock.Monotonic()
	}
	if s.DisplayRate <= 0 {
		s.DisplayRate = DefaultDisplayRate
	}
	if s.WindowSize == 0 {
		s.WindowSize = DefaultWindowSize
	}
	if s.TopN < 0 {
		s.TopN = 0
	}
	if s.Options == nil {
		s.Options = DefaultOptions
	}
	if s.Sink == nil {
		s.Sink = discardSink{}
	}

	frames, err := NewFrameTimer(s.Clock, s.WindowSize)
	if err != nil {
		return nil, err
	}
	calls, err := NewCallStats(s.Clock, s.MaxThreads)
	if err != nil {
		return nil, err
	}

	p := &Profiler{
		displayRate: s.DisplayRate,
		topN:        s.TopN,
		clock:       s.Clock,
		frames:      frames,
		calls:       calls,
		ledger:      NewLedger(),
		options:     NewOptions(s.Options...),
		sink:        s.Sink,
		control:     s.Control,
		archiver:    s.Archiver,
		procMem:     s.ProcessMemory,
		lg:          s.Logger,
	}

	p.lg.Info("profiler started", slog.Int("display_rate", p.displayRate),
		slog.Int("window", frames.Capacity()), slog.Int("top_n", p.topN),
		slog.Any("options", p.options), slog.Bool("control", s.Control != nil))

	return p, nil
}

func (p *Profiler) Options() *Options { return p.options }
func (p *Profiler) Ledger() *Ledger { return p.ledger }
func (p *Profiler) Frames() *FrameTimer {
	return p.frames
}
func (p *Profiler) Calls() *CallStats { return p.calls }

// OnBeforeCall is called before every intercepted API call.
func (p *Profiler) OnBeforeCall(tid ThreadID, name string) {
	defer p.lg.CatchAndReportCrash()

	if p.options.Enabled(OptionAPIName) {
		p.sink.Printf("Calling %s", name)
	}
	p.calls.BeginCall(tid, name)
}

// OnAfterCall is called after every intercepted API call with the call's
// result code.
func (p *Profiler) OnAfterCall(tid ThreadID, name string, result Result) {
	defer p.lg.CatchAndReportCrash()

	profiling, debug := p.options.Enabled(OptionProfileInfo), p.options.Enabled(OptionDebugInfo)
	if !profiling && !debug {
		return
	}

	var ms float64
	var ok bool
	if profiling {
		ms, ok = p.calls.EndCall(tid, name)
	} else {
		ms, ok = p.calls.Elapsed(tid)
	}

	if debug {
		if ok {
			p.sink.Printf("%s : Time = %.6f ms", name, ms)
		}
		if result != Success {
			p.debugf("%s returned %d", name, result)
		}
	}
}

// OnAllocate is called after a successful memory allocation.
func (p *Profiler) OnAllocate(h Handle, size uint64) Result {
	defer p.lg.CatchAndReportCrash()

	if p.ledger.Allocate(h, size) {
		p.lg.Warn("allocation handle recorded twice without a free",
			slog.Uint64("handle", uint64(h)), slog.Uint64("size", size))
	}
	return Success
}

// OnFree is called before memory is freed.
func (p *Profiler) OnFree(h Handle) {
	defer p.lg.CatchAndReportCrash()

	p.ledger.Free(h)
}

// OnFrameBoundary is called once per present. It applies pending control
// commands, emits a report every displayRate frames and samples the frame
// time.
func (p *Profiler) OnFrameBoundary() {
	defer p.lg.CatchAndReportCrash()

	p.mu.Lock()
	p.pollControlLocked()
	p.presentCount++
	emit := p.presentCount >= p.displayRate
	if emit {
		p.presentCount = 0
	}
	p.mu.Unlock()

	if emit {
		p.EmitReport()
	}

	if s, ok := p.frames.RecordFrameBoundary(); ok && p.options.Enabled(OptionDebugInfo) {
		p.sink.Printf("Frame Num = %d", s.Frame)
		p.sink.Printf("TotalFrame : Time = %.4f ms", s.Elapsed*1000)
		p.sink.Printf("Avg FPS: %.2f", s.FPS)
	}
}

func (p *Profiler) pollControlLocked() {
	if p.control == nil {
		return
	}

	n := p.control.Poll(p.cmdbuf[:])
	for _, b := range p.cmdbuf[:n] {
		if c, ok := p.options.Apply(b); ok {
			p.lg.Info("control command", slog.String("option", c.Option.String()),
				slog.Bool("on", c.On))
		}
	}
}

// EmitReport drains the call table, writes a report to the sink, flushes
// it and archives the report. The report is returned.
func (p *Profiler) EmitReport() *Report {
	r := p.buildReport()

	for _, line := range r.Lines() {
		p.sink.Printf("%s", line)
	}
	if err := p.sink.Flush(); err != nil {
		p.sinkErrOnce.Do(func() { p.lg.Warnf("unable to write report file: %v", err) })
	}

	if p.archiver != nil {
		if err := p.archiver.Archive(r); err != nil {
			p.archiveErrOnce.Do(func() { p.lg.Warnf("unable to archive report: %v", err) })
		}
	}

	p.lg.Debug("report", slog.Any("report", r))

	return r
}

func (p *Profiler) buildReport() *Report {
	r := &Report{
		Time:  time.Now(),
		Frame: p.frames.Frame(),
	}
	r.MemoryObjects, r.MemoryBytes = p.ledger.Totals()

	topN := p.topN
	if p.options.Enabled(OptionProfileInfoAll) {
		topN = 0
	}
	// The table is drained even when it isn't reported so that each
	// reporting interval starts afresh.
	calls, total := p.calls.DrainRanked(topN)
	if p.options.Enabled(OptionProfileInfo) {
		r.HasCalls = true
		r.Calls = calls
		r.TotalCallTime = total
	}

	if p.options.Enabled(OptionFPS) {
		r.HasFPS = true
		r.FPS = p.frames.FramesPerSecond()
		r.AvgFrameTime = 1000 * p.frames.AverageFrameTime()
	}

	if p.procMem != nil && p.options.Enabled(OptionDebugInfo) {
		if rss, err := p.procMem(); err != nil {
			p.procMemErrOnce.Do(func() { p.lg.Warnf("unable to read process memory: %v", err) })
		} else {
			r.ProcessRSS = rss
		}
	}

	return r
}

func (p *Profiler) debugf(format string, args ...any) {
	if p.options.Enabled(OptionDebugInfo) {
		p.sink.Printf("[DEBUG_INFO] - %s", fmt.Sprintf(format, args...))
	}
}

// Close flushes any buffered output.
func (p *Profiler) Close() error {
	return p.sink.Flush()
}

type discardSink struct{}

func (discardSink) Printf(string, ...any) {}
func (discardSink) Flush() error { return nil }
