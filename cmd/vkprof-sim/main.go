// cmd/vkprof-sim/main.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// vkprof-sim drives the profiler the way a graphics driver layer would:
// a handful of render threads issue API calls and allocate memory while
// a presenter thread marks frame boundaries at a fixed rate.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/mmp/vkprof/config"
	"github.com/mmp/vkprof/control"
	"github.com/mmp/vkprof/log"
	"github.com/mmp/vkprof/procinfo"
	"github.com/mmp/vkprof/profile"
	"github.com/mmp/vkprof/sink"
	"github.com/mmp/vkprof/util"

	"github.com/apenwarr/fixconsole"
	"github.com/goforj/godump"
	"golang.org/x/sync/errgroup"
)

var (
	cpuprofile  = flag.String("cpuprofile", "", "write CPU profile to file")
	memprofile  = flag.String("memprofile", "", "write memory profile to this file")
	numThreads  = flag.Int("threads", 4, "number of render threads issuing API calls")
	duration    = flag.Duration("duration", 10*time.Second, "how long to run; 0 runs until interrupted")
	presentRate = flag.Float64("fps", 60, "target presentation rate")
	noFIFO      = flag.Bool("nofifo", false, "don't listen for commands on the control FIFO")
	dumpConfig  = flag.Bool("dumpconfig", false, "print the effective configuration and exit")
)

// Calls issued by the render threads, with the typical time each one takes.
var apiCalls = []struct {
	name string
	cost time.Duration
}{
	{"vkCmdDraw", 5 * time.Microsecond},
	{"vkCmdDrawIndexed", 8 * time.Microsecond},
	{"vkCmdBindPipeline", 2 * time.Microsecond},
	{"vkCmdBindDescriptorSets", 3 * time.Microsecond},
	{"vkBeginCommandBuffer", 10 * time.Microsecond},
	{"vkEndCommandBuffer", 10 * time.Microsecond},
	{"vkUpdateDescriptorSets", 20 * time.Microsecond},
	{"vkQueueSubmit", 150 * time.Microsecond},
	{"vkWaitForFences", 300 * time.Microsecond},
}

const (
	vkNotReady = 1
	vkTimeout  = 2
)

func main() {
	flag.Parse()

	if err := fixconsole.FixConsoleIfNeeded(); err != nil {
		fmt.Printf("FixConsole: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if *dumpConfig {
		godump.Dump(cfg)
		os.Exit(0)
	}

	lg := log.New(cfg.LogLevel, cfg.LogDir)
	lg.Info("host process", procinfo.Attrs())

	profiler, err := util.CreateProfiler(*cpuprofile, *memprofile, lg)
	if err != nil {
		lg.Errorf("%v", err)
	}
	defer profiler.Cleanup()

	if err := run(cfg, lg); err != nil {
		lg.Errorf("%v", err)
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, lg *log.Logger) error {
	settings := cfg.ProfileSettings()
	settings.Logger = lg
	settings.ProcessMemory = procinfo.ResidentMemory

	var stdout io.Writer
	if cfg.Stdout {
		stdout = os.Stdout
	}
	text := sink.OpenText(cfg.ReportPath, cfg.ReportMaxSizeMB, stdout, cfg.Tag, lg)
	defer text.Close()
	settings.Sink = text

	if cfg.ArchivePath != "" {
		ar, err := sink.CreateArchive(cfg.ArchivePath)
		if err != nil {
			return err
		}
		defer ar.Close()
		settings.Archiver = ar
	}

	if !*noFIFO {
		if fifo, err := control.OpenFIFO(cfg.FIFOPath, lg); err != nil {
			// Runtime control is a convenience; keep profiling without it.
			lg.Warnf("%s: control FIFO unavailable: %v", cfg.FIFOPath, err)
			text.Printf("[ERROR] - open %s error!", cfg.FIFOPath)
		} else {
			defer fifo.Close()
			settings.Control = fifo
			text.Printf("[INFO] - open %s successfully!", cfg.FIFOPath)
		}
	}

	p, err := profile.NewProfiler(settings)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	var nextHandle atomic.Uint64
	eg, ctx := errgroup.WithContext(ctx)
	for i := range util.Clamp(*numThreads, 1, 64) {
		eg.Go(func() error {
			return renderThread(ctx, p, i, &nextHandle, lg)
		})
	}
	eg.Go(func() error { return presentThread(ctx, p) })

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	// Every render thread frees what it allocated before exiting.
	snap := p.Ledger().Snapshot()
	for _, h := range util.SortedMapKeys(snap) {
		lg.Warn("allocation never freed", slog.Uint64("handle", uint64(h)), slog.Uint64("size", snap[h]))
	}

	objects, bytes := p.Ledger().Totals()
	lg.Info("simulation finished", slog.Uint64("frames", p.Frames().Frame()),
		slog.Uint64("live_objects", objects), slog.Uint64("live_bytes", bytes),
		slog.Float64("fps", p.Frames().FramesPerSecond()))

	return nil
}

// call runs a single intercepted API call on the current thread.
func call(p *profile.Profiler, tid profile.ThreadID, name string, cost time.Duration, result profile.Result) {
	p.OnBeforeCall(tid, name)
	spin(cost)
	p.OnAfterCall(tid, name, result)
}

// spin busy-waits, since sleeping for a few microseconds is far too coarse.
func spin(d time.Duration) {
	for start := time.Now(); time.Since(start) < d; {
	}
}

func renderThread(ctx context.Context, p *profile.Profiler, idx int, nextHandle *atomic.Uint64, lg *log.Logger) error {
	defer lg.CatchAndReportCrash()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	tid := profile.CurrentThread()
	lg.Debug("render thread started", slog.Int("index", idx), slog.Uint64("tid", uint64(tid)))

	r := rand.New(rand.NewPCG(uint64(idx), uint64(time.Now().UnixNano())))
	var live []profile.Handle
	for {
		select {
		case <-ctx.Done():
			for _, h := range live {
				call(p, tid, "vkFreeMemory", 5*time.Microsecond, profile.Success)
				p.OnFree(h)
			}
			return ctx.Err()
		default:
		}

		c := apiCalls[r.IntN(len(apiCalls))]
		var result profile.Result
		if c.name == "vkWaitForFences" && r.IntN(20) == 0 {
			result = util.Select(r.IntN(2) == 0, profile.Result(vkNotReady), profile.Result(vkTimeout))
		}
		call(p, tid, c.name, c.cost/2+time.Duration(r.Int64N(int64(c.cost))), result)

		if r.IntN(16) == 0 {
			if len(live) < 32 && (len(live) == 0 || r.IntN(2) == 0) {
				h := profile.Handle(nextHandle.Add(1))
				size := uint64(1+r.IntN(256)) * 4096
				call(p, tid, "vkAllocateMemory", 25*time.Microsecond, profile.Success)
				p.OnAllocate(h, size)
				live = append(live, h)
			} else {
				i := r.IntN(len(live))
				call(p, tid, "vkFreeMemory", 5*time.Microsecond, profile.Success)
				p.OnFree(live[i])
				live = append(live[:i], live[i+1:]...)
			}
		}
	}
}

func presentThread(ctx context.Context, p *profile.Profiler) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	tid := profile.CurrentThread()
	rate := util.Clamp(*presentRate, 1, 1000)
	ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			call(p, tid, "vkAcquireNextImageKHR", 20*time.Microsecond, profile.Success)
			call(p, tid, "vkQueuePresentKHR", 100*time.Microsecond, profile.Success)
			p.OnFrameBoundary()
		}
	}
}
