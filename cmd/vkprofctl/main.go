// cmd/vkprofctl/main.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// vkprofctl toggles the options of a running profiler through its control
// FIFO and prints the reports saved in a report archive.
//
// Usage:
//
//	vkprofctl -enable profile,debug -disable fps
//	vkprofctl pF          # raw command bytes
//	vkprofctl -dump reports.zst
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mmp/vkprof/config"
	"github.com/mmp/vkprof/control"
	"github.com/mmp/vkprof/profile"
	"github.com/mmp/vkprof/sink"
	"github.com/mmp/vkprof/util"

	"github.com/apenwarr/fixconsole"
	"github.com/goforj/godump"
)

var (
	fifoPath   = flag.String("fifo", "", "path of the control FIFO (default from configuration)")
	enable     = flag.String("enable", "", "comma-separated options to enable: api, fps, debug, profile, all")
	disable    = flag.String("disable", "", "comma-separated options to disable")
	dumpPath   = flag.String("dump", "", "print the reports in the given archive")
	dumpConfig = flag.Bool("dumpconfig", false, "print the effective configuration and exit")
)

func main() {
	flag.Parse()

	if err := fixconsole.FixConsoleIfNeeded(); err != nil {
		fmt.Printf("FixConsole: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}
	if *dumpConfig {
		godump.Dump(cfg)
		return
	}

	if *dumpPath != "" {
		if err := dump(*dumpPath); err != nil {
			fatal(err)
		}
		return
	}

	cmds, err := commands(*enable, *disable, flag.Args())
	if err != nil {
		fatal(err)
	}
	if len(cmds) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	path := util.Select(*fifoPath != "", *fifoPath, cfg.FIFOPath)
	if err := control.Send(path, cmds); err != nil {
		fatal(err)
	}
	for _, b := range cmds {
		cmd := profile.Commands[b]
		fmt.Printf("%s: %s %s\n", path, util.Select(cmd.On, "enabled", "disabled"), cmd.Option)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "vkprofctl: %v\n", err)
	os.Exit(1)
}

// commands returns the command bytes for the options to enable and disable
// followed by any raw command bytes given as arguments.
func commands(enable, disable string, args []string) ([]byte, error) {
	var cmds []byte
	for _, set := range []struct {
		list string
		on   bool
	}{{enable, true}, {disable, false}} {
		opts, err := config.ParseOptions(set.list)
		if err != nil {
			return nil, err
		}
		for _, opt := range opts {
			b, ok := profile.CommandByte(opt, set.on)
			if !ok {
				return nil, fmt.Errorf("%s: no command for option", opt)
			}
			cmds = append(cmds, b)
		}
	}

	for _, arg := range args {
		for i := 0; i < len(arg); i++ {
			if _, ok := profile.Commands[arg[i]]; !ok {
				return nil, fmt.Errorf("%q: unknown command byte", arg[i])
			}
			cmds = append(cmds, arg[i])
		}
	}
	return cmds, nil
}

func dump(path string) error {
	n := 0
	err := sink.ReadArchive(path, func(r *profile.Report) error {
		if n > 0 {
			fmt.Println()
		}
		n++
		fmt.Printf("%s frame %d\n", r.Time.Local().Format(time.RFC3339), r.Frame)
		fmt.Println(strings.Join(r.Lines(), "\n"))
		return nil
	})
	if err == nil && n == 0 {
		fmt.Fprintf(os.Stderr, "%s: no reports\n", path)
	}
	return err
}
