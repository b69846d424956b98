// profile/options.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package profile

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmp/vkprof/util"
)

// Option names one independently switchable reporting feature.
type Option int

const (
	// OptionAPIName logs the name of every intercepted call.
	OptionAPIName Option = iota
	// OptionFPS includes the frame rate in reports.
	OptionFPS
	// OptionDebugInfo logs per-frame and per-call timing details.
	OptionDebugInfo
	// OptionProfileInfo aggregates call latencies and reports the ranking.
	OptionProfileInfo
	// OptionProfileInfoAll reports every call name instead of the top N.
	OptionProfileInfoAll
	NumOptions
)

var optionNames = [NumOptions]string{
	OptionAPIName:        "api",
	OptionFPS:            "fps",
	OptionDebugInfo:      "debug",
	OptionProfileInfo:    "profile",
	OptionProfileInfoAll: "all",
}

func (o Option) String() string {
	if o >= 0 && o < NumOptions {
		return optionNames[o]
	}
	return fmt.Sprintf("Option(%d)", int(o))
}

// ParseOption returns the Option with the given name.
func ParseOption(s string) (Option, bool) {
	for i, n := range optionNames {
		if strings.EqualFold(n, s) {
			return Option(i), true
		}
	}
	return 0, false
}

// DefaultOptions is the set of options enabled at startup.
var DefaultOptions = []Option{OptionFPS}

// Options is the set of enabled options. It may be read and changed from
// any thread.
type Options struct {
	flags [NumOptions]util.AtomicBool
}

// NewOptions returns an Options with exactly the given options enabled.
func NewOptions(enabled ...Option) *Options {
	o := &Options{}
	for _, opt := range enabled {
		o.Set(opt, true)
	}
	return o
}

func (o *Options) Enabled(opt Option) bool {
	return opt >= 0 && opt < NumOptions && o.flags[opt].Load()
}

func (o *Options) Set(opt Option, on bool) {
	if opt >= 0 && opt < NumOptions {
		o.flags[opt].Store(on)
	}
}

func (o *Options) SetAPIName(on bool) { o.Set(OptionAPIName, on) }
func (o *Options) SetFPS(on bool) { o.Set(OptionFPS, on) }
func (o *Options) SetDebugInfo(on bool) { o.Set(OptionDebugInfo, on) }
func (o *Options) SetProfileInfo(on bool) { o.Set(OptionProfileInfo, on) }
func (o *Options) SetProfileInfoAll(on bool) { o.Set(OptionProfileInfoAll, on) }

// List returns the enabled options in declaration order.
func (o *Options) List() []Option {
	var l []Option
	for i := range NumOptions {
		if o.flags[i].Load() {
			l = append(l, i)
		}
	}
	return l
}

func (o *Options) String() string {
	var s []string
	for _, opt := range o.List() {
		s = append(s, opt.String())
	}
	return strings.Join(s, ",")
}

func (o *Options) LogValue() slog.Value {
	var attrs []slog.Attr
	for i := range NumOptions {
		attrs = append(attrs, slog.Bool(i.String(), o.flags[i].Load()))
	}
	return slog.GroupValue(attrs...)
}

///////////////////////////////////////////////////////////////////////////
// Control commands

// Command is the effect of one control byte.
type Command struct {
	Option Option
	On     bool
}

// Commands maps control bytes to their effect: lowercase letters enable
// an option and the corresponding uppercase letter disables it.
var Commands = map[byte]Command{
	'a': {OptionAPIName, true},
	'A': {OptionAPIName, false},
	'f': {OptionFPS, true},
	'F': {OptionFPS, false},
	'd': {OptionDebugInfo, true},
	'D': {OptionDebugInfo, false},
	'p': {OptionProfileInfo, true},
	'P': {OptionProfileInfo, false},
	'l': {OptionProfileInfoAll, true},
	'L': {OptionProfileInfoAll, false},
}

// CommandByte returns the control byte that sets opt to on.
func CommandByte(opt Option, on bool) (byte, bool) {
	for b, c := range Commands {
		if c.Option == opt && c.On == on {
			return b, true
		}
	}
	return 0, false
}

// Apply performs the command for b. Unrecognized bytes are ignored and
// false is returned.
func (o *Options) Apply(b byte) (Command, bool) {
	c, ok := Commands[b]
	if ok {
		o.Set(c.Option, c.On)
	}
	return c, ok
}
