// profile/options_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package profile

import (
	"slices"
	"testing"
)

func TestDefaultOptions(t *testing.T) {
	o := NewOptions(DefaultOptions...)
	if !slices.Equal(o.List(), []Option{OptionFPS}) {
		t.Errorf("expected only fps enabled by default, got %v", o.List())
	}
}

func TestApplyCommands(t *testing.T) {
	o := NewOptions(DefaultOptions...)

	// Disable FPS, then enable call name tracing.
	for _, b := range []byte{'F', 'a'} {
		if _, ok := o.Apply(b); !ok {
			t.Errorf("%q: expected command to be recognized", b)
		}
	}
	if !slices.Equal(o.List(), []Option{OptionAPIName}) {
		t.Errorf("expected only api name tracing enabled, got %v", o.List())
	}
}

func TestApplyUnrecognized(t *testing.T) {
	o := NewOptions(OptionFPS, OptionProfileInfo)
	for _, b := range []byte{'x', 0, '\n', 0xff, '7'} {
		if _, ok := o.Apply(b); ok {
			t.Errorf("%q: expected command to be ignored", b)
		}
	}
	if !slices.Equal(o.List(), []Option{OptionFPS, OptionProfileInfo}) {
		t.Errorf("unrecognized bytes changed the options: %v", o.List())
	}
}

func TestEveryOptionHasCommands(t *testing.T) {
	for opt := range NumOptions {
		for _, on := range []bool{true, false} {
			b, ok := CommandByte(opt, on)
			if !ok {
				t.Errorf("%s: no command to set %v", opt, on)
				continue
			}
			o := NewOptions()
			o.Set(opt, !on)
			o.Apply(b)
			if o.Enabled(opt) != on {
				t.Errorf("%s: command %q didn't set %v", opt, b, on)
			}
		}
	}
}

func TestOptionsAreIndependent(t *testing.T) {
	o := NewOptions()
	o.SetProfileInfoAll(true)
	for opt := range NumOptions {
		if opt != OptionProfileInfoAll && o.Enabled(opt) {
			t.Errorf("%s enabled by setting %s", opt, OptionProfileInfoAll)
		}
	}
}

func TestParseOption(t *testing.T) {
	for opt := range NumOptions {
		if p, ok := ParseOption(opt.String()); !ok || p != opt {
			t.Errorf("%s: round trip failed", opt)
		}
	}
	if _, ok := ParseOption("bogus"); ok {
		t.Errorf("expected bogus option to be rejected")
	}
	if o := NewOptions(OptionFPS, OptionDebugInfo); o.String() != "fps,debug" {
		t.Errorf("unexpected options string %q", o.String())
	}
}
