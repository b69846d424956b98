// log/log_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	for s, l := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		if got := ParseLevel(s); got != l {
			t.Errorf("%q: expected %v, got %v", s, l, got)
		}
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	lg := NewWithWriter(&buf, "warn")

	lg.Debugf("hidden %d", 1)
	lg.Info("hidden")
	lg.Warnf("shown %d", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected a single record, got %q", buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["msg"] != "shown 2" || rec["level"] != "WARN" {
		t.Errorf("unexpected record %v", rec)
	}
	if _, ok := rec["callstack"]; !ok {
		t.Errorf("expected callstack attribute in %v", rec)
	}
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	lg := NewWithWriter(&buf, "debug").With(slog.String("thread", "7"))
	lg.Debug("hello", slog.Int("n", 3))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["thread"] != "7" || rec["n"] != float64(3) {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestNilLogger(t *testing.T) {
	var lg *Logger
	lg.Debug("x")
	lg.Debugf("x %d", 1)
	lg.Info("x")
	lg.Infof("x %d", 1)
	if lg.With("a", 1) != nil {
		t.Errorf("expected nil from With on nil logger")
	}
}

func TestCatchAndReportCrash(t *testing.T) {
	var buf bytes.Buffer
	lg := NewWithWriter(&buf, "info")
	lg.LogDir = t.TempDir()

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		func() {
			defer lg.CatchAndReportCrash()
			panic("boom")
		}()
	}()
	if recovered != nil {
		t.Errorf("panic escaped: %v", recovered)
	}
	if !strings.Contains(buf.String(), "Crashed: boom") {
		t.Errorf("expected crash to be logged, got %q", buf.String())
	}

	m, err := filepath.Glob(filepath.Join(lg.LogDir, "crash-*.txt"))
	if err != nil || len(m) != 1 {
		t.Fatalf("expected one crash report, got %v %v", m, err)
	}
	b, _ := os.ReadFile(m[0])
	if !strings.HasPrefix(string(b), "Crashed: boom\n") {
		t.Errorf("unexpected crash report %q", b)
	}
}

func TestCallstack(t *testing.T) {
	cs := Callstack(nil)
	if len(cs) == 0 {
		t.Fatalf("empty callstack")
	}
	for _, f := range cs {
		if f.File == "" || f.Line == 0 {
			t.Errorf("incomplete frame %+v", f)
		}
	}

	reuse := make([]StackFrame, 0, 64)
	if got := Callstack(reuse); len(got) != len(cs) {
		t.Errorf("expected %d frames with reused slice, got %d", len(cs), len(got))
	}
}
