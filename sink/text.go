// sink/text.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package sink holds the destinations of profiler output: a tagged text
// log mirrored to stdout and buffered into a rotating file, and a binary
// archive of reports.
package sink

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/mmp/vkprof/log"

	"gopkg.in/natefinch/lumberjack.v2"
)

const DefaultTag = "[VkLayer_PROFILE_LAYER]"

// FlushThreshold is the amount of buffered text that forces a write to the
// log file before the next report.
const FlushThreshold = 1024 * 1024

// DefaultReportPath returns where the text log is written.
func DefaultReportPath() string {
	if runtime.GOOS == "windows" {
		return "DumpLogFile.txt"
	}
	return "/tmp/DumpLogFile.txt"
}

// Text prefixes each line with a tag, writes it to stdout right away and
// accumulates it in memory until the next Flush.
type Text struct {
	tag    string
	stdout io.Writer

	mu   sync.Mutex
	buf  bytes.Buffer
	file io.Writer
}

// NewText returns a Text writing to file and stdout, either of which may be
// nil.
func NewText(file, stdout io.Writer, tag string) *Text {
	if tag == "" {
		tag = DefaultTag
	}
	return &Text{tag: tag, file: file, stdout: stdout}
}

// OpenText truncates the file at path and returns a Text that writes to it
// through a rotating writer. If the file can't be created, the failure is
// logged and the returned Text only mirrors to stdout.
func OpenText(path string, maxSizeMB int, stdout io.Writer, tag string, lg *log.Logger) *Text {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			lg.Warnf("%s: unable to create report directory: %v", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		lg.Warnf("%s: unable to open report file: %v", path, err)
		return NewText(nil, stdout, tag)
	}
	f.Close()

	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: 1,
	}
	return NewText(w, stdout, tag)
}

func (t *Text) Printf(format string, args ...any) {
	line := t.tag + " - " + fmt.Sprintf(format, args...)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stdout != nil {
		io.WriteString(t.stdout, line)
	}
	t.buf.WriteString(line)
	if t.buf.Len() >= FlushThreshold {
		// An error here will resurface from the next Flush.
		_ = t.flushLocked()
	}
}

// Flush writes the buffered text to the file.
func (t *Text) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushLocked()
}

func (t *Text) flushLocked() error {
	defer t.buf.Reset()

	if t.file == nil || t.buf.Len() == 0 {
		return nil
	}
	_, err := t.file.Write(t.buf.Bytes())
	return err
}

// Buffered returns the number of bytes waiting to be flushed.
func (t *Text) Buffered() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.Len()
}

func (t *Text) Close() error {
	err := t.Flush()

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.file.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	t.file = nil
	return err
}
