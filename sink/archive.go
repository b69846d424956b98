// sink/archive.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mmp/vkprof/profile"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// Archive appends reports to a zstd-compressed stream of msgpack records.
// Each report is flushed as it is written, so a truncated file still
// decodes up to the last complete report.
type Archive struct {
	mu  sync.Mutex
	f   *os.File
	zw  *zstd.Encoder
	enc *msgpack.Encoder
}

func CreateArchive(path string) (*Archive, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &Archive{f: f, zw: zw, enc: msgpack.NewEncoder(zw)}, nil
}

func (a *Archive) Archive(r *profile.Report) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.zw == nil {
		return errors.New("archive is closed")
	}
	if err := a.enc.Encode(r); err != nil {
		return err
	}
	return a.zw.Flush()
}

func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.zw == nil {
		return nil
	}
	err := a.zw.Close()
	if ferr := a.f.Close(); err == nil {
		err = ferr
	}
	a.zw = nil
	return err
}

// ReadArchive decodes the reports in the archive at path, calling fn for
// each one in order.
func ReadArchive(path string, fn func(*profile.Report) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer zr.Close()

	dec := msgpack.NewDecoder(zr)
	for {
		var r profile.Report
		if err := dec.Decode(&r); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := fn(&r); err != nil {
			return err
		}
	}
}
