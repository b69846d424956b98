// profile/report.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package profile

import (
	"fmt"
	"log/slog"
	"time"
)

// CallTableHeader is the first line of the call ranking in a report.
const CallTableHeader = "Name,Time,Percentage,CallCount"

// Report is the state emitted at each reporting interval.
type Report struct {
	Time          time.Time `msgpack:"time"`
	Frame         uint64    `msgpack:"frame"`
	MemoryObjects uint64    `msgpack:"memory_objects"`
	MemoryBytes   uint64    `msgpack:"memory_bytes"`

	HasFPS       bool    `msgpack:"has_fps"`
	FPS          float64 `msgpack:"fps"`
	AvgFrameTime float64 `msgpack:"avg_frame_time"` // milliseconds

	HasCalls      bool         `msgpack:"has_calls"`
	Calls         []RankedCall `msgpack:"calls"`
	TotalCallTime float64      `msgpack:"total_call_time"` // milliseconds

	// ProcessRSS is the resident set size of the host process; it is
	// only filled in when debug info is enabled.
	ProcessRSS uint64 `msgpack:"process_rss,omitempty"`
}

// Lines returns the text form of the report, one line per element and
// without trailing newlines.
func (r *Report) Lines() []string {
	lines := []string{
		fmt.Sprintf("Memory Allocation Count: %d", r.MemoryObjects),
		fmt.Sprintf("Total Memory Allocation Size: %d", r.MemoryBytes),
	}
	if r.ProcessRSS != 0 {
		lines = append(lines, fmt.Sprintf("Process Resident Memory: %d", r.ProcessRSS))
	}
	if r.HasCalls {
		lines = append(lines, CallTableHeader)
		for _, c := range r.Calls {
			lines = append(lines, c.String())
		}
	}
	if r.HasFPS {
		lines = append(lines, fmt.Sprintf("Avg FPS: %.2f", r.FPS))
	}
	return lines
}

func (r *Report) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Uint64("frame", r.Frame),
		slog.Uint64("memory_objects", r.MemoryObjects),
		slog.Uint64("memory_bytes", r.MemoryBytes),
	}
	if r.HasFPS {
		attrs = append(attrs, slog.Float64("fps", r.FPS), slog.Float64("avg_frame_ms", r.AvgFrameTime))
	}
	if r.HasCalls {
		attrs = append(attrs, slog.Int("call_names", len(r.Calls)),
			slog.Float64("total_call_ms", r.TotalCallTime))
		if len(r.Calls) > 0 {
			attrs = append(attrs, slog.String("hottest", r.Calls[0].Name))
		}
	}
	return slog.GroupValue(attrs...)
}
