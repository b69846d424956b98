// profile/callstats.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package profile

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mmp/vkprof/clock"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/iancoleman/orderedmap"
)

// Epsilon is added to totals before they are used as divisors.
const Epsilon = 1e-6

// DefaultMaxThreads bounds the number of threads whose in-flight call
// start times are remembered; the least recently used slot is reused
// beyond that.
const DefaultMaxThreads = 1024

// ThreadID identifies the OS thread issuing a call.
type ThreadID uint64

// CallStat accumulates the time spent in one API entry point during the
// current reporting epoch.
type CallStat struct {
	TotalTime float64 // milliseconds
	CallCount uint64
}

// RankedCall is one row of a drained call table.
type RankedCall struct {
	Name       string  `msgpack:"name"`
	TotalTime  float64 `msgpack:"total_time"`
	CallCount  uint64  `msgpack:"call_count"`
	Percentage float64 `msgpack:"percentage"`
}

func (r RankedCall) String() string {
	return fmt.Sprintf("%s,%.4f,%.2f%%,%d", r.Name, r.TotalTime, r.Percentage, r.CallCount)
}

// CallStats times API calls and aggregates the results by call name.
//
// The start of a call is remembered per thread, not per name: a call made
// while another one is in flight on the same thread overwrites the outer
// call's start time, so the outer call is charged only from the start of
// the inner one.
type CallStats struct {
	clock  clock.Clock
	starts *lru.Cache[ThreadID, int64]

	mu sync.Mutex
	// Values are *CallStat; keys stay in the order in which each name was
	// first seen in this epoch.
	table *orderedmap.OrderedMap
}

func NewCallStats(c clock.Clock, maxThreads int) (*CallStats, error) {
	if maxThreads <= 0 {
		maxThreads = DefaultMaxThreads
	}
	starts, err := lru.New[ThreadID, int64](maxThreads)
	if err != nil {
		return nil, fmt.Errorf("call start table: %w", err)
	}
	return &CallStats{
		clock:  c,
		starts: starts,
		table:  orderedmap.New(),
	}, nil
}

// BeginCall records the start time of a call on the given thread.
func (cs *CallStats) BeginCall(tid ThreadID, name string) {
	cs.starts.Add(tid, cs.clock.Now())
}

// Elapsed returns the milliseconds since the last BeginCall on the thread
// without recording anything. ok is false if the thread has no start time.
func (cs *CallStats) Elapsed(tid ThreadID) (ms float64, ok bool) {
	start, ok := cs.starts.Get(tid)
	if !ok {
		return 0, false
	}
	return 1000 * clock.Elapsed(cs.clock, start, cs.clock.Now()), true
}

// EndCall charges the time since the thread's last BeginCall to name and
// returns it in milliseconds.
func (cs *CallStats) EndCall(tid ThreadID, name string) (ms float64, ok bool) {
	ms, ok = cs.Elapsed(tid)
	if !ok {
		return 0, false
	}
	cs.Add(name, ms)
	return ms, true
}

// Add records one completed call of the given duration.
func (cs *CallStats) Add(name string, ms float64) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if v, ok := cs.table.Get(name); ok {
		st := v.(*CallStat)
		st.TotalTime += ms
		st.CallCount++
	} else {
		cs.table.Set(name, &CallStat{TotalTime: ms, CallCount: 1})
	}
}

// Len returns the number of distinct names seen in this epoch.
func (cs *CallStats) Len() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.table.Keys())
}

// DrainRanked empties the table and returns its contents ordered by
// decreasing total time; names with equal totals keep the order in which
// they were first seen. If topN is positive, at most topN rows are
// returned. Percentages are relative to the total of all rows, including
// those cut by topN. The second return value is that total.
func (cs *CallStats) DrainRanked(topN int) ([]RankedCall, float64) {
	cs.mu.Lock()
	table := cs.table
	cs.table = orderedmap.New()
	cs.mu.Unlock()

	keys := table.Keys()
	rows := make([]RankedCall, 0, len(keys))
	total := Epsilon
	for _, name := range keys {
		v, _ := table.Get(name)
		st := v.(*CallStat)
		rows = append(rows, RankedCall{Name: name, TotalTime: st.TotalTime, CallCount: st.CallCount})
		total += st.TotalTime
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].TotalTime > rows[j].TotalTime })

	if topN > 0 && len(rows) > topN {
		rows = rows[:topN]
	}
	for i := range rows {
		rows[i].Percentage = rows[i].TotalTime * 100 / total
	}
	return rows, total
}
