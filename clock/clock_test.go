// clock/clock_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package clock

import (
	"testing"
	"time"
)

func TestMonotonicNeverGoesBackward(t *testing.T) {
	c := Monotonic()
	if c.Frequency() <= 0 {
		t.Fatalf("expected positive frequency, got %d", c.Frequency())
	}

	prev := c.Now()
	for range 10000 {
		now := c.Now()
		if now < prev {
			t.Fatalf("clock went backward: %d after %d", now, prev)
		}
		prev = now
	}
}

func TestMonotonicElapsed(t *testing.T) {
	c := Monotonic()
	a := c.Now()
	time.Sleep(20 * time.Millisecond)
	b := c.Now()

	if e := Elapsed(c, a, b); e < 0.015 || e > 5 {
		t.Errorf("expected roughly 0.02s elapsed, got %f", e)
	}
}

func TestManualClock(t *testing.T) {
	c := NewManualClock(1000)
	a := c.Now()
	c.Advance(250)
	if e := Elapsed(c, a, c.Now()); e != 0.25 {
		t.Errorf("expected 0.25, got %f", e)
	}

	c.AdvanceSeconds(1.5)
	if c.Now() != 1750 {
		t.Errorf("expected tick 1750, got %d", c.Now())
	}

	c.Set(10)
	if c.Now() != 10 {
		t.Errorf("expected tick 10, got %d", c.Now())
	}
}

func TestElapsedZeroFrequency(t *testing.T) {
	c := NewManualClock(0)
	if e := Elapsed(c, 0, 100); e != 0 {
		t.Errorf("expected 0 with a zero frequency, got %f", e)
	}
}
