/*
NAME
  clock.go

DESCRIPTION
  clock.go implements the reference clock shared by every pin: a
  monotonic source of 100-ns reference-time ticks, backed either by the
  device's own hardware time (Pro family) or the host's monotonic clock
  (USB family).

AUTHOR
  AusOcean capture team

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package hdmi

import (
	"sync"
	"time"
)

// Reftime is a count of 100-ns ticks since an implementation-defined
// epoch, matching the host media framework's reference time unit.
type Reftime int64

// ticksPerSecond is the number of Reftime ticks in one second.
const ticksPerSecond = 10_000_000

// DurationToTicks converts a time.Duration to Reftime ticks.
func DurationToTicks(d time.Duration) Reftime {
	return Reftime(d.Nanoseconds() / 100)
}

// ChannelClock is the narrow SDK collaborator that reads hardware time
// from an open channel. Only the Pro backend implements this; it is
// the external hook the spec calls "device time read".
type ChannelClock interface {
	// DeviceTime returns the channel's current hardware time in 100-ns
	// reference ticks.
	DeviceTime() (Reftime, error)
}

// Clock is the reference clock contract every pin is constructed with:
// a monotonic, 100-ns-resolution time source that never goes backwards
// within one process.
type Clock interface {
	// Now returns the current reference time. Calls from any goroutine
	// are strictly non-decreasing.
	Now() Reftime
}

// monotonicGuard wraps a raw time source and enforces the
// non-decreasing contract even if the underlying source is noisy
// (e.g. device hardware time with limited resolution that can return
// the same or, in pathological cases, an earlier tick on successive
// reads).
type monotonicGuard struct {
	mu   sync.Mutex
	last Reftime
	read func() Reftime
}

func (g *monotonicGuard) Now() Reftime {
	g.mu.Lock()
	defer g.mu.Unlock()
	t := g.read()
	if t <= g.last {
		t = g.last + 1
	}
	g.last = t
	return t
}

// NewProClock returns a Clock backed by the Pro device's own hardware
// time, read through cc. Resolution is whatever the device exposes;
// the guard only ensures strict monotonicity.
func NewProClock(cc ChannelClock) Clock {
	return &monotonicGuard{
		read: func() Reftime {
			t, err := cc.DeviceTime()
			if err != nil {
				// The device clock is unavailable; fall back to host
				// time rather than stalling timestamp assignment.
				return DurationToTicks(time.Duration(time.Now().UnixNano()))
			}
			return t
		},
	}
}

// NewUSBClock returns a Clock backed by the host's monotonic clock,
// zeroed at the moment of construction so early timestamps stay small.
func NewUSBClock() Clock {
	epoch := time.Now()
	return &monotonicGuard{
		read: func() Reftime {
			return DurationToTicks(time.Since(epoch))
		},
	}
}
