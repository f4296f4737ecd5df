/*
NAME
  pin.go

DESCRIPTION
  pin.go defines the capability sets and small shared helpers the video
  and audio pin loops are built from: stream state, the per-family
  capture backend dispatch (Design Notes §9, "Per-family dispatch"),
  and the delivery-buffer allocator.

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
	"sync/atomic"
	"time"
)

// StreamState is the internal cancellation flag observed by every pin
// loop iteration (spec.md §5, "Cancellation").
type StreamState int32

const (
	StateIdle StreamState = iota
	StateRunning
	StateDiscarding
)

// streamFlag is a concurrency-safe holder for a pin's StreamState.
type streamFlag struct{ v int32 }

func (f *streamFlag) Set(s StreamState) { atomic.StoreInt32(&f.v, int32(s)) }
func (f *streamFlag) Get() StreamState  { return StreamState(atomic.LoadInt32(&f.v)) }

// backoffShort and backoffLong are the two transient-failure backoff
// durations named throughout spec.md §4.6/§4.7/§7.
const (
	backoffShort = 1 * time.Millisecond
	backoffLong  = 20 * time.Millisecond

	// frameWaitTimeout is the notification-wait timeout common to both
	// pin kinds.
	frameWaitTimeout = 1000 * time.Millisecond
)

// BufferAllocator is the narrow host-framework collaborator that hands
// out delivery buffers. GetBuffer returns ErrBufferUnavailable (a
// transient error) when none is currently available.
type BufferAllocator interface {
	GetBuffer(size int) ([]byte, error)
}

// VideoBackend abstracts the Pro/USB difference in how a video pin
// waits for and fills a frame (spec.md §4.6 steps 5-8). A concrete
// backend is chosen once per pin at start (Design Notes §9).
type VideoBackend interface {
	// WaitFrame blocks up to timeout for the next frame-ready
	// notification. ready is false when the wait timed out with no
	// frame available (e.g. no signal); signalChanged is true when the
	// backend observed a signal or input-source change that should
	// trigger a re-probe instead of a frame read.
	WaitFrame(timeout time.Duration) (ready, signalChanged bool, err error)

	// FillFrame fills dst with the next frame's raw bytes.
	FillFrame(dst []byte) error
}

// AudioBackend abstracts the Pro/USB difference in how an audio pin
// obtains one hardware frame's worth of raw samples (spec.md §4.7).
type AudioBackend interface {
	// WaitFrame blocks up to timeout for the next audio-buffered
	// notification.
	WaitFrame(timeout time.Duration) (ready bool, err error)

	// CaptureFrame fills dst (a contiguous 8-channel x 4-byte x N-sample
	// buffer) with the next hardware audio frame.
	CaptureFrame(dst []byte) error
}
