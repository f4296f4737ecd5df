/*
NAME
  sink.go

DESCRIPTION
  sink.go defines the downstream collaborator a pin delivers samples
  to, and implements the renegotiation protocol shared by the video and
  audio pin loops (spec.md §4.8).

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
	"time"

	"github.com/ausocean/utils/logging"
)

// MediaType is an opaque, pin-kind-specific media type descriptor
// (built from a VideoFormat or an AudioFormat by the caller). The core
// never inspects its contents; it only proposes and restores values
// produced by VideoMediaType/AudioMediaType.
type MediaType interface{}

// HdrSideData is the optional per-sample side-band payload a video
// pin attaches at most once a second while HdrMeta.Exists is true
// (spec.md §4.6 step 11).
type HdrSideData struct {
	DisplayPrimaries [3]Chromaticity
	WhitePoint       Chromaticity
	MinMasteringLum  float64
	MaxMasteringLum  float64
	MaxCLL           float64
	MaxFALL          float64
}

// Sample is one timestamped unit of media handed to the Sink.
type Sample struct {
	Data []byte

	// Start and End are reference-time ticks (spec.md §3, §4.6 step 9).
	Start, End Reftime

	// NewMediaType is set when this sample must carry a just-negotiated
	// media type (spec.md §4.6 step 11 / §4.8 step 6).
	NewMediaType MediaType

	// Hdr is non-nil when HDR side-band metadata must be attached to
	// this sample.
	Hdr *HdrSideData

	// Discontinuity marks a sync-point break; used for the first two
	// post-format-change bitstream packets (spec.md §4.7).
	Discontinuity bool
}

// QueryAcceptResult is the outcome of proposing a MediaType to the
// downstream Sink.
type QueryAcceptResult int

const (
	QueryAcceptOK QueryAcceptResult = iota
	QueryAcceptSizeChanged
	QueryAcceptRejected
)

// Sink is the narrow host-media-framework collaborator a pin delivers
// samples to and renegotiates format with. Concrete implementations
// live outside this package (spec.md §1, "host media framework
// registration" is an external collaborator).
type Sink interface {
	// QueryAccept asks whether mt would be accepted, without
	// committing to it.
	QueryAccept(mt MediaType) (QueryAcceptResult, error)

	// ReceiveConnection commits to mt as the new connection media
	// type.
	ReceiveConnection(mt MediaType) error

	// BuffersOutstanding reports whether the sink is still holding
	// buffers from a previous allocator commit.
	BuffersOutstanding() bool

	// Flush releases any buffers the sink is holding.
	Flush() error

	// Decommit and Commit resize the shared buffer allocator; Commit
	// is followed by Verify to confirm the new size stuck.
	Decommit() error
	Commit(bufferSize int) error
	Verify(bufferSize int) error

	// Deliver hands a filled Sample downstream. A non-nil error means
	// downstream has disconnected (spec.md §7, downstream-fatal).
	Deliver(s Sample) error
}

// renegotiate implements the shared renegotiation protocol of spec.md
// §4.8. proposed is the new media type; newSize is the delivery buffer
// size the new format requires, or 0 if it is unchanged. On success it
// returns nil and the caller should flag "send media type with next
// sample". On failure it restores prev (by attempting ReceiveConnection
// with it again) so the pin remains consistent, and returns
// ErrRenegotiateFailed.
func renegotiate(sink Sink, log logging.Logger, prev, proposed MediaType, newSize int) error {
	accept, err := sink.QueryAccept(proposed)
	if err != nil || accept == QueryAcceptRejected {
		log.Warning("downstream rejected proposed media type", "error", err)
		return restoreMediaType(sink, log, prev)
	}

	if err := sink.ReceiveConnection(proposed); err != nil {
		if sink.BuffersOutstanding() {
			if !waitForBuffers(sink, 100*time.Millisecond, 10*time.Millisecond) {
				sink.Flush()
			}
			if err := sink.ReceiveConnection(proposed); err != nil {
				log.Error("renegotiation failed on retry", "error", err)
				return restoreMediaType(sink, log, prev)
			}
		} else {
			log.Error("ReceiveConnection failed", "error", err)
			return restoreMediaType(sink, log, prev)
		}
	}

	if accept == QueryAcceptSizeChanged && newSize > 0 {
		if err := sink.Decommit(); err != nil {
			return restoreMediaType(sink, log, prev)
		}
		if err := sink.Commit(newSize); err != nil {
			return restoreMediaType(sink, log, prev)
		}
		if err := sink.Verify(newSize); err != nil {
			return restoreMediaType(sink, log, prev)
		}
	}

	return nil
}

// waitForBuffers polls sink.BuffersOutstanding every interval up to
// total, returning true once it reports false.
func waitForBuffers(sink Sink, total, interval time.Duration) bool {
	deadline := time.Now().Add(total)
	for time.Now().Before(deadline) {
		if !sink.BuffersOutstanding() {
			return true
		}
		time.Sleep(interval)
	}
	return !sink.BuffersOutstanding()
}

// restoreMediaType re-proposes prev so the pin remains in a consistent
// state after a failed renegotiation, and reports the failure.
func restoreMediaType(sink Sink, log logging.Logger, prev MediaType) error {
	if prev != nil {
		if err := sink.ReceiveConnection(prev); err != nil {
			log.Error("failed to restore previous media type", "error", err)
		}
	}
	return &FatalError{Op: "renegotiate", Err: ErrRenegotiateFailed}
}
