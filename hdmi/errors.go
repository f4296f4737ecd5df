/*
NAME
  errors.go

DESCRIPTION
  errors.go implements the error taxonomy of the capture core: transient,
  recoverable-format, downstream-fatal, device-fatal and logical errors,
  each with its own retry/backoff policy applied by the pin loops.

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

import "errors"

// Sentinel errors used to classify conditions returned by the SDK
// collaborators (ChannelSDK, Backend). Pin loops use errors.Is against
// these to decide on a retry policy.
var (
	// Transient: back off briefly and retry, loop continues.
	ErrDeviceBusy         = errors.New("hdmi: device busy")
	ErrBufferUnavailable  = errors.New("hdmi: buffer unavailable")
	ErrTimeout            = errors.New("hdmi: wait timed out")
	ErrBuffersOutstanding = errors.New("hdmi: buffers outstanding downstream")

	// Recoverable format: suppress the frame, re-probe, attempt renegotiation.
	ErrFormatChanged    = errors.New("hdmi: format changed")
	ErrSignalLost       = errors.New("hdmi: signal lost")
	ErrNoChannels       = errors.New("hdmi: signal reports no channels")
	ErrInvalidBitDepth  = errors.New("hdmi: invalid bit depth")

	// Downstream-fatal: exit the pin loop cleanly.
	ErrDeliverFailed     = errors.New("hdmi: delivery to downstream sink failed")
	ErrRenegotiateFailed = errors.New("hdmi: renegotiation with downstream failed")

	// Device-fatal: surface at pin start, abort.
	ErrOpenFailed            = errors.New("hdmi: could not open channel")
	ErrNotifyRegisterFailed  = errors.New("hdmi: could not register for notifications")
	ErrStartCaptureFailed    = errors.New("hdmi: could not start device capture")

	// Logical: reclassified internally, never propagated out of the parser.
	ErrUnknownPreamble = errors.New("hdmi: unknown IEC 61937 burst preamble")

	// NoDevice is returned by the registry when enumeration finds no
	// HDMI-capable channel matching the selector.
	ErrNoDevice = errors.New("hdmi: no device")
)

// ErrorClass categorises an error from the taxonomy above so that a pin
// loop can apply the matching policy without an exhaustive type switch
// at every call site.
type ErrorClass int

const (
	ClassUnknown ErrorClass = iota
	ClassTransient
	ClassRecoverableFormat
	ClassDownstreamFatal
	ClassDeviceFatal
	ClassLogical
)

// Classify returns the ErrorClass of err, or ClassUnknown if err does not
// match any sentinel in the taxonomy.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassUnknown
	case errors.Is(err, ErrDeviceBusy), errors.Is(err, ErrBufferUnavailable),
		errors.Is(err, ErrTimeout), errors.Is(err, ErrBuffersOutstanding):
		return ClassTransient
	case errors.Is(err, ErrFormatChanged), errors.Is(err, ErrSignalLost),
		errors.Is(err, ErrNoChannels), errors.Is(err, ErrInvalidBitDepth):
		return ClassRecoverableFormat
	case errors.Is(err, ErrDeliverFailed), errors.Is(err, ErrRenegotiateFailed):
		return ClassDownstreamFatal
	case errors.Is(err, ErrOpenFailed), errors.Is(err, ErrNotifyRegisterFailed),
		errors.Is(err, ErrStartCaptureFailed):
		return ClassDeviceFatal
	case errors.Is(err, ErrUnknownPreamble):
		return ClassLogical
	default:
		return ClassUnknown
	}
}

// TransientError wraps a sentinel from the transient class with
// call-site context (e.g. which pin, which buffer request). Callers
// may classify it with errors.As instead of inspecting ErrorClass
// directly.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return "hdmi: " + e.Op + ": " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// FormatError wraps a sentinel from the recoverable-format class.
type FormatError struct {
	Op  string
	Err error
}

func (e *FormatError) Error() string { return "hdmi: " + e.Op + ": " + e.Err.Error() }
func (e *FormatError) Unwrap() error { return e.Err }

// FatalError wraps a sentinel from the downstream-fatal or
// device-fatal classes.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string { return "hdmi: " + e.Op + ": " + e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }
