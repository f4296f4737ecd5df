/*
NAME
  signal.go

DESCRIPTION
  signal.go defines the read-only signal snapshots (VideoSignal,
  AudioSignal, HdrInfoFrame, AviInfoFrame) and the SignalProbe
  collaborator that reloads them from the device each pin iteration.

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

// SignalState describes the current lock state of the input signal.
type SignalState int

const (
	StateNoSignal SignalState = iota
	StateUnsupported
	StateLocking
	StateLocked
)

// ColourFormat enumerates the colour spaces a VideoSignal may report.
type ColourFormat int

const (
	ColourUnknown ColourFormat = iota
	ColourRGB
	ColourYUV601
	ColourYUV709
	ColourYUV2020
	ColourYUV2020C
)

// QuantRange and SatRange enumerate the quantisation/saturation ranges
// a VideoSignal may report.
type QuantRange int

const (
	QuantUnknown QuantRange = iota
	QuantLimited
	QuantFull
)

type SatRange int

const (
	SatUnknown SatRange = iota
	SatLimited
	SatFull
	SatExtendedGamut
)

// PixelEncoding enumerates the chroma subsampling/packing the signal
// uses.
type PixelEncoding int

const (
	EncodingRGB444 PixelEncoding = iota
	EncodingYUV422
	EncodingYUV444
	EncodingYUV420
)

// HdrInfoFrame is the raw HDR static-metadata InfoFrame as read from
// the device, with its multi-byte fields already held as 16-bit values
// (hdr.go does no byte reassembly).
type HdrInfoFrame struct {
	// EOTF is the transfer_function byte of the InfoFrame: 4 = REC.709,
	// 15 = ST.2084 (PQ). Other values are passed through unscaled.
	EOTF uint8

	// DisplayPrimariesX/Y hold the raw chromaticity coordinates for the
	// three colour primaries, in InfoFrame order [R, G, B], each in
	// units of 0.00002.
	DisplayPrimariesX [3]uint16
	DisplayPrimariesY [3]uint16

	// WhitePointX/Y are the raw mastering-display white point
	// coordinates, in units of 0.00002.
	WhitePointX uint16
	WhitePointY uint16

	// MaxDisplayMasteringLuminance is in units of 1 cd/m^2.
	MaxDisplayMasteringLuminance uint16
	// MinDisplayMasteringLuminance is in units of 0.0001 cd/m^2.
	MinDisplayMasteringLuminance uint16

	// MaxCLL and MaxFALL are both in cd/m^2.
	MaxCLL  uint16
	MaxFALL uint16
}

// AviInfoFrame carries the subset of the AVI InfoFrame the format
// derivation consumes (aspect ratio and colourimetry are folded into
// VideoSignal directly; this struct is kept for fields with no other
// home, such as the active format indicator).
type AviInfoFrame struct {
	ActiveFormatValid bool
	ActiveFormat      uint8
}

// VideoSignal is a read-only snapshot of the current video input
// geometry and colour state, reloaded by the SignalProbe each pin
// iteration. It is never mutated once returned.
type VideoSignal struct {
	Locked bool

	Cx, Cy               uint16
	AspectX, AspectY     uint16
	FrameDuration100ns   uint32 // Reference-time ticks per frame (10^7 / fps).

	ColourFormat ColourFormat
	QuantRange   QuantRange
	SatRange     SatRange

	BitDepth      uint8
	PixelEncoding PixelEncoding

	Hdr *HdrInfoFrame
	Avi *AviInfoFrame
}

// AudioSignal is a read-only snapshot of the current audio input
// state, reloaded by the SignalProbe each pin iteration.
type AudioSignal struct {
	Lpcm bool

	SampleRate     uint32
	BitsPerSample  uint8

	// ChannelValidMask has one bit set per IEC channel-status pair
	// reported present by the device; bits 0..3 correspond to pairs
	// 0..3 (2, 4, 6 or 8 input slots).
	ChannelValidMask uint16

	// ChannelAllocation is the raw CEA-861-E Table 28 code, 0x00..0x31.
	ChannelAllocation uint8

	// LfePlaybackLevel is the raw LFEPBL field; 0x2 selects a -10dB
	// gain reduction on the LFE channel.
	LfePlaybackLevel uint8
}

// SignalProbe is the narrow collaborator that reads the current signal
// state from an open channel. It never mutates device state.
type SignalProbe interface {
	// VideoState returns the current video lock state for ch.
	VideoState(ch ChannelHandle) (SignalState, error)

	// AudioState returns the current audio lock state for ch.
	AudioState(ch ChannelHandle) (SignalState, error)

	// ProbeVideo returns a fresh VideoSignal snapshot. When the video
	// state is not StateLocked, the returned signal has Locked=false
	// and its HDR/AVI fields are nil (zeroed), matching the contract
	// that signal.Locked is the sole authority on validity.
	ProbeVideo(ch ChannelHandle) (VideoSignal, error)

	// ProbeAudio returns a fresh AudioSignal snapshot.
	ProbeAudio(ch ChannelHandle) (AudioSignal, error)
}
