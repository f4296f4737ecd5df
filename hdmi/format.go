/*
NAME
  format.go

DESCRIPTION
  format.go implements format derivation (component D): mapping a
  VideoSignal/AudioSignal snapshot to the normalized VideoFormat /
  AudioFormat the downstream pin has agreed to, including FourCC
  selection, stride/image-size computation, the USB family's
  advertised-capability pruning, and the should_change predicates that
  decide when a pin must renegotiate.

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

// FourCC names a four-byte pixel layout tag.
type FourCC string

const (
	FourCCBGR24 FourCC = "BGR24"
	FourCCNV16  FourCC = "NV16"
	FourCCAYUV  FourCC = "AYUV"
	FourCCNV12  FourCC = "NV12"
	FourCCBGR10 FourCC = "BGR10"
	FourCCP210  FourCC = "P210"
	FourCCP010  FourCC = "P010"
)

// fourCCTable maps [bitdepth bucket][pixel encoding] to a FourCC.
// bucket 0 = 8-bit, 1 = 10-bit, 2 = 12-bit. Column order follows
// PixelEncoding's declaration order: RGB444, YUV422, YUV444, YUV420.
var fourCCTable = [3][4]FourCC{
	{FourCCBGR24, FourCCNV16, FourCCAYUV, FourCCNV12},
	{FourCCBGR10, FourCCP210, FourCCAYUV, FourCCP010},
	{FourCCBGR10, FourCCP210, FourCCAYUV, FourCCP010},
}

// bitDepthBucket maps a raw bit depth to a fourCCTable row.
func bitDepthBucket(bitDepth uint8) int {
	switch {
	case bitDepth >= 12:
		return 2
	case bitDepth >= 10:
		return 1
	default:
		return 0
	}
}

// LookupFourCC returns the FourCC for a given bit depth and pixel
// encoding per the 3x4 table in the data model.
func LookupFourCC(bitDepth uint8, enc PixelEncoding) FourCC {
	return fourCCTable[bitDepthBucket(bitDepth)][enc]
}

// bytesPerPixel returns the packed bytes-per-pixel for packed FourCCs;
// it is meaningless for planar ones.
func bytesPerPixel(f FourCC) uint32 {
	switch f {
	case FourCCBGR24:
		return 3
	case FourCCBGR10, FourCCAYUV:
		return 4
	default:
		return 0
	}
}

// LineLength returns the minimum stride, in bytes, of the first (or
// only) plane of an image cx pixels wide in FourCC f.
func LineLength(f FourCC, cx uint16) uint32 {
	switch f {
	case FourCCBGR24, FourCCBGR10, FourCCAYUV:
		return uint32(cx) * bytesPerPixel(f)
	case FourCCNV12, FourCCNV16:
		return uint32(cx) // 8-bit luma plane.
	case FourCCP010, FourCCP210:
		return uint32(cx) * 2 // 16-bit-per-sample luma plane.
	default:
		return 0
	}
}

// ImageSize returns the total buffer size, in bytes, of an image
// cx x cy pixels in FourCC f: line_length*cy for packed formats, and
// luma-plane-plus-chroma-plane for the planar NV/P formats.
func ImageSize(f FourCC, cx, cy uint16) uint32 {
	w, h := uint32(cx), uint32(cy)
	switch f {
	case FourCCBGR24, FourCCBGR10, FourCCAYUV:
		return LineLength(f, cx) * h
	case FourCCNV12: // 4:2:0, 8-bit: luma + half-res interleaved chroma.
		return w*h + (w/2)*(h/2)*2
	case FourCCNV16: // 4:2:2, 8-bit: luma + full-height half-width chroma.
		return w*h + w*h
	case FourCCP010: // 4:2:0, 16-bit samples.
		return w*h*2 + (w/2)*(h/2)*2*2
	case FourCCP210: // 4:2:2, 16-bit samples.
		return w*h*2 + w*h*2
	default:
		return 0
	}
}

// VideoFormat is the derived, negotiated format a video pin delivers.
type VideoFormat struct {
	Locked bool

	Cx, Cy           uint16
	AspectX, AspectY uint16

	ColourFormat ColourFormat
	QuantRange   QuantRange
	SatRange     SatRange

	BitDepth      uint8
	PixelEncoding PixelEncoding

	PixelStructure FourCC
	BitCount       uint8
	LineLength     uint32
	ImageSize      uint32

	HdrMeta HdrMeta

	// FrameInterval is in 100-ns reference ticks.
	FrameInterval int64
}

// defaultVideoFormat is the format substituted whenever the signal is
// unlocked: 720x480 RGB 4:4:4, 8-bit, full range. This keeps the pin in
// a valid, deliverable state even with no signal.
func defaultVideoFormat() VideoFormat {
	f := VideoFormat{
		Locked:        false,
		Cx:            720,
		Cy:            480,
		AspectX:       4,
		AspectY:       3,
		ColourFormat:  ColourRGB,
		QuantRange:    QuantFull,
		SatRange:      SatFull,
		BitDepth:      8,
		PixelEncoding: EncodingRGB444,
		FrameInterval: int64(ticksPerSecond) / 30,
	}
	f.PixelStructure = LookupFourCC(f.BitDepth, f.PixelEncoding)
	f.BitCount = bitCountFor(f.PixelStructure)
	f.LineLength = LineLength(f.PixelStructure, f.Cx)
	f.ImageSize = ImageSize(f.PixelStructure, f.Cx, f.Cy)
	return f
}

// bitCountFor returns the reported bit-count-per-pixel for a FourCC,
// used to populate the downstream bitmap header.
func bitCountFor(f FourCC) uint8 {
	switch f {
	case FourCCBGR24:
		return 24
	case FourCCBGR10, FourCCAYUV:
		return 32
	case FourCCNV12:
		return 12
	case FourCCNV16:
		return 16
	case FourCCP010:
		return 24
	case FourCCP210:
		return 32
	default:
		return 0
	}
}

// UsbCapabilities describes a USB device's advertised format support,
// consulted after natural derivation to prune unsupported choices.
type UsbCapabilities struct {
	SupportedFourCCs       []FourCC
	SupportedFrameIntervals []int64 // 100-ns ticks.
	SupportedFrameSizes    [][2]uint16

	// DefaultFourCC, DefaultFrameInterval and DefaultFrameSize are
	// substituted per-dimension when the natural derivation is
	// unsupported.
	DefaultFourCC        FourCC
	DefaultFrameInterval int64
	DefaultFrameSize     [2]uint16
}

// frameIntervalTolerance is the ± tolerance, in 100-ns ticks, used when
// comparing frame intervals for equality.
const frameIntervalTolerance = 100

func containsFourCC(list []FourCC, f FourCC) bool {
	for _, x := range list {
		if x == f {
			return true
		}
	}
	return false
}

func containsFrameInterval(list []int64, v int64) bool {
	for _, x := range list {
		if diff := x - v; diff <= frameIntervalTolerance && diff >= -frameIntervalTolerance {
			return true
		}
	}
	return false
}

func containsFrameSize(list [][2]uint16, cx, cy uint16) bool {
	for _, x := range list {
		if x[0] == cx && x[1] == cy {
			return true
		}
	}
	return false
}

// pruneForUsb tests the naturally derived FourCC, frame interval and
// frame size against a USB device's advertised capabilities, and
// substitutes the device's default at each dimension independently
// when unsupported.
func pruneForUsb(f VideoFormat, caps UsbCapabilities) VideoFormat {
	if caps.SupportedFourCCs != nil && !containsFourCC(caps.SupportedFourCCs, f.PixelStructure) {
		f.PixelStructure = caps.DefaultFourCC
		f.BitCount = bitCountFor(f.PixelStructure)
	}
	if caps.SupportedFrameIntervals != nil && !containsFrameInterval(caps.SupportedFrameIntervals, f.FrameInterval) {
		f.FrameInterval = caps.DefaultFrameInterval
	}
	if caps.SupportedFrameSizes != nil && !containsFrameSize(caps.SupportedFrameSizes, f.Cx, f.Cy) {
		f.Cx, f.Cy = caps.DefaultFrameSize[0], caps.DefaultFrameSize[1]
	}
	f.LineLength = LineLength(f.PixelStructure, f.Cx)
	f.ImageSize = ImageSize(f.PixelStructure, f.Cx, f.Cy)
	return f
}

// DeriveVideoFormat maps a VideoSignal snapshot to a VideoFormat. When
// caps is non-nil, the derived format is additionally pruned against a
// USB device's advertised capabilities.
func DeriveVideoFormat(sig VideoSignal, caps *UsbCapabilities) VideoFormat {
	if !sig.Locked {
		f := defaultVideoFormat()
		if caps != nil {
			f = pruneForUsb(f, *caps)
		}
		return f
	}

	f := VideoFormat{
		Locked:        true,
		Cx:            sig.Cx,
		Cy:            sig.Cy,
		AspectX:       sig.AspectX,
		AspectY:       sig.AspectY,
		ColourFormat:  sig.ColourFormat,
		QuantRange:    sig.QuantRange,
		SatRange:      sig.SatRange,
		BitDepth:      sig.BitDepth,
		PixelEncoding: sig.PixelEncoding,
		FrameInterval: int64(sig.FrameDuration100ns),
		HdrMeta:       DecodeHdrMeta(sig.Hdr),
	}
	f.PixelStructure = LookupFourCC(f.BitDepth, f.PixelEncoding)
	f.BitCount = bitCountFor(f.PixelStructure)
	f.LineLength = LineLength(f.PixelStructure, f.Cx)
	f.ImageSize = ImageSize(f.PixelStructure, f.Cx, f.Cy)

	if caps != nil {
		f = pruneForUsb(f, *caps)
	}
	return f
}

// VideoShouldChange reports whether new differs from cur in any field
// that requires downstream renegotiation.
func VideoShouldChange(cur, next VideoFormat) bool {
	switch {
	case cur.Cx != next.Cx, cur.Cy != next.Cy:
		return true
	case cur.AspectX != next.AspectX, cur.AspectY != next.AspectY:
		return true
	case abs64(next.FrameInterval-cur.FrameInterval) >= frameIntervalTolerance:
		return true
	case cur.BitDepth != next.BitDepth:
		return true
	case cur.PixelEncoding != next.PixelEncoding:
		return true
	case cur.ColourFormat != next.ColourFormat:
		return true
	case cur.QuantRange != next.QuantRange:
		return true
	case cur.SatRange != next.SatRange:
		return true
	case cur.HdrMeta.TransferFunction != next.HdrMeta.TransferFunction:
		return true
	default:
		return false
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// AudioCodec enumerates the codec an AudioFormat carries.
type AudioCodec int

const (
	CodecPCM AudioCodec = iota
	CodecAC3
	CodecDTS
	CodecDTSHD
	CodecEAC3
	CodecTrueHD
	CodecBitstream
	CodecPauseOrNull
)

// NotPresent is the sentinel value used in AudioFormat.ChannelOffsets
// and LfeChannelIndex to mark a slot that carries no channel.
const NotPresent = 1024

// AudioFormat is the derived, negotiated format an audio pin delivers.
type AudioFormat struct {
	Codec AudioCodec

	SampleRate    uint32
	BitDepth      uint8
	BitDepthBytes uint8

	InputChannelCount  uint8
	OutputChannelCount uint8

	ChannelOffsets [8]int16
	ChannelMask    uint32
	ChannelLayout  string
	LfeChannelIndex int

	LfeLevelAdjustment float64

	// DataBurstSize is only meaningful for non-PCM codecs.
	DataBurstSize uint16
}

// DeriveAudioFormat maps an AudioSignal snapshot to a baseline PCM
// AudioFormat using the channel allocation decoder (component E). The
// audio pin loop may subsequently override Codec and DataBurstSize
// once the bitstream parser classifies the stream (§4.7).
func DeriveAudioFormat(sig AudioSignal) AudioFormat {
	ca := DecodeChannelAllocation(sig.ChannelValidMask, sig.ChannelAllocation, sig.LfePlaybackLevel)

	bitDepthBytes := uint8(4)
	switch {
	case sig.BitsPerSample <= 16:
		bitDepthBytes = 2
	case sig.BitsPerSample <= 24:
		bitDepthBytes = 3
	}

	return AudioFormat{
		Codec:              CodecPCM,
		SampleRate:         sig.SampleRate,
		BitDepth:           sig.BitsPerSample,
		BitDepthBytes:      bitDepthBytes,
		InputChannelCount:  ca.InputChannelCount,
		OutputChannelCount: ca.OutputChannelCount,
		ChannelOffsets:     ca.ChannelOffsets,
		ChannelMask:        ca.ChannelMask,
		ChannelLayout:      ca.ChannelLayout,
		LfeChannelIndex:    ca.LfeChannelIndex,
		LfeLevelAdjustment: ca.LfeLevelAdjustment,
	}
}

// AudioShouldChange reports whether new differs from cur in any field
// that requires downstream renegotiation. DataBurstSize is only
// compared when either format is non-PCM, per the spec.
func AudioShouldChange(cur, next AudioFormat) bool {
	switch {
	case cur.InputChannelCount != next.InputChannelCount:
		return true
	case cur.OutputChannelCount != next.OutputChannelCount:
		return true
	case cur.BitDepth != next.BitDepth:
		return true
	case cur.SampleRate != next.SampleRate:
		return true
	case cur.Codec != next.Codec:
		return true
	case cur.ChannelMask != next.ChannelMask:
		return true
	case (cur.Codec != CodecPCM || next.Codec != CodecPCM) && cur.DataBurstSize != next.DataBurstSize:
		return true
	default:
		return false
	}
}
