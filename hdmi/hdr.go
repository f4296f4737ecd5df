/*
NAME
  hdr.go

DESCRIPTION
  hdr.go implements the HDR metadata decoder: reordering of the
  InfoFrame's [R, G, B] primaries into the side-data [G, B, R] order,
  and scaling of the raw integer fields to the floating-point units the
  downstream side-band data carries. It takes the InfoFrame fields as
  16-bit values (see HdrInfoFrame) and does no LSB/MSB byte reassembly;
  the primaries are taken in fixed [R, G, B] order.

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

// Transfer function codes carried in the HDR InfoFrame's EOTF byte.
const (
	TransferREC709 = 4
	TransferST2084 = 15
)

// primaryScale converts a raw chromaticity coordinate (units of
// 0.00002) to its float value in [0, 1].
func primaryScale(raw uint16) float64 { return float64(raw) * 0.00002 }

// maxLumScale converts the raw max display-mastering luminance (units
// of 1 cd/m^2) to a float cd/m^2 value.
func maxLumScale(raw uint16) float64 { return float64(raw) }

// minLumScale converts the raw min display-mastering luminance (units
// of 0.0001 cd/m^2) to a float cd/m^2 value.
func minLumScale(raw uint16) float64 { return float64(raw) * 0.0001 }

// Chromaticity is an (x, y) point in the CIE 1931 colour space.
type Chromaticity struct {
	X, Y float64
}

// HdrMeta is the derived, side-band-ready HDR mastering metadata
// attached to video samples. Display primaries are ordered [G, B, R]
// per the documented side-data convention (idx0=G, idx1=B, idx2=R).
type HdrMeta struct {
	Exists bool

	DisplayPrimaries [3]Chromaticity // idx0=G, idx1=B, idx2=R.
	WhitePoint       Chromaticity

	MinDisplayMasteringLuminance float64 // cd/m^2.
	MaxDisplayMasteringLuminance float64 // cd/m^2.

	MaxCLL  float64 // cd/m^2.
	MaxFALL float64 // cd/m^2.

	TransferFunction uint8
}

// DecodeHdrMeta converts an HdrInfoFrame into the HdrMeta side-band
// form. frame may be nil, in which case the zero (Exists=false) HdrMeta
// is returned. Exists is set true when any structural field (a
// primary, the white point, either luminance bound, MaxCLL or MaxFALL)
// is non-zero, per the data-model invariant.
func DecodeHdrMeta(frame *HdrInfoFrame) HdrMeta {
	if frame == nil {
		return HdrMeta{}
	}

	var m HdrMeta
	m.TransferFunction = frame.EOTF

	// InfoFrame primary order is [R, G, B]; side-data order is
	// [G, B, R] (idx0=G, idx1=B, idx2=R).
	const (
		idxR = 0
		idxG = 1
		idxB = 2
	)
	m.DisplayPrimaries[0] = Chromaticity{ // G
		X: primaryScale(frame.DisplayPrimariesX[idxG]),
		Y: primaryScale(frame.DisplayPrimariesY[idxG]),
	}
	m.DisplayPrimaries[1] = Chromaticity{ // B
		X: primaryScale(frame.DisplayPrimariesX[idxB]),
		Y: primaryScale(frame.DisplayPrimariesY[idxB]),
	}
	m.DisplayPrimaries[2] = Chromaticity{ // R
		X: primaryScale(frame.DisplayPrimariesX[idxR]),
		Y: primaryScale(frame.DisplayPrimariesY[idxR]),
	}

	m.WhitePoint = Chromaticity{
		X: primaryScale(frame.WhitePointX),
		Y: primaryScale(frame.WhitePointY),
	}

	m.MinDisplayMasteringLuminance = minLumScale(frame.MinDisplayMasteringLuminance)
	m.MaxDisplayMasteringLuminance = maxLumScale(frame.MaxDisplayMasteringLuminance)
	m.MaxCLL = float64(frame.MaxCLL)
	m.MaxFALL = float64(frame.MaxFALL)

	m.Exists = frame.DisplayPrimariesX != [3]uint16{} ||
		frame.DisplayPrimariesY != [3]uint16{} ||
		frame.WhitePointX != 0 || frame.WhitePointY != 0 ||
		frame.MinDisplayMasteringLuminance != 0 ||
		frame.MaxDisplayMasteringLuminance != 0 ||
		frame.MaxCLL != 0 || frame.MaxFALL != 0

	return m
}
