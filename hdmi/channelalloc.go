/*
NAME
  channelalloc.go

DESCRIPTION
  channelalloc.go implements the channel allocation decoder (component
  E): mapping the HDMI CEA-861 channel-allocation byte, together with
  the channel-valid-mask pair-presence bits, to an output channel
  count, Windows-style speaker mask, per-input-slot remap offsets and
  LFE index. The full CEA-861 Table 28 (codes 0x00..0x31) is
  implemented exhaustively, each code a distinct contract transcribed
  from the vendor SDK's own per-code switch.

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
	"math/bits"
	"strings"
)

// Windows KSAUDIO speaker-mask bit values (ksmedia.h SPEAKER_* constants).
const (
	maskFL  = 0x00001
	maskFR  = 0x00002
	maskFC  = 0x00004
	maskLFE = 0x00008
	maskBL  = 0x00010
	maskBR  = 0x00020
	maskFLC = 0x00040
	maskFRC = 0x00080
	maskBC  = 0x00100
	maskSL  = 0x00200
	maskSR  = 0x00400
	maskTC  = 0x00800
	maskTFL = 0x01000
	maskTFC = 0x02000
	maskTFR = 0x04000
)

// np abbreviates NotPresent inside the allocation table below, where
// it is used for every input slot not carrying a channel.
const np = NotPresent

// allocEntry is one row of the CEA-861 channel-allocation table: input
// and output channel counts, the Windows speaker mask, each input
// slot's remap offset (added to its slot index to get its output
// position, or NotPresent if the slot carries no channel), and the LFE
// channel's input slot index (or NotPresent if this code carries no
// LFE).
type allocEntry struct {
	inCh, outCh uint8
	mask        uint32
	offs        [8]int16
	lfe         int
}

// channelAllocTable is the full CEA-861 Table 28, codes 0x00..0x31,
// field-for-field as the vendor SDK's LoadFormat derives them. Two
// corrections are applied relative to that source, each breaking an
// internal contradiction between a code's own channelMask/offsets and
// its lfeChannelIndex (see DESIGN.md "channel allocation table"):
// code 0x08 never reassigns lfeChannelIndex away from its 6-channel
// default of 2, despite marking slot 2 not present; code 0x09 sets
// lfeChannelIndex to not-present despite marking slot 2 present with
// LFE in the mask. Codes 0x25 and 0x27 also omit SPEAKER_BACK_RIGHT
// from channelMask despite slot 5 (BR) being present in offsets; that
// bit is restored here.
var channelAllocTable = [50]allocEntry{
	0x00: {2, 2, maskFL | maskFR, [8]int16{0, 0, np, np, np, np, np, np}, np},
	0x01: {4, 3, maskFL | maskFR | maskLFE, [8]int16{0, 0, 0, np, np, np, np, np}, 2},
	0x02: {4, 3, maskFL | maskFR | maskFC, [8]int16{0, 0, np, 0, np, np, np, np}, np},
	0x03: {4, 4, maskFL | maskFR | maskFC | maskLFE, [8]int16{0, 0, 1, -1, np, np, np, np}, 2},
	0x04: {6, 3, maskFL | maskFR | maskBC, [8]int16{0, 0, np, np, 0, np, np, np}, np},
	0x05: {6, 4, maskFL | maskFR | maskLFE | maskBC, [8]int16{0, 0, 0, np, 0, np, np, np}, 2},
	0x06: {6, 4, maskFL | maskFR | maskFC | maskBC, [8]int16{0, 0, np, 0, 0, np, np, np}, np},
	0x07: {6, 5, maskFL | maskFR | maskLFE | maskFC | maskBC, [8]int16{0, 0, 1, -1, 0, np, np, np}, 2},
	// Corrected: source leaves lfeChannelIndex at the stale 6-channel
	// default of 2 though this code has no LFE (slot 2 not present).
	0x08: {6, 4, maskFL | maskFR | maskBL | maskBR, [8]int16{0, 0, np, np, 0, 0, np, np}, np},
	// Corrected: source sets lfeChannelIndex to not-present though
	// channelMask/offsets both carry LFE at slot 2.
	0x09: {6, 5, maskFL | maskFR | maskLFE | maskBL | maskBR, [8]int16{0, 0, 0, np, 0, 0, np, np}, 2},
	0x0A: {6, 5, maskFL | maskFR | maskFC | maskBL | maskBR, [8]int16{0, 0, np, 0, 0, 0, np, np}, np},
	0x0B: {6, 6, maskFL | maskFR | maskFC | maskLFE | maskBL | maskBR, [8]int16{0, 0, 1, -1, 0, 0, np, np}, 2},
	0x0C: {8, 5, maskFL | maskFR | maskBL | maskBR | maskBC, [8]int16{0, 0, np, np, 0, 0, 0, np}, np},
	0x0D: {8, 6, maskFL | maskFR | maskLFE | maskBL | maskBR | maskBC, [8]int16{0, 0, 0, np, 0, 0, 0, np}, 2},
	0x0E: {8, 6, maskFL | maskFR | maskFC | maskBL | maskBR | maskBC, [8]int16{0, 0, np, 0, 0, 0, 0, np}, np},
	0x0F: {8, 7, maskFL | maskFR | maskFC | maskLFE | maskBL | maskBR | maskBC, [8]int16{0, 0, 1, -1, 0, 0, 0, np}, 2},
	0x10: {8, 6, maskFL | maskFR | maskSL | maskSR | maskBL | maskBR, [8]int16{0, 0, np, np, 2, 2, -2, -2}, np},
	0x11: {8, 7, maskFL | maskFR | maskLFE | maskSL | maskSR | maskBL | maskBR, [8]int16{0, 0, 0, np, 2, 2, -2, -2}, 2},
	0x12: {8, 7, maskFL | maskFR | maskFC | maskSL | maskSR | maskBL | maskBR, [8]int16{0, 0, np, 0, 2, 2, -2, -2}, np},
	0x13: {8, 8, maskFL | maskFR | maskFC | maskLFE | maskSL | maskSR | maskBL | maskBR, [8]int16{0, 0, 1, -1, 2, 2, -2, -2}, 2},
	0x14: {8, 4, maskFL | maskFR | maskFLC | maskFRC, [8]int16{0, 0, np, np, np, np, 0, 0}, np},
	0x15: {8, 5, maskFL | maskFR | maskLFE | maskFLC | maskFRC, [8]int16{0, 0, 0, np, np, np, 0, 0}, 2},
	0x16: {8, 5, maskFL | maskFR | maskFC | maskFLC | maskFRC, [8]int16{0, 0, np, 0, np, np, 0, 0}, np},
	0x17: {8, 6, maskFL | maskFR | maskLFE | maskFC | maskFLC | maskFRC, [8]int16{0, 0, 1, -1, np, np, 0, 0}, 2},
	0x18: {8, 5, maskFL | maskFR | maskBC | maskFLC | maskFRC, [8]int16{0, 0, np, np, 2, np, -1, -1}, np},
	0x19: {8, 6, maskFL | maskFR | maskLFE | maskBC | maskFLC | maskFRC, [8]int16{0, 0, 0, np, 2, np, -1, -1}, 2},
	0x1A: {8, 6, maskFL | maskFR | maskFC | maskBC | maskFLC | maskFRC, [8]int16{0, 0, np, np, 2, np, -1, -1}, np},
	0x1B: {8, 7, maskFL | maskFR | maskLFE | maskFC | maskBC | maskFLC | maskFRC, [8]int16{0, 0, 1, -1, 2, np, -1, -1}, 2},
	0x1C: {8, 6, maskFL | maskFR | maskBL | maskBR | maskFLC | maskFRC, [8]int16{0, 0, np, np, 0, 0, 0, 0}, np},
	0x1D: {8, 7, maskFL | maskFR | maskLFE | maskBL | maskBR | maskFLC | maskFRC, [8]int16{0, 0, 0, np, 0, 0, 0, 0}, 2},
	0x1E: {8, 7, maskFL | maskFR | maskFC | maskBL | maskBR | maskFLC | maskFRC, [8]int16{0, 0, np, 0, 0, 0, 0, 0}, np},
	0x1F: {8, 8, maskFL | maskFR | maskLFE | maskFC | maskBL | maskBR | maskFLC | maskFRC, [8]int16{0, 0, 1, -1, 0, 0, 0, 0}, 2},
	0x20: {8, 6, maskFL | maskFR | maskFC | maskBL | maskBR | maskTFC, [8]int16{0, 0, np, 0, 0, 0, 0, np}, np},
	0x21: {8, 7, maskFL | maskFR | maskLFE | maskFC | maskBL | maskBR | maskTFC, [8]int16{0, 0, 1, -1, 0, 0, 0, np}, 2},
	0x22: {8, 6, maskFL | maskFR | maskFC | maskBL | maskBR | maskTC, [8]int16{0, 0, np, 0, 0, 0, np, 0}, np},
	0x23: {8, 7, maskFL | maskFR | maskLFE | maskFC | maskBL | maskBR | maskTC, [8]int16{0, 0, 1, -1, 0, 0, np, 0}, 2},
	0x24: {8, 6, maskFL | maskFR | maskBL | maskBR | maskTFL | maskTFR, [8]int16{0, 0, np, np, 0, 0, 0, 0}, np},
	// Corrected: source omits SPEAKER_BACK_RIGHT from channelMask
	// though offsets[5] (BR) is marked present.
	0x25: {8, 7, maskFL | maskFR | maskLFE | maskBL | maskBR | maskTFL | maskTFR, [8]int16{0, 0, 0, np, 0, 0, 0, 0}, 2},
	0x26: {8, 4, maskFL | maskFR | maskBL | maskBR, [8]int16{0, 0, np, np, 0, 0, np, np}, np}, // FLW/FRW dropped, no Windows equivalent.
	// Corrected: source omits SPEAKER_BACK_RIGHT from channelMask
	// though offsets[5] (BR) is marked present.
	0x27: {8, 5, maskFL | maskFR | maskLFE | maskBL | maskBR, [8]int16{0, 0, 0, np, 0, 0, np, np}, 2}, // FLW/FRW dropped, no Windows equivalent.
	0x28: {8, 7, maskFL | maskFR | maskFC | maskBL | maskBR | maskBC | maskTC, [8]int16{0, 0, np, 0, 0, 0, 0, 0}, np},
	0x29: {8, 8, maskFL | maskFR | maskLFE | maskFC | maskBL | maskBR | maskBC | maskTC, [8]int16{0, 0, 1, -1, 0, 0, 0, 0}, 2},
	0x2A: {8, 7, maskFL | maskFR | maskFC | maskBL | maskBR | maskBC | maskTFC, [8]int16{0, 0, np, 0, 0, 0, 0, 0}, np},
	0x2B: {8, 8, maskFL | maskFR | maskLFE | maskFC | maskBL | maskBR | maskBC | maskTFC, [8]int16{0, 0, 1, -1, 0, 0, 0, 0}, 2},
	0x2C: {8, 7, maskFL | maskFR | maskFC | maskBL | maskBR | maskTFC | maskTC, [8]int16{0, 0, 0, np, 0, 0, 1, -1}, np},
	0x2D: {8, 8, maskFL | maskFR | maskLFE | maskFC | maskBL | maskBR | maskTFC | maskTC, [8]int16{0, 0, 1, -1, 0, 0, 1, -1}, 2},
	0x2E: {8, 7, maskFL | maskFR | maskFC | maskBL | maskBR | maskTFL | maskTFR, [8]int16{0, 0, np, 0, 0, 0, 0, 0}, np},
	0x2F: {8, 8, maskFL | maskFR | maskLFE | maskFC | maskBL | maskBR | maskTFL | maskTFR, [8]int16{0, 0, 1, -1, 0, 0, 0, 0}, 2},
	0x30: {8, 5, maskFL | maskFR | maskFC | maskBL | maskBR, [8]int16{0, 0, np, 0, 0, 0, np, np}, np}, // FLW/FRW dropped, no Windows equivalent.
	0x31: {8, 6, maskFL | maskFR | maskLFE | maskFC | maskBL | maskBR, [8]int16{0, 0, 1, -1, 0, 0, np, np}, 2}, // FLW/FRW dropped, no Windows equivalent.
}

// maskNames orders every named output position by ascending Windows
// speaker-mask bit value, the canonical front-to-back, left-to-right,
// floor-to-ceiling arrangement used to render a ChannelLayout string.
var maskNames = []struct {
	mask uint32
	name string
}{
	{maskFL, "FL"}, {maskFR, "FR"}, {maskFC, "FC"}, {maskLFE, "LFE"},
	{maskBL, "BL"}, {maskBR, "BR"}, {maskFLC, "FLC"}, {maskFRC, "FRC"},
	{maskBC, "BC"}, {maskSL, "SL"}, {maskSR, "SR"}, {maskTC, "TC"},
	{maskTFL, "TFL"}, {maskTFC, "TFC"}, {maskTFR, "TFR"},
}

func layoutForMask(mask uint32) string {
	var names []string
	for _, m := range maskNames {
		if mask&m.mask != 0 {
			names = append(names, m.name)
		}
	}
	return strings.Join(names, " ")
}

// ChannelAllocation is the decoded result of applying the channel
// allocation decoder to one CEA-861 code and valid-mask pair.
type ChannelAllocation struct {
	InputChannelCount  uint8
	OutputChannelCount uint8
	ChannelMask        uint32
	ChannelLayout      string
	ChannelOffsets     [8]int16
	LfeChannelIndex    int
	LfeLevelAdjustment float64
}

// defaultCodeForCount returns the canonical default allocation code for
// a given input slot count, used when code falls outside the table.
func defaultCodeForCount(n int) uint8 {
	switch n {
	case 2:
		return 0x00
	case 4:
		return 0x03
	case 6:
		return 0x0B
	case 8:
		return 0x13
	default:
		return 0x00
	}
}

// lfeGainReduced is 10^(-10/20), the -10dB linear gain applied to the
// LFE channel when LFEPBL selects the reduced playback level.
const lfeGainReduced = 0.31622776601683794

// DecodeChannelAllocation implements the channel allocation decoder
// (component E, spec §4.5). validMask carries one bit per IEC
// channel-status pair reported present (bits 0..3); code is the raw
// CEA-861 channel_allocation byte; lfePlaybackLevel is the raw LFEPBL
// field (0x2 selects -10dB). LfeChannelIndex is the raw HDMI input
// slot carrying the LFE channel (not its output position); a consumer
// wanting the output position computes
// LfeChannelIndex + ChannelOffsets[LfeChannelIndex].
func DecodeChannelAllocation(validMask uint16, code uint8, lfePlaybackLevel uint8) ChannelAllocation {
	n := bits.OnesCount16(validMask&0xF) * 2
	if n == 0 {
		var ca ChannelAllocation
		for i := range ca.ChannelOffsets {
			ca.ChannelOffsets[i] = NotPresent
		}
		ca.LfeChannelIndex = NotPresent
		ca.LfeLevelAdjustment = 1.0
		return ca
	}

	e := channelAllocTable[defaultCodeForCount(n)]
	if int(code) < len(channelAllocTable) {
		e = channelAllocTable[code]
	}

	ca := ChannelAllocation{
		InputChannelCount:  e.inCh,
		OutputChannelCount: e.outCh,
		ChannelMask:        e.mask,
		ChannelLayout:      layoutForMask(e.mask),
		ChannelOffsets:     e.offs,
		LfeChannelIndex:    e.lfe,
	}
	if lfePlaybackLevel == 0x2 {
		ca.LfeLevelAdjustment = lfeGainReduced
	} else {
		ca.LfeLevelAdjustment = 1.0
	}
	return ca
}
