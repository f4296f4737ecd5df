/*
NAME
  bitstream.go

DESCRIPTION
  bitstream.go implements the audio bitstream demultiplexer (component
  H): scanning a byte-swapped PCM-carrying buffer for IEC 61937 Pa/Pb/
  Pc/Pd preambles, classifying the codec and reassembling a data burst
  across however many frames it takes.

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

// BurstCodec identifies the IEC 61937-2 Table 2 burst-data-type the
// parser classified a data burst as.
type BurstCodec int

const (
	BurstNone BurstCodec = iota
	BurstAC3
	BurstDTS
	BurstDTSHD
	BurstEAC3
	BurstTrueHD
	BurstPauseOrNull
)

// ParseResult is the outcome of feeding one chunk of bytes to the
// parser.
type ParseResult int

const (
	// ResultFalse: nothing of interest seen.
	ResultFalse ParseResult = iota
	// ResultPossibleBitstream: 1-3 bytes of a Pa/Pb sync matched;
	// inconclusive.
	ResultPossibleBitstream
	// ResultPartialBurst: a burst is in progress but not yet complete.
	ResultPartialBurst
	// ResultOk: the Pa/Pb sync completed, the Pc/Pd header completed
	// and a burst started, or a burst completed. A burst that
	// progressed without completing reports ResultPartialBurst.
	ResultOk
)

// preamble is the IEC 61937 Pa/Pb sync word.
var preamble = [4]byte{0xF8, 0x72, 0x4E, 0x1F}

// Burst is one reassembled IEC 61937 data burst, ready to route
// downstream as a compressed packet.
type Burst struct {
	Codec   BurstCodec
	Payload []byte
}

// Parser holds the IEC 61937 bitstream-demultiplexer state across
// calls to Feed, one instance per audio pin. State persists across
// hardware-frame boundaries, since a sync word or a data burst may
// span more than one frame.
type Parser struct {
	paPbMatched int // 0..4: bytes of the Pa/Pb preamble matched so far.

	pcPdBuf   [4]byte
	pcPdBytes int // 0..4: bytes of Pc/Pd collected so far.

	burstSize int
	burstRead int
	burstBuf  []byte
	codec     BurstCodec

	// BytesSincePaPb counts bytes consumed since the last completed
	// sync, for diagnostics only (spec.md §4.9 invariant).
	BytesSincePaPb uint32
}

// NewParser returns a fresh Parser with no in-progress burst.
func NewParser() *Parser { return &Parser{} }

// Feed scans data (already byte-swapped to natural big-endian codec
// order, per §4.7's detection-window buffer) for Pa/Pb/Pc/Pd preambles
// and burst payload bytes, in one pass. It returns every data burst
// completed during this call (in order; normally at most one, but a
// small or already-resynchronised burst can complete more than one
// within a single frame) and the ParseResult describing the last
// interesting thing the scan did.
func (p *Parser) Feed(data []byte) ([]Burst, ParseResult) {
	var bursts []Burst
	result := ResultFalse

	i := 0
	for i < len(data) {
		// A burst is in progress: copy as many bytes as fit both in
		// the remaining input and the remaining burst.
		if p.burstBuf != nil && p.burstRead < p.burstSize {
			n := p.burstSize - p.burstRead
			if avail := len(data) - i; avail < n {
				n = avail
			}
			copy(p.burstBuf[p.burstRead:], data[i:i+n])
			p.burstRead += n
			i += n
			p.BytesSincePaPb += uint32(n)
			if p.burstRead < p.burstSize {
				result = ResultPartialBurst
				continue
			}
			bursts = append(bursts, Burst{Codec: p.codec, Payload: p.burstBuf})
			p.resetBurst()
			result = ResultOk
			continue
		}

		// Mid Pc/Pd collection.
		if p.paPbMatched == 4 && p.pcPdBytes < 4 {
			p.pcPdBuf[p.pcPdBytes] = data[i]
			p.pcPdBytes++
			i++
			p.BytesSincePaPb++
			if p.pcPdBytes < 4 {
				result = ResultPossibleBitstream
				continue
			}
			p.startBurst()
			result = ResultOk
			continue
		}

		// Scanning for the Pa/Pb sync, tracking partial matches across
		// calls (and so across frame boundaries).
		if data[i] == preamble[p.paPbMatched] {
			p.paPbMatched++
			i++
			p.BytesSincePaPb++
			if p.paPbMatched == 4 {
				p.BytesSincePaPb = 0
				result = ResultOk
			} else {
				if result == ResultFalse {
					result = ResultPossibleBitstream
				}
			}
			continue
		}

		// No match at this position. A partial match that breaks
		// restarts the scan from the very next byte, re-testing it
		// against preamble[0] rather than skipping it outright.
		if p.paPbMatched > 0 {
			p.paPbMatched = 0
			continue
		}
		i++
		p.BytesSincePaPb++
	}

	return bursts, result
}

// startBurst classifies Pc/Pd and begins reassembling the data burst
// payload, per IEC 61937-2 Table 2.
func (p *Parser) startBurst() {
	burstType := p.pcPdBuf[1] & 0x7F
	sizeField := int(p.pcPdBuf[2])<<8 | int(p.pcPdBuf[3])

	switch burstType {
	case 0x01: // AC-3.
		p.codec = BurstAC3
		p.burstSize = sizeField / 8
	case 0x0B, 0x0C, 0x0D: // DTS types I, II, III.
		p.codec = BurstDTS
		p.burstSize = sizeField / 8
	case 0x11: // DTS-HD.
		p.codec = BurstDTSHD
		p.burstSize = sizeField
	case 0x15: // E-AC-3.
		p.codec = BurstEAC3
		p.burstSize = sizeField
	case 0x16: // TrueHD.
		p.codec = BurstTrueHD
		p.burstSize = sizeField
	case 0x00, 0x03: // Pause or Null burst.
		p.resetSync()
		return
	default:
		// Unknown preamble: reclassify as Pause/Null rather than
		// propagating an error out of the parser (spec.md §7).
		p.resetSync()
		return
	}

	if p.burstSize <= 0 {
		p.resetSync()
		return
	}
	p.burstBuf = make([]byte, p.burstSize)
	p.burstRead = 0
	p.paPbMatched = 0
	p.pcPdBytes = 0
}

// resetBurst clears burst-in-progress state after a burst completes,
// ready to scan for the next sync.
func (p *Parser) resetBurst() {
	p.burstBuf = nil
	p.burstSize = 0
	p.burstRead = 0
	p.codec = BurstNone
	p.paPbMatched = 0
	p.pcPdBytes = 0
}

// resetSync discards a Pause/Null burst and returns to scanning for
// the next sync, without ever starting a data burst. A Pause/Null
// result never advances the codec state machine and is never
// delivered downstream (spec.md §4.9 invariant).
func (p *Parser) resetSync() {
	p.paPbMatched = 0
	p.pcPdBytes = 0
}
