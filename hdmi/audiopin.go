/*
NAME
  audiopin.go

DESCRIPTION
  audiopin.go implements the audio pin loop (component G): waiting for
  an audio-buffered notification, reconciling signal changes, detecting
  PCM vs bitstream content, reformatting the hardware's split-channel
  layout into interleaved PCM, and delivering either PCM samples or
  reassembled IEC 61937 data bursts.

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
	"errors"
	"math"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/ausocean/utils/pool"
)

// samplesPerHardwareFrame is the fixed hardware block size the Pro and
// USB families both deliver per audio-buffered notification.
const samplesPerHardwareFrame = 1024

// rawFrameSize is one hardware audio frame: 8 channels x 4 bytes x
// samplesPerHardwareFrame samples.
const rawFrameSize = 8 * 4 * samplesPerHardwareFrame

// Staging-buffer tuning for the raw-frame ring, sized the same way
// device/alsa sizes its own ring: enough chunks to absorb a brief
// delivery stall without growing, with a short write/read timeout
// since a stalled ring is a transient condition the pin loop already
// backs off and retries on.
const (
	stageRingLen     = 8
	stageRingTimeout = 50 * time.Millisecond
)

// bitstreamDetectWindowSeconds is the detection-window length named in
// spec.md §4.7.
const bitstreamDetectWindowSeconds = 0.075

// AudioMediaType builds the proposed media type for f: PCM or IEC
// 61937-extensible per spec.md §6. Like VideoMediaType, this package
// only carries the logical content.
func AudioMediaType(f AudioFormat) MediaType {
	return AudioPinTypeKind{Format: f}
}

// AudioPinTypeKind identifies an audio media type built by
// AudioMediaType.
type AudioPinTypeKind struct {
	Format AudioFormat
}

// AudioPin runs the capture loop of spec.md §4.7 against one audio
// input (capture or preview) of a shared channel.
type AudioPin struct {
	channel *ChannelHandle
	clock   Clock
	probe   SignalProbe
	backend AudioBackend
	sink    Sink
	alloc   BufferAllocator
	log     logging.Logger

	state       streamFlag
	streamStart Reftime
	format      AudioFormat
	sendNewType bool

	parser *Parser

	// stage is the raw-hardware-frame ring buffer absorbing jitter
	// between backend capture and this loop's own consumption of it,
	// the same pool.Buffer discipline device/alsa uses between its
	// ALSA-reader goroutine and its Read() consumer (spec.md §3,
	// "CapturedFrame... staging buffer").
	stage *pool.Buffer

	// detectWindow and framesSinceSync implement the bitstream
	// detection window of spec.md §4.7: after framesSinceSync reaches
	// detectWindow consecutive frames with no sync, the stream is
	// declared PCM.
	detectWindow    int
	framesSinceSync int
	probing         bool

	// reprobeCountdown retriggers detection every
	// detectWindow*(1/0.075) frames once PCM has been declared, to
	// catch a latent bitstream switch.
	reprobeCountdown int

	// postChangePackets counts down the first two bitstream packets
	// after a format change, which are discontinuities.
	postChangePackets int
}

// NewAudioPin constructs an AudioPin.
func NewAudioPin(ch *ChannelHandle, clock Clock, probe SignalProbe, backend AudioBackend, sink Sink, alloc BufferAllocator, log logging.Logger) *AudioPin {
	return &AudioPin{
		channel: ch, clock: clock, probe: probe, backend: backend,
		sink: sink, alloc: alloc, log: log,
		parser:  NewParser(),
		stage:   pool.NewBuffer(stageRingLen, rawFrameSize, stageRingTimeout),
		probing: true,
	}
}

// Discard transitions the pin to StateDiscarding.
func (p *AudioPin) Discard() { p.state.Set(StateDiscarding) }

// Start begins the blocking capture loop.
func (p *AudioPin) Start() error {
	p.state.Set(StateRunning)
	p.streamStart = p.clock.Now()

	defer func() {
		if err := p.channel.Release(); err != nil {
			p.log.Error("releasing channel handle on thread-destroy", "error", err)
		}
	}()

	for {
		if p.state.Get() == StateDiscarding {
			return nil
		}

		sig, err := p.probe.ProbeAudio(*p.channel)
		if err != nil {
			time.Sleep(backoffLong)
			continue
		}

		next := DeriveAudioFormat(sig)
		next.Codec = p.format.Codec // Codec is decided by detection below, not by signal alone.
		if AudioShouldChange(p.format, next) {
			if err := p.renegotiateFormat(next); err != nil {
				if Classify(err) == ClassDownstreamFatal {
					return err
				}
				time.Sleep(backoffLong)
				continue
			}
			p.format = next
			p.sendNewType = true
			p.postChangePackets = 2
			p.resetDetection(sig.SampleRate)
		}

		ready, err := p.backend.WaitFrame(frameWaitTimeout)
		if err != nil && Classify(err) != ClassTransient {
			p.log.Error("audio backend wait failed", "error", err)
			time.Sleep(backoffLong)
			continue
		}
		if !ready {
			continue
		}

		if err := p.captureAndDeliver(); err != nil {
			if Classify(err) == ClassDownstreamFatal {
				return err
			}
			time.Sleep(backoffShort)
		}
	}
}

// resetDetection resets the bitstream detection window for a newly
// negotiated sample rate.
func (p *AudioPin) resetDetection(sampleRate uint32) {
	frameDuration := float64(samplesPerHardwareFrame) / float64(sampleRate)
	p.detectWindow = int(math.Ceil(bitstreamDetectWindowSeconds / frameDuration))
	if p.detectWindow < 1 {
		p.detectWindow = 1
	}
	p.framesSinceSync = 0
	p.probing = true
	p.reprobeCountdown = 0
}

// renegotiateFormat proposes next downstream via the shared protocol.
func (p *AudioPin) renegotiateFormat(next AudioFormat) error {
	prev := AudioMediaType(p.format)
	proposed := AudioMediaType(next)
	size := 0
	if next.Codec != CodecPCM {
		size = int(next.DataBurstSize)
	}
	return renegotiate(p.sink, p.log, prev, proposed, size)
}

// captureAndDeliver pulls one hardware frame, reformats it to
// interleaved PCM, optionally runs bitstream detection, and delivers
// whichever of PCM/bitstream applies.
func (p *AudioPin) captureAndDeliver() error {
	raw := make([]byte, rawFrameSize)
	if err := p.backend.CaptureFrame(raw); err != nil {
		return err
	}

	if _, err := p.stage.Write(raw); err != nil {
		if errors.Is(err, pool.ErrDropped) {
			p.log.Warning("staging buffer dropped a frame under load")
		} else {
			return &TransientError{Op: "audio stage write", Err: err}
		}
	}
	chunk, err := p.stage.Next(stageRingTimeout)
	if err != nil {
		if errors.Is(err, pool.ErrTimeout) {
			return &TransientError{Op: "audio stage read", Err: ErrTimeout}
		}
		return &TransientError{Op: "audio stage read", Err: err}
	}
	raw = chunk.Bytes()
	if err := chunk.Close(); err != nil {
		p.log.Debug("staging buffer chunk close error", "error", err)
	}

	pcm := TransformPCMFrame(raw, p.format.ChannelOffsets, int(p.format.OutputChannelCount), int(p.format.BitDepthBytes), samplesPerHardwareFrame)

	if p.format.SampleRate >= 48000 {
		if detected, burst := p.runBitstreamDetection(raw); detected {
			return p.deliverBitstream(burst)
		}
	}

	return p.deliverPCM(pcm)
}

// runBitstreamDetection feeds the swapped, unpadded detection buffer
// to the parser and tracks the detection window (spec.md §4.7).
func (p *AudioPin) runBitstreamDetection(raw []byte) (bool, Burst) {
	swapped := swapAndStrip(raw, int(p.format.InputChannelCount), samplesPerHardwareFrame)
	bursts, result := p.parser.Feed(swapped)

	if len(bursts) > 0 {
		p.framesSinceSync = 0
		p.probing = false
		return true, bursts[len(bursts)-1]
	}

	if result == ResultFalse {
		if p.probing {
			p.framesSinceSync++
			if p.framesSinceSync >= p.detectWindow {
				p.probing = false // Declared PCM.
				p.reprobeCountdown = int(float64(p.detectWindow) * (1 / bitstreamDetectWindowSeconds))
				p.framesSinceSync = 0
			}
		} else if p.reprobeCountdown > 0 {
			p.reprobeCountdown--
			if p.reprobeCountdown == 0 {
				p.probing = true
				p.framesSinceSync = 0
			}
		}
	}
	return false, Burst{}
}

// deliverPCM delivers one hardware frame's worth of interleaved PCM as
// a single delivery buffer (spec.md §4.7, "Delivery").
func (p *AudioPin) deliverPCM(pcm []byte) error {
	buf, err := p.alloc.GetBuffer(len(pcm))
	if err != nil {
		return err
	}
	copy(buf, pcm)

	end := p.clock.Now() - p.streamStart
	start := end - Reftime(hardwareFrameDuration(p.format.SampleRate))

	sample := Sample{Data: buf, Start: start, End: end}
	if p.sendNewType {
		sample.NewMediaType = AudioMediaType(p.format)
		p.sendNewType = false
	}
	return p.sink.Deliver(sample)
}

// deliverBitstream delivers a completed data burst once it is fully
// reassembled.
func (p *AudioPin) deliverBitstream(b Burst) error {
	buf, err := p.alloc.GetBuffer(len(b.Payload))
	if err != nil {
		return err
	}
	copy(buf, b.Payload)

	end := p.clock.Now() - p.streamStart
	start := end - Reftime(hardwareFrameDuration(p.format.SampleRate))

	sample := Sample{Data: buf, Start: start, End: end}
	if p.sendNewType {
		sample.NewMediaType = AudioMediaType(p.format)
		p.sendNewType = false
	}
	if p.postChangePackets > 0 {
		sample.Discontinuity = true
		p.postChangePackets--
	}
	return p.sink.Deliver(sample)
}

// hardwareFrameDuration returns the reference-time duration of one
// 1024-sample hardware frame at sampleRate.
func hardwareFrameDuration(sampleRate uint32) int64 {
	if sampleRate == 0 {
		return 0
	}
	return int64(samplesPerHardwareFrame) * ticksPerSecond / int64(sampleRate)
}

// TransformPCMFrame reformats a raw hardware audio frame from its
// split-by-pair-side layout (L0 L1 L2 L3 R0 R1 R2 R3 per sample block,
// each channel left-zero-padded to 4 bytes) into interleaved PCM at
// outChannels x bitDepthBytes per sample, applying offsets so that the
// channel at input slot i lands at output slot i+offsets[i]. A slot
// whose offset is NotPresent is dropped. Big-endian-ordered hardware
// bytes retain their order in the PCM output (spec.md §4.7).
func TransformPCMFrame(raw []byte, offsets [8]int16, outChannels, bitDepthBytes, samples int) []byte {
	const rawChannels = 8
	const rawBytesPerChannel = 4

	out := make([]byte, samples*outChannels*bitDepthBytes)
	blockSize := rawChannels * rawBytesPerChannel

	for s := 0; s < samples; s++ {
		block := raw[s*blockSize : (s+1)*blockSize]
		for pair := 0; pair < 4; pair++ {
			lSlot := 2 * pair
			rSlot := 2*pair + 1
			lRaw := block[pair*rawBytesPerChannel : (pair+1)*rawBytesPerChannel]
			rRaw := block[16+pair*rawBytesPerChannel : 16+(pair+1)*rawBytesPerChannel]
			placePCMChannel(out, s, outChannels, bitDepthBytes, lSlot, offsets[lSlot], lRaw)
			placePCMChannel(out, s, outChannels, bitDepthBytes, rSlot, offsets[rSlot], rRaw)
		}
	}
	return out
}

// placePCMChannel writes one channel's sample into its output slot
// within out, or drops it if offset is NotPresent.
func placePCMChannel(out []byte, sampleIdx, outChannels, bitDepthBytes, slot int, offset int16, raw []byte) {
	if offset == NotPresent {
		return
	}
	outIdx := slot + int(offset)
	if outIdx < 0 || outIdx >= outChannels {
		return
	}
	src := raw[len(raw)-bitDepthBytes:] // Strip the left zero-padding.
	dstOff := (sampleIdx*outChannels + outIdx) * bitDepthBytes
	copy(out[dstOff:dstOff+bitDepthBytes], src)
}

// swapAndStrip builds the bitstream-detection buffer for one hardware
// frame: each 4-byte, left-zero-padded, big-endian hardware sample is
// reduced to its natural 16-bit big-endian codec word (spec.md §4.7,
// "byte-swaps each sample... and strips zero-padding").
func swapAndStrip(raw []byte, inputChannels, samples int) []byte {
	const rawBytesPerChannel = 4
	pairs := inputChannels / 2
	if pairs > 4 {
		pairs = 4
	}
	out := make([]byte, 0, samples*pairs*2*2)
	blockSize := 8 * rawBytesPerChannel
	for s := 0; s < samples; s++ {
		block := raw[s*blockSize : (s+1)*blockSize]
		for pair := 0; pair < pairs; pair++ {
			l := block[pair*rawBytesPerChannel : (pair+1)*rawBytesPerChannel]
			r := block[16+pair*rawBytesPerChannel : 16+(pair+1)*rawBytesPerChannel]
			// Natural big-endian 16-bit word is the low two bytes of
			// each left-zero-padded 4-byte channel sample.
			out = append(out, l[2], l[3], r[2], r[3])
		}
	}
	return out
}
