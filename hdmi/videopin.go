/*
NAME
  videopin.go

DESCRIPTION
  videopin.go implements the video pin loop (component F): waiting for
  a frame-buffered notification, reconciling format changes, acquiring
  and filling a delivery buffer, and attaching timestamps and HDR
  side-band metadata before delivering the sample downstream.

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

// VideoPinTypeKind identifies a video media type built by
// VideoMediaType, so a test double Sink can inspect what was proposed
// without depending on the host framework's real type.
type VideoPinTypeKind struct {
	Format VideoFormat
}

// VideoMediaType builds the proposed media type for f: a
// (Video, VideoInfoHeader2, subtype=FourCC) descriptor per spec.md §6.
// The bitmap header, bit-rate, pict-aspect-ratio and colour-info block
// are all derived from f; this package only carries the logical
// content, leaving the concrete host-framework struct layout to the
// external collaborator that owns MediaType.
func VideoMediaType(f VideoFormat) MediaType {
	return VideoPinTypeKind{Format: f}
}

// VideoPin runs the capture loop of spec.md §4.6 against one video
// input (capture or preview) of a shared channel.
type VideoPin struct {
	channel *ChannelHandle
	clock   Clock
	probe   SignalProbe
	backend VideoBackend
	sink    Sink
	alloc   BufferAllocator
	caps    *UsbCapabilities
	log     logging.Logger

	state       streamFlag
	streamStart Reftime
	format      VideoFormat
	lastHdrSent time.Time
	sendNewType bool
}

// NewVideoPin constructs a VideoPin. caps is non-nil only for the USB
// family (spec.md §4.4, advertised-capability pruning).
func NewVideoPin(ch *ChannelHandle, clock Clock, probe SignalProbe, backend VideoBackend, sink Sink, alloc BufferAllocator, caps *UsbCapabilities, log logging.Logger) *VideoPin {
	return &VideoPin{
		channel: ch, clock: clock, probe: probe, backend: backend,
		sink: sink, alloc: alloc, caps: caps, log: log,
		format: defaultVideoFormat(),
	}
}

// Discard transitions the pin to StateDiscarding; the next loop
// iteration aborts buffer acquisition (spec.md §5, "Cancellation").
func (p *VideoPin) Discard() { p.state.Set(StateDiscarding) }

// Start begins the blocking capture loop, returning when the pin is
// discarded or the downstream Sink disconnects. Run on its own
// goroutine by the Filter (spec.md §5, "one worker thread per pin").
func (p *VideoPin) Start() error {
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

		sig, err := p.probe.ProbeVideo(*p.channel)
		hasSignal := err == nil && sig.Locked

		next := DeriveVideoFormat(sig, p.caps)
		if VideoShouldChange(p.format, next) {
			if err := p.renegotiateFormat(next); err != nil {
				if Classify(err) == ClassDownstreamFatal {
					return err
				}
				time.Sleep(backoffLong)
				continue
			}
			p.format = next
			p.sendNewType = true
		}

		ready, signalChanged, err := p.backend.WaitFrame(frameWaitTimeout)
		if err != nil && Classify(err) != ClassTransient {
			p.log.Error("video backend wait failed", "error", err)
			time.Sleep(backoffLong)
			continue
		}
		if signalChanged {
			time.Sleep(backoffLong)
			continue
		}
		if !ready {
			if !hasSignal {
				if err := p.deliverNoSignalFrame(); err != nil {
					return err
				}
			}
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

// renegotiateFormat proposes next downstream via the shared protocol.
func (p *VideoPin) renegotiateFormat(next VideoFormat) error {
	prev := VideoMediaType(p.format)
	proposed := VideoMediaType(next)
	size := 0
	if next.ImageSize != p.format.ImageSize {
		size = int(next.ImageSize)
	}
	return renegotiate(p.sink, p.log, prev, proposed, size)
}

// captureAndDeliver acquires a delivery buffer, fills it from the
// backend, stamps timestamps and side data, and delivers it.
func (p *VideoPin) captureAndDeliver() error {
	buf, err := p.alloc.GetBuffer(int(p.format.ImageSize))
	if err != nil {
		return err
	}

	if err := p.backend.FillFrame(buf); err != nil {
		return err
	}

	if p.format.PixelStructure == FourCCAYUV {
		reverseBytes(buf)
	}

	end := p.clock.Now() - p.streamStart
	start := end - Reftime(p.format.FrameInterval)

	sample := Sample{Data: buf, Start: start, End: end}
	if p.sendNewType {
		sample.NewMediaType = VideoMediaType(p.format)
		p.sendNewType = false
	}
	if p.format.HdrMeta.Exists {
		if time.Since(p.lastHdrSent) >= time.Second {
			sample.Hdr = hdrSideData(p.format.HdrMeta)
			p.lastHdrSent = time.Now()
		}
	} else {
		p.log.Debug("HDR metadata cleared")
	}

	return p.sink.Deliver(sample)
}

// deliverNoSignalFrame emits a synthesized blank frame at the default
// format when there is no signal, once per notification timeout
// (spec.md §4.6 step 6, scenario 2).
func (p *VideoPin) deliverNoSignalFrame() error {
	buf, err := p.alloc.GetBuffer(int(p.format.ImageSize))
	if err != nil {
		return err
	}
	for i := range buf {
		buf[i] = 0
	}
	end := p.clock.Now() - p.streamStart
	start := end - Reftime(p.format.FrameInterval)
	return p.sink.Deliver(Sample{Data: buf, Start: start, End: end})
}

// hdrSideData converts an HdrMeta into the per-sample side-band
// payload (spec.md §4.6 step 11, §6).
func hdrSideData(m HdrMeta) *HdrSideData {
	return &HdrSideData{
		DisplayPrimaries: m.DisplayPrimaries,
		WhitePoint:       m.WhitePoint,
		MinMasteringLum:  m.MinDisplayMasteringLuminance,
		MaxMasteringLum:  m.MaxDisplayMasteringLuminance,
		MaxCLL:           m.MaxCLL,
		MaxFALL:          m.MaxFALL,
	}
}

// reverseBytes byte-reverses buf in place, working around AYUV
// endianness on the device (spec.md §4.6 step 10).
func reverseBytes(buf []byte) {
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
}
