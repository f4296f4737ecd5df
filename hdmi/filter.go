/*
NAME
  filter.go

DESCRIPTION
  filter.go implements the top-level Filter: it owns the reference
  clock and the channel handle, and runs each pin the caller has
  constructed and registered (AddVideoPin/AddAudioPin) on its own
  goroutine for the filter's lifetime (spec.md §5, "one worker thread
  per pin").

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
	"fmt"
	"sync"

	"github.com/ausocean/utils/logging"
)

// PinSinks bundles four downstream Sinks, one per pin kind. Filter
// takes no PinSinks; each pin is given its Sink by NewVideoPin or
// NewAudioPin, and a pin that is never added is never started.
type PinSinks struct {
	VideoCapture Sink
	VideoPreview Sink
	AudioCapture Sink
	AudioPreview Sink
}

// Pin is the minimal lifecycle every concrete pin satisfies: run the
// blocking capture loop until discarded or the downstream sink
// disconnects, and accept a discard request from the filter's
// teardown path (spec.md §5, "Cancellation").
type Pin interface {
	Start() error
	Discard()
}

// Filter owns the channel handle, the reference clock and every pin
// for one open HDMI capture channel's lifetime (spec.md §3,
// "Lifecycle").
type Filter struct {
	channel *ChannelHandle
	clock   Clock
	log     logging.Logger
	obs     Observer

	pins    []Pin
	wg      sync.WaitGroup
	runErrs []error
	mu      sync.Mutex
}

// NewFilter opens a channel via registry using sel, constructs a
// Clock appropriate to the channel's Family, and returns a Filter
// ready to have pins added via AddVideoPin/AddAudioPin.
func NewFilter(registry *Registry, sel Selector, clockSrc ChannelClock, log logging.Logger, obs Observer) (*Filter, error) {
	ch, err := registry.Open(sel)
	if err != nil {
		return nil, err
	}
	if obs == nil {
		obs = NoOpObserver{}
	}

	var clock Clock
	switch ch.Info.Family {
	case FamilyPro:
		clock = NewProClock(clockSrc)
	default:
		clock = NewUSBClock()
	}

	obs.DeviceStatus(DeviceStatus{DevicePath: ch.Info.DevicePath, Family: ch.Info.Family, Connected: true})

	return &Filter{channel: ch, clock: clock, log: log, obs: obs}, nil
}

// Clock returns the filter's shared reference clock.
func (f *Filter) Clock() Clock { return f.clock }

// Channel returns a cloned reference to the filter's channel handle,
// for use constructing a pin's backend.
func (f *Filter) Channel() *ChannelHandle { return f.channel.Clone() }

// AddVideoPin registers a constructed VideoPin with the filter. Call
// before Start.
func (f *Filter) AddVideoPin(p *VideoPin) { f.pins = append(f.pins, p) }

// AddAudioPin registers a constructed AudioPin with the filter. Call
// before Start.
func (f *Filter) AddAudioPin(p *AudioPin) { f.pins = append(f.pins, p) }

// Start runs every registered pin on its own goroutine and returns
// immediately; use Wait to block until they all exit.
func (f *Filter) Start() {
	for _, p := range f.pins {
		f.wg.Add(1)
		go func(p Pin) {
			defer f.wg.Done()
			if err := p.Start(); err != nil {
				f.mu.Lock()
				f.runErrs = append(f.runErrs, err)
				f.mu.Unlock()
				f.log.Error("pin exited with error", "error", err)
			}
		}(p)
	}
}

// Wait blocks until every pin goroutine has returned, then returns the
// first non-nil pin error, if any.
func (f *Filter) Wait() error {
	f.wg.Wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.runErrs) > 0 {
		return f.runErrs[0]
	}
	return nil
}

// Stop discards every pin and releases the channel handle. The
// destructor runs on the framework's filter-shutdown thread per
// spec.md §5; here that is simply the caller's goroutine.
func (f *Filter) Stop() error {
	for _, p := range f.pins {
		p.Discard()
	}
	f.wg.Wait()
	if err := f.channel.Release(); err != nil {
		return fmt.Errorf("hdmi: releasing channel: %w", err)
	}
	return nil
}
