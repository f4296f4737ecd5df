/*
DESCRIPTION
  hdmiusb.go adapts a USB-family hdmi.Filter's video capture pin to the
  device.AVDevice interface, so it can be driven by the same Start/Stop/Set
  lifecycle as webcam.Webcam and alsa.ALSA.

AUTHORS
  AusOcean capture team

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package hdmiusb provides an implementation of device.AVDevice backed by
// an hdmi.Filter's USB-family video capture pin.
package hdmiusb

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ausocean/av/device"
	"github.com/ausocean/av/hdmi"
	"github.com/ausocean/av/revid/config"
	"github.com/ausocean/utils/logging"
)

// Configuration field errors.
var errBadInputPath = errors.New("input path bad or unset, defaulting")

const defaultDevicePath = "/dev/hdmicap0"

// FilterFactory constructs the hdmi.Filter and its video capture pin for
// the channel at sel, wiring whatever concrete Registry/VideoBackend the
// caller's build targets (USB-family only; the kernel-DMA Pro family has
// no use for an io.Reader adapter since it already integrates with the
// host media framework directly).
type FilterFactory func(sel hdmi.Selector, sink hdmi.Sink) (*hdmi.Filter, *hdmi.VideoPin, error)

// Device adapts one hdmi.Filter's video capture pin to device.AVDevice.
type Device struct {
	log     logging.Logger
	newPin  FilterFactory
	cfg     config.Config
	sel     hdmi.Selector

	mu        sync.Mutex
	filter    *hdmi.Filter
	pin       *hdmi.VideoPin
	pr        *io.PipeReader
	pw        *io.PipeWriter
	isRunning bool
}

// New returns a Device that will use newPin to build its filter and pin
// once Start is called.
func New(l logging.Logger, newPin FilterFactory) *Device {
	return &Device{log: l, newPin: newPin}
}

// Name returns the name of the device.
func (d *Device) Name() string { return "HDMI (USB)" }

// Set validates the relevant fields of c and stores the device path to
// select a channel by, matching webcam.Set's pattern of defaulting and
// reporting bad fields through a device.MultiError rather than failing.
func (d *Device) Set(c config.Config) error {
	var errs device.MultiError
	if c.InputPath == "" {
		errs = append(errs, errBadInputPath)
		c.InputPath = defaultDevicePath
	}
	d.cfg = c
	d.sel = hdmi.Selector{DevicePath: c.InputPath}
	if len(errs) != 0 {
		return errs
	}
	return nil
}

// pipeSink adapts an io.PipeWriter to hdmi.Sink: every delivered sample's
// bytes are written straight through, and format renegotiation always
// succeeds since an io.Reader consumer has no media-type concept of its
// own to reject against.
type pipeSink struct {
	w *io.PipeWriter
}

func (s pipeSink) QueryAccept(hdmi.MediaType) (hdmi.QueryAcceptResult, error) {
	return hdmi.QueryAcceptOK, nil
}
func (s pipeSink) ReceiveConnection(hdmi.MediaType) error { return nil }
func (s pipeSink) BuffersOutstanding() bool               { return false }
func (s pipeSink) Flush() error                           { return nil }
func (s pipeSink) Decommit() error                        { return nil }
func (s pipeSink) Commit(int) error                       { return nil }
func (s pipeSink) Verify(int) error                       { return nil }
func (s pipeSink) Deliver(sample hdmi.Sample) error {
	_, err := s.w.Write(sample.Data)
	return err
}

// Start opens the selected HDMI channel, constructs its video capture
// pin, and runs the pin loop on its own goroutine; Read then yields the
// delivered frame bytes in order.
func (d *Device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.isRunning {
		return fmt.Errorf("hdmiusb: already running")
	}

	d.pr, d.pw = io.Pipe()
	filter, pin, err := d.newPin(d.sel, pipeSink{w: d.pw})
	if err != nil {
		return fmt.Errorf("hdmiusb: %w", err)
	}
	d.filter = filter
	d.pin = pin

	filter.AddVideoPin(pin)
	filter.Start()
	d.isRunning = true
	return nil
}

// Stop discards the pin, releases the channel and closes the pipe.
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.isRunning {
		return nil
	}
	err := d.filter.Stop()
	d.pw.Close()
	d.pr.Close()
	d.isRunning = false
	if err != nil {
		return fmt.Errorf("hdmiusb: %w", err)
	}
	return nil
}

// IsRunning reports whether the device is currently capturing.
func (d *Device) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isRunning
}

// Read yields delivered frame bytes in order; it blocks until a frame is
// available or the device is stopped.
func (d *Device) Read(p []byte) (int, error) {
	d.mu.Lock()
	pr := d.pr
	d.mu.Unlock()
	if pr == nil {
		return 0, fmt.Errorf("hdmiusb: not started")
	}
	return pr.Read(p)
}
