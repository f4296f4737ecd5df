/*
NAME
  config.go

DESCRIPTION
  config.go implements per-pin backoff/timeout settings, validated the
  same way device/webcam.Set and device/alsa.Setup validate their
  Config structs: bad or unset fields are defaulted and reported
  through a device.MultiError rather than failing outright.

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
	"time"

	"github.com/ausocean/av/device"
)

// Configuration field errors, reported (not fatal) via MultiError.
var (
	errBadFrameWaitTimeout = errors.New("hdmi: frame wait timeout bad or unset, defaulting")
	errBadShortBackoff     = errors.New("hdmi: short backoff bad or unset, defaulting")
	errBadLongBackoff      = errors.New("hdmi: long backoff bad or unset, defaulting")
)

// PinConfig holds backoff and notification-wait durations. Zero-value
// fields are defaulted by Validate to the values both pin loops use
// (frameWaitTimeout, backoffShort, backoffLong). NewVideoPin and
// NewAudioPin take no PinConfig; the pin loops use those constants
// directly.
type PinConfig struct {
	FrameWaitTimeout time.Duration
	ShortBackoff     time.Duration
	LongBackoff      time.Duration
}

// Validate checks c's fields, defaulting and collecting a
// device.MultiError for any that are invalid, matching the pattern
// device/webcam.Set and device/alsa.Setup use for their own Config
// structs.
func (c *PinConfig) Validate() error {
	var errs device.MultiError
	if c.FrameWaitTimeout <= 0 {
		errs = append(errs, errBadFrameWaitTimeout)
		c.FrameWaitTimeout = frameWaitTimeout
	}
	if c.ShortBackoff <= 0 {
		errs = append(errs, errBadShortBackoff)
		c.ShortBackoff = backoffShort
	}
	if c.LongBackoff <= 0 {
		errs = append(errs, errBadLongBackoff)
		c.LongBackoff = backoffLong
	}
	if len(errs) != 0 {
		return errs
	}
	return nil
}
