/*
NAME
  device.go

DESCRIPTION
  device.go implements the device registry (component A): enumerating
  capture channels exposed by the vendor SDK, matching a selector
  against them, and opening a ref-counted channel handle that is
  shared by every pin.

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

// Family identifies which of the two device families a channel belongs
// to: Pro (PCIe, kernel-assisted DMA and notifications) or USB
// (callback-driven delivery).
type Family int

const (
	FamilyUnknown Family = iota
	FamilyPro
	FamilyUSB
)

func (f Family) String() string {
	switch f {
	case FamilyPro:
		return "pro"
	case FamilyUSB:
		return "usb"
	default:
		return "unknown"
	}
}

// ChannelInfo describes one enumerated capture channel before it is
// opened.
type ChannelInfo struct {
	DevicePath string
	Serial     string
	Family     Family

	// HasHDMIInput is true when the channel exposes at least one HDMI
	// video input type. Channels without one are never retained by
	// the registry.
	HasHDMIInput bool
}

// rawHandle is the opaque per-vendor-SDK channel reference. The core
// never inspects it; it is only ever handed back to the SDK. Declared
// as an alias (not a defined type) so that a ChannelSDK implemented in
// another package can satisfy the interface with plain interface{}
// method signatures.
type rawHandle = interface{}

// ChannelSDK is the narrow vendor-SDK collaborator the registry drives
// to enumerate and open channels. A concrete implementation wraps the
// Pro or USB vendor library; neither is implemented by this package
// (spec.md §1, "per-vendor hardware SDK calls" are out of scope).
type ChannelSDK interface {
	// Enumerate returns every channel the SDK can see, without opening
	// any of them.
	Enumerate() ([]ChannelInfo, error)

	// Open opens the channel at devicePath, returning an opaque handle
	// the SDK can later use to close it.
	Open(devicePath string) (rawHandle, error)

	// Close releases a handle previously returned by Open.
	Close(h rawHandle) error
}

// ChannelHandle is the ref-counted, read-only-after-init channel
// reference shared by every pin. Channel is owned by the Filter;
// each pin holds a clone and releases it on thread-destroy. The
// underlying SDK channel is closed only when the last clone is
// released (spec.md §3 "Lifecycle").
type ChannelHandle struct {
	Info ChannelInfo

	sdk   ChannelSDK
	raw   rawHandle
	log   logging.Logger
	mu    *sync.Mutex
	count *int
}

// Clone returns a new reference to the same underlying channel,
// incrementing the shared ref count. Safe for concurrent use.
func (c *ChannelHandle) Clone() *ChannelHandle {
	c.mu.Lock()
	*c.count++
	c.mu.Unlock()
	return &ChannelHandle{
		Info: c.Info, sdk: c.sdk, raw: c.raw,
		log: c.log, mu: c.mu, count: c.count,
	}
}

// Release decrements the shared ref count, closing the underlying SDK
// channel when the count reaches zero.
func (c *ChannelHandle) Release() error {
	c.mu.Lock()
	*c.count--
	closeNow := *c.count <= 0
	c.mu.Unlock()
	if !closeNow {
		return nil
	}
	if c.log != nil {
		c.log.Debug("closing channel on last release", "path", c.Info.DevicePath)
	}
	return c.sdk.Close(c.raw)
}

// Raw returns the opaque SDK handle for use by a Backend.
func (c *ChannelHandle) Raw() rawHandle { return c.raw }

// Registry enumerates channels and opens the one matching a selector.
type Registry struct {
	sdk ChannelSDK
	log logging.Logger
}

// NewRegistry returns a Registry driving sdk, logging state transitions
// through log.
func NewRegistry(sdk ChannelSDK, log logging.Logger) *Registry {
	return &Registry{sdk: sdk, log: log}
}

// Selector picks one enumerated channel. An empty DevicePath matches
// the first HDMI-capable channel found; a non-empty one requires an
// exact device-path match (spec.md §4.1/§6, "implementation-defined
// path string read from persistent config").
type Selector struct {
	DevicePath string
}

// Open enumerates all channels, picks the first one that exposes an
// HDMI input and matches sel, opens only that channel, and returns a
// ChannelHandle for it; no other channel is opened. It returns
// ErrNoDevice if no HDMI-capable channel was found, or if sel names a
// device path that was never seen.
func (r *Registry) Open(sel Selector) (*ChannelHandle, error) {
	infos, err := r.sdk.Enumerate()
	if err != nil {
		return nil, fmt.Errorf("hdmi: enumerate failed: %w", err)
	}

	var chosen *ChannelInfo
	for i := range infos {
		info := infos[i]
		if !info.HasHDMIInput {
			continue
		}
		if sel.DevicePath == "" || sel.DevicePath == info.DevicePath {
			if chosen == nil {
				chosen = &infos[i]
			}
			continue
		}
	}
	if chosen == nil {
		r.log.Warning("no HDMI-capable channel matched selector", "selector", sel.DevicePath)
		return nil, ErrNoDevice
	}

	raw, err := r.sdk.Open(chosen.DevicePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	r.log.Info("opened HDMI capture channel", "path", chosen.DevicePath, "family", chosen.Family.String())

	count := 1
	return &ChannelHandle{
		Info:  *chosen,
		sdk:   r.sdk,
		raw:   raw,
		log:   r.log,
		mu:    &sync.Mutex{},
		count: &count,
	}, nil
}
