/*
NAME
  observer.go

DESCRIPTION
  observer.go defines the status-observer callback (spec.md §6): six
  reload methods, one per status kind, each a "latest wins" push of a
  snapshot struct.

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

// DeviceStatus reports the open channel's device path, family and
// connection state. NewFilter pushes it once, when the channel is
// opened; it is not pushed again afterwards.
type DeviceStatus struct {
	DevicePath string
	Family     Family
	Connected  bool
}

// VideoInputStatus mirrors the video pin's current signal snapshot.
type VideoInputStatus struct {
	Signal VideoSignal
}

// VideoOutputStatus mirrors the video pin's currently agreed format.
type VideoOutputStatus struct {
	Format VideoFormat
}

// AudioInputStatus mirrors the audio pin's current signal snapshot.
type AudioInputStatus struct {
	Signal AudioSignal
}

// AudioOutputStatus mirrors the audio pin's currently agreed format.
type AudioOutputStatus struct {
	Format AudioFormat
}

// HdrStatus reports whether HDR metadata is attached to video samples,
// and its value.
type HdrStatus struct {
	Present bool
	Meta    HdrMeta
}

// Observer receives "latest wins" status pushes. In this package only
// NewFilter pushes to it (one DeviceStatus); the pins take no Observer
// and push no input, output or HDR status. The NoOpObserver below
// discards everything; this is the external collaborator spec.md
// §1 calls "localized signal-info UI widgets" minus the localisation.
type Observer interface {
	DeviceStatus(DeviceStatus)
	VideoInputStatus(VideoInputStatus)
	VideoOutputStatus(VideoOutputStatus)
	AudioInputStatus(AudioInputStatus)
	AudioOutputStatus(AudioOutputStatus)
	HdrStatus(HdrStatus)
}

// NoOpObserver discards every status push. Useful as a default when
// the caller has no UI collaborator.
type NoOpObserver struct{}

func (NoOpObserver) DeviceStatus(DeviceStatus)             {}
func (NoOpObserver) VideoInputStatus(VideoInputStatus)     {}
func (NoOpObserver) VideoOutputStatus(VideoOutputStatus)   {}
func (NoOpObserver) AudioInputStatus(AudioInputStatus)     {}
func (NoOpObserver) AudioOutputStatus(AudioOutputStatus)   {}
func (NoOpObserver) HdrStatus(HdrStatus)                   {}
