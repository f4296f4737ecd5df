/*
NAME
  doc.go

DESCRIPTION
  Package hdmi implements the core capture engine shared by the Pro
  (PCIe, kernel-assisted DMA) and USB HDMI capture device families: it
  turns a vendor channel handle into two disciplined streams of
  timestamped video and audio frames, tracking signal geometry, colour
  space, HDR mastering metadata and CEA-861 channel allocation, and
  demultiplexing IEC 61937 compressed-audio bursts out of the PCM
  stream.

  The vendor SDK, the host media framework registration and the
  on-disk logging sink are treated as narrow external collaborators
  (see ChannelSDK, VideoBackend, AudioBackend, Sink and
  github.com/ausocean/utils/logging)
  and are not implemented by this package.

AUTHOR
  AusOcean capture team

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package hdmi implements the core capture engine for HDMI capture
// devices: device discovery, per-pin capture loops, signal/format
// tracking, CEA-861 channel allocation, IEC 61937 bitstream
// demultiplexing and frame timing.
package hdmi
