/*
DESCRIPTION
  hdmicap is a standalone demonstration of the hdmi capture engine: it
  opens a simulated HDMI channel (no vendor SDK required), runs the
  video and audio capture pins, and writes delivered samples to files
  so the full Filter lifecycle can be exercised end to end.

AUTHORS
  AusOcean capture team

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package hdmicap is a demonstration binary for the hdmi capture engine.
package main

import (
	"flag"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/av/hdmi"
	"github.com/ausocean/utils/logging"
)

// Logging configuration, matching rv and looper's lumberjack setup.
const (
	logPath      = "/var/log/hdmicap/hdmicap.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logVerbosity = logging.Debug
	logSuppress  = false
)

func main() {
	videoOut := flag.String("video-out", "video.raw", "file to write captured video samples to")
	audioOut := flag.String("audio-out", "audio.raw", "file to write captured audio samples to")
	devicePath := flag.String("device", "/dev/hdmicap0", "simulated device path to select")
	flag.Parse()

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logVerbosity, io.MultiWriter(fileLog, os.Stderr), logSuppress)

	log.Info("starting hdmicap", "device", *devicePath)

	vf, err := os.Create(*videoOut)
	if err != nil {
		log.Fatal("could not create video output file", "error", err.Error())
	}
	defer vf.Close()
	af, err := os.Create(*audioOut)
	if err != nil {
		log.Fatal("could not create audio output file", "error", err.Error())
	}
	defer af.Close()

	registry := hdmi.NewRegistry(newSimulatedSDK(*devicePath), log)
	sel := hdmi.Selector{DevicePath: *devicePath}

	filter, err := hdmi.NewFilter(registry, sel, nil, log, hdmi.NoOpObserver{})
	if err != nil {
		log.Fatal("could not open simulated channel", "error", err.Error())
	}

	probe := newSimulatedProbe()
	videoPin := hdmi.NewVideoPin(filter.Channel(), filter.Clock(), probe, newSimulatedVideoBackend(), fileSink{w: vf, log: log}, simulatedAllocator{}, nil, log)
	audioPin := hdmi.NewAudioPin(filter.Channel(), filter.Clock(), probe, newSimulatedAudioBackend(), fileSink{w: af, log: log}, simulatedAllocator{}, log)
	filter.AddVideoPin(videoPin)
	filter.AddAudioPin(audioPin)

	filter.Start()
	log.Info("capture running, press ctrl-c to stop")

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	log.Info("stopping capture")
	if err := filter.Stop(); err != nil {
		log.Error("error during shutdown", "error", err.Error())
	}
	log.Info("hdmicap exiting")
}

// fileSink is an hdmi.Sink that appends every delivered sample's bytes
// to a file, accepting every proposed format unconditionally - the
// same "just write what arrives" behaviour device/file.AVFile gives a
// consumer reading from an AVDevice.
type fileSink struct {
	w   io.Writer
	log logging.Logger
	mu  sync.Mutex
}

func (s fileSink) QueryAccept(hdmi.MediaType) (hdmi.QueryAcceptResult, error) {
	return hdmi.QueryAcceptOK, nil
}
func (s fileSink) ReceiveConnection(mt hdmi.MediaType) error { return nil }
func (s fileSink) BuffersOutstanding() bool                 { return false }
func (s fileSink) Flush() error                              { return nil }
func (s fileSink) Decommit() error                            { return nil }
func (s fileSink) Commit(int) error                           { return nil }
func (s fileSink) Verify(int) error                           { return nil }
func (s fileSink) Deliver(sample hdmi.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(sample.Data)
	return err
}

// simulatedAllocator hands out plain heap buffers; a real vendor SDK
// would instead return SDK-owned pinned memory.
type simulatedAllocator struct{}

func (simulatedAllocator) GetBuffer(size int) ([]byte, error) { return make([]byte, size), nil }

// simulatedSDK is a hdmi.ChannelSDK that fabricates a single HDMI-USB
// channel at the configured device path, standing in for a real vendor
// binding (scoped out of this package per the capture core's design).
type simulatedSDK struct {
	path string
}

func newSimulatedSDK(path string) *simulatedSDK { return &simulatedSDK{path: path} }

func (s *simulatedSDK) Enumerate() ([]hdmi.ChannelInfo, error) {
	return []hdmi.ChannelInfo{{DevicePath: s.path, HasHDMIInput: true, Family: hdmi.FamilyUSB}}, nil
}
func (s *simulatedSDK) Open(devicePath string) (interface{}, error) { return devicePath, nil }
func (s *simulatedSDK) Close(h interface{}) error                   { return nil }

// simulatedProbe reports a steady locked 720p60 video signal and a
// 48kHz stereo LPCM audio signal, as if a source device were connected
// and never changed format.
type simulatedProbe struct{}

func newSimulatedProbe() simulatedProbe { return simulatedProbe{} }

func (simulatedProbe) VideoState(ch hdmi.ChannelHandle) (hdmi.SignalState, error) {
	return hdmi.StateLocked, nil
}
func (simulatedProbe) AudioState(ch hdmi.ChannelHandle) (hdmi.SignalState, error) {
	return hdmi.StateLocked, nil
}
func (simulatedProbe) ProbeVideo(ch hdmi.ChannelHandle) (hdmi.VideoSignal, error) {
	return hdmi.VideoSignal{
		Locked:             true,
		Cx:                 1280,
		Cy:                 720,
		FrameDuration100ns: 10000000 / 60,
		ColourFormat:       hdmi.ColourRGB,
		QuantRange:    hdmi.QuantFull,
		BitDepth:      8,
		PixelEncoding: hdmi.EncodingRGB444,
	}, nil
}
func (simulatedProbe) ProbeAudio(ch hdmi.ChannelHandle) (hdmi.AudioSignal, error) {
	return hdmi.AudioSignal{
		Lpcm:              true,
		SampleRate:        48000,
		BitsPerSample:     16,
		ChannelValidMask:  0x1,
		ChannelAllocation: 0x00,
	}, nil
}

// simulatedVideoBackend fabricates one ready frame every 1/60s, filling
// the destination with an incrementing byte pattern so the output file
// visibly varies frame to frame.
type simulatedVideoBackend struct {
	frame byte
}

func newSimulatedVideoBackend() *simulatedVideoBackend { return &simulatedVideoBackend{} }

func (b *simulatedVideoBackend) WaitFrame(timeout time.Duration) (ready, signalChanged bool, err error) {
	time.Sleep(time.Second / 60)
	return true, false, nil
}
func (b *simulatedVideoBackend) FillFrame(dst []byte) error {
	b.frame++
	for i := range dst {
		dst[i] = b.frame
	}
	return nil
}

// simulatedAudioBackend fabricates one ready hardware frame every
// 1024/48000s, matching the PCM frame cadence audiopin.go assumes
// (samplesPerHardwareFrame).
type simulatedAudioBackend struct {
	sample byte
}

func newSimulatedAudioBackend() *simulatedAudioBackend { return &simulatedAudioBackend{} }

func (b *simulatedAudioBackend) WaitFrame(timeout time.Duration) (bool, error) {
	time.Sleep(time.Second * 1024 / 48000)
	return true, nil
}
func (b *simulatedAudioBackend) CaptureFrame(dst []byte) error {
	b.sample++
	for i := range dst {
		dst[i] = b.sample
	}
	return nil
}
