package hdmiusb

import (
	"testing"
	"time"

	"github.com/ausocean/av/hdmi"
	"github.com/ausocean/av/revid/config"
)

type nopLogger struct{}

func (nopLogger) SetLevel(int8)                                         {}
func (nopLogger) Log(level int8, message string, params ...interface{}) {}
func (nopLogger) Debug(message string, params ...interface{})           {}
func (nopLogger) Info(message string, params ...interface{})            {}
func (nopLogger) Warning(message string, params ...interface{})         {}
func (nopLogger) Error(message string, params ...interface{})           {}
func (nopLogger) Fatal(message string, params ...interface{})           {}

type nopBackend struct{}

func (nopBackend) WaitFrame(timeout time.Duration) (bool, bool, error) { return true, false, nil }
func (nopBackend) FillFrame(dst []byte) error {
	for i := range dst {
		dst[i] = 0x42
	}
	return nil
}

type lockedProbe struct{}

func (lockedProbe) VideoState(ch hdmi.ChannelHandle) (hdmi.SignalState, error) {
	return hdmi.StateLocked, nil
}
func (lockedProbe) AudioState(ch hdmi.ChannelHandle) (hdmi.SignalState, error) {
	return hdmi.StateNoSignal, nil
}
func (lockedProbe) ProbeVideo(ch hdmi.ChannelHandle) (hdmi.VideoSignal, error) {
	return hdmi.VideoSignal{Locked: false}, nil
}
func (lockedProbe) ProbeAudio(ch hdmi.ChannelHandle) (hdmi.AudioSignal, error) {
	return hdmi.AudioSignal{}, nil
}

type nopAllocator struct{}

func (nopAllocator) GetBuffer(size int) ([]byte, error) { return make([]byte, size), nil }

// fakeChannelSDK is a minimal hdmi.ChannelSDK satisfying just enough for
// hdmi.NewFilter to open a channel.
type fakeChannelSDK struct{}

func (fakeChannelSDK) Enumerate() ([]hdmi.ChannelInfo, error) {
	return []hdmi.ChannelInfo{{DevicePath: "/dev/cap0", HasHDMIInput: true, Family: hdmi.FamilyUSB}}, nil
}
func (fakeChannelSDK) Open(devicePath string) (interface{}, error) { return devicePath, nil }
func (fakeChannelSDK) Close(h interface{}) error                   { return nil }

func TestDeviceSetDefaultsEmptyInputPath(t *testing.T) {
	d := New(nopLogger{}, nil)
	if err := d.Set(config.Config{}); err == nil {
		t.Fatalf("Set() = nil, want a MultiError for the missing input path")
	}
	if d.sel.DevicePath != defaultDevicePath {
		t.Errorf("DevicePath = %q, want %q", d.sel.DevicePath, defaultDevicePath)
	}
}

func TestDeviceStartReadStop(t *testing.T) {
	factory := func(sel hdmi.Selector, sink hdmi.Sink) (*hdmi.Filter, *hdmi.VideoPin, error) {
		registry := hdmi.NewRegistry(fakeChannelSDK{}, nopLogger{})
		filter, err := hdmi.NewFilter(registry, sel, nil, nopLogger{}, nil)
		if err != nil {
			return nil, nil, err
		}
		pin := hdmi.NewVideoPin(filter.Channel(), filter.Clock(), lockedProbe{}, nopBackend{}, sink, nopAllocator{}, nil, nopLogger{})
		return filter, pin, nil
	}
	d := New(nopLogger{}, factory)
	if err := d.Set(config.Config{InputPath: "/dev/cap0"}); err != nil {
		t.Fatalf("Set() = %v, want nil", err)
	}
	if err := d.Start(); err != nil {
		t.Fatalf("Start() = %v, want nil", err)
	}
	if !d.IsRunning() {
		t.Errorf("IsRunning() = false after Start")
	}

	// A real AVDevice consumer (e.g. revid) reads continuously; drain
	// the pipe the same way so the pin loop's blocking Deliver keeps
	// unblocking while Stop discards it.
	readCount := make(chan int, 1)
	drainDone := make(chan struct{})
	firstRead := make(chan struct{})
	go func() {
		defer close(drainDone)
		buf := make([]byte, 4)
		n := 0
		for {
			got, err := d.Read(buf)
			n += got
			if n > 0 {
				select {
				case <-firstRead:
				default:
					close(firstRead)
				}
			}
			if err != nil {
				readCount <- n
				return
			}
		}
	}()

	select {
	case <-firstRead:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the first delivered frame")
	}

	if err := d.Stop(); err != nil {
		t.Fatalf("Stop() = %v, want nil", err)
	}
	<-drainDone
	if n := <-readCount; n == 0 {
		t.Errorf("Read() returned 0 total bytes before the pipe closed")
	}
	if d.IsRunning() {
		t.Errorf("IsRunning() = true after Stop")
	}
}
