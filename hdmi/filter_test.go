package hdmi

import (
	"errors"
	"sync"
	"testing"
)

type fakePin struct {
	mu        sync.Mutex
	started   bool
	discarded bool
	block     chan struct{}
	runErr    error
}

func newFakePin() *fakePin { return &fakePin{block: make(chan struct{})} }

func (p *fakePin) Start() error {
	p.mu.Lock()
	p.started = true
	p.mu.Unlock()
	<-p.block
	return p.runErr
}

func (p *fakePin) Discard() {
	p.mu.Lock()
	p.discarded = true
	p.mu.Unlock()
	close(p.block)
}

func newTestFilter(t *testing.T) (*Filter, *fakeSDK) {
	t.Helper()
	sdk := &fakeSDK{infos: []ChannelInfo{{DevicePath: "/dev/cap0", HasHDMIInput: true, Family: FamilyUSB}}}
	reg := NewRegistry(sdk, testLogger{})
	f, err := NewFilter(reg, Selector{}, nil, testLogger{}, nil)
	if err != nil {
		t.Fatalf("NewFilter() = %v", err)
	}
	return f, sdk
}

func TestFilterStartWaitRunsEveryPin(t *testing.T) {
	f, _ := newTestFilter(t)
	p1, p2 := newFakePin(), newFakePin()
	f.pins = append(f.pins, p1, p2)

	f.Start()
	p1.Discard()
	p2.Discard()
	if err := f.Wait(); err != nil {
		t.Fatalf("Wait() = %v, want nil", err)
	}

	if !p1.started || !p2.started {
		t.Errorf("not every pin was started: p1=%v p2=%v", p1.started, p2.started)
	}
}

func TestFilterWaitReturnsFirstPinError(t *testing.T) {
	f, _ := newTestFilter(t)
	wantErr := errors.New("boom")
	p1 := newFakePin()
	p1.runErr = wantErr
	f.pins = append(f.pins, p1)

	f.Start()
	p1.Discard()
	if err := f.Wait(); !errors.Is(err, wantErr) {
		t.Errorf("Wait() = %v, want %v", err, wantErr)
	}
}

func TestFilterStopDiscardsPinsAndReleasesChannel(t *testing.T) {
	f, sdk := newTestFilter(t)
	p1, p2 := newFakePin(), newFakePin()
	f.pins = append(f.pins, p1, p2)

	f.Start()
	if err := f.Stop(); err != nil {
		t.Fatalf("Stop() = %v, want nil", err)
	}
	if !p1.discarded || !p2.discarded {
		t.Errorf("not every pin was discarded: p1=%v p2=%v", p1.discarded, p2.discarded)
	}
	if sdk.closeCount != 1 {
		t.Errorf("closeCount = %d, want 1 after Stop releases the last channel reference", sdk.closeCount)
	}
}

func TestFilterChannelReturnsIndependentClone(t *testing.T) {
	f, sdk := newTestFilter(t)
	c := f.Channel()
	if err := c.Release(); err != nil {
		t.Fatalf("Release() = %v", err)
	}
	if sdk.closeCount != 0 {
		t.Errorf("closeCount = %d, want 0: the filter's own reference is still outstanding", sdk.closeCount)
	}
	if err := f.Stop(); err != nil {
		t.Fatalf("Stop() = %v", err)
	}
	if sdk.closeCount != 1 {
		t.Errorf("closeCount = %d, want 1 after the filter's own reference is released", sdk.closeCount)
	}
}
