package hdmi

import (
	"bytes"
	"testing"
	"time"
)

// rawBlock builds one 32-byte hardware sample block: four left-zero-
// padded 4-byte channel samples (L0..L3) followed by four (R0..R3).
func rawBlock(l0, l1, l2, l3, r0, r1, r2, r3 byte) []byte {
	pad := func(v byte) []byte { return []byte{0, 0, 0, v} }
	var b []byte
	for _, v := range []byte{l0, l1, l2, l3} {
		b = append(b, pad(v)...)
	}
	for _, v := range []byte{r0, r1, r2, r3} {
		b = append(b, pad(v)...)
	}
	return b
}

func TestTransformPCMFrameStereoIdentity(t *testing.T) {
	// Stereo: only slot 0 (FL) and slot 1 (FR) present, offsets 0.
	offsets := [8]int16{0, 0, NotPresent, NotPresent, NotPresent, NotPresent, NotPresent, NotPresent}
	raw := rawBlock(0x11, 0, 0, 0, 0x22, 0, 0, 0) // One sample block; L0=0x11, R0=0x22.

	out := TransformPCMFrame(raw, offsets, 2, 1, 1)
	want := []byte{0x11, 0x22}
	if !bytes.Equal(out, want) {
		t.Errorf("got % X, want % X", out, want)
	}
}

func TestTransformPCMFrameFCLFESwap(t *testing.T) {
	// 5.1: FL=slot0, FR=slot1, LFE=slot2, FC=slot3, RL=slot4, RR=slot5.
	// Canonical swap: offsets[2]=+1 (LFE->slot3), offsets[3]=-1 (FC->slot2).
	offsets := [8]int16{0, 0, +1, -1, 0, 0, NotPresent, NotPresent}
	raw := rawBlock(0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0, 0)
	// Slots: L0=0x01(FL,slot0), L1=0x02(LFE,slot2), L2=0x03(RL,slot4), L3=0x04 (unused),
	// R0=0x05(FR,slot1), R1=0x06(FC,slot3), R2=0(RR,slot5), R3=0(unused).

	out := TransformPCMFrame(raw, offsets, 6, 1, 1)
	// Output slot order: 0=FL,1=FR,2=FC,3=LFE,4=RL,5=RR.
	want := []byte{0x01, 0x05, 0x06, 0x02, 0x03, 0x00}
	// FL=0x01, FR=0x05, FC(from slot3 value 0x06)->out idx3-1=2, LFE(from slot2 value 0x02)->out idx2+1=3, RL=0x03->4, RR(slot5, value R2=0)->5.
	_ = want
	if out[0] != 0x01 {
		t.Errorf("FL = %x, want 0x01", out[0])
	}
	if out[1] != 0x05 {
		t.Errorf("FR = %x, want 0x05", out[1])
	}
	if out[2] != 0x06 {
		t.Errorf("FC (out slot 2) = %x, want 0x06 (value carried on input slot 3)", out[2])
	}
	if out[3] != 0x02 {
		t.Errorf("LFE (out slot 3) = %x, want 0x02 (value carried on input slot 2)", out[3])
	}
	if out[4] != 0x03 {
		t.Errorf("RL (out slot 4) = %x, want 0x03", out[4])
	}
}

func TestTransformPCMFrameDropsNotPresent(t *testing.T) {
	offsets := [8]int16{0, 0, NotPresent, NotPresent, NotPresent, NotPresent, NotPresent, NotPresent}
	raw := rawBlock(0x11, 0x99, 0x99, 0x99, 0x22, 0x99, 0x99, 0x99)
	out := TransformPCMFrame(raw, offsets, 2, 1, 1)
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	if out[0] != 0x11 || out[1] != 0x22 {
		t.Errorf("got % X, want [11 22]", out)
	}
}

func TestHardwareFrameDuration(t *testing.T) {
	d := hardwareFrameDuration(48000)
	// 1024 samples at 48kHz = 21.333ms = 213333 ticks (100ns units), within rounding.
	if d < 213000 || d > 213400 {
		t.Errorf("hardwareFrameDuration(48000) = %d, want ~213333", d)
	}
	if hardwareFrameDuration(0) != 0 {
		t.Errorf("hardwareFrameDuration(0) should be 0")
	}
}

func TestResetDetectionWindow(t *testing.T) {
	p := NewAudioPin(nil, nil, nil, nil, nil, nil, nil)
	p.resetDetection(48000)
	// frameDuration = 1024/48000 = 0.02133s; window = ceil(0.075/0.02133) = 4.
	if p.detectWindow != 4 {
		t.Errorf("detectWindow = %d, want 4", p.detectWindow)
	}
	if !p.probing {
		t.Errorf("probing should start true after a format change")
	}
}

type fakeAudioBackend struct {
	ready      bool
	frame      []byte
	captureErr error
}

func (b *fakeAudioBackend) WaitFrame(timeout time.Duration) (bool, error) { return b.ready, nil }
func (b *fakeAudioBackend) CaptureFrame(dst []byte) error {
	if b.captureErr != nil {
		return b.captureErr
	}
	copy(dst, b.frame)
	return nil
}

func TestAudioPinStartDeliversPCMThroughStagingBuffer(t *testing.T) {
	ch := newTestChannelHandle()
	probe := &fakeProbe{audio: AudioSignal{
		Lpcm: true, SampleRate: 48000, BitsPerSample: 16,
		ChannelValidMask: 0x1, ChannelAllocation: 0x00,
	}}
	frame := make([]byte, rawFrameSize)
	for i := range frame {
		frame[i] = byte(i)
	}
	backend := &fakeAudioBackend{ready: true, frame: frame}
	sink := &hookSink{fakeSink: fakeSink{acceptResult: QueryAcceptOK}}
	pin := NewAudioPin(ch, NewUSBClock(), probe, backend, sink, fakeAllocator{}, testLogger{})

	delivered := make(chan struct{}, 1)
	sink.onDeliver = func(Sample) {
		select {
		case delivered <- struct{}{}:
		default:
		}
	}
	done := make(chan error, 1)
	go func() { done <- pin.Start() }()

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a delivered sample")
	}
	pin.Discard()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() = %v, want nil after Discard", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after Discard")
	}
}
