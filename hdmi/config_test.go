package hdmi

import "testing"

func TestPinConfigValidateDefaultsZeroFields(t *testing.T) {
	var c PinConfig
	err := c.Validate()
	if err == nil {
		t.Fatalf("Validate() = nil, want a MultiError reporting 3 defaulted fields")
	}
	if c.FrameWaitTimeout != frameWaitTimeout {
		t.Errorf("FrameWaitTimeout = %v, want %v", c.FrameWaitTimeout, frameWaitTimeout)
	}
	if c.ShortBackoff != backoffShort {
		t.Errorf("ShortBackoff = %v, want %v", c.ShortBackoff, backoffShort)
	}
	if c.LongBackoff != backoffLong {
		t.Errorf("LongBackoff = %v, want %v", c.LongBackoff, backoffLong)
	}
}

func TestPinConfigValidateAcceptsExplicitValues(t *testing.T) {
	c := PinConfig{FrameWaitTimeout: 500, ShortBackoff: 10, LongBackoff: 100}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil for fully-specified config", err)
	}
}
