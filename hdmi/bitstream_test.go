package hdmi

import (
	"bytes"
	"testing"
)

// buildFrame returns a synthetic "byte-swapped" buffer: n bytes of
// silence, the Pa/Pb/Pc/Pd preamble with the given burst-data-type and
// size field, payload, then n bytes of silence.
func buildFrame(silence int, burstDataType byte, sizeField uint16, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Write(make([]byte, silence))
	buf.Write(preamble[:])
	buf.WriteByte(0x01) // Pc[0]; unused by the classifier.
	buf.WriteByte(burstDataType)
	buf.WriteByte(byte(sizeField >> 8))
	buf.WriteByte(byte(sizeField))
	buf.Write(payload)
	buf.Write(make([]byte, silence))
	return buf.Bytes()
}

func TestParserAC3Burst(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 256)
	frame := buildFrame(32, 0x01, 2048, payload) // 2048 bits == 256 bytes.

	p := NewParser()
	bursts, result := p.Feed(frame)

	if result != ResultOk {
		t.Fatalf("result = %v, want ResultOk", result)
	}
	if len(bursts) != 1 {
		t.Fatalf("got %d bursts, want 1", len(bursts))
	}
	b := bursts[0]
	if b.Codec != BurstAC3 {
		t.Errorf("codec = %v, want BurstAC3", b.Codec)
	}
	if len(b.Payload) != 256 {
		t.Errorf("payload size = %d, want 256", len(b.Payload))
	}
	if !bytes.Equal(b.Payload, payload) {
		t.Errorf("payload mismatch")
	}
}

func TestParserCodecClassification(t *testing.T) {
	cases := []struct {
		name          string
		burstDataType byte
		sizeField     uint16
		payloadLen    int
		wantCodec     BurstCodec
	}{
		{"AC3", 0x01, 8 * 8, 8, BurstAC3},
		{"DTS-I", 0x0B, 16 * 8, 16, BurstDTS},
		{"DTS-II", 0x0C, 16 * 8, 16, BurstDTS},
		{"DTS-III", 0x0D, 16 * 8, 16, BurstDTS},
		{"DTS-HD", 0x11, 32, 32, BurstDTSHD},
		{"EAC3", 0x15, 64, 64, BurstEAC3},
		{"TrueHD", 0x16, 64, 64, BurstTrueHD},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			payload := bytes.Repeat([]byte{0x42}, c.payloadLen)
			frame := buildFrame(4, c.burstDataType, c.sizeField, payload)
			p := NewParser()
			bursts, _ := p.Feed(frame)
			if len(bursts) != 1 {
				t.Fatalf("got %d bursts, want 1", len(bursts))
			}
			if bursts[0].Codec != c.wantCodec {
				t.Errorf("codec = %v, want %v", bursts[0].Codec, c.wantCodec)
			}
			if len(bursts[0].Payload) != c.payloadLen {
				t.Errorf("payload len = %d, want %d", len(bursts[0].Payload), c.payloadLen)
			}
		})
	}
}

func TestParserPauseOrNullSkipped(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(preamble[:])
	buf.Write([]byte{0x01, 0x00, 0x00, 0x00}) // burst_data_type = 0x00 (Null).
	buf.Write(make([]byte, 16))               // trailing silence; no burst follows.

	p := NewParser()
	bursts, _ := p.Feed(buf.Bytes())

	if len(bursts) != 0 {
		t.Fatalf("got %d bursts, want 0 for a Pause/Null burst", len(bursts))
	}
	if p.burstBuf != nil {
		t.Errorf("parser left a burst in progress after Pause/Null")
	}
}

func TestParserUnknownPreambleTreatedAsPauseOrNull(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(preamble[:])
	buf.Write([]byte{0x01, 0x7F, 0x00, 0x10}) // 0x7F is not in Table 2.

	p := NewParser()
	bursts, _ := p.Feed(buf.Bytes())

	if len(bursts) != 0 {
		t.Fatalf("unknown preamble produced a burst")
	}
}

func TestParserSyncSplitAcrossFeeds(t *testing.T) {
	payload := bytes.Repeat([]byte{0x11}, 4)
	frame := buildFrame(0, 0x01, 32, payload) // 32 bits == 4 bytes.

	p := NewParser()
	var bursts []Burst
	for i := 0; i < len(frame); i++ {
		b, _ := p.Feed(frame[i : i+1])
		bursts = append(bursts, b...)
	}
	if len(bursts) != 1 {
		t.Fatalf("got %d bursts feeding one byte at a time, want 1", len(bursts))
	}
	if !bytes.Equal(bursts[0].Payload, payload) {
		t.Errorf("payload mismatch across split feeds")
	}
}

func TestParserPartialSyncThenResync(t *testing.T) {
	// F8 72 (partial match) then noise that isn't 4E, forcing a
	// restart, followed by a genuine sync and burst.
	var buf bytes.Buffer
	buf.Write([]byte{0xF8, 0x72, 0x00, 0x00})
	payload := []byte{0x99, 0x99}
	buf.Write(buildFrame(0, 0x01, 16, payload))

	p := NewParser()
	bursts, _ := p.Feed(buf.Bytes())
	if len(bursts) != 1 {
		t.Fatalf("got %d bursts, want 1", len(bursts))
	}
	if !bytes.Equal(bursts[0].Payload, payload) {
		t.Errorf("payload mismatch after resync")
	}
}

func TestParserNoInterestingBytes(t *testing.T) {
	p := NewParser()
	bursts, result := p.Feed(make([]byte, 64))
	if len(bursts) != 0 || result != ResultFalse {
		t.Errorf("got (%v, %v), want (nil, ResultFalse)", bursts, result)
	}
}

func TestParserBurstSpanningMultipleFrames(t *testing.T) {
	payload := bytes.Repeat([]byte{0x55}, 300)
	frame := buildFrame(0, 0x01, 300*8, payload)

	p := NewParser()
	var bursts []Burst
	results := []ParseResult{}
	// Split the frame at an arbitrary offset inside the payload.
	split := 20
	b1, r1 := p.Feed(frame[:split])
	bursts = append(bursts, b1...)
	results = append(results, r1)
	b2, r2 := p.Feed(frame[split:])
	bursts = append(bursts, b2...)
	results = append(results, r2)

	if results[0] != ResultPartialBurst {
		t.Errorf("first feed result = %v, want ResultPartialBurst", results[0])
	}
	if len(bursts) != 1 {
		t.Fatalf("got %d bursts, want 1", len(bursts))
	}
	if !bytes.Equal(bursts[0].Payload, payload) {
		t.Errorf("reassembled payload mismatch")
	}
}
