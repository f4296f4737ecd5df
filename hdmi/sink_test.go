package hdmi

import (
	"errors"
	"testing"

	"github.com/ausocean/utils/logging"
)

// testLogger discards everything; satisfies logging.Logger.
type testLogger struct{}

func (testLogger) SetLevel(int8)                                 {}
func (testLogger) Log(level int8, message string, params ...interface{}) {}
func (testLogger) Debug(message string, params ...interface{})   {}
func (testLogger) Info(message string, params ...interface{})    {}
func (testLogger) Warning(message string, params ...interface{}) {}
func (testLogger) Error(message string, params ...interface{})   {}
func (testLogger) Fatal(message string, params ...interface{})   {}

var _ logging.Logger = testLogger{}

// fakeSink is a scriptable Sink test double.
type fakeSink struct {
	acceptResult       QueryAcceptResult
	acceptErr          error
	receiveErr         error
	receiveErrOnce     bool
	buffersOutstanding bool
	delivered          []Sample
	received           []MediaType
}

func (s *fakeSink) QueryAccept(mt MediaType) (QueryAcceptResult, error) {
	return s.acceptResult, s.acceptErr
}
func (s *fakeSink) ReceiveConnection(mt MediaType) error {
	s.received = append(s.received, mt)
	if s.receiveErr != nil {
		err := s.receiveErr
		if s.receiveErrOnce {
			s.receiveErr = nil
		}
		return err
	}
	return nil
}
func (s *fakeSink) BuffersOutstanding() bool { return s.buffersOutstanding }
func (s *fakeSink) Flush() error             { s.buffersOutstanding = false; return nil }
func (s *fakeSink) Decommit() error          { return nil }
func (s *fakeSink) Commit(int) error         { return nil }
func (s *fakeSink) Verify(int) error         { return nil }
func (s *fakeSink) Deliver(sample Sample) error {
	s.delivered = append(s.delivered, sample)
	return nil
}

func TestRenegotiateSuccess(t *testing.T) {
	sink := &fakeSink{acceptResult: QueryAcceptOK}
	err := renegotiate(sink, testLogger{}, "prev", "next", 0)
	if err != nil {
		t.Fatalf("renegotiate() = %v, want nil", err)
	}
	if len(sink.received) != 1 || sink.received[0] != "next" {
		t.Errorf("ReceiveConnection not called with proposed type")
	}
}

func TestRenegotiateRejectedRestoresPrevious(t *testing.T) {
	sink := &fakeSink{acceptResult: QueryAcceptRejected}
	err := renegotiate(sink, testLogger{}, "prev", "next", 0)
	if !errors.Is(err, ErrRenegotiateFailed) {
		t.Fatalf("renegotiate() = %v, want ErrRenegotiateFailed", err)
	}
	if Classify(err) != ClassDownstreamFatal {
		t.Errorf("Classify(err) = %v, want ClassDownstreamFatal", Classify(err))
	}
	if len(sink.received) != 1 || sink.received[0] != "prev" {
		t.Errorf("restoreMediaType did not re-propose the previous type: %v", sink.received)
	}
}

func TestRenegotiateBuffersOutstandingThenFlushRetries(t *testing.T) {
	sink := &fakeSink{
		acceptResult:       QueryAcceptOK,
		receiveErr:         errors.New("busy"),
		receiveErrOnce:     true,
		buffersOutstanding: true,
	}
	err := renegotiate(sink, testLogger{}, "prev", "next", 0)
	if err != nil {
		t.Fatalf("renegotiate() = %v, want nil after flush+retry", err)
	}
	if len(sink.received) != 2 {
		t.Errorf("expected 2 ReceiveConnection attempts (initial + retry), got %d", len(sink.received))
	}
}

func TestRenegotiateSizeChangedCommitsAllocator(t *testing.T) {
	sink := &fakeSink{acceptResult: QueryAcceptSizeChanged}
	err := renegotiate(sink, testLogger{}, "prev", "next", 4096)
	if err != nil {
		t.Fatalf("renegotiate() = %v, want nil", err)
	}
}
