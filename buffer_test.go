package rowkit

import (
	"strings"
	"testing"
	"testing/iotest"
)

func TestStreamBufferFillAndAdvance(t *testing.T) {
	opts := mustOptions(t)
	sb := newStreamBuffer(strings.NewReader("hello world"), opts)
	if err := sb.fill(); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if string(sb.window()) == "" {
		t.Fatal("expected some data after fill")
	}
	sb.advance(6)
	if string(sb.window()) != "world" {
		t.Fatalf("got %q", sb.window())
	}
}

func TestStreamBufferCompactReclaimsSpace(t *testing.T) {
	opts := mustOptions(t)
	sb := newStreamBuffer(strings.NewReader("abcdef"), opts)
	sb.fill()
	sb.advance(3)
	sb.compact()
	if sb.start != 0 {
		t.Fatalf("expected start reset to 0 after compact, got %d", sb.start)
	}
	if string(sb.window()) != "def" {
		t.Fatalf("got %q", sb.window())
	}
}

func TestStreamBufferEOFTracking(t *testing.T) {
	opts := mustOptions(t)
	sb := newStreamBuffer(strings.NewReader("x"), opts)
	for !sb.sourceAtEOF() {
		if err := sb.fill(); err != nil {
			t.Fatalf("fill: %v", err)
		}
	}
	if sb.atEOF() {
		t.Fatal("window still has unconsumed bytes, atEOF should be false")
	}
	sb.advance(len(sb.window()))
	if !sb.atEOF() {
		t.Fatal("expected atEOF once window is fully consumed")
	}
}

func TestStreamBufferGrowsPastInitialSize(t *testing.T) {
	opts := mustOptions(t, WithMaxFieldSize(1<<20), WithMaxRowSize(1<<20))
	big := strings.Repeat("x", defaultStreamBufferSize*3)
	sb := newStreamBuffer(strings.NewReader(big), opts)
	for !sb.sourceAtEOF() {
		if err := sb.fill(); err != nil {
			t.Fatalf("fill: %v", err)
		}
	}
	if len(sb.buf) <= defaultStreamBufferSize {
		t.Fatalf("expected buffer to have grown, still %d bytes", len(sb.buf))
	}
}

func TestStreamBufferRowTooLargeAtCeiling(t *testing.T) {
	opts := mustOptions(t, WithMaxFieldSize(128), WithMaxRowSize(128))
	big := strings.Repeat("y", 1<<20)
	sb := newStreamBuffer(strings.NewReader(big), opts)
	var err error
	for !sb.sourceAtEOF() {
		if err = sb.fill(); err != nil {
			break
		}
	}
	if err == nil {
		t.Fatal("expected growth past the configured ceiling to fail")
	}
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != KindRowTooLarge {
		t.Fatalf("expected KindRowTooLarge, got %#v", err)
	}
}

func TestStreamBufferWithOneByteReader(t *testing.T) {
	opts := mustOptions(t)
	sb := newStreamBuffer(iotest.OneByteReader(strings.NewReader("abc")), opts)
	var collected []byte
	for !sb.atEOF() {
		if err := sb.fill(); err != nil {
			t.Fatalf("fill: %v", err)
		}
		collected = append(collected, sb.window()...)
		sb.advance(len(sb.window()))
	}
	if string(collected) != "abc" {
		t.Fatalf("got %q", collected)
	}
}
