package extractor

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"
	"time"
)

func pcmBytes(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}

func ramp(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i)
	}
	return out
}

func TestNextWindowOverlap(t *testing.T) {
	const (
		window = 8
		hop    = 4
		rate   = 8
	)
	src := bytes.NewReader(pcmBytes(ramp(16)))
	s := newStream(context.Background(), src, rate, window, hop)

	first, err := s.Next()
	if err != nil {
		t.Fatalf("first Next: %v", err)
	}
	if first.FrameCount != window {
		t.Errorf("first frame count = %d, want %d", first.FrameCount, window)
	}
	if first.Timestamp != 0 {
		t.Errorf("first timestamp = %v, want 0", first.Timestamp)
	}
	if first.Samples[0] != 0 || first.Samples[7] != 7 {
		t.Errorf("first window content wrong: %v", first.Samples)
	}

	second, err := s.Next()
	if err != nil {
		t.Fatalf("second Next: %v", err)
	}
	// Hop of 4 at 8Hz: window starts half a second in.
	if second.Timestamp != 500*time.Millisecond {
		t.Errorf("second timestamp = %v, want 500ms", second.Timestamp)
	}
	if second.Samples[0] != 4 || second.Samples[7] != 11 {
		t.Errorf("second window should start at sample 4: %v", second.Samples)
	}
}

func TestNextReusesBuffer(t *testing.T) {
	src := bytes.NewReader(pcmBytes(ramp(64)))
	s := newStream(context.Background(), src, 8, 8, 4)

	first, err := s.Next()
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Next()
	if err != nil {
		t.Fatal(err)
	}
	if &first.Samples[0] != &second.Samples[0] {
		t.Error("windows should share the stream's ring buffer")
	}
}

func TestNextFinalPartialWindowZeroPadded(t *testing.T) {
	// 10 samples, window 8, hop 4: full window, then a partial with 6 valid.
	src := bytes.NewReader(pcmBytes(ramp(10)))
	s := newStream(context.Background(), src, 8, 8, 4)

	if _, err := s.Next(); err != nil {
		t.Fatalf("first: %v", err)
	}
	partial, err := s.Next()
	if err != nil {
		t.Fatalf("partial: %v", err)
	}
	if partial.FrameCount != 6 {
		t.Errorf("partial frame count = %d, want 6", partial.FrameCount)
	}
	if partial.Samples[5] != 9 {
		t.Errorf("last valid sample = %v, want 9", partial.Samples[5])
	}
	if partial.Samples[6] != 0 || partial.Samples[7] != 0 {
		t.Errorf("tail should be zero-padded: %v", partial.Samples[6:])
	}

	if _, err := s.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("after final window, err = %v, want io.EOF", err)
	}
	if _, err := s.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("EOF must be sticky, got %v", err)
	}
}

func TestNextExactMultipleEndsClean(t *testing.T) {
	// 12 samples, window 8, hop 4: windows at 0 and 4, then EOF.
	src := bytes.NewReader(pcmBytes(ramp(12)))
	s := newStream(context.Background(), src, 8, 8, 4)

	count := 0
	for {
		_, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		count++
	}
	if count != 2 {
		t.Errorf("window count = %d, want 2", count)
	}
}

func TestNextShortAssetSingleWindow(t *testing.T) {
	// Asset shorter than one window still yields one padded window.
	src := bytes.NewReader(pcmBytes(ramp(5)))
	s := newStream(context.Background(), src, 8, 8, 4)

	buf, err := s.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if buf.FrameCount != 5 {
		t.Errorf("frame count = %d, want 5", buf.FrameCount)
	}
	if _, err := s.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("want EOF, got %v", err)
	}
}

func TestNextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := bytes.NewReader(pcmBytes(ramp(64)))
	s := newStream(ctx, src, 8, 8, 4)

	if _, err := s.Next(); err != nil {
		t.Fatalf("Next before cancel: %v", err)
	}
	cancel()
	if _, err := s.Next(); !errors.Is(err, context.Canceled) {
		t.Errorf("after cancel, err = %v, want context.Canceled", err)
	}
}

func TestNaNSamplesScrubbed(t *testing.T) {
	samples := ramp(8)
	samples[3] = float32(math.NaN())
	src := bytes.NewReader(pcmBytes(samples))
	s := newStream(context.Background(), src, 8, 8, 8)

	buf, err := s.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if buf.Samples[3] != 0 {
		t.Errorf("NaN sample should be scrubbed to 0, got %v", buf.Samples[3])
	}
}
