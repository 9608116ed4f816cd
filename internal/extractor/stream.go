package extractor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os/exec"
	"strings"
	"time"

	"derush/internal/services"
)

// Stream yields consecutive analysis windows from a PCM byte source. Windows
// overlap by windowSize-hopSize samples; the final partial window is
// zero-padded with FrameCount reflecting the valid frames.
type Stream struct {
	ctx    context.Context
	reader *bufio.Reader
	cmd    *exec.Cmd
	stderr *bytes.Buffer

	sampleRate int
	windowSize int
	hopSize    int

	window   []float32
	raw      []byte
	buf      AudioBuffer
	start    int64 // absolute sample index of window[0]
	primed   bool
	finished bool
	closed   bool
	duration time.Duration
}

func newStream(ctx context.Context, r io.Reader, sampleRate, windowSize, hopSize int) *Stream {
	return &Stream{
		ctx:        ctx,
		reader:     bufio.NewReaderSize(r, windowSize*4),
		sampleRate: sampleRate,
		windowSize: windowSize,
		hopSize:    hopSize,
		window:     make([]float32, windowSize),
		raw:        make([]byte, windowSize*4),
	}
}

// SourceDuration returns the probed asset duration, when known.
func (s *Stream) SourceDuration() time.Duration { return s.duration }

// Next returns the next window, or io.EOF after the final one. The returned
// buffer is owned by the stream and only valid until the following call.
func (s *Stream) Next() (*AudioBuffer, error) {
	if err := s.ctx.Err(); err != nil {
		s.teardown()
		return nil, err
	}
	if s.finished {
		return nil, io.EOF
	}

	var need int
	var dst []float32
	if !s.primed {
		need = s.windowSize
		dst = s.window
	} else {
		copy(s.window, s.window[s.hopSize:])
		need = s.hopSize
		dst = s.window[s.windowSize-s.hopSize:]
		s.start += int64(s.hopSize)
	}

	read, err := s.readSamples(dst, need)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		s.teardown()
		return nil, services.Wrap(services.ErrExternalTool, "extractor", "read", "pcm stream failed", err)
	}

	valid := s.windowSize
	if read < need {
		// Source exhausted: confirm the decoder exited cleanly, zero-pad the
		// tail, and emit one last partial window if anything new arrived.
		if werr := s.waitDecoder(); werr != nil {
			return nil, werr
		}
		s.finished = true
		if read == 0 {
			return nil, io.EOF
		}
		for i := read; i < need; i++ {
			dst[i] = 0
		}
		valid = s.windowSize - need + read
	}
	s.primed = true

	s.buf = AudioBuffer{
		Samples:    s.window,
		FrameCount: valid,
		Timestamp:  time.Duration(s.start) * time.Second / time.Duration(s.sampleRate),
		SampleRate: s.sampleRate,
		Channels:   1,
	}
	return &s.buf, nil
}

func (s *Stream) readSamples(dst []float32, n int) (int, error) {
	raw := s.raw[:n*4]
	read, err := io.ReadFull(s.reader, raw)
	complete := read / 4
	for i := 0; i < complete; i++ {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		sample := math.Float32frombits(bits)
		if sample != sample { // NaN from a corrupt decode
			sample = 0
		}
		dst[i] = sample
	}
	return complete, err
}

func (s *Stream) waitDecoder() error {
	if s.cmd == nil || s.closed {
		return nil
	}
	s.closed = true
	if err := s.cmd.Wait(); err != nil {
		detail := ""
		if s.stderr != nil {
			detail = strings.TrimSpace(s.stderr.String())
		}
		if s.ctx.Err() != nil {
			return s.ctx.Err()
		}
		return services.Wrap(services.ErrExternalTool, "extractor", "decode", detail, err)
	}
	return nil
}

func (s *Stream) teardown() {
	if s.cmd != nil && !s.closed {
		s.closed = true
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		_ = s.cmd.Wait()
	}
	s.finished = true
}

// Close releases the decoder. Safe to call multiple times and after EOF.
func (s *Stream) Close() error {
	s.teardown()
	return nil
}
