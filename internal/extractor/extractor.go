package extractor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"time"

	"derush/internal/config"
	"derush/internal/logging"
	"derush/internal/media/ffprobe"
	"derush/internal/services"
)

// AudioBuffer is one analysis window of canonical PCM: 32-bit float samples,
// mono, at the configured sample rate. The Samples slice is a view into the
// stream's ring buffer: it is valid only until the next call to Next and
// must never be retained across stage boundaries.
type AudioBuffer struct {
	Samples    []float32
	FrameCount int
	Timestamp  time.Duration
	SampleRate int
	Channels   int
}

// Extractor opens assets and produces windowed PCM streams.
type Extractor struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New constructs an Extractor.
func New(cfg *config.Config, logger *slog.Logger) *Extractor {
	return &Extractor{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "extractor"),
	}
}

// Open probes the asset, starts the decoder, and returns the window stream.
// A container without an audio track fails here, before any analysis runs.
// The stream is finite and cannot be restarted; re-open the asset instead.
func (e *Extractor) Open(ctx context.Context, path string) (*Stream, error) {
	probe, err := ffprobe.Inspect(ctx, e.cfg.FFprobe(), path)
	if err != nil {
		return nil, err
	}
	if !probe.HasAudio() {
		return nil, services.Wrap(services.ErrInput, "extractor", "probe",
			fmt.Sprintf("asset %s has no audio track", path), nil)
	}

	rate := e.cfg.Extraction.SampleRate
	cmd := exec.CommandContext(ctx, e.cfg.FFmpeg(),
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-i", path,
		"-vn", "-map", "0:a:0",
		"-ac", "1",
		"-ar", strconv.Itoa(rate),
		"-f", "f32le",
		"-",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "extractor", "pipe", "ffmpeg stdout unavailable", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "extractor", "start", "ffmpeg failed to start", err)
	}

	e.logger.Debug("decoder started",
		logging.String("asset", path),
		logging.Int("sample_rate", rate),
		logging.Int("window_size", e.cfg.Extraction.WindowSize),
		logging.Int("hop_size", e.cfg.Extraction.HopSize),
		logging.Duration("probed_duration", probe.Duration()),
	)

	stream := newStream(ctx, stdout, rate, e.cfg.Extraction.WindowSize, e.cfg.Extraction.HopSize)
	stream.cmd = cmd
	stream.stderr = &stderr
	stream.duration = probe.Duration()
	return stream, nil
}
