package analysis

import (
	"log/slog"
	"math"
	"time"

	"derush/internal/config"
	"derush/internal/dsp"
	"derush/internal/extractor"
	"derush/internal/logging"
	"derush/internal/services"
)

// SpectralFeatures is the immutable per-window feature vector. The three
// band energies cover the instrument-characteristic ranges used by transient
// detection: 20-100Hz (kick), 150-300Hz (snare), 8-16kHz (hi-hat).
type SpectralFeatures struct {
	Timestamp        time.Duration
	WindowDuration   time.Duration
	PeakFrequency    float64
	SpectralCentroid float64
	SpectralSpread   float64
	SpectralEnergy   float64
	RMSLevelDB       float64
	LowBandEnergy    float64
	MidBandEnergy    float64
	HighBandEnergy   float64
	// ZeroCrossing is the timestamp of the zero crossing nearest the window
	// start. Cut points land here when no beat is close enough, so splices
	// never click. Falls back to the window start when the signal never
	// crosses zero in range.
	ZeroCrossing time.Duration
}

// Instrument-characteristic band edges in Hz.
const (
	lowBandMin  = 20
	lowBandMax  = 100
	midBandMin  = 150
	midBandMax  = 300
	highBandMin = 8000
	highBandMax = 16000
)

// Analyzer derives SpectralFeatures from AudioBuffers. It owns a reusable
// FFT instance and is not safe for concurrent use; run one per worker.
type Analyzer struct {
	fft        *dsp.FFT
	sampleRate float64
	windowDur  time.Duration
	logger     *slog.Logger
}

// New constructs an Analyzer for the configured window size and sample rate.
func New(cfg *config.Config, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		fft:        dsp.NewFFT(cfg.Extraction.WindowSize, dsp.HannWindow),
		sampleRate: float64(cfg.Extraction.SampleRate),
		windowDur:  cfg.WindowDuration(),
		logger:     logging.NewComponentLogger(logger, "spectral-analyzer"),
	}
}

// Analyze computes the feature vector for one buffer. The buffer is borrowed
// for the duration of the call only. An empty buffer is a transient error;
// the caller substitutes a degraded silent window and continues.
func (a *Analyzer) Analyze(buf *extractor.AudioBuffer) (SpectralFeatures, error) {
	if buf == nil || buf.FrameCount == 0 {
		return SpectralFeatures{}, services.Wrap(services.ErrTransient, "analysis", "analyze", "empty audio buffer", nil)
	}

	rms := dsp.RMS(buf.Samples[:buf.FrameCount])
	magnitude := a.fft.Forward(buf.Samples)

	// Search 10ms around the window start for a splice-safe sample.
	zcRadius := int(a.sampleRate / 100)
	zcIndex := dsp.NearestZeroCrossing(buf.Samples[:buf.FrameCount], 0, zcRadius)

	features := SpectralFeatures{
		Timestamp:      buf.Timestamp,
		WindowDuration: a.windowDur,
		RMSLevelDB:     dsp.LinearToDB(rms),
		ZeroCrossing:   buf.Timestamp + time.Duration(float64(zcIndex)/a.sampleRate*float64(time.Second)),
	}

	// Bin 0 is DC offset; it never counts as spectral content.
	var (
		totalMag  float64
		energy    float64
		peakBin   int
		peakValue float64
		weighted  float64
	)
	for bin := 1; bin < len(magnitude); bin++ {
		m := magnitude[bin]
		freq := a.fft.BinFrequency(bin, a.sampleRate)
		totalMag += m
		energy += m * m
		weighted += m * freq
		if m > peakValue {
			peakValue = m
			peakBin = bin
		}
		switch {
		case freq >= lowBandMin && freq <= lowBandMax:
			features.LowBandEnergy += m * m
		case freq >= midBandMin && freq <= midBandMax:
			features.MidBandEnergy += m * m
		case freq >= highBandMin && freq <= highBandMax:
			features.HighBandEnergy += m * m
		}
	}
	features.SpectralEnergy = energy

	if totalMag <= 0 {
		return features, nil
	}

	features.PeakFrequency = a.fft.BinFrequency(peakBin, a.sampleRate)
	centroid := weighted / totalMag
	features.SpectralCentroid = centroid

	var variance float64
	for bin := 1; bin < len(magnitude); bin++ {
		freq := a.fft.BinFrequency(bin, a.sampleRate)
		deviation := freq - centroid
		variance += magnitude[bin] * deviation * deviation
	}
	features.SpectralSpread = math.Sqrt(variance / totalMag)

	return features, nil
}

// IsSilentAt reports whether the window's RMS falls below the threshold.
// Only the comparison lives here; the run-length policy is the decision
// engine's.
func (f SpectralFeatures) IsSilentAt(thresholdDB float64) bool {
	return f.RMSLevelDB < thresholdDB
}
