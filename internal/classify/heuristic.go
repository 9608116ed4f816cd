package classify

import (
	"context"
	"log/slog"
	"math"

	"derush/internal/analysis"
	"derush/internal/config"
	"derush/internal/logging"
)

// smoothingAlpha is the fixed blend weight for the current window's raw
// probabilities against the rolling history mean.
const smoothingAlpha = 0.6

// Heuristic classifies windows from spectral shape and RMS level alone. It
// keeps a rolling history of the last k windows for temporal smoothing, so
// windows must be fed in order; it is not safe for concurrent use.
type Heuristic struct {
	history []probs
	next    int
	filled  int
	logger  *slog.Logger
}

type probs struct {
	speech, music, noise float64
}

// NewHeuristic constructs the default spectral/RMS classifier.
func NewHeuristic(cfg *config.Config, logger *slog.Logger) *Heuristic {
	k := cfg.Analysis.SmoothingWindows
	if k < 1 {
		k = 1
	}
	return &Heuristic{
		history: make([]probs, k),
		logger:  logging.NewComponentLogger(logger, "classifier"),
	}
}

// Classify derives smoothed speech/music/noise probabilities for one window.
func (h *Heuristic) Classify(_ context.Context, features analysis.SpectralFeatures) (Classification, error) {
	raw := h.score(features)
	smoothed := h.smooth(raw)
	h.remember(smoothed)

	dominant, confidence := resolveDominant(smoothed.speech, smoothed.music, smoothed.noise)
	return Classification{
		Speech:     smoothed.speech,
		Music:      smoothed.music,
		Noise:      smoothed.noise,
		Dominant:   dominant,
		Confidence: confidence,
		Timestamp:  features.Timestamp,
	}, nil
}

// score turns spectral shape into unnormalized evidence, then normalizes.
// Speech concentrates its centroid in the vocal band with moderate spread;
// music spreads wider or sits outside the vocal band; near-silent windows
// are noise whatever their shape.
func (h *Heuristic) score(f analysis.SpectralFeatures) probs {
	level := clamp((f.RMSLevelDB+55)/25, 0, 1)

	vocalBand := bandScore(f.SpectralCentroid, 300, 3400, 600)
	vocalSpread := bandScore(f.SpectralSpread, 250, 2600, 700)
	speech := level * vocalBand * vocalSpread

	wideSpread := bandScore(f.SpectralSpread, 2800, 20000, 1000)
	outOfBand := (1 - vocalBand) * 0.8
	music := level * math.Max(wideSpread, outOfBand)

	noise := (1 - level) + 0.05

	total := speech + music + noise
	return probs{speech: speech / total, music: music / total, noise: noise / total}
}

func (h *Heuristic) smooth(raw probs) probs {
	if h.filled == 0 {
		return raw
	}
	var mean probs
	for i := 0; i < h.filled; i++ {
		mean.speech += h.history[i].speech
		mean.music += h.history[i].music
		mean.noise += h.history[i].noise
	}
	n := float64(h.filled)
	mean.speech /= n
	mean.music /= n
	mean.noise /= n

	return probs{
		speech: smoothingAlpha*raw.speech + (1-smoothingAlpha)*mean.speech,
		music:  smoothingAlpha*raw.music + (1-smoothingAlpha)*mean.music,
		noise:  smoothingAlpha*raw.noise + (1-smoothingAlpha)*mean.noise,
	}
}

func (h *Heuristic) remember(p probs) {
	h.history[h.next] = p
	h.next = (h.next + 1) % len(h.history)
	if h.filled < len(h.history) {
		h.filled++
	}
}

// bandScore is 1 inside [lo, hi] and decays linearly to 0 over the soft
// margin outside it.
func bandScore(value, lo, hi, soft float64) float64 {
	switch {
	case value >= lo && value <= hi:
		return 1
	case value < lo:
		return clamp(1-(lo-value)/soft, 0, 1)
	default:
		return clamp(1-(value-hi)/soft, 0, 1)
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
