package classify

import (
	"context"
	"time"

	"derush/internal/analysis"
	"derush/internal/config"
)

// ContentType labels the dominant content of a window.
type ContentType string

const (
	ContentSpeech ContentType = "speech"
	ContentMusic  ContentType = "music"
	ContentNoise  ContentType = "noise"
)

// Classification holds per-window content probabilities. Probabilities sum
// to approximately 1. Values are immutable once produced.
type Classification struct {
	Speech     float64
	Music      float64
	Noise      float64
	Dominant   ContentType
	Confidence float64
	Degraded   bool
	Timestamp  time.Duration
}

// Classifier is the pluggable content classification capability. Both the
// bundled heuristic and any external model implement it. Implementations
// must consume windows in timestamp order when they keep smoothing state.
type Classifier interface {
	Classify(ctx context.Context, features analysis.SpectralFeatures) (Classification, error)
}

// SpeechThreshold maps a sensitivity setting to the dominant-speech
// probability required for the speech preservation rule. High sensitivity
// demands more confident speech (fewer false positives); low favors
// retention.
func SpeechThreshold(sensitivity config.SpeechSensitivity) float64 {
	switch sensitivity {
	case config.SensitivityLow:
		return 0.35
	case config.SensitivityHigh:
		return 0.65
	default:
		return 0.5
	}
}

// Degraded returns the fallback classification substituted when a window's
// analysis fails or exceeds its soft timeout: low-confidence noise, which is
// silence-equivalent for the decision engine.
func Degraded(timestamp time.Duration) Classification {
	return Classification{
		Noise:     1,
		Dominant:  ContentNoise,
		Degraded:  true,
		Timestamp: timestamp,
	}
}

// resolveDominant applies the speech > music > noise hierarchy when scores
// are comparable (within the ambiguity margin).
func resolveDominant(speech, music, noise float64) (ContentType, float64) {
	const margin = 0.1

	dominant, best := ContentNoise, noise
	if music > best {
		dominant, best = ContentMusic, music
	}
	if speech > best {
		dominant, best = ContentSpeech, speech
	}

	// Ties break toward the hierarchy: speech first, then music.
	if dominant != ContentSpeech && best-speech < margin {
		return ContentSpeech, speech
	}
	if dominant == ContentNoise && best-music < margin {
		return ContentMusic, music
	}
	return dominant, best
}
