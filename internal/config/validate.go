package config

import (
	"fmt"

	"derush/internal/services"
)

// Validate checks every field eagerly and reports the first invalid one.
// A validation failure is a ConfigurationError and must occur before any
// pipeline stage starts.
func (c *Config) Validate() error {
	if c.Analysis.SilenceThresholdDB < -60 || c.Analysis.SilenceThresholdDB > -10 {
		return invalid("analysis.silence_threshold_db", "must be between -60 and -10 dB", c.Analysis.SilenceThresholdDB)
	}
	if c.Analysis.MinimumSilenceSeconds < 0.1 || c.Analysis.MinimumSilenceSeconds > 2.0 {
		return invalid("analysis.minimum_silence_seconds", "must be between 0.1 and 2.0", c.Analysis.MinimumSilenceSeconds)
	}
	switch SpeechSensitivity(c.Analysis.SpeechSensitivity) {
	case SensitivityLow, SensitivityMedium, SensitivityHigh:
	default:
		return invalid("analysis.speech_sensitivity", "must be low, medium, or high", c.Analysis.SpeechSensitivity)
	}
	if c.Analysis.QualityGateEnabled {
		if c.Analysis.QualityGateThreshold < 0 || c.Analysis.QualityGateThreshold > 1 {
			return invalid("analysis.quality_gate_threshold", "must be between 0 and 1", c.Analysis.QualityGateThreshold)
		}
	}
	if c.Analysis.SmoothingWindows < 1 || c.Analysis.SmoothingWindows > 32 {
		return invalid("analysis.smoothing_windows", "must be between 1 and 32", c.Analysis.SmoothingWindows)
	}
	if c.Analysis.ClassifyTimeoutMs < 10 {
		return invalid("analysis.classify_timeout_ms", "must be at least 10", c.Analysis.ClassifyTimeoutMs)
	}

	if c.Segments.MinimumSegmentSeconds <= 0 {
		return invalid("segments.minimum_segment_seconds", "must be positive", c.Segments.MinimumSegmentSeconds)
	}
	if c.Segments.MergeGapSeconds < 0 {
		return invalid("segments.merge_gap_seconds", "must not be negative", c.Segments.MergeGapSeconds)
	}
	if c.Segments.PaddingBeforeMs < 0 || c.Segments.PaddingAfterMs < 0 {
		return invalid("segments.padding", "padding must not be negative", fmt.Sprintf("%d/%d", c.Segments.PaddingBeforeMs, c.Segments.PaddingAfterMs))
	}

	switch RhythmMode(c.Rhythm.Mode) {
	case RhythmDisabled, RhythmModerate, RhythmAggressive:
	default:
		return invalid("rhythm.mode", "must be disabled, moderate, or aggressive", c.Rhythm.Mode)
	}

	if c.Mix.CrossfadeMs < 0 || c.Mix.CrossfadeMs > 500 {
		return invalid("mix.crossfade_ms", "must be between 0 and 500", c.Mix.CrossfadeMs)
	}
	if c.Mix.DuckingGainDB > 0 || c.Mix.DuckingGainDB < -60 {
		return invalid("mix.ducking_gain_db", "must be between -60 and 0", c.Mix.DuckingGainDB)
	}
	if c.Mix.DuckAttackMs < 0 || c.Mix.DuckReleaseMs < 0 {
		return invalid("mix.duck ramps", "attack and release must not be negative", fmt.Sprintf("%d/%d", c.Mix.DuckAttackMs, c.Mix.DuckReleaseMs))
	}

	if c.Extraction.SampleRate < 8000 || c.Extraction.SampleRate > 192000 {
		return invalid("extraction.sample_rate", "must be between 8000 and 192000", c.Extraction.SampleRate)
	}
	if c.Extraction.WindowSize < 256 || c.Extraction.WindowSize&(c.Extraction.WindowSize-1) != 0 {
		return invalid("extraction.window_size", "must be a power of two, at least 256", c.Extraction.WindowSize)
	}
	if c.Extraction.HopSize <= 0 || c.Extraction.HopSize > c.Extraction.WindowSize {
		return invalid("extraction.hop_size", "must be positive and no larger than window_size", c.Extraction.HopSize)
	}

	return nil
}

func invalid(field, constraint string, value any) error {
	return services.Wrap(services.ErrConfiguration, "config", field,
		fmt.Sprintf("%s (got %v)", constraint, value), nil)
}
