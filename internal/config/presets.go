package config

import (
	"fmt"
	"sort"
	"strings"

	"derush/internal/services"
)

// Preset names recognized by ApplyPreset.
const (
	PresetPodcast    = "podcast"
	PresetMusicVideo = "music-video"
	PresetInterview  = "interview"
)

type presetFn func(*Config)

var presets = map[string]presetFn{
	// Aggressive dead-air removal, speech is everything, no beat snapping.
	PresetPodcast: func(c *Config) {
		c.Analysis.SilenceThresholdDB = -45
		c.Analysis.MinimumSilenceSeconds = 0.4
		c.Analysis.SpeechSensitivity = string(SensitivityLow)
		c.Rhythm.Mode = string(RhythmDisabled)
		c.Mix.EnableVoiceDucking = true
	},
	// Keep the bed track intact, snap every cut to the groove.
	PresetMusicVideo: func(c *Config) {
		c.Analysis.SilenceThresholdDB = -50
		c.Analysis.MinimumSilenceSeconds = 1.0
		c.Analysis.SpeechSensitivity = string(SensitivityHigh)
		c.Rhythm.Mode = string(RhythmAggressive)
		c.Mix.EnableVoiceDucking = false
	},
	// Conservative cutting with generous breathing room around answers.
	PresetInterview: func(c *Config) {
		c.Analysis.SilenceThresholdDB = -40
		c.Analysis.MinimumSilenceSeconds = 0.8
		c.Analysis.SpeechSensitivity = string(SensitivityMedium)
		c.Segments.PaddingBeforeMs = 250
		c.Segments.PaddingAfterMs = 300
		c.Rhythm.Mode = string(RhythmDisabled)
	},
}

// PresetNames returns the sorted list of built-in preset names.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset overlays a named preset onto the configuration. The result is
// re-validated so a preset can never smuggle in invalid values.
func ApplyPreset(cfg *Config, name string) error {
	normalized := strings.ToLower(strings.TrimSpace(name))
	fn, ok := presets[normalized]
	if !ok {
		return services.Wrap(services.ErrConfiguration, "config", "preset",
			fmt.Sprintf("unknown preset %q (available: %s)", name, strings.Join(PresetNames(), ", ")), nil)
	}
	fn(cfg)
	return cfg.Validate()
}
