package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Default returns the baseline configuration applied before any file or
// preset overrides.
func Default() Config {
	return Config{
		Analysis: Analysis{
			SilenceThresholdDB:    -40,
			MinimumSilenceSeconds: 0.5,
			SpeechSensitivity:     string(SensitivityMedium),
			QualityGateEnabled:    false,
			QualityGateThreshold:  0.6,
			SmoothingWindows:      5,
			ClassifyTimeoutMs:     250,
		},
		Segments: Segments{
			MinimumSegmentSeconds: 0.5,
			MergeGapSeconds:       0.1,
			PaddingBeforeMs:       150,
			PaddingAfterMs:        200,
		},
		Rhythm: Rhythm{
			Mode: string(RhythmDisabled),
		},
		Mix: Mix{
			CrossfadeMs:        20,
			EnableVoiceDucking: true,
			DuckingGainDB:      -15,
			DuckAttackMs:       50,
			DuckReleaseMs:      200,
		},
		Extraction: Extraction{
			SampleRate: 44100,
			WindowSize: 2048,
			// 10ms at 44.1kHz. Beat timestamps carry hop resolution, so the
			// hop must stay at or under the 10ms cut precision.
			HopSize: 441,
		},
		Logging: Logging{
			Format: "auto",
			Level:  "info",
		},
		Cache: Cache{
			Enabled: true,
			Dir:     defaultCacheDir(),
		},
	}
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "derush")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/derush"
	}
	return filepath.Join(home, ".cache", "derush")
}
