package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"derush/internal/services"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Error("exists should be false for missing file")
	}
	if cfg.Analysis.SilenceThresholdDB != -40 {
		t.Errorf("expected default silence threshold, got %v", cfg.Analysis.SilenceThresholdDB)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "derush.toml")
	content := "[analysis]\nsilence_threshold_db = -30.0\nspeech_sensitivity = \"HIGH\"\n\n[rhythm]\nmode = \"moderate\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatalf("expected file to resolve, exists=%v path=%q", exists, resolved)
	}
	if cfg.Analysis.SilenceThresholdDB != -30 {
		t.Errorf("threshold = %v, want -30", cfg.Analysis.SilenceThresholdDB)
	}
	if cfg.Analysis.SpeechSensitivity != "high" {
		t.Errorf("sensitivity should be normalized to lowercase, got %q", cfg.Analysis.SpeechSensitivity)
	}
	if cfg.Analysis.MinimumSilenceSeconds != 0.5 {
		t.Errorf("untouched fields keep defaults, got %v", cfg.Analysis.MinimumSilenceSeconds)
	}
}

func TestValidateReportsField(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"silence threshold too low", func(c *Config) { c.Analysis.SilenceThresholdDB = -80 }},
		{"silence threshold too high", func(c *Config) { c.Analysis.SilenceThresholdDB = -5 }},
		{"minimum silence out of range", func(c *Config) { c.Analysis.MinimumSilenceSeconds = 3 }},
		{"bad sensitivity", func(c *Config) { c.Analysis.SpeechSensitivity = "extreme" }},
		{"quality gate out of range", func(c *Config) {
			c.Analysis.QualityGateEnabled = true
			c.Analysis.QualityGateThreshold = 1.5
		}},
		{"bad rhythm mode", func(c *Config) { c.Rhythm.Mode = "swing" }},
		{"crossfade too long", func(c *Config) { c.Mix.CrossfadeMs = 900 }},
		{"positive ducking gain", func(c *Config) { c.Mix.DuckingGainDB = 3 }},
		{"window not power of two", func(c *Config) { c.Extraction.WindowSize = 1000 }},
		{"hop exceeds window", func(c *Config) { c.Extraction.HopSize = 4096 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, services.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestBeatSnapTolerance(t *testing.T) {
	cfg := Default()

	cfg.Rhythm.Mode = string(RhythmDisabled)
	if got := cfg.BeatSnapTolerance(); got != 0 {
		t.Errorf("disabled tolerance = %v, want 0", got)
	}
	cfg.Rhythm.Mode = string(RhythmModerate)
	if got := cfg.BeatSnapTolerance(); got != 100*time.Millisecond {
		t.Errorf("moderate tolerance = %v, want 100ms", got)
	}
	cfg.Rhythm.Mode = string(RhythmAggressive)
	if got := cfg.BeatSnapTolerance(); got != 50*time.Millisecond {
		t.Errorf("aggressive tolerance = %v, want 50ms", got)
	}
}

func TestWindowAndHopDurations(t *testing.T) {
	cfg := Default()
	cfg.Extraction.SampleRate = 44100
	cfg.Extraction.WindowSize = 2048
	cfg.Extraction.HopSize = 512

	window := cfg.WindowDuration()
	if window < 46*time.Millisecond || window > 47*time.Millisecond {
		t.Errorf("window duration = %v, want about 46.4ms", window)
	}
	hop := cfg.HopDuration()
	if hop < 11*time.Millisecond || hop > 12*time.Millisecond {
		t.Errorf("hop duration = %v, want about 11.6ms", hop)
	}
}

func TestDefaultHopBoundsBeatError(t *testing.T) {
	cfg := Default()
	if hop := cfg.HopDuration(); hop > 10*time.Millisecond {
		t.Errorf("default hop = %v; beat timestamps are window starts, so the hop must not exceed 10ms", hop)
	}
}

func TestApplyPreset(t *testing.T) {
	cfg := Default()
	if err := ApplyPreset(&cfg, "Music-Video"); err != nil {
		t.Fatalf("ApplyPreset: %v", err)
	}
	if cfg.Rhythm.Mode != string(RhythmAggressive) {
		t.Errorf("music-video should enable aggressive rhythm, got %q", cfg.Rhythm.Mode)
	}
	if cfg.Mix.EnableVoiceDucking {
		t.Error("music-video should disable ducking")
	}
}

func TestApplyPresetUnknown(t *testing.T) {
	cfg := Default()
	err := ApplyPreset(&cfg, "vlog")
	if err == nil {
		t.Fatal("expected error for unknown preset")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestCreateSampleParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("sample config should load cleanly: %v", err)
	}
	if !exists {
		t.Fatal("sample file should exist")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("sample config should validate: %v", err)
	}
}
