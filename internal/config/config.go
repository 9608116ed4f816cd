package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// SpeechSensitivity biases the classifier thresholds for speech acceptance.
type SpeechSensitivity string

const (
	SensitivityLow    SpeechSensitivity = "low"
	SensitivityMedium SpeechSensitivity = "medium"
	SensitivityHigh   SpeechSensitivity = "high"
)

// RhythmMode controls beat-aligned cut snapping.
type RhythmMode string

const (
	RhythmDisabled   RhythmMode = "disabled"
	RhythmModerate   RhythmMode = "moderate"
	RhythmAggressive RhythmMode = "aggressive"
)

// Analysis holds the silence and classification policy.
type Analysis struct {
	SilenceThresholdDB    float64 `toml:"silence_threshold_db"`
	MinimumSilenceSeconds float64 `toml:"minimum_silence_seconds"`
	SpeechSensitivity     string  `toml:"speech_sensitivity"`
	QualityGateEnabled    bool    `toml:"quality_gate_enabled"`
	QualityGateThreshold  float64 `toml:"quality_gate_threshold"`
	SmoothingWindows      int     `toml:"smoothing_windows"`
	ClassifyTimeoutMs     int     `toml:"classify_timeout_ms"`
}

// Segments holds assembly policy for approved segments.
type Segments struct {
	MinimumSegmentSeconds float64 `toml:"minimum_segment_seconds"`
	MergeGapSeconds       float64 `toml:"merge_gap_seconds"`
	PaddingBeforeMs       int     `toml:"padding_before_ms"`
	PaddingAfterMs        int     `toml:"padding_after_ms"`
}

// Rhythm holds beat snapping policy.
type Rhythm struct {
	Mode string `toml:"mode"`
}

// Mix holds crossfade and voice ducking automation settings.
type Mix struct {
	CrossfadeMs        int     `toml:"crossfade_ms"`
	EnableVoiceDucking bool    `toml:"enable_voice_ducking"`
	DuckingGainDB      float64 `toml:"ducking_gain_db"`
	DuckAttackMs       int     `toml:"duck_attack_ms"`
	DuckReleaseMs      int     `toml:"duck_release_ms"`
}

// Extraction holds PCM decode settings and collaborator binaries.
type Extraction struct {
	SampleRate    int    `toml:"sample_rate"`
	WindowSize    int    `toml:"window_size"`
	HopSize       int    `toml:"hop_size"`
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// Logging holds log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Cache holds plan cache settings.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Config is the full ProcessingConfiguration plus ambient settings.
type Config struct {
	Analysis   Analysis   `toml:"analysis"`
	Segments   Segments   `toml:"segments"`
	Rhythm     Rhythm     `toml:"rhythm"`
	Mix        Mix        `toml:"mix"`
	Extraction Extraction `toml:"extraction"`
	Logging    Logging    `toml:"logging"`
	Cache      Cache      `toml:"cache"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/derush/config.toml")
}

// Load locates, parses, and validates a configuration file. When no file
// exists the defaults are returned. The returned config has all path fields
// expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("derush.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	c.Analysis.SpeechSensitivity = strings.ToLower(strings.TrimSpace(c.Analysis.SpeechSensitivity))
	c.Rhythm.Mode = strings.ToLower(strings.TrimSpace(c.Rhythm.Mode))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Extraction.FFmpegBinary = strings.TrimSpace(c.Extraction.FFmpegBinary)
	c.Extraction.FFprobeBinary = strings.TrimSpace(c.Extraction.FFprobeBinary)

	if strings.TrimSpace(c.Cache.Dir) != "" {
		expanded, err := expandPath(c.Cache.Dir)
		if err != nil {
			return err
		}
		c.Cache.Dir = expanded
	}
	return nil
}

// WindowDuration returns the analysis window length in source time.
func (c *Config) WindowDuration() time.Duration {
	if c.Extraction.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(c.Extraction.WindowSize) / float64(c.Extraction.SampleRate) * float64(time.Second))
}

// HopDuration returns the hop step in source time.
func (c *Config) HopDuration() time.Duration {
	if c.Extraction.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(c.Extraction.HopSize) / float64(c.Extraction.SampleRate) * float64(time.Second))
}

// BeatSnapTolerance returns the cut snapping tolerance for the configured
// rhythm mode, or zero when snapping is disabled.
func (c *Config) BeatSnapTolerance() time.Duration {
	switch RhythmMode(c.Rhythm.Mode) {
	case RhythmModerate:
		return 100 * time.Millisecond
	case RhythmAggressive:
		return 50 * time.Millisecond
	default:
		return 0
	}
}

// FFmpeg returns the ffmpeg executable name.
func (c *Config) FFmpeg() string {
	if c.Extraction.FFmpegBinary == "" {
		return "ffmpeg"
	}
	return c.Extraction.FFmpegBinary
}

// FFprobe returns the ffprobe executable name.
func (c *Config) FFprobe() string {
	if c.Extraction.FFprobeBinary == "" {
		return "ffprobe"
	}
	return c.Extraction.FFprobeBinary
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
