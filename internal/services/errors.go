package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInput marks fatal asset problems: unsupported container, missing
	// audio track. Raised before any analysis starts.
	ErrInput = errors.New("input error")
	// ErrConfiguration marks invalid ProcessingConfiguration fields,
	// detected eagerly before any stage runs.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient marks a single-window analysis failure that was recovered
	// locally with a degraded result.
	ErrTransient = errors.New("transient analysis error")
	// ErrResource marks sustained backpressure beyond the drain budget.
	ErrResource = errors.New("resource exhaustion")
	// ErrExternalTool marks failures of the ffmpeg/ffprobe collaborators.
	ErrExternalTool = errors.New("external tool error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether an error should abort the pipeline rather than
// degrade a single window.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInput) ||
		errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrResource) ||
		errors.Is(err, ErrExternalTool)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
