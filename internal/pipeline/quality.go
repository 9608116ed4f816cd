package pipeline

import "time"

// VideoQualityProvider supplies an external 0..1 quality score for a source
// time range. The second return reports whether a score exists for the
// range; absence is normal and simply skips the quality gate.
type VideoQualityProvider interface {
	QualityAt(start, end time.Duration) (float64, bool)
}
