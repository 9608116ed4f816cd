package plan

import (
	"time"

	"github.com/google/uuid"

	"derush/internal/automation"
	"derush/internal/segment"
)

// CompositionPlan is the non-destructive edit result: an ordered list of
// source ranges plus the automation needed to play them back without clicks.
// It never touches the source media.
type CompositionPlan struct {
	ID               string                    `json:"id"`
	SourcePath       string                    `json:"source_path"`
	CreatedAt        time.Time                 `json:"created_at"`
	Segments         []segment.ApprovedSegment `json:"segments"`
	Crossfades       []automation.Crossfade    `json:"crossfades,omitempty"`
	Ducking          []automation.Curve        `json:"ducking,omitempty"`
	OriginalDuration time.Duration             `json:"original_duration"`
	FinalDuration    time.Duration             `json:"final_duration"`
}

// EditStatistics summarizes one pipeline run.
type EditStatistics struct {
	OriginalDuration time.Duration `json:"original_duration"`
	FinalDuration    time.Duration `json:"final_duration"`
	ReductionPercent float64       `json:"reduction_percent"`
	SegmentCount     int           `json:"segment_count"`
	WindowsAnalyzed  int           `json:"windows_analyzed"`
	WindowsKept      int           `json:"windows_kept"`
	WindowsDegraded  int           `json:"windows_degraded"`
	MeanQuality      float64       `json:"mean_quality"`
	ProcessingTime   time.Duration `json:"processing_time"`
}

// EditResult pairs the plan with its statistics.
type EditResult struct {
	Plan       *CompositionPlan `json:"plan"`
	Statistics EditStatistics   `json:"statistics"`
}

func newPlanID() string {
	return uuid.NewString()
}
